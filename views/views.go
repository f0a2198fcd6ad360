// Package views renders the site's pages as templ components.
//
// Each component executes an embedded html/template page inside the shared
// layout, so contextual escaping applies to everything except post bodies,
// which are admin-authored HTML.
package views

import (
	"context"
	"embed"
	"fmt"
	"html/template"
	"io"

	"github.com/a-h/templ"

	"github.com/eringen/pubsite/content"
)

//go:embed templates/*.html
var templateFS embed.FS

var funcs = template.FuncMap{
	"formatDate": FormatDate,
	"postURL":    PostURL,
	"summary":    func(p content.Post, n int) string { return p.Summary(n) },
	"rawHTML":    func(s string) template.HTML { return template.HTML(s) },
}

var pages = map[string]*template.Template{}

func init() {
	for _, name := range []string{
		"landing.html",
		"blogs.html",
		"post.html",
		"notfound.html",
		"error.html",
		"admin_login.html",
		"admin_dashboard.html",
		"admin_editor.html",
	} {
		pages[name] = template.Must(template.New(name).Funcs(funcs).ParseFS(templateFS, "templates/layout.html", "templates/"+name))
	}
}

func render(name string, data page) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		t, ok := pages[name]
		if !ok {
			return fmt.Errorf("views: unknown page %q", name)
		}
		return t.ExecuteTemplate(w, "layout", data)
	})
}

func pageMeta(site Site, title, description, canonical string) PageMeta {
	if description == "" {
		description = site.Description
	}
	return PageMeta{Title: title, Description: description, URL: canonical, OGType: "website"}
}

// Landing renders the marketing home page with the latest posts.
func Landing(site Site, latest []content.Post) templ.Component {
	return render("landing.html", page{
		Site:   site,
		Meta:   pageMeta(site, site.Name+" - Quantum-Ready Ground Infrastructure", "", buildURL(site.URL)),
		JSONLD: WebsiteJsonLD(site),
		Posts:  latest,
	})
}

// BlogList renders the public blog listing.
func BlogList(site Site, posts []content.Post) templ.Component {
	return render("blogs.html", page{
		Site:  site,
		Meta:  pageMeta(site, "Blog - "+site.Name, "", buildURL(site.URL, "blogs")),
		Posts: posts,
	})
}

// BlogPost renders a single post.
func BlogPost(site Site, post content.Post) templ.Component {
	meta := PageMeta{
		Title:       post.Title + " - " + site.Name + " Blog",
		Description: post.Summary(160),
		URL:         PostURL(site, post.Slug),
		OGType:      "article",
		Image:       post.Cover(),
	}
	return render("post.html", page{
		Site:   site,
		Meta:   meta,
		JSONLD: BlogPostingJsonLD(site, post),
		Post:   &post,
	})
}

// NotFound renders the 404 page.
func NotFound(site Site) templ.Component {
	return render("notfound.html", page{
		Site: site,
		Meta: pageMeta(site, "Not Found - "+site.Name, "", ""),
	})
}

// ServerError renders the 500 page.
func ServerError(site Site) templ.Component {
	return render("error.html", page{
		Site: site,
		Meta: pageMeta(site, "Something went wrong - "+site.Name, "", ""),
	})
}

// AdminLogin renders the admin login form.
func AdminLogin(site Site, csrfToken string) templ.Component {
	return render("admin_login.html", page{
		Site:      site,
		Meta:      pageMeta(site, "Admin Login - "+site.Name, "", ""),
		CSRFToken: csrfToken,
	})
}

// AdminDashboard renders the post table for a signed-in admin.
func AdminDashboard(site Site, posts []content.Post, csrfToken string) templ.Component {
	return render("admin_dashboard.html", page{
		Site:      site,
		Meta:      pageMeta(site, "Admin - "+site.Name, "", ""),
		Posts:     posts,
		IsAdmin:   true,
		CSRFToken: csrfToken,
	})
}

// AdminEditor renders the post editor. A nil post renders an empty form for
// a new post.
func AdminEditor(site Site, post *content.Post, csrfToken string) templ.Component {
	title := "New Post - " + site.Name
	if post != nil {
		title = "Edit " + post.Title + " - " + site.Name
	}
	return render("admin_editor.html", page{
		Site:      site,
		Meta:      pageMeta(site, title, "", ""),
		Post:      post,
		IsAdmin:   true,
		CSRFToken: csrfToken,
	})
}
