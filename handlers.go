package pubsite

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/eringen/pubsite/content"
	"github.com/eringen/pubsite/views"
)

const landingPostCount = 3

// Public pages never fail because of the store: a broken database shows an
// empty listing rather than an error page.

func (a *App) handleHome(c echo.Context) error {
	posts, err := a.Cache.Latest(c.Request().Context(), landingPostCount)
	if err != nil {
		c.Logger().Errorf("landing: list posts: %v", err)
		posts = nil
	}
	return Render(c, views.Landing(a.site(), posts))
}

func (a *App) handleBlogList(c echo.Context) error {
	posts, err := a.Cache.ListPosts(c.Request().Context())
	if err != nil {
		c.Logger().Errorf("blogs: list posts: %v", err)
		posts = nil
	}
	return Render(c, views.BlogList(a.site(), posts))
}

func (a *App) handleBlogDetail(c echo.Context) error {
	post, err := a.Cache.GetPost(c.Request().Context(), c.Param("slug"))
	if err != nil {
		if !errors.Is(err, content.ErrNotFound) {
			c.Logger().Errorf("blog %q: %v", c.Param("slug"), err)
		}
		return RenderStatus(c, http.StatusNotFound, views.NotFound(a.site()))
	}
	return Render(c, views.BlogPost(a.site(), post))
}

// handleBlogRedirect sends the legacy /blog paths to /blogs.
func handleBlogRedirect(c echo.Context) error {
	target := "/blogs"
	if slug := c.Param("slug"); slug != "" {
		target += "/" + slug
	}
	return c.Redirect(http.StatusMovedPermanently, target)
}

func (a *App) handleSitemap(c echo.Context) error {
	posts, err := a.Cache.ListPosts(c.Request().Context())
	if err != nil {
		return err
	}
	return a.renderSitemap(c, posts)
}

func (a *App) handleFeed(c echo.Context) error {
	posts, err := a.Cache.ListPosts(c.Request().Context())
	if err != nil {
		return err
	}
	return a.renderRSS(c, posts)
}

func (a *App) handleRobots(c echo.Context) error {
	var b strings.Builder
	b.WriteString("User-agent: *\n")
	b.WriteString("Allow: /\n")
	b.WriteString("Disallow: /admin\n")
	b.WriteString("Disallow: /api/\n")
	b.WriteString("Sitemap: " + BuildURL(a.Config.URL, "sitemap.xml") + "\n")
	return c.String(http.StatusOK, b.String())
}

// httpErrorHandler answers API requests with JSON and everything else with
// an HTML page.
func (a *App) httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	code := http.StatusInternalServerError
	msg := http.StatusText(code)
	var he *echo.HTTPError
	if errors.As(err, &he) {
		code = he.Code
		if m, ok := he.Message.(string); ok {
			msg = m
		} else {
			msg = http.StatusText(code)
		}
	}
	if code >= 500 {
		c.Logger().Errorf("server error: %v", err)
	}

	if strings.HasPrefix(c.Request().URL.Path, "/api/") {
		if code >= 500 && he == nil {
			msg = err.Error()
		}
		_ = c.JSON(code, errorBody(msg))
		return
	}
	if c.Request().Method == http.MethodHead {
		_ = c.NoContent(code)
		return
	}
	switch {
	case code == http.StatusNotFound:
		_ = RenderStatus(c, code, views.NotFound(a.site()))
	case code >= 500:
		_ = RenderStatus(c, code, views.ServerError(a.site()))
	default:
		a.Echo.DefaultHTTPErrorHandler(err, c)
	}
}
