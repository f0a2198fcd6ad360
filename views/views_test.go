package views

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/a-h/templ"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eringen/pubsite/content"
)

var testSite = Site{Name: "Example", URL: "https://example.com", Description: "Ground networks."}

func renderString(t *testing.T, c templ.Component) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, c.Render(context.Background(), &buf))
	return buf.String()
}

func strPtr(s string) *string { return &s }

func samplePost() content.Post {
	created := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	return content.Post{
		ID:               "1",
		Title:            `Signals & "Noise"`,
		Slug:             "signals-and-noise",
		Content:          "<p>Phased <em>arrays</em></p>",
		ShortDescription: strPtr("Why <b>ground</b> matters"),
		CoverImage:       strPtr("https://cdn.example.com/cover.png"),
		CreatedAt:        created,
		UpdatedAt:        created.Add(48 * time.Hour),
	}
}

func TestBlogPostRendersContentAndEscapesFields(t *testing.T) {
	out := renderString(t, BlogPost(testSite, samplePost()))

	assert.Contains(t, out, "<p>Phased <em>arrays</em></p>")
	assert.Contains(t, out, "Signals &amp; &#34;Noise&#34;")
	assert.Contains(t, out, "Why &lt;b&gt;ground&lt;/b&gt; matters")
	assert.Contains(t, out, `<link rel="canonical" href="https://example.com/blogs/signals-and-noise">`)
	assert.Contains(t, out, `<meta property="og:type" content="article">`)
	assert.Contains(t, out, "March 1, 2025")
	assert.Contains(t, out, "Updated March 3, 2025")
}

func TestBlogListEmpty(t *testing.T) {
	out := renderString(t, BlogList(testSite, nil))
	assert.Contains(t, out, "No blog posts yet")
}

func TestLandingShowsLatestPosts(t *testing.T) {
	out := renderString(t, Landing(testSite, []content.Post{samplePost()}))
	assert.Contains(t, out, `href="/blogs/signals-and-noise"`)
	assert.Contains(t, out, `"@type":"WebSite"`)
}

func TestAdminEditorModes(t *testing.T) {
	empty := renderString(t, AdminEditor(testSite, nil, ""))
	assert.Contains(t, empty, `id="editor"`)
	assert.NotContains(t, empty, "data-slug")

	post := samplePost()
	edit := renderString(t, AdminEditor(testSite, &post, "tok123"))
	assert.Contains(t, edit, `data-slug="signals-and-noise"`)
	assert.Contains(t, edit, `<meta name="csrf-token" content="tok123">`)
	assert.NotContains(t, empty, "csrf-token")
}

func TestBlogPostingJsonLD(t *testing.T) {
	var data map[string]any
	require.NoError(t, json.Unmarshal([]byte(BlogPostingJsonLD(testSite, samplePost())), &data))

	assert.Equal(t, "BlogPosting", data["@type"])
	assert.Equal(t, `Signals & "Noise"`, data["headline"])
	assert.Equal(t, "https://example.com/blogs/signals-and-noise", data["url"])
	assert.Equal(t, "https://cdn.example.com/cover.png", data["image"])
	assert.Equal(t, "2025-03-01T10:00:00Z", data["datePublished"])
}

func TestMarshalJSCannotCloseScript(t *testing.T) {
	js := marshalJS(map[string]string{"x": "</script><script>alert(1)</script>"})
	assert.NotContains(t, string(js), "</script>")
}

func TestFormatDate(t *testing.T) {
	assert.Equal(t, "", FormatDate(time.Time{}))
	assert.Equal(t, "December 25, 2024", FormatDate(time.Date(2024, 12, 25, 0, 0, 0, 0, time.UTC)))
}
