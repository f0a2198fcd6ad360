package views

import (
	"html/template"

	"github.com/eringen/pubsite/content"
)

// Site holds site-wide settings that every page renders.
type Site struct {
	Name        string
	URL         string
	Description string
}

// PageMeta carries per-page OpenGraph and SEO metadata into the <head> template.
type PageMeta struct {
	Title       string
	Description string
	URL         string // canonical + og:url
	OGType      string // "website" or "article"
	Image       string // og:image, optional
}

// page is the data every template receives.
type page struct {
	Site    Site
	Meta    PageMeta
	JSONLD  template.JS
	Posts   []content.Post
	Post    *content.Post
	IsAdmin bool
	// CSRFToken is emitted as a meta tag for the admin script.
	CSRFToken string
}
