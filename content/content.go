// Package content persists blog posts and uploaded asset metadata.
//
// Two backends share one SQL implementation: SQLite (modernc.org/sqlite) for
// local development and tests, and Postgres (pgx) for the hosted database.
package content

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/eringen/pubsite/assets"
)

var (
	// ErrNotFound is returned when no post matches the requested slug.
	ErrNotFound = errors.New("content: post not found")
	// ErrSlugTaken is returned when a create or rename collides with an existing slug.
	ErrSlugTaken = errors.New("content: slug already exists")
)

// Post is a blog post as stored in the blogs table.
type Post struct {
	ID               string    `json:"id"`
	Title            string    `json:"title"`
	Slug             string    `json:"slug"`
	Content          string    `json:"content"`
	ShortDescription *string   `json:"short_description"`
	CoverImage       *string   `json:"cover_image"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// Description returns the short description or "" when it is unset.
func (p Post) Description() string {
	if p.ShortDescription == nil {
		return ""
	}
	return *p.ShortDescription
}

// Cover returns the cover image URL or "" when it is unset.
func (p Post) Cover() string {
	if p.CoverImage == nil {
		return ""
	}
	return *p.CoverImage
}

// NullableString is a JSON field that distinguishes "omitted" from an
// explicit value. Set is true whenever the key was present in the payload;
// Value is nil for an explicit null.
type NullableString struct {
	Set   bool
	Value *string
}

// UnmarshalJSON implements json.Unmarshaler. It only runs for keys that are
// present, which is what marks the field as Set.
func (n *NullableString) UnmarshalJSON(b []byte) error {
	n.Set = true
	if string(b) == "null" {
		n.Value = nil
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	n.Value = &s
	return nil
}

// Clear returns a NullableString that clears the field.
func Clear() NullableString {
	return NullableString{Set: true}
}

// Replace returns a NullableString that sets the field to s.
func Replace(s string) NullableString {
	return NullableString{Set: true, Value: &s}
}

// Patch is a partial update of a post.
//
// Title, Content and NewSlug are left unchanged when nil, empty or only
// whitespace.
// ShortDescription and CoverImage are left unchanged when not Set; a Set
// field with a nil or empty Value clears the column.
type Patch struct {
	Title            *string
	Content          *string
	ShortDescription NullableString
	CoverImage       NullableString
	NewSlug          *string
}

// normalized applies the merge rules so the SQL layer only sees nil
// (unchanged) or a concrete value.
func (p Patch) normalized() Patch {
	out := Patch{
		Title:            nonEmpty(p.Title),
		Content:          nonEmpty(p.Content),
		NewSlug:          nonEmpty(p.NewSlug),
		ShortDescription: p.ShortDescription,
		CoverImage:       p.CoverImage,
	}
	if out.ShortDescription.Set {
		out.ShortDescription.Value = nonEmpty(out.ShortDescription.Value)
	}
	if out.CoverImage.Set {
		out.CoverImage.Value = nonEmpty(out.CoverImage.Value)
	}
	return out
}

// Empty reports whether applying the patch would change nothing but updated_at.
func (p Patch) Empty() bool {
	n := p.normalized()
	return n.Title == nil && n.Content == nil && n.NewSlug == nil &&
		!n.ShortDescription.Set && !n.CoverImage.Set
}

func nonEmpty(s *string) *string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil
	}
	return s
}

// Store is the content repository used by the HTTP layer. Callers are
// responsible for authorization.
type Store interface {
	ListPosts(ctx context.Context) ([]Post, error)
	GetPost(ctx context.Context, slug string) (Post, error)
	CreatePost(ctx context.Context, p Post) (Post, error)
	UpdatePost(ctx context.Context, slug string, patch Patch) (Post, error)
	DeletePost(ctx context.Context, slug string) error

	SaveAsset(ctx context.Context, a assets.Asset) error
	ListAssets(ctx context.Context) ([]assets.Asset, error)

	Migrate(ctx context.Context) error
	Close() error
}

// Open connects to the store described by dsn. postgres:// and
// postgresql:// URLs use Postgres; anything else is treated as a SQLite path.
func Open(ctx context.Context, dsn string) (Store, error) {
	if isPostgresDSN(dsn) {
		return OpenPostgres(ctx, dsn)
	}
	return OpenSQLite(ctx, dsn)
}

func isPostgresDSN(dsn string) bool {
	return strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://")
}
