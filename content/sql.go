package content

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/eringen/pubsite/assets"
)

// dialect captures what differs between the SQLite and Postgres backends.
type dialect struct {
	name         string
	schema       string
	idColumn     string
	placeholders func(query string) string
	timeArg      func(t time.Time) any
	uniqueErr    func(err error) bool
}

// SQLStore implements Store on top of database/sql.
type SQLStore struct {
	db *sql.DB
	d  dialect
	// now is replaceable in tests.
	now func() time.Time
}

func newSQLStore(db *sql.DB, d dialect) *SQLStore {
	return &SQLStore{db: db, d: d, now: func() time.Time { return time.Now().UTC() }}
}

// Close closes the underlying database connection.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

// Migrate creates the blogs and assets tables if they don't exist.
func (s *SQLStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, s.d.schema); err != nil {
		return fmt.Errorf("%s: ensure schema: %w", s.d.name, err)
	}
	return nil
}

func (s *SQLStore) postColumns() string {
	return s.d.idColumn + ", title, slug, content, short_description, cover_image, created_at, updated_at"
}

func (s *SQLStore) q(query string) string {
	return s.d.placeholders(query)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPost(r rowScanner) (Post, error) {
	var (
		p                 Post
		desc, cover       sql.NullString
		created, modified dbTime
	)
	if err := r.Scan(&p.ID, &p.Title, &p.Slug, &p.Content, &desc, &cover, &created, &modified); err != nil {
		return Post{}, err
	}
	if desc.Valid {
		p.ShortDescription = &desc.String
	}
	if cover.Valid {
		p.CoverImage = &cover.String
	}
	p.CreatedAt = created.Time
	p.UpdatedAt = modified.Time
	return p, nil
}

// ListPosts returns every post ordered by creation time, newest first.
func (s *SQLStore) ListPosts(ctx context.Context) ([]Post, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+s.postColumns()+` FROM blogs ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	defer rows.Close()

	posts := []Post{}
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("scan post: %w", err)
		}
		posts = append(posts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	return posts, nil
}

// GetPost returns the post with the given slug or ErrNotFound.
func (s *SQLStore) GetPost(ctx context.Context, slug string) (Post, error) {
	row := s.db.QueryRowContext(ctx, s.q(`SELECT `+s.postColumns()+` FROM blogs WHERE slug = ?`), slug)
	p, err := scanPost(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Post{}, ErrNotFound
	}
	if err != nil {
		return Post{}, fmt.Errorf("get post %q: %w", slug, err)
	}
	return p, nil
}

// CreatePost inserts p with a fresh ID and timestamps. Empty description or
// cover image values are stored as NULL.
func (s *SQLStore) CreatePost(ctx context.Context, p Post) (Post, error) {
	now := s.now()
	row := s.db.QueryRowContext(ctx, s.q(`INSERT INTO blogs (id, title, slug, content, short_description, cover_image, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
RETURNING `+s.postColumns()),
		uuid.NewString(), p.Title, p.Slug, p.Content,
		nullable(nonEmpty(p.ShortDescription)), nullable(nonEmpty(p.CoverImage)),
		s.d.timeArg(now), s.d.timeArg(now),
	)
	created, err := scanPost(row)
	if err != nil {
		if s.d.uniqueErr(err) {
			return Post{}, ErrSlugTaken
		}
		return Post{}, fmt.Errorf("create post %q: %w", p.Slug, err)
	}
	return created, nil
}

// UpdatePost applies patch to the post identified by slug in a single
// conditional statement, so a concurrent rename or delete is observed as
// ErrNotFound rather than a lost update.
func (s *SQLStore) UpdatePost(ctx context.Context, slug string, patch Patch) (Post, error) {
	n := patch.normalized()
	row := s.db.QueryRowContext(ctx, s.q(`UPDATE blogs SET
    title = COALESCE(?, title),
    content = COALESCE(?, content),
    short_description = CASE WHEN ? THEN ? ELSE short_description END,
    cover_image = CASE WHEN ? THEN ? ELSE cover_image END,
    slug = COALESCE(?, slug),
    updated_at = ?
WHERE slug = ?
RETURNING `+s.postColumns()),
		nullable(n.Title), nullable(n.Content),
		n.ShortDescription.Set, nullable(n.ShortDescription.Value),
		n.CoverImage.Set, nullable(n.CoverImage.Value),
		nullable(n.NewSlug),
		s.d.timeArg(s.now()),
		slug,
	)
	updated, err := scanPost(row)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return Post{}, ErrNotFound
	case err != nil && s.d.uniqueErr(err):
		return Post{}, ErrSlugTaken
	case err != nil:
		return Post{}, fmt.Errorf("update post %q: %w", slug, err)
	}
	return updated, nil
}

// DeletePost removes a post by slug. Deleting an unknown slug reports ErrNotFound.
func (s *SQLStore) DeletePost(ctx context.Context, slug string) error {
	res, err := s.db.ExecContext(ctx, s.q(`DELETE FROM blogs WHERE slug = ?`), slug)
	if err != nil {
		return fmt.Errorf("delete post %q: %w", slug, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete post %q: %w", slug, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// SaveAsset records metadata for an uploaded object.
func (s *SQLStore) SaveAsset(ctx context.Context, a assets.Asset) error {
	_, err := s.db.ExecContext(ctx, s.q(`INSERT INTO assets (path, url, content_type, size, width, height, original_name, uploaded_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`),
		a.Path, a.URL, a.ContentType, a.Size, a.Width, a.Height, a.OriginalName, s.d.timeArg(a.UploadedAt.UTC()),
	)
	if err != nil {
		return fmt.Errorf("save asset %q: %w", a.Path, err)
	}
	return nil
}

// ListAssets returns all recorded assets, newest first.
func (s *SQLStore) ListAssets(ctx context.Context) ([]assets.Asset, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT path, url, content_type, size, width, height, original_name, uploaded_at FROM assets ORDER BY uploaded_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list assets: %w", err)
	}
	defer rows.Close()

	list := []assets.Asset{}
	for rows.Next() {
		var (
			a  assets.Asset
			at dbTime
		)
		if err := rows.Scan(&a.Path, &a.URL, &a.ContentType, &a.Size, &a.Width, &a.Height, &a.OriginalName, &at); err != nil {
			return nil, fmt.Errorf("scan asset: %w", err)
		}
		a.UploadedAt = at.Time
		list = append(list, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list assets: %w", err)
	}
	return list, nil
}

func nullable(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

// questionMarks leaves ? placeholders as they are.
func questionMarks(query string) string {
	return query
}

// dollarNumbers rewrites ? placeholders to $1, $2, ... in order.
func dollarNumbers(query string) string {
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}

// dbTime scans timestamps stored either natively (Postgres) or as Unix
// nanoseconds (SQLite).
type dbTime struct {
	Time time.Time
}

func (t *dbTime) Scan(src any) error {
	switch v := src.(type) {
	case time.Time:
		t.Time = v.UTC()
	case int64:
		t.Time = time.Unix(0, v).UTC()
	case []byte:
		return t.parse(string(v))
	case string:
		return t.parse(v)
	case nil:
		t.Time = time.Time{}
	default:
		return fmt.Errorf("unsupported timestamp type %T", src)
	}
	return nil
}

func (t *dbTime) parse(s string) error {
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		t.Time = time.Unix(0, n).UTC()
		return nil
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02 15:04:05.999999999-07:00", "2006-01-02 15:04:05"} {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed.UTC()
			return nil
		}
	}
	return fmt.Errorf("unparseable timestamp %q", s)
}
