package content_test

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"

	"github.com/eringen/pubsite/assets"
	"github.com/eringen/pubsite/content"
)

func newTestStore(c *qt.C) *content.SQLStore {
	c.Helper()
	s, err := content.OpenSQLite(context.Background(), filepath.Join(c.TempDir(), "site.db"))
	c.Assert(err, qt.IsNil)
	c.Cleanup(func() { s.Close() })
	return s
}

func strPtr(s string) *string { return &s }

func TestCreateAndGetPost(t *testing.T) {
	c := qt.New(t)
	s := newTestStore(c)
	ctx := context.Background()

	created, err := s.CreatePost(ctx, content.Post{
		Title:            "Hello World",
		Slug:             "hello-world",
		Content:          "<p>Hi</p>",
		ShortDescription: strPtr("Intro"),
	})
	c.Assert(err, qt.IsNil)
	c.Assert(created.ID, qt.Not(qt.Equals), "")
	c.Assert(created.CreatedAt.IsZero(), qt.IsFalse)
	c.Assert(created.UpdatedAt, qt.Equals, created.CreatedAt)
	c.Assert(created.CoverImage, qt.IsNil)

	got, err := s.GetPost(ctx, "hello-world")
	c.Assert(err, qt.IsNil)
	c.Assert(got, qt.DeepEquals, created)
	c.Assert(got.Description(), qt.Equals, "Intro")
}

func TestCreatePostStoresEmptyOptionalFieldsAsNull(t *testing.T) {
	c := qt.New(t)
	s := newTestStore(c)

	p, err := s.CreatePost(context.Background(), content.Post{
		Title:            "T",
		Slug:             "t",
		Content:          "c",
		ShortDescription: strPtr(""),
		CoverImage:       strPtr("  "),
	})
	c.Assert(err, qt.IsNil)
	c.Assert(p.ShortDescription, qt.IsNil)
	c.Assert(p.CoverImage, qt.IsNil)
}

func TestGetPostNotFound(t *testing.T) {
	c := qt.New(t)
	s := newTestStore(c)

	_, err := s.GetPost(context.Background(), "missing")
	c.Assert(err, qt.ErrorIs, content.ErrNotFound)
}

func TestCreatePostDuplicateSlug(t *testing.T) {
	c := qt.New(t)
	s := newTestStore(c)
	ctx := context.Background()

	_, err := s.CreatePost(ctx, content.Post{Title: "A", Slug: "same", Content: "a"})
	c.Assert(err, qt.IsNil)
	_, err = s.CreatePost(ctx, content.Post{Title: "B", Slug: "same", Content: "b"})
	c.Assert(err, qt.ErrorIs, content.ErrSlugTaken)

	posts, err := s.ListPosts(ctx)
	c.Assert(err, qt.IsNil)
	c.Assert(posts, qt.HasLen, 1)
	c.Assert(posts[0].Title, qt.Equals, "A")
}

func TestListPostsNewestFirst(t *testing.T) {
	c := qt.New(t)
	s := newTestStore(c)
	ctx := context.Background()

	empty, err := s.ListPosts(ctx)
	c.Assert(err, qt.IsNil)
	c.Assert(empty, qt.IsNotNil)
	c.Assert(empty, qt.HasLen, 0)

	for _, slug := range []string{"first", "second", "third"} {
		_, err := s.CreatePost(ctx, content.Post{Title: slug, Slug: slug, Content: slug})
		c.Assert(err, qt.IsNil)
		time.Sleep(2 * time.Millisecond)
	}

	posts, err := s.ListPosts(ctx)
	c.Assert(err, qt.IsNil)
	c.Assert(posts, qt.HasLen, 3)
	c.Assert(posts[0].Slug, qt.Equals, "third")
	c.Assert(posts[2].Slug, qt.Equals, "first")
}

func TestUpdatePostMergesFields(t *testing.T) {
	c := qt.New(t)
	s := newTestStore(c)
	ctx := context.Background()

	orig, err := s.CreatePost(ctx, content.Post{
		Title:            "Original",
		Slug:             "original",
		Content:          "body",
		ShortDescription: strPtr("desc"),
		CoverImage:       strPtr("https://cdn.example.com/a.png"),
	})
	c.Assert(err, qt.IsNil)
	time.Sleep(2 * time.Millisecond)

	updated, err := s.UpdatePost(ctx, "original", content.Patch{
		Title:            strPtr("Renamed"),
		Content:          strPtr(""),
		ShortDescription: content.Clear(),
	})
	c.Assert(err, qt.IsNil)
	c.Assert(updated.Title, qt.Equals, "Renamed")
	c.Assert(updated.Content, qt.Equals, "body")
	c.Assert(updated.ShortDescription, qt.IsNil)
	c.Assert(updated.Cover(), qt.Equals, "https://cdn.example.com/a.png")
	c.Assert(updated.ID, qt.Equals, orig.ID)
	c.Assert(updated.CreatedAt, qt.Equals, orig.CreatedAt)
	c.Assert(updated.UpdatedAt.After(orig.UpdatedAt), qt.IsTrue)
}

func TestUpdatePostIgnoresBlankRequiredFields(t *testing.T) {
	c := qt.New(t)
	s := newTestStore(c)
	ctx := context.Background()

	_, err := s.CreatePost(ctx, content.Post{Title: "Kept", Slug: "kept", Content: "<p>kept</p>"})
	c.Assert(err, qt.IsNil)

	updated, err := s.UpdatePost(ctx, "kept", content.Patch{
		Title:   strPtr("   "),
		Content: strPtr("\n\t"),
		NewSlug: strPtr(" "),
	})
	c.Assert(err, qt.IsNil)
	c.Assert(updated.Title, qt.Equals, "Kept")
	c.Assert(updated.Content, qt.Equals, "<p>kept</p>")
	c.Assert(updated.Slug, qt.Equals, "kept")
}

func TestUpdatePostRename(t *testing.T) {
	c := qt.New(t)
	s := newTestStore(c)
	ctx := context.Background()

	_, err := s.CreatePost(ctx, content.Post{Title: "Old", Slug: "old-slug", Content: "x"})
	c.Assert(err, qt.IsNil)

	p, err := s.UpdatePost(ctx, "old-slug", content.Patch{NewSlug: strPtr("new-slug")})
	c.Assert(err, qt.IsNil)
	c.Assert(p.Slug, qt.Equals, "new-slug")

	_, err = s.GetPost(ctx, "old-slug")
	c.Assert(err, qt.ErrorIs, content.ErrNotFound)
	_, err = s.GetPost(ctx, "new-slug")
	c.Assert(err, qt.IsNil)
}

func TestUpdatePostRenameCollision(t *testing.T) {
	c := qt.New(t)
	s := newTestStore(c)
	ctx := context.Background()

	for _, slug := range []string{"a", "b"} {
		_, err := s.CreatePost(ctx, content.Post{Title: slug, Slug: slug, Content: slug})
		c.Assert(err, qt.IsNil)
	}
	_, err := s.UpdatePost(ctx, "a", content.Patch{NewSlug: strPtr("b")})
	c.Assert(err, qt.ErrorIs, content.ErrSlugTaken)

	a, err := s.GetPost(ctx, "a")
	c.Assert(err, qt.IsNil)
	c.Assert(a.Title, qt.Equals, "a")
}

func TestUpdatePostNotFound(t *testing.T) {
	c := qt.New(t)
	s := newTestStore(c)

	_, err := s.UpdatePost(context.Background(), "ghost", content.Patch{Title: strPtr("x")})
	c.Assert(err, qt.ErrorIs, content.ErrNotFound)
}

func TestDeletePost(t *testing.T) {
	c := qt.New(t)
	s := newTestStore(c)
	ctx := context.Background()

	_, err := s.CreatePost(ctx, content.Post{Title: "Bye", Slug: "bye", Content: "x"})
	c.Assert(err, qt.IsNil)

	c.Assert(s.DeletePost(ctx, "bye"), qt.IsNil)
	_, err = s.GetPost(ctx, "bye")
	c.Assert(err, qt.ErrorIs, content.ErrNotFound)
	c.Assert(s.DeletePost(ctx, "bye"), qt.ErrorIs, content.ErrNotFound)
}

func TestConcurrentCreateSameSlug(t *testing.T) {
	c := qt.New(t)
	s := newTestStore(c)
	ctx := context.Background()

	const n = 8
	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		ok    int
		taken int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.CreatePost(ctx, content.Post{Title: "Race", Slug: "race", Content: "x"})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case errors.Is(err, content.ErrSlugTaken):
				taken++
			}
		}()
	}
	wg.Wait()
	c.Assert(ok, qt.Equals, 1)
	c.Assert(taken, qt.Equals, n-1)
}

func TestSaveAndListAssets(t *testing.T) {
	c := qt.New(t)
	s := newTestStore(c)
	ctx := context.Background()

	older := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	newer := older.Add(time.Hour)
	c.Assert(s.SaveAsset(ctx, assets.Asset{
		Path: "1-a.png", URL: "/uploads/1-a.png", ContentType: "image/png",
		Size: 10, Width: 2, Height: 3, OriginalName: "a.png", UploadedAt: older,
	}), qt.IsNil)
	c.Assert(s.SaveAsset(ctx, assets.Asset{
		Path: "2-b.gif", URL: "/uploads/2-b.gif", ContentType: "image/gif",
		Size: 20, Width: 1, Height: 1, OriginalName: "b.gif", UploadedAt: newer,
	}), qt.IsNil)

	list, err := s.ListAssets(ctx)
	c.Assert(err, qt.IsNil)
	c.Assert(list, qt.HasLen, 2)
	c.Assert(list[0].Path, qt.Equals, "2-b.gif")
	c.Assert(list[0].UploadedAt, qt.Equals, newer)
	c.Assert(list[1].Width, qt.Equals, 2)
}

func TestOpenDispatchesOnDSN(t *testing.T) {
	c := qt.New(t)
	st, err := content.Open(context.Background(), filepath.Join(c.TempDir(), "nested", "site.db"))
	c.Assert(err, qt.IsNil)
	defer st.Close()
	c.Assert(st.Migrate(context.Background()), qt.IsNil)
}
