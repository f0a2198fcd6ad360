package pubsite

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/eringen/pubsite/content"
)

const (
	msgRequiredFields = "Title, slug, and content are required"
	msgInvalidSlug    = "Slug may only contain lowercase letters, numbers and hyphens"
	msgSlugTaken      = "A blog with this slug already exists"
	msgBlogNotFound   = "Blog not found"
)

type createBlogRequest struct {
	Title            string  `json:"title"`
	Slug             string  `json:"slug"`
	Content          string  `json:"content"`
	ShortDescription *string `json:"short_description"`
	CoverImage       *string `json:"cover_image"`
}

type updateBlogRequest struct {
	Title            *string                `json:"title"`
	Content          *string                `json:"content"`
	ShortDescription content.NullableString `json:"short_description"`
	CoverImage       content.NullableString `json:"cover_image"`
	NewSlug          *string                `json:"new_slug"`
}

func (a *App) handleListBlogs(c echo.Context) error {
	posts, err := a.Store.ListPosts(c.Request().Context())
	if err != nil {
		c.Logger().Errorf("list blogs: %v", err)
		return c.JSON(http.StatusInternalServerError, errorBody(err.Error()))
	}
	return c.JSON(http.StatusOK, map[string]any{"blogs": posts})
}

func (a *App) handleGetBlog(c echo.Context) error {
	post, err := a.Store.GetPost(c.Request().Context(), c.Param("slug"))
	if err != nil {
		return a.contentError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"blog": post})
}

func (a *App) handleCreateBlog(c echo.Context) error {
	var req createBlogRequest
	if err := decodeJSON(c, &req); err != nil {
		return c.JSON(http.StatusBadRequest, errorBody("Invalid request body"))
	}
	title := strings.TrimSpace(req.Title)
	slug := strings.TrimSpace(req.Slug)
	if title == "" || slug == "" || strings.TrimSpace(req.Content) == "" {
		return c.JSON(http.StatusBadRequest, errorBody(msgRequiredFields))
	}
	if !ValidSlug(slug) {
		return c.JSON(http.StatusBadRequest, errorBody(msgInvalidSlug))
	}

	post, err := a.Store.CreatePost(c.Request().Context(), content.Post{
		Title:            title,
		Slug:             slug,
		Content:          req.Content,
		ShortDescription: req.ShortDescription,
		CoverImage:       req.CoverImage,
	})
	if err != nil {
		a.metrics.postWrites.WithLabelValues("create", "error").Inc()
		return a.contentError(c, err)
	}
	a.Cache.Invalidate()
	a.metrics.postWrites.WithLabelValues("create", "ok").Inc()
	return c.JSON(http.StatusCreated, map[string]any{"blog": post})
}

func (a *App) handleUpdateBlog(c echo.Context) error {
	var req updateBlogRequest
	if err := decodeJSON(c, &req); err != nil {
		return c.JSON(http.StatusBadRequest, errorBody("Invalid request body"))
	}
	if req.NewSlug != nil {
		trimmed := strings.TrimSpace(*req.NewSlug)
		if trimmed != "" && !ValidSlug(trimmed) {
			return c.JSON(http.StatusBadRequest, errorBody(msgInvalidSlug))
		}
		req.NewSlug = &trimmed
	}

	post, err := a.Store.UpdatePost(c.Request().Context(), c.Param("slug"), content.Patch{
		Title:            req.Title,
		Content:          req.Content,
		ShortDescription: req.ShortDescription,
		CoverImage:       req.CoverImage,
		NewSlug:          req.NewSlug,
	})
	if err != nil {
		a.metrics.postWrites.WithLabelValues("update", "error").Inc()
		return a.contentError(c, err)
	}
	a.Cache.Invalidate()
	a.metrics.postWrites.WithLabelValues("update", "ok").Inc()
	return c.JSON(http.StatusOK, map[string]any{"blog": post})
}

func (a *App) handleDeleteBlog(c echo.Context) error {
	if err := a.Store.DeletePost(c.Request().Context(), c.Param("slug")); err != nil {
		a.metrics.postWrites.WithLabelValues("delete", "error").Inc()
		return a.contentError(c, err)
	}
	a.Cache.Invalidate()
	a.metrics.postWrites.WithLabelValues("delete", "ok").Inc()
	return c.JSON(http.StatusOK, map[string]string{"message": "Blog deleted successfully"})
}

// contentError maps store errors to API responses.
func (a *App) contentError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, content.ErrNotFound):
		return c.JSON(http.StatusNotFound, errorBody(msgBlogNotFound))
	case errors.Is(err, content.ErrSlugTaken):
		return c.JSON(http.StatusConflict, errorBody(msgSlugTaken))
	}
	c.Logger().Errorf("%s %s: %v", c.Request().Method, c.Request().URL.Path, err)
	return c.JSON(http.StatusInternalServerError, errorBody(err.Error()))
}
