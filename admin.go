package pubsite

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/eringen/pubsite/content"
	"github.com/eringen/pubsite/views"
)

// handleAdmin shows the login form to visitors and the dashboard to admins.
func (a *App) handleAdmin(c echo.Context) error {
	if !IsAdmin(c) {
		return Render(c, views.AdminLogin(a.site(), CsrfToken(c)))
	}
	posts, err := a.Store.ListPosts(c.Request().Context())
	if err != nil {
		return err
	}
	return Render(c, views.AdminDashboard(a.site(), posts, CsrfToken(c)))
}

func (a *App) handleAdminNew(c echo.Context) error {
	return Render(c, views.AdminEditor(a.site(), nil, CsrfToken(c)))
}

func (a *App) handleAdminEdit(c echo.Context) error {
	post, err := a.Store.GetPost(c.Request().Context(), c.Param("slug"))
	if errors.Is(err, content.ErrNotFound) {
		return RenderStatus(c, http.StatusNotFound, views.NotFound(a.site()))
	}
	if err != nil {
		return err
	}
	return Render(c, views.AdminEditor(a.site(), &post, CsrfToken(c)))
}
