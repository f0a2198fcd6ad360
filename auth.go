package pubsite

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"golang.org/x/crypto/bcrypt"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (a *App) handleLogin(c echo.Context) error {
	if !a.Config.PasswordConfigured() {
		return c.JSON(http.StatusInternalServerError, errorBody("Admin password not configured"))
	}

	ctx := c.Request().Context()
	ip := c.RealIP()
	if !a.loginLimiter.Check(ctx, ip) {
		a.metrics.logins.WithLabelValues("limited").Inc()
		return c.JSON(http.StatusTooManyRequests, errorBody("Too many login attempts. Try again later."))
	}

	var req loginRequest
	if err := decodeJSON(c, &req); err != nil {
		return c.JSON(http.StatusBadRequest, errorBody("Invalid request body"))
	}

	if !a.checkCredentials(req.Username, req.Password) {
		a.loginLimiter.Record(ctx, ip)
		a.metrics.logins.WithLabelValues("failure").Inc()
		return c.JSON(http.StatusUnauthorized, errorBody("Invalid credentials"))
	}

	if err := setAdminSession(c, req.Username); err != nil {
		return err
	}
	a.metrics.logins.WithLabelValues("success").Inc()
	return c.JSON(http.StatusOK, map[string]any{"success": true, "message": "Login successful"})
}

// checkCredentials compares both fields without short-circuiting so the
// response time does not reveal which one was wrong.
func (a *App) checkCredentials(username, password string) bool {
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(a.Config.AdminUsername)) == 1
	var passOK bool
	if a.Config.AdminPasswordHash != "" {
		passOK = bcrypt.CompareHashAndPassword([]byte(a.Config.AdminPasswordHash), []byte(password)) == nil
	} else {
		passOK = subtle.ConstantTimeCompare([]byte(password), []byte(a.Config.AdminPassword)) == 1
	}
	return userOK && passOK
}

func handleAuthCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]bool{"authenticated": IsAdmin(c)})
}

func handleLogout(c echo.Context) error {
	if err := clearAdminSession(c); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{"success": true, "message": "Logged out"})
}

func errorBody(msg string) map[string]string {
	return map[string]string{"error": msg}
}

// decodeJSON decodes the request body into v. Unlike echo's binder it leaves
// path parameters alone and keeps json.Unmarshaler fields intact.
func decodeJSON(c echo.Context, v any) error {
	if c.Request().Body == nil {
		return errors.New("empty body")
	}
	return json.NewDecoder(c.Request().Body).Decode(v)
}
