package pubsite

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/eringen/pubsite/assets"
)

func (a *App) handleUpload(c echo.Context) error {
	file, err := c.FormFile("file")
	if err != nil {
		a.metrics.uploads.WithLabelValues("rejected").Inc()
		return c.JSON(http.StatusBadRequest, errorBody("No file provided"))
	}

	src, err := file.Open()
	if err != nil {
		return err
	}
	defer src.Close()

	asset, err := a.Assets.Upload(c.Request().Context(), file.Filename, file.Header.Get(echo.HeaderContentType), file.Size, src)
	if err != nil {
		return a.uploadError(c, err)
	}
	a.metrics.uploads.WithLabelValues("ok").Inc()
	return c.JSON(http.StatusOK, map[string]string{"url": asset.URL, "path": asset.Path})
}

func (a *App) uploadError(c echo.Context, err error) error {
	var verr *assets.ValidationError
	if errors.As(err, &verr) {
		a.metrics.uploads.WithLabelValues("rejected").Inc()
		return c.JSON(http.StatusBadRequest, errorBody(verr.Msg))
	}
	a.metrics.uploads.WithLabelValues("error").Inc()
	c.Logger().Errorf("upload: %v", err)
	if errors.Is(err, assets.ErrBucketNotFound) {
		return c.JSON(http.StatusInternalServerError, errorBody(fmt.Sprintf(
			"Storage bucket not found. Please create a bucket named %q in your storage project.",
			a.bucket.Name())))
	}
	return c.JSON(http.StatusInternalServerError, errorBody(err.Error()))
}

func (a *App) handleListAssets(c echo.Context) error {
	list, err := a.Store.ListAssets(c.Request().Context())
	if err != nil {
		c.Logger().Errorf("list assets: %v", err)
		return c.JSON(http.StatusInternalServerError, errorBody(err.Error()))
	}
	return c.JSON(http.StatusOK, map[string]any{"assets": list})
}
