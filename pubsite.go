// Package pubsite is a marketing site with a small blog CMS built with Go,
// Echo and templ. It serves a landing page, a public blog, a password-gated
// admin interface for managing posts, and image uploads to object storage.
package pubsite

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"time"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/eringen/pubsite/assets"
	"github.com/eringen/pubsite/content"
)

const (
	loginMaxAttempts = 5
	loginWindow      = time.Minute
	uploadBodyLimit  = "16M"
)

// App wires together the content store, asset uploader, cache, handlers and
// middleware.
type App struct {
	Config SiteConfig
	Echo   *echo.Echo
	Store  content.Store
	Cache  *PostCache
	Assets *assets.Uploader

	bucket       assets.Bucket
	loginLimiter LoginLimiter
	redis        *redis.Client
	registry     *prometheus.Registry
	metrics      *siteMetrics
	customRoutes []func(*App)
	ownsStore    bool
}

// New creates an App with the given configuration. Call Setup before
// serving requests.
func New(cfg SiteConfig, opts ...Option) *App {
	cfg.setDefaults()

	e := echo.New()
	e.HideBanner = true
	if cfg.Production() {
		e.Logger.SetLevel(log.INFO)
	} else {
		e.Logger.SetLevel(log.DEBUG)
	}

	a := &App{
		Config: cfg,
		Echo:   e,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Setup opens the store and storage bucket (unless supplied as options),
// then registers middleware and routes.
func (a *App) Setup(ctx context.Context) error {
	if a.Config.SessionSecret == "" {
		return errors.New("pubsite: SessionSecret is required")
	}
	if !a.Config.PasswordConfigured() {
		a.Echo.Logger.Warn("admin password is not configured; login will fail until ADMIN_PASSWORD or ADMIN_PASSWORD_HASH is set")
	}

	if a.Store == nil {
		store, err := content.Open(ctx, a.Config.DatabaseURL)
		if err != nil {
			return fmt.Errorf("pubsite: init store: %w", err)
		}
		a.Store = store
		a.ownsStore = true
	}

	a.Cache = NewPostCache(a.Store, a.Config.PostCacheTTL)

	if a.bucket == nil {
		a.bucket = a.configuredBucket()
	}
	a.Assets = assets.NewUploader(a.bucket, a.Store)

	if a.loginLimiter == nil {
		limiter, err := a.configuredLimiter(ctx)
		if err != nil {
			return fmt.Errorf("pubsite: init login limiter: %w", err)
		}
		a.loginLimiter = limiter
	}

	a.registry = prometheus.NewRegistry()
	a.metrics = newSiteMetrics(a.registry)

	a.setupMiddleware()
	a.setupRoutes()
	for _, fn := range a.customRoutes {
		fn(a)
	}
	return nil
}

func (a *App) configuredBucket() assets.Bucket {
	if a.Config.StorageURL != "" {
		return assets.NewSupabaseBucket(a.Config.StorageURL, a.Config.StorageServiceKey, a.Config.StorageBucket, nil)
	}
	return assets.NewLocalBucket(a.Config.UploadsDir, "/uploads")
}

func (a *App) configuredLimiter(ctx context.Context) (LoginLimiter, error) {
	if a.Config.RedisURL == "" {
		return NewLoginLimiter(loginMaxAttempts, loginWindow), nil
	}
	opts, err := redis.ParseURL(a.Config.RedisURL)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, err
	}
	a.redis = client
	return NewRedisLoginLimiter(client, loginMaxAttempts, loginWindow), nil
}

// Start runs the HTTP server until it is shut down.
func (a *App) Start() error {
	a.Echo.Logger.Infof("listening on %s", a.Config.Addr)
	if err := a.Echo.Start(a.Config.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops the server gracefully and releases resources.
func (a *App) Shutdown(ctx context.Context) error {
	err := a.Echo.Shutdown(ctx)
	if cerr := a.Close(); err == nil {
		err = cerr
	}
	return err
}

// Close releases resources opened by Setup.
func (a *App) Close() error {
	if l, ok := a.loginLimiter.(interface{ Stop() }); ok {
		l.Stop()
	}
	if a.redis != nil {
		a.redis.Close()
	}
	if a.ownsStore && a.Store != nil {
		return a.Store.Close()
	}
	return nil
}

func (a *App) setupRoutes() {
	e := a.Echo

	embeddedFS, _ := fs.Sub(EmbeddedAssets, "embedded")
	e.StaticFS("/public", embeddedFS)
	if local, ok := a.bucket.(*assets.LocalBucket); ok {
		e.Static("/uploads", local.Dir())
	}
	e.GET("/robots.txt", a.handleRobots)
	e.GET("/sitemap.xml", a.handleSitemap)
	e.GET("/feed.xml", a.handleFeed)

	// Public pages
	e.GET("/", a.handleHome)
	e.GET("/blogs", a.handleBlogList)
	e.GET("/blogs/:slug", a.handleBlogDetail)
	e.GET("/blog", handleBlogRedirect)
	e.GET("/blog/:slug", handleBlogRedirect)

	// Admin pages
	e.GET("/admin", a.handleAdmin)
	e.GET("/admin/new", a.handleAdminNew, requireAdminPage)
	e.GET("/admin/edit/:slug", a.handleAdminEdit, requireAdminPage)

	// JSON API
	api := e.Group("/api")
	api.GET("/auth/check", handleAuthCheck)
	api.POST("/auth/login", a.handleLogin)
	api.POST("/auth/logout", handleLogout)

	api.GET("/blogs", a.handleListBlogs)
	api.GET("/blogs/:slug", a.handleGetBlog)
	api.POST("/blogs", a.handleCreateBlog, requireAdmin)
	api.PUT("/blogs/:slug", a.handleUpdateBlog, requireAdmin)
	api.DELETE("/blogs/:slug", a.handleDeleteBlog, requireAdmin)

	api.POST("/upload", a.handleUpload, requireAdmin, middleware.BodyLimit(uploadBodyLimit))
	api.GET("/assets", a.handleListAssets, requireAdmin)

	if a.Config.MetricsEnabled {
		e.GET("/metrics", echoprometheus.NewHandlerWithConfig(echoprometheus.HandlerConfig{Gatherer: a.registry}))
	}
}
