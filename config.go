package pubsite

import (
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/gorilla/securecookie"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/eringen/pubsite/assets"
	"github.com/eringen/pubsite/content"
)

// SiteConfig holds all configuration for the site. Fields map to environment
// variables of the same name.
type SiteConfig struct {
	Env         string `mapstructure:"APP_ENV"`          // "production" enables secure cookies and strict checks
	Addr        string `mapstructure:"ADDR"`             // Listen address (default ":3000")
	Name        string `mapstructure:"SITE_NAME"`        // Site name (default "AstraVeda")
	URL         string `mapstructure:"SITE_URL"`         // Canonical URL (default "http://localhost:3000")
	Description string `mapstructure:"SITE_DESCRIPTION"` // Site description for RSS and meta tags

	AdminUsername     string `mapstructure:"ADMIN_USERNAME"`      // default "admin"
	AdminPassword     string `mapstructure:"ADMIN_PASSWORD"`      // plain password, compared in constant time
	AdminPasswordHash string `mapstructure:"ADMIN_PASSWORD_HASH"` // bcrypt hash, preferred over AdminPassword
	SessionSecret     string `mapstructure:"SESSION_SECRET"`      // cookie signing key

	DatabaseURL string `mapstructure:"DATABASE_URL"` // SQLite path or postgres:// URL

	StorageURL        string `mapstructure:"STORAGE_URL"`         // Supabase project URL; empty uses UploadsDir
	StorageServiceKey string `mapstructure:"STORAGE_SERVICE_KEY"` // service role key
	StorageBucket     string `mapstructure:"STORAGE_BUCKET"`      // default "blog-images"
	UploadsDir        string `mapstructure:"UPLOADS_DIR"`         // local bucket directory

	RedisURL       string        `mapstructure:"REDIS_URL"`       // shared login limiter when set
	MetricsEnabled bool          `mapstructure:"METRICS_ENABLED"` // expose /metrics
	PostCacheTTL   time.Duration `mapstructure:"POST_CACHE_TTL"`  // public post cache TTL (default 1m)
}

const minProductionSecret = 32

var defaults = map[string]any{
	"APP_ENV":             "development",
	"ADDR":                ":3000",
	"SITE_NAME":           "AstraVeda",
	"SITE_URL":            "http://localhost:3000",
	"SITE_DESCRIPTION":    "Building secure, scalable satellite ground networks for governments, defense, and next-generation space operators.",
	"ADMIN_USERNAME":      "admin",
	"ADMIN_PASSWORD":      "",
	"ADMIN_PASSWORD_HASH": "",
	"SESSION_SECRET":      "",
	"DATABASE_URL":        "data/site.db",
	"STORAGE_URL":         "",
	"STORAGE_SERVICE_KEY": "",
	"STORAGE_BUCKET":      "blog-images",
	"UPLOADS_DIR":         "data/uploads",
	"REDIS_URL":           "",
	"METRICS_ENABLED":     false,
	"POST_CACHE_TTL":      "1m",
}

// LoadConfig reads .env.local and .env (when present) into the environment
// and decodes the environment into a SiteConfig.
func LoadConfig() (SiteConfig, error) {
	for _, f := range []string{".env.local", ".env"} {
		// godotenv never overrides variables that are already set, so
		// .env.local wins over .env and the real environment wins over both.
		_ = godotenv.Load(f)
	}

	v := viper.New()
	for key, val := range defaults {
		v.SetDefault(key, val)
	}
	v.AutomaticEnv()

	var cfg SiteConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return SiteConfig{}, fmt.Errorf("unable to decode config into struct: %w", err)
	}
	cfg.setDefaults()
	if err := cfg.Validate(); err != nil {
		return SiteConfig{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Production reports whether the site runs with APP_ENV=production.
func (c SiteConfig) Production() bool {
	return c.Env == "production" || c.Env == "prod"
}

// PasswordConfigured reports whether any admin credential is set.
func (c SiteConfig) PasswordConfigured() bool {
	return c.AdminPassword != "" || c.AdminPasswordHash != ""
}

func (c *SiteConfig) setDefaults() {
	if c.Env == "" {
		c.Env = "development"
	}
	if c.Addr == "" {
		c.Addr = ":3000"
	}
	if c.Name == "" {
		c.Name = "AstraVeda"
	}
	if c.URL == "" {
		c.URL = "http://localhost:3000"
	}
	c.URL = strings.TrimSuffix(c.URL, "/")
	if c.AdminUsername == "" {
		c.AdminUsername = "admin"
	}
	if c.DatabaseURL == "" {
		c.DatabaseURL = "data/site.db"
	}
	if c.StorageBucket == "" {
		c.StorageBucket = "blog-images"
	}
	if c.UploadsDir == "" {
		c.UploadsDir = "data/uploads"
	}
	if c.PostCacheTTL == 0 {
		c.PostCacheTTL = time.Minute
	}
}

// Validate checks required values. Outside production a missing session
// secret is replaced with a random key that lasts for the process lifetime.
func (c *SiteConfig) Validate() error {
	if c.StorageURL != "" && c.StorageServiceKey == "" {
		return errors.New("STORAGE_SERVICE_KEY is required when STORAGE_URL is set")
	}
	if c.Production() {
		if c.SessionSecret == "" {
			return errors.New("SESSION_SECRET is required in production")
		}
		if len(c.SessionSecret) < minProductionSecret {
			return fmt.Errorf("SESSION_SECRET must be at least %d characters in production", minProductionSecret)
		}
		if !c.PasswordConfigured() {
			log.Println("WARNING: neither ADMIN_PASSWORD nor ADMIN_PASSWORD_HASH is set; admin login is disabled.")
		}
		return nil
	}
	if c.SessionSecret == "" {
		c.SessionSecret = hex.EncodeToString(securecookie.GenerateRandomKey(32))
		log.Println("WARNING: SESSION_SECRET is not set; using a random key. Sessions will not survive a restart.")
	}
	return nil
}

// Option configures additional App behavior.
type Option func(*App)

// WithCustomRoutes registers additional routes on the Echo instance.
// The callback runs after the built-in routes are registered.
func WithCustomRoutes(fn func(*App)) Option {
	return func(a *App) {
		a.customRoutes = append(a.customRoutes, fn)
	}
}

// WithStore uses s instead of opening Config.DatabaseURL.
func WithStore(s content.Store) Option {
	return func(a *App) {
		a.Store = s
	}
}

// WithBucket uses b as the upload destination instead of the configured one.
func WithBucket(b assets.Bucket) Option {
	return func(a *App) {
		a.bucket = b
	}
}

// WithLoginLimiter replaces the login rate limiter.
func WithLoginLimiter(l LoginLimiter) Option {
	return func(a *App) {
		a.loginLimiter = l
	}
}
