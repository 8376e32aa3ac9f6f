package app

import (
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const minListIdleTTL = time.Minute

// Config holds runtime configuration for the application.
type Config struct {
	AppEnv            string        `envconfig:"APP_ENV" default:"development"`
	AppAddr           string        `envconfig:"APP_ADDR" default:":8080"`
	AppReadTimeout    time.Duration `envconfig:"APP_READ_TIMEOUT" default:"15s"`
	AppWriteTimeout   time.Duration `envconfig:"APP_WRITE_TIMEOUT" default:"30s"`
	AppRequestTimeout time.Duration `envconfig:"APP_REQUEST_TIMEOUT" default:"30s"`
	AppRateLimit      int           `envconfig:"APP_RATE_LIMIT" default:"300"`

	LogFormat string `envconfig:"LOG_FORMAT" default:"pretty"`

	RedisAddr     string        `envconfig:"REDIS_ADDR" default:"127.0.0.1:6379"`
	SessionSecret string        `envconfig:"SESSION_SECRET" required:"true"`
	SessionTTL    time.Duration `envconfig:"SESSION_TTL" default:"720h"`

	CSRFSecret string `envconfig:"CSRF_SECRET" required:"true"`

	BackendURL     string        `envconfig:"BACKEND_URL" default:"http://127.0.0.1:3000"`
	BackendTimeout time.Duration `envconfig:"BACKEND_TIMEOUT" default:"10s"`
	BackendRPS     float64       `envconfig:"BACKEND_RPS" default:"20"`
	BackendBurst   int           `envconfig:"BACKEND_BURST" default:"40"`

	SearchDebounce    time.Duration `envconfig:"SEARCH_DEBOUNCE" default:"200ms"`
	ListIdleTTL       time.Duration `envconfig:"LIST_IDLE_TTL" default:"30m"`
	DialogTimeout     time.Duration `envconfig:"DIALOG_TIMEOUT" default:"2m"`
	ReloadChannel     string        `envconfig:"RELOAD_CHANNEL" default:"storefront.reload"`
	PermissionRefresh time.Duration `envconfig:"PERMISSION_REFRESH" default:"5m"`
}

// LoadConfig reads configuration from environment variables.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if cfg.SessionSecret == "" {
		return nil, errors.New("session secret must be provided")
	}
	if cfg.CSRFSecret == "" {
		return nil, errors.New("csrf secret must be provided")
	}
	if u, err := url.Parse(cfg.BackendURL); err != nil || u.Scheme == "" || u.Host == "" {
		return nil, errors.New("backend url must be an absolute http(s) url")
	}
	if cfg.SearchDebounce <= 0 {
		return nil, errors.New("search debounce must be positive")
	}
	if cfg.ListIdleTTL < minListIdleTTL {
		return nil, fmt.Errorf("list idle ttl must be at least %s", minListIdleTTL)
	}
	return &cfg, nil
}

// IsProduction returns true when the application runs in production.
func (c *Config) IsProduction() bool {
	return c != nil && c.AppEnv == "production"
}
