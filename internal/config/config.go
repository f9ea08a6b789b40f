package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"go.uber.org/fx"
)

var Module = fx.Module("config",
	fx.Provide(NewConfig),
)

// Config holds all application configuration
type Config struct {
	// Server settings
	ServerPort    int    `env:"SERVER_PORT" envDefault:"8080"`
	ServerAddress string `env:"SERVER_ADDRESS" envDefault:"0.0.0.0"`
	Environment   string `env:"ENVIRONMENT" envDefault:"local"`
	Debug         bool   `env:"DEBUG" envDefault:"false"`
	LogLevel      string `env:"LOG_LEVEL" envDefault:"info"`

	// RootContext is the IRI every resource identifier is minted under.
	RootContext string `env:"ROOT_CONTEXT" envDefault:"https://mms.openmbee.org/demo"`

	// ServiceID is recorded on every transaction this instance writes.
	ServiceID string `env:"SERVICE_ID" envDefault:"flexo-mms-layer1"`

	// SPARQL store endpoints
	Store StoreConfig

	// Identity headers set by the upstream authenticating proxy
	Auth AuthConfig

	// First-start seeding of the cluster and access-control graphs
	Bootstrap BootstrapConfig

	// OpenTelemetry
	Otel OtelConfig

	// Server timeouts
	ReadTimeout     time.Duration `env:"SERVER_READ_TIMEOUT" envDefault:"30s"`
	WriteTimeout    time.Duration `env:"SERVER_WRITE_TIMEOUT" envDefault:"300s"`
	IdleTimeout     time.Duration `env:"SERVER_IDLE_TIMEOUT" envDefault:"120s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`

	// MaxBodySize caps request bodies, model loads included (echo size syntax)
	MaxBodySize string `env:"SERVER_MAX_BODY_SIZE" envDefault:"256M"`
}

// StoreConfig points at a SPARQL 1.1 protocol service.
type StoreConfig struct {
	QueryURL  string `env:"SPARQL_QUERY_URL" envDefault:"http://localhost:3030/ds/query"`
	UpdateURL string `env:"SPARQL_UPDATE_URL" envDefault:"http://localhost:3030/ds/update"`

	// Timeout bounds a single store round trip; zero disables it.
	Timeout   time.Duration `env:"SPARQL_TIMEOUT" envDefault:"0s"`
	UserAgent string        `env:"SPARQL_USER_AGENT" envDefault:"flexo-mms-layer1"`

	// RateLimit caps requests per second to the store; zero disables it.
	// Requests over the limit wait up to the request's own deadline.
	RateLimit float64 `env:"SPARQL_RATE_LIMIT" envDefault:"0"`
	RateBurst int     `env:"SPARQL_RATE_BURST" envDefault:"16"`

	// Optional basic auth for the store
	Username string `env:"SPARQL_USERNAME"`
	Password string `env:"SPARQL_PASSWORD"`
}

// AuthConfig names the request headers carrying the caller's identity.
type AuthConfig struct {
	UserHeader   string `env:"AUTH_USER_HEADER" envDefault:"X-MMS-User"`
	GroupsHeader string `env:"AUTH_GROUPS_HEADER" envDefault:"X-MMS-Groups"`
}

// BootstrapConfig controls seeding on startup.
type BootstrapConfig struct {
	Enabled  bool   `env:"BOOTSTRAP_ENABLED" envDefault:"true"`
	RootUser string `env:"BOOTSTRAP_ROOT_USER" envDefault:"root"`
}

// Validate checks the settings that cannot be defaulted safely.
func (c *Config) Validate() error {
	root, err := url.Parse(c.RootContext)
	if err != nil || !root.IsAbs() {
		return fmt.Errorf("ROOT_CONTEXT must be an absolute IRI, got %q", c.RootContext)
	}
	for name, raw := range map[string]string{
		"SPARQL_QUERY_URL":  c.Store.QueryURL,
		"SPARQL_UPDATE_URL": c.Store.UpdateURL,
	} {
		u, err := url.Parse(raw)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
			return fmt.Errorf("%s must be an http(s) URL, got %q", name, raw)
		}
	}
	if strings.TrimSpace(c.ServiceID) == "" {
		return fmt.Errorf("SERVICE_ID must not be empty")
	}
	return nil
}

// NewConfig loads configuration from the environment
func NewConfig(log *slog.Logger) (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.RootContext = strings.TrimSuffix(cfg.RootContext, "/")
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	log.Info("configuration loaded",
		slog.String("environment", cfg.Environment),
		slog.Int("port", cfg.ServerPort),
		slog.String("root_context", cfg.RootContext),
		slog.String("sparql_query_url", cfg.Store.QueryURL),
		slog.String("sparql_update_url", cfg.Store.UpdateURL),
	)

	return cfg, nil
}
