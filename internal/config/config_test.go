package config

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNewConfig_Defaults(t *testing.T) {
	cfg, err := NewConfig(discard())
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.ServerPort)
	assert.Equal(t, "https://mms.openmbee.org/demo", cfg.RootContext)
	assert.Equal(t, "X-MMS-User", cfg.Auth.UserHeader)
	assert.Equal(t, "X-MMS-Groups", cfg.Auth.GroupsHeader)
	assert.Equal(t, time.Duration(0), cfg.Store.Timeout)
	assert.True(t, cfg.Bootstrap.Enabled)
	assert.Equal(t, "256M", cfg.MaxBodySize)
	assert.False(t, cfg.Otel.Enabled())
}

func TestNewConfig_FromEnv(t *testing.T) {
	t.Setenv("ROOT_CONTEXT", "https://mms.example.org/")
	t.Setenv("SPARQL_QUERY_URL", "https://store.example.org/sparql")
	t.Setenv("SPARQL_UPDATE_URL", "https://store.example.org/update")
	t.Setenv("SPARQL_TIMEOUT", "15s")
	t.Setenv("AUTH_USER_HEADER", "X-Remote-User")
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "http://localhost:4318")

	cfg, err := NewConfig(discard())
	require.NoError(t, err)

	assert.Equal(t, "https://mms.example.org", cfg.RootContext)
	assert.Equal(t, "https://store.example.org/sparql", cfg.Store.QueryURL)
	assert.Equal(t, 15*time.Second, cfg.Store.Timeout)
	assert.Equal(t, "X-Remote-User", cfg.Auth.UserHeader)
	assert.True(t, cfg.Otel.Enabled())
}

func TestConfig_Validate(t *testing.T) {
	valid := func() Config {
		return Config{
			RootContext: "https://mms.example.org",
			ServiceID:   "svc",
			Store: StoreConfig{
				QueryURL:  "http://localhost:3030/ds/query",
				UpdateURL: "http://localhost:3030/ds/update",
			},
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"relative root", func(c *Config) { c.RootContext = "mms" }, "ROOT_CONTEXT"},
		{"bad query url", func(c *Config) { c.Store.QueryURL = "ftp://x" }, "SPARQL_QUERY_URL"},
		{"bad update url", func(c *Config) { c.Store.UpdateURL = "" }, "SPARQL_UPDATE_URL"},
		{"empty service id", func(c *Config) { c.ServiceID = " " }, "SERVICE_ID"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(&c)
			err := c.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
