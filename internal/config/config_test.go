package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// clearEnv unsets every variable Load reads so the host environment cannot leak in.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"CONFIG_PATH", "PORT", "CORS_ORIGIN", "LOG_LEVEL", "LOG_FORMAT",
		"STORE_DRIVER", "MONGODB_URI", "MONGODB_DATABASE", "MONGODB_COLLECTION",
		"DATABASE_URL", "BOLT_PATH", "STORE_AUTO_MIGRATE", "STORE_CONNECT_TIMEOUT",
		"REDIS_URL", "NOTIFY_QUEUE", "RATE_LIMIT_PER_MINUTE", "RATE_LIMIT_BURST", "TRUSTED_PROXY_COUNT",
		"ADMIN_TOKEN", "HTTP_READ_TIMEOUT", "HTTP_WRITE_TIMEOUT",
		"HTTP_SHUTDOWN_TIMEOUT", "HTTP_MAX_BODY_BYTES",
	} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port != 3000 {
		t.Errorf("expected port 3000, got %d", cfg.Port)
	}
	if cfg.CORSOrigin != "*" {
		t.Errorf("expected CORS origin *, got %q", cfg.CORSOrigin)
	}
	if cfg.Store.Driver != "mongo" {
		t.Errorf("expected mongo driver, got %q", cfg.Store.Driver)
	}
	if cfg.Store.MongoDatabase != "portfolioDB" {
		t.Errorf("expected database portfolioDB from URI, got %q", cfg.Store.MongoDatabase)
	}
	if cfg.Store.MongoCollection != "contactmessages" {
		t.Errorf("expected collection contactmessages, got %q", cfg.Store.MongoCollection)
	}
	if !cfg.Store.AutoMigrate {
		t.Error("expected auto migrate on by default")
	}
	if cfg.RateLimitPerMinute != 10 || cfg.RateLimitBurst != 5 {
		t.Errorf("expected rate limit 10/5, got %d/%d", cfg.RateLimitPerMinute, cfg.RateLimitBurst)
	}
	if cfg.TrustedProxies != 0 {
		t.Errorf("expected no trusted proxies by default, got %d", cfg.TrustedProxies)
	}
	if cfg.MaxBodyBytes != 100<<10 {
		t.Errorf("expected 100KiB body limit, got %d", cfg.MaxBodyBytes)
	}
	if cfg.RedisURL != "" || cfg.AdminToken != "" {
		t.Error("expected optional features off by default")
	}
	if cfg.Addr() != ":3000" {
		t.Errorf("expected addr :3000, got %q", cfg.Addr())
	}
}

func TestLoad_YAMLWithEnvExpansion(t *testing.T) {
	clearEnv(t)
	t.Setenv("TEST_PG_PASSWORD", "s3cret")

	path := writeConfig(t, `
port: 8081
store:
  driver: postgres
  postgres_url: postgres://contact:${TEST_PG_PASSWORD}@db:5432/contact
  auto_migrate: false
  connect_timeout: 3s
redis:
  url: redis://cache:6379/0
rate_limit:
  per_minute: 0
  trusted_proxies: 1
admin:
  token: yaml-token
http:
  write_timeout: 20s
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port != 8081 {
		t.Errorf("expected port 8081, got %d", cfg.Port)
	}
	if cfg.Store.Driver != "postgres" {
		t.Errorf("expected postgres driver, got %q", cfg.Store.Driver)
	}
	if !strings.Contains(cfg.Store.PostgresURL, "s3cret") {
		t.Errorf("expected ${TEST_PG_PASSWORD} to be expanded, got %q", cfg.Store.PostgresURL)
	}
	if cfg.Store.AutoMigrate {
		t.Error("expected auto_migrate false from YAML")
	}
	if cfg.Store.ConnectTimeout != 3*time.Second {
		t.Errorf("expected 3s connect timeout, got %v", cfg.Store.ConnectTimeout)
	}
	if cfg.RateLimitPerMinute != 0 {
		t.Errorf("expected rate limit disabled, got %d", cfg.RateLimitPerMinute)
	}
	if cfg.TrustedProxies != 1 {
		t.Errorf("expected 1 trusted proxy from YAML, got %d", cfg.TrustedProxies)
	}
	if cfg.WriteTimeout != 20*time.Second {
		t.Errorf("expected 20s write timeout, got %v", cfg.WriteTimeout)
	}
	if cfg.AdminToken != "yaml-token" {
		t.Errorf("expected admin token from YAML, got %q", cfg.AdminToken)
	}
}

func TestLoad_EnvOverridesYAML(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, "port: 8081\nadmin:\n  token: yaml-token\n")
	t.Setenv("PORT", "9090")
	t.Setenv("ADMIN_TOKEN", "env-token")
	t.Setenv("STORE_DRIVER", "BOLT")
	t.Setenv("TRUSTED_PROXY_COUNT", "2")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port != 9090 {
		t.Errorf("expected env port 9090, got %d", cfg.Port)
	}
	if cfg.AdminToken != "env-token" {
		t.Errorf("expected env admin token, got %q", cfg.AdminToken)
	}
	if cfg.Store.Driver != "bolt" {
		t.Errorf("expected driver bolt, got %q", cfg.Store.Driver)
	}
	if cfg.TrustedProxies != 2 {
		t.Errorf("expected 2 trusted proxies from env, got %d", cfg.TrustedProxies)
	}
}

func TestLoad_ConfigPathEnv(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, "port: 4000\n")
	t.Setenv("CONFIG_PATH", path)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port != 4000 {
		t.Errorf("expected port 4000 from CONFIG_PATH file, got %d", cfg.Port)
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, "port: [unclosed\n")

	if _, err := Load(path); err == nil {
		t.Error("expected error for malformed YAML")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"bad port", func(c *Config) { c.Port = 70000 }, true},
		{"unknown driver", func(c *Config) { c.Store.Driver = "sqlite" }, true},
		{"postgres without url", func(c *Config) { c.Store.Driver = "postgres"; c.Store.PostgresURL = "" }, true},
		{"bolt without path", func(c *Config) { c.Store.Driver = "bolt"; c.Store.BoltPath = "" }, true},
		{"negative rate limit", func(c *Config) { c.RateLimitPerMinute = -1 }, true},
		{"negative trusted proxies", func(c *Config) { c.TrustedProxies = -1 }, true},
		{"zero body limit", func(c *Config) { c.MaxBodyBytes = 0 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &Config{
				Port:         3000,
				Store:        StoreConfig{Driver: "mongo", MongoURI: defaultMongoURI, BoltPath: "contact.db"},
				MaxBodyBytes: 1024,
			}
			tt.mutate(c)
			err := c.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
