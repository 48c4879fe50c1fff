// Package config loads configuration from an optional YAML file and
// environment variables. Environment variables win over the file; the file
// wins over built-in defaults.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/portfolio/backend/internal/repository"
)

// StoreConfig selects and locates the contact document store.
type StoreConfig struct {
	Driver          string
	MongoURI        string
	MongoDatabase   string
	MongoCollection string
	PostgresURL     string
	BoltPath        string
	AutoMigrate     bool
	ConnectTimeout  time.Duration
}

// Options converts the store settings into repository.Options.
func (s StoreConfig) Options() repository.Options {
	return repository.Options{
		Driver:          s.Driver,
		MongoURI:        s.MongoURI,
		MongoDatabase:   s.MongoDatabase,
		MongoCollection: s.MongoCollection,
		PostgresURL:     s.PostgresURL,
		BoltPath:        s.BoltPath,
		ConnectTimeout:  s.ConnectTimeout,
	}
}

// Config holds all configuration for the contact backend.
type Config struct {
	Port       int
	CORSOrigin string

	LogLevel  string
	LogFormat string

	Store StoreConfig

	// Redis notifier; disabled when RedisURL is empty.
	RedisURL    string
	NotifyQueue string

	// Per-client limit on POST /api/contact; 0 disables it.
	RateLimitPerMinute int
	RateLimitBurst     int
	// Reverse proxies that append to X-Forwarded-For; 0 keys clients by peer address.
	TrustedProxies     int

	// Admin read routes are mounted only when AdminToken is set.
	AdminToken string

	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	MaxBodyBytes    int64
}

// rawConfig mirrors the YAML structure for unmarshalling.
type rawConfig struct {
	Port       int    `yaml:"port"`
	CORSOrigin string `yaml:"cors_origin"`
	Log        struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
	Store struct {
		Driver          string `yaml:"driver"`
		MongoURI        string `yaml:"mongo_uri"`
		MongoDatabase   string `yaml:"mongo_database"`
		MongoCollection string `yaml:"mongo_collection"`
		PostgresURL     string `yaml:"postgres_url"`
		BoltPath        string `yaml:"bolt_path"`
		AutoMigrate     *bool  `yaml:"auto_migrate"`
		ConnectTimeout  string `yaml:"connect_timeout"`
	} `yaml:"store"`
	Redis struct {
		URL   string `yaml:"url"`
		Queue string `yaml:"queue"`
	} `yaml:"redis"`
	RateLimit struct {
		PerMinute      *int `yaml:"per_minute"`
		Burst          int  `yaml:"burst"`
		TrustedProxies int  `yaml:"trusted_proxies"`
	} `yaml:"rate_limit"`
	Admin struct {
		Token string `yaml:"token"`
	} `yaml:"admin"`
	HTTP struct {
		ReadTimeout     string `yaml:"read_timeout"`
		WriteTimeout    string `yaml:"write_timeout"`
		ShutdownTimeout string `yaml:"shutdown_timeout"`
		MaxBodyBytes    int64  `yaml:"max_body_bytes"`
	} `yaml:"http"`
}

const (
	defaultMongoURI        = "mongodb://localhost:27017/portfolioDB"
	defaultMongoDatabase   = "portfolioDB"
	defaultMongoCollection = "contactmessages"
)

// DefaultPath is the config file read when CONFIG_PATH is unset.
const DefaultPath = "config.yaml"

// Load reads the YAML file at path (with ${VAR} expansion) when it exists and
// applies environment overrides. An empty path means CONFIG_PATH or DefaultPath.
// A missing file is not an error.
func Load(path string) (*Config, error) {
	if path == "" {
		path = envOrDefault("CONFIG_PATH", DefaultPath)
	}

	var raw rawConfig
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("read config file %s: %w", path, err)
	default:
		expanded := os.ExpandEnv(string(data))
		if err := yaml.Unmarshal([]byte(expanded), &raw); err != nil {
			return nil, fmt.Errorf("parse config YAML: %w", err)
		}
	}

	cfg := &Config{
		Port:       envOrDefaultInt("PORT", orInt(raw.Port, 3000)),
		CORSOrigin: envOrDefault("CORS_ORIGIN", firstNonEmpty(raw.CORSOrigin, "*")),
		LogLevel:   envOrDefault("LOG_LEVEL", firstNonEmpty(raw.Log.Level, "INFO")),
		LogFormat:  strings.ToLower(envOrDefault("LOG_FORMAT", firstNonEmpty(raw.Log.Format, "json"))),
		Store: StoreConfig{
			Driver:          strings.ToLower(envOrDefault("STORE_DRIVER", firstNonEmpty(raw.Store.Driver, repository.DriverMongo))),
			MongoURI:        envOrDefault("MONGODB_URI", firstNonEmpty(raw.Store.MongoURI, defaultMongoURI)),
			MongoDatabase:   envOrDefault("MONGODB_DATABASE", raw.Store.MongoDatabase),
			MongoCollection: envOrDefault("MONGODB_COLLECTION", firstNonEmpty(raw.Store.MongoCollection, defaultMongoCollection)),
			PostgresURL:     envOrDefault("DATABASE_URL", raw.Store.PostgresURL),
			BoltPath:        envOrDefault("BOLT_PATH", firstNonEmpty(raw.Store.BoltPath, "contact.db")),
			AutoMigrate:     envOrDefaultBool("STORE_AUTO_MIGRATE", orBool(raw.Store.AutoMigrate, true)),
			ConnectTimeout:  envOrDefaultDuration("STORE_CONNECT_TIMEOUT", parseDurationOr(raw.Store.ConnectTimeout, 10*time.Second)),
		},
		RedisURL:           envOrDefault("REDIS_URL", raw.Redis.URL),
		NotifyQueue:        envOrDefault("NOTIFY_QUEUE", firstNonEmpty(raw.Redis.Queue, "contact_messages")),
		RateLimitPerMinute: envOrDefaultInt("RATE_LIMIT_PER_MINUTE", orIntPtr(raw.RateLimit.PerMinute, 10)),
		RateLimitBurst:     envOrDefaultInt("RATE_LIMIT_BURST", orInt(raw.RateLimit.Burst, 5)),
		TrustedProxies:     envOrDefaultInt("TRUSTED_PROXY_COUNT", raw.RateLimit.TrustedProxies),
		AdminToken:         envOrDefault("ADMIN_TOKEN", raw.Admin.Token),
		ReadTimeout:        envOrDefaultDuration("HTTP_READ_TIMEOUT", parseDurationOr(raw.HTTP.ReadTimeout, 10*time.Second)),
		WriteTimeout:       envOrDefaultDuration("HTTP_WRITE_TIMEOUT", parseDurationOr(raw.HTTP.WriteTimeout, 10*time.Second)),
		ShutdownTimeout:    envOrDefaultDuration("HTTP_SHUTDOWN_TIMEOUT", parseDurationOr(raw.HTTP.ShutdownTimeout, 5*time.Second)),
		MaxBodyBytes:       int64(envOrDefaultInt("HTTP_MAX_BODY_BYTES", int(orInt64(raw.HTTP.MaxBodyBytes, 100<<10)))),
	}

	if cfg.Store.MongoDatabase == "" {
		cfg.Store.MongoDatabase = firstNonEmpty(repository.MongoDatabaseFromURI(cfg.Store.MongoURI), defaultMongoDatabase)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports settings the server cannot start with.
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	switch c.Store.Driver {
	case repository.DriverMongo:
		if c.Store.MongoURI == "" {
			return errors.New("store driver mongo requires MONGODB_URI")
		}
	case repository.DriverPostgres:
		if c.Store.PostgresURL == "" {
			return errors.New("store driver postgres requires DATABASE_URL")
		}
	case repository.DriverBolt:
		if c.Store.BoltPath == "" {
			return errors.New("store driver bolt requires BOLT_PATH")
		}
	default:
		return fmt.Errorf("unknown store driver %q (want mongo, postgres or bolt)", c.Store.Driver)
	}
	if c.RateLimitPerMinute < 0 {
		return fmt.Errorf("invalid rate limit %d", c.RateLimitPerMinute)
	}
	if c.TrustedProxies < 0 {
		return fmt.Errorf("invalid trusted proxy count %d", c.TrustedProxies)
	}
	if c.MaxBodyBytes <= 0 {
		return fmt.Errorf("invalid max body bytes %d", c.MaxBodyBytes)
	}
	return nil
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string {
	return ":" + strconv.Itoa(c.Port)
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envOrDefaultInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envOrDefaultBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envOrDefaultDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func parseDurationOr(s string, fallback time.Duration) time.Duration {
	if d, err := time.ParseDuration(strings.TrimSpace(s)); err == nil {
		return d
	}
	return fallback
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func orInt(v, fallback int) int {
	if v != 0 {
		return v
	}
	return fallback
}

func orInt64(v, fallback int64) int64 {
	if v != 0 {
		return v
	}
	return fallback
}

func orIntPtr(v *int, fallback int) int {
	if v != nil {
		return *v
	}
	return fallback
}

func orBool(v *bool, fallback bool) bool {
	if v != nil {
		return *v
	}
	return fallback
}
