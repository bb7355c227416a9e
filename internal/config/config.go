package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	StorePostgres = "postgres"
	StoreMemory   = "memory"

	FeedRedis    = "redis"
	FeedPostgres = "postgres"
	FeedNone     = "none"
)

type Config struct {
	Env      string
	HTTPAddr string
	LogLevel string

	// DocStore is postgres or memory. Empty means no store is configured and
	// store-backed routes answer 503.
	DocStore    string
	DatabaseURL string
	RedisURL    string
	ChangeFeed  string

	AppID         string
	PublicBaseURL string

	CORSAllowedOrigins   []string
	CORSAllowCredentials bool

	JWTSecret string

	SyncDebounce       time.Duration
	WorkerPollInterval time.Duration
}

// FileConfig is the optional YAML file named by CONFIG_FILE. Environment
// variables override it.
type FileConfig struct {
	Env                  string   `yaml:"env"`
	HTTPAddr             string   `yaml:"httpAddr"`
	LogLevel             string   `yaml:"logLevel"`
	DocStore             string   `yaml:"docStore"`
	DatabaseURL          string   `yaml:"databaseURL"`
	RedisURL             string   `yaml:"redisURL"`
	ChangeFeed           string   `yaml:"changeFeed"`
	AppID                string   `yaml:"appID"`
	PublicBaseURL        string   `yaml:"publicBaseURL"`
	CORSAllowedOrigins   []string `yaml:"corsAllowedOrigins"`
	CORSAllowCredentials bool     `yaml:"corsAllowCredentials"`
	JWTSecret            string   `yaml:"jwtSecret"`
	SyncDebounce         string   `yaml:"syncDebounce"`
	WorkerPollInterval   string   `yaml:"workerPollInterval"`
}

func Load() (Config, error) {
	_ = godotenv.Load()

	var file FileConfig
	if path := getenv("CONFIG_FILE", ""); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &file); err != nil {
			return Config{}, fmt.Errorf("parse config: %w", err)
		}
	}

	cfg := Config{
		Env:                  getenv("ENV", or(file.Env, "production")),
		HTTPAddr:             getenv("HTTP_ADDR", or(file.HTTPAddr, ":8080")),
		LogLevel:             getenv("LOG_LEVEL", or(file.LogLevel, "info")),
		DatabaseURL:          getenv("DATABASE_URL", file.DatabaseURL),
		RedisURL:             getenv("REDIS_URL", file.RedisURL),
		AppID:                getenv("APP_ID", or(file.AppID, "linkstudio")),
		PublicBaseURL:        strings.TrimRight(getenv("PUBLIC_BASE_URL", or(file.PublicBaseURL, "https://linkstudio.me")), "/"),
		CORSAllowCredentials: getenv("CORS_ALLOW_CREDENTIALS", fmt.Sprint(file.CORSAllowCredentials)) == "true",
		JWTSecret:            getenv("JWT_SECRET", file.JWTSecret),
	}
	cfg.CORSAllowedOrigins = file.CORSAllowedOrigins
	if v := getenv("CORS_ALLOWED_ORIGINS", ""); v != "" {
		cfg.CORSAllowedOrigins = splitCSV(v)
	}

	cfg.DocStore = getenv("DOCSTORE", file.DocStore)
	if cfg.DocStore == "" && cfg.DatabaseURL != "" {
		cfg.DocStore = StorePostgres
	}
	cfg.ChangeFeed = getenv("CHANGE_FEED", file.ChangeFeed)
	if cfg.ChangeFeed == "" {
		cfg.ChangeFeed = defaultFeed(cfg)
	}

	var err error
	if cfg.SyncDebounce, err = duration("SYNC_DEBOUNCE", file.SyncDebounce, 1200*time.Millisecond); err != nil {
		return Config{}, err
	}
	if cfg.WorkerPollInterval, err = duration("WORKER_POLL_INTERVAL", file.WorkerPollInterval, 800*time.Millisecond); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func defaultFeed(cfg Config) string {
	switch {
	case cfg.DocStore != StorePostgres:
		return FeedNone
	case cfg.RedisURL != "":
		return FeedRedis
	default:
		return FeedPostgres
	}
}

// StoreConfigured reports whether a document store can be built.
func (c Config) StoreConfigured() bool {
	return c.DocStore != ""
}

func (c Config) Validate() error {
	if c.JWTSecret == "" {
		return errors.New("config: JWT_SECRET is required")
	}
	if c.AppID == "" || strings.Contains(c.AppID, "/") {
		return fmt.Errorf("config: APP_ID %q must be a single path segment", c.AppID)
	}
	switch c.DocStore {
	case "", StoreMemory:
	case StorePostgres:
		if c.DatabaseURL == "" {
			return errors.New("config: DATABASE_URL is required for the postgres document store")
		}
	default:
		return fmt.Errorf("config: unknown DOCSTORE %q", c.DocStore)
	}
	switch c.ChangeFeed {
	case FeedNone:
	case FeedRedis:
		if c.RedisURL == "" {
			return errors.New("config: REDIS_URL is required for the redis change feed")
		}
	case FeedPostgres:
		if c.DocStore != StorePostgres {
			return errors.New("config: the postgres change feed needs the postgres document store")
		}
	default:
		return fmt.Errorf("config: unknown CHANGE_FEED %q", c.ChangeFeed)
	}
	if c.SyncDebounce <= 0 {
		return errors.New("config: SYNC_DEBOUNCE must be positive")
	}
	if c.WorkerPollInterval <= 0 {
		return errors.New("config: WORKER_POLL_INTERVAL must be positive")
	}
	return nil
}

func (c Config) Development() bool {
	return c.Env == "development"
}

func duration(key, fileValue string, def time.Duration) (time.Duration, error) {
	v := getenv(key, fileValue)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("config: %s: %w", key, err)
	}
	return d, nil
}

func getenv(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

func or(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		out = append(out, part)
	}
	return out
}
