package shared

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	User      UserConfig      `toml:"user"`
	Catalog   CatalogConfig   `toml:"catalog"`
	Backend   BackendConfig   `toml:"backend"`
	Database  DatabaseConfig  `toml:"database"`
	Cache     CacheConfig     `toml:"cache"`
	Rows      RowsConfig      `toml:"rows"`
	Search    SearchConfig    `toml:"search"`
	Presenter PresenterConfig `toml:"presenter"`
	Server    ServerConfig    `toml:"server"`
	Logging   LoggingConfig   `toml:"logging"`
}

// UserConfig identifies the session user. Durable cache keys are namespaced by ID.
type UserConfig struct {
	ID string `toml:"id"`
}

// CatalogConfig contains the TMDB-compatible metadata API settings.
type CatalogConfig struct {
	BaseURL           string  `toml:"base_url"`
	APIKey            string  `toml:"api_key"`
	Language          string  `toml:"language"`
	Region            string  `toml:"region"`
	RequestsPerSecond float64 `toml:"requests_per_second"`
	PosterBaseURL     string  `toml:"poster_base_url"`
	BackdropBaseURL   string  `toml:"backdrop_base_url"`
	PlayerURL         string  `toml:"player_url"`
}

// BackendConfig points at the same-origin REST backend for user lists and notifications.
type BackendConfig struct {
	BaseURL string        `toml:"base_url"`
	Timeout time.Duration `toml:"timeout"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// CacheConfig bounds the in-memory details cache.
type CacheConfig struct {
	DetailsSize int `toml:"details_size"`
}

// RowsConfig controls landing row composition.
type RowsConfig struct {
	Concurrency int `toml:"concurrency"`
	Categories  int `toml:"categories"`
}

// SearchConfig controls the search debouncer.
type SearchConfig struct {
	Debounce time.Duration `toml:"debounce"`
}

// PresenterConfig bounds detail preview fetches.
type PresenterConfig struct {
	Timeout time.Duration `toml:"timeout"`
}

// ServerConfig contains reference backend settings.
type ServerConfig struct {
	Host           string        `toml:"host"`
	Port           int           `toml:"port"`
	NotifyInterval time.Duration `toml:"notify_interval"`
}

// LoggingConfig contains log output settings.
type LoggingConfig struct {
	Level  string `toml:"level"`
	Prefix string `toml:"prefix"`
}

// Environment variables that override file configuration.
const (
	EnvAPIKey     = "MARQUEE_TMDB_API_KEY"
	EnvUserID     = "MARQUEE_USER_ID"
	EnvBackendURL = "MARQUEE_BACKEND_URL"
	EnvLogLevel   = "MARQUEE_LOG_LEVEL"
	EnvConfigPath = "MARQUEE_CONFIG"
)

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Values missing from the file keep the embedded defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrMissingConfig, path)
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// LoadEnv reads dotenv files (".env" when none are given) into the process environment.
// Missing files are ignored.
func LoadEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}

	var present []string
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			present = append(present, f)
		}
	}
	if len(present) == 0 {
		return nil
	}

	if err := godotenv.Load(present...); err != nil {
		return fmt.Errorf("failed to load env files: %w", err)
	}
	return nil
}

// ApplyEnv overrides credentials, identity and endpoints from the environment.
func (c *Config) ApplyEnv() {
	if v := os.Getenv(EnvAPIKey); v != "" {
		c.Catalog.APIKey = v
	}
	if v := os.Getenv(EnvUserID); v != "" {
		c.User.ID = v
	}
	if v := os.Getenv(EnvBackendURL); v != "" {
		c.Backend.BaseURL = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.Logging.Level = v
	}
}

// Validate checks that URLs parse and that numeric limits are usable.
func (c *Config) Validate() error {
	for name, raw := range map[string]string{
		"catalog.base_url": c.Catalog.BaseURL,
		"backend.base_url": c.Backend.BaseURL,
	} {
		if raw == "" {
			continue
		}
		u, err := url.Parse(raw)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("%w: %s must be an absolute URL, got %q", ErrInvalidConfig, name, raw)
		}
	}

	if strings.ContainsAny(c.User.ID, " /") {
		return fmt.Errorf("%w: user.id must not contain spaces or slashes", ErrInvalidConfig)
	}
	if c.Cache.DetailsSize < 0 || c.Rows.Concurrency < 0 || c.Rows.Categories < 0 {
		return fmt.Errorf("%w: cache and row limits must not be negative", ErrInvalidConfig)
	}
	if c.Catalog.RequestsPerSecond < 0 {
		return fmt.Errorf("%w: catalog.requests_per_second must not be negative", ErrInvalidConfig)
	}
	return nil
}

// Addr returns the listen address for the reference backend.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}
