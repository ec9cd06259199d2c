// Package config loads the dentdir configuration file.
package config

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fwojciec/dentdir"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"gopkg.in/yaml.v3"
)

// Storage drivers.
const (
	DriverSQLite = "sqlite"
	DriverFS     = "fs"
	DriverRedis  = "redis"
)

// EnvConfigPath names the environment variable overriding the config path.
const EnvConfigPath = "DENTDIR_CONFIG"

// Config represents the application configuration.
type Config struct {
	LogLevel slog.Level    `yaml:"log_level"`
	Gemini   GeminiConfig  `yaml:"gemini"`
	Storage  StorageConfig `yaml:"storage"`
	Ingest   IngestConfig  `yaml:"ingest"`
	Server   ServerConfig  `yaml:"server"`
}

// GeminiConfig holds search backend settings.
type GeminiConfig struct {
	APIKey      string  `yaml:"api_key"`
	Model       string  `yaml:"model"`
	Temperature float32 `yaml:"temperature"`
	Structured  bool    `yaml:"structured"`
}

// Validate validates the Gemini configuration.
func (c *GeminiConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Model, validation.Required),
		validation.Field(&c.Temperature, validation.Min(0.0), validation.Max(2.0)),
	)
}

// StorageConfig selects where the clinic list and saved key live.
// An empty Path means a default under the data directory.
type StorageConfig struct {
	Driver        string `yaml:"driver"`
	Path          string `yaml:"path"`
	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`
}

// Validate validates the storage configuration.
func (c *StorageConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Driver, validation.Required, validation.In(DriverSQLite, DriverFS, DriverRedis)),
		validation.Field(&c.RedisAddr, validation.When(c.Driver == DriverRedis, validation.Required)),
		validation.Field(&c.RedisDB, validation.Min(0)),
	)
}

// ResolvedPath returns Path or the driver's default location in dataDir.
func (c *StorageConfig) ResolvedPath(dataDir string) string {
	if c.Path != "" {
		return c.Path
	}
	if c.Driver == DriverFS {
		return filepath.Join(dataDir, "data")
	}
	return filepath.Join(dataDir, "dentdir.db")
}

// IngestConfig holds ingestion pacing and planning settings.
type IngestConfig struct {
	QueryDelay        time.Duration `yaml:"query_delay"`
	RateLimitDelay    time.Duration `yaml:"rate_limit_delay"`
	TransientDelay    time.Duration `yaml:"transient_delay"`
	MaxAttempts       int           `yaml:"max_attempts"`
	RequestsPerMinute int           `yaml:"requests_per_minute"`
	Categories        []string      `yaml:"categories"`
	MatchPhone        bool          `yaml:"match_phone"`
}

// Validate validates the ingestion configuration.
func (c *IngestConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.QueryDelay, validation.Min(time.Duration(0))),
		validation.Field(&c.RateLimitDelay, validation.Min(time.Duration(0))),
		validation.Field(&c.TransientDelay, validation.Min(time.Duration(0))),
		validation.Field(&c.MaxAttempts, validation.Required, validation.Min(1), validation.Max(10)),
		validation.Field(&c.RequestsPerMinute, validation.Min(0)),
		validation.Field(&c.Categories, validation.Each(validation.Required)),
	)
}

// ServerConfig holds the HTTP server settings.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// Validate validates the server configuration.
func (c *ServerConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Addr, validation.Required),
	)
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.Gemini.Validate(); err != nil {
		return err
	}
	if err := c.Storage.Validate(); err != nil {
		return err
	}
	if err := c.Ingest.Validate(); err != nil {
		return err
	}
	return c.Server.Validate()
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		LogLevel: slog.LevelInfo,
		Gemini: GeminiConfig{
			Model:       "gemini-2.5-flash",
			Temperature: 0.1,
		},
		Storage: StorageConfig{
			Driver: DriverSQLite,
		},
		Ingest: IngestConfig{
			QueryDelay:     2 * time.Second,
			RateLimitDelay: 5 * time.Second,
			TransientDelay: 1 * time.Second,
			MaxAttempts:    3,
		},
		Server: ServerConfig{
			Addr: "127.0.0.1:8787",
		},
	}
}

// DataDir returns the directory holding the config file and local data.
func DataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".dentdir"
	}
	return filepath.Join(home, ".dentdir")
}

// DefaultPath returns the config file path from DENTDIR_CONFIG or the data
// directory.
func DefaultPath() string {
	if p := os.Getenv(EnvConfigPath); p != "" {
		return p
	}
	return filepath.Join(DataDir(), "config.yaml")
}

// Load reads the YAML file at path over the defaults, expanding ${VAR}
// references, and validates the result. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, dentdir.Errorf(dentdir.ECONFIG, "failed to read config file %s: %v", path, err)
	}

	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), cfg); err != nil {
		return nil, dentdir.Errorf(dentdir.ECONFIG, "failed to parse config file %s: %v", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, dentdir.Errorf(dentdir.ECONFIG, "invalid config file %s: %v", path, err)
	}
	return cfg, nil
}

// ResolveAPIKey returns the first usable key from GEMINI_API_KEY, API_KEY
// and the config file, or "" if none is set.
func (c *Config) ResolveAPIKey(getenv func(string) string) string {
	for _, key := range []string{getenv("GEMINI_API_KEY"), getenv("API_KEY"), c.Gemini.APIKey} {
		if key = strings.TrimSpace(key); dentdir.ValidAPIKey(key) {
			return key
		}
	}
	return ""
}

// Matcher returns the duplicate detection policy.
func (c *Config) Matcher() dentdir.Matcher {
	if c.Ingest.MatchPhone {
		return dentdir.NameOrPhoneMatcher
	}
	return dentdir.NameMatcher
}
