package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the storedex API configuration.
type Config struct {
	HTTP     HTTPConfig     `yaml:"http"`
	Database DatabaseConfig `yaml:"database"`
	Catalog  CatalogConfig  `yaml:"catalog"`
	Indexing IndexingConfig `yaml:"indexing"`
	Auth     AuthConfig     `yaml:"auth"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// DatabaseConfig holds storage settings.
type DatabaseConfig struct {
	Driver           string   `yaml:"driver"` // memory, redis, valkey (default: memory)
	Addrs            []string `yaml:"addrs"`
	Username         string   `yaml:"username"`
	Password         string   `yaml:"password"`
	DB               int      `yaml:"db"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// CatalogConfig holds query defaults and write-path limits.
type CatalogConfig struct {
	MaxDistanceM   float64 `yaml:"max_distance_m"`
	SearchLimit    int     `yaml:"search_limit"`
	TopLimit       int     `yaml:"top_limit"`
	MinRatingCount int     `yaml:"min_rating_count"`
	MaxLimit       int     `yaml:"max_limit"`
	PageSize       int     `yaml:"page_size"`
	SlugAttempts   int     `yaml:"slug_attempts"`
}

// IndexingConfig holds the retry policy for index staging and rebuild reads,
// the per-write index deadline and the background rebuild period.
type IndexingConfig struct {
	MaxTries           uint `yaml:"max_tries"`
	InitialIntervalMs  int  `yaml:"initial_interval_ms"`
	MaxIntervalMs      int  `yaml:"max_interval_ms"`
	TimeoutMs          int  `yaml:"timeout_ms"`
	RebuildIntervalSec int  `yaml:"rebuild_interval_sec"`
}

// Database drivers.
const (
	DriverMemory = "memory"
	DriverRedis  = "redis"
	DriverValkey = "valkey"
)

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 10
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Database.Driver == "" {
		c.Database.Driver = DriverMemory
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.Catalog.MaxDistanceM <= 0 {
		c.Catalog.MaxDistanceM = 10000
	}
	if c.Catalog.SearchLimit <= 0 {
		c.Catalog.SearchLimit = 10
	}
	if c.Catalog.TopLimit <= 0 {
		c.Catalog.TopLimit = 10
	}
	if c.Catalog.MinRatingCount <= 0 {
		c.Catalog.MinRatingCount = 2
	}
	if c.Catalog.MaxLimit <= 0 {
		c.Catalog.MaxLimit = 50
	}
	if c.Catalog.PageSize <= 0 {
		c.Catalog.PageSize = 6
	}
	if c.Catalog.SlugAttempts <= 0 {
		c.Catalog.SlugAttempts = 5
	}
	if c.Indexing.MaxTries == 0 {
		c.Indexing.MaxTries = 4
	}
	if c.Indexing.InitialIntervalMs <= 0 {
		c.Indexing.InitialIntervalMs = 50
	}
	if c.Indexing.MaxIntervalMs <= 0 {
		c.Indexing.MaxIntervalMs = 1000
	}
	if c.Indexing.TimeoutMs <= 0 {
		c.Indexing.TimeoutMs = 5000
	}
	if c.Indexing.RebuildIntervalSec <= 0 {
		c.Indexing.RebuildIntervalSec = 300
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	switch c.Database.Driver {
	case DriverMemory:
	case DriverRedis, DriverValkey:
		if len(c.Database.Addrs) == 0 {
			return fmt.Errorf("database.addrs is required for driver %q", c.Database.Driver)
		}
	default:
		return fmt.Errorf("database.driver must be \"memory\", \"redis\" or \"valkey\", got %q", c.Database.Driver)
	}
	if c.Catalog.MaxLimit > 50 {
		return fmt.Errorf("catalog.max_limit must not exceed 50, got %d", c.Catalog.MaxLimit)
	}
	if c.Catalog.SearchLimit > c.Catalog.MaxLimit || c.Catalog.TopLimit > c.Catalog.MaxLimit {
		return fmt.Errorf("catalog limits must not exceed catalog.max_limit (%d)", c.Catalog.MaxLimit)
	}
	if c.Indexing.InitialIntervalMs > c.Indexing.MaxIntervalMs {
		return fmt.Errorf("indexing.initial_interval_ms (%d) must not exceed indexing.max_interval_ms (%d)",
			c.Indexing.InitialIntervalMs, c.Indexing.MaxIntervalMs)
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
