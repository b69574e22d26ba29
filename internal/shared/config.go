package shared

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

//go:embed config.example.toml
var exampleConf []byte

// Environment variables that override values loaded from TOML.
const (
	EnvManifestURL = "PLAYCACHE_MANIFEST_URL"
	EnvCacheDir    = "PLAYCACHE_CACHE_DIR"
	EnvStrategy    = "PLAYCACHE_STRATEGY"
	EnvLogLevel    = "PLAYCACHE_LOG_LEVEL"
	EnvDatabase    = "PLAYCACHE_DATABASE"
)

// Acquisition strategies accepted by [SyncConfig.Strategy].
const (
	StrategyStream = "stream"
	StrategyPoll   = "poll"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("http_url", validateHTTPURL)
	return v
}

// validateHTTPURL accepts absolute http(s) URLs with a host.
func validateHTTPURL(fl validator.FieldLevel) bool {
	u, err := url.Parse(fl.Field().String())
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Sync      SyncConfig      `toml:"sync"`
	Slideshow SlideshowConfig `toml:"slideshow"`
	Database  DatabaseConfig  `toml:"database"`
	Server    ServerConfig    `toml:"server"`
	Logging   LoggingConfig   `toml:"logging"`
}

// SyncConfig controls manifest retrieval and media acquisition.
type SyncConfig struct {
	ManifestURL     string        `toml:"manifest_url" validate:"required,http_url"`
	CacheDir        string        `toml:"cache_dir" validate:"required"`
	Strategy        string        `toml:"strategy" validate:"oneof=stream poll"`
	PollInterval    time.Duration `toml:"poll_interval" validate:"gt=0"`
	ChunkSize       int           `toml:"chunk_size" validate:"gt=0"`
	MaxConcurrent   int           `toml:"max_concurrent" validate:"gt=0"`
	StartRate       float64       `toml:"start_rate" validate:"gt=0"`
	ManifestTimeout time.Duration `toml:"manifest_timeout" validate:"gt=0"`
	TransferTimeout time.Duration `toml:"transfer_timeout" validate:"gte=0"`
}

// SlideshowConfig contains display cycling settings.
type SlideshowConfig struct {
	Interval time.Duration `toml:"interval" validate:"gt=0"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path" validate:"required"`
	MaxOpenConns int    `toml:"max_open_conns" validate:"gte=0"`
	MaxIdleConns int    `toml:"max_idle_conns" validate:"gte=0"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port" validate:"gte=0,lte=65535"`
}

// LoggingConfig contains log output settings.
type LoggingConfig struct {
	Level string `toml:"level" validate:"omitempty,oneof=debug info warn error fatal"`
}

// Addr returns the host:port pair the HTTP feed listens on.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// Validate checks struct tags on every section and wraps failures with [ErrInvalidConfig].
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Keys missing from the file keep their embedded defaults.
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

// ApplyEnv loads the dotenv file at envPath (when present) and applies PLAYCACHE_* overrides to c.
func ApplyEnv(c *Config, envPath string) error {
	if envPath != "" {
		if err := godotenv.Load(envPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to load %s: %w", envPath, err)
		}
	}

	if v, ok := os.LookupEnv(EnvManifestURL); ok && v != "" {
		c.Sync.ManifestURL = v
	}
	if v, ok := os.LookupEnv(EnvCacheDir); ok && v != "" {
		c.Sync.CacheDir = v
	}
	if v, ok := os.LookupEnv(EnvStrategy); ok && v != "" {
		c.Sync.Strategy = v
	}
	if v, ok := os.LookupEnv(EnvLogLevel); ok && v != "" {
		c.Logging.Level = v
	}
	if v, ok := os.LookupEnv(EnvDatabase); ok && v != "" {
		c.Database.Path = v
	}
	return nil
}

// ResolveConfig loads the config file when it exists (defaults otherwise), applies environment
// overrides, and validates the result.
func ResolveConfig(path, envPath string) (*Config, error) {
	config := DefaultConfig()
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			loaded, err := LoadConfig(path)
			if err != nil {
				return nil, err
			}
			config = loaded
		}
	}

	if err := ApplyEnv(config, envPath); err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}
