// Package config loads sift settings from a YAML file, a .env file and SIFT_*
// environment variables.
package config

import (
	"errors"
	"fmt"
	"runtime"
	"slices"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of environment overrides, e.g. SIFT_DATABASE_URL.
const EnvPrefix = "SIFT"

// DefaultDatabaseURL is where configurations live when nothing else is set.
const DefaultDatabaseURL = ".sift/sift.db"

// ErrInvalid is wrapped by every validation error.
var ErrInvalid = errors.New("invalid config")

var (
	logLevels  = []string{"debug", "info", "warn", "error"}
	logFormats = []string{"console", "json"}
)

// Config holds the application configuration
type Config struct {
	DatabaseURL string `mapstructure:"database_url" yaml:"database_url"`
	Scope       string `mapstructure:"scope" yaml:"scope"`
	Debug       bool   `mapstructure:"debug" yaml:"debug"`
	LogLevel    string `mapstructure:"log_level" yaml:"log_level"`
	LogFormat   string `mapstructure:"log_format" yaml:"log_format"`
	Workers     int    `mapstructure:"workers" yaml:"workers"`
	MaxFileSize int64  `mapstructure:"max_file_size" yaml:"max_file_size"`
}

// Default returns a config with sensible defaults
func Default() Config {
	return Config{
		DatabaseURL: DefaultDatabaseURL,
		LogLevel:    "warn",
		LogFormat:   "console",
		Workers:     runtime.NumCPU(),
		MaxFileSize: 2 << 20,
	}
}

// Load reads the configuration. An explicit path must exist; without one a
// .sift.yaml in the working directory is used when present. Values from the
// environment (and a .env file) override the file.
func Load(path string) (*Config, error) {
	// a missing .env is fine
	_ = godotenv.Load()

	v := viper.New()
	def := Default()
	v.SetDefault("database_url", def.DatabaseURL)
	v.SetDefault("scope", def.Scope)
	v.SetDefault("debug", def.Debug)
	v.SetDefault("log_level", def.LogLevel)
	v.SetDefault("log_format", def.LogFormat)
	v.SetDefault("workers", def.Workers)
	v.SetDefault("max_file_size", def.MaxFileSize)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	} else {
		v.SetConfigName(".sift")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.LogLevel = strings.ToLower(cfg.LogLevel)
	cfg.LogFormat = strings.ToLower(cfg.LogFormat)
	if cfg.Debug {
		cfg.LogLevel = "debug"
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks field ranges and enumerations.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.DatabaseURL) == "" {
		return fmt.Errorf("%w: database_url is empty", ErrInvalid)
	}
	if !slices.Contains(logLevels, c.LogLevel) {
		return fmt.Errorf("%w: log_level %q is not one of %s", ErrInvalid, c.LogLevel, strings.Join(logLevels, ", "))
	}
	if !slices.Contains(logFormats, c.LogFormat) {
		return fmt.Errorf("%w: log_format %q is not one of %s", ErrInvalid, c.LogFormat, strings.Join(logFormats, ", "))
	}
	if c.Workers < 1 {
		return fmt.Errorf("%w: workers must be at least 1, got %d", ErrInvalid, c.Workers)
	}
	if c.MaxFileSize < 0 {
		return fmt.Errorf("%w: max_file_size must not be negative", ErrInvalid)
	}
	return nil
}
