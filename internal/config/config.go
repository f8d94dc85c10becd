// Package config provides configuration management for m3udash using Viper.
// It supports configuration from files, environment variables, and defaults.
package config

import (
	"errors"
	"fmt"
	"net"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

// Default configuration values.
const (
	defaultServerPort        = 5000
	defaultServerTimeout     = 90 * time.Second
	defaultShutdownTimeout   = 10 * time.Second
	defaultFetchTimeout      = 60 * time.Second
	defaultRelayTimeout      = 60 * time.Second
	defaultCategoriesTimeout = 30 * time.Second
	defaultStreamsTimeout    = 60 * time.Second
	defaultMaxResponseSize   = 256 * 1024 * 1024 // 256MB

	// DefaultUserAgent is the browser identity sent upstream. Some playlist
	// hosts and panels reject requests without a browser-like User-Agent.
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"

	// EnvPrefix is the prefix for environment variable overrides.
	EnvPrefix = "M3UDASH"
)

// Config holds all configuration for the application.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Storage StorageConfig `mapstructure:"storage"`
	Logging LoggingConfig `mapstructure:"logging"`
	Fetch   FetchConfig   `mapstructure:"fetch"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	CORSOrigins     []string      `mapstructure:"cors_origins"`
	// PublicBaseURL is prepended to share links. Empty means the request's
	// own scheme and host are used.
	PublicBaseURL string `mapstructure:"public_base_url"`
}

// StorageConfig holds file storage configuration.
type StorageConfig struct {
	BaseDir   string `mapstructure:"base_dir"`
	SharedDir string `mapstructure:"shared_dir"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level      string `mapstructure:"level"`  // trace, debug, info, warn, error
	Format     string `mapstructure:"format"` // json, text
	AddSource  bool   `mapstructure:"add_source"`
	TimeFormat string `mapstructure:"time_format"`
}

// FetchConfig holds outbound HTTP configuration for playlist and panel fetches.
type FetchConfig struct {
	UserAgent         string        `mapstructure:"user_agent"`
	DefaultTimeout    time.Duration `mapstructure:"default_timeout"`
	RelayTimeout      time.Duration `mapstructure:"relay_timeout"`
	CategoriesTimeout time.Duration `mapstructure:"categories_timeout"`
	StreamsTimeout    time.Duration `mapstructure:"streams_timeout"`
	// MaxResponseSize caps a decompressed upstream body. Zero disables the cap.
	// Supports human-readable values like "256MB".
	MaxResponseSize ByteSize `mapstructure:"max_response_size"`
}

// Load builds a Config from defaults, an optional YAML file and M3UDASH_*
// environment variables, in increasing precedence. Nested keys map to
// underscores, so server.port is M3UDASH_SERVER_PORT. Without configPath a
// missing config.yaml is not an error.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath == "" {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		for _, dir := range []string{".", "./configs", "/etc/m3udash", "$HOME/.m3udash"} {
			v.AddConfigPath(dir)
		}
	} else {
		v.SetConfigFile(configPath)
	}

	var notFound viper.ConfigFileNotFoundError
	if err := v.ReadInConfig(); err != nil && !errors.As(err, &notFound) {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	return FromViper(v)
}

// FromViper decodes and validates the Config held by v. The CLI passes the
// global instance so bound flags take part.
func FromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	hooks := mapstructure.ComposeDecodeHookFunc(
		mapstructure.TextUnmarshallerHookFunc(),
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	)
	if err := v.Unmarshal(&cfg, viper.DecodeHook(hooks)); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return &cfg, nil
}

// defaults lists every key with its built-in value.
var defaults = map[string]any{
	"server.host":             "0.0.0.0",
	"server.port":             defaultServerPort,
	"server.read_timeout":     defaultServerTimeout,
	"server.write_timeout":    defaultServerTimeout,
	"server.shutdown_timeout": defaultShutdownTimeout,
	"server.cors_origins":     []string{"*"},
	"server.public_base_url":  "",

	"storage.base_dir":   "./data",
	"storage.shared_dir": "shared_m3u_files",

	"logging.level":       "info",
	"logging.format":      "json",
	"logging.add_source":  false,
	"logging.time_format": time.RFC3339,

	"fetch.user_agent":         DefaultUserAgent,
	"fetch.default_timeout":    defaultFetchTimeout,
	"fetch.relay_timeout":      defaultRelayTimeout,
	"fetch.categories_timeout": defaultCategoriesTimeout,
	"fetch.streams_timeout":    defaultStreamsTimeout,
	"fetch.max_response_size":  defaultMaxResponseSize,
}

// SetDefaults registers the built-in values on v. Call it before reading a
// config file.
func SetDefaults(v *viper.Viper) {
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
}

var (
	logLevels  = []string{"trace", "debug", "info", "warn", "error"}
	logFormats = []string{"json", "text"}
)

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf(format, args...))
		}
	}

	check(c.Server.Port >= 1 && c.Server.Port <= 65535, "server.port must be between 1 and 65535, got %d", c.Server.Port)
	check(c.Storage.BaseDir != "", "storage.base_dir is required")
	check(c.Storage.SharedDir != "", "storage.shared_dir is required")
	check(slices.Contains(logLevels, c.Logging.Level), "logging.level must be one of %s", strings.Join(logLevels, ", "))
	check(slices.Contains(logFormats, c.Logging.Format), "logging.format must be one of %s", strings.Join(logFormats, ", "))
	check(c.Fetch.UserAgent != "", "fetch.user_agent is required")
	check(c.Fetch.DefaultTimeout > 0, "fetch.default_timeout must be positive")
	check(c.Fetch.RelayTimeout > 0, "fetch.relay_timeout must be positive")
	check(c.Fetch.CategoriesTimeout > 0, "fetch.categories_timeout must be positive")
	check(c.Fetch.StreamsTimeout > 0, "fetch.streams_timeout must be positive")
	check(c.Fetch.MaxResponseSize >= 0, "fetch.max_response_size must not be negative")

	return errors.Join(errs...)
}

// Address returns host:port for the listener.
func (c *ServerConfig) Address() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// SharedPath returns the shared playlist directory. A relative SharedDir is
// taken relative to BaseDir.
func (c *StorageConfig) SharedPath() string {
	if filepath.IsAbs(c.SharedDir) {
		return c.SharedDir
	}
	return filepath.Join(c.BaseDir, c.SharedDir)
}
