package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	RepositoryPostgres = "postgres"
	RepositorySQLite   = "sqlite"
	RepositoryInMemory = "inmemory"
)

type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	Tracing    TracingConfig    `mapstructure:"tracing"`
	Repository RepositoryConfig `mapstructure:"repository"`
}

type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            string        `mapstructure:"port" validate:"required,numeric"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout" validate:"gte=0"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"gt=0"`
	RateLimitRPM    int           `mapstructure:"rate_limit_rpm" validate:"gte=0"`
	AllowedOrigins  []string      `mapstructure:"allowed_origins"`
}

type DatabaseConfig struct {
	URL            string        `mapstructure:"url" validate:"required"`
	MaxConnections int32         `mapstructure:"max_connections" validate:"gte=0"`
	MinConnections int32         `mapstructure:"min_connections" validate:"gte=0"`
	IdleTimeout    time.Duration `mapstructure:"idle_timeout" validate:"gte=0"`
	Debug          bool          `mapstructure:"debug"`
}

type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// TracingConfig switches on the OpenTelemetry SDK. Spans are written to
// stdout as JSON.
type TracingConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	ServiceName string `mapstructure:"service_name" validate:"required_if=Enabled true"`
}

type RepositoryConfig struct {
	// Type is "postgres", "sqlite" or "inmemory". Empty means infer from the database URL.
	Type string `mapstructure:"type" validate:"required,oneof=postgres sqlite inmemory"`
}

var envBindings = map[string]string{
	"server.host":              "SERVER_HOST",
	"server.port":              "SERVER_PORT",
	"server.request_timeout":   "SERVER_REQUEST_TIMEOUT",
	"server.shutdown_timeout":  "SERVER_SHUTDOWN_TIMEOUT",
	"server.rate_limit_rpm":    "SERVER_RATE_LIMIT_RPM",
	"server.allowed_origins":   "SERVER_ALLOWED_ORIGINS",
	"database.url":             "DATABASE_URL",
	"database.max_connections": "DATABASE_MAX_CONNECTIONS",
	"database.min_connections": "DATABASE_MIN_CONNECTIONS",
	"database.idle_timeout":    "DATABASE_IDLE_TIMEOUT",
	"database.debug":           "DATABASE_DEBUG",
	"logging.development":      "LOGGING_DEVELOPMENT",
	"tracing.enabled":          "TRACING_ENABLED",
	"tracing.service_name":     "TRACING_SERVICE_NAME",
	"repository.type":          "REPOSITORY_TYPE",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "")
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.request_timeout", 30*time.Second)
	v.SetDefault("server.shutdown_timeout", 5*time.Second)
	v.SetDefault("server.rate_limit_rpm", 0)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("database.url", "sqlite://tasks.db")
	v.SetDefault("database.max_connections", 10)
	v.SetDefault("database.min_connections", 2)
	v.SetDefault("database.idle_timeout", 5*time.Minute)
	v.SetDefault("database.debug", false)
	v.SetDefault("logging.development", false)
	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.service_name", "task-manager")
	v.SetDefault("repository.type", "")
}

// Load reads an optional .env file, an optional YAML config file (CONFIG_PATH,
// default config.yml) and the environment, in increasing order of precedence.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yml"
	}
	return LoadFile(configPath)
}

// LoadFile is Load without the .env step and with an explicit config file.
// A missing file is not an error.
func LoadFile(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("read config file %s: %w", configPath, err)
			}
		}
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", env, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.Repository.Type == "" {
		cfg.Repository.Type = RepositoryTypeFromURL(cfg.Database.URL)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// RepositoryTypeFromURL maps a database URL scheme to a repository type.
// Unknown schemes yield "".
func RepositoryTypeFromURL(url string) string {
	switch {
	case strings.HasPrefix(url, "postgres://"), strings.HasPrefix(url, "postgresql://"):
		return RepositoryPostgres
	case strings.HasPrefix(url, "sqlite://"), strings.HasPrefix(url, "file:"):
		return RepositorySQLite
	case strings.HasPrefix(url, "memory://"):
		return RepositoryInMemory
	}
	return ""
}

// SQLitePath extracts the database file from a sqlite:// URL. One slash after
// the scheme separates an empty host from the path, so "sqlite:///./tasks.db"
// is "./tasks.db" and "sqlite:////var/lib/tasks.db" is "/var/lib/tasks.db".
// An empty path means an in-memory database. file: URIs are passed through
// for the driver.
func (c *Config) SQLitePath() string {
	path, ok := strings.CutPrefix(c.Database.URL, "sqlite://")
	if !ok {
		return c.Database.URL
	}

	path = strings.TrimPrefix(path, "/")
	if path == "" {
		return ":memory:"
	}
	return path
}

func (c *Config) GetServerAddr() string {
	return net.JoinHostPort(c.Server.Host, c.Server.Port)
}
