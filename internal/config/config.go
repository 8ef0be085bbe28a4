package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Session   SessionConfig   `mapstructure:"session"`
	Worker    WorkerConfig    `mapstructure:"worker"`
	Providers ProvidersConfig `mapstructure:"providers"`
}

type ServerConfig struct {
	Port int `mapstructure:"port"`
	// BaseURL is the externally visible origin, used to build OAuth callback
	// URLs (e.g. "https://import.example.com").
	BaseURL string `mapstructure:"base_url"`
}

type DatabaseConfig struct {
	Type                   string `mapstructure:"type"` // "sqlite", "postgres" or "sqlserver"
	DSN                    string `mapstructure:"dsn"`
	MaxOpenConns           int    `mapstructure:"max_open_conns"`
	MaxIdleConns           int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetimeSeconds int    `mapstructure:"conn_max_lifetime_seconds"`
}

type LoggingConfig struct {
	Level      string `mapstructure:"level"`  // "debug", "info", "warn", "error"
	Format     string `mapstructure:"format"` // "json" or "text"
	OutputFile string `mapstructure:"output_file"`
	MaxSize    int    `mapstructure:"max_size"` // MB
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"` // days
}

type SessionConfig struct {
	Secret        string `mapstructure:"secret"`
	DurationHours int    `mapstructure:"duration_hours"`
}

// Duration returns the session lifetime.
func (s SessionConfig) Duration() time.Duration {
	return time.Duration(s.DurationHours) * time.Hour
}

type WorkerConfig struct {
	Workers             int    `mapstructure:"workers"`
	PollIntervalSeconds int    `mapstructure:"poll_interval_seconds"`
	WorkDir             string `mapstructure:"work_dir"`
}

// ProvidersConfig holds the per-deployment OAuth application registrations.
// Token-based providers need no configuration here; their host and token come
// from the user at import time.
type ProvidersConfig struct {
	GitHub    OAuthProviderConfig `mapstructure:"github"`
	GitLab    OAuthProviderConfig `mapstructure:"gitlab"`
	Bitbucket OAuthProviderConfig `mapstructure:"bitbucket"`
	// GitoriousHost overrides the default gitorious.org listing host.
	GitoriousHost string `mapstructure:"gitorious_host"`
}

type OAuthProviderConfig struct {
	ClientID     string `mapstructure:"client_id"`
	ClientSecret string `mapstructure:"client_secret"`
	// Host is set for self-hosted instances (GitHub Enterprise Server,
	// self-managed GitLab); empty means the public cloud endpoint.
	Host string `mapstructure:"host"`
}

func Load() (*Config, error) {
	// Local development overrides; absence is not an error.
	_ = godotenv.Load()

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./configs")
	viper.AddConfigPath(".")

	viper.SetEnvPrefix("GITPORTER")
	// providers.github.client_id -> GITPORTER_PROVIDERS_GITHUB_CLIENT_ID
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults() {
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.base_url", "http://localhost:8080")
	viper.SetDefault("database.type", "sqlite")
	viper.SetDefault("database.dsn", "./data/gitporter.db")
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")
	viper.SetDefault("logging.output_file", "./logs/gitporter.log")
	viper.SetDefault("logging.max_size", 100)
	viper.SetDefault("logging.max_backups", 3)
	viper.SetDefault("logging.max_age", 28)
	viper.SetDefault("session.duration_hours", 24)
	viper.SetDefault("worker.workers", 5)
	viper.SetDefault("worker.poll_interval_seconds", 10)
	viper.SetDefault("worker.work_dir", "./data/imports")
}

// Validate checks the invariants that would otherwise surface as confusing
// runtime failures.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d is out of range", c.Server.Port)
	}
	switch c.Database.Type {
	case "sqlite", "postgres", "postgresql", "sqlserver", "mssql":
	default:
		return fmt.Errorf("database.type %q is not supported", c.Database.Type)
	}
	if c.Database.DSN == "" {
		return fmt.Errorf("database.dsn is required")
	}
	if c.Worker.Workers < 1 {
		return fmt.Errorf("worker.workers must be at least 1")
	}
	if c.Worker.PollIntervalSeconds < 1 {
		return fmt.Errorf("worker.poll_interval_seconds must be at least 1")
	}
	return nil
}

// CallbackURL builds the OAuth redirect URL for a provider.
func (c *Config) CallbackURL(provider string) string {
	return fmt.Sprintf("%s/import/%s/callback", strings.TrimSuffix(c.Server.BaseURL, "/"), provider)
}
