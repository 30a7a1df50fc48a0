package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Env       string          `mapstructure:"env"`
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Cache     CacheConfig     `mapstructure:"cache"`
	JWT       JWTConfig       `mapstructure:"jwt"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	GeoIP     GeoIPConfig     `mapstructure:"geoip"`
	Analytics AnalyticsConfig `mapstructure:"analytics"`
	Links     LinksConfig     `mapstructure:"links"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Domains   DomainsConfig   `mapstructure:"domains"`
}

type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	TrustProxy      bool          `mapstructure:"trust_proxy"`
}

type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"` // sqlite3 or pgx
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
}

type CacheConfig struct {
	Driver   string        `mapstructure:"driver"` // memory or redis
	LinkTTL  time.Duration `mapstructure:"link_ttl"`
	RedisURL string        `mapstructure:"redis_url"`
}

type JWTConfig struct {
	Secret         string        `mapstructure:"secret"`
	Issuer         string        `mapstructure:"issuer"`
	UnlockTokenTTL time.Duration `mapstructure:"unlock_token_ttl"`
}

type RateLimitConfig struct {
	RedirectPerMinute int `mapstructure:"redirect_per_minute"`
	APIReadPerMinute  int `mapstructure:"api_read_per_minute"`
	APIWritePerMinute int `mapstructure:"api_write_per_minute"`
}

type GeoIPConfig struct {
	DatabasePath    string          `mapstructure:"database_path"`
	LookupTimeout   time.Duration   `mapstructure:"lookup_timeout"`
	DefaultTimezone string          `mapstructure:"default_timezone"`
	Static          []StaticNetwork `mapstructure:"static"`
}

// StaticNetwork pins a CIDR block to a location when no MaxMind database is configured.
type StaticNetwork struct {
	CIDR        string `mapstructure:"cidr"`
	Country     string `mapstructure:"country"`
	CountryCode string `mapstructure:"country_code"`
	City        string `mapstructure:"city"`
	TimeZone    string `mapstructure:"time_zone"`
}

type AnalyticsConfig struct {
	ForwardURL     string        `mapstructure:"forward_url"`
	Secret         string        `mapstructure:"secret"`
	ForwardTimeout time.Duration `mapstructure:"forward_timeout"`
	QueueSize      int           `mapstructure:"queue_size"`
	Workers        int           `mapstructure:"workers"`
	Retention      time.Duration `mapstructure:"retention"`
	SweepInterval  time.Duration `mapstructure:"sweep_interval"`
}

type LinksConfig struct {
	QRDefaultSize int `mapstructure:"qr_default_size"`
	MaxPageSize   int `mapstructure:"max_page_size"`
}

type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	Output     string `mapstructure:"output"`
	FilePath   string `mapstructure:"file_path"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

type DomainsConfig struct {
	ShortDomain string `mapstructure:"short_domain"`
	AppDomain   string `mapstructure:"app_domain"`
	APIDomain   string `mapstructure:"api_domain"`
}

// Load reads the YAML file at path (optional) and applies LINKROUTE_*
// environment overrides, e.g. LINKROUTE_SERVER_PORT.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("LINKROUTE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.Is(err, fs.ErrNotExist) && !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config %s: %w", path, err)
			}
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("env", "dev")

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 10*time.Second)
	v.SetDefault("server.write_timeout", 15*time.Second)
	v.SetDefault("server.idle_timeout", 60*time.Second)
	v.SetDefault("server.shutdown_timeout", 15*time.Second)
	v.SetDefault("server.trust_proxy", false)

	v.SetDefault("database.driver", "sqlite3")
	v.SetDefault("database.dsn", "file:data/linkroute.db?_foreign_keys=on&_journal_mode=WAL")
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", time.Hour)
	v.SetDefault("database.auto_migrate", true)

	v.SetDefault("cache.driver", "memory")
	v.SetDefault("cache.link_ttl", 5*time.Minute)
	v.SetDefault("cache.redis_url", "redis://localhost:6379/0")

	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.issuer", "linkroute")
	v.SetDefault("jwt.unlock_token_ttl", 30*time.Minute)

	v.SetDefault("rate_limit.redirect_per_minute", 600)
	v.SetDefault("rate_limit.api_read_per_minute", 300)
	v.SetDefault("rate_limit.api_write_per_minute", 60)

	v.SetDefault("geoip.database_path", "")
	v.SetDefault("geoip.lookup_timeout", 50*time.Millisecond)
	v.SetDefault("geoip.default_timezone", "UTC")

	v.SetDefault("analytics.forward_url", "")
	v.SetDefault("analytics.secret", "")
	v.SetDefault("analytics.forward_timeout", 5*time.Second)
	v.SetDefault("analytics.queue_size", 1024)
	v.SetDefault("analytics.workers", 4)
	v.SetDefault("analytics.retention", 90*24*time.Hour)
	v.SetDefault("analytics.sweep_interval", time.Hour)

	v.SetDefault("links.qr_default_size", 512)
	v.SetDefault("links.max_page_size", 100)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stdout")
	v.SetDefault("logging.file_path", "logs/linkroute.log")
	v.SetDefault("logging.max_size_mb", 100)
	v.SetDefault("logging.max_backups", 5)
	v.SetDefault("logging.max_age_days", 28)

	v.SetDefault("domains.short_domain", "")
	v.SetDefault("domains.app_domain", "")
	v.SetDefault("domains.api_domain", "")
}

// ValidationError represents a configuration validation error with details about what failed.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("config validation failed [%s]: %s", e.Field, e.Message)
}

// IsProduction reports whether the stricter production checks apply.
func (c *Config) IsProduction() bool {
	return c.Env == "prod" || c.Env == "production"
}

// Validate fails fast on settings the server cannot run with. It returns the
// first problem found.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return ValidationError{Field: "server.port", Message: fmt.Sprintf("must be 1-65535, got %d", c.Server.Port)}
	}

	if c.Database.Driver != "sqlite3" && c.Database.Driver != "pgx" {
		return ValidationError{Field: "database.driver", Message: fmt.Sprintf("must be 'sqlite3' or 'pgx', got '%s'", c.Database.Driver)}
	}
	if c.Database.DSN == "" {
		return ValidationError{Field: "database.dsn", Message: "database DSN is required"}
	}

	if c.Cache.Driver != "memory" && c.Cache.Driver != "redis" {
		return ValidationError{Field: "cache.driver", Message: fmt.Sprintf("must be 'memory' or 'redis', got '%s'", c.Cache.Driver)}
	}
	if c.Cache.Driver == "redis" && c.Cache.RedisURL == "" {
		return ValidationError{Field: "cache.redis_url", Message: "redis URL is required when cache.driver=redis"}
	}

	if _, err := time.LoadLocation(c.GeoIP.DefaultTimezone); err != nil {
		return ValidationError{Field: "geoip.default_timezone", Message: err.Error()}
	}

	if c.Analytics.Workers < 1 {
		return ValidationError{Field: "analytics.workers", Message: "at least one worker is required"}
	}
	if c.Analytics.QueueSize < 1 {
		return ValidationError{Field: "analytics.queue_size", Message: "queue size must be positive"}
	}
	if c.Analytics.ForwardURL != "" && c.Analytics.Secret == "" {
		return ValidationError{Field: "analytics.secret", Message: "a signing secret is required when forward_url is set"}
	}

	if c.JWT.Secret == "" {
		if c.IsProduction() {
			return ValidationError{Field: "jwt.secret", Message: "JWT secret is required in production"}
		}
	} else if len(c.JWT.Secret) < 32 && c.IsProduction() {
		return ValidationError{Field: "jwt.secret", Message: "JWT secret must be at least 32 bytes in production"}
	}

	return nil
}
