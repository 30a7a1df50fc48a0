package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("expected default port 8080, got %d", cfg.Server.Port)
	}
	if cfg.Database.Driver != "sqlite3" {
		t.Errorf("expected sqlite3 driver, got %s", cfg.Database.Driver)
	}
	if cfg.Cache.LinkTTL != 5*time.Minute {
		t.Errorf("expected 5m link ttl, got %s", cfg.Cache.LinkTTL)
	}
	if cfg.GeoIP.LookupTimeout != 50*time.Millisecond {
		t.Errorf("expected 50ms lookup timeout, got %s", cfg.GeoIP.LookupTimeout)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate in dev: %v", err)
	}
}

func TestLoad_FileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := `
env: staging
server:
  port: 9000
cache:
  driver: redis
  redis_url: redis://cache:6379/1
geoip:
  lookup_timeout: 20ms
  static:
    - cidr: 203.0.113.0/24
      country: Japan
      country_code: JP
      time_zone: Asia/Tokyo
domains:
  short_domain: lnk.example
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("LINKROUTE_SERVER_PORT", "9100")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Env != "staging" {
		t.Errorf("env = %s", cfg.Env)
	}
	if cfg.Server.Port != 9100 {
		t.Errorf("env override not applied, port = %d", cfg.Server.Port)
	}
	if cfg.Cache.Driver != "redis" || cfg.Cache.RedisURL != "redis://cache:6379/1" {
		t.Errorf("cache = %+v", cfg.Cache)
	}
	if cfg.GeoIP.LookupTimeout != 20*time.Millisecond {
		t.Errorf("lookup timeout = %s", cfg.GeoIP.LookupTimeout)
	}
	if len(cfg.GeoIP.Static) != 1 {
		t.Fatalf("static geo = %+v", cfg.GeoIP.Static)
	}
	if loc := cfg.GeoIP.Static[0]; loc.CIDR != "203.0.113.0/24" || loc.CountryCode != "JP" || loc.TimeZone != "Asia/Tokyo" {
		t.Errorf("static geo = %+v", cfg.GeoIP.Static)
	}
	if cfg.Domains.ShortDomain != "lnk.example" {
		t.Errorf("short domain = %s", cfg.Domains.ShortDomain)
	}
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		cfg, err := Load("")
		if err != nil {
			t.Fatal(err)
		}
		return cfg
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"bad port", func(c *Config) { c.Server.Port = 0 }, "server.port"},
		{"bad driver", func(c *Config) { c.Database.Driver = "mysql" }, "database.driver"},
		{"empty dsn", func(c *Config) { c.Database.DSN = "" }, "database.dsn"},
		{"bad cache", func(c *Config) { c.Cache.Driver = "memcached" }, "cache.driver"},
		{"redis without url", func(c *Config) { c.Cache.Driver = "redis"; c.Cache.RedisURL = "" }, "cache.redis_url"},
		{"bad zone", func(c *Config) { c.GeoIP.DefaultTimezone = "Mars/Olympus" }, "geoip.default_timezone"},
		{"no workers", func(c *Config) { c.Analytics.Workers = 0 }, "analytics.workers"},
		{"forward without secret", func(c *Config) { c.Analytics.ForwardURL = "https://a.example" }, "analytics.secret"},
		{"prod without secret", func(c *Config) { c.Env = "production" }, "jwt.secret"},
		{"prod short secret", func(c *Config) { c.Env = "prod"; c.JWT.Secret = "short" }, "jwt.secret"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)
			err := cfg.Validate()
			var verr ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if verr.Field != tt.field {
				t.Errorf("field = %s, want %s", verr.Field, tt.field)
			}
		})
	}
}
