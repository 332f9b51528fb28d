package config

import (
	"time"

	"github.com/cockroachdb/errors"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config is the process configuration. Every field maps to an environment
// variable of the same name in upper case (PORT, DATABASE_URL, ...).
type Config struct {
	Port string `mapstructure:"port"`
	Host string `mapstructure:"host"`

	DatabaseDriver string `mapstructure:"database_driver"`
	DatabaseURL    string `mapstructure:"database_url"`

	NATSEnabled    bool   `mapstructure:"nats_enabled"`
	NATSPort       int    `mapstructure:"nats_port"`
	NATSDataDir    string `mapstructure:"nats_data_dir"`
	UseSharedCache bool   `mapstructure:"use_shared_cache"`

	CacheTTLSeconds       int `mapstructure:"cache_ttl_seconds"`
	FlightCacheTTLSeconds int `mapstructure:"flight_cache_ttl_seconds"`
	CacheMaxEntries       int `mapstructure:"cache_max_entries"`
	SourceTimeoutSeconds  int `mapstructure:"source_timeout_seconds"`

	LogLevel   string `mapstructure:"log_level"`
	LogJSON    bool   `mapstructure:"log_json"`
	CORSOrigin string `mapstructure:"cors_origin"`

	OpenSkyUsername     string `mapstructure:"opensky_username"`
	OpenSkyPassword     string `mapstructure:"opensky_password"`
	ADSBExchangeAPIKey  string `mapstructure:"adsbexchange_api_key"`
	AviationStackAPIKey string `mapstructure:"aviationstack_api_key"`
}

// SetDefaults registers every known key with its default value. Keys must be
// registered for AutomaticEnv to pick them up during Unmarshal.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("port", "8080")
	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("database_driver", "sqlite3")
	v.SetDefault("database_url", "./data/stands.db")
	v.SetDefault("nats_enabled", true)
	v.SetDefault("nats_port", 4222)
	v.SetDefault("nats_data_dir", "./data/nats")
	v.SetDefault("use_shared_cache", true)
	v.SetDefault("cache_ttl_seconds", 3600)
	v.SetDefault("flight_cache_ttl_seconds", 86400)
	v.SetDefault("cache_max_entries", 10000)
	v.SetDefault("source_timeout_seconds", 10)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_json", false)
	v.SetDefault("cors_origin", "*")
	v.SetDefault("opensky_username", "")
	v.SetDefault("opensky_password", "")
	v.SetDefault("adsbexchange_api_key", "")
	v.SetDefault("aviationstack_api_key", "")
}

// Load reads an optional .env file into the environment and then resolves the
// configuration from defaults and environment variables.
func Load() (*Config, bool, error) {
	dotenvLoaded := godotenv.Load() == nil

	v := viper.New()
	SetDefaults(v)
	v.AutomaticEnv()

	cfg, err := LoadWithViper(v)
	if err != nil {
		return nil, dotenvLoaded, err
	}
	return cfg, dotenvLoaded, nil
}

// LoadWithViper unmarshals configuration from a prepared viper instance.
func LoadWithViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns the configuration with no environment applied.
func Default() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	_ = v.Unmarshal(&cfg)
	return &cfg
}

// Validate checks values that would otherwise fail later in obscure ways.
func (c *Config) Validate() error {
	switch c.DatabaseDriver {
	case "sqlite3", "postgres":
	default:
		return errors.Newf("unsupported DATABASE_DRIVER %q", c.DatabaseDriver)
	}
	if c.CacheTTLSeconds <= 0 {
		return errors.New("CACHE_TTL_SECONDS must be positive")
	}
	if c.FlightCacheTTLSeconds <= 0 {
		return errors.New("FLIGHT_CACHE_TTL_SECONDS must be positive")
	}
	if c.SourceTimeoutSeconds <= 0 {
		return errors.New("SOURCE_TIMEOUT_SECONDS must be positive")
	}
	return nil
}

// CacheTTL is the default lifetime of generic cache entries.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLSeconds) * time.Second
}

// FlightCacheTTL is the lifetime of cached stand resolutions.
func (c *Config) FlightCacheTTL() time.Duration {
	return time.Duration(c.FlightCacheTTLSeconds) * time.Second
}

// SourceTimeout bounds every outbound data source request.
func (c *Config) SourceTimeout() time.Duration {
	return time.Duration(c.SourceTimeoutSeconds) * time.Second
}

// Addr is the HTTP listen address.
func (c *Config) Addr() string {
	return c.Host + ":" + c.Port
}
