package config

import (
	"fmt"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds all configuration for the CatFeeder backend.
// Configuration can come from YAML file (config.yaml) or environment variables.
// Environment variables always override YAML values for fields that support both.
// Secrets (passwords) must only come from environment variables.
type Config struct {
	// Server configuration
	BindAddr string `yaml:"bind_addr" env:"BIND_ADDR" env-default:"127.0.0.1"`
	Port     string `yaml:"port" env:"PORT" env-default:"5000"`
	Env      string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	Debug    bool   `yaml:"debug" env:"DEBUG" env-default:"false"`
	Version  string `yaml:"-"` // Set at load time, not from config

	// Database configuration (MySQL/MariaDB)
	Database DatabaseConfig `yaml:"database"`

	// Redis configuration (optional query-result cache)
	Redis RedisConfig `yaml:"redis"`

	// Cache behavior for the query-result cache layer
	Cache CacheConfig `yaml:"cache"`
}

// DatabaseConfig holds MySQL/MariaDB database configuration.
type DatabaseConfig struct {
	Host            string `yaml:"host" env:"DB_HOST" env-default:"localhost"`
	Port            int    `yaml:"port" env:"DB_PORT" env-default:"3306"`
	User            string `yaml:"user" env:"DB_USER" env-default:"catfeeder"`
	Password        string `yaml:"-" env:"DB_PASSWORD"` // Secret - not in YAML
	Database        string `yaml:"database" env:"DB_DATABASE" env-default:"catfeeder"`
	MaxConnections  int    `yaml:"max_connections" env:"DB_MAX_CONNECTIONS" env-default:"25"`
	MaxIdleConns    int    `yaml:"max_idle_conns" env:"DB_MAX_IDLE_CONNS" env-default:"5"`
	ConnMaxLifetime int    `yaml:"conn_max_lifetime_minutes" env:"DB_CONN_MAX_LIFETIME_MINUTES" env-default:"60"`
}

// RedisConfig holds Redis connection configuration.
// An empty Host disables the caching layer entirely.
type RedisConfig struct {
	Host     string `yaml:"host" env:"REDIS_HOST" env-default:""`
	Port     int    `yaml:"port" env:"REDIS_PORT" env-default:"6379"`
	Password string `yaml:"-" env:"REDIS_PASSWORD"` // Secret - not in YAML
	DB       int    `yaml:"db" env:"REDIS_DB" env-default:"0"`
}

// CacheConfig holds settings for the query-result cache.
type CacheConfig struct {
	// TTLSeconds is how long a cached result set stays valid. The cache
	// backend owns eviction; this is only the write-time expiry hint.
	TTLSeconds int `yaml:"ttl_seconds" env:"CACHE_TTL_SECONDS" env-default:"300"`
	// KeyPrefix namespaces all cache keys written by this deployment.
	KeyPrefix string `yaml:"key_prefix" env:"CACHE_KEY_PREFIX" env-default:"catfeeder:sql"`
}

// Load reads configuration from config.yaml with environment variable overrides.
// The version parameter is injected at build time and set on the returned Config.
// Secrets (DB_PASSWORD, REDIS_PASSWORD) must come from environment variables
// (yaml:"-" fields).
func Load(version string) (*Config, error) {
	cfg := &Config{
		Version: version,
	}

	if err := cleanenv.ReadConfig("config.yaml", cfg); err != nil {
		return nil, fmt.Errorf("failed to read config.yaml: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// LoadFromEnv builds a Config from environment variables only, without
// requiring a config.yaml. Used by tooling and tests.
func LoadFromEnv(version string) (*Config, error) {
	cfg := &Config{
		Version: version,
	}

	if err := cleanenv.ReadEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Database.Host == "" {
		return fmt.Errorf("database host must not be empty")
	}
	if c.Database.Database == "" {
		return fmt.Errorf("database name must not be empty")
	}
	if c.Cache.TTLSeconds < 0 {
		return fmt.Errorf("cache ttl_seconds must not be negative")
	}
	return nil
}

// DSN returns a go-sql-driver/mysql data source name.
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"%s:%s@tcp(%s:%d)/%s?parseTime=true&multiStatements=false",
		c.User, c.Password, c.Host, c.Port, c.Database,
	)
}

// Addr returns the host:port address of the Redis server.
func (c *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
