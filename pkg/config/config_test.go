package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromEnv_Defaults(t *testing.T) {
	cfg, err := LoadFromEnv("test-version")
	require.NoError(t, err)

	assert.Equal(t, "test-version", cfg.Version)
	assert.Equal(t, "127.0.0.1", cfg.BindAddr)
	assert.Equal(t, "5000", cfg.Port)
	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, 3306, cfg.Database.Port)
	assert.Equal(t, "catfeeder", cfg.Database.Database)
	assert.Equal(t, "", cfg.Redis.Host, "caching disabled by default")
	assert.Equal(t, 300, cfg.Cache.TTLSeconds)
	assert.Equal(t, "catfeeder:sql", cfg.Cache.KeyPrefix)
}

func TestLoadFromEnv_Overrides(t *testing.T) {
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("DB_PORT", "3307")
	t.Setenv("DB_PASSWORD", "hunter2")
	t.Setenv("REDIS_HOST", "cache.internal")
	t.Setenv("CACHE_TTL_SECONDS", "60")

	cfg, err := LoadFromEnv("dev")
	require.NoError(t, err)

	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, 3307, cfg.Database.Port)
	assert.Equal(t, "hunter2", cfg.Database.Password)
	assert.Equal(t, "cache.internal", cfg.Redis.Host)
	assert.Equal(t, 60, cfg.Cache.TTLSeconds)
}

func TestDatabaseConfig_DSN(t *testing.T) {
	cfg := DatabaseConfig{
		Host:     "localhost",
		Port:     3306,
		User:     "catfeeder",
		Password: "hunter2",
		Database: "catfeeder",
	}

	dsn := cfg.DSN()
	assert.Equal(t,
		"catfeeder:hunter2@tcp(localhost:3306)/catfeeder?parseTime=true&multiStatements=false",
		dsn,
	)
}

func TestRedisConfig_Addr(t *testing.T) {
	cfg := RedisConfig{Host: "cache.internal", Port: 6380}
	assert.Equal(t, "cache.internal:6380", cfg.Addr())
}

func TestValidate(t *testing.T) {
	cfg := &Config{}
	cfg.Database.Host = "localhost"
	cfg.Database.Database = "catfeeder"
	require.NoError(t, cfg.validate())

	cfg.Cache.TTLSeconds = -1
	assert.Error(t, cfg.validate())

	cfg.Cache.TTLSeconds = 0
	cfg.Database.Host = ""
	assert.Error(t, cfg.validate())
}
