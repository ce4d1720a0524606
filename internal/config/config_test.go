package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chdir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}

func TestLoadConfig_Defaults(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "gzip", cfg.Compression)
	assert.Equal(t, 20, cfg.Rank.Baseline)
	assert.Equal(t, 30, cfg.Rank.PublicizedBonus)
	assert.Equal(t, 10, cfg.Rank.Weights[5])
	assert.Equal(t, time.Hour, cfg.Redis.CacheTTL)
}

func TestLoadConfig_Env(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("EXPLORATION_DATABASE_DRIVER", "postgres")
	t.Setenv("EXPLORATION_DATABASE_DSN", "host=localhost user=exp dbname=exp")
	t.Setenv("EXPLORATION_ADMINS", "alice,bob")
	t.Setenv("EXPLORATION_RANK_BASELINE", "15")
	t.Setenv("EXPLORATION_REDIS_CACHE_TTL", "5m")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, []string{"alice", "bob"}, cfg.Admins)
	assert.Equal(t, 15, cfg.Rank.Baseline)
	assert.Equal(t, 5*time.Minute, cfg.Redis.CacheTTL)
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{name: "driver", key: "EXPLORATION_DATABASE_DRIVER", value: "mysql"},
		{name: "compression", key: "EXPLORATION_COMPRESSION", value: "zstd"},
		{name: "port", key: "EXPLORATION_HTTP_PORT", value: "http"},
		{name: "mode", key: "EXPLORATION_MODE", value: "staging"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chdir(t, t.TempDir())
			t.Setenv(tt.key, tt.value)

			_, err := LoadConfig()
			assert.ErrorContains(t, err, "invalid config")
		})
	}
}

func TestGetDb_Sqlite(t *testing.T) {
	cfg := &Config{
		Mode:     "dev",
		LogLevel: "info",
		Database: DatabaseConfig{Driver: "sqlite", DSN: filepath.Join(t.TempDir(), "test.db")},
	}

	db, err := GetDb(cfg)
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })
	assert.NoError(t, sqlDB.Ping())
}
