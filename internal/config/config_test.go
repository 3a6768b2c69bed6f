package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
server:
  port: 9090
  host: 127.0.0.1
bidding:
  max_retries: 5
  enforce_reserve: true
instance:
  id: test-instance
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	require.Equal(t, 9090, cfg.Server.Port)
	require.Equal(t, "127.0.0.1", cfg.Server.Host)
	require.Equal(t, 5, cfg.Bidding.MaxRetries)
	require.True(t, cfg.Bidding.EnforceReserve)
	require.Equal(t, "test-instance", cfg.Instance.ID)
}

func TestLoadFromFile_MissingFile(t *testing.T) {
	_, err := LoadFromFile(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestGetConfigString(t *testing.T) {
	cfg := &Config{
		Server:   ServerConfig{Host: "127.0.0.1", Port: 9090},
		Redis:    RedisConfig{Address: "localhost:6379"},
		MySQL:    MySQLConfig{DSN: "user:pass@tcp(localhost:3306)/auctions"},
		Instance: InstanceConfig{ID: "test-instance"},
	}

	summary := cfg.GetConfigString()
	require.Contains(t, summary, "127.0.0.1:9090")
	require.Contains(t, summary, "localhost:6379")
	require.Contains(t, summary, "test-instance")
}
