package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	var c Config
	c.LoadDefaults()

	assert.Equal(t, ":50051", c.EndpointAddrGRPC)
	assert.Empty(t, c.DatabaseDSN)
	assert.Empty(t, c.SeedFile)
	assert.Equal(t, "UTC", c.TimeZone)
	assert.Equal(t, "info", c.LogLevel)
	assert.Equal(t, "json", c.LogFormat)
}

func TestLoadConfigFrom_Precedence(t *testing.T) {
	path := writeTempJSON(t, "", "", map[string]any{
		"endpoint_addr_grpc": ":7000",
		"database_dsn":       "postgres://json",
		"seed_file":          "seed.json",
	})
	t.Setenv("ROLLCALL_DATABASE_DSN", "postgres://env")

	cfg, err := LoadConfigFrom([]string{"-config", path, "-a", ":9000"})
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.EndpointAddrGRPC)
	assert.Equal(t, "postgres://env", cfg.DatabaseDSN)
	assert.Equal(t, "seed.json", cfg.SeedFile)
	assert.Equal(t, "UTC", cfg.TimeZone)
}

func TestLoadConfigFrom_MissingFile(t *testing.T) {
	_, err := LoadConfigFrom([]string{"-c", "/nonexistent/rollcall.json"})
	require.Error(t, err)
}
