package server

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigMissingFileYieldsDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.hcl"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadConfigParsesHCLOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "poker.hcl")
	body := `
server {
  server_addr = "0.0.0.0:9090"
  small_blind = 25
  big_blind   = 50
}
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:9090", cfg.ServerAddr)
	assert.Equal(t, 25, cfg.SmallBlind)
	assert.Equal(t, 50, cfg.BigBlind)
	// Unset fields keep their defaults.
	assert.Equal(t, DefaultConfig().MaxConnections, cfg.MaxConnections)
}

func TestApplyEnvOverridesTakesPrecedenceOverFileValues(t *testing.T) {
	cfg := DefaultConfig()
	t.Setenv("POKER_SERVER_ADDR", "10.0.0.1:1234")
	t.Setenv("POKER_BIG_BLIND", "100")
	t.Setenv("POKER_ENABLE_HMAC", "true")

	cfg.ApplyEnvOverrides()

	assert.Equal(t, "10.0.0.1:1234", cfg.ServerAddr)
	assert.Equal(t, 100, cfg.BigBlind)
	assert.True(t, cfg.EnableHMAC)
}

func TestValidateRejectsBigBlindNotExceedingSmallBlind(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SmallBlind = 10
	cfg.BigBlind = 10
	assert.Error(t, cfg.Validate())
}

func TestValidateRejectsHMACEnabledWithoutKey(t *testing.T) {
	cfg := DefaultConfig()
	cfg.EnableHMAC = true
	cfg.HMACKey = ""
	assert.Error(t, cfg.Validate())

	cfg.HMACKey = "shared-secret"
	assert.NoError(t, cfg.Validate())
}

func TestApplyEnvOverridesSetsHMACKey(t *testing.T) {
	cfg := DefaultConfig()
	t.Setenv("POKER_HMAC_KEY", "shared-secret")

	cfg.ApplyEnvOverrides()

	assert.Equal(t, "shared-secret", cfg.HMACKey)
}
