package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "server:\n  port: 9090\n"))
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 60*time.Second, cfg.SSH.CommandTimeout)
	assert.Equal(t, 10*time.Second, cfg.SSH.PromptTimeout)
	assert.Equal(t, "local", cfg.Storage.Backend)
	assert.Same(t, cfg, Get())
}

func TestLoadDevicesAndEnvExpansion(t *testing.T) {
	t.Setenv("FW01_PASSWORD", "from-env")
	cfg, err := Load(writeConfig(t, `
asa:
  enable_password: global-secret
devices:
  fw01:
    host: 10.0.0.1
    username: admin
    password: ${FW01_PASSWORD}
    platform: cisco_asa
  fw02:
    host: 10.0.0.2
    enable_password: own-secret
`))
	require.NoError(t, err)

	fw01, ok := cfg.Device("fw01")
	require.True(t, ok)
	assert.Equal(t, "from-env", fw01.Password)
	assert.Equal(t, "global-secret", cfg.EnablePasswordFor(fw01))

	fw02, _ := cfg.Device("fw02")
	assert.Equal(t, "own-secret", cfg.EnablePasswordFor(fw02))

	_, ok = cfg.Device("missing")
	assert.False(t, ok)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("NETDEV_SSH_COMMAND_TIMEOUT", "5s")
	cfg, err := Load(writeConfig(t, "log:\n  level: debug\n"))
	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, cfg.SSH.CommandTimeout)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestConcurrencyProfile(t *testing.T) {
	cfg, err := Load(writeConfig(t, "ssh:\n  concurrency_profile: concurrency-L\n"))
	require.NoError(t, err)
	assert.Equal(t, 32, cfg.SSH.Concurrent)
}

func TestValidate(t *testing.T) {
	_, err := Load(writeConfig(t, "storage:\n  backend: s3\n"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "devices:\n  fw01:\n    port: 22\n"))
	assert.Error(t, err)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
