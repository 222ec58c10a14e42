package service

import (
	"context"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sshcollectorpro/netdev/internal/config"
	"github.com/sshcollectorpro/netdev/simulate"
)

func startSimulator(t *testing.T, mutate func(*simulate.Config)) (string, int) {
	t.Helper()
	simCfg := simulate.DefaultConfig()
	simCfg.Hostname = "fw-edge-01"
	simCfg.Mode = simulate.ModeMultiple
	simCfg.Contexts = []string{"admin", "ctx1"}
	simCfg.Outputs = map[string]string{"show clock": "10:15:00.000 UTC Tue Oct 13 2026"}
	if mutate != nil {
		mutate(&simCfg)
	}
	srv, err := simulate.Start(simCfg)
	require.NoError(t, err)
	t.Cleanup(srv.Stop)

	host, portStr, err := net.SplitHostPort(srv.Addr())
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)
	return host, port
}

func e2eConfig(t *testing.T, host string, port int) *config.Config {
	cfg := testConfig(t)
	cfg.SSH.ConnectTimeout = 5 * time.Second
	cfg.SSH.PromptTimeout = 3 * time.Second
	cfg.SSH.CommandTimeout = 5 * time.Second
	cfg.SSH.QuietPeriod = 50 * time.Millisecond
	cfg.Devices = map[string]config.DeviceConfig{
		"edge": {Host: host, Port: port, Username: "admin", Password: "admin", Platform: "cisco_asa"},
	}
	return cfg
}

func TestEndToEndMultipleContext(t *testing.T) {
	host, port := startSimulator(t, nil)
	cfg := e2eConfig(t, host, port)
	svc := NewSessionService(cfg, WithStorage(NewStorageWriter(cfg)))
	defer svc.Stop()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	info, err := svc.Open(ctx, OpenRequest{Name: "edge"})
	require.NoError(t, err)
	assert.Equal(t, "ready", info.State)
	assert.Equal(t, "fw-edge-01", info.BasePrompt)
	assert.Equal(t, "system", info.CurrentContext)
	assert.True(t, info.MultipleMode)

	results, err := svc.Execute(ctx, info.ID, CommandRequest{Commands: []string{
		"show clock",
		"changeto context ctx1",
		"show mode",
	}})
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, "10:15:00.000 UTC Tue Oct 13 2026", results[0].Output)
	assert.True(t, results[1].Refreshed)
	assert.Equal(t, "ctx1", results[1].ContextAfter)
	assert.Equal(t, "Security context mode: multiple", results[2].Output)

	after, _, err := svc.ChangeContext(ctx, info.ID, "system")
	require.NoError(t, err)
	assert.Equal(t, "system", after.CurrentContext)

	_, _, err = svc.ChangeContext(ctx, info.ID, "missing")
	assert.Error(t, err)

	require.NoError(t, svc.Close(info.ID))
}

func TestEndToEndSingleModeAndLoginContext(t *testing.T) {
	host, port := startSimulator(t, func(c *simulate.Config) {
		c.Mode = simulate.ModeSingle
		c.Contexts = nil
	})
	cfg := e2eConfig(t, host, port)
	svc := NewSessionService(cfg)
	defer svc.Stop()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	info, err := svc.Open(ctx, OpenRequest{Name: "edge"})
	require.NoError(t, err)
	assert.False(t, info.MultipleMode)
	assert.Equal(t, "system", info.CurrentContext)

	host2, port2 := startSimulator(t, func(c *simulate.Config) { c.LoginContext = "admin" })
	info2, err := svc.Open(ctx, OpenRequest{Host: host2, Port: port2, Username: "admin", Password: "admin"})
	require.NoError(t, err)
	assert.Equal(t, "admin", info2.CurrentContext)
	assert.True(t, info2.MultipleMode)
}

func TestEndToEndWrongEnableSecret(t *testing.T) {
	host, port := startSimulator(t, func(c *simulate.Config) { c.EnableSecret = "other" })
	cfg := e2eConfig(t, host, port)
	svc := NewSessionService(cfg)
	defer svc.Stop()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	info, err := svc.Open(ctx, OpenRequest{Name: "edge"})
	require.Error(t, err)
	require.NotNil(t, info)
	assert.Equal(t, "failed", info.State)
	assert.Equal(t, "enable", info.FailedStep)
}
