package router

import (
	"context"
	"net/http"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sshcollectorpro/netdev/addone/interact"
	"github.com/sshcollectorpro/netdev/internal/config"
	"github.com/sshcollectorpro/netdev/internal/service"
	"github.com/sshcollectorpro/netdev/pkg/netdev"
	"github.com/sshcollectorpro/netdev/pkg/ssh"
)

// scriptedASA 按命令文本给出固定反应的基础会话
type scriptedASA struct {
	mu      sync.Mutex
	context string
	garbled bool
}

func (a *scriptedASA) EstablishConnection(context.Context) error { return nil }

func (a *scriptedASA) FindPrompt(context.Context) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	switch {
	case a.garbled:
		return "%%% no prompt here", nil
	case a.context != "":
		return "fw01/" + a.context + "#", nil
	}
	return "fw01#", nil
}

func (a *scriptedASA) EnterPrivilegedMode(context.Context) error { return nil }

func (a *scriptedASA) DisablePaging(context.Context) error { return nil }

func (a *scriptedASA) SendCommandBase(_ context.Context, text string, _, _ bool) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	switch {
	case text == "show mode":
		return "Security context mode: multiple", nil
	case text == "show hang":
		return "", &ssh.TransportError{Op: "send_command", Err: ssh.ErrPatternTimeout}
	case text == "changeto context broken":
		a.garbled = true
	case strings.HasPrefix(text, "changeto context "):
		a.context = strings.TrimPrefix(text, "changeto context ")
	default:
		return "ok", nil
	}
	return "", nil
}

func (a *scriptedASA) SetBasePattern(*regexp.Regexp) {}

func (a *scriptedASA) Close() error { return nil }

func newServiceRouter(t *testing.T) (http.Handler, *service.SessionService) {
	t.Helper()
	cfg := &config.Config{
		SSH: config.SSHConfig{MaxSessions: 4, Concurrent: 2, IdleTimeout: time.Minute},
	}
	svc := service.NewSessionService(cfg, service.WithCollaboratorFactory(
		func(service.OpenRequest, interact.InteractPlugin) netdev.SessionCollaborator {
			return &scriptedASA{}
		}))
	t.Cleanup(svc.Stop)
	return SetupRouter(Options{Sessions: svc, Active: svc.Active, Stats: svc.Stats}), svc
}

func TestExecuteErrorStatusThroughService(t *testing.T) {
	h, svc := newServiceRouter(t)

	w, body := do(t, h, http.MethodPost, "/api/v1/sessions", `{"host":"fw01"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	id, _ := body["id"].(string)
	require.NotEmpty(t, id)
	path := "/api/v1/sessions/" + id + "/commands"

	w, body = do(t, h, http.MethodPost, path, `{"commands":["show hang"]}`)
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Equal(t, "TRANSPORT_ERROR", body["code"])

	// 传输错误不改变会话状态
	w, _ = do(t, h, http.MethodPost, path, `{"commands":["changeto context admin"]}`)
	require.Equal(t, http.StatusOK, w.Code)

	w, body = do(t, h, http.MethodPost, path, `{"commands":["changeto context broken"]}`)
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Equal(t, "MALFORMED_PROMPT", body["code"])

	info, err := svc.Get(id)
	require.NoError(t, err)
	assert.Equal(t, "failed", info.State)
	assert.Equal(t, "set_base_prompt", info.FailedStep)

	w, body = do(t, h, http.MethodPost, path, `{"commands":["show version"]}`)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "SESSION_NOT_READY", body["code"])

	w, body = do(t, h, http.MethodGet, "/api/v1/health", "")
	require.Equal(t, http.StatusOK, w.Code)
	pool, ok := body["pool"].(map[string]interface{})
	require.True(t, ok)
	assert.EqualValues(t, 1, pool["active_sessions"])
	assert.EqualValues(t, 0, pool["pending_sessions"])
}
