package service

import (
	"context"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/sshcollectorpro/netdev/addone/interact"
	"github.com/sshcollectorpro/netdev/pkg/netdev"
)

// fakeASA 内存中的 ASA 基础会话
type fakeASA struct {
	mu         sync.Mutex
	hostname   string
	context    string
	establish  error
	sendErr    error
	closed     bool
	commands   []string
	blockUntil chan struct{}
	// establishDelay 模拟慢速登录
	establishDelay time.Duration
}

func (f *fakeASA) EstablishConnection(context.Context) error {
	if f.establishDelay > 0 {
		time.Sleep(f.establishDelay)
	}
	return f.establish
}

func (f *fakeASA) FindPrompt(context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.context == "" {
		return f.hostname + "#", nil
	}
	return f.hostname + "/" + f.context + "#", nil
}

func (f *fakeASA) EnterPrivilegedMode(context.Context) error { return nil }

func (f *fakeASA) DisablePaging(context.Context) error { return nil }

func (f *fakeASA) SendCommandBase(_ context.Context, text string, _, _ bool) (string, error) {
	if f.blockUntil != nil && text == "block" {
		<-f.blockUntil
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.commands = append(f.commands, text)
	if f.sendErr != nil {
		return "", f.sendErr
	}
	switch {
	case text == "show mode":
		return "Security context mode: multiple", nil
	case text == "changeto system":
		f.context = ""
	case strings.HasPrefix(text, "changeto context "):
		f.context = strings.TrimPrefix(text, "changeto context ")
	default:
		return "output of " + text, nil
	}
	return "", nil
}

func (f *fakeASA) SetBasePattern(*regexp.Regexp) {}

func (f *fakeASA) Close() error {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
	return nil
}

// fakeFactory 记录每次创建的 fakeASA
type fakeFactory struct {
	mu      sync.Mutex
	created []*fakeASA
	tweak   func(*fakeASA)
}

func (ff *fakeFactory) build(req OpenRequest, _ interact.InteractPlugin) netdev.SessionCollaborator {
	f := &fakeASA{hostname: req.Host}
	if ff.tweak != nil {
		ff.tweak(f)
	}
	ff.mu.Lock()
	ff.created = append(ff.created, f)
	ff.mu.Unlock()
	return f
}
