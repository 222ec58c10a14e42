package asa

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/sshcollectorpro/netdev/pkg/netdev"
)

// 命令文本包含该片段即认为可能切换了上下文（changeto context/system）
const contextChangeMarker = "changet"

// 连接步骤名称
const (
	StepEstablishConnection = "establish_connection"
	StepSetBasePrompt       = "set_base_prompt"
	StepEnable              = "enable"
	StepDisablePaging       = "disable_paging"
	StepCheckMultipleMode   = "check_multiple_mode"
)

// Session Cisco ASA 会话叠加层
// 同一会话上的操作严格串行，不做内部加锁
type Session struct {
	host    string
	collab  netdev.SessionCollaborator
	catalog *Catalog
	sink    netdev.EventSink

	identity     SessionIdentity
	multipleMode bool
	state        State
	failedStep   string
}

// Option 会话构造选项
type Option func(*Session)

// WithHost 设置事件中的主机标识
func WithHost(host string) Option {
	return func(s *Session) { s.host = host }
}

// WithCatalog 替换命令表
func WithCatalog(c *Catalog) Option {
	return func(s *Session) {
		if c != nil {
			s.catalog = c
		}
	}
}

// WithEventSink 注入事件接收端
func WithEventSink(sink netdev.EventSink) Option {
	return func(s *Session) {
		if sink != nil {
			s.sink = sink
		}
	}
}

// NewSession 创建 ASA 会话
func NewSession(collab netdev.SessionCollaborator, opts ...Option) *Session {
	s := &Session{
		collab:   collab,
		catalog:  DefaultCatalog(),
		sink:     netdev.NopSink{},
		identity: SessionIdentity{CurrentContext: DefaultContext},
		state:    StateDisconnected,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Connect 建立连接 -> 设置基础提示符 -> enable -> 关闭分页 -> 检查多上下文模式
func (s *Session) Connect(ctx context.Context) error {
	s.state = StateDisconnected
	s.failedStep = ""
	s.multipleMode = false
	s.emit(netdev.EventConnecting, nil)

	if err := s.collab.EstablishConnection(ctx); err != nil {
		return s.fail(StepEstablishConnection, err)
	}
	s.state = StateTransportEstablished

	if err := s.setBasePrompt(ctx); err != nil {
		return s.fail(StepSetBasePrompt, err)
	}
	s.state = StatePromptKnown

	if err := s.collab.EnterPrivilegedMode(ctx); err != nil {
		return s.fail(StepEnable, err)
	}
	s.state = StatePrivileged

	if err := s.collab.DisablePaging(ctx); err != nil {
		return s.fail(StepDisablePaging, err)
	}
	s.state = StatePagingDisabled

	multiple, err := CheckMultipleMode(ctx, netdev.ExecutorFunc(func(ctx context.Context, text string) (string, error) {
		return s.dispatch(ctx, text, defaultSendOptions())
	}))
	if err != nil {
		return s.fail(StepCheckMultipleMode, err)
	}
	s.multipleMode = multiple
	s.emit(netdev.EventMultipleModeChecked, map[string]interface{}{"multiple_mode": multiple})

	s.state = StateReady
	s.emit(netdev.EventConnected, map[string]interface{}{
		"base_prompt":     s.identity.BasePrompt,
		"current_context": s.identity.CurrentContext,
	})
	return nil
}

// SendCommand 发送命令；命令包含 changet 时重新探测提示符以刷新上下文
// 返回值始终为原命令的输出
func (s *Session) SendCommand(ctx context.Context, text string, opts ...SendOption) (string, error) {
	if s.state == StateDisconnected || s.state == StateFailed {
		return "", fmt.Errorf("%w: state %s", ErrSessionNotReady, s.state)
	}
	o := defaultSendOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return s.dispatch(ctx, text, o)
}

// ChangeContext 切换安全上下文（system 表示切回系统上下文）
func (s *Session) ChangeContext(ctx context.Context, name string) (string, error) {
	if !s.multipleMode {
		return "", ErrSingleMode
	}
	cmd := "changeto context " + name
	if name == DefaultContext {
		cmd = "changeto system"
	}
	out, err := s.SendCommand(ctx, cmd)
	if err != nil {
		return out, err
	}
	if s.identity.CurrentContext != name {
		return out, fmt.Errorf("%w: want %q, device reports %q", ErrContextMismatch, name, s.identity.CurrentContext)
	}
	return out, nil
}

// Close 关闭底层连接（若协作者支持）
func (s *Session) Close() error {
	s.state = StateDisconnected
	if c, ok := s.collab.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

func (s *Session) Host() string              { return s.host }
func (s *Session) CurrentContext() string    { return s.identity.CurrentContext }
func (s *Session) MultipleMode() bool        { return s.multipleMode }
func (s *Session) BasePrompt() string        { return s.identity.BasePrompt }
func (s *Session) BasePattern() string       { return s.identity.BasePattern }
func (s *Session) Identity() SessionIdentity { return s.identity }
func (s *Session) State() State              { return s.state }
func (s *Session) Catalog() *Catalog         { return s.catalog }

// FailedStep 返回最近一次失败的步骤名
func (s *Session) FailedStep() string { return s.failedStep }

func (s *Session) dispatch(ctx context.Context, text string, o sendOptions) (string, error) {
	out, err := s.collab.SendCommandBase(ctx, text, o.stripPrompt, o.stripCommand)
	if err != nil {
		return out, err
	}
	if strings.Contains(text, contextChangeMarker) {
		if err := s.setBasePrompt(ctx); err != nil {
			// 提示符已不可信，后续命令不能再用旧的匹配模式
			s.state = StateFailed
			s.failedStep = StepSetBasePrompt
			s.emit(netdev.EventRefreshFailed, map[string]interface{}{"command": text, "error": err.Error()})
			return out, err
		}
	}
	return out, nil
}

// setBasePrompt 探测提示符并刷新 basePrompt、currentContext、basePattern
func (s *Session) setBasePrompt(ctx context.Context) error {
	raw, err := s.collab.FindPrompt(ctx)
	if err != nil {
		return err
	}
	id, err := ParsePrompt(raw, s.catalog)
	if err != nil {
		return err
	}
	prev := s.identity
	s.identity = id
	s.collab.SetBasePattern(id.Pattern())

	s.emit(netdev.EventBasePromptSet, map[string]interface{}{
		"base_prompt":     id.BasePrompt,
		"base_pattern":    id.BasePattern,
		"current_context": id.CurrentContext,
	})
	if prev.BasePattern != "" && prev.CurrentContext != id.CurrentContext {
		s.emit(netdev.EventContextRefreshed, map[string]interface{}{
			"from": prev.CurrentContext,
			"to":   id.CurrentContext,
		})
	}
	return nil
}

func (s *Session) fail(step string, err error) error {
	s.state = StateFailed
	s.failedStep = step
	s.emit(netdev.EventConnectFailed, map[string]interface{}{"step": step, "error": err.Error()})
	return err
}

func (s *Session) emit(name string, fields map[string]interface{}) {
	s.sink.Emit(netdev.Event{Host: s.host, Name: name, Fields: fields})
}
