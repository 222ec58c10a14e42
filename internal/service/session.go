package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/sshcollectorpro/netdev/addone/interact"
	"github.com/sshcollectorpro/netdev/internal/config"
	"github.com/sshcollectorpro/netdev/internal/database"
	"github.com/sshcollectorpro/netdev/internal/metrics"
	"github.com/sshcollectorpro/netdev/internal/model"
	"github.com/sshcollectorpro/netdev/pkg/logger"
	"github.com/sshcollectorpro/netdev/pkg/netdev"
	"github.com/sshcollectorpro/netdev/pkg/ssh"
)

var (
	ErrSessionNotFound     = errors.New("session not found")
	ErrSessionLimit        = errors.New("session limit reached")
	ErrUnsupportedPlatform = errors.New("unsupported platform")
	ErrDeviceNotFound      = errors.New("device not found in inventory")
	ErrInvalidRequest      = errors.New("invalid request")
)

// DefaultPlatform 未指定平台时使用
const DefaultPlatform = "cisco_asa"

// OpenRequest 打开会话请求；Name 非空时从设备清单取连接参数
type OpenRequest struct {
	Name           string `json:"name,omitempty"`
	Host           string `json:"host,omitempty"`
	Port           int    `json:"port,omitempty"`
	Username       string `json:"username,omitempty"`
	Password       string `json:"password,omitempty"`
	EnablePassword string `json:"enable_password,omitempty"`
	Platform       string `json:"platform,omitempty"`
}

// CommandRequest 命令执行请求；裁剪选项缺省为 true
type CommandRequest struct {
	Commands     []string `json:"commands"`
	StripPrompt  *bool    `json:"strip_prompt,omitempty"`
	StripCommand *bool    `json:"strip_command,omitempty"`
}

// CommandResult 单条命令结果
type CommandResult struct {
	Command       string `json:"command"`
	Output        string `json:"output"`
	ContextBefore string `json:"context_before"`
	ContextAfter  string `json:"context_after"`
	Refreshed     bool   `json:"refreshed"`
	OutputRef     string `json:"output_ref,omitempty"`
	Error         string `json:"error,omitempty"`
	DurationMS    int64  `json:"duration_ms"`
}

// ConnectResult 批量连接中单台设备的结果
type ConnectResult struct {
	Name    string       `json:"name"`
	Session *SessionInfo `json:"session,omitempty"`
	Error   string       `json:"error,omitempty"`
}

// SessionInfo 会话对外视图
type SessionInfo struct {
	ID             string     `json:"id"`
	Name           string     `json:"name,omitempty"`
	Host           string     `json:"host"`
	Port           int        `json:"port"`
	Platform       string     `json:"platform"`
	State          string     `json:"state"`
	FailedStep     string     `json:"failed_step,omitempty"`
	Error          string     `json:"error,omitempty"`
	BasePrompt     string     `json:"base_prompt"`
	BasePattern    string     `json:"base_pattern"`
	CurrentContext string     `json:"current_context"`
	MultipleMode   bool       `json:"multiple_mode"`
	ConnectedAt    *time.Time `json:"connected_at,omitempty"`
	LastActiveAt   time.Time  `json:"last_active_at"`
}

// CollaboratorFactory 为一次打开请求构造通用基础会话
type CollaboratorFactory func(req OpenRequest, plugin interact.InteractPlugin) netdev.SessionCollaborator

// managedSession 服务持有的会话；mu 保证同一会话同时只有一条命令在途
// vs 与 active、seq、lastErr 只在持有 mu 时访问，查询走 snap 快照
type managedSession struct {
	mu       sync.Mutex
	id       string
	req      OpenRequest
	vs       interact.VendorSession
	created  time.Time
	active   time.Time
	seq      int
	lastErr  string
	connTime *time.Time

	snapMu sync.RWMutex
	snap   SessionInfo
}

// publish 刷新快照，调用方须持有 mu（或会话尚未登记）
func (m *managedSession) publish() SessionInfo {
	info := m.info()
	m.snapMu.Lock()
	m.snap = info
	m.snapMu.Unlock()
	return info
}

// snapshot 最近一次发布的会话视图，不等待在途命令
func (m *managedSession) snapshot() SessionInfo {
	m.snapMu.RLock()
	defer m.snapMu.RUnlock()
	return m.snap
}

func (m *managedSession) info() SessionInfo {
	return SessionInfo{
		ID:             m.id,
		Name:           m.req.Name,
		Host:           m.req.Host,
		Port:           m.req.Port,
		Platform:       m.req.Platform,
		State:          m.vs.State(),
		FailedStep:     m.vs.FailedStep(),
		Error:          m.lastErr,
		BasePrompt:     m.vs.BasePrompt(),
		BasePattern:    m.vs.BasePattern(),
		CurrentContext: m.vs.CurrentContext(),
		MultipleMode:   m.vs.MultipleMode(),
		ConnectedAt:    m.connTime,
		LastActiveAt:   m.active,
	}
}

func (m *managedSession) label() string {
	if m.req.Name != "" {
		return m.req.Name
	}
	return m.req.Host
}

// SessionService 会话管理服务
type SessionService struct {
	config    *config.Config
	storage   StorageWriter
	metrics   *metrics.Metrics
	sink      netdev.EventSink
	newCollab CollaboratorFactory

	pool     *sessionPool
	mutex    sync.Mutex
	running  bool
	stopChan chan struct{}
	wg       sync.WaitGroup
}

// ServiceOption 服务构造选项
type ServiceOption func(*SessionService)

// WithStorage 设置输出归档写入器
func WithStorage(w StorageWriter) ServiceOption {
	return func(s *SessionService) { s.storage = w }
}

// WithMetrics 设置指标
func WithMetrics(m *metrics.Metrics) ServiceOption {
	return func(s *SessionService) { s.metrics = m }
}

// WithEventSink 追加会话事件接收端
func WithEventSink(sink netdev.EventSink) ServiceOption {
	return func(s *SessionService) { s.sink = sink }
}

// WithCollaboratorFactory 替换基础会话构造（测试用）
func WithCollaboratorFactory(f CollaboratorFactory) ServiceOption {
	return func(s *SessionService) { s.newCollab = f }
}

// NewSessionService 创建会话服务
func NewSessionService(cfg *config.Config, opts ...ServiceOption) *SessionService {
	s := &SessionService{
		config:   cfg,
		pool:     newSessionPool(),
		stopChan: make(chan struct{}),
	}
	s.newCollab = s.sshCollaborator
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start 启动空闲会话清理
func (s *SessionService) Start(ctx context.Context) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if s.running {
		return fmt.Errorf("session service is already running")
	}
	s.running = true
	s.wg.Add(1)
	go s.cleanupLoop(ctx)
	logger.WithFields(logrus.Fields{
		"idle_timeout":     s.config.SSH.IdleTimeout,
		"cleanup_interval": s.config.SSH.CleanupInterval,
	}).Info("Session service started")
	return nil
}

// Stop 停止清理并关闭所有会话
func (s *SessionService) Stop() {
	s.mutex.Lock()
	if s.running {
		close(s.stopChan)
		s.running = false
	}
	s.mutex.Unlock()
	s.wg.Wait()

	for _, ms := range s.pool.all() {
		_ = s.Close(ms.id)
	}
	logger.Info("Session service stopped")
}

// Active 当前持有的会话数
func (s *SessionService) Active() int {
	return s.pool.getActiveCount()
}

// Stats 会话池统计，用于健康检查
func (s *SessionService) Stats() map[string]interface{} {
	return s.pool.GetStats()
}

// Open 连接设备并登记会话。连接失败时返回带失败步骤的会话视图与错误
func (s *SessionService) Open(ctx context.Context, req OpenRequest) (*SessionInfo, error) {
	req, err := s.resolve(req)
	if err != nil {
		return nil, err
	}
	plugin, ok := interact.Get(req.Platform)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedPlatform, req.Platform)
	}
	// 名额在连接前预留，并发 Open 不会越过 max_sessions
	if err := s.pool.reserve(s.config.SSH.MaxSessions); err != nil {
		return nil, err
	}

	ms := &managedSession{id: uuid.NewString(), req: req, created: time.Now()}
	sinks := netdev.MultiSink{logger.NewEventSink(nil)}
	if s.metrics != nil {
		sinks = append(sinks, s.metrics)
	}
	if s.sink != nil {
		sinks = append(sinks, s.sink)
	}
	ms.vs = plugin.NewSession(interact.SessionParams{
		Host:   ms.label(),
		Collab: s.newCollab(req, plugin),
		Sink:   sinks,
	})

	attempts := 1 + plugin.Defaults().Retries
	for i := 0; i < attempts; i++ {
		err = ms.vs.Connect(ctx)
		if err == nil || !errors.Is(err, ssh.ErrTransport) || ctx.Err() != nil {
			break
		}
		logger.WithFields(logrus.Fields{"host": ms.label(), "attempt": i + 1, "error": err}).Warn("Connect failed, retrying")
	}
	ms.active = time.Now()
	if s.metrics != nil {
		s.metrics.SessionOpened(req.Platform, err == nil)
	}
	if err != nil {
		s.pool.release()
		ms.lastErr = err.Error()
		info := ms.publish()
		s.persistSession(ms, nil)
		_ = ms.vs.Close()
		return &info, err
	}
	now := time.Now()
	ms.connTime = &now

	info := ms.publish()
	s.pool.commit(ms)
	s.persistSession(ms, nil)
	return &info, nil
}

// resolve 合并设备清单与默认值
func (s *SessionService) resolve(req OpenRequest) (OpenRequest, error) {
	if req.Name != "" && req.Host == "" {
		d, ok := s.config.Device(req.Name)
		if !ok {
			return req, fmt.Errorf("%w: %s", ErrDeviceNotFound, req.Name)
		}
		req.Host, req.Port, req.Platform = d.Host, d.Port, firstNonEmpty(req.Platform, d.Platform)
		req.Username = firstNonEmpty(req.Username, d.Username)
		req.Password = firstNonEmpty(req.Password, d.Password)
		req.EnablePassword = firstNonEmpty(req.EnablePassword, s.config.EnablePasswordFor(d))
	}
	if strings.TrimSpace(req.Host) == "" {
		return req, fmt.Errorf("%w: host is required", ErrInvalidRequest)
	}
	if req.Port == 0 {
		req.Port = 22
	}
	req.Platform = firstNonEmpty(req.Platform, DefaultPlatform)
	req.EnablePassword = firstNonEmpty(req.EnablePassword, s.config.ASA.EnablePassword)
	return req, nil
}

// sshCollaborator 默认基础会话：SSH 客户端 + PTY shell
func (s *SessionService) sshCollaborator(req OpenRequest, plugin interact.InteractPlugin) netdev.SessionCollaborator {
	d := plugin.Defaults()
	client := ssh.NewClient(&ssh.Config{
		Timeout:   s.config.SSH.ConnectTimeout,
		KeepAlive: s.config.SSH.KeepAliveInterval,
	})
	return ssh.NewShell(client, &ssh.ConnectionInfo{
		Host:     req.Host,
		Port:     req.Port,
		Username: req.Username,
		Password: req.Password,
	}, ssh.ShellOptions{
		Commands:       plugin.Commands(),
		EnableSecret:   req.EnablePassword,
		PromptTimeout:  firstPositive(s.config.SSH.PromptTimeout, d.PromptTimeout),
		CommandTimeout: firstPositive(s.config.SSH.CommandTimeout, d.CommandTimeout),
		QuietPeriod:    s.config.SSH.QuietPeriod,
		Encodings:      s.config.ASA.Encodings,
	})
}

func (s *SessionService) lookup(id string) (*managedSession, error) {
	ms, ok := s.pool.get(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return ms, nil
}

// Execute 顺序执行命令；某条失败时停止并返回已完成的结果
func (s *SessionService) Execute(ctx context.Context, id string, req CommandRequest) ([]CommandResult, error) {
	if len(req.Commands) == 0 {
		return nil, fmt.Errorf("%w: commands is empty", ErrInvalidRequest)
	}
	ms, err := s.lookup(id)
	if err != nil {
		return nil, err
	}
	ms.mu.Lock()
	defer ms.mu.Unlock()

	send := interact.SendRequest{StripPrompt: true, StripCommand: true}
	if req.StripPrompt != nil {
		send.StripPrompt = *req.StripPrompt
	}
	if req.StripCommand != nil {
		send.StripCommand = *req.StripCommand
	}

	results := make([]CommandResult, 0, len(req.Commands))
	var runErr error
	for _, cmd := range req.Commands {
		send.Command = cmd
		res, err := s.runOne(ctx, ms, send)
		results = append(results, res)
		if err != nil {
			runErr = fmt.Errorf("command %q failed: %w", cmd, err)
			ms.lastErr = res.Error
			break
		}
	}
	ms.active = time.Now()
	ms.publish()
	s.persistSession(ms, nil)
	return results, runErr
}

func (s *SessionService) runOne(ctx context.Context, ms *managedSession, req interact.SendRequest) (CommandResult, error) {
	before := ms.vs.CurrentContext()
	start := time.Now()
	out, err := ms.vs.Send(ctx, req)
	elapsed := time.Since(start)
	ms.seq++

	res := CommandResult{
		Command:       req.Command,
		Output:        out,
		ContextBefore: before,
		ContextAfter:  ms.vs.CurrentContext(),
		DurationMS:    elapsed.Milliseconds(),
	}
	res.Refreshed = res.ContextBefore != res.ContextAfter
	if err != nil {
		res.Error = err.Error()
	}
	if s.metrics != nil {
		s.metrics.CommandDone(elapsed.Seconds(), err)
	}

	if s.storage != nil && err == nil {
		obj, werr := s.storage.Write(ctx, StorageMeta{
			SessionID: ms.id,
			Device:    ms.label(),
			Context:   before,
			Command:   req.Command,
			Seq:       ms.seq,
			Time:      start,
		}, out)
		if werr != nil {
			logger.WithFields(logrus.Fields{"session_id": ms.id, "error": werr}).Warn("Archive command output failed")
		}
		res.OutputRef = obj.URI
	}

	logger.WithFields(logrus.Fields{
		"session_id": ms.id,
		"host":       ms.label(),
		"command":    req.Command,
		"context":    res.ContextAfter,
		"refreshed":  res.Refreshed,
		"elapsed":    elapsed,
	}).Debug("Command executed")
	logger.DebugCommandOutput(logger.WithField("session_id", ms.id), req.Command, out, 20)

	s.persistCommand(ms, res)
	return res, err
}

// ChangeContext 切换安全上下文
func (s *SessionService) ChangeContext(ctx context.Context, id, name string) (*SessionInfo, string, error) {
	if strings.TrimSpace(name) == "" {
		return nil, "", fmt.Errorf("%w: context is required", ErrInvalidRequest)
	}
	ms, err := s.lookup(id)
	if err != nil {
		return nil, "", err
	}
	ms.mu.Lock()
	defer ms.mu.Unlock()

	before := ms.vs.CurrentContext()
	out, err := ms.vs.ChangeContext(ctx, name)
	ms.active = time.Now()
	ms.seq++
	res := CommandResult{Command: "changeto " + name, Output: out, ContextBefore: before, ContextAfter: ms.vs.CurrentContext()}
	res.Refreshed = res.ContextBefore != res.ContextAfter
	if err != nil {
		res.Error = err.Error()
		ms.lastErr = err.Error()
	}
	s.persistCommand(ms, res)
	info := ms.publish()
	s.persistSession(ms, nil)
	return &info, out, err
}

// Get 查询会话
func (s *SessionService) Get(id string) (*SessionInfo, error) {
	ms, err := s.lookup(id)
	if err != nil {
		return nil, err
	}
	info := ms.snapshot()
	return &info, nil
}

// List 列出所有会话（按创建时间）
func (s *SessionService) List() []SessionInfo {
	all := s.pool.all()
	out := make([]SessionInfo, 0, len(all))
	for _, ms := range all {
		out = append(out, ms.snapshot())
	}
	return out
}

// Close 关闭并移除会话
func (s *SessionService) Close(id string) error {
	ms, ok := s.pool.remove(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}

	ms.mu.Lock()
	defer ms.mu.Unlock()
	err := ms.vs.Close()
	ms.publish()
	now := time.Now()
	s.persistSession(ms, &now)
	logger.WithFields(logrus.Fields{"session_id": id, "host": ms.label()}).Info("Session closed")
	return err
}

// ConnectAll 按清单名称并发打开会话，并发度取 ssh.concurrent，未配置时取默认平台插件的值
func (s *SessionService) ConnectAll(ctx context.Context, names []string) []ConnectResult {
	if len(names) == 0 {
		for name := range s.config.Devices {
			names = append(names, name)
		}
		sort.Strings(names)
	}
	results := make([]ConnectResult, len(names))

	g, gctx := errgroup.WithContext(ctx)
	limit := s.config.SSH.Concurrent
	if limit <= 0 {
		if p, ok := interact.Get(DefaultPlatform); ok {
			limit = p.Defaults().Concurrent
		}
	}
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i, name := range names {
		i, name := i, name
		g.Go(func() error {
			info, err := s.Open(gctx, OpenRequest{Name: name})
			results[i] = ConnectResult{Name: name, Session: info}
			if err != nil {
				results[i].Error = err.Error()
			}
			// 单台失败不影响其他设备
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func (s *SessionService) cleanupLoop(ctx context.Context) {
	defer s.wg.Done()
	interval := s.config.SSH.CleanupInterval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.closeIdle(time.Now())
		}
	}
}

// closeIdle 关闭超过 idle_timeout 未活动的会话，跳过正在执行命令的会话
func (s *SessionService) closeIdle(now time.Time) int {
	idle := s.config.SSH.IdleTimeout
	if idle <= 0 {
		return 0
	}
	expired := s.pool.expired(now, idle)
	for _, id := range expired {
		logger.WithField("session_id", id).Info("Closing idle session")
		_ = s.Close(id)
	}
	return len(expired)
}

func (s *SessionService) persistSession(ms *managedSession, closedAt *time.Time) {
	if database.GetDB() == nil {
		return
	}
	info := ms.snapshot()
	rec := model.DeviceSession{
		ID:             ms.id,
		Name:           info.Name,
		Host:           info.Host,
		Port:           info.Port,
		Username:       ms.req.Username,
		Platform:       info.Platform,
		State:          info.State,
		FailedStep:     info.FailedStep,
		ErrorMsg:       info.Error,
		BasePrompt:     info.BasePrompt,
		BasePattern:    info.BasePattern,
		CurrentContext: info.CurrentContext,
		MultipleMode:   info.MultipleMode,
		ConnectedAt:    info.ConnectedAt,
		LastActiveAt:   info.LastActiveAt,
		ClosedAt:       closedAt,
		CreatedAt:      ms.created,
	}
	if closedAt != nil {
		rec.State = model.SessionStateClosed
	}
	err := database.WithRetry(func(db *gorm.DB) error { return db.Save(&rec).Error }, 3, 50*time.Millisecond)
	if err != nil {
		logger.WithFields(logrus.Fields{"session_id": ms.id, "error": err}).Warn("Persist session failed")
	}
}

func (s *SessionService) persistCommand(ms *managedSession, res CommandResult) {
	if database.GetDB() == nil {
		return
	}
	rec := model.CommandLog{
		ID:            uuid.NewString(),
		SessionID:     ms.id,
		Command:       res.Command,
		ContextBefore: res.ContextBefore,
		ContextAfter:  res.ContextAfter,
		Refreshed:     res.Refreshed,
		OutputBytes:   len(res.Output),
		OutputRef:     res.OutputRef,
		ErrorMsg:      res.Error,
		Duration:      res.DurationMS,
	}
	err := database.WithRetry(func(db *gorm.DB) error { return db.Create(&rec).Error }, 3, 50*time.Millisecond)
	if err != nil {
		logger.WithFields(logrus.Fields{"session_id": ms.id, "error": err}).Warn("Persist command log failed")
	}
}

// CommandLogs 查询会话的命令记录
func (s *SessionService) CommandLogs(id string) ([]model.CommandLog, error) {
	if database.GetDB() == nil {
		return nil, fmt.Errorf("database not initialized")
	}
	var logs []model.CommandLog
	err := database.GetDB().Where("session_id = ?", id).Order("created_at asc").Find(&logs).Error
	return logs, err
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func firstPositive(vals ...time.Duration) time.Duration {
	for _, v := range vals {
		if v > 0 {
			return v
		}
	}
	return 0
}
