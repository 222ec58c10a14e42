package netdev

import (
	"context"
	"regexp"
)

// SessionCollaborator 通用会话能力（建立连接、提示符探测、提权、关闭分页、收发命令）
// 厂商叠加层通过组合持有该接口，而不是继承具体实现
type SessionCollaborator interface {
	EstablishConnection(ctx context.Context) error
	FindPrompt(ctx context.Context) (string, error)
	EnterPrivilegedMode(ctx context.Context) error
	DisablePaging(ctx context.Context) error
	SendCommandBase(ctx context.Context, text string, stripPrompt, stripCommand bool) (string, error)
	// SetBasePattern 设置判断命令输出结束的提示符正则
	SetBasePattern(pattern *regexp.Regexp)
}

// CommandExecutor 单条命令执行能力
type CommandExecutor interface {
	SendCommand(ctx context.Context, text string) (string, error)
}

// ExecutorFunc 函数适配 CommandExecutor
type ExecutorFunc func(ctx context.Context, text string) (string, error)

func (f ExecutorFunc) SendCommand(ctx context.Context, text string) (string, error) {
	return f(ctx, text)
}

// Commands 厂商命令表查询（基础会话据此获取 enable、分页等命令字面量）
type Commands interface {
	Lookup(kind string) (string, error)
}
