package interact

import (
	"context"
	"time"

	"github.com/sshcollectorpro/netdev/pkg/netdev"
)

// InteractDefaults 定义交互层的默认运行参数
type InteractDefaults struct {
	PromptTimeout  time.Duration
	CommandTimeout time.Duration
	Retries        int // 连接重试次数
	Concurrent     int // 批量连接并发数
}

// SendRequest 单条命令及输出裁剪选项
type SendRequest struct {
	Command      string
	StripPrompt  bool
	StripCommand bool
}

// VendorSession 厂商会话叠加层对服务层暴露的能力
type VendorSession interface {
	Connect(ctx context.Context) error
	Send(ctx context.Context, req SendRequest) (string, error)
	ChangeContext(ctx context.Context, name string) (string, error)
	CurrentContext() string
	MultipleMode() bool
	BasePrompt() string
	BasePattern() string
	State() string
	FailedStep() string
	Close() error
}

// SessionParams 创建厂商会话所需的依赖
type SessionParams struct {
	Host   string
	Collab netdev.SessionCollaborator
	Sink   netdev.EventSink
}

// InteractPlugin 交互插件接口
type InteractPlugin interface {
	// Name 插件名称（如：cisco_asa）
	Name() string
	// Defaults 返回插件的默认运行参数
	Defaults() InteractDefaults
	// Commands 返回平台命令目录，供通用 shell 查找分隔符与分页命令
	Commands() netdev.Commands
	// CatalogEntries 返回命令目录全部条目
	CatalogEntries() map[string]string
	// NewSession 在协作者之上创建厂商会话
	NewSession(p SessionParams) VendorSession
}
