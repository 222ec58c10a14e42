package cisco_asa

import (
	"context"
	"time"

	"github.com/sshcollectorpro/netdev/addone/interact"
	"github.com/sshcollectorpro/netdev/pkg/netdev"
	"github.com/sshcollectorpro/netdev/pkg/netdev/cisco/asa"
)

// Name 平台名称
const Name = "cisco_asa"

// Plugin 为 cisco_asa 平台交互插件
type Plugin struct {
	catalog *asa.Catalog
}

// New 使用默认命令目录
func New() *Plugin {
	return &Plugin{catalog: asa.DefaultCatalog()}
}

func (p *Plugin) Name() string { return Name }

func (p *Plugin) Defaults() interact.InteractDefaults {
	// ASA 上下文切换后重新探测提示符，命令超时留得宽一些
	return interact.InteractDefaults{
		PromptTimeout:  10 * time.Second,
		CommandTimeout: 60 * time.Second,
		Retries:        1,
		Concurrent:     5,
	}
}

func (p *Plugin) Commands() netdev.Commands { return p.catalog }

func (p *Plugin) CatalogEntries() map[string]string { return p.catalog.Entries() }

func (p *Plugin) NewSession(params interact.SessionParams) interact.VendorSession {
	return &session{Session: asa.NewSession(params.Collab,
		asa.WithHost(params.Host),
		asa.WithCatalog(p.catalog),
		asa.WithEventSink(params.Sink),
	)}
}

// session 适配 asa.Session 到 interact.VendorSession
type session struct {
	*asa.Session
}

func (s *session) Send(ctx context.Context, req interact.SendRequest) (string, error) {
	return s.SendCommand(ctx, req.Command,
		asa.WithStripPrompt(req.StripPrompt),
		asa.WithStripCommand(req.StripCommand),
	)
}

func (s *session) State() string { return s.Session.State().String() }

func init() {
	// 注册到交互插件中心
	interact.Register(Name, New())
}
