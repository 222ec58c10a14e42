package netdev

// 叠加层事件名称
const (
	EventConnecting          = "connecting"
	EventConnected           = "connected"
	EventConnectFailed       = "connect_failed"
	EventBasePromptSet       = "base_prompt_set"
	EventMultipleModeChecked = "multiple_mode_checked"
	EventContextRefreshed    = "context_refreshed"
	EventRefreshFailed       = "refresh_failed"
)

// Event 结构化运行事件
type Event struct {
	Host   string
	Name   string
	Fields map[string]interface{}
}

// EventSink 事件接收端，由调用方注入（日志、指标等）
type EventSink interface {
	Emit(ev Event)
}

// SinkFunc 函数适配 EventSink
type SinkFunc func(ev Event)

func (f SinkFunc) Emit(ev Event) { f(ev) }

// NopSink 丢弃所有事件
type NopSink struct{}

func (NopSink) Emit(Event) {}

// MultiSink 将事件分发到多个接收端
type MultiSink []EventSink

func (m MultiSink) Emit(ev Event) {
	for _, s := range m {
		if s != nil {
			s.Emit(ev)
		}
	}
}
