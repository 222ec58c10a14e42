package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sshcollectorpro/netdev/pkg/netdev"
)

// Metrics 会话与命令指标，使用独立 registry
type Metrics struct {
	registry *prometheus.Registry

	sessionsOpened   *prometheus.CounterVec
	connectFailures  *prometheus.CounterVec
	commandsTotal    *prometheus.CounterVec
	contextRefreshes prometheus.Counter
	refreshFailures  prometheus.Counter
	commandDuration  prometheus.Histogram
}

// New 创建并注册指标；activeSessions 在每次抓取时读取
func New(activeSessions func() int) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		sessionsOpened: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "netdev_sessions_opened_total",
			Help: "Sessions opened, by platform and result.",
		}, []string{"platform", "result"}),
		connectFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "netdev_connect_failures_total",
			Help: "Connect sequence failures, by failing step.",
		}, []string{"step"}),
		commandsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "netdev_commands_total",
			Help: "Commands sent, by result.",
		}, []string{"result"}),
		contextRefreshes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "netdev_context_refreshes_total",
			Help: "Prompt re-parses that changed the current security context.",
		}),
		refreshFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "netdev_refresh_failures_total",
			Help: "Prompt re-parses after a context change command that failed.",
		}),
		commandDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "netdev_command_duration_seconds",
			Help:    "Command round-trip time.",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
		}),
	}
	m.registry.MustRegister(m.sessionsOpened, m.connectFailures, m.commandsTotal, m.contextRefreshes, m.refreshFailures, m.commandDuration)
	if activeSessions != nil {
		m.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "netdev_sessions_active",
			Help: "Sessions currently held open.",
		}, func() float64 { return float64(activeSessions()) }))
	}
	return m
}

// Registry 返回底层 registry
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler /metrics 处理器
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) SessionOpened(platform string, ok bool) {
	result := "success"
	if !ok {
		result = "failed"
	}
	m.sessionsOpened.WithLabelValues(platform, result).Inc()
}

func (m *Metrics) CommandDone(seconds float64, err error) {
	result := "success"
	if err != nil {
		result = "failed"
	}
	m.commandsTotal.WithLabelValues(result).Inc()
	m.commandDuration.Observe(seconds)
}

// Emit 实现 netdev.EventSink，从会话事件累计失败步骤与上下文刷新
func (m *Metrics) Emit(ev netdev.Event) {
	switch ev.Name {
	case netdev.EventConnectFailed:
		step, _ := ev.Fields["step"].(string)
		m.connectFailures.WithLabelValues(step).Inc()
	case netdev.EventContextRefreshed:
		m.contextRefreshes.Inc()
	case netdev.EventRefreshFailed:
		m.refreshFailures.Inc()
	}
}
