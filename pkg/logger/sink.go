package logger

import (
	"github.com/sirupsen/logrus"

	"github.com/sshcollectorpro/netdev/pkg/netdev"
)

// EventSink 将会话事件写为结构化日志
type EventSink struct {
	l *logrus.Logger
}

// NewEventSink 使用全局 logger；l 非空时使用指定实例
func NewEventSink(l *logrus.Logger) *EventSink {
	return &EventSink{l: l}
}

func (s *EventSink) Emit(ev netdev.Event) {
	l := s.l
	if l == nil {
		l = GetLogger()
	}
	fields := logrus.Fields{"host": ev.Host, "event": ev.Name}
	for k, v := range ev.Fields {
		fields[k] = v
	}
	entry := l.WithFields(fields)
	switch ev.Name {
	case netdev.EventConnectFailed, netdev.EventRefreshFailed:
		entry.Warn("session event")
	case netdev.EventConnecting, netdev.EventConnected, netdev.EventContextRefreshed:
		entry.Info("session event")
	default:
		entry.Debug("session event")
	}
}
