package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sshcollectorpro/netdev/pkg/netdev"
)

func TestParseOutputLines(t *testing.T) {
	lines := ParseOutputLines("a\r\nb\nc\rd\ne\nf\ng", 2)
	assert.Equal(t, []string{"a", "b"}, lines.HeadLines)
	assert.Equal(t, []string{"f", "g"}, lines.TailLines)

	short := ParseOutputLines("x\ny", 5)
	assert.Equal(t, short.HeadLines, short.TailLines)

	assert.Empty(t, ParseOutputLines("", 3).HeadLines)
}

func TestEventSinkWritesFields(t *testing.T) {
	var buf bytes.Buffer
	l := logrus.New()
	l.SetOutput(&buf)
	l.SetFormatter(&logrus.JSONFormatter{})
	l.SetLevel(logrus.DebugLevel)

	NewEventSink(l).Emit(netdev.Event{
		Host:   "fw1",
		Name:   netdev.EventContextRefreshed,
		Fields: map[string]interface{}{"from": "system", "to": "admin"},
	})

	var rec map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "fw1", rec["host"])
	assert.Equal(t, "context_refreshed", rec["event"])
	assert.Equal(t, "admin", rec["to"])
	assert.Equal(t, "info", rec["level"])
}

func TestNewDefaultsToInfo(t *testing.T) {
	l, err := New(Config{Level: "nonsense", Output: "console"})
	require.NoError(t, err)
	assert.Equal(t, logrus.InfoLevel, l.GetLevel())
}
