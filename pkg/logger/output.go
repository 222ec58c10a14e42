package logger

import (
	"strings"

	"github.com/sirupsen/logrus"
)

// OutputLines 命令输出的首尾若干行
type OutputLines struct {
	HeadLines []string `json:"head_lines"`
	TailLines []string `json:"tail_lines"`
}

// ParseOutputLines 提取输出首尾各 maxLines 行（默认 5）
func ParseOutputLines(output string, maxLines int) OutputLines {
	if maxLines <= 0 {
		maxLines = 5
	}
	output = strings.ReplaceAll(output, "\r\n", "\n")
	output = strings.ReplaceAll(output, "\r", "\n")
	if output == "" {
		return OutputLines{}
	}
	lines := strings.Split(output, "\n")
	n := len(lines)
	if n <= maxLines {
		return OutputLines{HeadLines: lines, TailLines: lines}
	}
	return OutputLines{
		HeadLines: append([]string(nil), lines[:maxLines]...),
		TailLines: append([]string(nil), lines[n-maxLines:]...),
	}
}

// DebugCommandOutput debug 级别记录命令输出摘要
func DebugCommandOutput(entry *logrus.Entry, command, output string, maxLines int) {
	if entry == nil {
		entry = logrus.NewEntry(GetLogger())
	}
	if !entry.Logger.IsLevelEnabled(logrus.DebugLevel) {
		return
	}
	lines := ParseOutputLines(output, maxLines)
	if len(lines.HeadLines) == 0 {
		return
	}
	f := logrus.Fields{"command": command, "head_lines": strings.Join(lines.HeadLines, " ⟩ ")}
	if len(lines.HeadLines) != len(lines.TailLines) || lines.HeadLines[0] != lines.TailLines[0] {
		f["tail_lines"] = strings.Join(lines.TailLines, " ⟩ ")
	}
	entry.WithFields(f).Debug("command output")
}
