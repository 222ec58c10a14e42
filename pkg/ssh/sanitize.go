package ssh

import (
	"regexp"
	"strings"
)

var ansiEscape = regexp.MustCompile(`\x1b\[[0-9;?]*[A-Za-z]|\x1b[()][A-Za-z0-9]|\x1b[=>]`)

// normalize 统一换行并移除 ANSI 控制序列与不可见控制符
func normalize(s string) string {
	s = ansiEscape.ReplaceAllString(s, "")
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "")
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r < 0x20 && r != '\n' && r != '\t' {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// lastLine 返回最后一个换行之后的内容（提示符所在的未完结行）
func lastLine(s string) string {
	if i := strings.LastIndex(s, "\n"); i >= 0 {
		return s[i+1:]
	}
	return s
}

// lastNonEmptyLine 返回最后一个非空行
func lastNonEmptyLine(s string) string {
	lines := strings.Split(s, "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if l := strings.TrimSpace(lines[i]); l != "" {
			return l
		}
	}
	return ""
}

// stripEcho 去掉首行命令回显
func stripEcho(output, command string) string {
	cmd := strings.TrimSpace(command)
	if cmd == "" {
		return output
	}
	i := strings.Index(output, "\n")
	first := output
	if i >= 0 {
		first = output[:i]
	}
	if !strings.Contains(first, cmd) {
		return output
	}
	if i < 0 {
		return ""
	}
	return output[i+1:]
}

// stripTrailingPrompt 去掉末尾提示符行
func stripTrailingPrompt(output string) string {
	trimmed := strings.TrimRight(output, " \t")
	if i := strings.LastIndex(trimmed, "\n"); i >= 0 {
		return trimmed[:i]
	}
	return ""
}
