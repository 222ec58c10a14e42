package simulate

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const invalidInput = "ERROR: % Invalid input detected at '^' marker."

// device 单个 SSH 会话内的 ASA CLI 状态
type device struct {
	cfg *Config

	privileged     bool
	context        string // 空表示系统执行空间
	configMode     bool
	awaitingSecret bool
	closed         bool
}

func newDevice(cfg *Config) *device {
	return &device{cfg: cfg, context: cfg.LoginContext}
}

// prompt 形如 host[/ctx][(config)]> 或 #
func (d *device) prompt() string {
	var b strings.Builder
	b.WriteString(d.cfg.Hostname)
	if d.context != "" {
		b.WriteString("/")
		b.WriteString(d.context)
	}
	if d.configMode {
		b.WriteString("(config)")
	}
	if d.privileged {
		b.WriteString("# ")
	} else {
		b.WriteString("> ")
	}
	return b.String()
}

// echo 输入密码时不回显
func (d *device) echo() bool {
	return !d.awaitingSecret
}

// handle 处理一行输入，返回应输出的文本（不含提示符）
func (d *device) handle(line string) string {
	if d.awaitingSecret {
		d.awaitingSecret = false
		if line == d.cfg.EnableSecret {
			d.privileged = true
			return ""
		}
		return "Invalid password"
	}

	cmd := strings.Join(strings.Fields(line), " ")
	lower := strings.ToLower(cmd)
	fields := strings.Fields(lower)
	if len(fields) == 0 {
		return ""
	}

	switch {
	case equalAny(lower, "exit", "quit", "logout"):
		if d.configMode {
			d.configMode = false
			return ""
		}
		d.closed = true
		return "Logoff"
	case equalAny(lower, "enable", "en"):
		if !d.privileged {
			d.awaitingSecret = true
		}
		return ""
	case lower == "disable":
		d.privileged = false
		d.configMode = false
		return ""
	case strings.HasPrefix(lower, "terminal pager"):
		return ""
	case lower == "show mode":
		if d.cfg.Multiple() {
			return "Security context mode: multiple"
		}
		return "Security context mode: single"
	case fields[0] == "changeto":
		return d.changeto(fields)
	case lower == "show context":
		return d.showContext()
	case equalAny(lower, "conf t", "configure terminal"):
		if !d.privileged {
			return invalidInput
		}
		d.configMode = true
		return ""
	case lower == "end":
		if !d.configMode {
			return invalidInput
		}
		d.configMode = false
		return ""
	case lower == "show version":
		if out := d.loadOutput(cmd); out != "" {
			return out
		}
		return fmt.Sprintf("Cisco Adaptive Security Appliance Software Version 9.8(4)\n\n%s up 3 days 2 hours", d.cfg.Hostname)
	}

	if out := d.loadOutput(cmd); out != "" {
		return out
	}
	return invalidInput
}

func (d *device) changeto(fields []string) string {
	if !d.cfg.Multiple() || !d.privileged {
		return invalidInput
	}
	switch {
	case len(fields) == 2 && fields[1] == "system":
		d.context = ""
	case len(fields) == 3 && fields[1] == "context":
		if !d.cfg.hasContext(fields[2]) {
			return fmt.Sprintf("ERROR: Context '%s' hasn't been created", fields[2])
		}
		d.context = fields[2]
	default:
		return invalidInput
	}
	d.configMode = false
	return ""
}

func (d *device) showContext() string {
	if !d.cfg.Multiple() {
		return invalidInput
	}
	names := append([]string(nil), d.cfg.Contexts...)
	sort.Strings(names)
	var b strings.Builder
	b.WriteString("Context Name      Class                Interfaces           Mode         URL")
	for _, n := range names {
		marker := " "
		if n == "admin" {
			marker = "*"
		}
		fmt.Fprintf(&b, "\n%s%-17sdefault              Management0/0        Routed       disk0:/%s.cfg", marker, n, n)
	}
	fmt.Fprintf(&b, "\n\nTotal active Security Contexts: %d", len(names))
	return b.String()
}

// loadOutput 依次查找内联输出、<dir>/<context>/<cmd>.txt、<dir>/<cmd>.txt
func (d *device) loadOutput(cmd string) string {
	if out, ok := d.cfg.Outputs[strings.ToLower(cmd)]; ok {
		return strings.TrimRight(out, "\r\n")
	}
	if d.cfg.OutputDir == "" || !safeOutputName(cmd) {
		return ""
	}
	scope := d.context
	if scope == "" {
		scope = "system"
	}
	names := []string{cmd + ".txt", strings.ReplaceAll(cmd, " ", "_") + ".txt"}
	for _, dir := range []string{filepath.Join(d.cfg.OutputDir, scope), d.cfg.OutputDir} {
		for _, name := range names {
			if bs, err := os.ReadFile(filepath.Join(dir, name)); err == nil {
				return strings.TrimRight(strings.ReplaceAll(string(bs), "\r\n", "\n"), "\n")
			}
		}
	}
	return ""
}

// safeOutputName 命令文本只能映射到 OutputDir 内的文件名
func safeOutputName(cmd string) bool {
	return cmd != "" && !strings.ContainsAny(cmd, `/\`+"\x00") && !strings.Contains(cmd, "..")
}

func equalAny(s string, opts ...string) bool {
	for _, o := range opts {
		if s == o {
			return true
		}
	}
	return false
}

func ensureCRLF(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\n", "\r\n")
}
