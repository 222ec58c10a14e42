package ssh

import (
	"bufio"
	"fmt"
	"io"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sshcollectorpro/netdev/pkg/netdev"
)

// testCommands 最小命令目录
type testCommands map[string]string

func (c testCommands) Lookup(kind string) (string, error) {
	if v, ok := c[kind]; ok {
		return v, nil
	}
	return "", fmt.Errorf("unknown kind %q", kind)
}

func asaCommands() testCommands {
	return testCommands{
		netdev.KindDelimiterUnprivileged: ">",
		netdev.KindDelimiterPrivileged:   "#",
		netdev.KindDisablePaging:         "terminal pager 0",
		netdev.KindPrivEnter:             "enable",
	}
}

// fakeDevice 在 net.Pipe 另一端模拟带回显的设备 CLI
type fakeDevice struct {
	mu         sync.Mutex
	hostname   string
	privileged bool
	secret     string
	awaitPass  bool
	received   []string
	responses  map[string]string
	conn       net.Conn
}

func newFakeDevice(t *testing.T, hostname string) (*fakeDevice, net.Conn) {
	t.Helper()
	client, server := net.Pipe()
	d := &fakeDevice{
		hostname:  hostname,
		secret:    "s3cret",
		responses: map[string]string{},
		conn:      server,
	}
	go d.serve()
	t.Cleanup(func() {
		client.Close()
		server.Close()
	})
	return d, client
}

func (d *fakeDevice) prompt() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.privileged {
		return d.hostname + "# "
	}
	return d.hostname + "> "
}

func (d *fakeDevice) commands() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.received...)
}

func (d *fakeDevice) setResponse(cmd, out string) {
	d.mu.Lock()
	d.responses[cmd] = out
	d.mu.Unlock()
}

func (d *fakeDevice) send(s string) {
	_, _ = io.WriteString(d.conn, s)
}

func (d *fakeDevice) serve() {
	r := bufio.NewReader(d.conn)
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return
		}
		cmd := strings.TrimRight(line, "\r\n")

		d.mu.Lock()
		if d.awaitPass {
			d.awaitPass = false
			ok := cmd == d.secret
			if ok {
				d.privileged = true
			}
			d.mu.Unlock()
			if !ok {
				d.send("\r\nInvalid password\r\n")
			} else {
				d.send("\r\n")
			}
			d.send(d.prompt())
			continue
		}
		d.received = append(d.received, cmd)
		resp, hasResp := d.responses[cmd]
		d.mu.Unlock()

		// 回显
		d.send("\x1b[0m" + cmd + "\r\n")
		switch {
		case cmd == "":
		case cmd == "enable":
			d.mu.Lock()
			d.awaitPass = true
			d.mu.Unlock()
			d.send("Password: ")
			continue
		case cmd == "hang":
			continue
		case hasResp:
			d.send(strings.ReplaceAll(resp, "\n", "\r\n") + "\r\n")
		}
		d.send(d.prompt())
	}
}

func newTestShell(t *testing.T, conn net.Conn) *Shell {
	t.Helper()
	return NewShellFromConn(conn, ShellOptions{
		Commands:       asaCommands(),
		EnableSecret:   "s3cret",
		PromptTimeout:  2 * time.Second,
		CommandTimeout: 2 * time.Second,
		QuietPeriod:    20 * time.Millisecond,
	})
}
