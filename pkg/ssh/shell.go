package ssh

import (
	"context"
	"fmt"
	"io"
	"regexp"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/ssh"

	"github.com/sshcollectorpro/netdev/pkg/netdev"
)

var passwordPrompt = regexp.MustCompile(`(?i)password:?\s*$`)

// ShellOptions 交互式会话参数
type ShellOptions struct {
	Commands       netdev.Commands
	EnableSecret   string
	PromptTimeout  time.Duration
	CommandTimeout time.Duration
	// QuietPeriod 提示符出现后需保持静默的时长，用于吸收重复提示符
	QuietPeriod time.Duration
	Encodings   []string
}

func (o *ShellOptions) applyDefaults() {
	if o.PromptTimeout <= 0 {
		o.PromptTimeout = 10 * time.Second
	}
	if o.CommandTimeout <= 0 {
		o.CommandTimeout = 30 * time.Second
	}
	if o.QuietPeriod <= 0 {
		o.QuietPeriod = 100 * time.Millisecond
	}
}

// Shell 基于 PTY shell 的通用网络设备会话，实现 netdev.SessionCollaborator
type Shell struct {
	client *Client
	info   *ConnectionInfo
	opts   ShellOptions
	dec    *decoder

	mu         sync.Mutex
	session    *ssh.Session
	conn       io.ReadWriteCloser
	stdin      io.Writer
	buf        *outputBuffer
	pattern    *regexp.Regexp
	tail       *regexp.Regexp
	lastPrompt string
}

// NewShell 通过 SSH 客户端建立交互式会话
func NewShell(client *Client, info *ConnectionInfo, opts ShellOptions) *Shell {
	opts.applyDefaults()
	return &Shell{client: client, info: info, opts: opts, dec: newDecoder(opts.Encodings)}
}

// NewShellFromConn 在已有的双向流上运行（测试或非 SSH 传输）
func NewShellFromConn(conn io.ReadWriteCloser, opts ShellOptions) *Shell {
	opts.applyDefaults()
	return &Shell{conn: conn, opts: opts, dec: newDecoder(opts.Encodings)}
}

// EstablishConnection 建立连接并启动 PTY shell
func (s *Shell) EstablishConnection(ctx context.Context) error {
	if s.opts.Commands == nil {
		return ErrMissingCommands
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pattern, s.tail = nil, nil
	s.lastPrompt = ""

	if s.client == nil {
		return s.establishConn()
	}

	s.buf = newOutputBuffer()

	if s.session != nil {
		_ = s.session.Close()
		s.session = nil
	}
	if err := s.client.Connect(ctx, s.info); err != nil {
		return err
	}
	session, err := s.client.NewSession()
	if err != nil {
		return err
	}
	modes := ssh.TerminalModes{
		ssh.ECHO:          1,
		ssh.TTY_OP_ISPEED: 14400,
		ssh.TTY_OP_OSPEED: 14400,
	}
	var ptyErr error
	for _, term := range []string{"vt100", "xterm", "ansi", "dumb"} {
		if ptyErr = session.RequestPty(term, 511, 80, modes); ptyErr == nil {
			break
		}
	}
	if ptyErr != nil {
		session.Close()
		return transportErr("request_pty", ptyErr)
	}
	stdin, err := session.StdinPipe()
	if err != nil {
		session.Close()
		return transportErr("stdin", err)
	}
	stdout, err := session.StdoutPipe()
	if err != nil {
		session.Close()
		return transportErr("stdout", err)
	}
	session.Stderr = s.buf
	if err := session.Shell(); err != nil {
		session.Close()
		return transportErr("shell", err)
	}
	s.session = session
	s.stdin = stdin
	go s.readLoop(stdout, s.buf)
	return nil
}

// establishConn 流上只启动一个读协程；再次建立时复用它并清空缓冲，流已断开则报错
func (s *Shell) establishConn() error {
	if s.conn == nil {
		return transportErr("establish", ErrNotConnected)
	}
	if s.buf != nil {
		if _, err := s.buf.snapshot(); err != nil {
			return transportErr("establish", err)
		}
		s.buf.reset()
		return nil
	}
	s.buf = newOutputBuffer()
	s.stdin = s.conn
	go s.readLoop(s.conn, s.buf)
	return nil
}

func (s *Shell) readLoop(r io.Reader, buf *outputBuffer) {
	chunk := make([]byte, 4096)
	for {
		n, err := r.Read(chunk)
		if n > 0 {
			buf.Write(chunk[:n])
		}
		if err != nil {
			if err == io.EOF {
				err = ErrChannelClosed
			}
			buf.closeWithError(err)
			return
		}
	}
}

// SetBasePattern 设置判断输出结束的提示符正则
func (s *Shell) SetBasePattern(p *regexp.Regexp) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pattern = p
	s.tail = nil
	if p != nil {
		s.tail = regexp.MustCompile(`(?:` + p.String() + `)\s*$`)
	}
}

// LastPrompt 最近一次探测到的提示符
func (s *Shell) LastPrompt() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastPrompt
}

// FindPrompt 发送回车并读取设备提示符
func (s *Shell) FindPrompt(ctx context.Context) (string, error) {
	delims, err := s.delimiters()
	if err != nil {
		return "", err
	}
	s.buf.reset()
	if err := s.write("\n"); err != nil {
		return "", err
	}
	out, err := s.readUntil(ctx, s.opts.PromptTimeout, true, func(text string) bool {
		return endsWithAny(strings.TrimSpace(lastLine(text)), delims)
	})
	if err != nil {
		if err == ErrPatternTimeout {
			err = ErrPromptTimeout
		}
		return "", transportErr("find_prompt", err)
	}
	prompt := lastNonEmptyLine(out)
	s.mu.Lock()
	s.lastPrompt = prompt
	s.mu.Unlock()
	return prompt, nil
}

// EnterPrivilegedMode 当前不是特权提示符时发送 enable 并应答密码
func (s *Shell) EnterPrivilegedMode(ctx context.Context) error {
	priv, err := s.opts.Commands.Lookup(netdev.KindDelimiterPrivileged)
	if err != nil {
		return err
	}
	unpriv, err := s.opts.Commands.Lookup(netdev.KindDelimiterUnprivileged)
	if err != nil {
		return err
	}
	enable, err := s.opts.Commands.Lookup(netdev.KindPrivEnter)
	if err != nil {
		return err
	}
	if strings.HasSuffix(s.LastPrompt(), priv) {
		return nil
	}

	s.buf.reset()
	if err := s.write(enable + "\n"); err != nil {
		return err
	}
	isPrompt := func(text string) bool {
		tail := strings.TrimSpace(lastLine(text))
		return passwordPrompt.MatchString(tail) || endsWithAny(tail, []string{priv, unpriv})
	}
	out, err := s.readUntil(ctx, s.opts.PromptTimeout, false, isPrompt)
	if err != nil {
		return transportErr("enable", err)
	}
	if passwordPrompt.MatchString(strings.TrimSpace(lastLine(out))) {
		s.buf.reset()
		if err := s.write(s.opts.EnableSecret + "\n"); err != nil {
			return err
		}
		out, err = s.readUntil(ctx, s.opts.PromptTimeout, false, isPrompt)
		if err != nil {
			return transportErr("enable", err)
		}
	}
	prompt := strings.TrimSpace(lastLine(out))
	if !strings.HasSuffix(prompt, priv) {
		return fmt.Errorf("%w: prompt %q", ErrEnableFailed, prompt)
	}
	s.mu.Lock()
	s.lastPrompt = prompt
	s.mu.Unlock()
	return nil
}

// DisablePaging 关闭分页
func (s *Shell) DisablePaging(ctx context.Context) error {
	cmd, err := s.opts.Commands.Lookup(netdev.KindDisablePaging)
	if err != nil {
		return err
	}
	_, err = s.SendCommandBase(ctx, cmd, true, true)
	return err
}

// SendCommandBase 发送命令并读取到提示符为止
func (s *Shell) SendCommandBase(ctx context.Context, text string, stripPrompt, stripCommand bool) (string, error) {
	match, err := s.completion()
	if err != nil {
		return "", err
	}
	s.buf.reset()
	if err := s.write(text + "\n"); err != nil {
		return "", err
	}
	out, err := s.readUntil(ctx, s.opts.CommandTimeout, false, func(t string) bool {
		// 只看末尾未完结的一行，避免命中回显行中的提示符
		return match(lastLine(t))
	})
	if err != nil {
		return out, transportErr("send_command", err)
	}
	if stripCommand {
		out = stripEcho(out, text)
	}
	if stripPrompt {
		out = stripTrailingPrompt(out)
	}
	return out, nil
}

// Close 关闭会话与连接
func (s *Shell) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var firstErr error
	if s.session != nil {
		_ = s.session.Close()
		s.session = nil
	}
	if s.conn != nil {
		if err := s.conn.Close(); err != nil {
			firstErr = err
		}
	}
	if s.client != nil {
		if err := s.client.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (s *Shell) completion() (func(string) bool, error) {
	s.mu.Lock()
	tail := s.tail
	s.mu.Unlock()
	if tail != nil {
		return tail.MatchString, nil
	}
	delims, err := s.delimiters()
	if err != nil {
		return nil, err
	}
	return func(line string) bool {
		return endsWithAny(strings.TrimSpace(line), delims)
	}, nil
}

func (s *Shell) delimiters() ([]string, error) {
	if s.opts.Commands == nil {
		return nil, ErrMissingCommands
	}
	unpriv, err := s.opts.Commands.Lookup(netdev.KindDelimiterUnprivileged)
	if err != nil {
		return nil, err
	}
	priv, err := s.opts.Commands.Lookup(netdev.KindDelimiterPrivileged)
	if err != nil {
		return nil, err
	}
	return []string{unpriv, priv}, nil
}

func (s *Shell) write(data string) error {
	s.mu.Lock()
	w := s.stdin
	s.mu.Unlock()
	if w == nil {
		return transportErr("write", ErrNotConnected)
	}
	if _, err := io.WriteString(w, data); err != nil {
		return transportErr("write", err)
	}
	return nil
}

// readUntil 等待 done 成立；quiet 为 true 时还需在 QuietPeriod 内没有新输出
func (s *Shell) readUntil(ctx context.Context, timeout time.Duration, quiet bool, done func(string) bool) (string, error) {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

	for {
		raw, readErr := s.buf.snapshot()
		text := normalize(s.dec.String(raw))
		if done(text) {
			if !quiet {
				return text, nil
			}
			select {
			case <-s.buf.notify:
				continue
			case <-time.After(s.opts.QuietPeriod):
				return text, nil
			case <-ctx.Done():
				return text, ctx.Err()
			}
		}
		if readErr != nil {
			return text, readErr
		}
		select {
		case <-s.buf.notify:
		case <-deadline.C:
			if quiet {
				return text, ErrPromptTimeout
			}
			return text, ErrPatternTimeout
		case <-ctx.Done():
			return text, ctx.Err()
		}
	}
}

func endsWithAny(s string, suffixes []string) bool {
	for _, suf := range suffixes {
		if suf != "" && strings.HasSuffix(s, suf) {
			return true
		}
	}
	return false
}
