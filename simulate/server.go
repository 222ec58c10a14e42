package simulate

import (
	"bufio"
	"crypto/ed25519"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/ssh"

	"github.com/sshcollectorpro/netdev/pkg/logger"
)

// Server 模拟 ASA 的 SSH 服务
type Server struct {
	cfg      Config
	hostKey  ssh.Signer
	listener net.Listener

	mu     sync.Mutex
	active map[net.Conn]struct{}
	wg     sync.WaitGroup
}

// NewServer 校验配置并准备 host key
func NewServer(cfg Config) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	signer, err := loadOrCreateHostKey(cfg.HostKeyFile)
	if err != nil {
		return nil, fmt.Errorf("failed to init host key: %w", err)
	}
	return &Server{cfg: cfg, hostKey: signer, active: make(map[net.Conn]struct{})}, nil
}

// Start 创建并启动模拟服务
func Start(cfg Config) (*Server, error) {
	s, err := NewServer(cfg)
	if err != nil {
		return nil, err
	}
	if err := s.Start(); err != nil {
		return nil, err
	}
	return s, nil
}

// Config 返回模拟器配置
func (s *Server) Config() Config {
	return s.cfg
}

// Addr 实际监听地址
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Start 开始监听
func (s *Server) Start() error {
	listen := s.cfg.Listen
	if listen == "" {
		listen = "127.0.0.1:0"
	}
	ln, err := net.Listen("tcp", listen)
	if err != nil {
		return err
	}
	s.listener = ln
	logger.WithFields(logrus.Fields{"addr": ln.Addr().String(), "hostname": s.cfg.Hostname, "mode": s.cfg.Mode}).
		Info("Simulate: listener started")

	s.wg.Add(1)
	go s.acceptLoop()
	return nil
}

// Stop 关闭监听与所有活动连接
func (s *Server) Stop() {
	if s.listener != nil {
		_ = s.listener.Close()
	}
	s.mu.Lock()
	for c := range s.active {
		_ = c.Close()
	}
	s.mu.Unlock()
	s.wg.Wait()
	logger.WithField("hostname", s.cfg.Hostname).Info("Simulate: server stopped")
}

func (s *Server) acceptLoop() {
	defer s.wg.Done()
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				time.Sleep(200 * time.Millisecond)
				continue
			}
			// listener closed
			return
		}
		s.mu.Lock()
		if s.cfg.MaxConn > 0 && len(s.active) >= s.cfg.MaxConn {
			s.mu.Unlock()
			_ = conn.Close()
			logger.WithField("remote", conn.RemoteAddr().String()).Warn("Simulate: reject connection, max_conn exceeded")
			continue
		}
		s.active[conn] = struct{}{}
		s.mu.Unlock()

		s.wg.Add(1)
		go func(c net.Conn) {
			defer s.wg.Done()
			s.handleConn(c)
			s.mu.Lock()
			delete(s.active, c)
			s.mu.Unlock()
		}(conn)
	}
}

func (s *Server) checkPassword(user, pass string) bool {
	if s.cfg.Username != "" && user != s.cfg.Username {
		return false
	}
	return pass == s.cfg.Password
}

func (s *Server) handleConn(nc net.Conn) {
	defer nc.Close()
	srvCfg := &ssh.ServerConfig{
		PasswordCallback: func(meta ssh.ConnMetadata, password []byte) (*ssh.Permissions, error) {
			if s.checkPassword(meta.User(), string(password)) {
				return nil, nil
			}
			logger.WithField("user", meta.User()).Debug("Simulate: auth failed (password)")
			return nil, fmt.Errorf("access denied")
		},
		KeyboardInteractiveCallback: func(meta ssh.ConnMetadata, challenge ssh.KeyboardInteractiveChallenge) (*ssh.Permissions, error) {
			answers, err := challenge(meta.User(), "Authentication", []string{"Password:"}, []bool{false})
			if err != nil {
				return nil, err
			}
			if len(answers) > 0 && s.checkPassword(meta.User(), answers[0]) {
				return nil, nil
			}
			return nil, fmt.Errorf("access denied")
		},
	}
	srvCfg.AddHostKey(s.hostKey)

	conn, chans, reqs, err := ssh.NewServerConn(nc, srvCfg)
	if err != nil {
		logger.WithFields(logrus.Fields{"remote": nc.RemoteAddr().String(), "error": err}).Debug("Simulate: SSH handshake failed")
		return
	}
	defer conn.Close()
	go ssh.DiscardRequests(reqs)

	for ch := range chans {
		if ch.ChannelType() != "session" {
			_ = ch.Reject(ssh.UnknownChannelType, "unknown channel type")
			continue
		}
		channel, requests, err := ch.Accept()
		if err != nil {
			logger.WithField("error", err).Error("Simulate: channel accept failed")
			continue
		}
		go s.handleSession(channel, requests)
	}
}

func (s *Server) handleSession(channel ssh.Channel, requests <-chan *ssh.Request) {
	defer channel.Close()
	for req := range requests {
		switch req.Type {
		case "pty-req", "window-change", "env":
			_ = req.Reply(true, nil)
		case "shell":
			_ = req.Reply(true, nil)
			s.runShell(channel)
			return
		case "exec":
			var payload struct{ Command string }
			if err := ssh.Unmarshal(req.Payload, &payload); err != nil {
				_ = req.Reply(false, nil)
				return
			}
			_ = req.Reply(true, nil)
			d := newDevice(&s.cfg)
			d.privileged = true
			if out := d.handle(payload.Command); out != "" {
				_, _ = io.WriteString(channel, ensureCRLF(out)+"\r\n")
			}
			_, _ = channel.SendRequest("exit-status", false, ssh.Marshal(struct{ Status uint32 }{0}))
			return
		default:
			_ = req.Reply(false, nil)
		}
	}
}

// runShell 交互式 CLI：回显输入、执行、输出提示符
func (s *Server) runShell(channel ssh.Channel) {
	d := newDevice(&s.cfg)
	write := func(str string) {
		_, _ = io.WriteString(channel, str)
	}
	for i := 0; i < s.cfg.BannerLines; i++ {
		write("\r\n")
	}
	write(d.prompt())

	lines := make(chan string)
	done := make(chan struct{})
	defer close(done)
	go func() {
		defer close(lines)
		r := bufio.NewReader(channel)
		for {
			line, err := r.ReadString('\n')
			if err != nil {
				return
			}
			select {
			case lines <- strings.TrimRight(line, "\r\n"):
			case <-done:
				return
			}
		}
	}()

	var idle <-chan time.Time
	var timer *time.Timer
	if s.cfg.IdleTimeout > 0 {
		timer = time.NewTimer(s.cfg.IdleTimeout)
		defer timer.Stop()
		idle = timer.C
	}

	for {
		var line string
		var ok bool
		select {
		case line, ok = <-lines:
			if !ok {
				return
			}
		case <-idle:
			write("\r\nSession closed due to idle timeout.\r\n")
			return
		}
		if timer != nil {
			timer.Reset(s.cfg.IdleTimeout)
		}

		if d.echo() {
			write(line + "\r\n")
		} else {
			write("\r\n")
		}
		logger.WithFields(logrus.Fields{"hostname": s.cfg.Hostname, "context": d.context, "cmd": line}).Debug("Simulate: input")

		if out := d.handle(line); out != "" {
			write(ensureCRLF(out) + "\r\n")
		}
		if d.closed {
			return
		}
		if d.awaitingSecret {
			write("Password: ")
			continue
		}
		write(d.prompt())
	}
}

// loadOrCreateHostKey 未配置路径时使用内存 ed25519 密钥；否则加载或生成持久化 RSA 密钥
func loadOrCreateHostKey(path string) (ssh.Signer, error) {
	if path == "" {
		_, priv, err := ed25519.GenerateKey(rand.Reader)
		if err != nil {
			return nil, fmt.Errorf("failed to generate host key: %w", err)
		}
		return ssh.NewSignerFromKey(priv)
	}

	if bs, err := os.ReadFile(path); err == nil {
		signer, err := ssh.ParsePrivateKey(bs)
		if err == nil {
			logger.WithField("file", path).Debug("Simulate: host key loaded")
			return signer, nil
		}
		logger.WithField("error", err).Warn("Simulate: host key parse failed, regenerating")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to ensure host key dir: %w", err)
	}
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return nil, fmt.Errorf("failed to generate host key: %w", err)
	}
	pemBytes := pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)})
	if err := os.WriteFile(path, pemBytes, 0o600); err != nil {
		return nil, fmt.Errorf("failed to write host key: %w", err)
	}
	signer, err := ssh.ParsePrivateKey(pemBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse generated host key: %w", err)
	}
	logger.WithField("file", path).Info("Simulate: host key generated")
	return signer, nil
}
