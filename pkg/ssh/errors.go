package ssh

import (
	"errors"
	"fmt"
)

var (
	// ErrTransport 所有传输层错误均可用 errors.Is 匹配
	ErrTransport       = errors.New("transport error")
	ErrNotConnected    = errors.New("SSH connection not established")
	ErrPromptTimeout   = errors.New("timed out waiting for prompt")
	ErrPatternTimeout  = errors.New("timed out waiting for base pattern")
	ErrEnableFailed    = errors.New("failed to enter privileged mode")
	ErrChannelClosed   = errors.New("shell channel closed")
	ErrMissingCommands = errors.New("command catalog not configured")
)

// TransportError 连接、认证与读写失败
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

func (e *TransportError) Is(target error) bool { return target == ErrTransport }

func transportErr(op string, err error) error {
	if err == nil {
		return nil
	}
	var te *TransportError
	if errors.As(err, &te) {
		return err
	}
	return &TransportError{Op: op, Err: err}
}
