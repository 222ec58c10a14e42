package asa

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownCommandKind = errors.New("unknown command kind")
	ErrMalformedPrompt    = errors.New("malformed prompt")
	ErrSessionNotReady    = errors.New("session not ready")
	ErrSingleMode         = errors.New("device is not in multiple context mode")
	ErrContextMismatch    = errors.New("context mismatch")
)

// UnknownCommandKindError 命令表中不存在的逻辑键
type UnknownCommandKindError struct {
	Kind string
}

func (e *UnknownCommandKindError) Error() string {
	return fmt.Sprintf("unknown command kind %q", e.Kind)
}

func (e *UnknownCommandKindError) Is(target error) bool {
	return target == ErrUnknownCommandKind
}

// MalformedPromptError 原始提示符不以结束符结尾
type MalformedPromptError struct {
	Prompt string
	Reason string
}

func (e *MalformedPromptError) Error() string {
	return fmt.Sprintf("malformed prompt %q: %s", e.Prompt, e.Reason)
}

func (e *MalformedPromptError) Is(target error) bool {
	return target == ErrMalformedPrompt
}
