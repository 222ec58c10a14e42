package asa

import (
	"fmt"
	"regexp"
	"strings"
)

const (
	// DefaultContext 单模式或提示符不带上下文时的上下文名称
	DefaultContext = "system"
	// 设备可能截断过长的提示符，只匹配稳定的前缀
	basePromptPrefixLen = 12
)

// SessionIdentity 由提示符解析出的会话标识
type SessionIdentity struct {
	BasePrompt     string `json:"base_prompt"`
	CurrentContext string `json:"current_context"`
	BasePattern    string `json:"base_pattern"`
}

// Pattern 返回编译后的 BasePattern，未解析时为 nil
func (id SessionIdentity) Pattern() *regexp.Regexp {
	if id.BasePattern == "" {
		return nil
	}
	return regexp.MustCompile(id.BasePattern)
}

// ParsePrompt 解析 ASA 提示符 basePrompt[/context][>|#]
func ParsePrompt(raw string, cat *Catalog) (SessionIdentity, error) {
	unpriv := cat.MustLookup(KindDelimiterUnprivileged)
	priv := cat.MustLookup(KindDelimiterPrivileged)

	prompt := strings.TrimSpace(raw)
	if prompt == "" {
		return SessionIdentity{}, &MalformedPromptError{Prompt: raw, Reason: "empty prompt"}
	}
	switch {
	case strings.HasSuffix(prompt, priv):
		prompt = strings.TrimSuffix(prompt, priv)
	case strings.HasSuffix(prompt, unpriv):
		prompt = strings.TrimSuffix(prompt, unpriv)
	default:
		return SessionIdentity{}, &MalformedPromptError{Prompt: raw, Reason: "missing delimiter"}
	}

	ctxName := DefaultContext
	if i := strings.LastIndex(prompt, "/"); i >= 0 {
		if name := prompt[i+1:]; name != "" {
			ctxName = name
		}
		prompt = prompt[:i]
	}
	if prompt == "" {
		return SessionIdentity{}, &MalformedPromptError{Prompt: raw, Reason: "empty base prompt"}
	}

	return SessionIdentity{
		BasePrompt:     prompt,
		CurrentContext: ctxName,
		BasePattern:    buildBasePattern(prompt, unpriv, priv),
	}, nil
}

func buildBasePattern(basePrompt, unpriv, priv string) string {
	prefix := basePrompt
	if r := []rune(prefix); len(r) > basePromptPrefixLen {
		prefix = string(r[:basePromptPrefixLen])
	}
	return fmt.Sprintf(`%s.*(\/\w+)?(\(.*?\))?[%s|%s]`,
		regexp.QuoteMeta(prefix), regexp.QuoteMeta(unpriv), regexp.QuoteMeta(priv))
}
