package asa

import (
	"context"
	"regexp"
	"strings"
)

// fakeCollaborator 按脚本返回提示符与命令输出，并记录调用顺序
type fakeCollaborator struct {
	prompts  []string
	outputs  map[string]string
	stepErrs map[string]error
	cmdErrs  map[string]error

	calls          []string
	sent           []string
	findPromptHits int
	pattern        *regexp.Regexp
	closed         bool
}

func newFakeCollaborator(prompts ...string) *fakeCollaborator {
	return &fakeCollaborator{
		prompts:  prompts,
		outputs:  map[string]string{"show mode": "Security context mode: single"},
		stepErrs: map[string]error{},
		cmdErrs:  map[string]error{},
	}
}

func (f *fakeCollaborator) EstablishConnection(ctx context.Context) error {
	f.calls = append(f.calls, "establish")
	return f.stepErrs["establish"]
}

func (f *fakeCollaborator) FindPrompt(ctx context.Context) (string, error) {
	f.calls = append(f.calls, "find_prompt")
	f.findPromptHits++
	if err := f.stepErrs["find_prompt"]; err != nil {
		return "", err
	}
	if len(f.prompts) == 0 {
		return "", nil
	}
	p := f.prompts[0]
	if len(f.prompts) > 1 {
		f.prompts = f.prompts[1:]
	}
	return p, nil
}

func (f *fakeCollaborator) EnterPrivilegedMode(ctx context.Context) error {
	f.calls = append(f.calls, "enable")
	return f.stepErrs["enable"]
}

func (f *fakeCollaborator) DisablePaging(ctx context.Context) error {
	f.calls = append(f.calls, "disable_paging")
	return f.stepErrs["disable_paging"]
}

func (f *fakeCollaborator) SendCommandBase(ctx context.Context, text string, stripPrompt, stripCommand bool) (string, error) {
	f.calls = append(f.calls, "send:"+text)
	f.sent = append(f.sent, text)
	if err := f.cmdErrs[text]; err != nil {
		return "", err
	}
	if out, ok := f.outputs[text]; ok {
		return out, nil
	}
	return "output of " + strings.TrimSpace(text), nil
}

func (f *fakeCollaborator) SetBasePattern(p *regexp.Regexp) {
	f.pattern = p
}

func (f *fakeCollaborator) Close() error {
	f.closed = true
	return nil
}
