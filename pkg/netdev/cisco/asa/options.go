package asa

type sendOptions struct {
	stripPrompt  bool
	stripCommand bool
}

func defaultSendOptions() sendOptions {
	return sendOptions{stripPrompt: true, stripCommand: true}
}

// SendOption 命令发送选项
type SendOption func(*sendOptions)

// WithStripPrompt 是否去掉输出末尾的提示符（默认 true）
func WithStripPrompt(v bool) SendOption {
	return func(o *sendOptions) { o.stripPrompt = v }
}

// WithStripCommand 是否去掉输出开头的命令回显（默认 true）
func WithStripCommand(v bool) SendOption {
	return func(o *sendOptions) { o.stripCommand = v }
}
