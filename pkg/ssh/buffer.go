package ssh

import (
	"bytes"
	"sync"
)

// outputBuffer 读协程写入、命令协程消费的输出缓冲
type outputBuffer struct {
	mu     sync.Mutex
	data   bytes.Buffer
	err    error
	notify chan struct{}
}

func newOutputBuffer() *outputBuffer {
	return &outputBuffer{notify: make(chan struct{}, 1)}
}

func (b *outputBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	n, _ := b.data.Write(p)
	b.mu.Unlock()
	b.signal()
	return n, nil
}

func (b *outputBuffer) closeWithError(err error) {
	b.mu.Lock()
	if b.err == nil {
		b.err = err
	}
	b.mu.Unlock()
	b.signal()
}

func (b *outputBuffer) signal() {
	select {
	case b.notify <- struct{}{}:
	default:
	}
}

func (b *outputBuffer) snapshot() ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]byte(nil), b.data.Bytes()...), b.err
}

// reset 丢弃尚未消费的输出，保留读错误
func (b *outputBuffer) reset() {
	b.mu.Lock()
	b.data.Reset()
	b.mu.Unlock()
}
