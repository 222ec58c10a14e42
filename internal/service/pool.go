package service

import (
	"fmt"
	"sort"
	"sync"
	"time"
)

// sessionPool 会话池
// 活跃会话与正在连接的预留名额在同一把锁下计数，max_sessions 对并发 Open 同样生效
type sessionPool struct {
	mutex    sync.RWMutex
	sessions map[string]*managedSession
	pending  int
}

func newSessionPool() *sessionPool {
	return &sessionPool{sessions: make(map[string]*managedSession)}
}

// reserve 为一次连接预留名额；maxActive <= 0 表示不限制
func (p *sessionPool) reserve(maxActive int) error {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	if maxActive > 0 && len(p.sessions)+p.pending >= maxActive {
		return fmt.Errorf("%w (%d)", ErrSessionLimit, maxActive)
	}
	p.pending++
	return nil
}

// release 连接失败时归还预留名额
func (p *sessionPool) release() {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	if p.pending > 0 {
		p.pending--
	}
}

// commit 预留名额转为活跃会话
func (p *sessionPool) commit(ms *managedSession) {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	if p.pending > 0 {
		p.pending--
	}
	p.sessions[ms.id] = ms
}

func (p *sessionPool) get(id string) (*managedSession, bool) {
	p.mutex.RLock()
	defer p.mutex.RUnlock()
	ms, ok := p.sessions[id]
	return ms, ok
}

func (p *sessionPool) remove(id string) (*managedSession, bool) {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	ms, ok := p.sessions[id]
	delete(p.sessions, id)
	return ms, ok
}

// all 按创建时间排序的会话列表
func (p *sessionPool) all() []*managedSession {
	p.mutex.RLock()
	out := make([]*managedSession, 0, len(p.sessions))
	for _, ms := range p.sessions {
		out = append(out, ms)
	}
	p.mutex.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].created.Before(out[j].created) })
	return out
}

// getActiveCount 活跃会话数（不含预留）
func (p *sessionPool) getActiveCount() int {
	p.mutex.RLock()
	defer p.mutex.RUnlock()
	return len(p.sessions)
}

// expired 超过 idle 未活动且当前没有命令在途的会话
func (p *sessionPool) expired(now time.Time, idle time.Duration) []string {
	p.mutex.RLock()
	defer p.mutex.RUnlock()
	var ids []string
	for id, ms := range p.sessions {
		if !ms.mu.TryLock() {
			continue
		}
		if now.Sub(ms.active) > idle {
			ids = append(ids, id)
		}
		ms.mu.Unlock()
	}
	return ids
}

// GetStats 会话池统计
func (p *sessionPool) GetStats() map[string]interface{} {
	p.mutex.RLock()
	defer p.mutex.RUnlock()
	return map[string]interface{}{
		"active_sessions":  len(p.sessions),
		"pending_sessions": p.pending,
	}
}
