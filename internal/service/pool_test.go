package service

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionPoolReserveCountsPending(t *testing.T) {
	p := newSessionPool()

	require.NoError(t, p.reserve(2))
	require.NoError(t, p.reserve(2))
	// 两个名额都在连接中，第三个必须被拒绝
	assert.ErrorIs(t, p.reserve(2), ErrSessionLimit)

	p.release()
	require.NoError(t, p.reserve(2))

	now := time.Now()
	p.commit(&managedSession{id: "a", created: now, active: now})
	p.commit(&managedSession{id: "b", created: now.Add(time.Second), active: now})
	assert.Equal(t, 2, p.getActiveCount())
	assert.Equal(t, map[string]interface{}{"active_sessions": 2, "pending_sessions": 0}, p.GetStats())
	assert.ErrorIs(t, p.reserve(2), ErrSessionLimit)

	all := p.all()
	require.Len(t, all, 2)
	assert.Equal(t, "a", all[0].id)

	ms, ok := p.remove("a")
	require.True(t, ok)
	assert.Equal(t, "a", ms.id)
	_, ok = p.get("a")
	assert.False(t, ok)
	require.NoError(t, p.reserve(2))
	p.release()

	// 0 表示不限制
	require.NoError(t, p.reserve(0))
	p.release()
}

func TestSessionPoolConcurrentReserve(t *testing.T) {
	p := newSessionPool()
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		granted int
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if p.reserve(5) == nil {
				mu.Lock()
				granted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 5, granted)
	assert.Equal(t, 5, p.GetStats()["pending_sessions"])
}

func TestSessionPoolExpiredSkipsLocked(t *testing.T) {
	p := newSessionPool()
	old := time.Now().Add(-time.Hour)
	idle := &managedSession{id: "idle", created: old, active: old}
	busy := &managedSession{id: "busy", created: old, active: old}
	fresh := &managedSession{id: "fresh", created: old, active: time.Now()}
	for _, ms := range []*managedSession{idle, busy, fresh} {
		require.NoError(t, p.reserve(0))
		p.commit(ms)
	}

	busy.mu.Lock()
	defer busy.mu.Unlock()
	assert.Equal(t, []string{"idle"}, p.expired(time.Now(), time.Minute))
}
