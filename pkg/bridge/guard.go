package bridge

import (
	"sync"
	"sync/atomic"

	"github.com/vango-dev/reaxar/internal/goid"
)

// settleGuard is a mutex the holding goroutine may take again. A FetchState
// subscriber runs while the guard is held and may call Refetch, Update or
// Dispose from its callback. A subscriber that hands such a call to another
// goroutine and waits for it deadlocks.
type settleGuard struct {
	mu    sync.Mutex
	owner atomic.Uint64
}

// lock acquires the guard and returns the func that releases it. Nested
// calls on the owning goroutine get a no-op release.
func (g *settleGuard) lock() (unlock func()) {
	id := goid.ID()
	if g.owner.Load() == id {
		return func() {}
	}
	g.mu.Lock()
	g.owner.Store(id)
	return func() {
		g.owner.Store(0)
		g.mu.Unlock()
	}
}
