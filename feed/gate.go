package feed

import (
	"sync"
	"time"
)

// RefreshGate enforces a minimum interval between refreshes of the same
// key. It replaces process-wide "last updated" timestamps with a value
// owned by whoever fetches the data.
type RefreshGate struct {
	MinInterval time.Duration

	clock Clock
	mu    sync.Mutex
	last  map[string]time.Time
}

func NewRefreshGate(clock Clock, minInterval time.Duration) *RefreshGate {
	return &RefreshGate{
		MinInterval: minInterval,
		clock:       clock,
		last:        make(map[string]time.Time),
	}
}

// Allow reports whether key may refresh now: it never refreshed, or at
// least MinInterval passed since the last Mark.
func (g *RefreshGate) Allow(key string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	last, ok := g.last[key]
	if !ok {
		return true
	}
	return g.clock.Now().Sub(last) >= g.MinInterval
}

// Mark records a refresh of key at the current time.
func (g *RefreshGate) Mark(key string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.last[key] = g.clock.Now()
}

// Reset forgets key, so the next Allow returns true.
func (g *RefreshGate) Reset(key string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.last, key)
}
