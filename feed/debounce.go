package feed

import (
	"sync"
	"time"
)

// DefaultDebounceDelay matches how long a cycle picker waits for the user
// to stop scrolling.
const DefaultDebounceDelay = 2 * time.Second

// Debouncer delays a call per key. Triggering a key again before the delay
// elapses cancels the pending call and starts over with the new one.
type Debouncer struct {
	Delay time.Duration

	clock   Clock
	mu      sync.Mutex
	pending map[string]*debouncedCall
}

type debouncedCall struct {
	timer Timer
	fn    func()
}

func NewDebouncer(clock Clock, delay time.Duration) *Debouncer {
	if delay <= 0 {
		delay = DefaultDebounceDelay
	}
	return &Debouncer{
		Delay:   delay,
		clock:   clock,
		pending: make(map[string]*debouncedCall),
	}
}

// Trigger schedules fn for key after Delay, replacing any pending call.
func (d *Debouncer) Trigger(key string, fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if prev, ok := d.pending[key]; ok {
		prev.timer.Stop()
	}

	call := &debouncedCall{fn: fn}
	call.timer = d.clock.AfterFunc(d.Delay, func() {
		d.mu.Lock()
		if d.pending[key] != call {
			d.mu.Unlock()
			return
		}
		delete(d.pending, key)
		d.mu.Unlock()
		call.fn()
	})
	d.pending[key] = call
}

// Pending reports whether key has a call waiting.
func (d *Debouncer) Pending(key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.pending[key]
	return ok
}

// Flush runs every pending call now.
func (d *Debouncer) Flush() {
	for _, fn := range d.drain() {
		fn()
	}
}

// Stop cancels every pending call.
func (d *Debouncer) Stop() {
	d.drain()
}

func (d *Debouncer) drain() []func() {
	d.mu.Lock()
	defer d.mu.Unlock()

	fns := make([]func(), 0, len(d.pending))
	for key, call := range d.pending {
		if call.timer.Stop() {
			fns = append(fns, call.fn)
		}
		delete(d.pending, key)
	}
	return fns
}
