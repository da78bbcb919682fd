/*
feed.go - Cached, throttled access to a user's transactions

PURPOSE:
  Views recompute cycles constantly; the datastore should not be hit every
  time. TransactionFeed keeps the last list per user and decides when it is
  worth reloading.

RELOAD RULES (first match wins):
  1. Nothing cached                              -> reload
  2. Cache older than MaxAge                     -> reload
  3. Gate open AND change signalled since load   -> reload
  4. Otherwise                                   -> cached list

  Concurrent reloads for the same user share one datastore call
  (singleflight). Writes call Invalidate, which debounces the change
  signal so a burst of edits produces one signal.

  Forget bumps the user's generation. A reload that started before the
  bump still answers its callers but does not populate the cache, and
  later callers start a new reload instead of joining it.

SEE ALSO:
  - gate.go:     RefreshGate
  - debounce.go: Debouncer
  - signal.go:   ChangeSignal
*/
package feed

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/warp/budget-engine/budget"
)

const (
	DefaultMinInterval = 30 * time.Second
	DefaultMaxAge      = 10 * time.Minute
)

// Config tunes a TransactionFeed. Zero values take the defaults.
type Config struct {
	MinInterval   time.Duration
	MaxAge        time.Duration
	DebounceDelay time.Duration
}

func (c Config) withDefaults() Config {
	if c.MinInterval <= 0 {
		c.MinInterval = DefaultMinInterval
	}
	if c.MaxAge <= 0 {
		c.MaxAge = DefaultMaxAge
	}
	if c.DebounceDelay <= 0 {
		c.DebounceDelay = DefaultDebounceDelay
	}
	return c
}

type cachedList struct {
	txs      []budget.Transaction
	loadedAt time.Time
}

// TransactionFeed serves per-user transaction lists from a cache.
type TransactionFeed struct {
	store    budget.TransactionStore
	signal   *ChangeSignal
	gate     *RefreshGate
	debounce *Debouncer
	clock    Clock
	maxAge   time.Duration
	log      logrus.FieldLogger

	group singleflight.Group

	mu     sync.RWMutex
	cache  map[budget.UserID]cachedList
	gen    map[budget.UserID]uint64
	allGen uint64
}

func NewTransactionFeed(store budget.TransactionStore, flags budget.FlagStore, clock Clock, cfg Config, log logrus.FieldLogger) *TransactionFeed {
	if clock == nil {
		clock = SystemClock{}
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	cfg = cfg.withDefaults()
	return &TransactionFeed{
		store:    store,
		signal:   NewChangeSignal(flags, clock),
		gate:     NewRefreshGate(clock, cfg.MinInterval),
		debounce: NewDebouncer(clock, cfg.DebounceDelay),
		clock:    clock,
		maxAge:   cfg.MaxAge,
		log:      log.WithField("component", "feed"),
		cache:    make(map[budget.UserID]cachedList),
		gen:      make(map[budget.UserID]uint64),
	}
}

// Transactions returns the user's transactions, reloading them when the
// rules above say so. If the freshness check fails but a list is cached,
// the cached list is served.
func (f *TransactionFeed) Transactions(ctx context.Context, user budget.UserID) ([]budget.Transaction, error) {
	entry, ok := f.cached(user)
	if !ok {
		return f.reload(ctx, user)
	}

	stale, err := f.stale(ctx, user, entry)
	if err != nil {
		f.log.WithError(err).WithField("user_id", user).Warn("freshness check failed, serving cached transactions")
		return cloneTransactions(entry.txs), nil
	}
	if stale {
		return f.reload(ctx, user)
	}
	return cloneTransactions(entry.txs), nil
}

// Refresh reloads user's transactions now, ignoring the gate.
func (f *TransactionFeed) Refresh(ctx context.Context, user budget.UserID) ([]budget.Transaction, error) {
	f.gate.Reset(string(user))
	return f.reload(ctx, user)
}

// Invalidate signals that user's data changed. Signals are debounced, so a
// burst of writes results in a single flag update.
func (f *TransactionFeed) Invalidate(user budget.UserID) {
	f.debounce.Trigger(string(user), func() {
		if err := f.signal.Signal(context.Background(), user); err != nil {
			f.log.WithError(err).WithField("user_id", user).Error("failed to signal change")
		}
	})
}

// Forget drops the cached list of user and detaches any reload in flight.
func (f *TransactionFeed) Forget(user budget.UserID) {
	f.mu.Lock()
	delete(f.cache, user)
	f.gen[user]++
	f.mu.Unlock()
	f.group.Forget(string(user))
	f.gate.Reset(string(user))
}

// ForgetAll drops every cached list. Reloads already in flight still answer
// their callers but are not cached.
func (f *TransactionFeed) ForgetAll() {
	f.mu.Lock()
	users := make([]budget.UserID, 0, len(f.cache))
	for user := range f.cache {
		users = append(users, user)
	}
	f.cache = make(map[budget.UserID]cachedList)
	f.allGen++
	f.mu.Unlock()

	for _, user := range users {
		f.group.Forget(string(user))
		f.gate.Reset(string(user))
	}
}

// Close writes pending change signals.
func (f *TransactionFeed) Close() {
	f.debounce.Flush()
}

func (f *TransactionFeed) cached(user budget.UserID) (cachedList, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	entry, ok := f.cache[user]
	return entry, ok
}

// generation must be called with mu held.
func (f *TransactionFeed) generation(user budget.UserID) uint64 {
	return f.gen[user] + f.allGen
}

func (f *TransactionFeed) stale(ctx context.Context, user budget.UserID, entry cachedList) (bool, error) {
	if f.clock.Now().Sub(entry.loadedAt) >= f.maxAge {
		return true, nil
	}
	if !f.gate.Allow(string(user)) {
		return false, nil
	}
	return f.signal.ChangedSince(ctx, user, entry.loadedAt)
}

func (f *TransactionFeed) reload(ctx context.Context, user budget.UserID) ([]budget.Transaction, error) {
	v, err, shared := f.group.Do(string(user), func() (any, error) {
		startedAt := f.clock.Now()
		f.mu.RLock()
		gen := f.generation(user)
		f.mu.RUnlock()

		txs, err := f.store.ListTransactions(ctx, user)
		if err != nil {
			return nil, err
		}

		f.mu.Lock()
		current := f.generation(user) == gen
		if current {
			f.cache[user] = cachedList{txs: txs, loadedAt: startedAt}
		}
		f.mu.Unlock()

		if !current {
			f.log.WithField("user_id", user).Debug("reload superseded by Forget, not cached")
			return txs, nil
		}
		f.gate.Mark(string(user))

		f.log.WithFields(logrus.Fields{"user_id": user, "count": len(txs)}).Debug("transactions reloaded")
		return txs, nil
	})
	if err != nil {
		return nil, err
	}
	if shared {
		f.log.WithField("user_id", user).Debug("joined in-flight reload")
	}
	return cloneTransactions(v.([]budget.Transaction)), nil
}

func cloneTransactions(txs []budget.Transaction) []budget.Transaction {
	if txs == nil {
		return nil
	}
	out := make([]budget.Transaction, len(txs))
	copy(out, txs)
	return out
}
