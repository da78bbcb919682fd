package feed_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/budget-engine/budget"
	"github.com/warp/budget-engine/budget/store"
	"github.com/warp/budget-engine/feed"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

var epoch = time.Date(2025, 3, 26, 9, 0, 0, 0, time.UTC)

// countingStore counts ListTransactions calls and can block them. With
// hold set, the first call reads the data, reports on listed, and then
// waits for hold to close before returning.
type countingStore struct {
	*store.Memory
	calls   atomic.Int32
	release chan struct{}
	failing bool

	listed chan struct{}
	hold   chan struct{}
}

func (s *countingStore) ListTransactions(ctx context.Context, user budget.UserID) ([]budget.Transaction, error) {
	n := s.calls.Add(1)
	if s.release != nil {
		<-s.release
	}
	if s.failing {
		return nil, errors.New("datastore unavailable")
	}
	txs, err := s.Memory.ListTransactions(ctx, user)
	if n == 1 && s.hold != nil {
		s.listed <- struct{}{}
		<-s.hold
	}
	return txs, err
}

func newFeed(t *testing.T) (*feed.TransactionFeed, *countingStore, *feed.ManualClock) {
	t.Helper()
	clock := feed.NewManualClock(epoch)
	st := &countingStore{Memory: store.NewMemory()}
	require.NoError(t, st.SaveTransaction(context.Background(), budget.Transaction{
		ID: "a", UserID: "alice", Date: budget.MustParseDate("2025-03-26"), RawDate: "2025-03-26",
		Category: "Casa", Amount: budget.NewAmount(-10), Installments: 1, Variant: budget.Expense{},
	}))
	log, _ := logtest.NewNullLogger()
	f := feed.NewTransactionFeed(st, st.Memory, clock, feed.Config{
		MinInterval:   30 * time.Second,
		MaxAge:        10 * time.Minute,
		DebounceDelay: 2 * time.Second,
	}, log)
	return f, st, clock
}

func addTransaction(t *testing.T, st *countingStore, id string) {
	t.Helper()
	require.NoError(t, st.SaveTransaction(context.Background(), budget.Transaction{
		ID: budget.TransactionID(id), UserID: "alice", Date: budget.MustParseDate("2025-03-27"), RawDate: "2025-03-27",
		Category: "Casa", Amount: budget.NewAmount(-1), Installments: 1, Variant: budget.Expense{},
	}))
}

// =============================================================================
// TRANSACTION FEED
// =============================================================================

func TestFeed_FirstCallLoadsThenServesCache(t *testing.T) {
	f, st, clock := newFeed(t)
	ctx := context.Background()

	txs, err := f.Transactions(ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, txs, 1)

	clock.Advance(time.Minute)
	_, err = f.Transactions(ctx, "alice")
	require.NoError(t, err)

	assert.Equal(t, int32(1), st.calls.Load(), "no change signalled, cache served")
}

func TestFeed_ChangeSignalReloadsOnlyAfterGateOpens(t *testing.T) {
	// GIVEN: A loaded cache and a new transaction followed by Invalidate
	// WHEN: Reading before the debounce fires, before the gate opens, after
	// THEN: Only the last read reloads
	f, st, clock := newFeed(t)
	ctx := context.Background()
	_, err := f.Transactions(ctx, "alice")
	require.NoError(t, err)

	clock.Advance(time.Second)
	addTransaction(t, st, "b")
	f.Invalidate("alice")

	txs, _ := f.Transactions(ctx, "alice")
	assert.Len(t, txs, 1, "signal still debounced")

	clock.Advance(2 * time.Second) // debounce fires at epoch+3s
	txs, _ = f.Transactions(ctx, "alice")
	assert.Len(t, txs, 1, "gate closed until epoch+30s")

	clock.Advance(30 * time.Second)
	txs, _ = f.Transactions(ctx, "alice")
	assert.Len(t, txs, 2)
	assert.Equal(t, int32(2), st.calls.Load())
}

func TestFeed_InvalidateBurstProducesOneSignal(t *testing.T) {
	f, st, clock := newFeed(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		f.Invalidate("alice")
		clock.Advance(500 * time.Millisecond)
	}
	last, _ := st.LastChanged(ctx, "alice")
	assert.True(t, last.IsZero(), "still within the debounce window")

	clock.Advance(2 * time.Second)
	last, _ = st.LastChanged(ctx, "alice")
	assert.Equal(t, epoch.Add(4500*time.Millisecond), last)
	assert.Zero(t, clock.Pending())
}

func TestFeed_MaxAgeForcesReload(t *testing.T) {
	f, st, clock := newFeed(t)
	ctx := context.Background()
	_, _ = f.Transactions(ctx, "alice")

	clock.Advance(10 * time.Minute)
	_, err := f.Transactions(ctx, "alice")
	require.NoError(t, err)

	assert.Equal(t, int32(2), st.calls.Load())
}

func TestFeed_RefreshIgnoresGate(t *testing.T) {
	f, st, _ := newFeed(t)
	ctx := context.Background()
	_, _ = f.Transactions(ctx, "alice")
	addTransaction(t, st, "b")

	txs, err := f.Refresh(ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, txs, 2)
}

func TestFeed_ReturnsCopies(t *testing.T) {
	f, _, _ := newFeed(t)
	ctx := context.Background()

	txs, _ := f.Transactions(ctx, "alice")
	txs[0].Category = "mutated"

	again, _ := f.Transactions(ctx, "alice")
	assert.Equal(t, "Casa", again[0].Category)
}

func TestFeed_LoadErrorWithoutCache(t *testing.T) {
	f, st, _ := newFeed(t)
	st.failing = true

	_, err := f.Transactions(context.Background(), "alice")
	assert.Error(t, err)
}

func TestFeed_ConcurrentLoadsShareOneCall(t *testing.T) {
	f, st, _ := newFeed(t)
	st.release = make(chan struct{})
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			txs, err := f.Transactions(ctx, "alice")
			assert.NoError(t, err)
			assert.Len(t, txs, 1)
		}()
	}

	// Let the first call in, give the others time to join it.
	require.Eventually(t, func() bool { return st.calls.Load() == 1 }, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(st.release)
	wg.Wait()

	assert.LessOrEqual(t, st.calls.Load(), int32(2))
}

func TestFeed_ForgetDetachesInFlightReload(t *testing.T) {
	f, st, _ := newFeed(t)
	st.listed = make(chan struct{}, 1)
	st.hold = make(chan struct{})
	ctx := context.Background()

	// GIVEN: A reload that has read the datastore but not returned yet
	first := make(chan []budget.Transaction, 1)
	go func() {
		txs, err := f.Transactions(ctx, "alice")
		assert.NoError(t, err)
		first <- txs
	}()
	<-st.listed

	// WHEN: A write lands and the user's cache is forgotten
	addTransaction(t, st, "b")
	f.Forget("alice")

	// THEN: A new read does not join the old reload
	fresh := make(chan []budget.Transaction, 1)
	go func() {
		txs, err := f.Transactions(ctx, "alice")
		assert.NoError(t, err)
		fresh <- txs
	}()
	select {
	case txs := <-fresh:
		assert.Len(t, txs, 2)
	case <-time.After(time.Second):
		close(st.hold)
		t.Fatal("read after Forget waited on the earlier reload")
	}

	// AND: The old reload answers its caller but does not overwrite the cache
	close(st.hold)
	assert.Len(t, <-first, 1)

	txs, err := f.Transactions(ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, txs, 2)
	assert.Equal(t, int32(2), st.calls.Load())
}

func TestFeed_ForgetAllDetachesInFlightReload(t *testing.T) {
	f, st, _ := newFeed(t)
	st.listed = make(chan struct{}, 1)
	st.hold = make(chan struct{})
	ctx := context.Background()

	first := make(chan []budget.Transaction, 1)
	go func() {
		txs, _ := f.Transactions(ctx, "alice")
		first <- txs
	}()
	<-st.listed

	addTransaction(t, st, "b")
	f.ForgetAll()
	close(st.hold)
	assert.Len(t, <-first, 1)

	txs, err := f.Transactions(ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, txs, 2, "the list read before ForgetAll was not cached")
}

// =============================================================================
// GATE, DEBOUNCER, CLOCK
// =============================================================================

func TestRefreshGate(t *testing.T) {
	clock := feed.NewManualClock(epoch)
	g := feed.NewRefreshGate(clock, time.Minute)

	assert.True(t, g.Allow("k"))
	g.Mark("k")
	assert.False(t, g.Allow("k"))

	clock.Advance(59 * time.Second)
	assert.False(t, g.Allow("k"))
	clock.Advance(time.Second)
	assert.True(t, g.Allow("k"))

	g.Mark("k")
	g.Reset("k")
	assert.True(t, g.Allow("k"))
	assert.True(t, g.Allow("other"))
}

func TestDebouncer_SupersededCallNeverRuns(t *testing.T) {
	clock := feed.NewManualClock(epoch)
	d := feed.NewDebouncer(clock, 2*time.Second)
	var got []string

	d.Trigger("cycle", func() { got = append(got, "first") })
	clock.Advance(time.Second)
	d.Trigger("cycle", func() { got = append(got, "second") })
	clock.Advance(time.Second)
	assert.Empty(t, got)
	assert.True(t, d.Pending("cycle"))

	clock.Advance(time.Second)
	assert.Equal(t, []string{"second"}, got)
	assert.False(t, d.Pending("cycle"))
}

func TestDebouncer_FlushAndStop(t *testing.T) {
	clock := feed.NewManualClock(epoch)
	d := feed.NewDebouncer(clock, 0)
	assert.Equal(t, feed.DefaultDebounceDelay, d.Delay)

	ran := 0
	d.Trigger("a", func() { ran++ })
	d.Trigger("b", func() { ran++ })
	d.Flush()
	assert.Equal(t, 2, ran)

	d.Trigger("a", func() { ran++ })
	d.Stop()
	clock.Advance(time.Hour)
	assert.Equal(t, 2, ran)
}

func TestChangeSignal(t *testing.T) {
	clock := feed.NewManualClock(epoch)
	flags := store.NewMemory()
	s := feed.NewChangeSignal(flags, clock)
	ctx := context.Background()

	changed, err := s.ChangedSince(ctx, "alice", epoch.Add(-time.Hour))
	require.NoError(t, err)
	assert.False(t, changed)

	require.NoError(t, s.Signal(ctx, "alice"))
	changed, _ = s.ChangedSince(ctx, "alice", epoch.Add(-time.Second))
	assert.True(t, changed)
	changed, _ = s.ChangedSince(ctx, "alice", epoch)
	assert.False(t, changed)
}

func TestSystemClock(t *testing.T) {
	var c feed.Clock = feed.SystemClock{}
	done := make(chan struct{})
	c.AfterFunc(time.Millisecond, func() { close(done) })

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("timer did not fire")
	}
	assert.WithinDuration(t, time.Now(), c.Now(), time.Second)
}
