package report

import (
	"context"
	"errors"
	"net/smtp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jordan-wright/email"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/budget-engine/budget"
	"github.com/warp/budget-engine/budget/store"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func tx(id, date string, amount float64, category string, kind budget.Kind, installments int) budget.Transaction {
	variant, _ := budget.VariantFor(kind, nil)
	return budget.Transaction{
		ID: budget.TransactionID(id), UserID: "alice",
		Date: budget.MustParseDate(date), RawDate: date,
		Category: category, Amount: budget.NewAmount(amount),
		Installments: installments, Description: category, Variant: variant,
	}
}

func sampleSnapshot() budget.CycleSnapshot {
	cats := []budget.Category{
		{Name: "Mercado", Kind: budget.KindExpense, Budget: budget.NewAmount(1000)},
		{Name: "Casa", Kind: budget.KindExpense, Budget: budget.NewAmount(100)},
		{Name: "Lazer", Kind: budget.KindExpense, Budget: budget.NewAmount(100)},
		{Name: "Pets", Kind: budget.KindExpense, Budget: budget.NewAmount(100)},
	}
	stored := []budget.Transaction{
		tx("salary", "2025-03-26", 5000, "Salário", budget.KindIncome, 1),
		tx("food", "2025-03-27", -300, "Mercado", budget.KindExpense, 1),
		tx("rent", "2025-03-28", -90, "Casa", budget.KindExpense, 1),
		tx("party", "2025-03-29", -150, "Lazer", budget.KindExpense, 1),
		tx("tv", "2025-02-26", -100, "Eletrônicos", budget.KindExpense, 3),
	}
	cfg := budget.CycleConfig{BoundaryDay: 25, Locale: budget.LocalePtBR}
	log, _ := logtest.NewNullLogger()
	return budget.BuildSnapshot(cfg, stored, cats, budget.MustParseDate("2025-03-26"), log)
}

// =============================================================================
// FORMAT
// =============================================================================

func TestFormat_Sections(t *testing.T) {
	out := Format(sampleSnapshot(), Options{})

	assert.Contains(t, out, "📊 Relatório do ciclo mar - abr 2025")
	assert.Contains(t, out, "📅 Período: 2025-03-25 a 2025-04-24")
	assert.Contains(t, out, "💰 Resumo")
	assert.Contains(t, out, "• Receitas: R$ 5000.00")
	assert.Contains(t, out, "• Despesas: R$ 640.00")
	assert.Contains(t, out, "• Saldo: R$ 4360.00")
	assert.NotContains(t, out, "Rendimentos")

	assert.Contains(t, out, "🟢 Mercado: R$ 300.00 de R$ 1000.00 (30%)")
	assert.Contains(t, out, "🟡 Casa: R$ 90.00 de R$ 100.00 (90%)")
	assert.Contains(t, out, "🔴 Lazer: R$ 150.00 de R$ 100.00 (150%)")
	assert.Contains(t, out, "🟢 Pets: R$ 0.00 de R$ 100.00 (0%)")
	assert.Contains(t, out, "🟢 Eletrônicos: R$ 100.00\n", "no budget, no percentage")

	assert.Contains(t, out, "💳 Parcelas do ciclo")
	assert.Contains(t, out, "• 2025-03-26 Eletrônicos (Installment 2/3): R$ 100.00")
	assert.NotContains(t, out, "Salário:", "income is not a budget line")
}

func TestFormat_EnglishAndEmptyCycle(t *testing.T) {
	cfg := budget.CycleConfig{BoundaryDay: 1, Locale: budget.LocaleEnUS}
	snap := budget.BuildSnapshot(cfg, nil, nil, budget.MustParseDate("2025-05-10"), nil)

	out := Format(snap, Options{Locale: budget.LocaleEnUS, Currency: "$"})

	assert.True(t, strings.HasPrefix(out, "📊 Cycle report May 2025\n"))
	assert.Contains(t, out, "• Balance: $ 0.00")
	assert.Contains(t, out, "No expenses this cycle")
	assert.NotContains(t, out, "💳")
}

func TestStatusEmoji(t *testing.T) {
	assert.Equal(t, "🟢", StatusEmoji(budget.StatusOK))
	assert.Equal(t, "🟡", StatusEmoji(budget.StatusWarning))
	assert.Equal(t, "🔴", StatusEmoji(budget.StatusOver))
}

// =============================================================================
// NOTIFIERS
// =============================================================================

func TestEmailNotifier_BuildsEmail(t *testing.T) {
	log, _ := logtest.NewNullLogger()
	n := NewEmailNotifier(SMTPConfig{Host: "smtp.example.com", Port: 587, Username: "u", Password: "p", From: "budget@example.com"}, log)

	var gotAddr string
	var got *email.Email
	n.send = func(e *email.Email, addr string, auth smtp.Auth) error {
		got, gotAddr = e, addr
		assert.NotNil(t, auth)
		return nil
	}

	require.NoError(t, n.Notify(context.Background(), Message{To: []string{"ana@example.com"}, Subject: "s", Body: "b"}))
	assert.Equal(t, "smtp.example.com:587", gotAddr)
	assert.Equal(t, "budget@example.com", got.From)
	assert.Equal(t, []string{"ana@example.com"}, got.To)
	assert.Equal(t, "b", string(got.Text))
}

func TestEmailNotifier_Errors(t *testing.T) {
	log, _ := logtest.NewNullLogger()
	n := NewEmailNotifier(SMTPConfig{Host: "localhost", Port: 25}, log)
	n.send = func(*email.Email, string, smtp.Auth) error { return errors.New("connection refused") }

	assert.Error(t, n.Notify(context.Background(), Message{}), "no recipients")
	err := n.Notify(context.Background(), Message{To: []string{"a@b.c"}})
	assert.ErrorContains(t, err, "connection refused")
}

func TestLogNotifier(t *testing.T) {
	log, hook := logtest.NewNullLogger()
	require.NoError(t, NewLogNotifier(log).Notify(context.Background(), Message{To: []string{"a@b.c"}, Subject: "s", Body: "body"}))
	require.Len(t, hook.Entries, 1)
	assert.Equal(t, "body", hook.LastEntry().Message)
}

// =============================================================================
// DISPATCHER
// =============================================================================

type fakeSubs []Subscription

func (f fakeSubs) ActiveSubscriptions(context.Context) ([]Subscription, error) { return f, nil }

type fakeRuns struct {
	mu   sync.Mutex
	runs []Run
}

func (f *fakeRuns) RecordRun(_ context.Context, r Run) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.runs = append(f.runs, r)
	return nil
}

type recordingNotifier struct {
	sent []Message
	fail map[string]bool
}

func (n *recordingNotifier) Notify(_ context.Context, msg Message) error {
	if n.fail[msg.To[0]] {
		return errors.New("mailbox full")
	}
	n.sent = append(n.sent, msg)
	return nil
}

func newDispatcher(t *testing.T, subs fakeSubs, notifier Notifier) (*Dispatcher, *fakeRuns) {
	t.Helper()
	ctx := context.Background()
	mem := store.NewMemory()
	require.NoError(t, mem.SaveTransaction(ctx, tx("rent", "2025-03-28", -90, "Casa", budget.KindExpense, 1)))
	require.NoError(t, mem.SaveDefaultCategory(ctx, budget.Category{Name: "Casa", Kind: budget.KindExpense, Budget: budget.NewAmount(100)}))

	log, _ := logtest.NewNullLogger()
	builder := &Builder{
		Transactions: StoreSource{Store: mem},
		Categories:   mem,
		Cycle:        budget.DefaultCycleConfig(),
		Log:          log,
	}
	runs := &fakeRuns{}
	d := NewDispatcher(builder, subs, runs, notifier, log)
	d.Now = func() time.Time { return time.Date(2025, 4, 7, 8, 0, 0, 0, time.UTC) }
	n := 0
	d.NewID = func() string { n++; return "run-" + string(rune('0'+n)) }
	return d, runs
}

func TestDispatcher_RunNowSendsAndRecords(t *testing.T) {
	notifier := &recordingNotifier{}
	d, runs := newDispatcher(t, fakeSubs{{ID: "s1", UserID: "alice", Email: "alice@example.com", Active: true}}, notifier)

	sent, err := d.RunNow(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, sent)

	require.Len(t, notifier.sent, 1)
	assert.Equal(t, "📊 mar - abr 2025", notifier.sent[0].Subject)
	assert.Contains(t, notifier.sent[0].Body, "🟡 Casa: R$ 90.00 de R$ 100.00 (90%)")

	require.Len(t, runs.runs, 1)
	assert.Equal(t, RunSent, runs.runs[0].Status)
	assert.Equal(t, "2025-03", runs.runs[0].Cycle)
	assert.Equal(t, "run-1", runs.runs[0].ID)
}

func TestDispatcher_OneFailureDoesNotStopOthers(t *testing.T) {
	notifier := &recordingNotifier{fail: map[string]bool{"bad@example.com": true}}
	d, runs := newDispatcher(t, fakeSubs{
		{ID: "s1", UserID: "alice", Email: "bad@example.com", Active: true},
		{ID: "s2", UserID: "alice", Email: "good@example.com", Active: true},
	}, notifier)

	sent, err := d.RunNow(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mailbox full")
	assert.Equal(t, 1, sent)

	require.Len(t, runs.runs, 2)
	assert.Equal(t, RunFailed, runs.runs[0].Status)
	assert.Equal(t, "mailbox full", runs.runs[0].Error)
	assert.Equal(t, RunSent, runs.runs[1].Status)
}

func TestDispatcher_StartRejectsBadSchedule(t *testing.T) {
	d, _ := newDispatcher(t, nil, &recordingNotifier{})
	d.Schedule = "every tuesday"
	assert.Error(t, d.Start())

	d.Schedule = DefaultSchedule
	require.NoError(t, d.Start())
	require.NoError(t, d.Start(), "second start is a no-op")
	d.Stop()
	d.Stop()
}
