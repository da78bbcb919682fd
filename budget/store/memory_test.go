package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/budget-engine/budget"
	"github.com/warp/budget-engine/budget/store"
)

func tx(id, user, date string, amount float64) budget.Transaction {
	return budget.Transaction{
		ID:           budget.TransactionID(id),
		UserID:       budget.UserID(user),
		Date:         budget.MustParseDate(date),
		RawDate:      date,
		Category:     "Casa",
		Amount:       budget.NewAmount(amount),
		Installments: 1,
		Variant:      budget.Expense{},
	}
}

func TestMemory_TransactionsAreScopedPerUser(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()

	require.NoError(t, m.SaveTransaction(ctx, tx("a", "alice", "2025-03-26", -10)))
	require.NoError(t, m.SaveTransaction(ctx, tx("b", "bob", "2025-03-26", -20)))

	alice, err := m.ListTransactions(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, alice, 1)
	assert.Equal(t, budget.TransactionID("a"), alice[0].ID)

	_, err = m.GetTransaction(ctx, "alice", "b")
	assert.ErrorIs(t, err, budget.ErrTransactionNotFound)
	assert.ErrorIs(t, m.DeleteTransaction(ctx, "alice", "b"), budget.ErrTransactionNotFound)
}

func TestMemory_SaveTransactionUpserts(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()

	require.NoError(t, m.SaveTransaction(ctx, tx("a", "alice", "2025-03-26", -10)))
	require.NoError(t, m.SaveTransaction(ctx, tx("a", "alice", "2025-03-27", -15)))

	got, err := m.GetTransaction(ctx, "alice", "a")
	require.NoError(t, err)
	assert.Equal(t, "2025-03-27", got.Date.String())

	all, _ := m.ListTransactions(ctx, "alice")
	assert.Len(t, all, 1)
}

func TestMemory_ListTransactionsRange(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()
	for _, d := range []string{"2025-03-24", "2025-03-25", "2025-04-24", "2025-04-25"} {
		require.NoError(t, m.SaveTransaction(ctx, tx(d, "alice", d, -1)))
	}
	undated := tx("undated", "alice", "2025-01-01", -1)
	undated.Date = budget.TimePoint{}
	require.NoError(t, m.SaveTransaction(ctx, undated))

	got, err := m.ListTransactionsRange(ctx, "alice", budget.MustParseDate("2025-03-25"), budget.MustParseDate("2025-04-24"))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, budget.TransactionID("2025-03-25"), got[0].ID)
	assert.Equal(t, budget.TransactionID("2025-04-24"), got[1].ID)

	all, _ := m.ListTransactions(ctx, "alice")
	assert.Equal(t, budget.TransactionID("undated"), all[0].ID)
}

func TestMemory_Overrides(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()

	require.NoError(t, m.SaveOverride(ctx, budget.BudgetOverride{ID: "o1", UserID: "alice", CategoryName: "Casa", Kind: budget.KindExpense, Budget: budget.NewAmount(100)}))
	require.NoError(t, m.SaveOverride(ctx, budget.BudgetOverride{UserID: "alice", CategoryName: "casa", Kind: budget.KindExpense, Budget: budget.NewAmount(200)}))

	overrides, err := m.Overrides(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, overrides, 1)
	assert.Equal(t, "o1", overrides[0].ID)
	assert.True(t, overrides[0].Budget.Equal(budget.NewAmount(200)))

	bob, _ := m.Overrides(ctx, "bob")
	assert.Empty(t, bob)

	require.NoError(t, m.DeleteOverride(ctx, "alice", "CASA", budget.KindExpense))
	assert.ErrorIs(t, m.DeleteOverride(ctx, "alice", "Casa", budget.KindExpense), budget.ErrOverrideNotFound)
}

func TestMemory_SimulationReplaces(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()
	entry := budget.SimulationEntry{UserID: "alice", Year: 2025, Month: 1, CategoryName: "Casa", Kind: budget.KindExpense, Planned: budget.NewAmount(1)}

	require.NoError(t, m.SaveSimulation(ctx, "alice", 2025, []budget.SimulationEntry{entry, entry}))
	require.NoError(t, m.SaveSimulation(ctx, "alice", 2025, []budget.SimulationEntry{entry}))

	got, err := m.Simulation(ctx, "alice", 2025)
	require.NoError(t, err)
	assert.Len(t, got, 1)

	require.NoError(t, m.DeleteSimulation(ctx, "alice", 2025))
	got, _ = m.Simulation(ctx, "alice", 2025)
	assert.Empty(t, got)
}

func TestMemory_ChangeFlagsKeepLatest(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()
	t1 := time.Date(2025, 3, 26, 10, 0, 0, 0, time.UTC)

	last, err := m.LastChanged(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, last.IsZero())

	require.NoError(t, m.MarkChanged(ctx, "alice", t1))
	require.NoError(t, m.MarkChanged(ctx, "alice", t1.Add(-time.Hour)))

	last, _ = m.LastChanged(ctx, "alice")
	assert.True(t, last.Equal(t1))
}
