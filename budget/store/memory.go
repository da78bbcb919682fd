// Package store provides Store implementations.
package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/warp/budget-engine/budget"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu           sync.RWMutex
	transactions map[budget.UserID]map[budget.TransactionID]budget.Transaction
	defaults     map[overrideKey]budget.Category
	overrides    map[overrideKey]budget.BudgetOverride
	simulations  map[simulationKey][]budget.SimulationEntry
	changed      map[budget.UserID]time.Time
}

type overrideKey struct {
	UserID budget.UserID
	Name   string
	Kind   budget.Kind
}

type simulationKey struct {
	UserID budget.UserID
	Year   int
}

var _ budget.Store = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{
		transactions: make(map[budget.UserID]map[budget.TransactionID]budget.Transaction),
		defaults:     make(map[overrideKey]budget.Category),
		overrides:    make(map[overrideKey]budget.BudgetOverride),
		simulations:  make(map[simulationKey][]budget.SimulationEntry),
		changed:      make(map[budget.UserID]time.Time),
	}
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

func (m *Memory) SaveTransaction(_ context.Context, tx budget.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	byID, ok := m.transactions[tx.UserID]
	if !ok {
		byID = make(map[budget.TransactionID]budget.Transaction)
		m.transactions[tx.UserID] = byID
	}
	byID[tx.ID] = tx
	return nil
}

func (m *Memory) GetTransaction(_ context.Context, user budget.UserID, id budget.TransactionID) (budget.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	tx, ok := m.transactions[user][id]
	if !ok {
		return budget.Transaction{}, budget.ErrTransactionNotFound
	}
	return tx, nil
}

func (m *Memory) DeleteTransaction(_ context.Context, user budget.UserID, id budget.TransactionID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.transactions[user][id]; !ok {
		return budget.ErrTransactionNotFound
	}
	delete(m.transactions[user], id)
	return nil
}

func (m *Memory) ListTransactions(_ context.Context, user budget.UserID) ([]budget.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]budget.Transaction, 0, len(m.transactions[user]))
	for _, tx := range m.transactions[user] {
		result = append(result, tx)
	}
	sortByDate(result)
	return result, nil
}

func (m *Memory) ListTransactionsRange(_ context.Context, user budget.UserID, from, to budget.TimePoint) ([]budget.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []budget.Transaction
	for _, tx := range m.transactions[user] {
		if tx.HasValidDate() && from.BeforeOrEqual(tx.Date) && tx.Date.BeforeOrEqual(to) {
			result = append(result, tx)
		}
	}
	sortByDate(result)
	return result, nil
}

// Undated transactions sort first, like NULLs in SQLite.
func sortByDate(txs []budget.Transaction) {
	sort.Slice(txs, func(i, j int) bool {
		if !txs[i].Date.Equal(txs[j].Date) {
			return txs[i].Date.Before(txs[j].Date)
		}
		return txs[i].ID < txs[j].ID
	})
}

// =============================================================================
// CATEGORIES
// =============================================================================

func (m *Memory) DefaultCategories(_ context.Context) ([]budget.Category, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]budget.Category, 0, len(m.defaults))
	for _, c := range m.defaults {
		result = append(result, c)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Kind != result[j].Kind {
			return result[i].Kind < result[j].Kind
		}
		return result[i].Name < result[j].Name
	})
	return result, nil
}

func (m *Memory) SaveDefaultCategory(_ context.Context, c budget.Category) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.defaults[newOverrideKey("", c.Name, c.Kind)] = c
	return nil
}

func (m *Memory) Overrides(_ context.Context, user budget.UserID) ([]budget.BudgetOverride, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []budget.BudgetOverride
	for k, o := range m.overrides {
		if k.UserID == user {
			result = append(result, o)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CategoryName < result[j].CategoryName })
	return result, nil
}

func (m *Memory) SaveOverride(_ context.Context, o budget.BudgetOverride) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	k := newOverrideKey(o.UserID, o.CategoryName, o.Kind)
	if existing, ok := m.overrides[k]; ok && o.ID == "" {
		o.ID = existing.ID
	}
	m.overrides[k] = o
	return nil
}

func (m *Memory) DeleteOverride(_ context.Context, user budget.UserID, name string, kind budget.Kind) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	k := newOverrideKey(user, name, kind)
	if _, ok := m.overrides[k]; !ok {
		return budget.ErrOverrideNotFound
	}
	delete(m.overrides, k)
	return nil
}

func newOverrideKey(user budget.UserID, name string, kind budget.Kind) overrideKey {
	return overrideKey{UserID: user, Name: strings.ToLower(strings.TrimSpace(name)), Kind: kind}
}

// =============================================================================
// SIMULATION
// =============================================================================

func (m *Memory) SaveSimulation(_ context.Context, user budget.UserID, year int, entries []budget.SimulationEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	copied := make([]budget.SimulationEntry, len(entries))
	copy(copied, entries)
	m.simulations[simulationKey{UserID: user, Year: year}] = copied
	return nil
}

func (m *Memory) Simulation(_ context.Context, user budget.UserID, year int) ([]budget.SimulationEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	entries := m.simulations[simulationKey{UserID: user, Year: year}]
	result := make([]budget.SimulationEntry, len(entries))
	copy(result, entries)
	return result, nil
}

func (m *Memory) DeleteSimulation(_ context.Context, user budget.UserID, year int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.simulations, simulationKey{UserID: user, Year: year})
	return nil
}

// =============================================================================
// CHANGE FLAGS
// =============================================================================

func (m *Memory) MarkChanged(_ context.Context, user budget.UserID, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if at.After(m.changed[user]) {
		m.changed[user] = at
	}
	return nil
}

func (m *Memory) LastChanged(_ context.Context, user budget.UserID) (time.Time, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.changed[user], nil
}
