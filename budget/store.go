/*
store.go - Persistence interfaces

PURPOSE:
  The engine is pure. These interfaces describe what the service needs
  from a datastore. Every record is scoped to one user and no query
  crosses users.

KEY INTERFACES:
  TransactionStore: Stored transactions (CRUD + date range)
  CategoryStore:    Default categories and per-user budget overrides
  SimulationStore:  Annual plan entries
  FlagStore:        "Data changed" markers shared by every reader

PROJECTIONS ARE NEVER STORED:
  Nothing here accepts a Projection. Installments 2..N only exist for the
  duration of a computation.

IMPLEMENTATIONS:
  - budget/store/memory.go: In-memory, for tests and ":memory:" runs
  - store/sqlite/sqlite.go: SQLite
*/
package budget

import (
	"context"
	"time"
)

// TransactionStore persists stored transactions.
type TransactionStore interface {
	// SaveTransaction inserts or replaces the transaction with the same ID.
	SaveTransaction(ctx context.Context, tx Transaction) error

	// GetTransaction returns ErrTransactionNotFound if user has no such id.
	GetTransaction(ctx context.Context, user UserID, id TransactionID) (Transaction, error)

	// DeleteTransaction returns ErrTransactionNotFound if nothing was deleted.
	DeleteTransaction(ctx context.Context, user UserID, id TransactionID) error

	// ListTransactions returns every transaction of user ordered by date.
	ListTransactions(ctx context.Context, user UserID) ([]Transaction, error)

	// ListTransactionsRange returns transactions dated in [from, to].
	ListTransactionsRange(ctx context.Context, user UserID, from, to TimePoint) ([]Transaction, error)
}

// CategoryStore persists default categories and per-user overrides.
type CategoryStore interface {
	DefaultCategories(ctx context.Context) ([]Category, error)
	SaveDefaultCategory(ctx context.Context, c Category) error

	Overrides(ctx context.Context, user UserID) ([]BudgetOverride, error)

	// SaveOverride upserts on (user, category name, kind).
	SaveOverride(ctx context.Context, o BudgetOverride) error

	// DeleteOverride returns ErrOverrideNotFound if nothing was deleted.
	DeleteOverride(ctx context.Context, user UserID, name string, kind Kind) error
}

// SimulationStore persists annual plan entries.
type SimulationStore interface {
	// SaveSimulation replaces every entry of user for year.
	SaveSimulation(ctx context.Context, user UserID, year int, entries []SimulationEntry) error
	Simulation(ctx context.Context, user UserID, year int) ([]SimulationEntry, error)
	DeleteSimulation(ctx context.Context, user UserID, year int) error
}

// FlagStore records when a user's data last changed.
type FlagStore interface {
	MarkChanged(ctx context.Context, user UserID, at time.Time) error

	// LastChanged returns the zero time if user never changed.
	LastChanged(ctx context.Context, user UserID) (time.Time, error)
}

// Store is everything the service needs.
type Store interface {
	TransactionStore
	CategoryStore
	SimulationStore
	FlagStore
}
