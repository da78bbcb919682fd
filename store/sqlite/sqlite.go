/*
Package sqlite provides a SQLite-backed implementation of the storage interfaces.

PURPOSE:
  Persists everything the budget service owns: stored transactions, the
  default category catalog, per-user budget overrides, annual simulation
  entries, "data changed" flags, report subscriptions and report runs.

INTERFACES IMPLEMENTED:
  budget.TransactionStore
  budget.CategoryStore
  budget.SimulationStore
  budget.FlagStore
  report.SubscriptionSource
  report.RunRecorder

PROJECTIONS:
  Never stored. The transactions table only ever holds occurrence 1 of an
  installment purchase.

KEY TABLES:
  transactions:         Stored transactions, one row per (user, id)
  categories:           Default catalog, unique on (name_key, kind)
  budget_overrides:     Per-user budgets, unique on (user, name_key, kind)
  simulation_entries:   Planned amounts per (user, year, month, name_key, kind)
  sync_flags:           Last change per user, unix nanoseconds
  report_subscriptions: Who receives the scheduled report
  report_runs:          One row per delivery attempt

  name_key is the lowercased, trimmed category name so "Casa" and "casa"
  are the same bucket everywhere.

MONEY:
  Stored as decimal TEXT and read back with shopspring/decimal, never REAL.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety. ":memory:" databases are pinned to a
  single connection, since every new connection would see an empty DB.

USAGE:
  store, err := sqlite.New("./data/budget.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

SEE ALSO:
  - budget/store.go:        Interface definitions
  - budget/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/warp/budget-engine/budget"
	"github.com/warp/budget-engine/report"
)

// Store implements all storage interfaces using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

var (
	_ budget.Store              = (*Store)(nil)
	_ report.SubscriptionSource = (*Store)(nil)
	_ report.RunRecorder        = (*Store)(nil)
)

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS transactions (
		id TEXT NOT NULL,
		user_id TEXT NOT NULL,
		date TEXT,
		raw_date TEXT NOT NULL DEFAULT '',
		category TEXT NOT NULL,
		kind TEXT NOT NULL,
		amount TEXT NOT NULL,
		installments INTEGER NOT NULL DEFAULT 1,
		spent_by TEXT NOT NULL DEFAULT '',
		description TEXT NOT NULL DEFAULT '',
		gain TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		PRIMARY KEY (user_id, id)
	);

	-- Cycle queries are date ranges per user (hot path)
	CREATE INDEX IF NOT EXISTS idx_transactions_user_date
		ON transactions(user_id, date);

	CREATE TABLE IF NOT EXISTS categories (
		name TEXT NOT NULL,
		name_key TEXT NOT NULL,
		kind TEXT NOT NULL,
		budget TEXT NOT NULL,
		PRIMARY KEY (name_key, kind)
	);

	CREATE TABLE IF NOT EXISTS budget_overrides (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		category_name TEXT NOT NULL,
		name_key TEXT NOT NULL,
		kind TEXT NOT NULL,
		budget TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		UNIQUE(user_id, name_key, kind)
	);

	CREATE TABLE IF NOT EXISTS simulation_entries (
		user_id TEXT NOT NULL,
		year INTEGER NOT NULL,
		month INTEGER NOT NULL CHECK (month BETWEEN 1 AND 12),
		category_name TEXT NOT NULL,
		name_key TEXT NOT NULL,
		kind TEXT NOT NULL,
		planned TEXT NOT NULL,
		UNIQUE(user_id, year, month, name_key, kind)
	);

	CREATE INDEX IF NOT EXISTS idx_simulation_user_year
		ON simulation_entries(user_id, year);

	CREATE TABLE IF NOT EXISTS sync_flags (
		user_id TEXT PRIMARY KEY,
		changed_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS report_subscriptions (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		email TEXT NOT NULL,
		active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TEXT NOT NULL,
		UNIQUE(user_id, email)
	);

	CREATE TABLE IF NOT EXISTS report_runs (
		id TEXT PRIMARY KEY,
		subscription_id TEXT NOT NULL,
		user_id TEXT NOT NULL,
		cycle TEXT NOT NULL DEFAULT '',
		ran_at TEXT NOT NULL,
		status TEXT NOT NULL,
		error TEXT NOT NULL DEFAULT ''
	);

	CREATE INDEX IF NOT EXISTS idx_report_runs_ran_at
		ON report_runs(ran_at);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// TRANSACTION STORE (budget.TransactionStore interface)
// =============================================================================

const transactionColumns = `id, user_id, date, raw_date, category, kind, amount,
	installments, spent_by, description, gain`

// SaveTransaction inserts or replaces a transaction.
func (s *Store) SaveTransaction(ctx context.Context, tx budget.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.saveTx(ctx, s.db, tx)
}

// SaveTransactions upserts a batch atomically.
func (s *Store) SaveTransactions(ctx context.Context, txs []budget.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	for _, tx := range txs {
		if err := s.saveTx(ctx, sqlTx, tx); err != nil {
			return err
		}
	}
	return sqlTx.Commit()
}

func (s *Store) saveTx(ctx context.Context, db interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}, tx budget.Transaction) error {
	if budget.IsProjectionID(tx.ID) {
		return fmt.Errorf("refusing to store projection %s", tx.ID)
	}

	var date sql.NullString
	if tx.HasValidDate() {
		date = nullString(tx.Date.String())
	}
	var gain sql.NullString
	if g := tx.Gain(); g != nil {
		gain = nullString(g.Value.String())
	}
	now := time.Now().UTC().Format(time.RFC3339)

	query := `
		INSERT INTO transactions
		(id, user_id, date, raw_date, category, kind, amount, installments,
		 spent_by, description, gain, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id, id) DO UPDATE SET
			date = excluded.date,
			raw_date = excluded.raw_date,
			category = excluded.category,
			kind = excluded.kind,
			amount = excluded.amount,
			installments = excluded.installments,
			spent_by = excluded.spent_by,
			description = excluded.description,
			gain = excluded.gain,
			updated_at = excluded.updated_at
	`
	_, err := db.ExecContext(ctx, query,
		tx.ID, tx.UserID, date, tx.RawDate, tx.Category, tx.Kind(),
		tx.Amount.Value.String(), tx.Installments, tx.SpentBy, tx.Description,
		gain, now, now,
	)
	if err != nil {
		return fmt.Errorf("failed to save transaction: %w", err)
	}
	return nil
}

// GetTransaction returns one transaction of user.
func (s *Store) GetTransaction(ctx context.Context, user budget.UserID, id budget.TransactionID) (budget.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE user_id = ? AND id = ?`,
		user, id,
	)
	tx, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return budget.Transaction{}, budget.ErrTransactionNotFound
	}
	return tx, err
}

// DeleteTransaction removes a transaction. Its projections disappear with it.
func (s *Store) DeleteTransaction(ctx context.Context, user budget.UserID, id budget.TransactionID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `DELETE FROM transactions WHERE user_id = ? AND id = ?`, user, id)
	if err != nil {
		return fmt.Errorf("failed to delete transaction: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return budget.ErrTransactionNotFound
	}
	return nil
}

// ListTransactions returns every transaction of user, undated ones first.
func (s *Store) ListTransactions(ctx context.Context, user budget.UserID) ([]budget.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.queryTransactions(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE user_id = ? ORDER BY date ASC, id ASC`,
		user,
	)
}

// ListTransactionsRange returns transactions dated in [from, to].
func (s *Store) ListTransactionsRange(ctx context.Context, user budget.UserID, from, to budget.TimePoint) ([]budget.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.queryTransactions(ctx, `
		SELECT `+transactionColumns+`
		FROM transactions
		WHERE user_id = ? AND date IS NOT NULL AND date >= ? AND date <= ?
		ORDER BY date ASC, id ASC`,
		user, from.String(), to.String(),
	)
}

func (s *Store) queryTransactions(ctx context.Context, query string, args ...any) ([]budget.Transaction, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	var transactions []budget.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		transactions = append(transactions, tx)
	}

	return transactions, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row scanner) (budget.Transaction, error) {
	var (
		tx     budget.Transaction
		date   sql.NullString
		kind   string
		amount string
		gain   sql.NullString
	)

	err := row.Scan(
		&tx.ID, &tx.UserID, &date, &tx.RawDate, &tx.Category, &kind, &amount,
		&tx.Installments, &tx.SpentBy, &tx.Description, &gain,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return tx, err
	}
	if err != nil {
		return tx, fmt.Errorf("failed to scan transaction: %w", err)
	}

	if date.Valid {
		if tp, err := budget.ParseDate(date.String); err == nil {
			tx.Date = tp
		}
	}
	if tx.Amount, err = parseAmount(amount); err != nil {
		return tx, fmt.Errorf("transaction %s: %w", tx.ID, err)
	}

	var g *budget.Amount
	if gain.Valid {
		v, err := parseAmount(gain.String)
		if err != nil {
			return tx, fmt.Errorf("transaction %s gain: %w", tx.ID, err)
		}
		g = &v
	}
	if tx.Variant, err = budget.VariantFor(budget.Kind(kind), g); err != nil {
		return tx, fmt.Errorf("transaction %s: %w", tx.ID, err)
	}

	return tx, nil
}

// =============================================================================
// CATEGORY STORE (budget.CategoryStore interface)
// =============================================================================

// DefaultCategories returns the default catalog.
func (s *Store) DefaultCategories(ctx context.Context) ([]budget.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `SELECT name, kind, budget FROM categories ORDER BY kind, name_key`)
	if err != nil {
		return nil, fmt.Errorf("failed to query categories: %w", err)
	}
	defer rows.Close()

	var cats []budget.Category
	for rows.Next() {
		var c budget.Category
		var amount string
		if err := rows.Scan(&c.Name, &c.Kind, &amount); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		if c.Budget, err = parseAmount(amount); err != nil {
			return nil, fmt.Errorf("category %s: %w", c.Name, err)
		}
		cats = append(cats, c)
	}
	return cats, rows.Err()
}

// SaveDefaultCategory upserts a catalog entry.
func (s *Store) SaveDefaultCategory(ctx context.Context, c budget.Category) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO categories (name, name_key, kind, budget) VALUES (?, ?, ?, ?)
		ON CONFLICT(name_key, kind) DO UPDATE SET name = excluded.name, budget = excluded.budget`,
		strings.TrimSpace(c.Name), nameKey(c.Name), c.Kind, c.Budget.Value.String(),
	)
	if err != nil {
		return fmt.Errorf("failed to save category: %w", err)
	}
	return nil
}

// Overrides returns the budget overrides of user.
func (s *Store) Overrides(ctx context.Context, user budget.UserID) ([]budget.BudgetOverride, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, category_name, kind, budget
		FROM budget_overrides WHERE user_id = ? ORDER BY name_key, kind`,
		user,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query overrides: %w", err)
	}
	defer rows.Close()

	var overrides []budget.BudgetOverride
	for rows.Next() {
		var o budget.BudgetOverride
		var amount string
		if err := rows.Scan(&o.ID, &o.UserID, &o.CategoryName, &o.Kind, &amount); err != nil {
			return nil, fmt.Errorf("failed to scan override: %w", err)
		}
		if o.Budget, err = parseAmount(amount); err != nil {
			return nil, fmt.Errorf("override %s: %w", o.ID, err)
		}
		overrides = append(overrides, o)
	}
	return overrides, rows.Err()
}

// SaveOverride upserts on (user, category name, kind). An existing row
// keeps its id.
func (s *Store) SaveOverride(ctx context.Context, o budget.BudgetOverride) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO budget_overrides (id, user_id, category_name, name_key, kind, budget, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id, name_key, kind) DO UPDATE SET
			category_name = excluded.category_name,
			budget = excluded.budget,
			updated_at = excluded.updated_at`,
		o.ID, o.UserID, strings.TrimSpace(o.CategoryName), nameKey(o.CategoryName), o.Kind,
		o.Budget.Value.String(), time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to save override: %w", err)
	}
	return nil
}

// DeleteOverride removes the override, restoring the default budget.
func (s *Store) DeleteOverride(ctx context.Context, user budget.UserID, name string, kind budget.Kind) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		`DELETE FROM budget_overrides WHERE user_id = ? AND name_key = ? AND kind = ?`,
		user, nameKey(name), kind,
	)
	if err != nil {
		return fmt.Errorf("failed to delete override: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return budget.ErrOverrideNotFound
	}
	return nil
}

// =============================================================================
// SIMULATION STORE (budget.SimulationStore interface)
// =============================================================================

// SaveSimulation replaces the plan of user for year. Duplicate
// (month, category, kind) entries keep the last value.
func (s *Store) SaveSimulation(ctx context.Context, user budget.UserID, year int, entries []budget.SimulationEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if _, err := sqlTx.ExecContext(ctx,
		`DELETE FROM simulation_entries WHERE user_id = ? AND year = ?`, user, year,
	); err != nil {
		return fmt.Errorf("failed to clear simulation: %w", err)
	}

	for _, e := range entries {
		_, err := sqlTx.ExecContext(ctx, `
			INSERT INTO simulation_entries (user_id, year, month, category_name, name_key, kind, planned)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(user_id, year, month, name_key, kind) DO UPDATE SET
				category_name = excluded.category_name,
				planned = excluded.planned`,
			user, year, e.Month, strings.TrimSpace(e.CategoryName), nameKey(e.CategoryName), e.Kind,
			e.Planned.Value.String(),
		)
		if err != nil {
			return fmt.Errorf("failed to save simulation entry: %w", err)
		}
	}
	return sqlTx.Commit()
}

// Simulation returns the plan entries of user for year.
func (s *Store) Simulation(ctx context.Context, user budget.UserID, year int) ([]budget.SimulationEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT user_id, year, month, category_name, kind, planned
		FROM simulation_entries
		WHERE user_id = ? AND year = ?
		ORDER BY month, kind, name_key`,
		user, year,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query simulation: %w", err)
	}
	defer rows.Close()

	var entries []budget.SimulationEntry
	for rows.Next() {
		var e budget.SimulationEntry
		var planned string
		if err := rows.Scan(&e.UserID, &e.Year, &e.Month, &e.CategoryName, &e.Kind, &planned); err != nil {
			return nil, fmt.Errorf("failed to scan simulation entry: %w", err)
		}
		if e.Planned, err = parseAmount(planned); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// DeleteSimulation removes the plan of user for year.
func (s *Store) DeleteSimulation(ctx context.Context, user budget.UserID, year int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `DELETE FROM simulation_entries WHERE user_id = ? AND year = ?`, user, year)
	if err != nil {
		return fmt.Errorf("failed to delete simulation: %w", err)
	}
	return nil
}

// =============================================================================
// FLAG STORE (budget.FlagStore interface)
// =============================================================================

// MarkChanged records a change of user at. Older marks never overwrite
// newer ones.
func (s *Store) MarkChanged(ctx context.Context, user budget.UserID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sync_flags (user_id, changed_at) VALUES (?, ?)
		ON CONFLICT(user_id) DO UPDATE SET changed_at = MAX(changed_at, excluded.changed_at)`,
		user, at.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("failed to mark change: %w", err)
	}
	return nil
}

// LastChanged returns the zero time if user never changed.
func (s *Store) LastChanged(ctx context.Context, user budget.UserID) (time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var nanos int64
	err := s.db.QueryRowContext(ctx, `SELECT changed_at FROM sync_flags WHERE user_id = ?`, user).Scan(&nanos)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to read change flag: %w", err)
	}
	return time.Unix(0, nanos).UTC(), nil
}

// =============================================================================
// REPORT SUBSCRIPTIONS AND RUNS
// =============================================================================

// SaveSubscription upserts on (user, email) and returns the stored row.
func (s *Store) SaveSubscription(ctx context.Context, sub report.Subscription) (report.Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sub.ID == "" {
		sub.ID = uuid.NewString()
	}
	if sub.CreatedAt.IsZero() {
		sub.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO report_subscriptions (id, user_id, email, active, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(user_id, email) DO UPDATE SET active = excluded.active`,
		sub.ID, sub.UserID, strings.TrimSpace(sub.Email), sub.Active, sub.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return sub, fmt.Errorf("failed to save subscription: %w", err)
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, email, active, created_at
		FROM report_subscriptions WHERE user_id = ? AND email = ?`,
		sub.UserID, strings.TrimSpace(sub.Email),
	)
	return scanSubscription(row)
}

// ListSubscriptions returns the subscriptions of user.
func (s *Store) ListSubscriptions(ctx context.Context, user budget.UserID) ([]report.Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.querySubscriptions(ctx, `
		SELECT id, user_id, email, active, created_at
		FROM report_subscriptions WHERE user_id = ? ORDER BY created_at, id`, user)
}

// ActiveSubscriptions returns every active subscription.
func (s *Store) ActiveSubscriptions(ctx context.Context) ([]report.Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.querySubscriptions(ctx, `
		SELECT id, user_id, email, active, created_at
		FROM report_subscriptions WHERE active ORDER BY user_id, created_at, id`)
}

func (s *Store) querySubscriptions(ctx context.Context, query string, args ...any) ([]report.Subscription, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query subscriptions: %w", err)
	}
	defer rows.Close()

	var subs []report.Subscription
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, err
		}
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}

func scanSubscription(row scanner) (report.Subscription, error) {
	var sub report.Subscription
	var createdAt string
	if err := row.Scan(&sub.ID, &sub.UserID, &sub.Email, &sub.Active, &createdAt); err != nil {
		return sub, fmt.Errorf("failed to scan subscription: %w", err)
	}
	sub.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return sub, nil
}

// RecordRun stores one delivery attempt.
func (s *Store) RecordRun(ctx context.Context, r report.Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO report_runs (id, subscription_id, user_id, cycle, ran_at, status, error)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.SubscriptionID, r.UserID, r.Cycle, r.RanAt.UTC().Format(time.RFC3339), r.Status, r.Error,
	)
	if err != nil {
		return fmt.Errorf("failed to record report run: %w", err)
	}
	return nil
}

// ListRuns returns the most recent runs, newest first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]report.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, subscription_id, user_id, cycle, ran_at, status, error
		FROM report_runs ORDER BY ran_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query report runs: %w", err)
	}
	defer rows.Close()

	var runs []report.Run
	for rows.Next() {
		var r report.Run
		var ranAt string
		if err := rows.Scan(&r.ID, &r.SubscriptionID, &r.UserID, &r.Cycle, &ranAt, &r.Status, &r.Error); err != nil {
			return nil, fmt.Errorf("failed to scan report run: %w", err)
		}
		r.RanAt, _ = time.Parse(time.RFC3339, ranAt)
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// =============================================================================
// UTILITIES
// =============================================================================

// Reset clears all data (for testing/demo).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tables := []string{
		"transactions", "categories", "budget_overrides", "simulation_entries",
		"sync_flags", "report_subscriptions", "report_runs",
	}
	for _, table := range tables {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}
	return nil
}

// Helper functions

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func parseAmount(value string) (budget.Amount, error) {
	d, err := decimal.NewFromString(value)
	if err != nil {
		return budget.Amount{}, fmt.Errorf("invalid stored amount %q: %w", value, err)
	}
	return budget.AmountOf(d), nil
}

func nameKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
