package report

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/warp/budget-engine/budget"
)

// TransactionSource returns a user's stored transactions.
// feed.TransactionFeed satisfies it.
type TransactionSource interface {
	Transactions(ctx context.Context, user budget.UserID) ([]budget.Transaction, error)
}

// StoreSource reads straight from a store, without caching.
type StoreSource struct {
	Store budget.TransactionStore
}

func (s StoreSource) Transactions(ctx context.Context, user budget.UserID) ([]budget.Transaction, error) {
	return s.Store.ListTransactions(ctx, user)
}

// Builder loads a user's data and computes snapshots and reports.
type Builder struct {
	Transactions TransactionSource
	Categories   budget.CategoryStore
	Cycle        budget.CycleConfig
	Options      Options
	Log          logrus.FieldLogger
}

// EffectiveCategories returns the effective categories of user.
func (b *Builder) EffectiveCategories(ctx context.Context, user budget.UserID) ([]budget.Category, error) {
	defaults, err := b.Categories.DefaultCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("load default categories: %w", err)
	}
	overrides, err := b.Categories.Overrides(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("load overrides of %s: %w", user, err)
	}
	return budget.EffectiveCategories(defaults, overrides, user), nil
}

// Snapshot computes the snapshot of the cycle containing ref for user.
func (b *Builder) Snapshot(ctx context.Context, user budget.UserID, ref budget.TimePoint) (budget.CycleSnapshot, error) {
	txs, err := b.Transactions.Transactions(ctx, user)
	if err != nil {
		return budget.CycleSnapshot{}, fmt.Errorf("load transactions of %s: %w", user, err)
	}
	cats, err := b.EffectiveCategories(ctx, user)
	if err != nil {
		return budget.CycleSnapshot{}, err
	}
	return budget.BuildSnapshot(b.Cycle, txs, cats, ref, b.logger().WithField("user_id", user)), nil
}

// Report renders the report of the cycle containing ref for user.
func (b *Builder) Report(ctx context.Context, user budget.UserID, ref budget.TimePoint) (string, budget.CycleSnapshot, error) {
	snap, err := b.Snapshot(ctx, user, ref)
	if err != nil {
		return "", budget.CycleSnapshot{}, err
	}
	return Format(snap, b.Options), snap, nil
}

func (b *Builder) logger() logrus.FieldLogger {
	if b.Log == nil {
		return logrus.StandardLogger()
	}
	return b.Log
}
