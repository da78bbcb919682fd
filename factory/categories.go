package factory

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/warp/budget-engine/budget"
)

//go:embed categories.json
var defaultCategoriesJSON []byte

// CategoryRow is one entry of a category catalog.
type CategoryRow struct {
	Nome      string          `json:"nome"`
	Tipo      string          `json:"tipo"`
	Orcamento decimal.Decimal `json:"orcamento"`
}

// DefaultCategories returns the built-in catalog every user starts with.
func DefaultCategories() []budget.Category {
	cats, err := ParseCategories(defaultCategoriesJSON)
	if err != nil {
		panic(fmt.Sprintf("embedded category catalog: %v", err))
	}
	return cats
}

// ParseCategories parses a JSON category catalog.
func ParseCategories(data []byte) ([]budget.Category, error) {
	var rows []CategoryRow
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("failed to parse category catalog: %w", err)
	}

	cats := make([]budget.Category, 0, len(rows))
	for i, row := range rows {
		kind, err := budget.ParseKind(row.Tipo)
		if err != nil {
			return nil, fmt.Errorf("category %d (%s): %w", i, row.Nome, err)
		}
		if row.Nome == "" {
			return nil, fmt.Errorf("category %d: %w", i, budget.ErrEmptyCategory)
		}
		cats = append(cats, budget.Category{Name: row.Nome, Kind: kind, Budget: budget.AmountOf(row.Orcamento)})
	}
	return cats, nil
}

// SeedDefaultCategories writes the built-in catalog into store when the
// store has no default categories yet. It returns how many were written.
func SeedDefaultCategories(ctx context.Context, store budget.CategoryStore) (int, error) {
	existing, err := store.DefaultCategories(ctx)
	if err != nil {
		return 0, err
	}
	if len(existing) > 0 {
		return 0, nil
	}
	cats := DefaultCategories()
	for _, c := range cats {
		if err := store.SaveDefaultCategory(ctx, c); err != nil {
			return 0, fmt.Errorf("seed category %s: %w", c.Name, err)
		}
	}
	return len(cats), nil
}
