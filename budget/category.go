package budget

import (
	"sort"
	"strings"
)

// =============================================================================
// CATEGORY - Named budget bucket
// =============================================================================

// Category is a bucket with a kind and a budget for one cycle.
type Category struct {
	Name   string
	Kind   Kind
	Budget Amount
}

// BudgetOverride replaces the default budget of (CategoryName, Kind) for
// one user.
type BudgetOverride struct {
	ID           string
	UserID       UserID
	CategoryName string
	Kind         Kind
	Budget       Amount
}

// categoryKey matches categories case-insensitively; transaction rows are
// typed by hand and "casa" and "Casa" are the same bucket.
type categoryKey struct {
	name string
	kind Kind
}

func newCategoryKey(name string, kind Kind) categoryKey {
	return categoryKey{name: strings.ToLower(strings.TrimSpace(name)), kind: kind}
}

// EffectiveCategories returns the categories a user sees: the defaults with
// that user's overrides applied. An override for a pair that has no
// default adds a user category. Overrides of other users are ignored. The
// result is unique on (name, kind) and sorted by kind then name.
func EffectiveCategories(defaults []Category, overrides []BudgetOverride, user UserID) []Category {
	byKey := make(map[categoryKey]int)
	out := make([]Category, 0, len(defaults)+len(overrides))

	for _, c := range defaults {
		key := newCategoryKey(c.Name, c.Kind)
		if i, ok := byKey[key]; ok {
			out[i] = c
			continue
		}
		byKey[key] = len(out)
		out = append(out, c)
	}

	for _, o := range overrides {
		if o.UserID != user {
			continue
		}
		key := newCategoryKey(o.CategoryName, o.Kind)
		if i, ok := byKey[key]; ok {
			out[i].Budget = o.Budget
			continue
		}
		byKey[key] = len(out)
		out = append(out, Category{Name: strings.TrimSpace(o.CategoryName), Kind: o.Kind, Budget: o.Budget})
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Kind != out[j].Kind {
			return out[i].Kind.order() < out[j].Kind.order()
		}
		return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name)
	})
	return out
}
