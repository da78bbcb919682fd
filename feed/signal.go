package feed

import (
	"context"
	"fmt"
	"time"

	"github.com/warp/budget-engine/budget"
)

// ChangeSignal is the shared "data changed" flag. Every reader of a user's
// data sees the same flag through the FlagStore, so a write made by one
// client is noticed by the others on their next gated refresh instead of
// forcing an immediate refetch everywhere.
type ChangeSignal struct {
	flags budget.FlagStore
	clock Clock
}

func NewChangeSignal(flags budget.FlagStore, clock Clock) *ChangeSignal {
	return &ChangeSignal{flags: flags, clock: clock}
}

// Signal records that user's data changed now.
func (s *ChangeSignal) Signal(ctx context.Context, user budget.UserID) error {
	if err := s.flags.MarkChanged(ctx, user, s.clock.Now()); err != nil {
		return fmt.Errorf("mark %s changed: %w", user, err)
	}
	return nil
}

// ChangedSince reports whether user's data changed after t.
func (s *ChangeSignal) ChangedSince(ctx context.Context, user budget.UserID, t time.Time) (bool, error) {
	last, err := s.flags.LastChanged(ctx, user)
	if err != nil {
		return false, fmt.Errorf("read change flag of %s: %w", user, err)
	}
	return last.After(t), nil
}
