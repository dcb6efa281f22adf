// Package mastery promotes spell ranks by spending mastery points, gated
// by the spell's mastery level.
package mastery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"

	"github.com/emberlane/wildbond/internal/store"
)

// Per-rank mastery levels required: rank N needs mastery level (N-1)*3.
const masteryLevelsPerRank = 3

// Tiered point cost schedule.
const (
	rank2Cost    = 1
	rank3Cost    = 2
	baseRankCost = 3
)

// Typed failures. These are expected user-facing outcomes, returned rather
// than wrapped in opaque errors so callers can branch on them.
var (
	ErrAlreadyMaxed       = errors.New("spell is already at max rank")
	ErrMasteryTooLow      = errors.New("mastery level too low for next rank")
	ErrInsufficientPoints = errors.New("not enough mastery points")
)

// CostForRank resolves the point cost to reach the given rank.
func CostForRank(rank int) int {
	switch rank {
	case 2:
		return rank2Cost
	case 3:
		return rank3Cost
	default:
		return baseRankCost
	}
}

// RequiredMasteryLevel is the mastery level gate for reaching a rank.
func RequiredMasteryLevel(rank int) int {
	return (rank - 1) * masteryLevelsPerRank
}

// Result reports a successful rank-up.
type Result struct {
	NewRank         int `json:"new_rank"`
	RemainingPoints int `json:"remaining_points"`
}

// Service runs mastery rank-up transactions.
type Service struct {
	db *store.DB
}

// NewService creates a mastery service over the given store.
func NewService(db *store.DB) *Service {
	return &Service{db: db}
}

// RankUp promotes a spell by exactly one rank, deducting the tiered point
// cost. The deduction and the increment commit together or not at all.
func (s *Service) RankUp(ctx context.Context, characterID, spellID int64) (*Result, error) {
	var result Result
	err := s.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		spell, err := store.GetSpell(ctx, tx, characterID, spellID)
		if err != nil {
			return err
		}

		if spell.CurrentRank >= spell.MaxRank {
			return fmt.Errorf("spell %d at rank %d/%d: %w",
				spellID, spell.CurrentRank, spell.MaxRank, ErrAlreadyMaxed)
		}

		nextRank := spell.CurrentRank + 1
		if required := RequiredMasteryLevel(nextRank); spell.MasteryLevel < required {
			return fmt.Errorf("spell %d needs mastery level %d for rank %d, has %d: %w",
				spellID, required, nextRank, spell.MasteryLevel, ErrMasteryTooLow)
		}

		cost := CostForRank(nextRank)
		if spell.MasteryPoints < cost {
			return fmt.Errorf("spell %d rank %d costs %d points, has %d: %w",
				spellID, nextRank, cost, spell.MasteryPoints, ErrInsufficientPoints)
		}

		if err := store.DeductMasteryPoints(ctx, tx, spellID, cost); err != nil {
			return err
		}
		if err := store.IncrementSpellRank(ctx, tx, spellID); err != nil {
			return err
		}

		result = Result{
			NewRank:         nextRank,
			RemainingPoints: spell.MasteryPoints - cost,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.Info("spell ranked up",
		"character", characterID,
		"spell", spellID,
		"new_rank", result.NewRank,
		"remaining_points", result.RemainingPoints,
	)
	return &result, nil
}
