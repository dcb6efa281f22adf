package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// GetPendingAllocation returns the pending stat allocation for a character,
// or ErrNotFound if none is outstanding.
func GetPendingAllocation(ctx context.Context, q sqlx.ExtContext, characterID int64) (*PendingAllocation, error) {
	var p PendingAllocation
	err := sqlx.GetContext(ctx, q, &p,
		"SELECT * FROM pending_allocations WHERE character_id = ?", characterID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("pending allocation for character %d: %w", characterID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get pending allocation for character %d: %w", characterID, err)
	}
	return &p, nil
}

// UpsertPendingAllocation creates a pending allocation or increments the
// existing one by the given levels and points.
func UpsertPendingAllocation(ctx context.Context, q sqlx.ExtContext, p PendingAllocation) error {
	_, err := q.ExecContext(ctx, `INSERT INTO pending_allocations
		(character_id, pending_levels, pending_stat_points, archetype, rarity)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (character_id) DO UPDATE SET
			pending_levels = pending_levels + excluded.pending_levels,
			pending_stat_points = pending_stat_points + excluded.pending_stat_points`,
		p.CharacterID, p.PendingLevels, p.PendingStatPoints, p.Archetype, p.Rarity,
	)
	if err != nil {
		return fmt.Errorf("upsert pending allocation for character %d: %w", p.CharacterID, err)
	}
	return nil
}

// DeletePendingAllocation consumes a pending allocation. Runs in the same
// transaction as the stat write that spends it.
func DeletePendingAllocation(ctx context.Context, q sqlx.ExtContext, characterID int64) error {
	_, err := q.ExecContext(ctx,
		"DELETE FROM pending_allocations WHERE character_id = ?", characterID)
	if err != nil {
		return fmt.Errorf("delete pending allocation for character %d: %w", characterID, err)
	}
	return nil
}
