package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// GetSpell loads a spell owned by the given character.
func GetSpell(ctx context.Context, q sqlx.ExtContext, characterID, spellID int64) (*Spell, error) {
	var s Spell
	err := sqlx.GetContext(ctx, q, &s,
		"SELECT * FROM spells WHERE id = ? AND character_id = ?", spellID, characterID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("spell %d for character %d: %w", spellID, characterID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get spell %d: %w", spellID, err)
	}
	return &s, nil
}

// InsertSpell adds a spell row.
func InsertSpell(ctx context.Context, q sqlx.ExtContext, s *Spell) error {
	res, err := q.ExecContext(ctx, `INSERT INTO spells
		(character_id, name, current_rank, max_rank, mastery_level, mastery_points)
		VALUES (?, ?, ?, ?, ?, ?)`,
		s.CharacterID, s.Name, s.CurrentRank, s.MaxRank, s.MasteryLevel, s.MasteryPoints,
	)
	if err != nil {
		return fmt.Errorf("insert spell: %w", err)
	}
	s.ID, err = res.LastInsertId()
	return err
}

// DeductMasteryPoints removes cost points from a spell's pool.
// Must run in the same transaction as the rank increment.
func DeductMasteryPoints(ctx context.Context, q sqlx.ExtContext, spellID int64, cost int) error {
	_, err := q.ExecContext(ctx,
		"UPDATE spells SET mastery_points = mastery_points - ? WHERE id = ?", cost, spellID)
	if err != nil {
		return fmt.Errorf("deduct %d mastery points from spell %d: %w", cost, spellID, err)
	}
	return nil
}

// IncrementSpellRank promotes a spell's rank by exactly one.
func IncrementSpellRank(ctx context.Context, q sqlx.ExtContext, spellID int64) error {
	_, err := q.ExecContext(ctx,
		"UPDATE spells SET current_rank = current_rank + 1 WHERE id = ?", spellID)
	if err != nil {
		return fmt.Errorf("increment rank for spell %d: %w", spellID, err)
	}
	return nil
}
