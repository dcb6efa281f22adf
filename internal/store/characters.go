package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// GetCharacter loads a character by id. Works inside or outside a transaction.
func GetCharacter(ctx context.Context, q sqlx.ExtContext, id int64) (*Character, error) {
	var c Character
	err := sqlx.GetContext(ctx, q, &c, "SELECT * FROM characters WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("character %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get character %d: %w", id, err)
	}
	return &c, nil
}

// InsertCharacter creates a character row. Used by seeding and tests.
func InsertCharacter(ctx context.Context, q sqlx.ExtContext, c *Character) error {
	res, err := q.ExecContext(ctx, `INSERT INTO characters
		(user_id, name, archetype, rarity, level, experience,
		 stat_points, skill_points, ability_points, tier, title,
		 adherence, bond_level, personality, might, agility, vitality, focus, spirit)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.UserID, c.Name, c.Archetype, c.Rarity, c.Level, c.Experience,
		c.StatPoints, c.SkillPoints, c.AbilityPoints, c.Tier, c.Title,
		c.Adherence, c.BondLevel, c.Personality,
		c.Might, c.Agility, c.Vitality, c.Focus, c.Spirit,
	)
	if err != nil {
		return fmt.Errorf("insert character: %w", err)
	}
	c.ID, err = res.LastInsertId()
	return err
}

// ApplyProgress writes the ledger's progression update for one character.
// Every column is explicit; this is the only place level/experience change.
func ApplyProgress(ctx context.Context, q sqlx.ExtContext, id int64, u ProgressUpdate) error {
	_, err := q.ExecContext(ctx, `UPDATE characters SET
		level = ?, experience = ?, stat_points = ?, skill_points = ?,
		ability_points = ?, tier = ?, title = ?
		WHERE id = ?`,
		u.Level, u.Experience, u.StatPoints, u.SkillPoints,
		u.AbilityPoints, u.Tier, u.Title, id,
	)
	if err != nil {
		return fmt.Errorf("apply progress for character %d: %w", id, err)
	}
	return nil
}

// AdjustAdherence applies a delta to a character's adherence score,
// clamped to [0, 100].
func AdjustAdherence(ctx context.Context, q sqlx.ExtContext, id int64, delta int) error {
	_, err := q.ExecContext(ctx,
		"UPDATE characters SET adherence = MAX(0, MIN(100, adherence + ?)) WHERE id = ?",
		delta, id,
	)
	if err != nil {
		return fmt.Errorf("adjust adherence for character %d: %w", id, err)
	}
	return nil
}

// ApplyStatVector adds an allocation vector to a character's stats.
func ApplyStatVector(ctx context.Context, q sqlx.ExtContext, id int64, v StatVector) error {
	_, err := q.ExecContext(ctx, `UPDATE characters SET
		might = might + ?, agility = agility + ?, vitality = vitality + ?,
		focus = focus + ?, spirit = spirit + ?
		WHERE id = ?`,
		v.Might, v.Agility, v.Vitality, v.Focus, v.Spirit, id,
	)
	if err != nil {
		return fmt.Errorf("apply stats for character %d: %w", id, err)
	}
	return nil
}

// GetStatPreferences returns a character's ranked stat preferences,
// strongest first.
func GetStatPreferences(ctx context.Context, q sqlx.ExtContext, characterID int64) ([]StatPreference, error) {
	var prefs []StatPreference
	err := sqlx.SelectContext(ctx, q, &prefs,
		"SELECT * FROM stat_preferences WHERE character_id = ? ORDER BY rank DESC, stat ASC",
		characterID,
	)
	if err != nil {
		return nil, fmt.Errorf("stat preferences for character %d: %w", characterID, err)
	}
	return prefs, nil
}

// SetStatPreference upserts one stat preference rank.
func SetStatPreference(ctx context.Context, q sqlx.ExtContext, p StatPreference) error {
	_, err := q.ExecContext(ctx, `INSERT INTO stat_preferences (character_id, stat, rank)
		VALUES (?, ?, ?)
		ON CONFLICT (character_id, stat) DO UPDATE SET rank = excluded.rank`,
		p.CharacterID, p.Stat, p.Rank,
	)
	return err
}

// LockBattle marks a character as locked in an active battle.
func LockBattle(ctx context.Context, q sqlx.ExtContext, characterID int64, battleID string) error {
	_, err := q.ExecContext(ctx, `INSERT INTO active_battles (character_id, battle_id, started_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT (character_id) DO UPDATE SET battle_id = excluded.battle_id`,
		characterID, battleID,
	)
	if err != nil {
		return fmt.Errorf("lock battle for character %d: %w", characterID, err)
	}
	return nil
}

// UnlockBattle releases a character's battle lock.
func UnlockBattle(ctx context.Context, q sqlx.ExtContext, characterID int64) error {
	_, err := q.ExecContext(ctx,
		"DELETE FROM active_battles WHERE character_id = ?", characterID)
	if err != nil {
		return fmt.Errorf("unlock battle for character %d: %w", characterID, err)
	}
	return nil
}

// InBattle reports whether the character is locked in an active battle.
// Advisory read: a battle may start between this check and a later write.
func InBattle(ctx context.Context, q sqlx.ExtContext, characterID int64) (bool, error) {
	var n int
	err := sqlx.GetContext(ctx, q, &n,
		"SELECT COUNT(*) FROM active_battles WHERE character_id = ?", characterID)
	if err != nil {
		return false, fmt.Errorf("battle check for character %d: %w", characterID, err)
	}
	return n > 0, nil
}
