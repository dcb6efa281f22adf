package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// GetEquipmentItem loads a single inventory item.
func GetEquipmentItem(ctx context.Context, q sqlx.ExtContext, id int64) (*EquipmentItem, error) {
	var item EquipmentItem
	err := sqlx.GetContext(ctx, q, &item, "SELECT * FROM equipment_items WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("equipment item %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get equipment item %d: %w", id, err)
	}
	return &item, nil
}

// ListEquipment returns a character's full eligible inventory.
func ListEquipment(ctx context.Context, q sqlx.ExtContext, characterID int64) ([]EquipmentItem, error) {
	var items []EquipmentItem
	err := sqlx.SelectContext(ctx, q, &items,
		"SELECT * FROM equipment_items WHERE character_id = ? ORDER BY id", characterID)
	if err != nil {
		return nil, fmt.Errorf("list equipment for character %d: %w", characterID, err)
	}
	return items, nil
}

// InsertEquipmentItem adds an item to a character's inventory.
func InsertEquipmentItem(ctx context.Context, q sqlx.ExtContext, item *EquipmentItem) error {
	res, err := q.ExecContext(ctx,
		"INSERT INTO equipment_items (character_id, name, slot, equipped) VALUES (?, ?, ?, ?)",
		item.CharacterID, item.Name, item.Slot, item.Equipped,
	)
	if err != nil {
		return fmt.Errorf("insert equipment item: %w", err)
	}
	item.ID, err = res.LastInsertId()
	return err
}

// EquipItem marks one item equipped and clears any other item in the same
// slot for that character. Callers run this inside a transaction.
func EquipItem(ctx context.Context, q sqlx.ExtContext, characterID, itemID int64, slot string) error {
	_, err := q.ExecContext(ctx,
		"UPDATE equipment_items SET equipped = 0 WHERE character_id = ? AND slot = ?",
		characterID, slot,
	)
	if err != nil {
		return fmt.Errorf("clear slot %q for character %d: %w", slot, characterID, err)
	}
	_, err = q.ExecContext(ctx,
		"UPDATE equipment_items SET equipped = 1 WHERE id = ?", itemID)
	if err != nil {
		return fmt.Errorf("equip item %d: %w", itemID, err)
	}
	return nil
}

// GetAbility loads a single ability.
func GetAbility(ctx context.Context, q sqlx.ExtContext, id int64) (*Ability, error) {
	var a Ability
	err := sqlx.GetContext(ctx, q, &a, "SELECT * FROM abilities WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("ability %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get ability %d: %w", id, err)
	}
	return &a, nil
}

// ListRankableAbilities returns the character's abilities that still have
// room to rank up.
func ListRankableAbilities(ctx context.Context, q sqlx.ExtContext, characterID int64) ([]Ability, error) {
	var abilities []Ability
	err := sqlx.SelectContext(ctx, q, &abilities,
		"SELECT * FROM abilities WHERE character_id = ? AND rank < max_rank ORDER BY id",
		characterID,
	)
	if err != nil {
		return nil, fmt.Errorf("list rankable abilities for character %d: %w", characterID, err)
	}
	return abilities, nil
}

// InsertAbility adds an ability row.
func InsertAbility(ctx context.Context, q sqlx.ExtContext, a *Ability) error {
	res, err := q.ExecContext(ctx,
		"INSERT INTO abilities (character_id, name, rank, max_rank) VALUES (?, ?, ?, ?)",
		a.CharacterID, a.Name, a.Rank, a.MaxRank,
	)
	if err != nil {
		return fmt.Errorf("insert ability: %w", err)
	}
	a.ID, err = res.LastInsertId()
	return err
}

// RankUpAbility increments an ability's rank by one.
func RankUpAbility(ctx context.Context, q sqlx.ExtContext, id int64) error {
	_, err := q.ExecContext(ctx,
		"UPDATE abilities SET rank = rank + 1 WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("rank up ability %d: %w", id, err)
	}
	return nil
}
