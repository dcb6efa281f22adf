package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestGetOrCreateRequirementPrefersExistingRow(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	seeded := LevelRequirement{
		Level:               3,
		TotalXPRequired:     500,
		StatPointsReward:    9,
		SkillPointsReward:   4,
		AbilityPointsReward: 2,
		TierTitle:           "Fledgling",
	}
	got, err := GetOrCreateRequirement(ctx, db.Conn(), seeded)
	require.NoError(t, err)
	assert.Equal(t, int64(500), got.TotalXPRequired)

	// A second call with different numbers must not overwrite: the stored
	// row stays authoritative.
	got, err = GetOrCreateRequirement(ctx, db.Conn(), LevelRequirement{
		Level:           3,
		TotalXPRequired: 999,
		TierTitle:       "Adept",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(500), got.TotalXPRequired)
	assert.Equal(t, 9, got.StatPointsReward)
	assert.Equal(t, "Fledgling", got.TierTitle)
}

func TestUpsertPendingAllocationIncrements(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	c := &Character{
		UserID: "coach-1", Name: "Ashwing", Archetype: "mystic",
		Rarity: "epic", Level: 1, Adherence: 50, Personality: "aloof",
	}
	require.NoError(t, InsertCharacter(ctx, db.Conn(), c))

	first := PendingAllocation{
		CharacterID: c.ID, PendingLevels: 1, PendingStatPoints: 7,
		Archetype: "mystic", Rarity: "epic",
	}
	require.NoError(t, UpsertPendingAllocation(ctx, db.Conn(), first))
	require.NoError(t, UpsertPendingAllocation(ctx, db.Conn(), PendingAllocation{
		CharacterID: c.ID, PendingLevels: 2, PendingStatPoints: 14,
		Archetype: "mystic", Rarity: "epic",
	}))

	pending, err := GetPendingAllocation(ctx, db.Conn(), c.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, pending.PendingLevels)
	assert.Equal(t, 21, pending.PendingStatPoints)
}

func TestEquipItemClearsSlot(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	c := &Character{
		UserID: "coach-1", Name: "Ashwing", Archetype: "bruiser",
		Rarity: "common", Level: 1, Adherence: 50, Personality: "bold",
	}
	require.NoError(t, InsertCharacter(ctx, db.Conn(), c))

	helm := &EquipmentItem{CharacterID: c.ID, Name: "Bramble Helm", Slot: "head"}
	require.NoError(t, InsertEquipmentItem(ctx, db.Conn(), helm))
	iron := &EquipmentItem{CharacterID: c.ID, Name: "Iron Helm", Slot: "head"}
	require.NoError(t, InsertEquipmentItem(ctx, db.Conn(), iron))

	require.NoError(t, EquipItem(ctx, db.Conn(), c.ID, helm.ID, "head"))
	require.NoError(t, EquipItem(ctx, db.Conn(), c.ID, iron.ID, "head"))

	items, err := ListEquipment(ctx, db.Conn(), c.ID)
	require.NoError(t, err)
	equipped := 0
	for _, item := range items {
		if item.Equipped {
			equipped++
			assert.Equal(t, iron.ID, item.ID)
		}
	}
	assert.Equal(t, 1, equipped, "only one item per slot stays equipped")
}

func TestAdjustAdherenceClamps(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	c := &Character{
		UserID: "coach-1", Name: "Ashwing", Archetype: "bruiser",
		Rarity: "common", Level: 1, Adherence: 97, Personality: "bold",
	}
	require.NoError(t, InsertCharacter(ctx, db.Conn(), c))

	require.NoError(t, AdjustAdherence(ctx, db.Conn(), c.ID, 10))
	got, err := GetCharacter(ctx, db.Conn(), c.ID)
	require.NoError(t, err)
	assert.Equal(t, 100, got.Adherence)

	require.NoError(t, AdjustAdherence(ctx, db.Conn(), c.ID, -250))
	got, err = GetCharacter(ctx, db.Conn(), c.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.Adherence)
}

func TestGetCharacterNotFound(t *testing.T) {
	db := newTestDB(t)
	_, err := GetCharacter(context.Background(), db.Conn(), 42)
	require.ErrorIs(t, err, ErrNotFound)
}
