package rebellion

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emberlane/wildbond/internal/adherence"
	"github.com/emberlane/wildbond/internal/progression"
	"github.com/emberlane/wildbond/internal/store"
)

func seedPending(t *testing.T, db *store.DB, characterID int64, points int) {
	t.Helper()
	require.NoError(t, store.UpsertPendingAllocation(context.Background(), db.Conn(), store.PendingAllocation{
		CharacterID:       characterID,
		PendingLevels:     1,
		PendingStatPoints: points,
		Archetype:         "bruiser",
		Rarity:            "rare",
	}))
}

func seedPreferences(t *testing.T, db *store.DB, characterID int64) {
	t.Helper()
	ctx := context.Background()
	for stat, rank := range map[string]int{"might": 4, "focus": 3, "agility": 2} {
		require.NoError(t, store.SetStatPreference(ctx, db.Conn(), store.StatPreference{
			CharacterID: characterID, Stat: stat, Rank: rank,
		}))
	}
}

func TestDominantStat(t *testing.T) {
	assert.Equal(t, "vitality", DominantStat(store.StatVector{Might: 1, Vitality: 4, Focus: 1}))
	// Ties break in canonical stat order.
	assert.Equal(t, "might", DominantStat(store.StatVector{Might: 3, Agility: 3}))
	assert.Equal(t, "might", DominantStat(store.StatVector{}))
}

func TestPreferenceScoreFor(t *testing.T) {
	prefs := []store.StatPreference{
		{Stat: "might", Rank: 4},
		{Stat: "focus", Rank: 3},
		{Stat: "agility", Rank: 2},
		{Stat: "spirit", Rank: 1},
	}
	assert.Equal(t, 70, PreferenceScoreFor(prefs, "might"))
	assert.Equal(t, 60, PreferenceScoreFor(prefs, "focus"))
	assert.Equal(t, 50, PreferenceScoreFor(prefs, "agility"))
	assert.Equal(t, 30, PreferenceScoreFor(prefs, "spirit"))
	assert.Equal(t, 40, PreferenceScoreFor(prefs, "vitality"), "unranked stats score neutral")
}

func TestSubstituteVectorSumsToBudget(t *testing.T) {
	prefs := []store.StatPreference{
		{Stat: "might", Rank: 4},
		{Stat: "focus", Rank: 3},
		{Stat: "agility", Rank: 2},
	}
	for budget := 1; budget <= 25; budget++ {
		v := SubstituteVector(prefs, budget)
		assert.Equal(t, budget, v.Total(), "budget %d", budget)
	}
}

func TestSubstituteVectorRankOrder(t *testing.T) {
	prefs := []store.StatPreference{
		{Stat: "might", Rank: 4},
		{Stat: "focus", Rank: 3},
		{Stat: "agility", Rank: 2},
	}

	// Budget 2 with 3 preferences: only the two strongest get a point.
	v := SubstituteVector(prefs, 2)
	assert.Equal(t, 1, v.Might)
	assert.Equal(t, 1, v.Focus)
	assert.Equal(t, 0, v.Agility)

	// Budget 7: baseline 1 each, overflow 4 round-robin -> 3/2/2.
	v = SubstituteVector(prefs, 7)
	assert.Equal(t, 3, v.Might)
	assert.Equal(t, 2, v.Focus)
	assert.Equal(t, 2, v.Agility)
}

func TestAllocateStatsAdhered(t *testing.T) {
	db := newTestDB(t)
	chooser := &scriptedChooser{}
	// Dominant stat "might" is the rank-4 preference (score 70);
	// a roll of 50 passes.
	resolver := newTestResolver(db, adherence.FixedSource(50), chooser)
	c := seedCharacter(t, db, 30)
	seedPending(t, db, c.ID, 6)
	seedPreferences(t, db, c.ID)

	proposed := store.StatVector{Might: 4, Vitality: 2}
	res, err := resolver.AllocateStatsWithAdherence(context.Background(), c.ID, proposed)
	require.NoError(t, err)

	assert.Equal(t, OutcomeAdhered, res.Outcome)
	require.NotNil(t, res.Vector)
	assert.Equal(t, proposed, *res.Vector)

	got, err := store.GetCharacter(context.Background(), db.Conn(), c.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, got.Might)
	assert.Equal(t, 2, got.Vitality)
	assert.Equal(t, 30, got.Adherence)

	_, err = store.GetPendingAllocation(context.Background(), db.Conn(), c.ID)
	require.ErrorIs(t, err, store.ErrNotFound, "pending allocation consumed")
}

func TestAllocateStatsRebellion(t *testing.T) {
	db := newTestDB(t)
	chooser := &scriptedChooser{}
	// Dominant stat "vitality" is unranked (score 40); a roll of 50 fails.
	resolver := newTestResolver(db, adherence.FixedSource(50), chooser)
	c := seedCharacter(t, db, 30)
	seedPending(t, db, c.ID, 6)
	seedPreferences(t, db, c.ID)

	proposed := store.StatVector{Vitality: 4, Spirit: 2}
	res, err := resolver.AllocateStatsWithAdherence(context.Background(), c.ID, proposed)
	require.NoError(t, err)

	assert.Equal(t, OutcomeRebelled, res.Outcome)
	require.NotNil(t, res.Vector)
	assert.Equal(t, 6, res.Vector.Total(), "substituted vector keeps the full budget")

	// The entire allocation was overridden by the character's own
	// preferences: baseline 1 each plus 3 overflow round-robin -> 2/2/2.
	got, err := store.GetCharacter(context.Background(), db.Conn(), c.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.Might)
	assert.Equal(t, 2, got.Focus)
	assert.Equal(t, 2, got.Agility)
	assert.Equal(t, 0, got.Vitality, "coach's plan fully discarded")
	assert.Equal(t, 0, got.Spirit)

	assert.Equal(t, 30+RebellionPenalty, got.Adherence)

	_, err = store.GetPendingAllocation(context.Background(), db.Conn(), c.ID)
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestAllocateStatsNegativeComponent(t *testing.T) {
	db := newTestDB(t)
	resolver := newTestResolver(db, adherence.FixedSource(50), &scriptedChooser{})
	c := seedCharacter(t, db, 30)
	seedPending(t, db, c.ID, 6)
	seedPreferences(t, db, c.ID)

	// Sums to the budget but drains agility to fund might.
	_, err := resolver.AllocateStatsWithAdherence(context.Background(), c.ID, store.StatVector{Might: 10, Agility: -4})
	var integrity progression.IntegrityError
	require.ErrorAs(t, err, &integrity)

	got, err := store.GetCharacter(context.Background(), db.Conn(), c.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.Might)
	assert.Equal(t, 0, got.Agility)
	assert.Equal(t, 30, got.Adherence)

	pending, err := store.GetPendingAllocation(context.Background(), db.Conn(), c.ID)
	require.NoError(t, err)
	assert.Equal(t, 6, pending.PendingStatPoints)
}

func TestAllocateStatsSumMismatch(t *testing.T) {
	db := newTestDB(t)
	resolver := newTestResolver(db, adherence.FixedSource(50), &scriptedChooser{})
	c := seedCharacter(t, db, 30)
	seedPending(t, db, c.ID, 6)

	_, err := resolver.AllocateStatsWithAdherence(context.Background(), c.ID, store.StatVector{Might: 3})
	var integrity progression.IntegrityError
	require.ErrorAs(t, err, &integrity)
}

func TestAllocateStatsNoPreferencesOnRebellion(t *testing.T) {
	db := newTestDB(t)
	// No preferences seeded: the unranked dominant stat scores 40 and a
	// roll of 50 fails, but there is nothing to substitute from.
	resolver := newTestResolver(db, adherence.FixedSource(50), &scriptedChooser{})
	c := seedCharacter(t, db, 30)
	seedPending(t, db, c.ID, 6)

	_, err := resolver.AllocateStatsWithAdherence(context.Background(), c.ID, store.StatVector{Vitality: 6})
	var missing progression.MissingDataError
	require.ErrorAs(t, err, &missing)

	// The pending allocation is untouched.
	pending, err := store.GetPendingAllocation(context.Background(), db.Conn(), c.ID)
	require.NoError(t, err)
	assert.Equal(t, 6, pending.PendingStatPoints)
}

func TestAllocateStatsBattleLocked(t *testing.T) {
	db := newTestDB(t)
	resolver := newTestResolver(db, adherence.FixedSource(50), &scriptedChooser{})
	c := seedCharacter(t, db, 30)
	seedPending(t, db, c.ID, 6)
	seedPreferences(t, db, c.ID)
	require.NoError(t, store.LockBattle(context.Background(), db.Conn(), c.ID, "battle-3"))

	_, err := resolver.AllocateStatsWithAdherence(context.Background(), c.ID, store.StatVector{Might: 6})
	require.ErrorIs(t, err, progression.ErrInBattle)
}

func TestAllocateStatsNoPendingAllocation(t *testing.T) {
	db := newTestDB(t)
	resolver := newTestResolver(db, adherence.FixedSource(50), &scriptedChooser{})
	c := seedCharacter(t, db, 30)

	_, err := resolver.AllocateStatsWithAdherence(context.Background(), c.ID, store.StatVector{Might: 6})
	require.ErrorIs(t, err, store.ErrNotFound)
}
