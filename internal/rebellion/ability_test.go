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

func seedAbility(t *testing.T, db *store.DB, characterID int64, name string, rank, maxRank int) *store.Ability {
	t.Helper()
	a := &store.Ability{CharacterID: characterID, Name: name, Rank: rank, MaxRank: maxRank}
	require.NoError(t, store.InsertAbility(context.Background(), db.Conn(), a))
	return a
}

func abilityRank(t *testing.T, db *store.DB, id int64) int {
	t.Helper()
	a, err := store.GetAbility(context.Background(), db.Conn(), id)
	require.NoError(t, err)
	return a.Rank
}

func TestAbilityAdhered(t *testing.T) {
	db := newTestDB(t)
	chooser := &scriptedChooser{}
	resolver := newTestResolver(db, adherence.FixedSource(10), chooser)
	c := seedCharacter(t, db, 30)
	proposed := seedAbility(t, db, c.ID, "Ember Bite", 1, 5)
	seedAbility(t, db, c.ID, "Gale Dash", 2, 5)

	res, err := resolver.RankAbilityWithAdherence(context.Background(), c.ID, proposed.ID)
	require.NoError(t, err)

	assert.Equal(t, OutcomeAdhered, res.Outcome)
	assert.Equal(t, 2, abilityRank(t, db, proposed.ID))
	assert.Zero(t, chooser.calls)
}

func TestAbilityRebellion(t *testing.T) {
	db := newTestDB(t)
	chooser := &scriptedChooser{rationale: "I favor speed over fire"}
	resolver := newTestResolver(db, adherence.FixedSource(85), chooser)
	c := seedCharacter(t, db, 30)
	proposed := seedAbility(t, db, c.ID, "Ember Bite", 1, 5)
	alt := seedAbility(t, db, c.ID, "Gale Dash", 2, 5)
	seedAbility(t, db, c.ID, "Stone Hide", 5, 5) // maxed, never offered

	res, err := resolver.RankAbilityWithAdherence(context.Background(), c.ID, proposed.ID)
	require.NoError(t, err)

	assert.Equal(t, OutcomeRebelled, res.Outcome)
	assert.Equal(t, alt.ID, res.AppliedID)

	require.Len(t, chooser.lastAlts, 1)
	assert.Equal(t, alt.ID, chooser.lastAlts[0].ID)

	assert.Equal(t, 3, abilityRank(t, db, alt.ID))
	assert.Equal(t, 1, abilityRank(t, db, proposed.ID), "proposed ability untouched")
	assert.Equal(t, 30+RebellionPenalty, adherenceOf(t, db, c.ID))
}

func TestAbilityAutoCompliance(t *testing.T) {
	db := newTestDB(t)
	chooser := &scriptedChooser{}
	resolver := newTestResolver(db, adherence.FixedSource(85), chooser)
	c := seedCharacter(t, db, 30)
	proposed := seedAbility(t, db, c.ID, "Ember Bite", 1, 5)
	seedAbility(t, db, c.ID, "Stone Hide", 5, 5) // maxed

	// The proposed ability is the only one still rankable: comply
	// without penalty.
	res, err := resolver.RankAbilityWithAdherence(context.Background(), c.ID, proposed.ID)
	require.NoError(t, err)

	assert.Equal(t, OutcomeAutoComplied, res.Outcome)
	assert.Equal(t, 2, abilityRank(t, db, proposed.ID))
	assert.Zero(t, chooser.calls)
	assert.Equal(t, 30, adherenceOf(t, db, c.ID), "no penalty on automatic compliance")
}

func TestAbilityProposedAlreadyMaxed(t *testing.T) {
	db := newTestDB(t)
	resolver := newTestResolver(db, adherence.FixedSource(10), &scriptedChooser{})
	c := seedCharacter(t, db, 30)
	proposed := seedAbility(t, db, c.ID, "Stone Hide", 5, 5)

	_, err := resolver.RankAbilityWithAdherence(context.Background(), c.ID, proposed.ID)
	var integrity progression.IntegrityError
	require.ErrorAs(t, err, &integrity)
}
