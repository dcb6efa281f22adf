package rebellion

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"

	"github.com/emberlane/wildbond/internal/events"
	"github.com/emberlane/wildbond/internal/progression"
	"github.com/emberlane/wildbond/internal/store"
)

// preferenceScoreByRank maps a stat preference rank to the score the
// adherence roll is compared against. Unranked stats use a neutral 40.
var preferenceScoreByRank = map[int]int{
	4: 70,
	3: 60,
	2: 50,
	1: 30,
}

const unrankedPreferenceScore = 40

// PreferenceScoreFor resolves the preference score for a stat from the
// character's ranked preferences.
func PreferenceScoreFor(prefs []store.StatPreference, stat string) int {
	for _, p := range prefs {
		if p.Stat == stat {
			if score, ok := preferenceScoreByRank[p.Rank]; ok {
				return score
			}
			return unrankedPreferenceScore
		}
	}
	return unrankedPreferenceScore
}

// DominantStat returns the stat receiving the largest allocation in the
// vector, breaking ties in canonical stat order.
func DominantStat(v store.StatVector) string {
	dominant := store.StatNames[0]
	best := v.Get(dominant)
	for _, stat := range store.StatNames[1:] {
		if v.Get(stat) > best {
			dominant = stat
			best = v.Get(stat)
		}
	}
	return dominant
}

// SubstituteVector builds the character's own allocation from its ranked
// preferences, scaled to the same total budget as the coach's vector: one
// baseline point per ranked preference, then the overflow distributed
// round-robin in rank order. The result always sums to exactly budget.
func SubstituteVector(prefs []store.StatPreference, budget int) store.StatVector {
	var v store.StatVector
	if budget <= 0 || len(prefs) == 0 {
		return v
	}

	// Baseline: one point per ranked preference, strongest first, while
	// budget allows.
	remaining := budget
	for _, p := range prefs {
		if remaining == 0 {
			break
		}
		v.Add(p.Stat, 1)
		remaining--
	}

	// Overflow: round-robin in rank order.
	for remaining > 0 {
		for _, p := range prefs {
			if remaining == 0 {
				break
			}
			v.Add(p.Stat, 1)
			remaining--
		}
	}

	return v
}

// AllocateStatsWithAdherence commits the coach's proposed stat allocation
// if the character's preference check passes. The check uses the
// preference-score variant: the dominant stat of the proposed vector is
// scored against the character's ranked preference for it. On failure the
// entire vector is replaced with one computed from the character's own
// preferences at the same total budget.
func (r *Resolver) AllocateStatsWithAdherence(ctx context.Context, characterID int64, proposed store.StatVector) (*Resolution, error) {
	c, err := r.loadCharacter(ctx, characterID)
	if err != nil {
		return nil, err
	}

	inBattle, err := store.InBattle(ctx, r.db.Conn(), characterID)
	if err != nil {
		return nil, err
	}
	if inBattle {
		return nil, fmt.Errorf("allocate stats for character %d: %w", characterID, progression.ErrInBattle)
	}

	pending, err := store.GetPendingAllocation(ctx, r.db.Conn(), characterID)
	if err != nil {
		return nil, err
	}
	if err := progression.ValidateVector(proposed, pending.PendingStatPoints); err != nil {
		return nil, err
	}

	prefs, err := store.GetStatPreferences(ctx, r.db.Conn(), characterID)
	if err != nil {
		return nil, err
	}

	dominant := DominantStat(proposed)
	prefScore := PreferenceScoreFor(prefs, dominant)

	check, err := r.checker.CheckPreference(prefScore)
	if err != nil {
		return nil, err
	}

	if check.Passed {
		if err := r.ledger.CommitAllocation(ctx, characterID, proposed); err != nil {
			return nil, err
		}
		r.sink.RecordBondActivity(ctx, characterID, "followed_allocation",
			fmt.Sprintf("%s accepted the coach's growth plan favoring %s", c.Name, dominant))
		return &Resolution{Outcome: OutcomeAdhered, Roll: check.Roll, Vector: &proposed}, nil
	}

	if len(prefs) == 0 {
		return nil, progression.MissingDataError{Field: "stat preferences", CharacterID: characterID}
	}

	substituted := SubstituteVector(prefs, pending.PendingStatPoints)
	if err := progression.ValidateVector(substituted, pending.PendingStatPoints); err != nil {
		return nil, err
	}

	// The substituted spend and the penalty are one rebellion: they commit
	// together or not at all.
	err = r.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		if err := r.ledger.CommitAllocationTx(ctx, tx, characterID, substituted); err != nil {
			return err
		}
		return store.AdjustAdherence(ctx, tx, characterID, RebellionPenalty)
	})
	if err != nil {
		return nil, err
	}

	slog.Info("stat allocation rebellion",
		"character", characterID,
		"dominant", dominant,
		"preference_score", prefScore,
		"roll", check.Roll,
	)
	r.sink.PublishEvent(ctx, events.TypeRebellion, events.SeverityMedium, "autonomy",
		fmt.Sprintf("%s rejected the growth plan favoring %s and trained its own way", c.Name, dominant),
		map[string]any{
			"character_id":     characterID,
			"dominant_stat":    dominant,
			"preference_score": prefScore,
			"roll":             check.Roll,
			"budget":           pending.PendingStatPoints,
		},
		[]string{"stats", "rebellion"},
	)
	r.sink.RecordBondActivity(ctx, characterID, "allocation_rebellion",
		fmt.Sprintf("%s trained to its own preferences instead of the coach's plan", c.Name))

	return &Resolution{Outcome: OutcomeRebelled, Roll: check.Roll, Vector: &substituted}, nil
}
