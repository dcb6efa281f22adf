package rebellion

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"

	"github.com/emberlane/wildbond/internal/events"
	"github.com/emberlane/wildbond/internal/oracle"
	"github.com/emberlane/wildbond/internal/progression"
	"github.com/emberlane/wildbond/internal/store"
)

// RankAbilityWithAdherence ranks up the coach's proposed ability if the
// adherence check passes. On failure the character picks its own ability
// from those still below max rank; an empty choice space is automatic
// compliance with no penalty.
func (r *Resolver) RankAbilityWithAdherence(ctx context.Context, characterID, proposedAbilityID int64) (*Resolution, error) {
	c, err := r.loadCharacter(ctx, characterID)
	if err != nil {
		return nil, err
	}

	proposed, err := store.GetAbility(ctx, r.db.Conn(), proposedAbilityID)
	if err != nil {
		return nil, err
	}
	if proposed.CharacterID != characterID {
		return nil, progression.IntegrityError{Reason: fmt.Sprintf(
			"ability %d does not belong to character %d", proposedAbilityID, characterID)}
	}
	if proposed.Rank >= proposed.MaxRank {
		return nil, progression.IntegrityError{Reason: fmt.Sprintf(
			"ability %d is already at max rank %d", proposedAbilityID, proposed.MaxRank)}
	}

	check, err := r.checker.Check(c.Adherence)
	if err != nil {
		return nil, err
	}

	if check.Passed {
		err = r.db.WithTx(ctx, func(tx *sqlx.Tx) error {
			return store.RankUpAbility(ctx, tx, proposed.ID)
		})
		if err != nil {
			return nil, err
		}
		r.sink.RecordBondActivity(ctx, characterID, "followed_ability_rank",
			fmt.Sprintf("%s trained %s as instructed", c.Name, proposed.Name))
		return &Resolution{Outcome: OutcomeAdhered, Roll: check.Roll, AppliedID: proposed.ID}, nil
	}

	rankable, err := store.ListRankableAbilities(ctx, r.db.Conn(), characterID)
	if err != nil {
		return nil, err
	}
	var alternatives []oracle.Option
	for _, a := range rankable {
		if a.ID != proposed.ID {
			alternatives = append(alternatives, oracle.Option{
				ID: a.ID, Name: a.Name, Kind: "ability",
			})
		}
	}

	if len(alternatives) == 0 {
		// Only the proposed ability can still rank up; comply without
		// penalty.
		err = r.db.WithTx(ctx, func(tx *sqlx.Tx) error {
			return store.RankUpAbility(ctx, tx, proposed.ID)
		})
		if err != nil {
			return nil, err
		}
		return &Resolution{Outcome: OutcomeAutoComplied, Roll: check.Roll, AppliedID: proposed.ID}, nil
	}

	choice, err := r.chooser.Choose(ctx,
		oracle.Option{ID: proposed.ID, Name: proposed.Name, Kind: "ability"},
		alternatives,
		oracle.Context{
			CharacterName: c.Name,
			Adherence:     c.Adherence,
			BondLevel:     c.BondLevel,
			Personality:   c.Personality,
			Situation:     fmt.Sprintf("Your coach wants you to train %s to rank %d.", proposed.Name, proposed.Rank+1),
		},
	)
	if err != nil {
		return nil, fmt.Errorf("ability rebellion for character %d: %w", characterID, err)
	}
	if _, err := oracle.ValidateChoice(choice, alternatives); err != nil {
		return nil, err
	}

	var chosen *store.Ability
	for i := range rankable {
		if rankable[i].ID == choice.SelectedID {
			chosen = &rankable[i]
			break
		}
	}
	if chosen == nil {
		return nil, oracle.ErrOutOfSet{SelectedID: choice.SelectedID}
	}

	err = r.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		if err := store.RankUpAbility(ctx, tx, chosen.ID); err != nil {
			return err
		}
		return store.AdjustAdherence(ctx, tx, characterID, RebellionPenalty)
	})
	if err != nil {
		return nil, err
	}

	slog.Info("ability rebellion",
		"character", characterID,
		"proposed", proposed.Name,
		"chosen", chosen.Name,
		"roll", check.Roll,
	)
	r.sink.PublishEvent(ctx, events.TypeRebellion, events.SeverityMedium, "autonomy",
		fmt.Sprintf("%s ignored %s and trained %s instead", c.Name, proposed.Name, chosen.Name),
		map[string]any{
			"character_id": characterID,
			"proposed_id":  proposed.ID,
			"chosen_id":    chosen.ID,
			"roll":         check.Roll,
			"rationale":    choice.Rationale,
		},
		[]string{"ability", "rebellion"},
	)
	r.sink.RecordBondActivity(ctx, characterID, "ability_rebellion", choice.Rationale)

	return &Resolution{
		Outcome:   OutcomeRebelled,
		Roll:      check.Roll,
		AppliedID: chosen.ID,
		Rationale: choice.Rationale,
	}, nil
}
