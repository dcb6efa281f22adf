// Package rebellion resolves what a character does after failing an
// adherence check: equipment, ability, and stat-allocation decisions all
// share the same outer protocol (check, alternative selection, adherence
// penalty, side effects).
package rebellion

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"

	"github.com/emberlane/wildbond/internal/adherence"
	"github.com/emberlane/wildbond/internal/events"
	"github.com/emberlane/wildbond/internal/oracle"
	"github.com/emberlane/wildbond/internal/progression"
	"github.com/emberlane/wildbond/internal/store"
)

// Adherence deltas applied after a failed check.
const (
	// RebellionPenalty applies when the character substitutes its own
	// choice.
	RebellionPenalty = -10
	// ReluctantCompliancePenalty applies when the character is forced to
	// comply because no valid alternative exists.
	ReluctantCompliancePenalty = -3
)

// Outcome tags how an adherence-gated decision resolved.
type Outcome string

const (
	// OutcomeAdhered: the check passed and the coach's pick was applied.
	OutcomeAdhered Outcome = "adhered"
	// OutcomeRebelled: the check failed and the character chose for itself.
	OutcomeRebelled Outcome = "rebelled"
	// OutcomeReluctant: the check failed but no alternative existed, so the
	// coach's pick was applied anyway under protest.
	OutcomeReluctant Outcome = "reluctant_compliance"
	// OutcomeAutoComplied: the check failed but the choice space was empty,
	// treated as automatic compliance with no penalty.
	OutcomeAutoComplied Outcome = "automatic_compliance"
)

// Resolution reports how one adherence-gated decision resolved.
type Resolution struct {
	Outcome   Outcome           `json:"outcome"`
	Roll      int               `json:"roll"`
	AppliedID int64             `json:"applied_id,omitempty"`
	Rationale string            `json:"rationale,omitempty"`
	Vector    *store.StatVector `json:"vector,omitempty"`
}

// Resolver runs the adherence-gated decision protocol.
type Resolver struct {
	db      *store.DB
	checker *adherence.Checker
	chooser oracle.Chooser
	ledger  *progression.Ledger
	sink    *events.Sink
}

// NewResolver wires the resolver's collaborators.
func NewResolver(db *store.DB, checker *adherence.Checker, chooser oracle.Chooser, ledger *progression.Ledger, sink *events.Sink) *Resolver {
	return &Resolver{db: db, checker: checker, chooser: chooser, ledger: ledger, sink: sink}
}

// loadCharacter fetches the character and validates the fields every
// oracle-backed path requires.
func (r *Resolver) loadCharacter(ctx context.Context, id int64) (*store.Character, error) {
	c, err := store.GetCharacter(ctx, r.db.Conn(), id)
	if err != nil {
		return nil, err
	}
	if c.Personality == "" {
		return nil, progression.MissingDataError{Field: "personality", CharacterID: id}
	}
	return c, nil
}

// EquipWithAdherence applies the coach's proposed equipment if the
// adherence check passes. On failure the character picks its own item from
// the same slot via the choice oracle; if the slot has no alternative the
// proposed item is equipped anyway as reluctant compliance. The oracle call
// happens before the apply transaction opens, so a stalled oracle never
// holds a database lock.
func (r *Resolver) EquipWithAdherence(ctx context.Context, characterID, proposedItemID int64) (*Resolution, error) {
	c, err := r.loadCharacter(ctx, characterID)
	if err != nil {
		return nil, err
	}

	proposed, err := store.GetEquipmentItem(ctx, r.db.Conn(), proposedItemID)
	if err != nil {
		return nil, err
	}
	if proposed.CharacterID != characterID {
		return nil, progression.IntegrityError{Reason: fmt.Sprintf(
			"item %d does not belong to character %d", proposedItemID, characterID)}
	}

	check, err := r.checker.Check(c.Adherence)
	if err != nil {
		return nil, err
	}

	if check.Passed {
		err = r.db.WithTx(ctx, func(tx *sqlx.Tx) error {
			return store.EquipItem(ctx, tx, characterID, proposed.ID, proposed.Slot)
		})
		if err != nil {
			return nil, err
		}
		r.sink.RecordBondActivity(ctx, characterID, "followed_equip",
			fmt.Sprintf("%s accepted the %s without protest", c.Name, proposed.Name))
		return &Resolution{Outcome: OutcomeAdhered, Roll: check.Roll, AppliedID: proposed.ID}, nil
	}

	inventory, err := store.ListEquipment(ctx, r.db.Conn(), characterID)
	if err != nil {
		return nil, err
	}
	var alternatives []oracle.Option
	for _, item := range inventory {
		if item.Slot == proposed.Slot && item.ID != proposed.ID {
			alternatives = append(alternatives, oracle.Option{
				ID: item.ID, Name: item.Name, Kind: "equipment",
			})
		}
	}

	if len(alternatives) == 0 {
		// No valid alternative: the character must wear it anyway.
		err = r.db.WithTx(ctx, func(tx *sqlx.Tx) error {
			if err := store.EquipItem(ctx, tx, characterID, proposed.ID, proposed.Slot); err != nil {
				return err
			}
			return store.AdjustAdherence(ctx, tx, characterID, ReluctantCompliancePenalty)
		})
		if err != nil {
			return nil, err
		}
		r.sink.PublishEvent(ctx, events.TypeReluctantCompliance, events.SeverityLow, "autonomy",
			fmt.Sprintf("%s grudgingly equipped the %s, nothing else fit the slot", c.Name, proposed.Name),
			map[string]any{"character_id": characterID, "item_id": proposed.ID, "roll": check.Roll},
			[]string{"equipment", "reluctant"},
		)
		r.sink.RecordBondActivity(ctx, characterID, "reluctant_equip",
			fmt.Sprintf("%s had no alternative to the %s", c.Name, proposed.Name))
		return &Resolution{Outcome: OutcomeReluctant, Roll: check.Roll, AppliedID: proposed.ID}, nil
	}

	choice, err := r.chooser.Choose(ctx,
		oracle.Option{ID: proposed.ID, Name: proposed.Name, Kind: "equipment"},
		alternatives,
		oracle.Context{
			CharacterName: c.Name,
			Adherence:     c.Adherence,
			BondLevel:     c.BondLevel,
			Personality:   c.Personality,
			Situation:     fmt.Sprintf("Your coach wants you to equip the %s in your %s slot.", proposed.Name, proposed.Slot),
		},
	)
	if err != nil {
		return nil, fmt.Errorf("equipment rebellion for character %d: %w", characterID, err)
	}
	if _, err := oracle.ValidateChoice(choice, alternatives); err != nil {
		return nil, err
	}

	var chosen *store.EquipmentItem
	for i := range inventory {
		if inventory[i].ID == choice.SelectedID {
			chosen = &inventory[i]
			break
		}
	}
	if chosen == nil {
		return nil, oracle.ErrOutOfSet{SelectedID: choice.SelectedID}
	}

	err = r.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		if err := store.EquipItem(ctx, tx, characterID, chosen.ID, chosen.Slot); err != nil {
			return err
		}
		return store.AdjustAdherence(ctx, tx, characterID, RebellionPenalty)
	})
	if err != nil {
		return nil, err
	}

	slog.Info("equipment rebellion",
		"character", characterID,
		"proposed", proposed.Name,
		"chosen", chosen.Name,
		"roll", check.Roll,
		"adherence", c.Adherence,
	)
	r.sink.PublishEvent(ctx, events.TypeRebellion, events.SeverityMedium, "autonomy",
		fmt.Sprintf("%s refused the %s and equipped the %s instead", c.Name, proposed.Name, chosen.Name),
		map[string]any{
			"character_id": characterID,
			"proposed_id":  proposed.ID,
			"chosen_id":    chosen.ID,
			"roll":         check.Roll,
			"rationale":    choice.Rationale,
		},
		[]string{"equipment", "rebellion"},
	)
	r.sink.RecordBondActivity(ctx, characterID, "equip_rebellion", choice.Rationale)

	return &Resolution{
		Outcome:   OutcomeRebelled,
		Roll:      check.Roll,
		AppliedID: chosen.ID,
		Rationale: choice.Rationale,
	}, nil
}
