package progression

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"github.com/jmoiron/sqlx"

	"github.com/emberlane/wildbond/internal/events"
	"github.com/emberlane/wildbond/internal/store"
)

// rarityStatPoints is the base pending-allocation stat points granted per
// level, by rarity.
var rarityStatPoints = map[string]int{
	"common":    3,
	"uncommon":  4,
	"rare":      5,
	"epic":      6,
	"legendary": 8,
}

// archetypeStatBonus adds to the per-level pending points for physical or
// arcane specialists.
var archetypeStatBonus = map[string]int{
	"bruiser": 1,
	"mystic":  1,
}

// StatPointsPerLevelFor resolves the archetype/rarity-derived pending stat
// points granted per level gained.
func StatPointsPerLevelFor(archetype, rarity string) int {
	base, ok := rarityStatPoints[rarity]
	if !ok {
		base = rarityStatPoints["common"]
	}
	return base + archetypeStatBonus[archetype]
}

// Ledger applies experience gains and commits deferred stat allocations.
type Ledger struct {
	db    *store.DB
	curve *Curve
	sink  *events.Sink
}

// NewLedger creates a ledger over the given store, curve, and sink.
func NewLedger(db *store.DB, curve *Curve, sink *events.Sink) *Ledger {
	return &Ledger{db: db, curve: curve, sink: sink}
}

// Curve exposes the ledger's level curve for read-only lookups.
func (l *Ledger) Curve() *Curve {
	return l.curve
}

// AwardInput describes one experience grant.
type AwardInput struct {
	CharacterID int64
	Amount      int
	Multiplier  float64 // defaults to 1.0 when zero
	Source      string
	Description string
}

// AwardResult reports the outcome of an experience grant.
type AwardResult struct {
	LeveledUp    bool             `json:"leveled_up"`
	OldLevel     int              `json:"old_level"`
	NewLevel     int              `json:"new_level"`
	LevelsGained int              `json:"levels_gained"`
	Character    *store.Character `json:"character"`
}

// AwardExperience applies an experience gain to a character: it recomputes
// the level by walking cumulative thresholds (supporting multi-level jumps
// in one call), aggregates rewards across every level crossed, records a
// pending stat allocation for the deferred distribution decision, and
// appends an immutable log entry. The mutation is one transaction; the
// level-up mail afterwards is best-effort.
func (l *Ledger) AwardExperience(ctx context.Context, in AwardInput) (*AwardResult, error) {
	if in.Amount < 0 {
		return nil, fmt.Errorf("award amount %d must be >= 0", in.Amount)
	}
	if in.Multiplier == 0 {
		in.Multiplier = 1.0
	}
	if in.Multiplier < 0 {
		return nil, fmt.Errorf("award multiplier %.2f must be > 0", in.Multiplier)
	}

	inBattle, err := store.InBattle(ctx, l.db.Conn(), in.CharacterID)
	if err != nil {
		return nil, err
	}
	if inBattle {
		return nil, fmt.Errorf("award experience to character %d: %w", in.CharacterID, ErrInBattle)
	}

	finalAmount := int(math.Floor(float64(in.Amount) * in.Multiplier))

	var result AwardResult
	err = l.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		c, err := store.GetCharacter(ctx, tx, in.CharacterID)
		if err != nil {
			return err
		}
		if c.Archetype == "" {
			return MissingDataError{Field: "archetype", CharacterID: c.ID}
		}
		if c.Rarity == "" {
			return MissingDataError{Field: "rarity", CharacterID: c.ID}
		}

		oldLevel := c.Level

		currentReq, err := l.curve.Requirement(ctx, tx, c.Level)
		if err != nil {
			return err
		}
		newCumulative := currentReq.TotalXPRequired + int64(c.Experience) + int64(finalAmount)

		// Walk levels one at a time; a large award can cross several
		// thresholds in a single call.
		level := c.Level
		statReward, skillReward, abilityReward := 0, 0, 0
		var topReq *store.LevelRequirement
		for {
			nextReq, err := l.curve.Requirement(ctx, tx, level+1)
			if err != nil {
				return err
			}
			if newCumulative < nextReq.TotalXPRequired {
				break
			}
			level++
			statReward += nextReq.StatPointsReward
			skillReward += nextReq.SkillPointsReward
			abilityReward += nextReq.AbilityPointsReward
			topReq = nextReq
		}

		finalReq, err := l.curve.Requirement(ctx, tx, level)
		if err != nil {
			return err
		}
		newExperience := int(newCumulative - finalReq.TotalXPRequired)

		levelsGained := level - oldLevel
		update := store.ProgressUpdate{
			Level:         level,
			Experience:    newExperience,
			StatPoints:    c.StatPoints,
			SkillPoints:   c.SkillPoints,
			AbilityPoints: c.AbilityPoints,
			Tier:          c.Tier,
			Title:         c.Title,
		}

		if levelsGained > 0 {
			update.StatPoints += statReward + levelsGained*StatPointsPerLevel
			update.SkillPoints += skillReward + levelsGained*SkillPointsPerLevel
			update.AbilityPoints += abilityReward + levelsGained*AbilityPointsPerLevel
			update.Tier, _ = TierForLevel(level)
			update.Title = topReq.TierTitle

			pending := store.PendingAllocation{
				CharacterID:       c.ID,
				PendingLevels:     levelsGained,
				PendingStatPoints: levelsGained * StatPointsPerLevelFor(c.Archetype, c.Rarity),
				Archetype:         c.Archetype,
				Rarity:            c.Rarity,
			}
			if err := store.UpsertPendingAllocation(ctx, tx, pending); err != nil {
				return err
			}
		}

		if err := store.ApplyProgress(ctx, tx, c.ID, update); err != nil {
			return err
		}

		entry := store.ExperienceLogEntry{
			CharacterID: c.ID,
			Amount:      finalAmount,
			Multiplier:  in.Multiplier,
			Source:      in.Source,
			Description: in.Description,
		}
		if err := store.AppendExperienceLog(ctx, tx, entry); err != nil {
			return err
		}

		c.Level = level
		c.Experience = newExperience
		c.StatPoints = update.StatPoints
		c.SkillPoints = update.SkillPoints
		c.AbilityPoints = update.AbilityPoints
		c.Tier = update.Tier
		c.Title = update.Title

		result = AwardResult{
			LeveledUp:    levelsGained > 0,
			OldLevel:     oldLevel,
			NewLevel:     level,
			LevelsGained: levelsGained,
			Character:    c,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if result.LeveledUp {
		slog.Info("character leveled up",
			"character", in.CharacterID,
			"old_level", result.OldLevel,
			"new_level", result.NewLevel,
			"source", in.Source,
		)
		c := result.Character
		l.sink.SendLevelUpMail(ctx, c.UserID,
			fmt.Sprintf("%s reached level %d!", c.Name, c.Level),
			fmt.Sprintf("%s grew from level %d to level %d and is now %s.",
				c.Name, result.OldLevel, result.NewLevel, c.Title),
		)
		l.sink.PublishEvent(ctx, events.TypeLevelUp, events.SeverityLow, "progression",
			fmt.Sprintf("%s reached level %d", c.Name, c.Level),
			map[string]any{
				"character_id": c.ID,
				"old_level":    result.OldLevel,
				"new_level":    result.NewLevel,
			},
			[]string{"level_up", c.Tier},
		)
	}

	return &result, nil
}

// ValidateVector rejects allocation vectors with a negative component or a
// total that mismatches the pending budget. A negative component would drive
// a stat below zero while over-allocating another within the same sum.
func ValidateVector(v store.StatVector, budget int) error {
	for _, stat := range store.StatNames {
		if v.Get(stat) < 0 {
			return IntegrityError{Reason: fmt.Sprintf(
				"allocation assigns %d points to %s", v.Get(stat), stat)}
		}
	}
	if v.Total() != budget {
		return IntegrityError{Reason: fmt.Sprintf(
			"allocation vector sums to %d but %d points are pending",
			v.Total(), budget)}
	}
	return nil
}

// CommitAllocation spends a pending stat allocation with the given vector.
// The stat write and the pending-row delete commit together or not at all.
func (l *Ledger) CommitAllocation(ctx context.Context, characterID int64, v store.StatVector) error {
	inBattle, err := store.InBattle(ctx, l.db.Conn(), characterID)
	if err != nil {
		return err
	}
	if inBattle {
		return fmt.Errorf("commit allocation for character %d: %w", characterID, ErrInBattle)
	}

	return l.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		return l.CommitAllocationTx(ctx, tx, characterID, v)
	})
}

// CommitAllocationTx spends a pending allocation inside the caller's
// transaction, so additional writes (such as an adherence penalty) commit
// with the spend or not at all. The vector must have no negative component
// and sum exactly to the pending budget.
func (l *Ledger) CommitAllocationTx(ctx context.Context, tx *sqlx.Tx, characterID int64, v store.StatVector) error {
	pending, err := store.GetPendingAllocation(ctx, tx, characterID)
	if err != nil {
		return err
	}
	if err := ValidateVector(v, pending.PendingStatPoints); err != nil {
		return err
	}
	if err := store.ApplyStatVector(ctx, tx, characterID, v); err != nil {
		return err
	}
	return store.DeletePendingAllocation(ctx, tx, characterID)
}
