// Package progression owns the level curve and the experience ledger.
package progression

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/jmoiron/sqlx"

	"github.com/emberlane/wildbond/internal/store"
)

// Level curve constants: total_xp(L) = floor(base · mult^(L-1) · (L-1)^exp).
// Level 1 costs nothing; every later level is strictly more expensive.
const (
	curveBase       = 100.0
	curveMultiplier = 1.07
	curveExponent   = 1.3
)

// Fixed per-level point bonuses granted on top of the requirement-row rewards.
const (
	AbilityPointsPerLevel = 2
	StatPointsPerLevel    = 5
	SkillPointsPerLevel   = 3
)

// tierBands maps minimum level to tier name and title, highest first.
var tierBands = []struct {
	MinLevel int
	Tier     string
	Title    string
}{
	{100, "mythic", "Mythic"},
	{50, "champion", "Champion"},
	{30, "elite", "Elite"},
	{20, "veteran", "Veteran"},
	{10, "adept", "Adept"},
	{1, "fledgling", "Fledgling"},
}

// TierForLevel returns the tier name and title for a level.
func TierForLevel(level int) (tier, title string) {
	for _, b := range tierBands {
		if level >= b.MinLevel {
			return b.Tier, b.Title
		}
	}
	return "fledgling", "Fledgling"
}

// Curve computes and materializes level requirements. Any positive level
// resolves on demand; nothing is pre-seeded. The in-memory memo is scoped
// to the instance so tests can reset it between runs.
type Curve struct {
	mu   sync.Mutex
	memo map[int]store.LevelRequirement
}

// NewCurve creates an empty curve cache.
func NewCurve() *Curve {
	return &Curve{memo: make(map[int]store.LevelRequirement)}
}

// Reset clears the memo. Used by tests between runs.
func (c *Curve) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.memo = make(map[int]store.LevelRequirement)
}

// totalXPForLevel is the closed-form cumulative XP threshold for a level.
func totalXPForLevel(level int) int64 {
	if level <= 1 {
		return 0
	}
	xp := curveBase *
		math.Pow(curveMultiplier, float64(level-1)) *
		math.Pow(float64(level-1), curveExponent)
	return int64(math.Floor(xp))
}

// rewardsForLevel derives the per-level point rewards.
func rewardsForLevel(level int) (stat, skill, ability int) {
	return 2 + level/20, 1 + level/25, 1 + level/50
}

// Requirement returns the materialized requirement row for a level,
// computing and persisting it on first sight. The database row is
// authoritative: concurrent first-time lookups converge on one row, and a
// pre-existing row always wins over a recomputation.
func (c *Curve) Requirement(ctx context.Context, q sqlx.ExtContext, level int) (*store.LevelRequirement, error) {
	if level < 1 {
		return nil, fmt.Errorf("level %d must be >= 1", level)
	}

	c.mu.Lock()
	if row, ok := c.memo[level]; ok {
		c.mu.Unlock()
		return &row, nil
	}
	c.mu.Unlock()

	stat, skill, ability := rewardsForLevel(level)
	_, title := TierForLevel(level)
	candidate := store.LevelRequirement{
		Level:               level,
		TotalXPRequired:     totalXPForLevel(level),
		StatPointsReward:    stat,
		SkillPointsReward:   skill,
		AbilityPointsReward: ability,
		TierTitle:           title,
	}

	row, err := store.GetOrCreateRequirement(ctx, q, candidate)
	if err != nil {
		return nil, err
	}

	// Rows read through a still-open transaction are not memoized: a later
	// rollback would leave the cache holding a row the database never kept.
	if _, inTx := q.(*sqlx.Tx); !inTx {
		c.mu.Lock()
		c.memo[level] = *row
		c.mu.Unlock()
	}

	return row, nil
}
