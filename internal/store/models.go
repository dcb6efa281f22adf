package store

import "time"

// Character is the persistent progression record for one creature instance.
// Progression fields (level, experience, point pools) are owned by the
// progression ledger and mutated only through AwardExperience.
type Character struct {
	ID        int64  `db:"id"`
	UserID    string `db:"user_id"`
	Name      string `db:"name"`
	Archetype string `db:"archetype"`
	Rarity    string `db:"rarity"`

	Level      int `db:"level"`
	Experience int `db:"experience"` // XP into the current level, not cumulative

	StatPoints    int `db:"stat_points"`
	SkillPoints   int `db:"skill_points"`
	AbilityPoints int `db:"ability_points"`

	Tier  string `db:"tier"`
	Title string `db:"title"`

	// Adherence is derived elsewhere from psychological sub-stats.
	// The engine only applies explicit penalty deltas after a rebellion.
	Adherence int `db:"adherence"`
	BondLevel int `db:"bond_level"`

	Personality string `db:"personality"`

	Might    int `db:"might"`
	Agility  int `db:"agility"`
	Vitality int `db:"vitality"`
	Focus    int `db:"focus"`
	Spirit   int `db:"spirit"`
}

// ProgressUpdate is the statically typed update applied by the ledger after
// an experience award. Every field is explicit; no dynamic column assembly.
type ProgressUpdate struct {
	Level         int
	Experience    int
	StatPoints    int
	SkillPoints   int
	AbilityPoints int
	Tier          string
	Title         string
}

// StatVector holds a point allocation across the five core stats.
type StatVector struct {
	Might    int `json:"might"`
	Agility  int `json:"agility"`
	Vitality int `json:"vitality"`
	Focus    int `json:"focus"`
	Spirit   int `json:"spirit"`
}

// Total returns the sum of all allocated points.
func (v StatVector) Total() int {
	return v.Might + v.Agility + v.Vitality + v.Focus + v.Spirit
}

// StatNames lists the five core stats in canonical order.
var StatNames = []string{"might", "agility", "vitality", "focus", "spirit"}

// Get returns the allocation for a named stat.
func (v StatVector) Get(stat string) int {
	switch stat {
	case "might":
		return v.Might
	case "agility":
		return v.Agility
	case "vitality":
		return v.Vitality
	case "focus":
		return v.Focus
	case "spirit":
		return v.Spirit
	}
	return 0
}

// Add increases the allocation for a named stat.
func (v *StatVector) Add(stat string, points int) {
	switch stat {
	case "might":
		v.Might += points
	case "agility":
		v.Agility += points
	case "vitality":
		v.Vitality += points
	case "focus":
		v.Focus += points
	case "spirit":
		v.Spirit += points
	}
}

// LevelRequirement is the materialized level-curve row for one level.
// Immutable once created; the same level always yields the same row.
type LevelRequirement struct {
	Level               int    `db:"level"`
	TotalXPRequired     int64  `db:"total_xp_required"`
	StatPointsReward    int    `db:"stat_points_reward"`
	SkillPointsReward   int    `db:"skill_points_reward"`
	AbilityPointsReward int    `db:"ability_points_reward"`
	TierTitle           string `db:"tier_title"`
}

// PendingAllocation is the transient record of unspent level-up stat points
// awaiting a deferred, adherence-gated distribution decision.
type PendingAllocation struct {
	CharacterID       int64  `db:"character_id"`
	PendingLevels     int    `db:"pending_levels"`
	PendingStatPoints int    `db:"pending_stat_points"`
	Archetype         string `db:"archetype"`
	Rarity            string `db:"rarity"`
}

// StatPreference ranks how strongly a character favors a stat (4 = strongest).
type StatPreference struct {
	CharacterID int64  `db:"character_id"`
	Stat        string `db:"stat"`
	Rank        int    `db:"rank"`
}

// EquipmentItem is one item in a character's eligible inventory.
type EquipmentItem struct {
	ID          int64  `db:"id"`
	CharacterID int64  `db:"character_id"`
	Name        string `db:"name"`
	Slot        string `db:"slot"`
	Equipped    bool   `db:"equipped"`
}

// Ability is a rankable character ability.
type Ability struct {
	ID          int64  `db:"id"`
	CharacterID int64  `db:"character_id"`
	Name        string `db:"name"`
	Rank        int    `db:"rank"`
	MaxRank     int    `db:"max_rank"`
}

// Spell is a mastery record: a power whose rank is promoted by spending
// mastery points, gated by mastery level. MasteryLevel and MasteryPoints
// are kept consistent by award calls outside this engine.
type Spell struct {
	ID            int64  `db:"id"`
	CharacterID   int64  `db:"character_id"`
	Name          string `db:"name"`
	CurrentRank   int    `db:"current_rank"`
	MaxRank       int    `db:"max_rank"`
	MasteryLevel  int    `db:"mastery_level"`
	MasteryPoints int    `db:"mastery_points"`
}

// ExperienceLogEntry is an immutable audit record of one experience award.
type ExperienceLogEntry struct {
	ID          string    `db:"id"`
	CharacterID int64     `db:"character_id"`
	Amount      int       `db:"amount"`
	Multiplier  float64   `db:"multiplier"`
	Source      string    `db:"source"`
	Description string    `db:"description"`
	CreatedAt   time.Time `db:"created_at"`
}

// Event is a persisted side-effect event.
type Event struct {
	ID          string    `db:"id"`
	Type        string    `db:"type"`
	Severity    string    `db:"severity"`
	Category    string    `db:"category"`
	Description string    `db:"description"`
	Metadata    string    `db:"metadata"` // JSON object
	Tags        string    `db:"tags"`     // JSON array
	CreatedAt   time.Time `db:"created_at"`
}

// BondActivity records a relationship-affecting episode.
type BondActivity struct {
	ID           int64     `db:"id"`
	CharacterID  int64     `db:"character_id"`
	ActivityType string    `db:"activity_type"`
	Context      string    `db:"context"`
	CreatedAt    time.Time `db:"created_at"`
}

// Mail is a best-effort notification to a user.
type Mail struct {
	ID        string    `db:"id"`
	UserID    string    `db:"user_id"`
	Subject   string    `db:"subject"`
	Body      string    `db:"body"`
	CreatedAt time.Time `db:"created_at"`
}
