package store

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// GetOrCreateRequirement returns the materialized level-requirement row for
// the given level, inserting the provided row if none exists yet. The
// ON CONFLICT DO NOTHING + re-select makes concurrent first-time lookups
// converge on a single row instead of racing to insert duplicates.
func GetOrCreateRequirement(ctx context.Context, q sqlx.ExtContext, r LevelRequirement) (*LevelRequirement, error) {
	_, err := q.ExecContext(ctx, `INSERT INTO level_requirements
		(level, total_xp_required, stat_points_reward, skill_points_reward,
		 ability_points_reward, tier_title)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (level) DO NOTHING`,
		r.Level, r.TotalXPRequired, r.StatPointsReward, r.SkillPointsReward,
		r.AbilityPointsReward, r.TierTitle,
	)
	if err != nil {
		return nil, fmt.Errorf("upsert level requirement %d: %w", r.Level, err)
	}

	var row LevelRequirement
	err = sqlx.GetContext(ctx, q, &row,
		"SELECT * FROM level_requirements WHERE level = ?", r.Level)
	if err != nil {
		return nil, fmt.Errorf("get level requirement %d: %w", r.Level, err)
	}
	return &row, nil
}
