package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// AppendExperienceLog writes an immutable audit record for one award.
func AppendExperienceLog(ctx context.Context, q sqlx.ExtContext, e ExperienceLogEntry) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	_, err := q.ExecContext(ctx, `INSERT INTO experience_log
		(id, character_id, amount, multiplier, source, description, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.CharacterID, e.Amount, e.Multiplier, e.Source, e.Description, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("append experience log: %w", err)
	}
	return nil
}

// ListExperienceLog returns the most recent award records for a character.
func ListExperienceLog(ctx context.Context, q sqlx.ExtContext, characterID int64, limit int) ([]ExperienceLogEntry, error) {
	var entries []ExperienceLogEntry
	err := sqlx.SelectContext(ctx, q, &entries,
		"SELECT * FROM experience_log WHERE character_id = ? ORDER BY created_at DESC LIMIT ?",
		characterID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list experience log for character %d: %w", characterID, err)
	}
	return entries, nil
}

// InsertEvent persists a side-effect event.
func InsertEvent(ctx context.Context, q sqlx.ExtContext, e Event) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	_, err := q.ExecContext(ctx, `INSERT INTO events
		(id, type, severity, category, description, metadata, tags, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Type, e.Severity, e.Category, e.Description, e.Metadata, e.Tags, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

// RecentEvents returns the most recent N events.
func RecentEvents(ctx context.Context, q sqlx.ExtContext, limit int) ([]Event, error) {
	var events []Event
	err := sqlx.SelectContext(ctx, q, &events,
		"SELECT * FROM events ORDER BY created_at DESC, id DESC LIMIT ?", limit)
	if err != nil {
		return nil, fmt.Errorf("recent events: %w", err)
	}
	return events, nil
}

// InsertBondActivity records a relationship-affecting episode.
func InsertBondActivity(ctx context.Context, q sqlx.ExtContext, b BondActivity) error {
	if b.CreatedAt.IsZero() {
		b.CreatedAt = time.Now().UTC()
	}
	_, err := q.ExecContext(ctx, `INSERT INTO bond_activities
		(character_id, activity_type, context, created_at)
		VALUES (?, ?, ?, ?)`,
		b.CharacterID, b.ActivityType, b.Context, b.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert bond activity: %w", err)
	}
	return nil
}

// InsertMail queues a best-effort notification for a user.
func InsertMail(ctx context.Context, q sqlx.ExtContext, m Mail) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	_, err := q.ExecContext(ctx,
		"INSERT INTO mail (id, user_id, subject, body, created_at) VALUES (?, ?, ?, ?, ?)",
		m.ID, m.UserID, m.Subject, m.Body, m.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert mail: %w", err)
	}
	return nil
}
