// Package events is the side-effect sink: event publication, bond activity
// records, and level-up mail. Everything here is best-effort; failures are
// logged and never propagated as operation failures.
package events

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/emberlane/wildbond/internal/store"
)

// Severity levels for published events.
const (
	SeverityLow    = "low"
	SeverityMedium = "medium"
	SeverityHigh   = "high"
)

// Event types emitted by the engine.
const (
	TypeRebellion           = "autonomous_rebellion"
	TypeReluctantCompliance = "reluctant_compliance"
	TypeLevelUp             = "level_up"
)

// Sink persists events, bond activities, and mail through the store.
type Sink struct {
	db *store.DB
}

// NewSink creates a sink backed by the given database.
func NewSink(db *store.DB) *Sink {
	return &Sink{db: db}
}

// PublishEvent records an event. Fire-and-forget: a failed write is logged,
// not returned.
func (s *Sink) PublishEvent(ctx context.Context, typ, severity, category, description string, metadata map[string]any, tags []string) {
	metaJSON, err := json.Marshal(metadata)
	if err != nil {
		metaJSON = []byte("{}")
	}
	tagsJSON, err := json.Marshal(tags)
	if err != nil {
		tagsJSON = []byte("[]")
	}

	e := store.Event{
		Type:        typ,
		Severity:    severity,
		Category:    category,
		Description: description,
		Metadata:    string(metaJSON),
		Tags:        string(tagsJSON),
	}
	if err := store.InsertEvent(ctx, s.db.Conn(), e); err != nil {
		slog.Warn("event publish failed", "type", typ, "error", err)
	}
}

// RecordBondActivity records a relationship-affecting episode. Best-effort.
func (s *Sink) RecordBondActivity(ctx context.Context, characterID int64, activityType, activityContext string) {
	b := store.BondActivity{
		CharacterID:  characterID,
		ActivityType: activityType,
		Context:      activityContext,
	}
	if err := store.InsertBondActivity(ctx, s.db.Conn(), b); err != nil {
		slog.Warn("bond activity record failed",
			"character", characterID, "type", activityType, "error", err)
	}
}

// SendLevelUpMail queues a level-up notification. Best-effort: a failed
// send never rolls back the progression write it follows.
func (s *Sink) SendLevelUpMail(ctx context.Context, userID, subject, body string) {
	m := store.Mail{UserID: userID, Subject: subject, Body: body}
	if err := store.InsertMail(ctx, s.db.Conn(), m); err != nil {
		slog.Warn("level-up mail failed", "user", userID, "error", err)
	}
}
