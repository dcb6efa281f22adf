// Package store provides SQLite-backed persistence for characters,
// progression state, and side-effect records.
package store

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// DB wraps a SQLite connection for engine state persistence.
type DB struct {
	conn *sqlx.DB
}

// Open opens or creates a SQLite database at the given path.
func Open(path string) (*DB, error) {
	conn, err := sqlx.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Conn exposes the underlying connection for non-transactional reads.
func (db *DB) Conn() *sqlx.DB {
	return db.conn
}

// WithTx runs fn inside a transaction, rolling back on any error.
func (db *DB) WithTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := db.conn.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	committed = true
	return nil
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS characters (
		id INTEGER PRIMARY KEY,
		user_id TEXT NOT NULL,
		name TEXT NOT NULL,
		archetype TEXT NOT NULL DEFAULT '',
		rarity TEXT NOT NULL DEFAULT '',
		level INTEGER NOT NULL DEFAULT 1,
		experience INTEGER NOT NULL DEFAULT 0,
		stat_points INTEGER NOT NULL DEFAULT 0,
		skill_points INTEGER NOT NULL DEFAULT 0,
		ability_points INTEGER NOT NULL DEFAULT 0,
		tier TEXT NOT NULL DEFAULT 'fledgling',
		title TEXT NOT NULL DEFAULT 'Fledgling',
		adherence INTEGER NOT NULL DEFAULT 50,
		bond_level INTEGER NOT NULL DEFAULT 0,
		personality TEXT NOT NULL DEFAULT '',
		might INTEGER NOT NULL DEFAULT 0,
		agility INTEGER NOT NULL DEFAULT 0,
		vitality INTEGER NOT NULL DEFAULT 0,
		focus INTEGER NOT NULL DEFAULT 0,
		spirit INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS level_requirements (
		level INTEGER PRIMARY KEY,
		total_xp_required INTEGER NOT NULL,
		stat_points_reward INTEGER NOT NULL,
		skill_points_reward INTEGER NOT NULL,
		ability_points_reward INTEGER NOT NULL,
		tier_title TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS experience_log (
		id TEXT PRIMARY KEY,
		character_id INTEGER NOT NULL,
		amount INTEGER NOT NULL,
		multiplier REAL NOT NULL,
		source TEXT NOT NULL,
		description TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL
	);

	CREATE TABLE IF NOT EXISTS pending_allocations (
		character_id INTEGER PRIMARY KEY,
		pending_levels INTEGER NOT NULL,
		pending_stat_points INTEGER NOT NULL,
		archetype TEXT NOT NULL,
		rarity TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS stat_preferences (
		character_id INTEGER NOT NULL,
		stat TEXT NOT NULL,
		rank INTEGER NOT NULL,
		PRIMARY KEY (character_id, stat)
	);

	CREATE TABLE IF NOT EXISTS equipment_items (
		id INTEGER PRIMARY KEY,
		character_id INTEGER NOT NULL,
		name TEXT NOT NULL,
		slot TEXT NOT NULL,
		equipped INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS abilities (
		id INTEGER PRIMARY KEY,
		character_id INTEGER NOT NULL,
		name TEXT NOT NULL,
		rank INTEGER NOT NULL DEFAULT 0,
		max_rank INTEGER NOT NULL DEFAULT 5
	);

	CREATE TABLE IF NOT EXISTS spells (
		id INTEGER PRIMARY KEY,
		character_id INTEGER NOT NULL,
		name TEXT NOT NULL,
		current_rank INTEGER NOT NULL DEFAULT 1,
		max_rank INTEGER NOT NULL DEFAULT 5,
		mastery_level INTEGER NOT NULL DEFAULT 0,
		mastery_points INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS events (
		id TEXT PRIMARY KEY,
		type TEXT NOT NULL,
		severity TEXT NOT NULL,
		category TEXT NOT NULL,
		description TEXT NOT NULL,
		metadata TEXT NOT NULL DEFAULT '{}',
		tags TEXT NOT NULL DEFAULT '[]',
		created_at TIMESTAMP NOT NULL
	);

	CREATE TABLE IF NOT EXISTS bond_activities (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		character_id INTEGER NOT NULL,
		activity_type TEXT NOT NULL,
		context TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL
	);

	CREATE TABLE IF NOT EXISTS mail (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		subject TEXT NOT NULL,
		body TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL
	);

	CREATE TABLE IF NOT EXISTS active_battles (
		character_id INTEGER PRIMARY KEY,
		battle_id TEXT NOT NULL,
		started_at TIMESTAMP NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_xp_log_character ON experience_log(character_id);
	CREATE INDEX IF NOT EXISTS idx_equipment_character ON equipment_items(character_id);
	CREATE INDEX IF NOT EXISTS idx_abilities_character ON abilities(character_id);
	CREATE INDEX IF NOT EXISTS idx_spells_character ON spells(character_id);
	CREATE INDEX IF NOT EXISTS idx_bond_character ON bond_activities(character_id);
	CREATE INDEX IF NOT EXISTS idx_events_created ON events(created_at);
	`
	_, err := db.conn.Exec(schema)
	return err
}
