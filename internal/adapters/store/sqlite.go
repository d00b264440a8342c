// Package store persists plans, preferences and analytics batches in
// sqlite. Documents are stored whole as JSON: the last writer wins,
// which is the platform's concurrency policy for the seating plan.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"

	"github.com/lovenda/seatplan/internal/core"
	"github.com/lovenda/seatplan/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS plans (
	wedding_id TEXT PRIMARY KEY,
	payload    TEXT NOT NULL,
	updated_at TIMESTAMP NOT NULL
);
CREATE TABLE IF NOT EXISTS ui_prefs (
	wedding_id TEXT PRIMARY KEY,
	version    INTEGER NOT NULL,
	payload    TEXT NOT NULL,
	updated_at TIMESTAMP NOT NULL
);
CREATE TABLE IF NOT EXISTS events (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id  TEXT NOT NULL,
	wedding_id  TEXT,
	user_id     TEXT,
	name        TEXT NOT NULL,
	properties  TEXT,
	created_at  TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_events_session ON events(session_id, created_at);
`

// Store implements core.PlanStore, core.PrefStore and analytics.Sink on
// one sqlite database.
type Store struct {
	db *sql.DB
}

func Open(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("bootstrap schema: %w", err)
	}
	log.Info().Str("module", "adapters.store").Str("dsn", dsn).Msg("sqlite store ready")
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) LoadPlan(ctx context.Context, weddingID domain.WeddingID) (core.PlanSnapshot, error) {
	var payload string
	err := s.db.QueryRowContext(ctx,
		`SELECT payload FROM plans WHERE wedding_id = ?`, string(weddingID),
	).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return core.PlanSnapshot{}, nil
	}
	if err != nil {
		return core.PlanSnapshot{}, fmt.Errorf("load plan: %w", err)
	}
	var snap core.PlanSnapshot
	if err := json.Unmarshal([]byte(payload), &snap); err != nil {
		return core.PlanSnapshot{}, fmt.Errorf("decode plan: %w", err)
	}
	return snap, nil
}

func (s *Store) SavePlan(ctx context.Context, weddingID domain.WeddingID, snap core.PlanSnapshot) error {
	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode plan: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO plans (wedding_id, payload, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(wedding_id) DO UPDATE SET payload = excluded.payload, updated_at = excluded.updated_at`,
		string(weddingID), string(payload), time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("save plan: %w", err)
	}
	return nil
}

// LoadUIPrefs returns the default document when nothing is stored or the
// stored payload is corrupt; preference reads never fail the editor.
func (s *Store) LoadUIPrefs(ctx context.Context, weddingID domain.WeddingID) (core.UIPrefs, error) {
	var (
		version int
		payload string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT version, payload FROM ui_prefs WHERE wedding_id = ?`, string(weddingID),
	).Scan(&version, &payload)
	if errors.Is(err, sql.ErrNoRows) {
		return core.UIPrefs{Version: 1}, nil
	}
	if err != nil {
		return core.UIPrefs{}, fmt.Errorf("load ui prefs: %w", err)
	}

	var prefs core.UIPrefs
	if err := json.Unmarshal([]byte(payload), &prefs); err != nil {
		log.Warn().Str("module", "adapters.store").Str("wedding", string(weddingID)).Err(err).Msg("corrupt ui prefs, using defaults")
		return core.UIPrefs{Version: 1}, nil
	}
	prefs.Version = version
	if prefs.Viewport != nil {
		v := prefs.Viewport.Sanitize()
		prefs.Viewport = &v
	}
	return prefs, nil
}

func (s *Store) SaveUIPrefs(ctx context.Context, weddingID domain.WeddingID, prefs core.UIPrefs) error {
	if prefs.Version == 0 {
		prefs.Version = 1
	}
	payload, err := json.Marshal(prefs)
	if err != nil {
		return fmt.Errorf("encode ui prefs: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO ui_prefs (wedding_id, version, payload, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(wedding_id) DO UPDATE SET version = excluded.version, payload = excluded.payload, updated_at = excluded.updated_at`,
		string(weddingID), prefs.Version, string(payload), time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("save ui prefs: %w", err)
	}
	return nil
}

// Send implements analytics.Sink: the whole batch lands in one
// transaction or the pipeline keeps it queued.
func (s *Store) Send(ctx context.Context, batch []domain.Event) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin event batch: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO events (session_id, wedding_id, user_id, name, properties, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare event insert: %w", err)
	}
	defer stmt.Close()

	for _, ev := range batch {
		props, err := json.Marshal(ev.Properties)
		if err != nil {
			return fmt.Errorf("encode event properties: %w", err)
		}
		if _, err := stmt.ExecContext(ctx,
			string(ev.SessionID), string(ev.WeddingID), string(ev.UserID), ev.Name, string(props), ev.CreatedAt.UTC(),
		); err != nil {
			return fmt.Errorf("insert event: %w", err)
		}
	}
	return tx.Commit()
}
