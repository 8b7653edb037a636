package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/duskveil/game-api/internal/grow/entity"
)

// GeneratedRepo stores synthesized scenarios, exactly one per
// (session, depth). The unique constraint plus insert-or-skip makes first
// write win atomically; later reads always see the stored document.
type GeneratedRepo struct {
	db *sqlx.DB
}

func NewGeneratedRepo(db *sqlx.DB) *GeneratedRepo { return &GeneratedRepo{db: db} }

// EnsureTable creates the generated_scenarios table if not exists (idempotent).
func (r *GeneratedRepo) EnsureTable(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS generated_scenarios (
  id BIGSERIAL PRIMARY KEY,
  session_id BIGINT NOT NULL REFERENCES game_session(session_id),
  depth INT NOT NULL,
  scenario_json JSONB NOT NULL,
  source TEXT NOT NULL DEFAULT 'model',
  created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
  UNIQUE (session_id, depth)
);
`
	_, err := r.db.ExecContext(ctx, ddl)
	return err
}

type generatedRow struct {
	ID        int64     `db:"id"`
	SessionID int64     `db:"session_id"`
	Depth     int       `db:"depth"`
	Scenario  []byte    `db:"scenario_json"`
	Source    string    `db:"source"`
	CreatedAt time.Time `db:"created_at"`
}

func (row generatedRow) toRecord() (*entity.Record, error) {
	var sc entity.Scenario
	if err := json.Unmarshal(row.Scenario, &sc); err != nil {
		return nil, fmt.Errorf("decode scenario_json: %w", err)
	}
	return &entity.Record{
		ID:        row.ID,
		SessionID: row.SessionID,
		Depth:     row.Depth,
		Scenario:  sc,
		Source:    row.Source,
		CreatedAt: row.CreatedAt,
	}, nil
}

// InsertIfAbsent stores a scenario unless one already exists for the
// (session, depth) pair, then returns the stored record either way.
func (r *GeneratedRepo) InsertIfAbsent(ctx context.Context, sessionID int64, depth int, sc entity.Scenario, source string) (*entity.Record, error) {
	raw, err := json.Marshal(sc)
	if err != nil {
		return nil, fmt.Errorf("encode scenario_json: %w", err)
	}
	const q = `INSERT INTO generated_scenarios (session_id, depth, scenario_json, source)
	           VALUES ($1, $2, $3, $4) ON CONFLICT (session_id, depth) DO NOTHING`
	if _, err := r.db.ExecContext(ctx, q, sessionID, depth, raw, source); err != nil {
		return nil, err
	}
	return r.Get(ctx, sessionID, depth)
}

// Get fetches the stored scenario for a (session, depth) or sql.ErrNoRows.
func (r *GeneratedRepo) Get(ctx context.Context, sessionID int64, depth int) (*entity.Record, error) {
	var row generatedRow
	const q = `SELECT id, session_id, depth, scenario_json, source, created_at
	           FROM generated_scenarios WHERE session_id = $1 AND depth = $2`
	if err := r.db.GetContext(ctx, &row, q, sessionID, depth); err != nil {
		return nil, err
	}
	return row.toRecord()
}

// ListBySession returns every stored scenario of a session ordered by depth.
func (r *GeneratedRepo) ListBySession(ctx context.Context, sessionID int64) ([]entity.Record, error) {
	rows := []generatedRow{}
	const q = `SELECT id, session_id, depth, scenario_json, source, created_at
	           FROM generated_scenarios WHERE session_id = $1 ORDER BY depth`
	if err := r.db.SelectContext(ctx, &rows, q, sessionID); err != nil {
		return nil, err
	}
	out := make([]entity.Record, 0, len(rows))
	for _, row := range rows {
		rec, err := row.toRecord()
		if err != nil {
			return nil, err
		}
		out = append(out, *rec)
	}
	return out, nil
}

// IsNotFound reports whether err is the driver's no-rows sentinel.
func IsNotFound(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
