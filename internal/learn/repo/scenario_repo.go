package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/duskveil/game-api/internal/learn/entity"
)

// ScenarioRepo provides read access to authored scenario trees. Scenarios are
// authored out-of-band; the insert exists for seeding.
type ScenarioRepo struct {
	db *sqlx.DB
}

func NewScenarioRepo(db *sqlx.DB) *ScenarioRepo { return &ScenarioRepo{db: db} }

// EnsureTable creates the scenario table if not exists (idempotent).
func (r *ScenarioRepo) EnsureTable(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS scenario (
  scenario_id BIGSERIAL PRIMARY KEY,
  title TEXT NOT NULL DEFAULT '',
  info JSONB NOT NULL
);
`
	_, err := r.db.ExecContext(ctx, ddl)
	return err
}

// Get fetches and decodes one scenario tree or sql.ErrNoRows.
func (r *ScenarioRepo) Get(ctx context.Context, id int64) (*entity.Scenario, error) {
	var row struct {
		ID    int64  `db:"scenario_id"`
		Title string `db:"title"`
		Info  []byte `db:"info"`
	}
	if err := r.db.GetContext(ctx, &row, `SELECT scenario_id, title, info FROM scenario WHERE scenario_id = $1`, id); err != nil {
		return nil, err
	}
	var tree entity.Tree
	if err := json.Unmarshal(row.Info, &tree); err != nil {
		return nil, fmt.Errorf("decode scenario %d: %w", id, err)
	}
	return &entity.Scenario{ID: row.ID, Title: row.Title, Tree: tree}, nil
}

// ListIDs returns the ids and titles of every authored scenario.
func (r *ScenarioRepo) ListIDs(ctx context.Context) ([]entity.Scenario, error) {
	rows := []struct {
		ID    int64  `db:"scenario_id"`
		Title string `db:"title"`
	}{}
	if err := r.db.SelectContext(ctx, &rows, `SELECT scenario_id, title FROM scenario ORDER BY scenario_id`); err != nil {
		return nil, err
	}
	out := make([]entity.Scenario, 0, len(rows))
	for _, row := range rows {
		out = append(out, entity.Scenario{ID: row.ID, Title: row.Title})
	}
	return out, nil
}

// Insert stores a validated tree and returns the new scenario id.
func (r *ScenarioRepo) Insert(ctx context.Context, title string, tree entity.Tree) (int64, error) {
	if err := tree.Validate(); err != nil {
		return 0, err
	}
	raw, err := json.Marshal(tree)
	if err != nil {
		return 0, fmt.Errorf("encode scenario: %w", err)
	}
	var id int64
	if err := r.db.GetContext(ctx, &id, `INSERT INTO scenario (title, info) VALUES ($1, $2) RETURNING scenario_id`, title, raw); err != nil {
		return 0, err
	}
	return id, nil
}

// ScenarioExists implements session.ScenarioChecker.
func (r *ScenarioRepo) ScenarioExists(ctx context.Context, id int64) (bool, error) {
	var exists bool
	if err := r.db.GetContext(ctx, &exists, `SELECT EXISTS (SELECT 1 FROM scenario WHERE scenario_id = $1)`, id); err != nil {
		return false, err
	}
	return exists, nil
}

// IsNotFound reports whether err is the driver's no-rows sentinel.
func IsNotFound(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
