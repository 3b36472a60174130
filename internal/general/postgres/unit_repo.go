package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"fleet-tracker/internal/domain/geo"
	"fleet-tracker/internal/domain/unit"
)

// Schema creates the roster table when missing.
const Schema = `
CREATE TABLE IF NOT EXISTS tractors (
	id           TEXT PRIMARY KEY,
	name         TEXT NOT NULL,
	model        TEXT NOT NULL DEFAULT '',
	status       TEXT NOT NULL DEFAULT 'available' CHECK (status IN ('available', 'maintenance')),
	latitude     DOUBLE PRECISION NOT NULL,
	longitude    DOUBLE PRECISION NOT NULL,
	last_seen_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

const listUnitsSQL = `
SELECT id, name, model, status, latitude, longitude, last_seen_at
FROM tractors
ORDER BY id`

// querier is the part of *pgxpool.Pool the repo needs.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// UnitRepo reads the roster from the tractors table.
type UnitRepo struct {
	db  querier
	now func() time.Time
}

func NewUnitRepo(db querier) *UnitRepo {
	return &UnitRepo{db: db, now: time.Now}
}

// EnsureSchema creates the tractors table if it does not exist.
func (repo *UnitRepo) EnsureSchema(ctx context.Context) error {
	if _, err := repo.db.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("ensure tractors schema: %w", err)
	}
	return nil
}

// ListUnits returns every roster row. Rows that fail validation are an error
// rather than being skipped silently.
func (repo *UnitRepo) ListUnits(ctx context.Context) ([]unit.Unit, error) {
	rows, err := repo.db.Query(ctx, listUnitsSQL)
	if err != nil {
		return nil, fmt.Errorf("query tractors: %w", err)
	}
	defer rows.Close()

	now := repo.now()
	var out []unit.Unit
	for rows.Next() {
		var (
			u        unit.Unit
			status   string
			lat, lng float64
			lastSeen time.Time
		)
		if err := rows.Scan(&u.ID, &u.Name, &u.Model, &status, &lat, &lng, &lastSeen); err != nil {
			return nil, fmt.Errorf("scan tractor: %w", err)
		}
		if u.Status, err = unit.ParseStatus(status); err != nil {
			return nil, fmt.Errorf("tractor %s: %w", u.ID, err)
		}
		u.Location = geo.Coordinate{Lat: lat, Lng: lng}
		u.LastSeen = unit.SeenAgo(now.Sub(lastSeen))
		if err := u.Validate(); err != nil {
			return nil, fmt.Errorf("tractor %s: %w", u.ID, err)
		}
		out = append(out, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tractors: %w", err)
	}
	return out, nil
}
