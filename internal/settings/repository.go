package settings

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cargofol/cargofol/internal/shared"
)

// Repository persists settings rows in PostgreSQL. Values are stored as
// JSON so the admin surface can round-trip them unchanged; only numeric
// values are legal for rate keys.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// List returns every settings row ordered by key.
func (r *Repository) List(ctx context.Context) ([]Setting, error) {
	rows, err := r.pool.Query(ctx, `SELECT key, value::text, COALESCE(description, ''), updated_at FROM settings ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("settings: list: %w", err)
	}
	defer rows.Close()

	var out []Setting
	for rows.Next() {
		var (
			s   Setting
			raw string
		)
		if err := rows.Scan(&s.Key, &raw, &s.Description, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("settings: scan: %w", err)
		}
		value, err := parseRate(s.Key, raw)
		if err != nil {
			return nil, err
		}
		s.Value = value
		out = append(out, s)
	}
	return out, rows.Err()
}

// LoadValues reads all rows into a key to value map for snapshotting.
func (r *Repository) LoadValues(ctx context.Context) (map[string]float64, error) {
	list, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	values := make(map[string]float64, len(list))
	for _, s := range list {
		values[s.Key] = s.Value
	}
	return values, nil
}

// Get returns a single settings row by key.
func (r *Repository) Get(ctx context.Context, key string) (Setting, error) {
	var (
		s   Setting
		raw string
	)
	err := r.pool.QueryRow(ctx, `SELECT key, value::text, COALESCE(description, ''), updated_at FROM settings WHERE key = $1`, key).
		Scan(&s.Key, &raw, &s.Description, &s.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Setting{}, shared.ErrNotFound
	}
	if err != nil {
		return Setting{}, fmt.Errorf("settings: get %s: %w", key, err)
	}
	value, err := parseRate(s.Key, raw)
	if err != nil {
		return Setting{}, err
	}
	s.Value = value
	return s, nil
}

// Upsert inserts or replaces one settings row.
func (r *Repository) Upsert(ctx context.Context, s Setting) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO settings (key, value, description, updated_at)
		VALUES ($1, to_jsonb($2::float8), $3, $4)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, description = EXCLUDED.description, updated_at = EXCLUDED.updated_at`,
		s.Key, s.Value, s.Description, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("settings: upsert %s: %w", s.Key, err)
	}
	return nil
}

// parseRate converts the stored JSON text into a finite float64. A value
// that is present but not numeric must surface as ConfigError, never be
// coerced to zero.
func parseRate(key, raw string) (float64, error) {
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, &ConfigError{Key: key, Raw: raw}
	}
	return v, nil
}
