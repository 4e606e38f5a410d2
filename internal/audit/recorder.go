package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Execer is satisfied by both pgxpool.Pool and pgx.Tx, so an entry can be
// appended inside the same transaction as the record mutation it describes.
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Insert appends one entry using the given executor. Storage failures
// propagate to the caller un-retried; a dropped entry must never be
// silently absorbed here.
func Insert(ctx context.Context, q Execer, e Entry) error {
	if !e.Action.Valid() {
		return fmt.Errorf("audit: unknown action %q", e.Action)
	}
	details, err := json.Marshal(Clone(e.Details))
	if err != nil {
		return fmt.Errorf("audit: encode details: %w", err)
	}
	at := e.At
	if at.IsZero() {
		at = time.Now().UTC()
	}
	_, err = q.Exec(ctx, `INSERT INTO audit_logs (user_id, product_id, action, details, created_at) VALUES ($1, $2, $3, $4, $5)`,
		e.ActorID, e.ProductID, string(e.Action), details, at)
	if err != nil {
		return fmt.Errorf("audit: insert: %w", err)
	}
	return nil
}

// Recorder appends audit entries outside any caller transaction.
type Recorder struct {
	pool *pgxpool.Pool
}

// NewRecorder returns a pool-backed Recorder.
func NewRecorder(pool *pgxpool.Pool) *Recorder {
	return &Recorder{pool: pool}
}

// Record persists the entry.
func (r *Recorder) Record(ctx context.Context, e Entry) error {
	return Insert(ctx, r.pool, e)
}

// List returns entries newest first, optionally filtered by product.
func (r *Recorder) List(ctx context.Context, f Filter) ([]Entry, error) {
	limit := f.Limit
	if limit <= 0 || limit > 200 {
		limit = 100
	}
	offset := f.Offset
	if offset < 0 {
		offset = 0
	}

	query := `SELECT id, user_id, product_id, action, details, created_at FROM audit_logs`
	args := []any{}
	if f.ProductID != nil {
		query += ` WHERE product_id = $1`
		args = append(args, *f.ProductID)
	}
	query += fmt.Sprintf(` ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("audit: list: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e   Entry
			raw []byte
		)
		if err := rows.Scan(&e.ID, &e.ActorID, &e.ProductID, &e.Action, &raw, &e.At); err != nil {
			return nil, fmt.Errorf("audit: scan: %w", err)
		}
		if len(raw) > 0 {
			if err := json.Unmarshal(raw, &e.Details); err != nil {
				return nil, fmt.Errorf("audit: decode details: %w", err)
			}
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
