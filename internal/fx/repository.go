package fx

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists exchange-rate observations.
type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) Insert(ctx context.Context, rate *Rate) error {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO exchange_rates (ref_id, currency_from, currency_to, rate, date)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`,
		rate.RefID, rate.CurrencyFrom, rate.CurrencyTo, rate.Rate, rate.Date,
	).Scan(&rate.ID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicateRate
		}
		return fmt.Errorf("fx: insert rate: %w", err)
	}
	return nil
}

// Latest returns the most recent observation for a currency pair.
func (r *Repository) Latest(ctx context.Context, from, to string) (Rate, error) {
	var rate Rate
	err := r.pool.QueryRow(ctx, `
		SELECT id, ref_id, currency_from, currency_to, rate, date
		FROM exchange_rates
		WHERE currency_from = $1 AND currency_to = $2
		ORDER BY date DESC, id DESC
		LIMIT 1`,
		from, to,
	).Scan(&rate.ID, &rate.RefID, &rate.CurrencyFrom, &rate.CurrencyTo, &rate.Rate, &rate.Date)
	if err != nil {
		return Rate{}, fmt.Errorf("fx: latest rate %s/%s: %w", from, to, err)
	}
	return rate, nil
}

func (r *Repository) List(ctx context.Context, limit int) ([]Rate, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id, ref_id, currency_from, currency_to, rate, date
		FROM exchange_rates
		ORDER BY date DESC, id DESC
		LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("fx: list rates: %w", err)
	}
	defer rows.Close()

	rates := make([]Rate, 0, limit)
	for rows.Next() {
		var rate Rate
		if err := rows.Scan(&rate.ID, &rate.RefID, &rate.CurrencyFrom, &rate.CurrencyTo, &rate.Rate, &rate.Date); err != nil {
			return nil, fmt.Errorf("fx: scan rate: %w", err)
		}
		rates = append(rates, rate)
	}
	return rates, rows.Err()
}
