// Package fx keeps the exchange-rate history behind the local-currency
// settings keys. Rates are recorded per day and pushed into settings so
// the KGS calculation tracks the market without hand-editing rates.
package fx

import (
	"errors"
	"time"
)

// Currency pairs the system tracks for the local-currency formula.
const (
	CurrencyCNY = "CNY"
	CurrencyUSD = "USD"
	CurrencyKGS = "KGS"
)

// Rate is one recorded conversion observation.
type Rate struct {
	ID           int64     `json:"id"`
	RefID        string    `json:"ref_id"`
	CurrencyFrom string    `json:"currency_from"`
	CurrencyTo   string    `json:"currency_to"`
	Rate         float64   `json:"rate"`
	Date         time.Time `json:"date"`
}

var (
	// ErrDuplicateRate indicates the pair was already recorded for the day.
	ErrDuplicateRate = errors.New("fx: rate already recorded for date")
	// ErrInvalidRate indicates a non-positive conversion value.
	ErrInvalidRate = errors.New("fx: rate must be positive")
)
