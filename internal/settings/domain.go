// Package settings stores the configurable rates consumed by cost
// calculations. Calculations never read storage directly; they operate on
// an immutable Rates snapshot taken once per operation.
package settings

import (
	"fmt"
	"time"
)

// Known rate keys.
const (
	KeyCustomsRateKG        = "customs_rate_kg"
	KeyCustomsPercent       = "customs_percent"
	KeyDeliveryRateKG       = "delivery_rate_kg"
	KeyDeliveryRateM3       = "delivery_rate_m3"
	KeyCNYToKGS             = "cny_to_kgs"
	KeyUSDToKGS             = "usd_to_kgs"
	KeyCompanyMarginPercent = "company_margin_percent"
)

// Fallback values used when a key is absent from storage.
var defaults = map[string]float64{
	KeyCustomsRateKG:        2.5,
	KeyCustomsPercent:       0.15,
	KeyDeliveryRateKG:       1.5,
	KeyDeliveryRateM3:       150,
	KeyCNYToKGS:             12.3,
	KeyUSDToKGS:             87.5,
	KeyCompanyMarginPercent: 10,
}

// Default returns the documented fallback for a key, and whether the key
// is one of the known rates.
func Default(key string) (float64, bool) {
	v, ok := defaults[key]
	return v, ok
}

// Setting is one persisted rate row.
type Setting struct {
	Key         string    `json:"key"`
	Value       float64   `json:"value"`
	Description string    `json:"description,omitempty"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Rates is a snapshot of every stored rate at a point in time. It is
// immutable once built: concurrent settings updates never affect an
// in-flight calculation holding a snapshot.
type Rates struct {
	values map[string]float64
}

// NewRates builds a snapshot from stored values. The map is copied.
func NewRates(values map[string]float64) Rates {
	copied := make(map[string]float64, len(values))
	for k, v := range values {
		copied[k] = v
	}
	return Rates{values: copied}
}

// Get resolves a rate, falling back to the documented default when the
// key was absent from storage.
func (r Rates) Get(key string) float64 {
	if v, ok := r.values[key]; ok {
		return v
	}
	return defaults[key]
}

// ConfigError reports a stored settings value that is present but not a
// finite number. Calculations abort on it instead of coercing.
type ConfigError struct {
	Key string
	Raw string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("settings: key %q holds non-numeric value %q", e.Key, e.Raw)
}
