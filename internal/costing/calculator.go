// Package costing holds the cost calculation kernel. Every function here
// is pure and deterministic: inputs plus a rates snapshot in, derived
// fields out, no I/O and no clock reads. Input validation happens at the
// transport edge, not here; negative or zero inputs pass through.
package costing

import (
	"math"

	"github.com/cargofol/cargofol/internal/settings"
)

// Inputs are the product attributes the primary (USD) formula reads.
type Inputs struct {
	WeightKG      float64
	VolumeM3      float64
	PurchasePrice float64
	MarginPercent float64
}

// Derived are the calculator-owned output fields. Callers never set these
// directly; they are rewritten as a whole on every (re)calculation.
type Derived struct {
	CustomsCost        float64 `json:"customs_cost"`
	DeliveryCost       float64 `json:"delivery_cost"`
	FinalTotalCost     float64 `json:"final_total_cost"`
	OutstandingBalance float64 `json:"outstanding_balance"`
}

// Compute runs the primary USD-denominated formula.
//
// Customs is charged as the greater of a per-kg tariff and a percentage
// of the purchase value; delivery as the greater of per-kg and per-m3
// freight. Margin is applied on top of the landed cost. The outstanding
// balance always re-initialises to the full cost; payment tracking
// settles it elsewhere.
func Compute(in Inputs, rates settings.Rates) Derived {
	customs := math.Max(
		in.WeightKG*rates.Get(settings.KeyCustomsRateKG),
		in.PurchasePrice*rates.Get(settings.KeyCustomsPercent),
	)
	delivery := math.Max(
		in.WeightKG*rates.Get(settings.KeyDeliveryRateKG),
		in.VolumeM3*rates.Get(settings.KeyDeliveryRateM3),
	)
	subtotal := in.PurchasePrice + customs + delivery
	finalTotal := subtotal * (1 + in.MarginPercent/100)

	return Derived{
		CustomsCost:        customs,
		DeliveryCost:       delivery,
		FinalTotalCost:     finalTotal,
		OutstandingBalance: finalTotal,
	}
}

// LocalInputs are the attributes the secondary (KGS) formula reads.
type LocalInputs struct {
	PriceCNY         float64
	DeliveryUSDPerKG float64
	WeightKG         float64
}

// ComputeLocal runs the secondary local-currency formula and returns the
// total cost in som. It is independent of Compute; either, both or
// neither may rerun on a given update.
func ComputeLocal(in LocalInputs, rates settings.Rates) float64 {
	priceSom := in.PriceCNY * rates.Get(settings.KeyCNYToKGS)
	shippingUSD := in.DeliveryUSDPerKG * in.WeightKG
	shippingSom := shippingUSD * rates.Get(settings.KeyUSDToKGS)
	return priceSom + shippingSom
}
