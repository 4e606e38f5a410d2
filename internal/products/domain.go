// Package products tracks purchased goods through customs and delivery.
// It owns the record lifecycle: every create, update and delete runs the
// cost calculators where needed and appends exactly one audit entry.
package products

import (
	"errors"
	"time"
)

// CargoStatus tracks physical movement of a consignment.
type CargoStatus string

const (
	CargoPending     CargoStatus = "Pending"
	CargoInWarehouse CargoStatus = "In Warehouse"
	CargoInTransit   CargoStatus = "In Transit"
	CargoDelivered   CargoStatus = "Delivered"
)

// Valid reports whether the status is a known cargo state.
func (c CargoStatus) Valid() bool {
	switch c {
	case CargoPending, CargoInWarehouse, CargoInTransit, CargoDelivered:
		return true
	}
	return false
}

// PaymentStatus tracks settlement of a record's outstanding balance.
type PaymentStatus string

const (
	PaymentUnpaid        PaymentStatus = "Unpaid"
	PaymentPartiallyPaid PaymentStatus = "Partially Paid"
	PaymentPaid          PaymentStatus = "Paid"
)

// Valid reports whether the status is a known payment state.
func (p PaymentStatus) Valid() bool {
	switch p {
	case PaymentUnpaid, PaymentPartiallyPaid, PaymentPaid:
		return true
	}
	return false
}

// ShippingMethod enumerates transport modes.
type ShippingMethod string

const (
	ShipAir   ShippingMethod = "Air"
	ShipSea   ShippingMethod = "Sea"
	ShipRail  ShippingMethod = "Rail"
	ShipTruck ShippingMethod = "Truck"
)

// Valid reports whether the method is a known transport mode.
func (s ShippingMethod) Valid() bool {
	switch s {
	case ShipAir, ShipSea, ShipRail, ShipTruck:
		return true
	}
	return false
}

// Product is one tracked purchase record. The derived financial outputs
// (customs_cost, delivery_cost, final_total_cost, outstanding_balance,
// total_cost_som) are owned by the calculators; they are rewritten as a
// whole on (re)calculation and never edited independently.
type Product struct {
	ID           int64  `json:"id"`
	ProductName  string `json:"product_name"`
	SupplierName string `json:"supplier_name"`
	OrderNumber  string `json:"order_number"`
	Category     string `json:"category,omitempty"`

	PurchasePrice      float64       `json:"purchase_price"`
	Currency           string        `json:"currency"`
	ExchangeRate       float64       `json:"exchange_rate"`
	MarginPercent      float64       `json:"margin_percent"`
	CustomsCost        float64       `json:"customs_cost"`
	DeliveryCost       float64       `json:"delivery_cost"`
	FinalTotalCost     float64       `json:"final_total_cost"`
	OutstandingBalance float64       `json:"outstanding_balance"`
	PaymentStatus      PaymentStatus `json:"payment_status"`
	PaymentDate        *time.Time    `json:"payment_date,omitempty"`
	InvoiceNumber      string        `json:"invoice_number,omitempty"`

	WeightKG             float64        `json:"weight_kg"`
	VolumeM3             float64        `json:"volume_m3"`
	Quantity             int            `json:"quantity"`
	WarehouseLocation    string         `json:"warehouse_location,omitempty"`
	TrackingNumber       string         `json:"tracking_number,omitempty"`
	ShippingMethod       ShippingMethod `json:"shipping_method"`
	Status               CargoStatus    `json:"status"`
	DepartureDate        *time.Time     `json:"departure_date,omitempty"`
	EstimatedArrivalDate *time.Time     `json:"estimated_arrival_date,omitempty"`
	ActualArrivalDate    *time.Time     `json:"actual_arrival_date,omitempty"`
	LogisticsNotes       string         `json:"logistics_notes,omitempty"`

	MediaURLs       []string `json:"media_urls,omitempty"`
	Characteristics string   `json:"characteristics,omitempty"`

	PriceCNY         float64 `json:"price_cny"`
	DeliveryUSDPerKG float64 `json:"delivery_usd_per_kg"`
	TotalCostSom     float64 `json:"total_cost_som"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Snapshot serialises every persisted field into plain data for the audit
// trail. Enum fields go in by string value and timestamps as RFC3339;
// there must be no live reference left that a later edit of the record
// could reach.
func (p Product) Snapshot() map[string]any {
	urls := make([]any, len(p.MediaURLs))
	for i, u := range p.MediaURLs {
		urls[i] = u
	}
	return map[string]any{
		"id":                     p.ID,
		"product_name":           p.ProductName,
		"supplier_name":          p.SupplierName,
		"order_number":           p.OrderNumber,
		"category":               p.Category,
		"purchase_price":         p.PurchasePrice,
		"currency":               p.Currency,
		"exchange_rate":          p.ExchangeRate,
		"margin_percent":         p.MarginPercent,
		"customs_cost":           p.CustomsCost,
		"delivery_cost":          p.DeliveryCost,
		"final_total_cost":       p.FinalTotalCost,
		"outstanding_balance":    p.OutstandingBalance,
		"payment_status":         string(p.PaymentStatus),
		"payment_date":           formatTime(p.PaymentDate),
		"invoice_number":         p.InvoiceNumber,
		"weight_kg":              p.WeightKG,
		"volume_m3":              p.VolumeM3,
		"quantity":               p.Quantity,
		"warehouse_location":     p.WarehouseLocation,
		"tracking_number":        p.TrackingNumber,
		"shipping_method":        string(p.ShippingMethod),
		"status":                 string(p.Status),
		"departure_date":         formatTime(p.DepartureDate),
		"estimated_arrival_date": formatTime(p.EstimatedArrivalDate),
		"actual_arrival_date":    formatTime(p.ActualArrivalDate),
		"logistics_notes":        p.LogisticsNotes,
		"media_urls":             urls,
		"characteristics":        p.Characteristics,
		"price_cny":              p.PriceCNY,
		"delivery_usd_per_kg":    p.DeliveryUSDPerKG,
		"total_cost_som":         p.TotalCostSom,
		"created_at":             p.CreatedAt.UTC().Format(time.RFC3339),
		"updated_at":             p.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func formatTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339)
}

// ErrInvalidEnum indicates an enum value outside its closed set.
var ErrInvalidEnum = errors.New("products: invalid enum value")
