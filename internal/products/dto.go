package products

import (
	"fmt"
	"time"
)

// CreateInput is the payload accepted when registering a new record.
// Derived cost fields are deliberately absent; the calculator owns them.
type CreateInput struct {
	ProductName  string `json:"product_name" validate:"required"`
	SupplierName string `json:"supplier_name" validate:"required"`
	OrderNumber  string `json:"order_number" validate:"required"`
	Category     string `json:"category"`

	PurchasePrice float64       `json:"purchase_price"`
	Currency      string        `json:"currency" validate:"required"`
	ExchangeRate  float64       `json:"exchange_rate"`
	MarginPercent float64       `json:"margin_percent"`
	PaymentStatus PaymentStatus `json:"payment_status"`
	InvoiceNumber string        `json:"invoice_number"`

	WeightKG             float64        `json:"weight_kg"`
	VolumeM3             float64        `json:"volume_m3"`
	Quantity             int            `json:"quantity"`
	WarehouseLocation    string         `json:"warehouse_location"`
	TrackingNumber       string         `json:"tracking_number"`
	ShippingMethod       ShippingMethod `json:"shipping_method" validate:"required"`
	Status               CargoStatus    `json:"status"`
	DepartureDate        *time.Time     `json:"departure_date"`
	EstimatedArrivalDate *time.Time     `json:"estimated_arrival_date"`
	ActualArrivalDate    *time.Time     `json:"actual_arrival_date"`
	LogisticsNotes       string         `json:"logistics_notes"`

	MediaURLs       []string `json:"media_urls"`
	Characteristics string   `json:"characteristics"`

	PriceCNY         float64 `json:"price_cny"`
	DeliveryUSDPerKG float64 `json:"delivery_usd_per_kg"`
}

// toProduct maps the input onto a fresh record, applying enum defaults.
func (in CreateInput) toProduct() (Product, error) {
	p := Product{
		ProductName:          in.ProductName,
		SupplierName:         in.SupplierName,
		OrderNumber:          in.OrderNumber,
		Category:             in.Category,
		PurchasePrice:        in.PurchasePrice,
		Currency:             in.Currency,
		ExchangeRate:         in.ExchangeRate,
		MarginPercent:        in.MarginPercent,
		PaymentStatus:        in.PaymentStatus,
		InvoiceNumber:        in.InvoiceNumber,
		WeightKG:             in.WeightKG,
		VolumeM3:             in.VolumeM3,
		Quantity:             in.Quantity,
		WarehouseLocation:    in.WarehouseLocation,
		TrackingNumber:       in.TrackingNumber,
		ShippingMethod:       in.ShippingMethod,
		Status:               in.Status,
		DepartureDate:        in.DepartureDate,
		EstimatedArrivalDate: in.EstimatedArrivalDate,
		ActualArrivalDate:    in.ActualArrivalDate,
		LogisticsNotes:       in.LogisticsNotes,
		MediaURLs:            in.MediaURLs,
		Characteristics:      in.Characteristics,
		PriceCNY:             in.PriceCNY,
		DeliveryUSDPerKG:     in.DeliveryUSDPerKG,
	}
	if p.PaymentStatus == "" {
		p.PaymentStatus = PaymentUnpaid
	}
	if p.Status == "" {
		p.Status = CargoPending
	}
	if !p.PaymentStatus.Valid() {
		return Product{}, fmt.Errorf("%w: payment_status %q", ErrInvalidEnum, p.PaymentStatus)
	}
	if !p.Status.Valid() {
		return Product{}, fmt.Errorf("%w: status %q", ErrInvalidEnum, p.Status)
	}
	if !p.ShippingMethod.Valid() {
		return Product{}, fmt.Errorf("%w: shipping_method %q", ErrInvalidEnum, p.ShippingMethod)
	}
	return p, nil
}

// Patch is a typed partial update. Nil fields are left untouched; only
// fields on this allow-list can be changed by a caller. Derived cost
// fields are absent on purpose.
type Patch struct {
	ProductName  *string `json:"product_name"`
	SupplierName *string `json:"supplier_name"`
	OrderNumber  *string `json:"order_number"`
	Category     *string `json:"category"`

	PurchasePrice *float64       `json:"purchase_price"`
	Currency      *string        `json:"currency"`
	ExchangeRate  *float64       `json:"exchange_rate"`
	MarginPercent *float64       `json:"margin_percent"`
	PaymentStatus *PaymentStatus `json:"payment_status"`
	PaymentDate   *time.Time     `json:"payment_date"`
	InvoiceNumber *string        `json:"invoice_number"`

	WeightKG             *float64        `json:"weight_kg"`
	VolumeM3             *float64        `json:"volume_m3"`
	Quantity             *int            `json:"quantity"`
	WarehouseLocation    *string         `json:"warehouse_location"`
	TrackingNumber       *string         `json:"tracking_number"`
	ShippingMethod       *ShippingMethod `json:"shipping_method"`
	Status               *CargoStatus    `json:"status"`
	DepartureDate        *time.Time      `json:"departure_date"`
	EstimatedArrivalDate *time.Time      `json:"estimated_arrival_date"`
	ActualArrivalDate    *time.Time      `json:"actual_arrival_date"`
	LogisticsNotes       *string         `json:"logistics_notes"`

	MediaURLs       *[]string `json:"media_urls"`
	Characteristics *string   `json:"characteristics"`

	PriceCNY         *float64 `json:"price_cny"`
	DeliveryUSDPerKG *float64 `json:"delivery_usd_per_kg"`
}

// validate rejects enum values outside their closed sets.
func (p Patch) validate() error {
	if p.PaymentStatus != nil && !p.PaymentStatus.Valid() {
		return fmt.Errorf("%w: payment_status %q", ErrInvalidEnum, *p.PaymentStatus)
	}
	if p.Status != nil && !p.Status.Valid() {
		return fmt.Errorf("%w: status %q", ErrInvalidEnum, *p.Status)
	}
	if p.ShippingMethod != nil && !p.ShippingMethod.Valid() {
		return fmt.Errorf("%w: shipping_method %q", ErrInvalidEnum, *p.ShippingMethod)
	}
	return nil
}

// apply writes the supplied fields onto the record, field by field.
func (p Patch) apply(prod *Product) {
	setString(&prod.ProductName, p.ProductName)
	setString(&prod.SupplierName, p.SupplierName)
	setString(&prod.OrderNumber, p.OrderNumber)
	setString(&prod.Category, p.Category)
	setFloat(&prod.PurchasePrice, p.PurchasePrice)
	setString(&prod.Currency, p.Currency)
	setFloat(&prod.ExchangeRate, p.ExchangeRate)
	setFloat(&prod.MarginPercent, p.MarginPercent)
	if p.PaymentStatus != nil {
		prod.PaymentStatus = *p.PaymentStatus
	}
	if p.PaymentDate != nil {
		prod.PaymentDate = p.PaymentDate
	}
	setString(&prod.InvoiceNumber, p.InvoiceNumber)
	setFloat(&prod.WeightKG, p.WeightKG)
	setFloat(&prod.VolumeM3, p.VolumeM3)
	if p.Quantity != nil {
		prod.Quantity = *p.Quantity
	}
	setString(&prod.WarehouseLocation, p.WarehouseLocation)
	setString(&prod.TrackingNumber, p.TrackingNumber)
	if p.ShippingMethod != nil {
		prod.ShippingMethod = *p.ShippingMethod
	}
	if p.Status != nil {
		prod.Status = *p.Status
	}
	if p.DepartureDate != nil {
		prod.DepartureDate = p.DepartureDate
	}
	if p.EstimatedArrivalDate != nil {
		prod.EstimatedArrivalDate = p.EstimatedArrivalDate
	}
	if p.ActualArrivalDate != nil {
		prod.ActualArrivalDate = p.ActualArrivalDate
	}
	setString(&prod.LogisticsNotes, p.LogisticsNotes)
	if p.MediaURLs != nil {
		prod.MediaURLs = append([]string(nil), (*p.MediaURLs)...)
	}
	setString(&prod.Characteristics, p.Characteristics)
	setFloat(&prod.PriceCNY, p.PriceCNY)
	setFloat(&prod.DeliveryUSDPerKG, p.DeliveryUSDPerKG)
}

// touchesPrimary reports whether any trigger field of the USD formula was
// supplied.
func (p Patch) touchesPrimary() bool {
	return p.WeightKG != nil || p.VolumeM3 != nil || p.PurchasePrice != nil || p.MarginPercent != nil
}

// touchesLocal reports whether any trigger field of the KGS formula was
// supplied.
func (p Patch) touchesLocal() bool {
	return p.PriceCNY != nil || p.DeliveryUSDPerKG != nil || p.WeightKG != nil
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}

func setFloat(dst *float64, src *float64) {
	if src != nil {
		*dst = *src
	}
}
