package products

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cargofol/cargofol/internal/audit"
	"github.com/cargofol/cargofol/internal/platform/db"
	"github.com/cargofol/cargofol/internal/shared"
)

const productColumns = `id, product_name, supplier_name, order_number, COALESCE(category, ''),
	purchase_price, currency, exchange_rate, margin_percent,
	customs_cost, delivery_cost, final_total_cost, outstanding_balance,
	payment_status, payment_date, COALESCE(invoice_number, ''),
	weight_kg, volume_m3, quantity, COALESCE(warehouse_location, ''), COALESCE(tracking_number, ''),
	shipping_method, status, departure_date, estimated_arrival_date, actual_arrival_date,
	COALESCE(logistics_notes, ''), media_urls, COALESCE(characteristics, ''),
	price_cny, delivery_usd_per_kg, total_cost_som, created_at, updated_at`

// Repository persists product records in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (Product, error) {
	var (
		p    Product
		urls []byte
	)
	err := row.Scan(
		&p.ID, &p.ProductName, &p.SupplierName, &p.OrderNumber, &p.Category,
		&p.PurchasePrice, &p.Currency, &p.ExchangeRate, &p.MarginPercent,
		&p.CustomsCost, &p.DeliveryCost, &p.FinalTotalCost, &p.OutstandingBalance,
		&p.PaymentStatus, &p.PaymentDate, &p.InvoiceNumber,
		&p.WeightKG, &p.VolumeM3, &p.Quantity, &p.WarehouseLocation, &p.TrackingNumber,
		&p.ShippingMethod, &p.Status, &p.DepartureDate, &p.EstimatedArrivalDate, &p.ActualArrivalDate,
		&p.LogisticsNotes, &urls, &p.Characteristics,
		&p.PriceCNY, &p.DeliveryUSDPerKG, &p.TotalCostSom, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return Product{}, err
	}
	if len(urls) > 0 {
		if err := json.Unmarshal(urls, &p.MediaURLs); err != nil {
			return Product{}, fmt.Errorf("products: decode media_urls: %w", err)
		}
	}
	return p, nil
}

// Get loads one record by id.
func (r *Repository) Get(ctx context.Context, id int64) (Product, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id)
	p, err := scanProduct(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Product{}, shared.ErrNotFound
	}
	if err != nil {
		return Product{}, fmt.Errorf("products: get %d: %w", id, err)
	}
	return p, nil
}

// List returns records newest first.
func (r *Repository) List(ctx context.Context, f ListFilter) ([]Product, error) {
	limit := f.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	offset := f.Offset
	if offset < 0 {
		offset = 0
	}
	rows, err := r.pool.Query(ctx, `SELECT `+productColumns+` FROM products ORDER BY id DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("products: list: %w", err)
	}
	defer rows.Close()

	var out []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("products: scan: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// WithTx runs fn inside one transaction covering the record mutation and
// its audit entry.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{tx: tx})
	})
}

type txRepo struct {
	tx pgx.Tx
}

func (r *txRepo) Insert(ctx context.Context, p Product) (int64, error) {
	urls, err := json.Marshal(p.MediaURLs)
	if err != nil {
		return 0, fmt.Errorf("products: encode media_urls: %w", err)
	}
	var id int64
	err = r.tx.QueryRow(ctx, `
		INSERT INTO products (
			product_name, supplier_name, order_number, category,
			purchase_price, currency, exchange_rate, margin_percent,
			customs_cost, delivery_cost, final_total_cost, outstanding_balance,
			payment_status, payment_date, invoice_number,
			weight_kg, volume_m3, quantity, warehouse_location, tracking_number,
			shipping_method, status, departure_date, estimated_arrival_date, actual_arrival_date,
			logistics_notes, media_urls, characteristics,
			price_cny, delivery_usd_per_kg, total_cost_som, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17,
			$18, $19, $20, $21, $22, $23, $24, $25, $26, $27, $28, $29, $30, $31, $32, $33
		) RETURNING id`,
		p.ProductName, p.SupplierName, p.OrderNumber, p.Category,
		p.PurchasePrice, p.Currency, p.ExchangeRate, p.MarginPercent,
		p.CustomsCost, p.DeliveryCost, p.FinalTotalCost, p.OutstandingBalance,
		string(p.PaymentStatus), p.PaymentDate, p.InvoiceNumber,
		p.WeightKG, p.VolumeM3, p.Quantity, p.WarehouseLocation, p.TrackingNumber,
		string(p.ShippingMethod), string(p.Status), p.DepartureDate, p.EstimatedArrivalDate, p.ActualArrivalDate,
		p.LogisticsNotes, urls, p.Characteristics,
		p.PriceCNY, p.DeliveryUSDPerKG, p.TotalCostSom, p.CreatedAt, p.UpdatedAt,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("products: insert: %w", err)
	}
	return id, nil
}

func (r *txRepo) Update(ctx context.Context, p Product) error {
	urls, err := json.Marshal(p.MediaURLs)
	if err != nil {
		return fmt.Errorf("products: encode media_urls: %w", err)
	}
	tag, err := r.tx.Exec(ctx, `
		UPDATE products SET
			product_name = $1, supplier_name = $2, order_number = $3, category = $4,
			purchase_price = $5, currency = $6, exchange_rate = $7, margin_percent = $8,
			customs_cost = $9, delivery_cost = $10, final_total_cost = $11, outstanding_balance = $12,
			payment_status = $13, payment_date = $14, invoice_number = $15,
			weight_kg = $16, volume_m3 = $17, quantity = $18, warehouse_location = $19, tracking_number = $20,
			shipping_method = $21, status = $22, departure_date = $23, estimated_arrival_date = $24, actual_arrival_date = $25,
			logistics_notes = $26, media_urls = $27, characteristics = $28,
			price_cny = $29, delivery_usd_per_kg = $30, total_cost_som = $31, updated_at = $32
		WHERE id = $33`,
		p.ProductName, p.SupplierName, p.OrderNumber, p.Category,
		p.PurchasePrice, p.Currency, p.ExchangeRate, p.MarginPercent,
		p.CustomsCost, p.DeliveryCost, p.FinalTotalCost, p.OutstandingBalance,
		string(p.PaymentStatus), p.PaymentDate, p.InvoiceNumber,
		p.WeightKG, p.VolumeM3, p.Quantity, p.WarehouseLocation, p.TrackingNumber,
		string(p.ShippingMethod), string(p.Status), p.DepartureDate, p.EstimatedArrivalDate, p.ActualArrivalDate,
		p.LogisticsNotes, urls, p.Characteristics,
		p.PriceCNY, p.DeliveryUSDPerKG, p.TotalCostSom, p.UpdatedAt,
		p.ID,
	)
	if err != nil {
		return fmt.Errorf("products: update %d: %w", p.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *txRepo) Delete(ctx context.Context, id int64) error {
	tag, err := r.tx.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("products: delete %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *txRepo) RecordAudit(ctx context.Context, e audit.Entry) error {
	return audit.Insert(ctx, r.tx, e)
}
