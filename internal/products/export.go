package products

import (
	"encoding/csv"
	"io"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var csvPrinter = message.NewPrinter(language.English)

// WriteCSV serialises records to CSV for accounting hand-off. Money
// columns are grouped per English locale to match the spreadsheets the
// accountants reconcile against.
func WriteCSV(w io.Writer, list []Product) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()

	header := []string{
		"ID", "Product", "Supplier", "Order #", "Category",
		"Purchase Price", "Currency", "Customs Cost", "Delivery Cost",
		"Final Total Cost", "Outstanding Balance", "Total Cost (som)",
		"Payment Status", "Cargo Status", "Shipping", "Weight (kg)", "Volume (m3)",
		"Quantity", "Tracking #", "Created",
	}
	if err := writer.Write(header); err != nil {
		return err
	}
	for _, p := range list {
		record := []string{
			strconv.FormatInt(p.ID, 10),
			p.ProductName,
			p.SupplierName,
			p.OrderNumber,
			p.Category,
			formatMoney(p.PurchasePrice),
			p.Currency,
			formatMoney(p.CustomsCost),
			formatMoney(p.DeliveryCost),
			formatMoney(p.FinalTotalCost),
			formatMoney(p.OutstandingBalance),
			formatMoney(p.TotalCostSom),
			string(p.PaymentStatus),
			string(p.Status),
			string(p.ShippingMethod),
			strconv.FormatFloat(p.WeightKG, 'f', -1, 64),
			strconv.FormatFloat(p.VolumeM3, 'f', -1, 64),
			strconv.Itoa(p.Quantity),
			p.TrackingNumber,
			p.CreatedAt.UTC().Format(time.RFC3339),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func formatMoney(v float64) string {
	return csvPrinter.Sprintf("%.2f", v)
}

// ExportCSV handles GET /products/export.
func (h *Handler) ExportCSV(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.List(r.Context(), ListFilter{Limit: 500})
	if err != nil {
		h.respondError(w, "export products", err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", "attachment; filename=\"products.csv\"")
	if err := WriteCSV(w, list); err != nil {
		h.logger.Warn("write products csv", "error", err)
	}
}
