package products

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/cargofol/cargofol/internal/audit"
	"github.com/cargofol/cargofol/internal/costing"
	"github.com/cargofol/cargofol/internal/platform/httpx"
	"github.com/cargofol/cargofol/internal/settings"
	"github.com/cargofol/cargofol/internal/shared"
)

// AuditListerPort reads the per-product audit trail.
type AuditListerPort interface {
	List(ctx context.Context, f audit.Filter) ([]audit.Entry, error)
}

// Handler wires product HTTP endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	auditLog  AuditListerPort
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, auditLog AuditListerPort) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, auditLog: auditLog, validator: validator.New()}
}

// Create handles POST /products.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var input CreateInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(input); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: %s", httpx.ErrValidation, err))
		return
	}

	actor, _ := shared.ActorFromContext(r.Context())
	created, err := h.service.Create(r.Context(), actor.ID, input)
	if err != nil {
		h.respondError(w, "create product", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, created)
}

// List handles GET /products.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	list, err := h.service.List(r.Context(), ListFilter{Limit: limit, Offset: offset})
	if err != nil {
		h.respondError(w, "list products", err)
		return
	}
	if list == nil {
		list = []Product{}
	}
	httpx.JSON(w, http.StatusOK, list)
}

// Get handles GET /products/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}
	p, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.respondError(w, "get product", err)
		return
	}
	httpx.JSON(w, http.StatusOK, p)
}

// Update handles PATCH /products/{id}.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}
	var patch Patch
	if err := httpx.DecodeJSON(r, &patch); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}

	actor, _ := shared.ActorFromContext(r.Context())
	updated, err := h.service.Update(r.Context(), actor.ID, id, patch)
	if err != nil {
		h.respondError(w, "update product", err)
		return
	}
	httpx.JSON(w, http.StatusOK, updated)
}

// Delete handles DELETE /products/{id}.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}
	actor, _ := shared.ActorFromContext(r.Context())
	if err := h.service.Delete(r.Context(), actor.ID, id); err != nil {
		h.respondError(w, "delete product", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Audit handles GET /products/{id}/audit, newest first.
func (h *Handler) Audit(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}
	entries, err := h.auditLog.List(r.Context(), audit.Filter{ProductID: &id})
	if err != nil {
		h.respondError(w, "list product audit", err)
		return
	}
	if entries == nil {
		entries = []audit.Entry{}
	}
	httpx.JSON(w, http.StatusOK, entries)
}

type previewRequest struct {
	WeightKG         float64 `json:"weight_kg"`
	VolumeM3         float64 `json:"volume_m3"`
	PurchasePrice    float64 `json:"purchase_price"`
	MarginPercent    float64 `json:"margin_percent"`
	PriceCNY         float64 `json:"price_cny"`
	DeliveryUSDPerKG float64 `json:"delivery_usd_per_kg"`
}

type previewResponse struct {
	costing.Derived
	TotalCostSom float64 `json:"total_cost_som"`
}

// Preview handles POST /products/preview: a pure calculation against the
// current rates, nothing persisted.
func (h *Handler) Preview(w http.ResponseWriter, r *http.Request) {
	var req previewRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	derived, som, err := h.service.Preview(r.Context(),
		costing.Inputs{
			WeightKG:      req.WeightKG,
			VolumeM3:      req.VolumeM3,
			PurchasePrice: req.PurchasePrice,
			MarginPercent: req.MarginPercent,
		},
		costing.LocalInputs{
			PriceCNY:         req.PriceCNY,
			DeliveryUSDPerKG: req.DeliveryUSDPerKG,
			WeightKG:         req.WeightKG,
		})
	if err != nil {
		h.respondError(w, "preview costs", err)
		return
	}
	httpx.JSON(w, http.StatusOK, previewResponse{Derived: derived, TotalCostSom: som})
}

func (h *Handler) parseID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid product id")
		return 0, false
	}
	return id, true
}

func (h *Handler) respondError(w http.ResponseWriter, op string, err error) {
	var cfgErr *settings.ConfigError
	switch {
	case errors.As(err, &cfgErr):
		h.logger.Error(op+" aborted on malformed settings", slog.String("key", cfgErr.Key))
		httpx.Problem(w, http.StatusInternalServerError, "Configuration Error", cfgErr.Error())
	case errors.Is(err, ErrInvalidEnum):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, shared.ErrAuditFailed):
		h.logger.Error(op+" rolled back on audit failure", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Audit Write Failed", "mutation rolled back: audit trail could not be written")
	case errors.Is(err, shared.ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", "product not found")
	default:
		h.logger.Error(op+" failed", slog.Any("error", err))
		httpx.RespondError(w, err)
	}
}
