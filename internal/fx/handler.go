package fx

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"

	"github.com/cargofol/cargofol/internal/platform/httpx"
	"github.com/cargofol/cargofol/internal/shared"
)

// Handler wires the exchange-rate endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

func NewHandler(logger *slog.Logger, service *Service) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// List returns the recent observation history, newest first.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	rates, err := h.service.List(r.Context(), limit)
	if err != nil {
		h.logger.Error("list exchange rates failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if rates == nil {
		rates = []Rate{}
	}
	httpx.JSON(w, http.StatusOK, rates)
}

// Record stores one observation for today.
func (h *Handler) Record(w http.ResponseWriter, r *http.Request) {
	var input RecordInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(input); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: %s", httpx.ErrValidation, err))
		return
	}

	rate, err := h.service.Record(r.Context(), input)
	if err != nil {
		switch {
		case errors.Is(err, ErrDuplicateRate):
			httpx.Problem(w, http.StatusConflict, "Conflict", err.Error())
		case errors.Is(err, ErrInvalidRate):
			httpx.Problem(w, http.StatusBadRequest, "Bad Request", err.Error())
		default:
			h.logger.Error("record exchange rate failed", slog.Any("error", err))
			httpx.RespondError(w, err)
		}
		return
	}
	httpx.JSON(w, http.StatusCreated, rate)
}

// Sync pushes the latest observations into the rate settings.
func (h *Handler) Sync(w http.ResponseWriter, r *http.Request) {
	actor, _ := shared.ActorFromContext(r.Context())
	if err := h.service.SyncSettings(r.Context(), actor.ID); err != nil {
		h.logger.Error("sync exchange rates failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "synced"})
}
