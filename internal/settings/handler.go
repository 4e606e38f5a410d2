package settings

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/cargofol/cargofol/internal/platform/httpx"
	"github.com/cargofol/cargofol/internal/shared"
)

// Handler wires the administrative settings endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// List returns every stored rate.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.List(r.Context())
	if err != nil {
		h.respondError(w, "list settings", err)
		return
	}
	if list == nil {
		list = []Setting{}
	}
	httpx.JSON(w, http.StatusOK, list)
}

// Update upserts one rate.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	var input UpdateInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(input); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: %s", httpx.ErrValidation, err))
		return
	}

	actor, _ := shared.ActorFromContext(r.Context())
	updated, err := h.service.Update(r.Context(), actor.ID, input)
	if err != nil {
		if errors.Is(err, shared.ErrAuditFailed) {
			// The rate change is durable but its audit entry is not.
			h.logger.Warn("settings updated without audit entry", slog.String("key", input.Key), slog.Any("error", err))
			httpx.JSON(w, http.StatusOK, map[string]any{"setting": updated, "warning": shared.ErrAuditFailed.Error()})
			return
		}
		h.respondError(w, "update setting", err)
		return
	}
	httpx.JSON(w, http.StatusOK, updated)
}

func (h *Handler) respondError(w http.ResponseWriter, op string, err error) {
	var cfgErr *ConfigError
	if errors.As(err, &cfgErr) {
		httpx.Problem(w, http.StatusInternalServerError, "Configuration Error", cfgErr.Error())
		return
	}
	h.logger.Error(op+" failed", slog.Any("error", err))
	httpx.RespondError(w, err)
}
