package audit

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/cargofol/cargofol/internal/platform/httpx"
)

// ListerPort exposes audit retrieval for display.
type ListerPort interface {
	List(ctx context.Context, f Filter) ([]Entry, error)
}

// Handler serves the admin audit trail listing.
type Handler struct {
	logger *slog.Logger
	lister ListerPort
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, lister ListerPort) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, lister: lister}
}

// List returns entries newest first. Query params: limit, offset.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	entries, err := h.lister.List(r.Context(), Filter{Limit: limit, Offset: offset})
	if err != nil {
		h.logger.Error("list audit entries failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if entries == nil {
		entries = []Entry{}
	}
	httpx.JSON(w, http.StatusOK, entries)
}
