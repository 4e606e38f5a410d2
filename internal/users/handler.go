package users

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/cargofol/cargofol/internal/platform/httpx"
)

// ListerPort abstracts account listing.
type ListerPort interface {
	List(ctx context.Context) ([]User, error)
}

// Handler serves the admin user listing.
type Handler struct {
	logger *slog.Logger
	repo   ListerPort
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, repo ListerPort) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, repo: repo}
}

// List handles GET /users.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.repo.List(r.Context())
	if err != nil {
		h.logger.Error("list users failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if list == nil {
		list = []User{}
	}
	httpx.JSON(w, http.StatusOK, list)
}
