package upload

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/cargofol/cargofol/internal/platform/httpx"
)

// maxUploadBytes caps a single media file at 32 MiB.
const maxUploadBytes = 32 << 20

// Handler exposes the signed media upload endpoint.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

func NewHandler(logger *slog.Logger, service *Service) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service}
}

// Media accepts one multipart file under "file" and returns the stored
// asset metadata.
func (h *Handler) Media(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "expected multipart form with a file field")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "missing file field")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "could not read uploaded file")
		return
	}

	result, err := h.service.Upload(r.Context(), header.Filename, header.Header.Get("Content-Type"), data)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotConfigured):
			httpx.Problem(w, http.StatusServiceUnavailable, "Service Unavailable", err.Error())
		case errors.Is(err, ErrEmptyFile):
			httpx.Problem(w, http.StatusBadRequest, "Bad Request", err.Error())
		case errors.Is(err, ErrGateway):
			h.logger.Error("media upload rejected upstream", slog.Any("error", err))
			httpx.Problem(w, http.StatusBadGateway, "Bad Gateway", "media upload failed upstream")
		default:
			h.logger.Error("media upload failed", slog.Any("error", err))
			httpx.RespondError(w, err)
		}
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}
