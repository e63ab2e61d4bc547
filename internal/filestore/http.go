package filestore

import (
	"errors"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"path/filepath"

	"admissions-service/common/httputil"

	"github.com/go-chi/chi/v5"
)

// Handler serves stored attachments at /uploads/{name}.
type Handler struct {
	store  Store
	logger *slog.Logger
}

func NewHandler(store Store, logger *slog.Logger) *Handler {
	return &Handler{store: store, logger: logger}
}

func (h *Handler) RegisterRoutes(router chi.Router) {
	router.Get("/uploads/{name}", h.Serve)
}

func (h *Handler) Serve(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	body, err := h.store.Open(r.Context(), Reference(name))
	if err != nil {
		if errors.Is(err, ErrNotFound) || errors.Is(err, ErrInvalidReference) {
			httputil.RespondWithError(w, http.StatusNotFound, "file not found")
			return
		}
		h.logger.ErrorContext(r.Context(), "failed to open upload", "name", name, "error", err)
		httputil.RespondWithError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	defer body.Close()

	contentType := mime.TypeByExtension(filepath.Ext(name))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(http.StatusOK)

	if _, err := io.Copy(w, body); err != nil {
		h.logger.WarnContext(r.Context(), "failed to stream upload", "name", name, "error", err)
	}
}
