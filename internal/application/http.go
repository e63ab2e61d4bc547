package application

import (
	"errors"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strconv"

	"admissions-service/common/httputil"
	"admissions-service/internal/auth"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
)

// multipartMemory is how much of a multipart body is kept in memory before
// the rest spills to temporary files.
const multipartMemory = 8 << 20

type Handler struct {
	intake      *IntakeService
	review      *ReviewService
	maxFileSize int64
	validate    *validator.Validate
	logger      *slog.Logger
}

func NewHandler(intake *IntakeService, review *ReviewService, maxFileSize int64, logger *slog.Logger) *Handler {
	return &Handler{
		intake:      intake,
		review:      review,
		maxFileSize: maxFileSize,
		validate:    validator.New(),
		logger:      logger,
	}
}

// RegisterPublicRoutes mounts the intake endpoint.
func (h *Handler) RegisterPublicRoutes(router chi.Router) {
	router.Post("/applications", h.Submit)
}

// RegisterAdminRoutes mounts the review endpoints. Callers wrap router with
// RequireAuth and RequireAdmin.
func (h *Handler) RegisterAdminRoutes(router chi.Router) {
	router.Get("/applications", h.List)
	router.Get("/applications/{id}", h.Get)
	router.Put("/applications/{id}", h.UpdateStatus)
	router.Delete("/applications/{id}", h.Delete)
}

func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	if h.maxFileSize > 0 {
		// two attachments plus headroom for the text fields
		r.Body = http.MaxBytesReader(w, r.Body, 2*h.maxFileSize+(1<<20))
	}

	if err := r.ParseMultipartForm(multipartMemory); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			httputil.RespondWithError(w, http.StatusBadRequest, "request body too large")
			return
		}
		h.logger.WarnContext(r.Context(), "failed to parse application form", "error", err)
		httputil.RespondWithError(w, http.StatusBadRequest, "invalid form data")
		return
	}
	if r.MultipartForm != nil {
		defer r.MultipartForm.RemoveAll()
	}

	req := SubmitRequest{
		Fields: FieldsFromForm(r.PostFormValue),
	}
	if claims, ok := auth.ClaimsFromContext(r.Context()); ok {
		userID := claims.UserID
		req.UserID = &userID
	}

	var err error
	if req.CV, err = formAttachment(r, FieldCV); err != nil {
		httputil.RespondWithError(w, http.StatusBadRequest, "invalid cv upload")
		return
	}
	defer closeAttachment(req.CV)

	if req.Transcript, err = formAttachment(r, FieldTranscript); err != nil {
		httputil.RespondWithError(w, http.StatusBadRequest, "invalid transcript upload")
		return
	}
	defer closeAttachment(req.Transcript)

	created, err := h.intake.Submit(r.Context(), req)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	httputil.RespondWithJSON(w, http.StatusCreated, created)
}

func formAttachment(r *http.Request, field string) (*Attachment, error) {
	if r.MultipartForm == nil {
		return nil, nil
	}
	file, header, err := r.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, nil
		}
		return nil, err
	}
	return &Attachment{
		Filename: header.Filename,
		Size:     header.Size,
		Content:  file,
	}, nil
}

func closeAttachment(a *Attachment) {
	if a == nil {
		return
	}
	if f, ok := a.Content.(multipart.File); ok {
		f.Close()
	}
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	apps, err := h.review.List(r.Context(), r.URL.Query().Get("status"))
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	httputil.RespondWithJSON(w, http.StatusOK, apps)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		httputil.RespondWithError(w, http.StatusBadRequest, "invalid application id")
		return
	}

	app, err := h.review.Get(r.Context(), id)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	httputil.RespondWithJSON(w, http.StatusOK, app)
}

// UpdateStatus only applies the status field; anything else in the body is
// ignored.
func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		httputil.RespondWithError(w, http.StatusBadRequest, "invalid application id")
		return
	}

	var req UpdateStatusRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.logger.WarnContext(r.Context(), "validation failed", "error", err)
		httputil.RespondWithError(w, http.StatusBadRequest, "status must be one of pending, approved, rejected")
		return
	}

	app, err := h.review.SetStatus(r.Context(), id, req.Status)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	httputil.RespondWithJSON(w, http.StatusOK, app)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		httputil.RespondWithError(w, http.StatusBadRequest, "invalid application id")
		return
	}

	if err := h.review.Delete(r.Context(), id); err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	httputil.RespondWithMessage(w, http.StatusOK, "application deleted successfully")
}

func (h *Handler) handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrValidation), errors.Is(err, ErrInvalidAttachment):
		h.logger.WarnContext(r.Context(), "application rejected", "error", err)
		httputil.RespondWithError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrNotFound):
		httputil.RespondWithError(w, http.StatusNotFound, "application not found")
	case errors.Is(err, ErrStorage):
		h.logger.ErrorContext(r.Context(), "failed to store application", "error", err)
		httputil.RespondWithError(w, http.StatusInternalServerError, "failed to store application")
	default:
		h.logger.ErrorContext(r.Context(), "application operation failed", "error", err)
		httputil.RespondWithError(w, http.StatusInternalServerError, "internal server error")
	}
}
