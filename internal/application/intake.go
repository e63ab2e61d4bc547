package application

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"admissions-service/internal/filestore"
	"admissions-service/internal/metrics"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-playground/validator/v10"
)

const (
	FieldCV         = "cv"
	FieldTranscript = "transcript"
)

// allowedTypes maps an accepted extension to the detected content types that
// may back it. Parents in the mimetype tree count as a match.
var allowedTypes = map[string][]string{
	".jpeg": {"image/jpeg"},
	".jpg":  {"image/jpeg"},
	".png":  {"image/png"},
	".gif":  {"image/gif"},
	".pdf":  {"application/pdf"},
	".doc":  {"application/msword", "application/x-ole-storage"},
	".docx": {"application/vnd.openxmlformats-officedocument.wordprocessingml.document", "application/zip"},
}

// Attachment is an uploaded file. Size is what the client declared; the
// content length is measured again before storing.
type Attachment struct {
	Filename string
	Size     int64
	Content  io.ReadSeeker
}

type SubmitRequest struct {
	Fields     Fields
	UserID     *int
	CV         *Attachment
	Transcript *Attachment
}

type IntakeService struct {
	repo        Repository
	files       filestore.Store
	events      EventPublisher
	metrics     *metrics.Metrics
	maxFileSize int64
	validate    *validator.Validate
	logger      *slog.Logger
	now         func() time.Time
}

func NewIntakeService(
	repo Repository,
	files filestore.Store,
	events EventPublisher,
	m *metrics.Metrics,
	maxFileSize int64,
	logger *slog.Logger,
) *IntakeService {
	validate := validator.New()
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		return name
	})

	return &IntakeService{
		repo:        repo,
		files:       files,
		events:      events,
		metrics:     m,
		maxFileSize: maxFileSize,
		validate:    validate,
		logger:      logger,
		now:         time.Now,
	}
}

type namedAttachment struct {
	field string
	*Attachment
}

// Submit validates and stores a new application. Either every file and the
// record are persisted, or nothing is.
func (s *IntakeService) Submit(ctx context.Context, req SubmitRequest) (*Application, error) {
	fields := req.Fields.trimmed()
	if err := s.validateFields(fields); err != nil {
		return nil, err
	}

	var attachments []namedAttachment
	if req.CV != nil {
		attachments = append(attachments, namedAttachment{FieldCV, req.CV})
	}
	if req.Transcript != nil {
		attachments = append(attachments, namedAttachment{FieldTranscript, req.Transcript})
	}

	for _, a := range attachments {
		if err := s.checkAttachment(a); err != nil {
			s.metrics.RecordAttachmentRejected(ctx, a.field)
			return nil, err
		}
	}

	app := fields.toApplication()
	app.UserID = req.UserID
	app.Status = StatusPending
	app.CreatedAt = s.now().UTC()

	var saved []string
	for _, a := range attachments {
		ref, err := s.files.Save(ctx, a.field, a.Filename, a.Content)
		if err != nil {
			s.rollback(ctx, saved)
			return nil, fmt.Errorf("%w: save %s: %v", ErrStorage, a.field, err)
		}
		saved = append(saved, ref)

		switch a.field {
		case FieldCV:
			app.CvPath = &ref
		case FieldTranscript:
			app.TranscriptPath = &ref
		}
	}

	created, err := s.repo.Create(ctx, app)
	if err != nil {
		s.rollback(ctx, saved)
		return nil, fmt.Errorf("%w: create application: %v", ErrStorage, err)
	}

	s.logger.InfoContext(ctx, "application submitted",
		"application_id", created.ID,
		"university", created.University,
		"attachments", len(saved),
	)
	s.metrics.RecordApplicationSubmitted(ctx, len(saved) > 0)
	publish(ctx, s.events, s.logger, newEvent(EventSubmitted, created, s.now()))

	return created, nil
}

func (s *IntakeService) validateFields(fields Fields) error {
	err := s.validate.Struct(fields)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}

	var missing, invalid []string
	for _, fe := range verrs {
		if fe.Tag() == "required" {
			missing = append(missing, fe.Field())
		} else {
			invalid = append(invalid, fe.Field())
		}
	}

	var parts []string
	if len(missing) > 0 {
		parts = append(parts, "missing required fields: "+strings.Join(missing, ", "))
	}
	if len(invalid) > 0 {
		parts = append(parts, "invalid fields: "+strings.Join(invalid, ", "))
	}
	return fmt.Errorf("%w: %s", ErrValidation, strings.Join(parts, "; "))
}

func (s *IntakeService) checkAttachment(a namedAttachment) error {
	if a.Content == nil {
		return fmt.Errorf("%w: %s has no content", ErrInvalidAttachment, a.field)
	}
	size, err := a.Content.Seek(0, io.SeekEnd)
	if err != nil {
		return fmt.Errorf("%w: %s could not be read: %v", ErrInvalidAttachment, a.field, err)
	}
	if _, err := a.Content.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("%w: rewind %s: %v", ErrStorage, a.field, err)
	}
	// A declared Size can raise the measured length but never lower it.
	if size < a.Size {
		size = a.Size
	}
	if s.maxFileSize > 0 && size > s.maxFileSize {
		return fmt.Errorf("%w: %s exceeds %d bytes", ErrInvalidAttachment, a.field, s.maxFileSize)
	}

	ext := strings.ToLower(filepath.Ext(a.Filename))
	accepted, ok := allowedTypes[ext]
	if !ok {
		return fmt.Errorf("%w: %s has unsupported file type %q", ErrInvalidAttachment, a.field, ext)
	}

	detected, err := mimetype.DetectReader(a.Content)
	if err != nil {
		return fmt.Errorf("%w: %s could not be read: %v", ErrInvalidAttachment, a.field, err)
	}
	if _, err := a.Content.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("%w: rewind %s: %v", ErrStorage, a.field, err)
	}

	for m := detected; m != nil; m = m.Parent() {
		for _, want := range accepted {
			if m.Is(want) {
				return nil
			}
		}
	}
	return fmt.Errorf("%w: %s content (%s) does not match extension %q",
		ErrInvalidAttachment, a.field, detected.String(), ext)
}

// rollback removes files saved by a failed submission. It runs detached from
// the request context so a cancelled request still cleans up.
func (s *IntakeService) rollback(ctx context.Context, refs []string) {
	cleanupCtx := context.WithoutCancel(ctx)
	for _, ref := range refs {
		if err := s.files.Remove(cleanupCtx, ref); err != nil {
			s.logger.ErrorContext(ctx, "failed to remove attachment after aborted submission",
				"ref", ref,
				"error", err,
			)
		}
	}
}
