package application

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"admissions-service/internal/metrics"
)

// ReviewService backs the admin-only application endpoints.
type ReviewService struct {
	repo    Repository
	events  EventPublisher
	metrics *metrics.Metrics
	logger  *slog.Logger
	now     func() time.Time
}

func NewReviewService(repo Repository, events EventPublisher, m *metrics.Metrics, logger *slog.Logger) *ReviewService {
	return &ReviewService{
		repo:    repo,
		events:  events,
		metrics: m,
		logger:  logger,
		now:     time.Now,
	}
}

// List accepts "", "all" or one of the statuses.
func (s *ReviewService) List(ctx context.Context, filter string) ([]Application, error) {
	var status Status
	switch filter {
	case "", "all":
	default:
		status = Status(filter)
		if !status.Valid() {
			return nil, fmt.Errorf("%w: unknown status filter %q", ErrValidation, filter)
		}
	}
	return s.repo.List(ctx, status)
}

func (s *ReviewService) Get(ctx context.Context, id int) (*Application, error) {
	return s.repo.GetByID(ctx, id)
}

// SetStatus overwrites the status only. Setting the current status again is a
// no-op that still returns the application.
func (s *ReviewService) SetStatus(ctx context.Context, id int, status Status) (*Application, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrValidation, status)
	}

	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	updated, err := s.repo.UpdateStatus(ctx, id, status)
	if err != nil {
		return nil, err
	}

	if current.Status != updated.Status {
		s.logger.InfoContext(ctx, "application status changed",
			"application_id", id,
			"from", current.Status,
			"to", updated.Status,
		)
		s.metrics.RecordStatusChange(ctx, string(current.Status), string(updated.Status))

		event := newEvent(EventStatusChanged, updated, s.now())
		event.PreviousStatus = current.Status
		publish(ctx, s.events, s.logger, event)
	}

	return updated, nil
}

// Delete removes the record only. Attachment files stay in the file store.
func (s *ReviewService) Delete(ctx context.Context, id int) error {
	app, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "application deleted", "application_id", id)
	s.metrics.RecordApplicationDeleted(ctx)
	publish(ctx, s.events, s.logger, newEvent(EventDeleted, app, s.now()))
	return nil
}
