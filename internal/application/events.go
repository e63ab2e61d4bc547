package application

import (
	"context"
	"log/slog"
	"time"
)

const (
	EventSubmitted     = "application.submitted"
	EventStatusChanged = "application.status_changed"
	EventDeleted       = "application.deleted"
)

// Event is the payload published to the configured broker.
type Event struct {
	Type           string    `json:"type"`
	ApplicationID  int       `json:"applicationId"`
	UserID         *int      `json:"userId,omitempty"`
	University     string    `json:"university,omitempty"`
	Program        string    `json:"program,omitempty"`
	Status         Status    `json:"status,omitempty"`
	PreviousStatus Status    `json:"previousStatus,omitempty"`
	OccurredAt     time.Time `json:"occurredAt"`
}

type EventPublisher interface {
	Publish(ctx context.Context, eventType string, payload any) error
}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, string, any) error { return nil }

// NopPublisher discards events. Used when no broker is configured.
func NopPublisher() EventPublisher {
	return nopPublisher{}
}

func newEvent(eventType string, app *Application, now time.Time) Event {
	return Event{
		Type:          eventType,
		ApplicationID: app.ID,
		UserID:        app.UserID,
		University:    app.University,
		Program:       app.Program,
		Status:        app.Status,
		OccurredAt:    now.UTC(),
	}
}

// publish never fails the caller; a lost event is only logged.
func publish(ctx context.Context, events EventPublisher, logger *slog.Logger, event Event) {
	if events == nil {
		return
	}
	if err := events.Publish(ctx, event.Type, event); err != nil {
		logger.WarnContext(ctx, "failed to publish application event",
			"event", event.Type,
			"application_id", event.ApplicationID,
			"error", err,
		)
	}
}
