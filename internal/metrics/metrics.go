package metrics

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

type Metrics struct {
	applicationsSubmitted metric.Int64Counter
	attachmentsRejected   metric.Int64Counter
	statusChanges         metric.Int64Counter
	applicationsDeleted   metric.Int64Counter
}

func New(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}

	var err error

	m.applicationsSubmitted, err = meter.Int64Counter(
		"admissions.applications.submitted",
		metric.WithDescription("Total number of applications submitted"),
		metric.WithUnit("{application}"),
	)
	if err != nil {
		return nil, err
	}

	m.attachmentsRejected, err = meter.Int64Counter(
		"admissions.attachments.rejected",
		metric.WithDescription("Total number of uploaded attachments rejected by validation"),
		metric.WithUnit("{file}"),
	)
	if err != nil {
		return nil, err
	}

	m.statusChanges, err = meter.Int64Counter(
		"admissions.applications.status_changed",
		metric.WithDescription("Total number of application status changes"),
		metric.WithUnit("{change}"),
	)
	if err != nil {
		return nil, err
	}

	m.applicationsDeleted, err = meter.Int64Counter(
		"admissions.applications.deleted",
		metric.WithDescription("Total number of applications deleted"),
		metric.WithUnit("{application}"),
	)
	if err != nil {
		return nil, err
	}

	return m, nil
}

func (m *Metrics) RecordApplicationSubmitted(ctx context.Context, withAttachments bool) {
	if m != nil && m.applicationsSubmitted != nil {
		m.applicationsSubmitted.Add(ctx, 1, metric.WithAttributes(
			attribute.Bool("with_attachments", withAttachments),
		))
	}
}

func (m *Metrics) RecordAttachmentRejected(ctx context.Context, field string) {
	if m != nil && m.attachmentsRejected != nil {
		m.attachmentsRejected.Add(ctx, 1, metric.WithAttributes(attribute.String("field", field)))
	}
}

func (m *Metrics) RecordStatusChange(ctx context.Context, from, to string) {
	if m != nil && m.statusChanges != nil {
		m.statusChanges.Add(ctx, 1, metric.WithAttributes(
			attribute.String("from", from),
			attribute.String("to", to),
		))
	}
}

func (m *Metrics) RecordApplicationDeleted(ctx context.Context) {
	if m != nil && m.applicationsDeleted != nil {
		m.applicationsDeleted.Add(ctx, 1)
	}
}

// NewMock creates a no-op Metrics instance for testing
// The returned Metrics will safely ignore all Record* calls
func NewMock() *Metrics {
	return &Metrics{}
}
