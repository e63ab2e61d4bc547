package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"admissions-service/common/metrics"

	"github.com/nats-io/nats.go"
)

// Producer publishes application events to NATS. Each event type gets its
// own subject: <prefix>.<event type>.
type Producer struct {
	conn    *nats.Conn
	prefix  string
	metrics *metrics.Metrics
	logger  *slog.Logger
}

func NewProducer(url, subjectPrefix string, m *metrics.Metrics, logger *slog.Logger) (*Producer, error) {
	nc, err := nats.Connect(url,
		nats.Name("admissions-service"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}

	logger.Info("NATS producer initialized", "url", url, "subject_prefix", subjectPrefix)

	return NewProducerWithConn(nc, subjectPrefix, m, logger), nil
}

func NewProducerWithConn(conn *nats.Conn, subjectPrefix string, m *metrics.Metrics, logger *slog.Logger) *Producer {
	return &Producer{
		conn:    conn,
		prefix:  subjectPrefix,
		metrics: m,
		logger:  logger,
	}
}

func (p *Producer) Subject(eventType string) string {
	if p.prefix == "" {
		return eventType
	}
	return p.prefix + "." + eventType
}

func (p *Producer) Publish(ctx context.Context, eventType string, payload any) error {
	subject := p.Subject(eventType)
	start := time.Now()

	data, err := json.Marshal(payload)
	if err != nil {
		p.logger.ErrorContext(ctx, "failed to marshal message", "error", err)
		return err
	}

	err = p.conn.Publish(subject, data)
	p.metrics.Messaging.RecordPublish(ctx, "nats", subject, time.Since(start), err)
	if err != nil {
		p.logger.ErrorContext(ctx, "failed to send message to NATS", "subject", subject, "error", err)
		return err
	}

	p.logger.DebugContext(ctx, "message sent to NATS", "subject", subject)
	return nil
}

// Ping reports whether the connection is usable.
func (p *Producer) Ping(ctx context.Context) error {
	if !p.conn.IsConnected() {
		return fmt.Errorf("nats connection status: %s", p.conn.Status())
	}
	return nil
}

func (p *Producer) Close() error {
	if err := p.conn.Drain(); err != nil {
		p.conn.Close()
		return err
	}
	return nil
}
