package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"admissions-service/common/metrics"

	"github.com/IBM/sarama"
)

// Producer publishes application events to a single Kafka topic, keyed by
// event type.
type Producer struct {
	producer sarama.SyncProducer
	topic    string
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

func NewProducer(brokers []string, topic string, m *metrics.Metrics, logger *slog.Logger) (*Producer, error) {
	config := sarama.NewConfig()
	config.ClientID = "admissions-service"
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = 5
	config.Producer.Return.Successes = true

	producer, err := sarama.NewSyncProducer(brokers, config)
	if err != nil {
		return nil, fmt.Errorf("create kafka producer: %w", err)
	}

	logger.Info("kafka producer initialized", "brokers", brokers, "topic", topic)

	return NewProducerWithSyncProducer(producer, topic, m, logger), nil
}

func NewProducerWithSyncProducer(producer sarama.SyncProducer, topic string, m *metrics.Metrics, logger *slog.Logger) *Producer {
	return &Producer{
		producer: producer,
		topic:    topic,
		metrics:  m,
		logger:   logger,
	}
}

func (p *Producer) Publish(ctx context.Context, eventType string, payload any) error {
	start := time.Now()

	valueBytes, err := json.Marshal(payload)
	if err != nil {
		p.logger.ErrorContext(ctx, "failed to marshal message", "error", err)
		return err
	}

	msg := &sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(eventType),
		Value: sarama.ByteEncoder(valueBytes),
		Headers: []sarama.RecordHeader{
			{Key: []byte("event_type"), Value: []byte(eventType)},
		},
	}

	partition, offset, err := p.producer.SendMessage(msg)
	p.metrics.Messaging.RecordPublish(ctx, "kafka", p.topic, time.Since(start), err)
	if err != nil {
		p.logger.ErrorContext(ctx, "failed to send message to kafka", "topic", p.topic, "error", err)
		return err
	}

	p.logger.DebugContext(ctx, "message sent to kafka",
		"topic", p.topic,
		"partition", partition,
		"offset", offset,
		"key", eventType,
	)
	return nil
}

func (p *Producer) Close() error {
	return p.producer.Close()
}
