package repository

import (
	"context"

	"LTPCoach/internal/domain/models"
	domrepo "LTPCoach/internal/domain/repository"
	pkgkafka "LTPCoach/pkg/kafka"
)

// KafkaEventSink implements EventSink on Kafka. Events are keyed by symbol
// so per-symbol ordering survives partitioning.
type KafkaEventSink struct {
	producer *pkgkafka.Producer
	topic    string
}

func NewKafkaEventSink(producer *pkgkafka.Producer, topic string) *KafkaEventSink {
	if topic == "" {
		topic = "ltpcoach.setup_events"
	}
	return &KafkaEventSink{producer: producer, topic: topic}
}

func (s *KafkaEventSink) Publish(ctx context.Context, ev models.StreamEvent) error {
	return s.producer.Publish(ctx, s.topic, []byte(ev.Symbol), ev)
}

func (s *KafkaEventSink) Close() error {
	if s.producer != nil {
		return s.producer.Close()
	}
	return nil
}

var _ domrepo.EventSink = (*KafkaEventSink)(nil)
