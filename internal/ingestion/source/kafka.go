package source

import (
	"context"
	"time"

	"github.com/Adithya-Monish-Kumar-K/fulltext-search/internal/ingestion"
	"github.com/Adithya-Monish-Kumar-K/fulltext-search/pkg/kafka"
)

// Drainer is the part of *kafka.Consumer the source needs.
type Drainer interface {
	Drain(ctx context.Context, idle time.Duration, handler kafka.MessageHandler) error
	Commit(ctx context.Context) error
}

// Kafka reads JSON documents from a topic until it stays idle. Offsets are
// committed by Ack, after the index commit.
type Kafka struct {
	consumer Drainer
	idle     time.Duration
}

func NewKafka(consumer Drainer, idle time.Duration) *Kafka {
	if idle <= 0 {
		idle = 5 * time.Second
	}
	return &Kafka{consumer: consumer, idle: idle}
}

func (k *Kafka) Name() string {
	return "kafka"
}

// Each decodes every message into a document. Messages that do not decode
// are reported as item errors keyed by the message key.
func (k *Kafka) Each(ctx context.Context, fn func(ingestion.Item) error) error {
	return k.consumer.Drain(ctx, k.idle, func(ctx context.Context, key, value []byte) error {
		doc, err := kafka.DecodeJSON[ingestion.Document](value)
		if err != nil {
			return fn(ingestion.Item{Document: ingestion.Document{Filename: string(key)}, Err: err})
		}
		if doc.Filename == "" {
			doc.Filename = string(key)
		}
		return fn(ingestion.Item{Document: doc})
	})
}

func (k *Kafka) Ack(ctx context.Context) error {
	return k.consumer.Commit(ctx)
}
