// Package publisher forwards documents from any ingestion source to the
// Kafka ingest topic, so that a later build-index with the kafka source can
// consume them. Events are keyed by filename to keep the updates of one
// document in order.
package publisher

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Adithya-Monish-Kumar-K/fulltext-search/internal/ingestion"
	"github.com/Adithya-Monish-Kumar-K/fulltext-search/internal/ingestion/validator"
	"github.com/Adithya-Monish-Kumar-K/fulltext-search/pkg/kafka"
)

const defaultBatchSize = 100

// EventSink is satisfied by *kafka.Producer.
type EventSink interface {
	PublishBatch(ctx context.Context, events []kafka.Event) error
}

// Result counts what one Publish call did.
type Result struct {
	Published int
	Skipped   int
}

type Publisher struct {
	sink           EventSink
	batchSize      int
	maxContentSize int
	logger         *slog.Logger
}

func New(sink EventSink, batchSize, maxContentSize int) *Publisher {
	if batchSize < 1 {
		batchSize = defaultBatchSize
	}
	return &Publisher{
		sink:           sink,
		batchSize:      batchSize,
		maxContentSize: maxContentSize,
		logger:         slog.Default().With("component", "publisher"),
	}
}

// Publish reads src to the end and publishes every valid document. Items
// that fail to read or validate are skipped and counted.
func (p *Publisher) Publish(ctx context.Context, src ingestion.Source) (Result, error) {
	var res Result
	batch := make([]kafka.Event, 0, p.batchSize)
	flush := func() error {
		if err := p.sink.PublishBatch(ctx, batch); err != nil {
			return fmt.Errorf("publishing %d documents: %w", len(batch), err)
		}
		res.Published += len(batch)
		batch = batch[:0]
		return nil
	}
	err := src.Each(ctx, func(item ingestion.Item) error {
		if item.Err == nil {
			item.Err = validator.ValidateDocument(item.Document, p.maxContentSize)
		}
		if item.Err != nil {
			res.Skipped++
			p.logger.Warn("skipping document", "filename", item.Filename, "error", item.Err)
			return nil
		}
		batch = append(batch, kafka.Event{Key: item.Filename, Value: item.Document})
		if len(batch) == p.batchSize {
			return flush()
		}
		return nil
	})
	if err != nil {
		return res, err
	}
	if err := flush(); err != nil {
		return res, err
	}
	p.logger.Info("documents published", "source", src.Name(), "published", res.Published, "skipped", res.Skipped)
	return res, nil
}
