// Package source implements the ingestion sources the indexer reads from: a
// documents directory, a Kafka topic, a PostgreSQL query and in-memory
// batches.
package source

import (
	"context"

	"github.com/Adithya-Monish-Kumar-K/fulltext-search/internal/ingestion"
)

// Static replays a fixed list of items. The watcher builds one per batch of
// file events.
type Static struct {
	name  string
	items []ingestion.Item
}

func NewStatic(name string, items ...ingestion.Item) *Static {
	return &Static{name: name, items: items}
}

func (s *Static) Name() string {
	return s.name
}

func (s *Static) Len() int {
	return len(s.items)
}

func (s *Static) Each(ctx context.Context, fn func(ingestion.Item) error) error {
	for _, item := range s.items {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(item); err != nil {
			return err
		}
	}
	return nil
}
