// Package consumer drives the indexing pipeline: it drains an ingestion
// source into a Builder, skips documents that cannot be ingested, commits
// the session and acknowledges the source.
package consumer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Adithya-Monish-Kumar-K/fulltext-search/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/fulltext-search/internal/indexer/store"
	"github.com/Adithya-Monish-Kumar-K/fulltext-search/internal/ingestion"
	apperrors "github.com/Adithya-Monish-Kumar-K/fulltext-search/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/fulltext-search/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/fulltext-search/pkg/metrics"
)

// Report summarises one indexing run.
type Report struct {
	Indexed int
	Deleted int
	Skipped int
	Commit  store.CommitInfo
}

// IndexConsumer feeds source items into a Builder.
type IndexConsumer struct {
	builder *indexer.Builder
	metrics *metrics.Metrics
}

// New creates an IndexConsumer writing through b. m may be nil.
func New(b *indexer.Builder, m *metrics.Metrics) *IndexConsumer {
	return &IndexConsumer{
		builder: b,
		metrics: m,
	}
}

// Run drains src, commits, and acknowledges src once the commit is durable.
// When ctx is cancelled the run stops after the current document and
// nothing is committed.
func (c *IndexConsumer) Run(ctx context.Context, src ingestion.Source) (Report, error) {
	report, err := c.Drain(ctx, src)
	if err != nil {
		return report, err
	}
	info, err := c.builder.Commit(ctx)
	if err != nil {
		return report, err
	}
	report.Commit = info
	if ack, ok := src.(ingestion.Acknowledger); ok {
		if err := ack.Ack(ctx); err != nil {
			return report, fmt.Errorf("acknowledging %s source: %w", src.Name(), err)
		}
	}
	c.log(ctx).Info("indexing run complete",
		"source", src.Name(),
		"indexed", report.Indexed,
		"deleted", report.Deleted,
		"skipped", report.Skipped,
		"generation", info.Generation,
	)
	return report, nil
}

// Drain applies every item of src to the builder without committing.
// Ingestion errors are logged and counted; store errors abort the drain.
func (c *IndexConsumer) Drain(ctx context.Context, src ingestion.Source) (Report, error) {
	var report Report
	log := c.log(ctx).With("source", src.Name())
	err := src.Each(ctx, func(item ingestion.Item) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if item.Err != nil {
			report.Skipped++
			c.metrics.DocSkipped()
			log.Warn("skipping document", "filename", item.Filename, "error", item.Err)
			return nil
		}
		if item.Deleted {
			removed, err := c.builder.Delete(item.Filename)
			if err != nil {
				return fmt.Errorf("deleting %s: %w", item.Filename, err)
			}
			if removed {
				report.Deleted++
			}
			return nil
		}
		if err := c.builder.Upsert(item.Document); err != nil {
			if errors.Is(err, apperrors.ErrInvalidDocument) {
				report.Skipped++
				c.metrics.DocSkipped()
				log.Warn("skipping document", "filename", item.Filename, "error", err)
				return nil
			}
			return fmt.Errorf("indexing %s: %w", item.Filename, err)
		}
		report.Indexed++
		return nil
	})
	if err != nil {
		return report, err
	}
	if err := ctx.Err(); err != nil {
		return report, err
	}
	return report, nil
}

// log returns the session logger of ctx tagged with this component.
func (c *IndexConsumer) log(ctx context.Context) *slog.Logger {
	return logger.FromContext(ctx).With("component", "index-consumer")
}
