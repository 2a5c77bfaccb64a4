package consumer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/fulltext-search/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/fulltext-search/internal/indexer/analyzer"
	"github.com/Adithya-Monish-Kumar-K/fulltext-search/internal/indexer/store"
	"github.com/Adithya-Monish-Kumar-K/fulltext-search/internal/ingestion"
	"github.com/Adithya-Monish-Kumar-K/fulltext-search/internal/ingestion/source"
	"github.com/Adithya-Monish-Kumar-K/fulltext-search/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/fulltext-search/pkg/metrics"
)

type ackSource struct {
	*source.Static
	acked int
}

func (a *ackSource) Ack(context.Context) error {
	a.acked++
	return nil
}

func newConsumer(t *testing.T) (*IndexConsumer, *store.Store, *metrics.Metrics) {
	t.Helper()
	s, err := store.OpenOrCreate(t.TempDir(), analyzer.Italian)
	require.NoError(t, err)
	m := metrics.New(nil)
	b, err := indexer.NewBuilder(s, indexer.Options{Metrics: m})
	require.NoError(t, err)
	t.Cleanup(func() {
		b.Close()
		s.Close()
	})
	return New(b, m), s, m
}

func doc(name, content string) ingestion.Item {
	return ingestion.Item{Document: ingestion.Document{Filename: name, Content: content}}
}

func TestRunSkipsBadItems(t *testing.T) {
	c, s, m := newConsumer(t)
	src := &ackSource{Static: source.NewStatic("test",
		doc("a.txt", "uno"),
		ingestion.Item{Document: ingestion.Document{Filename: "broken.txt"}, Err: errors.New("not valid UTF-8")},
		doc("", "senza nome"),
		doc("b.txt", "due"),
	)}

	report, err := c.Run(context.Background(), src)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Indexed)
	assert.Equal(t, 2, report.Skipped)
	assert.Equal(t, uint64(1), report.Commit.Generation)
	assert.Equal(t, 1, src.acked)
	assert.Equal(t, 2.0, testutil.ToFloat64(m.DocsSkippedTotal))

	snap, err := s.Snapshot()
	require.NoError(t, err)
	defer snap.Release()
	assert.Equal(t, 2, snap.LiveDocs())
}

func TestRunDeletes(t *testing.T) {
	c, s, _ := newConsumer(t)
	_, err := c.Run(context.Background(), source.NewStatic("first", doc("a.txt", "uno"), doc("b.txt", "due")))
	require.NoError(t, err)

	report, err := c.Run(context.Background(), source.NewStatic("second",
		ingestion.Item{Document: ingestion.Document{Filename: "a.txt", Deleted: true}},
		ingestion.Item{Document: ingestion.Document{Filename: "missing.txt", Deleted: true}},
	))
	require.NoError(t, err)
	assert.Equal(t, 1, report.Deleted)

	snap, err := s.Snapshot()
	require.NoError(t, err)
	defer snap.Release()
	assert.Equal(t, 1, snap.LiveDocs())
	_, ok := snap.KeyID("a.txt")
	assert.False(t, ok)
}

func TestRunCancelledDoesNotCommit(t *testing.T) {
	c, s, _ := newConsumer(t)
	ctx, cancel := context.WithCancel(context.Background())
	src := &ackSource{Static: source.NewStatic("test", doc("a.txt", "uno"))}
	cancel()

	_, err := c.Run(ctx, src)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, src.acked)

	snap, err := s.Snapshot()
	require.NoError(t, err)
	defer snap.Release()
	assert.Zero(t, snap.Generation())
}

func TestRunLogsWithSession(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })
	var buf bytes.Buffer
	logger.SetupWriter(&buf, "info", "json")

	c, _, _ := newConsumer(t)
	ctx := logger.WithSession(context.Background(), "sess-1")
	src := source.NewStatic("test",
		doc("a.txt", "uno"),
		ingestion.Item{Document: ingestion.Document{Filename: "broken.txt"}, Err: errors.New("not valid UTF-8")},
	)
	_, err := c.Run(ctx, src)
	require.NoError(t, err)

	var consumerLines int
	dec := json.NewDecoder(&buf)
	for dec.More() {
		var line map[string]any
		require.NoError(t, dec.Decode(&line))
		if line["component"] != "index-consumer" {
			continue
		}
		consumerLines++
		assert.Equal(t, "sess-1", line["session"], line["msg"])
	}
	assert.GreaterOrEqual(t, consumerLines, 2, "skip warning and run summary")
}
