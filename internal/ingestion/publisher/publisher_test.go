package publisher

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/fulltext-search/internal/ingestion"
	"github.com/Adithya-Monish-Kumar-K/fulltext-search/internal/ingestion/source"
	"github.com/Adithya-Monish-Kumar-K/fulltext-search/pkg/kafka"
)

type recordingSink struct {
	batches [][]kafka.Event
	err     error
}

func (r *recordingSink) PublishBatch(_ context.Context, events []kafka.Event) error {
	if r.err != nil {
		return r.err
	}
	if len(events) > 0 {
		r.batches = append(r.batches, append([]kafka.Event(nil), events...))
	}
	return nil
}

func item(name, content string) ingestion.Item {
	return ingestion.Item{Document: ingestion.Document{Filename: name, Content: content}}
}

func TestPublish(t *testing.T) {
	sink := &recordingSink{}
	p := New(sink, 2, 0)
	src := source.NewStatic("test",
		item("a.txt", "uno"),
		item("b.txt", "due"),
		ingestion.Item{Document: ingestion.Document{Filename: "bad.txt"}, Err: errors.New("unreadable")},
		item("", "senza nome"),
		item("c.txt", "tre"),
	)

	res, err := p.Publish(context.Background(), src)
	require.NoError(t, err)
	assert.Equal(t, Result{Published: 3, Skipped: 2}, res)
	require.Len(t, sink.batches, 2)
	assert.Equal(t, []kafka.Event{
		{Key: "a.txt", Value: ingestion.Document{Filename: "a.txt", Content: "uno"}},
		{Key: "b.txt", Value: ingestion.Document{Filename: "b.txt", Content: "due"}},
	}, sink.batches[0])
	assert.Equal(t, "c.txt", sink.batches[1][0].Key)
}

func TestPublishSinkError(t *testing.T) {
	boom := errors.New("broker down")
	p := New(&recordingSink{err: boom}, 10, 0)
	_, err := p.Publish(context.Background(), source.NewStatic("test", item("a.txt", "uno")))
	assert.ErrorIs(t, err, boom)
}
