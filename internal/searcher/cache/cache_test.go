package cache

import (
	"context"
	"errors"
	"path"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/fulltext-search/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/fulltext-search/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/fulltext-search/internal/searcher/ranker"
	"github.com/Adithya-Monish-Kumar-K/fulltext-search/pkg/metrics"
	pkgredis "github.com/Adithya-Monish-Kumar-K/fulltext-search/pkg/redis"
)

type memoryBackend struct {
	mu   sync.Mutex
	data map[string][]byte
	err  error
}

func newMemoryBackend() *memoryBackend {
	return &memoryBackend{data: make(map[string][]byte)}
}

func (b *memoryBackend) Get(_ context.Context, key string) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.err != nil {
		return nil, b.err
	}
	v, ok := b.data[key]
	if !ok {
		return nil, pkgredis.Nil
	}
	return v, nil
}

func (b *memoryBackend) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.err != nil {
		return b.err
	}
	b.data[key] = value
	return nil
}

func (b *memoryBackend) FlushByPattern(_ context.Context, pattern string) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	var n int64
	for k := range b.data {
		if ok, _ := path.Match(pattern, k); ok {
			delete(b.data, k)
			n++
		}
	}
	return n, nil
}

func mustParse(t *testing.T, q string) *parser.QueryPlan {
	t.Helper()
	plan, err := parser.Parse(q)
	require.NoError(t, err)
	return plan
}

func TestKey(t *testing.T) {
	a := mustParse(t, "content caffè latte")
	b := mustParse(t, "CONTENT latte caffè")
	phrase := mustParse(t, `content "caffè latte"`)

	assert.Equal(t, Key(1, a, 10), Key(1, b, 10), "bare term order does not matter")
	assert.NotEqual(t, Key(1, a, 10), Key(2, a, 10), "generation is part of the key")
	assert.NotEqual(t, Key(1, a, 10), Key(1, a, 5))
	assert.NotEqual(t, Key(1, a, 10), Key(1, phrase, 10))
	assert.Regexp(t, `^search:[0-9a-f]{16}$`, Key(1, a, 10))
}

func TestGetOrCompute(t *testing.T) {
	m := metrics.New(nil)
	c := New(newMemoryBackend(), time.Minute, m)
	key := Key(1, mustParse(t, "content latte"), 10)
	want := &executor.SearchResult{
		Query:      "content latte",
		Generation: 1,
		TotalHits:  1,
		Results:    []ranker.ScoredDoc{{DocID: 3, Filename: "a.txt", Score: 1.5}},
		TermStats:  map[string]int{"latt": 1},
	}

	var computed atomic.Int32
	compute := func() (*executor.SearchResult, error) {
		computed.Add(1)
		return want, nil
	}

	got, cached, err := c.GetOrCompute(context.Background(), key, compute)
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Equal(t, want, got)

	got, cached, err = c.GetOrCompute(context.Background(), key, compute)
	require.NoError(t, err)
	assert.True(t, cached)
	assert.Equal(t, want, got)
	assert.Equal(t, int32(1), computed.Load())

	hits, misses := c.Stats()
	assert.Equal(t, int64(1), hits)
	assert.Equal(t, int64(1), misses)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheHitsTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheMissesTotal))
}

func TestComputeErrorIsNotCached(t *testing.T) {
	backend := newMemoryBackend()
	c := New(backend, time.Minute, nil)
	boom := errors.New("boom")
	_, _, err := c.GetOrCompute(context.Background(), "search:x", func() (*executor.SearchResult, error) {
		return nil, boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, backend.data)
}

func TestBackendFailureFallsThrough(t *testing.T) {
	backend := newMemoryBackend()
	backend.err = errors.New("connection refused")
	c := New(backend, time.Minute, nil)

	for i := 0; i < 5; i++ {
		got, cached, err := c.GetOrCompute(context.Background(), "search:x", func() (*executor.SearchResult, error) {
			return &executor.SearchResult{TotalHits: 2}, nil
		})
		require.NoError(t, err)
		assert.False(t, cached)
		assert.Equal(t, 2, got.TotalHits)
	}
}

func TestInvalidate(t *testing.T) {
	backend := newMemoryBackend()
	backend.data["search:0000000000000001"] = []byte("{}")
	backend.data["search:0000000000000002"] = []byte("{}")
	backend.data["other"] = []byte("x")
	c := New(backend, time.Minute, nil)

	require.NoError(t, c.Invalidate(context.Background()))
	assert.Equal(t, map[string][]byte{"other": []byte("x")}, backend.data)
}
