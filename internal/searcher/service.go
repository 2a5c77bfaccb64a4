// Package searcher answers queries against the committed index. A Service
// parses the query line, pins the current snapshot, consults the optional
// result cache and falls back to the executor.
package searcher

import (
	"context"
	"time"

	"github.com/Adithya-Monish-Kumar-K/fulltext-search/internal/indexer/store"
	"github.com/Adithya-Monish-Kumar-K/fulltext-search/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/fulltext-search/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/fulltext-search/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/fulltext-search/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/fulltext-search/pkg/metrics"
)

type Options struct {
	DefaultLimit int
	MaxResults   int
	Cache        *cache.QueryCache
	Metrics      *metrics.Metrics
}

type Service struct {
	store    *store.Store
	executor *executor.Executor
	opts     Options
}

func New(s *store.Store, opts Options) *Service {
	if opts.DefaultLimit < 1 {
		opts.DefaultLimit = 10
	}
	if opts.MaxResults < opts.DefaultLimit {
		opts.MaxResults = opts.DefaultLimit
	}
	return &Service{
		store:    s,
		executor: executor.New(s.Language()),
		opts:     opts,
	}
}

// Search runs one query line and returns at most topN results. A topN below
// one selects the default limit; larger values are capped at MaxResults.
// Syntax errors are returned before the store is touched.
func (s *Service) Search(ctx context.Context, query string, topN int) (*executor.SearchResult, error) {
	start := time.Now()
	log := logger.FromContext(ctx).With("component", "search")

	limit := topN
	if limit < 1 {
		limit = s.opts.DefaultLimit
	}
	if limit > s.opts.MaxResults {
		limit = s.opts.MaxResults
	}

	plan, err := parser.Parse(query)
	if err != nil {
		s.opts.Metrics.Search("invalid", "none", time.Since(start).Seconds(), 0)
		return nil, err
	}

	snap, err := s.store.Snapshot()
	if err != nil {
		s.opts.Metrics.Search("error", "none", time.Since(start).Seconds(), 0)
		return nil, err
	}
	defer snap.Release()

	var result *executor.SearchResult
	cacheStatus := "disabled"
	if s.opts.Cache != nil {
		var hit bool
		key := cache.Key(snap.Generation(), plan, limit)
		result, hit, err = s.opts.Cache.GetOrCompute(ctx, key, func() (*executor.SearchResult, error) {
			return s.executor.Execute(ctx, snap, plan, limit)
		})
		cacheStatus = "miss"
		if hit {
			cacheStatus = "hit"
		}
	} else {
		result, err = s.executor.Execute(ctx, snap, plan, limit)
	}
	if err != nil {
		log.Error("search execution failed", "query", query, "error", err)
		s.opts.Metrics.Search("error", cacheStatus, time.Since(start).Seconds(), 0)
		return nil, err
	}

	resultType := "hits"
	if result.TotalHits == 0 {
		resultType = "empty"
	}
	elapsed := time.Since(start)
	s.opts.Metrics.Search(resultType, cacheStatus, elapsed.Seconds(), result.TotalHits)
	log.Info("search completed",
		"query", query,
		"generation", result.Generation,
		"total_hits", result.TotalHits,
		"returned", len(result.Results),
		"cache", cacheStatus,
		"latency_ms", elapsed.Milliseconds(),
	)
	return result, nil
}
