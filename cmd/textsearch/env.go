package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/urfave/cli/v2"

	"github.com/Adithya-Monish-Kumar-K/fulltext-search/internal/indexer/store"
	"github.com/Adithya-Monish-Kumar-K/fulltext-search/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/fulltext-search/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/fulltext-search/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/fulltext-search/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/fulltext-search/pkg/metrics"
	pkgredis "github.com/Adithya-Monish-Kumar-K/fulltext-search/pkg/redis"
)

// env bundles what every command needs: configuration, and the optional
// metrics registry and query cache.
type env struct {
	cfg     *config.Config
	metrics *metrics.Metrics
	health  *health.Checker
	cache   *cache.QueryCache
	closers []func()
}

// loadEnv loads the config, applies command line overrides and installs
// the logger.
func loadEnv(c *cli.Context) (*env, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, err
	}
	if v := c.String("index"); v != "" {
		cfg.Index.DataDir = v
	}
	if v := c.String("log-level"); v != "" {
		cfg.Logging.Level = v
	}
	if c.IsSet("docs") {
		cfg.Ingest.DocsDir = c.String("docs")
	}
	if c.IsSet("include") {
		cfg.Ingest.Include = c.String("include")
	}
	if c.IsSet("source") {
		cfg.Ingest.Source = c.String("source")
	}
	if c.IsSet("language") {
		cfg.Index.Language = c.String("language")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	return &env{cfg: cfg, health: health.NewChecker()}, nil
}

// startMetrics creates the collectors and, when enabled, serves them.
func (e *env) startMetrics() {
	e.metrics = metrics.New(nil)
	if !e.cfg.Metrics.Enabled {
		return
	}
	shutdown := metrics.StartServer(e.metrics, e.cfg.Metrics.Port, e.health)
	e.closers = append(e.closers, func() { shutdown(context.Background()) })
}

// connectCache sets up the Redis query cache when enabled. An unreachable
// Redis leaves the cache off.
func (e *env) connectCache(ctx context.Context) {
	if !e.cfg.Redis.Enabled {
		return
	}
	client, err := pkgredis.NewClient(ctx, e.cfg.Redis)
	if err != nil {
		slog.Warn("redis unavailable, query cache disabled", "addr", e.cfg.Redis.Addr, "error", err)
		return
	}
	e.cache = cache.New(client, e.cfg.Redis.CacheTTL, e.metrics)
	e.health.Register("redis", func(ctx context.Context) health.ComponentHealth {
		if err := client.Ping(ctx); err != nil {
			return health.Degraded(err)
		}
		return health.Up(e.cfg.Redis.Addr)
	})
	e.closers = append(e.closers, func() { client.Close() })
}

// watchStore reports the store as a required component.
func (e *env) watchStore(s *store.Store) {
	e.health.Register("index", func(context.Context) health.ComponentHealth {
		snap, err := s.Snapshot()
		if err != nil {
			return health.Down(err)
		}
		defer snap.Release()
		return health.Up(fmt.Sprintf("generation %d, %d live documents", snap.Generation(), snap.LiveDocs()))
	})
}

func (e *env) close() {
	for i := len(e.closers) - 1; i >= 0; i-- {
		e.closers[i]()
	}
}
