package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/urfave/cli/v2"

	"github.com/Adithya-Monish-Kumar-K/fulltext-search/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/fulltext-search/internal/indexer/analyzer"
	"github.com/Adithya-Monish-Kumar-K/fulltext-search/internal/indexer/consumer"
	"github.com/Adithya-Monish-Kumar-K/fulltext-search/internal/indexer/store"
	"github.com/Adithya-Monish-Kumar-K/fulltext-search/internal/ingestion"
	"github.com/Adithya-Monish-Kumar-K/fulltext-search/internal/ingestion/source"
	"github.com/Adithya-Monish-Kumar-K/fulltext-search/internal/ingestion/watcher"
	"github.com/Adithya-Monish-Kumar-K/fulltext-search/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/fulltext-search/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/fulltext-search/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/fulltext-search/pkg/postgres"
)

func sourceFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "source",
			Usage: "Document source: dir, kafka or postgres",
		},
		&cli.StringFlag{
			Name:    "docs",
			Aliases: []string{"d"},
			Usage:   "Documents directory for the dir source",
		},
		&cli.StringFlag{
			Name:  "include",
			Usage: "Doublestar pattern selecting files of the dir source",
		},
	}
}

func buildCommand() *cli.Command {
	return &cli.Command{
		Name:  "build-index",
		Usage: "Index the documents of the configured source and commit",
		Flags: append(sourceFlags(),
			&cli.StringFlag{
				Name:  "language",
				Usage: "Content language of a new index: italian or english",
			},
			&cli.BoolFlag{
				Name:    "watch",
				Aliases: []string{"w"},
				Usage:   "Keep running and index changes of the documents directory",
			},
		),
		Action: runBuild,
	}
}

func runBuild(c *cli.Context) error {
	e, err := loadEnv(c)
	if err != nil {
		return err
	}
	defer e.close()
	e.startMetrics()
	ctx := c.Context
	e.connectCache(ctx)

	lang, err := analyzer.ParseLanguage(e.cfg.Index.Language)
	if err != nil {
		return err
	}
	s, err := store.OpenOrCreate(e.cfg.Index.DataDir, lang)
	if err != nil {
		return err
	}
	defer s.Close()
	e.watchStore(s)

	opts := indexer.Options{
		MaxSegmentsBeforeMerge: e.cfg.Index.MaxSegmentsBeforeMerge,
		MaxDocumentSize:        e.cfg.Index.MaxDocumentSize,
		Metrics:                e.metrics,
	}
	if e.cache != nil {
		opts.Cache = e.cache
	}
	b, err := indexer.NewBuilder(s, opts)
	if err != nil {
		return err
	}
	defer b.Close()
	ctx = logger.WithSession(ctx, b.Session())

	src, cleanup, err := openSource(ctx, e.cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	ic := consumer.New(b, e.metrics)
	report, err := ic.Run(ctx, src)
	if err != nil {
		return fmt.Errorf("build-index: %w", err)
	}
	fmt.Fprintf(c.App.ErrWriter, "indexed %d, deleted %d, skipped %d documents; generation %d, %d live documents\n",
		report.Indexed, report.Deleted, report.Skipped, report.Commit.Generation, report.Commit.LiveDocs)

	if !c.Bool("watch") {
		return nil
	}
	dir, ok := src.(*source.Dir)
	if !ok {
		return fmt.Errorf("--watch requires the dir source, not %s", src.Name())
	}
	w := watcher.New(dir, e.cfg.Ingest.WatchDebounce, func(ctx context.Context, batch *source.Static) error {
		report, err := ic.Run(ctx, batch)
		if err != nil {
			return err
		}
		slog.Info("changes committed",
			"indexed", report.Indexed,
			"deleted", report.Deleted,
			"skipped", report.Skipped,
			"generation", report.Commit.Generation,
		)
		return nil
	})
	return w.Run(ctx)
}

// openSource builds the configured ingestion source. cleanup releases its
// connections.
func openSource(ctx context.Context, cfg *config.Config) (ingestion.Source, func(), error) {
	switch cfg.Ingest.Source {
	case "kafka":
		kc := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.DocumentIngest)
		return source.NewKafka(kc, cfg.Kafka.IdleTimeout), func() { kc.Close() }, nil
	case "postgres":
		pg, err := postgres.New(ctx, cfg.Postgres)
		if err != nil {
			return nil, nil, err
		}
		return source.NewPostgres(pg.DB, cfg.Postgres.DocumentsQuery), func() { pg.Close() }, nil
	default:
		dir, err := source.NewDir(cfg.Ingest.DocsDir, cfg.Ingest.Include, cfg.Ingest.Workers)
		if err != nil {
			return nil, nil, err
		}
		return dir, func() {}, nil
	}
}
