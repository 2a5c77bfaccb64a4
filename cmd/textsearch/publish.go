package main

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/Adithya-Monish-Kumar-K/fulltext-search/internal/ingestion/publisher"
	"github.com/Adithya-Monish-Kumar-K/fulltext-search/pkg/kafka"
)

func publishCommand() *cli.Command {
	return &cli.Command{
		Name:  "publish",
		Usage: "Send the documents of a source to the Kafka ingest topic",
		Flags: append(sourceFlags(),
			&cli.IntFlag{
				Name:  "batch-size",
				Value: 100,
				Usage: "Documents per Kafka write",
			},
		),
		Action: runPublish,
	}
}

func runPublish(c *cli.Context) error {
	e, err := loadEnv(c)
	if err != nil {
		return err
	}
	defer e.close()
	if e.cfg.Ingest.Source == "kafka" {
		return fmt.Errorf("publish needs a dir or postgres source")
	}

	src, cleanup, err := openSource(c.Context, e.cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	producer := kafka.NewProducer(e.cfg.Kafka, e.cfg.Kafka.Topics.DocumentIngest)
	defer producer.Close()

	res, err := publisher.New(producer, c.Int("batch-size"), e.cfg.Index.MaxDocumentSize).Publish(c.Context, src)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.App.ErrWriter, "published %d documents to %s, skipped %d\n",
		res.Published, e.cfg.Kafka.Topics.DocumentIngest, res.Skipped)
	return nil
}
