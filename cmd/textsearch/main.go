// Command textsearch builds and queries a local full-text index.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	apperrors "github.com/Adithya-Monish-Kumar-K/fulltext-search/pkg/errors"
)

func newApp() *cli.App {
	return &cli.App{
		Name:  "textsearch",
		Usage: "Build and query a full-text index over a document collection",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Value:   "textsearch.yaml",
				Usage:   "Path to the YAML config file",
			},
			&cli.StringFlag{
				Name:    "index",
				Aliases: []string{"i"},
				Usage:   "Index directory (overrides index.dataDir)",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "Log level: debug, info, warn or error",
			},
		},
		Commands: []*cli.Command{
			buildCommand(),
			queryCommand(),
			dumpTermsCommand(),
			statsCommand(),
			publishCommand(),
		},
		// Errors are reported once, by main, with the exit code they map to.
		ExitErrHandler: func(*cli.Context, error) {},
	}
}

func main() {
	app := newApp()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := app.RunContext(ctx, os.Args)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(apperrors.ExitCode(err))
	}
}
