package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/Adithya-Monish-Kumar-K/fulltext-search/internal/indexer/store"
	"github.com/Adithya-Monish-Kumar-K/fulltext-search/internal/searcher"
	"github.com/Adithya-Monish-Kumar-K/fulltext-search/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/fulltext-search/internal/searcher/parser"
)

func queryCommand() *cli.Command {
	return &cli.Command{
		Name:      "query",
		Usage:     "Run one query read from --query or the first line of standard input",
		ArgsUsage: " ",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "query",
				Aliases: []string{"q"},
				Usage:   `Query line, e.g. 'content "gatto nero"'`,
			},
			&cli.IntFlag{
				Name:    "limit",
				Aliases: []string{"n"},
				Usage:   "Maximum number of results (default search.defaultLimit)",
			},
		},
		Action: runQuery,
	}
}

func runQuery(c *cli.Context) error {
	e, err := loadEnv(c)
	if err != nil {
		return err
	}
	defer e.close()
	e.startMetrics()
	e.connectCache(c.Context)

	line := c.String("query")
	if !c.IsSet("query") {
		if line, err = readQueryLine(c.App.Reader); err != nil {
			return err
		}
	}

	// Reject malformed queries before the index is opened.
	if _, err := parser.Parse(line); err != nil {
		return err
	}
	s, err := store.Open(e.cfg.Index.DataDir)
	if err != nil {
		return err
	}
	defer s.Close()

	svc := searcher.New(s, searcher.Options{
		DefaultLimit: e.cfg.Search.DefaultLimit,
		MaxResults:   e.cfg.Search.MaxResults,
		Cache:        e.cache,
		Metrics:      e.metrics,
	})
	result, err := svc.Search(c.Context, line, c.Int("limit"))
	if err != nil {
		return err
	}
	return printResults(c.App.Writer, result)
}

func readQueryLine(r io.Reader) (string, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	if sc.Scan() {
		return strings.TrimSpace(sc.Text()), nil
	}
	if err := sc.Err(); err != nil {
		return "", fmt.Errorf("reading query from stdin: %w", err)
	}
	return "", nil
}

func printResults(w io.Writer, result *executor.SearchResult) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "Results found: %d\n\n", result.TotalHits)
	for _, doc := range result.Results {
		fmt.Fprintf(bw, "%s (score: %v)\n", doc.Filename, float32(doc.Score))
	}
	return bw.Flush()
}
