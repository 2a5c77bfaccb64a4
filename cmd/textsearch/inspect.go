package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli/v2"

	"github.com/Adithya-Monish-Kumar-K/fulltext-search/internal/indexer/store"
)

func dumpTermsCommand() *cli.Command {
	return &cli.Command{
		Name:  "dump-terms",
		Usage: "Print every indexed term per field with its live document frequency",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "field",
				Usage: "Only dump this field",
			},
		},
		Action: runDumpTerms,
	}
}

func runDumpTerms(c *cli.Context) error {
	snap, done, err := openSnapshot(c)
	if err != nil {
		return err
	}
	defer done()

	fields := snap.Fields()
	if f := c.String("field"); f != "" {
		fields = []string{f}
	}
	w := bufio.NewWriter(c.App.Writer)
	for _, field := range fields {
		terms, err := snap.Terms(field)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "== %s (%d terms)\n", field, len(terms))
		for _, t := range terms {
			fmt.Fprintf(w, "%s\t%d\n", t.Term, t.DocFreq)
		}
	}
	return w.Flush()
}

func statsCommand() *cli.Command {
	return &cli.Command{
		Name:  "stats",
		Usage: "Show the committed generation and its segments",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output as JSON",
			},
		},
		Action: runStats,
	}
}

type statsReport struct {
	Generation  uint64              `json:"generation"`
	CommittedAt time.Time           `json:"committed_at"`
	Language    string              `json:"language"`
	LiveDocs    int                 `json:"live_docs"`
	Tombstones  int                 `json:"tombstones"`
	Segments    []store.SegmentInfo `json:"segments"`
}

func runStats(c *cli.Context) error {
	snap, done, err := openSnapshot(c)
	if err != nil {
		return err
	}
	defer done()

	report := statsReport{
		Generation:  snap.Generation(),
		CommittedAt: snap.CommittedAt(),
		Language:    snap.Language(),
		LiveDocs:    snap.LiveDocs(),
		Tombstones:  snap.Tombstones(),
		Segments:    snap.Segments(),
	}
	if c.Bool("json") {
		enc := json.NewEncoder(c.App.Writer)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}

	fmt.Fprintf(c.App.Writer, "generation %d committed %s, language %s\n",
		report.Generation, report.CommittedAt.Format(time.RFC3339), report.Language)
	fmt.Fprintf(c.App.Writer, "%d live documents, %d tombstones\n\n", report.LiveDocs, report.Tombstones)
	table := tablewriter.NewWriter(c.App.Writer)
	table.SetHeader([]string{"Segment", "Documents", "Terms"})
	for _, seg := range report.Segments {
		table.Append([]string{seg.Name, strconv.Itoa(seg.Docs), strconv.Itoa(seg.Terms)})
	}
	table.Render()
	return nil
}

// openSnapshot opens the index read-only and pins its current snapshot.
func openSnapshot(c *cli.Context) (*store.Snapshot, func(), error) {
	e, err := loadEnv(c)
	if err != nil {
		return nil, nil, err
	}
	s, err := store.Open(e.cfg.Index.DataDir)
	if err != nil {
		return nil, nil, err
	}
	snap, err := s.Snapshot()
	if err != nil {
		s.Close()
		return nil, nil, err
	}
	return snap, func() {
		snap.Release()
		s.Close()
	}, nil
}
