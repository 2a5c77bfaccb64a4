package executor

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/Adithya-Monish-Kumar-K/fulltext-search/internal/indexer/analyzer"
	"github.com/Adithya-Monish-Kumar-K/fulltext-search/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/fulltext-search/internal/indexer/store"
	"github.com/Adithya-Monish-Kumar-K/fulltext-search/internal/searcher/merger"
	"github.com/Adithya-Monish-Kumar-K/fulltext-search/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/fulltext-search/internal/searcher/ranker"
)

type SearchResult struct {
	Query      string             `json:"query"`
	Generation uint64             `json:"generation"`
	TotalHits  int                `json:"total_hits"`
	Results    []ranker.ScoredDoc `json:"results"`
	TermStats  map[string]int     `json:"term_stats"`
}

// Executor resolves query plans against index snapshots.
type Executor struct {
	analyzer *analyzer.PerField
	logger   *slog.Logger
}

// New creates an Executor analyzing queries for an index built with lang.
func New(lang analyzer.Language) *Executor {
	return &Executor{
		analyzer: analyzer.NewPerField(lang),
		logger:   slog.Default().With("component", "query-executor"),
	}
}

// Execute runs plan against snap and returns at most limit results.
func (e *Executor) Execute(ctx context.Context, snap *store.Snapshot, plan *parser.QueryPlan, limit int) (*SearchResult, error) {
	result := &SearchResult{
		Query:      plan.RawQuery,
		Generation: snap.Generation(),
		Results:    []ranker.ScoredDoc{},
		TermStats:  make(map[string]int),
	}
	tokens := e.analyzer.Analyze(plan.Field, plan.Expr)
	if len(tokens) == 0 {
		e.logger.Debug("query expression analyzed to no terms", "query", plan.RawQuery)
		return result, nil
	}

	postingsPerTerm := make(map[string]index.PostingList)
	for _, tok := range tokens {
		if _, seen := postingsPerTerm[tok.Term]; seen {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		postings, err := snap.Lookup(plan.Field, tok.Term)
		if err != nil {
			return nil, fmt.Errorf("searching term %q: %w", tok.Term, err)
		}
		postingsPerTerm[tok.Term] = postings
		result.TermStats[tok.Term] = len(postings)
	}

	candidates := intersectPostings(postingsPerTerm)
	if plan.Phrase {
		for docID := range candidates {
			if !phraseMatches(tokens, postingsPerTerm, docID) {
				delete(candidates, docID)
			}
		}
	}

	collector := merger.NewCollector(limit)
	for _, doc := range ranker.Rank(postingsPerTerm, candidates, snap.DocCount(plan.Field)) {
		collector.Offer(doc)
	}
	top := collector.Results()
	for i := range top {
		doc, err := snap.FetchStored(top[i].DocID)
		if err != nil {
			return nil, fmt.Errorf("fetching stored document %d: %w", top[i].DocID, err)
		}
		top[i].Filename = doc.Get(analyzer.FieldFilename)
	}
	result.TotalHits = len(candidates)
	result.Results = top

	e.logger.Debug("query executed",
		"query", plan.RawQuery,
		"field", plan.Field,
		"phrase", plan.Phrase,
		"terms", len(postingsPerTerm),
		"candidates", len(candidates),
		"scored", collector.Offered(),
		"results", len(top),
	)
	return result, nil
}

// intersectPostings returns the documents present in every posting list,
// starting from the shortest one.
func intersectPostings(postingsPerTerm map[string]index.PostingList) map[index.DocID]struct{} {
	if len(postingsPerTerm) == 0 {
		return make(map[index.DocID]struct{})
	}
	var shortestTerm string
	shortestLen := int(^uint(0) >> 1)
	for term, postings := range postingsPerTerm {
		if len(postings) < shortestLen {
			shortestLen = len(postings)
			shortestTerm = term
		}
	}
	candidates := make(map[index.DocID]struct{}, shortestLen)
	for _, p := range postingsPerTerm[shortestTerm] {
		candidates[p.DocID] = struct{}{}
	}
	for term, postings := range postingsPerTerm {
		if term == shortestTerm {
			continue
		}
		for docID := range candidates {
			if _, ok := postings.Find(docID); !ok {
				delete(candidates, docID)
			}
		}
	}
	return candidates
}

// phraseMatches reports whether the query tokens occur in docID at the same
// relative offsets they have in the analyzed query.
func phraseMatches(tokens []analyzer.Token, postingsPerTerm map[string]index.PostingList, docID index.DocID) bool {
	positions := make([][]int, len(tokens))
	for i, tok := range tokens {
		p, ok := postingsPerTerm[tok.Term].Find(docID)
		if !ok {
			return false
		}
		positions[i] = p.Positions
	}
	base := tokens[0].Position
	for _, start := range positions[0] {
		matched := true
		for i := 1; i < len(tokens); i++ {
			if !containsSorted(positions[i], start+tokens[i].Position-base) {
				matched = false
				break
			}
		}
		if matched {
			return true
		}
	}
	return false
}

func containsSorted(positions []int, want int) bool {
	i := sort.SearchInts(positions, want)
	return i < len(positions) && positions[i] == want
}
