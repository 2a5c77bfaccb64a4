// Package ranker scores candidate documents with classic TF-IDF:
//
//	score(d) = Σ_t sqrt(tf(t, d)) · (1 + ln(N / (df(t) + 1)))
//
// where N is the number of live documents with at least one token in the
// queried field and df(t) the live document frequency of t in that field.
package ranker

import (
	"math"
	"sort"

	"github.com/Adithya-Monish-Kumar-K/fulltext-search/internal/indexer/index"
)

type ScoredDoc struct {
	DocID    index.DocID `json:"doc_id"`
	Filename string      `json:"filename"`
	Score    float64     `json:"score"`
}

// Rank scores every candidate against the postings of each distinct query
// term. Postings must be the full live lists so that df is exact;
// candidates restricts which documents receive a score. Terms are summed in
// sorted order so scores are reproducible bit for bit. The result is in no
// particular order.
func Rank(
	postingsPerTerm map[string]index.PostingList,
	candidates map[index.DocID]struct{},
	totalDocs int,
) []ScoredDoc {
	terms := make([]string, 0, len(postingsPerTerm))
	for term := range postingsPerTerm {
		terms = append(terms, term)
	}
	sort.Strings(terms)

	scores := make(map[index.DocID]float64, len(candidates))
	for _, term := range terms {
		postings := postingsPerTerm[term]
		idf := IDF(totalDocs, len(postings))
		for _, posting := range postings {
			if _, ok := candidates[posting.DocID]; !ok {
				continue
			}
			scores[posting.DocID] += TF(posting.Frequency) * idf
		}
	}
	result := make([]ScoredDoc, 0, len(scores))
	for docID, score := range scores {
		result = append(result, ScoredDoc{DocID: docID, Score: score})
	}
	return result
}

// TF is the square-root dampened term frequency.
func TF(freq int) float64 {
	return math.Sqrt(float64(freq))
}

func IDF(totalDocs int, docFreq int) float64 {
	return 1 + math.Log(float64(totalDocs)/float64(docFreq+1))
}
