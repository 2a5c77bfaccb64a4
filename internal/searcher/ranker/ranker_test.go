package ranker

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/fulltext-search/internal/indexer/index"
)

func candidates(ids ...index.DocID) map[index.DocID]struct{} {
	m := make(map[index.DocID]struct{}, len(ids))
	for _, id := range ids {
		m[id] = struct{}{}
	}
	return m
}

func scoreOf(t *testing.T, docs []ScoredDoc, id index.DocID) float64 {
	t.Helper()
	for _, d := range docs {
		if d.DocID == id {
			return d.Score
		}
	}
	t.Fatalf("doc %d not scored", id)
	return 0
}

func TestRankFormula(t *testing.T) {
	postings := map[string]index.PostingList{
		"ner":  {{DocID: 1, Frequency: 1}, {DocID: 2, Frequency: 4}},
		"gatt": {{DocID: 1, Frequency: 1}},
	}
	docs := Rank(postings, candidates(1, 2), 2)
	require.Len(t, docs, 2)

	idfNer := 1 + math.Log(2.0/3.0)
	idfGatt := 1 + math.Log(2.0/2.0)
	assert.InDelta(t, idfNer+idfGatt, scoreOf(t, docs, 1), 1e-12)
	assert.InDelta(t, 2*idfNer, scoreOf(t, docs, 2), 1e-12)
}

func TestRankOnlyScoresCandidates(t *testing.T) {
	postings := map[string]index.PostingList{
		"ner": {{DocID: 1, Frequency: 1}, {DocID: 2, Frequency: 1}, {DocID: 3, Frequency: 1}},
	}
	docs := Rank(postings, candidates(2), 3)
	require.Len(t, docs, 1)
	assert.Equal(t, index.DocID(2), docs[0].DocID)
	assert.InDelta(t, 1+math.Log(3.0/4.0), docs[0].Score, 1e-12, "df counts the full posting list")
}

func TestRankMonotonicInTermFrequency(t *testing.T) {
	for tf := 1; tf < 20; tf++ {
		postings := map[string]index.PostingList{
			"ner": {{DocID: 1, Frequency: tf}, {DocID: 2, Frequency: tf + 1}},
		}
		docs := Rank(postings, candidates(1, 2), 10)
		assert.Greater(t, scoreOf(t, docs, 2), scoreOf(t, docs, 1))
	}
}

func TestIDF(t *testing.T) {
	assert.InDelta(t, 1.0, IDF(2, 1), 1e-12)
	assert.Greater(t, IDF(100, 1), IDF(100, 50), "rarer terms weigh more")
	assert.Greater(t, IDF(1, 1), 0.0)
}

func TestRankIsReproducible(t *testing.T) {
	postings := make(map[string]index.PostingList)
	terms := []string{"alba", "bosco", "cielo", "duna", "erba", "fiume", "gelo", "lago"}
	for i, term := range terms {
		pl := index.PostingList{{DocID: 1, Frequency: i + 1}}
		for id := index.DocID(2); id < index.DocID(i+3); id++ {
			pl = append(pl, index.Posting{DocID: id, Frequency: 1})
		}
		postings[term] = pl
	}

	var want float64
	for i := range terms {
		want += TF(i+1) * IDF(97, len(postings[terms[i]]))
	}
	for range 50 {
		got := scoreOf(t, Rank(postings, candidates(1), 97), 1)
		require.Equal(t, want, got)
	}
}
