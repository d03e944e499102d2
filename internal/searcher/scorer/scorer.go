// Package scorer computes per-posting TF-IDF and BM25 scores for one query
// term against the corpus statistics.
package scorer

import (
	"context"
	"fmt"
	"math"

	"github.com/Adithya-Monish-Kumar-K/asuracrow-search/internal/indexer/index"
)

// BM25 tuning constants.
const (
	K1 = 1.2
	B  = 0.75
)

// IDF returns 1 + ln(total/appearances). It returns 0 instead of a
// non-finite value when total or appearances is not positive, or when
// appearances exceeds total because the stats are stale.
func IDF(total, appearances int64) float64 {
	if total <= 0 || appearances <= 0 || appearances > total {
		return 0
	}
	return 1 + math.Log(float64(total)/float64(appearances))
}

// BM25 scores one posting. It returns 0 when the corpus average length is
// not positive.
func BM25(tf, idf float64, docLength int, avgDocLength float64) float64 {
	if avgDocLength <= 0 {
		return 0
	}
	lengthRatio := float64(docLength) / avgDocLength
	denominator := tf + K1*(1-B+B*lengthRatio)
	if denominator == 0 {
		return 0
	}
	return idf * (tf * (K1 + 1)) / denominator
}

// PostingScore holds both scores of one document for one term.
type PostingScore struct {
	URL   string
	TFIDF float64
	BM25  float64
}

// TermScore is the scored posting list of one term.
type TermScore struct {
	Term        string
	Appearances int
	IDF         float64
	Postings    []PostingScore
}

// Scorer reads posting lists from a PostingStore.
type Scorer struct {
	postings index.PostingStore
}

func New(postings index.PostingStore) *Scorer {
	return &Scorer{postings: postings}
}

// Score fetches term's postings and scores each of them. A term with no
// postings yields an empty TermScore.
func (s *Scorer) Score(ctx context.Context, term string, stats index.Stats) (TermScore, error) {
	list, err := s.postings.Postings(ctx, term)
	if err != nil {
		return TermScore{}, fmt.Errorf("reading postings for %q: %w", term, err)
	}
	return ScoreList(term, list, stats), nil
}

// ScoreList scores an already fetched posting list.
func ScoreList(term string, list index.PostingList, stats index.Stats) TermScore {
	ts := TermScore{Term: term, Appearances: len(list)}
	if len(list) == 0 {
		return ts
	}
	ts.IDF = IDF(stats.TotalDocuments, int64(len(list)))
	ts.Postings = make([]PostingScore, 0, len(list))
	for _, p := range list {
		ts.Postings = append(ts.Postings, PostingScore{
			URL:   p.URL,
			TFIDF: p.TermFrequency * ts.IDF,
			BM25:  BM25(p.TermFrequency, ts.IDF, p.DocumentLength, stats.AverageDocumentLength),
		})
	}
	return ts
}
