// Package ranker accumulates per-document scores across query terms and
// returns the best documents in a deterministic order.
package ranker

import "container/heap"

// DefaultLimit is the maximum number of results a search returns.
const DefaultLimit = 25

// Weights of the combined score.
const (
	TFIDFWeight = 0.3
	BM25Weight  = 0.7
)

// Combine blends the two relevance measures into the ranking score.
func Combine(tfidf, bm25 float64) float64 {
	return TFIDFWeight*tfidf + BM25Weight*bm25
}

type ScoredDoc struct {
	URL   string  `json:"url"`
	TFIDF float64 `json:"tfidf"`
	BM25  float64 `json:"bm25"`
	Score float64 `json:"score"`
}

// Ranker lives for one query evaluation. It is not safe for concurrent use.
type Ranker struct {
	docs map[string]*ScoredDoc
}

func New() *Ranker {
	return &Ranker{docs: make(map[string]*ScoredDoc)}
}

// Add folds one term's contribution for url into its running sums and
// recomputes the combined score.
func (r *Ranker) Add(url string, tfidf, bm25 float64) {
	d, ok := r.docs[url]
	if !ok {
		d = &ScoredDoc{URL: url}
		r.docs[url] = d
	}
	d.TFIDF += tfidf
	d.BM25 += bm25
	d.Score = Combine(d.TFIDF, d.BM25)
}

// Len is the number of distinct documents scored so far.
func (r *Ranker) Len() int { return len(r.docs) }

// Top returns at most limit documents ordered by score descending, then by
// url ascending. A limit <= 0 means DefaultLimit.
func (r *Ranker) Top(limit int) []ScoredDoc {
	if limit <= 0 {
		limit = DefaultLimit
	}
	h := &scoredDocHeap{}
	for _, d := range r.docs {
		heap.Push(h, *d)
		if h.Len() > limit {
			heap.Pop(h)
		}
	}
	result := make([]ScoredDoc, h.Len())
	for i := len(result) - 1; i >= 0; i-- {
		result[i] = heap.Pop(h).(ScoredDoc)
	}
	return result
}

func better(a, b ScoredDoc) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	return a.URL < b.URL
}

// scoredDocHeap is a min-heap on ranking order: the root is the worst kept
// document.
type scoredDocHeap []ScoredDoc

func (h scoredDocHeap) Len() int { return len(h) }

func (h scoredDocHeap) Less(i, j int) bool { return better(h[j], h[i]) }

func (h scoredDocHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *scoredDocHeap) Push(x any) {
	*h = append(*h, x.(ScoredDoc))
}

func (h *scoredDocHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}
