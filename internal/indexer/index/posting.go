// Package index defines the inverted-index data model shared by the write
// path (indexer) and the read path (searcher), and the storage contracts both
// paths are built against.
package index

// Document is a single page submitted for indexing. It only lives for the
// duration of an index call.
type Document struct {
	URL     string `json:"url"`
	Content string `json:"content"`
}

// Posting links one term to one document. The field names double as the
// stored shape: {url, tf, docLength}.
type Posting struct {
	URL            string  `json:"url" bson:"url"`
	TermFrequency  float64 `json:"tf" bson:"tf"`
	DocumentLength int     `json:"docLength" bson:"docLength"`
}

// PostingList holds the postings of a single term. No two postings in a
// list share a URL.
type PostingList []Posting

// Upsert replaces the posting with p's URL in place, or appends p when the
// URL is not present yet. The receiver is not modified.
func (l PostingList) Upsert(p Posting) (PostingList, bool) {
	out := make(PostingList, len(l), len(l)+1)
	copy(out, l)
	for i := range out {
		if out[i].URL == p.URL {
			out[i] = p
			return out, true
		}
	}
	return append(out, p), false
}

// Find returns the posting for url, if any.
func (l PostingList) Find(url string) (Posting, bool) {
	for _, p := range l {
		if p.URL == url {
			return p, true
		}
	}
	return Posting{}, false
}

// Stats are the corpus-wide figures the scorer needs.
type Stats struct {
	TotalDocuments        int64   `json:"total_documents"`
	AverageDocumentLength float64 `json:"average_document_length"`
}
