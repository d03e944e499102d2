package index

import "context"

//go:generate mockgen -destination=mocks/mock_store.go -package=mocks . PostingStore,CorpusStats

// PostingStore persists one posting list per term. Implementations make a
// single Postings or ReplacePostings call atomic; serializing the
// read-modify-write of a term across calls is the caller's job.
type PostingStore interface {
	// Postings returns the term's list, or an empty list for an unseen term.
	Postings(ctx context.Context, term string) (PostingList, error)
	// ReplacePostings writes the full list for term, creating it if needed.
	ReplacePostings(ctx context.Context, term string, postings PostingList) error
}

// CorpusStats tracks every distinct URL ever indexed and its length.
type CorpusStats interface {
	// RegisterDocument records url with its current length and reports
	// whether the url was seen for the first time. Re-registering a url
	// updates its length without counting it again.
	RegisterDocument(ctx context.Context, url string, length int) (bool, error)
	Stats(ctx context.Context) (Stats, error)
}

// Store is a complete storage backend.
type Store interface {
	PostingStore
	CorpusStats
	Ping(ctx context.Context) error
	Close() error
}
