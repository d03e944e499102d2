// Package memory is the in-process posting store. It backs tests and
// single-node development; with a snapshot path configured the index
// survives restarts.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/Adithya-Monish-Kumar-K/asuracrow-search/internal/indexer/index"
)

// Store keeps every posting list and the per-url document lengths in maps
// guarded by a single RWMutex.
type Store struct {
	mu          sync.RWMutex
	terms       map[string]index.PostingList
	docLengths  map[string]int
	totalLength int64
	snapshot    string
}

// New returns an empty in-memory store.
func New() *Store {
	return &Store{
		terms:      make(map[string]index.PostingList),
		docLengths: make(map[string]int),
	}
}

func (s *Store) Postings(_ context.Context, term string) (index.PostingList, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	list := s.terms[term]
	out := make(index.PostingList, len(list))
	copy(out, list)
	return out, nil
}

func (s *Store) ReplacePostings(_ context.Context, term string, postings index.PostingList) error {
	stored := make(index.PostingList, len(postings))
	copy(stored, postings)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.terms[term] = stored
	return nil
}

func (s *Store) RegisterDocument(_ context.Context, url string, length int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev, seen := s.docLengths[url]
	s.docLengths[url] = length
	s.totalLength += int64(length - prev)
	return !seen, nil
}

func (s *Store) Stats(_ context.Context) (index.Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.statsLocked(), nil
}

func (s *Store) statsLocked() index.Stats {
	n := len(s.docLengths)
	if n == 0 {
		return index.Stats{}
	}
	return index.Stats{
		TotalDocuments:        int64(n),
		AverageDocumentLength: float64(s.totalLength) / float64(n),
	}
}

// Terms returns every indexed term in lexicographic order.
func (s *Store) Terms() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	terms := make([]string, 0, len(s.terms))
	for term := range s.terms {
		terms = append(terms, term)
	}
	sort.Strings(terms)
	return terms
}

func (s *Store) Ping(context.Context) error { return nil }

// Close writes the snapshot when one is configured.
func (s *Store) Close() error {
	if s.snapshot == "" {
		return nil
	}
	return s.Save(s.snapshot)
}
