// Package postgres stores posting lists as JSONB rows, one row per term, and
// the corpus documents in a second table.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Adithya-Monish-Kumar-K/asuracrow-search/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/asuracrow-search/pkg/postgres"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS term_postings (
		term       TEXT PRIMARY KEY,
		postings   JSONB NOT NULL DEFAULT '[]',
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS corpus_documents (
		url         TEXT PRIMARY KEY,
		doc_length  INTEGER NOT NULL,
		indexed_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
}

type Store struct {
	client *postgres.Client
}

// New creates the tables if needed and returns a Store on client.
func New(ctx context.Context, client *postgres.Client) (*Store, error) {
	err := client.InTx(ctx, func(tx *sql.Tx) error {
		for _, stmt := range schema {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return &Store{client: client}, nil
}

func (s *Store) Postings(ctx context.Context, term string) (index.PostingList, error) {
	var raw []byte
	err := s.client.DB.QueryRowContext(ctx,
		`SELECT postings FROM term_postings WHERE term = $1`, term,
	).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return index.PostingList{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying postings for %q: %w", term, err)
	}
	var list index.PostingList
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, fmt.Errorf("decoding postings for %q: %w", term, err)
	}
	return list, nil
}

func (s *Store) ReplacePostings(ctx context.Context, term string, postings index.PostingList) error {
	if postings == nil {
		postings = index.PostingList{}
	}
	raw, err := json.Marshal(postings)
	if err != nil {
		return fmt.Errorf("encoding postings for %q: %w", term, err)
	}
	_, err = s.client.DB.ExecContext(ctx, `
		INSERT INTO term_postings (term, postings) VALUES ($1, $2)
		ON CONFLICT (term) DO UPDATE SET postings = EXCLUDED.postings, updated_at = now()`,
		term, raw,
	)
	if err != nil {
		return fmt.Errorf("writing postings for %q: %w", term, err)
	}
	return nil
}

// RegisterDocument upserts the url row. xmax is zero only on a freshly
// inserted row, which tells a first registration from an update.
func (s *Store) RegisterDocument(ctx context.Context, url string, length int) (bool, error) {
	var inserted bool
	err := s.client.DB.QueryRowContext(ctx, `
		INSERT INTO corpus_documents (url, doc_length) VALUES ($1, $2)
		ON CONFLICT (url) DO UPDATE SET doc_length = EXCLUDED.doc_length, updated_at = now()
		RETURNING (xmax = 0)`,
		url, length,
	).Scan(&inserted)
	if err != nil {
		return false, fmt.Errorf("registering document %s: %w", url, err)
	}
	return inserted, nil
}

func (s *Store) Stats(ctx context.Context) (index.Stats, error) {
	var stats index.Stats
	err := s.client.DB.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(AVG(doc_length), 0)::float8 FROM corpus_documents`,
	).Scan(&stats.TotalDocuments, &stats.AverageDocumentLength)
	if err != nil {
		return index.Stats{}, fmt.Errorf("reading corpus stats: %w", err)
	}
	return stats, nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx)
}

func (s *Store) Close() error {
	return s.client.Close()
}
