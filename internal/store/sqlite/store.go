// Package sqlite is a single-file posting store on the pure-Go modernc
// driver. Posting lists are stored as JSON text.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/Adithya-Monish-Kumar-K/asuracrow-search/internal/indexer/index"
)

const schema = `
CREATE TABLE IF NOT EXISTS term_postings (
	term       TEXT PRIMARY KEY,
	postings   TEXT NOT NULL DEFAULT '[]',
	updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
);
CREATE TABLE IF NOT EXISTS corpus_documents (
	url        TEXT PRIMARY KEY,
	doc_length INTEGER NOT NULL,
	indexed_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
);`

type Store struct {
	db   *sql.DB
	path string
}

// Open creates the database file and its parent directory when missing.
func Open(ctx context.Context, path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// One writer at a time; transactions then serialize without SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return &Store{db: db, path: path}, nil
}

func (s *Store) Path() string { return s.path }

func (s *Store) Postings(ctx context.Context, term string) (index.PostingList, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT postings FROM term_postings WHERE term = ?`, term).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return index.PostingList{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying postings for %q: %w", term, err)
	}
	var list index.PostingList
	if err := json.Unmarshal([]byte(raw), &list); err != nil {
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
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO term_postings (term, postings) VALUES (?, ?)
		ON CONFLICT (term) DO UPDATE SET postings = excluded.postings, updated_at = CURRENT_TIMESTAMP`,
		term, string(raw),
	)
	if err != nil {
		return fmt.Errorf("writing postings for %q: %w", term, err)
	}
	return nil
}

func (s *Store) RegisterDocument(ctx context.Context, url string, length int) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM corpus_documents WHERE url = ?`, url).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("looking up document %s: %w", url, err)
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO corpus_documents (url, doc_length) VALUES (?, ?)
		ON CONFLICT (url) DO UPDATE SET doc_length = excluded.doc_length, updated_at = CURRENT_TIMESTAMP`,
		url, length,
	)
	if err != nil {
		return false, fmt.Errorf("registering document %s: %w", url, err)
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("committing transaction: %w", err)
	}
	return exists == 0, nil
}

func (s *Store) Stats(ctx context.Context) (index.Stats, error) {
	var stats index.Stats
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(AVG(doc_length), 0.0) FROM corpus_documents`,
	).Scan(&stats.TotalDocuments, &stats.AverageDocumentLength)
	if err != nil {
		return index.Stats{}, fmt.Errorf("reading corpus stats: %w", err)
	}
	return stats, nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Close() error {
	return s.db.Close()
}
