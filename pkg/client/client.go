// Package client talks to the indexer and searcher services over HTTP. It is
// used by the crawler's HTTP sink and by searchctl.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/asuracrow-search/pkg/config"
)

// Document is the body of an index call.
type Document struct {
	URL     string `json:"url"`
	Content string `json:"content"`
}

type IndexResponse struct {
	Message     string `json:"message"`
	URL         string `json:"url"`
	Terms       int    `json:"terms"`
	NewDocument bool   `json:"new_document"`
}

type ScoredDoc struct {
	URL   string  `json:"url"`
	TFIDF float64 `json:"tfidf"`
	BM25  float64 `json:"bm25"`
	Score float64 `json:"score"`
}

type SearchResult struct {
	Query     string      `json:"query"`
	Terms     []string    `json:"terms"`
	URLs      []string    `json:"urls"`
	Results   []ScoredDoc `json:"results"`
	TotalHits int         `json:"total_hits"`
}

type Stats struct {
	TotalDocuments        int64   `json:"total_documents"`
	AverageDocumentLength float64 `json:"average_document_length"`
}

// StatusError is returned for any non-2xx response.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("unexpected status %d", e.StatusCode)
	}
	return fmt.Sprintf("unexpected status %d: %s", e.StatusCode, e.Message)
}

type Client struct {
	indexerURL  string
	searcherURL string
	http        *http.Client
}

func New(cfg config.ClientConfig) *Client {
	return &Client{
		indexerURL:  strings.TrimRight(cfg.IndexerURL, "/"),
		searcherURL: strings.TrimRight(cfg.SearcherURL, "/"),
		http:        &http.Client{Timeout: cfg.Timeout},
	}
}

// Index submits one document to the indexer.
func (c *Client) Index(ctx context.Context, doc Document) (*IndexResponse, error) {
	body, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encoding document: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.indexerURL+"/index", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building index request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	var resp IndexResponse
	if err := c.do(req, &resp); err != nil {
		return nil, fmt.Errorf("indexing %s: %w", doc.URL, err)
	}
	return &resp, nil
}

// Search returns the ranked urls for a '+'-separated query.
func (c *Client) Search(ctx context.Context, query string) ([]string, error) {
	var urls []string
	if err := c.get(ctx, c.searcherURL+"/search?q="+EscapeQuery(query), &urls); err != nil {
		return nil, fmt.Errorf("searching %q: %w", query, err)
	}
	if urls == nil {
		urls = []string{}
	}
	return urls, nil
}

// Explain is Search with the per-document scores.
func (c *Client) Explain(ctx context.Context, query string) (*SearchResult, error) {
	var res SearchResult
	if err := c.get(ctx, c.searcherURL+"/search?q="+EscapeQuery(query)+"&explain=true", &res); err != nil {
		return nil, fmt.Errorf("searching %q: %w", query, err)
	}
	return &res, nil
}

func (c *Client) Stats(ctx context.Context) (*Stats, error) {
	var stats Stats
	if err := c.get(ctx, c.indexerURL+"/api/v1/stats", &stats); err != nil {
		return nil, fmt.Errorf("reading stats: %w", err)
	}
	return &stats, nil
}

// Analytics returns the searcher's aggregated analytics as raw JSON.
func (c *Client) Analytics(ctx context.Context) (json.RawMessage, error) {
	var raw json.RawMessage
	if err := c.get(ctx, c.searcherURL+"/api/v1/analytics", &raw); err != nil {
		return nil, fmt.Errorf("reading analytics: %w", err)
	}
	return raw, nil
}

// EscapeQuery escapes every term of query on its own and keeps '+' as the
// separator, so the searcher's raw query parsing sees the same terms.
func EscapeQuery(query string) string {
	terms := strings.Split(query, "+")
	for i, term := range terms {
		terms[i] = url.QueryEscape(term)
	}
	return strings.Join(terms, "+")
}

func (c *Client) get(ctx context.Context, target string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	req.Header.Set("Accept", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var body struct {
			Error string `json:"error"`
		}
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if json.Unmarshal(data, &body) != nil {
			body.Error = strings.TrimSpace(string(data))
		}
		return &StatusError{StatusCode: resp.StatusCode, Message: body.Error}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}
