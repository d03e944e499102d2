package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/asuracrow-search/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/asuracrow-search/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/asuracrow-search/internal/searcher/ranker"
	apperrors "github.com/Adithya-Monish-Kumar-K/asuracrow-search/pkg/errors"
)

type stubSearcher struct {
	mu      sync.Mutex
	queries []string
	urls    []string
	err     error
}

func (s *stubSearcher) Search(_ context.Context, query string) (*executor.SearchResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queries = append(s.queries, query)
	if s.err != nil {
		return nil, s.err
	}
	urls := s.urls
	if urls == nil {
		urls = []string{}
	}
	results := make([]ranker.ScoredDoc, len(urls))
	for i, u := range urls {
		results[i] = ranker.ScoredDoc{URL: u, Score: float64(len(urls) - i)}
	}
	return &executor.SearchResult{Query: query, URLs: urls, Results: results, TotalHits: len(urls)}, nil
}

func (s *stubSearcher) last() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queries[len(s.queries)-1]
}

type recordingTracker struct {
	mu     sync.Mutex
	events []analytics.SearchEvent
}

func (r *recordingTracker) Track(e any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e.(analytics.SearchEvent))
}

func newServer(t *testing.T, s *stubSearcher, tracker analytics.Tracker) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	New(s, tracker).Register(mux)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestSearchKeepsPlusDelimiter(t *testing.T) {
	s := &stubSearcher{urls: []string{"https://b.example", "https://a.example"}}
	srv := newServer(t, s, nil)

	resp, err := http.Get(srv.URL + "/search?q=apple+banana")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "apple+banana", s.last())
	var urls []string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&urls))
	assert.Equal(t, []string{"https://b.example", "https://a.example"}, urls)
}

func TestSearchUnescapesPercentEncoding(t *testing.T) {
	s := &stubSearcher{}
	srv := newServer(t, s, nil)

	resp, err := http.Get(srv.URL + "/api/v1/search?limit=3&q=caf%C3%A9+bar")
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, "café+bar", s.last())
}

func TestSearchEmptyResultIsEmptyArray(t *testing.T) {
	tracker := &recordingTracker{}
	srv := newServer(t, &stubSearcher{}, tracker)

	resp, err := http.Get(srv.URL + "/search?q=kiwi")
	require.NoError(t, err)
	defer resp.Body.Close()

	body := new(strings.Builder)
	_, _ = body.WriteString(readAll(t, resp))
	assert.Equal(t, "[]\n", body.String())

	tracker.mu.Lock()
	defer tracker.mu.Unlock()
	require.Len(t, tracker.events, 1)
	assert.Equal(t, analytics.EventZeroResult, tracker.events[0].Type)
}

func TestSearchMissingQuery(t *testing.T) {
	s := &stubSearcher{}
	srv := newServer(t, s, nil)

	resp, err := http.Get(srv.URL + "/search")
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "", s.last())
}

func TestSearchPostForm(t *testing.T) {
	s := &stubSearcher{}
	srv := newServer(t, s, nil)

	resp, err := http.Post(srv.URL+"/search", "application/x-www-form-urlencoded", strings.NewReader("q=apple+pie"))
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "apple+pie", s.last())
}

func TestSearchBadEscapeIsServerError(t *testing.T) {
	srv := newServer(t, &stubSearcher{}, nil)

	resp, err := http.Get(srv.URL + "/search?q=%zz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}

func TestSearchStorageFailure(t *testing.T) {
	tracker := &recordingTracker{}
	s := &stubSearcher{err: apperrors.Wrap(apperrors.ErrStorageUnavailable, errors.New("down"), "postings")}
	srv := newServer(t, s, tracker)

	resp, err := http.Get(srv.URL + "/search?q=apple")
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	tracker.mu.Lock()
	defer tracker.mu.Unlock()
	require.Len(t, tracker.events, 1)
	assert.True(t, tracker.events[0].Failed)
}

func TestSearchExplain(t *testing.T) {
	srv := newServer(t, &stubSearcher{urls: []string{"a"}}, nil)

	resp, err := http.Get(srv.URL + "/search?q=apple&explain=true")
	require.NoError(t, err)
	defer resp.Body.Close()

	var result executor.SearchResult
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	assert.Equal(t, []string{"a"}, result.URLs)
	require.Len(t, result.Results, 1)
}

func TestRawParam(t *testing.T) {
	v, ok := rawParam("a=1&q=x+y&q=z", "q")
	assert.True(t, ok)
	assert.Equal(t, "x+y", v)

	_, ok = rawParam("", "q")
	assert.False(t, ok)
}

func readAll(t *testing.T, resp *http.Response) string {
	t.Helper()
	var sb strings.Builder
	buf := make([]byte, 512)
	for {
		n, err := resp.Body.Read(buf)
		sb.Write(buf[:n])
		if err != nil {
			break
		}
	}
	return sb.String()
}
