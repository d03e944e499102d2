package crawler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"golang.org/x/net/html"

	"github.com/Adithya-Monish-Kumar-K/asuracrow-search/internal/indexer/index"
)

// MaxPageBytes caps how much of a response body is read.
const MaxPageBytes = 8 << 20

// Fetcher downloads a page and turns it into an indexable document.
type Fetcher struct {
	client    *http.Client
	userAgent string
}

func NewFetcher(timeout time.Duration, userAgent string) *Fetcher {
	return &Fetcher{
		client:    &http.Client{Timeout: timeout},
		userAgent: userAgent,
	}
}

// StatusError reports a non-2xx page response.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("fetching %s: unexpected status %d %s", e.URL, e.StatusCode, http.StatusText(e.StatusCode))
}

// Retryable reports whether fetching again can help: client errors other
// than 408 and 429 are permanent.
func Retryable(err error) bool {
	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		return true
	}
	switch {
	case statusErr.StatusCode == http.StatusRequestTimeout, statusErr.StatusCode == http.StatusTooManyRequests:
		return true
	case statusErr.StatusCode >= 400 && statusErr.StatusCode < 500:
		return false
	}
	return true
}

// Fetch GETs url and returns its visible text, cleaned, as the document
// content. Text inside <script> and <style> is skipped.
func (f *Fetcher) Fetch(ctx context.Context, url string) (index.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return index.Document{}, fmt.Errorf("building request: %w", err)
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return index.Document{}, fmt.Errorf("fetching %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return index.Document{}, &StatusError{URL: url, StatusCode: resp.StatusCode}
	}

	body := io.LimitReader(resp.Body, MaxPageBytes)
	var raw string
	mediaType, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if mediaType == "text/plain" {
		data, err := io.ReadAll(body)
		if err != nil {
			return index.Document{}, fmt.Errorf("reading %s: %w", url, err)
		}
		raw = string(data)
	} else {
		raw, err = visibleText(body)
		if err != nil {
			return index.Document{}, fmt.Errorf("parsing %s: %w", url, err)
		}
	}

	return index.Document{
		URL:     url,
		Content: CleanContent(ExtractStrings(raw)),
	}, nil
}

// visibleText walks the token stream and keeps text outside script and
// style elements, one text token per line.
func visibleText(r io.Reader) (string, error) {
	z := html.NewTokenizer(r)
	var b strings.Builder
	skip := 0
	for {
		switch z.Next() {
		case html.ErrorToken:
			if err := z.Err(); err != io.EOF {
				return "", err
			}
			return b.String(), nil
		case html.StartTagToken:
			if name, _ := z.TagName(); isSkipped(name) {
				skip++
			}
		case html.EndTagToken:
			if name, _ := z.TagName(); isSkipped(name) && skip > 0 {
				skip--
			}
		case html.TextToken:
			if skip == 0 {
				b.Write(z.Text())
				b.WriteByte('\n')
			}
		}
	}
}

func isSkipped(tag []byte) bool {
	name := string(tag)
	return name == "script" || name == "style"
}
