// Package validator checks index requests before they reach the engine. It
// returns per-field error details; the error matches ErrMalformedInput.
package validator

import (
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/asuracrow-search/internal/indexer/index"
	apperrors "github.com/Adithya-Monish-Kumar-K/asuracrow-search/pkg/errors"
)

const (
	maxURLLength     = 2048
	maxContentLength = 8 << 20
)

// ValidationError holds per-field validation failure messages.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	fields := make([]string, 0, len(e.Fields))
	for field := range e.Fields {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	parts := make([]string, 0, len(fields))
	for _, field := range fields {
		parts = append(parts, fmt.Sprintf("%s: %s", field, e.Fields[field]))
	}
	return strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error {
	return apperrors.ErrMalformedInput
}

// ValidateDocument requires a non-blank, parseable url of bounded length and
// bounds the content size. Empty content is accepted: the document is
// counted in the corpus but contributes no postings.
func ValidateDocument(doc index.Document) error {
	errs := make(map[string]string)

	switch u := strings.TrimSpace(doc.URL); {
	case u == "":
		errs["url"] = "url is required"
	case len(u) > maxURLLength:
		errs["url"] = fmt.Sprintf("url must be at most %d characters", maxURLLength)
	default:
		if _, err := url.Parse(u); err != nil {
			errs["url"] = "url is not parseable"
		}
	}
	if len(doc.Content) > maxContentLength {
		errs["content"] = fmt.Sprintf("content must be at most %d bytes", maxContentLength)
	}
	if len(errs) > 0 {
		return &ValidationError{Fields: errs}
	}
	return nil
}
