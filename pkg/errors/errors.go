// Package errors defines the sentinel error taxonomy shared by the indexer
// and searcher, and its mapping onto HTTP status codes.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrStorageUnavailable = errors.New("storage unavailable")
	ErrMalformedInput     = errors.New("malformed input")
	ErrPartialIndex       = errors.New("document partially indexed")
	ErrInternal           = errors.New("internal error")
	ErrTimeout            = errors.New("operation timed out")
)

type AppError struct {
	Err        error
	Message    string
	StatusCode int
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Err.Error(), e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func New(sentinel error, statusCode int, message string) *AppError {
	return &AppError{
		Err:        sentinel,
		Message:    message,
		StatusCode: statusCode,
	}
}

func Newf(sentinel error, statusCode int, format string, args ...any) *AppError {
	return &AppError{
		Err:        sentinel,
		Message:    fmt.Sprintf(format, args...),
		StatusCode: statusCode,
	}
}

// Wrap annotates err with op and marks it with sentinel so callers can match
// either with errors.Is.
func Wrap(sentinel error, err error, op string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", op, sentinel, err)
}

func HTTPStatusCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}

	switch {
	// A storage call that ran out of time is still a storage fault.
	case errors.Is(err, ErrStorageUnavailable):
		return http.StatusInternalServerError
	case errors.Is(err, ErrTimeout):
		return http.StatusServiceUnavailable
	// Malformed input is not yet distinguished from storage faults; both
	// surface as a generic server failure.
	case errors.Is(err, ErrMalformedInput):
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
