package ai

import (
	"errors"
	"fmt"
)

// ErrEmptyEmbedding is returned when a backend answers with no vector.
var ErrEmptyEmbedding = errors.New("backend returned an empty embedding")

// StatusError is a non-2xx answer from an HTTP backend.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("backend error (status %d): %s", e.StatusCode, e.Body)
}

// EmbeddingError wraps a backend failure with enough of the input to find it in logs.
type EmbeddingError struct {
	InputLen int
	Preview  string
	Err      error
}

func (e *EmbeddingError) Error() string {
	return fmt.Sprintf("embedding failed for input of %d chars (%q): %v", e.InputLen, e.Preview, e.Err)
}

func (e *EmbeddingError) Unwrap() error { return e.Err }

// SummaryError wraps a summary backend failure.
type SummaryError struct {
	Title string
	Err   error
}

func (e *SummaryError) Error() string {
	return fmt.Sprintf("summary failed for %q: %v", e.Title, e.Err)
}

func (e *SummaryError) Unwrap() error { return e.Err }
