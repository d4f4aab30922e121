package ai

import (
	"context"
	"strings"
	"time"

	"github.com/thomaskoefod/digestr/internal/sanitize"
)

const previewChars = 80

// EmbeddingBackend turns text into a vector. Implementations should honor ctx.
type EmbeddingBackend interface {
	Embed(ctx context.Context, text string) ([]float64, error)
}

// Embedder guards an EmbeddingBackend: it sanitizes and truncates input, bounds
// each call with a timeout and reports failures as *EmbeddingError.
type Embedder struct {
	backend  EmbeddingBackend
	maxChars int
	timeout  time.Duration
}

func NewEmbedder(backend EmbeddingBackend, maxChars int, timeout time.Duration) *Embedder {
	return &Embedder{backend: backend, maxChars: maxChars, timeout: timeout}
}

// Embed returns nil, nil for blank input without calling the backend. Any backend
// failure, including an empty vector, comes back as *EmbeddingError.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float64, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	input := sanitize.Truncate(sanitize.Text(text), e.maxChars)
	if input == "" {
		return nil, nil
	}

	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	vec, err := e.backend.Embed(ctx, input)
	if err == nil && len(vec) == 0 {
		err = ErrEmptyEmbedding
	}
	if err != nil {
		return nil, &EmbeddingError{
			InputLen: len([]rune(input)),
			Preview:  sanitize.Truncate(input, previewChars),
			Err:      err,
		}
	}
	return vec, nil
}
