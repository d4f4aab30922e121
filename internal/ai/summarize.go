package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// GenerationBackend completes a prompt.
type GenerationBackend interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

const summaryPrompt = `Summarize this tech article for developers.

Provide:
- One TLDR line
- 3 key insights
- Why it matters

Title: %s
Link: %s
`

// SummaryPrompt builds the instruction sent to the summary backend.
func SummaryPrompt(title, link string) string {
	return fmt.Sprintf(summaryPrompt, title, link)
}

type Summarizer struct {
	backend GenerationBackend
	timeout time.Duration
}

func NewSummarizer(backend GenerationBackend, timeout time.Duration) *Summarizer {
	return &Summarizer{backend: backend, timeout: timeout}
}

// Summarize asks the backend for a developer-oriented summary of the article.
func (s *Summarizer) Summarize(ctx context.Context, title, link string) (string, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	out, err := s.backend.Generate(ctx, SummaryPrompt(title, link))
	if err == nil && strings.TrimSpace(out) == "" {
		err = errors.New("backend returned an empty summary")
	}
	if err != nil {
		return "", &SummaryError{Title: title, Err: err}
	}
	return strings.TrimSpace(out), nil
}
