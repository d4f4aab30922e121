package models

import (
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"
)

var (
	ErrInvalidEmail = errors.New("invalid email address")
	ErrNoInterests  = errors.New("at least one interest is required")
)

// Frequency is how often a user receives a digest.
type Frequency string

const (
	Daily   Frequency = "daily"
	Weekly  Frequency = "weekly"
	Monthly Frequency = "monthly"
)

// Frequencies lists every supported digest frequency.
var Frequencies = []Frequency{Daily, Weekly, Monthly}

// ParseFrequency accepts a frequency label in any case.
func ParseFrequency(s string) (Frequency, error) {
	f := Frequency(strings.ToLower(strings.TrimSpace(s)))
	switch f {
	case Daily, Weekly, Monthly:
		return f, nil
	}
	return "", fmt.Errorf("unknown frequency %q", s)
}

// NormalizeEmail lower-cases and trims an address for lookups.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// NormalizeRegistration validates a sign-up. It returns the bare, lower-cased
// address and the trimmed, non-empty interests.
func NormalizeRegistration(email string, interests []string) (string, []string, error) {
	addr, err := mail.ParseAddress(strings.TrimSpace(email))
	if err != nil {
		return "", nil, ErrInvalidEmail
	}

	var keywords []string
	for _, kw := range interests {
		if kw = strings.TrimSpace(kw); kw != "" {
			keywords = append(keywords, kw)
		}
	}
	if len(keywords) == 0 {
		return "", nil, ErrNoInterests
	}
	return strings.ToLower(addr.Address), keywords, nil
}

// Title returns the label with a leading capital, e.g. "Weekly".
func (f Frequency) Title() string {
	if f == "" {
		return ""
	}
	return strings.ToUpper(string(f[:1])) + string(f[1:])
}

type User struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	Frequency Frequency `json:"frequency"`
	CreatedAt time.Time `json:"created_at"`
}

type Interest struct {
	ID      int64  `json:"id"`
	UserID  int64  `json:"user_id"`
	Keyword string `json:"keyword"`
}

// Post is an ingested article. It is stored once per URL, fully processed.
type Post struct {
	ID          int64     `json:"id"`
	URL         string    `json:"url"`
	Title       string    `json:"title"`
	PublishedAt time.Time `json:"published_at"`
	Summary     string    `json:"summary"`
	Embedding   []float64 `json:"embedding,omitempty"`
}

type SentPost struct {
	ID      int64     `json:"id"`
	UserID  int64     `json:"user_id"`
	PostURL string    `json:"post_url"`
	SentAt  time.Time `json:"sent_at"`
}

// RankedPost is a candidate that survived ranking, with its score parts.
type RankedPost struct {
	Post       Post    `json:"post"`
	Similarity float64 `json:"similarity"`
	Freshness  float64 `json:"freshness"`
	Score      float64 `json:"score"`
}

// FeedEntry is the subset of a feed item the ingestion pipeline needs.
type FeedEntry struct {
	FeedURL   string    `json:"feed_url"`
	Title     string    `json:"title"`
	Link      string    `json:"link"`
	Published time.Time `json:"published"`
	Summary   string    `json:"summary"`
}
