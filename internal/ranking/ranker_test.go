package ranking

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/thomaskoefod/digestr/pkg/models"
)

var testNow = time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

type stubEmbedder struct {
	vec   []float64
	err   error
	calls int
	last  string
}

func (s *stubEmbedder) Embed(_ context.Context, text string) ([]float64, error) {
	s.calls++
	s.last = text
	return s.vec, s.err
}

func defaultConfig() Config {
	return Config{
		Threshold:        0.65,
		SimilarityWeight: 0.8,
		FreshnessWeight:  0.2,
		ProfileContext:   "Interested in: %s",
	}
}

func newTestRanker(emb Embedder, cfg Config) *Ranker {
	return NewRanker(emb, cfg, func() time.Time { return testNow }, zerolog.Nop())
}

// withSimilarity returns a unit vector whose cosine with [1, 0] is sim.
func withSimilarity(sim float64) []float64 {
	return []float64{sim, math.Sqrt(1 - sim*sim)}
}

func post(url string, sim float64, age time.Duration) models.Post {
	return models.Post{
		URL:         url,
		Title:       url,
		PublishedAt: testNow.Add(-age),
		Embedding:   withSimilarity(sim),
	}
}

func urls(ranked []models.RankedPost) []string {
	out := make([]string, len(ranked))
	for i, r := range ranked {
		out[i] = r.Post.URL
	}
	return out
}

func TestRankScoreScenario(t *testing.T) {
	emb := &stubEmbedder{vec: []float64{1, 0}}
	r := newTestRanker(emb, defaultConfig())

	candidates := []models.Post{
		post("https://low", 0.5, 0),
		post("https://k8s", 0.9, 0),
	}
	ranked, err := r.Rank(context.Background(), []string{"docker", "kubernetes"}, candidates, testNow.AddDate(0, 0, -7), nil, 6)
	if err != nil {
		t.Fatalf("Rank failed: %v", err)
	}
	if len(ranked) != 1 || ranked[0].Post.URL != "https://k8s" {
		t.Fatalf("Expected only the kubernetes post, got %v", urls(ranked))
	}
	got := ranked[0]
	if math.Abs(got.Freshness-1.0) > 1e-9 {
		t.Errorf("Expected freshness 1.0, got %v", got.Freshness)
	}
	if math.Abs(got.Score-0.92) > 1e-9 {
		t.Errorf("Expected score 0.92, got %v", got.Score)
	}

	// With the threshold lowered, the 0.60 post is kept but ranked below.
	cfg := defaultConfig()
	cfg.Threshold = 0
	ranked, err = newTestRanker(emb, cfg).Rank(context.Background(), []string{"docker"}, candidates, testNow.AddDate(0, 0, -7), nil, 6)
	if err != nil {
		t.Fatalf("Rank failed: %v", err)
	}
	if strings.Join(urls(ranked), ",") != "https://k8s,https://low" {
		t.Errorf("Unexpected order %v", urls(ranked))
	}
	if math.Abs(ranked[1].Score-0.60) > 1e-9 {
		t.Errorf("Expected score 0.60, got %v", ranked[1].Score)
	}
}

func TestRankExcludesBeforeCutoff(t *testing.T) {
	r := newTestRanker(&stubEmbedder{vec: []float64{1, 0}}, defaultConfig())

	candidates := []models.Post{post("https://old", 1.0, 40*24*time.Hour)}
	ranked, err := r.Rank(context.Background(), []string{"kubernetes"}, candidates, testNow.AddDate(0, 0, -7), nil, 6)
	if err != nil {
		t.Fatalf("Rank failed: %v", err)
	}
	if len(ranked) != 0 {
		t.Errorf("Expected 40-day-old post to be excluded, got %v", urls(ranked))
	}
}

func TestRankExcludesSent(t *testing.T) {
	r := newTestRanker(&stubEmbedder{vec: []float64{1, 0}}, defaultConfig())

	candidates := []models.Post{
		post("https://a", 0.95, time.Hour),
		post("https://b", 0.95, time.Hour),
	}
	sent := map[string]bool{"https://a": true}
	ranked, err := r.Rank(context.Background(), []string{"go"}, candidates, testNow.AddDate(0, 0, -1), sent, 6)
	if err != nil {
		t.Fatalf("Rank failed: %v", err)
	}
	if strings.Join(urls(ranked), ",") != "https://b" {
		t.Errorf("Expected only unsent post, got %v", urls(ranked))
	}
}

func TestRankCapAndOrdering(t *testing.T) {
	r := newTestRanker(&stubEmbedder{vec: []float64{1, 0}}, defaultConfig())

	candidates := []models.Post{
		post("https://c", 0.85, 0),
		post("https://a", 0.99, 0),
		post("https://b", 0.92, 0),
		post("https://d", 0.80, 0),
	}
	ranked, err := r.Rank(context.Background(), []string{"go"}, candidates, testNow.AddDate(0, 0, -1), nil, 2)
	if err != nil {
		t.Fatalf("Rank failed: %v", err)
	}
	if strings.Join(urls(ranked), ",") != "https://a,https://b" {
		t.Errorf("Expected top two by score, got %v", urls(ranked))
	}
	for i := 1; i < len(ranked); i++ {
		if ranked[i].Score > ranked[i-1].Score {
			t.Errorf("Scores not descending at %d: %v > %v", i, ranked[i].Score, ranked[i-1].Score)
		}
	}
}

func TestRankTieBreak(t *testing.T) {
	r := newTestRanker(&stubEmbedder{vec: []float64{1, 0}}, defaultConfig())

	// Same day, same similarity: equal scores. Newer first, then input order.
	candidates := []models.Post{
		post("https://older", 0.9, 3*time.Hour),
		post("https://first", 0.9, time.Hour),
		post("https://second", 0.9, time.Hour),
	}
	ranked, err := r.Rank(context.Background(), []string{"go"}, candidates, testNow.AddDate(0, 0, -1), nil, 10)
	if err != nil {
		t.Fatalf("Rank failed: %v", err)
	}
	want := "https://first,https://second,https://older"
	if got := strings.Join(urls(ranked), ","); got != want {
		t.Errorf("Expected %s, got %s", want, got)
	}
}

func TestRankEmptyInputs(t *testing.T) {
	emb := &stubEmbedder{vec: []float64{1, 0}}
	r := newTestRanker(emb, defaultConfig())
	candidates := []models.Post{post("https://a", 0.99, 0)}

	tests := []struct {
		name      string
		interests []string
		max       int
	}{
		{"no interests", nil, 5},
		{"zero max", []string{"go"}, 0},
		{"negative max", []string{"go"}, -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ranked, err := r.Rank(context.Background(), tt.interests, candidates, testNow.AddDate(0, 0, -1), nil, tt.max)
			if err != nil {
				t.Fatalf("Rank failed: %v", err)
			}
			if ranked == nil || len(ranked) != 0 {
				t.Errorf("Expected empty non-nil result, got %v", ranked)
			}
		})
	}
	if emb.calls != 0 {
		t.Errorf("Embedder should not be called for empty inputs, got %d calls", emb.calls)
	}
}

func TestRankProfileEmbeddingFailure(t *testing.T) {
	cause := errors.New("ollama down")
	r := newTestRanker(&stubEmbedder{err: cause}, defaultConfig())

	_, err := r.Rank(context.Background(), []string{"go"}, nil, testNow, nil, 2)
	if !errors.Is(err, ErrProfileEmbedding) {
		t.Errorf("Expected ErrProfileEmbedding, got %v", err)
	}
	if !errors.Is(err, cause) {
		t.Errorf("Expected cause to be wrapped, got %v", err)
	}
}

func TestRankMismatchedDimensionsScoreZeroSimilarity(t *testing.T) {
	r := newTestRanker(&stubEmbedder{vec: []float64{1, 0, 0}}, defaultConfig())

	candidates := []models.Post{post("https://a", 0.99, 0)}
	ranked, err := r.Rank(context.Background(), []string{"go"}, candidates, testNow.AddDate(0, 0, -1), nil, 2)
	if err != nil {
		t.Fatalf("Rank failed: %v", err)
	}
	// Similarity 0 leaves only 0.2 freshness, under the threshold.
	if len(ranked) != 0 {
		t.Errorf("Expected no results, got %v", urls(ranked))
	}
}

func TestProfileText(t *testing.T) {
	emb := &stubEmbedder{vec: []float64{1, 0}}
	r := newTestRanker(emb, defaultConfig())

	if _, err := r.Rank(context.Background(), []string{"docker", "kubernetes", "docker"}, nil, testNow, nil, 2); err != nil {
		t.Fatalf("Rank failed: %v", err)
	}
	if emb.last != "Interested in: docker, kubernetes, docker" {
		t.Errorf("Unexpected profile text %q", emb.last)
	}
	if got := ProfileText("", []string{"a", "b"}); got != "a, b" {
		t.Errorf("Expected bare join without template, got %q", got)
	}
}

func TestFreshness(t *testing.T) {
	tests := []struct {
		age  time.Duration
		want float64
	}{
		{0, 1},
		{23 * time.Hour, 1},
		{24 * time.Hour, 0.5},
		{47 * time.Hour, 0.5},
		{9 * 24 * time.Hour, 0.1},
		{-48 * time.Hour, 1},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.age), func(t *testing.T) {
			got := Freshness(testNow, testNow.Add(-tt.age))
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("Freshness(%v) = %v, want %v", tt.age, got, tt.want)
			}
		})
	}
}
