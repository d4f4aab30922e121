// Package ranking scores stored posts against a user's interest profile.
//
// A post's score blends semantic similarity with freshness:
//
//	similarity = cos(profile, post)
//	freshness  = 1 / (1 + daysOld)
//	score      = w_sim*similarity + w_fresh*freshness
//
// Posts older than the cutoff, already sent to the user, or scoring below
// the threshold are dropped. Survivors are ordered by score, then by
// publish time, then by their position in the candidate list.
package ranking

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/thomaskoefod/digestr/internal/ai"
	"github.com/thomaskoefod/digestr/pkg/models"
)

// ErrProfileEmbedding marks a failure to embed the user's interest profile.
var ErrProfileEmbedding = errors.New("profile embedding failed")

// Embedder produces the profile vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)
}

type Config struct {
	Threshold        float64
	SimilarityWeight float64
	FreshnessWeight  float64
	// ProfileContext is a format string with one %s for the joined keywords.
	ProfileContext string
}

type Ranker struct {
	embedder Embedder
	cfg      Config
	now      func() time.Time
	logger   zerolog.Logger
}

// NewRanker builds a Ranker. A nil now uses time.Now.
func NewRanker(embedder Embedder, cfg Config, now func() time.Time, logger zerolog.Logger) *Ranker {
	if now == nil {
		now = time.Now
	}
	return &Ranker{embedder: embedder, cfg: cfg, now: now, logger: logger}
}

// ProfileText renders the interest keywords into the profile template.
func ProfileText(template string, interests []string) string {
	joined := strings.Join(interests, ", ")
	if template == "" {
		return joined
	}
	return fmt.Sprintf(template, joined)
}

// Freshness is 1/(1+daysOld) where daysOld is whole days elapsed, never negative.
func Freshness(now, published time.Time) float64 {
	days := math.Floor(now.Sub(published).Hours() / 24)
	if days < 0 {
		days = 0
	}
	return 1 / (1 + days)
}

// Rank returns at most max posts for a user. An empty result with a nil error
// means nothing qualified.
func (r *Ranker) Rank(ctx context.Context, interests []string, candidates []models.Post, cutoff time.Time, sent map[string]bool, max int) ([]models.RankedPost, error) {
	if len(interests) == 0 || max <= 0 {
		return []models.RankedPost{}, nil
	}

	profile, err := r.embedder.Embed(ctx, ProfileText(r.cfg.ProfileContext, interests))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrProfileEmbedding, err)
	}
	if len(profile) == 0 {
		r.logger.Warn().Msg("profile embedding is empty, nothing to rank")
		return []models.RankedPost{}, nil
	}

	now := r.now()
	ranked := make([]models.RankedPost, 0, len(candidates))
	for _, post := range candidates {
		if post.PublishedAt.Before(cutoff) {
			continue
		}
		if sent[post.URL] {
			continue
		}

		sim := ai.CosineSimilarity(profile, post.Embedding)
		fresh := Freshness(now, post.PublishedAt)
		score := r.cfg.SimilarityWeight*sim + r.cfg.FreshnessWeight*fresh
		if score < r.cfg.Threshold {
			r.logger.Debug().
				Str("url", post.URL).
				Float64("score", score).
				Msg("below threshold")
			continue
		}

		ranked = append(ranked, models.RankedPost{
			Post:       post,
			Similarity: sim,
			Freshness:  fresh,
			Score:      score,
		})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		return ranked[i].Post.PublishedAt.After(ranked[j].Post.PublishedAt)
	})

	if len(ranked) > max {
		ranked = ranked[:max]
	}
	return ranked, nil
}
