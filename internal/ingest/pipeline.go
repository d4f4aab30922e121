// Package ingest pulls feed entries, embeds and summarizes the new ones and
// stores them as posts.
package ingest

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/thomaskoefod/digestr/pkg/models"
)

// Source yields the dated entries of one feed.
type Source interface {
	Entries(ctx context.Context, feedURL string) ([]models.FeedEntry, error)
}

type Embedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)
}

type Summarizer interface {
	Summarize(ctx context.Context, title, link string) (string, error)
}

// PostStore is the part of database.Store the pipeline writes to.
type PostStore interface {
	PostExists(ctx context.Context, url string) (bool, error)
	InsertPost(ctx context.Context, post *models.Post) (bool, error)
}

// Stats counts what one run did.
type Stats struct {
	RunID      string        `json:"run_id"`
	Feeds      int           `json:"feeds"`
	FeedErrors int           `json:"feed_errors"`
	Entries    int           `json:"entries"`
	Skipped    int           `json:"skipped"`
	Failed     int           `json:"failed"`
	Inserted   int           `json:"inserted"`
	Duration   time.Duration `json:"duration"`
}

type Pipeline struct {
	feeds      []string
	source     Source
	embedder   Embedder
	summarizer Summarizer
	store      PostStore
	logger     zerolog.Logger
}

func NewPipeline(feeds []string, source Source, embedder Embedder, summarizer Summarizer, store PostStore, logger zerolog.Logger) *Pipeline {
	return &Pipeline{
		feeds:      feeds,
		source:     source,
		embedder:   embedder,
		summarizer: summarizer,
		store:      store,
		logger:     logger.With().Str("job", "ingest").Logger(),
	}
}

// Run processes every configured feed once. Feed and entry failures are logged
// and skipped; only cancellation of ctx ends the run early.
func (p *Pipeline) Run(ctx context.Context) (Stats, error) {
	start := time.Now()
	stats := Stats{RunID: uuid.NewString()}
	log := p.logger.With().Str("run_id", stats.RunID).Logger()
	log.Info().Int("feeds", len(p.feeds)).Msg("ingestion started")

	for _, feedURL := range p.feeds {
		if err := ctx.Err(); err != nil {
			stats.Duration = time.Since(start)
			return stats, err
		}
		stats.Feeds++

		entries, err := p.source.Entries(ctx, feedURL)
		if err != nil {
			stats.FeedErrors++
			log.Error().Err(err).Str("feed", feedURL).Msg("failed to fetch feed")
			continue
		}
		stats.Entries += len(entries)

		for _, entry := range entries {
			if err := ctx.Err(); err != nil {
				stats.Duration = time.Since(start)
				return stats, err
			}
			p.processEntry(ctx, log, entry, &stats)
		}
	}

	stats.Duration = time.Since(start)
	log.Info().
		Int("inserted", stats.Inserted).
		Int("skipped", stats.Skipped).
		Int("failed", stats.Failed).
		Int("feed_errors", stats.FeedErrors).
		Dur("duration", stats.Duration).
		Msg("ingestion finished")
	return stats, nil
}

func (p *Pipeline) processEntry(ctx context.Context, log zerolog.Logger, entry models.FeedEntry, stats *Stats) {
	elog := log.With().Str("url", entry.Link).Logger()

	exists, err := p.store.PostExists(ctx, entry.Link)
	if err != nil {
		stats.Failed++
		elog.Error().Err(err).Msg("failed to check cache")
		return
	}
	if exists {
		stats.Skipped++
		elog.Debug().Msg("already cached")
		return
	}

	embedding, err := p.embedder.Embed(ctx, entry.Title+" "+entry.Summary)
	if err != nil {
		stats.Failed++
		elog.Warn().Err(err).Msg("embedding failed, will retry next run")
		return
	}
	if len(embedding) == 0 {
		stats.Failed++
		elog.Warn().Msg("entry has no text to embed")
		return
	}

	summary, err := p.summarizer.Summarize(ctx, entry.Title, entry.Link)
	if err != nil {
		stats.Failed++
		elog.Warn().Err(err).Msg("summary failed, will retry next run")
		return
	}

	post := &models.Post{
		URL:         entry.Link,
		Title:       entry.Title,
		PublishedAt: entry.Published,
		Summary:     summary,
		Embedding:   embedding,
	}
	inserted, err := p.store.InsertPost(ctx, post)
	switch {
	case err != nil:
		stats.Failed++
		elog.Error().Err(err).Msg("failed to store post")
	case !inserted:
		// Another writer stored it between the cache check and now.
		stats.Skipped++
	default:
		stats.Inserted++
		elog.Info().Str("title", post.Title).Msg("post stored")
	}
}
