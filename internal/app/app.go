// Package app wires configuration into the running components.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/thomaskoefod/digestr/internal/ai"
	"github.com/thomaskoefod/digestr/internal/config"
	"github.com/thomaskoefod/digestr/internal/database"
	"github.com/thomaskoefod/digestr/internal/digest"
	"github.com/thomaskoefod/digestr/internal/feed"
	"github.com/thomaskoefod/digestr/internal/ingest"
	"github.com/thomaskoefod/digestr/internal/mailer"
	"github.com/thomaskoefod/digestr/internal/ranking"
	"github.com/thomaskoefod/digestr/internal/scheduler"
	"github.com/thomaskoefod/digestr/pkg/models"
)

const feedTimeout = 30 * time.Second

// backend serves both embeddings and summaries.
type backend interface {
	ai.EmbeddingBackend
	ai.GenerationBackend
}

type App struct {
	Config     *config.Config
	Store      database.Store
	Logger     zerolog.Logger
	Embedder   *ai.Embedder
	Summarizer *ai.Summarizer
	Ranker     *ranking.Ranker
	Pipeline   *ingest.Pipeline

	closers []func() error
}

// New opens the store and builds the AI clients and pipelines.
func New(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*App, error) {
	store, err := database.Open(cfg.Database.Driver, cfg.Database.Path, cfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("opening %s store: %w", cfg.Database.Driver, err)
	}
	a := &App{Config: cfg, Store: store, Logger: logger}
	a.closers = append(a.closers, store.Close)
	logger.Info().Str("database", store.DatabaseType()).Msg("store ready")

	be, err := a.newBackend(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.Embedder = ai.NewEmbedder(be, cfg.AI.MaxInputChars, cfg.AI.Timeout)
	a.Summarizer = ai.NewSummarizer(be, cfg.AI.Timeout)
	a.Ranker = ranking.NewRanker(a.Embedder, ranking.Config{
		Threshold:        cfg.Ranking.Threshold,
		SimilarityWeight: cfg.Ranking.SimilarityWeight,
		FreshnessWeight:  cfg.Ranking.FreshnessWeight,
		ProfileContext:   cfg.Ranking.ProfileContext,
	}, time.Now, logger.With().Str("component", "ranker").Logger())
	a.Pipeline = ingest.NewPipeline(cfg.FeedURLs(), feed.NewFetcher(feedTimeout), a.Embedder, a.Summarizer, store, logger)

	return a, nil
}

func (a *App) newBackend(ctx context.Context) (backend, error) {
	switch a.Config.AI.Provider {
	case "gemini":
		g := a.Config.AI.Gemini
		client, err := ai.NewGeminiClient(ctx, g.APIKey, g.EmbeddingModel, g.SummaryModel)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, client.Close)
		return client, nil
	case "ollama", "":
		o := a.Config.AI.Ollama
		return ai.NewOllamaClient(o.Host, o.EmbeddingModel, o.SummaryModel), nil
	}
	return nil, fmt.Errorf("unknown ai provider %q", a.Config.AI.Provider)
}

// Sender returns the SMTP sender, or a logging sender for dry runs.
func (a *App) Sender(dryRun bool) mailer.Sender {
	if dryRun {
		return mailer.NewLogSender(a.Logger.With().Str("component", "mailer").Logger())
	}
	s := a.Config.SMTP
	return mailer.NewSMTPSender(s.Host, s.Port, s.Username, s.Password, s.From)
}

func (a *App) Dispatcher(sender mailer.Sender) *digest.Dispatcher {
	return digest.NewDispatcher(a.Store, a.Ranker, sender, a.Config.Schedule.Frequencies, time.Now, a.Logger)
}

// Scheduler registers the ingest job and one digest job per frequency.
// Jobs run under ctx, so canceling it stops manual and scheduled runs alike.
func (a *App) Scheduler(ctx context.Context, sender mailer.Sender) (*scheduler.Scheduler, error) {
	sc := a.Config.Schedule
	loc, err := time.LoadLocation(sc.Timezone)
	if err != nil {
		return nil, fmt.Errorf("loading timezone: %w", err)
	}

	s := scheduler.New(ctx, sc.CheckInterval, a.Logger.With().Str("component", "scheduler").Logger())
	s.Add("ingest", fmt.Sprintf("ingest feeds every %s", sc.IngestInterval), scheduler.Every(sc.IngestInterval),
		func(ctx context.Context) error {
			_, err := a.Pipeline.Run(ctx)
			return err
		})

	d := a.Dispatcher(sender)
	calendar := map[models.Frequency]struct {
		schedule scheduler.Schedule
		desc     string
	}{
		models.Daily:   {scheduler.DailyAt(sc.DigestHour, sc.DigestMinute, loc), "every day"},
		models.Weekly:  {scheduler.WeeklyAt(time.Monday, sc.DigestHour, sc.DigestMinute, loc), "every Monday"},
		models.Monthly: {scheduler.MonthlyAt(1, sc.DigestHour, sc.DigestMinute, loc), "on the 1st"},
	}
	for _, freq := range models.Frequencies {
		c := calendar[freq]
		s.Add(string(freq), fmt.Sprintf("%s digest %s at %02d:%02d %s", freq, c.desc, sc.DigestHour, sc.DigestMinute, loc), c.schedule,
			func(ctx context.Context) error {
				_, err := d.Run(ctx, freq)
				return err
			})
	}
	return s, nil
}

// Close releases the store and AI clients.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
