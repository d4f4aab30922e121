// Package digest ranks fresh posts for every user on a frequency and mails them.
package digest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/thomaskoefod/digestr/internal/config"
	"github.com/thomaskoefod/digestr/internal/mailer"
	"github.com/thomaskoefod/digestr/pkg/models"
)

// Store is the part of database.Store the dispatcher needs.
type Store interface {
	ListUsersByFrequency(ctx context.Context, freq models.Frequency) ([]models.User, error)
	GetInterests(ctx context.Context, userID int64) ([]string, error)
	ListPosts(ctx context.Context) ([]models.Post, error)
	SentURLs(ctx context.Context, userID int64) (map[string]bool, error)
	RecordSent(ctx context.Context, userID int64, urls []string, sentAt time.Time) error
}

type Ranker interface {
	Rank(ctx context.Context, interests []string, candidates []models.Post, cutoff time.Time, sent map[string]bool, max int) ([]models.RankedPost, error)
}

// Report summarizes one dispatch run.
type Report struct {
	RunID     string           `json:"run_id"`
	Frequency models.Frequency `json:"frequency"`
	Users     int              `json:"users"`
	Sent      int              `json:"sent"`
	Empty     int              `json:"empty"`
	Failed    int              `json:"failed"`
	Posts     int              `json:"posts"`
}

type Dispatcher struct {
	store       Store
	ranker      Ranker
	sender      mailer.Sender
	frequencies map[models.Frequency]config.FrequencyConfig
	now         func() time.Time
	logger      zerolog.Logger
}

func NewDispatcher(store Store, ranker Ranker, sender mailer.Sender, frequencies map[models.Frequency]config.FrequencyConfig, now func() time.Time, logger zerolog.Logger) *Dispatcher {
	if now == nil {
		now = time.Now
	}
	return &Dispatcher{
		store:       store,
		ranker:      ranker,
		sender:      sender,
		frequencies: frequencies,
		now:         now,
		logger:      logger,
	}
}

// Window returns the recency window and cap configured for freq.
func (d *Dispatcher) Window(freq models.Frequency) (config.FrequencyConfig, error) {
	w, ok := d.frequencies[freq]
	if !ok {
		return config.FrequencyConfig{}, fmt.Errorf("no digest window configured for %q", freq)
	}
	return w, nil
}

// Run sends one digest to every user subscribed at freq. A user whose ranking,
// delivery or bookkeeping fails is logged and skipped; the run carries on.
func (d *Dispatcher) Run(ctx context.Context, freq models.Frequency) (Report, error) {
	report := Report{RunID: uuid.NewString(), Frequency: freq}
	log := d.logger.With().Str("job", string(freq)).Str("run_id", report.RunID).Logger()

	window, err := d.Window(freq)
	if err != nil {
		return report, err
	}

	users, err := d.store.ListUsersByFrequency(ctx, freq)
	if err != nil {
		return report, fmt.Errorf("loading %s users: %w", freq, err)
	}
	if len(users) == 0 {
		log.Info().Msg("no subscribers")
		return report, nil
	}

	posts, err := d.store.ListPosts(ctx)
	if err != nil {
		return report, fmt.Errorf("loading posts: %w", err)
	}

	cutoff := d.cutoff(window.DaysBack)
	log.Info().
		Int("users", len(users)).
		Int("candidates", len(posts)).
		Time("cutoff", cutoff).
		Msg("digest run started")

	for _, user := range users {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		report.Users++

		ulog := log.With().Int64("user_id", user.ID).Logger()
		ranked, err := d.rankUser(ctx, user, posts, cutoff, window.MaxResults)
		if err != nil {
			report.Failed++
			ulog.Error().Err(err).Msg("ranking failed")
			continue
		}
		if len(ranked) == 0 {
			report.Empty++
			ulog.Info().Msg("no relevant posts")
			continue
		}

		sent, err := d.deliver(ctx, user, freq, ranked)
		if err != nil {
			report.Failed++
			var sendErr *mailer.SendError
			if errors.As(err, &sendErr) {
				ulog.Error().Err(err).Msg("delivery failed, user stays eligible")
			} else {
				ulog.Error().Err(err).Msg("digest failed")
			}
			continue
		}
		report.Sent++
		report.Posts += sent
		ulog.Info().Int("posts", sent).Msg("digest sent")
	}

	log.Info().
		Int("sent", report.Sent).
		Int("empty", report.Empty).
		Int("failed", report.Failed).
		Msg("digest run finished")
	return report, nil
}

// Preview ranks and renders a user's next digest without sending or recording it.
func (d *Dispatcher) Preview(ctx context.Context, user models.User) ([]models.RankedPost, mailer.Message, error) {
	window, err := d.Window(user.Frequency)
	if err != nil {
		return nil, mailer.Message{}, err
	}
	posts, err := d.store.ListPosts(ctx)
	if err != nil {
		return nil, mailer.Message{}, fmt.Errorf("loading posts: %w", err)
	}

	cutoff := d.cutoff(window.DaysBack)
	ranked, err := d.rankUser(ctx, user, posts, cutoff, window.MaxResults)
	if err != nil {
		return nil, mailer.Message{}, err
	}
	msg, err := Render(user.Email, user.Frequency, ranked)
	if err != nil {
		return nil, mailer.Message{}, err
	}
	return ranked, msg, nil
}

// cutoff is exactly daysBack 24h days before now, so DST shifts don't move it.
func (d *Dispatcher) cutoff(daysBack int) time.Time {
	return d.now().UTC().Add(-time.Duration(daysBack) * 24 * time.Hour)
}

func (d *Dispatcher) rankUser(ctx context.Context, user models.User, posts []models.Post, cutoff time.Time, max int) ([]models.RankedPost, error) {
	interests, err := d.store.GetInterests(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("loading interests: %w", err)
	}
	if len(interests) == 0 {
		return nil, nil
	}

	sent, err := d.store.SentURLs(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("loading sent posts: %w", err)
	}

	return d.ranker.Rank(ctx, interests, posts, cutoff, sent, max)
}

// deliver sends the digest, then records what was sent. Nothing is recorded
// unless the send succeeded.
func (d *Dispatcher) deliver(ctx context.Context, user models.User, freq models.Frequency, ranked []models.RankedPost) (int, error) {
	msg, err := Render(user.Email, freq, ranked)
	if err != nil {
		return 0, err
	}
	if err := d.sender.Send(ctx, msg); err != nil {
		return 0, err
	}

	urls := make([]string, len(ranked))
	for i, p := range ranked {
		urls[i] = p.Post.URL
	}
	// The email is already out; a failure here can mean a repeat next run.
	if err := d.store.RecordSent(ctx, user.ID, urls, d.now()); err != nil {
		return 0, fmt.Errorf("recording sent posts after delivery: %w", err)
	}
	return len(urls), nil
}
