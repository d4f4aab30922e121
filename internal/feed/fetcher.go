package feed

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/mmcdole/gofeed"
	"github.com/thomaskoefod/digestr/pkg/models"
)

type Fetcher struct {
	parser *gofeed.Parser
}

func NewFetcher(timeout time.Duration) *Fetcher {
	parser := gofeed.NewParser()
	parser.Client = &http.Client{Timeout: timeout}
	parser.UserAgent = "digestr/1.0"
	return &Fetcher{parser: parser}
}

// FetchFeed fetches and parses an RSS feed
func (f *Fetcher) FetchFeed(ctx context.Context, feedURL string) (*gofeed.Feed, error) {
	feed, err := f.parser.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		return nil, fmt.Errorf("parsing feed %s: %w", feedURL, err)
	}
	return feed, nil
}

// Entries fetches a feed and returns the items that carry a publish date
func (f *Fetcher) Entries(ctx context.Context, feedURL string) ([]models.FeedEntry, error) {
	rssFeed, err := f.FetchFeed(ctx, feedURL)
	if err != nil {
		return nil, err
	}

	entries := make([]models.FeedEntry, 0, len(rssFeed.Items))
	for _, item := range rssFeed.Items {
		entry, ok := convertToEntry(item, feedURL)
		if !ok {
			continue
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// convertToEntry converts a gofeed.Item to a FeedEntry. Items without a
// parsable published time or a link are dropped.
func convertToEntry(item *gofeed.Item, feedURL string) (models.FeedEntry, bool) {
	if item == nil || item.PublishedParsed == nil || item.Link == "" {
		return models.FeedEntry{}, false
	}

	// Prefer the description; some feeds only fill content.
	summary := item.Description
	if summary == "" {
		summary = item.Content
	}

	return models.FeedEntry{
		FeedURL:   feedURL,
		Title:     item.Title,
		Link:      item.Link,
		Published: item.PublishedParsed.UTC(),
		Summary:   summary,
	}, true
}
