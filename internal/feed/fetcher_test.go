package feed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

const testRSS = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
<channel>
  <title>Test Feed</title>
  <link>https://example.com</link>
  <description>test</description>
  <item>
    <title>Shipping containers with Docker</title>
    <link>https://example.com/docker</link>
    <description>&lt;p&gt;Build smaller images&lt;/p&gt;</description>
    <pubDate>Mon, 06 May 2024 10:00:00 GMT</pubDate>
  </item>
  <item>
    <title>Undated post</title>
    <link>https://example.com/undated</link>
    <description>no date here</description>
  </item>
  <item>
    <title>No link</title>
    <description>missing link</description>
    <pubDate>Mon, 06 May 2024 11:00:00 GMT</pubDate>
  </item>
</channel>
</rss>`

func TestEntries(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		w.Write([]byte(testRSS))
	}))
	defer srv.Close()

	entries, err := NewFetcher(5*time.Second).Entries(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Entries failed: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("Expected 1 dated entry, got %d: %+v", len(entries), entries)
	}

	e := entries[0]
	if e.Title != "Shipping containers with Docker" || e.Link != "https://example.com/docker" {
		t.Errorf("Unexpected entry %+v", e)
	}
	if e.Summary != "<p>Build smaller images</p>" {
		t.Errorf("Expected raw description, got %q", e.Summary)
	}
	want := time.Date(2024, 5, 6, 10, 0, 0, 0, time.UTC)
	if !e.Published.Equal(want) {
		t.Errorf("Expected published %v, got %v", want, e.Published)
	}
	if e.FeedURL != srv.URL {
		t.Errorf("Expected feed URL %q, got %q", srv.URL, e.FeedURL)
	}
}

func TestEntriesHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusGone)
	}))
	defer srv.Close()

	if _, err := NewFetcher(5*time.Second).Entries(context.Background(), srv.URL); err == nil {
		t.Error("Expected error for failing feed")
	}
}
