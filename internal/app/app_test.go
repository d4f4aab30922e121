package app

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/thomaskoefod/digestr/internal/config"
	"github.com/thomaskoefod/digestr/internal/mailer"
)

func newTestApp(t *testing.T) *App {
	t.Helper()
	cfg := config.Default()
	cfg.Database.Path = filepath.Join(t.TempDir(), "app.db")

	a, err := New(context.Background(), cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	t.Cleanup(func() { a.Close() })
	return a
}

func TestNewWiresComponents(t *testing.T) {
	a := newTestApp(t)

	if a.Store.DatabaseType() != "SQLite" {
		t.Errorf("Expected SQLite store, got %s", a.Store.DatabaseType())
	}
	if a.Embedder == nil || a.Summarizer == nil || a.Ranker == nil || a.Pipeline == nil {
		t.Error("Expected every component to be built")
	}
}

func TestSchedulerRegistersJobs(t *testing.T) {
	a := newTestApp(t)

	s, err := a.Scheduler(context.Background(), a.Sender(true))
	if err != nil {
		t.Fatalf("Scheduler failed: %v", err)
	}

	statuses := s.Status()
	want := []string{"daily", "ingest", "monthly", "weekly"}
	if len(statuses) != len(want) {
		t.Fatalf("Expected %d jobs, got %d", len(want), len(statuses))
	}
	for i, name := range want {
		if statuses[i].Name != name {
			t.Errorf("Job %d: expected %s, got %s", i, name, statuses[i].Name)
		}
		if statuses[i].NextRun.IsZero() {
			t.Errorf("Job %s has no next run", name)
		}
	}
}

func TestSender(t *testing.T) {
	a := newTestApp(t)

	if _, ok := a.Sender(true).(*mailer.LogSender); !ok {
		t.Error("Dry run should use the log sender")
	}
	if _, ok := a.Sender(false).(*mailer.SMTPSender); !ok {
		t.Error("Expected the SMTP sender")
	}
}

func TestNewRejectsUnknownProvider(t *testing.T) {
	cfg := config.Default()
	cfg.Database.Path = filepath.Join(t.TempDir(), "app.db")
	cfg.AI.Provider = "openai"

	if _, err := New(context.Background(), cfg, zerolog.Nop()); err == nil {
		t.Error("Expected error for unknown provider")
	}
}
