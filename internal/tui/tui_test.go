package tui

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/thomaskoefod/digestr/internal/digest"
	"github.com/thomaskoefod/digestr/internal/mailer"
	"github.com/thomaskoefod/digestr/pkg/models"
)

func samplePreview(t *testing.T) ([]models.RankedPost, mailer.Message) {
	t.Helper()
	posts := []models.RankedPost{
		{
			Post: models.Post{
				URL:         "https://example.com/k8s",
				Title:       "Kubernetes operators",
				PublishedAt: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
				Summary:     "TLDR: operators automate day-2 work.",
			},
			Similarity: 0.9, Freshness: 1, Score: 0.92,
		},
	}
	msg, err := digest.Render("dev@example.com", models.Weekly, posts)
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	return posts, msg
}

func key(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func update(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, _ := m.Update(msg)
	model, ok := next.(Model)
	if !ok {
		t.Fatalf("Update returned %T", next)
	}
	return model
}

func loadedModel(t *testing.T) Model {
	posts, msg := samplePreview(t)
	m := New("dev@example.com", models.Weekly, func(context.Context) ([]models.RankedPost, mailer.Message, error) {
		return posts, msg, nil
	}, "notty")
	m = update(t, m, tea.WindowSizeMsg{Width: 100, Height: 40})
	return update(t, m, loadPreview(m.loader)())
}

func TestPreviewLoads(t *testing.T) {
	m := loadedModel(t)

	if len(m.list.Items()) != 1 {
		t.Fatalf("Expected 1 item, got %d", len(m.list.Items()))
	}
	if !strings.Contains(m.statusMsg, "Your Weekly Tech Digest") {
		t.Errorf("Unexpected status %q", m.statusMsg)
	}
	if !strings.Contains(m.View(), "Kubernetes operators") {
		t.Error("List view should show the post title")
	}
}

func TestPreviewDetailAndEmailViews(t *testing.T) {
	m := loadedModel(t)

	m = update(t, m, key("enter"))
	if m.view != ViewPostDetail {
		t.Fatalf("Expected detail view, got %v (err %v)", m.view, m.err)
	}
	if !strings.Contains(m.viewport.View(), "operators automate") {
		t.Errorf("Detail view missing summary:\n%s", m.viewport.View())
	}

	m = update(t, m, key("esc"))
	if m.view != ViewPostList {
		t.Fatalf("Expected list view after esc, got %v", m.view)
	}

	m = update(t, m, key("e"))
	if m.view != ViewEmail {
		t.Fatalf("Expected email view, got %v (err %v)", m.view, m.err)
	}
	if !strings.Contains(m.viewport.View(), "Read full article") {
		t.Errorf("Email view missing link text:\n%s", m.viewport.View())
	}
}

func TestPreviewHelpReturnsToPreviousView(t *testing.T) {
	m := loadedModel(t)

	m = update(t, m, key("?"))
	if m.view != ViewHelp {
		t.Fatalf("Expected help view, got %v", m.view)
	}
	m = update(t, m, key("esc"))
	if m.view != ViewPostList {
		t.Errorf("Expected list view, got %v", m.view)
	}
}

func TestPreviewLoadError(t *testing.T) {
	m := New("dev@example.com", models.Daily, func(context.Context) ([]models.RankedPost, mailer.Message, error) {
		return nil, mailer.Message{}, errors.New("ollama unreachable")
	}, "notty")
	m = update(t, m, tea.WindowSizeMsg{Width: 100, Height: 40})

	m = update(t, m, loadPreview(m.loader)())
	if m.err == nil || !strings.Contains(m.View(), "ollama unreachable") {
		t.Errorf("Expected error in view, got %v", m.err)
	}
}

func TestEmailMarkdown(t *testing.T) {
	_, msg := samplePreview(t)

	out, err := emailMarkdown(msg.HTML)
	if err != nil {
		t.Fatalf("emailMarkdown failed: %v", err)
	}
	for _, want := range []string{"Kubernetes operators", "[Read full article →](https://example.com/k8s)"} {
		if !strings.Contains(out, want) {
			t.Errorf("Markdown missing %q:\n%s", want, out)
		}
	}
}
