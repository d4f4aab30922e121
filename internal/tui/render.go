package tui

import (
	"fmt"
	"os/exec"
	"runtime"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/charmbracelet/glamour"
	"github.com/thomaskoefod/digestr/pkg/models"
)

// postMarkdown lays out one ranked post for the detail view.
func postMarkdown(p models.RankedPost) string {
	var s strings.Builder
	fmt.Fprintf(&s, "# %s\n\n", p.Post.Title)
	fmt.Fprintf(&s, "_Published %s · score %.3f · similarity %.3f · freshness %.3f_\n\n",
		p.Post.PublishedAt.Format("Jan 2, 2006"), p.Score, p.Similarity, p.Freshness)
	s.WriteString(p.Post.Summary)
	fmt.Fprintf(&s, "\n\n[Read full article](%s)\n", p.Post.URL)
	return s.String()
}

// emailMarkdown converts the digest's HTML body to Markdown.
func emailMarkdown(html string) (string, error) {
	converter := md.NewConverter("", true, nil)
	out, err := converter.ConvertString(html)
	if err != nil {
		return "", fmt.Errorf("converting email html: %w", err)
	}
	return out, nil
}

// renderMarkdown renders markdown for the terminal. style "auto" detects the
// terminal background.
func renderMarkdown(markdown, style string, width int) (string, error) {
	if width <= 0 {
		width = 80
	}
	opts := []glamour.TermRendererOption{glamour.WithWordWrap(width)}
	if style == "" || style == "auto" {
		opts = append(opts, glamour.WithAutoStyle())
	} else {
		opts = append(opts, glamour.WithStandardStyle(style))
	}

	r, err := glamour.NewTermRenderer(opts...)
	if err != nil {
		return "", fmt.Errorf("creating renderer: %w", err)
	}
	out, err := r.Render(markdown)
	if err != nil {
		return "", fmt.Errorf("rendering markdown: %w", err)
	}
	return out, nil
}

func openBrowser(url string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	return cmd.Start()
}
