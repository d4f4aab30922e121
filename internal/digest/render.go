package digest

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"

	"github.com/thomaskoefod/digestr/internal/mailer"
	"github.com/thomaskoefod/digestr/pkg/models"
)

const htmlTemplate = `<html>
  <body style="font-family: Arial, sans-serif; line-height:1.6;">
    <h2>🔥 {{.Heading}}</h2>
    <hr>
{{- range .Posts}}
    <div style="margin-bottom:30px;">
      <h3>{{.Post.Title}}</h3>
      <p style="white-space:pre-line;">{{.Post.Summary}}</p>
      <a href="{{.Post.URL}}" style="color:#1a73e8;">Read full article →</a>
    </div>
{{- end}}
  </body>
</html>
`

var emailTmpl = template.Must(template.New("digest").Parse(htmlTemplate))

// Subject is the email subject line for a frequency, e.g. "Your Weekly Tech Digest".
func Subject(freq models.Frequency) string {
	return fmt.Sprintf("Your %s Tech Digest", freq.Title())
}

// Render builds the text and HTML bodies for a user's ranked posts.
func Render(to string, freq models.Frequency, posts []models.RankedPost) (mailer.Message, error) {
	subject := Subject(freq)

	var text strings.Builder
	text.WriteString(subject + "\n\n")
	for _, p := range posts {
		fmt.Fprintf(&text, "- %s\n%s\n%s\n\n", p.Post.Title, p.Post.Summary, p.Post.URL)
	}

	var html bytes.Buffer
	data := struct {
		Heading string
		Posts   []models.RankedPost
	}{subject, posts}
	if err := emailTmpl.Execute(&html, data); err != nil {
		return mailer.Message{}, fmt.Errorf("rendering html: %w", err)
	}

	return mailer.Message{
		To:      to,
		Subject: subject,
		Text:    text.String(),
		HTML:    html.String(),
	}, nil
}
