// Package sanitize turns raw feed markup into plain text suitable for the
// embedding and summary backends.
package sanitize

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var (
	mathBlock  = regexp.MustCompile(`(?s)\$\$.*?\$\$`)
	whitespace = regexp.MustCompile(`\s+`)
)

// Text strips HTML, removes $$...$$ math blocks, collapses whitespace and trims.
func Text(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return ""
	}

	clean := htmlToText(raw)
	clean = mathBlock.ReplaceAllString(clean, " ")
	clean = whitespace.ReplaceAllString(clean, " ")
	return strings.TrimSpace(clean)
}

// Value is Text for loosely typed input; anything that is not a string is "".
func Value(v any) string {
	s, ok := v.(string)
	if !ok {
		return ""
	}
	return Text(s)
}

// Truncate cuts s to at most max runes. max <= 0 disables truncation.
func Truncate(s string, max int) string {
	if max <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}

func htmlToText(raw string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw))
	if err != nil {
		return raw
	}
	var b strings.Builder
	collectText(doc.Selection, &b)
	return b.String()
}

// collectText joins text nodes with a space so adjacent tags don't glue words together.
func collectText(s *goquery.Selection, b *strings.Builder) {
	s.Contents().Each(func(_ int, c *goquery.Selection) {
		switch goquery.NodeName(c) {
		case "#text":
			b.WriteString(c.Text())
			b.WriteByte(' ')
		case "script", "style", "#comment":
		default:
			collectText(c, b)
		}
	})
}
