package sanitize

import "testing"

func TestText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"whitespace only", " \n\t ", ""},
		{"plain", "  hello   world  ", "hello world"},
		{"tags separate words", "<p>Kubernetes</p><p>operators</p>", "Kubernetes operators"},
		{"nested markup", `<div><h1>Title</h1><p>Some <b>bold</b> text and a <a href="x">link</a>.</p></div>`, "Title Some bold text and a link ."},
		{"entities decoded", "Docker &amp; Podman", "Docker & Podman"},
		{"script dropped", "<p>keep</p><script>var x = 1;</script>", "keep"},
		{"inline math", "Energy $$E = mc^2$$ is conserved", "Energy is conserved"},
		{"multiline math", "before $$\n\\frac{a}{b}\n$$ after", "before after"},
		{"two math blocks", "a $$x$$ b $$y$$ c", "a b c"},
		{"newlines collapse", "line one\n\n\nline two", "line one line two"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Text(tt.in); got != tt.want {
				t.Errorf("Text(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestValue(t *testing.T) {
	if got := Value(nil); got != "" {
		t.Errorf("Value(nil) = %q, want empty", got)
	}
	if got := Value(42); got != "" {
		t.Errorf("Value(42) = %q, want empty", got)
	}
	if got := Value("<b>ok</b>"); got != "ok" {
		t.Errorf("Value(string) = %q, want ok", got)
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate("abcdef", 3); got != "abc" {
		t.Errorf("Truncate = %q", got)
	}
	if got := Truncate("abc", 10); got != "abc" {
		t.Errorf("Truncate short = %q", got)
	}
	if got := Truncate("héllo", 2); got != "hé" {
		t.Errorf("Truncate must cut on runes, got %q", got)
	}
	if got := Truncate("abc", 0); got != "abc" {
		t.Errorf("Truncate(0) should be a no-op, got %q", got)
	}
}
