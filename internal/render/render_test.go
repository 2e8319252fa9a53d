package render

import (
	"strings"
	"testing"

	"bookbot/internal/chat"
	"bookbot/internal/domain"
)

func TestPaletteFor(t *testing.T) {
	if PaletteFor(true).Background != DarkBackground || PaletteFor(false).Background != LightBackground {
		t.Fatalf("unexpected palettes")
	}
}

func TestRenderer_SetDark(t *testing.T) {
	r := NewRenderer(true)
	r.SetDark(false)
	if r.Dark() {
		t.Fatalf("expected light after SetDark(false)")
	}
}

func TestRenderer_BookCard(t *testing.T) {
	r := NewRenderer(true)
	out := r.Message(domain.Message{
		ID:     "b1",
		Sender: domain.SenderBot,
		Text:   "Found it!",
		Recommendations: []domain.Recommendation{
			{Title: "Dune", Author: "Frank Herbert", Sources: []domain.Source{{Label: "Archive", URL: "https://example.org/dune.pdf"}}},
			{Title: "Xyzzy", Author: "Nobody"},
		},
	})
	for _, want := range []string{"Found it!", "Dune", "Archive", "https://example.org/dune.pdf", domain.PlaceholderCoverURL, domain.NoSourcesText} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in rendered output:\n%s", want, out)
		}
	}
}

func TestRenderer_ViewIncludesLoading(t *testing.T) {
	r := NewRenderer(false)
	out := r.View(chat.View{Messages: []domain.Message{
		{ID: "u1", Sender: domain.SenderUser, Text: "Dune"},
		domain.LoadingMessage(),
	}})
	if !strings.Contains(out, "Dune") || !strings.Contains(out, "• • •") {
		t.Fatalf("unexpected view rendering:\n%s", out)
	}
}
