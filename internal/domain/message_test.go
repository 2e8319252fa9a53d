package domain

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestNewID_Unique(t *testing.T) {
	a, b := NewID(), NewID()
	if a == "" || b == "" || a == b {
		t.Fatalf("expected distinct non-empty ids, got %q and %q", a, b)
	}
}

func TestWithoutLoading(t *testing.T) {
	in := []Message{
		{ID: "1", Sender: SenderUser, Text: "hi"},
		LoadingMessage(),
		{ID: "2", Sender: SenderBot, Text: "hey"},
	}
	out := WithoutLoading(in)
	if len(out) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(out))
	}
	for _, m := range out {
		if m.IsLoading() {
			t.Fatalf("loading sentinel leaked: %+v", m)
		}
	}
}

func TestNormalizeUtterance(t *testing.T) {
	cases := map[string]bool{
		"":        false,
		"   ":     false,
		"\t\n":    false,
		" Dune ":  true,
		"Xyzzy42": true,
	}
	for in, want := range cases {
		text, ok := NormalizeUtterance(in)
		if ok != want {
			t.Fatalf("input %q: expected ok=%v, got %v", in, want, ok)
		}
		if ok && text != strings.TrimSpace(in) {
			t.Fatalf("input %q: expected trimmed text, got %q", in, text)
		}
	}
}

func TestMessageJSON_UsesHistoryFieldNames(t *testing.T) {
	msg := Message{
		ID:     "b1",
		Sender: SenderBot,
		Text:   "Found it!",
		Recommendations: []Recommendation{{
			Title:   "Dune",
			Sources: []Source{{Label: "Archive", URL: "https://example.org/dune.pdf"}},
		}},
	}
	raw, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	s := string(raw)
	for _, want := range []string{`"sender":"bot"`, `"books":[`, `"pdfLinks":[`, `"source":"Archive"`, `"coverImageUrl":""`} {
		if !strings.Contains(s, want) {
			t.Fatalf("expected %s in %s", want, s)
		}
	}
}

func TestRecommendationCover(t *testing.T) {
	if got := (Recommendation{}).Cover(); got != PlaceholderCoverURL {
		t.Fatalf("expected placeholder, got %q", got)
	}
	if got := (Recommendation{CoverImageURL: "https://x/y.png"}).Cover(); got != "https://x/y.png" {
		t.Fatalf("expected explicit cover, got %q", got)
	}
}
