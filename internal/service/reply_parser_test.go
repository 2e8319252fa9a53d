package service

import (
	"errors"
	"testing"
)

func TestCleanReplyPayload_StripsFencesAndBOM(t *testing.T) {
	cases := []struct{ in, want string }{
		{"```json\n{\"reply\":\"hi\"}\n```", `{"reply":"hi"}`},
		{"```\n{\"reply\":\"hi\"}```", `{"reply":"hi"}`},
		{"\uFEFF{\"reply\":\"hi\"}", `{"reply":"hi"}`},
		{"  {\"reply\":\"hi\"}  ", `{"reply":"hi"}`},
	}
	for _, tc := range cases {
		if got := cleanReplyPayload(tc.in); got != tc.want {
			t.Fatalf("clean(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestExtractFirstJSONObject(t *testing.T) {
	cases := []struct{ in, want string }{
		{`noise {"a":"}"} trailing {"b":1}`, `{"a":"}"}`},
		{`{"a":{"b":"\"{"}}`, `{"a":{"b":"\"{"}}`},
		{`no json here`, ``},
		{`{"open":`, ``},
	}
	for _, tc := range cases {
		if got := extractFirstJSONObject(tc.in); got != tc.want {
			t.Fatalf("extract(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestParseReply_Success(t *testing.T) {
	raw := "```json\n" + `{
		"reply": "  Found it! 📚 ",
		"books": [{
			"title": "Dune",
			"author": "Frank Herbert",
			"summary": "Spice.",
			"coverImageUrl": "https://picsum.photos/400/600",
			"pdfLinks": [{"source": "Archive", "url": "https://example.org/dune.pdf"}, {"source": "Empty", "url": " "}]
		}, {"title": "  ", "author": "nobody"}]
	}` + "\n```"

	reply, err := parseReply(raw)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if reply.Text != "Found it! 📚" {
		t.Fatalf("unexpected reply text %q", reply.Text)
	}
	if len(reply.Recommendations) != 1 {
		t.Fatalf("expected blank-title book dropped, got %+v", reply.Recommendations)
	}
	book := reply.Recommendations[0]
	if book.Title != "Dune" || len(book.Sources) != 1 || book.Sources[0].Label != "Archive" {
		t.Fatalf("unexpected book %+v", book)
	}
}

func TestParseReply_EmptyBooks(t *testing.T) {
	reply, err := parseReply(`{"reply":"Never heard of it 🤔","books":[]}`)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(reply.Recommendations) != 0 {
		t.Fatalf("expected no recommendations, got %+v", reply.Recommendations)
	}
}

func TestParseReply_Malformed(t *testing.T) {
	for _, raw := range []string{
		"",
		"just chatting",
		`{"books":[]}`,
		`{"reply":"   ","books":[]}`,
		`{"reply": 42}`,
	} {
		if _, err := parseReply(raw); !errors.Is(err, ErrMalformedReply) {
			t.Fatalf("parseReply(%q): expected ErrMalformedReply, got %v", raw, err)
		}
	}
}
