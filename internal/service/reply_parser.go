package service

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"bookbot/internal/domain"
)

var (
	fenceStart = regexp.MustCompile("(?is)^\\s*```(?:json)?\\s*")
	fenceEnd   = regexp.MustCompile("(?is)\\s*```\\s*$")
)

// cleanReplyPayload quita BOM y fences ```json ... ``` dejando el contenido usable.
func cleanReplyPayload(raw string) string {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "\uFEFF")
	s = fenceStart.ReplaceAllString(s, "")
	s = fenceEnd.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}

// extractFirstJSONObject devuelve el primer objeto {...} balanceado, respetando strings.
func extractFirstJSONObject(input string) string {
	start := strings.IndexByte(input, '{')
	if start == -1 {
		return ""
	}

	inString, escape := false, false
	depth := 0
	for i := start; i < len(input); i++ {
		ch := input[i]
		if inString {
			switch {
			case escape:
				escape = false
			case ch == '\\':
				escape = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return input[start : i+1]
			}
		}
	}
	return ""
}

// parseReply decodifica el payload del modelo en un Reply. Un reply vacío es un error.
func parseReply(raw string) (domain.Reply, error) {
	cleaned := cleanReplyPayload(raw)
	candidate := extractFirstJSONObject(cleaned)
	if candidate == "" {
		return domain.Reply{}, fmt.Errorf("%w: no json object in payload", ErrMalformedReply)
	}

	var payload struct {
		Reply *string                 `json:"reply"`
		Books []domain.Recommendation `json:"books"`
	}
	if err := json.Unmarshal([]byte(candidate), &payload); err != nil {
		return domain.Reply{}, fmt.Errorf("%w: %v", ErrMalformedReply, err)
	}
	if payload.Reply == nil || strings.TrimSpace(*payload.Reply) == "" {
		return domain.Reply{}, fmt.Errorf("%w: missing reply text", ErrMalformedReply)
	}

	return domain.Reply{
		Text:            strings.TrimSpace(*payload.Reply),
		Recommendations: sanitizeRecommendations(payload.Books),
	}, nil
}

func sanitizeRecommendations(books []domain.Recommendation) []domain.Recommendation {
	out := make([]domain.Recommendation, 0, len(books))
	for _, b := range books {
		b.Title = strings.TrimSpace(b.Title)
		if b.Title == "" {
			continue
		}
		b.Author = strings.TrimSpace(b.Author)
		b.Summary = strings.TrimSpace(b.Summary)
		b.CoverImageURL = strings.TrimSpace(b.CoverImageURL)

		sources := make([]domain.Source, 0, len(b.Sources))
		for _, src := range b.Sources {
			src.URL = strings.TrimSpace(src.URL)
			if src.URL == "" {
				continue
			}
			src.Label = strings.TrimSpace(src.Label)
			sources = append(sources, src)
		}
		b.Sources = sources
		out = append(out, b)
	}
	return out
}
