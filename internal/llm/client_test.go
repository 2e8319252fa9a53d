package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"bookbot/internal/config"
)

func TestHTTPClient_Generate(t *testing.T) {
	var got chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" || r.Header.Get("Authorization") != "Bearer secret" {
			t.Errorf("unexpected request %s auth=%q", r.URL.Path, r.Header.Get("Authorization"))
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"{\"reply\":\"hi\",\"books\":[]}"}}]}`))
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL+"/", "secret", "gpt-test", nil)
	out, err := c.Generate(context.Background(), Request{
		System:    "be nice",
		History:   []Turn{{Role: RoleUser, Text: "q0"}, {Role: RoleModel, Text: "a0"}},
		Utterance: "Dune",
		JSON:      true,
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if out != `{"reply":"hi","books":[]}` {
		t.Fatalf("unexpected content %q", out)
	}

	if got.Model != "gpt-test" || got.ResponseFormat == nil || got.ResponseFormat.Type != "json_object" {
		t.Fatalf("unexpected request body %+v", got)
	}
	roles := []string{"system", "user", "assistant", "user"}
	if len(got.Messages) != len(roles) {
		t.Fatalf("expected %d messages, got %+v", len(roles), got.Messages)
	}
	for i, role := range roles {
		if got.Messages[i].Role != role {
			t.Fatalf("message %d: expected role %s, got %s", i, role, got.Messages[i].Role)
		}
	}
	if got.Messages[3].Content != "Dune" {
		t.Fatalf("expected utterance last, got %q", got.Messages[3].Content)
	}
}

func TestHTTPClient_Errors(t *testing.T) {
	cases := map[string]struct {
		status int
		body   string
		want   error
	}{
		"http error":  {status: http.StatusServiceUnavailable, body: `{}`},
		"api error":   {status: http.StatusOK, body: `{"error":{"message":"quota"}}`},
		"no choices":  {status: http.StatusOK, body: `{"choices":[]}`, want: ErrEmptyResponse},
		"bad payload": {status: http.StatusOK, body: `not json`},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			_, err := NewHTTPClient(srv.URL, "k", "m", nil).Generate(context.Background(), Request{Utterance: "x"})
			if err == nil {
				t.Fatalf("expected error")
			}
			if tc.want != nil && !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestMockClient_RecordsRequests(t *testing.T) {
	m := &MockClient{Response: "ok"}
	if _, err := m.Generate(context.Background(), Request{Utterance: "a"}); err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if m.LastRequest().Utterance != "a" {
		t.Fatalf("request not recorded")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := m.Generate(ctx, Request{}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context error, got %v", err)
	}
}

func TestNewFromConfig(t *testing.T) {
	ctx := context.Background()

	c, err := NewFromConfig(ctx, &config.Config{LLMProvider: "openai", LLMModel: "m"}, nil, nil)
	if err != nil {
		t.Fatalf("openai: %v", err)
	}
	if _, ok := c.(*HTTPClient); !ok {
		t.Fatalf("expected *HTTPClient, got %T", c)
	}
	if c, _ := NewFromConfig(ctx, &config.Config{LLMProvider: "mock"}, nil, nil); c == nil {
		t.Fatalf("expected mock client")
	}
	if _, err := NewFromConfig(ctx, &config.Config{LLMProvider: "gemini"}, nil, nil); err == nil {
		t.Fatalf("expected gemini without key to fail")
	}
	if _, err := NewFromConfig(ctx, &config.Config{LLMProvider: "claude-ish"}, nil, nil); err == nil {
		t.Fatalf("expected unknown provider error")
	}
}
