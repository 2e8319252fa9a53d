package http

import (
	"context"
	"net/http"
	"strings"
	"testing"
)

func TestTheme_GetAndToggle(t *testing.T) {
	srv := newTestServer(t, &stubResponder{}, nil)

	rec := srv.do(t, http.MethodGet, "/theme", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"theme":"dark"`) || !strings.Contains(rec.Body.String(), `"dark":true`) {
		t.Fatalf("unexpected theme response %d %s", rec.Code, rec.Body.String())
	}

	rec = srv.do(t, http.MethodPost, "/theme/toggle", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"theme":"light"`) || !strings.Contains(rec.Body.String(), `"dark":false`) {
		t.Fatalf("unexpected toggle response %d %s", rec.Code, rec.Body.String())
	}

	raw, err := srv.store.Get(context.Background(), "theme")
	if err != nil || string(raw) != `"light"` {
		t.Fatalf("expected persisted light, got %q err=%v", raw, err)
	}
}
