package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

type staticTokens struct {
	token string
}

func (s staticTokens) BearerToken() (string, bool) {
	return s.token, s.token != ""
}

func newTestClient(t *testing.T, handler http.Handler, token string) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c := NewClient(srv.URL, "session-123", staticTokens{token: token}, 5*time.Second, nil)
	return c, srv
}

func TestGuessSendsHeaders(t *testing.T) {
	var gotGameID, gotSession, gotAuth string

	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotGameID = r.Header.Get("X-Game-ID")
		gotSession = r.Header.Get("X-Session-ID")
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte(`{"game_id":"hard-custom-abc","encrypted_paragraph":"AB","display":"██","mistakes":1}`))
	}), "tok-1")

	gs, err := c.Guess(context.Background(), "hard-custom-abc", "X", "E")
	if err != nil {
		t.Fatalf("Guess() failed: %v", err)
	}

	if gotGameID != "hard-custom-abc" {
		t.Errorf("X-Game-ID = %q", gotGameID)
	}
	if gotSession != "session-123" {
		t.Errorf("X-Session-ID = %q", gotSession)
	}
	if gotAuth != "Bearer tok-1" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if gs.Mistakes != 1 {
		t.Errorf("Mistakes = %d, want 1", gs.Mistakes)
	}
}

func TestStartLongTextPath(t *testing.T) {
	var gotPath string
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Write([]byte(`{"game_id":"easy-custom-abc","encrypted_paragraph":"A","display":"█"}`))
	}), "")

	if _, err := c.Start(context.Background(), StartRequest{Difficulty: "easy", LongText: true}); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}
	if gotPath != "/longstart" {
		t.Errorf("path = %q, want /longstart", gotPath)
	}
}

func TestUnauthorizedClassification(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}), "expired")

	_, err := c.ContinueGame(context.Background())
	if !errors.Is(err, ErrAuthRequired) {
		t.Errorf("401 should classify as ErrAuthRequired, got %v", err)
	}
}

func TestAuthRequiredWithoutToken(t *testing.T) {
	calls := 0
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}), "")

	_, err := c.CheckActiveGame(context.Background())
	if !errors.Is(err, ErrAuthRequired) {
		t.Errorf("expected ErrAuthRequired, got %v", err)
	}
	if calls != 0 {
		t.Errorf("no round trip should happen without a token, got %d calls", calls)
	}
}

func TestNetworkUnreachableClassification(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close() // Dead server: connections refused.

	c := NewClient(srv.URL, "s", nil, time.Second, nil)
	_, err := c.Start(context.Background(), StartRequest{Difficulty: "medium"})
	if !errors.Is(err, ErrNetworkUnreachable) {
		t.Errorf("connection refused should classify as ErrNetworkUnreachable, got %v", err)
	}
}

func TestDailyConflictClassification(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
	}), "tok")

	_, err := c.StartDaily(context.Background())
	if !errors.Is(err, ErrAlreadyCompleted) {
		t.Errorf("409 should classify as ErrAlreadyCompleted, got %v", err)
	}
}

func TestSessionExpiredIsAuthRequired(t *testing.T) {
	if !errors.Is(ErrSessionExpired, ErrAuthRequired) {
		t.Error("ErrSessionExpired must match ErrAuthRequired")
	}
}

func TestRecordScoreIdempotencyKey(t *testing.T) {
	var gotBody string
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		gotBody = string(data)
	}), "tok")

	payload := ScorePayload{GameID: "hard-daily-abc", Score: 900, QueuedAt: 1756100000}
	if err := c.RecordScore(context.Background(), payload); err != nil {
		t.Fatalf("RecordScore() failed: %v", err)
	}
	if !strings.Contains(gotBody, `"game_id":"hard-daily-abc"`) || !strings.Contains(gotBody, `"queued_at":1756100000`) {
		t.Errorf("payload missing idempotency fields: %s", gotBody)
	}
}
