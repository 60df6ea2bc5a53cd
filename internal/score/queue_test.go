package score

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/vovakirdan/decodey/internal/api"
	"github.com/vovakirdan/decodey/internal/storage"
)

type fakeSender struct {
	mu    sync.Mutex
	calls []api.ScorePayload
	fn    func(payload api.ScorePayload) error
}

func (f *fakeSender) RecordScore(_ context.Context, payload api.ScorePayload) error {
	f.mu.Lock()
	f.calls = append(f.calls, payload)
	f.mu.Unlock()
	if f.fn == nil {
		return nil
	}
	return f.fn(payload)
}

func (f *fakeSender) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type fakeAuth struct{ authenticated bool }

func (f *fakeAuth) Authenticated() bool { return f.authenticated }

func openTestStorage(t *testing.T) *storage.Store {
	t.Helper()
	local, err := storage.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("storage.Open() failed: %v", err)
	}
	t.Cleanup(func() { local.Close() })
	return local
}

func testPayload(gameID string) api.ScorePayload {
	return api.ScorePayload{
		GameID:     gameID,
		Score:      720,
		Mistakes:   2,
		TimeTaken:  181,
		Difficulty: "medium",
		QueuedAt:   time.Now().Unix(),
	}
}

func TestSubmitDelivers(t *testing.T) {
	sender := &fakeSender{}
	q := NewQueue(sender, openTestStorage(t), &fakeAuth{authenticated: true}, nil)

	res, err := q.Submit(context.Background(), testPayload("g1"))
	if err != nil {
		t.Fatalf("Submit() failed: %v", err)
	}
	if !res.Delivered || res.Queued {
		t.Errorf("result = %+v, want delivered", res)
	}
	if n, _ := q.PendingCount(); n != 0 {
		t.Errorf("pending count = %d, want 0", n)
	}
}

func TestSubmitOfflineQueuesWithoutNetworkIO(t *testing.T) {
	sender := &fakeSender{}
	local := openTestStorage(t)
	q := NewQueue(sender, local, &fakeAuth{authenticated: true}, nil)
	q.SetOnline(false)

	res, err := q.Submit(context.Background(), testPayload("g1"))
	if err != nil {
		t.Fatalf("Submit() failed: %v", err)
	}
	if !res.Queued || res.Delivered {
		t.Errorf("result = %+v, want queued", res)
	}
	if sender.callCount() != 0 {
		t.Errorf("sender called %d times while offline, want 0", sender.callCount())
	}

	// The queue is durable: a fresh queue over the same storage sees it.
	entries, err := local.PendingScores()
	if err != nil {
		t.Fatalf("PendingScores() failed: %v", err)
	}
	if len(entries) != 1 || entries[0].GameID != "g1" {
		t.Errorf("entries = %+v, want one entry for g1", entries)
	}
}

func TestSubmitAnonymousQueuesFlagged(t *testing.T) {
	sender := &fakeSender{}
	local := openTestStorage(t)
	q := NewQueue(sender, local, &fakeAuth{authenticated: false}, nil)

	res, err := q.Submit(context.Background(), testPayload("g1"))
	if err != nil {
		t.Fatalf("Submit() failed: %v", err)
	}
	if !res.Queued || !res.AuthRequired {
		t.Errorf("result = %+v, want queued with auth required", res)
	}
	if sender.callCount() != 0 {
		t.Errorf("sender called %d times for anonymous user, want 0", sender.callCount())
	}

	entries, _ := local.PendingScores()
	if len(entries) != 1 || !entries[0].AuthRequired {
		t.Errorf("entries = %+v, want one auth-flagged entry", entries)
	}
}

func TestSubmitNetworkFailureQueuesAndGoesOffline(t *testing.T) {
	sender := &fakeSender{fn: func(api.ScorePayload) error { return api.ErrNetworkUnreachable }}
	q := NewQueue(sender, openTestStorage(t), &fakeAuth{authenticated: true}, nil)

	res, err := q.Submit(context.Background(), testPayload("g1"))
	if err != nil {
		t.Fatalf("Submit() failed: %v", err)
	}
	if !res.Queued {
		t.Errorf("result = %+v, want queued", res)
	}
	if q.Online() {
		t.Error("queue still online after unreachable network")
	}
	if n, _ := q.PendingCount(); n != 1 {
		t.Errorf("pending count = %d, want 1", n)
	}
}

func TestSubmitAuthRejectionQueuesFlagged(t *testing.T) {
	sender := &fakeSender{fn: func(api.ScorePayload) error { return api.ErrAuthRequired }}
	local := openTestStorage(t)
	q := NewQueue(sender, local, &fakeAuth{authenticated: true}, nil)

	res, err := q.Submit(context.Background(), testPayload("g1"))
	if err != nil {
		t.Fatalf("Submit() failed: %v", err)
	}
	if !res.Queued || !res.AuthRequired {
		t.Errorf("result = %+v, want queued with auth required", res)
	}
	entries, _ := local.PendingScores()
	if len(entries) != 1 || !entries[0].AuthRequired {
		t.Errorf("entries = %+v, want one auth-flagged entry", entries)
	}
}

func TestSubmitAssignsIdempotencyTimestamp(t *testing.T) {
	sender := &fakeSender{}
	q := NewQueue(sender, openTestStorage(t), &fakeAuth{authenticated: true}, nil)

	payload := testPayload("g1")
	payload.QueuedAt = 0
	if _, err := q.Submit(context.Background(), payload); err != nil {
		t.Fatalf("Submit() failed: %v", err)
	}
	if sender.calls[0].QueuedAt == 0 {
		t.Error("QueuedAt not assigned before delivery")
	}
}

func TestFlushPendingDeliversQueue(t *testing.T) {
	sender := &fakeSender{}
	local := openTestStorage(t)
	auth := &fakeAuth{authenticated: true}
	q := NewQueue(sender, local, auth, nil)
	q.SetOnline(false)

	for _, id := range []string{"g1", "g2", "g3"} {
		if _, err := q.Submit(context.Background(), testPayload(id)); err != nil {
			t.Fatalf("Submit(%s) failed: %v", id, err)
		}
	}
	q.setOnline(true)

	stats, err := q.FlushPending(context.Background())
	if err != nil {
		t.Fatalf("FlushPending() failed: %v", err)
	}
	if stats.Attempted != 3 || stats.Delivered != 3 || stats.Remaining != 0 {
		t.Errorf("stats = %+v, want 3/3/0", stats)
	}
	if n, _ := q.PendingCount(); n != 0 {
		t.Errorf("pending count = %d, want 0", n)
	}

	// Oldest first.
	if sender.calls[0].GameID != "g1" || sender.calls[2].GameID != "g3" {
		t.Errorf("delivery order = %v, want queue order", sender.calls)
	}
}

func TestFlushPendingSkipsAuthFlaggedWhileAnonymous(t *testing.T) {
	sender := &fakeSender{}
	local := openTestStorage(t)
	auth := &fakeAuth{authenticated: false}
	q := NewQueue(sender, local, auth, nil)

	if _, err := q.Submit(context.Background(), testPayload("g1")); err != nil {
		t.Fatalf("Submit() failed: %v", err)
	}

	stats, err := q.FlushPending(context.Background())
	if err != nil {
		t.Fatalf("FlushPending() failed: %v", err)
	}
	if stats.Attempted != 0 || stats.Remaining != 1 {
		t.Errorf("stats = %+v, want 0 attempted, 1 remaining", stats)
	}
	if sender.callCount() != 0 {
		t.Errorf("sender called %d times, want 0", sender.callCount())
	}

	// After login the same entry delivers.
	auth.authenticated = true
	stats, err = q.FlushPending(context.Background())
	if err != nil {
		t.Fatalf("FlushPending() after login failed: %v", err)
	}
	if stats.Delivered != 1 || stats.Remaining != 0 {
		t.Errorf("stats = %+v, want 1 delivered, 0 remaining", stats)
	}
}

func TestFlushPendingStopsOnNetworkFailure(t *testing.T) {
	sender := &fakeSender{fn: func(api.ScorePayload) error { return api.ErrNetworkUnreachable }}
	local := openTestStorage(t)
	q := NewQueue(sender, local, &fakeAuth{authenticated: true}, nil)
	q.SetOnline(false)
	for _, id := range []string{"g1", "g2", "g3"} {
		if _, err := q.Submit(context.Background(), testPayload(id)); err != nil {
			t.Fatalf("Submit(%s) failed: %v", id, err)
		}
	}
	q.setOnline(true)

	stats, err := q.FlushPending(context.Background())
	if err != nil {
		t.Fatalf("FlushPending() failed: %v", err)
	}
	if sender.callCount() != 1 {
		t.Errorf("sender called %d times, want 1 before bailing", sender.callCount())
	}
	if stats.Remaining != 3 {
		t.Errorf("remaining = %d, want 3", stats.Remaining)
	}
	if q.Online() {
		t.Error("queue still online after unreachable network")
	}
}

func TestFlushPendingDropsCorruptEntries(t *testing.T) {
	sender := &fakeSender{}
	local := openTestStorage(t)
	q := NewQueue(sender, local, &fakeAuth{authenticated: true}, nil)

	if _, err := local.SavePendingScore("bad", []byte("{not json"), time.Now(), false); err != nil {
		t.Fatalf("SavePendingScore() failed: %v", err)
	}

	stats, err := q.FlushPending(context.Background())
	if err != nil {
		t.Fatalf("FlushPending() failed: %v", err)
	}
	if stats.Remaining != 0 {
		t.Errorf("remaining = %d, want 0 after dropping corrupt entry", stats.Remaining)
	}
	if n, _ := q.PendingCount(); n != 0 {
		t.Errorf("pending count = %d, want 0", n)
	}
}

func TestFlushPendingSingleFlight(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	sender := &fakeSender{fn: func(api.ScorePayload) error {
		close(entered)
		<-release
		return nil
	}}
	local := openTestStorage(t)
	q := NewQueue(sender, local, &fakeAuth{authenticated: true}, nil)
	q.SetOnline(false)
	if _, err := q.Submit(context.Background(), testPayload("g1")); err != nil {
		t.Fatalf("Submit() failed: %v", err)
	}
	q.setOnline(true)

	done := make(chan error, 1)
	go func() {
		_, err := q.FlushPending(context.Background())
		done <- err
	}()
	<-entered

	if _, err := q.FlushPending(context.Background()); !errors.Is(err, ErrFlushInFlight) {
		t.Errorf("concurrent FlushPending() err = %v, want ErrFlushInFlight", err)
	}

	close(release)
	if err := <-done; err != nil {
		t.Fatalf("first FlushPending() failed: %v", err)
	}
}

func TestSetOnlineTransitionFlushesAutomatically(t *testing.T) {
	sender := &fakeSender{}
	local := openTestStorage(t)
	q := NewQueue(sender, local, &fakeAuth{authenticated: true}, nil)
	q.SetOnline(false)
	if _, err := q.Submit(context.Background(), testPayload("g1")); err != nil {
		t.Fatalf("Submit() failed: %v", err)
	}

	q.SetOnline(true)

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if n, _ := q.PendingCount(); n == 0 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("automatic flush did not drain the queue")
}
