package session

import (
	"context"
	"errors"
	"testing"

	"github.com/vovakirdan/decodey/internal/api"
	"github.com/vovakirdan/decodey/internal/config"
)

func TestApplyServerStateStartsNewGame(t *testing.T) {
	local := openTestStorage(t)
	s := NewStore(&fakeBackend{}, local, defaultGameplay(), nil, nil)

	if err := s.ApplyServerState(serverState(testGameID, 0)); err != nil {
		t.Fatalf("ApplyServerState() failed: %v", err)
	}

	snap := s.Snapshot()
	if !snap.Active() {
		t.Fatal("expected an active session")
	}
	if snap.GameID != testGameID {
		t.Errorf("GameID = %q, want %q", snap.GameID, testGameID)
	}
	if snap.Difficulty != config.DifficultyMedium {
		t.Errorf("Difficulty = %q, want medium", snap.Difficulty)
	}
	if snap.MaxMistakes != 5 {
		t.Errorf("MaxMistakes = %d, want 5", snap.MaxMistakes)
	}
	if snap.IsDaily {
		t.Error("custom game classified as daily")
	}

	stored, err := local.CurrentGameID()
	if err != nil {
		t.Fatalf("CurrentGameID() failed: %v", err)
	}
	if stored != testGameID {
		t.Errorf("persisted game id = %q, want %q", stored, testGameID)
	}
}

func TestApplyServerStateClassifiesDaily(t *testing.T) {
	s := newTestStore(t, &fakeBackend{})

	if err := s.ApplyServerState(serverState(testDailyGameID, 0)); err != nil {
		t.Fatalf("ApplyServerState() failed: %v", err)
	}
	if !s.Snapshot().IsDaily {
		t.Error("daily game id not classified as daily")
	}
}

func TestApplyServerStateRejectsParityMismatch(t *testing.T) {
	s := newTestStore(t, &fakeBackend{})

	bad := &api.GameState{GameID: testGameID, Encrypted: "ABCD", Display: "███"}
	if err := s.ApplyServerState(bad); err == nil {
		t.Fatal("expected parity mismatch to be rejected")
	}
	if s.Snapshot().Active() {
		t.Error("rejected first response still created a session")
	}

	// A mismatching update on an existing session keeps the prior texts.
	if err := s.ApplyServerState(serverState(testGameID, 1)); err != nil {
		t.Fatalf("ApplyServerState() failed: %v", err)
	}
	if err := s.ApplyServerState(bad); err == nil {
		t.Fatal("expected parity mismatch to be rejected")
	}
	snap := s.Snapshot()
	if snap.Display != "███ ██" || snap.Mistakes != 1 {
		t.Errorf("state mutated by rejected update: display=%q mistakes=%d", snap.Display, snap.Mistakes)
	}
}

func TestApplyServerStateLossBeatsWin(t *testing.T) {
	s := newTestStore(t, &fakeBackend{})

	gs := serverState(testGameID, 5)
	gs.HasWon = true
	gs.GameComplete = true
	if err := s.ApplyServerState(gs); err != nil {
		t.Fatalf("ApplyServerState() failed: %v", err)
	}

	snap := s.Snapshot()
	if !snap.HasLost {
		t.Error("losing mistake count did not mark loss")
	}
	if snap.WinPhase != WinNone {
		t.Errorf("WinPhase = %v, want WinNone", snap.WinPhase)
	}
}

func TestApplyServerStateHardDifficultyLoss(t *testing.T) {
	s := newTestStore(t, &fakeBackend{})

	if err := s.ApplyServerState(serverState(testHardGameID, 3)); err != nil {
		t.Fatalf("ApplyServerState() failed: %v", err)
	}
	snap := s.Snapshot()
	if snap.MaxMistakes != 3 {
		t.Errorf("MaxMistakes = %d, want 3 for hard", snap.MaxMistakes)
	}
	if !snap.HasLost {
		t.Error("three mistakes on hard did not lose")
	}
}

func TestApplyServerStateTentativeWin(t *testing.T) {
	s := newTestStore(t, &fakeBackend{})
	sub := s.Hub().Subscribe(8)
	defer sub.Close()

	gs := serverState(testGameID, 1)
	gs.GameComplete = true
	if err := s.ApplyServerState(gs); err != nil {
		t.Fatalf("ApplyServerState() failed: %v", err)
	}

	snap := s.Snapshot()
	if snap.WinPhase != WinTentative {
		t.Fatalf("WinPhase = %v, want WinTentative", snap.WinPhase)
	}
	if !snap.HasWon() || snap.HasLost {
		t.Errorf("HasWon=%v HasLost=%v after tentative win", snap.HasWon(), snap.HasLost)
	}

	var sawTentative bool
	for len(sub.Events()) > 0 {
		if _, ok := (<-sub.Events()).(WinTentativeEvent); ok {
			sawTentative = true
		}
	}
	if !sawTentative {
		t.Error("no WinTentativeEvent published")
	}

	// Duplicate delivery of the same response stays idempotent.
	if err := s.ApplyServerState(gs); err != nil {
		t.Fatalf("duplicate ApplyServerState() failed: %v", err)
	}
	if got := s.Snapshot().WinPhase; got != WinTentative {
		t.Errorf("WinPhase after duplicate = %v, want WinTentative", got)
	}
}

func TestSubmitGuessUppercasesAndRecordsMapping(t *testing.T) {
	backend := &fakeBackend{
		guessFn: func(_ context.Context, gameID, enc, guess string) (*api.GameState, error) {
			if enc != "X" || guess != "E" {
				return nil, errors.New("letters not uppercased")
			}
			resp := serverState(gameID, 0)
			resp.CorrectlyGuessed = []string{"X"}
			return resp, nil
		},
	}
	s := newTestStore(t, backend)
	if err := s.ApplyServerState(serverState(testGameID, 0)); err != nil {
		t.Fatalf("ApplyServerState() failed: %v", err)
	}

	if err := s.SubmitGuess(context.Background(), "x", "e"); err != nil {
		t.Fatalf("SubmitGuess() failed: %v", err)
	}
	snap := s.Snapshot()
	if snap.GuessedMappings["X"] != "E" {
		t.Errorf("GuessedMappings = %v, want X->E", snap.GuessedMappings)
	}
}

func TestSubmitGuessGuards(t *testing.T) {
	backend := &fakeBackend{}
	s := newTestStore(t, backend)

	if err := s.SubmitGuess(context.Background(), "X", "E"); !errors.Is(err, ErrNoSession) {
		t.Errorf("guess without session: err = %v, want ErrNoSession", err)
	}

	gs := serverState(testGameID, 5)
	gs.HasLost = true
	if err := s.ApplyServerState(gs); err != nil {
		t.Fatalf("ApplyServerState() failed: %v", err)
	}
	if err := s.SubmitGuess(context.Background(), "X", "E"); !errors.Is(err, ErrGameOver) {
		t.Errorf("guess after loss: err = %v, want ErrGameOver", err)
	}
	if backend.guessCalls != 0 {
		t.Errorf("backend guess called %d times, want 0", backend.guessCalls)
	}
}

func TestSubmitGuessDiscardsStaleResponse(t *testing.T) {
	backend := &fakeBackend{
		guessFn: func(_ context.Context, _, _, _ string) (*api.GameState, error) {
			// Response from a different session identity.
			return serverState(testHardGameID, 2), nil
		},
	}
	s := newTestStore(t, backend)
	if err := s.ApplyServerState(serverState(testGameID, 0)); err != nil {
		t.Fatalf("ApplyServerState() failed: %v", err)
	}

	if err := s.SubmitGuess(context.Background(), "X", "E"); err != nil {
		t.Fatalf("SubmitGuess() failed: %v", err)
	}
	snap := s.Snapshot()
	if snap.GameID != testGameID || snap.Mistakes != 0 {
		t.Errorf("stale response mutated state: game_id=%q mistakes=%d", snap.GameID, snap.Mistakes)
	}
}

func TestRequestHintBudgetRefusal(t *testing.T) {
	backend := &fakeBackend{}
	s := newTestStore(t, backend)

	// Medium allows 5 mistakes; at 4 a hint could become the losing one.
	if err := s.ApplyServerState(serverState(testGameID, 4)); err != nil {
		t.Fatalf("ApplyServerState() failed: %v", err)
	}
	if err := s.RequestHint(context.Background()); !errors.Is(err, ErrHintBudget) {
		t.Fatalf("RequestHint() err = %v, want ErrHintBudget", err)
	}
	if backend.hintCalls != 0 {
		t.Errorf("backend hint called %d times, want 0", backend.hintCalls)
	}
}

func TestRequestHintReconcilesReservation(t *testing.T) {
	backend := &fakeBackend{
		hintFn: func(_ context.Context, gameID string) (*api.GameState, error) {
			return serverState(gameID, 1), nil
		},
	}
	s := newTestStore(t, backend)
	if err := s.ApplyServerState(serverState(testGameID, 0)); err != nil {
		t.Fatalf("ApplyServerState() failed: %v", err)
	}

	if err := s.RequestHint(context.Background()); err != nil {
		t.Fatalf("RequestHint() failed: %v", err)
	}
	snap := s.Snapshot()
	if snap.Mistakes != 1 {
		t.Errorf("Mistakes = %d, want 1", snap.Mistakes)
	}
	if snap.PendingHints != 0 {
		t.Errorf("PendingHints = %d, want 0 after reconciliation", snap.PendingHints)
	}
}

func TestRequestHintRollsBackOnError(t *testing.T) {
	backend := &fakeBackend{
		hintFn: func(_ context.Context, _ string) (*api.GameState, error) {
			return nil, api.ErrNetworkUnreachable
		},
	}
	s := newTestStore(t, backend)
	if err := s.ApplyServerState(serverState(testGameID, 0)); err != nil {
		t.Fatalf("ApplyServerState() failed: %v", err)
	}

	if err := s.RequestHint(context.Background()); err == nil {
		t.Fatal("expected hint failure to surface")
	}
	if got := s.Snapshot().PendingHints; got != 0 {
		t.Errorf("PendingHints = %d, want 0 after rollback", got)
	}
}

func TestRequestHintSingleFlight(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	backend := &fakeBackend{
		hintFn: func(_ context.Context, gameID string) (*api.GameState, error) {
			close(entered)
			<-release
			return serverState(gameID, 1), nil
		},
	}
	s := newTestStore(t, backend)
	if err := s.ApplyServerState(serverState(testGameID, 0)); err != nil {
		t.Fatalf("ApplyServerState() failed: %v", err)
	}

	done := make(chan error, 1)
	go func() { done <- s.RequestHint(context.Background()) }()
	<-entered

	if err := s.RequestHint(context.Background()); !errors.Is(err, ErrHintInFlight) {
		t.Errorf("concurrent RequestHint() err = %v, want ErrHintInFlight", err)
	}

	close(release)
	if err := <-done; err != nil {
		t.Fatalf("first RequestHint() failed: %v", err)
	}
	if backend.hintCalls != 1 {
		t.Errorf("backend hint called %d times, want 1", backend.hintCalls)
	}
}

func TestAbandonGameIdempotent(t *testing.T) {
	local := openTestStorage(t)
	backend := &fakeBackend{}
	s := NewStore(backend, local, defaultGameplay(), nil, nil)
	if err := s.ApplyServerState(serverState(testGameID, 0)); err != nil {
		t.Fatalf("ApplyServerState() failed: %v", err)
	}

	s.AbandonGame(context.Background())
	s.AbandonGame(context.Background())

	if backend.abandonCalls != 1 {
		t.Errorf("backend abandon called %d times, want 1", backend.abandonCalls)
	}
	if s.Snapshot().Active() {
		t.Error("session still active after abandon")
	}
	stored, err := local.CurrentGameID()
	if err != nil {
		t.Fatalf("CurrentGameID() failed: %v", err)
	}
	if stored != "" {
		t.Errorf("stored game id = %q, want empty", stored)
	}
}

func TestAbandonGameSurvivesBackendFailure(t *testing.T) {
	backend := &fakeBackend{
		abandonFn: func(_ context.Context, _ string) error {
			return api.ErrNetworkUnreachable
		},
	}
	s := newTestStore(t, backend)
	if err := s.ApplyServerState(serverState(testGameID, 0)); err != nil {
		t.Fatalf("ApplyServerState() failed: %v", err)
	}

	s.AbandonGame(context.Background())
	if s.Snapshot().Active() {
		t.Error("local session survived a failed server-side abandon")
	}
}

func TestConfirmWinAndOverrideLoss(t *testing.T) {
	s := newTestStore(t, &fakeBackend{})
	gs := serverState(testGameID, 1)
	gs.GameComplete = true
	if err := s.ApplyServerState(gs); err != nil {
		t.Fatalf("ApplyServerState() failed: %v", err)
	}

	s.ConfirmWin(&api.WinData{Score: 820, Rating: "Cryptanalyst"})
	snap := s.Snapshot()
	if snap.WinPhase != WinConfirmed {
		t.Fatalf("WinPhase = %v, want WinConfirmed", snap.WinPhase)
	}
	if snap.WinData == nil || snap.WinData.Score != 820 {
		t.Errorf("WinData = %+v, want score 820", snap.WinData)
	}

	// Confirming twice is a no-op.
	s.ConfirmWin(&api.WinData{Score: 1})
	if got := s.Snapshot().WinData.Score; got != 820 {
		t.Errorf("second ConfirmWin overwrote score: %d", got)
	}
}

func TestOverrideLossCorrectsTentativeWin(t *testing.T) {
	s := newTestStore(t, &fakeBackend{})
	gs := serverState(testGameID, 1)
	gs.GameComplete = true
	if err := s.ApplyServerState(gs); err != nil {
		t.Fatalf("ApplyServerState() failed: %v", err)
	}

	s.OverrideLoss()
	snap := s.Snapshot()
	if !snap.HasLost || snap.WinPhase != WinNone || snap.WinData != nil {
		t.Errorf("override left WinPhase=%v HasLost=%v WinData=%v", snap.WinPhase, snap.HasLost, snap.WinData)
	}
}

func TestResetGameRestoresDefaults(t *testing.T) {
	s := newTestStore(t, &fakeBackend{})
	if err := s.ApplyServerState(serverState(testHardGameID, 2)); err != nil {
		t.Fatalf("ApplyServerState() failed: %v", err)
	}

	s.ResetGame()
	snap := s.Snapshot()
	if snap.Active() {
		t.Error("session still active after reset")
	}
	if snap.Difficulty != config.DifficultyMedium || snap.MaxMistakes != 5 {
		t.Errorf("defaults not restored: difficulty=%q max=%d", snap.Difficulty, snap.MaxMistakes)
	}
}
