package session

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/vovakirdan/decodey/internal/api"
	"github.com/vovakirdan/decodey/internal/config"
	"github.com/vovakirdan/decodey/internal/storage"
)

const (
	testGameID      = "medium-custom-9f1c7a44-51dc-4b7e-8f0d-2a6f9a3c1b2e"
	testHardGameID  = "hard-custom-1b9e4c7a-22dc-4b7e-8f0d-2a6f9a3c1b2e"
	testDailyGameID = "medium-daily-3c5e4c7a-33dc-4b7e-8f0d-2a6f9a3c1b2e"
)

var errNotImplemented = errors.New("fake: not implemented")

// fakeBackend implements Backend with overridable function fields.
type fakeBackend struct {
	startFn           func(ctx context.Context, req api.StartRequest) (*api.GameState, error)
	startDailyFn      func(ctx context.Context) (*api.GameState, error)
	continueGameFn    func(ctx context.Context) (*api.GameState, error)
	checkActiveFn     func(ctx context.Context) (*api.ActiveGames, error)
	dailyCompletionFn func(ctx context.Context, date string) (*api.DailyCompletion, error)
	guessFn           func(ctx context.Context, gameID, encryptedLetter, guessedLetter string) (*api.GameState, error)
	hintFn            func(ctx context.Context, gameID string) (*api.GameState, error)
	abandonFn         func(ctx context.Context, gameID string) error
	gameStatusFn      func(ctx context.Context, gameID string) (*api.GameStatus, error)
	attributionFn     func(ctx context.Context, gameID string) (*api.Attribution, error)

	startCalls       int
	startDailyCalls  int
	continueCalls    int
	checkActiveCalls int
	guessCalls       int
	hintCalls        int
	abandonCalls     int
}

func (f *fakeBackend) Start(ctx context.Context, req api.StartRequest) (*api.GameState, error) {
	f.startCalls++
	if f.startFn == nil {
		return nil, errNotImplemented
	}
	return f.startFn(ctx, req)
}

func (f *fakeBackend) StartDaily(ctx context.Context) (*api.GameState, error) {
	f.startDailyCalls++
	if f.startDailyFn == nil {
		return nil, errNotImplemented
	}
	return f.startDailyFn(ctx)
}

func (f *fakeBackend) ContinueGame(ctx context.Context) (*api.GameState, error) {
	f.continueCalls++
	if f.continueGameFn == nil {
		return nil, errNotImplemented
	}
	return f.continueGameFn(ctx)
}

func (f *fakeBackend) CheckActiveGame(ctx context.Context) (*api.ActiveGames, error) {
	f.checkActiveCalls++
	if f.checkActiveFn == nil {
		return &api.ActiveGames{}, nil
	}
	return f.checkActiveFn(ctx)
}

func (f *fakeBackend) DailyCompletion(ctx context.Context, date string) (*api.DailyCompletion, error) {
	if f.dailyCompletionFn == nil {
		return &api.DailyCompletion{}, nil
	}
	return f.dailyCompletionFn(ctx, date)
}

func (f *fakeBackend) Guess(ctx context.Context, gameID, encryptedLetter, guessedLetter string) (*api.GameState, error) {
	f.guessCalls++
	if f.guessFn == nil {
		return nil, errNotImplemented
	}
	return f.guessFn(ctx, gameID, encryptedLetter, guessedLetter)
}

func (f *fakeBackend) Hint(ctx context.Context, gameID string) (*api.GameState, error) {
	f.hintCalls++
	if f.hintFn == nil {
		return nil, errNotImplemented
	}
	return f.hintFn(ctx, gameID)
}

func (f *fakeBackend) AbandonGame(ctx context.Context, gameID string) error {
	f.abandonCalls++
	if f.abandonFn == nil {
		return nil
	}
	return f.abandonFn(ctx, gameID)
}

func (f *fakeBackend) GameStatus(ctx context.Context, gameID string) (*api.GameStatus, error) {
	if f.gameStatusFn == nil {
		return nil, errNotImplemented
	}
	return f.gameStatusFn(ctx, gameID)
}

func (f *fakeBackend) Attribution(ctx context.Context, gameID string) (*api.Attribution, error) {
	if f.attributionFn == nil {
		return nil, errNotImplemented
	}
	return f.attributionFn(ctx, gameID)
}

// fakeAuth implements Authenticator.
type fakeAuth struct {
	authenticated bool
}

func (f fakeAuth) Authenticated() bool { return f.authenticated }

func openTestStorage(t *testing.T) *storage.Store {
	t.Helper()
	local, err := storage.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("storage.Open() failed: %v", err)
	}
	t.Cleanup(func() { local.Close() })
	return local
}

func defaultGameplay() config.GameplayConfig {
	return config.GameplayConfig{Difficulty: config.DifficultyMedium}
}

// serverState builds a consistent gameplay response for a game id.
func serverState(gameID string, mistakes int) *api.GameState {
	return &api.GameState{
		GameID:    gameID,
		Encrypted: "XYZ QR",
		Display:   "███ ██",
		Mistakes:  mistakes,
	}
}

func newTestStore(t *testing.T, backend Backend) *Store {
	t.Helper()
	return NewStore(backend, openTestStorage(t), defaultGameplay(), nil, nil)
}
