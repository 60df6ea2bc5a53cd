package session

import (
	"context"
	"errors"

	"github.com/vovakirdan/decodey/internal/api"
)

// Backend is the slice of the backend API the engine needs. api.Client
// satisfies it; tests plug in fakes.
type Backend interface {
	Start(ctx context.Context, req api.StartRequest) (*api.GameState, error)
	StartDaily(ctx context.Context) (*api.GameState, error)
	ContinueGame(ctx context.Context) (*api.GameState, error)
	CheckActiveGame(ctx context.Context) (*api.ActiveGames, error)
	DailyCompletion(ctx context.Context, date string) (*api.DailyCompletion, error)
	Guess(ctx context.Context, gameID, encryptedLetter, guessedLetter string) (*api.GameState, error)
	Hint(ctx context.Context, gameID string) (*api.GameState, error)
	AbandonGame(ctx context.Context, gameID string) error
	GameStatus(ctx context.Context, gameID string) (*api.GameStatus, error)
	Attribution(ctx context.Context, gameID string) (*api.Attribution, error)
}

// Authenticator reports whether the user currently holds a usable
// session token. auth.Manager satisfies it.
type Authenticator interface {
	Authenticated() bool
}

// Guard errors for the engine's re-entrancy and budget rules.
var (
	// ErrInitInFlight rejects a re-entrant initialization call.
	ErrInitInFlight = errors.New("session: initialization already in flight")

	// ErrHintInFlight rejects a concurrent hint request.
	ErrHintInFlight = errors.New("session: hint request already in flight")

	// ErrHintBudget rejects a hint that could become the proximate cause
	// of a loss.
	ErrHintBudget = errors.New("session: hint would exhaust mistake budget")

	// ErrNoSession means an operation needs an active session.
	ErrNoSession = errors.New("session: no active game")

	// ErrGameOver rejects mutations of a terminal session.
	ErrGameOver = errors.New("session: game already over")
)
