package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/vovakirdan/decodey/internal/api"
	"github.com/vovakirdan/decodey/internal/config"
	"github.com/vovakirdan/decodey/internal/storage"
)

// InitOptions selects an initialization path.
type InitOptions struct {
	// DailyRequested explicitly asks for the daily challenge.
	DailyRequested bool

	// CustomRequested explicitly asks for a fresh custom game, for both
	// anonymous and authenticated users, regardless of existing sessions.
	CustomRequested bool

	// Difficulty overrides the configured default when set.
	Difficulty config.Difficulty

	// LongText requests the long-quote variant.
	LongText bool
}

// Outcome classifies what Initialize decided to do.
type Outcome int

const (
	// OutcomeStarted means a fresh session was created.
	OutcomeStarted Outcome = iota
	// OutcomeStartedDaily means today's daily challenge was started.
	OutcomeStartedDaily
	// OutcomeResumed means an existing session was continued.
	OutcomeResumed
	// OutcomeActiveGameFound means an in-progress server-side session
	// exists and nothing was overwritten; the caller decides resume vs
	// abandon.
	OutcomeActiveGameFound
	// OutcomeAlreadyCompleted means today's daily is already done and no
	// session was created.
	OutcomeAlreadyCompleted
)

// InitResult is what an initialization call produced.
type InitResult struct {
	Outcome     Outcome
	ActiveGames *api.ActiveGames
	Completion  *api.DailyCompletionData
}

// DefaultInitGrace absorbs duplicate UI-triggered initialization calls
// after one completes.
const DefaultInitGrace = 800 * time.Millisecond

// Coordinator is the top-level orchestrator: for a given initialization
// request and auth context it decides which of resume / start-daily /
// start-custom / report-active-found applies, and drives the store.
type Coordinator struct {
	backend  Backend
	auth     Authenticator
	store    *Store
	local    *storage.Store
	detector *Detector
	logger   *log.Logger
	defaults config.GameplayConfig
	grace    time.Duration
	now      func() time.Time

	mu           sync.Mutex
	initializing bool
}

// NewCoordinator creates a session coordinator.
func NewCoordinator(backend Backend, auth Authenticator, store *Store, local *storage.Store, defaults config.GameplayConfig, logger *log.Logger) *Coordinator {
	if logger == nil {
		logger = log.Default()
	}
	return &Coordinator{
		backend:  backend,
		auth:     auth,
		store:    store,
		local:    local,
		detector: NewDetector(backend, auth, logger),
		logger:   logger,
		defaults: defaults,
		grace:    DefaultInitGrace,
		now:      time.Now,
	}
}

// Initialize runs the session decision chain. Re-entrant calls are
// rejected without side effects while one is in flight; the guard clears
// a short grace window after completion.
func (c *Coordinator) Initialize(ctx context.Context, opts InitOptions) (InitResult, error) {
	if !c.acquire() {
		return InitResult{}, ErrInitInFlight
	}
	defer c.releaseAfterGrace()

	// Explicit daily request wins over everything else.
	if opts.DailyRequested {
		return c.startDaily(ctx)
	}

	// Anonymous users never get silent custom games: without an explicit
	// custom request they always resolve to the daily challenge.
	if !c.authenticated() && !opts.CustomRequested {
		c.clearLocalGameID()
		return c.startDaily(ctx)
	}

	// Authenticated, nothing explicit: an existing server-side session is
	// never overwritten, it is reported back instead.
	if c.authenticated() && !opts.CustomRequested {
		games, err := c.detector.CheckActiveGame(ctx)
		if err != nil {
			c.logger.Warn("active game check failed, continuing", "error", err)
		} else if games.HasActiveGame || games.HasActiveDailyGame {
			c.store.Hub().Publish(ActiveGameFoundEvent{Games: *games})
			return InitResult{Outcome: OutcomeActiveGameFound, ActiveGames: games}, nil
		}
	}

	// Explicit custom request always starts fresh.
	if opts.CustomRequested {
		return c.startFresh(ctx, opts)
	}

	// Authenticated with a remembered local game id: try to resume, fall
	// back to a fresh start.
	if c.authenticated() {
		if gameID := c.localGameID(); gameID != "" {
			res, err := c.resume(ctx)
			if err == nil {
				return res, nil
			}
			c.logger.Warn("resume failed, starting fresh", "game_id", gameID, "error", err)
		}
	}

	return c.startFresh(ctx, opts)
}

// Resume continues the user's in-progress server-side session. Used after
// an active-game-found outcome when the player chooses to continue.
func (c *Coordinator) Resume(ctx context.Context) (InitResult, error) {
	if !c.acquire() {
		return InitResult{}, ErrInitInFlight
	}
	defer c.releaseAfterGrace()
	return c.resume(ctx)
}

func (c *Coordinator) resume(ctx context.Context) (InitResult, error) {
	gs, err := c.backend.ContinueGame(ctx)
	if err != nil {
		return InitResult{}, fmt.Errorf("session: cannot continue game: %w", err)
	}
	if err := c.store.ApplyServerState(gs); err != nil {
		return InitResult{}, err
	}
	return InitResult{Outcome: OutcomeResumed}, nil
}

// startDaily runs the daily path: for authenticated users a completed
// daily short-circuits without creating a session; otherwise the daily is
// a forced singleton replacing whatever was active.
func (c *Coordinator) startDaily(ctx context.Context) (InitResult, error) {
	if c.authenticated() {
		today := c.now().UTC().Format("2006-01-02")
		completion, err := c.backend.DailyCompletion(ctx, today)
		if err != nil {
			c.logger.Warn("daily completion check failed, continuing", "error", err)
		} else if completion.Completed {
			data := completion.CompletionData
			if data == nil {
				data = &api.DailyCompletionData{}
			}
			c.store.Hub().Publish(DailyAlreadyCompletedEvent{Completion: *data})
			return InitResult{Outcome: OutcomeAlreadyCompleted, Completion: data}, nil
		}
	}

	c.clearLocalGameID()

	gs, err := c.backend.StartDaily(ctx)
	if err != nil {
		return InitResult{}, fmt.Errorf("session: cannot start daily challenge: %w", err)
	}
	if err := c.store.ApplyServerState(gs); err != nil {
		return InitResult{}, err
	}
	return InitResult{Outcome: OutcomeStartedDaily}, nil
}

func (c *Coordinator) startFresh(ctx context.Context, opts InitOptions) (InitResult, error) {
	difficulty := opts.Difficulty
	if difficulty == "" {
		difficulty = c.defaults.Difficulty
	}
	req := api.StartRequest{
		Difficulty: string(difficulty),
		LongText:   opts.LongText || c.defaults.LongText,
		Hardcore:   c.defaults.HardcoreMode,
	}

	gs, err := c.backend.Start(ctx, req)
	if err != nil {
		return InitResult{}, fmt.Errorf("session: cannot start game: %w", err)
	}
	if err := c.store.ApplyServerState(gs); err != nil {
		return InitResult{}, err
	}
	return InitResult{Outcome: OutcomeStarted}, nil
}

func (c *Coordinator) authenticated() bool {
	return c.auth != nil && c.auth.Authenticated()
}

func (c *Coordinator) localGameID() string {
	if c.local == nil {
		return ""
	}
	gameID, err := c.local.CurrentGameID()
	if err != nil {
		c.logger.Warn("could not read stored game id", "error", err)
		return ""
	}
	return gameID
}

func (c *Coordinator) clearLocalGameID() {
	if c.local == nil {
		return
	}
	if err := c.local.ClearCurrentGameID(); err != nil {
		c.logger.Warn("could not clear stored game id", "error", err)
	}
}

func (c *Coordinator) acquire() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.initializing {
		return false
	}
	c.initializing = true
	return true
}

// releaseAfterGrace clears the busy flag after the grace window so
// duplicate UI-triggered calls right after completion are absorbed.
func (c *Coordinator) releaseAfterGrace() {
	if c.grace <= 0 {
		c.mu.Lock()
		c.initializing = false
		c.mu.Unlock()
		return
	}
	time.AfterFunc(c.grace, func() {
		c.mu.Lock()
		c.initializing = false
		c.mu.Unlock()
	})
}

// SetInitGrace overrides the re-entrancy grace window. Zero releases the
// guard immediately on completion.
func (c *Coordinator) SetInitGrace(d time.Duration) {
	c.mu.Lock()
	c.grace = d
	c.mu.Unlock()
}
