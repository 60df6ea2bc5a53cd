package session

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/vovakirdan/decodey/internal/api"
)

// Detector queries the backend for existing in-progress sessions before a
// new one is started, so player progress is never silently overwritten.
type Detector struct {
	backend Backend
	auth    Authenticator
	logger  *log.Logger
	now     func() time.Time
}

// NewDetector creates an active-game detector.
func NewDetector(backend Backend, auth Authenticator, logger *log.Logger) *Detector {
	if logger == nil {
		logger = log.Default()
	}
	return &Detector{
		backend: backend,
		auth:    auth,
		logger:  logger,
		now:     time.Now,
	}
}

// CheckActiveGame returns the user's in-progress sessions. Anonymous
// users trivially have none (no server-side persistence for them). A
// daily game only counts as active when it started on the current UTC
// calendar day; a stale daily from a previous day is treated as absent.
func (d *Detector) CheckActiveGame(ctx context.Context) (*api.ActiveGames, error) {
	if d.auth == nil || !d.auth.Authenticated() {
		return &api.ActiveGames{}, nil
	}

	games, err := d.backend.CheckActiveGame(ctx)
	if err != nil {
		return nil, fmt.Errorf("session: active game check failed: %w", err)
	}

	if games.HasActiveDailyGame && games.DailyStats != nil {
		if !sameUTCDay(games.DailyStats.StartTime, d.now()) {
			d.logger.Debug("ignoring stale daily session",
				"game_id", games.DailyStats.GameID,
				"started", games.DailyStats.StartTime,
			)
			games.HasActiveDailyGame = false
			games.DailyStats = nil
		}
	} else if games.HasActiveDailyGame {
		// Active-daily flag without stats cannot be dated; treat as absent.
		games.HasActiveDailyGame = false
	}

	return games, nil
}

func sameUTCDay(a, b time.Time) bool {
	if a.IsZero() {
		return false
	}
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	return ay == by && am == bm && ad == bd
}
