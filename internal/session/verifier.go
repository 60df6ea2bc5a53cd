package session

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/vovakirdan/decodey/internal/api"
)

// Verifier reconciles a client-suspected win with the server's canonical
// game status.
type Verifier struct {
	backend Backend
	store   *Store
	logger  *log.Logger
}

// NewVerifier creates a win verifier bound to a store.
func NewVerifier(backend Backend, store *Store, logger *log.Logger) *Verifier {
	if logger == nil {
		logger = log.Default()
	}
	return &Verifier{backend: backend, store: store, logger: logger}
}

// VerifyResult is the outcome of one verification round trip.
type VerifyResult struct {
	Verified bool
	WinData  *api.WinData
}

// VerifyWin fetches the canonical status for the tentatively won session.
// On confirmation the store's win is promoted with the authoritative
// payload; if the server instead reports loss, the store is corrected —
// the provisional client guess never outranks the server's verdict.
func (v *Verifier) VerifyWin(ctx context.Context) (VerifyResult, error) {
	snap := v.store.Snapshot()
	if snap.WinPhase != WinTentative {
		return VerifyResult{}, nil
	}

	status, err := v.backend.GameStatus(ctx, snap.GameID)
	if err != nil {
		return VerifyResult{}, fmt.Errorf("session: win verification failed: %w", err)
	}

	if !status.GameComplete {
		// Server does not consider the game finished; leave the win
		// tentative for a later retry.
		return VerifyResult{}, nil
	}

	if !status.HasWon {
		v.logger.Info("server reports loss for suspected win", "game_id", snap.GameID)
		v.store.OverrideLoss()
		return VerifyResult{}, nil
	}

	winData := status.WinData
	if winData == nil {
		winData = &api.WinData{}
	}
	if winData.Attribution == nil {
		if attr, err := v.backend.Attribution(ctx, snap.GameID); err == nil {
			winData.Attribution = attr
		} else {
			v.logger.Warn("could not fetch attribution", "game_id", snap.GameID, "error", err)
		}
	}

	v.store.ConfirmWin(winData)
	return VerifyResult{Verified: true, WinData: winData}, nil
}
