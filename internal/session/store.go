package session

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/samber/lo"

	"github.com/vovakirdan/decodey/internal/api"
	"github.com/vovakirdan/decodey/internal/config"
	"github.com/vovakirdan/decodey/internal/game"
	"github.com/vovakirdan/decodey/internal/storage"
)

// WinPhase models the two-phase win state: a client-suspected win stays
// tentative until the server's canonical status confirms it.
type WinPhase int

const (
	WinNone WinPhase = iota
	WinTentative
	WinConfirmed
)

// Snapshot is a read-only copy of the current session state.
type Snapshot struct {
	GameID           string
	Encrypted        string
	Display          string
	Mistakes         int
	MaxMistakes      int
	PendingHints     int
	CorrectlyGuessed []string
	GuessedMappings  map[string]string
	LetterFrequency  map[string]int
	OriginalLetters  []string
	Difficulty       config.Difficulty
	HardcoreMode     bool
	IsDaily          bool
	DailyDate        string
	WinPhase         WinPhase
	HasLost          bool
	WinData          *api.WinData
}

// HasWon reports a win, tentative or confirmed.
func (s Snapshot) HasWon() bool { return s.WinPhase != WinNone }

// Terminal reports whether the session has ended either way.
func (s Snapshot) Terminal() bool { return s.HasLost || s.HasWon() }

// Active reports whether a live, non-terminal session exists.
func (s Snapshot) Active() bool { return s.GameID != "" && !s.Terminal() }

// Store is the authoritative in-memory mirror of one active session. All
// mutations apply server truth over local state, which makes duplicate
// response delivery idempotent.
type Store struct {
	backend  Backend
	local    *storage.Store
	hub      *Hub
	logger   *log.Logger
	defaults config.GameplayConfig

	mu               sync.Mutex
	gameID           string
	encrypted        string
	display          string
	mistakes         int
	maxMistakes      int
	pendingHints     int
	hintInFlight     bool
	correctlyGuessed []string
	guessedMappings  map[string]string
	letterFrequency  map[string]int
	originalLetters  []string
	difficulty       config.Difficulty
	hardcore         bool
	isDaily          bool
	dailyDate        string
	winPhase         WinPhase
	hasLost          bool
	winData          *api.WinData
}

// NewStore creates a game state store. local may be nil for ephemeral
// (in-memory only) use.
func NewStore(backend Backend, local *storage.Store, defaults config.GameplayConfig, hub *Hub, logger *log.Logger) *Store {
	if hub == nil {
		hub = NewHub()
	}
	if logger == nil {
		logger = log.Default()
	}
	s := &Store{
		backend:  backend,
		local:    local,
		hub:      hub,
		logger:   logger,
		defaults: defaults,
	}
	s.resetLocked()
	return s
}

// Hub returns the event hub consumers subscribe to.
func (s *Store) Hub() *Hub { return s.hub }

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Store) snapshotLocked() Snapshot {
	snap := Snapshot{
		GameID:           s.gameID,
		Encrypted:        s.encrypted,
		Display:          s.display,
		Mistakes:         s.mistakes,
		MaxMistakes:      s.maxMistakes,
		PendingHints:     s.pendingHints,
		CorrectlyGuessed: append([]string(nil), s.correctlyGuessed...),
		GuessedMappings:  lo.Assign(map[string]string{}, s.guessedMappings),
		LetterFrequency:  lo.Assign(map[string]int{}, s.letterFrequency),
		OriginalLetters:  append([]string(nil), s.originalLetters...),
		Difficulty:       s.difficulty,
		HardcoreMode:     s.hardcore,
		IsDaily:          s.isDaily,
		DailyDate:        s.dailyDate,
		WinPhase:         s.winPhase,
		HasLost:          s.hasLost,
	}
	if s.winData != nil {
		wd := *s.winData
		snap.WinData = &wd
	}
	return snap
}

// ApplyServerState applies an authoritative gameplay response. A response
// for a different game id replaces the session; a response violating the
// encrypted/display parity invariant is rejected and the previous state
// retained.
func (s *Store) ApplyServerState(gs *api.GameState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.applyServerStateLocked(gs)
}

func (s *Store) applyServerStateLocked(gs *api.GameState) error {
	if gs == nil {
		return fmt.Errorf("session: nil server state")
	}

	newGame := gs.GameID != "" && gs.GameID != s.gameID
	if !newGame && s.gameID == "" {
		return ErrNoSession
	}

	// Validate text integrity before touching any state. A mismatch is a
	// data-integrity failure: never displayed, update rejected, previous
	// state retained.
	hardcore := s.hardcore
	if newGame {
		hardcore = s.defaults.HardcoreMode
	}
	encrypted, display, err := game.NormalizeTexts(gs.Encrypted, gs.Display, hardcore)
	if err != nil {
		s.logger.Error("rejecting server state", "game_id", gs.GameID, "error", err)
		return fmt.Errorf("session: data integrity: %w", err)
	}

	if newGame {
		s.resetLocked()
		s.gameID = gs.GameID
		if id, err := game.ParseID(gs.GameID); err == nil {
			s.difficulty = id.Difficulty
			s.isDaily = id.IsDaily()
		}
	}

	s.encrypted = encrypted
	s.display = display
	s.mistakes = gs.Mistakes
	// Server truth replaces the hint reservation, it never accumulates.
	s.pendingHints = 0
	if gs.MaxMistakes > 0 {
		s.maxMistakes = gs.MaxMistakes
	} else {
		s.maxMistakes = s.difficulty.MaxMistakes()
	}
	if gs.CorrectlyGuessed != nil {
		s.correctlyGuessed = gs.CorrectlyGuessed
	}
	if gs.LetterFrequency != nil {
		s.letterFrequency = gs.LetterFrequency
	}
	if gs.OriginalLetters != nil {
		s.originalLetters = gs.OriginalLetters
	}
	if gs.IsDaily {
		s.isDaily = true
	}
	if gs.DailyDate != "" {
		s.dailyDate = gs.DailyDate
	}

	if s.local != nil && newGame {
		if err := s.local.SetCurrentGameID(s.gameID); err != nil {
			s.logger.Warn("could not persist game id", "error", err)
		}
	}

	// Loss takes precedence: a response that reports a win together with
	// a losing mistake count resolves to loss.
	if gs.HasLost || s.mistakes >= s.maxMistakes {
		s.markLostLocked()
	} else if (gs.HasWon || gs.GameComplete) && s.winPhase == WinNone {
		s.winPhase = WinTentative
		s.hub.Publish(WinTentativeEvent{GameID: s.gameID})
	}

	s.hub.Publish(StateChangedEvent{Snapshot: s.snapshotLocked()})
	return nil
}

// SubmitGuess sends one encrypted->plaintext mapping to the server and
// applies the authoritative response. A response arriving after the
// session changed identity is discarded.
func (s *Store) SubmitGuess(ctx context.Context, encryptedLetter, guessedLetter string) error {
	s.mu.Lock()
	if s.gameID == "" {
		s.mu.Unlock()
		return ErrNoSession
	}
	if s.hasLost || s.winPhase != WinNone {
		s.mu.Unlock()
		return ErrGameOver
	}
	gameID := s.gameID
	s.mu.Unlock()

	encryptedLetter = strings.ToUpper(encryptedLetter)
	guessedLetter = strings.ToUpper(guessedLetter)

	resp, err := s.backend.Guess(ctx, gameID, encryptedLetter, guessedLetter)
	if err != nil {
		// Gameplay failures surface immediately: silently losing a
		// mistake-budget interaction is unacceptable.
		return fmt.Errorf("session: guess failed: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gameID != gameID || (resp.GameID != "" && resp.GameID != gameID) {
		s.logger.Debug("discarding stale guess response", "game_id", gameID)
		return nil
	}
	if lo.Contains(resp.CorrectlyGuessed, encryptedLetter) {
		s.guessedMappings[encryptedLetter] = guessedLetter
	}
	return s.applyServerStateLocked(resp)
}

// RequestHint asks the server to reveal a letter, charged against the
// mistake budget. Single-flight; refused client-side whenever the
// reservation arithmetic could turn the hint into the losing mistake.
func (s *Store) RequestHint(ctx context.Context) error {
	s.mu.Lock()
	if s.gameID == "" {
		s.mu.Unlock()
		return ErrNoSession
	}
	if s.hasLost || s.winPhase != WinNone {
		s.mu.Unlock()
		return ErrGameOver
	}
	if s.hintInFlight {
		s.mu.Unlock()
		return ErrHintInFlight
	}
	if s.mistakes+s.pendingHints+1 >= s.maxMistakes {
		s.mu.Unlock()
		return ErrHintBudget
	}
	s.hintInFlight = true
	s.pendingHints++
	gameID := s.gameID
	s.hub.Publish(StateChangedEvent{Snapshot: s.snapshotLocked()})
	s.mu.Unlock()

	resp, err := s.backend.Hint(ctx, gameID)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.hintInFlight = false
	if err != nil {
		// Roll back the reservation; the server never saw the hint.
		if s.pendingHints > 0 {
			s.pendingHints--
		}
		return fmt.Errorf("session: hint failed: %w", err)
	}
	if s.gameID != gameID || (resp.GameID != "" && resp.GameID != gameID) {
		s.logger.Debug("discarding stale hint response", "game_id", gameID)
		return nil
	}
	return s.applyServerStateLocked(resp)
}

// ResetGame restores default state. Difficulty and hardcore mode come
// from configuration, not from the abandoned session.
func (s *Store) ResetGame() {
	s.mu.Lock()
	s.resetLocked()
	s.clearLocalIdentityLocked()
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.hub.Publish(StateChangedEvent{Snapshot: snap})
}

// AbandonGame deletes the session server-side (best effort, non-fatal)
// and always clears local identity. Idempotent.
func (s *Store) AbandonGame(ctx context.Context) {
	s.mu.Lock()
	gameID := s.gameID
	s.mu.Unlock()

	if gameID != "" && s.backend != nil {
		if err := s.backend.AbandonGame(ctx, gameID); err != nil {
			s.logger.Warn("could not abandon game server-side", "game_id", gameID, "error", err)
		}
	}

	s.mu.Lock()
	s.resetLocked()
	s.clearLocalIdentityLocked()
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.hub.Publish(StateChangedEvent{Snapshot: snap})
}

// ConfirmWin promotes a tentative win with the server's authoritative
// payload. Called by the win verifier only.
func (s *Store) ConfirmWin(winData *api.WinData) {
	s.mu.Lock()
	if s.winPhase != WinTentative {
		s.mu.Unlock()
		return
	}
	s.winPhase = WinConfirmed
	s.winData = winData
	gameID := s.gameID
	s.recordResultLocked(true)
	snap := s.snapshotLocked()
	s.mu.Unlock()

	if winData != nil {
		s.hub.Publish(WinConfirmedEvent{GameID: gameID, WinData: *winData})
	}
	s.hub.Publish(StateChangedEvent{Snapshot: snap})
}

// OverrideLoss corrects a tentative win to a loss. The server's verdict
// beats the provisional client guess.
func (s *Store) OverrideLoss() {
	s.mu.Lock()
	s.winPhase = WinNone
	s.winData = nil
	s.markLostLocked()
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.hub.Publish(StateChangedEvent{Snapshot: snap})
}

// markLostLocked sets the terminal loss flag exactly once.
func (s *Store) markLostLocked() {
	if s.hasLost {
		return
	}
	s.hasLost = true
	s.winPhase = WinNone
	s.winData = nil
	s.recordResultLocked(false)
	s.hub.Publish(GameLostEvent{GameID: s.gameID, Mistakes: s.mistakes})
}

func (s *Store) recordResultLocked(won bool) {
	if s.local == nil || s.gameID == "" {
		return
	}
	score := 0
	if won && s.winData != nil {
		score = s.winData.Score
	}
	if _, err := s.local.RecordResult(s.gameID, score, string(s.difficulty), s.isDaily, won); err != nil {
		s.logger.Warn("could not record result locally", "error", err)
	}
}

func (s *Store) resetLocked() {
	s.gameID = ""
	s.encrypted = ""
	s.display = ""
	s.mistakes = 0
	s.pendingHints = 0
	s.hintInFlight = false
	s.correctlyGuessed = nil
	s.guessedMappings = make(map[string]string)
	s.letterFrequency = nil
	s.originalLetters = nil
	s.difficulty = s.defaults.Difficulty
	s.hardcore = s.defaults.HardcoreMode
	s.maxMistakes = s.defaults.Difficulty.MaxMistakes()
	s.isDaily = false
	s.dailyDate = ""
	s.winPhase = WinNone
	s.hasLost = false
	s.winData = nil
}

func (s *Store) clearLocalIdentityLocked() {
	if s.local == nil {
		return
	}
	if err := s.local.ClearCurrentGameID(); err != nil {
		s.logger.Warn("could not clear stored game id", "error", err)
	}
}
