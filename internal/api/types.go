// Package api is the HTTP client for the decodey backend. It owns the
// request/response contracts, the failure taxonomy and the single place
// where heterogeneous server field names are normalized.
package api

import "time"

// GameState is the normalized shape of every gameplay response
// (/start, /longstart, /guess, /hint, continue-game).
type GameState struct {
	GameID           string
	Encrypted        string
	Display          string
	Mistakes         int
	MaxMistakes      int
	CorrectlyGuessed []string
	LetterFrequency  map[string]int
	OriginalLetters  []string
	GameComplete     bool
	HasWon           bool
	HasLost          bool
	IsDaily          bool
	DailyDate        string
	WinData          *WinData
}

// WinData carries the authoritative completion payload for a won game.
type WinData struct {
	Score        int
	Rating       string
	Mistakes     int
	MaxMistakes  int
	TimeTaken    int
	CurrentStreak int
	StreakBonus  int
	Attribution  *Attribution
}

// Attribution identifies the author and source of the solved quote.
type Attribution struct {
	MajorAttribution string
	MinorAttribution string
}

// GameStatus is the normalized /api/game-status response used for win
// verification.
type GameStatus struct {
	GameComplete bool
	HasWon       bool
	WinData      *WinData
}

// ActiveGames is the normalized /api/check-active-game response.
type ActiveGames struct {
	HasActiveGame      bool
	HasActiveDailyGame bool
	GameStats          *ActiveGameStats
	DailyStats         *ActiveGameStats
}

// ActiveGameStats summarizes an in-progress server-side session.
type ActiveGameStats struct {
	GameID               string
	Difficulty           string
	Mistakes             int
	MaxMistakes          int
	CompletionPercentage float64
	TimeSpent            int
	StartTime            time.Time
}

// DailyCompletion is the daily completion-check response for one date.
type DailyCompletion struct {
	Completed      bool
	CompletionData *DailyCompletionData
}

// DailyCompletionData describes an already-finished daily challenge.
type DailyCompletionData struct {
	Score       int
	Rank        int
	CompletedAt time.Time
}

// StartRequest selects the parameters for a fresh session.
type StartRequest struct {
	Difficulty string `json:"difficulty"`
	LongText   bool   `json:"longText"`
	Hardcore   bool   `json:"hardcoreMode"`
}

// ScorePayload is one completed-game score submission. GameID plus
// QueuedAt form the idempotency key for server-side dedup.
type ScorePayload struct {
	GameID     string `json:"game_id"`
	Score      int    `json:"score"`
	Mistakes   int    `json:"mistakes"`
	TimeTaken  int    `json:"time_taken"`
	Difficulty string `json:"difficulty"`
	HardcoreMode bool `json:"hardcore_mode"`
	IsDaily    bool   `json:"is_daily"`
	QueuedAt   int64  `json:"queued_at"`
}

// LeaderboardEntry is one row of the public leaderboard.
type LeaderboardEntry struct {
	Rank        int    `json:"rank"`
	Username    string `json:"username"`
	Score       int    `json:"score"`
	GamesPlayed int    `json:"games_played"`
	AvgScore    float64 `json:"avg_score"`
}
