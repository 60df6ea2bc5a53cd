package api

import "time"

// The backend is inconsistent about field naming: older endpoints speak
// snake_case, newer ones camelCase, and a few responses carry both. All of
// that is absorbed here; business logic only ever sees the normalized
// types from types.go.

type rawGameState struct {
	GameIDSnake        string         `json:"game_id"`
	GameIDCamel        string         `json:"gameId"`
	EncryptedParagraph string         `json:"encrypted_paragraph"`
	Encrypted          string         `json:"encrypted"`
	Display            string         `json:"display"`
	Mistakes           *int           `json:"mistakes"`
	MaxMistakesSnake   *int           `json:"max_mistakes"`
	MaxMistakesCamel   *int           `json:"maxMistakes"`
	CorrectlyGuessed   []string       `json:"correctly_guessed"`
	LetterFrequency    map[string]int `json:"letter_frequency"`
	OriginalLetters    []string       `json:"original_letters"`
	GameCompleteSnake  *bool          `json:"game_complete"`
	GameCompleteCamel  *bool          `json:"gameComplete"`
	HasWonSnake        *bool          `json:"has_won"`
	HasWonCamel        *bool          `json:"hasWon"`
	HasLostSnake       *bool          `json:"has_lost"`
	HasLostCamel       *bool          `json:"hasLost"`
	IsDailySnake       *bool          `json:"is_daily"`
	IsDailyCamel       *bool          `json:"isDailyChallenge"`
	DailyDateSnake     string         `json:"daily_date"`
	DailyDateCamel     string         `json:"dailyDate"`
	WinDataSnake       *rawWinData    `json:"win_data"`
	WinDataCamel       *rawWinData    `json:"winData"`
}

type rawWinData struct {
	Score             *int   `json:"score"`
	Rating            string `json:"rating"`
	Mistakes          *int   `json:"mistakes"`
	MaxMistakesSnake  *int   `json:"max_mistakes"`
	MaxMistakesCamel  *int   `json:"maxMistakes"`
	TimeTakenSnake    *int   `json:"time_taken"`
	TimeTakenCamel    *int   `json:"timeTaken"`
	CurrentStreak     *int   `json:"current_streak"`
	StreakBonus       *int   `json:"streak_bonus"`
	MajorAttribution  string `json:"major_attribution"`
	MinorAttribution  string `json:"minor_attribution"`
}

type rawGameStatus struct {
	GameCompleteSnake *bool       `json:"game_complete"`
	GameCompleteCamel *bool       `json:"gameComplete"`
	HasWonSnake       *bool       `json:"has_won"`
	HasWonCamel       *bool       `json:"hasWon"`
	WinDataSnake      *rawWinData `json:"win_data"`
	WinDataCamel      *rawWinData `json:"winData"`
}

type rawActiveGames struct {
	HasActiveGame      bool               `json:"has_active_game"`
	HasActiveDailyGame bool               `json:"has_active_daily_game"`
	GameStats          *rawActiveGameStats `json:"game_stats"`
	DailyStats         *rawActiveGameStats `json:"daily_stats"`
}

type rawActiveGameStats struct {
	GameIDSnake          string  `json:"game_id"`
	GameIDCamel          string  `json:"gameId"`
	Difficulty           string  `json:"difficulty"`
	Mistakes             int     `json:"mistakes"`
	MaxMistakes          int     `json:"max_mistakes"`
	CompletionPercentage float64 `json:"completion_percentage"`
	TimeSpent            int     `json:"time_spent"`
	StartTime            string  `json:"start_time"`
}

type rawDailyCompletion struct {
	CompletedSnake *bool                  `json:"is_completed"`
	CompletedCamel *bool                  `json:"isCompleted"`
	CompletionData *rawDailyCompletionData `json:"completion_data"`
}

type rawDailyCompletionData struct {
	Score       int    `json:"score"`
	Rank        int    `json:"rank"`
	CompletedAt string `json:"completed_at"`
}

func pickString(variants ...string) string {
	for _, v := range variants {
		if v != "" {
			return v
		}
	}
	return ""
}

func pickBool(variants ...*bool) bool {
	for _, v := range variants {
		if v != nil {
			return *v
		}
	}
	return false
}

func pickInt(variants ...*int) int {
	for _, v := range variants {
		if v != nil {
			return *v
		}
	}
	return 0
}

func (r *rawGameState) normalize() *GameState {
	gs := &GameState{
		GameID:           pickString(r.GameIDSnake, r.GameIDCamel),
		Encrypted:        pickString(r.EncryptedParagraph, r.Encrypted),
		Display:          r.Display,
		Mistakes:         pickInt(r.Mistakes),
		MaxMistakes:      pickInt(r.MaxMistakesSnake, r.MaxMistakesCamel),
		CorrectlyGuessed: r.CorrectlyGuessed,
		LetterFrequency:  r.LetterFrequency,
		OriginalLetters:  r.OriginalLetters,
		GameComplete:     pickBool(r.GameCompleteSnake, r.GameCompleteCamel),
		HasWon:           pickBool(r.HasWonSnake, r.HasWonCamel),
		HasLost:          pickBool(r.HasLostSnake, r.HasLostCamel),
		IsDaily:          pickBool(r.IsDailySnake, r.IsDailyCamel),
		DailyDate:        pickString(r.DailyDateSnake, r.DailyDateCamel),
	}
	if wd := firstWinData(r.WinDataSnake, r.WinDataCamel); wd != nil {
		gs.WinData = wd.normalize()
	}
	return gs
}

func (r *rawGameStatus) normalize() *GameStatus {
	st := &GameStatus{
		GameComplete: pickBool(r.GameCompleteSnake, r.GameCompleteCamel),
		HasWon:       pickBool(r.HasWonSnake, r.HasWonCamel),
	}
	if wd := firstWinData(r.WinDataSnake, r.WinDataCamel); wd != nil {
		st.WinData = wd.normalize()
	}
	return st
}

func firstWinData(variants ...*rawWinData) *rawWinData {
	for _, v := range variants {
		if v != nil {
			return v
		}
	}
	return nil
}

func (r *rawWinData) normalize() *WinData {
	wd := &WinData{
		Score:         pickInt(r.Score),
		Rating:        r.Rating,
		Mistakes:      pickInt(r.Mistakes),
		MaxMistakes:   pickInt(r.MaxMistakesSnake, r.MaxMistakesCamel),
		TimeTaken:     pickInt(r.TimeTakenSnake, r.TimeTakenCamel),
		CurrentStreak: pickInt(r.CurrentStreak),
		StreakBonus:   pickInt(r.StreakBonus),
	}
	if r.MajorAttribution != "" || r.MinorAttribution != "" {
		wd.Attribution = &Attribution{
			MajorAttribution: r.MajorAttribution,
			MinorAttribution: r.MinorAttribution,
		}
	}
	return wd
}

func (r *rawActiveGames) normalize() *ActiveGames {
	ag := &ActiveGames{
		HasActiveGame:      r.HasActiveGame,
		HasActiveDailyGame: r.HasActiveDailyGame,
	}
	if r.GameStats != nil {
		ag.GameStats = r.GameStats.normalize()
	}
	if r.DailyStats != nil {
		ag.DailyStats = r.DailyStats.normalize()
	}
	return ag
}

func (r *rawActiveGameStats) normalize() *ActiveGameStats {
	return &ActiveGameStats{
		GameID:               pickString(r.GameIDSnake, r.GameIDCamel),
		Difficulty:           r.Difficulty,
		Mistakes:             r.Mistakes,
		MaxMistakes:          r.MaxMistakes,
		CompletionPercentage: r.CompletionPercentage,
		TimeSpent:            r.TimeSpent,
		StartTime:            parseServerTime(r.StartTime),
	}
}

func (r *rawDailyCompletion) normalize() *DailyCompletion {
	dc := &DailyCompletion{
		Completed: pickBool(r.CompletedSnake, r.CompletedCamel),
	}
	if r.CompletionData != nil {
		dc.CompletionData = &DailyCompletionData{
			Score:       r.CompletionData.Score,
			Rank:        r.CompletionData.Rank,
			CompletedAt: parseServerTime(r.CompletionData.CompletedAt),
		}
	}
	return dc
}

// parseServerTime accepts the timestamp formats the backend has been seen
// to emit. Unparseable values come back as the zero time.
func parseServerTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	for _, layout := range []string{
		time.RFC3339,
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05",
		"2006-01-02",
	} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
