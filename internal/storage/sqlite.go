// Package storage provides SQLite-based persistence for the decodey
// client: local identity (game id, session id, auth token), the pending
// score queue and local result history. Uses the pure-Go
// modernc.org/sqlite driver to avoid CGO dependencies.
package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// Store manages the SQLite database connection.
type Store struct {
	db *sql.DB
}

// Well-known kv keys. The kv table is the only cross-invocation shared
// state besides the score queue.
const (
	KeyGameID     = "current_game_id"
	KeySessionID  = "session_id"
	KeyAuthToken  = "auth_token"
	KeyUsername   = "username"
	KeyRememberMe = "remember_me"
)

// PendingScore is one undelivered completed-game score. Payload carries
// the JSON-encoded submission body; GameID and QueuedAt are denormalized
// for inspection and dedup.
type PendingScore struct {
	ID           int64
	GameID       string
	Payload      []byte
	QueuedAt     time.Time
	AuthRequired bool
}

// ResultEntry is one locally recorded game outcome.
type ResultEntry struct {
	ID         int64
	GameID     string
	Score      int
	Difficulty string
	IsDaily    bool
	Won        bool
	CreatedAt  time.Time
}

// Open creates or opens a SQLite database at the given path.
// It creates the parent directories if needed and runs migrations.
func Open(dbPath string) (*Store, error) {
	// Expand ~ to home directory
	if dbPath != "" && dbPath[0] == '~' {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("storage: cannot expand home directory: %w", err)
		}
		dbPath = filepath.Join(home, dbPath[1:])
	}

	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("storage: cannot create directory %s: %w", dir, err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("storage: cannot open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage: cannot connect to database: %w", err)
	}

	store := &Store{db: db}

	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage: migration failed: %w", err)
	}

	return store, nil
}

// migrate creates the database schema if it doesn't exist.
func (s *Store) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS kv (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS pending_scores (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			game_id TEXT NOT NULL,
			payload TEXT NOT NULL,
			queued_at DATETIME NOT NULL,
			auth_required INTEGER NOT NULL DEFAULT 0
		);
		CREATE INDEX IF NOT EXISTS idx_pending_scores_game_id ON pending_scores(game_id);

		CREATE TABLE IF NOT EXISTS results (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			game_id TEXT NOT NULL,
			score INTEGER NOT NULL,
			difficulty TEXT NOT NULL,
			is_daily INTEGER NOT NULL DEFAULT 0,
			won INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_results_created ON results(created_at DESC);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// GetValue returns the kv value for key and whether it was present.
func (s *Store) GetValue(key string) (string, bool, error) {
	var value string
	err := s.db.QueryRow("SELECT value FROM kv WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("storage: cannot read key %s: %w", key, err)
	}
	return value, true, nil
}

// SetValue upserts a kv entry.
func (s *Store) SetValue(key, value string) error {
	_, err := s.db.Exec(
		"INSERT INTO kv (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
		key, value,
	)
	if err != nil {
		return fmt.Errorf("storage: cannot write key %s: %w", key, err)
	}
	return nil
}

// DeleteValue removes a kv entry. Deleting an absent key is not an error.
func (s *Store) DeleteValue(key string) error {
	if _, err := s.db.Exec("DELETE FROM kv WHERE key = ?", key); err != nil {
		return fmt.Errorf("storage: cannot delete key %s: %w", key, err)
	}
	return nil
}

// CurrentGameID returns the persisted local game id, empty if none.
func (s *Store) CurrentGameID() (string, error) {
	value, _, err := s.GetValue(KeyGameID)
	return value, err
}

// SetCurrentGameID persists the local game id.
func (s *Store) SetCurrentGameID(gameID string) error {
	return s.SetValue(KeyGameID, gameID)
}

// ClearCurrentGameID removes the persisted local game id.
func (s *Store) ClearCurrentGameID() error {
	return s.DeleteValue(KeyGameID)
}

// SavePendingScore enqueues an undelivered score.
// Returns the ID of the inserted record.
func (s *Store) SavePendingScore(gameID string, payload []byte, queuedAt time.Time, authRequired bool) (int64, error) {
	result, err := s.db.Exec(
		"INSERT INTO pending_scores (game_id, payload, queued_at, auth_required) VALUES (?, ?, ?, ?)",
		gameID, string(payload), queuedAt.UTC().Format(time.RFC3339), boolToInt(authRequired),
	)
	if err != nil {
		return 0, fmt.Errorf("storage: cannot save pending score: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("storage: cannot get inserted ID: %w", err)
	}

	return id, nil
}

// PendingScores retrieves all undelivered scores, oldest first.
func (s *Store) PendingScores() ([]PendingScore, error) {
	rows, err := s.db.Query(
		`SELECT id, game_id, payload, queued_at, auth_required
		 FROM pending_scores
		 ORDER BY queued_at ASC, id ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("storage: cannot query pending scores: %w", err)
	}
	defer rows.Close()

	var entries []PendingScore
	for rows.Next() {
		var e PendingScore
		var payload string
		var queuedAt string
		var authRequired int
		if err := rows.Scan(&e.ID, &e.GameID, &payload, &queuedAt, &authRequired); err != nil {
			return nil, fmt.Errorf("storage: cannot scan row: %w", err)
		}
		e.Payload = []byte(payload)
		e.QueuedAt = parseStoredTime(queuedAt)
		e.AuthRequired = authRequired != 0
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("storage: row iteration error: %w", err)
	}

	return entries, nil
}

// DeletePendingScore removes one delivered (or rejected) score.
func (s *Store) DeletePendingScore(id int64) error {
	if _, err := s.db.Exec("DELETE FROM pending_scores WHERE id = ?", id); err != nil {
		return fmt.Errorf("storage: cannot delete pending score %d: %w", id, err)
	}
	return nil
}

// MarkPendingAuthRequired flags a queued score as waiting on login.
func (s *Store) MarkPendingAuthRequired(id int64) error {
	if _, err := s.db.Exec("UPDATE pending_scores SET auth_required = 1 WHERE id = ?", id); err != nil {
		return fmt.Errorf("storage: cannot flag pending score %d: %w", id, err)
	}
	return nil
}

// PendingCount returns the number of queued scores.
func (s *Store) PendingCount() (int, error) {
	var count int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM pending_scores").Scan(&count); err != nil {
		return 0, fmt.Errorf("storage: cannot count pending scores: %w", err)
	}
	return count, nil
}

// RecordResult appends one game outcome to the local history.
func (s *Store) RecordResult(gameID string, score int, difficulty string, isDaily, won bool) (int64, error) {
	result, err := s.db.Exec(
		"INSERT INTO results (game_id, score, difficulty, is_daily, won) VALUES (?, ?, ?, ?, ?)",
		gameID, score, difficulty, boolToInt(isDaily), boolToInt(won),
	)
	if err != nil {
		return 0, fmt.Errorf("storage: cannot record result: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("storage: cannot get inserted ID: %w", err)
	}

	return id, nil
}

// RecentResults retrieves the most recent N game outcomes.
func (s *Store) RecentResults(limit int) ([]ResultEntry, error) {
	if limit <= 0 {
		limit = 10
	}

	rows, err := s.db.Query(
		`SELECT id, game_id, score, difficulty, is_daily, won, created_at
		 FROM results
		 ORDER BY created_at DESC, id DESC
		 LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("storage: cannot query results: %w", err)
	}
	defer rows.Close()

	var entries []ResultEntry
	for rows.Next() {
		var e ResultEntry
		var isDaily, won int
		var createdAt any
		if err := rows.Scan(&e.ID, &e.GameID, &e.Score, &e.Difficulty, &isDaily, &won, &createdAt); err != nil {
			return nil, fmt.Errorf("storage: cannot scan row: %w", err)
		}
		e.IsDaily = isDaily != 0
		e.Won = won != 0

		// Parse the datetime - handle both time.Time and string
		switch v := createdAt.(type) {
		case time.Time:
			e.CreatedAt = v
		case string:
			e.CreatedAt = parseStoredTime(v)
		}
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("storage: row iteration error: %w", err)
	}

	return entries, nil
}

// HighScore returns the best recorded local score.
// Returns 0 if no results exist.
func (s *Store) HighScore() (int, error) {
	var score sql.NullInt64
	err := s.db.QueryRow("SELECT MAX(score) FROM results WHERE won = 1").Scan(&score)
	if err != nil {
		return 0, fmt.Errorf("storage: cannot query high score: %w", err)
	}
	if !score.Valid {
		return 0, nil
	}
	return int(score.Int64), nil
}

func parseStoredTime(v string) time.Time {
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05"} {
		if parsed, err := time.Parse(layout, v); err == nil {
			return parsed
		}
	}
	return time.Time{}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
