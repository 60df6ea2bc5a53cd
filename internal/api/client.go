package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
)

// TokenSource supplies the bearer token for authenticated requests.
// The auth package implements it; tests plug in fakes.
type TokenSource interface {
	// BearerToken returns the current token and whether the user is
	// authenticated at all.
	BearerToken() (string, bool)
}

// Client talks to the decodey backend. One instance is shared by the
// session coordinator, the score queue and the CLI surfaces.
type Client struct {
	baseURL   string
	sessionID string
	httpc     *http.Client
	tokens    TokenSource
	logger    *log.Logger
}

// NewClient creates a backend client. sessionID is sent as X-Session-ID on
// every request; tokens may be nil for a purely anonymous client.
func NewClient(baseURL, sessionID string, tokens TokenSource, timeout time.Duration, logger *log.Logger) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Client{
		baseURL:   baseURL,
		sessionID: sessionID,
		httpc:     &http.Client{Timeout: timeout},
		tokens:    tokens,
		logger:    logger,
	}
}

// Authenticated reports whether a bearer token is available.
func (c *Client) Authenticated() bool {
	if c.tokens == nil {
		return false
	}
	_, ok := c.tokens.BearerToken()
	return ok
}

// do performs one round trip. gameID, when set, is sent as X-Game-ID.
// out, when non-nil, receives the decoded JSON body.
func (c *Client) do(ctx context.Context, method, path, gameID string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("api: cannot encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("api: cannot build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.sessionID != "" {
		req.Header.Set("X-Session-ID", c.sessionID)
	}
	if gameID != "" {
		req.Header.Set("X-Game-ID", gameID)
	}
	if c.tokens != nil {
		if token, ok := c.tokens.BearerToken(); ok {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return classifyTransport(err)
	}
	defer resp.Body.Close()

	if err := classifyStatus(resp.StatusCode); err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("api: cannot decode response from %s: %w", path, err)
	}
	return nil
}

// requireAuth short-circuits authenticated endpoints when no token is
// available, saving the round trip.
func (c *Client) requireAuth() error {
	if !c.Authenticated() {
		return ErrAuthRequired
	}
	return nil
}

// Start begins a fresh session. Long-text requests go to /longstart.
func (c *Client) Start(ctx context.Context, req StartRequest) (*GameState, error) {
	path := "/start"
	if req.LongText {
		path = "/longstart"
	}
	var raw rawGameState
	if err := c.do(ctx, http.MethodPost, path, "", req, &raw); err != nil {
		return nil, err
	}
	return raw.normalize(), nil
}

// Guess submits one encrypted->plaintext letter mapping and returns the
// server's authoritative post-guess state.
func (c *Client) Guess(ctx context.Context, gameID, encryptedLetter, guessedLetter string) (*GameState, error) {
	body := map[string]string{
		"encrypted_letter": encryptedLetter,
		"guessed_letter":   guessedLetter,
		"game_id":          gameID,
	}
	var raw rawGameState
	if err := c.do(ctx, http.MethodPost, "/guess", gameID, body, &raw); err != nil {
		return nil, err
	}
	return raw.normalize(), nil
}

// Hint requests a server-side reveal. The server charges it against the
// mistake budget.
func (c *Client) Hint(ctx context.Context, gameID string) (*GameState, error) {
	body := map[string]string{"game_id": gameID}
	var raw rawGameState
	if err := c.do(ctx, http.MethodPost, "/hint", gameID, body, &raw); err != nil {
		return nil, err
	}
	return raw.normalize(), nil
}

// CheckActiveGame asks whether the authenticated user has in-progress
// sessions server-side.
func (c *Client) CheckActiveGame(ctx context.Context) (*ActiveGames, error) {
	if err := c.requireAuth(); err != nil {
		return nil, err
	}
	var raw rawActiveGames
	if err := c.do(ctx, http.MethodGet, "/api/check-active-game", "", nil, &raw); err != nil {
		return nil, err
	}
	return raw.normalize(), nil
}

// ContinueGame resumes the user's in-progress session.
func (c *Client) ContinueGame(ctx context.Context) (*GameState, error) {
	if err := c.requireAuth(); err != nil {
		return nil, err
	}
	var raw rawGameState
	if err := c.do(ctx, http.MethodGet, "/api/continue-game", "", nil, &raw); err != nil {
		return nil, err
	}
	return raw.normalize(), nil
}

// AbandonGame deletes the session server-side. Callers treat failures as
// non-fatal.
func (c *Client) AbandonGame(ctx context.Context, gameID string) error {
	if err := c.requireAuth(); err != nil {
		return err
	}
	return c.do(ctx, http.MethodDelete, "/api/abandon-game", gameID, nil, nil)
}

// GameStatus fetches the canonical completion state for a session.
func (c *Client) GameStatus(ctx context.Context, gameID string) (*GameStatus, error) {
	var raw rawGameStatus
	path := "/api/game-status?game_id=" + url.QueryEscape(gameID)
	if err := c.do(ctx, http.MethodGet, path, gameID, nil, &raw); err != nil {
		return nil, err
	}
	return raw.normalize(), nil
}

// StartDaily begins today's daily challenge session.
func (c *Client) StartDaily(ctx context.Context) (*GameState, error) {
	var raw rawGameState
	if err := c.do(ctx, http.MethodPost, "/api/daily-challenge", "", nil, &raw); err != nil {
		return nil, err
	}
	return raw.normalize(), nil
}

// DailyCompletion checks whether the daily challenge for the given ISO
// date (YYYY-MM-DD) is already completed by this user.
func (c *Client) DailyCompletion(ctx context.Context, date string) (*DailyCompletion, error) {
	if err := c.requireAuth(); err != nil {
		return nil, err
	}
	var raw rawDailyCompletion
	if err := c.do(ctx, http.MethodGet, "/api/daily-completion/"+url.PathEscape(date), "", nil, &raw); err != nil {
		return nil, err
	}
	return raw.normalize(), nil
}

// Attribution fetches the quote attribution for a finished game.
func (c *Client) Attribution(ctx context.Context, gameID string) (*Attribution, error) {
	var raw struct {
		MajorAttribution string `json:"major_attribution"`
		MinorAttribution string `json:"minor_attribution"`
	}
	path := "/get_attribution?game_id=" + url.QueryEscape(gameID)
	if err := c.do(ctx, http.MethodGet, path, gameID, nil, &raw); err != nil {
		return nil, err
	}
	return &Attribution{
		MajorAttribution: raw.MajorAttribution,
		MinorAttribution: raw.MinorAttribution,
	}, nil
}

// RecordScore delivers one completed-game score.
func (c *Client) RecordScore(ctx context.Context, payload ScorePayload) error {
	return c.do(ctx, http.MethodPost, "/record_score", payload.GameID, payload, nil)
}

// Leaderboard fetches the public leaderboard.
func (c *Client) Leaderboard(ctx context.Context, limit int) ([]LeaderboardEntry, error) {
	if limit <= 0 {
		limit = 10
	}
	var raw struct {
		Entries []LeaderboardEntry `json:"entries"`
	}
	if err := c.do(ctx, http.MethodGet, "/leaderboard?limit="+strconv.Itoa(limit), "", nil, &raw); err != nil {
		return nil, err
	}
	return raw.Entries, nil
}

// LoginResult is the normalized /login response.
type LoginResult struct {
	Token    string `json:"token"`
	Username string `json:"username"`
}

// Login exchanges credentials for a bearer token.
func (c *Client) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	body := map[string]string{"username": username, "password": password}
	var res LoginResult
	if err := c.do(ctx, http.MethodPost, "/login", "", body, &res); err != nil {
		return nil, err
	}
	if res.Token == "" {
		return nil, fmt.Errorf("%w: empty token in login response", ErrServerRejected)
	}
	return &res, nil
}

// Logout invalidates the token server-side. Best effort; local state is
// cleared regardless of the outcome.
func (c *Client) Logout(ctx context.Context) error {
	if err := c.requireAuth(); err != nil {
		return err
	}
	return c.do(ctx, http.MethodPost, "/logout", "", nil, nil)
}
