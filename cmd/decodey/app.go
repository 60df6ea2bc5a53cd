package main

import (
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/vovakirdan/decodey/internal/api"
	"github.com/vovakirdan/decodey/internal/auth"
	"github.com/vovakirdan/decodey/internal/config"
	"github.com/vovakirdan/decodey/internal/platform/tui"
	"github.com/vovakirdan/decodey/internal/score"
	"github.com/vovakirdan/decodey/internal/session"
	"github.com/vovakirdan/decodey/internal/storage"
)

// app wires the shared components every command needs: settings, local
// storage, the auth manager and the backend client.
type app struct {
	settings config.Settings
	logger   *log.Logger
	local    *storage.Store
	auth     *auth.Manager
	client   *api.Client
}

// newApp loads settings (with flag overrides), opens local storage and
// builds the backend client with a stable per-install session id.
func newApp() (*app, error) {
	// Development convenience; absence of a .env file is fine.
	//nolint:errcheck
	godotenv.Load()

	settings, err := config.Load(flagConfig)
	if err != nil {
		return nil, err
	}
	if flagServer != "" {
		settings.Server.URL = flagServer
	}
	if flagDBPath != "" {
		settings.Storage.DBPath = flagDBPath
	}

	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		Prefix:          "decodey",
	})

	local, err := storage.Open(settings.Storage.DBPath)
	if err != nil {
		return nil, err
	}

	authMgr, err := auth.NewManager(local, logger)
	if err != nil {
		local.Close()
		return nil, err
	}

	sessionID, err := ensureSessionID(local)
	if err != nil {
		local.Close()
		return nil, err
	}

	timeout := time.Duration(settings.Server.TimeoutSecs) * time.Second
	client := api.NewClient(settings.Server.URL, sessionID, authMgr, timeout, logger)

	return &app{
		settings: settings,
		logger:   logger,
		local:    local,
		auth:     authMgr,
		client:   client,
	}, nil
}

// Close releases the app's resources.
func (a *app) Close() {
	if a.local != nil {
		a.local.Close()
	}
}

// engine builds a fresh session engine on top of the shared components.
func (a *app) engine() tui.Engine {
	hub := session.NewHub()
	store := session.NewStore(a.client, a.local, a.settings.Gameplay, hub, a.logger)
	coordinator := session.NewCoordinator(a.client, a.auth, store, a.local, a.settings.Gameplay, a.logger)
	verifier := session.NewVerifier(a.client, store, a.logger)
	queue := score.NewQueue(a.client, a.local, a.auth, a.logger)

	return tui.Engine{
		Store:       store,
		Coordinator: coordinator,
		Verifier:    verifier,
		Queue:       queue,
		Username:    a.auth.Username(),
	}
}

// queue builds a score queue without the rest of the engine, for the
// commands that only flush or inspect pending scores.
func (a *app) queue() *score.Queue {
	return score.NewQueue(a.client, a.local, a.auth, a.logger)
}

// ensureSessionID returns the stable per-install session id, creating it
// on first run.
func ensureSessionID(local *storage.Store) (string, error) {
	id, found, err := local.GetValue(storage.KeySessionID)
	if err != nil {
		return "", err
	}
	if found && id != "" {
		return id, nil
	}
	id = uuid.NewString()
	if err := local.SetValue(storage.KeySessionID, id); err != nil {
		return "", fmt.Errorf("cannot persist session id: %w", err)
	}
	return id, nil
}
