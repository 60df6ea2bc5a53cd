// Package score provides durable, offline-tolerant delivery of
// completed-game scores. Delivery is at-least-once: a score may be sent
// twice if a success response is lost, and the submission carries an
// idempotency key (game id + queue timestamp) so the server can dedup.
package score

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/vovakirdan/decodey/internal/api"
	"github.com/vovakirdan/decodey/internal/storage"
)

// Sender delivers one score payload. api.Client satisfies it.
type Sender interface {
	RecordScore(ctx context.Context, payload api.ScorePayload) error
}

// Authenticator reports whether a usable session token exists.
type Authenticator interface {
	Authenticated() bool
}

// ErrFlushInFlight rejects overlapping flush attempts.
var ErrFlushInFlight = errors.New("score: flush already in flight")

// Queue persists undelivered scores and retries them when connectivity
// or authentication comes back.
type Queue struct {
	sender Sender
	local  *storage.Store
	auth   Authenticator
	logger *log.Logger

	mu       sync.Mutex
	online   bool
	flushing bool
}

// NewQueue creates a score queue. The queue starts in the online state;
// delivery failures and SetOnline transitions adjust it.
func NewQueue(sender Sender, local *storage.Store, auth Authenticator, logger *log.Logger) *Queue {
	if logger == nil {
		logger = log.Default()
	}
	return &Queue{
		sender: sender,
		local:  local,
		auth:   auth,
		logger: logger,
		online: true,
	}
}

// SubmitResult describes what happened to one submission.
type SubmitResult struct {
	Delivered    bool
	Queued       bool
	AuthRequired bool
}

// Submit delivers a score, or queues it when delivery cannot succeed
// right now. Known-offline and known-unauthenticated submissions queue
// immediately without attempting network I/O.
func (q *Queue) Submit(ctx context.Context, payload api.ScorePayload) (SubmitResult, error) {
	if payload.QueuedAt == 0 {
		payload.QueuedAt = time.Now().Unix()
	}

	authenticated := q.auth != nil && q.auth.Authenticated()
	if !q.Online() || !authenticated {
		if err := q.enqueue(payload, !authenticated); err != nil {
			return SubmitResult{}, err
		}
		return SubmitResult{Queued: true, AuthRequired: !authenticated}, nil
	}

	err := q.sender.RecordScore(ctx, payload)
	switch {
	case err == nil:
		return SubmitResult{Delivered: true}, nil
	case errors.Is(err, api.ErrAuthRequired):
		if qerr := q.enqueue(payload, true); qerr != nil {
			return SubmitResult{}, qerr
		}
		return SubmitResult{Queued: true, AuthRequired: true}, nil
	case errors.Is(err, api.ErrNetworkUnreachable):
		q.setOnline(false)
		fallthrough
	default:
		q.logger.Warn("score delivery failed, queueing", "game_id", payload.GameID, "error", err)
		if qerr := q.enqueue(payload, false); qerr != nil {
			return SubmitResult{}, qerr
		}
		return SubmitResult{Queued: true}, nil
	}
}

// FlushStats summarizes one flush pass.
type FlushStats struct {
	Attempted int
	Delivered int
	Remaining int
}

// FlushPending iterates the queue, partitions entries into delivered vs
// still-pending and persists the remainder. Single-flight: overlapping
// flush attempts are rejected.
func (q *Queue) FlushPending(ctx context.Context) (FlushStats, error) {
	q.mu.Lock()
	if q.flushing {
		q.mu.Unlock()
		return FlushStats{}, ErrFlushInFlight
	}
	q.flushing = true
	q.mu.Unlock()
	defer func() {
		q.mu.Lock()
		q.flushing = false
		q.mu.Unlock()
	}()

	if q.local == nil {
		return FlushStats{}, nil
	}
	entries, err := q.local.PendingScores()
	if err != nil {
		return FlushStats{}, fmt.Errorf("score: cannot load pending queue: %w", err)
	}

	stats := FlushStats{Remaining: len(entries)}
	authenticated := q.auth != nil && q.auth.Authenticated()

	for _, entry := range entries {
		if entry.AuthRequired && !authenticated {
			continue
		}

		var payload api.ScorePayload
		if err := json.Unmarshal(entry.Payload, &payload); err != nil {
			// Unreadable entries can never deliver; drop them.
			q.logger.Error("dropping corrupt pending score", "id", entry.ID, "error", err)
			if derr := q.local.DeletePendingScore(entry.ID); derr == nil {
				stats.Remaining--
			}
			continue
		}

		stats.Attempted++
		err := q.sender.RecordScore(ctx, payload)
		switch {
		case err == nil:
			if derr := q.local.DeletePendingScore(entry.ID); derr != nil {
				q.logger.Warn("delivered score still queued", "id", entry.ID, "error", derr)
				continue
			}
			stats.Delivered++
			stats.Remaining--
		case errors.Is(err, api.ErrAuthRequired):
			if merr := q.local.MarkPendingAuthRequired(entry.ID); merr != nil {
				q.logger.Warn("could not flag pending score", "id", entry.ID, "error", merr)
			}
		case errors.Is(err, api.ErrNetworkUnreachable):
			// No point hammering the rest of the queue.
			q.setOnline(false)
			return stats, nil
		default:
			q.logger.Warn("pending score delivery failed", "id", entry.ID, "error", err)
		}
	}

	return stats, nil
}

// SetOnline records a connectivity transition. Going from offline to
// online triggers an automatic single-flight flush attempt.
func (q *Queue) SetOnline(online bool) {
	q.mu.Lock()
	wasOnline := q.online
	q.online = online
	q.mu.Unlock()

	if online && !wasOnline {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if _, err := q.FlushPending(ctx); err != nil && !errors.Is(err, ErrFlushInFlight) {
				q.logger.Warn("automatic flush failed", "error", err)
			}
		}()
	}
}

// Online returns the last known connectivity state.
func (q *Queue) Online() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.online
}

// PendingCount returns the number of queued scores.
func (q *Queue) PendingCount() (int, error) {
	if q.local == nil {
		return 0, nil
	}
	return q.local.PendingCount()
}

func (q *Queue) setOnline(online bool) {
	q.mu.Lock()
	q.online = online
	q.mu.Unlock()
}

func (q *Queue) enqueue(payload api.ScorePayload, authRequired bool) error {
	if q.local == nil {
		return fmt.Errorf("score: no local storage, cannot queue game %s", payload.GameID)
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("score: cannot encode payload: %w", err)
	}
	if _, err := q.local.SavePendingScore(payload.GameID, data, time.Unix(payload.QueuedAt, 0).UTC(), authRequired); err != nil {
		return fmt.Errorf("score: cannot persist queue entry: %w", err)
	}
	return nil
}
