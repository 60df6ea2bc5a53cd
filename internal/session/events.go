// Package session is the game-session synchronization engine: it keeps
// the locally mutable game state consistent with the authoritative,
// possibly unavailable backend across anonymous and authenticated users
// and across continue / daily / custom initialization paths.
package session

import (
	"sync"

	"github.com/vovakirdan/decodey/internal/api"
)

// Event is a typed notification from the engine to its consumers (UI,
// win verification, score delivery).
type Event interface {
	sessionEvent()
}

// StateChangedEvent is emitted after every accepted state mutation.
type StateChangedEvent struct {
	Snapshot Snapshot
}

func (StateChangedEvent) sessionEvent() {}

// WinTentativeEvent signals a client-suspected win awaiting server
// confirmation.
type WinTentativeEvent struct {
	GameID string
}

func (WinTentativeEvent) sessionEvent() {}

// WinConfirmedEvent carries the authoritative win payload.
type WinConfirmedEvent struct {
	GameID  string
	WinData api.WinData
}

func (WinConfirmedEvent) sessionEvent() {}

// GameLostEvent signals a terminal loss.
type GameLostEvent struct {
	GameID   string
	Mistakes int
}

func (GameLostEvent) sessionEvent() {}

// ActiveGameFoundEvent reports an existing server-side session that
// initialization refused to overwrite. The consumer decides between
// resume and abandon.
type ActiveGameFoundEvent struct {
	Games api.ActiveGames
}

func (ActiveGameFoundEvent) sessionEvent() {}

// DailyAlreadyCompletedEvent reports that today's daily challenge is
// already done; no new session was created.
type DailyAlreadyCompletedEvent struct {
	Completion api.DailyCompletionData
}

func (DailyAlreadyCompletedEvent) sessionEvent() {}

// Hub fans events out to subscribers. Delivery is non-blocking with
// drop-oldest semantics so a slow consumer never stalls the engine.
type Hub struct {
	mu   sync.Mutex
	subs map[*Subscription]struct{}
}

// Subscription is one consumer's event stream.
type Subscription struct {
	hub    *Hub
	events chan Event
	once   sync.Once
}

// NewHub creates an event hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[*Subscription]struct{})}
}

// Subscribe registers a consumer. bufferSize controls how many events can
// queue before the oldest is dropped.
func (h *Hub) Subscribe(bufferSize int) *Subscription {
	if bufferSize < 1 {
		bufferSize = 64
	}
	sub := &Subscription{
		hub:    h,
		events: make(chan Event, bufferSize),
	}
	h.mu.Lock()
	h.subs[sub] = struct{}{}
	h.mu.Unlock()
	return sub
}

// Publish delivers an event to all subscribers.
func (h *Hub) Publish(evt Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for sub := range h.subs {
		select {
		case sub.events <- evt:
		default:
			// Buffer full, drop oldest and retry best effort.
			select {
			case <-sub.events:
			default:
			}
			select {
			case sub.events <- evt:
			default:
			}
		}
	}
}

// Events returns the channel to receive events from.
func (s *Subscription) Events() <-chan Event {
	return s.events
}

// Close unregisters the subscription. Safe to call multiple times.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.hub.mu.Lock()
		delete(s.hub.subs, s)
		s.hub.mu.Unlock()
	})
}
