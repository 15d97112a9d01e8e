package events

import (
	"context"
	"sync"

	log "github.com/sirupsen/logrus"
)

// EventType represents different types of events in the system
type EventType string

const (
	EventTypeParticipantEntered EventType = "participant_entered"
	EventTypeDrawStarted        EventType = "draw_started"
	EventTypeWinnerPicked       EventType = "winner_picked"
	EventTypePayoutFailed       EventType = "payout_failed"
)

// Event is the base interface for all events
type Event interface {
	Type() EventType
}

// ParticipantEnteredEvent represents a successful raffle entry
type ParticipantEnteredEvent struct {
	AccountID       string
	Payment         int64
	NumParticipants int
}

func (e ParticipantEnteredEvent) Type() EventType {
	return EventTypeParticipantEntered
}

// DrawStartedEvent represents a draw transitioning to the drawing state,
// carrying the correlation handle of the issued oracle request
type DrawStartedEvent struct {
	RequestID       uint64
	NumParticipants int
	PotAmount       int64
}

func (e DrawStartedEvent) Type() EventType {
	return EventTypeDrawStarted
}

// WinnerPickedEvent represents a completed draw
type WinnerPickedEvent struct {
	RequestID   uint64
	WinnerID    string
	WinnerIndex int
	PotAmount   int64
}

func (e WinnerPickedEvent) Type() EventType {
	return EventTypeWinnerPicked
}

// PayoutFailedEvent represents a payout transfer that was rejected after the
// round was already reset. Funds remain in the holding account for manual
// recovery, so this must reach operators.
type PayoutFailedEvent struct {
	WinnerID string
	Amount   int64
	Reason   string
}

func (e PayoutFailedEvent) Type() EventType {
	return EventTypePayoutFailed
}

// Handler is a function that handles events
type Handler func(ctx context.Context, event Event)

// Bus manages event subscriptions and dispatching
type Bus struct {
	mu       sync.RWMutex
	handlers map[EventType][]Handler
}

// NewBus creates a new event bus
func NewBus() *Bus {
	return &Bus{
		handlers: make(map[EventType][]Handler),
	}
}

// Subscribe adds a handler for a specific event type
func (b *Bus) Subscribe(eventType EventType, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.handlers[eventType] = append(b.handlers[eventType], handler)

	log.WithFields(log.Fields{
		"eventType":    eventType,
		"handlerCount": len(b.handlers[eventType]),
	}).Debug("Subscribed handler to event type")
}

// Publish emits an event to all registered handlers. Handlers run
// asynchronously so a slow subscriber cannot block the raffle engine.
func (b *Bus) Publish(ctx context.Context, event Event) {
	b.mu.RLock()
	handlers := make([]Handler, len(b.handlers[event.Type()]))
	copy(handlers, b.handlers[event.Type()])
	b.mu.RUnlock()

	for _, handler := range handlers {
		go func(h Handler) {
			defer func() {
				if r := recover(); r != nil {
					log.WithFields(log.Fields{
						"eventType": event.Type(),
						"panic":     r,
					}).Error("Event handler panicked")
				}
			}()
			h(ctx, event)
		}(handler)
	}
}
