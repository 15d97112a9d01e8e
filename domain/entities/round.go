package entities

import (
	"time"
)

// RoundState represents the lifecycle state of the raffle round
type RoundState int

const (
	// RoundStateOpen accepts new entries
	RoundStateOpen RoundState = iota
	// RoundStateDrawing blocks entries while an oracle request is outstanding
	RoundStateDrawing
)

// String returns a human-readable state name
func (s RoundState) String() string {
	switch s {
	case RoundStateOpen:
		return "open"
	case RoundStateDrawing:
		return "drawing"
	default:
		return "unknown"
	}
}

// Round is the singleton mutable state of the raffle. It is created once at
// startup and reset in place after every payout; it is never reallocated.
type Round struct {
	State        RoundState
	Participants []string
	LastDrawTime time.Time
	RecentWinner string
}

// NewRound creates the initial open round with an empty participant list
func NewRound(now time.Time) *Round {
	return &Round{
		State:        RoundStateOpen,
		Participants: make([]string, 0),
		LastDrawTime: now,
	}
}

// AddParticipant appends an entrant to the current round
func (r *Round) AddParticipant(accountID string) {
	r.Participants = append(r.Participants, accountID)
}

// Participant returns the entrant at the given index, or false if out of range
func (r *Round) Participant(index int) (string, bool) {
	if index < 0 || index >= len(r.Participants) {
		return "", false
	}
	return r.Participants[index], true
}

// IsOpen returns true if the round accepts entries
func (r *Round) IsOpen() bool {
	return r.State == RoundStateOpen
}

// IntervalElapsed returns true if at least interval has passed since the last draw
func (r *Round) IntervalElapsed(now time.Time, interval time.Duration) bool {
	return now.Sub(r.LastDrawTime) >= interval
}

// Reset records the winner and returns the round to its initial open shape:
// participants cleared, draw timestamp advanced. The winner is retained for
// read access until the next round completes.
func (r *Round) Reset(winner string, now time.Time) {
	r.RecentWinner = winner
	r.State = RoundStateOpen
	r.Participants = make([]string, 0)
	r.LastDrawTime = now
}
