package entities

import (
	"errors"
	"time"
)

// DrawConfig holds the immutable per-deployment raffle parameters, including
// everything forwarded to the randomness oracle on each draw request.
type DrawConfig struct {
	EntryFee int64         // minimum payment to enter, in base units
	Interval time.Duration // minimum time between draws

	// Oracle request parameters
	KeyHash              string // oracle key selector
	SubscriptionID       uint64 // billing subscription handle
	CallbackGasLimit     uint32 // budget for the fulfillment callback
	RequestConfirmations uint16 // confirmation depth before fulfillment
	NumWords             uint32 // random words per request
	NativePayment        bool   // pay the oracle in native currency rather than fee token
}

var (
	ErrInvalidEntryFee      = errors.New("entry fee must be positive")
	ErrInvalidInterval      = errors.New("draw interval must be positive")
	ErrInvalidConfirmations = errors.New("request confirmations must be at least 1")
	ErrInvalidNumWords      = errors.New("number of random words must be at least 1")
)

// Validate checks the configuration invariants
func (c DrawConfig) Validate() error {
	if c.EntryFee <= 0 {
		return ErrInvalidEntryFee
	}
	if c.Interval <= 0 {
		return ErrInvalidInterval
	}
	if c.RequestConfirmations < 1 {
		return ErrInvalidConfirmations
	}
	if c.NumWords < 1 {
		return ErrInvalidNumWords
	}
	return nil
}
