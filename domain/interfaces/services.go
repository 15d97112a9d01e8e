package interfaces

import (
	"context"
	"time"

	"github.com/Bilal4700/Smart-Contract-Lottery/domain/entities"
	"github.com/Bilal4700/Smart-Contract-Lottery/domain/events"
)

// RaffleService defines the interface for the raffle engine
type RaffleService interface {
	// Enter adds a paying participant to the open round
	Enter(ctx context.Context, accountID string, payment int64) error

	// CheckUpkeep reports whether a draw can be triggered right now.
	// The payload is reserved for future extension data and is empty.
	CheckUpkeep(ctx context.Context) (upkeepNeeded bool, payload []byte, err error)

	// PerformUpkeep closes the round and issues the oracle request,
	// returning the correlation request ID
	PerformUpkeep(ctx context.Context) (uint64, error)

	// Read accessors
	EntryFee() int64
	Interval() time.Duration
	State() entities.RoundState
	NumParticipants() int
	Participant(index int) (string, bool)
	RecentWinner() string
	LastDrawTime() time.Time
}

// RandomnessRequest carries the oracle parameters for a single draw request
type RandomnessRequest struct {
	KeyHash              string
	SubscriptionID       uint64
	CallbackGasLimit     uint32
	RequestConfirmations uint16
	NumWords             uint32
	NativePayment        bool
}

// RandomnessOracle is the external randomness capability: submit a request,
// later receive exactly one fulfillment callback tied to that request.
type RandomnessOracle interface {
	// RequestRandomWords issues a randomness request and returns the
	// correlation handle binding the future fulfillment to this request
	RequestRandomWords(ctx context.Context, req RandomnessRequest) (uint64, error)
}

// RandomnessConsumer receives oracle fulfillments. Only the oracle
// integration layer may invoke it; that layer enforces request-identity
// correlation and at-most-once delivery before the call reaches the engine.
type RandomnessConsumer interface {
	HandleRandomWords(ctx context.Context, requestID uint64, words []uint64) error
}

// RaffleEngine is the full engine surface: caller operations plus the
// oracle-facing fulfillment entry point
type RaffleEngine interface {
	RaffleService
	RandomnessConsumer
}

// EventPublisher publishes domain events to interested subscribers
type EventPublisher interface {
	Publish(ctx context.Context, event events.Event)
}
