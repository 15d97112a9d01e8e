package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Bilal4700/Smart-Contract-Lottery/domain/entities"
	"github.com/Bilal4700/Smart-Contract-Lottery/domain/events"
	"github.com/Bilal4700/Smart-Contract-Lottery/domain/interfaces"

	log "github.com/sirupsen/logrus"
)

var (
	// ErrEntryFeeTooLow is returned when an entry payment is below the configured fee
	ErrEntryFeeTooLow = errors.New("payment below entry fee")

	// ErrRaffleNotOpen is returned when an entry arrives while a draw is outstanding
	ErrRaffleNotOpen = errors.New("raffle is not open for entries")

	// ErrPayoutFailed is returned when the winner transfer is rejected after the
	// round has already been reset. The pot stays in the holding account for
	// manual recovery.
	ErrPayoutFailed = errors.New("payout transfer to winner failed")
)

// UpkeepNotNeededError reports a draw trigger outside eligibility together
// with the state snapshot that failed the check.
type UpkeepNotNeededError struct {
	Balance         int64
	NumParticipants int
	State           entities.RoundState
}

func (e *UpkeepNotNeededError) Error() string {
	return fmt.Sprintf("upkeep not needed: balance=%d participants=%d state=%s",
		e.Balance, e.NumParticipants, e.State)
}

// raffleService implements the raffle state machine and the oracle
// request/fulfillment protocol. All mutating calls are serialized by the
// mutex, so enter, trigger and fulfillment never interleave.
type raffleService struct {
	mu             sync.Mutex
	config         entities.DrawConfig
	round          *entities.Round
	holdingAccount string
	treasury       interfaces.Treasury
	oracle         interfaces.RandomnessOracle
	publisher      interfaces.EventPublisher
	now            func() time.Time
}

// NewRaffleService creates the raffle engine. The holding account must exist
// in the treasury before the first entry arrives.
func NewRaffleService(
	config entities.DrawConfig,
	holdingAccount string,
	treasury interfaces.Treasury,
	oracle interfaces.RandomnessOracle,
	publisher interfaces.EventPublisher,
) (interfaces.RaffleEngine, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid draw config: %w", err)
	}
	s := &raffleService{
		config:         config,
		holdingAccount: holdingAccount,
		treasury:       treasury,
		oracle:         oracle,
		publisher:      publisher,
		now:            time.Now,
	}
	s.round = entities.NewRound(s.now())
	return s, nil
}

// Enter adds a paying participant to the open round. The payment is moved
// into the holding account in full; any excess over the entry fee is retained
// in the pot rather than refunded.
func (s *raffleService) Enter(ctx context.Context, accountID string, payment int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if payment < s.config.EntryFee {
		return ErrEntryFeeTooLow
	}
	if !s.round.IsOpen() {
		return ErrRaffleNotOpen
	}

	if err := s.treasury.Transfer(ctx, accountID, s.holdingAccount, payment); err != nil {
		return fmt.Errorf("failed to collect entry payment: %w", err)
	}

	s.round.AddParticipant(accountID)

	log.WithFields(log.Fields{
		"accountID":    accountID,
		"payment":      payment,
		"participants": len(s.round.Participants),
	}).Info("Participant entered raffle")

	s.publisher.Publish(ctx, events.ParticipantEnteredEvent{
		AccountID:       accountID,
		Payment:         payment,
		NumParticipants: len(s.round.Participants),
	})

	return nil
}

// upkeepSnapshot is the state observed by a single eligibility evaluation
type upkeepSnapshot struct {
	balance         int64
	numParticipants int
	state           entities.RoundState
	intervalElapsed bool
}

// snapshotUpkeep re-reads time, balance and round state. Eligibility is never
// cached: balance and elapsed time change between calls.
func (s *raffleService) snapshotUpkeep(ctx context.Context) (upkeepSnapshot, error) {
	balance, err := s.treasury.Balance(ctx, s.holdingAccount)
	if err != nil {
		return upkeepSnapshot{}, fmt.Errorf("failed to read holding balance: %w", err)
	}
	return upkeepSnapshot{
		balance:         balance,
		numParticipants: len(s.round.Participants),
		state:           s.round.State,
		intervalElapsed: s.round.IntervalElapsed(s.now(), s.config.Interval),
	}, nil
}

func (snap upkeepSnapshot) upkeepNeeded() bool {
	return snap.intervalElapsed &&
		snap.state == entities.RoundStateOpen &&
		snap.balance > 0 &&
		snap.numParticipants > 0
}

// CheckUpkeep reports whether a draw can be triggered right now. The payload
// is reserved for future extension data and is always empty.
func (s *raffleService) CheckUpkeep(ctx context.Context) (bool, []byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap, err := s.snapshotUpkeep(ctx)
	if err != nil {
		return false, nil, err
	}
	return snap.upkeepNeeded(), []byte{}, nil
}

// PerformUpkeep closes the round and issues exactly one oracle request. The
// state moves to drawing before the request goes out, so a parallel trigger
// can never double-request. If the request itself fails the round reopens and
// the whole call aborts.
func (s *raffleService) PerformUpkeep(ctx context.Context) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap, err := s.snapshotUpkeep(ctx)
	if err != nil {
		return 0, err
	}
	if !snap.upkeepNeeded() {
		return 0, &UpkeepNotNeededError{
			Balance:         snap.balance,
			NumParticipants: snap.numParticipants,
			State:           snap.state,
		}
	}

	s.round.State = entities.RoundStateDrawing

	requestID, err := s.oracle.RequestRandomWords(ctx, interfaces.RandomnessRequest{
		KeyHash:              s.config.KeyHash,
		SubscriptionID:       s.config.SubscriptionID,
		CallbackGasLimit:     s.config.CallbackGasLimit,
		RequestConfirmations: s.config.RequestConfirmations,
		NumWords:             s.config.NumWords,
		NativePayment:        s.config.NativePayment,
	})
	if err != nil {
		s.round.State = entities.RoundStateOpen
		return 0, fmt.Errorf("randomness request failed: %w", err)
	}

	log.WithFields(log.Fields{
		"requestID":    requestID,
		"participants": snap.numParticipants,
		"pot":          snap.balance,
	}).Info("Raffle draw started")

	s.publisher.Publish(ctx, events.DrawStartedEvent{
		RequestID:       requestID,
		NumParticipants: snap.numParticipants,
		PotAmount:       snap.balance,
	})

	return requestID, nil
}

// HandleRandomWords consumes the oracle fulfillment, picks the winner, resets
// the round and pays out the pot. The oracle layer has already matched the
// request ID against the single outstanding request, so stale or forged
// handles never reach this point.
//
// Participants cannot be empty here: PerformUpkeep requires a non-empty list
// before entering the drawing state, and the drawing state blocks all
// mutation until this callback. An empty list would fault the modulo below.
func (s *raffleService) HandleRandomWords(ctx context.Context, requestID uint64, words []uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	winnerIndex := int(words[0] % uint64(len(s.round.Participants)))
	winner := s.round.Participants[winnerIndex]

	pot, err := s.treasury.Balance(ctx, s.holdingAccount)
	if err != nil {
		return fmt.Errorf("failed to read pot for payout: %w", err)
	}

	// Effects before the external transfer: the reset is committed even if
	// the payout below is rejected.
	s.round.Reset(winner, s.now())

	log.WithFields(log.Fields{
		"requestID":   requestID,
		"winner":      winner,
		"winnerIndex": winnerIndex,
		"pot":         pot,
	}).Info("Raffle winner picked")

	s.publisher.Publish(ctx, events.WinnerPickedEvent{
		RequestID:   requestID,
		WinnerID:    winner,
		WinnerIndex: winnerIndex,
		PotAmount:   pot,
	})

	if err := s.treasury.Transfer(ctx, s.holdingAccount, winner, pot); err != nil {
		log.WithError(err).WithFields(log.Fields{
			"winner": winner,
			"amount": pot,
		}).Error("Payout transfer rejected, funds stranded in holding account")

		s.publisher.Publish(ctx, events.PayoutFailedEvent{
			WinnerID: winner,
			Amount:   pot,
			Reason:   err.Error(),
		})

		return fmt.Errorf("%w: %v", ErrPayoutFailed, err)
	}

	return nil
}

// EntryFee returns the configured minimum entry payment
func (s *raffleService) EntryFee() int64 {
	return s.config.EntryFee
}

// Interval returns the configured minimum time between draws
func (s *raffleService) Interval() time.Duration {
	return s.config.Interval
}

// State returns the current round state
func (s *raffleService) State() entities.RoundState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.round.State
}

// NumParticipants returns the current participant count
func (s *raffleService) NumParticipants() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.round.Participants)
}

// Participant returns the entrant at the given index
func (s *raffleService) Participant(index int) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.round.Participant(index)
}

// RecentWinner returns the winner of the most recently completed round
func (s *raffleService) RecentWinner() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.round.RecentWinner
}

// LastDrawTime returns the timestamp of the most recent payout (or startup)
func (s *raffleService) LastDrawTime() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.round.LastDrawTime
}
