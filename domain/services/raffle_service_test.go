package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Bilal4700/Smart-Contract-Lottery/domain/entities"
	"github.com/Bilal4700/Smart-Contract-Lottery/domain/events"
	"github.com/Bilal4700/Smart-Contract-Lottery/domain/interfaces"
	"github.com/Bilal4700/Smart-Contract-Lottery/domain/testhelpers"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const testHoldingAccount = "raffle-pot"

// raffleFixture wires the engine to mocks with a controllable clock
type raffleFixture struct {
	engine    *raffleService
	treasury  *testhelpers.MockTreasury
	oracle    *testhelpers.MockRandomnessOracle
	publisher *testhelpers.MockEventPublisher
	start     time.Time
}

func newRaffleFixture(t *testing.T, config entities.DrawConfig) *raffleFixture {
	t.Helper()

	treasury := new(testhelpers.MockTreasury)
	oracle := new(testhelpers.MockRandomnessOracle)
	publisher := new(testhelpers.MockEventPublisher)

	eng, err := NewRaffleService(config, testHoldingAccount, treasury, oracle, publisher)
	require.NoError(t, err)

	f := &raffleFixture{
		engine:    eng.(*raffleService),
		treasury:  treasury,
		oracle:    oracle,
		publisher: publisher,
		start:     time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
	f.setClock(f.start)
	f.engine.round.LastDrawTime = f.start
	return f
}

func (f *raffleFixture) setClock(now time.Time) {
	f.engine.now = func() time.Time { return now }
}

// advanceClock moves the fixture clock past the draw interval
func (f *raffleFixture) advanceClock(d time.Duration) {
	f.setClock(f.start.Add(d))
}

func testDrawConfig() entities.DrawConfig {
	return entities.DrawConfig{
		EntryFee:             10_000_000,
		Interval:             30 * time.Second,
		KeyHash:              "0x474e34a077df58807dbe9c96d3c009b23b3c6d0cce433e59bbf5b34f823bc56c",
		SubscriptionID:       7,
		CallbackGasLimit:     500_000,
		RequestConfirmations: 3,
		NumWords:             1,
	}
}

func TestNewRaffleService_InvalidConfig(t *testing.T) {
	t.Parallel()

	config := testDrawConfig()
	config.EntryFee = 0

	_, err := NewRaffleService(config, testHoldingAccount,
		new(testhelpers.MockTreasury), new(testhelpers.MockRandomnessOracle), new(testhelpers.MockEventPublisher))

	assert.ErrorIs(t, err, entities.ErrInvalidEntryFee)
}

func TestRaffleService_Enter(t *testing.T) {
	t.Parallel()

	t.Run("successful entry collects payment and records participant", func(t *testing.T) {
		t.Parallel()
		f := newRaffleFixture(t, testDrawConfig())
		ctx := context.Background()

		f.treasury.On("Transfer", ctx, "alice", testHoldingAccount, int64(10_000_000)).Return(nil)
		f.publisher.On("Publish", ctx, mock.MatchedBy(func(e events.Event) bool {
			entered, ok := e.(events.ParticipantEnteredEvent)
			return ok && entered.AccountID == "alice" && entered.Payment == 10_000_000 && entered.NumParticipants == 1
		})).Return()

		err := f.engine.Enter(ctx, "alice", 10_000_000)

		require.NoError(t, err)
		assert.Equal(t, 1, f.engine.NumParticipants())
		participant, ok := f.engine.Participant(0)
		assert.True(t, ok)
		assert.Equal(t, "alice", participant)
		f.treasury.AssertExpectations(t)
		f.publisher.AssertExpectations(t)
	})

	t.Run("excess payment is collected in full", func(t *testing.T) {
		t.Parallel()
		f := newRaffleFixture(t, testDrawConfig())
		ctx := context.Background()

		f.treasury.On("Transfer", ctx, "alice", testHoldingAccount, int64(25_000_000)).Return(nil)
		f.publisher.On("Publish", ctx, mock.Anything).Return()

		err := f.engine.Enter(ctx, "alice", 25_000_000)

		require.NoError(t, err)
		f.treasury.AssertExpectations(t)
	})

	t.Run("payment below fee is rejected", func(t *testing.T) {
		t.Parallel()
		f := newRaffleFixture(t, testDrawConfig())

		err := f.engine.Enter(context.Background(), "alice", 9_999_999)

		assert.ErrorIs(t, err, ErrEntryFeeTooLow)
		assert.Equal(t, 0, f.engine.NumParticipants())
		f.treasury.AssertNotCalled(t, "Transfer", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("payment below fee wins over closed round", func(t *testing.T) {
		t.Parallel()
		f := newRaffleFixture(t, testDrawConfig())
		f.engine.round.State = entities.RoundStateDrawing

		err := f.engine.Enter(context.Background(), "alice", 1)

		assert.ErrorIs(t, err, ErrEntryFeeTooLow)
	})

	t.Run("entry rejected while draw is outstanding", func(t *testing.T) {
		t.Parallel()
		f := newRaffleFixture(t, testDrawConfig())
		f.engine.round.State = entities.RoundStateDrawing

		err := f.engine.Enter(context.Background(), "alice", 10_000_000)

		assert.ErrorIs(t, err, ErrRaffleNotOpen)
		assert.Equal(t, 0, f.engine.NumParticipants())
	})

	t.Run("treasury rejection leaves participant list unchanged", func(t *testing.T) {
		t.Parallel()
		f := newRaffleFixture(t, testDrawConfig())
		ctx := context.Background()

		transferErr := errors.New("insufficient funds")
		f.treasury.On("Transfer", ctx, "alice", testHoldingAccount, int64(10_000_000)).Return(transferErr)

		err := f.engine.Enter(ctx, "alice", 10_000_000)

		assert.ErrorIs(t, err, transferErr)
		assert.Equal(t, 0, f.engine.NumParticipants())
		f.publisher.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
	})
}

func TestRaffleService_CheckUpkeep(t *testing.T) {
	t.Parallel()

	enterParticipant := func(t *testing.T, f *raffleFixture, accountID string) {
		t.Helper()
		ctx := context.Background()
		f.treasury.On("Transfer", ctx, accountID, testHoldingAccount, mock.Anything).Return(nil).Once()
		f.publisher.On("Publish", ctx, mock.Anything).Return()
		require.NoError(t, f.engine.Enter(ctx, accountID, 10_000_000))
	}

	t.Run("needed when all conditions hold", func(t *testing.T) {
		t.Parallel()
		f := newRaffleFixture(t, testDrawConfig())
		enterParticipant(t, f, "alice")
		f.advanceClock(30 * time.Second)
		f.treasury.On("Balance", mock.Anything, testHoldingAccount).Return(int64(10_000_000), nil)

		needed, payload, err := f.engine.CheckUpkeep(context.Background())

		require.NoError(t, err)
		assert.True(t, needed)
		assert.Empty(t, payload)
	})

	t.Run("not needed before interval elapses", func(t *testing.T) {
		t.Parallel()
		f := newRaffleFixture(t, testDrawConfig())
		enterParticipant(t, f, "alice")
		f.advanceClock(29 * time.Second)
		f.treasury.On("Balance", mock.Anything, testHoldingAccount).Return(int64(10_000_000), nil)

		needed, _, err := f.engine.CheckUpkeep(context.Background())

		require.NoError(t, err)
		assert.False(t, needed)
	})

	t.Run("not needed without participants", func(t *testing.T) {
		t.Parallel()
		f := newRaffleFixture(t, testDrawConfig())
		f.advanceClock(time.Minute)
		f.treasury.On("Balance", mock.Anything, testHoldingAccount).Return(int64(10_000_000), nil)

		needed, _, err := f.engine.CheckUpkeep(context.Background())

		require.NoError(t, err)
		assert.False(t, needed)
	})

	t.Run("not needed with empty pot", func(t *testing.T) {
		t.Parallel()
		f := newRaffleFixture(t, testDrawConfig())
		enterParticipant(t, f, "alice")
		f.advanceClock(time.Minute)
		f.treasury.On("Balance", mock.Anything, testHoldingAccount).Return(int64(0), nil)

		needed, _, err := f.engine.CheckUpkeep(context.Background())

		require.NoError(t, err)
		assert.False(t, needed)
	})

	t.Run("not needed while draw is outstanding", func(t *testing.T) {
		t.Parallel()
		f := newRaffleFixture(t, testDrawConfig())
		enterParticipant(t, f, "alice")
		f.advanceClock(time.Minute)
		f.engine.round.State = entities.RoundStateDrawing
		f.treasury.On("Balance", mock.Anything, testHoldingAccount).Return(int64(10_000_000), nil)

		needed, _, err := f.engine.CheckUpkeep(context.Background())

		require.NoError(t, err)
		assert.False(t, needed)
	})

	t.Run("balance read failure propagates", func(t *testing.T) {
		t.Parallel()
		f := newRaffleFixture(t, testDrawConfig())
		balanceErr := errors.New("connection refused")
		f.treasury.On("Balance", mock.Anything, testHoldingAccount).Return(int64(0), balanceErr)

		_, _, err := f.engine.CheckUpkeep(context.Background())

		assert.ErrorIs(t, err, balanceErr)
	})
}

func TestRaffleService_PerformUpkeep(t *testing.T) {
	t.Parallel()

	setupEligible := func(t *testing.T) *raffleFixture {
		t.Helper()
		f := newRaffleFixture(t, testDrawConfig())
		ctx := context.Background()
		f.treasury.On("Transfer", ctx, "alice", testHoldingAccount, mock.Anything).Return(nil).Once()
		f.publisher.On("Publish", ctx, mock.Anything).Return()
		require.NoError(t, f.engine.Enter(ctx, "alice", 10_000_000))
		f.advanceClock(time.Minute)
		f.treasury.On("Balance", mock.Anything, testHoldingAccount).Return(int64(10_000_000), nil)
		return f
	}

	t.Run("forwards configured oracle parameters", func(t *testing.T) {
		t.Parallel()
		f := setupEligible(t)
		config := testDrawConfig()

		f.oracle.On("RequestRandomWords", mock.Anything, interfaces.RandomnessRequest{
			KeyHash:              config.KeyHash,
			SubscriptionID:       config.SubscriptionID,
			CallbackGasLimit:     config.CallbackGasLimit,
			RequestConfirmations: config.RequestConfirmations,
			NumWords:             config.NumWords,
			NativePayment:        config.NativePayment,
		}).Return(uint64(99), nil)

		requestID, err := f.engine.PerformUpkeep(context.Background())

		require.NoError(t, err)
		assert.Equal(t, uint64(99), requestID)
		assert.Equal(t, entities.RoundStateDrawing, f.engine.State())
		f.oracle.AssertExpectations(t)
	})

	t.Run("second trigger is refused while first is outstanding", func(t *testing.T) {
		t.Parallel()
		f := setupEligible(t)
		f.oracle.On("RequestRandomWords", mock.Anything, mock.Anything).Return(uint64(1), nil).Once()

		_, err := f.engine.PerformUpkeep(context.Background())
		require.NoError(t, err)

		_, err = f.engine.PerformUpkeep(context.Background())

		var notNeeded *UpkeepNotNeededError
		require.ErrorAs(t, err, &notNeeded)
		assert.Equal(t, entities.RoundStateDrawing, notNeeded.State)
		f.oracle.AssertNumberOfCalls(t, "RequestRandomWords", 1)
	})

	t.Run("ineligible trigger reports the failing snapshot", func(t *testing.T) {
		t.Parallel()
		f := newRaffleFixture(t, testDrawConfig())
		f.advanceClock(time.Minute)
		f.treasury.On("Balance", mock.Anything, testHoldingAccount).Return(int64(0), nil)

		_, err := f.engine.PerformUpkeep(context.Background())

		var notNeeded *UpkeepNotNeededError
		require.ErrorAs(t, err, &notNeeded)
		assert.Equal(t, int64(0), notNeeded.Balance)
		assert.Equal(t, 0, notNeeded.NumParticipants)
		assert.Equal(t, entities.RoundStateOpen, notNeeded.State)
		f.oracle.AssertNotCalled(t, "RequestRandomWords", mock.Anything, mock.Anything)
	})

	t.Run("failed oracle request reopens the round", func(t *testing.T) {
		t.Parallel()
		f := setupEligible(t)
		oracleErr := errors.New("nats: no responders")
		f.oracle.On("RequestRandomWords", mock.Anything, mock.Anything).Return(uint64(0), oracleErr)

		_, err := f.engine.PerformUpkeep(context.Background())

		assert.ErrorIs(t, err, oracleErr)
		assert.Equal(t, entities.RoundStateOpen, f.engine.State())
	})

	t.Run("publishes draw started event", func(t *testing.T) {
		t.Parallel()
		f := setupEligible(t)
		f.oracle.On("RequestRandomWords", mock.Anything, mock.Anything).Return(uint64(42), nil)
		f.publisher.On("Publish", mock.Anything, mock.MatchedBy(func(e events.Event) bool {
			started, ok := e.(events.DrawStartedEvent)
			return ok && started.RequestID == 42 && started.NumParticipants == 1 && started.PotAmount == 10_000_000
		})).Return()

		_, err := f.engine.PerformUpkeep(context.Background())

		require.NoError(t, err)
		f.publisher.AssertExpectations(t)
	})
}

func TestRaffleService_HandleRandomWords(t *testing.T) {
	t.Parallel()

	// setupDrawing gets the engine into the drawing state with the given
	// participants and pot.
	setupDrawing := func(t *testing.T, participants []string, pot int64) *raffleFixture {
		t.Helper()
		f := newRaffleFixture(t, testDrawConfig())
		ctx := context.Background()
		f.publisher.On("Publish", ctx, mock.Anything).Return()
		for _, p := range participants {
			f.treasury.On("Transfer", ctx, p, testHoldingAccount, mock.Anything).Return(nil).Once()
			require.NoError(t, f.engine.Enter(ctx, p, 10_000_000))
		}
		f.advanceClock(time.Minute)
		f.treasury.On("Balance", mock.Anything, testHoldingAccount).Return(pot, nil)
		f.oracle.On("RequestRandomWords", mock.Anything, mock.Anything).Return(uint64(1), nil)
		_, err := f.engine.PerformUpkeep(ctx)
		require.NoError(t, err)
		return f
	}

	t.Run("picks winner by modulo and pays the full pot", func(t *testing.T) {
		t.Parallel()
		f := setupDrawing(t, []string{"alice", "bob", "carol"}, 30_000_000)
		ctx := context.Background()

		// 7 mod 3 = 1, bob wins
		f.treasury.On("Transfer", ctx, testHoldingAccount, "bob", int64(30_000_000)).Return(nil)

		err := f.engine.HandleRandomWords(ctx, 1, []uint64{7})

		require.NoError(t, err)
		assert.Equal(t, "bob", f.engine.RecentWinner())
		assert.Equal(t, entities.RoundStateOpen, f.engine.State())
		assert.Equal(t, 0, f.engine.NumParticipants())
		f.treasury.AssertExpectations(t)
	})

	t.Run("advances draw timestamp so the next interval restarts", func(t *testing.T) {
		t.Parallel()
		f := setupDrawing(t, []string{"alice"}, 10_000_000)
		ctx := context.Background()

		fulfillTime := f.start.Add(2 * time.Minute)
		f.setClock(fulfillTime)
		f.treasury.On("Transfer", ctx, testHoldingAccount, "alice", int64(10_000_000)).Return(nil)

		require.NoError(t, f.engine.HandleRandomWords(ctx, 1, []uint64{0}))

		assert.Equal(t, fulfillTime, f.engine.LastDrawTime())
	})

	t.Run("publishes winner picked event", func(t *testing.T) {
		t.Parallel()
		f := setupDrawing(t, []string{"alice", "bob"}, 20_000_000)
		ctx := context.Background()

		f.treasury.On("Transfer", ctx, testHoldingAccount, "alice", int64(20_000_000)).Return(nil)
		f.publisher.On("Publish", ctx, mock.MatchedBy(func(e events.Event) bool {
			picked, ok := e.(events.WinnerPickedEvent)
			return ok && picked.WinnerID == "alice" && picked.WinnerIndex == 0 && picked.PotAmount == 20_000_000
		})).Return()

		// 4 mod 2 = 0, alice wins
		require.NoError(t, f.engine.HandleRandomWords(ctx, 1, []uint64{4}))

		f.publisher.AssertExpectations(t)
	})

	t.Run("large random word wraps around the participant count", func(t *testing.T) {
		t.Parallel()
		f := setupDrawing(t, []string{"alice", "bob", "carol"}, 30_000_000)
		ctx := context.Background()

		// 18446744073709551615 mod 3 = 0, alice wins
		f.treasury.On("Transfer", ctx, testHoldingAccount, "alice", int64(30_000_000)).Return(nil)

		err := f.engine.HandleRandomWords(ctx, 1, []uint64{^uint64(0)})

		require.NoError(t, err)
		assert.Equal(t, "alice", f.engine.RecentWinner())
	})

	t.Run("failed payout keeps the reset and surfaces the failure", func(t *testing.T) {
		t.Parallel()
		f := setupDrawing(t, []string{"alice"}, 10_000_000)
		ctx := context.Background()

		transferErr := errors.New("account frozen")
		f.treasury.On("Transfer", ctx, testHoldingAccount, "alice", int64(10_000_000)).Return(transferErr)
		f.publisher.On("Publish", ctx, mock.MatchedBy(func(e events.Event) bool {
			failed, ok := e.(events.PayoutFailedEvent)
			return ok && failed.WinnerID == "alice" && failed.Amount == 10_000_000
		})).Return()

		err := f.engine.HandleRandomWords(ctx, 1, []uint64{0})

		assert.ErrorIs(t, err, ErrPayoutFailed)
		// Reset is committed even though the payout was rejected: the round
		// reopens and the winner is recorded. Funds stay in the holding account.
		assert.Equal(t, entities.RoundStateOpen, f.engine.State())
		assert.Equal(t, 0, f.engine.NumParticipants())
		assert.Equal(t, "alice", f.engine.RecentWinner())
		f.publisher.AssertExpectations(t)
	})

	t.Run("entries reopen after fulfillment", func(t *testing.T) {
		t.Parallel()
		f := setupDrawing(t, []string{"alice", "bob"}, 20_000_000)
		ctx := context.Background()

		f.treasury.On("Transfer", ctx, testHoldingAccount, "alice", int64(20_000_000)).Return(nil)
		require.NoError(t, f.engine.HandleRandomWords(ctx, 1, []uint64{0}))

		f.treasury.On("Transfer", ctx, "dave", testHoldingAccount, int64(10_000_000)).Return(nil)
		require.NoError(t, f.engine.Enter(ctx, "dave", 10_000_000))
		assert.Equal(t, 1, f.engine.NumParticipants())
	})
}

func TestRaffleService_Accessors(t *testing.T) {
	t.Parallel()

	config := testDrawConfig()
	f := newRaffleFixture(t, config)

	assert.Equal(t, config.EntryFee, f.engine.EntryFee())
	assert.Equal(t, config.Interval, f.engine.Interval())
	assert.Equal(t, entities.RoundStateOpen, f.engine.State())
	assert.Equal(t, 0, f.engine.NumParticipants())
	assert.Empty(t, f.engine.RecentWinner())
	assert.Equal(t, f.start, f.engine.LastDrawTime())

	_, ok := f.engine.Participant(0)
	assert.False(t, ok)
}
