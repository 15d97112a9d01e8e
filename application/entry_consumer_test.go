package application

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/Bilal4700/Smart-Contract-Lottery/domain/services"
	"github.com/Bilal4700/Smart-Contract-Lottery/domain/testhelpers"
	"github.com/Bilal4700/Smart-Contract-Lottery/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// fakeSubscriber records subscriptions so tests can drive the handler directly
type fakeSubscriber struct {
	handlers map[string]func([]byte) error
}

func newFakeSubscriber() *fakeSubscriber {
	return &fakeSubscriber{handlers: make(map[string]func([]byte) error)}
}

func (s *fakeSubscriber) Subscribe(subject string, handler func([]byte) error) error {
	s.handlers[subject] = handler
	return nil
}

func (s *fakeSubscriber) deliver(t *testing.T, subject string, msg EntryMessage) error {
	t.Helper()
	handler, ok := s.handlers[subject]
	require.True(t, ok, "no handler registered for %s", subject)
	data, err := json.Marshal(msg)
	require.NoError(t, err)
	return handler(data)
}

const testEntrySubject = "raffle.entries"

func startConsumer(t *testing.T, raffle *testhelpers.MockRaffleService) *fakeSubscriber {
	t.Helper()
	subscriber := newFakeSubscriber()
	consumer := NewEntryConsumer(subscriber, raffle, testEntrySubject)
	require.NoError(t, consumer.Start(context.Background()))
	return subscriber
}

func TestEntryConsumer_SuccessfulEntry(t *testing.T) {
	t.Parallel()

	raffle := new(testhelpers.MockRaffleService)
	raffle.On("Enter", mock.Anything, "alice", int64(10_000_000)).Return(nil)
	subscriber := startConsumer(t, raffle)

	err := subscriber.deliver(t, testEntrySubject, EntryMessage{
		EventID:   "evt-1",
		AccountID: "alice",
		Payment:   10_000_000,
	})

	assert.NoError(t, err)
	raffle.AssertExpectations(t)
}

func TestEntryConsumer_BusinessRejectionsAreFinal(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		enterErr error
	}{
		{name: "payment below fee", enterErr: services.ErrEntryFeeTooLow},
		{name: "raffle not open", enterErr: services.ErrRaffleNotOpen},
		{name: "insufficient funds", enterErr: repository.ErrInsufficientFunds},
		{name: "account not found", enterErr: repository.ErrAccountNotFound},
		{name: "account frozen", enterErr: repository.ErrAccountFrozen},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			raffle := new(testhelpers.MockRaffleService)
			raffle.On("Enter", mock.Anything, "alice", int64(1)).Return(tt.enterErr)
			subscriber := startConsumer(t, raffle)

			err := subscriber.deliver(t, testEntrySubject, EntryMessage{
				EventID:   "evt-1",
				AccountID: "alice",
				Payment:   1,
			})

			// Rejections are acknowledged: redelivery cannot change the outcome
			assert.NoError(t, err)
		})
	}
}

func TestEntryConsumer_UnexpectedErrorRequestsRedelivery(t *testing.T) {
	t.Parallel()

	raffle := new(testhelpers.MockRaffleService)
	enterErr := errors.New("connection reset by peer")
	raffle.On("Enter", mock.Anything, "alice", int64(10_000_000)).Return(enterErr)
	subscriber := startConsumer(t, raffle)

	err := subscriber.deliver(t, testEntrySubject, EntryMessage{
		AccountID: "alice",
		Payment:   10_000_000,
	})

	assert.ErrorIs(t, err, enterErr)
}

func TestEntryConsumer_MalformedMessageDropped(t *testing.T) {
	t.Parallel()

	raffle := new(testhelpers.MockRaffleService)
	subscriber := startConsumer(t, raffle)

	handler := subscriber.handlers[testEntrySubject]
	require.NotNil(t, handler)

	assert.NoError(t, handler([]byte("not json")))
	raffle.AssertNotCalled(t, "Enter", mock.Anything, mock.Anything, mock.Anything)
}
