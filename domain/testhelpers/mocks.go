package testhelpers

import (
	"context"
	"time"

	"github.com/Bilal4700/Smart-Contract-Lottery/domain/entities"
	"github.com/Bilal4700/Smart-Contract-Lottery/domain/events"
	"github.com/Bilal4700/Smart-Contract-Lottery/domain/interfaces"

	"github.com/stretchr/testify/mock"
)

// MockTreasury is a mock implementation of Treasury
type MockTreasury struct {
	mock.Mock
}

func (m *MockTreasury) EnsureAccount(ctx context.Context, accountID string) error {
	args := m.Called(ctx, accountID)
	return args.Error(0)
}

func (m *MockTreasury) Deposit(ctx context.Context, accountID string, amount int64) error {
	args := m.Called(ctx, accountID, amount)
	return args.Error(0)
}

func (m *MockTreasury) Balance(ctx context.Context, accountID string) (int64, error) {
	args := m.Called(ctx, accountID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockTreasury) Transfer(ctx context.Context, fromID, toID string, amount int64) error {
	args := m.Called(ctx, fromID, toID, amount)
	return args.Error(0)
}

// MockRandomnessOracle is a mock implementation of RandomnessOracle
type MockRandomnessOracle struct {
	mock.Mock
}

func (m *MockRandomnessOracle) RequestRandomWords(ctx context.Context, req interfaces.RandomnessRequest) (uint64, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(uint64), args.Error(1)
}

// MockEventPublisher is a mock implementation of EventPublisher
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(ctx context.Context, event events.Event) {
	m.Called(ctx, event)
}

// MockRaffleService is a mock implementation of RaffleService
type MockRaffleService struct {
	mock.Mock
}

func (m *MockRaffleService) Enter(ctx context.Context, accountID string, payment int64) error {
	args := m.Called(ctx, accountID, payment)
	return args.Error(0)
}

func (m *MockRaffleService) CheckUpkeep(ctx context.Context) (bool, []byte, error) {
	args := m.Called(ctx)
	var payload []byte
	if args.Get(1) != nil {
		payload = args.Get(1).([]byte)
	}
	return args.Bool(0), payload, args.Error(2)
}

func (m *MockRaffleService) PerformUpkeep(ctx context.Context) (uint64, error) {
	args := m.Called(ctx)
	return args.Get(0).(uint64), args.Error(1)
}

func (m *MockRaffleService) EntryFee() int64 {
	args := m.Called()
	return args.Get(0).(int64)
}

func (m *MockRaffleService) Interval() time.Duration {
	args := m.Called()
	return args.Get(0).(time.Duration)
}

func (m *MockRaffleService) State() entities.RoundState {
	args := m.Called()
	return args.Get(0).(entities.RoundState)
}

func (m *MockRaffleService) NumParticipants() int {
	args := m.Called()
	return args.Int(0)
}

func (m *MockRaffleService) Participant(index int) (string, bool) {
	args := m.Called(index)
	return args.String(0), args.Bool(1)
}

func (m *MockRaffleService) RecentWinner() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockRaffleService) LastDrawTime() time.Time {
	args := m.Called()
	return args.Get(0).(time.Time)
}
