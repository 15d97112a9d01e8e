package interfaces

import (
	"context"
)

// Treasury manages native-currency balances for raffle accounts. The raffle
// engine owns exactly one holding account; the pot is never tracked
// separately, it is always read back from that account.
type Treasury interface {
	// EnsureAccount creates the account with a zero balance if it does not exist
	EnsureAccount(ctx context.Context, accountID string) error

	// Deposit credits amount to the account
	Deposit(ctx context.Context, accountID string, amount int64) error

	// Balance returns the current balance of the account
	Balance(ctx context.Context, accountID string) (int64, error)

	// Transfer atomically moves amount from one account to another.
	// It fails if the source has insufficient funds or the destination
	// cannot accept funds.
	Transfer(ctx context.Context, fromID, toID string, amount int64) error
}
