package repository

import (
	"context"
	"fmt"
	"sync"
)

type memoryAccount struct {
	balance int64
	frozen  bool
}

// MemoryTreasury is an in-memory Treasury implementation for development
// mode and tests. It applies the same rules as the PostgreSQL repository:
// non-negative balances, frozen accounts reject funds in both directions.
type MemoryTreasury struct {
	mu       sync.Mutex
	accounts map[string]*memoryAccount
}

// NewMemoryTreasury creates an empty in-memory treasury
func NewMemoryTreasury() *MemoryTreasury {
	return &MemoryTreasury{
		accounts: make(map[string]*memoryAccount),
	}
}

// EnsureAccount creates the account with a zero balance if it does not exist
func (t *MemoryTreasury) EnsureAccount(ctx context.Context, accountID string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.accounts[accountID]; !ok {
		t.accounts[accountID] = &memoryAccount{}
	}
	return nil
}

// Deposit credits amount to the account
func (t *MemoryTreasury) Deposit(ctx context.Context, accountID string, amount int64) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	account, ok := t.accounts[accountID]
	if !ok {
		return ErrAccountNotFound
	}
	if account.frozen {
		return fmt.Errorf("account %s: %w", accountID, ErrAccountFrozen)
	}
	account.balance += amount
	return nil
}

// Balance returns the current balance of the account
func (t *MemoryTreasury) Balance(ctx context.Context, accountID string) (int64, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	account, ok := t.accounts[accountID]
	if !ok {
		return 0, ErrAccountNotFound
	}
	return account.balance, nil
}

// Transfer atomically moves amount between two accounts
func (t *MemoryTreasury) Transfer(ctx context.Context, fromID, toID string, amount int64) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	from, ok := t.accounts[fromID]
	if !ok {
		return fmt.Errorf("source account %s: %w", fromID, ErrAccountNotFound)
	}
	to, ok := t.accounts[toID]
	if !ok {
		return fmt.Errorf("destination account %s: %w", toID, ErrAccountNotFound)
	}
	if from.frozen {
		return fmt.Errorf("source account %s: %w", fromID, ErrAccountFrozen)
	}
	if to.frozen {
		return fmt.Errorf("destination account %s: %w", toID, ErrAccountFrozen)
	}
	if from.balance < amount {
		return fmt.Errorf("source account %s has %d, needs %d: %w",
			fromID, from.balance, amount, ErrInsufficientFunds)
	}

	from.balance -= amount
	to.balance += amount
	return nil
}

// SetFrozen marks an account as unable to send or receive funds
func (t *MemoryTreasury) SetFrozen(ctx context.Context, accountID string, frozen bool) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	account, ok := t.accounts[accountID]
	if !ok {
		return ErrAccountNotFound
	}
	account.frozen = frozen
	return nil
}
