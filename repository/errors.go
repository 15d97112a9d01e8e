package repository

import "errors"

var (
	// ErrAccountNotFound is returned when an operation references an unknown account
	ErrAccountNotFound = errors.New("account not found")

	// ErrInsufficientFunds is returned when a transfer or withdrawal exceeds the balance
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrAccountFrozen is returned when a frozen account is asked to accept or release funds
	ErrAccountFrozen = errors.New("account is frozen")

	// ErrInvalidAmount is returned for zero or negative amounts
	ErrInvalidAmount = errors.New("amount must be positive")
)
