package repository

import (
	"context"
	"fmt"

	"github.com/Bilal4700/Smart-Contract-Lottery/database"

	"github.com/jackc/pgx/v5"
)

// TreasuryRepository implements the Treasury interface on PostgreSQL. Each
// account holds a single native-currency balance; transfers lock both rows
// so concurrent payouts and entries cannot lose funds.
type TreasuryRepository struct {
	db *database.DB
}

// NewTreasuryRepository creates a new treasury repository
func NewTreasuryRepository(db *database.DB) *TreasuryRepository {
	return &TreasuryRepository{db: db}
}

// EnsureAccount creates the account with a zero balance if it does not exist
func (r *TreasuryRepository) EnsureAccount(ctx context.Context, accountID string) error {
	query := `
		INSERT INTO accounts (id, balance)
		VALUES ($1, 0)
		ON CONFLICT (id) DO NOTHING
	`
	if _, err := r.db.Exec(ctx, query, accountID); err != nil {
		return fmt.Errorf("failed to ensure account %s: %w", accountID, err)
	}
	return nil
}

// Deposit credits amount to the account
func (r *TreasuryRepository) Deposit(ctx context.Context, accountID string, amount int64) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}

	query := `
		UPDATE accounts
		SET balance = balance + $2, updated_at = NOW()
		WHERE id = $1 AND NOT frozen
	`
	tag, err := r.db.Exec(ctx, query, accountID, amount)
	if err != nil {
		return fmt.Errorf("failed to deposit to account %s: %w", accountID, err)
	}
	if tag.RowsAffected() == 0 {
		return r.classifyMissingAccount(ctx, accountID)
	}
	return nil
}

// Balance returns the current balance of the account
func (r *TreasuryRepository) Balance(ctx context.Context, accountID string) (int64, error) {
	var balance int64
	err := r.db.QueryRow(ctx, `SELECT balance FROM accounts WHERE id = $1`, accountID).Scan(&balance)
	if err == pgx.ErrNoRows {
		return 0, ErrAccountNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read balance of account %s: %w", accountID, err)
	}
	return balance, nil
}

// Transfer atomically moves amount between two accounts. Both rows are locked
// in id order to avoid deadlocks between concurrent transfers.
func (r *TreasuryRepository) Transfer(ctx context.Context, fromID, toID string, amount int64) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}

	return r.db.WithTransaction(ctx, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, `
			SELECT id, balance, frozen
			FROM accounts
			WHERE id = ANY($1)
			ORDER BY id
			FOR UPDATE
		`, []string{fromID, toID})
		if err != nil {
			return fmt.Errorf("failed to lock accounts: %w", err)
		}

		type accountRow struct {
			balance int64
			frozen  bool
		}
		locked := make(map[string]accountRow, 2)
		for rows.Next() {
			var id string
			var row accountRow
			if err := rows.Scan(&id, &row.balance, &row.frozen); err != nil {
				rows.Close()
				return fmt.Errorf("failed to scan account row: %w", err)
			}
			locked[id] = row
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return fmt.Errorf("failed to read account rows: %w", err)
		}

		from, ok := locked[fromID]
		if !ok {
			return fmt.Errorf("source account %s: %w", fromID, ErrAccountNotFound)
		}
		to, ok := locked[toID]
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

		if _, err := tx.Exec(ctx, `
			UPDATE accounts SET balance = balance - $2, updated_at = NOW() WHERE id = $1
		`, fromID, amount); err != nil {
			return fmt.Errorf("failed to debit account %s: %w", fromID, err)
		}
		if _, err := tx.Exec(ctx, `
			UPDATE accounts SET balance = balance + $2, updated_at = NOW() WHERE id = $1
		`, toID, amount); err != nil {
			return fmt.Errorf("failed to credit account %s: %w", toID, err)
		}

		return nil
	})
}

// SetFrozen marks an account as unable to send or receive funds
func (r *TreasuryRepository) SetFrozen(ctx context.Context, accountID string, frozen bool) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE accounts SET frozen = $2, updated_at = NOW() WHERE id = $1
	`, accountID, frozen)
	if err != nil {
		return fmt.Errorf("failed to update frozen flag on account %s: %w", accountID, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrAccountNotFound
	}
	return nil
}

// classifyMissingAccount distinguishes a missing account from a frozen one
// after a guarded update matched no rows
func (r *TreasuryRepository) classifyMissingAccount(ctx context.Context, accountID string) error {
	var frozen bool
	err := r.db.QueryRow(ctx, `SELECT frozen FROM accounts WHERE id = $1`, accountID).Scan(&frozen)
	if err == pgx.ErrNoRows {
		return ErrAccountNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to inspect account %s: %w", accountID, err)
	}
	if frozen {
		return fmt.Errorf("account %s: %w", accountID, ErrAccountFrozen)
	}
	return ErrAccountNotFound
}
