// Package wallet — repository.go performs all operations on the wallets
// and wallet_ledger tables. Balance updates are always additive deltas; a
// stale read is never written back. The credit/debit methods take an open
// pgx.Tx so a caller can commit the balance change together with its own
// rows (one investment payout = one transaction).
package wallet

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"vitrontrade.com/roi-engine/internal/common"
)

// Repository provides access to wallets and their ledger.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new wallet repository.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// Ensure guarantees the user has a wallet row, creating a zero-balance one
// if needed. Called when a user first appears.
func (r *Repository) Ensure(ctx context.Context, userID uuid.UUID) error {
	query := `
		INSERT INTO wallets (user_id, balance, total_earned, total_spent)
		VALUES ($1, 0, 0, 0)
		ON CONFLICT (user_id) DO NOTHING
	`
	if _, err := r.db.Exec(ctx, query, userID); err != nil {
		return fmt.Errorf("failed to create wallet: %w", err)
	}
	return nil
}

// Balance returns the user's current spendable balance.
func (r *Repository) Balance(ctx context.Context, userID uuid.UUID) (decimal.Decimal, error) {
	var balance decimal.Decimal
	err := r.db.QueryRow(ctx, `SELECT balance FROM wallets WHERE user_id = $1`, userID).Scan(&balance)
	if errors.Is(err, pgx.ErrNoRows) {
		return decimal.Zero, common.ErrWalletNotFound
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to read balance: %w", err)
	}
	return balance, nil
}

// Get returns the full wallet row including lifetime totals.
func (r *Repository) Get(ctx context.Context, userID uuid.UUID) (*Wallet, error) {
	query := `
		SELECT id, user_id, balance, total_earned, total_spent, created_at, updated_at
		FROM wallets
		WHERE user_id = $1
	`
	var w Wallet
	err := r.db.QueryRow(ctx, query, userID).Scan(
		&w.ID, &w.UserID, &w.Balance, &w.TotalEarned, &w.TotalSpent,
		&w.CreatedAt, &w.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, common.ErrWalletNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read wallet: %w", err)
	}
	return &w, nil
}

// CreditTx adds amount to the user's balance inside the caller's
// transaction. The wallet row is locked FOR UPDATE for the duration of the
// transaction so a concurrent withdrawal cannot interleave with the credit.
func (r *Repository) CreditTx(ctx context.Context, tx pgx.Tx, userID uuid.UUID, amount decimal.Decimal, entryType, description string, investmentID *uuid.UUID) error {
	if amount.IsNegative() {
		return common.ErrInvalidAmount
	}

	var balance decimal.Decimal
	err := tx.QueryRow(ctx, `SELECT balance FROM wallets WHERE user_id = $1 FOR UPDATE`, userID).Scan(&balance)
	if errors.Is(err, pgx.ErrNoRows) {
		return common.ErrWalletNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to lock wallet: %w", err)
	}

	_, err = tx.Exec(ctx, `
		UPDATE wallets
		SET balance = balance + $2, total_earned = total_earned + $2, updated_at = NOW()
		WHERE user_id = $1
	`, userID, amount)
	if err != nil {
		return fmt.Errorf("failed to credit wallet: %w", err)
	}

	return r.insertLedgerTx(ctx, tx, userID, amount, entryType, description, investmentID)
}

// DebitTx removes amount from the user's balance inside the caller's
// transaction, rejecting the debit when it would go negative. The wallet
// row is locked FOR UPDATE before the balance check.
func (r *Repository) DebitTx(ctx context.Context, tx pgx.Tx, userID uuid.UUID, amount decimal.Decimal, entryType, description string, investmentID *uuid.UUID) error {
	if !amount.IsPositive() {
		return common.ErrInvalidAmount
	}

	var balance decimal.Decimal
	err := tx.QueryRow(ctx, `SELECT balance FROM wallets WHERE user_id = $1 FOR UPDATE`, userID).Scan(&balance)
	if errors.Is(err, pgx.ErrNoRows) {
		return common.ErrWalletNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to lock wallet: %w", err)
	}

	if balance.LessThan(amount) {
		return common.ErrInsufficientBalance
	}

	_, err = tx.Exec(ctx, `
		UPDATE wallets
		SET balance = balance - $2, total_spent = total_spent + $2, updated_at = NOW()
		WHERE user_id = $1
	`, userID, amount)
	if err != nil {
		return fmt.Errorf("failed to debit wallet: %w", err)
	}

	return r.insertLedgerTx(ctx, tx, userID, amount.Neg(), entryType, description, investmentID)
}

// insertLedgerTx appends one signed ledger entry.
func (r *Repository) insertLedgerTx(ctx context.Context, tx pgx.Tx, userID uuid.UUID, amount decimal.Decimal, entryType, description string, investmentID *uuid.UUID) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO wallet_ledger (user_id, amount, entry_type, description, investment_id)
		VALUES ($1, $2, $3, $4, $5)
	`, userID, amount, entryType, description, investmentID)
	if err != nil {
		return fmt.Errorf("failed to record ledger entry: %w", err)
	}
	return nil
}

// Entries returns the latest N ledger entries for a user, newest first.
func (r *Repository) Entries(ctx context.Context, userID uuid.UUID, limit int) ([]*LedgerEntry, error) {
	query := `
		SELECT id, user_id, amount, entry_type, description, investment_id, created_at
		FROM wallet_ledger
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`
	rows, err := r.db.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to read ledger: %w", err)
	}
	defer rows.Close()

	var entries []*LedgerEntry
	for rows.Next() {
		var e LedgerEntry
		if err := rows.Scan(&e.ID, &e.UserID, &e.Amount, &e.EntryType, &e.Description, &e.InvestmentID, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan ledger entry: %w", err)
		}
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}
