// Package wallet — models.go defines the wallet row and its ledger.
package wallet

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Ledger entry types. Every balance movement records one entry.
const (
	EntryDeposit    = "deposit"
	EntryWithdrawal = "withdrawal"
	EntryInvestment = "investment"
	EntryROIPayout  = "roi_payout"
)

// Wallet is one user's spendable balance. All monetary columns are
// DECIMAL(20,8); amounts never pass through binary floats.
type Wallet struct {
	ID          int64
	UserID      uuid.UUID
	Balance     decimal.Decimal
	TotalEarned decimal.Decimal
	TotalSpent  decimal.Decimal
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// LedgerEntry is the append-only record of a single balance movement.
type LedgerEntry struct {
	ID           int64
	UserID       uuid.UUID
	Amount       decimal.Decimal
	EntryType    string
	Description  string
	InvestmentID *uuid.UUID
	CreatedAt    time.Time
}
