// Package investment — models.go defines the investment record and the
// accrual run result types.
package investment

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Status of an investment. Transitions only pending -> active -> completed;
// completed is terminal and the engine never moves a record backward.
type Status string

const (
	StatusPending   Status = "pending"
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
)

// Investment is one user's stake in one plan. Monetary columns are
// DECIMAL(20,8). Records are append-only: nothing in this service deletes
// an investment.
type Investment struct {
	ID     uuid.UUID
	UserID uuid.UUID
	PlanID uuid.UUID
	// Principal is the amount committed at purchase (column "amount").
	Principal decimal.Decimal
	// ExpectedROI is the total payout promised over the investment's life,
	// fixed at purchase as principal * roi_percentage / 100.
	ExpectedROI decimal.Decimal
	// ActualROI accumulates every payout actually applied. Always
	// <= ExpectedROI, and equal to it once the investment completes.
	ActualROI decimal.Decimal
	Status    Status
	StartDate time.Time
	EndDate   time.Time
	// PayoutDate is the idempotency watermark: midnight of the last
	// accrual day applied. Nil until the first payout. On completion it
	// carries the final settlement timestamp instead.
	PayoutDate    *time.Time
	TransactionID string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// PayoutPatch is one atomically-applied payout: the wallet credit plus the
// investment row update, committed in a single transaction.
type PayoutPatch struct {
	InvestmentID uuid.UUID
	UserID       uuid.UUID
	// Amount credited to the wallet. May be zero on a completing patch
	// whose remainder was already settled.
	Amount decimal.Decimal
	// NewActualROI replaces actual_roi (monotonically non-decreasing).
	NewActualROI decimal.Decimal
	PayoutDate   time.Time
	// Complete transitions the investment to its terminal state.
	Complete    bool
	Description string
}

// ItemError is one investment's failure inside a batch run.
type ItemError struct {
	InvestmentID uuid.UUID
	UserID       uuid.UUID
	Message      string
}

// RunResult aggregates one accrual run. One item's failure never aborts
// the batch, so Processed+Failed items were all attempted.
type RunResult struct {
	Processed int
	Failed    int
	Errors    []ItemError
}
