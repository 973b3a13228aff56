// Package plan — models.go defines investment plan terms. A plan is the
// template an investment snapshots at purchase time: amount bounds, ROI
// percentage and duration.
package plan

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Plan is one investable product.
type Plan struct {
	ID          uuid.UUID
	Name        string
	Description string
	MinAmount   decimal.Decimal
	MaxAmount   decimal.Decimal
	// DurationDays fixes end_date = start_date + DurationDays at purchase.
	DurationDays int
	// ROIPercentage is the total payout promised over the investment's life,
	// as a percentage of the principal (DECIMAL(10,2)).
	ROIPercentage decimal.Decimal
	IsActive      bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
