// Package investment — policy.go holds the accrual strategies. The source
// platform grew three near-duplicate payout policies; here they are named
// strategies and the scheduled run picks one via ACCRUAL_POLICY. The manual
// operator payout stays a full settlement regardless of policy.
package investment

import (
	"github.com/shopspring/decimal"

	"vitrontrade.com/roi-engine/internal/config"
)

// moneyScale is the fixed scale of all monetary columns, DECIMAL(20,8).
const moneyScale = 8

// dailySlice returns the per-day payout for an investment. Rounded DOWN to
// the money scale so durationDays slices can never sum past ExpectedROI;
// the final day pays the remainder and absorbs the rounding drift.
func dailySlice(expectedROI decimal.Decimal, durationDays int) decimal.Decimal {
	return expectedROI.Div(decimal.NewFromInt(int64(durationDays))).RoundDown(moneyScale)
}

// remaining returns the unpaid part of the promised ROI, floored at zero.
func remaining(inv *Investment) decimal.Decimal {
	rem := inv.ExpectedROI.Sub(inv.ActualROI)
	if rem.IsNegative() {
		return decimal.Zero
	}
	return rem
}

// accrualAmount decides what an in-window investment is owed today.
//
// daily: one slice per day, the remainder on the final day. Because
// ActualROI tracks every applied payout, the final amount is exact and the
// lifetime sum equals ExpectedROI with no rounding leakage.
//
// lump_sum: nothing until the final day, then everything at once.
func accrualAmount(policy string, inv *Investment, daily decimal.Decimal, isLastDay bool) decimal.Decimal {
	if isLastDay {
		return remaining(inv)
	}
	if policy == config.PolicyLumpSum {
		return decimal.Zero
	}
	// Never let a daily slice overshoot the promised total.
	return decimal.Min(daily, remaining(inv))
}
