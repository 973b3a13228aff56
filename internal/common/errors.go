// Package common holds the sentinel errors and small helpers shared by
// every feature. Callers match these with errors.Is to decide whether a
// rejection is a caller mistake or an infrastructure failure.
package common

import "errors"

// Wallet errors
var (
	// ErrWalletNotFound — the user has no wallet row
	ErrWalletNotFound = errors.New("wallet not found")
	// ErrInsufficientBalance — the wallet cannot cover the requested debit
	ErrInsufficientBalance = errors.New("insufficient wallet balance")
	// ErrInvalidAmount — amount is zero or negative
	ErrInvalidAmount = errors.New("amount must be positive")
)

// Plan errors
var (
	// ErrPlanNotFound — the referenced investment plan does not exist
	ErrPlanNotFound = errors.New("investment plan not found")
	// ErrPlanInactive — the plan exists but is closed to new investments
	ErrPlanInactive = errors.New("investment plan is inactive")
	// ErrAmountOutOfRange — amount is outside the plan's min/max bounds
	ErrAmountOutOfRange = errors.New("amount is outside the plan limits")
)

// Investment errors
var (
	// ErrInvestmentNotFound — the investment does not exist
	ErrInvestmentNotFound = errors.New("investment not found")
	// ErrInvestmentNotActive — the operation requires an active investment
	ErrInvestmentNotActive = errors.New("investment is not active")
	// ErrRunInProgress — another accrual run currently holds the run lock
	ErrRunInProgress = errors.New("accrual run already in progress")
)
