// Package investment — service.go is the ROI accrual engine. It walks the
// due investments, computes time-proportional payouts, applies each one in
// its own transaction through the store and fires best-effort
// notifications. The scheduler and the operator entry points both land
// here.
package investment

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"vitrontrade.com/roi-engine/internal/common"
	"vitrontrade.com/roi-engine/internal/config"
	"vitrontrade.com/roi-engine/internal/features/plan"
	"vitrontrade.com/roi-engine/internal/notify"
)

// Store is the persistence surface the engine needs. Implemented by
// Repository; tests substitute an in-memory fake.
type Store interface {
	ActiveInWindow(ctx context.Context, now time.Time) ([]*Investment, error)
	OverdueActive(ctx context.Context, now time.Time) ([]*Investment, error)
	ByID(ctx context.Context, id uuid.UUID) (*Investment, error)
	CreateFunded(ctx context.Context, inv *Investment) error
	ApplyPayout(ctx context.Context, p PayoutPatch) error
	AcquireRunLock(ctx context.Context) (release func(), ok bool, err error)
	RecordRun(ctx context.Context, ranAt time.Time, res *RunResult) error
}

// PlanStore resolves plan terms for the purchase flow.
type PlanStore interface {
	ByID(ctx context.Context, id uuid.UUID) (*plan.Plan, error)
}

// Service is the ROI accrual engine.
type Service struct {
	store    Store
	plans    PlanStore
	notifier notify.Notifier
	policy   string
	loc      *time.Location

	// runMu rejects overlapping runs inside this process; the store's
	// advisory lock covers other processes on the same database.
	runMu sync.Mutex
}

// NewService creates the engine.
func NewService(store Store, plans PlanStore, notifier notify.Notifier, cfg *config.Config) *Service {
	return &Service{
		store:    store,
		plans:    plans,
		notifier: notifier,
		policy:   cfg.AccrualPolicy,
		loc:      cfg.Location(),
	}
}

// ProcessDue is the scheduled entry point: one accrual cycle over every
// due investment. Items fail independently; the batch always runs to the
// end. Returns ErrRunInProgress when another run holds the lock.
func (s *Service) ProcessDue(ctx context.Context, now time.Time) (*RunResult, error) {
	if !s.runMu.TryLock() {
		return nil, common.ErrRunInProgress
	}
	defer s.runMu.Unlock()

	release, ok, err := s.store.AcquireRunLock(ctx)
	if err != nil {
		return nil, fmt.Errorf("run lock: %w", err)
	}
	if !ok {
		return nil, common.ErrRunInProgress
	}
	defer release()

	log.WithField("now", now).Debug("Starting ROI accrual run")
	result := &RunResult{}

	inWindow, err := s.store.ActiveInWindow(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("select in-window investments: %w", err)
	}
	log.WithField("count", len(inWindow)).Debug("Active investments eligible for accrual")
	for _, inv := range inWindow {
		s.accrueOne(ctx, inv, now, result)
	}

	overdue, err := s.store.OverdueActive(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("select overdue investments: %w", err)
	}
	for _, inv := range overdue {
		s.settleOverdue(ctx, inv, now, result)
	}

	if err := s.store.RecordRun(ctx, now, result); err != nil {
		log.WithError(err).Error("Failed to record accrual run")
	}

	log.WithFields(log.Fields{
		"processed": result.Processed,
		"failed":    result.Failed,
		"errors":    len(result.Errors),
	}).Info("ROI accrual run finished")
	return result, nil
}

// accrueOne applies today's payout to one in-window investment.
func (s *Service) accrueOne(ctx context.Context, inv *Investment, now time.Time, res *RunResult) {
	durationDays := common.CeilDays(inv.StartDate, inv.EndDate)
	if durationDays <= 0 {
		s.fail(res, inv, fmt.Errorf("non-positive duration: start %s, end %s", inv.StartDate, inv.EndDate))
		return
	}

	todayStart := common.StartOfDay(now, s.loc)

	// Idempotency gate: one payout per calendar day. A second run inside
	// the same day is a safe no-op.
	if inv.PayoutDate != nil && !todayStart.After(*inv.PayoutDate) {
		log.WithField("investment_id", inv.ID).Debug("Already accrued today, skipping")
		return
	}

	daily := dailySlice(inv.ExpectedROI, durationDays)
	daysElapsed := common.ElapsedDays(inv.StartDate, todayStart, s.loc)
	isLastDay := !todayStart.Before(common.StartOfDay(inv.EndDate, s.loc))

	amount := accrualAmount(s.policy, inv, daily, isLastDay)
	newActual := inv.ActualROI.Add(amount)
	// A fully settled promise completes even before the window's final
	// calendar day (a one-day plan completes on its first accrual).
	complete := isLastDay || newActual.GreaterThanOrEqual(inv.ExpectedROI)

	if amount.IsZero() && !complete {
		// lump_sum mid-window: nothing owed yet.
		return
	}

	patch := PayoutPatch{
		InvestmentID: inv.ID,
		UserID:       inv.UserID,
		Amount:       amount,
		NewActualROI: newActual,
		PayoutDate:   todayStart,
		Complete:     complete,
		Description:  fmt.Sprintf("Daily ROI day %d/%d", daysElapsed, durationDays),
	}
	if complete {
		// Terminal transition: the watermark becomes the final settlement
		// timestamp and the full promise is on the books.
		patch.NewActualROI = inv.ExpectedROI
		patch.PayoutDate = inv.EndDate
		patch.Description = fmt.Sprintf("Final ROI payout day %d/%d", daysElapsed, durationDays)
	}

	if err := s.store.ApplyPayout(ctx, patch); err != nil {
		s.fail(res, inv, err)
		return
	}
	res.Processed++

	log.WithFields(log.Fields{
		"investment_id": inv.ID,
		"user_id":       inv.UserID,
		"amount":        amount.String(),
		"day":           daysElapsed,
		"duration":      durationDays,
		"completed":     complete,
	}).Info("ROI accrued")

	s.notifyPayout(ctx, inv, amount)
}

// settleOverdue pays the full remaining promise of an investment whose
// window elapsed without a timely final accrual. No attempt is made to
// reconstruct the missed daily increments.
func (s *Service) settleOverdue(ctx context.Context, inv *Investment, now time.Time, res *RunResult) {
	amount := remaining(inv)
	patch := PayoutPatch{
		InvestmentID: inv.ID,
		UserID:       inv.UserID,
		Amount:       amount,
		NewActualROI: inv.ExpectedROI,
		PayoutDate:   now,
		Complete:     true,
		Description:  "Overdue ROI settlement",
	}

	if err := s.store.ApplyPayout(ctx, patch); err != nil {
		s.fail(res, inv, err)
		return
	}
	res.Processed++

	log.WithFields(log.Fields{
		"investment_id": inv.ID,
		"user_id":       inv.UserID,
		"amount":        amount.String(),
	}).Info("Overdue ROI settled")

	s.notifyPayout(ctx, inv, amount)
}

// ManualPayout settles one active investment in full, immediately. This is
// a deliberately coarser policy than the scheduled path: an operator
// shortcut, not a prorated accrual.
func (s *Service) ManualPayout(ctx context.Context, investmentID uuid.UUID) (decimal.Decimal, error) {
	inv, err := s.store.ByID(ctx, investmentID)
	if err != nil {
		return decimal.Zero, err
	}
	if inv.Status != StatusActive {
		return decimal.Zero, common.ErrInvestmentNotActive
	}

	amount := remaining(inv)
	patch := PayoutPatch{
		InvestmentID: inv.ID,
		UserID:       inv.UserID,
		Amount:       amount,
		NewActualROI: inv.ExpectedROI,
		PayoutDate:   time.Now().In(s.loc),
		Complete:     true,
		Description:  "Manual ROI settlement",
	}
	if err := s.store.ApplyPayout(ctx, patch); err != nil {
		return decimal.Zero, err
	}

	log.WithFields(log.Fields{
		"investment_id": inv.ID,
		"user_id":       inv.UserID,
		"amount":        amount.String(),
	}).Info("Manual ROI payout")

	s.notifyPayout(ctx, inv, amount)
	return amount, nil
}

// Invest purchases a plan for a user: validates the terms, fixes the
// window and the promised ROI, and funds the record from the wallet in one
// transaction.
func (s *Service) Invest(ctx context.Context, userID, planID uuid.UUID, amount decimal.Decimal) (*Investment, error) {
	if !amount.IsPositive() {
		return nil, common.ErrInvalidAmount
	}

	p, err := s.plans.ByID(ctx, planID)
	if err != nil {
		return nil, err
	}
	if !p.IsActive {
		return nil, common.ErrPlanInactive
	}
	if amount.LessThan(p.MinAmount) || amount.GreaterThan(p.MaxAmount) {
		return nil, common.ErrAmountOutOfRange
	}

	now := time.Now().In(s.loc)
	inv := &Investment{
		ID:            uuid.New(),
		UserID:        userID,
		PlanID:        p.ID,
		Principal:     amount,
		ExpectedROI:   amount.Mul(p.ROIPercentage).Div(decimal.NewFromInt(100)).Round(moneyScale),
		ActualROI:     decimal.Zero,
		Status:        StatusActive,
		StartDate:     now,
		EndDate:       now.AddDate(0, 0, p.DurationDays),
		TransactionID: "inv_" + uuid.NewString(),
	}

	if err := s.store.CreateFunded(ctx, inv); err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"investment_id": inv.ID,
		"user_id":       userID,
		"plan":          p.Name,
		"amount":        amount.String(),
		"expected_roi":  inv.ExpectedROI.String(),
	}).Info("Investment created")

	if err := s.notifier.NotifyInvestmentCreated(ctx, userID, amount, inv.EndDate); err != nil {
		log.WithError(err).WithField("user_id", userID).Warn("Investment confirmation notification failed")
	}
	return inv, nil
}

// fail counts one item as failed and keeps the batch going.
func (s *Service) fail(res *RunResult, inv *Investment, err error) {
	res.Failed++
	res.Errors = append(res.Errors, ItemError{
		InvestmentID: inv.ID,
		UserID:       inv.UserID,
		Message:      err.Error(),
	})
	log.WithError(err).WithFields(log.Fields{
		"investment_id": inv.ID,
		"user_id":       inv.UserID,
	}).Error("Failed to process investment")
}

// notifyPayout fires the sink without letting its failure touch the
// already-committed financial state.
func (s *Service) notifyPayout(ctx context.Context, inv *Investment, amount decimal.Decimal) {
	if err := s.notifier.NotifyPayout(ctx, inv.UserID, amount, inv.ID); err != nil {
		log.WithError(err).WithFields(log.Fields{
			"investment_id": inv.ID,
			"user_id":       inv.UserID,
		}).Warn("Payout notification failed")
	}
}
