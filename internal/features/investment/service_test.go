package investment

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vitrontrade.com/roi-engine/internal/common"
	"vitrontrade.com/roi-engine/internal/config"
	"vitrontrade.com/roi-engine/internal/features/plan"
)

// --- fakes -----------------------------------------------------------------

type fakeStore struct {
	order       []uuid.UUID
	investments map[uuid.UUID]*Investment
	balances    map[uuid.UUID]decimal.Decimal
	runs        []RunResult
	applyErr    map[uuid.UUID]error
	lockBusy    bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		investments: make(map[uuid.UUID]*Investment),
		balances:    make(map[uuid.UUID]decimal.Decimal),
		applyErr:    make(map[uuid.UUID]error),
	}
}

func (f *fakeStore) add(inv *Investment) {
	f.order = append(f.order, inv.ID)
	f.investments[inv.ID] = inv
}

func (f *fakeStore) ActiveInWindow(_ context.Context, now time.Time) ([]*Investment, error) {
	var out []*Investment
	for _, id := range f.order {
		inv := f.investments[id]
		if inv.Status == StatusActive && !inv.StartDate.After(now) && !inv.EndDate.Before(now) {
			out = append(out, inv)
		}
	}
	return out, nil
}

func (f *fakeStore) OverdueActive(_ context.Context, now time.Time) ([]*Investment, error) {
	var out []*Investment
	for _, id := range f.order {
		inv := f.investments[id]
		if inv.Status == StatusActive && inv.EndDate.Before(now) {
			out = append(out, inv)
		}
	}
	return out, nil
}

func (f *fakeStore) ByID(_ context.Context, id uuid.UUID) (*Investment, error) {
	inv, ok := f.investments[id]
	if !ok {
		return nil, common.ErrInvestmentNotFound
	}
	return inv, nil
}

func (f *fakeStore) CreateFunded(_ context.Context, inv *Investment) error {
	bal := f.balances[inv.UserID]
	if bal.LessThan(inv.Principal) {
		return common.ErrInsufficientBalance
	}
	f.balances[inv.UserID] = bal.Sub(inv.Principal)
	f.add(inv)
	return nil
}

func (f *fakeStore) ApplyPayout(_ context.Context, p PayoutPatch) error {
	if err := f.applyErr[p.InvestmentID]; err != nil {
		return err
	}
	inv, ok := f.investments[p.InvestmentID]
	if !ok {
		return common.ErrInvestmentNotFound
	}
	if inv.Status != StatusActive {
		return common.ErrInvestmentNotActive
	}
	f.balances[p.UserID] = f.balances[p.UserID].Add(p.Amount)
	inv.ActualROI = p.NewActualROI
	pd := p.PayoutDate
	inv.PayoutDate = &pd
	if p.Complete {
		inv.Status = StatusCompleted
	}
	return nil
}

func (f *fakeStore) AcquireRunLock(context.Context) (func(), bool, error) {
	if f.lockBusy {
		return nil, false, nil
	}
	return func() {}, true, nil
}

func (f *fakeStore) RecordRun(_ context.Context, _ time.Time, res *RunResult) error {
	f.runs = append(f.runs, *res)
	return nil
}

type fakePlans struct {
	plans map[uuid.UUID]*plan.Plan
}

func (f *fakePlans) ByID(_ context.Context, id uuid.UUID) (*plan.Plan, error) {
	p, ok := f.plans[id]
	if !ok {
		return nil, common.ErrPlanNotFound
	}
	return p, nil
}

type payoutCall struct {
	userID       uuid.UUID
	amount       decimal.Decimal
	investmentID uuid.UUID
}

type fakeNotifier struct {
	payouts []payoutCall
	created int
	err     error
}

func (f *fakeNotifier) NotifyPayout(_ context.Context, userID uuid.UUID, amount decimal.Decimal, investmentID uuid.UUID) error {
	f.payouts = append(f.payouts, payoutCall{userID, amount, investmentID})
	return f.err
}

func (f *fakeNotifier) NotifyInvestmentCreated(context.Context, uuid.UUID, decimal.Decimal, time.Time) error {
	f.created++
	return f.err
}

// --- helpers ---------------------------------------------------------------

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func newEngine(store *fakeStore, plans *fakePlans, n *fakeNotifier, policy string) *Service {
	if plans == nil {
		plans = &fakePlans{plans: map[uuid.UUID]*plan.Plan{}}
	}
	cfg := &config.Config{AccrualPolicy: policy, AppTimezone: "UTC"}
	return NewService(store, plans, n, cfg)
}

func activeInvestment(userID uuid.UUID, expected string, start, end time.Time) *Investment {
	return &Investment{
		ID:            uuid.New(),
		UserID:        userID,
		PlanID:        uuid.New(),
		Principal:     d("1000"),
		ExpectedROI:   d(expected),
		ActualROI:     decimal.Zero,
		Status:        StatusActive,
		StartDate:     start,
		EndDate:       end,
		TransactionID: "inv_" + uuid.NewString(),
	}
}

var baseNow = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

// --- scheduled accrual -----------------------------------------------------

func TestProcessDueDailyScenario(t *testing.T) {
	// 1000 principal, 100 expected ROI over 10 days, started 5 days ago,
	// last paid yesterday: one run credits exactly one day's share.
	store := newFakeStore()
	notifier := &fakeNotifier{}
	engine := newEngine(store, nil, notifier, config.PolicyDaily)

	userID := uuid.New()
	start := baseNow.AddDate(0, 0, -5)
	inv := activeInvestment(userID, "100", start, start.AddDate(0, 0, 10))
	inv.ActualROI = d("50")
	yesterday := time.Date(2025, 6, 14, 0, 0, 0, 0, time.UTC)
	inv.PayoutDate = &yesterday
	store.add(inv)

	res, err := engine.ProcessDue(context.Background(), baseNow)
	require.NoError(t, err)

	assert.Equal(t, 1, res.Processed)
	assert.Equal(t, 0, res.Failed)
	assert.True(t, store.balances[userID].Equal(d("10")), "got %s", store.balances[userID])
	assert.True(t, inv.ActualROI.Equal(d("60")))
	assert.Equal(t, StatusActive, inv.Status)
	require.NotNil(t, inv.PayoutDate)
	assert.Equal(t, time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC), *inv.PayoutDate)
	require.Len(t, notifier.payouts, 1)
	assert.True(t, notifier.payouts[0].amount.Equal(d("10")))
}

func TestProcessDueSameDayIdempotent(t *testing.T) {
	store := newFakeStore()
	engine := newEngine(store, nil, &fakeNotifier{}, config.PolicyDaily)

	userID := uuid.New()
	start := baseNow.AddDate(0, 0, -5)
	store.add(activeInvestment(userID, "100", start, start.AddDate(0, 0, 10)))

	_, err := engine.ProcessDue(context.Background(), baseNow)
	require.NoError(t, err)
	balanceAfterFirst := store.balances[userID]
	watermark := *store.investments[store.order[0]].PayoutDate

	// Second run within the same calendar day is a no-op.
	res, err := engine.ProcessDue(context.Background(), baseNow.Add(3*time.Hour))
	require.NoError(t, err)

	assert.Equal(t, 0, res.Processed)
	assert.Equal(t, 0, res.Failed)
	assert.True(t, store.balances[userID].Equal(balanceAfterFirst))
	assert.Equal(t, watermark, *store.investments[store.order[0]].PayoutDate)
}

func TestProcessDueConservation(t *testing.T) {
	// 10 does not divide evenly by 3 days: the daily slice rounds down and
	// the final day pays the remainder, so the lifetime sum is exact.
	store := newFakeStore()
	engine := newEngine(store, nil, &fakeNotifier{}, config.PolicyDaily)

	userID := uuid.New()
	start := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	inv := activeInvestment(userID, "10", start, start.AddDate(0, 0, 3))
	store.add(inv)

	// Three daily slices of 3.33333333, then the 0.00000001 remainder on
	// the final calendar day of the window.
	for _, at := range []time.Time{
		time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC),
		time.Date(2025, 6, 3, 12, 0, 0, 0, time.UTC),
		time.Date(2025, 6, 4, 7, 0, 0, 0, time.UTC),
	} {
		_, err := engine.ProcessDue(context.Background(), at)
		require.NoError(t, err)
	}

	require.Equal(t, StatusCompleted, inv.Status)
	assert.True(t, store.balances[userID].Equal(d("10")), "sum of payouts must equal expected ROI, got %s", store.balances[userID])
	assert.True(t, inv.ActualROI.Equal(inv.ExpectedROI))
	require.NotNil(t, inv.PayoutDate)
	assert.Equal(t, inv.EndDate, *inv.PayoutDate)
}

func TestProcessDueCompletedStaysTerminal(t *testing.T) {
	store := newFakeStore()
	engine := newEngine(store, nil, &fakeNotifier{}, config.PolicyDaily)

	userID := uuid.New()
	start := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	inv := activeInvestment(userID, "10", start, start.AddDate(0, 0, 1))
	store.add(inv)

	_, err := engine.ProcessDue(context.Background(), start.Add(6*time.Hour))
	require.NoError(t, err)
	require.Equal(t, StatusCompleted, inv.Status)
	settled := store.balances[userID]

	// Later runs never pick the completed record up again.
	for day := 1; day <= 3; day++ {
		res, err := engine.ProcessDue(context.Background(), start.AddDate(0, 0, day))
		require.NoError(t, err)
		assert.Equal(t, 0, res.Processed)
	}
	assert.Equal(t, StatusCompleted, inv.Status)
	assert.True(t, store.balances[userID].Equal(settled))
}

func TestProcessDueSingleDayPlan(t *testing.T) {
	// A one-day plan started now pays its full expected ROI in one call
	// and completes immediately.
	store := newFakeStore()
	engine := newEngine(store, nil, &fakeNotifier{}, config.PolicyDaily)

	userID := uuid.New()
	inv := activeInvestment(userID, "25", baseNow, baseNow.Add(24*time.Hour))
	store.add(inv)

	res, err := engine.ProcessDue(context.Background(), baseNow)
	require.NoError(t, err)

	assert.Equal(t, 1, res.Processed)
	assert.True(t, store.balances[userID].Equal(d("25")))
	assert.Equal(t, StatusCompleted, inv.Status)
	assert.True(t, inv.ActualROI.Equal(d("25")))
}

func TestProcessDueRejectsNonPositiveDuration(t *testing.T) {
	store := newFakeStore()
	engine := newEngine(store, nil, &fakeNotifier{}, config.PolicyDaily)

	userID := uuid.New()
	// end == start: a corrupt record that must be counted as failed
	// without touching the balance or aborting anything.
	inv := activeInvestment(userID, "100", baseNow.Add(-time.Hour), baseNow.Add(-time.Hour))
	store.add(inv)

	res := &RunResult{}
	engine.accrueOne(context.Background(), inv, baseNow, res)

	assert.Equal(t, 0, res.Processed)
	assert.Equal(t, 1, res.Failed)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, inv.ID, res.Errors[0].InvestmentID)
	assert.True(t, store.balances[userID].IsZero())
	assert.Equal(t, StatusActive, inv.Status)
}

func TestProcessDueOverdueCatchUp(t *testing.T) {
	// Ended 3 days ago but never settled: one run pays the full remaining
	// promise and completes the record.
	store := newFakeStore()
	engine := newEngine(store, nil, &fakeNotifier{}, config.PolicyDaily)

	userID := uuid.New()
	start := baseNow.AddDate(0, 0, -13)
	inv := activeInvestment(userID, "100", start, baseNow.AddDate(0, 0, -3))
	inv.ActualROI = d("30")
	store.add(inv)

	res, err := engine.ProcessDue(context.Background(), baseNow)
	require.NoError(t, err)

	assert.Equal(t, 1, res.Processed)
	assert.True(t, store.balances[userID].Equal(d("70")), "got %s", store.balances[userID])
	assert.Equal(t, StatusCompleted, inv.Status)
	assert.True(t, inv.ActualROI.Equal(d("100")))
	require.NotNil(t, inv.PayoutDate)
	assert.Equal(t, baseNow, *inv.PayoutDate)
}

func TestProcessDueItemFailureDoesNotAbortBatch(t *testing.T) {
	store := newFakeStore()
	engine := newEngine(store, nil, &fakeNotifier{}, config.PolicyDaily)

	start := baseNow.AddDate(0, 0, -5)
	end := start.AddDate(0, 0, 10)
	broken := activeInvestment(uuid.New(), "100", start, end)
	healthy := activeInvestment(uuid.New(), "100", start, end)
	store.add(broken)
	store.add(healthy)
	store.applyErr[broken.ID] = errors.New("write conflict")

	res, err := engine.ProcessDue(context.Background(), baseNow)
	require.NoError(t, err)

	assert.Equal(t, 1, res.Processed)
	assert.Equal(t, 1, res.Failed)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, broken.ID, res.Errors[0].InvestmentID)
	assert.True(t, store.balances[broken.UserID].IsZero())
	assert.True(t, store.balances[healthy.UserID].Equal(d("10")))
}

func TestProcessDueNotificationFailureStillProcessed(t *testing.T) {
	store := newFakeStore()
	notifier := &fakeNotifier{err: errors.New("smtp down")}
	engine := newEngine(store, nil, notifier, config.PolicyDaily)

	userID := uuid.New()
	start := baseNow.AddDate(0, 0, -5)
	store.add(activeInvestment(userID, "100", start, start.AddDate(0, 0, 10)))

	res, err := engine.ProcessDue(context.Background(), baseNow)
	require.NoError(t, err)

	// The financial state committed; a dead sink never counts as failure.
	assert.Equal(t, 1, res.Processed)
	assert.Equal(t, 0, res.Failed)
	assert.True(t, store.balances[userID].Equal(d("10")))
}

func TestProcessDueRunLockHeld(t *testing.T) {
	store := newFakeStore()
	store.lockBusy = true
	engine := newEngine(store, nil, &fakeNotifier{}, config.PolicyDaily)

	_, err := engine.ProcessDue(context.Background(), baseNow)
	assert.ErrorIs(t, err, common.ErrRunInProgress)
}

func TestProcessDueRecordsRunHistory(t *testing.T) {
	store := newFakeStore()
	engine := newEngine(store, nil, &fakeNotifier{}, config.PolicyDaily)

	userID := uuid.New()
	start := baseNow.AddDate(0, 0, -5)
	store.add(activeInvestment(userID, "100", start, start.AddDate(0, 0, 10)))

	_, err := engine.ProcessDue(context.Background(), baseNow)
	require.NoError(t, err)

	require.Len(t, store.runs, 1)
	assert.Equal(t, 1, store.runs[0].Processed)
	assert.Equal(t, 0, store.runs[0].Failed)
}

// --- lump-sum policy -------------------------------------------------------

func TestLumpSumPolicyPaysOnlyAtTheEnd(t *testing.T) {
	store := newFakeStore()
	engine := newEngine(store, nil, &fakeNotifier{}, config.PolicyLumpSum)

	userID := uuid.New()
	start := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)
	inv := activeInvestment(userID, "100", start, start.AddDate(0, 0, 10))
	store.add(inv)

	// Mid-window: nothing is owed yet.
	res, err := engine.ProcessDue(context.Background(), baseNow)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Processed)
	assert.True(t, store.balances[userID].IsZero())
	assert.Nil(t, inv.PayoutDate)

	// Final calendar day of the window: everything at once.
	res, err = engine.ProcessDue(context.Background(), time.Date(2025, 6, 20, 6, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, 1, res.Processed)
	assert.True(t, store.balances[userID].Equal(d("100")))
	assert.Equal(t, StatusCompleted, inv.Status)
}

// --- manual payout ---------------------------------------------------------

func TestManualPayout(t *testing.T) {
	store := newFakeStore()
	notifier := &fakeNotifier{}
	engine := newEngine(store, nil, notifier, config.PolicyDaily)

	userID := uuid.New()
	inv := activeInvestment(userID, "50", baseNow.AddDate(0, 0, -2), baseNow.AddDate(0, 0, 8))
	store.add(inv)

	amount, err := engine.ManualPayout(context.Background(), inv.ID)
	require.NoError(t, err)

	assert.True(t, amount.Equal(d("50")))
	assert.True(t, store.balances[userID].Equal(d("50")))
	assert.Equal(t, StatusCompleted, inv.Status)
	assert.True(t, inv.ActualROI.Equal(d("50")))
	require.Len(t, notifier.payouts, 1)

	// Second settlement of the now-completed investment is rejected and
	// leaves the balance untouched.
	_, err = engine.ManualPayout(context.Background(), inv.ID)
	assert.ErrorIs(t, err, common.ErrInvestmentNotActive)
	assert.True(t, store.balances[userID].Equal(d("50")))
}

func TestManualPayoutNotFound(t *testing.T) {
	engine := newEngine(newFakeStore(), nil, &fakeNotifier{}, config.PolicyDaily)

	_, err := engine.ManualPayout(context.Background(), uuid.New())
	assert.ErrorIs(t, err, common.ErrInvestmentNotFound)
}

// --- purchase flow ---------------------------------------------------------

func TestInvest(t *testing.T) {
	store := newFakeStore()
	notifier := &fakeNotifier{}
	planID := uuid.New()
	plans := &fakePlans{plans: map[uuid.UUID]*plan.Plan{
		planID: {
			ID:            planID,
			Name:          "Starter",
			MinAmount:     d("100"),
			MaxAmount:     d("10000"),
			DurationDays:  10,
			ROIPercentage: d("10"),
			IsActive:      true,
		},
	}}
	engine := newEngine(store, plans, notifier, config.PolicyDaily)

	userID := uuid.New()
	store.balances[userID] = d("1500")

	inv, err := engine.Invest(context.Background(), userID, planID, d("1000"))
	require.NoError(t, err)

	assert.Equal(t, StatusActive, inv.Status)
	assert.True(t, inv.ExpectedROI.Equal(d("100")), "got %s", inv.ExpectedROI)
	assert.True(t, inv.ActualROI.IsZero())
	assert.Equal(t, inv.StartDate.AddDate(0, 0, 10), inv.EndDate)
	assert.Contains(t, inv.TransactionID, "inv_")
	assert.True(t, store.balances[userID].Equal(d("500")))
	assert.Equal(t, 1, notifier.created)
}

func TestInvestRejections(t *testing.T) {
	store := newFakeStore()
	planID := uuid.New()
	inactiveID := uuid.New()
	plans := &fakePlans{plans: map[uuid.UUID]*plan.Plan{
		planID: {
			ID: planID, MinAmount: d("100"), MaxAmount: d("1000"),
			DurationDays: 10, ROIPercentage: d("10"), IsActive: true,
		},
		inactiveID: {
			ID: inactiveID, MinAmount: d("100"), MaxAmount: d("1000"),
			DurationDays: 10, ROIPercentage: d("10"), IsActive: false,
		},
	}}
	engine := newEngine(store, plans, &fakeNotifier{}, config.PolicyDaily)

	userID := uuid.New()
	store.balances[userID] = d("50")

	_, err := engine.Invest(context.Background(), userID, planID, decimal.Zero)
	assert.ErrorIs(t, err, common.ErrInvalidAmount)

	_, err = engine.Invest(context.Background(), userID, uuid.New(), d("500"))
	assert.ErrorIs(t, err, common.ErrPlanNotFound)

	_, err = engine.Invest(context.Background(), userID, inactiveID, d("500"))
	assert.ErrorIs(t, err, common.ErrPlanInactive)

	_, err = engine.Invest(context.Background(), userID, planID, d("50"))
	assert.ErrorIs(t, err, common.ErrAmountOutOfRange)

	_, err = engine.Invest(context.Background(), userID, planID, d("500"))
	assert.ErrorIs(t, err, common.ErrInsufficientBalance)
	assert.True(t, store.balances[userID].Equal(d("50")), "failed purchase must not touch the balance")
}
