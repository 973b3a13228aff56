// Package investment — repository.go performs all operations on the
// investments and accrual_runs tables. Every payout is one transaction
// scoped to a single investment/wallet pair: the wallet row is locked FOR
// UPDATE, the balance delta and the investment patch commit together, and
// a crash mid-batch leaves processed items durably paid and the rest
// untouched.
package investment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"vitrontrade.com/roi-engine/internal/common"
	"vitrontrade.com/roi-engine/internal/features/wallet"
)

// accrualRunLockKey identifies the engine's Postgres advisory lock. Two
// engine instances pointed at the same database cannot run concurrently.
const accrualRunLockKey = 815102020

// Repository provides access to investment records.
type Repository struct {
	db      *pgxpool.Pool
	wallets *wallet.Repository
}

// NewRepository creates a new investment repository.
func NewRepository(db *pgxpool.Pool, wallets *wallet.Repository) *Repository {
	return &Repository{db: db, wallets: wallets}
}

const investmentColumns = `id, user_id, plan_id, amount, expected_roi, actual_roi, status, start_date, end_date, payout_date, transaction_id, created_at, updated_at`

// ActiveInWindow returns active investments whose window contains now.
func (r *Repository) ActiveInWindow(ctx context.Context, now time.Time) ([]*Investment, error) {
	query := `
		SELECT ` + investmentColumns + `
		FROM investments
		WHERE status = 'active' AND start_date <= $1 AND end_date >= $1
		ORDER BY created_at
	`
	return r.list(ctx, query, now)
}

// OverdueActive returns active investments whose window has fully elapsed —
// the recovery set for cycles the scheduler missed.
func (r *Repository) OverdueActive(ctx context.Context, now time.Time) ([]*Investment, error) {
	query := `
		SELECT ` + investmentColumns + `
		FROM investments
		WHERE status = 'active' AND end_date < $1
		ORDER BY end_date
	`
	return r.list(ctx, query, now)
}

// ByID returns one investment.
func (r *Repository) ByID(ctx context.Context, id uuid.UUID) (*Investment, error) {
	row := r.db.QueryRow(ctx, `SELECT `+investmentColumns+` FROM investments WHERE id = $1`, id)
	inv, err := scanInvestment(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, common.ErrInvestmentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read investment: %w", err)
	}
	return inv, nil
}

// ByUserID returns a user's investments, newest first.
func (r *Repository) ByUserID(ctx context.Context, userID uuid.UUID) ([]*Investment, error) {
	query := `
		SELECT ` + investmentColumns + `
		FROM investments
		WHERE user_id = $1
		ORDER BY created_at DESC
	`
	return r.list(ctx, query, userID)
}

// CreateFunded debits the principal from the user's wallet and inserts the
// investment row in one transaction. Either the stake is taken and the
// record exists, or neither.
func (r *Repository) CreateFunded(ctx context.Context, inv *Investment) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	desc := fmt.Sprintf("Investment %s", inv.TransactionID)
	if err := r.wallets.DebitTx(ctx, tx, inv.UserID, inv.Principal, wallet.EntryInvestment, desc, &inv.ID); err != nil {
		return err
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO investments (id, user_id, plan_id, amount, expected_roi, actual_roi, status, start_date, end_date, transaction_id)
		VALUES ($1, $2, $3, $4, $5, 0, $6, $7, $8, $9)
	`, inv.ID, inv.UserID, inv.PlanID, inv.Principal, inv.ExpectedROI, inv.Status, inv.StartDate, inv.EndDate, inv.TransactionID)
	if err != nil {
		return fmt.Errorf("failed to create investment: %w", err)
	}

	return tx.Commit(ctx)
}

// ApplyPayout credits the wallet and patches the investment row in one
// transaction. The status guard keeps completed terminal: a patch against
// a non-active row updates nothing and the whole transaction rolls back.
func (r *Repository) ApplyPayout(ctx context.Context, p PayoutPatch) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := r.wallets.CreditTx(ctx, tx, p.UserID, p.Amount, wallet.EntryROIPayout, p.Description, &p.InvestmentID); err != nil {
		return err
	}

	status := StatusActive
	if p.Complete {
		status = StatusCompleted
	}
	tag, err := tx.Exec(ctx, `
		UPDATE investments
		SET actual_roi = $2, payout_date = $3, status = $4, updated_at = NOW()
		WHERE id = $1 AND status = 'active'
	`, p.InvestmentID, p.NewActualROI, p.PayoutDate, status)
	if err != nil {
		return fmt.Errorf("failed to update investment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return common.ErrInvestmentNotActive
	}

	return tx.Commit(ctx)
}

// AcquireRunLock takes the engine's advisory lock on a pinned connection.
// Returns ok=false when another run holds it. The release func must be
// called once the run finishes.
func (r *Repository) AcquireRunLock(ctx context.Context) (release func(), ok bool, err error) {
	conn, err := r.db.Acquire(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("failed to acquire connection: %w", err)
	}

	var locked bool
	if err := conn.QueryRow(ctx, `SELECT pg_try_advisory_lock($1)`, accrualRunLockKey).Scan(&locked); err != nil {
		conn.Release()
		return nil, false, fmt.Errorf("failed to take run lock: %w", err)
	}
	if !locked {
		conn.Release()
		return nil, false, nil
	}

	release = func() {
		// Unlock on the same connection the lock was taken on.
		_, _ = conn.Exec(context.Background(), `SELECT pg_advisory_unlock($1)`, accrualRunLockKey)
		conn.Release()
	}
	return release, true, nil
}

// RecordRun persists one accrual run summary — the durable "last run"
// watermark and the admin-facing run history.
func (r *Repository) RecordRun(ctx context.Context, ranAt time.Time, res *RunResult) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO accrual_runs (run_at, processed, failed, error_count)
		VALUES ($1, $2, $3, $4)
	`, ranAt, res.Processed, res.Failed, len(res.Errors))
	if err != nil {
		return fmt.Errorf("failed to record accrual run: %w", err)
	}
	return nil
}

func (r *Repository) list(ctx context.Context, query string, args ...any) ([]*Investment, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query investments: %w", err)
	}
	defer rows.Close()

	var investments []*Investment
	for rows.Next() {
		inv, err := scanInvestment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan investment: %w", err)
		}
		investments = append(investments, inv)
	}
	return investments, rows.Err()
}

func scanInvestment(row pgx.Row) (*Investment, error) {
	var inv Investment
	err := row.Scan(
		&inv.ID, &inv.UserID, &inv.PlanID, &inv.Principal, &inv.ExpectedROI,
		&inv.ActualROI, &inv.Status, &inv.StartDate, &inv.EndDate,
		&inv.PayoutDate, &inv.TransactionID, &inv.CreatedAt, &inv.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &inv, nil
}
