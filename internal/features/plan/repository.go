// Package plan — repository.go reads and writes the plans table.
package plan

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"vitrontrade.com/roi-engine/internal/common"
)

// Repository provides access to investment plans.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new plan repository.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

const planColumns = `id, name, description, min_amount, max_amount, duration_days, roi_percentage, is_active, created_at, updated_at`

// ByID returns one plan.
func (r *Repository) ByID(ctx context.Context, id uuid.UUID) (*Plan, error) {
	row := r.db.QueryRow(ctx, `SELECT `+planColumns+` FROM plans WHERE id = $1`, id)
	p, err := scanPlan(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, common.ErrPlanNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read plan: %w", err)
	}
	return p, nil
}

// ListActive returns the plans currently open to new investments.
func (r *Repository) ListActive(ctx context.Context) ([]*Plan, error) {
	rows, err := r.db.Query(ctx, `SELECT `+planColumns+` FROM plans WHERE is_active ORDER BY min_amount`)
	if err != nil {
		return nil, fmt.Errorf("failed to list plans: %w", err)
	}
	defer rows.Close()

	var plans []*Plan
	for rows.Next() {
		p, err := scanPlan(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan plan: %w", err)
		}
		plans = append(plans, p)
	}
	return plans, rows.Err()
}

// Create inserts a new plan. Operator tooling only; the engine never
// creates plans.
func (r *Repository) Create(ctx context.Context, p *Plan) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	_, err := r.db.Exec(ctx, `
		INSERT INTO plans (id, name, description, min_amount, max_amount, duration_days, roi_percentage, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, p.ID, p.Name, p.Description, p.MinAmount, p.MaxAmount, p.DurationDays, p.ROIPercentage, p.IsActive)
	if err != nil {
		return fmt.Errorf("failed to create plan: %w", err)
	}
	return nil
}

func scanPlan(row pgx.Row) (*Plan, error) {
	var p Plan
	err := row.Scan(
		&p.ID, &p.Name, &p.Description, &p.MinAmount, &p.MaxAmount,
		&p.DurationDays, &p.ROIPercentage, &p.IsActive, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}
