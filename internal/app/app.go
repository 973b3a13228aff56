// Package app initializes all application components.
// app.go is the assembly point: DB pool, repositories, the accrual engine,
// the notification sink and the scheduler, built in dependency order.
package app

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"

	"vitrontrade.com/roi-engine/internal/config"
	"vitrontrade.com/roi-engine/internal/db/postgres"
	"vitrontrade.com/roi-engine/internal/features/investment"
	"vitrontrade.com/roi-engine/internal/features/plan"
	"vitrontrade.com/roi-engine/internal/features/user"
	"vitrontrade.com/roi-engine/internal/features/wallet"
	"vitrontrade.com/roi-engine/internal/jobs"
	"vitrontrade.com/roi-engine/internal/notify"
)

// App holds the assembled components.
type App struct {
	DB          *pgxpool.Pool
	Scheduler   *jobs.Scheduler
	Engine      *investment.Service
	Wallets     *wallet.Repository
	Plans       *plan.Repository
	Users       *user.Repository
	Investments *investment.Repository
}

// New creates and initializes the application.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	pool, err := postgres.NewPool(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("database connection: %w", err)
	}

	if err := runMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("migrations: %w", err)
	}

	walletRepo := wallet.NewRepository(pool)
	planRepo := plan.NewRepository(pool)
	userRepo := user.NewRepository(pool)
	investmentRepo := investment.NewRepository(pool, walletRepo)

	var notifier notify.Notifier = notify.NewLogNotifier()
	if cfg.NotifyTelegramEnabled {
		tg, err := notify.NewTelegramNotifier(cfg.TelegramBotToken, userRepo)
		if err != nil {
			// The sink is best-effort infrastructure; a broken bot token
			// must not keep payouts from running.
			log.WithError(err).Error("Telegram notifier unavailable, falling back to log-only")
		} else {
			notifier = tg
		}
	}

	engine := investment.NewService(investmentRepo, planRepo, notifier, cfg)
	scheduler := jobs.NewScheduler(engine, cfg)

	return &App{
		DB:          pool,
		Scheduler:   scheduler,
		Engine:      engine,
		Wallets:     walletRepo,
		Plans:       planRepo,
		Users:       userRepo,
		Investments: investmentRepo,
	}, nil
}

// runMigrations applies all SQL migrations in order.
func runMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	if err := postgres.Bootstrap(ctx, pool); err != nil {
		return err
	}

	migrations := []struct {
		version int
		sql     string
	}{
		{1, migration001Users},
		{2, migration002Wallets},
		{3, migration003Plans},
		{4, migration004Investments},
		{5, migration005AccrualRuns},
	}

	for _, m := range migrations {
		if err := postgres.ExecMigrationSQL(ctx, pool, m.version, m.sql); err != nil {
			return fmt.Errorf("migration %d: %w", m.version, err)
		}
		log.Infof("Migration %d applied", m.version)
	}
	return nil
}

// SQL migrations are embedded so a deploy is a single binary.

var migration001Users = `
CREATE TABLE IF NOT EXISTS users (
    id UUID PRIMARY KEY,
    username VARCHAR(255) UNIQUE NOT NULL,
    email VARCHAR(255) UNIQUE NOT NULL,
    telegram_chat_id BIGINT,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`

var migration002Wallets = `
CREATE TABLE IF NOT EXISTS wallets (
    id BIGSERIAL PRIMARY KEY,
    user_id UUID UNIQUE NOT NULL REFERENCES users(id),
    balance DECIMAL(20,8) NOT NULL DEFAULT 0,
    total_earned DECIMAL(20,8) NOT NULL DEFAULT 0,
    total_spent DECIMAL(20,8) NOT NULL DEFAULT 0,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE TABLE IF NOT EXISTS wallet_ledger (
    id BIGSERIAL PRIMARY KEY,
    user_id UUID NOT NULL REFERENCES users(id),
    amount DECIMAL(20,8) NOT NULL,
    entry_type VARCHAR(50) NOT NULL,
    description TEXT,
    investment_id UUID,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_wallet_ledger_user ON wallet_ledger(user_id);
CREATE INDEX IF NOT EXISTS idx_wallet_ledger_created_at ON wallet_ledger(created_at DESC);
`

var migration003Plans = `
CREATE TABLE IF NOT EXISTS plans (
    id UUID PRIMARY KEY,
    name VARCHAR(100) NOT NULL,
    description TEXT,
    min_amount DECIMAL(20,8) NOT NULL CHECK (min_amount > 0),
    max_amount DECIMAL(20,8) NOT NULL CHECK (max_amount >= min_amount),
    duration_days INTEGER NOT NULL CHECK (duration_days >= 1),
    roi_percentage DECIMAL(10,2) NOT NULL CHECK (roi_percentage > 0),
    is_active BOOLEAN NOT NULL DEFAULT TRUE,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_plans_is_active ON plans(is_active);
`

var migration004Investments = `
CREATE TABLE IF NOT EXISTS investments (
    id UUID PRIMARY KEY,
    user_id UUID NOT NULL REFERENCES users(id),
    plan_id UUID NOT NULL REFERENCES plans(id),
    amount DECIMAL(20,8) NOT NULL CHECK (amount > 0),
    expected_roi DECIMAL(20,8) NOT NULL CHECK (expected_roi >= 0),
    actual_roi DECIMAL(20,8) NOT NULL DEFAULT 0,
    status VARCHAR(20) NOT NULL DEFAULT 'pending'
        CHECK (status IN ('pending', 'active', 'completed')),
    start_date TIMESTAMPTZ NOT NULL,
    end_date TIMESTAMPTZ NOT NULL,
    payout_date TIMESTAMPTZ,
    transaction_id VARCHAR(255) UNIQUE NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_investments_user ON investments(user_id);
CREATE INDEX IF NOT EXISTS idx_investments_status ON investments(status);
CREATE INDEX IF NOT EXISTS idx_investments_end_date ON investments(end_date);
`

var migration005AccrualRuns = `
CREATE TABLE IF NOT EXISTS accrual_runs (
    id BIGSERIAL PRIMARY KEY,
    run_at TIMESTAMPTZ NOT NULL,
    processed INTEGER NOT NULL,
    failed INTEGER NOT NULL,
    error_count INTEGER NOT NULL DEFAULT 0,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_accrual_runs_run_at ON accrual_runs(run_at DESC);
`
