// Package notify is the best-effort payout notification sink. The accrual
// engine fires a notification after a financial update commits; an error
// from here is logged by the caller and never rolls the payout back.
package notify

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

// Notifier informs a user about money movements on their account.
type Notifier interface {
	// NotifyPayout reports an ROI credit to the user's wallet.
	NotifyPayout(ctx context.Context, userID uuid.UUID, amount decimal.Decimal, investmentID uuid.UUID) error
	// NotifyInvestmentCreated confirms a freshly funded investment.
	NotifyInvestmentCreated(ctx context.Context, userID uuid.UUID, amount decimal.Decimal, endDate time.Time) error
}

// LogNotifier writes notifications to the application log only. Used when
// no delivery channel is configured.
type LogNotifier struct{}

// NewLogNotifier creates the log-only sink.
func NewLogNotifier() *LogNotifier {
	return &LogNotifier{}
}

func (n *LogNotifier) NotifyPayout(_ context.Context, userID uuid.UUID, amount decimal.Decimal, investmentID uuid.UUID) error {
	log.WithFields(log.Fields{
		"user_id":       userID,
		"investment_id": investmentID,
		"amount":        amount.String(),
	}).Info("ROI payout notification")
	return nil
}

func (n *LogNotifier) NotifyInvestmentCreated(_ context.Context, userID uuid.UUID, amount decimal.Decimal, endDate time.Time) error {
	log.WithFields(log.Fields{
		"user_id":  userID,
		"amount":   amount.String(),
		"end_date": endDate,
	}).Info("Investment confirmation notification")
	return nil
}
