// Package notify — telegram.go delivers notifications through the
// VitronTrade Telegram bot for users who linked a chat. Users without a
// linked chat silently fall through to the log.
package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mymmrac/telego"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

// ChatDirectory resolves a platform user to a Telegram chat.
type ChatDirectory interface {
	TelegramChatID(ctx context.Context, userID uuid.UUID) (int64, bool, error)
}

// TelegramNotifier sends payout and confirmation messages via Telegram.
type TelegramNotifier struct {
	bot   *telego.Bot
	chats ChatDirectory
}

// NewTelegramNotifier creates the Telegram sink.
func NewTelegramNotifier(token string, chats ChatDirectory) (*TelegramNotifier, error) {
	bot, err := telego.NewBot(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}
	return &TelegramNotifier{bot: bot, chats: chats}, nil
}

func (n *TelegramNotifier) NotifyPayout(ctx context.Context, userID uuid.UUID, amount decimal.Decimal, investmentID uuid.UUID) error {
	text := fmt.Sprintf("ROI payout: %s credited to your wallet (investment %s)", amount.String(), investmentID)
	return n.send(ctx, userID, text)
}

func (n *TelegramNotifier) NotifyInvestmentCreated(ctx context.Context, userID uuid.UUID, amount decimal.Decimal, endDate time.Time) error {
	text := fmt.Sprintf("Investment of %s confirmed. It matures on %s.", amount.String(), endDate.Format("2006-01-02"))
	return n.send(ctx, userID, text)
}

func (n *TelegramNotifier) send(ctx context.Context, userID uuid.UUID, text string) error {
	chatID, linked, err := n.chats.TelegramChatID(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to resolve chat for user %s: %w", userID, err)
	}
	if !linked {
		log.WithField("user_id", userID).Debug("No linked Telegram chat, notification logged only")
		return nil
	}

	_, err = n.bot.SendMessage(ctx, &telego.SendMessageParams{
		ChatID: telego.ChatID{ID: chatID},
		Text:   text,
	})
	if err != nil {
		return fmt.Errorf("failed to send telegram message: %w", err)
	}
	return nil
}
