// Package user — models.go defines the minimal user projection this
// service needs: identity plus the notification target. Account management
// lives in the main platform, not here.
package user

import (
	"time"

	"github.com/google/uuid"
)

// User is one platform account.
type User struct {
	ID       uuid.UUID
	Username string
	Email    string
	// TelegramChatID is set once the user links the VitronTrade bot;
	// nil means payout notifications for this user are log-only.
	TelegramChatID *int64
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
