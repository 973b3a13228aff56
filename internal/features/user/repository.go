// Package user — repository.go reads the users table.
package user

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrUserNotFound — the user does not exist.
var ErrUserNotFound = errors.New("user not found")

// Repository provides read access to users.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new user repository.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// ByID returns one user.
func (r *Repository) ByID(ctx context.Context, id uuid.UUID) (*User, error) {
	query := `
		SELECT id, username, email, telegram_chat_id, created_at, updated_at
		FROM users
		WHERE id = $1
	`
	var u User
	err := r.db.QueryRow(ctx, query, id).Scan(
		&u.ID, &u.Username, &u.Email, &u.TelegramChatID, &u.CreatedAt, &u.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read user: %w", err)
	}
	return &u, nil
}

// TelegramChatID returns the user's linked Telegram chat, if any.
func (r *Repository) TelegramChatID(ctx context.Context, id uuid.UUID) (int64, bool, error) {
	var chatID *int64
	err := r.db.QueryRow(ctx, `SELECT telegram_chat_id FROM users WHERE id = $1`, id).Scan(&chatID)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, false, ErrUserNotFound
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to read telegram chat id: %w", err)
	}
	if chatID == nil {
		return 0, false, nil
	}
	return *chatID, true, nil
}
