package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"balemuya/internal/models"
)

// CreateOrUpdateUser создает или обновляет пользователя по telegram_id
func (db *DB) CreateOrUpdateUser(ctx context.Context, user *models.User) error {
	if user.JoinedAt.IsZero() {
		user.JoinedAt = time.Now()
	}
	if user.Role == "" {
		user.Role = models.RoleCustomer
	}

	query := `INSERT INTO users (telegram_id, username, full_name, phone, role, joined_at)
              VALUES (?, ?, ?, ?, ?, ?)
              ON CONFLICT(telegram_id) DO UPDATE SET
                  username = excluded.username,
                  full_name = excluded.full_name,
                  phone = COALESCE(NULLIF(excluded.phone, ''), phone),
                  role = excluded.role`
	if _, err := db.ExecContext(ctx, query,
		user.TelegramID,
		user.Username,
		user.FullName,
		user.Phone,
		user.Role,
		user.JoinedAt,
	); err != nil {
		return fmt.Errorf("failed to create or update user: %w", err)
	}

	stored, err := db.GetUserByTelegramID(ctx, user.TelegramID)
	if err != nil {
		return err
	}
	user.ID = stored.ID
	user.JoinedAt = stored.JoinedAt
	return nil
}

func (db *DB) GetUserByTelegramID(ctx context.Context, telegramID string) (*models.User, error) {
	query := `SELECT id, telegram_id, username, full_name, phone, role, joined_at
              FROM users WHERE telegram_id = ?`
	return db.scanUser(db.QueryRowContext(ctx, query, telegramID))
}

func (db *DB) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	query := `SELECT id, telegram_id, username, full_name, phone, role, joined_at
              FROM users WHERE id = ?`
	return db.scanUser(db.QueryRowContext(ctx, query, id))
}

func (db *DB) scanUser(row *sql.Row) (*models.User, error) {
	var user models.User
	err := row.Scan(
		&user.ID, &user.TelegramID, &user.Username, &user.FullName,
		&user.Phone, &user.Role, &user.JoinedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}

// CountUsers возвращает общее количество пользователей без учета окна
func (db *DB) CountUsers(ctx context.Context) (int64, error) {
	var count int64
	err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count users: %w", err)
	}
	return count, nil
}

// CountUsersJoined возвращает количество регистраций в окне [from, to)
func (db *DB) CountUsersJoined(ctx context.Context, from, to time.Time) (int64, error) {
	var count int64
	query := `SELECT COUNT(*) FROM users WHERE joined_at >= ? AND joined_at < ?`
	err := db.QueryRowContext(ctx, query, from, to).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count joined users: %w", err)
	}
	return count, nil
}
