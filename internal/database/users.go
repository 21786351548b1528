package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/Eo-0118/Black-Kingdom/internal/models"
)

const userColumns = `id, email, password_hash, nickname, role,
	COALESCE(date_of_birth, ''), COALESCE(phone_number, ''), COALESCE(sido, ''),
	COALESCE(sigungu, ''), COALESCE(dong, ''), COALESCE(gender, ''),
	telegram_chat_id, created_at, updated_at`

// CreateUser inserts u and sets its ID. Emails are stored lower-cased; a
// second account with the same email fails with ErrDuplicateEmail.
func (db *DB) CreateUser(ctx context.Context, u *models.User) error {
	now := time.Now()
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))

	res, err := db.ExecContext(ctx, `
		INSERT INTO users (email, password_hash, nickname, role, date_of_birth, phone_number,
			sido, sigungu, dong, gender, telegram_chat_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		u.Email, u.PasswordHash, u.Nickname, string(u.Role), u.DateOfBirth, u.PhoneNumber,
		u.Sido, u.Sigungu, u.Dong, u.Gender, u.TelegramChatID, now, now,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateEmail
		}
		return fmt.Errorf("insert user: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("user id: %w", err)
	}
	u.ID = id
	u.CreatedAt = now
	u.UpdatedAt = now
	return nil
}

// GetUserByEmail looks a user up case-insensitively.
func (db *DB) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	row := db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`,
		strings.ToLower(strings.TrimSpace(email)))
	return scanUser(row)
}

func (db *DB) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	row := db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	return scanUser(row)
}

// SetTelegramChatID links a user to a Telegram chat for reminders.
func (db *DB) SetTelegramChatID(ctx context.Context, userID, chatID int64) error {
	res, err := db.ExecContext(ctx, `UPDATE users SET telegram_chat_id = ?, updated_at = ? WHERE id = ?`,
		chatID, time.Now(), userID)
	if err != nil {
		return fmt.Errorf("update telegram chat: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanUser(row rowScanner) (*models.User, error) {
	var u models.User
	var role string
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Nickname, &role,
		&u.DateOfBirth, &u.PhoneNumber, &u.Sido, &u.Sigungu, &u.Dong, &u.Gender,
		&u.TelegramChatID, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}
	u.Role = models.Role(role)
	return &u, nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}
