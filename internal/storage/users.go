package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"bilancio/internal/auth"
)

// SQLiteUsers implements auth.UserRepository on the users table.
type SQLiteUsers struct {
	db *sql.DB
}

var _ auth.UserRepository = (*SQLiteUsers)(nil)

func NewSQLiteUsers(db *sql.DB) *SQLiteUsers {
	return &SQLiteUsers{db: db}
}

func (r *SQLiteUsers) CreateUser(ctx context.Context, u auth.User) (auth.User, error) {
	created := u.CreatedAt.UTC().Format(time.RFC3339)
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO users (name, email, password_hash, created_at) VALUES (?, ?, ?, ?)`,
		u.Name, u.Email, u.PasswordHash, created)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return auth.User{}, auth.ErrUserExists
		}
		return auth.User{}, fmt.Errorf("insert user: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return auth.User{}, fmt.Errorf("user id: %w", err)
	}
	u.ID = id
	return u, nil
}

func (r *SQLiteUsers) UserByEmail(ctx context.Context, email string) (auth.User, error) {
	var (
		u       auth.User
		created string
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, email, password_hash, created_at FROM users WHERE email = ?`, email).
		Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return auth.User{}, auth.ErrUserNotFound
	}
	if err != nil {
		return auth.User{}, fmt.Errorf("query user: %w", err)
	}
	if t, err := time.Parse(time.RFC3339, created); err == nil {
		u.CreatedAt = t
	} else if t, err := time.Parse(time.DateTime, created); err == nil {
		u.CreatedAt = t
	}
	return u, nil
}
