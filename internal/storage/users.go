package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

type User struct {
	ID           string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

func (s *Store) CreateUser(ctx context.Context, u User) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (id, email, password_hash, created_at) VALUES (?, ?, ?, ?);`,
		u.ID, u.Email, u.PasswordHash, formatTime(u.CreatedAt))
	if isUniqueViolation(err) {
		return ErrEmailTaken
	}
	return err
}

func (s *Store) UserByEmail(ctx context.Context, email string) (User, error) {
	return s.queryUser(ctx, `SELECT id, email, password_hash, created_at FROM users WHERE email = ?;`, email)
}

func (s *Store) UserByID(ctx context.Context, id string) (User, error) {
	return s.queryUser(ctx, `SELECT id, email, password_hash, created_at FROM users WHERE id = ?;`, id)
}

func (s *Store) queryUser(ctx context.Context, query string, arg string) (User, error) {
	var u User
	var created string
	err := s.db.QueryRowContext(ctx, query, arg).Scan(&u.ID, &u.Email, &u.PasswordHash, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrNotFound
	}
	if err != nil {
		return User{}, err
	}
	u.CreatedAt = parseTime(created)
	return u, nil
}
