// Package auth registers users, signs them in and resolves bearer tokens to
// identities. It is the server side of the authentication collaborator.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"

	"taskdeck/internal/storage"
	"taskdeck/internal/task"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidEmail       = errors.New("invalid email address")
	ErrWeakPassword       = errors.New("password must be at least 8 characters")
	ErrPasswordTooLong    = errors.New("password must be at most 72 bytes")
	ErrEmailTaken         = errors.New("email already registered")
)

// Identity is the resolved owner of a credential.
type Identity struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

type UserStore interface {
	CreateUser(ctx context.Context, u storage.User) error
	UserByEmail(ctx context.Context, email string) (storage.User, error)
	UserByID(ctx context.Context, id string) (storage.User, error)
}

type Service struct {
	users  UserStore
	tokens *Tokens
	hasher *Hasher
	logger *slog.Logger
}

func NewService(users UserStore, tokens *Tokens, hasher *Hasher, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{users: users, tokens: tokens, hasher: hasher, logger: logger}
}

func (s *Service) Register(ctx context.Context, email, password string) (Identity, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if _, err := mail.ParseAddress(email); err != nil {
		return Identity{}, ErrInvalidEmail
	}
	// bcrypt ignores everything past 72 bytes.
	if len(password) < 8 {
		return Identity{}, ErrWeakPassword
	}
	if len(password) > 72 {
		return Identity{}, ErrPasswordTooLong
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return Identity{}, fmt.Errorf("hash password: %w", err)
	}
	u := storage.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.users.CreateUser(ctx, u); err != nil {
		if errors.Is(err, storage.ErrEmailTaken) {
			return Identity{}, ErrEmailTaken
		}
		return Identity{}, fmt.Errorf("create user: %w", err)
	}
	s.logger.Info("user registered", "user_id", u.ID)
	return Identity{ID: u.ID, Email: u.Email}, nil
}

func (s *Service) Login(ctx context.Context, email, password string) (TokenPair, error) {
	u, err := s.users.UserByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return TokenPair{}, ErrInvalidCredentials
		}
		return TokenPair{}, fmt.Errorf("find user: %w", err)
	}
	if !s.hasher.Verify(password, u.PasswordHash) {
		return TokenPair{}, ErrInvalidCredentials
	}
	return s.tokens.Issue(Identity{ID: u.ID, Email: u.Email})
}

// Refresh trades a refresh token for a new pair, provided the user still
// exists.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (TokenPair, error) {
	claims, err := s.tokens.Verify(refreshToken, kindRefresh)
	if err != nil {
		return TokenPair{}, err
	}
	u, err := s.users.UserByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return TokenPair{}, ErrInvalidCredentials
		}
		return TokenPair{}, fmt.Errorf("find user: %w", err)
	}
	return s.tokens.Issue(Identity{ID: u.ID, Email: u.Email})
}

// Resolve maps an access token to its identity. Every failure wraps
// task.ErrAuth.
func (s *Service) Resolve(_ context.Context, accessToken string) (Identity, error) {
	if accessToken == "" {
		return Identity{}, fmt.Errorf("%w: missing credential", task.ErrAuth)
	}
	claims, err := s.tokens.Verify(accessToken, kindAccess)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %w", task.ErrAuth, err)
	}
	return Identity{ID: claims.Subject, Email: claims.Email}, nil
}

func (s *Service) User(ctx context.Context, id string) (Identity, error) {
	u, err := s.users.UserByID(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return Identity{}, fmt.Errorf("%w: user no longer exists", task.ErrAuth)
		}
		return Identity{}, err
	}
	return Identity{ID: u.ID, Email: u.Email}, nil
}
