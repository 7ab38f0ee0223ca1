// Package auth manages local user accounts with bcrypt-hashed passwords.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"bilancio/internal/log"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrUserExists         = errors.New("user already exists")
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidEmail       = errors.New("invalid email address")
	ErrWeakPassword       = errors.New("password must be at least 8 characters")
	ErrEmptyName          = errors.New("name is required")
)

// MinPasswordLength is the shortest password Register accepts.
const MinPasswordLength = 8

type User struct {
	ID           int64
	Name         string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

// Principal identifies the authenticated owner of a session.
type Principal struct {
	UserID int64
	Name   string
	Email  string
}

// IsZero reports whether p identifies nobody.
func (p Principal) IsZero() bool {
	return p.UserID == 0 && p.Email == ""
}

// Local is the principal used when authentication is disabled.
var Local = Principal{UserID: -1, Name: "local", Email: "local@localhost"}

// UserRepository persists user accounts. CreateUser returns ErrUserExists
// for a duplicate email and UserByEmail returns ErrUserNotFound.
type UserRepository interface {
	CreateUser(ctx context.Context, u User) (User, error)
	UserByEmail(ctx context.Context, email string) (User, error)
}

type Service struct {
	users  UserRepository
	cost   int
	logger *log.Logger
	// hash compared against when the email is unknown, so both failure
	// paths cost one bcrypt comparison
	dummyHash []byte
}

func NewService(users UserRepository, logger *log.Logger) *Service {
	return NewServiceWithCost(users, bcrypt.DefaultCost, logger)
}

// NewServiceWithCost is NewService with an explicit bcrypt cost.
func NewServiceWithCost(users UserRepository, cost int, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.Discard()
	}
	dummy, _ := bcrypt.GenerateFromPassword([]byte("bilancio-unknown-user"), cost)
	return &Service{
		users:     users,
		cost:      cost,
		logger:    logger.WithComponent(log.ComponentAuth),
		dummyHash: dummy,
	}
}

// NormalizeEmail trims and lowercases an address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates a user with a hashed password.
func (s *Service) Register(ctx context.Context, name, email, password string) (User, error) {
	name = strings.TrimSpace(name)
	email = NormalizeEmail(email)
	if name == "" {
		return User{}, ErrEmptyName
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return User{}, fmt.Errorf("%w: %s", ErrInvalidEmail, email)
	}
	if len(password) < MinPasswordLength {
		return User{}, ErrWeakPassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return User{}, fmt.Errorf("hash password: %w", err)
	}

	u, err := s.users.CreateUser(ctx, User{
		Name:         name,
		Email:        email,
		PasswordHash: string(hash),
		CreatedAt:    time.Now().UTC(),
	})
	if err != nil {
		return User{}, err
	}
	s.logger.InfoContext(ctx, "User registered", log.FieldUser, u.Email)
	return u, nil
}

// Authenticate checks the credentials and returns the matching principal.
// Unknown emails and wrong passwords both yield ErrInvalidCredentials.
func (s *Service) Authenticate(ctx context.Context, email, password string) (Principal, error) {
	u, err := s.users.UserByEmail(ctx, NormalizeEmail(email))
	if errors.Is(err, ErrUserNotFound) {
		_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(password))
		s.logger.WarnContext(ctx, "Login failed", log.FieldUser, NormalizeEmail(email), log.FieldReason, "unknown user")
		return Principal{}, ErrInvalidCredentials
	}
	if err != nil {
		return Principal{}, fmt.Errorf("lookup user: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		s.logger.WarnContext(ctx, "Login failed", log.FieldUser, u.Email, log.FieldReason, "wrong password")
		return Principal{}, ErrInvalidCredentials
	}
	return Principal{UserID: u.ID, Name: u.Name, Email: u.Email}, nil
}
