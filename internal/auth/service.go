// Package auth registers users and checks their credentials against a
// Repository of bcrypt-hashed passwords.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"spendwise/internal/core"
	applog "spendwise/internal/log"
)

// Profile is the registration form.
type Profile struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Pincode   string `json:"pincode"`
	Username  string `json:"username"`
	Password  string `json:"password"`
}

// User is a stored account. PasswordHash never leaves the server.
type User struct {
	ID           int64     `json:"id"`
	FirstName    string    `json:"firstName"`
	LastName     string    `json:"lastName"`
	Email        string    `json:"email"`
	Pincode      string    `json:"pincode"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Repository persists users.
//
// CreateUser returns an error wrapping core.ErrConflict when the username is taken.
// FindByUsername returns an error wrapping core.ErrNotFound for unknown users.
type Repository interface {
	CreateUser(ctx context.Context, u User) (User, error)
	FindByUsername(ctx context.Context, username string) (User, error)
}

// Service implements registration and login.
type Service struct {
	repo   Repository
	logger *applog.Logger
}

// NewService creates a Service. A nil logger falls back to the default one.
func NewService(repo Repository, logger *applog.Logger) *Service {
	if logger == nil {
		logger = applog.Default()
	}
	return &Service{repo: repo, logger: logger.WithComponent(applog.ComponentAuth)}
}

// Validate checks the required registration fields.
func (p Profile) Validate() error {
	if strings.TrimSpace(p.Username) == "" {
		return &core.ValidationError{Field: "username", Reason: "username is required"}
	}
	if p.Password == "" {
		return &core.ValidationError{Field: "password", Reason: "password is required"}
	}
	if len(p.Password) > MaxPasswordBytes {
		return &core.ValidationError{Field: "password", Reason: fmt.Sprintf("password must be at most %d bytes", MaxPasswordBytes)}
	}
	if p.Email != "" && !strings.Contains(p.Email, "@") {
		return &core.ValidationError{Field: "email", Value: p.Email, Reason: "email is not valid"}
	}
	return nil
}

// Register creates an account. A taken username yields a conflict error.
func (s *Service) Register(ctx context.Context, p Profile) (User, error) {
	p.Username = strings.TrimSpace(p.Username)
	if err := p.Validate(); err != nil {
		return User{}, err
	}

	hash, err := HashPassword(p.Password)
	if err != nil {
		return User{}, fmt.Errorf("hash password: %w", err)
	}

	u, err := s.repo.CreateUser(ctx, User{
		FirstName:    strings.TrimSpace(p.FirstName),
		LastName:     strings.TrimSpace(p.LastName),
		Email:        strings.TrimSpace(p.Email),
		Pincode:      strings.TrimSpace(p.Pincode),
		Username:     p.Username,
		PasswordHash: hash,
		CreatedAt:    time.Now().UTC(),
	})
	if err != nil {
		if errors.Is(err, core.ErrConflict) {
			s.logger.InfoContext(ctx, "Registration rejected", applog.FieldUsername, p.Username, applog.FieldReason, "username taken")
			return User{}, core.Conflict("Username already exists")
		}
		return User{}, fmt.Errorf("create user: %w", err)
	}

	s.logger.InfoContext(ctx, "User registered", applog.FieldUsername, u.Username, applog.FieldUserID, u.ID)
	return u, nil
}

// Login verifies credentials. Unknown users and wrong passwords return the same
// core.ErrAuth so callers cannot tell which one failed.
func (s *Service) Login(ctx context.Context, username, password string) (User, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return User{}, core.ErrAuth
	}

	u, err := s.repo.FindByUsername(ctx, username)
	if err != nil {
		if !errors.Is(err, core.ErrNotFound) {
			return User{}, fmt.Errorf("find user: %w", err)
		}
		_ = VerifyPassword(string(dummyHash), password)
		s.logger.InfoContext(ctx, "Login failed", applog.FieldUsername, username, applog.FieldReason, "unknown user")
		return User{}, core.ErrAuth
	}

	if err := VerifyPassword(u.PasswordHash, password); err != nil {
		s.logger.InfoContext(ctx, "Login failed", applog.FieldUsername, username, applog.FieldReason, "bad password")
		return User{}, core.ErrAuth
	}
	return u, nil
}
