package users

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"papermind-backend/internal/shared/auth"
)

// bcrypt ignores input beyond 72 bytes; longer passwords are rejected.
const maxPasswordBytes = 72

// PasswordHasher hashes and compares passwords.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) error
}

// Tokens issues and verifies bearer tokens.
type Tokens interface {
	auth.Issuer
	auth.Verifier
}

// Service is the credential store: registration, login and token verification.
type Service struct {
	Repo   Repo
	Hasher PasswordHasher
	Tokens Tokens
	Now    func() time.Time
}

func NewService(repo Repo, hasher PasswordHasher, tokens Tokens) *Service {
	return &Service{Repo: repo, Hasher: hasher, Tokens: tokens, Now: time.Now}
}

// Register creates a user with a hashed password.
func (s *Service) Register(ctx context.Context, username, password string) (User, error) {
	username = strings.TrimSpace(username)
	if username == "" || strings.TrimSpace(password) == "" {
		return User{}, fmt.Errorf("%w: username and password are required", ErrInvalidInput)
	}
	if len(password) > maxPasswordBytes {
		return User{}, fmt.Errorf("%w: password is too long", ErrInvalidInput)
	}

	hash, err := s.Hasher.Hash(password)
	if err != nil {
		return User{}, fmt.Errorf("hash password: %w", err)
	}

	user := User{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: hash,
		CreatedAt:    s.now(),
	}
	if err := s.Repo.Create(ctx, user); err != nil {
		return User{}, err
	}
	return user, nil
}

// Login checks the password and issues a token. Unknown users and wrong
// passwords both yield ErrInvalidCredentials.
func (s *Service) Login(ctx context.Context, username, password string) (Session, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return Session{}, fmt.Errorf("%w: username and password are required", ErrInvalidInput)
	}

	user, err := s.Repo.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Session{}, ErrInvalidCredentials
		}
		return Session{}, err
	}

	if err := s.Hasher.Compare(user.PasswordHash, password); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			return Session{}, ErrInvalidCredentials
		}
		return Session{}, fmt.Errorf("compare password: %w", err)
	}

	token, err := s.Tokens.Issue(user.ID)
	if err != nil {
		return Session{}, fmt.Errorf("issue token: %w", err)
	}
	return Session{UserID: user.ID, Username: user.Username, Token: token}, nil
}

// Verify resolves a bearer token to its user id.
func (s *Service) Verify(token string) (string, error) {
	return s.Tokens.Verify(token)
}

// GetByID returns the user for id.
func (s *Service) GetByID(ctx context.Context, userID string) (User, error) {
	if strings.TrimSpace(userID) == "" {
		return User{}, ErrNotFound
	}
	return s.Repo.GetByID(ctx, userID)
}

func (s *Service) now() time.Time {
	if s.Now == nil {
		return time.Now().UTC()
	}
	return s.Now().UTC()
}
