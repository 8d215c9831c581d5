// Package auth is the identity capability: signup validation, password
// hashing, and credential verification. Storage and hashing sit behind
// narrow interfaces so either can be swapped without touching handlers.
package auth

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"smartexpense/internal/core"
)

var (
	ErrPasswordMismatch   = errors.New("passwords do not match")
	ErrInvalidEmail       = errors.New("invalid email format")
	ErrPasswordTooShort   = errors.New("password must be at least 6 characters long")
	ErrUserExists         = errors.New("username or email already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

const minPasswordLength = 6

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9_.+-]+@[a-zA-Z0-9-]+\.[a-zA-Z0-9-.]+$`)

// Hasher hashes and verifies passwords.
type Hasher interface {
	Hash(password string) (string, error)
	Verify(hash, password string) bool
}

// BcryptHasher is the production Hasher.
type BcryptHasher struct {
	Cost int
}

func (h BcryptHasher) Hash(password string) (string, error) {
	cost := h.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hashed), nil
}

func (h BcryptHasher) Verify(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// UserStore is the slice of persistence the identity component needs.
type UserStore interface {
	CreateUser(ctx context.Context, u core.User) (int64, error)
	UserByUsername(ctx context.Context, username string) (*core.User, error)
	UserExists(ctx context.Context, username, email string) (bool, error)
}

// Principal is the session identity established after authentication.
type Principal struct {
	ID        int64
	Username  string
	FirstName string
	LastName  string
}

// Signup carries the registration form fields.
type Signup struct {
	FirstName       string
	LastName        string
	Username        string
	Email           string
	Password        string
	ConfirmPassword string
	AccountType     string
}

// Validate applies the local signup rules: matching passwords, a plausible
// email shape, and a minimum password length. Uniqueness is checked against
// the store in Register.
func (s Signup) Validate() error {
	if s.Password != s.ConfirmPassword {
		return ErrPasswordMismatch
	}
	if !emailPattern.MatchString(s.Email) {
		return ErrInvalidEmail
	}
	if len(s.Password) < minPasswordLength {
		return ErrPasswordTooShort
	}
	return nil
}

type Service struct {
	store  UserStore
	hasher Hasher
}

func NewService(store UserStore, hasher Hasher) *Service {
	if hasher == nil {
		hasher = BcryptHasher{}
	}
	return &Service{store: store, hasher: hasher}
}

// Register validates the signup, rejects duplicate username or email, and
// stores the user with a salted hash. The plaintext password is never
// persisted.
func (s *Service) Register(ctx context.Context, signup Signup) error {
	if err := signup.Validate(); err != nil {
		return err
	}

	username := strings.TrimSpace(signup.Username)
	email := strings.TrimSpace(signup.Email)

	exists, err := s.store.UserExists(ctx, username, email)
	if err != nil {
		return fmt.Errorf("check existing user: %w", err)
	}
	if exists {
		return ErrUserExists
	}

	hash, err := s.hasher.Hash(signup.Password)
	if err != nil {
		return err
	}

	_, err = s.store.CreateUser(ctx, core.User{
		Username:     username,
		Email:        email,
		FirstName:    strings.TrimSpace(signup.FirstName),
		LastName:     strings.TrimSpace(signup.LastName),
		AccountType:  strings.TrimSpace(signup.AccountType),
		PasswordHash: hash,
	})
	if err != nil {
		// The unique constraints catch a duplicate racing past the
		// optimistic existence check.
		if isUniqueConstraintError(err) {
			return ErrUserExists
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

// Authenticate verifies the credentials and maps the user row to a session
// principal. Unknown username and wrong password intentionally return the
// same error.
func (s *Service) Authenticate(ctx context.Context, username, password string) (Principal, error) {
	user, err := s.store.UserByUsername(ctx, strings.TrimSpace(username))
	if err != nil || user == nil {
		return Principal{}, ErrInvalidCredentials
	}
	if !s.hasher.Verify(user.PasswordHash, password) {
		return Principal{}, ErrInvalidCredentials
	}
	return Principal{
		ID:        user.ID,
		Username:  user.Username,
		FirstName: user.FirstName,
		LastName:  user.LastName,
	}, nil
}

func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	s := err.Error()
	return strings.Contains(s, "UNIQUE constraint") || strings.Contains(s, "unique constraint")
}
