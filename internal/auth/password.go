// Package auth authenticates users against the configured allow-list and
// issues the bearer tokens that identify a session.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/pkordes/petrol-logbook/internal/domain"
)

// ErrInvalidCredentials is returned for any failed login. It deliberately
// does not say whether the email or the password was wrong.
var ErrInvalidCredentials = errors.New("invalid email or password")

// dummyHash is compared against when the email is unknown so both failure
// paths cost one bcrypt comparison.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("petrol-logbook-dummy"), bcrypt.DefaultCost)

// PasswordAuthenticator checks email/password pairs against a static
// allow-list of bcrypt hashes.
type PasswordAuthenticator struct {
	users map[string]domain.UserProfile
}

// NewPasswordAuthenticator indexes users by lower-cased email.
func NewPasswordAuthenticator(users []domain.UserProfile) *PasswordAuthenticator {
	idx := make(map[string]domain.UserProfile, len(users))
	for _, u := range users {
		idx[normalizeEmail(u.Email)] = u
	}
	return &PasswordAuthenticator{users: idx}
}

// Authenticate verifies the email and password, returning the profile if valid.
func (a *PasswordAuthenticator) Authenticate(_ context.Context, email, password string) (domain.UserProfile, error) {
	user, ok := a.users[normalizeEmail(email)]
	if !ok || user.PasswordHash == "" {
		_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
		return domain.UserProfile{}, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return domain.UserProfile{}, ErrInvalidCredentials
	}
	return user, nil
}

// Lookup returns the profile for email without checking a password.
// Used by the CLI, which runs with operator privileges.
func (a *PasswordAuthenticator) Lookup(email string) (domain.UserProfile, bool) {
	u, ok := a.users[normalizeEmail(email)]
	return u, ok
}

// HashPassword returns the bcrypt hash to place in USER<n>_HASH.
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", errors.New("password must not be empty")
	}
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(h), nil
}

func normalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
