// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Starfall Contributors

package auth

import (
	"context"
	"regexp"
	"time"

	"github.com/samber/oops"
)

// AccessLevel is the persisted privilege tier of an account.
type AccessLevel uint8

const (
	AccessBanned AccessLevel = iota
	AccessPlayer
	AccessModerator
	AccessGameMaster
	AccessAdministrator
)

func (a AccessLevel) String() string {
	switch a {
	case AccessBanned:
		return "banned"
	case AccessPlayer:
		return "player"
	case AccessModerator:
		return "moderator"
	case AccessGameMaster:
		return "gamemaster"
	case AccessAdministrator:
		return "administrator"
	default:
		return "unknown"
	}
}

// Default username validation constraints.
const (
	DefaultMinUsernameLength = 3
	DefaultMaxUsernameLength = 32
)

// usernameRegex matches letters, numbers, and underscores only.
var usernameRegex = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)

// UsernamePolicy validates account names before anything touches
// persistence. Length bounds are configurable; the character class is not.
type UsernamePolicy struct {
	MinLength int
	MaxLength int
}

// DefaultUsernamePolicy returns the standard [3,32] policy.
func DefaultUsernamePolicy() UsernamePolicy {
	return UsernamePolicy{
		MinLength: DefaultMinUsernameLength,
		MaxLength: DefaultMaxUsernameLength,
	}
}

// Validate checks an account name against the policy.
func (p UsernamePolicy) Validate(username string) error {
	if len(username) < p.MinLength {
		return oops.Code("AUTH_INVALID_USERNAME").
			With("min", p.MinLength).
			Errorf("username must be at least %d characters", p.MinLength)
	}
	if len(username) > p.MaxLength {
		return oops.Code("AUTH_INVALID_USERNAME").
			With("max", p.MaxLength).
			Errorf("username must be at most %d characters", p.MaxLength)
	}
	if !usernameRegex.MatchString(username) {
		return oops.Code("AUTH_INVALID_USERNAME").
			Errorf("username may contain only letters, numbers, and underscores")
	}
	return nil
}

// Account is the persisted credential row for one account. Plaintext
// passwords never reach the server; only the SRP salt and verifier are
// stored.
type Account struct {
	Name        string
	Salt        string
	Verifier    string
	AccessLevel AccessLevel
	Banned      bool
	Online      bool
	Created     time.Time
	LastLogin   time.Time
}

// Credentials is the subset of an account needed to run one SRP exchange.
type Credentials struct {
	Salt        string
	Verifier    string
	AccessLevel AccessLevel
	Banned      bool
}

// AccountRepository manages account persistence.
type AccountRepository interface {
	// Create stores a new account with the supplied salt and verifier.
	// Returns ErrAlreadyExists if the name is taken.
	Create(ctx context.Context, name, salt, verifier string) error

	// GetCredentials fetches the SRP credentials for a login attempt and
	// bumps last_login in the same statement. Returns ErrNotFound for an
	// unknown name.
	GetCredentials(ctx context.Context, name string) (*Credentials, error)

	// LastLogin returns the last successful credential fetch time.
	LastLogin(ctx context.Context, name string) (time.Time, error)

	// SetOnline flips the persisted online flag. The flag is visible to
	// new-login checks on every tier immediately, independent of socket
	// state.
	SetOnline(ctx context.Context, name string, online bool) error

	// IsOnline reports the persisted online flag.
	IsOnline(ctx context.Context, name string) (bool, error)
}
