// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Starfall Contributors

package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/samber/oops"

	"github.com/starfall-mmo/starfall/internal/auth"
)

// AccountRepository implements auth.AccountRepository using PostgreSQL.
type AccountRepository struct {
	pool poolIface
}

// NewAccountRepository creates a new AccountRepository.
func NewAccountRepository(pool poolIface) *AccountRepository {
	return &AccountRepository{pool: pool}
}

// Create stores a new account with its SRP salt and verifier.
func (r *AccountRepository) Create(ctx context.Context, name, salt, verifier string) error {
	_, err := querierFrom(ctx, r.pool).Exec(ctx, `
		INSERT INTO accounts (name, salt, verifier, access_level, created_at, last_login)
		VALUES ($1, $2, $3, $4, $5, $5)
	`, name, salt, verifier, auth.AccessPlayer, time.Now().UTC())
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return oops.Code("ACCOUNT_NAME_TAKEN").
				With("name", name).
				Wrap(auth.ErrAlreadyExists)
		}
		return oops.Code("ACCOUNT_CREATE_FAILED").
			With("name", name).
			Wrap(err)
	}
	return nil
}

// GetCredentials fetches the SRP credentials for a login attempt. The
// last_login bump happens in the same statement so the kick poller's
// staleness check and the credential read can never disagree.
func (r *AccountRepository) GetCredentials(ctx context.Context, name string) (*auth.Credentials, error) {
	row := querierFrom(ctx, r.pool).QueryRow(ctx, `
		UPDATE accounts SET last_login = $2
		WHERE LOWER(name) = LOWER($1)
		RETURNING salt, verifier, access_level, banned
	`, name, time.Now().UTC())

	var creds auth.Credentials
	err := row.Scan(&creds.Salt, &creds.Verifier, &creds.AccessLevel, &creds.Banned)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("ACCOUNT_NOT_FOUND").
			With("name", name).
			Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("ACCOUNT_GET_CREDENTIALS_FAILED").
			With("name", name).
			Wrap(err)
	}
	return &creds, nil
}

// LastLogin returns the time of the most recent credential fetch.
func (r *AccountRepository) LastLogin(ctx context.Context, name string) (time.Time, error) {
	var lastLogin time.Time
	err := querierFrom(ctx, r.pool).QueryRow(ctx, `
		SELECT last_login FROM accounts WHERE LOWER(name) = LOWER($1)
	`, name).Scan(&lastLogin)
	if errors.Is(err, pgx.ErrNoRows) {
		return time.Time{}, oops.Code("ACCOUNT_NOT_FOUND").
			With("name", name).
			Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return time.Time{}, oops.Code("ACCOUNT_LAST_LOGIN_FAILED").
			With("name", name).
			Wrap(err)
	}
	return lastLogin, nil
}

// SetOnline flips the persisted online flag.
func (r *AccountRepository) SetOnline(ctx context.Context, name string, online bool) error {
	result, err := querierFrom(ctx, r.pool).Exec(ctx, `
		UPDATE accounts SET online = $2 WHERE LOWER(name) = LOWER($1)
	`, name, online)
	if err != nil {
		return oops.Code("ACCOUNT_SET_ONLINE_FAILED").
			With("name", name).
			With("online", online).
			Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.Code("ACCOUNT_NOT_FOUND").
			With("name", name).
			Wrap(auth.ErrNotFound)
	}
	return nil
}

// IsOnline reports the persisted online flag.
func (r *AccountRepository) IsOnline(ctx context.Context, name string) (bool, error) {
	var online bool
	err := querierFrom(ctx, r.pool).QueryRow(ctx, `
		SELECT online FROM accounts WHERE LOWER(name) = LOWER($1)
	`, name).Scan(&online)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, oops.Code("ACCOUNT_NOT_FOUND").
			With("name", name).
			Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return false, oops.Code("ACCOUNT_IS_ONLINE_FAILED").
			With("name", name).
			Wrap(err)
	}
	return online, nil
}

// Compile-time interface check.
var _ auth.AccountRepository = (*AccountRepository)(nil)
