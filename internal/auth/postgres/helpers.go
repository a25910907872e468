// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Starfall Contributors

// Package postgres implements the auth repositories on PostgreSQL via pgx.
package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// poolIface abstracts the subset of *pgxpool.Pool the repositories use, so
// tests can substitute pgxmock and transactional callers can pass a pgx.Tx.
type poolIface interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// txKey keys the active transaction in context. See Transactor.
type txKey struct{}

// querierFrom returns the transaction stored in ctx, or the fallback pool.
func querierFrom(ctx context.Context, fallback poolIface) poolIface {
	if tx, ok := ctx.Value(txKey{}).(pgx.Tx); ok {
		return tx
	}
	return fallback
}
