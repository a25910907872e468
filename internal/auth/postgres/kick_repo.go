// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Starfall Contributors

package postgres

import (
	"context"
	"time"

	"github.com/samber/oops"

	"github.com/starfall-mmo/starfall/internal/auth"
)

// KickRequestRepository implements auth.KickRequestRepository using
// PostgreSQL. The table is the only channel tiers use to end each other's
// sessions.
type KickRequestRepository struct {
	pool poolIface
}

// NewKickRequestRepository creates a new KickRequestRepository.
func NewKickRequestRepository(pool poolIface) *KickRequestRepository {
	return &KickRequestRepository{pool: pool}
}

// Create records the intent to end the account's session.
func (r *KickRequestRepository) Create(ctx context.Context, accountName string) error {
	_, err := querierFrom(ctx, r.pool).Exec(ctx, `
		INSERT INTO kick_requests (account_name, time_created)
		VALUES ($1, $2)
	`, accountName, time.Now().UTC())
	if err != nil {
		return oops.Code("KICK_CREATE_FAILED").
			With("account", accountName).
			Wrap(err)
	}
	return nil
}

// Fetch returns up to limit requests past the (since, afterID) watermark,
// ordered by (time_created, id). The id tie-break makes batches of rows
// sharing a timestamp resumable.
func (r *KickRequestRepository) Fetch(ctx context.Context, since time.Time, afterID int64, limit int) ([]auth.KickRequest, error) {
	rows, err := querierFrom(ctx, r.pool).Query(ctx, `
		SELECT id, account_name, time_created
		FROM kick_requests
		WHERE time_created >= $1 AND id > $2
		ORDER BY time_created, id
		LIMIT $3
	`, since, afterID, limit)
	if err != nil {
		return nil, oops.Code("KICK_FETCH_FAILED").
			With("since", since).
			With("after_id", afterID).
			Wrap(err)
	}
	defer rows.Close()

	var requests []auth.KickRequest
	for rows.Next() {
		var request auth.KickRequest
		if err := rows.Scan(&request.ID, &request.AccountName, &request.TimeCreated); err != nil {
			return nil, oops.Code("KICK_SCAN_FAILED").Wrap(err)
		}
		requests = append(requests, request)
	}
	if err := rows.Err(); err != nil {
		return nil, oops.Code("KICK_ITERATE_FAILED").Wrap(err)
	}
	return requests, nil
}

// DeleteForAccount removes outstanding requests for an account.
func (r *KickRequestRepository) DeleteForAccount(ctx context.Context, accountName string) error {
	_, err := querierFrom(ctx, r.pool).Exec(ctx, `
		DELETE FROM kick_requests WHERE account_name = $1
	`, accountName)
	if err != nil {
		return oops.Code("KICK_DELETE_FAILED").
			With("account", accountName).
			Wrap(err)
	}
	return nil
}

// Compile-time interface check.
var _ auth.KickRequestRepository = (*KickRequestRepository)(nil)
