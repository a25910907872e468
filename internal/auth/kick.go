// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Starfall Contributors

package auth

import (
	"context"
	"time"
)

// KickRequest is a persisted record of intent to forcibly end an account's
// session. Any tier may create one; the tier hosting the session acts on it
// through its kick poller. Rows are deleted once the session is gone.
type KickRequest struct {
	ID          int64
	AccountName string
	TimeCreated time.Time
}

// KickRequestRepository manages kick request persistence.
type KickRequestRepository interface {
	// Create records the intent to end the account's session.
	Create(ctx context.Context, accountName string) error

	// Fetch returns up to limit requests with time_created >= since and
	// id > afterID, ordered by (time_created, id). The ordering plus the
	// caller's watermark guarantees each row is visited exactly once even
	// with coincident timestamps.
	Fetch(ctx context.Context, since time.Time, afterID int64, limit int) ([]KickRequest, error)

	// DeleteForAccount removes outstanding requests for an account, called
	// after the session ends so moot rows are not reprocessed.
	DeleteForAccount(ctx context.Context, accountName string) error
}

// ServerEntry is a row in the shared server registry. Tiers announce
// themselves with the same heartbeat pattern the kick table relies on:
// update the pulse if the name exists, insert otherwise.
type ServerEntry struct {
	ID        int64
	Name      string
	Address   string
	Port      uint16
	LastPulse time.Time
}

// ServerRegistryRepository manages tier discovery rows.
type ServerRegistryRepository interface {
	// Heartbeat upserts this process's registry row and refreshes its pulse.
	Heartbeat(ctx context.Context, name, address string, port uint16) error

	// List returns all registered servers, most recently pulsed first.
	List(ctx context.Context) ([]ServerEntry, error)
}
