// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Starfall Contributors

package postgres

import (
	"context"
	"time"

	"github.com/samber/oops"

	"github.com/starfall-mmo/starfall/internal/auth"
)

// ServerRegistryRepository implements auth.ServerRegistryRepository using
// PostgreSQL.
type ServerRegistryRepository struct {
	pool poolIface
}

// NewServerRegistryRepository creates a new ServerRegistryRepository.
func NewServerRegistryRepository(pool poolIface) *ServerRegistryRepository {
	return &ServerRegistryRepository{pool: pool}
}

// Heartbeat upserts this process's registry row, keyed by name, and
// refreshes its pulse.
func (r *ServerRegistryRepository) Heartbeat(ctx context.Context, name, address string, port uint16) error {
	_, err := querierFrom(ctx, r.pool).Exec(ctx, `
		INSERT INTO server_registry (name, address, port, last_pulse)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (name) DO UPDATE SET address = $2, port = $3, last_pulse = $4
	`, name, address, int32(port), time.Now().UTC())
	if err != nil {
		return oops.Code("SERVER_HEARTBEAT_FAILED").
			With("name", name).
			With("address", address).
			Wrap(err)
	}
	return nil
}

// List returns all registered servers, most recently pulsed first.
func (r *ServerRegistryRepository) List(ctx context.Context) ([]auth.ServerEntry, error) {
	rows, err := querierFrom(ctx, r.pool).Query(ctx, `
		SELECT id, name, address, port, last_pulse
		FROM server_registry
		ORDER BY last_pulse DESC
	`)
	if err != nil {
		return nil, oops.Code("SERVER_LIST_FAILED").Wrap(err)
	}
	defer rows.Close()

	var entries []auth.ServerEntry
	for rows.Next() {
		var entry auth.ServerEntry
		var port int32
		if err := rows.Scan(&entry.ID, &entry.Name, &entry.Address, &port, &entry.LastPulse); err != nil {
			return nil, oops.Code("SERVER_SCAN_FAILED").Wrap(err)
		}
		entry.Port = uint16(port)
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, oops.Code("SERVER_ITERATE_FAILED").Wrap(err)
	}
	return entries, nil
}

// Compile-time interface check.
var _ auth.ServerRegistryRepository = (*ServerRegistryRepository)(nil)
