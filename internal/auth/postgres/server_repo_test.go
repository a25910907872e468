// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Starfall Contributors

package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starfall-mmo/starfall/internal/auth"
)

func TestServerRegistryRepository_Heartbeat(t *testing.T) {
	t.Run("upserts registry row", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectExec(`INSERT INTO server_registry`).
			WithArgs("world-1", "10.0.0.5", int32(7780), pgxmock.AnyArg()).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		repo := NewServerRegistryRepository(mock)
		require.NoError(t, repo.Heartbeat(context.Background(), "world-1", "10.0.0.5", 7780))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("database error", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectExec(`INSERT INTO server_registry`).
			WithArgs("world-1", "10.0.0.5", int32(7780), pgxmock.AnyArg()).
			WillReturnError(errors.New("connection refused"))

		repo := NewServerRegistryRepository(mock)
		err = repo.Heartbeat(context.Background(), "world-1", "10.0.0.5", 7780)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "connection refused")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestServerRegistryRepository_List(t *testing.T) {
	t.Run("returns entries most recently pulsed first", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
		rows := pgxmock.NewRows([]string{"id", "name", "address", "port", "last_pulse"}).
			AddRow(int64(2), "world-1", "10.0.0.5", int32(7780), now).
			AddRow(int64(1), "login-1", "10.0.0.4", int32(7770), now.Add(-time.Minute))
		mock.ExpectQuery(`SELECT id, name, address, port, last_pulse`).
			WillReturnRows(rows)

		repo := NewServerRegistryRepository(mock)
		got, err := repo.List(context.Background())
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, auth.ServerEntry{ID: 2, Name: "world-1", Address: "10.0.0.5", Port: 7780, LastPulse: now}, got[0])
		assert.Equal(t, "login-1", got[1].Name)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("query error", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectQuery(`SELECT id, name, address, port, last_pulse`).
			WillReturnError(errors.New("connection refused"))

		repo := NewServerRegistryRepository(mock)
		_, err = repo.List(context.Background())
		require.Error(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
