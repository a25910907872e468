// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Starfall Contributors

package tier_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starfall-mmo/starfall/internal/auth"
	"github.com/starfall-mmo/starfall/internal/auth/srp"
	"github.com/starfall-mmo/starfall/internal/tier"
)

type stubConn struct {
	id auth.SessionID
}

func (c *stubConn) SessionID() auth.SessionID { return c.id }
func (c *stubConn) Authenticated() bool       { return false }
func (c *stubConn) SetAuthenticated(bool)     {}
func (c *stubConn) Send(any) error            { return nil }
func (c *stubConn) Kick(auth.KickReason)      {}

// fillRegistry binds n fake connections to distinct accounts.
func fillRegistry(t *testing.T, registry *auth.Registry, n int) {
	t.Helper()
	params := srp.DefaultParams()
	for i := 0; i < n; i++ {
		name := fmt.Sprintf("player%d", i)
		salt, verifier, err := srp.GenerateSaltVerifier(params, name, "hunter2")
		require.NoError(t, err)
		client, err := srp.NewClientSession(params)
		require.NoError(t, err)
		conn := &stubConn{id: auth.NewSessionID()}
		require.NoError(t, registry.AddConnectionAccount(conn, name, client.PublicEphemeral(), salt, verifier, auth.AccessPlayer))
	}
}

func TestLoginTier(t *testing.T) {
	result := tier.LoginTier{}.Login(context.Background(), "alice")
	assert.Equal(t, auth.ResultLoginSuccess, result)
	assert.True(t, result.Authenticated())
}

func TestSceneTier(t *testing.T) {
	result := tier.SceneTier{}.Login(context.Background(), "alice")
	assert.Equal(t, auth.ResultSceneLoginSuccess, result)
	assert.True(t, result.Authenticated())
}

func TestWorldTier_SessionCap(t *testing.T) {
	t.Run("admits below the cap", func(t *testing.T) {
		registry := auth.NewRegistry(srp.DefaultParams())
		fillRegistry(t, registry, 2)

		world := tier.NewWorldTier(registry, 3)
		assert.Equal(t, auth.ResultWorldLoginSuccess, world.Login(context.Background(), "alice"))
	})

	t.Run("rejects at the cap", func(t *testing.T) {
		registry := auth.NewRegistry(srp.DefaultParams())
		fillRegistry(t, registry, 3)

		world := tier.NewWorldTier(registry, 3)
		assert.Equal(t, auth.ResultServerFull, world.Login(context.Background(), "alice"))
	})

	t.Run("zero cap means unlimited", func(t *testing.T) {
		registry := auth.NewRegistry(srp.DefaultParams())
		fillRegistry(t, registry, 5)

		world := tier.NewWorldTier(registry, 0)
		assert.Equal(t, auth.ResultWorldLoginSuccess, world.Login(context.Background(), "alice"))
	})
}
