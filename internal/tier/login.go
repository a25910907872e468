// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Starfall Contributors

// Package tier wires one Starfall process: database pool, registry,
// authenticator, kick poller, heartbeat, and observability endpoints. The
// three tiers share this wiring and differ only in their TierLogin hook.
package tier

import (
	"context"

	"github.com/starfall-mmo/starfall/internal/auth"
)

// LoginTier admits every account that survives the SRP exchange. Clients
// authenticate here first and receive the world-server list.
type LoginTier struct{}

// Login returns the login tier's terminal success code.
func (LoginTier) Login(context.Context, string) auth.Result {
	return auth.ResultLoginSuccess
}

// WorldTier admits accounts up to a configurable session cap. Zero
// maxSessions means unlimited.
type WorldTier struct {
	registry    *auth.Registry
	maxSessions int
}

// NewWorldTier creates the world tier's admission hook.
func NewWorldTier(registry *auth.Registry, maxSessions int) *WorldTier {
	return &WorldTier{registry: registry, maxSessions: maxSessions}
}

// Login admits the account unless the session cap is reached.
func (t *WorldTier) Login(context.Context, string) auth.Result {
	if t.maxSessions > 0 && t.registry.Len() >= t.maxSessions {
		return auth.ResultServerFull
	}
	return auth.ResultWorldLoginSuccess
}

// SceneTier admits accounts the world tier has already vetted; scene
// processes are spawned by the world tier and trust its admission.
type SceneTier struct{}

// Login returns the scene tier's terminal success code.
func (SceneTier) Login(context.Context, string) auth.Result {
	return auth.ResultSceneLoginSuccess
}

// Compile-time interface checks.
var (
	_ auth.TierLogin = LoginTier{}
	_ auth.TierLogin = (*WorldTier)(nil)
	_ auth.TierLogin = SceneTier{}
)
