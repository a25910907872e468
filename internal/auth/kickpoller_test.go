// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Starfall Contributors

package auth_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/starfall-mmo/starfall/internal/auth"
	"github.com/starfall-mmo/starfall/internal/auth/srp"
)

type pollerFixture struct {
	poller   *auth.KickPoller
	registry *auth.Registry
	accounts *fakeAccountRepo
	kicks    *fakeKickRepo
}

func newPollerFixture(t *testing.T, batch int) *pollerFixture {
	t.Helper()
	registry := auth.NewRegistry(srp.DefaultParams())
	accounts := newFakeAccountRepo()
	kicks := newFakeKickRepo()

	poller, err := auth.NewKickPoller(kicks, accounts, registry, time.Minute, batch, nil)
	require.NoError(t, err)

	return &pollerFixture{poller: poller, registry: registry, accounts: accounts, kicks: kicks}
}

// connectAccount creates the account, marks it online with an old last
// login, and binds it to a fresh fake connection.
func (f *pollerFixture) connectAccount(t *testing.T, name string, lastLogin time.Time) *fakeConn {
	t.Helper()
	ctx := context.Background()
	salt, verifier, err := srp.GenerateSaltVerifier(srp.DefaultParams(), name, "hunter2")
	require.NoError(t, err)
	require.NoError(t, f.accounts.Create(ctx, name, salt, verifier))
	require.NoError(t, f.accounts.SetOnline(ctx, name, true))
	f.accounts.setLastLogin(name, lastLogin)

	conn := newFakeConn()
	client, err := srp.NewClientSession(srp.DefaultParams())
	require.NoError(t, err)
	require.NoError(t, f.registry.AddConnectionAccount(conn, name, client.PublicEphemeral(), salt, verifier, auth.AccessPlayer))
	return conn
}

func TestNewKickPoller_NilDependencies(t *testing.T) {
	registry := auth.NewRegistry(srp.DefaultParams())
	accounts := newFakeAccountRepo()
	kicks := newFakeKickRepo()

	_, err := auth.NewKickPoller(nil, accounts, registry, 0, 0, nil)
	assert.Error(t, err)
	_, err = auth.NewKickPoller(kicks, nil, registry, 0, 0, nil)
	assert.Error(t, err)
	_, err = auth.NewKickPoller(kicks, accounts, nil, 0, 0, nil)
	assert.Error(t, err)
}

func TestKickPoller_KicksLocalSession(t *testing.T) {
	f := newPollerFixture(t, 100)
	base := time.Now().UTC().Add(time.Hour)

	conn := f.connectAccount(t, "alice", base.Add(-time.Minute))
	f.kicks.add("alice", base)

	require.NoError(t, f.poller.PollOnce(context.Background()))

	// Logically offline and physically kicked.
	assert.False(t, f.accounts.isOnline("alice"))
	require.Len(t, conn.kickReasons(), 1)
	assert.Equal(t, auth.KickReasonForced, conn.kickReasons()[0])
}

func TestKickPoller_StalenessGuard(t *testing.T) {
	base := time.Now().UTC().Add(time.Hour)

	t.Run("newer login survives", func(t *testing.T) {
		f := newPollerFixture(t, 100)
		conn := f.connectAccount(t, "alice", base.Add(time.Minute))
		f.kicks.add("alice", base)

		require.NoError(t, f.poller.PollOnce(context.Background()))
		assert.Empty(t, conn.kickReasons())
	})

	t.Run("login at request time survives", func(t *testing.T) {
		f := newPollerFixture(t, 100)
		conn := f.connectAccount(t, "alice", base)
		f.kicks.add("alice", base)

		require.NoError(t, f.poller.PollOnce(context.Background()))
		assert.Empty(t, conn.kickReasons())
	})

	t.Run("older login is kicked", func(t *testing.T) {
		f := newPollerFixture(t, 100)
		conn := f.connectAccount(t, "alice", base.Add(-time.Second))
		f.kicks.add("alice", base)

		require.NoError(t, f.poller.PollOnce(context.Background()))
		require.Len(t, conn.kickReasons(), 1)
	})
}

func TestKickPoller_NonLocalAccount(t *testing.T) {
	f := newPollerFixture(t, 100)
	base := time.Now().UTC().Add(time.Hour)

	// Account exists and is online, but no session is bound here.
	ctx := context.Background()
	require.NoError(t, f.accounts.Create(ctx, "remote", "ab", "cd"))
	require.NoError(t, f.accounts.SetOnline(ctx, "remote", true))
	f.accounts.setLastLogin("remote", base.Add(-time.Minute))
	f.kicks.add("remote", base)

	require.NoError(t, f.poller.PollOnce(ctx))

	// Still goes offline everywhere even though the kick lands elsewhere.
	assert.False(t, f.accounts.isOnline("remote"))
}

func TestKickPoller_UnknownAccount(t *testing.T) {
	f := newPollerFixture(t, 100)
	f.kicks.add("ghost", time.Now().UTC().Add(time.Hour))

	// Rows for deleted accounts must not fail the whole batch.
	require.NoError(t, f.poller.PollOnce(context.Background()))
}

// TestKickPoller_WatermarkCompleteness seeds rows sharing creation
// timestamps and fetches them in undersized batches, checking that every
// row is visited exactly once.
func TestKickPoller_WatermarkCompleteness(t *testing.T) {
	f := newPollerFixture(t, 3)
	base := time.Now().UTC().Add(time.Hour)

	conns := make(map[string]*fakeConn)
	for i := 0; i < 10; i++ {
		name := fmt.Sprintf("player%d", i)
		conns[name] = f.connectAccount(t, name, base.Add(-time.Minute))
		// Three rows per timestamp to force tie-breaking on id.
		f.kicks.add(name, base.Add(time.Duration(i/3)*time.Second))
	}

	ctx := context.Background()
	for i := 0; i < 6; i++ {
		require.NoError(t, f.poller.PollOnce(ctx))
	}

	for name, conn := range conns {
		assert.Len(t, conn.kickReasons(), 1, "account %s", name)
	}
}

func TestKickPoller_FetchErrorKeepsWatermark(t *testing.T) {
	f := newPollerFixture(t, 100)
	base := time.Now().UTC().Add(time.Hour)

	conn := f.connectAccount(t, "alice", base.Add(-time.Minute))
	f.kicks.add("alice", base)

	ctx := context.Background()
	f.kicks.err = errors.New("database down")
	require.Error(t, f.poller.PollOnce(ctx))
	assert.Empty(t, conn.kickReasons())

	// Next successful poll still sees the row.
	f.kicks.err = nil
	require.NoError(t, f.poller.PollOnce(ctx))
	require.Len(t, conn.kickReasons(), 1)
}

func TestKickPoller_RunStopsOnCancel(t *testing.T) {
	defer goleak.VerifyNone(t)

	f := newPollerFixture(t, 100)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		f.poller.Run(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("poller did not stop on context cancellation")
	}
}
