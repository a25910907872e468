// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Starfall Contributors

package auth_test

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/starfall-mmo/starfall/internal/auth"
)

// fakeConn records everything the authenticator does to a connection, in
// order, so tests can assert result-before-kick ordering.
type fakeConn struct {
	mu            sync.Mutex
	id            auth.SessionID
	authenticated bool
	sent          []any
	kicked        []auth.KickReason
	timeline      []string
	sendErr       error
}

func newFakeConn() *fakeConn {
	return &fakeConn{id: auth.NewSessionID()}
}

func (c *fakeConn) SessionID() auth.SessionID { return c.id }

func (c *fakeConn) Authenticated() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.authenticated
}

func (c *fakeConn) SetAuthenticated(v bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.authenticated = v
}

func (c *fakeConn) Send(msg any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sendErr != nil {
		return c.sendErr
	}
	c.sent = append(c.sent, msg)
	c.timeline = append(c.timeline, fmt.Sprintf("send:%T", msg))
	return nil
}

func (c *fakeConn) Kick(reason auth.KickReason) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.kicked = append(c.kicked, reason)
	c.timeline = append(c.timeline, "kick:"+reason.String())
}

func (c *fakeConn) sentMessages() []any {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]any, len(c.sent))
	copy(out, c.sent)
	return out
}

func (c *fakeConn) kickReasons() []auth.KickReason {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]auth.KickReason, len(c.kicked))
	copy(out, c.kicked)
	return out
}

func (c *fakeConn) events() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.timeline))
	copy(out, c.timeline)
	return out
}

// lastResult returns the last ResultMessage sent, if any.
func (c *fakeConn) lastResult() (auth.Result, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := len(c.sent) - 1; i >= 0; i-- {
		if rm, ok := c.sent[i].(auth.ResultMessage); ok {
			return rm.Code, true
		}
	}
	return 0, false
}

type fakeAccount struct {
	salt      string
	verifier  string
	access    auth.AccessLevel
	banned    bool
	online    bool
	lastLogin time.Time
}

// fakeAccountRepo is an in-memory auth.AccountRepository. Setting err makes
// every call fail, simulating an unavailable database.
type fakeAccountRepo struct {
	mu       sync.Mutex
	accounts map[string]*fakeAccount
	now      func() time.Time
	err      error
}

func newFakeAccountRepo() *fakeAccountRepo {
	return &fakeAccountRepo{
		accounts: make(map[string]*fakeAccount),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (r *fakeAccountRepo) Create(_ context.Context, name, salt, verifier string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	if _, ok := r.accounts[name]; ok {
		return auth.ErrAlreadyExists
	}
	r.accounts[name] = &fakeAccount{
		salt:      salt,
		verifier:  verifier,
		access:    auth.AccessPlayer,
		lastLogin: r.now(),
	}
	return nil
}

func (r *fakeAccountRepo) GetCredentials(_ context.Context, name string) (*auth.Credentials, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	acct, ok := r.accounts[name]
	if !ok {
		return nil, auth.ErrNotFound
	}
	acct.lastLogin = r.now()
	return &auth.Credentials{
		Salt:        acct.salt,
		Verifier:    acct.verifier,
		AccessLevel: acct.access,
		Banned:      acct.banned,
	}, nil
}

func (r *fakeAccountRepo) LastLogin(_ context.Context, name string) (time.Time, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return time.Time{}, r.err
	}
	acct, ok := r.accounts[name]
	if !ok {
		return time.Time{}, auth.ErrNotFound
	}
	return acct.lastLogin, nil
}

func (r *fakeAccountRepo) SetOnline(_ context.Context, name string, online bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	acct, ok := r.accounts[name]
	if !ok {
		return auth.ErrNotFound
	}
	acct.online = online
	return nil
}

func (r *fakeAccountRepo) IsOnline(_ context.Context, name string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return false, r.err
	}
	acct, ok := r.accounts[name]
	if !ok {
		return false, auth.ErrNotFound
	}
	return acct.online, nil
}

func (r *fakeAccountRepo) isOnline(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	acct, ok := r.accounts[name]
	return ok && acct.online
}

func (r *fakeAccountRepo) setLastLogin(name string, t time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if acct, ok := r.accounts[name]; ok {
		acct.lastLogin = t
	}
}

// fakeKickRepo is an in-memory auth.KickRequestRepository implementing the
// same (time_created, id) ordering and watermark filtering as the SQL query.
type fakeKickRepo struct {
	mu     sync.Mutex
	rows   []auth.KickRequest
	nextID int64
	now    func() time.Time
	err    error
}

func newFakeKickRepo() *fakeKickRepo {
	return &fakeKickRepo{
		nextID: 1,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (r *fakeKickRepo) Create(_ context.Context, accountName string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.addLocked(accountName, r.now())
	return nil
}

// add seeds a row with an explicit creation time, for watermark tests.
func (r *fakeKickRepo) add(accountName string, created time.Time) auth.KickRequest {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.addLocked(accountName, created)
}

func (r *fakeKickRepo) addLocked(accountName string, created time.Time) auth.KickRequest {
	row := auth.KickRequest{
		ID:          r.nextID,
		AccountName: accountName,
		TimeCreated: created,
	}
	r.nextID++
	r.rows = append(r.rows, row)
	return row
}

func (r *fakeKickRepo) Fetch(_ context.Context, since time.Time, afterID int64, limit int) ([]auth.KickRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}

	var out []auth.KickRequest
	for _, row := range r.rows {
		if row.TimeCreated.Before(since) || row.ID <= afterID {
			continue
		}
		out = append(out, row)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].TimeCreated.Equal(out[j].TimeCreated) {
			return out[i].TimeCreated.Before(out[j].TimeCreated)
		}
		return out[i].ID < out[j].ID
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *fakeKickRepo) DeleteForAccount(_ context.Context, accountName string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	kept := r.rows[:0]
	for _, row := range r.rows {
		if row.AccountName != accountName {
			kept = append(kept, row)
		}
	}
	r.rows = kept
	return nil
}

func (r *fakeKickRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rows)
}

// tierResult is a TierLogin returning a fixed result.
type tierResult struct {
	result auth.Result
}

func (t tierResult) Login(context.Context, string) auth.Result { return t.result }
