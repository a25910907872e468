// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Starfall Contributors

package auth

import (
	"sync"

	"github.com/starfall-mmo/starfall/internal/auth/srp"
)

// Registry is the per-process source of truth for which connection belongs
// to which account and in what handshake state. One instance exists per
// server process; it is constructor-injected, never global, so tests can run
// independent registries side by side.
//
// Invariant: at most one connection maps to a given account name at any
// instant, and one connection maps to at most one account name. The three
// maps always change together under the mutex.
type Registry struct {
	params srp.Params

	mu           sync.RWMutex
	connAccounts map[SessionID]string   // connection -> account name
	accountConns map[string]Conn        // account name -> connection
	accountData  map[SessionID]*AccountData
}

// NewRegistry creates an empty registry using the given SRP parameters for
// new handshakes.
func NewRegistry(params srp.Params) *Registry {
	return &Registry{
		params:       params,
		connAccounts: make(map[SessionID]string),
		accountConns: make(map[string]Conn),
		accountData:  make(map[SessionID]*AccountData),
	}
}

// AddConnectionAccount binds a connection to an account name and starts a
// fresh SRP exchange for it. Any existing mapping for either the connection
// or the account name is replaced atomically, forward and reverse entries
// together, so no stale entry survives a rebind.
func (r *Registry) AddConnectionAccount(conn Conn, accountName, clientPublicEphemeral, salt, verifier string, accessLevel AccessLevel) error {
	session, err := srp.NewServerSession(r.params, accountName, clientPublicEphemeral, salt, verifier)
	if err != nil {
		return err
	}

	id := conn.SessionID()

	r.mu.Lock()
	defer r.mu.Unlock()

	// Drop the reverse entry for whatever name this connection held before.
	if oldName, ok := r.connAccounts[id]; ok && oldName != accountName {
		delete(r.accountConns, oldName)
	}
	// Evict any other connection currently claiming this account name.
	if oldConn, ok := r.accountConns[accountName]; ok {
		oldID := oldConn.SessionID()
		if oldID != id {
			delete(r.connAccounts, oldID)
			delete(r.accountData, oldID)
		}
	}

	r.connAccounts[id] = accountName
	r.accountConns[accountName] = conn
	r.accountData[id] = &AccountData{
		AccessLevel: accessLevel,
		SRP:         NewSrpData(session),
	}
	return nil
}

// RemoveConnectionAccount removes all mappings keyed by the connection.
func (r *Registry) RemoveConnectionAccount(id SessionID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if accountName, ok := r.connAccounts[id]; ok {
		delete(r.accountConns, accountName)
	}
	delete(r.connAccounts, id)
	delete(r.accountData, id)
}

// RemoveAccountConnection removes all mappings keyed by the account name.
func (r *Registry) RemoveAccountConnection(accountName string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if conn, ok := r.accountConns[accountName]; ok {
		id := conn.SessionID()
		delete(r.connAccounts, id)
		delete(r.accountData, id)
	}
	delete(r.accountConns, accountName)
}

// AccountData returns the per-connection account data, or nil.
func (r *Registry) AccountData(id SessionID) *AccountData {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.accountData[id]
}

// AccountName returns the account name bound to a connection.
func (r *Registry) AccountName(id SessionID) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	name, ok := r.connAccounts[id]
	return name, ok
}

// Connection returns the live connection bound to an account name.
func (r *Registry) Connection(accountName string) (Conn, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	conn, ok := r.accountConns[accountName]
	return conn, ok
}

// TryUpdateSrpState is a compare-and-swap on a connection's handshake state.
// It fails without side effects when no data exists or the current state is
// not required. When onSuccess is provided it is evaluated first and must
// accept the transition; only then is the new state committed. The callback
// runs outside the registry lock, so it may send messages or touch
// persistence.
func (r *Registry) TryUpdateSrpState(id SessionID, required, next SrpState, onSuccess func(*AccountData) bool) bool {
	r.mu.RLock()
	data := r.accountData[id]
	r.mu.RUnlock()

	if data == nil || data.SRP == nil || data.SRP.State() != required {
		return false
	}
	if onSuccess != nil && !onSuccess(data) {
		return false
	}
	return data.SRP.compareAndSwapState(required, next)
}

// Len reports the number of live connection mappings, for metrics.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.connAccounts)
}
