// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Starfall Contributors

package auth

import (
	"sync"

	"github.com/starfall-mmo/starfall/internal/auth/srp"
)

// SrpState tracks how far a connection's SRP exchange has advanced. The
// state is monotonic: SrpVerify, then SrpProof, then SrpSuccess. It never
// regresses; a failed proof leaves the state where it was and the connection
// is disconnected instead.
type SrpState uint8

const (
	// StateSrpVerify: challenge issued, waiting for the client proof.
	StateSrpVerify SrpState = iota
	// StateSrpProof: client proof verified, server proof sent.
	StateSrpProof
	// StateSrpSuccess: terminal result delivered.
	StateSrpSuccess
)

func (s SrpState) String() string {
	switch s {
	case StateSrpVerify:
		return "srp_verify"
	case StateSrpProof:
		return "srp_proof"
	case StateSrpSuccess:
		return "srp_success"
	default:
		return "unknown"
	}
}

// SrpData couples one connection's SRP server session with its handshake
// state. The session is created eagerly, ephemeral keypair included, the
// moment the connection's account mapping is established.
type SrpData struct {
	Session *srp.ServerSession

	mu    sync.Mutex
	state SrpState
}

// NewSrpData wraps a freshly started server session in the SrpVerify state.
func NewSrpData(session *srp.ServerSession) *SrpData {
	return &SrpData{Session: session, state: StateSrpVerify}
}

// State returns the current handshake state.
func (d *SrpData) State() SrpState {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// compareAndSwapState advances the state only if it still equals required.
func (d *SrpData) compareAndSwapState(required, next SrpState) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.state != required {
		return false
	}
	d.state = next
	return true
}

// AccountData is the per-connection in-memory record created when a login
// attempt begins and destroyed when the connection's mapping is removed.
type AccountData struct {
	AccessLevel AccessLevel
	SRP         *SrpData
}
