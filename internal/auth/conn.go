// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Starfall Contributors

package auth

import "github.com/oklog/ulid/v2"

// SessionID identifies one live connection on this process. It is an opaque
// value type with defined equality, decoupled from any transport object.
type SessionID = ulid.ULID

// NewSessionID returns a fresh session identifier.
func NewSessionID() SessionID {
	return ulid.Make()
}

// KickReason is the code passed to the transport when a connection is
// forcibly terminated.
type KickReason uint8

const (
	// KickReasonProtocolViolation covers replayed or out-of-order auth
	// messages; treated as a possible attack, no response is sent.
	KickReasonProtocolViolation KickReason = iota
	// KickReasonAuthFailed ends the connection after a rejection result has
	// been sent.
	KickReasonAuthFailed
	// KickReasonForced is an administrative kick propagated through the
	// kick request table.
	KickReasonForced
)

func (k KickReason) String() string {
	switch k {
	case KickReasonProtocolViolation:
		return "protocol_violation"
	case KickReasonAuthFailed:
		return "auth_failed"
	case KickReasonForced:
		return "forced"
	default:
		return "unknown"
	}
}

// Conn is the boundary contract with the transport. Send must enqueue before
// returning relative to any later Kick on the same connection; the
// result-before-disconnect ordering depends on it.
type Conn interface {
	// SessionID returns the stable identifier for this connection.
	SessionID() SessionID

	// Authenticated reports whether this connection has completed
	// authentication.
	Authenticated() bool

	// SetAuthenticated marks the connection authenticated.
	SetAuthenticated(v bool)

	// Send enqueues one discrete message for reliable, ordered delivery.
	Send(msg any) error

	// Kick terminates the connection with the given reason.
	Kick(reason KickReason)
}
