// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Starfall Contributors

package auth

// Wire messages exchanged during authentication. The transport frames and
// encodes them; this package only defines their shape.

// VerifyRequest opens a login attempt (client to server). On the
// registration path the client also supplies the salt and verifier it
// derived locally; the password itself never crosses the wire.
type VerifyRequest struct {
	AccountName     string
	PublicEphemeral string

	// Registration fields, only read when Register is true.
	Register bool
	Salt     string
	Verifier string
}

// ChallengeMessage answers a VerifyRequest on the SRP path (server to
// client).
type ChallengeMessage struct {
	Salt            string
	PublicEphemeral string
}

// ProofRequest carries the client evidence message M1 (client to server).
type ProofRequest struct {
	Proof string
}

// ProofResponse carries the server evidence message M2 (server to client).
type ProofResponse struct {
	Proof string
}

// CompleteRequest asks the server to finish authentication after the client
// verified the server proof (client to server).
type CompleteRequest struct{}

// ResultMessage delivers the terminal outcome of a login attempt (server to
// client). It is always sent before any resulting disconnect.
type ResultMessage struct {
	Code Result
}
