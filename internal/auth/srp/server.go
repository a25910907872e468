// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Starfall Contributors

package srp

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"math/big"

	"github.com/samber/oops"
)

// VerificationError reports a failed client proof. It is a distinct type so
// callers can tell a cryptographic rejection apart from malformed input.
type VerificationError struct {
	Reason string
}

func (e *VerificationError) Error() string {
	return "srp: client proof rejected: " + e.Reason
}

// ServerSession holds the server side of one SRP exchange. It is created
// eagerly, including the server ephemeral keypair, as soon as a connection
// claims an account. A session must only be driven from the message-handling
// path of its own connection.
type ServerSession struct {
	params       Params
	username     string
	clientPublic *big.Int // A
	salt         []byte
	verifier     *big.Int // v
	secret       *big.Int // b
	public       *big.Int // B
	sessionKey   []byte   // K, set only after proof verification
}

// NewServerSession starts a server-side exchange for the given account
// credentials and the client's public ephemeral. No I/O happens here; the
// caller sends the challenge (salt + server public ephemeral) itself.
func NewServerSession(params Params, username, clientPublicEphemeral, salt, verifier string) (*ServerSession, error) {
	clientPublic, err := decodeHex("client ephemeral", clientPublicEphemeral)
	if err != nil {
		return nil, err
	}
	if new(big.Int).Mod(clientPublic, params.N).Sign() == 0 {
		return nil, oops.Code("SRP_ILLEGAL_EPHEMERAL").
			With("username", username).
			Errorf("client public ephemeral is zero modulo N")
	}
	saltRaw, err := hex.DecodeString(salt)
	if err != nil || len(saltRaw) == 0 {
		return nil, oops.Code("SRP_BAD_ENCODING").
			With("field", "salt").
			Errorf("salt is not valid hex")
	}
	v, err := decodeHex("verifier", verifier)
	if err != nil {
		return nil, err
	}

	secret, err := randomInt(ephemeralSecretBytes)
	if err != nil {
		return nil, err
	}

	// B = (k*v + g^b) mod N
	k := params.multiplier()
	gb := new(big.Int).Exp(params.G, secret, params.N)
	public := new(big.Int).Mul(k, v)
	public.Add(public, gb)
	public.Mod(public, params.N)

	return &ServerSession{
		params:       params,
		username:     username,
		clientPublic: clientPublic,
		salt:         saltRaw,
		verifier:     v,
		secret:       secret,
		public:       public,
	}, nil
}

// Username returns the account name the session was started for.
func (s *ServerSession) Username() string { return s.username }

// Salt returns the hex-encoded salt for the challenge message.
func (s *ServerSession) Salt() string { return hex.EncodeToString(s.salt) }

// PublicEphemeral returns the hex-encoded server public ephemeral B.
func (s *ServerSession) PublicEphemeral() string { return encodeHex(s.public) }

// VerifyProof checks the client's evidence message M1. On success it derives
// and stores the shared session key and returns the server proof M2 for the
// client. On failure it returns a *VerificationError and no key is stored.
func (s *ServerSession) VerifyProof(clientProof string) (string, error) {
	proofRaw, err := hex.DecodeString(clientProof)
	if err != nil || len(proofRaw) == 0 {
		return "", &VerificationError{Reason: "proof is not valid hex"}
	}

	u := s.params.hashInts(s.clientPublic, s.public)
	if u.Sign() == 0 {
		return "", &VerificationError{Reason: "scrambling parameter is zero"}
	}

	// S = (A * v^u)^b mod N
	vu := new(big.Int).Exp(s.verifier, u, s.params.N)
	base := new(big.Int).Mul(s.clientPublic, vu)
	base.Mod(base, s.params.N)
	premaster := base.Exp(base, s.secret, s.params.N)

	key := s.params.hashBytes(s.params.pad(premaster))
	expected := s.params.evidence(s.username, s.salt, s.clientPublic, s.public, key)

	if subtle.ConstantTimeCompare(expected, leftPad(proofRaw, len(expected))) != 1 {
		return "", &VerificationError{Reason: "evidence message mismatch"}
	}

	s.sessionKey = key
	serverProof := s.params.hashBytes(s.params.pad(s.clientPublic), expected, key)
	return hex.EncodeToString(serverProof), nil
}

// SessionKey returns the hex-encoded shared key negotiated by the exchange.
// ok is false until VerifyProof has succeeded.
func (s *ServerSession) SessionKey() (key string, ok bool) {
	if s.sessionKey == nil {
		return "", false
	}
	return hex.EncodeToString(s.sessionKey), true
}

// evidence computes the client evidence message
// M1 = H(H(N) xor H(g) | H(I) | s | PAD(A) | PAD(B) | K).
func (p Params) evidence(username string, salt []byte, clientPublic, serverPublic *big.Int, key []byte) []byte {
	hn := p.hashBytes(p.pad(p.N))
	hg := p.hashBytes(p.pad(p.G))
	group := make([]byte, len(hn))
	for i := range hn {
		group[i] = hn[i] ^ hg[i]
	}
	identity := p.hashBytes([]byte(username))
	return p.hashBytes(group, identity, salt, p.pad(clientPublic), p.pad(serverPublic), key)
}

// randomInt returns a positive random integer of the given byte size.
func randomInt(size int) (*big.Int, error) {
	raw := make([]byte, size)
	if _, err := rand.Read(raw); err != nil {
		return nil, oops.Code("SRP_ENTROPY_FAILED").
			With("requested_bytes", size).
			Wrap(err)
	}
	v := new(big.Int).SetBytes(raw)
	if v.Sign() == 0 {
		// 2^-256 chance; retrying once is enough in practice.
		return randomInt(size)
	}
	return v, nil
}

// leftPad pads raw with leading zeros to the given size. Values longer than
// size are returned unchanged so comparison fails on length instead.
func leftPad(raw []byte, size int) []byte {
	if len(raw) >= size {
		return raw
	}
	padded := make([]byte, size)
	copy(padded[size-len(raw):], raw)
	return padded
}
