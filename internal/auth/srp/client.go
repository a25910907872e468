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

// ClientSession holds the client side of one SRP exchange. The game client
// uses it during login; the server code uses it in tests to exercise the
// full handshake.
type ClientSession struct {
	params     Params
	secret     *big.Int // a
	public     *big.Int // A
	proof      []byte   // M1, kept for server proof verification
	sessionKey []byte   // K
}

// NewClientSession generates a fresh client ephemeral keypair.
func NewClientSession(params Params) (*ClientSession, error) {
	secret, err := randomInt(ephemeralSecretBytes)
	if err != nil {
		return nil, err
	}
	return &ClientSession{
		params: params,
		secret: secret,
		public: new(big.Int).Exp(params.G, secret, params.N),
	}, nil
}

// PublicEphemeral returns the hex-encoded client public ephemeral A.
func (c *ClientSession) PublicEphemeral() string { return encodeHex(c.public) }

// ComputeProof derives the shared session key from the server's challenge
// and returns the client evidence message M1.
func (c *ClientSession) ComputeProof(username, password, salt, serverPublicEphemeral string) (string, error) {
	serverPublic, err := decodeHex("server ephemeral", serverPublicEphemeral)
	if err != nil {
		return "", err
	}
	if new(big.Int).Mod(serverPublic, c.params.N).Sign() == 0 {
		return "", oops.Code("SRP_ILLEGAL_EPHEMERAL").
			Errorf("server public ephemeral is zero modulo N")
	}
	saltRaw, err := hex.DecodeString(salt)
	if err != nil || len(saltRaw) == 0 {
		return "", oops.Code("SRP_BAD_ENCODING").
			With("field", "salt").
			Errorf("salt is not valid hex")
	}

	x := c.params.privateKey(username, password, saltRaw)
	u := c.params.hashInts(c.public, serverPublic)
	if u.Sign() == 0 {
		return "", oops.Code("SRP_ILLEGAL_EPHEMERAL").
			Errorf("scrambling parameter is zero")
	}
	k := c.params.multiplier()

	// S = (B - k*g^x)^(a + u*x) mod N
	gx := new(big.Int).Exp(c.params.G, x, c.params.N)
	base := new(big.Int).Mul(k, gx)
	base.Sub(serverPublic, base)
	base.Mod(base, c.params.N)

	exponent := new(big.Int).Mul(u, x)
	exponent.Add(exponent, c.secret)
	premaster := base.Exp(base, exponent, c.params.N)

	c.sessionKey = c.params.hashBytes(c.params.pad(premaster))
	c.proof = c.params.evidence(username, saltRaw, c.public, serverPublic, c.sessionKey)
	return hex.EncodeToString(c.proof), nil
}

// VerifyServerProof checks the server evidence message M2 against the
// session negotiated by ComputeProof.
func (c *ClientSession) VerifyServerProof(serverProof string) bool {
	if c.sessionKey == nil {
		return false
	}
	raw, err := hex.DecodeString(serverProof)
	if err != nil {
		return false
	}
	expected := c.params.hashBytes(c.params.pad(c.public), c.proof, c.sessionKey)
	return subtle.ConstantTimeCompare(expected, leftPad(raw, len(expected))) == 1
}

// SessionKey returns the hex-encoded shared key. ok is false until
// ComputeProof has run.
func (c *ClientSession) SessionKey() (key string, ok bool) {
	if c.sessionKey == nil {
		return "", false
	}
	return hex.EncodeToString(c.sessionKey), true
}

// GenerateSaltVerifier produces a fresh salt and password verifier for
// account registration. Only the salt and verifier ever leave the client.
func GenerateSaltVerifier(params Params, username, password string) (salt, verifier string, err error) {
	raw := make([]byte, saltBytes)
	if _, err := rand.Read(raw); err != nil {
		return "", "", oops.Code("SRP_ENTROPY_FAILED").
			With("requested_bytes", saltBytes).
			Wrap(err)
	}
	x := params.privateKey(username, password, raw)
	v := new(big.Int).Exp(params.G, x, params.N)
	return hex.EncodeToString(raw), encodeHex(v), nil
}

// privateKey computes x = H(s | H(I ":" P)).
func (p Params) privateKey(username, password string, salt []byte) *big.Int {
	inner := p.hashBytes([]byte(username + ":" + password))
	return new(big.Int).SetBytes(p.hashBytes(salt, inner))
}
