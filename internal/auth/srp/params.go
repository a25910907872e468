// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Starfall Contributors

// Package srp implements the server and client halves of the SRP-6a
// password-authenticated key exchange used during account login.
//
// All wire values (ephemerals, salts, verifiers, proofs) are lowercase
// hex strings. The engine performs no I/O; callers drive the exchange by
// feeding it the peer's messages and sending back its outputs.
package srp

import (
	"crypto/sha512"
	"encoding/hex"
	"hash"
	"math/big"
	"strings"

	"github.com/samber/oops"
)

// hexGroup2048 is the 2048-bit MODP group from RFC 5054, appendix A.
const hexGroup2048 = "AC6BDB41324A9A9BF166DE5E1389582FAF72B6651987EE07FC3192943DB56050" +
	"A37329CBB4A099ED8193E0757767A13DD52312AB4B03310DCD7F48A9DA04FD50" +
	"E8083969EDB767B0CF6095179A163AB3661A05FBD5FAAC2DAF75F3B3D7CEBF0B" +
	"8842E944BB2A488E9C50C09D5D529C97B95D981F5C5F7BCFA4DEBF09E69A45DE" +
	"9DB43A18A1654C7B60700B6F1529BDF6A119E5F8721D9D97A0B00AD2F1935391" +
	"0A8D64C613D8F7AF2A2AB7710560A2C654B36E94CBA7FC83BF544DC51E16175C" +
	"4E9FF25FA3B0888729B5C93AD75BFA962DEF962FBC6F7D51C1C98BF89A76A982" +
	"6F45DFE43FA28CD2D29AE2B2AFF0D4B6C57F8E9B4B15E26F5ECA9E0B81B2A1FF"

// ephemeralSecretBytes is the size of the random secret exponents (a, b).
const ephemeralSecretBytes = 32

// saltBytes is the size of the random salt generated at registration.
const saltBytes = 32

// Params describes the SRP group and hash negotiated out of band.
// Both sides of an exchange must use identical Params.
type Params struct {
	N       *big.Int
	G       *big.Int
	NewHash func() hash.Hash
}

// DefaultParams returns the production parameter set: the RFC 5054
// 2048-bit group with generator 2 and SHA-512.
func DefaultParams() Params {
	n, ok := new(big.Int).SetString(strings.ToLower(hexGroup2048), 16)
	if !ok {
		panic("srp: invalid builtin group constant")
	}
	return Params{
		N:       n,
		G:       big.NewInt(2),
		NewHash: sha512.New,
	}
}

// hashBytes hashes the concatenation of the given byte slices.
func (p Params) hashBytes(parts ...[]byte) []byte {
	h := p.NewHash()
	for _, part := range parts {
		h.Write(part)
	}
	return h.Sum(nil)
}

// hashInts hashes big integers, each left-padded to the byte length of N.
// Padding keeps the digest stable regardless of leading zero bytes.
func (p Params) hashInts(values ...*big.Int) *big.Int {
	parts := make([][]byte, len(values))
	for i, v := range values {
		parts[i] = p.pad(v)
	}
	return new(big.Int).SetBytes(p.hashBytes(parts...))
}

// pad left-pads the big-endian encoding of v to the byte length of N.
func (p Params) pad(v *big.Int) []byte {
	size := (p.N.BitLen() + 7) / 8
	return v.FillBytes(make([]byte, size))
}

// multiplier computes k = H(N | PAD(g)).
func (p Params) multiplier() *big.Int {
	return p.hashInts(p.N, p.G)
}

// decodeHex parses a hex wire value into a big integer.
func decodeHex(field, value string) (*big.Int, error) {
	raw, err := hex.DecodeString(value)
	if err != nil {
		return nil, oops.Code("SRP_BAD_ENCODING").
			With("field", field).
			Wrap(err)
	}
	if len(raw) == 0 {
		return nil, oops.Code("SRP_BAD_ENCODING").
			With("field", field).
			Errorf("%s is empty", field)
	}
	return new(big.Int).SetBytes(raw), nil
}

func encodeHex(v *big.Int) string {
	return hex.EncodeToString(v.Bytes())
}
