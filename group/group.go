// Package group wraps github.com/gtank/ristretto255 with the small surface
// the MERCAT core needs: scalar sampling, constant-time scalar/point
// arithmetic, and point compression that rejects the group identity. No
// secret-dependent branches or table lookups are introduced beyond what the
// underlying library already performs.
package group

import (
	"crypto/sha512"
	"fmt"
	"io"
	"sync"

	"github.com/gtank/ristretto255"
)

// Scalar is an element of the Ristretto scalar field.
type Scalar = ristretto255.Scalar

// Point is a Ristretto group element.
type Point = ristretto255.Element

// NewScalar returns the zero scalar.
func NewScalar() *Scalar { return ristretto255.NewScalar() }

// NewPoint returns the identity point.
func NewPoint() *Point { return ristretto255.NewElement() }

var (
	genOnce sync.Once
	valueG  *Point
	blindH  *Point
)

// initGenerators computes the fixed Pedersen basis once per process. G is
// the library's canonical base point; H is derived deterministically from a
// domain label so that nobody (including the implementer) knows log_G(H).
func initGenerators() {
	genOnce.Do(func() {
		valueG = ristretto255.NewGeneratorElement()

		digest := sha512.Sum512([]byte("MERCATPedersenBlindingBase"))
		h := ristretto255.NewElement()
		if _, err := h.SetUniformBytes(digest[:]); err != nil {
			// Can only happen if the library's uniform-bytes map changed
			// shape; this is a programmer-invariant violation, not a
			// runtime condition callers can recover from.
			panic(fmt.Sprintf("group: failed to derive blinding generator: %v", err))
		}
		blindH = h
	})
}

// G is the fixed value-base generator of the Pedersen commitment scheme.
func G() *Point {
	initGenerators()
	return valueG
}

// H is the fixed blinding-base generator of the Pedersen commitment scheme.
func H() *Point {
	initGenerators()
	return blindH
}

// RandomScalar samples a uniformly random scalar from rng by reducing 64
// bytes modulo the group order; a zero result is not rejected.
func RandomScalar(rng io.Reader) (*Scalar, error) {
	var buf [64]byte
	if _, err := io.ReadFull(rng, buf[:]); err != nil {
		return nil, fmt.Errorf("group: failed to read randomness: %w", err)
	}
	s, err := ristretto255.NewScalar().SetUniformBytes(buf[:])
	if err != nil {
		return nil, fmt.Errorf("group: failed to reduce randomness into scalar field: %w", err)
	}
	return s, nil
}

// ScalarFromUint64 encodes a small non-negative integer as a scalar.
func ScalarFromUint64(v uint64) *Scalar {
	var buf [64]byte
	// little-endian 8-byte encoding, zero-extended: well within the field.
	for i := 0; i < 8; i++ {
		buf[i] = byte(v >> (8 * i))
	}
	s, err := ristretto255.NewScalar().SetUniformBytes(buf[:])
	if err != nil {
		// SetUniformBytes only errors on malformed input length; buf is
		// always 64 bytes, so this is unreachable.
		panic(fmt.Sprintf("group: unreachable scalar decode error: %v", err))
	}
	return s
}

// PointFromUniformBytes maps a wide (64-byte) uniformly-random byte string
// onto the curve, the same construction used to derive H from a fixed
// domain label. Callers deriving their own disjoint basis (e.g. the claim
// package's g0/g1/g2) should use this rather than reaching into the
// underlying library directly.
func PointFromUniformBytes(b []byte) (*Point, error) {
	p := NewPoint()
	if _, err := p.SetUniformBytes(b); err != nil {
		return nil, fmt.Errorf("group: failed to map bytes onto the curve: %w", err)
	}
	return p, nil
}

// ScalarFromWideBytes reduces an arbitrary-length byte string (already
// hashed to at least 64 bytes by the caller) into the scalar field.
func ScalarFromWideBytes(b []byte) *Scalar {
	s, err := ristretto255.NewScalar().SetUniformBytes(b)
	if err != nil {
		panic(fmt.Sprintf("group: failed to reduce bytes into scalar field: %v", err))
	}
	return s
}

// Commit computes a Pedersen commitment value*G + blinding*H.
func Commit(value, blinding *Scalar) *Point {
	vg := NewPoint().ScalarBaseMult(value)
	rh := NewPoint().ScalarMult(blinding, H())
	return NewPoint().Add(vg, rh)
}

// DecodePoint decompresses a 32-byte Ristretto encoding, rejecting the
// identity element: a subgroup-confined value here would let an adversary
// inject a predictable element into a transcript (see transcript package).
func DecodePoint(b []byte) (*Point, error) {
	p := NewPoint()
	if _, err := p.SetCanonicalBytes(b); err != nil {
		return nil, fmt.Errorf("group: invalid point encoding: %w", err)
	}
	if p.Equal(NewPoint()) == 1 {
		return nil, fmt.Errorf("group: point is the group identity")
	}
	return p, nil
}

// IsIdentity reports whether p is the group identity element.
func IsIdentity(p *Point) bool {
	return p.Equal(NewPoint()) == 1
}
