// Package elgamal implements twisted ElGamal encryption over the Ristretto
// group: key generation, encryption (single and dual-key), small-value
// decryption by bounded discrete-log search, and ciphertext rerandomization.
// Modelled on the teacher's crypto/elgamal package, generalized from a
// single scalar-keyed curve point scheme to a value/blinding witness paired
// with a two-point ciphertext.
package elgamal

import (
	"fmt"
	"io"
	"math/big"

	"github.com/vocdoni/mercat-go/group"
	"github.com/vocdoni/mercat-go/merrors"
)

// MaxPlaintext is the exclusive upper bound on any value this core will
// encrypt or decrypt.
const MaxPlaintext = uint64(1) << 32

// KeyPair is an ElGamal encryption keypair: public = secret·H.
type KeyPair struct {
	Secret *group.Scalar
	Public *group.Point
}

// GenerateKeyPair samples a fresh secret scalar and derives its public key.
func GenerateKeyPair(rng io.Reader) (*KeyPair, error) {
	secret, err := group.RandomScalar(rng)
	if err != nil {
		return nil, fmt.Errorf("elgamal: failed to sample secret key: %w", err)
	}
	public := group.NewPoint().ScalarMult(secret, group.H())
	return &KeyPair{Secret: secret, Public: public}, nil
}

// Zeroize overwrites the secret scalar. Callers that hold a KeyPair past the
// point they need the secret key must call this on every exit path.
func (k *KeyPair) Zeroize() {
	if k == nil || k.Secret == nil {
		return
	}
	k.Secret = group.NewScalar()
}

// Witness is the secret opening of a ciphertext or commitment: a value and
// the blinding scalar used to hide it. Callers must Zeroize it as soon as
// the final proof response has been derived.
type Witness struct {
	Value    uint64
	Blinding *group.Scalar
}

// NewWitness validates value is in range and pairs it with blinding.
func NewWitness(value uint64, blinding *group.Scalar) (*Witness, error) {
	if value >= MaxPlaintext {
		return nil, merrors.ErrPlainTextRange
	}
	return &Witness{Value: value, Blinding: blinding}, nil
}

// Zeroize overwrites the secret blinding scalar.
func (w *Witness) Zeroize() {
	if w == nil || w.Blinding == nil {
		return
	}
	w.Blinding = group.NewScalar()
}

// CipherText is a twisted-ElGamal ciphertext (r·P, v·G + r·H).
type CipherText struct {
	X *group.Point // r·P
	Y *group.Point // v·G + r·H
}

// Add computes the component-wise (homomorphic) sum of two ciphertexts
// encrypted under the same public key: decrypting the sum yields the sum of
// the plaintexts.
func (c CipherText) Add(o CipherText) CipherText {
	return CipherText{
		X: group.NewPoint().Add(c.X, o.X),
		Y: group.NewPoint().Add(c.Y, o.Y),
	}
}

// Sub computes the component-wise difference of two ciphertexts encrypted
// under the same public key.
func (c CipherText) Sub(o CipherText) CipherText {
	negX := group.NewPoint().Negate(o.X)
	negY := group.NewPoint().Negate(o.Y)
	return CipherText{
		X: group.NewPoint().Add(c.X, negX),
		Y: group.NewPoint().Add(c.Y, negY),
	}
}

// Encrypt encrypts witness.Value under pub using witness.Blinding as the
// ElGamal nonce r.
func Encrypt(pub *group.Point, w *Witness) CipherText {
	valueScalar := group.ScalarFromUint64(w.Value)
	x := group.NewPoint().ScalarMult(w.Blinding, pub)
	vg := group.NewPoint().ScalarBaseMult(valueScalar)
	rh := group.NewPoint().ScalarMult(w.Blinding, group.H())
	y := group.NewPoint().Add(vg, rh)
	return CipherText{X: x, Y: y}
}

// EncryptValue samples a fresh blinding scalar and encrypts value under pub,
// returning the witness alongside the ciphertext so the caller can use it in
// subsequent proofs (and is responsible for zeroizing it afterwards).
func EncryptValue(pub *group.Point, value uint64, rng io.Reader) (CipherText, *Witness, error) {
	r, err := group.RandomScalar(rng)
	if err != nil {
		return CipherText{}, nil, fmt.Errorf("elgamal: failed to sample blinding: %w", err)
	}
	w, err := NewWitness(value, r)
	if err != nil {
		return CipherText{}, nil, err
	}
	return Encrypt(pub, w), w, nil
}

// EncryptSameValueTwoKeys encrypts witness.Value under two distinct public
// keys while sharing the same blinding r, as required by the
// encrypting-same-value Σ-proof.
func EncryptSameValueTwoKeys(pub1, pub2 *group.Point, w *Witness) (CipherText, CipherText) {
	valueScalar := group.ScalarFromUint64(w.Value)
	vg := group.NewPoint().ScalarBaseMult(valueScalar)
	rh := group.NewPoint().ScalarMult(w.Blinding, group.H())
	y := group.NewPoint().Add(vg, rh)

	x1 := group.NewPoint().ScalarMult(w.Blinding, pub1)
	x2 := group.NewPoint().ScalarMult(w.Blinding, pub2)
	return CipherText{X: x1, Y: y}, CipherText{X: x2, Y: y}
}

// Refresh rerandomizes a ciphertext with a fresh blinding r' so that it
// decrypts to the same plaintext under sec but is unlinkable to c. The
// result is (x + r'·pub, y + r'·H).
func Refresh(pub *group.Point, c CipherText, rPrime *group.Scalar) CipherText {
	rp := group.NewPoint().ScalarMult(rPrime, pub)
	rh := group.NewPoint().ScalarMult(rPrime, group.H())
	return CipherText{
		X: group.NewPoint().Add(c.X, rp),
		Y: group.NewPoint().Add(c.Y, rh),
	}
}

// DecryptSmall recovers a plaintext v in [0, 2^32) from a ciphertext, using
// a baby-step/giant-step search bounded by maxValue. It returns
// merrors.ErrCipherTextDecryption if no such v exists.
func DecryptSmall(sec *group.Scalar, c CipherText, maxValue uint64) (uint64, error) {
	// M = y - sec^-1·x, since x = r·pub = r·sec·H
	secInv := group.NewScalar().Invert(sec)
	sx := group.NewPoint().ScalarMult(secInv, c.X)
	negSx := group.NewPoint().Negate(sx)
	m := group.NewPoint().Add(c.Y, negSx)

	return babyStepGiantStep(m, maxValue)
}

// babyStepGiantStep solves target == v·G for v in [0, maxValue] using a
// O(sqrt(maxValue))-time, O(sqrt(maxValue))-space search: a precomputed
// baby-step table of size ceil(sqrt(maxValue)) keyed by compressed point
// encoding, followed by giant steps of size -m·G.
func babyStepGiantStep(target *group.Point, maxValue uint64) (uint64, error) {
	m := new(big.Int).Sqrt(new(big.Int).SetUint64(maxValue))
	if new(big.Int).Mul(m, m).Cmp(new(big.Int).SetUint64(maxValue)) < 0 {
		m.Add(m, big.NewInt(1))
	}
	mU64 := m.Uint64()
	if mU64 == 0 {
		mU64 = 1
	}

	table := make(map[string]uint64, mU64+1)
	baby := group.NewPoint() // identity = 0·G
	g := group.G()
	for j := uint64(0); j < mU64; j++ {
		table[pointKey(baby)] = j
		baby = group.NewPoint().Add(baby, g)
	}

	mScalar := group.ScalarFromUint64(mU64)
	step := group.NewPoint().ScalarBaseMult(mScalar)
	negStep := group.NewPoint().Negate(step)

	giant := group.NewPoint().Add(target, group.NewPoint()) // copy of target
	for i := uint64(0); i <= mU64; i++ {
		if j, ok := table[pointKey(giant)]; ok {
			v := i*mU64 + j
			if v <= maxValue {
				return v, nil
			}
		}
		giant = group.NewPoint().Add(giant, negStep)
	}
	return 0, merrors.ErrCipherTextDecryption
}

func pointKey(p *group.Point) string {
	return string(p.Bytes())
}
