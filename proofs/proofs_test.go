package proofs_test

import (
	"io"
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/vocdoni/mercat-go/elgamal"
	"github.com/vocdoni/mercat-go/group"
	"github.com/vocdoni/mercat-go/internal/testutil"
	"github.com/vocdoni/mercat-go/proofs"
)

func TestWellformednessRoundTrip(t *testing.T) {
	c := qt.New(t)

	rng := testutil.NewSeededReader(11)
	keys, err := elgamal.GenerateKeyPair(rng)
	c.Assert(err, qt.IsNil)

	ct, w, err := elgamal.EncryptValue(keys.Public, 17, rng)
	c.Assert(err, qt.IsNil)

	im, fr, err := proofs.ProveWellformedness(rng, w, keys.Public)
	c.Assert(err, qt.IsNil)
	c.Assert(proofs.VerifyWellformedness(keys.Public, ct, im, fr), qt.IsNil)
}

func TestWellformednessRejectsWrongKey(t *testing.T) {
	c := qt.New(t)

	rng := testutil.NewSeededReader(12)
	keys, err := elgamal.GenerateKeyPair(rng)
	c.Assert(err, qt.IsNil)
	other, err := elgamal.GenerateKeyPair(rng)
	c.Assert(err, qt.IsNil)

	ct, w, err := elgamal.EncryptValue(keys.Public, 17, rng)
	c.Assert(err, qt.IsNil)

	im, fr, err := proofs.ProveWellformedness(rng, w, keys.Public)
	c.Assert(err, qt.IsNil)
	c.Assert(proofs.VerifyWellformedness(other.Public, ct, im, fr), qt.IsNotNil)
}

func TestCorrectnessRoundTrip(t *testing.T) {
	c := qt.New(t)

	rng := testutil.NewSeededReader(13)
	keys, err := elgamal.GenerateKeyPair(rng)
	c.Assert(err, qt.IsNil)

	w, err := elgamal.NewWitness(0, mustScalar(t, rng))
	c.Assert(err, qt.IsNil)
	ct := elgamal.Encrypt(keys.Public, w)

	im, fr, err := proofs.ProveCorrectness(rng, w.Blinding, keys.Public)
	c.Assert(err, qt.IsNil)
	c.Assert(proofs.VerifyCorrectness(keys.Public, ct, 0, im, fr), qt.IsNil)
}

func TestCorrectnessRejectsWrongClaimedValue(t *testing.T) {
	c := qt.New(t)

	rng := testutil.NewSeededReader(14)
	keys, err := elgamal.GenerateKeyPair(rng)
	c.Assert(err, qt.IsNil)

	ct, w, err := elgamal.EncryptValue(keys.Public, 20, rng)
	c.Assert(err, qt.IsNil)

	im, fr, err := proofs.ProveCorrectness(rng, w.Blinding, keys.Public)
	c.Assert(err, qt.IsNil)
	c.Assert(proofs.VerifyCorrectness(keys.Public, ct, 21, im, fr), qt.IsNotNil)
}

func TestEncryptingSameValueRoundTrip(t *testing.T) {
	c := qt.New(t)

	rng := testutil.NewSeededReader(15)
	keys1, err := elgamal.GenerateKeyPair(rng)
	c.Assert(err, qt.IsNil)
	keys2, err := elgamal.GenerateKeyPair(rng)
	c.Assert(err, qt.IsNil)

	w, err := elgamal.NewWitness(42, mustScalar(t, rng))
	c.Assert(err, qt.IsNil)
	ct1, ct2 := elgamal.EncryptSameValueTwoKeys(keys1.Public, keys2.Public, w)

	im, fr, err := proofs.ProveEncryptingSameValue(rng, w, keys1.Public, keys2.Public)
	c.Assert(err, qt.IsNil)
	c.Assert(proofs.VerifyEncryptingSameValue(keys1.Public, keys2.Public, ct1, ct2, im, fr), qt.IsNil)
}

func TestEncryptingSameValueRejectsMismatchedCiphertext(t *testing.T) {
	c := qt.New(t)

	rng := testutil.NewSeededReader(16)
	keys1, err := elgamal.GenerateKeyPair(rng)
	c.Assert(err, qt.IsNil)
	keys2, err := elgamal.GenerateKeyPair(rng)
	c.Assert(err, qt.IsNil)

	w, err := elgamal.NewWitness(42, mustScalar(t, rng))
	c.Assert(err, qt.IsNil)
	ct1, _ := elgamal.EncryptSameValueTwoKeys(keys1.Public, keys2.Public, w)
	otherCT, _, err := elgamal.EncryptValue(keys2.Public, 43, rng)
	c.Assert(err, qt.IsNil)

	im, fr, err := proofs.ProveEncryptingSameValue(rng, w, keys1.Public, keys2.Public)
	c.Assert(err, qt.IsNil)
	c.Assert(proofs.VerifyEncryptingSameValue(keys1.Public, keys2.Public, ct1, otherCT, im, fr), qt.IsNotNil)
}

func TestCiphertextRefreshmentRoundTrip(t *testing.T) {
	c := qt.New(t)

	rng := testutil.NewSeededReader(17)
	keys, err := elgamal.GenerateKeyPair(rng)
	c.Assert(err, qt.IsNil)

	ct, _, err := elgamal.EncryptValue(keys.Public, 9, rng)
	c.Assert(err, qt.IsNil)
	rPrime, err := group.RandomScalar(rng)
	c.Assert(err, qt.IsNil)
	refreshed := elgamal.Refresh(keys.Public, ct, rPrime)

	im, fr, err := proofs.ProveCiphertextRefreshment(rng, keys.Secret, ct, refreshed)
	c.Assert(err, qt.IsNil)
	c.Assert(proofs.VerifyCiphertextRefreshment(keys.Public, ct, refreshed, im, fr), qt.IsNil)
}

func TestCiphertextRefreshmentRejectsUnrelatedCiphertext(t *testing.T) {
	c := qt.New(t)

	rng := testutil.NewSeededReader(18)
	keys, err := elgamal.GenerateKeyPair(rng)
	c.Assert(err, qt.IsNil)

	ct, _, err := elgamal.EncryptValue(keys.Public, 9, rng)
	c.Assert(err, qt.IsNil)
	unrelated, _, err := elgamal.EncryptValue(keys.Public, 10, rng)
	c.Assert(err, qt.IsNil)

	im, fr, err := proofs.ProveCiphertextRefreshment(rng, keys.Secret, ct, unrelated)
	c.Assert(err, qt.IsNil)
	c.Assert(proofs.VerifyCiphertextRefreshment(keys.Public, ct, unrelated, im, fr), qt.IsNotNil)
}

func mustScalar(t *testing.T, rng io.Reader) *group.Scalar {
	t.Helper()
	s, err := group.RandomScalar(rng)
	qt.Assert(t, err, qt.IsNil)
	return s
}
