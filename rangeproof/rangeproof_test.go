package rangeproof_test

import (
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/vocdoni/mercat-go/elgamal"
	"github.com/vocdoni/mercat-go/group"
	"github.com/vocdoni/mercat-go/internal/testutil"
	"github.com/vocdoni/mercat-go/rangeproof"
)

func TestRangeProofRoundTrip(t *testing.T) {
	c := qt.New(t)

	rng := testutil.NewSeededReader(21)
	blinding, err := group.RandomScalar(rng)
	c.Assert(err, qt.IsNil)
	w, err := elgamal.NewWitness(12345, blinding)
	c.Assert(err, qt.IsNil)

	proof, err := rangeproof.Prove(rng, w, rangeproof.MaxBits)
	c.Assert(err, qt.IsNil)

	commitment := group.Commit(group.ScalarFromUint64(w.Value), w.Blinding)
	c.Assert(rangeproof.Verify(commitment, rangeproof.MaxBits, proof), qt.IsNil)
}

func TestRangeProofRejectsWrongCommitment(t *testing.T) {
	c := qt.New(t)

	rng := testutil.NewSeededReader(22)
	blinding, err := group.RandomScalar(rng)
	c.Assert(err, qt.IsNil)
	w, err := elgamal.NewWitness(7, blinding)
	c.Assert(err, qt.IsNil)

	proof, err := rangeproof.Prove(rng, w, 8)
	c.Assert(err, qt.IsNil)

	wrongCommitment := group.Commit(group.ScalarFromUint64(8), blinding)
	c.Assert(rangeproof.Verify(wrongCommitment, 8, proof), qt.IsNotNil)
}

func TestRangeProofRejectsValueOutsideWidth(t *testing.T) {
	c := qt.New(t)

	rng := testutil.NewSeededReader(23)
	w, err := elgamal.NewWitness(256, group.ScalarFromUint64(1))
	c.Assert(err, qt.IsNil)

	_, err = rangeproof.Prove(rng, w, 8)
	c.Assert(err, qt.IsNotNil)
}
