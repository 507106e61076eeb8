package membership_test

import (
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/vocdoni/mercat-go/elgamal"
	"github.com/vocdoni/mercat-go/group"
	"github.com/vocdoni/mercat-go/internal/testutil"
	"github.com/vocdoni/mercat-go/membership"
	"github.com/vocdoni/mercat-go/merrors"
)

func TestPadListRepeatsLastElement(t *testing.T) {
	c := qt.New(t)

	padded, err := membership.PadList([]uint64{1}, 4, 3)
	c.Assert(err, qt.IsNil)
	c.Assert(padded, qt.HasLen, 64)
	for _, v := range padded {
		c.Assert(v, qt.Equals, uint64(1))
	}
}

func TestPadListRejectsOversizedList(t *testing.T) {
	c := qt.New(t)

	_, err := membership.PadList(make([]uint64, 100), 4, 3)
	c.Assert(err, qt.IsNotNil)
}

func TestMembershipProveVerifyRoundTrip(t *testing.T) {
	c := qt.New(t)

	rng := testutil.NewSeededReader(31)
	list := []uint64{1, 2, 3, 4}
	blinding, err := group.RandomScalar(rng)
	c.Assert(err, qt.IsNil)
	w, err := elgamal.NewWitness(3, blinding)
	c.Assert(err, qt.IsNil)

	proof, err := membership.Prove(rng, w, list)
	c.Assert(err, qt.IsNil)

	commitment := group.Commit(group.ScalarFromUint64(3), blinding)
	c.Assert(membership.Verify(commitment, list, proof), qt.IsNil)
}

// TestMembershipProveRejectsNonMember mirrors the seed scenario: committing
// to 7 while the list is the even numbers up to 126 must fail at prove time.
func TestMembershipProveRejectsNonMember(t *testing.T) {
	c := qt.New(t)

	rng := testutil.NewSeededReader(32)
	list := make([]uint64, 0, 64)
	for v := uint64(0); v <= 126; v += 2 {
		list = append(list, v)
	}
	blinding, err := group.RandomScalar(rng)
	c.Assert(err, qt.IsNil)
	w, err := elgamal.NewWitness(7, blinding)
	c.Assert(err, qt.IsNil)

	_, err = membership.Prove(rng, w, list)
	c.Assert(err, qt.ErrorIs, merrors.ErrMembershipInvalidAsset)
}

func TestMembershipVerifyRejectsTamperedProof(t *testing.T) {
	c := qt.New(t)

	rng := testutil.NewSeededReader(33)
	list := []uint64{10, 20, 30}
	blinding, err := group.RandomScalar(rng)
	c.Assert(err, qt.IsNil)
	w, err := elgamal.NewWitness(20, blinding)
	c.Assert(err, qt.IsNil)

	proof, err := membership.Prove(rng, w, list)
	c.Assert(err, qt.IsNil)
	proof.Branches[0].Z = group.NewScalar().Add(proof.Branches[0].Z, group.ScalarFromUint64(1))

	commitment := group.Commit(group.ScalarFromUint64(20), blinding)
	c.Assert(membership.Verify(commitment, list, proof), qt.IsNotNil)
}
