// Package rangeproof proves that a Pedersen commitment opens to a value in
// [0, 2^n) without revealing it. No bulletproofs (inner-product argument)
// package is available to build on, so the proof is constructed directly on
// group/transcript: a bit decomposition of the committed value, each bit
// bound to a bit commitment by a 1-of-2 Schnorr disjunction (Cramer,
// Damgård, Schoenmakers), with the bit commitments tied back to the
// original commitment by a public linear check anyone can perform.
package rangeproof

import (
	"fmt"
	"io"

	"github.com/vocdoni/mercat-go/elgamal"
	"github.com/vocdoni/mercat-go/group"
	"github.com/vocdoni/mercat-go/merrors"
	"github.com/vocdoni/mercat-go/transcript"
)

// Label is the domain separator shared by every range proof instance.
const Label = "MercatRangeProofChallenge"

// MaxBits is the number of bits the core's range proofs are sized for.
const MaxBits = 32

// BitProof is one binary-OR sub-proof: the prover shows C_i opens to 0 or to
// 1 without revealing which, by completing a real Schnorr proof on its
// branch and simulating the other.
type BitProof struct {
	A0 *group.Point  // commitment for the "bit is 0" branch
	A1 *group.Point  // commitment for the "bit is 1" branch
	Z0 *group.Scalar // response for the "bit is 0" branch
	Z1 *group.Scalar // response for the "bit is 1" branch
	C0 *group.Scalar // challenge share spent on branch 0; branch 1 gets c - C0
}

// Proof is a full range proof: one bit commitment and one BitProof per bit
// of the value, ordered from least to most significant.
type Proof struct {
	BitCommitments []*group.Point
	Bits           []BitProof
}

// Prove shows that witness.Value lies in [0, 2^n) and that
// group.Commit(value, witness.Blinding) is its commitment, without
// revealing the value. n must not exceed MaxBits.
func Prove(rng io.Reader, witness *elgamal.Witness, n int) (Proof, error) {
	if n <= 0 || n > MaxBits {
		return Proof{}, fmt.Errorf("rangeproof: invalid bit width %d", n)
	}
	if witness.Value>>uint(n) != 0 {
		return Proof{}, fmt.Errorf("rangeproof: value does not fit in %d bits", n)
	}

	bitBlinding := make([]*group.Scalar, n)
	sum := group.NewScalar()
	for i := 0; i < n-1; i++ {
		r, err := group.RandomScalar(rng)
		if err != nil {
			return Proof{}, err
		}
		bitBlinding[i] = r
		weighted := group.NewScalar().Multiply(r, group.ScalarFromUint64(uint64(1)<<uint(i)))
		sum = group.NewScalar().Add(sum, weighted)
	}
	lastWeight := group.ScalarFromUint64(uint64(1) << uint(n-1))
	lastWeightInv := invert(lastWeight)
	remainder := group.NewScalar().Subtract(witness.Blinding, sum)
	bitBlinding[n-1] = group.NewScalar().Multiply(remainder, lastWeightInv)

	bitCommitments := make([]*group.Point, n)
	bitValue := make([]uint64, n)
	for i := 0; i < n; i++ {
		b := (witness.Value >> uint(i)) & 1
		bitValue[i] = b
		bitCommitments[i] = group.Commit(group.ScalarFromUint64(b), bitBlinding[i])
	}

	t := transcript.New(Label)
	t.AppendUint64("bits", uint64(n))
	for i, c := range bitCommitments {
		if err := t.AppendValidatedPoint(fmt.Sprintf("c%d", i), c); err != nil {
			return Proof{}, err
		}
	}

	type branchState struct {
		kReal    *group.Scalar
		cFake    *group.Scalar
		zFake    *group.Scalar
		bIsOne   bool
	}
	states := make([]branchState, n)
	a0s := make([]*group.Point, n)
	a1s := make([]*group.Point, n)

	for i := 0; i < n; i++ {
		kReal, err := group.RandomScalar(rng)
		if err != nil {
			return Proof{}, err
		}
		cFake, err := group.RandomScalar(rng)
		if err != nil {
			return Proof{}, err
		}
		zFake, err := group.RandomScalar(rng)
		if err != nil {
			return Proof{}, err
		}

		if bitValue[i] == 0 {
			a0s[i] = group.NewPoint().ScalarMult(kReal, group.H())
			a1s[i] = fakeCommitment(zFake, cFake, bitCommitments[i], true)
		} else {
			a1s[i] = group.NewPoint().ScalarMult(kReal, group.H())
			a0s[i] = fakeCommitment(zFake, cFake, bitCommitments[i], false)
		}
		states[i] = branchState{kReal: kReal, cFake: cFake, zFake: zFake, bIsOne: bitValue[i] == 1}

		if err := t.AppendValidatedPoint(fmt.Sprintf("a0-%d", i), a0s[i]); err != nil {
			return Proof{}, err
		}
		if err := t.AppendValidatedPoint(fmt.Sprintf("a1-%d", i), a1s[i]); err != nil {
			return Proof{}, err
		}
	}

	c, err := t.ScalarChallenge(Label + "/challenge")
	if err != nil {
		return Proof{}, err
	}

	bits := make([]BitProof, n)
	for i := 0; i < n; i++ {
		s := states[i]
		if !s.bIsOne {
			cReal := group.NewScalar().Subtract(c, s.cFake)
			zReal := group.NewScalar().Add(s.kReal, group.NewScalar().Multiply(cReal, bitBlinding[i]))
			bits[i] = BitProof{A0: a0s[i], A1: a1s[i], Z0: zReal, Z1: s.zFake, C0: cReal}
		} else {
			cReal := group.NewScalar().Subtract(c, s.cFake)
			zReal := group.NewScalar().Add(s.kReal, group.NewScalar().Multiply(cReal, bitBlinding[i]))
			bits[i] = BitProof{A0: a0s[i], A1: a1s[i], Z0: s.zFake, Z1: zReal, C0: s.cFake}
		}
	}

	return Proof{BitCommitments: bitCommitments, Bits: bits}, nil
}

// fakeCommitment computes A = z*H - c*statementPoint for a simulated
// Schnorr branch, where statementPoint is C_i (branch "bit is 0") or
// C_i - G (branch "bit is 1").
func fakeCommitment(z, c *group.Scalar, bitCommitment *group.Point, branchIsOne bool) *group.Point {
	statement := bitCommitment
	if branchIsOne {
		statement = group.NewPoint().Add(bitCommitment, group.NewPoint().Negate(group.G()))
	}
	zh := group.NewPoint().ScalarMult(z, group.H())
	cStmt := group.NewPoint().ScalarMult(c, statement)
	return group.NewPoint().Add(zh, group.NewPoint().Negate(cStmt))
}

func invert(s *group.Scalar) *group.Scalar {
	return group.NewScalar().Invert(s)
}

// Verify checks proof against commitment (the public Pedersen commitment
// the value was committed under) for a proof sized to n bits.
func Verify(commitment *group.Point, n int, proof Proof) error {
	if n <= 0 || n > MaxBits {
		return fmt.Errorf("rangeproof: invalid bit width %d", n)
	}
	if len(proof.BitCommitments) != n || len(proof.Bits) != n {
		return &merrors.CheckError{Proof: "range", Check: 0}
	}

	sum := group.NewPoint()
	for i, c := range proof.BitCommitments {
		weighted := group.NewPoint().ScalarMult(group.ScalarFromUint64(uint64(1)<<uint(i)), c)
		sum = group.NewPoint().Add(sum, weighted)
	}
	if sum.Equal(commitment) != 1 {
		return &merrors.CheckError{Proof: "range", Check: 1}
	}

	t := transcript.New(Label)
	t.AppendUint64("bits", uint64(n))
	for i, c := range proof.BitCommitments {
		if err := t.AppendValidatedPoint(fmt.Sprintf("c%d", i), c); err != nil {
			return err
		}
	}
	for i, bp := range proof.Bits {
		if err := t.AppendValidatedPoint(fmt.Sprintf("a0-%d", i), bp.A0); err != nil {
			return err
		}
		if err := t.AppendValidatedPoint(fmt.Sprintf("a1-%d", i), bp.A1); err != nil {
			return err
		}
	}

	c, err := t.ScalarChallenge(Label + "/challenge")
	if err != nil {
		return err
	}

	for i, bp := range proof.Bits {
		c1 := group.NewScalar().Subtract(c, bp.C0)

		lhs0 := group.NewPoint().ScalarMult(bp.Z0, group.H())
		rhs0 := group.NewPoint().Add(bp.A0, group.NewPoint().ScalarMult(bp.C0, proof.BitCommitments[i]))
		if lhs0.Equal(rhs0) != 1 {
			return &merrors.CheckError{Proof: "range", Check: 2}
		}

		statement1 := group.NewPoint().Add(proof.BitCommitments[i], group.NewPoint().Negate(group.G()))
		lhs1 := group.NewPoint().ScalarMult(bp.Z1, group.H())
		rhs1 := group.NewPoint().Add(bp.A1, group.NewPoint().ScalarMult(c1, statement1))
		if lhs1.Equal(rhs1) != 1 {
			return &merrors.CheckError{Proof: "range", Check: 3}
		}
	}
	return nil
}
