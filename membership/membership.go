// Package membership proves that a Pedersen commitment opens to one element
// of a public list without revealing which. Two variants are known for this
// protocol; this package implements the "direct commitment-list" variant: an
// N-way Schnorr disjunction directly over the list elements, rather than the
// polynomial-coefficient variant. Domain labels are fixed so independently
// produced proofs against the same list are challenge-compatible.
package membership

import (
	"fmt"
	"io"

	"github.com/vocdoni/mercat-go/elgamal"
	"github.com/vocdoni/mercat-go/group"
	"github.com/vocdoni/mercat-go/merrors"
	"github.com/vocdoni/mercat-go/transcript"
)

// PolymathMembershipProofLabel and PolymathMembershipProofChallengeLabel are
// the fixed domain separators for this protocol's transcript and challenge.
const (
	PolymathMembershipProofLabel          = "PolymathMembershipProofLabel"
	PolymathMembershipProofChallengeLabel = "PolymathMembershipProofChallengeLabel"
)

// Branch is one disjunct of the proof: a commitment A_i and response z_i,
// together with the challenge share c_i this branch spent.
type Branch struct {
	A *group.Point
	Z *group.Scalar
	C *group.Scalar
}

// Proof is the full N-way disjunction, one Branch per list element.
type Proof struct {
	Branches []Branch
}

// PadList right-pads list to exactly n^m elements by repeating its last
// element. Callers must apply this before proving or verifying: leaving a
// short list unpadded lets the verifier's equations distinguish a short real
// list from a maximally-sized one.
func PadList(list []uint64, n, m int) ([]uint64, error) {
	if len(list) == 0 {
		return nil, merrors.ErrEmptyElementsSet
	}
	target, err := capacity(n, m)
	if err != nil {
		return nil, err
	}
	if len(list) > target {
		return nil, merrors.ErrInvalidExponentParameter
	}
	padded := make([]uint64, target)
	copy(padded, list)
	last := list[len(list)-1]
	for i := len(list); i < target; i++ {
		padded[i] = last
	}
	return padded, nil
}

func capacity(n, m int) (int, error) {
	if n <= 1 || m <= 0 {
		return 0, merrors.ErrInvalidExponentParameter
	}
	total := 1
	for i := 0; i < m; i++ {
		total *= n
	}
	return total, nil
}

// Prove shows that group.Commit(value, witness.Blinding) opens to one of
// the elements of list (which must already be padded, see PadList), without
// revealing the matching index. It returns merrors.ErrMembershipInvalidAsset
// if witness.Value is not present in list.
func Prove(rng io.Reader, witness *elgamal.Witness, list []uint64) (Proof, error) {
	if len(list) == 0 {
		return Proof{}, merrors.ErrEmptyElementsSet
	}
	index := -1
	for i, v := range list {
		if v == witness.Value {
			index = i
			break
		}
	}
	if index < 0 {
		return Proof{}, merrors.ErrMembershipInvalidAsset
	}

	commitment := group.Commit(group.ScalarFromUint64(witness.Value), witness.Blinding)

	n := len(list)
	kReal, err := group.RandomScalar(rng)
	if err != nil {
		return Proof{}, err
	}
	cFake := make([]*group.Scalar, n)
	zFake := make([]*group.Scalar, n)
	a := make([]*group.Point, n)

	for i := 0; i < n; i++ {
		statement := statementPoint(commitment, list[i])
		if i == index {
			a[i] = group.NewPoint().ScalarMult(kReal, group.H())
			continue
		}
		cf, err := group.RandomScalar(rng)
		if err != nil {
			return Proof{}, err
		}
		zf, err := group.RandomScalar(rng)
		if err != nil {
			return Proof{}, err
		}
		cFake[i] = cf
		zFake[i] = zf
		zh := group.NewPoint().ScalarMult(zf, group.H())
		cs := group.NewPoint().ScalarMult(cf, statement)
		a[i] = group.NewPoint().Add(zh, group.NewPoint().Negate(cs))
	}

	t := transcript.New(PolymathMembershipProofLabel)
	t.AppendUint64("list-size", uint64(n))
	if err := t.AppendValidatedPoint("commitment", commitment); err != nil {
		return Proof{}, err
	}
	for i, v := range list {
		t.AppendUint64(fmt.Sprintf("element%d", i), v)
		if err := t.AppendValidatedPoint(fmt.Sprintf("a%d", i), a[i]); err != nil {
			return Proof{}, err
		}
	}

	c, err := t.ScalarChallenge(PolymathMembershipProofChallengeLabel)
	if err != nil {
		return Proof{}, err
	}

	sumFake := group.NewScalar()
	for i := 0; i < n; i++ {
		if i == index {
			continue
		}
		sumFake = group.NewScalar().Add(sumFake, cFake[i])
	}
	cReal := group.NewScalar().Subtract(c, sumFake)
	zReal := group.NewScalar().Add(kReal, group.NewScalar().Multiply(cReal, witness.Blinding))

	branches := make([]Branch, n)
	for i := 0; i < n; i++ {
		if i == index {
			branches[i] = Branch{A: a[i], Z: zReal, C: cReal}
		} else {
			branches[i] = Branch{A: a[i], Z: zFake[i], C: cFake[i]}
		}
	}
	return Proof{Branches: branches}, nil
}

func statementPoint(commitment *group.Point, element uint64) *group.Point {
	eg := group.NewPoint().ScalarBaseMult(group.ScalarFromUint64(element))
	return group.NewPoint().Add(commitment, group.NewPoint().Negate(eg))
}

// Verify checks proof against a public commitment and the (already padded)
// list.
func Verify(commitment *group.Point, list []uint64, proof Proof) error {
	if len(list) == 0 {
		return merrors.ErrEmptyElementsSet
	}
	if len(proof.Branches) != len(list) {
		return merrors.NewMembershipCheckError(1)
	}

	t := transcript.New(PolymathMembershipProofLabel)
	t.AppendUint64("list-size", uint64(len(list)))
	if err := t.AppendValidatedPoint("commitment", commitment); err != nil {
		return err
	}
	for i, v := range list {
		t.AppendUint64(fmt.Sprintf("element%d", i), v)
		if err := t.AppendValidatedPoint(fmt.Sprintf("a%d", i), proof.Branches[i].A); err != nil {
			return err
		}
	}

	c, err := t.ScalarChallenge(PolymathMembershipProofChallengeLabel)
	if err != nil {
		return err
	}

	sum := group.NewScalar()
	for _, b := range proof.Branches {
		sum = group.NewScalar().Add(sum, b.C)
	}
	if sum.Equal(c) != 1 {
		return merrors.NewMembershipCheckError(2)
	}

	for i, b := range proof.Branches {
		statement := statementPoint(commitment, list[i])
		lhs := group.NewPoint().ScalarMult(b.Z, group.H())
		rhs := group.NewPoint().Add(b.A, group.NewPoint().ScalarMult(b.C, statement))
		if lhs.Equal(rhs) != 1 {
			return merrors.NewMembershipCheckError(1)
		}
	}
	return nil
}
