// Package claim implements the private identity-audit / claim-proof
// protocol: a separate Pedersen commitment scheme (generators g0, g1, g2,
// disjoint from the accounting core's G and H) binding an investor DID and
// UID into a single cdd_id, plus a Schnorr-family proof that the UID inside
// it is a member of a verifier-supplied, randomly-padded anonymity set
// without revealing which element.
package claim

import (
	"crypto/sha512"
	"fmt"
	"io"
	"sync"

	"github.com/google/uuid"

	"github.com/vocdoni/mercat-go/config"
	"github.com/vocdoni/mercat-go/group"
	"github.com/vocdoni/mercat-go/merrors"
	"github.com/vocdoni/mercat-go/transcript"
)

// SetSizeAnonymityParam is the default floor below which the verifier's
// padded UID set must never shrink.
const SetSizeAnonymityParam = config.DefaultClaimAnonymitySetFloor

// ClaimProofLabel and ClaimProofChallengeLabel are the transcript's fixed
// domain separators.
const (
	ClaimProofLabel          = "MercatClaimProofTranscript"
	ClaimProofChallengeLabel = "MercatClaimProofChallenge"
)

var (
	genOnce       sync.Once
	genDIDBase    *group.Point
	genUIDBase    *group.Point
	genBlindBase  *group.Point
)

// initGenerators derives g0 (DID base), g1 (UID base), g2 (blinding base)
// deterministically from fixed domain labels, the same way group.H is
// derived from the accounting core's basis label, but kept disjoint from it
// so the two protocols never share a discrete-log relation.
func initGenerators() {
	genOnce.Do(func() {
		genDIDBase = derivePoint("MercatClaimDIDBase")
		genUIDBase = derivePoint("MercatClaimUIDBase")
		genBlindBase = derivePoint("MercatClaimBlindBase")
	})
}

func derivePoint(label string) *group.Point {
	digest := sha512.Sum512([]byte(label))
	p, err := group.PointFromUniformBytes(digest[:])
	if err != nil {
		panic(fmt.Sprintf("claim: failed to derive generator %q: %v", label, err))
	}
	return p
}

// g0, g1, g2 expose the claim protocol's fixed Pedersen basis.
func g0() *group.Point { initGenerators(); return genDIDBase }
func g1() *group.Point { initGenerators(); return genUIDBase }
func g2() *group.Point { initGenerators(); return genBlindBase }

// hashToScalar reduces an arbitrary byte string into the scalar field via a
// wide hash, used to fold a DID or UID string into an exponent.
func hashToScalar(label string, data []byte) *group.Scalar {
	h := sha512.New()
	h.Write([]byte(label))
	h.Write(data)
	digest := h.Sum(nil)
	return group.ScalarFromWideBytes(digest)
}

// Witness is the secret opening of a cdd_id commitment. Callers must call
// Zeroize as soon as the proof has been produced.
type Witness struct {
	DID      string
	UID      string
	DIDHash  *group.Scalar
	UIDScalar *group.Scalar
	Blind    *group.Scalar
}

// Zeroize overwrites the secret scalars.
func (w *Witness) Zeroize() {
	if w == nil {
		return
	}
	w.DIDHash = group.NewScalar()
	w.UIDScalar = group.NewScalar()
	w.Blind = group.NewScalar()
}

// BuildCDDID computes cdd_id = didHash·g0 + uid·g1 + blind·g2 for a fresh
// random blinding, returning the public commitment and the witness needed
// to prove membership later.
func BuildCDDID(rng io.Reader, did, uid string) (*group.Point, *Witness, error) {
	blind, err := group.RandomScalar(rng)
	if err != nil {
		return nil, nil, err
	}
	didHash := hashToScalar("mercat/claim/did", []byte(did))
	uidScalar := hashToScalar("mercat/claim/uid", []byte(uid))

	cddID := group.NewPoint().Add(
		group.NewPoint().Add(
			group.NewPoint().ScalarMult(didHash, g0()),
			group.NewPoint().ScalarMult(uidScalar, g1()),
		),
		group.NewPoint().ScalarMult(blind, g2()),
	)
	return cddID, &Witness{DID: did, UID: uid, DIDHash: didHash, UIDScalar: uidScalar, Blind: blind}, nil
}

// VerifierSetup is the anonymity set a verifier hands to a prover: the
// padded, shuffled list of masked UID points, and the masking scalar r kept
// by the verifier to check the prover's response later.
type VerifierSetup struct {
	R             *group.Scalar
	PaddedUIDs    []string
	CommittedUIDs []*group.Point
}

// NewVerifierSetup pads realUIDs up to floor (SetSizeAnonymityParam if
// floor <= 0) with freshly-generated UUIDv4 strings, samples a masking
// scalar r, and emits the shuffled set {r·g1·uid_i}.
func NewVerifierSetup(rng io.Reader, realUIDs []string, floor int) (*VerifierSetup, error) {
	if floor <= 0 {
		floor = SetSizeAnonymityParam
	}
	padded := make([]string, len(realUIDs))
	copy(padded, realUIDs)
	for len(padded) < floor {
		padded = append(padded, uuid.New().String())
	}

	r, err := group.RandomScalar(rng)
	if err != nil {
		return nil, err
	}

	masked := make([]*group.Point, len(padded))
	for i, u := range padded {
		uidScalar := hashToScalar("mercat/claim/uid", []byte(u))
		point := group.NewPoint().ScalarMult(uidScalar, g1())
		masked[i] = group.NewPoint().ScalarMult(r, point)
	}

	shuffled, err := shuffle(rng, masked)
	if err != nil {
		return nil, err
	}

	return &VerifierSetup{R: r, PaddedUIDs: padded, CommittedUIDs: shuffled}, nil
}

func shuffle(rng io.Reader, points []*group.Point) ([]*group.Point, error) {
	out := make([]*group.Point, len(points))
	copy(out, points)
	for i := len(out) - 1; i > 0; i-- {
		var buf [8]byte
		if _, err := io.ReadFull(rng, buf[:]); err != nil {
			return nil, fmt.Errorf("claim: failed to read shuffle randomness: %w", err)
		}
		var v uint64
		for b := 0; b < 8; b++ {
			v |= uint64(buf[b]) << (8 * b)
		}
		j := int(v % uint64(i+1))
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

// Proof holds two Schnorr equations: a knowledge proof of cdd_id's opening
// (check a) that shares its uid response Z1 with a second equation exposing
// the masking target uid·g1 (check b).
type Proof struct {
	A1 *group.Point // k0·g0 + k1·g1 + k2·g2
	A2 *group.Point // k1·g1
	Z0 *group.Scalar
	Z1 *group.Scalar
	Z2 *group.Scalar
}

// UIDPoint is the public point uid·g1 the prover reveals so the verifier
// can mask it with r and look it up in the committed set, without the
// verifier ever learning uid itself.
type UIDPoint struct {
	C *group.Point
}

// Prove shows knowledge of witness's opening of cddID, and reveals
// uid·g1 bound to the same uid exponent, tying the two together for the
// verifier's masked-membership check.
func Prove(rng io.Reader, witness *Witness, cddID *group.Point) (Proof, UIDPoint, error) {
	k0, err := group.RandomScalar(rng)
	if err != nil {
		return Proof{}, UIDPoint{}, err
	}
	k1, err := group.RandomScalar(rng)
	if err != nil {
		return Proof{}, UIDPoint{}, err
	}
	k2, err := group.RandomScalar(rng)
	if err != nil {
		return Proof{}, UIDPoint{}, err
	}

	c := UIDPoint{C: group.NewPoint().ScalarMult(witness.UIDScalar, g1())}

	a1 := group.NewPoint().Add(
		group.NewPoint().Add(
			group.NewPoint().ScalarMult(k0, g0()),
			group.NewPoint().ScalarMult(k1, g1()),
		),
		group.NewPoint().ScalarMult(k2, g2()),
	)
	a2 := group.NewPoint().ScalarMult(k1, g1())

	t := transcript.New(ClaimProofLabel)
	if err := t.AppendValidatedPoint("cdd_id", cddID); err != nil {
		return Proof{}, UIDPoint{}, err
	}
	if err := t.AppendValidatedPoint("uid_point", c.C); err != nil {
		return Proof{}, UIDPoint{}, err
	}
	if err := t.AppendValidatedPoint("a1", a1); err != nil {
		return Proof{}, UIDPoint{}, err
	}
	if err := t.AppendValidatedPoint("a2", a2); err != nil {
		return Proof{}, UIDPoint{}, err
	}
	chal, err := t.ScalarChallenge(ClaimProofChallengeLabel)
	if err != nil {
		return Proof{}, UIDPoint{}, err
	}

	z0 := group.NewScalar().Add(k0, group.NewScalar().Multiply(chal, witness.DIDHash))
	z1 := group.NewScalar().Add(k1, group.NewScalar().Multiply(chal, witness.UIDScalar))
	z2 := group.NewScalar().Add(k2, group.NewScalar().Multiply(chal, witness.Blind))

	return Proof{A1: a1, A2: a2, Z0: z0, Z1: z1, Z2: z2}, c, nil
}

// Verify re-derives the Fiat-Shamir challenge, checks the two Schnorr
// equations (CDDIdMismatch for check a, ZKPVerificationError for check b),
// then checks that r·uidPoint.C matches one element of setup's committed
// set (MembershipProofError).
func Verify(cddID *group.Point, uidPoint UIDPoint, proof Proof, setup *VerifierSetup) error {
	t := transcript.New(ClaimProofLabel)
	if err := t.AppendValidatedPoint("cdd_id", cddID); err != nil {
		return err
	}
	if err := t.AppendValidatedPoint("uid_point", uidPoint.C); err != nil {
		return err
	}
	if err := t.AppendValidatedPoint("a1", proof.A1); err != nil {
		return err
	}
	if err := t.AppendValidatedPoint("a2", proof.A2); err != nil {
		return err
	}
	chal, err := t.ScalarChallenge(ClaimProofChallengeLabel)
	if err != nil {
		return err
	}

	lhs1 := group.NewPoint().Add(
		group.NewPoint().Add(
			group.NewPoint().ScalarMult(proof.Z0, g0()),
			group.NewPoint().ScalarMult(proof.Z1, g1()),
		),
		group.NewPoint().ScalarMult(proof.Z2, g2()),
	)
	rhs1 := group.NewPoint().Add(proof.A1, group.NewPoint().ScalarMult(chal, cddID))
	if lhs1.Equal(rhs1) != 1 {
		return merrors.ErrCDDIDMismatch
	}

	lhs2 := group.NewPoint().ScalarMult(proof.Z1, g1())
	rhs2 := group.NewPoint().Add(proof.A2, group.NewPoint().ScalarMult(chal, uidPoint.C))
	if lhs2.Equal(rhs2) != 1 {
		return &merrors.ZKPVerificationError{Kind: "uid"}
	}

	masked := group.NewPoint().ScalarMult(setup.R, uidPoint.C)
	for _, candidate := range setup.CommittedUIDs {
		if masked.Equal(candidate) == 1 {
			return nil
		}
	}
	return merrors.ErrMembershipProof
}
