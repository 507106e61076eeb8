package proofs

import (
	"io"

	"github.com/vocdoni/mercat-go/elgamal"
	"github.com/vocdoni/mercat-go/group"
	"github.com/vocdoni/mercat-go/merrors"
	"github.com/vocdoni/mercat-go/sigma"
	"github.com/vocdoni/mercat-go/transcript"
)

// --- Encrypting-same-value --------------------------------------------------
//
// Extends wellformedness with two ciphertexts under two different public
// keys, both encrypting the same value with the same blinding r
// (elgamal.EncryptSameValueTwoKeys produces the statement this proves).

// EncryptingSameValueInitialMessage is the Σ-protocol commitment.
type EncryptingSameValueInitialMessage struct {
	A1 *group.Point // α·P1
	A2 *group.Point // α·P2
	B  *group.Point // α·H + β·G
}

// EncryptingSameValueFinalResponse is the Σ-protocol response.
type EncryptingSameValueFinalResponse struct {
	Z1 *group.Scalar // α + χ·r
	Z2 *group.Scalar // β + χ·v
}

func (im EncryptingSameValueInitialMessage) AppendToTranscript(t *transcript.Transcript) error {
	if err := t.AppendValidatedPoint("a1", im.A1); err != nil {
		return err
	}
	if err := t.AppendValidatedPoint("a2", im.A2); err != nil {
		return err
	}
	return t.AppendValidatedPoint("b", im.B)
}

// EncryptingSameValueProverAwaitingChallenge holds the witness and the two
// public keys.
type EncryptingSameValueProverAwaitingChallenge struct {
	Witness     *elgamal.Witness
	PubKeyFirst  *group.Point
	PubKeySecond *group.Point
}

func (p EncryptingSameValueProverAwaitingChallenge) WitnessBytes() []byte {
	return append(group.ScalarFromUint64(p.Witness.Value).Bytes(), p.Witness.Blinding.Bytes()...)
}

type sameValueProver struct {
	witness *elgamal.Witness
	alpha   *group.Scalar
	beta    *group.Scalar
}

func (p EncryptingSameValueProverAwaitingChallenge) GenerateInitialMessage(rng io.Reader) (sigma.Prover[EncryptingSameValueFinalResponse], sigma.InitialMessage) {
	alpha, err := group.RandomScalar(rng)
	if err != nil {
		panic(err)
	}
	beta, err := group.RandomScalar(rng)
	if err != nil {
		panic(err)
	}

	a1 := group.NewPoint().ScalarMult(alpha, p.PubKeyFirst)
	a2 := group.NewPoint().ScalarMult(alpha, p.PubKeySecond)
	ah := group.NewPoint().ScalarMult(alpha, group.H())
	bg := group.NewPoint().ScalarBaseMult(beta)
	b := group.NewPoint().Add(ah, bg)

	return &sameValueProver{witness: p.Witness, alpha: alpha, beta: beta},
		EncryptingSameValueInitialMessage{A1: a1, A2: a2, B: b}
}

func (p *sameValueProver) ApplyChallenge(c *group.Scalar) EncryptingSameValueFinalResponse {
	z1 := group.NewScalar().Add(p.alpha, group.NewScalar().Multiply(c, p.witness.Blinding))
	z2 := group.NewScalar().Add(p.beta, group.NewScalar().Multiply(c, group.ScalarFromUint64(p.witness.Value)))
	return EncryptingSameValueFinalResponse{Z1: z1, Z2: z2}
}

// EncryptingSameValueVerifier checks the proof against the two ciphertexts
// and public keys.
type EncryptingSameValueVerifier struct {
	PubKeyFirst  *group.Point
	PubKeySecond *group.Point
	CipherFirst  elgamal.CipherText
	CipherSecond elgamal.CipherText
}

func (v EncryptingSameValueVerifier) Verify(c *group.Scalar, imAny sigma.InitialMessage, fr EncryptingSameValueFinalResponse) error {
	im := imAny.(EncryptingSameValueInitialMessage)

	// z1·P1 == a1 + χ·c1.x
	lhs1 := group.NewPoint().ScalarMult(fr.Z1, v.PubKeyFirst)
	rhs1 := group.NewPoint().Add(im.A1, group.NewPoint().ScalarMult(c, v.CipherFirst.X))
	if lhs1.Equal(rhs1) != 1 {
		return merrors.NewEncryptingSameValueCheckError(1)
	}

	// z1·P2 == a2 + χ·c2.x
	lhs2 := group.NewPoint().ScalarMult(fr.Z1, v.PubKeySecond)
	rhs2 := group.NewPoint().Add(im.A2, group.NewPoint().ScalarMult(c, v.CipherSecond.X))
	if lhs2.Equal(rhs2) != 1 {
		return merrors.NewEncryptingSameValueCheckError(2)
	}

	// z1·H + z2·G == b + χ·c1.y  (c1.y == c2.y by construction)
	lhs3 := group.NewPoint().Add(
		group.NewPoint().ScalarMult(fr.Z1, group.H()),
		group.NewPoint().ScalarBaseMult(fr.Z2),
	)
	rhs3 := group.NewPoint().Add(im.B, group.NewPoint().ScalarMult(c, v.CipherFirst.Y))
	if lhs3.Equal(rhs3) != 1 {
		return merrors.NewEncryptingSameValueCheckError(3)
	}
	if v.CipherFirst.Y.Equal(v.CipherSecond.Y) != 1 {
		return merrors.NewEncryptingSameValueCheckError(3)
	}
	return nil
}

// ProveEncryptingSameValue runs the non-interactive wrapper.
func ProveEncryptingSameValue(rng io.Reader, witness *elgamal.Witness, pub1, pub2 *group.Point) (EncryptingSameValueInitialMessage, EncryptingSameValueFinalResponse, error) {
	im, fr, err := sigma.SinglePropertyProver[EncryptingSameValueFinalResponse](
		LabelEncryptingSameValue,
		EncryptingSameValueProverAwaitingChallenge{Witness: witness, PubKeyFirst: pub1, PubKeySecond: pub2},
		rng,
	)
	if err != nil {
		return EncryptingSameValueInitialMessage{}, EncryptingSameValueFinalResponse{}, err
	}
	return im.(EncryptingSameValueInitialMessage), fr, nil
}

// VerifyEncryptingSameValue runs the non-interactive verifier.
func VerifyEncryptingSameValue(pub1, pub2 *group.Point, ct1, ct2 elgamal.CipherText, im EncryptingSameValueInitialMessage, fr EncryptingSameValueFinalResponse) error {
	return sigma.SinglePropertyVerifier[EncryptingSameValueFinalResponse](
		LabelEncryptingSameValue,
		EncryptingSameValueVerifier{PubKeyFirst: pub1, PubKeySecond: pub2, CipherFirst: ct1, CipherSecond: ct2},
		im,
		fr,
	)
}
