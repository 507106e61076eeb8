// Package proofs implements the specific Σ-proofs composed on top of the
// generic sigma driver: wellformedness, correctness, encrypting-same-value,
// and ciphertext-refreshment. Each proof follows the commit/challenge/respond
// pattern of sigma.SinglePropertyProver/Verifier.
package proofs

import (
	"io"

	"github.com/vocdoni/mercat-go/elgamal"
	"github.com/vocdoni/mercat-go/group"
	"github.com/vocdoni/mercat-go/merrors"
	"github.com/vocdoni/mercat-go/sigma"
	"github.com/vocdoni/mercat-go/transcript"
)

// Domain labels, used verbatim so independently produced proofs of the same
// kind are challenge-compatible across prover and verifier implementations.
const (
	LabelWellformedness          = "PolymathWellformednessProofChallenge"
	LabelWellformednessResponse  = "PolymathWellformednessFinalResponse"
	LabelCorrectness             = "PolymathCorrectnessChallenge"
	LabelCorrectnessResponse     = "PolymathCorrectnessFinalResponse"
	LabelEncryptingSameValue     = "PolymathEncryptingSameValueChallenge"
	LabelCiphertextRefreshment   = "PolymathCiphertextRefreshmentChallenge"
)

// --- Wellformedness --------------------------------------------------------
//
// Proves c = (r·P, v·G + r·H) for some (v, r) known to the prover, without
// revealing either.

// WellformednessInitialMessage is the Σ-protocol commitment (a, b).
type WellformednessInitialMessage struct {
	A *group.Point // α·P
	B *group.Point // α·H + β·G
}

// WellformednessFinalResponse is the Σ-protocol response (z1, z2).
type WellformednessFinalResponse struct {
	Z1 *group.Scalar // α + χ·r
	Z2 *group.Scalar // β + χ·v
}

func (im WellformednessInitialMessage) AppendToTranscript(t *transcript.Transcript) error {
	if err := t.AppendValidatedPoint("a", im.A); err != nil {
		return err
	}
	return t.AppendValidatedPoint("b", im.B)
}

// WellformednessProverAwaitingChallenge holds the witness and public
// ciphertext/public-key statement.
type WellformednessProverAwaitingChallenge struct {
	Witness *elgamal.Witness
	PubKey  *group.Point
}

type wellformednessProver struct {
	witness *elgamal.Witness
	alpha   *group.Scalar
	beta    *group.Scalar
}

// WitnessBytes implements sigma.WitnessBytes.
func (p WellformednessProverAwaitingChallenge) WitnessBytes() []byte {
	return append(group.ScalarFromUint64(p.Witness.Value).Bytes(), p.Witness.Blinding.Bytes()...)
}

func (p WellformednessProverAwaitingChallenge) GenerateInitialMessage(rng io.Reader) (sigma.Prover[WellformednessFinalResponse], sigma.InitialMessage) {
	alpha, err := group.RandomScalar(rng)
	if err != nil {
		panic(err) // rng is transcript-derived and infallible in practice; see sigma.SinglePropertyProver
	}
	beta, err := group.RandomScalar(rng)
	if err != nil {
		panic(err)
	}

	a := group.NewPoint().ScalarMult(alpha, p.PubKey)
	ah := group.NewPoint().ScalarMult(alpha, group.H())
	bg := group.NewPoint().ScalarBaseMult(beta)
	b := group.NewPoint().Add(ah, bg)

	return &wellformednessProver{witness: p.Witness, alpha: alpha, beta: beta},
		WellformednessInitialMessage{A: a, B: b}
}

func (p *wellformednessProver) ApplyChallenge(c *group.Scalar) WellformednessFinalResponse {
	z1 := group.NewScalar().Add(p.alpha, group.NewScalar().Multiply(c, p.witness.Blinding))
	z2 := group.NewScalar().Add(p.beta, group.NewScalar().Multiply(c, group.ScalarFromUint64(p.witness.Value)))
	return WellformednessFinalResponse{Z1: z1, Z2: z2}
}

// WellformednessVerifier checks a wellformedness proof against a public
// ciphertext and public key.
type WellformednessVerifier struct {
	PubKey     *group.Point
	CipherText elgamal.CipherText
}

func (v WellformednessVerifier) Verify(c *group.Scalar, imAny sigma.InitialMessage, fr WellformednessFinalResponse) error {
	im := imAny.(WellformednessInitialMessage)

	// z1·P == a + χ·c.x
	lhs1 := group.NewPoint().ScalarMult(fr.Z1, v.PubKey)
	rhs1 := group.NewPoint().Add(im.A, group.NewPoint().ScalarMult(c, v.CipherText.X))
	if lhs1.Equal(rhs1) != 1 {
		return merrors.NewWellformednessCheckError(1)
	}

	// z1·H + z2·G == b + χ·c.y
	lhs2 := group.NewPoint().Add(
		group.NewPoint().ScalarMult(fr.Z1, group.H()),
		group.NewPoint().ScalarBaseMult(fr.Z2),
	)
	rhs2 := group.NewPoint().Add(im.B, group.NewPoint().ScalarMult(c, v.CipherText.Y))
	if lhs2.Equal(rhs2) != 1 {
		return merrors.NewWellformednessCheckError(2)
	}
	return nil
}

// ProveWellformedness runs the full non-interactive wrapper.
func ProveWellformedness(rng io.Reader, witness *elgamal.Witness, pub *group.Point) (WellformednessInitialMessage, WellformednessFinalResponse, error) {
	im, fr, err := sigma.SinglePropertyProver[WellformednessFinalResponse](
		LabelWellformedness,
		WellformednessProverAwaitingChallenge{Witness: witness, PubKey: pub},
		rng,
	)
	if err != nil {
		return WellformednessInitialMessage{}, WellformednessFinalResponse{}, err
	}
	return im.(WellformednessInitialMessage), fr, nil
}

// VerifyWellformedness runs the non-interactive verifier.
func VerifyWellformedness(pub *group.Point, ct elgamal.CipherText, im WellformednessInitialMessage, fr WellformednessFinalResponse) error {
	return sigma.SinglePropertyVerifier[WellformednessFinalResponse](
		LabelWellformedness,
		WellformednessVerifier{PubKey: pub, CipherText: ct},
		im,
		fr,
	)
}
