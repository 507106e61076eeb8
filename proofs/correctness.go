package proofs

import (
	"io"

	"github.com/vocdoni/mercat-go/elgamal"
	"github.com/vocdoni/mercat-go/group"
	"github.com/vocdoni/mercat-go/merrors"
	"github.com/vocdoni/mercat-go/sigma"
	"github.com/vocdoni/mercat-go/transcript"
)

// --- Correctness -----------------------------------------------------------
//
// The prover has committed to v inside a ciphertext and claims the
// plaintext equals a *public* v*. Used when a party needs to convince
// another that a ciphertext it produced encrypts a value the verifier
// already knows (e.g. an issuer proving its memo ciphertext matches the
// publicly-agreed issuance amount).

// CorrectnessInitialMessage is the Σ-protocol commitment (a, b).
type CorrectnessInitialMessage struct {
	A *group.Point // u·P
	B *group.Point // u·H
}

// CorrectnessFinalResponse is the Σ-protocol response z.
type CorrectnessFinalResponse struct {
	Z *group.Scalar // u + χ·r
}

func (im CorrectnessInitialMessage) AppendToTranscript(t *transcript.Transcript) error {
	if err := t.AppendValidatedPoint("a", im.A); err != nil {
		return err
	}
	return t.AppendValidatedPoint("b", im.B)
}

// CorrectnessProverAwaitingChallenge holds the witness (the blinding r used
// to encrypt v*) and the public statement.
type CorrectnessProverAwaitingChallenge struct {
	Blinding *group.Scalar
	PubKey   *group.Point
}

func (p CorrectnessProverAwaitingChallenge) WitnessBytes() []byte {
	return p.Blinding.Bytes()
}

type correctnessProver struct {
	blinding *group.Scalar
	u        *group.Scalar
}

func (p CorrectnessProverAwaitingChallenge) GenerateInitialMessage(rng io.Reader) (sigma.Prover[CorrectnessFinalResponse], sigma.InitialMessage) {
	u, err := group.RandomScalar(rng)
	if err != nil {
		panic(err)
	}
	a := group.NewPoint().ScalarMult(u, p.PubKey)
	b := group.NewPoint().ScalarMult(u, group.H())
	return &correctnessProver{blinding: p.Blinding, u: u}, CorrectnessInitialMessage{A: a, B: b}
}

func (p *correctnessProver) ApplyChallenge(c *group.Scalar) CorrectnessFinalResponse {
	z := group.NewScalar().Add(p.u, group.NewScalar().Multiply(c, p.blinding))
	return CorrectnessFinalResponse{Z: z}
}

// CorrectnessVerifier checks a correctness proof against the public
// ciphertext, public key, and the claimed public plaintext v*.
type CorrectnessVerifier struct {
	PubKey       *group.Point
	CipherText   elgamal.CipherText
	ClaimedValue uint64
}

func (v CorrectnessVerifier) Verify(c *group.Scalar, imAny sigma.InitialMessage, fr CorrectnessFinalResponse) error {
	im := imAny.(CorrectnessInitialMessage)

	vg := group.NewPoint().ScalarBaseMult(group.ScalarFromUint64(v.ClaimedValue))
	yPrime := group.NewPoint().Add(v.CipherText.Y, group.NewPoint().Negate(vg))

	// z·P == a + χ·c.x
	lhs1 := group.NewPoint().ScalarMult(fr.Z, v.PubKey)
	rhs1 := group.NewPoint().Add(im.A, group.NewPoint().ScalarMult(c, v.CipherText.X))
	if lhs1.Equal(rhs1) != 1 {
		return merrors.NewCorrectnessCheckError(1)
	}

	// z·H == b + χ·y'
	lhs2 := group.NewPoint().ScalarMult(fr.Z, group.H())
	rhs2 := group.NewPoint().Add(im.B, group.NewPoint().ScalarMult(c, yPrime))
	if lhs2.Equal(rhs2) != 1 {
		return merrors.NewCorrectnessCheckError(2)
	}
	return nil
}

// ProveCorrectness runs the non-interactive wrapper.
func ProveCorrectness(rng io.Reader, blinding *group.Scalar, pub *group.Point) (CorrectnessInitialMessage, CorrectnessFinalResponse, error) {
	im, fr, err := sigma.SinglePropertyProver[CorrectnessFinalResponse](
		LabelCorrectness,
		CorrectnessProverAwaitingChallenge{Blinding: blinding, PubKey: pub},
		rng,
	)
	if err != nil {
		return CorrectnessInitialMessage{}, CorrectnessFinalResponse{}, err
	}
	return im.(CorrectnessInitialMessage), fr, nil
}

// VerifyCorrectness runs the non-interactive verifier.
func VerifyCorrectness(pub *group.Point, ct elgamal.CipherText, claimedValue uint64, im CorrectnessInitialMessage, fr CorrectnessFinalResponse) error {
	return sigma.SinglePropertyVerifier[CorrectnessFinalResponse](
		LabelCorrectness,
		CorrectnessVerifier{PubKey: pub, CipherText: ct, ClaimedValue: claimedValue},
		im,
		fr,
	)
}
