package proofs

import (
	"io"

	"github.com/vocdoni/mercat-go/elgamal"
	"github.com/vocdoni/mercat-go/group"
	"github.com/vocdoni/mercat-go/merrors"
	"github.com/vocdoni/mercat-go/sigma"
	"github.com/vocdoni/mercat-go/transcript"
)

// --- Ciphertext-refreshment --------------------------------------------------
//
// Proves that two ciphertexts c, c' decrypt to the same value under the
// same secret key, without revealing that value or the key. Grounded in the
// teacher's Chaum-Pedersen discrete-log-equality proof
// (crypto/elgamal/proof.go): since P = sec·H and x = r·P, the relation
// c.x - c'.x == sec·(c.y - c'.y) is exactly a discrete-log equality between
// (H, P) and (D, E), where E = c.x - c'.x and D = c.y - c'.y.

// CiphertextRefreshmentInitialMessage is the Σ-protocol commitment (A, B).
type CiphertextRefreshmentInitialMessage struct {
	A *group.Point // k·H
	B *group.Point // k·D
}

// CiphertextRefreshmentFinalResponse is the Σ-protocol response z.
type CiphertextRefreshmentFinalResponse struct {
	Z *group.Scalar // k + χ·sec
}

func (im CiphertextRefreshmentInitialMessage) AppendToTranscript(t *transcript.Transcript) error {
	if err := t.AppendValidatedPoint("a", im.A); err != nil {
		return err
	}
	return t.AppendValidatedPoint("b", im.B)
}

// CiphertextRefreshmentProverAwaitingChallenge holds the secret key and the
// pair of ciphertexts being related.
type CiphertextRefreshmentProverAwaitingChallenge struct {
	Secret  *group.Scalar
	Cipher  elgamal.CipherText
	Refresh elgamal.CipherText
}

func (p CiphertextRefreshmentProverAwaitingChallenge) WitnessBytes() []byte {
	return p.Secret.Bytes()
}

func diffPoints(a, b *group.Point) *group.Point {
	return group.NewPoint().Add(a, group.NewPoint().Negate(b))
}

type refreshmentProver struct {
	secret *group.Scalar
	k      *group.Scalar
	d      *group.Point
}

func (p CiphertextRefreshmentProverAwaitingChallenge) GenerateInitialMessage(rng io.Reader) (sigma.Prover[CiphertextRefreshmentFinalResponse], sigma.InitialMessage) {
	k, err := group.RandomScalar(rng)
	if err != nil {
		panic(err)
	}
	d := diffPoints(p.Cipher.Y, p.Refresh.Y)

	a := group.NewPoint().ScalarMult(k, group.H())
	b := group.NewPoint().ScalarMult(k, d)

	return &refreshmentProver{secret: p.Secret, k: k, d: d},
		CiphertextRefreshmentInitialMessage{A: a, B: b}
}

func (p *refreshmentProver) ApplyChallenge(c *group.Scalar) CiphertextRefreshmentFinalResponse {
	z := group.NewScalar().Add(p.k, group.NewScalar().Multiply(c, p.secret))
	return CiphertextRefreshmentFinalResponse{Z: z}
}

// CiphertextRefreshmentVerifier checks the proof against the public key and
// the two ciphertexts.
type CiphertextRefreshmentVerifier struct {
	PubKey  *group.Point
	Cipher  elgamal.CipherText
	Refresh elgamal.CipherText
}

func (v CiphertextRefreshmentVerifier) Verify(c *group.Scalar, imAny sigma.InitialMessage, fr CiphertextRefreshmentFinalResponse) error {
	im := imAny.(CiphertextRefreshmentInitialMessage)

	e := diffPoints(v.Cipher.X, v.Refresh.X)
	d := diffPoints(v.Cipher.Y, v.Refresh.Y)

	// z·H == A + χ·P
	lhs1 := group.NewPoint().ScalarMult(fr.Z, group.H())
	rhs1 := group.NewPoint().Add(im.A, group.NewPoint().ScalarMult(c, v.PubKey))
	if lhs1.Equal(rhs1) != 1 {
		return merrors.NewRefreshmentCheckError(1)
	}

	// z·D == B + χ·E
	lhs2 := group.NewPoint().ScalarMult(fr.Z, d)
	rhs2 := group.NewPoint().Add(im.B, group.NewPoint().ScalarMult(c, e))
	if lhs2.Equal(rhs2) != 1 {
		return merrors.NewRefreshmentCheckError(2)
	}
	return nil
}

// ProveCiphertextRefreshment runs the non-interactive wrapper.
func ProveCiphertextRefreshment(rng io.Reader, secret *group.Scalar, cipher, refreshed elgamal.CipherText) (CiphertextRefreshmentInitialMessage, CiphertextRefreshmentFinalResponse, error) {
	im, fr, err := sigma.SinglePropertyProver[CiphertextRefreshmentFinalResponse](
		LabelCiphertextRefreshment,
		CiphertextRefreshmentProverAwaitingChallenge{Secret: secret, Cipher: cipher, Refresh: refreshed},
		rng,
	)
	if err != nil {
		return CiphertextRefreshmentInitialMessage{}, CiphertextRefreshmentFinalResponse{}, err
	}
	return im.(CiphertextRefreshmentInitialMessage), fr, nil
}

// VerifyCiphertextRefreshment runs the non-interactive verifier.
func VerifyCiphertextRefreshment(pub *group.Point, cipher, refreshed elgamal.CipherText, im CiphertextRefreshmentInitialMessage, fr CiphertextRefreshmentFinalResponse) error {
	return sigma.SinglePropertyVerifier[CiphertextRefreshmentFinalResponse](
		LabelCiphertextRefreshment,
		CiphertextRefreshmentVerifier{PubKey: pub, Cipher: cipher, Refresh: refreshed},
		im,
		fr,
	)
}
