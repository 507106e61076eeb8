// Package sigma implements the generic non-interactive Σ-protocol driver
// that the specific proofs in package proofs are built on: a 3-move
// commit/challenge/respond protocol rendered non-interactive via
// Fiat–Shamir. The membership, rangeproof and claim packages drive their
// transcripts directly instead.
//
// The challenge is never transmitted between prover and verifier. Equal
// transcripts over equal public inputs derive equal challenges, so a
// verifier re-derives it from the initial message rather than receiving it.
package sigma

import (
	"io"

	"github.com/vocdoni/mercat-go/group"
	"github.com/vocdoni/mercat-go/transcript"
)

// ProverAwaitingChallenge holds a secret witness and a public statement. It
// produces the first-round commitment (an InitialMessage) together with a
// Prover that can later apply a challenge.
type ProverAwaitingChallenge[F any] interface {
	// GenerateInitialMessage runs the commit step using randomness drawn
	// from rng, and returns the live prover plus the message to publish.
	GenerateInitialMessage(rng io.Reader) (Prover[F], InitialMessage)
}

// InitialMessage is the first-round commitment of a Σ-protocol. Concrete
// proof packages define their own struct satisfying this (empty) interface;
// it exists purely to document the role in the generic driver's signature.
type InitialMessage any

// Prover holds first-round randomness and completes the proof once a
// challenge is known.
type Prover[F any] interface {
	ApplyChallenge(c *group.Scalar) F
}

// Verifier checks a completed proof against a challenge, initial message and
// final response.
type Verifier[F any] interface {
	Verify(c *group.Scalar, im InitialMessage, fr F) error
}

// WitnessBytes is implemented by provers that want their secret witness
// mixed into the transcript-derived RNG, so nonce reuse stays infeasible
// even under a weak base RNG provided witnesses differ.
type WitnessBytes interface {
	WitnessBytes() []byte
}

// TranscriptAppender lets a concrete InitialMessage describe how it mixes
// itself into the Fiat–Shamir transcript before the challenge is drawn.
type TranscriptAppender interface {
	AppendToTranscript(t *transcript.Transcript) error
}

// SinglePropertyProver runs the five steps of the non-interactive wrapper
// every specific Σ-proof shares:
//  1. fresh transcript under label
//  2. transcript-bound RNG from (rng, witness bytes)
//  3. run the prover, append the initial message
//  4. derive the challenge, apply it
//  5. return (initial message, final response)
func SinglePropertyProver[F any](
	label string,
	p ProverAwaitingChallenge[F],
	rng io.Reader,
) (InitialMessage, F, error) {
	var zero F

	t := transcript.New(label)

	var witnessBytes [][]byte
	if wb, ok := p.(WitnessBytes); ok {
		witnessBytes = append(witnessBytes, wb.WitnessBytes())
	}
	tRng, err := t.BuildRng(rng, witnessBytes...)
	if err != nil {
		return nil, zero, err
	}

	prover, im := p.GenerateInitialMessage(tRng)

	if appender, ok := im.(TranscriptAppender); ok {
		if err := appender.AppendToTranscript(t); err != nil {
			return nil, zero, err
		}
	}

	c, err := t.ScalarChallenge(label + "/challenge")
	if err != nil {
		return nil, zero, err
	}

	fr := prover.ApplyChallenge(c)
	return im, fr, nil
}

// SinglePropertyVerifier mirrors SinglePropertyProver: it rebuilds the same
// transcript over the public initial message, re-derives the challenge, and
// checks the final response against it.
func SinglePropertyVerifier[F any](
	label string,
	v Verifier[F],
	im InitialMessage,
	fr F,
) error {
	t := transcript.New(label)

	if appender, ok := im.(TranscriptAppender); ok {
		if err := appender.AppendToTranscript(t); err != nil {
			return err
		}
	}

	c, err := t.ScalarChallenge(label + "/challenge")
	if err != nil {
		return err
	}

	return v.Verify(c, im, fr)
}
