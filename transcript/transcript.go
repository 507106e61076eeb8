// Package transcript implements the domain-separated Fiat–Shamir transcript
// used by every Σ-proof in the MERCAT core. It wraps
// github.com/codahale/thyrse, a Strobe-like sponge protocol, the same way
// the reference implementation wraps merlin: every public value that feeds
// a challenge is mixed into the sponge before the challenge is squeezed, so
// two honest provers over the same statement derive byte-identical
// challenges: transcripts are deterministic in their public inputs.
package transcript

import (
	"fmt"
	"io"

	"github.com/codahale/thyrse"
	"github.com/vocdoni/mercat-go/group"
	"github.com/vocdoni/mercat-go/merrors"
)

// Transcript is an append-only log over a domain-separated sponge.
type Transcript struct {
	proto *thyrse.Protocol
}

// New starts a fresh transcript under the given domain label. Domain labels
// must be used verbatim across implementations so that independently
// produced proofs of the same kind are challenge-compatible (see the
// per-proof labels in the proofs/membership/rangeproof packages).
func New(label string) *Transcript {
	return &Transcript{proto: thyrse.New(label)}
}

// AppendDomainSeparator mixes in a label with no associated data, marking
// the start of a logically distinct sub-statement within one transcript.
func (t *Transcript) AppendDomainSeparator(label string) {
	t.proto.Mix(label, nil)
}

// AppendValidatedPoint mixes a compressed point into the transcript. It
// rejects the group identity: an adversary who could get the identity point
// accepted here could inject a predictable, subgroup-confined value into the
// sponge state and bias a downstream challenge.
func (t *Transcript) AppendValidatedPoint(label string, p *group.Point) error {
	if group.IsIdentity(p) {
		return merrors.ErrVerification
	}
	t.proto.Mix(label, p.Bytes())
	return nil
}

// AppendScalar mixes a scalar's canonical byte encoding into the transcript.
func (t *Transcript) AppendScalar(label string, s *group.Scalar) {
	t.proto.Mix(label, s.Bytes())
}

// AppendUint64 mixes a small public integer (account ids, amounts that are
// intentionally public, list sizes) into the transcript.
func (t *Transcript) AppendUint64(label string, v uint64) {
	var buf [8]byte
	for i := 0; i < 8; i++ {
		buf[i] = byte(v >> (8 * i))
	}
	t.proto.Mix(label, buf[:])
}

// ScalarChallenge squeezes 64 bytes from the transcript under label,
// reduces them modulo the scalar field order, and rejects the all-zero
// challenge by re-deriving under a salted sub-label (a zero challenge would
// let a cheating prover skip every secret-dependent term).
func (t *Transcript) ScalarChallenge(label string) (*group.Scalar, error) {
	for attempt := 0; ; attempt++ {
		sub := label
		if attempt > 0 {
			sub = fmt.Sprintf("%s/retry%d", label, attempt)
		}
		raw := t.proto.Derive(sub, nil, 64)
		c, err := group.NewScalar().SetUniformBytes(raw)
		if err != nil {
			return nil, fmt.Errorf("transcript: failed to derive challenge: %w", err)
		}
		if c.Equal(group.NewScalar()) != 1 {
			return c, nil
		}
	}
}

// transcriptRng is an io.Reader that derives a fresh, unique keystream from
// a forked transcript state. Because the fork was seeded with both the
// caller's base RNG and the prover's secret witness bytes, a broken or
// predictable base RNG does not produce predictable nonces as long as the
// witness is unique to this proof.
type transcriptRng struct {
	proto   *thyrse.Protocol
	counter uint64
}

func (r *transcriptRng) Read(p []byte) (int, error) {
	var ctr [8]byte
	for i := 0; i < 8; i++ {
		ctr[i] = byte(r.counter >> (8 * i))
	}
	r.counter++
	out := r.proto.Derive("mercat/transcript-rng/chunk", nil, len(p))
	copy(p, out)
	// Mix the counter back in so repeated Read calls on the same reader
	// never replay the same keystream chunk.
	r.proto.Mix("mercat/transcript-rng/ctr", ctr[:])
	return len(p), nil
}

// BuildRng derives a transcript-bound RNG by forking the transcript's sponge
// state and mixing in the caller-provided base randomness together with the
// prover's secret witness bytes. The witnesses are never kept past this
// call: the caller is responsible for zeroizing its own witness copy.
func (t *Transcript) BuildRng(base io.Reader, witnesses ...[]byte) (io.Reader, error) {
	seed := make([]byte, 64)
	if _, err := io.ReadFull(base, seed); err != nil {
		return nil, fmt.Errorf("transcript: failed to read base randomness: %w", err)
	}
	forked, _ := t.proto.Fork("mercat/transcript-rng/fork", []byte("rng"), []byte("unused"))
	forked.Mix("mercat/transcript-rng/base", seed)
	for i, w := range witnesses {
		forked.Mix(fmt.Sprintf("mercat/transcript-rng/witness%d", i), w)
	}
	return &transcriptRng{proto: forked}, nil
}
