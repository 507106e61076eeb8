// Package config collects the tunables shared across the MERCAT core: the
// range-proof bit width, the claim protocol's anonymity floor, and the
// logging defaults, the same flat const/var layout the teacher uses for its
// own deployment configuration.
package config

import "github.com/vocdoni/mercat-go/rangeproof"

const (
	// DefaultLogLevel is used when a caller does not specify one.
	DefaultLogLevel = "info"
	// DefaultLogOutput is used when a caller does not specify one.
	DefaultLogOutput = "stdout"
)

const (
	// RangeProofBits is the bit width every amount and balance range proof
	// in the core is sized for, matching the accounting plaintext domain
	// of [0, 2^32).
	RangeProofBits = rangeproof.MaxBits

	// DefaultClaimAnonymitySetFloor is the minimum anonymity set size a
	// verifier pads a claim-proof UID list to when none is specified.
	DefaultClaimAnonymitySetFloor = 20

	// DefaultIssuanceMaxAmount bounds the amounts issuance.Justify's bounded
	// decryption (elgamal.DecryptSmall) will search for, keeping the
	// baby-step/giant-step search space fixed at the accounting domain.
	DefaultIssuanceMaxAmount = uint64(1) << RangeProofBits
)
