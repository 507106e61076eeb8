// Package testutil provides deterministic fixtures shared by the MERCAT
// core's test suites: a seeded, reproducible randomness source, mirroring
// the teacher's own internal/testutil
// role of keeping test setup out of the package-under-test.
package testutil

import (
	"crypto/sha512"
	"encoding/binary"
	"io"
)

// SeededReader is a deterministic io.Reader expanding a fixed seed byte into
// an arbitrarily long stream via counter-mode SHA-512, so the same seed
// always reproduces the same sequence of "random" scalars and points across
// test runs. It is a test fixture only: never use it as a real source of
// randomness.
type SeededReader struct {
	seed    byte
	counter uint64
	buf     []byte
}

// NewSeededReader returns a reader equivalent to the specification's
// "seed [42;32]" notation: every byte in each expanded block derives from
// repeating the given seed byte.
func NewSeededReader(seed byte) *SeededReader {
	return &SeededReader{seed: seed}
}

func (r *SeededReader) Read(p []byte) (int, error) {
	n := 0
	for n < len(p) {
		if len(r.buf) == 0 {
			var block [32]byte
			for i := range block {
				block[i] = r.seed
			}
			var ctr [8]byte
			binary.BigEndian.PutUint64(ctr[:], r.counter)
			r.counter++
			digest := sha512.Sum512(append(block[:], ctr[:]...))
			r.buf = digest[:]
		}
		copied := copy(p[n:], r.buf)
		r.buf = r.buf[copied:]
		n += copied
	}
	return n, nil
}

var _ io.Reader = (*SeededReader)(nil)
