package group_test

import (
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/vocdoni/mercat-go/group"
	"github.com/vocdoni/mercat-go/internal/testutil"
)

func TestRandomScalarDeterministic(t *testing.T) {
	c := qt.New(t)

	s1, err := group.RandomScalar(testutil.NewSeededReader(42))
	c.Assert(err, qt.IsNil)
	s2, err := group.RandomScalar(testutil.NewSeededReader(42))
	c.Assert(err, qt.IsNil)
	c.Assert(s1.Bytes(), qt.DeepEquals, s2.Bytes())

	s3, err := group.RandomScalar(testutil.NewSeededReader(7))
	c.Assert(err, qt.IsNil)
	c.Assert(s1.Bytes(), qt.Not(qt.DeepEquals), s3.Bytes())
}

func TestGAndHAreDistinctAndStable(t *testing.T) {
	c := qt.New(t)

	c.Assert(group.G().Equal(group.H()), qt.Not(qt.Equals), 1)
	c.Assert(group.G().Bytes(), qt.DeepEquals, group.G().Bytes())
	c.Assert(group.H().Bytes(), qt.DeepEquals, group.H().Bytes())
}

func TestCommitHomomorphism(t *testing.T) {
	c := qt.New(t)

	v1 := group.ScalarFromUint64(3)
	v2 := group.ScalarFromUint64(5)
	b1, err := group.RandomScalar(testutil.NewSeededReader(1))
	c.Assert(err, qt.IsNil)
	b2, err := group.RandomScalar(testutil.NewSeededReader(2))
	c.Assert(err, qt.IsNil)

	c1 := group.Commit(v1, b1)
	c2 := group.Commit(v2, b2)
	sum := group.NewPoint().Add(c1, c2)

	expected := group.Commit(group.NewScalar().Add(v1, v2), group.NewScalar().Add(b1, b2))
	c.Assert(sum.Equal(expected), qt.Equals, 1)
}

func TestDecodePointRejectsIdentity(t *testing.T) {
	c := qt.New(t)

	identity := group.NewPoint()
	_, err := group.DecodePoint(identity.Bytes())
	c.Assert(err, qt.IsNotNil)
}

func TestDecodePointRoundTrip(t *testing.T) {
	c := qt.New(t)

	p := group.NewPoint().ScalarBaseMult(group.ScalarFromUint64(9))
	decoded, err := group.DecodePoint(p.Bytes())
	c.Assert(err, qt.IsNil)
	c.Assert(p.Equal(decoded), qt.Equals, 1)
}

func TestPointFromUniformBytesDeterministic(t *testing.T) {
	c := qt.New(t)

	var wide [64]byte
	for i := range wide {
		wide[i] = 0x11
	}
	p1, err := group.PointFromUniformBytes(wide[:])
	c.Assert(err, qt.IsNil)
	p2, err := group.PointFromUniformBytes(wide[:])
	c.Assert(err, qt.IsNil)
	c.Assert(p1.Equal(p2), qt.Equals, 1)
}
