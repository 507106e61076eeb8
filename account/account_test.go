package account_test

import (
	"testing"
	"time"

	qt "github.com/frankban/quicktest"

	"github.com/vocdoni/mercat-go/account"
	"github.com/vocdoni/mercat-go/elgamal"
	"github.com/vocdoni/mercat-go/internal/testutil"
	"github.com/vocdoni/mercat-go/membership"
)

// TestCreateAccount mirrors the seed scenario: asset_id 1, ticker list
// [1,2,...,4^3] padded via 4^3, fresh keys, a deterministic seed. The
// resulting account must decrypt to a zero balance and every carried proof
// must verify.
func TestCreateAccount(t *testing.T) {
	c := qt.New(t)

	rng := testutil.NewSeededReader(42)

	tickerList := make([]uint64, 0, 64)
	for v := uint64(1); v <= 64; v++ {
		tickerList = append(tickerList, v)
	}
	padded, err := membership.PadList(tickerList, 4, 3)
	c.Assert(err, qt.IsNil)

	pub, sec, err := account.CreateAccount(rng, 1, 1, padded, time.Now())
	c.Assert(err, qt.IsNil)
	defer sec.Zeroize()

	c.Assert(account.VerifyAccount(pub, padded), qt.IsNil)

	balance, err := elgamal.DecryptSmall(sec.EncKeys.Secret, pub.EncBalance, 100)
	c.Assert(err, qt.IsNil)
	c.Assert(balance, qt.Equals, uint64(0))
	c.Assert(sec.BalanceWitness.Value, qt.Equals, uint64(0))
}

func TestVerifyAccountRejectsTamperedSignature(t *testing.T) {
	c := qt.New(t)

	rng := testutil.NewSeededReader(43)
	padded, err := membership.PadList([]uint64{1}, 2, 2)
	c.Assert(err, qt.IsNil)

	pub, sec, err := account.CreateAccount(rng, 1, 1, padded, time.Now())
	c.Assert(err, qt.IsNil)
	defer sec.Zeroize()

	pub.Signature[0] ^= 0xff
	c.Assert(account.VerifyAccount(pub, padded), qt.IsNotNil)
}
