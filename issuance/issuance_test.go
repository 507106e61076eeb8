package issuance_test

import (
	"testing"
	"time"

	qt "github.com/frankban/quicktest"

	"github.com/vocdoni/mercat-go/account"
	"github.com/vocdoni/mercat-go/elgamal"
	"github.com/vocdoni/mercat-go/internal/testutil"
	"github.com/vocdoni/mercat-go/issuance"
	"github.com/vocdoni/mercat-go/membership"
)

func setupAccount(t *testing.T) (*account.PubAccountContent, *account.SecAccount) {
	t.Helper()
	rng := testutil.NewSeededReader(42)
	padded, err := membership.PadList([]uint64{1}, 2, 2)
	qt.Assert(t, err, qt.IsNil)
	pub, sec, err := account.CreateAccount(rng, 1, 1, padded, time.Now())
	qt.Assert(t, err, qt.IsNil)
	return pub, sec
}

// TestIssuanceHappyPath mirrors the seed scenario: issuing 20 units to a
// fresh account must leave its balance decrypting to 20 and its asset id
// unchanged.
func TestIssuanceHappyPath(t *testing.T) {
	c := qt.New(t)

	pub, sec := setupAccount(t)
	defer sec.Zeroize()

	rng := testutil.NewSeededReader(10)
	mediatorEncKeys, err := elgamal.GenerateKeyPair(rng)
	c.Assert(err, qt.IsNil)
	defer mediatorEncKeys.Zeroize()
	mediatorSignKeys, err := account.GenerateSigningKeyPair(rng)
	c.Assert(err, qt.IsNil)

	initTx, memoWitness, err := issuance.Initialize(rng, pub.AccountID, sec.EncKeys, sec.SignKeys,
		sec.AssetIDWitness, pub.EncAssetID, mediatorEncKeys.Public, 20)
	c.Assert(err, qt.IsNil)

	justified, err := issuance.Justify(initTx, sec.EncKeys.Public, sec.SignKeys.Public,
		mediatorEncKeys, mediatorSignKeys, pub.EncBalance, 1<<20)
	c.Assert(err, qt.IsNil)

	c.Assert(issuance.Validate(justified, sec.EncKeys.Public, mediatorEncKeys.Public,
		sec.SignKeys.Public, mediatorSignKeys.Public), qt.IsNil)

	balance, err := elgamal.DecryptSmall(sec.EncKeys.Secret, justified.UpdatedEncBalance, 1<<20)
	c.Assert(err, qt.IsNil)
	c.Assert(balance, qt.Equals, uint64(20))
	c.Assert(memoWitness, qt.IsNotNil)

	assetID, err := elgamal.DecryptSmall(sec.EncKeys.Secret, initTx.EncAssetID, 1<<10)
	c.Assert(err, qt.IsNil)
	c.Assert(assetID, qt.Equals, uint64(1))
}

// TestIssuanceBadIssuerSignatureFailsAtMediator mirrors the seed scenario:
// corrupting the issuer's signature must be rejected at the mediator's
// Justify step, before any countersignature is produced.
func TestIssuanceBadIssuerSignatureFailsAtMediator(t *testing.T) {
	c := qt.New(t)

	pub, sec := setupAccount(t)
	defer sec.Zeroize()

	rng := testutil.NewSeededReader(11)
	mediatorEncKeys, err := elgamal.GenerateKeyPair(rng)
	c.Assert(err, qt.IsNil)
	defer mediatorEncKeys.Zeroize()
	mediatorSignKeys, err := account.GenerateSigningKeyPair(rng)
	c.Assert(err, qt.IsNil)

	initTx, _, err := issuance.Initialize(rng, pub.AccountID, sec.EncKeys, sec.SignKeys,
		sec.AssetIDWitness, pub.EncAssetID, mediatorEncKeys.Public, 20)
	c.Assert(err, qt.IsNil)

	badSig := make([]byte, 64)
	for i := range badSig {
		badSig[i] = 0x80
	}
	initTx.Signature = badSig

	_, err = issuance.Justify(initTx, sec.EncKeys.Public, sec.SignKeys.Public,
		mediatorEncKeys, mediatorSignKeys, pub.EncBalance, 1<<20)
	c.Assert(err, qt.IsNotNil)
}
