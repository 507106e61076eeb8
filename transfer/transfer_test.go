package transfer_test

import (
	"errors"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"

	"github.com/vocdoni/mercat-go/account"
	"github.com/vocdoni/mercat-go/elgamal"
	"github.com/vocdoni/mercat-go/group"
	"github.com/vocdoni/mercat-go/internal/testutil"
	"github.com/vocdoni/mercat-go/issuance"
	"github.com/vocdoni/mercat-go/membership"
	"github.com/vocdoni/mercat-go/merrors"
	"github.com/vocdoni/mercat-go/transfer"
)

// fundedAccounts builds a sender and receiver account sharing one asset id
// and issues senderBalance units to the sender, returning both accounts with
// the sender's BalanceWitness already tracking the issued amount.
func fundedAccounts(t *testing.T, seed byte, senderBalance uint64) (*account.PubAccountContent, *account.SecAccount, *account.PubAccountContent, *account.SecAccount) {
	t.Helper()
	rng := testutil.NewSeededReader(seed)
	padded, err := membership.PadList([]uint64{7}, 2, 2)
	qt.Assert(t, err, qt.IsNil)

	senderPub, senderSec, err := account.CreateAccount(rng, 1, 7, padded, time.Now())
	qt.Assert(t, err, qt.IsNil)
	receiverPub, receiverSec, err := account.CreateAccount(rng, 2, 7, padded, time.Now())
	qt.Assert(t, err, qt.IsNil)

	if senderBalance == 0 {
		return senderPub, senderSec, receiverPub, receiverSec
	}

	mediatorEncKeys, err := elgamal.GenerateKeyPair(rng)
	qt.Assert(t, err, qt.IsNil)
	mediatorSignKeys, err := account.GenerateSigningKeyPair(rng)
	qt.Assert(t, err, qt.IsNil)

	initTx, memoWitness, err := issuance.Initialize(rng, senderPub.AccountID, senderSec.EncKeys, senderSec.SignKeys,
		senderSec.AssetIDWitness, senderPub.EncAssetID, mediatorEncKeys.Public, senderBalance)
	qt.Assert(t, err, qt.IsNil)

	justified, err := issuance.Justify(initTx, senderSec.EncKeys.Public, senderSec.SignKeys.Public,
		mediatorEncKeys, mediatorSignKeys, senderPub.EncBalance, 1<<20)
	qt.Assert(t, err, qt.IsNil)

	qt.Assert(t, issuance.Validate(justified, senderSec.EncKeys.Public, mediatorEncKeys.Public,
		senderSec.SignKeys.Public, mediatorSignKeys.Public), qt.IsNil)

	senderPub.EncBalance = justified.UpdatedEncBalance
	updatedWitness, err := elgamal.NewWitness(senderSec.BalanceWitness.Value+senderBalance,
		group.NewScalar().Add(senderSec.BalanceWitness.Blinding, memoWitness.Blinding))
	qt.Assert(t, err, qt.IsNil)
	senderSec.BalanceWitness = updatedWitness

	return senderPub, senderSec, receiverPub, receiverSec
}

// TestTransferHappyPath mirrors the seed scenario: sender balance 40,
// receiver balance 0, transferring 30 must leave the sender at 10 and the
// receiver at 30, with every validation step returning Validated.
func TestTransferHappyPath(t *testing.T) {
	c := qt.New(t)

	senderPub, senderSec, receiverPub, receiverSec := fundedAccounts(t, 50, 40)
	defer senderSec.Zeroize()
	defer receiverSec.Zeroize()

	rng := testutil.NewSeededReader(51)
	initTx, newBalanceWitness, err := transfer.SenderInit(rng, senderPub.AccountID, receiverPub.AccountID,
		senderSec.EncKeys, senderSec.SignKeys, senderSec.BalanceWitness, senderPub.EncBalance,
		senderSec.AssetIDWitness, senderPub.EncAssetID, receiverSec.EncKeys.Public, 30, nil)
	c.Assert(err, qt.IsNil)

	c.Assert(transfer.ValidateInit(initTx, senderSec.SignKeys.Public, senderSec.EncKeys.Public,
		receiverSec.EncKeys.Public, senderPub.EncBalance, senderPub.EncAssetID), qt.IsNil)

	mediatorEncKeys, err := elgamal.GenerateKeyPair(rng)
	c.Assert(err, qt.IsNil)
	mediatorSignKeys, err := account.GenerateSigningKeyPair(rng)
	c.Assert(err, qt.IsNil)

	justifiedTx, err := transfer.MediatorJustify(initTx, senderSec.EncKeys.Public, receiverSec.EncKeys.Public,
		mediatorEncKeys, mediatorSignKeys, senderPub.EncBalance, senderPub.EncAssetID, nil)
	c.Assert(err, qt.IsNil)
	c.Assert(justifiedTx.Rejected, qt.IsFalse)

	finalTx, err := transfer.ReceiverFinalize(rng, justifiedTx, receiverSec.EncKeys, receiverSec.SignKeys,
		receiverPub.EncAssetID, 30)
	c.Assert(err, qt.IsNil)

	c.Assert(transfer.ValidateFinalization(finalTx, senderSec.SignKeys.Public, senderSec.EncKeys.Public,
		receiverSec.SignKeys.Public, receiverSec.EncKeys.Public, senderPub.EncBalance, senderPub.EncAssetID), qt.IsNil)

	senderSec.BalanceWitness = newBalanceWitness
	newSenderBalance := transfer.ApplySenderBalance(initTx.Memo)
	newReceiverBalance := transfer.ApplyReceiverBalance(receiverPub.EncBalance, initTx.Memo)

	got, err := elgamal.DecryptSmall(senderSec.EncKeys.Secret, newSenderBalance, 1<<20)
	c.Assert(err, qt.IsNil)
	c.Assert(got, qt.Equals, uint64(10))

	got, err = elgamal.DecryptSmall(receiverSec.EncKeys.Secret, newReceiverBalance, 1<<20)
	c.Assert(err, qt.IsNil)
	c.Assert(got, qt.Equals, uint64(30))
}

// TestTransferInsufficientFunds mirrors the seed scenario: a sender with
// balance 5 attempting to send 10 must fail at SenderInit with NotEnoughFund.
func TestTransferInsufficientFunds(t *testing.T) {
	c := qt.New(t)

	senderPub, senderSec, receiverPub, receiverSec := fundedAccounts(t, 52, 5)
	defer senderSec.Zeroize()
	defer receiverSec.Zeroize()

	rng := testutil.NewSeededReader(53)
	_, _, err := transfer.SenderInit(rng, senderPub.AccountID, receiverPub.AccountID,
		senderSec.EncKeys, senderSec.SignKeys, senderSec.BalanceWitness, senderPub.EncBalance,
		senderSec.AssetIDWitness, senderPub.EncAssetID, receiverSec.EncKeys.Public, 10, nil)

	var notEnough *merrors.NotEnoughFund
	c.Assert(errors.As(err, &notEnough), qt.IsTrue)
	c.Assert(notEnough.Balance, qt.Equals, uint64(5))
	c.Assert(notEnough.TransactionAmount, qt.Equals, uint64(10))
}

// TestTransferAmountMismatchAtReceiver mirrors the seed scenario: the sender
// encrypts 10 but the receiver expects 20, which ReceiverFinalize must catch.
func TestTransferAmountMismatchAtReceiver(t *testing.T) {
	c := qt.New(t)

	senderPub, senderSec, receiverPub, receiverSec := fundedAccounts(t, 54, 40)
	defer senderSec.Zeroize()
	defer receiverSec.Zeroize()

	rng := testutil.NewSeededReader(55)
	initTx, _, err := transfer.SenderInit(rng, senderPub.AccountID, receiverPub.AccountID,
		senderSec.EncKeys, senderSec.SignKeys, senderSec.BalanceWitness, senderPub.EncBalance,
		senderSec.AssetIDWitness, senderPub.EncAssetID, receiverSec.EncKeys.Public, 10, nil)
	c.Assert(err, qt.IsNil)

	c.Assert(transfer.ValidateInit(initTx, senderSec.SignKeys.Public, senderSec.EncKeys.Public,
		receiverSec.EncKeys.Public, senderPub.EncBalance, senderPub.EncAssetID), qt.IsNil)

	mediatorEncKeys, err := elgamal.GenerateKeyPair(rng)
	c.Assert(err, qt.IsNil)
	mediatorSignKeys, err := account.GenerateSigningKeyPair(rng)
	c.Assert(err, qt.IsNil)

	justifiedTx, err := transfer.MediatorJustify(initTx, senderSec.EncKeys.Public, receiverSec.EncKeys.Public,
		mediatorEncKeys, mediatorSignKeys, senderPub.EncBalance, senderPub.EncAssetID, nil)
	c.Assert(err, qt.IsNil)

	_, err = transfer.ReceiverFinalize(rng, justifiedTx, receiverSec.EncKeys, receiverSec.SignKeys,
		receiverPub.EncAssetID, 20)

	var mismatch *merrors.TransactionAmountMismatch
	c.Assert(errors.As(err, &mismatch), qt.IsTrue)
	c.Assert(mismatch.Expected, qt.Equals, uint64(20))
	c.Assert(mismatch.Received, qt.Equals, uint64(10))
}

// TestTransferMediatorCapRejectsOverage exercises the supplemented
// mediator-cap feature: a transfer above the cap is rejected, not errored,
// and carries the rejection forward as an auditable fact.
func TestTransferMediatorCapRejectsOverage(t *testing.T) {
	c := qt.New(t)

	senderPub, senderSec, receiverPub, receiverSec := fundedAccounts(t, 56, 40)
	defer senderSec.Zeroize()
	defer receiverSec.Zeroize()

	rng := testutil.NewSeededReader(57)
	mediatorEncKeys, err := elgamal.GenerateKeyPair(rng)
	c.Assert(err, qt.IsNil)
	mediatorSignKeys, err := account.GenerateSigningKeyPair(rng)
	c.Assert(err, qt.IsNil)

	initTx, _, err := transfer.SenderInit(rng, senderPub.AccountID, receiverPub.AccountID,
		senderSec.EncKeys, senderSec.SignKeys, senderSec.BalanceWitness, senderPub.EncBalance,
		senderSec.AssetIDWitness, senderPub.EncAssetID, receiverSec.EncKeys.Public, 30, mediatorEncKeys.Public)
	c.Assert(err, qt.IsNil)

	c.Assert(transfer.ValidateInit(initTx, senderSec.SignKeys.Public, senderSec.EncKeys.Public,
		receiverSec.EncKeys.Public, senderPub.EncBalance, senderPub.EncAssetID), qt.IsNil)

	cap := uint64(10)
	justifiedTx, err := transfer.MediatorJustify(initTx, senderSec.EncKeys.Public, receiverSec.EncKeys.Public,
		mediatorEncKeys, mediatorSignKeys, senderPub.EncBalance, senderPub.EncAssetID, &cap)
	c.Assert(err, qt.IsNil)
	c.Assert(justifiedTx.Rejected, qt.IsTrue)

	_, err = transfer.ReceiverFinalize(rng, justifiedTx, receiverSec.EncKeys, receiverSec.SignKeys,
		receiverPub.EncAssetID, 30)
	c.Assert(err, qt.ErrorIs, merrors.ErrMediatorRejected)
}
