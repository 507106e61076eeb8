// Command mercat-cli drives the account/issuance/transfer flow end to end
// against a single in-process run, the same "create → issue → transfer"
// shape the teacher's own cmd/cli exercises for its voting flow, standing
// in here for the MERCAT core's external collaborator contracts.
package main

import (
	"crypto/rand"
	"fmt"
	"time"

	flag "github.com/spf13/pflag"

	"github.com/vocdoni/mercat-go/account"
	"github.com/vocdoni/mercat-go/config"
	"github.com/vocdoni/mercat-go/elgamal"
	"github.com/vocdoni/mercat-go/group"
	"github.com/vocdoni/mercat-go/issuance"
	"github.com/vocdoni/mercat-go/log"
	"github.com/vocdoni/mercat-go/membership"
	"github.com/vocdoni/mercat-go/transfer"
)

var (
	logLevel      = flag.String("loglevel", config.DefaultLogLevel, "log level (debug, info, warn, error)")
	senderAsset   = flag.Uint64("asset", 1, "asset id shared by sender and receiver accounts")
	tickerFloor   = flag.Int("tickerN", 4, "ticker-list radix n (padded to n^m)")
	tickerDepth   = flag.Int("tickerM", 3, "ticker-list depth m (padded to n^m)")
	issueAmount   = flag.Uint64("issue", 20, "amount minted to the sender's account")
	transferAmt   = flag.Uint64("transfer", 5, "amount transferred from sender to receiver")
	amountCap     = flag.Uint64("mediatorCap", 0, "if > 0, reject transfers above this amount at the mediator")
)

func main() {
	flag.Parse()
	log.Init(*logLevel, config.DefaultLogOutput, nil)

	if err := run(); err != nil {
		log.Fatalf("run failed: %v", err)
	}
}

func run() error {
	rng := rand.Reader

	tickerList := []uint64{*senderAsset}
	paddedTickers, err := membership.PadList(tickerList, *tickerFloor, *tickerDepth)
	if err != nil {
		return fmt.Errorf("pad ticker list: %w", err)
	}

	senderPub, senderSec, err := account.CreateAccount(rng, 1, *senderAsset, paddedTickers, time.Now())
	if err != nil {
		return fmt.Errorf("create sender account: %w", err)
	}
	defer senderSec.Zeroize()
	log.Infow("sender account created", "accountID", senderPub.AccountID)

	receiverPub, receiverSec, err := account.CreateAccount(rng, 2, *senderAsset, paddedTickers, time.Now())
	if err != nil {
		return fmt.Errorf("create receiver account: %w", err)
	}
	defer receiverSec.Zeroize()
	log.Infow("receiver account created", "accountID", receiverPub.AccountID)

	mediatorEncKeys, err := elgamal.GenerateKeyPair(rng)
	if err != nil {
		return fmt.Errorf("generate mediator keys: %w", err)
	}
	defer mediatorEncKeys.Zeroize()
	mediatorSignKeys, err := account.GenerateSigningKeyPair(rng)
	if err != nil {
		return err
	}

	initTx, memoWitness, err := issuance.Initialize(rng, senderPub.AccountID, senderSec.EncKeys, senderSec.SignKeys,
		senderSec.AssetIDWitness, senderPub.EncAssetID, mediatorEncKeys.Public, *issueAmount)
	if err != nil {
		return fmt.Errorf("issuer initialize: %w", err)
	}

	justifiedTx, err := issuance.Justify(initTx, senderSec.EncKeys.Public, senderSec.SignKeys.Public,
		mediatorEncKeys, mediatorSignKeys, senderPub.EncBalance, config.DefaultIssuanceMaxAmount)
	if err != nil {
		return fmt.Errorf("mediator justify issuance: %w", err)
	}

	if err := issuance.Validate(justifiedTx, senderSec.EncKeys.Public, mediatorEncKeys.Public,
		senderSec.SignKeys.Public, mediatorSignKeys.Public); err != nil {
		return fmt.Errorf("validate issuance: %w", err)
	}
	senderPub.EncBalance = justifiedTx.UpdatedEncBalance
	updatedBalanceWitness, err := elgamal.NewWitness(senderSec.BalanceWitness.Value+*issueAmount,
		addScalars(senderSec.BalanceWitness.Blinding, memoWitness.Blinding))
	if err != nil {
		return fmt.Errorf("track post-issuance balance: %w", err)
	}
	senderSec.BalanceWitness = updatedBalanceWitness
	log.Infow("asset issuance validated", "amount", *issueAmount)

	initConfTx, newBalanceWitness, err := transfer.SenderInit(rng, senderPub.AccountID, receiverPub.AccountID,
		senderSec.EncKeys, senderSec.SignKeys,
		senderSec.BalanceWitness, senderPub.EncBalance,
		senderSec.AssetIDWitness, senderPub.EncAssetID,
		receiverSec.EncKeys.Public, *transferAmt, mediatorEncKeys.Public)
	if err != nil {
		return fmt.Errorf("sender init transfer: %w", err)
	}

	if err := transfer.ValidateInit(initConfTx, senderSec.SignKeys.Public, senderSec.EncKeys.Public,
		receiverSec.EncKeys.Public, senderPub.EncBalance, senderPub.EncAssetID); err != nil {
		return fmt.Errorf("validate sender init: %w", err)
	}

	var mediatorAmountCap *uint64
	if *amountCap > 0 {
		mediatorAmountCap = amountCap
	}
	justifiedConfTx, err := transfer.MediatorJustify(initConfTx, senderSec.EncKeys.Public, receiverSec.EncKeys.Public,
		mediatorEncKeys, mediatorSignKeys, senderPub.EncBalance, senderPub.EncAssetID, mediatorAmountCap)
	if err != nil {
		return fmt.Errorf("mediator justify transfer: %w", err)
	}
	if justifiedConfTx.Rejected {
		log.Warnw("mediator rejected transfer", "cap", *amountCap)
		return nil
	}

	finalTx, err := transfer.ReceiverFinalize(rng, justifiedConfTx, receiverSec.EncKeys, receiverSec.SignKeys,
		receiverPub.EncAssetID, *transferAmt)
	if err != nil {
		return fmt.Errorf("receiver finalize: %w", err)
	}

	if err := transfer.ValidateFinalization(finalTx, senderSec.SignKeys.Public, senderSec.EncKeys.Public,
		receiverSec.SignKeys.Public, receiverSec.EncKeys.Public, senderPub.EncBalance, senderPub.EncAssetID); err != nil {
		return fmt.Errorf("validate finalization: %w", err)
	}

	senderSec.BalanceWitness = newBalanceWitness
	senderPub.EncBalance = transfer.ApplySenderBalance(initConfTx.Memo)
	receiverPub.EncBalance = transfer.ApplyReceiverBalance(receiverPub.EncBalance, initConfTx.Memo)

	log.Infow("confidential transfer complete",
		"amount", *transferAmt,
		"senderAccountID", senderPub.AccountID,
		"receiverAccountID", receiverPub.AccountID)
	return nil
}

func addScalars(a, b *group.Scalar) *group.Scalar {
	return group.NewScalar().Add(a, b)
}
