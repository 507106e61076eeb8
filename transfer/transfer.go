// Package transfer implements the four-actor confidential-transfer state
// machine: a sender moves an amount between two accounts, a
// sender-validator checks the sender's six proofs, an optional mediator
// decrypts and may reject, a receiver confirms and countersigns, and a
// receiver-validator re-checks everything before the balances move.
package transfer

import (
	"bytes"
	"fmt"
	"io"

	"github.com/codahale/thyrse/schemes/complex/sig"
	"github.com/fxamacker/cbor/v2"

	"github.com/vocdoni/mercat-go/account"
	"github.com/vocdoni/mercat-go/elgamal"
	"github.com/vocdoni/mercat-go/group"
	"github.com/vocdoni/mercat-go/merrors"
	"github.com/vocdoni/mercat-go/proofs"
	"github.com/vocdoni/mercat-go/rangeproof"
)

// SigningContext is the domain label mixed into every transfer signature.
const SigningContext = "mercat/confidential-transfer"

// State is the stage a confidential transfer envelope occupies. The five
// named stages of the state machine (Initialization,
// InitializationJustification, Finalization, FinalizationJustification,
// Reversal) each carry a Started/Validated sub-state; Reversal's operation
// is not specified beyond its name, so only its states are exposed here.
type State uint8

const (
	StateInitializationStarted = State(iota)
	StateInitializationValidated
	StateInitializationJustificationStarted
	StateInitializationJustificationValidated
	StateFinalizationStarted
	StateFinalizationValidated
	StateFinalizationJustificationStarted
	StateFinalizationJustificationValidated
	StateReversalStarted
	StateReversalValidated

	StateInitializationStartedName                 = "initialization-started"
	StateInitializationValidatedName                = "initialization-validated"
	StateInitializationJustificationStartedName     = "initialization-justification-started"
	StateInitializationJustificationValidatedName   = "initialization-justification-validated"
	StateFinalizationStartedName                    = "finalization-started"
	StateFinalizationValidatedName                  = "finalization-validated"
	StateFinalizationJustificationStartedName       = "finalization-justification-started"
	StateFinalizationJustificationValidatedName     = "finalization-justification-validated"
	StateReversalStartedName                        = "reversal-started"
	StateReversalValidatedName                      = "reversal-validated"
)

func (s State) String() string {
	switch s {
	case StateInitializationStarted:
		return StateInitializationStartedName
	case StateInitializationValidated:
		return StateInitializationValidatedName
	case StateInitializationJustificationStarted:
		return StateInitializationJustificationStartedName
	case StateInitializationJustificationValidated:
		return StateInitializationJustificationValidatedName
	case StateFinalizationStarted:
		return StateFinalizationStartedName
	case StateFinalizationValidated:
		return StateFinalizationValidatedName
	case StateFinalizationJustificationStarted:
		return StateFinalizationJustificationStartedName
	case StateFinalizationJustificationValidated:
		return StateFinalizationJustificationValidatedName
	case StateReversalStarted:
		return StateReversalStartedName
	case StateReversalValidated:
		return StateReversalValidatedName
	default:
		return "unknown"
	}
}

// ConfidentialTxMemo is the public envelope the sender bundles and signs.
type ConfidentialTxMemo struct {
	SenderAccountID     uint32
	ReceiverAccountID   uint32
	EncAmountSndr       elgamal.CipherText
	EncAmountRcvr       elgamal.CipherText
	SenderPubKey        *group.Point
	ReceiverPubKey      *group.Point
	RefreshedEncBalance elgamal.CipherText
	RefreshedEncAssetID elgamal.CipherText
	EncAssetIDRcvr      elgamal.CipherText

	// EncAmountMdtr is set only when the sender opts a mediator into
	// enforcing an amount cap; nil otherwise (new, supplemented feature).
	EncAmountMdtr *elgamal.CipherText
}

// InitConfidentialTx is the sender's proposal, with its six binding proofs.
type InitConfidentialTx struct {
	State State
	Memo  ConfidentialTxMemo

	AmountSameValueIM proofs.EncryptingSameValueInitialMessage
	AmountSameValueFR proofs.EncryptingSameValueFinalResponse

	AmountRangeProof rangeproof.Proof

	BalanceRefreshIM proofs.CiphertextRefreshmentInitialMessage
	BalanceRefreshFR proofs.CiphertextRefreshmentFinalResponse

	AssetIDRefreshIM proofs.CiphertextRefreshmentInitialMessage
	AssetIDRefreshFR proofs.CiphertextRefreshmentFinalResponse

	EnoughFundRangeProof rangeproof.Proof

	AssetIDSameValueIM proofs.EncryptingSameValueInitialMessage
	AssetIDSameValueFR proofs.EncryptingSameValueFinalResponse

	Signature []byte
}

// InitJustifiedConfidentialTx is an InitConfidentialTx plus the mediator's
// decision and, if it chose to check, whether it rejected the transfer.
type InitJustifiedConfidentialTx struct {
	State             State
	Init              InitConfidentialTx
	Rejected          bool
	MediatorSignature []byte
}

// FinalConfidentialTx is a justified transfer plus the receiver's
// confirmation that it is being paid the right amount in the right asset.
type FinalConfidentialTx struct {
	State State
	Init  InitJustifiedConfidentialTx

	ReceiverAssetIDRefreshIM proofs.CiphertextRefreshmentInitialMessage
	ReceiverAssetIDRefreshFR proofs.CiphertextRefreshmentFinalResponse

	ReceiverSignature []byte
}

// RangeProofBits is the bit width used for every range proof in the
// transfer protocol, matching the account core's plaintext bound.
const RangeProofBits = rangeproof.MaxBits

func memoPayload(m ConfidentialTxMemo) ([]byte, error) {
	type payload struct {
		SenderAccountID, ReceiverAccountID uint32
		AmountSndrX, AmountSndrY           []byte
		AmountRcvrX, AmountRcvrY           []byte
		SenderPubKey, ReceiverPubKey       []byte
		BalanceX, BalanceY                 []byte
		AssetIDX, AssetIDY                 []byte
		AssetIDRcvrX, AssetIDRcvrY         []byte
		AmountMdtrX, AmountMdtrY           []byte
	}
	p := payload{
		SenderAccountID:   m.SenderAccountID,
		ReceiverAccountID: m.ReceiverAccountID,
		AmountSndrX:       m.EncAmountSndr.X.Bytes(),
		AmountSndrY:       m.EncAmountSndr.Y.Bytes(),
		AmountRcvrX:       m.EncAmountRcvr.X.Bytes(),
		AmountRcvrY:       m.EncAmountRcvr.Y.Bytes(),
		SenderPubKey:      m.SenderPubKey.Bytes(),
		ReceiverPubKey:    m.ReceiverPubKey.Bytes(),
		BalanceX:          m.RefreshedEncBalance.X.Bytes(),
		BalanceY:          m.RefreshedEncBalance.Y.Bytes(),
		AssetIDX:          m.RefreshedEncAssetID.X.Bytes(),
		AssetIDY:          m.RefreshedEncAssetID.Y.Bytes(),
		AssetIDRcvrX:      m.EncAssetIDRcvr.X.Bytes(),
		AssetIDRcvrY:      m.EncAssetIDRcvr.Y.Bytes(),
	}
	if m.EncAmountMdtr != nil {
		p.AmountMdtrX = m.EncAmountMdtr.X.Bytes()
		p.AmountMdtrY = m.EncAmountMdtr.Y.Bytes()
	}
	return cbor.Marshal(p)
}

// SenderInit performs the sender's step of the protocol. balanceWitness and
// assetIDWitness are the sender's tracked opening of its current
// encBalance/encAssetID ciphertexts (a wallet must keep these, the same way
// it must keep every other secret witness, since ciphertext addition alone
// does not let the holder recover the blinding of the result). If
// mediatorEncPub is non-nil, amount is additionally encrypted to the
// mediator so it can enforce a cap. The returned witness is the sender's
// new balance opening, to replace its SecAccount.BalanceWitness once
// ValidateFinalization succeeds.
func SenderInit(
	rng io.Reader,
	senderAccountID, receiverAccountID uint32,
	senderEncKeys *elgamal.KeyPair,
	senderSignKeys *account.SigningKeyPair,
	balanceWitness *elgamal.Witness,
	currentEncBalance elgamal.CipherText,
	assetIDWitness *elgamal.Witness,
	currentEncAssetID elgamal.CipherText,
	receiverEncPub *group.Point,
	amount uint64,
	mediatorEncPub *group.Point,
) (*InitConfidentialTx, *elgamal.Witness, error) {
	if amount > balanceWitness.Value {
		return nil, nil, &merrors.NotEnoughFund{Balance: balanceWitness.Value, TransactionAmount: amount}
	}

	rA, err := group.RandomScalar(rng)
	if err != nil {
		return nil, nil, err
	}
	amountWitness, err := elgamal.NewWitness(amount, rA)
	if err != nil {
		return nil, nil, err
	}
	encAmountSndr, encAmountRcvr := elgamal.EncryptSameValueTwoKeys(senderEncKeys.Public, receiverEncPub, amountWitness)
	amountSameIM, amountSameFR, err := proofs.ProveEncryptingSameValue(rng, amountWitness, senderEncKeys.Public, receiverEncPub)
	if err != nil {
		return nil, nil, err
	}

	amountRangeProof, err := rangeproof.Prove(rng, amountWitness, RangeProofBits)
	if err != nil {
		return nil, nil, err
	}

	rB, err := group.RandomScalar(rng)
	if err != nil {
		return nil, nil, err
	}
	refreshedEncBalance := elgamal.Refresh(senderEncKeys.Public, currentEncBalance, rB)
	balanceRefreshIM, balanceRefreshFR, err := proofs.ProveCiphertextRefreshment(rng, senderEncKeys.Secret, currentEncBalance, refreshedEncBalance)
	if err != nil {
		return nil, nil, err
	}
	newBalanceBlinding := group.NewScalar().Add(balanceWitness.Blinding, rB)

	rC, err := group.RandomScalar(rng)
	if err != nil {
		return nil, nil, err
	}
	refreshedEncAssetID := elgamal.Refresh(senderEncKeys.Public, currentEncAssetID, rC)
	assetIDRefreshIM, assetIDRefreshFR, err := proofs.ProveCiphertextRefreshment(rng, senderEncKeys.Secret, currentEncAssetID, refreshedEncAssetID)
	if err != nil {
		return nil, nil, err
	}
	newAssetIDBlinding := group.NewScalar().Add(assetIDWitness.Blinding, rC)

	enoughFundBlinding := group.NewScalar().Subtract(newBalanceBlinding, rA)
	enoughFundWitness, err := elgamal.NewWitness(balanceWitness.Value-amount, enoughFundBlinding)
	if err != nil {
		return nil, nil, err
	}
	enoughFundRangeProof, err := rangeproof.Prove(rng, enoughFundWitness, RangeProofBits)
	if err != nil {
		return nil, nil, err
	}

	combinedAssetIDWitness, err := elgamal.NewWitness(assetIDWitness.Value, newAssetIDBlinding)
	if err != nil {
		return nil, nil, err
	}
	_, encAssetIDRcvr := elgamal.EncryptSameValueTwoKeys(senderEncKeys.Public, receiverEncPub, combinedAssetIDWitness)
	assetIDSameIM, assetIDSameFR, err := proofs.ProveEncryptingSameValue(rng, combinedAssetIDWitness, senderEncKeys.Public, receiverEncPub)
	if err != nil {
		return nil, nil, err
	}

	memo := ConfidentialTxMemo{
		SenderAccountID:     senderAccountID,
		ReceiverAccountID:   receiverAccountID,
		EncAmountSndr:       encAmountSndr,
		EncAmountRcvr:       encAmountRcvr,
		SenderPubKey:        senderEncKeys.Public,
		ReceiverPubKey:      receiverEncPub,
		RefreshedEncBalance: refreshedEncBalance,
		RefreshedEncAssetID: refreshedEncAssetID,
		EncAssetIDRcvr:      encAssetIDRcvr,
	}
	if mediatorEncPub != nil {
		encAmountMdtr, _, err := elgamal.EncryptValue(mediatorEncPub, amount, rng)
		if err != nil {
			return nil, nil, err
		}
		memo.EncAmountMdtr = &encAmountMdtr
	}

	tx := InitConfidentialTx{
		State:                StateInitializationStarted,
		Memo:                 memo,
		AmountSameValueIM:    amountSameIM,
		AmountSameValueFR:    amountSameFR,
		AmountRangeProof:     amountRangeProof,
		BalanceRefreshIM:     balanceRefreshIM,
		BalanceRefreshFR:     balanceRefreshFR,
		AssetIDRefreshIM:     assetIDRefreshIM,
		AssetIDRefreshFR:     assetIDRefreshFR,
		EnoughFundRangeProof: enoughFundRangeProof,
		AssetIDSameValueIM:   assetIDSameIM,
		AssetIDSameValueFR:   assetIDSameFR,
	}

	msg, err := memoPayload(memo)
	if err != nil {
		return nil, nil, err
	}
	signature, err := sig.Sign(SigningContext, senderSignKeys.Secret, bytes.NewReader(msg))
	if err != nil {
		return nil, nil, fmt.Errorf("transfer: failed to sign initialization: %w", err)
	}
	tx.Signature = signature
	return &tx, enoughFundWitness, nil
}

// verifySenderProofs re-runs the six proofs the sender attached to tx.
func verifySenderProofs(tx InitConfidentialTx, senderEncPub, receiverEncPub *group.Point, currentEncBalance, currentEncAssetID elgamal.CipherText) error {
	if err := proofs.VerifyEncryptingSameValue(senderEncPub, receiverEncPub, tx.Memo.EncAmountSndr, tx.Memo.EncAmountRcvr, tx.AmountSameValueIM, tx.AmountSameValueFR); err != nil {
		return err
	}
	if err := rangeproof.Verify(tx.Memo.EncAmountSndr.Y, RangeProofBits, tx.AmountRangeProof); err != nil {
		return err
	}
	if err := proofs.VerifyCiphertextRefreshment(senderEncPub, currentEncBalance, tx.Memo.RefreshedEncBalance, tx.BalanceRefreshIM, tx.BalanceRefreshFR); err != nil {
		return err
	}
	if err := proofs.VerifyCiphertextRefreshment(senderEncPub, currentEncAssetID, tx.Memo.RefreshedEncAssetID, tx.AssetIDRefreshIM, tx.AssetIDRefreshFR); err != nil {
		return err
	}
	enoughFundCommitment := group.NewPoint().Add(tx.Memo.RefreshedEncBalance.Y, group.NewPoint().Negate(tx.Memo.EncAmountSndr.Y))
	if err := rangeproof.Verify(enoughFundCommitment, RangeProofBits, tx.EnoughFundRangeProof); err != nil {
		return err
	}
	if err := proofs.VerifyEncryptingSameValue(senderEncPub, receiverEncPub, tx.Memo.RefreshedEncAssetID, tx.Memo.EncAssetIDRcvr, tx.AssetIDSameValueIM, tx.AssetIDSameValueFR); err != nil {
		return err
	}
	return nil
}

// ValidateInit is the sender-validator's step: verify the sender's
// signature and all six proofs.
func ValidateInit(tx *InitConfidentialTx, senderSignPub, senderEncPub, receiverEncPub *group.Point, currentEncBalance, currentEncAssetID elgamal.CipherText) error {
	if tx.State != StateInitializationStarted {
		return merrors.NewInvalidPreviousConfidentialTxState(tx.State.String())
	}

	msg, err := memoPayload(tx.Memo)
	if err != nil {
		return err
	}
	valid, err := sig.Verify(SigningContext, senderSignPub, tx.Signature, bytes.NewReader(msg))
	if err != nil {
		return fmt.Errorf("transfer: sender signature decode failed: %w", err)
	}
	if !valid {
		return merrors.ErrSignatureValidation
	}

	if err := verifySenderProofs(*tx, senderEncPub, receiverEncPub, currentEncBalance, currentEncAssetID); err != nil {
		return err
	}

	tx.State = StateInitializationValidated
	return nil
}

// MediatorJustify is the mediator's step. It re-checks the sender's
// structural proofs; if the sender supplied memo.EncAmountMdtr and amountCap
// is non-nil, it also decrypts the amount and rejects transfers above the
// cap. Either way it countersigns, moving the envelope
// straight to InitializationJustification.Validated.
func MediatorJustify(
	tx *InitConfidentialTx,
	senderEncPub, receiverEncPub *group.Point,
	mediatorEncKeys *elgamal.KeyPair,
	mediatorSignKeys *account.SigningKeyPair,
	currentEncBalance, currentEncAssetID elgamal.CipherText,
	amountCap *uint64,
) (*InitJustifiedConfidentialTx, error) {
	if tx.State != StateInitializationValidated {
		return nil, merrors.NewInvalidPreviousConfidentialTxState(tx.State.String())
	}

	if err := verifySenderProofs(*tx, senderEncPub, receiverEncPub, currentEncBalance, currentEncAssetID); err != nil {
		return nil, err
	}

	rejected := false
	if tx.Memo.EncAmountMdtr != nil && amountCap != nil {
		amount, err := elgamal.DecryptSmall(mediatorEncKeys.Secret, *tx.Memo.EncAmountMdtr, uint64(1)<<uint(RangeProofBits))
		if err != nil {
			return nil, err
		}
		if amount > *amountCap {
			rejected = true
		}
	}

	type countersignPayload struct {
		SenderSignature []byte
		Rejected        bool
	}
	msg, err := cbor.Marshal(countersignPayload{SenderSignature: tx.Signature, Rejected: rejected})
	if err != nil {
		return nil, err
	}
	mediatorSig, err := sig.Sign(SigningContext, mediatorSignKeys.Secret, bytes.NewReader(msg))
	if err != nil {
		return nil, fmt.Errorf("transfer: failed to sign justification: %w", err)
	}

	return &InitJustifiedConfidentialTx{
		State:             StateInitializationJustificationValidated,
		Init:              *tx,
		Rejected:          rejected,
		MediatorSignature: mediatorSig,
	}, nil
}

// ReceiverFinalize is the receiver's step: confirm the amount and asset,
// and bind the memo's receiver-side asset-id ciphertext to the receiver's
// own account via a refreshment proof.
func ReceiverFinalize(
	rng io.Reader,
	ijtx *InitJustifiedConfidentialTx,
	receiverEncKeys *elgamal.KeyPair,
	receiverSignKeys *account.SigningKeyPair,
	receiverCurrentEncAssetID elgamal.CipherText,
	expectedAmount uint64,
) (*FinalConfidentialTx, error) {
	if ijtx.State != StateInitializationJustificationValidated {
		return nil, merrors.NewInvalidPreviousConfidentialTxState(ijtx.State.String())
	}
	if ijtx.Rejected {
		return nil, merrors.ErrMediatorRejected
	}

	memo := ijtx.Init.Memo
	if memo.ReceiverPubKey.Equal(receiverEncKeys.Public) != 1 {
		return nil, merrors.ErrInputPubKeyMismatch
	}

	amount, err := elgamal.DecryptSmall(receiverEncKeys.Secret, memo.EncAmountRcvr, uint64(1)<<uint(RangeProofBits))
	if err != nil {
		return nil, err
	}
	if amount != expectedAmount {
		return nil, &merrors.TransactionAmountMismatch{Expected: expectedAmount, Received: amount}
	}

	refreshIM, refreshFR, err := proofs.ProveCiphertextRefreshment(rng, receiverEncKeys.Secret, memo.EncAssetIDRcvr, receiverCurrentEncAssetID)
	if err != nil {
		return nil, err
	}

	type payload struct {
		MediatorSignature []byte
	}
	msg, err := cbor.Marshal(payload{MediatorSignature: ijtx.MediatorSignature})
	if err != nil {
		return nil, err
	}
	receiverSig, err := sig.Sign(SigningContext, receiverSignKeys.Secret, bytes.NewReader(msg))
	if err != nil {
		return nil, fmt.Errorf("transfer: failed to sign finalization: %w", err)
	}

	return &FinalConfidentialTx{
		State:                    StateFinalizationStarted,
		Init:                     *ijtx,
		ReceiverAssetIDRefreshIM: refreshIM,
		ReceiverAssetIDRefreshFR: refreshFR,
		ReceiverSignature:        receiverSig,
	}, nil
}

// ValidateFinalization is the receiver-validator's step: re-run the
// sender's six proofs, the receiver's asset-id refreshment proof, and both
// signatures.
func ValidateFinalization(
	ftx *FinalConfidentialTx,
	senderSignPub, senderEncPub, receiverSignPub, receiverEncPub *group.Point,
	currentEncBalance, currentEncAssetID elgamal.CipherText,
) error {
	if ftx.State != StateFinalizationStarted {
		return merrors.NewInvalidPreviousConfidentialTxState(ftx.State.String())
	}

	init := ftx.Init.Init
	msg, err := memoPayload(init.Memo)
	if err != nil {
		return err
	}
	senderValid, err := sig.Verify(SigningContext, senderSignPub, init.Signature, bytes.NewReader(msg))
	if err != nil {
		return fmt.Errorf("transfer: sender signature decode failed: %w", err)
	}
	if !senderValid {
		return merrors.ErrSignatureValidation
	}

	type payload struct {
		MediatorSignature []byte
	}
	receiverMsg, err := cbor.Marshal(payload{MediatorSignature: ftx.Init.MediatorSignature})
	if err != nil {
		return err
	}
	receiverValid, err := sig.Verify(SigningContext, receiverSignPub, ftx.ReceiverSignature, bytes.NewReader(receiverMsg))
	if err != nil {
		return fmt.Errorf("transfer: receiver signature decode failed: %w", err)
	}
	if !receiverValid {
		return merrors.ErrSignatureValidation
	}

	if err := verifySenderProofs(init, senderEncPub, receiverEncPub, currentEncBalance, currentEncAssetID); err != nil {
		return err
	}
	if err := proofs.VerifyCiphertextRefreshment(receiverEncPub, init.Memo.EncAssetIDRcvr, currentEncAssetID, ftx.ReceiverAssetIDRefreshIM, ftx.ReceiverAssetIDRefreshFR); err != nil {
		return err
	}

	ftx.State = StateFinalizationValidated
	return nil
}

// ApplySenderBalance computes the sender's post-transfer balance ciphertext.
func ApplySenderBalance(memo ConfidentialTxMemo) elgamal.CipherText {
	return memo.RefreshedEncBalance.Sub(memo.EncAmountSndr)
}

// ApplyReceiverBalance computes the receiver's post-transfer balance
// ciphertext.
func ApplyReceiverBalance(currentEncBalance elgamal.CipherText, memo ConfidentialTxMemo) elgamal.CipherText {
	return currentEncBalance.Add(memo.EncAmountRcvr)
}
