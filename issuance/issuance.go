// Package issuance implements the three-actor asset-issuance state machine:
// an issuer mints a known amount, a mediator checks it against its own
// decrypted view and countersigns, and a validator re-checks the
// publicly-verifiable proofs and both signatures before the mint is final.
package issuance

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
)

// SigningContext is the domain label mixed into every issuance signature.
const SigningContext = "mercat/asset-issuance"

// InitializationState is the sub-state of an InitializedAssetTx.
type InitializationState uint8

const (
	InitializationStarted = InitializationState(iota)
	InitializationValidated

	InitializationStartedName   = "initialization-started"
	InitializationValidatedName = "initialization-validated"
)

func (s InitializationState) String() string {
	switch s {
	case InitializationStarted:
		return InitializationStartedName
	case InitializationValidated:
		return InitializationValidatedName
	default:
		return "unknown"
	}
}

// JustificationState is the sub-state of a JustifiedAssetTx.
type JustificationState uint8

const (
	JustificationStarted = JustificationState(iota)
	JustificationValidated

	JustificationStartedName   = "justification-started"
	JustificationValidatedName = "justification-validated"
)

func (s JustificationState) String() string {
	switch s {
	case JustificationStarted:
		return JustificationStartedName
	case JustificationValidated:
		return JustificationValidatedName
	default:
		return "unknown"
	}
}

// InitializedAssetTx is the issuer's proposal: a mint of amount, encrypted
// to both the mediator and the issuer's own memo, with the three proofs
// binding them together and a signature over the whole bundle.
type InitializedAssetTx struct {
	State InitializationState

	AccountID      uint32
	EncAssetID     elgamal.CipherText // asset id under the issuer's own key (unchanged from the account)
	EncAssetIDMdtr elgamal.CipherText // asset id under the mediator's key, same witness as EncAssetID
	EncAmountMdtr  elgamal.CipherText // amount under the mediator's key
	Memo           elgamal.CipherText // amount under the issuer's own key

	SameValueIM  proofs.EncryptingSameValueInitialMessage
	SameValueFR  proofs.EncryptingSameValueFinalResponse
	WellformedIM proofs.WellformednessInitialMessage
	WellformedFR proofs.WellformednessFinalResponse
	CorrectIM    proofs.CorrectnessInitialMessage
	CorrectFR    proofs.CorrectnessFinalResponse

	Signature []byte
}

// JustifiedAssetTx is an InitializedAssetTx plus the mediator's updated
// issuer balance and countersignature.
type JustifiedAssetTx struct {
	State JustificationState

	Initialized       InitializedAssetTx
	UpdatedEncBalance elgamal.CipherText
	MediatorSignature []byte
}

func initPayload(tx InitializedAssetTx) ([]byte, error) {
	type payload struct {
		AccountID                          uint32
		AssetIDX, AssetIDY                 []byte
		AssetIDMdtrX, AssetIDMdtrY         []byte
		AmountMdtrX, AmountMdtrY           []byte
		MemoX, MemoY                       []byte
	}
	p := payload{
		AccountID:    tx.AccountID,
		AssetIDX:     tx.EncAssetID.X.Bytes(),
		AssetIDY:     tx.EncAssetID.Y.Bytes(),
		AssetIDMdtrX: tx.EncAssetIDMdtr.X.Bytes(),
		AssetIDMdtrY: tx.EncAssetIDMdtr.Y.Bytes(),
		AmountMdtrX:  tx.EncAmountMdtr.X.Bytes(),
		AmountMdtrY:  tx.EncAmountMdtr.Y.Bytes(),
		MemoX:        tx.Memo.X.Bytes(),
		MemoY:        tx.Memo.Y.Bytes(),
	}
	return cbor.Marshal(p)
}

// Initialize performs the issuer's step: it encrypts amount to the
// mediator's public key and to its own public key (the memo), re-encrypts
// the account's asset id to the mediator under the same witness, proves the
// three required relations, and signs the bundle. The returned witness is
// the memo's opening: the issuer must fold it into its tracked balance
// witness (value += amount, blinding += memoWitness.Blinding) once
// Validate succeeds on the resulting JustifiedAssetTx.
func Initialize(
	rng io.Reader,
	accountID uint32,
	issuerEncKeys *elgamal.KeyPair,
	issuerSignKeys *account.SigningKeyPair,
	assetIDWitness *elgamal.Witness,
	existingEncAssetID elgamal.CipherText,
	mediatorEncPub *group.Point,
	amount uint64,
) (*InitializedAssetTx, *elgamal.Witness, error) {
	encAssetID, encAssetIDMdtr := elgamal.EncryptSameValueTwoKeys(issuerEncKeys.Public, mediatorEncPub, assetIDWitness)
	if encAssetID.X.Equal(existingEncAssetID.X) != 1 || encAssetID.Y.Equal(existingEncAssetID.Y) != 1 {
		return nil, nil, fmt.Errorf("issuance: asset id witness does not match the account's existing ciphertext")
	}

	sameValueIM, sameValueFR, err := proofs.ProveEncryptingSameValue(rng, assetIDWitness, issuerEncKeys.Public, mediatorEncPub)
	if err != nil {
		return nil, nil, err
	}

	encAmountMdtr, _, err := elgamal.EncryptValue(mediatorEncPub, amount, rng)
	if err != nil {
		return nil, nil, err
	}

	memo, memoWitness, err := elgamal.EncryptValue(issuerEncKeys.Public, amount, rng)
	if err != nil {
		return nil, nil, err
	}
	wellIM, wellFR, err := proofs.ProveWellformedness(rng, memoWitness, issuerEncKeys.Public)
	if err != nil {
		return nil, nil, err
	}
	correctIM, correctFR, err := proofs.ProveCorrectness(rng, memoWitness.Blinding, issuerEncKeys.Public)
	if err != nil {
		return nil, nil, err
	}

	tx := InitializedAssetTx{
		State:          InitializationStarted,
		AccountID:      accountID,
		EncAssetID:     existingEncAssetID,
		EncAssetIDMdtr: encAssetIDMdtr,
		EncAmountMdtr:  encAmountMdtr,
		Memo:           memo,
		SameValueIM:    sameValueIM,
		SameValueFR:    sameValueFR,
		WellformedIM:   wellIM,
		WellformedFR:   wellFR,
		CorrectIM:      correctIM,
		CorrectFR:      correctFR,
	}

	msg, err := initPayload(tx)
	if err != nil {
		return nil, nil, err
	}
	signature, err := sig.Sign(SigningContext, issuerSignKeys.Secret, bytes.NewReader(msg))
	if err != nil {
		return nil, nil, fmt.Errorf("issuance: failed to sign initialization: %w", err)
	}
	tx.Signature = signature
	return &tx, memoWitness, nil
}

// verifyIssuerProofs re-runs the publicly-verifiable proofs carried on an
// InitializedAssetTx: the asset-id same-value proof and the memo's
// wellformedness proof. The memo's correctness proof is checked only by the
// mediator, which is the sole party that learns the plaintext amount.
func verifyIssuerProofs(tx InitializedAssetTx, issuerEncPub, mediatorEncPub *group.Point) error {
	if err := proofs.VerifyEncryptingSameValue(issuerEncPub, mediatorEncPub, tx.EncAssetID, tx.EncAssetIDMdtr, tx.SameValueIM, tx.SameValueFR); err != nil {
		return err
	}
	return proofs.VerifyWellformedness(issuerEncPub, tx.Memo, tx.WellformedIM, tx.WellformedFR)
}

// Justify performs the mediator's step: it checks the issuer's signature,
// re-verifies the issuer's publicly-checkable proofs, decrypts its own view
// of the amount, checks the memo's correctness proof against that decrypted
// value, folds the memo into the issuer's running balance, and countersigns.
func Justify(
	tx *InitializedAssetTx,
	issuerEncPub *group.Point,
	issuerSignPub *group.Point,
	mediatorEncKeys *elgamal.KeyPair,
	mediatorSignKeys *account.SigningKeyPair,
	currentEncBalance elgamal.CipherText,
	maxAmount uint64,
) (*JustifiedAssetTx, error) {
	if tx.State != InitializationStarted {
		return nil, merrors.NewInvalidPreviousAssetTransactionState(tx.State.String())
	}

	msg, err := initPayload(*tx)
	if err != nil {
		return nil, err
	}
	issuerValid, err := sig.Verify(SigningContext, issuerSignPub, tx.Signature, bytes.NewReader(msg))
	if err != nil {
		return nil, fmt.Errorf("issuance: issuer signature decode failed: %w", err)
	}
	if !issuerValid {
		return nil, merrors.ErrSignatureValidation
	}

	if err := verifyIssuerProofs(*tx, issuerEncPub, mediatorEncKeys.Public); err != nil {
		return nil, err
	}

	amount, err := elgamal.DecryptSmall(mediatorEncKeys.Secret, tx.EncAmountMdtr, maxAmount)
	if err != nil {
		return nil, err
	}

	if err := proofs.VerifyCorrectness(issuerEncPub, tx.Memo, amount, tx.CorrectIM, tx.CorrectFR); err != nil {
		return nil, err
	}

	updatedBalance := currentEncBalance.Add(tx.Memo)

	type countersignPayload struct {
		IssuerSignature []byte
		BalanceX        []byte
		BalanceY        []byte
	}
	msg, err = cbor.Marshal(countersignPayload{
		IssuerSignature: tx.Signature,
		BalanceX:        updatedBalance.X.Bytes(),
		BalanceY:        updatedBalance.Y.Bytes(),
	})
	if err != nil {
		return nil, err
	}
	mediatorSig, err := sig.Sign(SigningContext, mediatorSignKeys.Secret, bytes.NewReader(msg))
	if err != nil {
		return nil, fmt.Errorf("issuance: failed to sign justification: %w", err)
	}

	justified := &JustifiedAssetTx{
		State:             JustificationStarted,
		Initialized:       *tx,
		UpdatedEncBalance: updatedBalance,
		MediatorSignature: mediatorSig,
	}
	tx.State = InitializationValidated
	return justified, nil
}

// Validate performs the validator's step: it checks both signatures and
// re-runs the issuer's publicly-verifiable proofs.
func Validate(jtx *JustifiedAssetTx, issuerEncPub, mediatorEncPub, issuerSignPub, mediatorSignPub *group.Point) error {
	if jtx.State != JustificationStarted {
		return merrors.NewInvalidPreviousAssetTransactionState(jtx.State.String())
	}

	msg, err := initPayload(jtx.Initialized)
	if err != nil {
		return err
	}
	issuerValid, err := sig.Verify(SigningContext, issuerSignPub, jtx.Initialized.Signature, bytes.NewReader(msg))
	if err != nil {
		return fmt.Errorf("issuance: issuer signature decode failed: %w", err)
	}
	if !issuerValid {
		return merrors.ErrSignatureValidation
	}

	type countersignPayload struct {
		IssuerSignature []byte
		BalanceX        []byte
		BalanceY        []byte
	}
	counterMsg, err := cbor.Marshal(countersignPayload{
		IssuerSignature: jtx.Initialized.Signature,
		BalanceX:        jtx.UpdatedEncBalance.X.Bytes(),
		BalanceY:        jtx.UpdatedEncBalance.Y.Bytes(),
	})
	if err != nil {
		return err
	}
	mediatorValid, err := sig.Verify(SigningContext, mediatorSignPub, jtx.MediatorSignature, bytes.NewReader(counterMsg))
	if err != nil {
		return fmt.Errorf("issuance: mediator signature decode failed: %w", err)
	}
	if !mediatorValid {
		return merrors.ErrSignatureValidation
	}

	if err := verifyIssuerProofs(jtx.Initialized, issuerEncPub, mediatorEncPub); err != nil {
		return err
	}

	jtx.State = JustificationValidated
	return nil
}
