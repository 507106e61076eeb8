// Package merrors defines the error taxonomy shared by every MERCAT core
// package. Proof, range and state-machine failures are reported with the
// kinds below; argument, randomness and encoding failures are returned as
// wrapped fmt errors instead. None carry secret material (scalars,
// witnesses, decrypted amounts) in their text.
package merrors

import "fmt"

// Sentinel errors for conditions that carry no parameters.
var (
	ErrPlainTextRange          = fmt.Errorf("mercat: plaintext outside of the valid range [0, 2^32)")
	ErrCipherTextDecryption    = fmt.Errorf("mercat: no plaintext in range matches the ciphertext")
	ErrVerification            = fmt.Errorf("mercat: proof or transcript verification failed")
	ErrMembershipInvalidAsset  = fmt.Errorf("mercat: value being proven is not a member of the given set")
	ErrEmptyElementsSet        = fmt.Errorf("mercat: membership list is empty")
	ErrInputPubKeyMismatch     = fmt.Errorf("mercat: account public key does not match the expected key")
	ErrAccountIDMismatch       = fmt.Errorf("mercat: account id does not match the expected account")
	ErrSignatureValidation     = fmt.Errorf("mercat: signature verification failed")
	ErrInvalidExponentParameter = fmt.Errorf("mercat: invalid exponent parameter for the OOON proof")
	ErrCDDIDMismatch           = fmt.Errorf("mercat: CDD id opening proof does not verify")
	ErrMembershipProof         = fmt.Errorf("mercat: claim membership proof failed")
	ErrMediatorRejected        = fmt.Errorf("mercat: mediator rejected the transaction")
)

// CheckError is the common shape of the "FinalResponseVerificationError"
// family: each names which verification equation (1-based) failed, without
// leaking the secret values involved.
type CheckError struct {
	Proof string // "correctness" | "wellformedness" | "ciphertext-refreshment" | "encrypting-same-value" | "membership" | "range"
	Check int
}

func (e *CheckError) Error() string {
	return fmt.Sprintf("mercat: %s proof failed check %d", e.Proof, e.Check)
}

func NewCorrectnessCheckError(check int) error         { return &CheckError{"correctness", check} }
func NewWellformednessCheckError(check int) error      { return &CheckError{"wellformedness", check} }
func NewRefreshmentCheckError(check int) error         { return &CheckError{"ciphertext-refreshment", check} }
func NewEncryptingSameValueCheckError(check int) error { return &CheckError{"encrypting-same-value", check} }
func NewMembershipCheckError(check int) error          { return &CheckError{"membership", check} }

// InvalidPreviousState is returned when a transaction state machine method
// is called on an envelope whose recorded state does not match the
// precondition the method requires.
type InvalidPreviousState struct {
	Machine string // "asset-issuance" | "confidential-transfer"
	State   string
}

func (e *InvalidPreviousState) Error() string {
	return fmt.Sprintf("mercat: invalid previous %s transaction state %q", e.Machine, e.State)
}

func NewInvalidPreviousAssetTransactionState(state string) error {
	return &InvalidPreviousState{Machine: "asset-issuance", State: state}
}

func NewInvalidPreviousConfidentialTxState(state string) error {
	return &InvalidPreviousState{Machine: "confidential-transfer", State: state}
}

// TransactionAmountMismatch is returned when a receiver decrypts an amount
// that differs from the amount it expected to be paid.
type TransactionAmountMismatch struct {
	Expected uint64
	Received uint64
}

func (e *TransactionAmountMismatch) Error() string {
	return fmt.Sprintf("mercat: transaction amount mismatch: expected %d, received %d", e.Expected, e.Received)
}

// NotEnoughFund is returned when a sender attempts to transfer more than
// their decrypted balance.
type NotEnoughFund struct {
	Balance           uint64
	TransactionAmount uint64
}

func (e *NotEnoughFund) Error() string {
	return fmt.Sprintf("mercat: not enough fund: balance %d, attempted transfer %d", e.Balance, e.TransactionAmount)
}

// ZKPVerificationError wraps a claim-proof equation failure; Kind names the
// equation (claim.Verify reports "uid" for the equation binding the revealed
// uid point).
type ZKPVerificationError struct {
	Kind string
}

func (e *ZKPVerificationError) Error() string {
	return fmt.Sprintf("mercat: claim-proof verification failed (%s)", e.Kind)
}

// ProvingError wraps an error returned by the range-proof engine.
type ProvingError struct {
	Inner error
}

func (e *ProvingError) Error() string {
	return fmt.Sprintf("mercat: range proof error: %v", e.Inner)
}

func (e *ProvingError) Unwrap() error { return e.Inner }
