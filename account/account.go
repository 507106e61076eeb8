// Package account builds and verifies MERCAT accounts: an owner's
// encryption and signing keypairs, an encrypted asset id proven to be
// wellformed and a member of a public ticker list, and a zero balance
// proven correct, all bound together under one Schnorr signature.
package account

import (
	"bytes"
	"fmt"
	"io"
	"time"

	"github.com/codahale/thyrse/schemes/complex/sig"
	"github.com/fxamacker/cbor/v2"

	"github.com/vocdoni/mercat-go/elgamal"
	"github.com/vocdoni/mercat-go/group"
	"github.com/vocdoni/mercat-go/membership"
	"github.com/vocdoni/mercat-go/merrors"
	"github.com/vocdoni/mercat-go/proofs"
)

// SigningContext is the domain label mixed into every account signature.
const SigningContext = "mercat/assert"

// SigningKeyPair is a Schnorr signing keypair, distinct from the ElGamal
// encryption keypair: its public key is secret·G (the standard base point),
// not secret·H.
type SigningKeyPair struct {
	Secret *group.Scalar
	Public *group.Point
}

// GenerateSigningKeyPair samples a fresh Schnorr signing keypair.
func GenerateSigningKeyPair(rng io.Reader) (*SigningKeyPair, error) {
	secret, err := group.RandomScalar(rng)
	if err != nil {
		return nil, fmt.Errorf("account: failed to sample signing key: %w", err)
	}
	public := group.NewPoint().ScalarBaseMult(secret)
	return &SigningKeyPair{Secret: secret, Public: public}, nil
}

// Zeroize overwrites the signing secret key.
func (k *SigningKeyPair) Zeroize() {
	if k == nil || k.Secret == nil {
		return
	}
	k.Secret = group.NewScalar()
}

// AccountMemo holds the public, immutable fields attached to an account.
type AccountMemo struct {
	EncKey   *group.Point
	SignKey  *group.Point
	Created  time.Time
}

// memoBytes returns a stable encoding of the memo for signing and hashing.
func (m AccountMemo) memoBytes() []byte {
	var buf bytes.Buffer
	buf.Write(m.EncKey.Bytes())
	buf.Write(m.SignKey.Bytes())
	var ts [8]byte
	unix := m.Created.UnixNano()
	for i := 0; i < 8; i++ {
		ts[i] = byte(unix >> (8 * i))
	}
	buf.Write(ts[:])
	return buf.Bytes()
}

// SecAccount is the entirely secret state an account owner retains.
// BalanceWitness is the owner's tracked opening of its current EncBalance;
// it must be updated in lockstep every time the public balance ciphertext
// changes (a minted amount folded in, a transfer's amount subtracted),
// since ciphertext arithmetic alone does not let the holder recover the
// blinding of the result. Callers must call Zeroize on every exit path.
type SecAccount struct {
	EncKeys        *elgamal.KeyPair
	SignKeys       *SigningKeyPair
	AssetID        uint64
	AssetIDWitness *elgamal.Witness
	BalanceWitness *elgamal.Witness
}

// Zeroize overwrites every secret scalar held by the account.
func (s *SecAccount) Zeroize() {
	if s == nil {
		return
	}
	s.EncKeys.Zeroize()
	s.SignKeys.Zeroize()
	s.AssetIDWitness.Zeroize()
	s.BalanceWitness.Zeroize()
}

// PubAccountContent is the public record published for an account. Only
// EncBalance mutates (by ciphertext addition) after creation.
type PubAccountContent struct {
	AccountID                     uint32
	EncAssetID                    elgamal.CipherText
	EncBalance                    elgamal.CipherText
	Memo                          AccountMemo
	AssetWellformednessIM         proofs.WellformednessInitialMessage
	AssetWellformednessFR         proofs.WellformednessFinalResponse
	AssetMembershipProof          membership.Proof
	InitialBalanceCorrectnessIM   proofs.CorrectnessInitialMessage
	InitialBalanceCorrectnessFR   proofs.CorrectnessFinalResponse
	Signature                    []byte
}

// signingPayload is the canonical byte string signed over an account: the
// account id, the two ciphertexts, and the memo, in CBOR to keep the
// encoding stable and length-prefixed.
func signingPayload(accountID uint32, encAssetID, encBalance elgamal.CipherText, memo AccountMemo) ([]byte, error) {
	type payload struct {
		AccountID uint32
		AssetIDX  []byte
		AssetIDY  []byte
		BalanceX  []byte
		BalanceY  []byte
		Memo      []byte
	}
	p := payload{
		AccountID: accountID,
		AssetIDX:  encAssetID.X.Bytes(),
		AssetIDY:  encAssetID.Y.Bytes(),
		BalanceX:  encBalance.X.Bytes(),
		BalanceY:  encBalance.Y.Bytes(),
		Memo:      memo.memoBytes(),
	}
	return cbor.Marshal(p)
}

// CreateAccount builds a fresh account for asset assetID, proving it belongs
// to tickerList (already padded per membership.PadList) and that the
// starting balance is a correctly-formed encryption of zero.
func CreateAccount(rng io.Reader, accountID uint32, assetID uint64, tickerList []uint64, createdAt time.Time) (*PubAccountContent, *SecAccount, error) {
	encKeys, err := elgamal.GenerateKeyPair(rng)
	if err != nil {
		return nil, nil, err
	}
	signKeys, err := GenerateSigningKeyPair(rng)
	if err != nil {
		return nil, nil, err
	}

	encAssetID, assetWitness, err := elgamal.EncryptValue(encKeys.Public, assetID, rng)
	if err != nil {
		return nil, nil, err
	}
	wellIM, wellFR, err := proofs.ProveWellformedness(rng, assetWitness, encKeys.Public)
	if err != nil {
		return nil, nil, err
	}

	membershipProof, err := membership.Prove(rng, assetWitness, tickerList)
	if err != nil {
		return nil, nil, err
	}

	zeroWitness, err := elgamal.NewWitness(0, group.NewScalar())
	if err != nil {
		return nil, nil, err
	}
	// deterministic zero blinding keeps enc_balance reproducible for tests
	// that re-derive the initial account state; it reveals nothing because
	// the plaintext is already public (zero).
	encBalance := elgamal.Encrypt(encKeys.Public, zeroWitness)
	correctIM, correctFR, err := proofs.ProveCorrectness(rng, zeroWitness.Blinding, encKeys.Public)
	if err != nil {
		return nil, nil, err
	}

	memo := AccountMemo{EncKey: encKeys.Public, SignKey: signKeys.Public, Created: createdAt}

	msg, err := signingPayload(accountID, encAssetID, encBalance, memo)
	if err != nil {
		return nil, nil, err
	}
	signature, err := sig.Sign(SigningContext, signKeys.Secret, bytes.NewReader(msg))
	if err != nil {
		return nil, nil, fmt.Errorf("account: failed to sign account: %w", err)
	}

	pub := &PubAccountContent{
		AccountID:                   accountID,
		EncAssetID:                  encAssetID,
		EncBalance:                  encBalance,
		Memo:                        memo,
		AssetWellformednessIM:       wellIM,
		AssetWellformednessFR:       wellFR,
		AssetMembershipProof:        membershipProof,
		InitialBalanceCorrectnessIM: correctIM,
		InitialBalanceCorrectnessFR: correctFR,
		Signature:                   signature,
	}
	sec := &SecAccount{
		EncKeys:        encKeys,
		SignKeys:       signKeys,
		AssetID:        assetID,
		AssetIDWitness: assetWitness,
		BalanceWitness: zeroWitness,
	}
	return pub, sec, nil
}

// VerifyAccount re-verifies the account signature and all three proofs
// carried by pub against tickerList (already padded per membership.PadList).
func VerifyAccount(pub *PubAccountContent, tickerList []uint64) error {
	msg, err := signingPayload(pub.AccountID, pub.EncAssetID, pub.EncBalance, pub.Memo)
	if err != nil {
		return err
	}
	valid, err := sig.Verify(SigningContext, pub.Memo.SignKey, pub.Signature, bytes.NewReader(msg))
	if err != nil {
		return fmt.Errorf("account: signature decode failed: %w", err)
	}
	if !valid {
		return merrors.ErrSignatureValidation
	}

	if err := proofs.VerifyWellformedness(pub.Memo.EncKey, pub.EncAssetID, pub.AssetWellformednessIM, pub.AssetWellformednessFR); err != nil {
		return err
	}

	if err := membership.Verify(pub.EncAssetID.Y, tickerList, pub.AssetMembershipProof); err != nil {
		return err
	}

	if err := proofs.VerifyCorrectness(pub.Memo.EncKey, pub.EncBalance, 0, pub.InitialBalanceCorrectnessIM, pub.InitialBalanceCorrectnessFR); err != nil {
		return err
	}
	return nil
}
