// Package cryptox signs and verifies the login challenge a wallet presents
// to the record server. Signatures follow EIP-191 (personal_sign), so a key
// held by any Ethereum wallet can produce them.
package cryptox

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/docverify/internal/common"
	"github.com/ethereum/go-ethereum/accounts"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

const loginPrefix = "docverify login "

// LoginMessage is the challenge text for address at t.
func LoginMessage(address ethcommon.Address, t time.Time) string {
	return fmt.Sprintf("%s%s %d", loginPrefix, strings.ToLower(address.Hex()), t.Unix())
}

// ParseLoginMessage extracts the address and timestamp from a challenge.
func ParseLoginMessage(msg string) (ethcommon.Address, time.Time, error) {
	rest, ok := strings.CutPrefix(msg, loginPrefix)
	if !ok {
		return ethcommon.Address{}, time.Time{}, fmt.Errorf("unexpected login message: %w", common.ErrInvalidSignature)
	}
	addr, ts, ok := strings.Cut(rest, " ")
	if !ok || !ethcommon.IsHexAddress(addr) {
		return ethcommon.Address{}, time.Time{}, fmt.Errorf("malformed login message: %w", common.ErrInvalidSignature)
	}
	sec, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return ethcommon.Address{}, time.Time{}, fmt.Errorf("malformed login timestamp: %w", common.ErrInvalidSignature)
	}
	return ethcommon.HexToAddress(addr), time.Unix(sec, 0), nil
}

// SignText produces a 65-byte EIP-191 signature with V in {27, 28}.
func SignText(key *ecdsa.PrivateKey, msg []byte) ([]byte, error) {
	sig, err := crypto.Sign(accounts.TextHash(msg), key)
	if err != nil {
		return nil, err
	}
	sig[crypto.RecoveryIDOffset] += 27
	return sig, nil
}

// RecoverText returns the address that produced sig over msg. V may be
// given as 0/1 or 27/28.
func RecoverText(msg, sig []byte) (ethcommon.Address, error) {
	if len(sig) != crypto.SignatureLength {
		return ethcommon.Address{}, fmt.Errorf("signature length %d: %w", len(sig), common.ErrInvalidSignature)
	}
	s := make([]byte, len(sig))
	copy(s, sig)
	if s[crypto.RecoveryIDOffset] >= 27 {
		s[crypto.RecoveryIDOffset] -= 27
	}
	pub, err := crypto.SigToPub(accounts.TextHash(msg), s)
	if err != nil {
		return ethcommon.Address{}, errors.Join(common.ErrInvalidSignature, err)
	}
	return crypto.PubkeyToAddress(*pub), nil
}

// VerifyLogin checks that sig is address's signature over msg, that msg
// names address, and that its timestamp lies within window of now.
func VerifyLogin(address ethcommon.Address, msg string, sig []byte, now time.Time, window time.Duration) error {
	claimed, ts, err := ParseLoginMessage(msg)
	if err != nil {
		return err
	}
	if claimed != address {
		return fmt.Errorf("login message names another address: %w", common.ErrInvalidSignature)
	}
	if d := now.Sub(ts); d > window || d < -window {
		return fmt.Errorf("login message outside the %s window: %w", window, common.ErrInvalidSignature)
	}
	signer, err := RecoverText([]byte(msg), sig)
	if err != nil {
		return err
	}
	if signer != address {
		return fmt.Errorf("signature by %s: %w", signer.Hex(), common.ErrInvalidSignature)
	}
	return nil
}
