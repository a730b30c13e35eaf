// Package nip47 implements the Nostr Wallet Connect envelopes: the
// connection URI, the encryption negotiation, and the info (13194),
// request (23194) and response (23195) event payloads.
//
// Builders return unsigned, unencrypted events; encrypting the content
// under the negotiated scheme and signing are separate calls wired by the
// caller.
package nip47

import (
	"errors"
	"os"

	"github.com/silex-im/silex/pkg/slog"
)

var log, chk = slog.New(os.Stderr)

// Encryption scheme capability strings.
const (
	EncryptionNIP44v2 = "nip44-v2"
	EncryptionNIP04   = "nip04"
)

// ErrNoEncryption means the two capability lists have no scheme in common.
var ErrNoEncryption = errors.New(
	"no common encryption scheme between client and wallet")

// SelectEncryption negotiates a scheme between two capability lists. It
// prefers nip44-v2, falls back to nip04, and fails closed when the lists
// do not overlap. The result is symmetric in its arguments.
func SelectEncryption(ours, theirs []string) (scheme string, err error) {
	if contains(ours, EncryptionNIP44v2) &&
		contains(theirs, EncryptionNIP44v2) {
		return EncryptionNIP44v2, nil
	}
	if contains(ours, EncryptionNIP04) && contains(theirs, EncryptionNIP04) {
		return EncryptionNIP04, nil
	}
	return "", ErrNoEncryption
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// ClientSession holds the wallet peer and the negotiated scheme on the
// client side of a connection.
type ClientSession struct {
	WalletPubKey string
	Encryption   string
}

// NewClientSession negotiates a scheme against the wallet's capability
// list and fails closed when no overlap exists.
func NewClientSession(walletPubKey string, clientEnc,
	walletEnc []string) (s *ClientSession, err error) {

	var scheme string
	if scheme, err = SelectEncryption(clientEnc, walletEnc); chk.D(err) {
		return
	}
	return &ClientSession{WalletPubKey: walletPubKey, Encryption: scheme}, nil
}

// WalletSession holds the client peer and the negotiated scheme on the
// wallet side of a connection.
type WalletSession struct {
	ClientPubKey string
	Encryption   string
}

// NewWalletSession negotiates a scheme against the client's capability
// list and fails closed when no overlap exists.
func NewWalletSession(clientPubKey string, walletEnc,
	clientEnc []string) (s *WalletSession, err error) {

	var scheme string
	if scheme, err = SelectEncryption(walletEnc, clientEnc); chk.D(err) {
		return
	}
	return &WalletSession{ClientPubKey: clientPubKey, Encryption: scheme}, nil
}
