// Package keys handles generation, derivation and validation of the
// secp256k1 keys used throughout the protocol.
//
// Public keys circulate in three hexadecimal forms: 64 character x-only
// (BIP-340), and 66 or 130 character SEC1 compressed/uncompressed. The rest
// of the stack canonicalizes to x-only where a protocol requires it.
package keys

import (
	"crypto/rand"
	"strings"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/silex-im/silex/pkg/hex"
	"github.com/silex-im/silex/pkg/slog"
)

var log = slog.GetStd()

// GeneratePrivateKey returns a cryptographically random 32 byte secret key
// in hexadecimal. Candidates equal to zero or not below the curve order are
// rejected and redrawn.
func GeneratePrivateKey() string {
	b := make([]byte, 32)
	for {
		if _, err := rand.Read(b); err != nil {
			log.F.Ln("no entropy available:", err)
			return ""
		}
		var k btcec.ModNScalar
		overflow := k.SetByteSlice(b)
		if overflow || k.IsZero() {
			continue
		}
		return hex.Enc(b)
	}
}

// GetPublicKey derives the 32 byte x-only public key from a secret key in
// hexadecimal.
func GetPublicKey(sk string) (string, error) {
	b, err := hex.DecExact(sk, 32)
	if err != nil {
		return "", err
	}
	_, pk := btcec.PrivKeyFromBytes(b)
	return hex.Enc(schnorr.SerializePubKey(pk)), nil
}

// GetPublicKeySEC1 derives the 33 byte SEC1 compressed public key (02/03
// parity prefix) from a secret key in hexadecimal.
func GetPublicKeySEC1(sk string) (string, error) {
	b, err := hex.DecExact(sk, 32)
	if err != nil {
		return "", err
	}
	_, pk := btcec.PrivKeyFromBytes(b)
	return hex.Enc(pk.SerializeCompressed()), nil
}

// IsValid32ByteHex checks a string is lowercase hexadecimal encoding
// exactly 32 bytes. It does not check the bytes lie on the curve.
func IsValid32ByteHex(pk string) bool {
	if strings.ToLower(pk) != pk {
		return false
	}
	dec, _ := hex.Dec(pk)
	return len(dec) == 32
}

// IsValidPublicKeyHex checks a string is a 64 character lowercase
// hexadecimal x-only public key that parses as a valid curve point.
func IsValidPublicKeyHex(pk string) bool {
	if !IsValid32ByteHex(pk) {
		return false
	}
	b, _ := hex.Dec(pk)
	_, err := schnorr.ParsePubKey(b)
	return err == nil
}

// IsValidPublicKey accepts a public key in x-only, SEC1 compressed or SEC1
// uncompressed hexadecimal and validates the point.
func IsValidPublicKey(pk string) bool {
	switch len(pk) {
	case 64:
		return IsValidPublicKeyHex(strings.ToLower(pk))
	case 66, 130:
		b, err := hex.Dec(pk)
		if err != nil {
			return false
		}
		_, err = btcec.ParsePubKey(b)
		return err == nil
	default:
		return false
	}
}

// ParsePublicKey accepts any of the three hexadecimal public key forms and
// returns the parsed point.
func ParsePublicKey(pk string) (*btcec.PublicKey, error) {
	switch len(pk) {
	case 64:
		b, err := hex.DecExact(pk, 32)
		if err != nil {
			return nil, err
		}
		return schnorr.ParsePubKey(b)
	default:
		b, err := hex.Dec(pk)
		if err != nil {
			return nil, err
		}
		return btcec.ParsePubKey(b)
	}
}

// ToXOnly canonicalizes any accepted public key form to 64 character
// x-only hexadecimal.
func ToXOnly(pk string) (string, error) {
	p, err := ParsePublicKey(pk)
	if err != nil {
		return "", err
	}
	return hex.Enc(schnorr.SerializePubKey(p)), nil
}
