package bech32encoding

import (
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/btcsuite/btcd/btcutil/bech32"
	"github.com/silex-im/silex/pkg/hex"
)

const (
	// MinKeyStringLen is 56 because Bech32 needs 52 characters plus 4 for
	// the HRP, any string shorter than this cannot be a nostr key.
	MinKeyStringLen = 56
	HexKeyLen       = 64
	Bech32HRPLen    = 4
)

// ConvertForBech32 performs the bit expansion required for encoding into
// Bech32.
func ConvertForBech32(b8 []byte) (b5 []byte, err error) {
	return bech32.ConvertBits(b8, 8, 5, true)
}

// ConvertFromBech32 collapses together the bit expanded 5 bit numbers
// encoded in bech32.
func ConvertFromBech32(b5 []byte) (b8 []byte, err error) {
	return bech32.ConvertBits(b5, 5, 8, true)
}

// EncodePrivateKey encodes a hex secret key as a Bech32 string (nsec).
func EncodePrivateKey(skHex string) (encoded string, err error) {
	var b []byte
	if b, err = hex.DecExact(skHex, 32); chk.D(err) {
		return
	}
	var b5 []byte
	if b5, err = ConvertForBech32(b); err != nil {
		return
	}
	return bech32.Encode(NsecHRP, b5)
}

// EncodePublicKey encodes a hex x-only public key as a Bech32 string
// (npub).
func EncodePublicKey(pkHex string) (encoded string, err error) {
	var b []byte
	if b, err = hex.DecExact(pkHex, 32); chk.D(err) {
		return
	}
	var b5 []byte
	if b5, err = ConvertForBech32(b); err != nil {
		return
	}
	return bech32.Encode(NpubHRP, b5)
}

// SecretKeyToNsec encodes a secp256k1 secret key as a Bech32 string
// (nsec).
func SecretKeyToNsec(sk *btcec.PrivateKey) (encoded string, err error) {
	var b5 []byte
	if b5, err = ConvertForBech32(sk.Serialize()); err != nil {
		return
	}
	return bech32.Encode(NsecHRP, b5)
}

// PublicKeyToNpub encodes a public key as a bech32 string (npub).
func PublicKeyToNpub(pk *btcec.PublicKey) (encoded string, err error) {
	var bits5 []byte
	if bits5, err = ConvertForBech32(schnorr.SerializePubKey(pk)); err != nil {
		return
	}
	return bech32.Encode(NpubHRP, bits5)
}

// NsecToSecretKey decodes a nostr secret key (nsec) and returns the
// secp256k1 secret key.
func NsecToSecretKey(encoded string) (sk *btcec.PrivateKey, err error) {
	var b5, b8 []byte
	var hrp string
	if hrp, b5, err = bech32.Decode(encoded); err != nil {
		return
	}
	if hrp != NsecHRP {
		err = fmt.Errorf("wrong human readable part, got '%s' want '%s'",
			hrp, NsecHRP)
		return
	}
	if b8, err = ConvertFromBech32(b5); err != nil {
		return
	}
	sk, _ = btcec.PrivKeyFromBytes(b8[:32])
	return
}

// NpubToPublicKey decodes a nostr public key (npub) and returns a
// secp256k1 public key.
func NpubToPublicKey(encoded string) (pk *btcec.PublicKey, err error) {
	var b5, b8 []byte
	var hrp string
	if hrp, b5, err = bech32.Decode(encoded); err != nil {
		return
	}
	if hrp != NpubHRP {
		err = fmt.Errorf("wrong human readable part, got '%s' want '%s'",
			hrp, NpubHRP)
		return
	}
	if b8, err = ConvertFromBech32(b5); err != nil {
		return
	}
	return schnorr.ParsePubKey(b8[:32])
}

// HexToPublicKey decodes a 64 character hex encoded x-only public key into
// a btcec.PublicKey that can be used to verify a signature or encode to
// Bech32.
func HexToPublicKey(pk string) (p *btcec.PublicKey, err error) {
	var pb []byte
	if pb, err = hex.DecExact(pk, 32); chk.D(err) {
		return
	}
	if p, err = schnorr.ParsePubKey(pb); chk.D(err) {
		return
	}
	return
}

// HexToSecretKey decodes a 64 character hex encoded secret key into a
// btcec.PrivateKey.
func HexToSecretKey(sk string) (s *btcec.PrivateKey, err error) {
	var sb []byte
	if sb, err = hex.DecExact(sk, 32); chk.D(err) {
		return
	}
	s, _ = btcec.PrivKeyFromBytes(sb)
	return
}
