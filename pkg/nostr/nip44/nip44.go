// Package nip44 implements the version 2 encryption scheme of NIP-44:
// secp256k1 ECDH, HKDF-SHA256 key schedule, ChaCha20 stream cipher, and
// SHA256 HMAC over the ciphertext with the salt as associated data.
package nip44

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"io"
	"math"
	"os"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/silex-im/silex/pkg/hex"
	"github.com/silex-im/silex/pkg/nostr/keys"
	"github.com/silex-im/silex/pkg/slog"
	"golang.org/x/crypto/chacha20"
	"golang.org/x/crypto/hkdf"
)

var log, chk = slog.New(os.Stderr)

const (
	version byte = 2

	MinPlaintextSize = 0x0001 // 1b msg => padded to 32b
	MaxPlaintextSize = 0xffff // 65535 (64kb-1) => padded to 64kb
)

// EncryptOptions allows pinning the salt for test vectors.
type EncryptOptions struct {
	Salt []byte
}

// Encrypt encrypts a plaintext under a 32 byte conversation key, returning
// the base64 payload `version || salt || ciphertext || hmac`.
func Encrypt(conversationKey []byte, plaintext string,
	options *EncryptOptions) (cipherString string, err error) {

	var salt []byte
	if options != nil && options.Salt != nil {
		salt = options.Salt
	} else {
		if salt, err = randomBytes(32); chk.E(err) {
			return
		}
	}
	if len(salt) != 32 {
		return "", errors.New("salt must be 32 bytes")
	}
	var enc, nonce, auth []byte
	if enc, nonce, auth, err = messageKeys(conversationKey, salt); chk.E(err) {
		return
	}
	var padded []byte
	if padded, err = pad(plaintext); chk.E(err) {
		return
	}
	var ciphertext []byte
	if ciphertext, err = chacha20XOR(enc, nonce, padded); chk.E(err) {
		return
	}
	var mac []byte
	if mac, err = sha256Hmac(auth, ciphertext, salt); chk.E(err) {
		return
	}
	concat := make([]byte, 0, 1+len(salt)+len(ciphertext)+len(mac))
	concat = append(concat, version)
	concat = append(concat, salt...)
	concat = append(concat, ciphertext...)
	concat = append(concat, mac...)
	return base64.StdEncoding.EncodeToString(concat), nil
}

// Decrypt reverses Encrypt, authenticating the payload before unpadding.
func Decrypt(conversationKey []byte, cipherString string) (plaintext string,
	err error) {

	cLen := len(cipherString)
	if cLen < 132 || cLen > 87472 {
		return "", log.E.Err("invalid payload length: %d", cLen)
	}
	if cipherString[0:1] == "#" {
		return "", errors.New("unknown version")
	}
	var dcd []byte
	if dcd, err = base64.StdEncoding.DecodeString(cipherString); chk.D(err) {
		return "", errors.New("invalid base64")
	}
	if dcd[0] != version {
		return "", log.E.Err("unknown version %d", dcd[0])
	}
	dLen := len(dcd)
	if dLen < 99 || dLen > 65603 {
		return "", log.E.Err("invalid data length: %d", dLen)
	}
	salt, ciphertext, mac := dcd[1:33], dcd[33:dLen-32], dcd[dLen-32:]
	var enc, nonce, auth []byte
	if enc, nonce, auth, err = messageKeys(conversationKey, salt); chk.E(err) {
		return
	}
	var expect []byte
	if expect, err = sha256Hmac(auth, ciphertext, salt); chk.E(err) {
		return
	}
	if !hmac.Equal(mac, expect) {
		return "", errors.New("invalid hmac")
	}
	var padded []byte
	if padded, err = chacha20XOR(enc, nonce, ciphertext); chk.E(err) {
		return
	}
	unpaddedLen := binary.BigEndian.Uint16(padded[0:2])
	if unpaddedLen < uint16(MinPlaintextSize) ||
		unpaddedLen > uint16(MaxPlaintextSize) ||
		len(padded) != 2+calcPadding(int(unpaddedLen)) {
		return "", errors.New("invalid padding")
	}
	unpadded := padded[2 : unpaddedLen+2]
	if len(unpadded) == 0 || len(unpadded) != int(unpaddedLen) {
		return "", errors.New("invalid padding")
	}
	return string(unpadded), nil
}

// GenerateConversationKey computes the shared key for a (secret, public)
// key pair: the x coordinate of the ECDH point run through HKDF-extract
// with the fixed "nip44-v2" salt.
func GenerateConversationKey(sendPrivkey *btcec.PrivateKey,
	recvPubkey *btcec.PublicKey) []byte {
	shared := btcec.GenerateSharedSecret(sendPrivkey, recvPubkey)
	return hkdf.Extract(sha256.New, shared, []byte("nip44-v2"))
}

// ConversationKeyFromHex computes the conversation key from a secret key in
// hexadecimal and a peer public key in any accepted hexadecimal form,
// canonicalizing the public key to x-only (even parity) first as the
// protocol requires.
func ConversationKeyFromHex(skHex, peerPubHex string) (ck []byte, err error) {
	skb, err := hex.DecExact(skHex, 32)
	if err != nil {
		return nil, err
	}
	sk, _ := btcec.PrivKeyFromBytes(skb)
	xonly, err := keys.ToXOnly(peerPubHex)
	if chk.D(err) {
		return nil, err
	}
	pk, err := keys.ParsePublicKey(xonly)
	if chk.D(err) {
		return nil, err
	}
	return GenerateConversationKey(sk, pk), nil
}

func chacha20XOR(key, nonce, message []byte) (dst []byte, err error) {
	var cipher *chacha20.Cipher
	if cipher, err = chacha20.NewUnauthenticatedCipher(key, nonce); chk.E(err) {
		return
	}
	dst = make([]byte, len(message))
	cipher.XORKeyStream(dst, message)
	return
}

func randomBytes(n int) ([]byte, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); chk.E(err) {
		return nil, err
	}
	return buf, nil
}

func sha256Hmac(key, ciphertext, aad []byte) ([]byte, error) {
	if len(aad) != 32 {
		return nil, errors.New("aad data must be 32 bytes")
	}
	h := hmac.New(sha256.New, key)
	h.Write(aad)
	h.Write(ciphertext)
	return h.Sum(nil), nil
}

func messageKeys(conversationKey, salt []byte) (enc, nonce, auth []byte,
	err error) {

	if len(conversationKey) != 32 {
		return nil, nil, nil, errors.New("conversation key must be 32 bytes")
	}
	if len(salt) != 32 {
		return nil, nil, nil, errors.New("salt must be 32 bytes")
	}
	enc = make([]byte, 32)
	nonce = make([]byte, 12)
	auth = make([]byte, 32)
	r := hkdf.Expand(sha256.New, conversationKey, salt)
	if _, err = io.ReadFull(r, enc); chk.E(err) {
		return nil, nil, nil, err
	}
	if _, err = io.ReadFull(r, nonce); chk.E(err) {
		return nil, nil, nil, err
	}
	if _, err = io.ReadFull(r, auth); chk.E(err) {
		return nil, nil, nil, err
	}
	return
}

func pad(s string) ([]byte, error) {
	sb := []byte(s)
	sbLen := len(sb)
	if sbLen < 1 || sbLen > MaxPlaintextSize {
		return nil, errors.New("plaintext should be between 1b and 64kB")
	}
	padding := calcPadding(sbLen)
	result := make([]byte, 2, 2+padding)
	binary.BigEndian.PutUint16(result, uint16(sbLen))
	result = append(result, sb...)
	result = append(result, make([]byte, padding-sbLen)...)
	return result, nil
}

func calcPadding(sLen int) int {
	if sLen <= 32 {
		return 32
	}
	nextPower := 1 << int(math.Floor(math.Log2(float64(sLen-1)))+1)
	chunk := int(math.Max(32, float64(nextPower/8)))
	return chunk * int(math.Floor(float64((sLen-1)/chunk))+1)
}
