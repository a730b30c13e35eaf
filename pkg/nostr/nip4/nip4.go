// Package nip4 implements the direct message encryption used for kind 4
// events and NWC envelopes negotiated down to nip04.
//
// Two wire formats exist. The default is an AEAD construction:
//
//	v=2:base64( nonce(12) || ciphertext || tag(16) )
//
// where the key schedule is HKDF-SHA256 over the ECDH shared x coordinate
// with the fixed info label "nip04-v2", deriving a 32 byte ChaCha20-Poly1305
// key and a 12 byte nonce salt which is XORed with the fresh random nonce
// carried in the payload. The label is frozen; changing it orphans every
// previously written ciphertext.
//
// The legacy format is the original NIP-04 AES-256-CBC:
//
//	base64(ciphertext)?iv=base64(iv(16))
//
// selected at encrypt time by Config.LegacyCBC (environment knob
// NIP04_LEGACY_CBC). Decrypt dispatches on the "v=2:" prefix and accepts
// both. Every decrypt failure, whatever the stage, is reported as the one
// opaque ErrDecryptFailed so the error channel cannot be used as a padding
// or validation oracle.
package nip4

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"io"
	"os"
	"strings"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/silex-im/silex/pkg/hex"
	"github.com/silex-im/silex/pkg/nostr/keys"
	"github.com/silex-im/silex/pkg/slog"
	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

var log, chk = slog.New(os.Stderr)

// ErrDecryptFailed is the only error Decrypt returns. Which stage failed is
// deliberately not revealed.
var ErrDecryptFailed = Error("decrypt failed")

// Error is a trivial constant error type.
type Error string

func (e Error) Error() string { return string(e) }

const (
	aeadPrefix = "v=2:"
	ivMarker   = "?iv="

	// hkdfLabel is the frozen info label of the AEAD key schedule. Do not
	// change it: ciphertexts written under one label cannot be read under
	// another.
	hkdfLabel = "nip04-v2"

	nonceSize = chacha20poly1305.NonceSize
)

// Config carries the encryption knobs. The zero value selects the AEAD
// format.
type Config struct {
	// LegacyCBC forces the legacy AES-CBC wire format on encrypt.
	LegacyCBC bool
}

// ConfigFromEnv reads the NIP04_LEGACY_CBC environment variable, the
// application boundary source for Config.
func ConfigFromEnv() *Config {
	return &Config{
		LegacyCBC: os.Getenv("NIP04_LEGACY_CBC") != "",
	}
}

// Encrypt encrypts plaintext from the holder of sk to the peer public key,
// choosing the wire format from cfg. A nil cfg reads the environment.
func Encrypt(plaintext, skHex, peerPubHex string, cfg *Config) (s string,
	err error) {

	if cfg == nil {
		cfg = ConfigFromEnv()
	}
	var shared []byte
	if shared, err = sharedSecret(skHex, peerPubHex); chk.D(err) {
		return
	}
	if cfg.LegacyCBC {
		return encryptCBC(plaintext, shared)
	}
	return encryptAEAD(plaintext, shared)
}

// Decrypt decrypts a ciphertext in either wire format.
func Decrypt(ciphertext, skHex, peerPubHex string) (s string, err error) {
	shared, err := sharedSecret(skHex, peerPubHex)
	if err != nil {
		log.D.Ln("nip4 decrypt: bad keys:", err)
		return "", ErrDecryptFailed
	}
	if strings.HasPrefix(ciphertext, aeadPrefix) {
		return decryptAEAD(ciphertext, shared)
	}
	return decryptCBC(ciphertext, shared)
}

// sharedSecret computes the ECDH x coordinate between our secret key and
// the peer's key in SEC1 compressed form. An x-only peer key is lifted to
// even parity.
func sharedSecret(skHex, peerPubHex string) (shared []byte, err error) {
	skb, err := hex.DecExact(skHex, 32)
	if err != nil {
		return nil, err
	}
	sk, _ := btcec.PrivKeyFromBytes(skb)
	pk, err := keys.ParsePublicKey(peerPubHex)
	if err != nil {
		return nil, err
	}
	return btcec.GenerateSharedSecret(sk, pk), nil
}

func messageKeys(shared []byte) (key, nonceSalt []byte, err error) {
	key = make([]byte, chacha20poly1305.KeySize)
	nonceSalt = make([]byte, nonceSize)
	r := hkdf.New(sha256.New, shared, nil, []byte(hkdfLabel))
	if _, err = io.ReadFull(r, key); chk.E(err) {
		return nil, nil, err
	}
	if _, err = io.ReadFull(r, nonceSalt); chk.E(err) {
		return nil, nil, err
	}
	return
}

func encryptAEAD(plaintext string, shared []byte) (s string, err error) {
	key, nonceSalt, err := messageKeys(shared)
	if chk.E(err) {
		return
	}
	fresh := make([]byte, nonceSize)
	if _, err = rand.Read(fresh); chk.E(err) {
		return
	}
	nonce := make([]byte, nonceSize)
	for i := range nonce {
		nonce[i] = nonceSalt[i] ^ fresh[i]
	}
	aead, err := chacha20poly1305.New(key)
	if chk.E(err) {
		return
	}
	sealed := aead.Seal(nil, nonce, []byte(plaintext), nil)
	payload := make([]byte, 0, nonceSize+len(sealed))
	payload = append(payload, fresh...)
	payload = append(payload, sealed...)
	return aeadPrefix + base64.StdEncoding.EncodeToString(payload), nil
}

func decryptAEAD(ciphertext string, shared []byte) (s string, err error) {
	payload, err := base64.StdEncoding.DecodeString(
		strings.TrimPrefix(ciphertext, aeadPrefix))
	if err != nil || len(payload) < nonceSize+chacha20poly1305.Overhead {
		return "", ErrDecryptFailed
	}
	key, nonceSalt, err := messageKeys(shared)
	if err != nil {
		return "", ErrDecryptFailed
	}
	nonce := make([]byte, nonceSize)
	for i := range nonce {
		nonce[i] = nonceSalt[i] ^ payload[i]
	}
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return "", ErrDecryptFailed
	}
	plain, err := aead.Open(nil, nonce, payload[nonceSize:], nil)
	if err != nil {
		return "", ErrDecryptFailed
	}
	return string(plain), nil
}

func encryptCBC(plaintext string, shared []byte) (s string, err error) {
	block, err := aes.NewCipher(shared)
	if chk.E(err) {
		return
	}
	iv := make([]byte, aes.BlockSize)
	if _, err = rand.Read(iv); chk.E(err) {
		return
	}
	padded := pkcs7Pad([]byte(plaintext), aes.BlockSize)
	ct := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(ct, padded)
	return base64.StdEncoding.EncodeToString(ct) + ivMarker +
		base64.StdEncoding.EncodeToString(iv), nil
}

func decryptCBC(ciphertext string, shared []byte) (s string, err error) {
	parts := strings.SplitN(ciphertext, ivMarker, 2)
	if len(parts) != 2 {
		return "", ErrDecryptFailed
	}
	ct, err := base64.StdEncoding.DecodeString(parts[0])
	if err != nil {
		return "", ErrDecryptFailed
	}
	iv, err := base64.StdEncoding.DecodeString(parts[1])
	if err != nil || len(iv) != aes.BlockSize || len(ct) == 0 ||
		len(ct)%aes.BlockSize != 0 {
		return "", ErrDecryptFailed
	}
	block, err := aes.NewCipher(shared)
	if err != nil {
		return "", ErrDecryptFailed
	}
	plain := make([]byte, len(ct))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plain, ct)
	plain, ok := pkcs7Unpad(plain, aes.BlockSize)
	if !ok {
		return "", ErrDecryptFailed
	}
	return string(plain), nil
}

func pkcs7Pad(b []byte, blockSize int) []byte {
	pad := blockSize - len(b)%blockSize
	padded := make([]byte, len(b)+pad)
	copy(padded, b)
	for i := len(b); i < len(padded); i++ {
		padded[i] = byte(pad)
	}
	return padded
}

func pkcs7Unpad(b []byte, blockSize int) ([]byte, bool) {
	if len(b) == 0 || len(b)%blockSize != 0 {
		return nil, false
	}
	pad := int(b[len(b)-1])
	if pad == 0 || pad > blockSize || pad > len(b) {
		return nil, false
	}
	for i := len(b) - pad; i < len(b); i++ {
		if b[i] != byte(pad) {
			return nil, false
		}
	}
	return b[:len(b)-pad], true
}
