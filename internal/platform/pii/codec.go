package pii

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
)

var (
	// ErrKeyDerivation indicates the configured key material is absent or
	// unusable. It is fatal at startup: the server must not run without a
	// full-strength key.
	ErrKeyDerivation = errors.New("pii: key derivation failed")

	// ErrEncryptionFailure indicates a field could not be encrypted.
	ErrEncryptionFailure = errors.New("pii: encryption failed")

	// ErrDecryptionFailure indicates stored ciphertext could not be decrypted
	// (corrupt data or key mismatch). Callers must surface this, never fall
	// back to displaying the raw ciphertext.
	ErrDecryptionFailure = errors.New("pii: decryption failed")
)

// Codec encrypts protected patient fields with AES-256-GCM and derives a
// deterministic search token per value so equality lookups can match the
// stored token column without decrypting rows.
//
// The AEAD key and the token MAC key are separate derivations of the
// configured master key, so the token construction cannot leak anything
// about the cipher keystream. The token is hex(HMAC-SHA256(macKey,
// normalized plaintext)); it is one-way and only as brute-forceable as the
// underlying value space, so it is applied only to high-cardinality fields
// (national IDs, phone numbers, insurance IDs).
type Codec struct {
	aead   cipher.AEAD
	macKey []byte
}

// NewCodec derives the AEAD and token keys from the 32-byte master key and
// returns a Codec safe for unsynchronized concurrent use.
func NewCodec(masterKey []byte) (*Codec, error) {
	if len(masterKey) != 32 {
		return nil, fmt.Errorf("%w: key must be 32 bytes, got %d", ErrKeyDerivation, len(masterKey))
	}

	encKey := deriveKey(masterKey, "encrypt")
	macKey := deriveKey(masterKey, "search-token")

	block, err := aes.NewCipher(encKey)
	if err != nil {
		return nil, fmt.Errorf("%w: create cipher: %v", ErrKeyDerivation, err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("%w: create GCM: %v", ErrKeyDerivation, err)
	}

	return &Codec{aead: aead, macKey: macKey}, nil
}

// deriveKey produces a purpose-bound subkey so the same master key can back
// both the cipher and the token MAC without reuse.
func deriveKey(masterKey []byte, purpose string) []byte {
	h := hmac.New(sha256.New, masterKey)
	h.Write([]byte("clinicore/pii/" + purpose))
	return h.Sum(nil)
}

// Encrypt encrypts the plaintext and returns the base64 ciphertext with the
// nonce prepended, plus the search token for the same value under the given
// normalization.
func (c *Codec) Encrypt(plaintext string, norm Normalizer) (ciphertext, token string, err error) {
	nonce := make([]byte, c.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", "", fmt.Errorf("%w: generate nonce: %v", ErrEncryptionFailure, err)
	}

	// Seal appends the ciphertext to nonce, so the result is nonce + ciphertext.
	sealed := c.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), c.Token(plaintext, norm), nil
}

// Decrypt decodes the base64 ciphertext, extracts the prepended nonce, and
// decrypts. Any authentication or framing failure yields ErrDecryptionFailure.
func (c *Codec) Decrypt(ciphertext string) (string, error) {
	data, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", fmt.Errorf("%w: base64 decode: %v", ErrDecryptionFailure, err)
	}

	nonceSize := c.aead.NonceSize()
	if len(data) < nonceSize {
		return "", fmt.Errorf("%w: ciphertext too short", ErrDecryptionFailure)
	}

	nonce, sealed := data[:nonceSize], data[nonceSize:]
	plaintext, err := c.aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDecryptionFailure, err)
	}
	return string(plaintext), nil
}

// Token computes the deterministic search token for a value. Equal values
// after normalization always produce equal tokens, so query predicates can be
// built by calling Token on the search input and matching the stored column.
func (c *Codec) Token(plaintext string, norm Normalizer) string {
	h := hmac.New(sha256.New, c.macKey)
	h.Write([]byte(norm(plaintext)))
	return hex.EncodeToString(h.Sum(nil))
}
