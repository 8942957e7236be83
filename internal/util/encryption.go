package util

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"
)

var ErrInvalidCiphertext = errors.New("invalid ciphertext payload")

// Cipher seals credential strings with AES-256-GCM. The key is derived once
// from a process-wide secret and never changes, so a Cipher is safe for
// concurrent use.
type Cipher struct {
	aead cipher.AEAD
}

// NewCipher derives the key as SHA-256(secret).
func NewCipher(secret string) (*Cipher, error) {
	if secret == "" {
		return nil, errors.New("encryption secret is empty")
	}
	key := sha256.Sum256([]byte(secret))

	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("create GCM: %w", err)
	}

	return &Cipher{aead: gcm}, nil
}

// Encrypt returns "<nonce>.<tag>.<ciphertext>", each part base64url encoded.
func (c *Cipher) Encrypt(plaintext string) (string, error) {
	nonce := make([]byte, c.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}

	sealed := c.aead.Seal(nil, nonce, []byte(plaintext), nil)
	tagStart := len(sealed) - c.aead.Overhead()
	body, tag := sealed[:tagStart], sealed[tagStart:]

	enc := base64.RawURLEncoding
	return enc.EncodeToString(nonce) + "." + enc.EncodeToString(tag) + "." + enc.EncodeToString(body), nil
}

// Decrypt verifies the tag before returning any plaintext.
func (c *Cipher) Decrypt(payload string) (string, error) {
	parts := strings.Split(payload, ".")
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" {
		return "", ErrInvalidCiphertext
	}

	enc := base64.RawURLEncoding
	nonce, err := enc.DecodeString(parts[0])
	if err != nil || len(nonce) != c.aead.NonceSize() {
		return "", ErrInvalidCiphertext
	}
	tag, err := enc.DecodeString(parts[1])
	if err != nil || len(tag) != c.aead.Overhead() {
		return "", ErrInvalidCiphertext
	}
	body, err := enc.DecodeString(parts[2])
	if err != nil {
		return "", ErrInvalidCiphertext
	}

	plaintext, err := c.aead.Open(nil, nonce, append(body, tag...), nil)
	if err != nil {
		return "", fmt.Errorf("decrypt: %w", err)
	}
	return string(plaintext), nil
}
