// ABOUTME: Token sealing at rest with NaCl secretbox
// ABOUTME: Sealed values are prefixed so plain and sealed tokens can be told apart

package session

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/nacl/secretbox"
)

const sealedPrefix = "sb1:"

// ErrUnseal is returned when a sealed value cannot be opened with the key.
var ErrUnseal = errors.New("cannot unseal value")

// Sealer encrypts values before they reach durable storage.
type Sealer interface {
	Seal(plain string) (string, error)
	Open(sealed string) (string, error)
}

// SecretBox seals values with XSalsa20-Poly1305 under a key derived from a
// shared secret.
type SecretBox struct {
	key [32]byte
}

// NewSecretBox derives a sealing key from secret.
func NewSecretBox(secret string) (*SecretBox, error) {
	if secret == "" {
		return nil, errors.New("secret is required")
	}
	return &SecretBox{key: sha256.Sum256([]byte("stellara-admin/session/" + secret))}, nil
}

// Seal encrypts plain under a random nonce.
func (b *SecretBox) Seal(plain string) (string, error) {
	var nonce [24]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return "", fmt.Errorf("generating nonce: %w", err)
	}
	out := secretbox.Seal(nonce[:], []byte(plain), &nonce, &b.key)
	return sealedPrefix + base64.RawURLEncoding.EncodeToString(out), nil
}

// Open decrypts a value produced by Seal.
func (b *SecretBox) Open(sealed string) (string, error) {
	if !IsSealed(sealed) {
		return "", fmt.Errorf("%w: missing prefix", ErrUnseal)
	}
	raw, err := base64.RawURLEncoding.DecodeString(strings.TrimPrefix(sealed, sealedPrefix))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnseal, err)
	}
	if len(raw) < 24+secretbox.Overhead {
		return "", fmt.Errorf("%w: too short", ErrUnseal)
	}
	var nonce [24]byte
	copy(nonce[:], raw[:24])
	plain, ok := secretbox.Open(nil, raw[24:], &nonce, &b.key)
	if !ok {
		return "", ErrUnseal
	}
	return string(plain), nil
}

// IsSealed reports whether a stored value was produced by a Sealer.
func IsSealed(v string) bool {
	return strings.HasPrefix(v, sealedPrefix)
}
