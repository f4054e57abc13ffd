package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/nacl/secretbox"
)

const nonceSize = 24

// ErrUnsealFailed is returned when a sealed value cannot be authenticated.
var ErrUnsealFailed = errors.New("credential unseal failed")

// CredentialSealer encrypts SMTP credentials at rest with NaCl secretbox.
// Sealed values are base64(nonce || box).
type CredentialSealer struct {
	key [32]byte
}

// NewCredentialSealer derives the box key from a passphrase.
func NewCredentialSealer(passphrase string) *CredentialSealer {
	return &CredentialSealer{key: sha256.Sum256([]byte(passphrase))}
}

// Seal encrypts plain. An empty input seals to an empty string.
func (s *CredentialSealer) Seal(plain string) (string, error) {
	if plain == "" {
		return "", nil
	}
	var nonce [nonceSize]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}
	box := secretbox.Seal(nonce[:], []byte(plain), &nonce, &s.key)
	return base64.StdEncoding.EncodeToString(box), nil
}

// Open decrypts a value produced by Seal.
func (s *CredentialSealer) Open(sealed string) (string, error) {
	if sealed == "" {
		return "", nil
	}
	raw, err := base64.StdEncoding.DecodeString(sealed)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnsealFailed, err)
	}
	if len(raw) < nonceSize+secretbox.Overhead {
		return "", ErrUnsealFailed
	}
	var nonce [nonceSize]byte
	copy(nonce[:], raw[:nonceSize])
	plain, ok := secretbox.Open(nil, raw[nonceSize:], &nonce, &s.key)
	if !ok {
		return "", ErrUnsealFailed
	}
	return string(plain), nil
}
