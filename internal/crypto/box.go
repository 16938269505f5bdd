package crypto

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"

	"github.com/mr-tron/base58"
	"golang.org/x/crypto/curve25519"
	"golang.org/x/crypto/nacl/box"
)

const (
	KeySize   = 32 // x25519 public and secret key length
	NonceSize = 24 // xsalsa20-poly1305 nonce length
)

// ErrDecrypt is returned when a ciphertext does not open under the shared secret.
// It covers a wrong key, a wrong nonce and a tampered payload alike.
var ErrDecrypt = errors.New("unable to decrypt payload")

// Keypair is the dApp side x25519 encryption keypair.
type Keypair struct {
	PublicKey [KeySize]byte
	SecretKey [KeySize]byte
}

// GenerateKeypair creates a fresh box keypair from r (crypto/rand when nil).
func GenerateKeypair(r io.Reader) (*Keypair, error) {
	if r == nil {
		r = rand.Reader
	}
	pub, priv, err := box.GenerateKey(r)
	if err != nil {
		return nil, fmt.Errorf("failed to generate keypair: %w", err)
	}
	return &Keypair{PublicKey: *pub, SecretKey: *priv}, nil
}

// KeypairFromSecret rebuilds a keypair from its secret key.
func KeypairFromSecret(secret []byte) (*Keypair, error) {
	if len(secret) != KeySize {
		return nil, fmt.Errorf("invalid secret key length: expected %d bytes, got %d", KeySize, len(secret))
	}
	pub, err := curve25519.X25519(secret, curve25519.Basepoint)
	if err != nil {
		return nil, fmt.Errorf("failed to derive public key: %w", err)
	}
	kp := &Keypair{}
	copy(kp.SecretKey[:], secret)
	copy(kp.PublicKey[:], pub)
	return kp, nil
}

// Wipe zeroes the secret key.
func (k *Keypair) Wipe() {
	clear(k.SecretKey[:])
}

// NewNonce reads a random 24 byte nonce from r (crypto/rand when nil).
func NewNonce(r io.Reader) ([NonceSize]byte, error) {
	var nonce [NonceSize]byte
	if r == nil {
		r = rand.Reader
	}
	if _, err := io.ReadFull(r, nonce[:]); err != nil {
		return nonce, fmt.Errorf("failed to generate nonce: %w", err)
	}
	return nonce, nil
}

// SharedKey precomputes the box shared secret between a remote public key and a local secret key.
// Both sides arrive at the same value with their own secret and the peer's public key.
func SharedKey(remotePublic, localSecret *[KeySize]byte) *[KeySize]byte {
	shared := new([KeySize]byte)
	box.Precompute(shared, remotePublic, localSecret)
	return shared
}

// Seal encrypts plaintext under the shared secret.
func Seal(plaintext []byte, nonce *[NonceSize]byte, shared *[KeySize]byte) []byte {
	return box.SealAfterPrecomputation(nil, plaintext, nonce, shared)
}

// Open decrypts ciphertext under the shared secret.
func Open(ciphertext []byte, nonce *[NonceSize]byte, shared *[KeySize]byte) ([]byte, error) {
	plaintext, ok := box.OpenAfterPrecomputation(nil, ciphertext, nonce, shared)
	if !ok || len(plaintext) == 0 {
		return nil, ErrDecrypt
	}
	return plaintext, nil
}

// DecodeKey decodes a base58 x25519 key.
func DecodeKey(s string) ([KeySize]byte, error) {
	var key [KeySize]byte
	raw, err := base58.Decode(s)
	if err != nil {
		return key, fmt.Errorf("failed to decode key: %w", err)
	}
	if len(raw) != KeySize {
		return key, fmt.Errorf("invalid key length: expected %d bytes, got %d", KeySize, len(raw))
	}
	copy(key[:], raw)
	return key, nil
}

// DecodeNonce decodes a base58 nonce.
func DecodeNonce(s string) ([NonceSize]byte, error) {
	var nonce [NonceSize]byte
	raw, err := base58.Decode(s)
	if err != nil {
		return nonce, fmt.Errorf("failed to decode nonce: %w", err)
	}
	if len(raw) != NonceSize {
		return nonce, fmt.Errorf("invalid nonce length: expected %d bytes, got %d", NonceSize, len(raw))
	}
	copy(nonce[:], raw)
	return nonce, nil
}
