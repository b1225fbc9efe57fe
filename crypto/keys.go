package crypto

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
)

// ErrInvalidKey is returned for malformed key material.
var ErrInvalidKey = errors.New("invalid key")

// SeedSize is the length of the seed accepted by KeyFromSeed.
const SeedSize = ed25519.SeedSize

// PrivateKey wraps ed25519 private key bytes.
type PrivateKey []byte

// PublicKey wraps ed25519 public key bytes. Its hex form is the on-chain
// identity of accounts, players, game servers and role holders.
type PublicKey []byte

// GenerateKeyPair generates a new ed25519 key pair.
func GenerateKeyPair() (PrivateKey, PublicKey, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, nil, err
	}
	return PrivateKey(priv), PublicKey(pub), nil
}

// KeyFromSeed derives a private key deterministically from a 32-byte seed.
func KeyFromSeed(seed []byte) (PrivateKey, error) {
	if len(seed) != SeedSize {
		return nil, fmt.Errorf("%w: seed must be %d bytes, got %d", ErrInvalidKey, SeedSize, len(seed))
	}
	return PrivateKey(ed25519.NewKeyFromSeed(seed)), nil
}

func (pub PublicKey) Hex() string   { return hex.EncodeToString(pub) }
func (priv PrivateKey) Hex() string { return hex.EncodeToString(priv) }

// Public derives the ed25519 public key from the private key.
func (priv PrivateKey) Public() PublicKey {
	return PublicKey(ed25519.PrivateKey(priv).Public().(ed25519.PublicKey))
}

// Seed returns the 32-byte seed the key was derived from.
func (priv PrivateKey) Seed() []byte {
	return ed25519.PrivateKey(priv).Seed()
}

func decodeHex(kind, s string, size int) ([]byte, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %s hex: %v", ErrInvalidKey, kind, err)
	}
	if len(b) != size {
		return nil, fmt.Errorf("%w: %s must be %d bytes, got %d", ErrInvalidKey, kind, size, len(b))
	}
	return b, nil
}

// PubKeyFromHex decodes a 64-char hex public key.
func PubKeyFromHex(s string) (PublicKey, error) {
	b, err := decodeHex("pubkey", s, ed25519.PublicKeySize)
	return PublicKey(b), err
}

// IsPubKeyHex reports whether s is a well-formed address. Reserved internal
// accounts such as the lottery pool never are.
func IsPubKeyHex(s string) bool {
	_, err := PubKeyFromHex(s)
	return err == nil
}

// PrivKeyFromHex decodes a hex-encoded private key.
func PrivKeyFromHex(s string) (PrivateKey, error) {
	b, err := decodeHex("privkey", s, ed25519.PrivateKeySize)
	return PrivateKey(b), err
}
