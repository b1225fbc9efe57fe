package crypto

import (
	"crypto/ed25519"
	"encoding/hex"
	"errors"
	"fmt"
)

// ErrSignatureMismatch is returned when a well-formed signature does not verify.
var ErrSignatureMismatch = errors.New("signature verification failed")

// Sign returns the hex-encoded ed25519 signature of data.
func Sign(priv PrivateKey, data []byte) string {
	return hex.EncodeToString(ed25519.Sign(ed25519.PrivateKey(priv), data))
}

// Verify checks a hex-encoded signature over data. Malformed signatures are
// reported as mismatches so callers have a single failure to branch on.
func Verify(pub PublicKey, data []byte, sigHex string) error {
	sig, err := hex.DecodeString(sigHex)
	if err != nil || len(sig) != ed25519.SignatureSize {
		return fmt.Errorf("%w: malformed signature", ErrSignatureMismatch)
	}
	if len(pub) != ed25519.PublicKeySize || !ed25519.Verify(ed25519.PublicKey(pub), data, sig) {
		return ErrSignatureMismatch
	}
	return nil
}

// VerifyHex is Verify for a hex-encoded public key.
func VerifyHex(pubHex string, data []byte, sigHex string) error {
	pub, err := PubKeyFromHex(pubHex)
	if err != nil {
		return err
	}
	return Verify(pub, data, sigHex)
}
