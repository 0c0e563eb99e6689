// Package crypto implements deterministic identity derivation and BIP-340 signing for test users.
//
// Private keys are HMAC-SHA256(secret, secret). This exists so every virtual user can be
// re-derived from a short string; it is not a key derivation function for real keys.
package crypto

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"

	"github.com/and161185/relay-loadgen/internal/errs"
)

// Key sizes in bytes.
const (
	PrivateKeyLen = 32
	PublicKeyLen  = 32 // x-only
)

// Identity is a derived key pair in hex form.
type Identity struct {
	PrivateKey string
	PublicKey  string
}

// DerivePrivateKey returns hex(HMAC-SHA256(key=secret, msg=secret)).
func DerivePrivateKey(secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(secret))
	return hex.EncodeToString(mac.Sum(nil))
}

// DerivePublicKey returns the x-only public key for the secret's derived private key.
func DerivePublicKey(secret string) (string, error) {
	return PublicKeyFromPrivate(DerivePrivateKey(secret))
}

// Derive returns both halves of the identity for secret.
func Derive(secret string) (Identity, error) {
	priv := DerivePrivateKey(secret)
	pub, err := PublicKeyFromPrivate(priv)
	if err != nil {
		return Identity{}, err
	}
	return Identity{PrivateKey: priv, PublicKey: pub}, nil
}

// PublicKeyFromPrivate computes the compressed public key and strips its parity byte.
func PublicKeyFromPrivate(privHex string) (string, error) {
	sk, err := parsePrivateKey(privHex)
	if err != nil {
		return "", err
	}
	compressed := sk.PubKey().SerializeCompressed()
	return hex.EncodeToString(compressed[1:]), nil
}

// parsePrivateKey rejects anything that is not a 32-byte scalar in [1, N).
func parsePrivateKey(privHex string) (*secp256k1.PrivateKey, error) {
	b, err := hex.DecodeString(privHex)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrInvalidKey, err)
	}
	if len(b) != PrivateKeyLen {
		return nil, fmt.Errorf("%w: length %d", errs.ErrInvalidKey, len(b))
	}
	var s secp256k1.ModNScalar
	if overflow := s.SetByteSlice(b); overflow || s.IsZero() {
		return nil, fmt.Errorf("%w: scalar out of range", errs.ErrInvalidKey)
	}
	return secp256k1.NewPrivateKey(&s), nil
}
