package crypto

import (
	"encoding/hex"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2/schnorr"

	"github.com/and161185/relay-loadgen/internal/errs"
)

// SignatureLen is the size of a serialized BIP-340 signature.
const SignatureLen = 64

// SignHash produces a BIP-340 Schnorr signature over a 32-byte hash.
func SignHash(hash [32]byte, privHex string) ([]byte, error) {
	sk, err := parsePrivateKey(privHex)
	if err != nil {
		return nil, err
	}
	sig, err := schnorr.Sign(sk, hash[:])
	if err != nil {
		return nil, fmt.Errorf("schnorr sign: %w", err)
	}
	return sig.Serialize(), nil
}

// VerifyHash checks a hex signature over hash against an x-only hex public key.
func VerifyHash(hash [32]byte, sigHex, pubHex string) error {
	pb, err := hex.DecodeString(pubHex)
	if err != nil || len(pb) != PublicKeyLen {
		return fmt.Errorf("%w: malformed pubkey", errs.ErrBadSignature)
	}
	pub, err := schnorr.ParsePubKey(pb)
	if err != nil {
		return fmt.Errorf("%w: %v", errs.ErrBadSignature, err)
	}
	sb, err := hex.DecodeString(sigHex)
	if err != nil || len(sb) != SignatureLen {
		return fmt.Errorf("%w: malformed sig", errs.ErrBadSignature)
	}
	sig, err := schnorr.ParseSignature(sb)
	if err != nil {
		return fmt.Errorf("%w: %v", errs.ErrBadSignature, err)
	}
	if !sig.Verify(hash[:], pub) {
		return errs.ErrBadSignature
	}
	return nil
}
