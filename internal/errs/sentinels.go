// Package errs contains sentinel errors used across layers for stable error mapping.
package errs

import "errors"

// Common sentinels across crypto/event/scenario layers.
var (
	// ErrInvalidKey indicates a derived or supplied scalar is not a valid secp256k1 private key.
	ErrInvalidKey = errors.New("invalid key")

	// ErrInvalidEvent indicates malformed event fields that must not be signed.
	ErrInvalidEvent = errors.New("invalid event")

	// ErrBadID indicates the event id does not match the canonical serialization hash.
	ErrBadID = errors.New("event id mismatch")

	// ErrBadSignature indicates Schnorr verification failed.
	ErrBadSignature = errors.New("bad signature")

	// ErrInvalidMessage indicates a wire message that cannot be encoded or decoded.
	ErrInvalidMessage = errors.New("invalid message")

	// ErrInvalidConfig indicates rejected generator or runner configuration.
	ErrInvalidConfig = errors.New("invalid config")

	// ErrNoMessage indicates a hook completed without writing a message.
	ErrNoMessage = errors.New("no message")
)
