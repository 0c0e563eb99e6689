package event

import (
	"context"
	"encoding/hex"
	"fmt"

	"github.com/and161185/relay-loadgen/internal/crypto"
	"github.com/and161185/relay-loadgen/internal/errs"
	"github.com/and161185/relay-loadgen/internal/model"
)

// Sign computes id and sig for f. All other fields are copied unchanged.
// The context is only consulted before the crypto step; signing itself is not interruptible.
func Sign(ctx context.Context, f model.EventFields, privHex string) (model.Event, error) {
	if err := Validate(f); err != nil {
		return model.Event{}, err
	}
	pub, err := crypto.PublicKeyFromPrivate(privHex)
	if err != nil {
		return model.Event{}, fmt.Errorf("sign event: %w", err)
	}
	if pub != f.PubKey {
		return model.Event{}, fmt.Errorf("%w: pubkey does not match signing key", errs.ErrInvalidEvent)
	}
	if err := ctx.Err(); err != nil {
		return model.Event{}, err
	}

	id := ComputeID(f)
	sig, err := crypto.SignHash(id, privHex)
	if err != nil {
		return model.Event{}, fmt.Errorf("sign event: %w", err)
	}

	return model.Event{
		ID:        hex.EncodeToString(id[:]),
		PubKey:    f.PubKey,
		CreatedAt: f.CreatedAt,
		Kind:      f.Kind,
		Tags:      cloneTags(f.Tags),
		Content:   f.Content,
		Sig:       hex.EncodeToString(sig),
	}, nil
}

// Verify recomputes the id and checks the signature against the author key.
func Verify(ev model.Event) error {
	f := ev.Fields()
	if err := Validate(f); err != nil {
		return err
	}
	id := ComputeID(f)
	if hex.EncodeToString(id[:]) != ev.ID {
		return errs.ErrBadID
	}
	return crypto.VerifyHash(id, ev.Sig, ev.PubKey)
}

func cloneTags(in model.Tags) model.Tags {
	if in == nil {
		return nil
	}
	out := make(model.Tags, len(in))
	for i, t := range in {
		out[i] = append(model.Tag(nil), t...)
	}
	return out
}
