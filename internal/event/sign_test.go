package event

import (
	"context"
	"encoding/hex"
	"errors"
	"strings"
	"testing"

	"github.com/nbd-wtf/go-nostr"
	"github.com/stretchr/testify/require"

	"github.com/and161185/relay-loadgen/internal/crypto"
	"github.com/and161185/relay-loadgen/internal/errs"
	"github.com/and161185/relay-loadgen/internal/model"
)

func toNostr(ev model.Event) nostr.Event {
	tags := make(nostr.Tags, 0, len(ev.Tags))
	for _, t := range ev.Tags {
		tags = append(tags, nostr.Tag(t))
	}
	return nostr.Event{
		ID:        ev.ID,
		PubKey:    ev.PubKey,
		CreatedAt: nostr.Timestamp(ev.CreatedAt),
		Kind:      ev.Kind,
		Tags:      tags,
		Content:   ev.Content,
		Sig:       ev.Sig,
	}
}

func TestSign_ProducesVerifiableEvent(t *testing.T) {
	t.Parallel()

	priv := crypto.DerivePrivateKey("7")
	f := sampleFields()

	ev, err := Sign(context.Background(), f, priv)
	require.NoError(t, err)
	require.Equal(t, "e5324aff1bb3c797522555453b921963a7f27f27f5f322786afb313deb82951e", ev.ID)
	require.Len(t, ev.Sig, 128)
	require.Equal(t, f.PubKey, ev.PubKey)
	require.Equal(t, f.CreatedAt, ev.CreatedAt)
	require.Equal(t, f.Kind, ev.Kind)
	require.Equal(t, f.Tags, ev.Tags)
	require.Equal(t, f.Content, ev.Content)

	require.NoError(t, Verify(ev))
}

func TestSign_InteroperatesWithGoNostr(t *testing.T) {
	t.Parallel()

	priv := crypto.DerivePrivateKey("7")
	f := sampleFields()
	f.Content = "line1\nline2 \"quoted\" \\ tab\t ctrl\x02 unicode ✓ <html>&"

	ev, err := Sign(context.Background(), f, priv)
	require.NoError(t, err)

	ne := toNostr(ev)
	require.Equal(t, string(Serialize(f)), string(ne.Serialize()))
	require.Equal(t, ev.ID, ne.GetID())

	ok, err := ne.CheckSignature()
	require.NoError(t, err)
	require.True(t, ok)
}

func TestSign_TamperingBreaksVerification(t *testing.T) {
	t.Parallel()

	ev, err := Sign(context.Background(), sampleFields(), crypto.DerivePrivateKey("7"))
	require.NoError(t, err)

	tampered := ev
	tampered.Content = "changed"
	require.ErrorIs(t, Verify(tampered), errs.ErrBadID)

	// id recomputed for the new content, old signature kept
	id := ComputeID(tampered.Fields())
	tampered.ID = hex.EncodeToString(id[:])
	require.ErrorIs(t, Verify(tampered), errs.ErrBadSignature)

	flipped := ev
	flipped.Sig = strings.Repeat("0", 128)
	require.ErrorIs(t, Verify(flipped), errs.ErrBadSignature)
}

func TestSign_DoesNotAliasTags(t *testing.T) {
	t.Parallel()

	f := sampleFields()
	ev, err := Sign(context.Background(), f, crypto.DerivePrivateKey("7"))
	require.NoError(t, err)

	f.Tags[0][0] = "p"
	require.Equal(t, "e", ev.Tags[0][0])
	require.NoError(t, Verify(ev))
}

func TestSign_Failures(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	if _, err := Sign(ctx, sampleFields(), strings.Repeat("00", 32)); !errors.Is(err, errs.ErrInvalidKey) {
		t.Fatalf("zero key: want ErrInvalidKey, got %v", err)
	}

	if _, err := Sign(ctx, sampleFields(), crypto.DerivePrivateKey("8")); !errors.Is(err, errs.ErrInvalidEvent) {
		t.Fatalf("key/pubkey mismatch: want ErrInvalidEvent, got %v", err)
	}

	bad := sampleFields()
	bad.CreatedAt = -5
	if _, err := Sign(ctx, bad, crypto.DerivePrivateKey("7")); !errors.Is(err, errs.ErrInvalidEvent) {
		t.Fatalf("negative ts: want ErrInvalidEvent, got %v", err)
	}

	cctx, cancel := context.WithCancel(ctx)
	cancel()
	if _, err := Sign(cctx, sampleFields(), crypto.DerivePrivateKey("7")); !errors.Is(err, context.Canceled) {
		t.Fatalf("canceled ctx: want context.Canceled, got %v", err)
	}
}
