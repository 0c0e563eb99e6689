// Package scenario generates randomized publish and subscribe frames for virtual users.
package scenario

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"lukechampine.com/frand"

	"github.com/and161185/relay-loadgen/internal/crypto"
	"github.com/and161185/relay-loadgen/internal/errs"
	"github.com/and161185/relay-loadgen/internal/event"
	"github.com/and161185/relay-loadgen/internal/model"
)

// SubscriptionIDLen is the length of generated subscription ids.
const SubscriptionIDLen = 5

const base36 = "0123456789abcdefghijklmnopqrstuvwxyz"

// Rand is a uniform integer source. Implementations shared between virtual users
// must be safe for concurrent use.
type Rand interface {
	// IntN returns a value in [0, n). n > 0.
	IntN(n int) int
}

type frandSource struct{}

func (frandSource) IntN(n int) int { return frand.Intn(n) }

// FastRand is the default source: fast, uniform and safe for concurrent use.
var FastRand Rand = frandSource{}

// Config tunes a Generator. Zero values select defaults.
type Config struct {
	PoolSize  int              // distinct simulated identities, default 10
	RelayHint string           // third element of the "e" tag
	Rand      Rand             // default: frand, safe for concurrent use
	Now       func() time.Time // default: time.Now
}

// Generator builds protocol frames for one test run. Safe for concurrent use when Rand is.
type Generator struct {
	pool int
	hint string
	rnd  Rand
	now  func() time.Time
	sign func(ctx context.Context, f model.EventFields, privHex string) (model.Event, error)
}

// New validates cfg and fills defaults.
func New(cfg Config) (*Generator, error) {
	if cfg.PoolSize < 0 {
		return nil, fmt.Errorf("%w: negative pool size %d", errs.ErrInvalidConfig, cfg.PoolSize)
	}
	if cfg.PoolSize == 0 {
		cfg.PoolSize = model.DefaultPoolSize
	}
	if cfg.RelayHint == "" {
		cfg.RelayHint = model.DefaultRelayHint
	}
	if cfg.Rand == nil {
		cfg.Rand = FastRand
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Generator{
		pool: cfg.PoolSize,
		hint: cfg.RelayHint,
		rnd:  cfg.Rand,
		now:  cfg.Now,
		sign: event.Sign,
	}, nil
}

// PoolSize reports the identity pool bound.
func (g *Generator) PoolSize() int { return g.pool }

// Publish signs a kind-1 note from a random pool identity that references another one.
func (g *Generator) Publish(ctx context.Context) (model.Message, error) {
	author := crypto.DerivePrivateKey(strconv.Itoa(g.rnd.IntN(g.pool)))
	pub, err := crypto.PublicKeyFromPrivate(author)
	if err != nil {
		return model.Message{}, fmt.Errorf("author key: %w", err)
	}
	ref, err := crypto.DerivePublicKey(strconv.Itoa(g.rnd.IntN(g.pool)))
	if err != nil {
		return model.Message{}, fmt.Errorf("referenced key: %w", err)
	}

	now := g.now()
	f := model.EventFields{
		PubKey:    pub,
		CreatedAt: now.Unix(),
		Kind:      model.KindTextNote,
		Tags:      model.Tags{{"e", ref, g.hint}},
		Content:   fmt.Sprintf("Performance test %d", now.UnixMilli()),
	}

	ev, err := g.sign(ctx, f, author)
	if err != nil {
		return model.Message{}, err
	}
	return model.PublishMessage(ev), nil
}

// Subscribe builds a REQ for the first c pool identities, c drawn from [0, PoolSize/3).
func (g *Generator) Subscribe(ctx context.Context) (model.Message, error) {
	if err := ctx.Err(); err != nil {
		return model.Message{}, err
	}
	c := 0
	if bound := g.pool / 3; bound > 0 {
		c = g.rnd.IntN(bound)
	}

	authors := make([]string, 0, c)
	for i := 0; i < c; i++ {
		pub, err := crypto.DerivePublicKey(strconv.Itoa(i))
		if err != nil {
			return model.Message{}, fmt.Errorf("author[%d] key: %w", i, err)
		}
		authors = append(authors, pub)
	}

	return model.SubscribeMessage(g.SubscriptionID(), model.Filter{Authors: authors}), nil
}

// SubscriptionID returns SubscriptionIDLen random base-36 characters.
func (g *Generator) SubscriptionID() string {
	b := make([]byte, SubscriptionIDLen)
	for i := range b {
		b[i] = base36[g.rnd.IntN(len(base36))]
	}
	return string(b)
}
