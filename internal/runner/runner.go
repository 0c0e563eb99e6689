// Package runner drives virtual users against a relay using the scenario hooks.
package runner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/sony/gobreaker"
	"go.uber.org/atomic"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/and161185/relay-loadgen/internal/errs"
	"github.com/and161185/relay-loadgen/internal/hook"
	"github.com/and161185/relay-loadgen/internal/limiter"
	"github.com/and161185/relay-loadgen/internal/model"
	"github.com/and161185/relay-loadgen/internal/scenario"
	"github.com/and161185/relay-loadgen/internal/transport"
)

// RelayConn is the per-virtual-user connection.
type RelayConn interface {
	Send(m model.Message) error
	Receive() (model.RelayMessage, error)
	Close() error
}

// DialFunc opens a RelayConn.
type DialFunc func(ctx context.Context, url string) (RelayConn, error)

// DialWebsocket dials with the websocket transport.
func DialWebsocket(ctx context.Context, url string) (RelayConn, error) {
	c, err := transport.Dial(ctx, url)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// Stats is a snapshot of run counters.
type Stats struct {
	Publishes     int64
	Subscriptions int64
	Failures      int64 // hook invocations that completed with an error
	Sent          int64
	SendErrors    int64
	Accepted      int64
	Rejected      int64
	EOSE          int64
	Notices       int64
	Closed        int64
	Elapsed       time.Duration
}

type counters struct {
	publishes, subscriptions, failures atomic.Int64
	sent, sendErrors                   atomic.Int64
	accepted, rejected                 atomic.Int64
	eose, notices, closed              atomic.Int64
}

// Runner executes a load run. A Runner is single-use per Run call but Stats may be read concurrently.
type Runner struct {
	cfg       Config
	publish   hook.Func
	subscribe hook.Func
	dial      DialFunc
	log       *zap.Logger
	rnd       scenario.Rand

	c counters
}

// New wires the generator hooks with recover and logging middleware.
func New(cfg Config, gen *scenario.Generator, dial DialFunc, log *zap.Logger) (*Runner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if gen == nil {
		return nil, errors.New("validation: nil generator")
	}
	if dial == nil {
		dial = DialWebsocket
	}
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.BreakerFailures == 0 {
		cfg.BreakerFailures = DefaultBreakerFailures
	}
	if cfg.DrainTimeout == 0 {
		cfg.DrainTimeout = DefaultDrainTimeout
	}

	mws := []hook.Middleware{hook.Recover(log), hook.Logging(log)}
	return &Runner{
		cfg:       cfg,
		publish:   hook.Chain(scenario.HookCreateMessage, gen.CreateMessage, mws...),
		subscribe: hook.Chain(scenario.HookCreateSubscription, gen.CreateSubscription, mws...),
		dial:      dial,
		log:       log,
		rnd:       scenario.FastRand,
	}, nil
}

// Run starts all virtual users and waits for them. Reaching Duration or
// cancellation of ctx ends the run without error.
func (r *Runner) Run(ctx context.Context) (Stats, error) {
	start := time.Now()
	if r.cfg.Duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.cfg.Duration)
		defer cancel()
	}

	r.log.Info("run started",
		zap.String("relay", r.cfg.RelayURL),
		zap.Int("vus", r.cfg.VirtualUsers),
		zap.Int("iterations", r.cfg.Iterations),
		zap.Duration("duration", r.cfg.Duration),
	)

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < r.cfg.VirtualUsers; i++ {
		g.Go(func() error {
			id, err := uuid.NewV4()
			if err != nil {
				return err
			}
			return r.runVU(hook.WithVirtualUser(gctx, id), id)
		})
	}
	err := g.Wait()

	st := r.Stats()
	st.Elapsed = time.Since(start)
	r.log.Info("run finished",
		zap.Int64("publishes", st.Publishes),
		zap.Int64("subscriptions", st.Subscriptions),
		zap.Int64("failures", st.Failures),
		zap.Int64("sent", st.Sent),
		zap.Int64("accepted", st.Accepted),
		zap.Int64("rejected", st.Rejected),
		zap.Duration("elapsed", st.Elapsed),
		zap.Error(err),
	)
	return st, err
}

// Stats returns the current counters.
func (r *Runner) Stats() Stats {
	return Stats{
		Publishes:     r.c.publishes.Load(),
		Subscriptions: r.c.subscriptions.Load(),
		Failures:      r.c.failures.Load(),
		Sent:          r.c.sent.Load(),
		SendErrors:    r.c.sendErrors.Load(),
		Accepted:      r.c.accepted.Load(),
		Rejected:      r.c.rejected.Load(),
		EOSE:          r.c.eose.Load(),
		Notices:       r.c.notices.Load(),
		Closed:        r.c.closed.Load(),
	}
}

func (r *Runner) runVU(ctx context.Context, id uuid.UUID) error {
	log := r.log.With(zap.String("vu", id.String()))

	conn, err := r.dial(ctx, r.cfg.RelayURL)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("vu %s: %w", id, err)
	}

	var replies atomic.Int64
	readerDone := make(chan struct{})
	if r.cfg.ReadResponses {
		go func() {
			defer close(readerDone)
			r.readLoop(conn, &replies, log)
		}()
	} else {
		close(readerDone)
	}

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name: "relay-" + id.String(),
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= r.cfg.BreakerFailures
		},
	})

	sent, err := r.iterate(ctx, conn, cb)

	if r.cfg.ReadResponses {
		r.drain(&replies, sent)
	}
	_ = conn.Close()
	<-readerDone

	if err != nil {
		log.Error("virtual user aborted", zap.Error(err))
		return fmt.Errorf("vu %s: %w", id, err)
	}
	return nil
}

func (r *Runner) iterate(ctx context.Context, conn RelayConn, cb *gobreaker.CircuitBreaker) (int64, error) {
	lim := limiter.Limiter(limiter.Unlimited)
	if r.cfg.Rate > 0 {
		lim = limiter.NewRate(r.cfg.Rate, r.cfg.Burst)
	}

	var sent int64
	for i := 0; r.cfg.Iterations == 0 || i < r.cfg.Iterations; i++ {
		if err := lim.Wait(ctx); err != nil {
			return sent, nil
		}

		publish := r.pickPublish()
		f := r.subscribe
		if publish {
			f = r.publish
		}

		msg, err := hook.Invoke(ctx, f, nil)
		if err != nil {
			if ctx.Err() != nil {
				return sent, nil
			}
			r.c.failures.Inc()
			continue
		}
		if publish {
			r.c.publishes.Inc()
		} else {
			r.c.subscriptions.Inc()
		}

		_, err = cb.Execute(func() (interface{}, error) {
			return nil, conn.Send(msg)
		})
		switch {
		case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
			return sent, fmt.Errorf("relay unavailable: %w", err)
		case err != nil:
			r.c.sendErrors.Inc()
			continue
		}
		sent++
		r.c.sent.Inc()
	}
	return sent, nil
}

func (r *Runner) pickPublish() bool {
	switch r.cfg.PublishRatio {
	case 0:
		return false
	case 1:
		return true
	}
	const scale = 1 << 20
	return r.rnd.IntN(scale) < int(r.cfg.PublishRatio*scale)
}

func (r *Runner) readLoop(conn RelayConn, replies *atomic.Int64, log *zap.Logger) {
	for {
		m, err := conn.Receive()
		if err != nil {
			if errors.Is(err, errs.ErrInvalidMessage) {
				log.Debug("unparsed relay frame", zap.Error(err))
				continue
			}
			return
		}
		switch m.Type {
		case model.RelayOK:
			if m.Accepted {
				r.c.accepted.Inc()
			} else {
				r.c.rejected.Inc()
				log.Debug("event rejected", zap.String("id", m.EventID), zap.String("reason", m.Message))
			}
			replies.Inc()
		case model.RelayEOSE:
			r.c.eose.Inc()
			replies.Inc()
		case model.RelayNotice:
			r.c.notices.Inc()
			replies.Inc()
		case model.RelayClosed:
			r.c.closed.Inc()
		}
	}
}

// drain waits until every sent frame got its first reply or DrainTimeout passes.
func (r *Runner) drain(replies *atomic.Int64, sent int64) {
	deadline := time.Now().Add(r.cfg.DrainTimeout)
	for replies.Load() < sent && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
}
