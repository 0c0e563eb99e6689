// Package hook defines the scenario hook contract used by load-test drivers:
// a hook receives (context, events sink, completion) and writes its outgoing
// frame into the context vars before completing.
package hook

import (
	"context"
	"sync"

	"github.com/and161185/relay-loadgen/internal/errs"
	"github.com/and161185/relay-loadgen/internal/model"
)

// MessageVar is the vars key a hook writes its outgoing frame to.
const MessageVar = "message"

// Context is the per-invocation driver context.
type Context struct {
	Ctx  context.Context
	Vars map[string]any
}

// NewContext returns a Context with empty vars.
func NewContext(ctx context.Context) *Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return &Context{Ctx: ctx, Vars: map[string]any{}}
}

// Context returns the invocation context, never nil.
func (c *Context) Context() context.Context {
	if c.Ctx == nil {
		return context.Background()
	}
	return c.Ctx
}

// Done completes a hook invocation; nil means the message in vars is ready to send.
type Done func(err error)

// Func is a scenario hook. The events argument is the driver's event sink and may be nil.
type Func func(c *Context, events any, done Done)

// Once guards done so that only the first completion is delivered.
func Once(done Done) Done {
	var once sync.Once
	return func(err error) {
		once.Do(func() { done(err) })
	}
}

// Message returns the frame a hook stored in vars.
func Message(c *Context) (model.Message, error) {
	if c == nil || c.Vars == nil {
		return model.Message{}, errs.ErrNoMessage
	}
	m, ok := c.Vars[MessageVar].(model.Message)
	if !ok {
		return model.Message{}, errs.ErrNoMessage
	}
	return m, nil
}

// Invoke runs f and waits for its completion or ctx cancellation.
func Invoke(ctx context.Context, f Func, events any) (model.Message, error) {
	c := NewContext(ctx)
	ch := make(chan error, 1)
	f(c, events, Once(func(err error) { ch <- err }))

	select {
	case err := <-ch:
		if err != nil {
			return model.Message{}, err
		}
		return Message(c)
	case <-ctx.Done():
		return model.Message{}, ctx.Err()
	}
}
