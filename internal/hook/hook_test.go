package hook

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap/zaptest"

	"github.com/and161185/relay-loadgen/internal/errs"
	"github.com/and161185/relay-loadgen/internal/model"
)

func writeClose(id string) Func {
	return func(c *Context, _ any, done Done) {
		c.Vars[MessageVar] = model.CloseMessage(id)
		done(nil)
	}
}

func TestInvoke_Sync(t *testing.T) {
	t.Parallel()

	m, err := Invoke(context.Background(), writeClose("abc"), nil)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if m.Type != model.TypeClose || m.SubscriptionID != "abc" {
		t.Fatalf("message mismatch: %+v", m)
	}
}

func TestInvoke_AsyncCompletion(t *testing.T) {
	t.Parallel()

	f := func(c *Context, _ any, done Done) {
		go func() {
			time.Sleep(2 * time.Millisecond)
			c.Vars[MessageVar] = model.CloseMessage("later")
			done(nil)
		}()
	}
	m, err := Invoke(context.Background(), f, nil)
	if err != nil || m.SubscriptionID != "later" {
		t.Fatalf("async: m=%+v err=%v", m, err)
	}
}

func TestInvoke_ErrorAndMissingMessage(t *testing.T) {
	t.Parallel()

	wantErr := errors.New("boom")
	_, err := Invoke(context.Background(), func(_ *Context, _ any, done Done) { done(wantErr) }, nil)
	if !errors.Is(err, wantErr) {
		t.Fatalf("want original error, got: %v", err)
	}

	_, err = Invoke(context.Background(), func(_ *Context, _ any, done Done) { done(nil) }, nil)
	if !errors.Is(err, errs.ErrNoMessage) {
		t.Fatalf("want ErrNoMessage, got: %v", err)
	}
}

func TestInvoke_ContextCanceled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
	defer cancel()

	never := func(*Context, any, Done) {}
	if _, err := Invoke(ctx, never, nil); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("want deadline exceeded, got: %v", err)
	}
}

func TestOnce_DeliversFirstOnly(t *testing.T) {
	t.Parallel()

	var calls []error
	d := Once(func(err error) { calls = append(calls, err) })
	first := errors.New("first")
	d(first)
	d(nil)
	d(errors.New("third"))
	if len(calls) != 1 || !errors.Is(calls[0], first) {
		t.Fatalf("calls=%v", calls)
	}
}

func TestChain_Order(t *testing.T) {
	t.Parallel()

	var trace []string
	mw := func(tag string) Middleware {
		return func(name string, next Func) Func {
			return func(c *Context, ev any, done Done) {
				trace = append(trace, tag+":"+name)
				next(c, ev, done)
			}
		}
	}
	f := Chain("h", writeClose("x"), mw("a"), mw("b"))
	if _, err := Invoke(context.Background(), f, nil); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if len(trace) != 2 || trace[0] != "a:h" || trace[1] != "b:h" {
		t.Fatalf("trace=%v", trace)
	}
}

func TestLogging_Passthrough(t *testing.T) {
	t.Parallel()

	log := zaptest.NewLogger(t)
	ctx := WithVirtualUser(context.Background(), uuid.Must(uuid.NewV4()))

	m, err := Invoke(ctx, Chain("ok", writeClose("id1"), Logging(log)), nil)
	if err != nil || m.SubscriptionID != "id1" {
		t.Fatalf("m=%+v err=%v", m, err)
	}

	wantErr := errors.New("boom")
	fail := func(_ *Context, _ any, done Done) { done(wantErr) }
	if _, err := Invoke(ctx, Chain("fail", fail, Logging(log)), nil); !errors.Is(err, wantErr) {
		t.Fatalf("want original error, got: %v", err)
	}
}

func TestRecover_CatchesPanic(t *testing.T) {
	t.Parallel()

	log := zaptest.NewLogger(t)
	panicH := func(*Context, any, Done) { panic("oh no") }

	_, err := Invoke(context.Background(), Chain("panic", panicH, Recover(log)), nil)
	if err == nil {
		t.Fatalf("expected error from panic")
	}
}

func TestRecover_NoPanicPassThrough(t *testing.T) {
	t.Parallel()

	log := zaptest.NewLogger(t)
	m, err := Invoke(context.Background(), Chain("ok", writeClose("z"), Recover(log)), nil)
	if err != nil || m.SubscriptionID != "z" {
		t.Fatalf("m=%+v err=%v", m, err)
	}
}

func TestWithVirtualUser_And_VirtualUserFromCtx(t *testing.T) {
	t.Parallel()

	if id, ok := VirtualUserFromCtx(context.Background()); ok || id != uuid.Nil {
		t.Fatalf("expected no vu id in empty ctx")
	}

	want := uuid.Must(uuid.NewV4())
	got, ok := VirtualUserFromCtx(WithVirtualUser(context.Background(), want))
	if !ok || got != want {
		t.Fatalf("mismatch: got %s, want %s", got, want)
	}

	bad := context.WithValue(context.Background(), vuKey, "not-uuid")
	if id, ok := VirtualUserFromCtx(bad); ok || id != uuid.Nil {
		t.Fatalf("expected miss on wrong typed value")
	}
}
