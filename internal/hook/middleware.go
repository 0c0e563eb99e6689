package hook

import (
	"fmt"
	"runtime/debug"
	"time"

	"go.uber.org/zap"
)

// Middleware wraps a named hook.
type Middleware func(name string, next Func) Func

// Chain applies middlewares so that the first one is outermost.
func Chain(name string, f Func, mws ...Middleware) Func {
	for i := len(mws) - 1; i >= 0; i-- {
		f = mws[i](name, f)
	}
	return f
}

// Logging returns a middleware that logs each completed hook call.
func Logging(log *zap.Logger) Middleware {
	return func(name string, next Func) Func {
		return func(c *Context, events any, done Done) {
			start := time.Now()
			vu, _ := VirtualUserFromCtx(c.Context())
			next(c, events, func(err error) {
				fields := []zap.Field{
					zap.String("hook", name),
					zap.String("vu", vu.String()),
					zap.Duration("dur", time.Since(start)),
				}
				if err != nil {
					log.Warn("hook failed", append(fields, zap.Error(err))...)
				} else {
					log.Debug("hook", fields...)
				}
				done(err)
			})
		}
	}
}

// Recover returns a middleware that turns a panicking hook into a failed completion.
func Recover(log *zap.Logger) Middleware {
	return func(name string, next Func) Func {
		return func(c *Context, events any, done Done) {
			done = Once(done)
			defer func() {
				if r := recover(); r != nil {
					log.Error("panic",
						zap.Any("reason", r),
						zap.ByteString("stack", debug.Stack()),
						zap.String("hook", name),
					)
					done(fmt.Errorf("hook %s panicked: %v", name, r))
				}
			}()
			next(c, events, done)
		}
	}
}
