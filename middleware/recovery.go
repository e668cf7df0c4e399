package middleware

import (
	"fmt"
	"io"
	"os"
	"runtime"
	"sync"
)

func captureStack(size int) []byte {
	stack := make([]byte, size)
	return stack[:runtime.Stack(stack, false)]
}

// recoverWith returns a middleware that turns a panic into the error built
// by onPanic.
func recoverWith(onPanic func(ctx Context, value any) error) Middleware {
	return func(next ActionFunc) ActionFunc {
		return func(ctx Context) (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = onPanic(ctx, r)
				}
			}()
			return next(ctx)
		}
	}
}

// Recovery converts a panicking handler into a *RecoveryError. With stack
// traces enabled the stack is captured and printed to stderr.
func Recovery(options ...MiddlewareOption) Middleware {
	return RecoveryTo(os.Stderr, options...)
}

// RecoveryTo is Recovery writing stack traces to w.
func RecoveryTo(w io.Writer, options ...MiddlewareOption) Middleware {
	config := newConfig(options)
	return recoverWith(func(ctx Context, r any) error {
		rerr := &RecoveryError{Panic: r, Command: getCommandName(ctx)}
		if config.PrintStack {
			rerr.Stack = captureStack(config.StackSize)
			fmt.Fprintf(w, "PANIC in command '%s': %v\nStack trace:\n%s\n", rerr.Command, r, rerr.Stack)
		}
		return rerr
	})
}

// RecoveryWithHandler passes a panic to handler, whose result becomes the
// handler error.
func RecoveryWithHandler(handler func(panicVal any, command string, stack []byte) error, options ...MiddlewareOption) Middleware {
	config := newConfig(options)
	return recoverWith(func(ctx Context, r any) error {
		var stack []byte
		if config.PrintStack {
			stack = captureStack(config.StackSize)
		}
		return handler(r, getCommandName(ctx), stack)
	})
}

// RecoveryToError recovers without printing anything.
func RecoveryToError() Middleware {
	return Recovery(WithStackTrace(false))
}

// SafeRecovery captures the stack without printing it and stores the panic
// in the context under "panic_value" and "panic_stack".
func SafeRecovery() Middleware {
	return recoverWith(func(ctx Context, r any) error {
		stack := captureStack(4096)
		ctx.Set("panic_stack", string(stack))
		ctx.Set("panic_value", r)
		return &RecoveryError{Panic: r, Command: getCommandName(ctx), Stack: stack}
	})
}

// NoopRecovery lets panics propagate.
func NoopRecovery() Middleware {
	return func(next ActionFunc) ActionFunc { return next }
}

// RecoveryStats counts recovered panics. It is safe for concurrent use.
type RecoveryStats struct {
	mu            sync.Mutex
	TotalPanics   int
	CommandPanics map[string]int
	LastPanic     *RecoveryError
}

// NewRecoveryStats creates an empty RecoveryStats.
func NewRecoveryStats() *RecoveryStats {
	return &RecoveryStats{CommandPanics: make(map[string]int)}
}

// Snapshot returns the total count and the most recent panic.
func (s *RecoveryStats) Snapshot() (total int, last *RecoveryError) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.TotalPanics, s.LastPanic
}

// RecoveryWithStats recovers panics and records them in stats.
func RecoveryWithStats(stats *RecoveryStats, options ...MiddlewareOption) Middleware {
	config := newConfig(options)
	return recoverWith(func(ctx Context, r any) error {
		rerr := &RecoveryError{Panic: r, Command: getCommandName(ctx)}
		if config.PrintStack {
			rerr.Stack = captureStack(config.StackSize)
		}

		stats.mu.Lock()
		stats.TotalPanics++
		stats.CommandPanics[rerr.Command]++
		stats.LastPanic = rerr
		stats.mu.Unlock()
		return rerr
	})
}
