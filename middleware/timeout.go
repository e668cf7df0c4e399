package middleware

import (
	"context"
	"errors"
	"time"
)

// runWithDeadline runs next in a goroutine and waits for it, for the
// deadline, or for the invocation to be canceled. A panic in next is
// reported as a *RecoveryError. The invocation context is left alone so
// callers decide whether a timeout is final.
func runWithDeadline(ctx Context, next ActionFunc, d time.Duration, onTimeout func()) error {
	deadline, cancel := context.WithTimeout(ctx.Context(), d)
	defer cancel()

	result := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				result <- &RecoveryError{Panic: r, Command: getCommandName(ctx)}
			}
		}()
		result <- next(ctx)
	}()

	select {
	case err := <-result:
		return err
	case <-deadline.Done():
		if ctx.Context().Err() != nil {
			return ctx.Context().Err()
		}
		if onTimeout != nil {
			onTimeout()
		}
		return &TimeoutError{Duration: d, Command: getCommandName(ctx)}
	}
}

// cancelOnTimeout cancels the invocation when err is a *TimeoutError so the
// abandoned handler can stop.
func cancelOnTimeout(ctx Context, err error) error {
	var terr *TimeoutError
	if errors.As(err, &terr) {
		ctx.Cancel()
	}
	return err
}

// Timeout fails the invocation with a *TimeoutError once d has elapsed and
// cancels its context so the handler can stop.
func Timeout(d time.Duration) Middleware {
	return func(next ActionFunc) ActionFunc {
		return func(ctx Context) error {
			return cancelOnTimeout(ctx, runWithDeadline(ctx, next, d, nil))
		}
	}
}

// TimeoutWithDefault uses the configured default timeout.
func TimeoutWithDefault(options ...MiddlewareOption) Middleware {
	return Timeout(newConfig(options).DefaultTimeout)
}

// TimeoutWithCallback calls onTimeout with the command name before failing.
func TimeoutWithCallback(d time.Duration, onTimeout func(command string, d time.Duration)) Middleware {
	return func(next ActionFunc) ActionFunc {
		return func(ctx Context) error {
			return cancelOnTimeout(ctx, runWithDeadline(ctx, next, d, func() {
				if onTimeout != nil {
					onTimeout(getCommandName(ctx), d)
				}
			}))
		}
	}
}

// TimeoutPerCommand picks the timeout by command name, falling back to def.
func TimeoutPerCommand(timeouts map[string]time.Duration, def time.Duration) Middleware {
	return DynamicTimeout(func(ctx Context) time.Duration {
		if d, ok := timeouts[getCommandName(ctx)]; ok {
			return d
		}
		return def
	})
}

// TimeoutWithRetry retries a timed-out handler up to maxRetries times.
// Other errors are returned immediately.
func TimeoutWithRetry(d time.Duration, maxRetries int) Middleware {
	return func(next ActionFunc) ActionFunc {
		return func(ctx Context) error {
			var err error
			for attempt := 0; attempt <= maxRetries; attempt++ {
				err = runWithDeadline(ctx, next, d, nil)
				var terr *TimeoutError
				if !errors.As(err, &terr) {
					return err
				}
			}
			return cancelOnTimeout(ctx, err)
		}
	}
}

// DynamicTimeout computes the timeout per invocation. A result of zero or
// less disables it.
func DynamicTimeout(timeoutFunc func(ctx Context) time.Duration) Middleware {
	return func(next ActionFunc) ActionFunc {
		return func(ctx Context) error {
			d := timeoutFunc(ctx)
			if d <= 0 {
				return next(ctx)
			}
			return cancelOnTimeout(ctx, runWithDeadline(ctx, next, d, nil))
		}
	}
}

// TimeoutFromArg reads the timeout from a time.Duration argument of the
// invoked command or one of its parents, such as "--timeout".
func TimeoutFromArg(name string, def time.Duration) Middleware {
	return DynamicTimeout(func(ctx Context) time.Duration {
		if v, ok := ctx.Lookup(name); ok {
			if d, ok := v.(time.Duration); ok {
				return d
			}
		}
		return def
	})
}

// NoTimeout runs the handler without a deadline.
func NoTimeout() Middleware {
	return func(next ActionFunc) ActionFunc { return next }
}
