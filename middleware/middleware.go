// Package middleware wraps command handlers with cross-cutting behavior:
// request logging, panic recovery, timeouts and business-rule validation.
package middleware

import (
	"context"
	"fmt"
	"time"
)

// The cmdline package implements these interfaces, so middleware can be
// written without importing it.

// Context is the view of one command invocation that middleware can rely
// on. It is implemented by *cmdline.Invocation.
type Context interface {
	// Context returns the Go context of the invocation.
	Context() context.Context

	// Done is closed when the invocation is canceled or times out.
	Done() <-chan struct{}

	// Cancel cancels the invocation. It is idempotent.
	Cancel()

	// Args returns the tokens matched by the invoked command, excluding
	// the names of the commands above it. Treat it as read-only.
	Args() []string

	// Lookup returns the value bound to the named option or positional
	// parameter, searching the invoked command and then its parents. The
	// boolean is false when no such argument exists or it received no
	// value from input, a default provider or a declared default.
	Lookup(name string) (any, bool)

	// Set stores a value for other middleware. Namespace keys such as
	// "logger.request_id" to avoid collisions.
	Set(key string, value any)

	// Get returns a value stored with Set, or nil.
	Get(key string) any

	// Command describes the invoked command.
	Command() Command
}

// Command is implemented by *cmdline.CommandSpec.
type Command interface {
	Name() string
	Description() string
}

// ActionFunc runs a command.
type ActionFunc func(ctx Context) error

// Middleware wraps an ActionFunc.
type Middleware func(next ActionFunc) ActionFunc

// MiddlewareChain is an ordered list of middleware; the first one is the
// outermost.
type MiddlewareChain []Middleware

// Apply wraps action with every middleware in the chain.
func (chain MiddlewareChain) Apply(action ActionFunc) ActionFunc {
	for i := len(chain) - 1; i >= 0; i-- {
		action = chain[i](action)
	}
	return action
}

// Use returns a chain with mw appended.
func (chain MiddlewareChain) Use(mw ...Middleware) MiddlewareChain {
	return append(chain, mw...)
}

// Chain builds a chain in the given order.
func Chain(mw ...Middleware) MiddlewareChain {
	return MiddlewareChain(mw)
}

// ValidationError reports a failed business-rule check.
type ValidationError struct {
	Field   string
	Value   any
	Message string
	Cause   error
}

func (e *ValidationError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *ValidationError) Unwrap() error { return e.Cause }

// TimeoutError reports a command that ran past its deadline.
type TimeoutError struct {
	Duration time.Duration
	Command  string
}

func (e *TimeoutError) Error() string {
	return "command '" + e.Command + "' timed out after " + e.Duration.String()
}

// RecoveryError reports a panic raised by a command.
type RecoveryError struct {
	Panic   any
	Command string
	Stack   []byte
}

func (e *RecoveryError) Error() string {
	return "command '" + e.Command + "' panicked: " + toString(e.Panic)
}

// MiddlewareConfig holds the settings shared by the built-in middleware.
type MiddlewareConfig struct {
	LogLevel         LogLevel
	LogOutput        LogOutput
	LogFormat        LogFormat
	IncludeArgs      bool
	PrintStack       bool
	StackSize        int
	DefaultTimeout   time.Duration
	CustomValidators map[string]ValidatorFunc
}

// LogLevel selects which invocations Logger reports.
type LogLevel int

const (
	LogLevelNone LogLevel = iota
	LogLevelError
	LogLevelWarn
	LogLevelInfo
	LogLevelDebug
)

// LogOutput selects where Logger writes.
type LogOutput int

const (
	LogOutputStderr LogOutput = iota
	LogOutputStdout
	LogOutputNone
)

// LogFormat selects the Logger line format.
type LogFormat int

const (
	LogFormatText LogFormat = iota
	LogFormatJSON
)

// RequestInfo describes one invocation for Logger.
type RequestInfo struct {
	Command   string
	Args      []string
	StartTime time.Time
	Duration  time.Duration
	Error     error
	Metadata  map[string]any
}

// MiddlewareOption adjusts a MiddlewareConfig.
type MiddlewareOption func(config *MiddlewareConfig)

// DefaultConfig returns the settings used when no option is given.
func DefaultConfig() *MiddlewareConfig {
	return &MiddlewareConfig{
		LogLevel:         LogLevelInfo,
		LogOutput:        LogOutputStderr,
		LogFormat:        LogFormatText,
		IncludeArgs:      true,
		PrintStack:       true,
		StackSize:        4096,
		DefaultTimeout:   30 * time.Second,
		CustomValidators: make(map[string]ValidatorFunc),
	}
}

func newConfig(options []MiddlewareOption) *MiddlewareConfig {
	config := DefaultConfig()
	for _, option := range options {
		option(config)
	}
	return config
}

// WithLogLevel sets the Logger level.
func WithLogLevel(level LogLevel) MiddlewareOption {
	return func(config *MiddlewareConfig) { config.LogLevel = level }
}

// WithLogFormat sets the Logger line format.
func WithLogFormat(format LogFormat) MiddlewareOption {
	return func(config *MiddlewareConfig) { config.LogFormat = format }
}

// WithArgs controls whether Logger includes the matched tokens.
func WithArgs(include bool) MiddlewareOption {
	return func(config *MiddlewareConfig) { config.IncludeArgs = include }
}

// WithTimeout sets the timeout used by TimeoutWithDefault.
func WithTimeout(timeout time.Duration) MiddlewareOption {
	return func(config *MiddlewareConfig) { config.DefaultTimeout = timeout }
}

// WithStackTrace controls whether Recovery captures and prints stacks.
func WithStackTrace(enabled bool) MiddlewareOption {
	return func(config *MiddlewareConfig) { config.PrintStack = enabled }
}

func toString(v any) string {
	switch val := v.(type) {
	case nil:
		return "<nil>"
	case string:
		return val
	case error:
		return val.Error()
	case fmt.Stringer:
		return val.String()
	}
	return fmt.Sprint(v)
}

func getCommandName(ctx Context) string {
	cmd := ctx.Command()
	if cmd == nil {
		return "unknown"
	}
	return cmd.Name()
}
