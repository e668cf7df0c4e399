package cmdline

import (
	"context"
	"sync"

	"github.com/dzonerzy/go-cmdline/middleware"
)

// Handler runs a matched command.
type Handler func(inv *Invocation) error

// Invocation is the execution context handed to handlers and middleware:
// the parse result, a cancellable Go context and a small metadata store.
type Invocation struct {
	Result *ParseResult

	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.RWMutex
	metadata map[string]any

	value any
}

func newInvocation(parent context.Context, result *ParseResult) *Invocation {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)
	return &Invocation{Result: result, ctx: ctx, cancel: cancel}
}

// Context returns the Go context of the invocation.
func (inv *Invocation) Context() context.Context { return inv.ctx }

// Done is closed when the invocation is canceled.
func (inv *Invocation) Done() <-chan struct{} { return inv.ctx.Done() }

// Err returns the cancellation cause, if any.
func (inv *Invocation) Err() error { return inv.ctx.Err() }

// Cancel cancels the invocation.
func (inv *Invocation) Cancel() { inv.cancel() }

// Leaf returns the result of the invoked command.
func (inv *Invocation) Leaf() *CommandResult { return inv.Result.Leaf() }

// Command returns the invoked command.
func (inv *Invocation) Command() middleware.Command { return inv.Result.Leaf().spec }

// Args returns the tokens matched at the invoked command's level.
func (inv *Invocation) Args() []string { return inv.Result.Leaf().Tokens() }

// Lookup returns the named argument's value, searching the invoked command
// and then its parents. Arguments that received no value from input, a
// default provider or a declared default are reported absent.
func (inv *Invocation) Lookup(name string) (any, bool) {
	for r := inv.Result.Leaf(); r != nil; r = r.parent {
		arg := r.spec.FindArg(name)
		if arg == nil {
			continue
		}
		if b, ok := r.bindings[arg]; ok && b.source != SourceNone {
			return r.Value(arg), true
		}
		return nil, false
	}
	return nil, false
}

// Set stores a value for other middleware or the handler.
func (inv *Invocation) Set(key string, value any) {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	if inv.metadata == nil {
		inv.metadata = make(map[string]any)
	}
	inv.metadata[key] = value
}

// Get returns a value stored with Set, or nil.
func (inv *Invocation) Get(key string) any {
	inv.mu.RLock()
	defer inv.mu.RUnlock()
	return inv.metadata[key]
}

// Return records the value reported by CommandLine.Call. Function-derived
// commands set it from their first result.
func (inv *Invocation) Return(v any) { inv.value = v }

// Exit returns an error that makes ExecuteAndGetExitCode report code.
// Handlers return it as their result.
func (inv *Invocation) Exit(code int, err error) error {
	return &ExitError{Code: code, Err: err}
}

var _ middleware.Context = (*Invocation)(nil)
