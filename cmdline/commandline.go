package cmdline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"

	clio "github.com/dzonerzy/go-cmdline/io"
	"github.com/dzonerzy/go-cmdline/middleware"
)

// ErrNoHandler is returned by Execute when the invoked command has no
// handler, Runner or bound function.
var ErrNoHandler = errors.New("command has no handler")

// CommandLine binds a validated command tree to the registry, tracer and
// middleware used to parse and run it. It holds no per-parse state, so one
// CommandLine may parse concurrently from several goroutines. Execute on a
// struct-derived tree writes into the struct and is not concurrency safe.
type CommandLine struct {
	root       *CommandSpec
	registry   *Registry
	tracer     *clio.Logger
	io         *clio.IOManager
	defaults   DefaultProvider
	middleware []middleware.Middleware
	exitCodes  *ExitCodeManager
}

// Option configures a CommandLine.
type Option func(cl *CommandLine)

// WithRegistry replaces the default type conversion registry.
func WithRegistry(r *Registry) Option {
	return func(cl *CommandLine) { cl.registry = r }
}

// WithTracer makes the parser report its decisions at debug level.
func WithTracer(l *clio.Logger) Option {
	return func(cl *CommandLine) { cl.tracer = l }
}

// WithIO sets the streams used by ExecuteAndGetExitCode.
func WithIO(m *clio.IOManager) Option {
	return func(cl *CommandLine) { cl.io = m }
}

// WithDefaults adds a default provider below the root command's own.
func WithDefaults(p DefaultProvider) Option {
	return func(cl *CommandLine) { cl.defaults = p }
}

// Use adds middleware around every handler, outside command middleware.
func Use(mw ...middleware.Middleware) Option {
	return func(cl *CommandLine) { cl.middleware = append(cl.middleware, mw...) }
}

// NewCommandLine validates the tree under root and checks that every
// declared type can be converted. Errors are *InitializationError or
// *FormatError.
func NewCommandLine(root *CommandSpec, opts ...Option) (*CommandLine, error) {
	if root == nil {
		return nil, initError("", "Command must not be nil")
	}
	cl := &CommandLine{root: root}
	for _, opt := range opts {
		opt(cl)
	}
	if cl.registry == nil {
		cl.registry = NewRegistry()
	}
	if cl.io == nil {
		cl.io = clio.New()
	}

	if cl.defaults != nil && !root.sealed {
		if root.defaults != nil {
			root.defaults = ChainDefaults(root.defaults, cl.defaults)
		} else {
			root.defaults = cl.defaults
		}
	}

	if err := root.Validate(); err != nil {
		return nil, err
	}
	if err := cl.checkTypes(root); err != nil {
		return nil, err
	}
	return cl, nil
}

// New builds a CommandLine for target, which is either a *CommandSpec or a
// pointer to a struct annotated with command tags.
func New(target any, opts ...Option) (*CommandLine, error) {
	if spec, ok := target.(*CommandSpec); ok {
		return NewCommandLine(spec, opts...)
	}
	spec, err := FromStruct(target)
	if err != nil {
		return nil, err
	}
	return NewCommandLine(spec, opts...)
}

func (cl *CommandLine) checkTypes(c *CommandSpec) error {
	for _, arg := range c.Args() {
		for i, t := range arg.AuxTypes() {
			if i < len(arg.converters) && arg.converters[i] != nil {
				continue
			}
			if !cl.registry.Supports(t) {
				return initError(c.name, "No converter registered for type %s of %s in command '%s'",
					t, arg.Label(), c.QualifiedName())
			}
		}
	}
	for _, sub := range c.Subcommands() {
		if err := cl.checkTypes(sub); err != nil {
			return err
		}
	}
	return nil
}

// Root returns the root command.
func (cl *CommandLine) Root() *CommandSpec { return cl.root }

// Registry returns the conversion registry.
func (cl *CommandLine) Registry() *Registry { return cl.registry }

// IO returns the streams used for error reporting.
func (cl *CommandLine) IO() *clio.IOManager { return cl.io }

// ExitCodes returns the exit-code manager used by ExecuteAndGetExitCode.
func (cl *CommandLine) ExitCodes() *ExitCodeManager {
	if cl.exitCodes == nil {
		cl.exitCodes = NewExitCodeManager()
	}
	return cl.exitCodes
}

// Parse matches tokens against the command tree. The result chain starts at
// the root and ends at the deepest command named in tokens.
func (cl *CommandLine) Parse(tokens []string) (*ParseResult, error) {
	return dispatch(cl.root, tokens, cl.registry, cl.tracer)
}

// Execute parses tokens and runs the last command of the chain. Help and
// version requests return ErrHelpRequested and ErrVersionRequested without
// running anything. Handler failures are wrapped in *ExecutionError.
func (cl *CommandLine) Execute(ctx context.Context, tokens []string) error {
	_, err := cl.run(ctx, tokens)
	return err
}

// Call is Execute for function-derived commands: it also returns the
// function's first non-error result.
func (cl *CommandLine) Call(ctx context.Context, tokens []string) (any, error) {
	return cl.run(ctx, tokens)
}

func (cl *CommandLine) run(ctx context.Context, tokens []string) (any, error) {
	result, err := cl.Parse(tokens)
	if err != nil {
		return nil, err
	}
	if result.IsUsageHelpRequested() {
		return nil, ErrHelpRequested
	}
	if result.IsVersionHelpRequested() {
		return nil, ErrVersionRequested
	}

	for _, r := range result.chain {
		if r.spec.binding != nil {
			r.spec.binding.apply(r)
		}
	}

	leaf := result.Leaf()
	action := actionFor(leaf)
	if action == nil {
		return nil, &ExecutionError{Command: leaf.spec.QualifiedName(), Err: ErrNoHandler}
	}

	inv := newInvocation(ctx, result)
	defer inv.Cancel()

	mws := make([]middleware.Middleware, 0, len(cl.middleware))
	mws = append(mws, cl.middleware...)
	for _, r := range result.chain {
		mws = append(mws, r.spec.middleware...)
	}
	wrapped := middleware.Chain(mws...).Apply(func(middleware.Context) error { return action(inv) })

	if err := wrapped(inv); err != nil {
		return inv.value, &ExecutionError{Command: leaf.spec.QualifiedName(), Err: err}
	}
	return inv.value, nil
}

// actionFor picks what runs for r: an explicit handler, then a Runner
// struct, then a bound function.
func actionFor(r *CommandResult) Handler {
	spec := r.spec
	switch {
	case spec.handler != nil:
		return spec.handler
	case spec.binding != nil:
		if runner, ok := spec.binding.target.Addr().Interface().(Runner); ok {
			return func(inv *Invocation) error { return runner.Run(inv.Context()) }
		}
	case spec.fn != nil:
		return func(inv *Invocation) error {
			v, err := r.Invoke(inv.Context())
			inv.Return(v)
			return err
		}
	}
	return nil
}

// ExecuteAndGetExitCode runs Execute, reports failures on the error stream
// and maps the outcome to an exit code. An ExitError without a cause exits
// silently. A version request prints the
// version of the deepest command that declares one.
func (cl *CommandLine) ExecuteAndGetExitCode(ctx context.Context, tokens []string) int {
	err := cl.Execute(ctx, tokens)
	switch {
	case err == nil:
	case errors.Is(err, ErrVersionRequested):
		if v := cl.versionFor(tokens); v != "" {
			fmt.Fprintln(cl.io.Out(), v)
		}
	case errors.Is(err, ErrHelpRequested):
	default:
		var exit *ExitError
		if !errors.As(err, &exit) || exit.Err != nil {
			cl.report(err)
		}
	}
	return cl.ExitCodes().Resolve(err)
}

// ExecuteAndExit runs the command line on os.Args and exits the process.
func (cl *CommandLine) ExecuteAndExit() {
	os.Exit(cl.ExecuteAndGetExitCode(context.Background(), os.Args[1:]))
}

func (cl *CommandLine) versionFor(tokens []string) string {
	result, err := cl.Parse(tokens)
	if err != nil {
		return cl.root.version
	}
	for r := result.Leaf(); r != nil; r = r.parent {
		if r.spec.version != "" {
			return r.spec.version
		}
	}
	return ""
}

func (cl *CommandLine) report(err error) {
	w := cl.io.Err()
	fmt.Fprintln(w, cl.io.Paint("Error:", color.FgRed, color.Bold), err.Error())

	var unmatched *UnmatchedArgumentError
	if errors.As(err, &unmatched) && len(unmatched.Suggestions) > 0 {
		fmt.Fprintf(w, "Did you mean: %s?\n", strings.Join(unmatched.Suggestions, ", "))
	}
}
