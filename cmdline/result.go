package cmdline

import (
	"fmt"
	"reflect"
	"strings"
	"time"
)

// ValueSource records where a bound value came from.
type ValueSource int

const (
	SourceNone ValueSource = iota
	SourceInput
	SourceProvider
	SourceDefault
)

func (s ValueSource) String() string {
	switch s {
	case SourceInput:
		return "input"
	case SourceProvider:
		return "provider"
	case SourceDefault:
		return "default"
	}
	return "none"
}

// ParseResult is the chain of per-command results of one parse, root first.
// Each element's command is a subcommand of the previous element's command.
type ParseResult struct {
	chain  []*CommandResult
	tokens []string
}

// Commands returns the results from the root down to the deepest matched
// subcommand.
func (r *ParseResult) Commands() []*CommandResult { return r.chain }

// Len returns the number of commands in the chain.
func (r *ParseResult) Len() int { return len(r.chain) }

// Root returns the result for the root command.
func (r *ParseResult) Root() *CommandResult { return r.chain[0] }

// Leaf returns the result for the deepest matched command.
func (r *ParseResult) Leaf() *CommandResult { return r.chain[len(r.chain)-1] }

// Tokens returns the complete input.
func (r *ParseResult) Tokens() []string { return r.tokens }

// Find returns the result for the command with the given name, or nil.
func (r *ParseResult) Find(name string) *CommandResult {
	for _, c := range r.chain {
		if c.spec.name == name {
			return c
		}
	}
	return nil
}

// IsUsageHelpRequested reports whether a usage help option matched at any level.
func (r *ParseResult) IsUsageHelpRequested() bool {
	for _, c := range r.chain {
		if c.IsUsageHelpRequested() {
			return true
		}
	}
	return false
}

// IsVersionHelpRequested reports whether a version help option matched at any level.
func (r *ParseResult) IsVersionHelpRequested() bool {
	for _, c := range r.chain {
		if c.IsVersionHelpRequested() {
			return true
		}
	}
	return false
}

// CommandResult holds the values bound at one level of the command chain.
type CommandResult struct {
	spec     *CommandSpec
	registry *Registry

	bindings  map[*ArgSpec]*binding
	matched   []*ArgSpec
	unmatched []string
	consumed  []string

	parent *CommandResult
	child  *CommandResult
}

func newCommandResult(spec *CommandSpec, registry *Registry) *CommandResult {
	return &CommandResult{
		spec:     spec,
		registry: registry,
		bindings: make(map[*ArgSpec]*binding),
	}
}

// Spec returns the command this result belongs to.
func (r *CommandResult) Spec() *CommandSpec { return r.spec }

// Name returns the command name.
func (r *CommandResult) Name() string { return r.spec.name }

// Parent returns the result of the enclosing command, or nil at the root.
func (r *CommandResult) Parent() *CommandResult { return r.parent }

// Subcommand returns the result of the subcommand matched after this
// command, or nil.
func (r *CommandResult) Subcommand() *CommandResult { return r.child }

// Tokens returns the tokens consumed at this level, excluding the
// subcommand name that ended it.
func (r *CommandResult) Tokens() []string { return r.consumed }

// Unmatched returns the tokens recorded while AllowUnmatched was set.
func (r *CommandResult) Unmatched() []string { return r.unmatched }

// MatchedArgs returns the arguments matched from input, in first-match order.
func (r *CommandResult) MatchedArgs() []*ArgSpec { return r.matched }

// MatchedOptions returns the matched options.
func (r *CommandResult) MatchedOptions() []*ArgSpec {
	var out []*ArgSpec
	for _, a := range r.matched {
		if a.IsOption() {
			out = append(out, a)
		}
	}
	return out
}

// MatchedPositionals returns the matched positional parameters.
func (r *CommandResult) MatchedPositionals() []*ArgSpec {
	var out []*ArgSpec
	for _, a := range r.matched {
		if a.IsPositional() {
			out = append(out, a)
		}
	}
	return out
}

// HasMatched reports whether input supplied the named argument.
func (r *CommandResult) HasMatched(name string) bool {
	arg := r.spec.FindArg(name)
	return arg != nil && r.isMatched(arg)
}

// IsUsageHelpRequested reports whether a usage help option matched here.
func (r *CommandResult) IsUsageHelpRequested() bool {
	for _, a := range r.matched {
		if a.usageHelp && r.truthy(a) {
			return true
		}
	}
	return false
}

// IsVersionHelpRequested reports whether a version help option matched here.
func (r *CommandResult) IsVersionHelpRequested() bool {
	for _, a := range r.matched {
		if a.versionHelp && r.truthy(a) {
			return true
		}
	}
	return false
}

func (r *CommandResult) truthy(a *ArgSpec) bool {
	b := r.bindings[a]
	if b == nil || !a.IsBoolean() {
		return true
	}
	v := b.value
	if v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return false
		}
		v = v.Elem()
	}
	return v.Bool()
}

// Value returns the value bound to arg: the converted input, the provided
// default, the declared default, or the zero value of its type.
func (r *CommandResult) Value(arg *ArgSpec) any {
	if b, ok := r.bindings[arg]; ok && b.value.IsValid() {
		return b.value.Interface()
	}
	return reflect.Zero(arg.typ).Interface()
}

// ValueOf returns the value of the named argument and whether such an
// argument exists.
func (r *CommandResult) ValueOf(name string) (any, bool) {
	arg := r.spec.FindArg(name)
	if arg == nil {
		return nil, false
	}
	return r.Value(arg), true
}

// Source reports where the named argument's value came from.
func (r *CommandResult) Source(name string) ValueSource {
	arg := r.spec.FindArg(name)
	if arg == nil {
		return SourceNone
	}
	if b, ok := r.bindings[arg]; ok {
		return b.source
	}
	return SourceNone
}

// RawValues returns the input tokens bound to the named argument.
func (r *CommandResult) RawValues(name string) []string {
	arg := r.spec.FindArg(name)
	if arg == nil {
		return nil
	}
	if b, ok := r.bindings[arg]; ok {
		return b.raw
	}
	return nil
}

// Format returns the literal form of the named argument's value, such that
// converting it again yields an equal value.
func (r *CommandResult) Format(name string) string {
	v, ok := r.ValueOf(name)
	if !ok {
		return ""
	}
	return r.registry.Format(v)
}

// ArgValues returns the value of every argument in declaration order, own
// arguments first. Absent arguments without a default yield their zero value.
func (r *CommandResult) ArgValues() []any {
	args := r.spec.Args()
	out := make([]any, len(args))
	for i, a := range args {
		out[i] = r.Value(a)
	}
	return out
}

// Get returns the named argument's value as T.
func Get[T any](r *CommandResult, name string) (T, bool) {
	var zero T
	v, ok := r.ValueOf(name)
	if !ok {
		return zero, false
	}
	t, ok := v.(T)
	return t, ok
}

// GetString retrieves a string argument value (safe access)
func (r *CommandResult) GetString(name string) (string, bool) {
	return Get[string](r, name)
}

// GetInt retrieves an int argument value (safe access)
func (r *CommandResult) GetInt(name string) (int, bool) {
	return Get[int](r, name)
}

// GetBool retrieves a bool argument value (safe access)
func (r *CommandResult) GetBool(name string) (bool, bool) {
	return Get[bool](r, name)
}

// GetDuration retrieves a duration argument value (safe access)
func (r *CommandResult) GetDuration(name string) (time.Duration, bool) {
	return Get[time.Duration](r, name)
}

// GetFloat retrieves a float64 argument value (safe access)
func (r *CommandResult) GetFloat(name string) (float64, bool) {
	return Get[float64](r, name)
}

// GetStringSlice retrieves a []string argument value (safe access)
func (r *CommandResult) GetStringSlice(name string) ([]string, bool) {
	return Get[[]string](r, name)
}

// GetIntSlice retrieves a []int argument value (safe access)
func (r *CommandResult) GetIntSlice(name string) ([]int, bool) {
	return Get[[]int](r, name)
}

// MustGetString retrieves a string value with default fallback
func (r *CommandResult) MustGetString(name, defaultValue string) string {
	if v, ok := r.GetString(name); ok {
		return v
	}
	return defaultValue
}

// MustGetInt retrieves an int value with default fallback
func (r *CommandResult) MustGetInt(name string, defaultValue int) int {
	if v, ok := r.GetInt(name); ok {
		return v
	}
	return defaultValue
}

// MustGetBool retrieves a bool value with default fallback
func (r *CommandResult) MustGetBool(name string, defaultValue bool) bool {
	if v, ok := r.GetBool(name); ok {
		return v
	}
	return defaultValue
}

// MustGetDuration retrieves a duration value with default fallback
func (r *CommandResult) MustGetDuration(name string, defaultValue time.Duration) time.Duration {
	if v, ok := r.GetDuration(name); ok {
		return v
	}
	return defaultValue
}

// MustGetStringSlice retrieves a []string value with default fallback
func (r *CommandResult) MustGetStringSlice(name string, defaultValue []string) []string {
	if v, ok := r.GetStringSlice(name); ok {
		return v
	}
	return defaultValue
}

// String renders the matched arguments, for tracing and test failures.
func (r *CommandResult) String() string {
	var sb strings.Builder
	sb.WriteString(r.spec.name)
	for _, a := range r.matched {
		fmt.Fprintf(&sb, " %s=%s", a.LongestName(), r.registry.Format(r.Value(a)))
	}
	return sb.String()
}

// bookkeeping used by the matcher

func (r *CommandResult) isMatched(arg *ArgSpec) bool {
	b, ok := r.bindings[arg]
	return ok && b.matched
}

func (r *CommandResult) markMatched(arg *ArgSpec) {
	for _, a := range r.matched {
		if a == arg {
			return
		}
	}
	r.matched = append(r.matched, arg)
}

// bind returns the binding for arg, creating it holding the zero value.
func (r *CommandResult) bind(arg *ArgSpec) *binding {
	b, ok := r.bindings[arg]
	if !ok {
		b = &binding{arg: arg, value: reflect.New(arg.typ).Elem()}
		r.bindings[arg] = b
	}
	return b
}

// binding accumulates the converted values of one argument.
type binding struct {
	arg     *ArgSpec
	value   reflect.Value
	raw     []string
	matched bool
	source  ValueSource
}

// add converts one token and stores it: scalars are replaced, slices are
// appended to and map entries are inserted.
func (b *binding) add(registry *Registry, token string) error {
	arg := b.arg
	aux := arg.AuxTypes()

	switch {
	case arg.IsMap():
		key, val, ok := strings.Cut(token, "=")
		if !ok {
			return &TypeConversionError{
				Arg:     arg,
				Value:   token,
				Type:    arg.typ,
				Message: fmt.Sprintf("Value for %s should be in KEY=VALUE format but was %s", describeArg(arg), token),
			}
		}
		k, err := b.convert(registry, 0, aux[0], key)
		if err != nil {
			return err
		}
		v, err := b.convert(registry, 1, aux[len(aux)-1], val)
		if err != nil {
			return err
		}
		if b.value.IsNil() {
			b.value.Set(reflect.MakeMap(arg.typ))
		}
		b.value.SetMapIndex(k, v)
	case arg.isSlice():
		v, err := b.convert(registry, 0, aux[0], token)
		if err != nil {
			return err
		}
		b.value.Set(reflect.Append(b.value, v))
	default:
		v, err := b.convert(registry, 0, arg.typ, token)
		if err != nil {
			return err
		}
		b.value.Set(v)
	}
	return nil
}

// convert applies the argument's own converter at position i when one is
// declared, otherwise the registry, and coerces the result to t.
func (b *binding) convert(registry *Registry, i int, t reflect.Type, token string) (reflect.Value, error) {
	var v reflect.Value
	if convs := b.arg.converters; i < len(convs) && convs[i] != nil {
		out, err := convs[i](token)
		if err != nil {
			return reflect.Value{}, conversionError(b.arg, token, t, err)
		}
		v = reflect.ValueOf(out)
	} else {
		out, err := registry.Convert(t, token)
		if err != nil {
			return reflect.Value{}, conversionError(b.arg, token, t, err)
		}
		v = out
	}

	switch {
	case !v.IsValid():
		return reflect.Zero(t), nil
	case v.Type().AssignableTo(t):
		return v, nil
	case v.Type().ConvertibleTo(t):
		return v.Convert(t), nil
	}
	return reflect.Value{}, conversionError(b.arg, token, t,
		fmt.Errorf("converter returned %s, want %s", v.Type(), t))
}
