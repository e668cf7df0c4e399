package cmdline

import (
	"reflect"
	"regexp"
	"strings"
)

// ArgKind distinguishes the two variants of ArgSpec.
type ArgKind int

const (
	KindOption ArgKind = iota
	KindPositional
)

func (k ArgKind) String() string {
	if k == KindOption {
		return "option"
	}
	return "positional"
}

var (
	stringType = reflect.TypeFor[string]()
	boolType   = reflect.TypeFor[bool]()
)

// ArgSpec describes one option or positional parameter. The matcher only
// branches on Kind; everything else is shared between the two variants.
// An ArgSpec must not be modified once its command has been handed to
// NewCommandLine.
type ArgSpec struct {
	kind ArgKind

	label       string
	typ         reflect.Type
	auxTypes    []reflect.Type
	arity       Range
	aritySet    bool
	required    bool
	requiredSet bool
	defaultVal  string
	hasDefault  bool
	description string
	converters  []Converter
	split       *regexp.Regexp
	hidden      bool

	// option only
	names       []string
	negatable   bool
	order       int
	usageHelp   bool
	versionHelp bool

	// positional only
	index    Range
	indexSet bool

	// field is the index path of the struct field bound to this argument
	field []int
}

// NewOption creates a string-typed option with the given names, such as
// "-b" and "--branch".
func NewOption(names ...string) *ArgSpec {
	return &ArgSpec{kind: KindOption, names: names, typ: stringType, order: -1}
}

// NewPositional creates a string-typed positional parameter.
func NewPositional(label string) *ArgSpec {
	return &ArgSpec{kind: KindPositional, label: label, typ: stringType}
}

// Kind reports whether the spec is an option or a positional parameter.
func (a *ArgSpec) Kind() ArgKind { return a.kind }

// IsOption reports whether a is an option.
func (a *ArgSpec) IsOption() bool { return a.kind == KindOption }

// IsPositional reports whether a is a positional parameter.
func (a *ArgSpec) IsPositional() bool { return a.kind == KindPositional }

// Names returns the option names in declaration order. Positional
// parameters have none.
func (a *ArgSpec) Names() []string { return a.names }

// LongestName returns the longest option name, or the label for positionals.
func (a *ArgSpec) LongestName() string {
	if len(a.names) == 0 {
		return a.Label()
	}
	longest := a.names[0]
	for _, n := range a.names[1:] {
		if len(n) > len(longest) {
			longest = n
		}
	}
	return longest
}

// ShortestName returns the shortest option name, or the label for positionals.
func (a *ArgSpec) ShortestName() string {
	if len(a.names) == 0 {
		return a.Label()
	}
	shortest := a.names[0]
	for _, n := range a.names[1:] {
		if len(n) < len(shortest) {
			shortest = n
		}
	}
	return shortest
}

// Label returns the display label. Options without an explicit label use
// their longest name without dashes, wrapped in angle brackets.
func (a *ArgSpec) Label() string {
	if a.label != "" {
		return a.label
	}
	if a.kind == KindOption {
		return "<" + strings.TrimLeft(a.LongestName(), "-") + ">"
	}
	return "<arg>"
}

// Type returns the declared value type.
func (a *ArgSpec) Type() reflect.Type { return a.typ }

// AuxTypes returns the element types for aggregate values: the element of a
// slice, or the key and value of a map. For scalar types it returns the
// declared type itself.
func (a *ArgSpec) AuxTypes() []reflect.Type {
	if len(a.auxTypes) > 0 {
		return a.auxTypes
	}
	switch a.typ.Kind() {
	case reflect.Slice:
		if a.typ.Elem().Kind() == reflect.Uint8 && a.typ.Name() != "" {
			// named byte slices such as net.IP are scalars
			return []reflect.Type{a.typ}
		}
		return []reflect.Type{a.typ.Elem()}
	case reflect.Map:
		return []reflect.Type{a.typ.Key(), a.typ.Elem()}
	}
	return []reflect.Type{a.typ}
}

// IsAggregate reports whether values accumulate across tokens and occurrences.
func (a *ArgSpec) IsAggregate() bool {
	return a.IsMap() || a.isSlice()
}

// IsMap reports whether the declared type is a map of key=value entries.
func (a *ArgSpec) IsMap() bool { return a.typ.Kind() == reflect.Map }

func (a *ArgSpec) isSlice() bool {
	return a.typ.Kind() == reflect.Slice && !(a.typ.Elem().Kind() == reflect.Uint8 && a.typ.Name() != "")
}

// IsBoolean reports whether the declared type is bool or *bool.
func (a *ArgSpec) IsBoolean() bool {
	t := a.typ
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t.Kind() == reflect.Bool
}

// Arity returns the explicit arity, or the default derived from the type:
// 0 for boolean options, 1..* for aggregate options, 0..1 for aggregate
// positionals and 1 otherwise.
func (a *ArgSpec) Arity() Range {
	if a.aritySet {
		return a.arity
	}
	switch {
	case a.kind == KindOption && a.IsBoolean():
		return Fixed(0)
	case a.IsAggregate() && a.kind == KindOption:
		return AtLeast(1)
	case a.IsAggregate():
		return Between(0, 1)
	}
	return Fixed(1)
}

// Required reports whether input must supply a value. Options default to
// optional. Positionals default to required when their arity demands at
// least one value and no default value is declared.
func (a *ArgSpec) Required() bool {
	if a.requiredSet || a.kind == KindOption {
		return a.required
	}
	return a.Arity().Min > 0 && !a.hasDefault
}

// Default returns the default value literal and whether one is declared.
func (a *ArgSpec) Default() (string, bool) { return a.defaultVal, a.hasDefault }

// Description returns the help description.
func (a *ArgSpec) Description() string { return a.description }

// Split returns the pattern splitting a single token into several values,
// or nil.
func (a *ArgSpec) Split() *regexp.Regexp { return a.split }

// Hidden reports whether help output should omit the argument.
func (a *ArgSpec) Hidden() bool { return a.hidden }

// Negatable reports whether a "--no-" form is accepted.
func (a *ArgSpec) Negatable() bool { return a.negatable }

// Order returns the help ordering key, -1 when unset.
func (a *ArgSpec) Order() int { return a.order }

// UsageHelp reports whether matching this option requests usage help.
func (a *ArgSpec) UsageHelp() bool { return a.usageHelp }

// VersionHelp reports whether matching this option requests version help.
func (a *ArgSpec) VersionHelp() bool { return a.versionHelp }

// Index returns the positional slots this parameter may claim. Positionals
// without an explicit index may claim any slot.
func (a *ArgSpec) Index() Range {
	if a.indexSet {
		return a.index
	}
	return AtLeast(0)
}

// Converters returns the per-argument converters, applied by position to
// AuxTypes.
func (a *ArgSpec) Converters() []Converter { return a.converters }

// negatedNames returns the "--no-" forms of the long names, or the plain
// form for names already starting with "--no-".
func (a *ArgSpec) negatedNames() []string {
	if !a.negatable {
		return nil
	}
	var out []string
	for _, n := range a.names {
		if !strings.HasPrefix(n, "--") {
			continue
		}
		if rest, ok := strings.CutPrefix(n, "--no-"); ok {
			out = append(out, "--"+rest)
		} else {
			out = append(out, "--no-"+n[2:])
		}
	}
	return out
}

// matchesName reports whether name refers to this argument. Options match
// any of their names, with or without dashes. Positionals match their label
// with or without angle brackets.
func (a *ArgSpec) matchesName(name string) bool {
	if a.kind == KindPositional {
		label := a.Label()
		return name == label || name == strings.TrimSuffix(strings.TrimPrefix(label, "<"), ">")
	}
	for _, n := range a.names {
		if n == name || strings.TrimLeft(n, "-") == name {
			return true
		}
	}
	return false
}

func (a *ArgSpec) clone() *ArgSpec {
	c := *a
	c.names = append([]string(nil), a.names...)
	c.converters = append([]Converter(nil), a.converters...)
	c.auxTypes = append([]reflect.Type(nil), a.auxTypes...)
	c.field = append([]int(nil), a.field...)
	return &c
}

// ArgBuilder configures an ArgSpec that has already been added to a command.
// Malformed settings are recorded on the command and reported by
// NewCommandLine.
type ArgBuilder struct {
	arg *ArgSpec
	cmd *CommandSpec
	err error
}

func (b *ArgBuilder) fail(err error) {
	if b.cmd != nil {
		b.cmd.fail(err)
	} else if b.err == nil {
		b.err = err
	}
}

// Type sets the declared value type.
func (b *ArgBuilder) Type(t reflect.Type) *ArgBuilder {
	b.arg.typ = t
	return b
}

// AuxTypes overrides the element types derived from the declared type.
func (b *ArgBuilder) AuxTypes(types ...reflect.Type) *ArgBuilder {
	b.arg.auxTypes = types
	return b
}

// Arity sets the arity from its textual form, such as "1", "0..1" or "2..*".
func (b *ArgBuilder) Arity(text string) *ArgBuilder {
	r, err := ParseRange(text)
	if err != nil {
		b.fail(err)
		return b
	}
	b.arg.arity = r
	b.arg.aritySet = true
	return b
}

// Required marks the argument as required.
func (b *ArgBuilder) Required() *ArgBuilder {
	b.arg.required = true
	b.arg.requiredSet = true
	return b
}

// Optional marks the argument as optional even if its arity demands values.
func (b *ArgBuilder) Optional() *ArgBuilder {
	b.arg.required = false
	b.arg.requiredSet = true
	return b
}

// Default sets the literal applied when input supplies no value.
func (b *ArgBuilder) Default(value string) *ArgBuilder {
	b.arg.defaultVal = value
	b.arg.hasDefault = true
	return b
}

// Description sets the help description.
func (b *ArgBuilder) Description(text string) *ArgBuilder {
	b.arg.description = text
	return b
}

// Label sets the display label, such as "<file>".
func (b *ArgBuilder) Label(label string) *ArgBuilder {
	b.arg.label = label
	return b
}

// Split sets a regular expression splitting one token into several values.
func (b *ArgBuilder) Split(pattern string) *ArgBuilder {
	re, err := regexp.Compile(pattern)
	if err != nil {
		b.fail(initError(b.cmdName(), "Invalid split pattern '%s' for %s: %v", pattern, b.arg.LongestName(), err))
		return b
	}
	b.arg.split = re
	return b
}

// Hidden hides the argument from help output.
func (b *ArgBuilder) Hidden() *ArgBuilder {
	b.arg.hidden = true
	return b
}

// Negatable accepts the "--no-" form of a boolean option's long names.
func (b *ArgBuilder) Negatable() *ArgBuilder {
	b.arg.negatable = true
	return b
}

// Order sets the help ordering key.
func (b *ArgBuilder) Order(n int) *ArgBuilder {
	b.arg.order = n
	return b
}

// Index sets the positional slots from their textual form, such as "0" or "1..*".
func (b *ArgBuilder) Index(text string) *ArgBuilder {
	r, err := ParseRange(text)
	if err != nil {
		b.fail(err)
		return b
	}
	b.arg.index = r
	b.arg.indexSet = true
	return b
}

// Converter adds a converter for the next element type, overriding the registry.
func (b *ArgBuilder) Converter(c Converter) *ArgBuilder {
	b.arg.converters = append(b.arg.converters, c)
	return b
}

// UsageHelp marks the option as a usage help request.
func (b *ArgBuilder) UsageHelp() *ArgBuilder {
	b.arg.usageHelp = true
	return b
}

// VersionHelp marks the option as a version help request.
func (b *ArgBuilder) VersionHelp() *ArgBuilder {
	b.arg.versionHelp = true
	return b
}

func (b *ArgBuilder) cmdName() string {
	if b.cmd == nil {
		return ""
	}
	return b.cmd.name
}

// Spec returns the configured ArgSpec.
func (b *ArgBuilder) Spec() *ArgSpec { return b.arg }

// Done returns the command the argument belongs to, for chaining.
func (b *ArgBuilder) Done() *CommandSpec { return b.cmd }
