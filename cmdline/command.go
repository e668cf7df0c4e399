package cmdline

import (
	"strings"

	"github.com/dzonerzy/go-cmdline/internal/intern"
	"github.com/dzonerzy/go-cmdline/middleware"
)

// CommandSpec describes one command: its options and positional parameters
// in declaration order, and the subcommands it dispatches to. A CommandSpec
// is built once and is read-only after it has been handed to NewCommandLine;
// any number of parses may then share it.
type CommandSpec struct {
	name        string
	aliases     []string
	description string
	version     string
	hidden      bool

	// parent is a lookup-only back reference set by AddSubcommand.
	parent *CommandSpec

	args      []*ArgSpec
	inherited []*ArgSpec

	subcommands      []*CommandSpec
	methods          []*CommandSpec
	inheritedMethods []*CommandSpec

	allowUnmatched bool
	abbreviate     bool
	standardHelp   bool
	addMethods     bool

	handler    Handler
	middleware []middleware.Middleware
	defaults   DefaultProvider
	binding    *structBinding
	fn         *funcBinding

	err error

	sealed      bool
	all         []*ArgSpec
	byName      map[string]*ArgSpec
	negated     map[string]*ArgSpec
	longNames   []optionName
	positionals []*ArgSpec
	childIndex  map[string]*CommandSpec
}

// optionName is one long option spelling considered for abbreviation.
type optionName struct {
	name    string
	arg     *ArgSpec
	negated bool
}

// NewCommand creates an empty command. Method-derived subcommands are
// enabled by default.
func NewCommand(name string) *CommandSpec {
	return &CommandSpec{name: name, addMethods: true}
}

// Name returns the command name.
func (c *CommandSpec) Name() string { return c.name }

// Description returns the command description (implements middleware.Command).
func (c *CommandSpec) Description() string { return c.description }

// Aliases returns the alternative names of the command.
func (c *CommandSpec) Aliases() []string { return c.aliases }

// Version returns the version string printed for version help requests.
func (c *CommandSpec) Version() string { return c.version }

// IsHidden reports whether help output should omit the command.
func (c *CommandSpec) IsHidden() bool { return c.hidden }

// Parent returns the command this one was added to, or nil for a root.
func (c *CommandSpec) Parent() *CommandSpec { return c.parent }

// Root returns the top of the command tree.
func (c *CommandSpec) Root() *CommandSpec {
	for c.parent != nil {
		c = c.parent
	}
	return c
}

// Path returns the command names from the root down to c.
func (c *CommandSpec) Path() []string {
	var path []string
	for cur := c; cur != nil; cur = cur.parent {
		path = append([]string{cur.name}, path...)
	}
	return path
}

// QualifiedName returns the space-separated path, such as "git clone".
func (c *CommandSpec) QualifiedName() string { return strings.Join(c.Path(), " ") }

// Configuration

// WithDescription sets the command description.
func (c *CommandSpec) WithDescription(text string) *CommandSpec {
	c.description = text
	return c
}

// WithVersion sets the version string.
func (c *CommandSpec) WithVersion(version string) *CommandSpec {
	c.version = version
	return c
}

// WithAliases adds alternative names for the command.
func (c *CommandSpec) WithAliases(aliases ...string) *CommandSpec {
	c.aliases = append(c.aliases, aliases...)
	return c
}

// WithHidden hides the command from help output.
func (c *CommandSpec) WithHidden() *CommandSpec {
	c.hidden = true
	return c
}

// WithHandler sets the function run by Execute when this command is the
// last one in the parse chain.
func (c *CommandSpec) WithHandler(h Handler) *CommandSpec {
	c.handler = h
	return c
}

// WithDefaults sets the provider consulted for arguments absent from input.
// Subcommands without their own provider use the nearest ancestor's.
func (c *CommandSpec) WithDefaults(p DefaultProvider) *CommandSpec {
	c.defaults = p
	return c
}

// Use adds middleware wrapping this command's handler.
func (c *CommandSpec) Use(mw ...middleware.Middleware) *CommandSpec {
	c.middleware = append(c.middleware, mw...)
	return c
}

// AllowUnmatched makes unknown tokens collect into the result instead of
// failing the parse.
func (c *CommandSpec) AllowUnmatched(allow bool) *CommandSpec {
	c.allowUnmatched = allow
	return c
}

// AbbreviateOptions enables unique-prefix matching of long option names.
func (c *CommandSpec) AbbreviateOptions(enabled bool) *CommandSpec {
	c.abbreviate = enabled
	return c
}

// MixinStandardHelpOptions adds "-h, --help" and "-V, --version".
func (c *CommandSpec) MixinStandardHelpOptions(enabled bool) *CommandSpec {
	c.standardHelp = enabled
	return c
}

// AddMethodSubcommands controls whether method-derived subcommands, own and
// inherited, are part of the subcommand map.
func (c *CommandSpec) AddMethodSubcommands(enabled bool) *CommandSpec {
	c.addMethods = enabled
	return c
}

// UnmatchedAllowed reports the AllowUnmatched setting.
func (c *CommandSpec) UnmatchedAllowed() bool { return c.allowUnmatched }

// AbbreviationEnabled reports the AbbreviateOptions setting.
func (c *CommandSpec) AbbreviationEnabled() bool { return c.abbreviate }

// StandardHelpOptions reports the MixinStandardHelpOptions setting.
func (c *CommandSpec) StandardHelpOptions() bool { return c.standardHelp }

// MethodSubcommandsEnabled reports the AddMethodSubcommands setting.
func (c *CommandSpec) MethodSubcommandsEnabled() bool { return c.addMethods }

// Handler returns the command handler, or nil.
func (c *CommandSpec) Handler() Handler { return c.handler }

// Arguments

// Option declares a string option with the given names and returns its builder.
func (c *CommandSpec) Option(names ...string) *ArgBuilder {
	arg := NewOption(names...)
	c.args = append(c.args, arg)
	return &ArgBuilder{arg: arg, cmd: c}
}

// Positional declares a string positional parameter and returns its builder.
func (c *CommandSpec) Positional(label string) *ArgBuilder {
	arg := NewPositional(label)
	c.args = append(c.args, arg)
	return &ArgBuilder{arg: arg, cmd: c}
}

// AddArg appends a prepared ArgSpec.
func (c *CommandSpec) AddArg(arg *ArgSpec) *CommandSpec {
	c.args = append(c.args, arg)
	return c
}

// AddMixin merges copies of the mixin's arguments into this command, at the
// current position in declaration order.
func (c *CommandSpec) AddMixin(mixin *CommandSpec) *CommandSpec {
	if mixin.err != nil {
		c.fail(mixin.err)
	}
	for _, arg := range mixin.Args() {
		c.args = append(c.args, arg.clone())
	}
	return c
}

// Inherit merges the arguments and method-derived subcommands of base after
// this command's own. Duplicate option names are reported by NewCommandLine.
func (c *CommandSpec) Inherit(base *CommandSpec) *CommandSpec {
	if base.err != nil {
		c.fail(base.err)
	}
	for _, arg := range base.Args() {
		c.inherited = append(c.inherited, arg.clone())
	}
	for _, m := range base.allMethods() {
		inherited := *m
		inherited.parent = c
		c.inheritedMethods = append(c.inheritedMethods, &inherited)
	}
	return c
}

// Args returns the command's own arguments followed by inherited ones.
func (c *CommandSpec) Args() []*ArgSpec {
	if c.sealed {
		return c.all
	}
	out := make([]*ArgSpec, 0, len(c.args)+len(c.inherited))
	out = append(out, c.args...)
	return append(out, c.inherited...)
}

// Options returns the options in declaration order.
func (c *CommandSpec) Options() []*ArgSpec {
	var out []*ArgSpec
	for _, a := range c.Args() {
		if a.IsOption() {
			out = append(out, a)
		}
	}
	return out
}

// Positionals returns the positional parameters in declaration order.
func (c *CommandSpec) Positionals() []*ArgSpec {
	var out []*ArgSpec
	for _, a := range c.Args() {
		if a.IsPositional() {
			out = append(out, a)
		}
	}
	return out
}

// FindOption returns the option with the given name, such as "-b", "--branch"
// or "branch".
func (c *CommandSpec) FindOption(name string) *ArgSpec {
	if c.sealed {
		if a, ok := c.byName[name]; ok {
			return a
		}
	}
	for _, a := range c.Options() {
		if a.matchesName(name) {
			return a
		}
	}
	return nil
}

// FindArg returns the option or positional parameter referred to by name.
func (c *CommandSpec) FindArg(name string) *ArgSpec {
	if a := c.FindOption(name); a != nil {
		return a
	}
	for _, a := range c.Positionals() {
		if a.matchesName(name) {
			return a
		}
	}
	return nil
}

// Subcommands

// AddSubcommand adds child under c and sets its parent.
func (c *CommandSpec) AddSubcommand(child *CommandSpec) *CommandSpec {
	child.parent = c
	c.subcommands = append(c.subcommands, child)
	return c
}

// AddMethodSubcommand adds a subcommand derived from a function of the
// type c was built from. It is only reachable while AddMethodSubcommands
// is enabled.
func (c *CommandSpec) AddMethodSubcommand(child *CommandSpec) *CommandSpec {
	child.parent = c
	c.methods = append(c.methods, child)
	return c
}

func (c *CommandSpec) subcommandNames() []string {
	var names []string
	for _, sub := range c.Subcommands() {
		names = append(names, sub.name)
		names = append(names, sub.aliases...)
	}
	return names
}

func (c *CommandSpec) optionNames() []string {
	var names []string
	for _, a := range c.Options() {
		names = append(names, a.names...)
		names = append(names, a.negatedNames()...)
	}
	return names
}

// fail records the first construction error.
func (c *CommandSpec) fail(err error) {
	if c.err == nil {
		c.err = err
	}
}

// Validation

// Validate checks the command tree for structural errors and freezes it.
// NewCommandLine calls it; calling it again is harmless.
func (c *CommandSpec) Validate() error {
	return c.seal()
}

func (c *CommandSpec) seal() error {
	if c.sealed {
		return nil
	}
	if c.err != nil {
		return c.err
	}
	if c.name == "" {
		return initError(c.name, "Command name must not be empty")
	}

	if c.standardHelp {
		c.addStandardHelp()
	}

	all := c.Args()
	byName := make(map[string]*ArgSpec)
	negated := make(map[string]*ArgSpec)
	var longNames []optionName

	for _, arg := range all {
		if arg.typ == nil {
			return initError(c.name, "%s %s has no type", arg.kind, arg.LongestName())
		}
		if arg.IsPositional() {
			continue
		}
		if len(arg.names) == 0 {
			return initError(c.name, "Option in command '%s' has no names", c.name)
		}
		if arg.negatable && !arg.IsBoolean() {
			return initError(c.name, "Only boolean options can be negatable: %s is %s", arg.LongestName(), arg.typ)
		}
		for _, n := range arg.names {
			if len(n) < 2 || n[0] != '-' || n == "--" {
				return initError(c.name, "Invalid option name '%s' in command '%s': names must start with '-'", n, c.name)
			}
			if prev, ok := byName[n]; ok {
				return duplicateOption(c, n, prev, arg)
			}
			byName[n] = arg
			if len(n) > 2 {
				longNames = append(longNames, optionName{name: n, arg: arg})
			}
		}
	}
	for _, arg := range all {
		for _, n := range arg.negatedNames() {
			if prev, ok := byName[n]; ok {
				return duplicateOption(c, n, prev, arg)
			}
			if prev, ok := negated[n]; ok {
				return duplicateOption(c, n, prev, arg)
			}
			negated[n] = arg
			longNames = append(longNames, optionName{name: n, arg: arg, negated: true})
		}
	}

	children := make(map[string]*CommandSpec)
	for _, sub := range c.Subcommands() {
		for _, key := range append([]string{sub.name}, sub.aliases...) {
			if _, exists := children[key]; exists {
				return initError(c.name, "Another subcommand named '%s' already exists for command '%s'", key, c.name)
			}
			children[key] = sub
		}
	}

	c.all = all
	c.byName = byName
	c.negated = negated
	c.longNames = longNames
	c.positionals = c.Positionals()
	c.childIndex = children
	c.sealed = true

	for _, sub := range c.Subcommands() {
		if err := sub.seal(); err != nil {
			c.sealed = false
			return err
		}
	}
	return nil
}

func (c *CommandSpec) addStandardHelp() {
	for _, a := range c.Args() {
		if a.usageHelp || a.versionHelp {
			return
		}
	}
	help := NewOption("-h", "--help")
	help.typ = boolType
	help.usageHelp = true
	help.description = "Show this help message and exit."

	version := NewOption("-V", "--version")
	version.typ = boolType
	version.versionHelp = true
	version.description = "Print version information and exit."

	c.args = append(c.args, help, version)
}

func duplicateOption(c *CommandSpec, name string, first, second *ArgSpec) *InitializationError {
	return initError(c.name, "Option name '%s' is used by both %s and %s in command '%s'",
		name, first.Label(), second.Label(), c.name)
}

// lookupShort resolves a single character of a short-option cluster.
func (c *CommandSpec) lookupShort(ch byte) *ArgSpec {
	return c.byName[intern.ShortOption(ch)]
}
