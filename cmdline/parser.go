package cmdline

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/dzonerzy/go-cmdline/internal/intern"
	"github.com/dzonerzy/go-cmdline/internal/pool"
	clio "github.com/dzonerzy/go-cmdline/io"
)

// EndOfOptions is the token after which options are no longer recognized.
const EndOfOptions = "--"

// ParseState represents the current state of the matcher state machine.
type ParseState int

const (
	StateScanning ParseState = iota
	StateOptionArityPending
	StatePositionalPending
	StateEndOfOptions
	StateSubcommandHandoff
	StateDone
)

func (s ParseState) String() string {
	switch s {
	case StateScanning:
		return "SCANNING"
	case StateOptionArityPending:
		return "OPTION_ARITY_PENDING"
	case StatePositionalPending:
		return "POSITIONAL_PENDING"
	case StateEndOfOptions:
		return "END_OF_OPTIONS"
	case StateSubcommandHandoff:
		return "SUBCOMMAND_HANDOFF"
	case StateDone:
		return "DONE"
	}
	return "UNKNOWN"
}

// matcher consumes the tokens of one command level. All parse state lives
// here, so concurrent parses over the same CommandSpec never share memory
// that is written to.
type matcher struct {
	spec     *CommandSpec
	registry *Registry
	tracer   *clio.Logger

	tokens       []string
	pos          int
	slot         int
	state        ParseState
	endOfOptions bool

	result *CommandResult
}

func newMatcher(spec *CommandSpec, tokens []string, registry *Registry, tracer *clio.Logger) *matcher {
	return &matcher{
		spec:     spec,
		registry: registry,
		tracer:   tracer,
		tokens:   tokens,
		state:    StateScanning,
		result:   newCommandResult(spec, registry),
	}
}

func (m *matcher) tracef(format string, args ...any) {
	if m.tracer.Enabled(clio.LevelDebug) {
		m.tracer.Debug("[%s] "+format, append([]any{m.state}, args...)...)
	}
}

// idle is the state the matcher returns to after each token.
func (m *matcher) idle() ParseState {
	if m.endOfOptions {
		return StateEndOfOptions
	}
	return StateScanning
}

// run consumes tokens until they are exhausted or a subcommand name is
// found. It returns the subcommand to continue with, or nil when this
// command was the last one; m.pos then indexes the subcommand's first token.
func (m *matcher) run() (*CommandSpec, error) {
	m.tracef("Parsing %d token(s) for command '%s'", len(m.tokens), m.spec.QualifiedName())

	for m.pos < len(m.tokens) {
		tok := m.tokens[m.pos]

		if !m.endOfOptions && tok == EndOfOptions {
			m.endOfOptions = true
			m.state = StateEndOfOptions
			m.tracef("Found end-of-options marker; remaining tokens are positional")
			m.pos++
			continue
		}

		if !m.endOfOptions && isOptionShaped(tok) {
			handled, err := m.matchOption(tok)
			if err != nil {
				return nil, err
			}
			if handled {
				m.state = m.idle()
				continue
			}
		}

		if sub := m.spec.Subcommand(tok); sub != nil {
			m.state = StateSubcommandHandoff
			m.tracef("Found subcommand '%s'", sub.name)
			m.pos++
			m.result.consumed = m.tokens[:m.pos-1]
			if err := m.finish(); err != nil {
				return nil, err
			}
			return sub, nil
		}

		if err := m.matchPositional(tok); err != nil {
			return nil, err
		}
		m.state = m.idle()
	}

	m.result.consumed = m.tokens
	return nil, m.finish()
}

// Option resolution

func isOptionShaped(tok string) bool {
	return len(tok) > 1 && tok[0] == '-'
}

// isNumber reports whether tok is a negative (or signed) number, which is
// a value rather than an option unless an option of that name exists.
func isNumber(tok string) bool {
	if _, err := strconv.ParseFloat(tok, 64); err == nil {
		return true
	}
	_, err := strconv.ParseInt(tok, 0, 64)
	return err == nil
}

// resolution is the outcome of looking up an option-shaped token.
type resolution struct {
	arg      *ArgSpec
	display  string
	value    string
	hasValue bool
	negated  bool
	cluster  bool
}

// resolve looks tok up in priority order: exact name, exact negated name,
// unique long-name prefix when abbreviation is enabled, and finally a
// short-option cluster whose first character names an option.
func (m *matcher) resolve(tok string) (resolution, error) {
	c := m.spec
	if arg, ok := c.byName[tok]; ok {
		return resolution{arg: arg, display: tok}, nil
	}
	if arg, ok := c.negated[tok]; ok {
		return resolution{arg: arg, display: tok, negated: true}, nil
	}

	name, value, hasValue := strings.Cut(tok, "=")
	if hasValue {
		if arg, ok := c.byName[name]; ok {
			return resolution{arg: arg, display: name, value: value, hasValue: true}, nil
		}
		if arg, ok := c.negated[name]; ok {
			return resolution{arg: arg, display: name, value: value, hasValue: true, negated: true}, nil
		}
	}

	if c.abbreviate && len(name) > 2 {
		match, ok, err := m.abbreviated(name)
		if err != nil {
			return resolution{}, err
		}
		if ok {
			return resolution{
				arg:      match.arg,
				display:  match.name,
				value:    value,
				hasValue: hasValue,
				negated:  match.negated,
			}, nil
		}
	}

	if tok[1] != '-' && len(tok) > 2 && c.lookupShort(tok[1]) != nil {
		return resolution{cluster: true, display: tok}, nil
	}
	return resolution{}, nil
}

// abbreviated finds the long names starting with prefix. More than one
// distinct candidate is an error naming the prefix.
func (m *matcher) abbreviated(prefix string) (optionName, bool, error) {
	var found []optionName
	for _, n := range m.spec.longNames {
		if !strings.HasPrefix(n.name, prefix) {
			continue
		}
		if !slices.ContainsFunc(found, func(f optionName) bool { return f.arg == n.arg && f.negated == n.negated }) {
			found = append(found, n)
		}
	}
	switch len(found) {
	case 0:
		return optionName{}, false, nil
	case 1:
		return found[0], true, nil
	}
	names := make([]string, len(found))
	for i, f := range found {
		names[i] = f.name
	}
	return optionName{}, false, ambiguousOption(m.spec, prefix, names)
}

// isOptionToken reports whether tok would be matched as an option. Errors
// such as ambiguous prefixes count as option-like.
func (m *matcher) isOptionToken(tok string) bool {
	if !isOptionShaped(tok) {
		return false
	}
	r, err := m.resolve(tok)
	return err != nil || r.arg != nil || r.cluster
}

// stopsGreedy reports whether an optional value slot must not absorb tok.
func (m *matcher) stopsGreedy(tok string) bool {
	if m.spec.Subcommand(tok) != nil {
		return true
	}
	if m.endOfOptions {
		return false
	}
	return tok == EndOfOptions || m.isOptionToken(tok)
}

// matchOption handles an option-shaped token. It reports false when the
// token should be treated as a positional value instead.
func (m *matcher) matchOption(tok string) (bool, error) {
	r, err := m.resolve(tok)
	if err != nil {
		return true, err
	}

	switch {
	case r.cluster:
		m.pos++
		return true, m.matchCluster(tok)
	case r.arg != nil:
		m.pos++
		return true, m.applyOption(r.arg, r.display, r.value, r.hasValue, r.negated)
	case isNumber(tok):
		return false, nil
	case m.spec.allowUnmatched:
		m.tracef("Unknown option '%s' recorded as unmatched", tok)
		m.result.unmatched = append(m.result.unmatched, tok)
		m.pos++
		return true, nil
	}
	return true, unknownOption(m.spec, tok)
}

// matchCluster walks a token such as "-rvoout": leading characters must be
// flags, and the first character naming a valued option takes the rest of
// the token, after an optional '=', as its value.
func (m *matcher) matchCluster(tok string) error {
	for i := 1; i < len(tok); i++ {
		arg := m.spec.lookupShort(tok[i])
		if arg == nil {
			rest := "-" + tok[i:]
			if m.spec.allowUnmatched {
				m.tracef("Unknown option '%s' in cluster '%s' recorded as unmatched", rest, tok)
				m.result.unmatched = append(m.result.unmatched, rest)
				return nil
			}
			return unknownOption(m.spec, rest)
		}

		display := intern.ShortOption(tok[i])
		arity := arg.Arity()
		if arity.Min == 0 && (arity.Max == 0 || arg.IsBoolean()) && !arity.Unbounded {
			if i+1 < len(tok) && tok[i+1] == '=' {
				return m.applyOption(arg, display, tok[i+2:], true, false)
			}
			m.tracef("Found option '%s' in cluster '%s'", display, tok)
			if err := m.setFlag(arg, false); err != nil {
				return err
			}
			continue
		}

		rest := strings.TrimPrefix(tok[i+1:], "=")
		return m.applyOption(arg, display, rest, rest != "", false)
	}
	return nil
}

// applyOption binds the values of one option occurrence. m.pos already
// points past the option token.
func (m *matcher) applyOption(arg *ArgSpec, display, value string, hasValue, negated bool) error {
	m.tracef("Found option '%s' (%s)", display, arg.Label())

	arity := arg.Arity()
	flagOnly := arity.Max == 0 && !arity.Unbounded
	if flagOnly && !hasValue {
		return m.setFlag(arg, negated)
	}
	if flagOnly && !arg.IsBoolean() {
		return &UnmatchedArgumentError{
			Command:   m.spec,
			Unmatched: []string{display + "=" + value},
			Message:   fmt.Sprintf("%s should be specified without '%s' parameter", describeArg(arg), value),
		}
	}

	m.state = StateOptionArityPending
	buf := pool.GetStrings()
	vals := *buf
	defer func() {
		*buf = vals
		pool.PutStrings(buf)
	}()
	if hasValue {
		vals = append(vals, value)
	}
	for m.pos < len(m.tokens) && arity.Remaining(len(vals)) != 0 {
		next := m.tokens[m.pos]
		if len(vals) < arity.Min {
			if next == EndOfOptions || m.isOptionToken(next) {
				break
			}
		} else if m.stopsGreedy(next) || (arg.IsBoolean() && !isBoolLiteral(next)) {
			break
		}
		vals = append(vals, next)
		m.pos++
	}

	if len(vals) < arity.Min {
		return missingValues(m.spec, arg, vals)
	}
	if len(vals) == 0 {
		if arg.IsBoolean() {
			return m.setFlag(arg, negated)
		}
		m.result.bind(arg).matched = true
		m.result.markMatched(arg)
		return nil
	}
	if negated {
		for i, v := range vals {
			b, err := parseBool(v)
			if err != nil {
				return conversionError(arg, v, arg.typ, err)
			}
			vals[i] = strconv.FormatBool(!b)
		}
	}
	return m.assign(arg, vals)
}

func isBoolLiteral(tok string) bool {
	_, err := parseBool(tok)
	return err == nil
}

// setFlag records a valueless occurrence: true for the declared form, the
// complement of the default for the negated one.
func (m *matcher) setFlag(arg *ArgSpec, negated bool) error {
	if !arg.IsBoolean() {
		m.result.bind(arg).matched = true
		m.result.markMatched(arg)
		return nil
	}
	value := true
	if negated {
		value = !defaultBool(arg)
	}
	return m.assign(arg, []string{strconv.FormatBool(value)})
}

// defaultBool reports the declared default of a boolean argument. An absent
// or unparsable default counts as false.
func defaultBool(arg *ArgSpec) bool {
	def, ok := arg.Default()
	if !ok {
		return false
	}
	b, err := parseBool(def)
	return err == nil && b
}

// Positional parameters

// positionalFor returns the first positional, in declaration order, whose
// index covers slot and that can still take a value.
func (m *matcher) positionalFor(slot int) *ArgSpec {
	for _, arg := range m.spec.positionals {
		if !arg.Index().Contains(slot) {
			continue
		}
		if !arg.IsAggregate() && m.result.isMatched(arg) {
			continue
		}
		return arg
	}
	return nil
}

func (m *matcher) matchPositional(tok string) error {
	arg := m.positionalFor(m.slot)
	if arg == nil {
		m.tracef("No positional parameter for index %d; '%s' recorded as unmatched", m.slot, tok)
		m.result.unmatched = append(m.result.unmatched, tok)
		m.pos++
		m.slot++
		return nil
	}

	m.state = StatePositionalPending
	arity := arg.Arity()

	vals := []string{tok}
	m.pos++
	for m.pos < len(m.tokens) && arity.Remaining(len(vals)) != 0 {
		next := m.tokens[m.pos]
		if len(vals) < arity.Min {
			if !m.endOfOptions && (next == EndOfOptions || m.isOptionToken(next)) {
				break
			}
		} else if m.stopsGreedy(next) {
			break
		}
		vals = append(vals, next)
		m.pos++
	}
	if len(vals) < arity.Min {
		return missingValues(m.spec, arg, vals)
	}

	m.tracef("Assigning %v to %s at index %d", vals, arg.Label(), m.slot)
	m.slot += len(vals)
	return m.assign(arg, vals)
}

// Values

// assign converts vals and accumulates them on arg's binding. Aggregate
// arguments split each token by their split pattern first.
func (m *matcher) assign(arg *ArgSpec, vals []string) error {
	b := m.result.bind(arg)
	for _, raw := range vals {
		parts := []string{raw}
		if arg.split != nil && arg.IsAggregate() {
			parts = arg.split.Split(raw, -1)
		}
		for _, p := range parts {
			if err := b.add(m.registry, p); err != nil {
				return err
			}
		}
		b.raw = append(b.raw, raw)
	}
	b.matched = true
	b.source = SourceInput
	m.result.markMatched(arg)
	return nil
}

// finish applies defaults and validates the command level.
func (m *matcher) finish() error {
	if err := m.applyDefaults(); err != nil {
		return err
	}

	if !m.result.IsUsageHelpRequested() && !m.result.IsVersionHelpRequested() {
		for _, arg := range m.spec.all {
			if arg.Required() && !m.result.isMatched(arg) {
				return missingRequired(m.spec, arg)
			}
		}
	}

	if len(m.result.unmatched) > 0 && !m.spec.allowUnmatched {
		return unmatchedArguments(m.spec, m.result.unmatched)
	}

	if m.state != StateSubcommandHandoff {
		m.state = StateDone
	}
	m.tracef("Finished command '%s'", m.spec.name)
	return nil
}

// applyDefaults fills arguments absent from input: the default provider of
// the command or its nearest ancestor wins over the declared default.
func (m *matcher) applyDefaults() error {
	provider := m.spec.defaultProvider()
	for _, arg := range m.spec.all {
		if m.result.isMatched(arg) {
			continue
		}

		var vals []string
		source := SourceDefault
		if provider != nil {
			if pv, ok := provider.DefaultValues(m.spec, arg); ok {
				vals, source = pv, SourceProvider
			}
		}
		if source == SourceDefault {
			def, ok := arg.Default()
			if !ok {
				continue
			}
			vals = []string{def}
		}

		b := m.result.bind(arg)
		for _, raw := range vals {
			parts := []string{raw}
			if arg.split != nil && arg.IsAggregate() {
				parts = arg.split.Split(raw, -1)
			}
			for _, p := range parts {
				if err := b.add(m.registry, p); err != nil {
					return err
				}
			}
		}
		b.source = source
		m.tracef("Applied %s value %v to %s", source, vals, arg.Label())
	}
	return nil
}
