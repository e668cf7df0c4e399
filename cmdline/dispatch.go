package cmdline

import (
	clio "github.com/dzonerzy/go-cmdline/io"
)

// dispatch runs the matcher against root and then against each subcommand
// the matcher hands over to, collecting one CommandResult per level. The
// chain is always a path from the root to the deepest resolved command.
func dispatch(root *CommandSpec, tokens []string, registry *Registry, tracer *clio.Logger) (*ParseResult, error) {
	result := &ParseResult{tokens: tokens}

	spec, rest := root, tokens
	var parent *CommandResult
	for {
		m := newMatcher(spec, rest, registry, tracer)
		m.result.parent = parent
		if parent != nil {
			parent.child = m.result
		}

		child, err := m.run()
		if err != nil {
			return nil, err
		}
		result.chain = append(result.chain, m.result)
		if child == nil {
			return result, nil
		}

		rest = rest[m.pos:]
		if tracer.Enabled(clio.LevelDebug) {
			tracer.Debug("Handing %d remaining token(s) to subcommand '%s'", len(rest), child.QualifiedName())
		}
		parent = m.result
		spec = child
	}
}

func (c *CommandSpec) allMethods() []*CommandSpec {
	out := make([]*CommandSpec, 0, len(c.methods)+len(c.inheritedMethods))
	out = append(out, c.methods...)
	return append(out, c.inheritedMethods...)
}

// Subcommands returns the reachable subcommands: explicit ones first, then
// method-derived ones (own, then inherited) while AddMethodSubcommands is
// enabled. With it disabled, method-derived commands are not reachable at all.
func (c *CommandSpec) Subcommands() []*CommandSpec {
	out := append([]*CommandSpec(nil), c.subcommands...)
	if c.addMethods {
		out = append(out, c.allMethods()...)
	}
	return out
}

// Subcommand returns the reachable subcommand with the given name or alias.
func (c *CommandSpec) Subcommand(name string) *CommandSpec {
	if c.sealed {
		return c.childIndex[name]
	}
	for _, sub := range c.Subcommands() {
		if sub.name == name {
			return sub
		}
		for _, alias := range sub.aliases {
			if alias == name {
				return sub
			}
		}
	}
	return nil
}
