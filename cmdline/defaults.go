package cmdline

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// DefaultProvider supplies values for arguments that input left absent.
// Provided values take precedence over the ArgSpec default and are
// converted like input tokens.
type DefaultProvider interface {
	DefaultValues(cmd *CommandSpec, arg *ArgSpec) ([]string, bool)
}

// DefaultProviderFunc adapts a function to DefaultProvider.
type DefaultProviderFunc func(cmd *CommandSpec, arg *ArgSpec) ([]string, bool)

func (f DefaultProviderFunc) DefaultValues(cmd *CommandSpec, arg *ArgSpec) ([]string, bool) {
	return f(cmd, arg)
}

// defaultProvider returns the provider of c or of its nearest ancestor.
func (c *CommandSpec) defaultProvider() DefaultProvider {
	for cur := c; cur != nil; cur = cur.parent {
		if cur.defaults != nil {
			return cur.defaults
		}
	}
	return nil
}

// argKey is the name an argument is looked up by outside the command line:
// the longest option name without dashes, or the label without brackets.
func argKey(arg *ArgSpec) string {
	if arg.IsOption() {
		return strings.TrimLeft(arg.LongestName(), "-")
	}
	return strings.TrimSuffix(strings.TrimPrefix(arg.Label(), "<"), ">")
}

// EnvDefaults reads defaults from environment variables named
// PREFIX_SUB_KEY, where SUB is the path of subcommands below the root and
// KEY the argument key, upper-cased with '-' replaced by '_'. For example
// with prefix "GIT", option --depth of "git clone" reads GIT_CLONE_DEPTH.
func EnvDefaults(prefix string) DefaultProvider {
	return DefaultProviderFunc(func(cmd *CommandSpec, arg *ArgSpec) ([]string, bool) {
		v, ok := os.LookupEnv(EnvName(prefix, cmd, arg))
		if !ok {
			return nil, false
		}
		return []string{v}, true
	})
}

// EnvName returns the variable EnvDefaults consults for arg.
func EnvName(prefix string, cmd *CommandSpec, arg *ArgSpec) string {
	var parts []string
	if prefix != "" {
		parts = append(parts, prefix)
	}
	if path := cmd.Path(); len(path) > 1 {
		parts = append(parts, path[1:]...)
	}
	parts = append(parts, argKey(arg))

	name := strings.Join(parts, "_")
	name = strings.NewReplacer("-", "_", ".", "_", " ", "_").Replace(name)
	return strings.ToUpper(name)
}

// MapDefaults serves defaults from a nested map in the layout FileDefaults
// reads: keys of the root command at the top level, and one nested map per
// subcommand, keyed by its name.
func MapDefaults(values map[string]any) DefaultProvider {
	return &mapProvider{values: values}
}

type mapProvider struct {
	values map[string]any
}

func (p *mapProvider) DefaultValues(cmd *CommandSpec, arg *ArgSpec) ([]string, bool) {
	section := p.values
	path := cmd.Path()
	for _, name := range path[1:] {
		next, ok := asSection(section[name])
		if !ok {
			return nil, false
		}
		section = next
	}

	v, ok := section[argKey(arg)]
	if !ok || v == nil {
		return nil, false
	}
	return literals(v), true
}

func asSection(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case map[any]any:
		out := make(map[string]any, len(m))
		for k, val := range m {
			out[fmt.Sprint(k)] = val
		}
		return out, true
	}
	return nil, false
}

// literals flattens a decoded document value into argument tokens: one per
// list element, and one "key=value" entry per map entry.
func literals(v any) []string {
	switch val := v.(type) {
	case []any:
		out := make([]string, 0, len(val))
		for _, e := range val {
			out = append(out, fmt.Sprint(e))
		}
		return out
	case []map[string]any:
		var out []string
		for _, m := range val {
			out = append(out, literals(m)...)
		}
		return out
	}
	if m, ok := asSection(v); ok {
		out := make([]string, 0, len(m))
		for k, e := range m {
			out = append(out, k+"="+fmt.Sprint(e))
		}
		slices.Sort(out)
		return out
	}
	return []string{fmt.Sprint(v)}
}

// FileDefaults loads defaults from a YAML (.yaml, .yml), TOML (.toml) or
// JSON (.json) file laid out as MapDefaults describes.
func FileDefaults(path string) (DefaultProvider, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseDefaults(data, filepath.Ext(path))
}

// ParseDefaults decodes a defaults document. format is a file extension
// with or without the leading dot.
func ParseDefaults(data []byte, format string) (DefaultProvider, error) {
	values := make(map[string]any)
	var err error

	switch strings.ToLower(strings.TrimPrefix(format, ".")) {
	case "yaml", "yml":
		err = yaml.Unmarshal(data, &values)
	case "toml":
		_, err = toml.Decode(string(data), &values)
	case "json":
		err = json.Unmarshal(data, &values)
	default:
		return nil, fmt.Errorf("unsupported defaults format: %q", format)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s defaults: %w", format, err)
	}
	return MapDefaults(values), nil
}

// ChainDefaults consults each provider in turn and returns the first hit.
func ChainDefaults(providers ...DefaultProvider) DefaultProvider {
	return DefaultProviderFunc(func(cmd *CommandSpec, arg *ArgSpec) ([]string, bool) {
		for _, p := range providers {
			if p == nil {
				continue
			}
			if v, ok := p.DefaultValues(cmd, arg); ok {
				return v, true
			}
		}
		return nil, false
	})
}
