package cmdline

import (
	"context"
	"reflect"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Runner is implemented by struct commands that run once their fields
// have been populated.
type Runner interface {
	Run(ctx context.Context) error
}

// MethodCommander is implemented by struct commands that contribute
// function-derived subcommands, usually built with FromFunc over methods of
// the same value. The commands of embedded structs are inherited.
type MethodCommander interface {
	MethodCommands() []*CommandSpec
}

// structBinding writes the values of one parse level into a struct.
type structBinding struct {
	target  reflect.Value
	initial map[*ArgSpec]reflect.Value
}

// FromStruct derives a command tree from a pointer to a struct.
//
// A blank field of type struct{} carrying a `command` tag marks the struct as
// a command and configures it:
//
//	_ struct{} `command:"git" version:"2.0" description:"..." standardHelp:"true"`
//
// Further marker tags are aliases (comma separated), abbreviate:"true",
// unmatched:"allow" and methods:"false". Fields become arguments through
// the option tag (comma separated names) or the param tag (an index range,
// possibly empty). Both accept label, arity, required, default, split,
// hidden and description; options also take negatable and order. Fields
// tagged subcommand:"name" hold nested commands, fields tagged mixin:""
// contribute their arguments in place, and embedded structs are inherited:
// their arguments follow the command's own.
func FromStruct(ptr any) (*CommandSpec, error) {
	v := reflect.ValueOf(ptr)
	if v.Kind() != reflect.Pointer || v.IsNil() || v.Elem().Kind() != reflect.Struct {
		return nil, initError("", "Cannot derive a command from %T: need a non-nil pointer to a struct", ptr)
	}
	return fromStruct(v, "")
}

func fromStruct(ptr reflect.Value, name string) (*CommandSpec, error) {
	target := ptr.Elem()
	t := target.Type()

	c := NewCommand(name)
	b := &structScan{cmd: c}
	if err := b.scan(target, nil, false); err != nil {
		return nil, err
	}
	if !b.marked && len(c.args) == 0 && len(c.inherited) == 0 && len(c.subcommands) == 0 {
		return nil, initError(t.String(), "%s is not a command: it has no command, option, param or subcommand tags", t)
	}
	if c.name == "" {
		c.name = strings.ToLower(t.Name())
	}
	if c.name == "" {
		c.name = "command"
	}

	if b.marked {
		own, inherited := methodCommands(ptr)
		for _, m := range own {
			if m.err != nil {
				return nil, m.err
			}
			c.AddMethodSubcommand(m)
		}
		for _, m := range inherited {
			if m.err != nil {
				return nil, m.err
			}
			m.parent = c
			c.inheritedMethods = append(c.inheritedMethods, m)
		}
	}

	sb := &structBinding{target: target, initial: make(map[*ArgSpec]reflect.Value)}
	for _, arg := range c.Args() {
		if arg.field == nil {
			continue
		}
		f := target.FieldByIndex(arg.field)
		init := reflect.New(f.Type()).Elem()
		init.Set(f)
		sb.initial[arg] = init
	}
	c.binding = sb
	return c, nil
}

type structScan struct {
	cmd    *CommandSpec
	marked bool
}

// scan walks the fields of v, whose index path from the root is prefix.
// Arguments found below an embedded struct are inherited.
func (s *structScan) scan(v reflect.Value, prefix []int, inherited bool) error {
	t := v.Type()
	for i := range t.NumField() {
		f := t.Field(i)
		path := append(append([]int(nil), prefix...), i)

		if f.Name == "_" {
			if tag, ok := f.Tag.Lookup("command"); ok && len(prefix) == 0 {
				s.marked = true
				s.applyMarker(tag, f.Tag)
			}
			continue
		}

		_, isOption := f.Tag.Lookup("option")
		_, isParam := f.Tag.Lookup("param")
		subName, isSub := f.Tag.Lookup("subcommand")
		_, isMixin := f.Tag.Lookup("mixin")

		if (isOption || isParam || isSub || isMixin) && !f.IsExported() {
			return initError(s.cmd.name, "Field %s.%s is tagged but not exported", t, f.Name)
		}

		switch {
		case isSub:
			sub, err := s.subcommand(v.Field(i), f, subName)
			if err != nil {
				return err
			}
			s.cmd.AddSubcommand(sub)
		case isMixin:
			fv, err := structField(v.Field(i), f)
			if err != nil {
				return err
			}
			if err := s.scan(fv, path, inherited); err != nil {
				return err
			}
		case isOption || isParam:
			arg, err := argFromField(f, path)
			if err != nil {
				return err
			}
			if inherited {
				s.cmd.inherited = append(s.cmd.inherited, arg)
			} else {
				s.cmd.args = append(s.cmd.args, arg)
			}
		case f.Anonymous && indirectKind(f.Type) == reflect.Struct && f.IsExported():
			fv, err := structField(v.Field(i), f)
			if err != nil {
				return err
			}
			if err := s.scan(fv, path, true); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *structScan) applyMarker(name string, tag reflect.StructTag) {
	c := s.cmd
	if name != "" {
		c.name = name
	}
	if aliases, ok := tag.Lookup("aliases"); ok && aliases != "" {
		c.WithAliases(splitList(aliases)...)
	}
	c.description = tag.Get("description")
	c.version = tag.Get("version")
	c.hidden = tag.Get("hidden") == "true"
	c.standardHelp = tag.Get("standardHelp") == "true"
	c.abbreviate = tag.Get("abbreviate") == "true"
	c.allowUnmatched = tag.Get("unmatched") == "allow"
	if tag.Get("methods") == "false" {
		c.addMethods = false
	}
}

func (s *structScan) subcommand(fv reflect.Value, f reflect.StructField, name string) (*CommandSpec, error) {
	if indirectKind(f.Type) != reflect.Struct {
		return nil, initError(s.cmd.name, "Subcommand field %s must be a struct or pointer to struct, not %s", f.Name, f.Type)
	}
	if f.Type.Kind() == reflect.Pointer {
		if fv.IsNil() {
			fv.Set(reflect.New(f.Type.Elem()))
		}
	} else {
		fv = fv.Addr()
	}
	sub, err := fromStruct(fv, name)
	if err != nil {
		return nil, err
	}
	if name != "" {
		sub.name = name
	}
	return sub, nil
}

// structField returns the struct value of a mixin or embedded field,
// allocating nil pointers.
func structField(fv reflect.Value, f reflect.StructField) (reflect.Value, error) {
	if f.Type.Kind() == reflect.Pointer {
		if fv.IsNil() {
			fv.Set(reflect.New(f.Type.Elem()))
		}
		return fv.Elem(), nil
	}
	return fv, nil
}

func indirectKind(t reflect.Type) reflect.Kind {
	if t.Kind() == reflect.Pointer {
		return t.Elem().Kind()
	}
	return t.Kind()
}

func argFromField(f reflect.StructField, path []int) (*ArgSpec, error) {
	tag := f.Tag
	var arg *ArgSpec
	if names, ok := tag.Lookup("option"); ok {
		arg = NewOption(splitList(names)...)
		if tag.Get("negatable") == "true" {
			arg.negatable = true
		}
		if order, ok := tag.Lookup("order"); ok {
			n, err := strconv.Atoi(order)
			if err != nil {
				return nil, initError("", "Invalid order '%s' on field %s", order, f.Name)
			}
			arg.order = n
		}
	} else {
		arg = NewPositional("")
		if index := tag.Get("param"); index != "" {
			r, err := ParseRange(index)
			if err != nil {
				return nil, err
			}
			arg.index = r
			arg.indexSet = true
		}
	}

	arg.typ = f.Type
	arg.field = path
	arg.label = "<" + lowerFirst(f.Name) + ">"
	if label, ok := tag.Lookup("label"); ok {
		arg.label = label
	}
	if arity, ok := tag.Lookup("arity"); ok {
		r, err := ParseRange(arity)
		if err != nil {
			return nil, err
		}
		arg.arity = r
		arg.aritySet = true
	}
	if req, ok := tag.Lookup("required"); ok {
		arg.required = req == "true"
		arg.requiredSet = true
	}
	if def, ok := tag.Lookup("default"); ok {
		arg.defaultVal = def
		arg.hasDefault = true
	}
	if split, ok := tag.Lookup("split"); ok {
		b := &ArgBuilder{arg: arg}
		if b.Split(split); b.err != nil {
			return nil, b.err
		}
	}
	arg.hidden = tag.Get("hidden") == "true"
	arg.description = tag.Get("description")
	return arg, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func lowerFirst(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	return string(unicode.ToLower(r)) + s[size:]
}

// methodCommands returns the method-derived commands of the struct behind
// ptr and those of its embedded structs. A command whose name an embedded
// struct also contributes counts as inherited.
func methodCommands(ptr reflect.Value) (own, inherited []*CommandSpec) {
	seen := make(map[string]bool)
	target := ptr.Elem()
	t := target.Type()
	for i := range t.NumField() {
		f := t.Field(i)
		if !f.Anonymous || !f.IsExported() || indirectKind(f.Type) != reflect.Struct {
			continue
		}
		fv := target.Field(i)
		if fv.Kind() != reflect.Pointer {
			fv = fv.Addr()
		}
		if fv.IsNil() {
			continue
		}
		if mc, ok := fv.Interface().(MethodCommander); ok {
			for _, m := range mc.MethodCommands() {
				seen[m.name] = true
				inherited = append(inherited, m)
			}
		}
	}

	if mc, ok := ptr.Interface().(MethodCommander); ok {
		for _, m := range mc.MethodCommands() {
			if !seen[m.name] {
				own = append(own, m)
			}
		}
	}
	return own, inherited
}

// apply writes the values of r into the bound struct. Arguments absent
// from r get back the value the field held when the command was built.
func (sb *structBinding) apply(r *CommandResult) {
	for _, arg := range r.spec.Args() {
		if arg.field == nil {
			continue
		}
		f := sb.target.FieldByIndex(arg.field)
		if b, ok := r.bindings[arg]; ok && b.value.IsValid() {
			f.Set(b.value)
		} else if init, ok := sb.initial[arg]; ok {
			f.Set(init)
		}
	}
}
