package cmdline

import (
	"context"
	"fmt"
	"reflect"
)

var (
	contextType = reflect.TypeFor[context.Context]()
	errorType   = reflect.TypeFor[error]()
)

// Opt declares a function parameter as an option. Use it with FromFunc.
func Opt(names ...string) *ArgBuilder {
	return &ArgBuilder{arg: NewOption(names...)}
}

// Param declares a function parameter as a positional parameter. Unless an
// index is set it may claim any positional slot.
func Param(label string) *ArgBuilder {
	return &ArgBuilder{arg: NewPositional(label)}
}

// Arg declares a function parameter without metadata; it is the same as
// passing nil or omitting trailing declarations. Such a parameter becomes a
// positional labelled "<argN>" whose index is N, its position in the
// parameter list.
func Arg() *ArgBuilder { return nil }

// funcBinding ties a function-derived command to the function it calls.
type funcBinding struct {
	fn     reflect.Value
	params []*ArgSpec
	ctx    bool
}

// FromFunc derives a command from fn. Each declaration describes the
// parameter at the same position; a leading context.Context parameter is
// not declared and receives the execution context. Errors are recorded on
// the returned command and reported by NewCommandLine.
func FromFunc(name string, fn any, decls ...*ArgBuilder) *CommandSpec {
	c := NewCommand(name)

	v := reflect.ValueOf(fn)
	if v.Kind() != reflect.Func || v.IsNil() {
		c.fail(initError(name, "Cannot derive command '%s' from %T: not a function", name, fn))
		return c
	}
	t := v.Type()

	fb := &funcBinding{fn: v}
	first := 0
	if t.NumIn() > 0 && t.In(0) == contextType {
		fb.ctx = true
		first = 1
	}
	if n := t.NumIn() - first; len(decls) > n {
		c.fail(initError(name, "Command '%s' declares %d parameters but the function takes %d", name, len(decls), n))
		return c
	}

	for pos := 0; pos < t.NumIn()-first; pos++ {
		pt := t.In(pos + first)
		fallback := fmt.Sprintf("<arg%d>", pos)

		var d *ArgBuilder
		if pos < len(decls) {
			d = decls[pos]
		}
		if d != nil && d.err != nil {
			c.fail(d.err)
			return c
		}

		var arg *ArgSpec
		switch {
		case d == nil:
			arg = NewPositional(fallback)
			arg.index = Fixed(pos)
			arg.indexSet = true
		default:
			arg = d.arg.clone()
			if arg.label == "" {
				arg.label = fallback
			}
		}
		arg.typ = pt
		fb.params = append(fb.params, arg)
		c.args = append(c.args, arg)
	}

	for i := range t.NumOut() {
		if out := t.Out(i); out == errorType && i != t.NumOut()-1 {
			c.fail(initError(name, "Command '%s': error must be the last result of the function", name))
		}
	}

	c.fn = fb
	return c
}

// Invoke calls the function bound to the command of r with the values
// bound to its parameters. It returns the function's first non-error
// result, or nil, and its error result.
func (r *CommandResult) Invoke(ctx context.Context) (any, error) {
	fb := r.spec.fn
	if fb == nil {
		return nil, &ExecutionError{Command: r.spec.QualifiedName(), Err: fmt.Errorf("command is not bound to a function")}
	}

	in := make([]reflect.Value, 0, len(fb.params)+1)
	if fb.ctx {
		if ctx == nil {
			ctx = context.Background()
		}
		in = append(in, reflect.ValueOf(&ctx).Elem())
	}
	for _, p := range fb.params {
		v := reflect.ValueOf(r.Value(p))
		if !v.IsValid() {
			v = reflect.Zero(p.typ)
		}
		in = append(in, v)
	}

	var out []reflect.Value
	if fb.fn.Type().IsVariadic() {
		out = fb.fn.CallSlice(in)
	} else {
		out = fb.fn.Call(in)
	}

	var (
		ret any
		err error
	)
	for _, o := range out {
		if o.Type() == errorType {
			if !o.IsNil() {
				err = o.Interface().(error)
			}
			continue
		}
		if ret == nil {
			ret = o.Interface()
		}
	}
	return ret, err
}
