package cmdline

import (
	"encoding"
	"errors"
	"fmt"
	"net"
	"net/url"
	"reflect"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Converter turns one raw token into a typed value.
type Converter func(value string) (any, error)

// Formatter turns a typed value back into its literal form.
type Formatter func(value any) string

var (
	textUnmarshalerType = reflect.TypeFor[encoding.TextUnmarshaler]()
	textMarshalerType   = reflect.TypeFor[encoding.TextMarshaler]()
)

// Registry maps declared types to converters. Lookups fall back, in order,
// to registered enumerations, encoding.TextUnmarshaler, the type's kind for
// strings, booleans and numbers, and finally pointer element types.
// A Registry is safe for concurrent use.
type Registry struct {
	mu         sync.RWMutex
	converters map[reflect.Type]Converter
	formatters map[reflect.Type]Formatter
	enums      map[reflect.Type]*enumSpec
}

type enumSpec struct {
	names  []string
	values []reflect.Value
}

// NewRegistry returns a registry with the built-in conversions.
func NewRegistry() *Registry {
	r := &Registry{
		converters: make(map[reflect.Type]Converter),
		formatters: make(map[reflect.Type]Formatter),
		enums:      make(map[reflect.Type]*enumSpec),
	}

	Register(r, func(s string) (time.Duration, error) { return parseDuration(s) })
	RegisterFormatter(r, func(d time.Duration) string { return d.String() })

	Register(r, url.Parse)
	RegisterFormatter(r, func(u *url.URL) string { return u.String() })

	Register(r, func(s string) (net.IP, error) {
		ip := net.ParseIP(s)
		if ip == nil {
			return nil, errors.New("invalid IP address")
		}
		return ip, nil
	})
	RegisterFormatter(r, func(ip net.IP) string { return ip.String() })

	Register(r, regexp.Compile)
	RegisterFormatter(r, func(re *regexp.Regexp) string { return re.String() })

	return r
}

// Register adds a converter for T to r, replacing any previous one.
func Register[T any](r *Registry, fn func(string) (T, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.converters[reflect.TypeFor[T]()] = func(s string) (any, error) {
		return fn(s)
	}
}

// RegisterFormatter adds a formatter for T to r.
func RegisterFormatter[T any](r *Registry, fn func(T) string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.formatters[reflect.TypeFor[T]()] = func(v any) string {
		return fn(v.(T))
	}
}

// RegisterEnum registers T as an enumeration of the given values. Each
// value's literal is its fmt.Sprint form, so string-based types and types
// implementing fmt.Stringer both work. Literals match case-insensitively.
func RegisterEnum[T comparable](r *Registry, values ...T) {
	spec := &enumSpec{}
	for _, v := range values {
		spec.names = append(spec.names, fmt.Sprint(v))
		spec.values = append(spec.values, reflect.ValueOf(v))
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.enums[reflect.TypeFor[T]()] = spec
}

// Supports reports whether r can convert tokens to t.
func (r *Registry) Supports(t reflect.Type) bool {
	r.mu.RLock()
	_, conv := r.converters[t]
	_, enum := r.enums[t]
	r.mu.RUnlock()
	if conv || enum {
		return true
	}
	if reflect.PointerTo(t).Implements(textUnmarshalerType) {
		return true
	}
	switch t.Kind() {
	case reflect.String, reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	case reflect.Pointer:
		return r.Supports(t.Elem())
	case reflect.Interface:
		return t.NumMethod() == 0
	}
	return false
}

// Convert converts s to a value of type t.
func (r *Registry) Convert(t reflect.Type, s string) (reflect.Value, error) {
	r.mu.RLock()
	conv, hasConv := r.converters[t]
	enum, isEnum := r.enums[t]
	r.mu.RUnlock()

	switch {
	case hasConv:
		v, err := conv(s)
		if err != nil {
			return reflect.Value{}, err
		}
		return reflect.ValueOf(v), nil
	case isEnum:
		return enum.convert(s)
	}

	if reflect.PointerTo(t).Implements(textUnmarshalerType) {
		ptr := reflect.New(t)
		if err := ptr.Interface().(encoding.TextUnmarshaler).UnmarshalText([]byte(s)); err != nil {
			return reflect.Value{}, err
		}
		return ptr.Elem(), nil
	}

	v := reflect.New(t).Elem()
	switch t.Kind() {
	case reflect.String:
		v.SetString(s)
	case reflect.Bool:
		b, err := parseBool(s)
		if err != nil {
			return reflect.Value{}, err
		}
		v.SetBool(b)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(s, 0, t.Bits())
		if err != nil {
			return reflect.Value{}, err
		}
		v.SetInt(n)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := strconv.ParseUint(s, 0, t.Bits())
		if err != nil {
			return reflect.Value{}, err
		}
		v.SetUint(n)
	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(s, t.Bits())
		if err != nil {
			return reflect.Value{}, err
		}
		v.SetFloat(f)
	case reflect.Pointer:
		elem, err := r.Convert(t.Elem(), s)
		if err != nil {
			return reflect.Value{}, err
		}
		ptr := reflect.New(t.Elem())
		ptr.Elem().Set(elem)
		return ptr, nil
	case reflect.Interface:
		if t.NumMethod() != 0 {
			return reflect.Value{}, fmt.Errorf("no converter registered for %s", t)
		}
		v.Set(reflect.ValueOf(s))
	default:
		return reflect.Value{}, fmt.Errorf("no converter registered for %s", t)
	}
	return v, nil
}

// parseBool accepts "true" and "false" in any letter case.
func parseBool(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "true":
		return true, nil
	case "false":
		return false, nil
	}
	return false, strconv.ErrSyntax
}

// enumError carries its own reason text into TypeConversionError.
type enumError struct {
	value string
	names []string
}

func (e *enumError) Error() string { return e.describe() }

func (e *enumError) describe() string {
	return fmt.Sprintf("expected one of [%s] (case-insensitive) but was '%s'", strings.Join(e.names, ", "), e.value)
}

func (e *enumSpec) convert(s string) (reflect.Value, error) {
	for i, name := range e.names {
		if strings.EqualFold(name, s) {
			return e.values[i], nil
		}
	}
	return reflect.Value{}, &enumError{value: s, names: e.names}
}

// Format returns the literal form of v: the enumeration literal, the
// registered formatter, encoding.TextMarshaler, or the plain number, bool or
// string. Slices are joined with "," and maps render as "k=v" entries.
func (r *Registry) Format(v any) string {
	if v == nil {
		return ""
	}
	return r.format(reflect.ValueOf(v))
}

func (r *Registry) format(v reflect.Value) string {
	if !v.IsValid() {
		return ""
	}
	t := v.Type()

	r.mu.RLock()
	f, hasFormatter := r.formatters[t]
	enum, isEnum := r.enums[t]
	r.mu.RUnlock()

	switch {
	case hasFormatter:
		if (t.Kind() == reflect.Pointer || t.Kind() == reflect.Slice) && v.IsNil() {
			return ""
		}
		return f(v.Interface())
	case isEnum:
		for i, ev := range enum.values {
			if ev.Equal(v) {
				return enum.names[i]
			}
		}
	}

	if t.Implements(textMarshalerType) && !(t.Kind() == reflect.Pointer && v.IsNil()) {
		if text, err := v.Interface().(encoding.TextMarshaler).MarshalText(); err == nil {
			return string(text)
		}
	}

	switch t.Kind() {
	case reflect.String:
		return v.String()
	case reflect.Bool:
		return strconv.FormatBool(v.Bool())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(v.Int(), 10)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.FormatUint(v.Uint(), 10)
	case reflect.Float32, reflect.Float64:
		return strconv.FormatFloat(v.Float(), 'g', -1, t.Bits())
	case reflect.Pointer, reflect.Interface:
		if v.IsNil() {
			return ""
		}
		return r.format(v.Elem())
	case reflect.Slice, reflect.Array:
		parts := make([]string, v.Len())
		for i := range parts {
			parts[i] = r.format(v.Index(i))
		}
		return strings.Join(parts, ",")
	case reflect.Map:
		keys := v.MapKeys()
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, r.format(k)+"="+r.format(v.MapIndex(k)))
		}
		slices.Sort(parts)
		return strings.Join(parts, ",")
	}
	return fmt.Sprint(v.Interface())
}
