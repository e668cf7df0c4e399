package cmdline

import (
	"strconv"
	"strings"
)

// Range is a closed interval of non-negative integers, optionally unbounded
// above. It describes both arity (how many values an argument consumes) and
// positional index (which positional slots a parameter may claim).
type Range struct {
	Min       int
	Max       int
	Unbounded bool
	// Variable is true when the range admits more than one count.
	Variable bool
}

// Fixed returns the range [n, n].
func Fixed(n int) Range {
	return Range{Min: n, Max: n}
}

// Between returns the range [minVal, maxVal].
func Between(minVal, maxVal int) Range {
	return Range{Min: minVal, Max: maxVal, Variable: minVal != maxVal}
}

// AtLeast returns the unbounded range [minVal, *].
func AtLeast(minVal int) Range {
	return Range{Min: minVal, Max: minVal, Unbounded: true, Variable: true}
}

// ParseRange parses the textual forms "N", "N..M", "N..*" and "*".
func ParseRange(text string) (Range, error) {
	s := strings.TrimSpace(text)
	if s == "" {
		return Range{}, rangeError(text, "range must not be empty")
	}
	if s == "*" {
		return AtLeast(0), nil
	}

	lo, hi, isInterval := strings.Cut(s, "..")
	minVal, err := parseBound(lo)
	if err != nil {
		return Range{}, rangeError(text, err.Error())
	}
	if !isInterval {
		return Fixed(minVal), nil
	}
	if hi == "*" {
		return AtLeast(minVal), nil
	}
	maxVal, err := parseBound(hi)
	if err != nil {
		return Range{}, rangeError(text, err.Error())
	}
	if minVal > maxVal {
		return Range{}, rangeError(text, "min must not exceed max")
	}
	return Between(minVal, maxVal), nil
}

// MustRange is like ParseRange but panics on malformed input. It is meant
// for package-level declarations with literal text.
func MustRange(text string) Range {
	r, err := ParseRange(text)
	if err != nil {
		panic(err)
	}
	return r
}

func parseBound(s string) (int, error) {
	if s == "" {
		return 0, errMissingBound
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, errNotANumber{s}
	}
	if n < 0 {
		return 0, errNegativeBound{n}
	}
	return n, nil
}

// Contains reports whether n lies within the range.
func (r Range) Contains(n int) bool {
	if n < r.Min {
		return false
	}
	return r.Unbounded || n <= r.Max
}

// IsFixed reports whether the range admits exactly one count.
func (r Range) IsFixed() bool {
	return !r.Unbounded && r.Min == r.Max
}

// Remaining returns how many more values the range admits once n have been
// taken, or -1 when unbounded.
func (r Range) Remaining(n int) int {
	if r.Unbounded {
		return -1
	}
	if n >= r.Max {
		return 0
	}
	return r.Max - n
}

func (r Range) String() string {
	switch {
	case r.Unbounded:
		return strconv.Itoa(r.Min) + "..*"
	case r.Min == r.Max:
		return strconv.Itoa(r.Min)
	default:
		return strconv.Itoa(r.Min) + ".." + strconv.Itoa(r.Max)
	}
}

type errNotANumber struct{ s string }

func (e errNotANumber) Error() string { return "'" + e.s + "' is not a number" }

type errNegativeBound struct{ n int }

func (e errNegativeBound) Error() string { return "bound " + strconv.Itoa(e.n) + " is negative" }

type boundError string

func (e boundError) Error() string { return string(e) }

const errMissingBound = boundError("missing bound")
