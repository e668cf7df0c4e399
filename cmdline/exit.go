package cmdline

import (
	"errors"
	"reflect"

	"github.com/dzonerzy/go-cmdline/middleware"
)

// ExitError requests a specific exit code from a handler.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return "exit"
}

func (e *ExitError) Unwrap() error { return e.Err }

// ExitCodeDefaults holds the codes used when no specific mapping applies.
type ExitCodeDefaults struct {
	Success         int // default: 0
	GeneralError    int // default: 1
	MisusageError   int // default: 2
	ValidationError int // default: 3
}

func defaultExitDefaults() ExitCodeDefaults {
	return ExitCodeDefaults{Success: 0, GeneralError: 1, MisusageError: 2, ValidationError: 3}
}

// ExitCodeManager maps errors to process exit codes.
type ExitCodeManager struct {
	codesByKind map[ErrorType]int
	codesByType map[reflect.Type]int
	typeOrder   []reflect.Type
	defaults    ExitCodeDefaults
}

// NewExitCodeManager returns a manager with the usual mappings: malformed
// input exits with 2, failed validation with 3 and everything else with 1.
func NewExitCodeManager() *ExitCodeManager {
	m := &ExitCodeManager{
		codesByKind: make(map[ErrorType]int),
		codesByType: make(map[reflect.Type]int),
		defaults:    defaultExitDefaults(),
	}
	m.codesByKind[ErrorTypeMissingParameter] = m.defaults.MisusageError
	m.codesByKind[ErrorTypeUnmatchedArgument] = m.defaults.MisusageError
	m.codesByKind[ErrorTypeTypeConversion] = m.defaults.MisusageError

	m.DefineError(&middleware.ValidationError{}, m.defaults.ValidationError)
	m.DefineError(&middleware.TimeoutError{}, m.defaults.GeneralError)
	m.DefineError(&middleware.RecoveryError{}, m.defaults.GeneralError)
	return m
}

// DefineKind overrides the code used for an error category of this package.
func (e *ExitCodeManager) DefineKind(kind ErrorType, code int) *ExitCodeManager {
	e.codesByKind[kind] = code
	return e
}

// DefineError maps errors of err's dynamic type, anywhere in a wrapped
// chain, to code. Types are tried in the order they were defined.
func (e *ExitCodeManager) DefineError(err error, code int) *ExitCodeManager {
	if err == nil {
		return e
	}
	t := reflect.TypeOf(err)
	if _, ok := e.codesByType[t]; !ok {
		e.typeOrder = append(e.typeOrder, t)
	}
	e.codesByType[t] = code
	return e
}

// Default replaces the fallback codes.
func (e *ExitCodeManager) Default(d ExitCodeDefaults) *ExitCodeManager {
	e.defaults = d
	return e
}

// Resolve converts err to an exit code. Precedence:
//  1. ErrHelpRequested and ErrVersionRequested exit with Success
//  2. an ExitError returned by the handler
//  3. a concrete error type registered with DefineError
//  4. the category of an error from this package (DefineKind)
//  5. GeneralError
func (e *ExitCodeManager) Resolve(err error) int {
	if err == nil || errors.Is(err, ErrHelpRequested) || errors.Is(err, ErrVersionRequested) {
		return e.defaults.Success
	}

	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}

	for _, t := range e.typeOrder {
		if errors.As(err, reflect.New(t).Interface()) {
			return e.codesByType[t]
		}
	}

	if code, ok := e.codesByKind[KindOf(err)]; ok {
		return code
	}
	return e.defaults.GeneralError
}
