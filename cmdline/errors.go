package cmdline

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/dzonerzy/go-cmdline/internal/fuzzy"
)

// ErrorType represents error categories produced while building or parsing
// a command line. These categories drive exit-code mapping (via ExitCodeManager).
type ErrorType string

const (
	ErrorTypeFormat            ErrorType = "format"
	ErrorTypeInitialization    ErrorType = "initialization"
	ErrorTypeMissingParameter  ErrorType = "missing_parameter"
	ErrorTypeUnmatchedArgument ErrorType = "unmatched_argument"
	ErrorTypeTypeConversion    ErrorType = "type_conversion"
	ErrorTypeExecution         ErrorType = "execution"
)

// Error is implemented by every error this package returns for a malformed
// model or malformed input.
type Error interface {
	error
	Kind() ErrorType
}

// KindOf returns the category of err, or "" when err does not originate
// from this package.
func KindOf(err error) ErrorType {
	var e Error
	if errors.As(err, &e) {
		return e.Kind()
	}
	return ""
}

var (
	// ErrHelpRequested is returned by Execute when a usage help option matched.
	ErrHelpRequested = errors.New("usage help requested")
	// ErrVersionRequested is returned by Execute when a version help option matched.
	ErrVersionRequested = errors.New("version help requested")
)

// FormatError reports malformed range or arity text in the model.
type FormatError struct {
	Input   string
	Message string
}

func (e *FormatError) Error() string   { return e.Message }
func (e *FormatError) Kind() ErrorType { return ErrorTypeFormat }

func rangeError(input, reason string) *FormatError {
	return &FormatError{
		Input:   input,
		Message: fmt.Sprintf("Invalid range '%s': %s", input, reason),
	}
}

// InitializationError reports a structurally invalid model: duplicate
// names, unsupported types, or a struct without any command markers.
type InitializationError struct {
	Command string
	Message string
}

func (e *InitializationError) Error() string   { return e.Message }
func (e *InitializationError) Kind() ErrorType { return ErrorTypeInitialization }

func initError(command, format string, args ...any) *InitializationError {
	return &InitializationError{Command: command, Message: fmt.Sprintf(format, args...)}
}

// MissingParameterError reports a required argument that received no value,
// or an argument that received fewer values than its arity demands.
type MissingParameterError struct {
	Command *CommandSpec
	Arg     *ArgSpec
	Message string
}

func (e *MissingParameterError) Error() string   { return e.Message }
func (e *MissingParameterError) Kind() ErrorType { return ErrorTypeMissingParameter }

func missingRequired(cmd *CommandSpec, arg *ArgSpec) *MissingParameterError {
	var msg string
	if arg.IsOption() {
		name := arg.LongestName()
		if arg.Arity().Max > 0 || arg.Arity().Unbounded {
			name += "=" + arg.Label()
		}
		msg = fmt.Sprintf("Missing required option '%s'", name)
	} else {
		msg = "Missing required parameter: " + arg.Label()
	}
	return &MissingParameterError{Command: cmd, Arg: arg, Message: msg}
}

func missingValues(cmd *CommandSpec, arg *ArgSpec, got []string) *MissingParameterError {
	arity := arg.Arity()
	var msg string
	switch {
	case len(got) == 0 && arg.IsOption():
		msg = fmt.Sprintf("Missing required parameter for %s", describeArg(arg))
	case len(got) == 0:
		msg = "Missing required parameter: " + arg.Label()
	default:
		msg = fmt.Sprintf("%s requires at least %d values, but only %d were specified: [%s]",
			describeArg(arg), arity.Min, len(got), strings.Join(got, ", "))
	}
	return &MissingParameterError{Command: cmd, Arg: arg, Message: msg}
}

// UnmatchedArgumentError reports input tokens that no option, positional
// parameter or subcommand accepted, including ambiguous abbreviations.
// Suggestions holds close option or subcommand names; they are not part of
// the message.
type UnmatchedArgumentError struct {
	Command     *CommandSpec
	Unmatched   []string
	Suggestions []string
	Message     string
}

func (e *UnmatchedArgumentError) Error() string   { return e.Message }
func (e *UnmatchedArgumentError) Kind() ErrorType { return ErrorTypeUnmatchedArgument }

func unknownOption(cmd *CommandSpec, token string) *UnmatchedArgumentError {
	name, _, _ := strings.Cut(token, "=")
	return &UnmatchedArgumentError{
		Command:     cmd,
		Unmatched:   []string{token},
		Suggestions: fuzzy.FindOptions(name, cmd.optionNames()),
		Message:     "Unknown option: " + token,
	}
}

// unmatchedArguments names the first leftover token. The full list stays in
// Unmatched.
func unmatchedArguments(cmd *CommandSpec, tokens []string) *UnmatchedArgumentError {
	return &UnmatchedArgumentError{
		Command:     cmd,
		Unmatched:   tokens,
		Suggestions: fuzzy.FindCommands(tokens[0], cmd.subcommandNames()),
		Message:     "Unmatched argument: " + tokens[0],
	}
}

func ambiguousOption(cmd *CommandSpec, token string, candidates []string) *UnmatchedArgumentError {
	quoted := make([]string, len(candidates))
	for i, c := range candidates {
		quoted[i] = "'" + c + "'"
	}
	return &UnmatchedArgumentError{
		Command:     cmd,
		Unmatched:   []string{token},
		Suggestions: candidates,
		Message:     fmt.Sprintf("'%s' is not unique: it matches %s", token, strings.Join(quoted, ", ")),
	}
}

// TypeConversionError reports a token that could not be converted to the
// declared type of the argument it was matched to.
type TypeConversionError struct {
	Arg     *ArgSpec
	Value   string
	Type    reflect.Type
	Message string
	Err     error
}

func (e *TypeConversionError) Error() string   { return e.Message }
func (e *TypeConversionError) Kind() ErrorType { return ErrorTypeTypeConversion }
func (e *TypeConversionError) Unwrap() error   { return e.Err }

func conversionError(arg *ArgSpec, value string, t reflect.Type, cause error) *TypeConversionError {
	reason := fmt.Sprintf("'%s' is not %s", value, article(typeName(t)))
	var d interface{ describe() string }
	if errors.As(cause, &d) {
		reason = d.describe()
	}
	return &TypeConversionError{
		Arg:     arg,
		Value:   value,
		Type:    t,
		Message: fmt.Sprintf("Invalid value for %s: %s", describeArg(arg), reason),
		Err:     cause,
	}
}

// ExecutionError wraps a panic-free failure raised while binding values or
// invoking the handler of a matched command.
type ExecutionError struct {
	Command string
	Err     error
}

func (e *ExecutionError) Error() string   { return e.Command + ": " + e.Err.Error() }
func (e *ExecutionError) Kind() ErrorType { return ErrorTypeExecution }
func (e *ExecutionError) Unwrap() error   { return e.Err }

func describeArg(arg *ArgSpec) string {
	if arg.IsOption() {
		return fmt.Sprintf("option '%s' (%s)", arg.LongestName(), arg.Label())
	}
	return fmt.Sprintf("positional parameter at index %s (%s)", arg.Index(), arg.Label())
}

func typeName(t reflect.Type) string {
	if t == nil {
		return "value"
	}
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Name() != "" {
		return t.Name()
	}
	return t.String()
}

func article(word string) string {
	if word == "" {
		return word
	}
	switch strings.ToLower(word[:1]) {
	case "a", "e", "i", "o", "u":
		return "an " + word
	}
	return "a " + word
}
