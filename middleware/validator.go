package middleware

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strings"
)

// ValidatorFunc checks a business rule before the handler runs. Structural
// rules such as required arguments and arity belong to the command model.
type ValidatorFunc func(ctx Context) error

// NamedValidator pairs a ValidatorFunc with the name used in error reports.
type NamedValidator struct {
	Name string
	Fn   ValidatorFunc
}

// Custom names an arbitrary validator.
func Custom(name string, fn ValidatorFunc) NamedValidator {
	return NamedValidator{Name: name, Fn: fn}
}

// File checks that the named arguments point to existing regular files.
func File(names ...string) NamedValidator {
	return NamedValidator{Name: "file_exists", Fn: FileExists(names...)}
}

// Dir checks that the named arguments point to existing directories.
func Dir(names ...string) NamedValidator {
	return NamedValidator{Name: "directory_exists", Fn: DirectoryExists(names...)}
}

// Validate runs the validators in order and stops at the first failure.
// Errors that are not already a *ValidationError are wrapped in one.
//
// Example:
//
//	cmd.Use(middleware.Validate(
//	    middleware.Custom("port_range", checkPort),
//	    middleware.File("config"),
//	))
func Validate(validators ...NamedValidator) Middleware {
	return func(next ActionFunc) ActionFunc {
		return func(ctx Context) error {
			for _, v := range validators {
				if v.Fn == nil {
					continue
				}
				if err := v.Fn(ctx); err != nil {
					var verr *ValidationError
					if errors.As(err, &verr) {
						return verr
					}
					return &ValidationError{Field: v.Name, Message: "validation failed", Cause: err}
				}
			}
			return next(ctx)
		}
	}
}

// Validator runs the validators registered with WithCustomValidators.
func Validator(options ...MiddlewareOption) Middleware {
	config := newConfig(options)
	validators := make([]NamedValidator, 0, len(config.CustomValidators))
	for name, fn := range config.CustomValidators {
		validators = append(validators, NamedValidator{Name: name, Fn: fn})
	}
	return Validate(validators...)
}

// WithCustomValidators registers validators for Validator.
func WithCustomValidators(validators map[string]ValidatorFunc) MiddlewareOption {
	return func(config *MiddlewareConfig) {
		if config.CustomValidators == nil {
			config.CustomValidators = make(map[string]ValidatorFunc)
		}
		for name, fn := range validators {
			config.CustomValidators[name] = fn
		}
	}
}

// ConditionalRequired requires the named arguments whenever condition
// succeeds.
func ConditionalRequired(condition ValidatorFunc, names ...string) ValidatorFunc {
	return func(ctx Context) error {
		if condition(ctx) != nil {
			return nil
		}
		var missing []string
		for _, name := range names {
			if !isPresent(ctx, name) {
				missing = append(missing, name)
			}
		}
		if len(missing) > 0 {
			list := strings.Join(missing, ", ")
			return &ValidationError{
				Field:   list,
				Message: "arguments required when condition is met: " + list,
			}
		}
		return nil
	}
}

// isPresent reports whether the named argument holds a non-zero value.
func isPresent(ctx Context, name string) bool {
	v, ok := ctx.Lookup(name)
	if !ok || v == nil {
		return false
	}
	return !reflect.ValueOf(v).IsZero()
}

func pathArg(ctx Context, name string) (string, bool) {
	v, ok := ctx.Lookup(name)
	if !ok {
		return "", false
	}
	switch p := v.(type) {
	case string:
		return p, p != ""
	case fmt.Stringer:
		return p.String(), p.String() != ""
	}
	return "", false
}

func checkPaths(names []string, kind string, check func(string) error) ValidatorFunc {
	return func(ctx Context) error {
		for _, name := range names {
			path, ok := pathArg(ctx, name)
			if !ok {
				continue
			}
			if err := check(path); err != nil {
				return &ValidationError{
					Field:   name,
					Value:   path,
					Message: fmt.Sprintf("%s validation failed for '%s'", kind, name),
					Cause:   err,
				}
			}
		}
		return nil
	}
}

// FileExists checks that string arguments name existing regular files.
// Absent or empty arguments pass.
func FileExists(names ...string) ValidatorFunc {
	return checkPaths(names, "file", func(path string) error {
		info, err := os.Stat(path)
		if err != nil {
			return err
		}
		if info.IsDir() {
			return fmt.Errorf("%s is a directory", path)
		}
		return nil
	})
}

// DirectoryExists checks that string arguments name existing directories.
// Absent or empty arguments pass.
func DirectoryExists(names ...string) ValidatorFunc {
	return checkPaths(names, "directory", func(path string) error {
		info, err := os.Stat(path)
		if err != nil {
			return err
		}
		if !info.IsDir() {
			return fmt.Errorf("%s is not a directory", path)
		}
		return nil
	})
}

// NoopValidator performs no validation.
func NoopValidator() Middleware {
	return func(next ActionFunc) ActionFunc { return next }
}
