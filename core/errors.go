package core

import (
	"errors"
	"fmt"

	"github.com/coregx/coregex"
)

// Sentinel errors for programmatic checking.
var (
	ErrUnsupportedLanguage   = errors.New("unsupported language")
	ErrInvalidConfiguration  = errors.New("invalid configuration")
	ErrConfigurationNotFound = errors.New("configuration not found")
)

// MalformedPatternError reports a template or constraint that cannot be
// compiled. It is raised before any search runs.
type MalformedPatternError struct {
	Message string
	Err     error // optional cause
}

func (e *MalformedPatternError) Error() string {
	return e.Message
}

func (e *MalformedPatternError) Unwrap() error {
	return e.Err
}

// MalformedPattern builds a MalformedPatternError from a format string.
func MalformedPattern(format string, args ...any) error {
	return &MalformedPatternError{Message: fmt.Sprintf(format, args...)}
}

// MalformedPatternCause is MalformedPattern with an underlying cause that
// errors.Is can see.
func MalformedPatternCause(cause error, format string, args ...any) error {
	return &MalformedPatternError{Message: fmt.Sprintf(format, args...), Err: cause}
}

// IsMalformedPattern reports whether err wraps a MalformedPatternError.
func IsMalformedPattern(err error) bool {
	var mp *MalformedPatternError
	return errors.As(err, &mp)
}

var configNameRe = coregex.MustCompile(`^[A-Za-z_][A-Za-z0-9_.-]*$`)

// ValidateName checks that a configuration name can be referenced from a
// predicate expression.
func ValidateName(name string) error {
	if !configNameRe.MatchString(name) {
		return fmt.Errorf("%w: name %q must match %s", ErrInvalidConfiguration, name, configNameRe.String())
	}
	return nil
}

// Validate checks the configuration fields that do not require compilation.
func (c Configuration) Validate() error {
	if err := ValidateName(c.Name); err != nil {
		return err
	}
	if c.Options.Pattern == "" {
		return fmt.Errorf("%w: %s has an empty pattern", ErrInvalidConfiguration, c.Name)
	}
	if c.Options.Language == "" {
		return fmt.Errorf("%w: %s has no language", ErrInvalidConfiguration, c.Name)
	}
	return nil
}
