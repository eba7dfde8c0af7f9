package config

import "fmt"

// ErrorKind enumerates the Config error taxonomy from spec §4.1.
type ErrorKind int

const (
	ErrInvalidSpec ErrorKind = iota
	ErrUnknownSourceType
	ErrMissingField
	ErrInvalidName
	ErrUnresolvedEnvVar
)

func (k ErrorKind) String() string {
	switch k {
	case ErrInvalidSpec:
		return "INVALID_SPEC"
	case ErrUnknownSourceType:
		return "UNKNOWN_SOURCE_TYPE"
	case ErrMissingField:
		return "MISSING_FIELD"
	case ErrInvalidName:
		return "INVALID_NAME"
	case ErrUnresolvedEnvVar:
		return "UNRESOLVED_ENV_VAR"
	default:
		return "UNKNOWN"
	}
}

// ConfigError is the sum-typed error returned by Load and
// ValidateComprehensive, carrying enough structure for the CLI to render a
// path-qualified diagnostic without string-sniffing.
type ConfigError struct {
	Kind    ErrorKind
	Path    string
	Message string
}

func (e *ConfigError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("config: %s at %s: %s", e.Kind, e.Path, e.Message)
	}
	return fmt.Sprintf("config: %s: %s", e.Kind, e.Message)
}

// Is supports errors.Is comparison against a ConfigError with only Kind set,
// matching the REDESIGN note's sum-typed-result convention.
func (e *ConfigError) Is(target error) bool {
	t, ok := target.(*ConfigError)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}
