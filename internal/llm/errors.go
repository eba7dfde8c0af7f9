package llm

import "errors"

// ErrorKind is the LLMError taxonomy from spec.md:142 — every failure a
// provider client can produce collapses into one of these, so callers branch
// on Kind rather than string-matching Message.
type ErrorKind string

const (
	KindNoJSON       ErrorKind = "NO_JSON"
	KindRateLimited  ErrorKind = "RATE_LIMITED"
	KindTimeout      ErrorKind = "TIMEOUT"
	KindAuth         ErrorKind = "AUTH"
	KindTransport    ErrorKind = "TRANSPORT"
	KindServer       ErrorKind = "SERVER"
	KindContentFilter ErrorKind = "CONTENT_FILTER"
)

// Error is the sum-typed error every provider wraps its failures in, so the
// Gateway's retry loop can decide retryability without string-matching
// (spec §7: every layer owns a typed error, never a bare fmt.Errorf at the
// boundary a caller must branch on).
type Error struct {
	Kind      ErrorKind
	Provider  string
	Message   string
	Retryable bool
	Cause     error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return e.Provider + ": " + string(e.Kind) + ": " + e.Message + ": " + e.Cause.Error()
	}
	return e.Provider + ": " + string(e.Kind) + ": " + e.Message
}

func (e *Error) Unwrap() error { return e.Cause }

func asGatewayError(err error, target **Error) bool {
	return errors.As(err, target)
}
