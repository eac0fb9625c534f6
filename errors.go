package marketfall

import "fmt"

// Error is a coded error with an optional cause. Codes identify failure
// classes; errors.Is matches by code so call sites can branch on the class
// while the cause keeps the underlying detail.
type Error struct {
	Code    string
	Message string
	Cause   error

	// HTTPStatus is set only on upstream-status errors.
	HTTPStatus int
}

// Error implements the error interface.
func (e *Error) Error() string {
	switch {
	case e.HTTPStatus != 0 && e.Cause != nil:
		return fmt.Sprintf("[%s] %s (status %d): %v", e.Code, e.Message, e.HTTPStatus, e.Cause)
	case e.HTTPStatus != 0:
		return fmt.Sprintf("[%s] %s (status %d)", e.Code, e.Message, e.HTTPStatus)
	case e.Cause != nil:
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is implements errors.Is matching by code.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// WrapError creates a new error with the same code but with a cause.
func WrapError(base *Error, cause error) *Error {
	return &Error{
		Code:       base.Code,
		Message:    base.Message,
		Cause:      cause,
		HTTPStatus: base.HTTPStatus,
	}
}

// UpstreamStatus builds an upstream-status error carrying the HTTP code.
func UpstreamStatus(status int) *Error {
	return &Error{
		Code:       ErrUpstreamStatus.Code,
		Message:    ErrUpstreamStatus.Message,
		HTTPStatus: status,
	}
}

// Predefined errors
var (
	// Provider errors
	ErrNetwork         = &Error{Code: "NETWORK", Message: "network request failed"}
	ErrUpstreamStatus  = &Error{Code: "UPSTREAM_STATUS", Message: "unexpected upstream status"}
	ErrDecode          = &Error{Code: "DECODE", Message: "malformed upstream payload"}
	ErrEmptyResult     = &Error{Code: "EMPTY_RESULT", Message: "upstream returned zero records"}
	ErrUnsupportedCoin = &Error{Code: "UNSUPPORTED_COIN", Message: "coin not supported by provider"}

	// Race / engine errors
	ErrAllProvidersFailed = &Error{Code: "ALL_PROVIDERS_FAILED", Message: "every provider failed"}
	ErrInvalidQuery       = &Error{Code: "INVALID_QUERY", Message: "query invalid"}
	ErrSuperseded         = &Error{Code: "SUPERSEDED", Message: "query superseded by a newer request"}
	ErrNoData             = &Error{Code: "NO_DATA", Message: "no data available"}

	// Signed client errors
	ErrInvalidURL       = &Error{Code: "INVALID_URL", Message: "request URL invalid"}
	ErrCredentials      = &Error{Code: "CREDENTIALS", Message: "credentials missing or unusable"}
	ErrRetriesExhausted = &Error{Code: "RETRIES_EXHAUSTED", Message: "retry budget exhausted"}

	// Config errors
	ErrConfigInvalid = &Error{Code: "CONFIG_INVALID", Message: "configuration invalid"}
	ErrConfigMissing = &Error{Code: "CONFIG_MISSING", Message: "required configuration missing"}
)
