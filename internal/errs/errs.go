// Package errs defines the error taxonomy for the ledger core.
//
// Every error the core returns is a *LedgerError carrying a machine-readable
// Code. Callers branch on the code with errors.Is against the package-level
// sentinel helpers rather than matching message text.
package errs

import "fmt"

// Code is a machine-readable error identifier.
type Code string

// Validation errors. Surfaced to the caller, never retried internally.
const (
	AMOUNT_TOO_SMALL           Code = "AMOUNT_TOO_SMALL"
	AMOUNT_TOO_LARGE           Code = "AMOUNT_TOO_LARGE"
	CURRENCY_NOT_SUPPORTED     Code = "CURRENCY_NOT_SUPPORTED"
	NETWORK_NOT_SUPPORTED      Code = "NETWORK_NOT_SUPPORTED"
	NETWORK_PAIR_NOT_SUPPORTED Code = "NETWORK_PAIR_NOT_SUPPORTED"
	SAME_NETWORK               Code = "SAME_NETWORK"
	INSUFFICIENT_ALLOWANCE     Code = "INSUFFICIENT_ALLOWANCE"
	INVALID_AMOUNT             Code = "INVALID_AMOUNT"
	INVALID_ADDRESS            Code = "INVALID_ADDRESS"
	INVALID_TYPE               Code = "INVALID_TYPE"
)

// Authorization and state errors.
const (
	UNAUTHORIZED      Code = "UNAUTHORIZED"
	NOT_FOUND         Code = "NOT_FOUND"
	ALREADY_FINALIZED Code = "ALREADY_FINALIZED"
	INVALID_STATE     Code = "INVALID_STATE"
)

// Admin parameter errors.
const (
	LIMIT_EXCEEDED Code = "LIMIT_EXCEEDED"
	INVALID_RANGE  Code = "INVALID_RANGE"
)

// Infrastructure errors.
const (
	STORE_ERROR Code = "STORE_ERROR"
	EMIT_FAILED Code = "EMIT_FAILED"
	RPC_ERROR   Code = "RPC_ERROR"
)

// LedgerError is the base error type for all core errors.
type LedgerError struct {
	Code    Code
	Message string
	Cause   error
}

func (e *LedgerError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Cause != nil {
		msg += fmt.Sprintf(" (caused by: %v)", e.Cause)
	}
	return msg
}

// Unwrap returns the underlying cause, enabling error chain inspection.
func (e *LedgerError) Unwrap() error {
	return e.Cause
}

// Is matches any *LedgerError with the same code, so
// errors.Is(err, errs.New(errs.NOT_FOUND, "", nil)) works as expected.
func (e *LedgerError) Is(target error) bool {
	other, ok := target.(*LedgerError)
	if !ok {
		return false
	}
	return e.Code == other.Code
}

// New creates a LedgerError with the given code and message.
func New(code Code, message string, cause error) *LedgerError {
	return &LedgerError{Code: code, Message: message, Cause: cause}
}

// Newf creates a LedgerError with a formatted message.
func Newf(code Code, format string, args ...any) *LedgerError {
	return &LedgerError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// CodeOf extracts the Code from err, or "" if err is not a LedgerError.
func CodeOf(err error) Code {
	if err == nil {
		return ""
	}
	if le, ok := err.(*LedgerError); ok {
		return le.Code
	}
	return ""
}

// HasCode reports whether err is a LedgerError with the given code.
func HasCode(err error, code Code) bool {
	return CodeOf(err) == code
}
