package errors

import (
	"errors"
	"fmt"
)

// Code is a stable, machine-readable error type.
type Code int

const (
	CodeInternal           Code = 1
	CodeUsage              Code = 2
	CodeAuth               Code = 10
	CodeRateLimited        Code = 11
	CodeUnavailable        Code = 12
	CodeUnsupported        Code = 13
	CodeListingUnavailable Code = 20
	CodeLedgerUnavailable  Code = 21
	CodeInvalidUserInput   Code = 22
)

func (c Code) String() string {
	switch c {
	case CodeInternal:
		return "internal"
	case CodeUsage:
		return "usage"
	case CodeAuth:
		return "auth"
	case CodeRateLimited:
		return "rate_limited"
	case CodeUnavailable:
		return "unavailable"
	case CodeUnsupported:
		return "unsupported"
	case CodeListingUnavailable:
		return "listing_unavailable"
	case CodeLedgerUnavailable:
		return "ledger_unavailable"
	case CodeInvalidUserInput:
		return "invalid_user_input"
	default:
		return fmt.Sprintf("code(%d)", int(c))
	}
}

// Error is a typed error that carries a stable error code.
type Error struct {
	Code    Code
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Cause)
}

func (e *Error) Unwrap() error { return e.Cause }

func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

func Wrap(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

func As(err error) (*Error, bool) {
	var target *Error
	if errors.As(err, &target) {
		return target, true
	}
	return nil, false
}

// Is reports whether any typed error in err's chain carries code.
func Is(err error, code Code) bool {
	for err != nil {
		typed, ok := As(err)
		if !ok {
			return false
		}
		if typed.Code == code {
			return true
		}
		err = typed.Cause
	}
	return false
}
