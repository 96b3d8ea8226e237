package errors

import (
	"net/http"
)

type ErrorType string

const (
	ErrorTypeNotFound   ErrorType = "NOT_FOUND"
	ErrorTypeValidation ErrorType = "VALIDATION"
	ErrorTypeInternal   ErrorType = "INTERNAL"
	ErrorTypeEncoding   ErrorType = "ENCODING"
	ErrorTypeDecoding   ErrorType = "DECODING"
)

// Sentinels for errors.Is. Matching is by Type only.
var (
	ErrNotFound   = &Error{Type: ErrorTypeNotFound}
	ErrValidation = &Error{Type: ErrorTypeValidation}
	ErrInternal   = &Error{Type: ErrorTypeInternal}
	ErrEncoding   = &Error{Type: ErrorTypeEncoding}
	ErrDecoding   = &Error{Type: ErrorTypeDecoding}
)

type Error struct {
	Type    ErrorType `json:"type"`
	Message string    `json:"message"`
	Code    int       `json:"code"`
	Details any       `json:"details,omitempty"`
	Err     error     `json:"-"`
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Type == e.Type
}

func NotFound(message string) *Error {
	return &Error{
		Type:    ErrorTypeNotFound,
		Message: message,
		Code:    http.StatusNotFound,
	}
}

func ValidationError(message string, details any) *Error {
	return &Error{
		Type:    ErrorTypeValidation,
		Message: message,
		Code:    http.StatusBadRequest,
		Details: details,
	}
}

func Internal(message string, err error) *Error {
	return &Error{
		Type:    ErrorTypeInternal,
		Message: message,
		Code:    http.StatusInternalServerError,
		Err:     err,
	}
}

// EncodingError reports an intention that could not be serialized.
func EncodingError(err error) *Error {
	return &Error{
		Type:    ErrorTypeEncoding,
		Message: "encoding intention",
		Code:    http.StatusInternalServerError,
		Err:     err,
	}
}

// DecodingError reports a token that does not decode to an intention.
func DecodingError(reason string, err error) *Error {
	return &Error{
		Type:    ErrorTypeDecoding,
		Message: "invalid token: " + reason,
		Code:    http.StatusBadRequest,
		Err:     err,
	}
}

// As returns the *Error in err's chain, or an internal error wrapping err.
func As(err error) *Error {
	for e := err; e != nil; {
		if ae, ok := e.(*Error); ok {
			return ae
		}
		u, ok := e.(interface{ Unwrap() error })
		if !ok {
			break
		}
		e = u.Unwrap()
	}
	return Internal("internal error", err)
}
