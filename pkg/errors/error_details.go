package errors

import stderrors "errors"

// ErrorDetails is a leaf error carrying a code.
type ErrorDetails struct {
	Message string
	// Code is one of the ErrorCode values.
	Code string
	// Field names what failed: a config variable, a JSON field, a redis key.
	Field string
	// Object optionally holds the offending value, e.g. the late trade.
	Object any
}

func NewErrorDetails(message, code, field string) *ErrorDetails {
	return &ErrorDetails{Message: message, Code: code, Field: field}
}

func NewErrorDetailsWithObject(message, code, field string, object any) *ErrorDetails {
	d := NewErrorDetails(message, code, field)
	d.Object = object
	return d
}

func (e *ErrorDetails) Error() string {
	return e.Message
}

// ErrorCodeEquals reports whether any ErrorDetails in err's tree has code.
func ErrorCodeEquals(err error, code string) bool {
	return code != "" && anyCode(err, code)
}

// CodeOf returns the code of the first ErrorDetails found in err's tree.
func CodeOf(err error) string {
	var d *ErrorDetails
	if stderrors.As(err, &d) {
		return d.Code
	}
	return ""
}

func anyCode(err error, code string) bool {
	switch e := err.(type) {
	case nil:
		return false
	case *ErrorDetails:
		return e.Code == code
	case interface{ Unwrap() []error }:
		for _, inner := range e.Unwrap() {
			if anyCode(inner, code) {
				return true
			}
		}
		return false
	case interface{ Unwrap() error }:
		return anyCode(e.Unwrap(), code)
	}
	return false
}
