package errors

import "strings"

// BaseError collects several ErrorDetails, e.g. every invalid setting found
// while validating a config, so the caller sees them all at once.
type BaseError struct {
	details []*ErrorDetails
}

func NewBaseError(details ...*ErrorDetails) *BaseError {
	return &BaseError{details: details}
}

func (b *BaseError) AddErrorDetails(details ...*ErrorDetails) {
	b.details = append(b.details, details...)
}

func (b *BaseError) GetDetails() []*ErrorDetails {
	return b.details
}

func (b *BaseError) HasDetails() bool {
	return len(b.details) > 0
}

// Error renders one "field: message (code)" entry per line.
func (b *BaseError) Error() string {
	var sb strings.Builder
	for i, d := range b.details {
		if i > 0 {
			sb.WriteByte('\n')
		}
		if d.Field != "" {
			sb.WriteString(d.Field)
			sb.WriteString(": ")
		}
		sb.WriteString(d.Message)
		sb.WriteString(" (")
		sb.WriteString(d.Code)
		sb.WriteByte(')')
	}
	return sb.String()
}

// Unwrap exposes the details to errors.As, which makes ErrorCodeEquals
// match a BaseError holding the code.
func (b *BaseError) Unwrap() []error {
	errs := make([]error, len(b.details))
	for i, d := range b.details {
		errs[i] = d
	}
	return errs
}

func (b *BaseError) IsAnyCodeEqual(code string) bool {
	for _, d := range b.details {
		if d.Code == code {
			return true
		}
	}
	return false
}
