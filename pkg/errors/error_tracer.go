package errors

import "github.com/pkg/errors"

// ErrorTracer prefixes a cause with where it happened and pins a stack
// trace to it. Tracer messages are snake_case event names such as
// "window_save_error" so logs can be grepped by them.
type ErrorTracer struct {
	Message string
	Err     error
}

func NewTracer(message string) *ErrorTracer {
	return &ErrorTracer{Message: message}
}

// TracerFromError lets a bare error be logged through logger.Error with a stack attached.
func TracerFromError(err error) *ErrorTracer {
	return NewTracer(err.Error()).Wrap(err)
}

// StackTracer is implemented by errors created through github.com/pkg/errors.
type StackTracer interface {
	StackTrace() errors.StackTrace
}

// Wrap records err as the cause. A stack is captured here unless err already carries one.
func (e *ErrorTracer) Wrap(err error) *ErrorTracer {
	if _, ok := err.(StackTracer); ok {
		e.Err = err
	} else {
		e.Err = errors.WithStack(err)
	}
	return e
}

func (e *ErrorTracer) Error() string {
	if e.Err == nil {
		return e.Message
	}
	cause := e.Err.Error()
	if cause == e.Message {
		return e.Message
	}
	return e.Message + ": " + cause
}

func (e *ErrorTracer) Unwrap() error {
	return e.Err
}

func (e *ErrorTracer) StackTrace() errors.StackTrace {
	if st, ok := e.Err.(StackTracer); ok {
		return st.StackTrace()
	}
	return nil
}
