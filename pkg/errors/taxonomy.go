package errors

// NewTransportError reports an unreachable feed or a dropped connection.
func NewTransportError(message, field string) *ErrorDetails {
	return NewErrorDetails(message, string(FeedTransportError), field)
}

// NewHandshakeError reports a failed subscription handshake. It belongs to the transport class.
func NewHandshakeError(message, field string) *ErrorDetails {
	return NewErrorDetails(message, string(FeedHandshakeError), field)
}

// NewDecodeError reports a payload that could not be decoded.
func NewDecodeError(message, field string) *ErrorDetails {
	return NewErrorDetails(message, string(FeedDecodeError), field)
}

// NewSchemaError reports a decodable payload missing expected fields.
func NewSchemaError(message, field string) *ErrorDetails {
	return NewErrorDetails(message, string(FeedSchemaError), field)
}

// NewPublishError reports a write the downstream log did not accept.
func NewPublishError(message, field string) *ErrorDetails {
	return NewErrorDetails(message, string(PublishError), field)
}

// NewLateDataError reports a trade for a window that is already closed.
func NewLateDataError(message, field string, object interface{}) *ErrorDetails {
	return NewErrorDetailsWithObject(message, string(LateDataError), field, object)
}

// IsTransportError reports whether err is a transport or handshake failure.
func IsTransportError(err error) bool {
	return ErrorCodeEquals(err, string(FeedTransportError)) || ErrorCodeEquals(err, string(FeedHandshakeError))
}

// IsDecodeError reports whether err is a decode failure.
func IsDecodeError(err error) bool {
	return ErrorCodeEquals(err, string(FeedDecodeError))
}

// IsSchemaError reports whether err is a schema failure.
func IsSchemaError(err error) bool {
	return ErrorCodeEquals(err, string(FeedSchemaError))
}

// IsPublishError reports whether err is a publish failure.
func IsPublishError(err error) bool {
	return ErrorCodeEquals(err, string(PublishError))
}

// IsLateDataError reports whether err is a late trade rejection.
func IsLateDataError(err error) bool {
	return ErrorCodeEquals(err, string(LateDataError))
}
