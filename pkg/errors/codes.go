package errors

// ErrorCode classifies a failure. Callers branch on codes, never on messages.
type ErrorCode string

// Feed and pipeline failures.
const (
	// FeedTransportError: the feed is unreachable or the connection dropped.
	FeedTransportError ErrorCode = "feed_transport_error"
	// FeedHandshakeError: the subscription ack is missing, garbled or negative.
	FeedHandshakeError ErrorCode = "feed_handshake_error"
	// FeedDecodeError: the payload is not valid JSON.
	FeedDecodeError ErrorCode = "feed_decode_error"
	// FeedSchemaError: valid JSON without the expected trade fields.
	FeedSchemaError ErrorCode = "feed_schema_error"

	// PublishError: the downstream log rejected a write.
	PublishError ErrorCode = "publish_error"
	// LateDataError: the trade maps to a window that already closed.
	LateDataError ErrorCode = "late_data_error"
)

// Configuration and storage failures.
const (
	ConfigValidationError  ErrorCode = "config_validation_error"
	GeneralRepositoryError ErrorCode = "general_repository_error"
	MigrationError         ErrorCode = "migration_error"

	RedisConfigError        ErrorCode = "redis_config_error"
	RedisConnectionError    ErrorCode = "redis_connection_error"
	RedisDisconnectionError ErrorCode = "redis_disconnection_error"
	RedisPingError          ErrorCode = "redis_pinging_error"
	RedisExpireError        ErrorCode = "redis_expire_error"
	RedisHGetAllError       ErrorCode = "redis_hgetall_error"
	RedisHSetError          ErrorCode = "redis_hset_error"
	RedisHDelError          ErrorCode = "redis_hdel_error"
)
