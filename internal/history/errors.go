package history

import "codeberg.org/mutker/wthud/internal/errors"

const (
	ErrInvalidConfig = errors.ErrInvalidConfig
	ErrInvalidPath   = errors.ErrorCode("history_invalid_path")

	// Schema errors
	ErrSchemaInitFailed       = errors.ErrorCode("history_schema_init_failed")
	ErrSchemaValidationFailed = errors.ErrorCode("history_schema_validation_failed")
	ErrSchemaMigrationFailed  = errors.ErrorCode("history_schema_migration_failed")
	ErrTransactionFailed      = errors.ErrorCode("history_transaction_failed")

	// Storage errors
	ErrStorageInit   = errors.ErrInitFailed
	ErrStorageClose  = errors.ErrShutdownFailed
	ErrAppendFailed  = errors.ErrorCode("history_append_failed")
	ErrQueryFailed   = errors.ErrorCode("history_query_failed")
	ErrRecorderClose = errors.ErrorCode("history_recorder_closed")
)
