package telemetry

import "codeberg.org/mutker/wthud/internal/errors"

const (
	ErrInvalidConfig = errors.ErrorCode("telemetry_invalid_config")
	ErrRequestFailed = errors.ErrorCode("telemetry_request_failed")
	ErrBadStatus     = errors.ErrorCode("telemetry_bad_status")
	ErrDecodeFailed  = errors.ErrorCode("telemetry_decode_failed")
	ErrTimeout       = errors.ErrorCode("telemetry_timeout")
)
