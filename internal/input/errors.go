package input

import "codeberg.org/mutker/wthud/internal/errors"

const (
	ErrNoDevice    = errors.ErrorCode("input_no_device")
	ErrDeviceRead  = errors.ErrorCode("input_device_read")
	ErrHookRunning = errors.ErrorCode("input_hook_running")
	ErrUnknownKey  = errors.ErrorCode("input_unknown_key")
)
