package app

import "codeberg.org/mutker/wthud/internal/errors"

const (
	ErrInitApp        = errors.ErrInitApp
	ErrRenderLoop     = errors.ErrRenderLoop
	ErrLaunchChild    = errors.ErrLaunchChild
	ErrShutdown       = errors.ErrShutdownFailed
	ErrUnknownOverlay = errors.ErrorCode("app_unknown_overlay")
)
