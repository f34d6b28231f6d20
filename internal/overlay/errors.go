package overlay

import "codeberg.org/mutker/wthud/internal/errors"

const (
	ErrFontLoad     = errors.ErrorCode("overlay_font_load")
	ErrWindowRun    = errors.ErrorCode("overlay_window_run")
	ErrBorderStrip  = errors.ErrorCode("overlay_border_strip")
	ErrInvalidScale = errors.ErrorCode("overlay_invalid_scale")
)
