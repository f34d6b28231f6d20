//go:build windows

package overlay

import (
	"syscall"

	"codeberg.org/mutker/wthud/internal/errors"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/lxn/win"
)

// stripBorder removes the caption and sizing frame from the realized window
// while keeping it a regular top-level window, so capture tools still list it
// under its title.
func stripBorder(title string) error {
	errFactory := errors.New()

	titlePtr, err := syscall.UTF16PtrFromString(title)
	if err != nil {
		return errFactory.Wrap(ErrBorderStrip, err)
	}

	hwnd := win.FindWindow(nil, titlePtr)
	if hwnd == 0 {
		// Fall back to the portable path.
		ebiten.SetWindowDecorated(false)
		return errFactory.WithData(ErrBorderStrip, "window not found: "+title)
	}

	style := win.GetWindowLongPtr(hwnd, win.GWL_STYLE)
	style &^= win.WS_CAPTION | win.WS_THICKFRAME
	win.SetWindowLongPtr(hwnd, win.GWL_STYLE, style)

	win.SetWindowPos(hwnd, 0, 0, 0, 0, 0,
		win.SWP_NOMOVE|win.SWP_NOSIZE|win.SWP_NOZORDER|win.SWP_FRAMECHANGED)

	return nil
}
