//go:build !windows

package overlay

import "github.com/hajimehoshi/ebiten/v2"

func stripBorder(_ string) error {
	ebiten.SetWindowDecorated(false)
	return nil
}
