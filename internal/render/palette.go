package render

import "image/color"

func hex(v uint32) color.RGBA {
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xff}
}

var (
	colorWhite   = hex(0xffffff)
	colorUnit    = hex(0xaaaaaa)
	colorOutline = hex(0x444444)
	colorBrake   = hex(0xff0000)
	colorCruise  = hex(0xe60012)
	colorBest    = hex(0x00ffff)
	colorIdle    = hex(0x888888)
	colorRecord  = hex(0xffd700)
	colorSaved   = hex(0x55ff55)
)
