package render

import "image/color"

// KeyColor is the chroma key: pixels of exactly this color are transparent
// on screen. Visible content never uses it.
var KeyColor = color.RGBA{R: 0x00, G: 0x00, B: 0x01, A: 0xff}

type Kind int

const (
	KindFill Kind = iota
	KindStroke
	KindLine
	KindText
)

// Anchor is the horizontal text anchor; text is always centered vertically
// on its Y coordinate.
type Anchor int

const (
	AnchorCenter Anchor = iota
	AnchorWest
	AnchorEast
)

type Font int

const (
	FontDisplay Font = iota
	FontLabel
	FontMono
)

// Primitive is one drawing operation in window pixels.
type Primitive struct {
	Kind  Kind
	Color color.RGBA

	// Rectangles use X,Y,W,H; lines run from X,Y to X2,Y2.
	X, Y, W, H float64
	X2, Y2     float64
	Width      float64

	Text   string
	Font   Font
	Size   float64
	Anchor Anchor
}

// Frame is a complete, self-contained picture of one overlay. Drawing a frame
// first fills the surface with Background and then paints Prims in order.
type Frame struct {
	Width, Height int
	Background    color.RGBA
	Prims         []Primitive
}

func newFrame(w, h int) *Frame {
	return &Frame{
		Width:      w,
		Height:     h,
		Background: KeyColor,
		Prims:      make([]Primitive, 0, 96),
	}
}

func (f *Frame) fill(x, y, w, h float64, c color.RGBA) {
	f.Prims = append(f.Prims, Primitive{Kind: KindFill, X: x, Y: y, W: w, H: h, Color: c})
}

func (f *Frame) stroke(x, y, w, h, width float64, c color.RGBA) {
	f.Prims = append(f.Prims, Primitive{Kind: KindStroke, X: x, Y: y, W: w, H: h, Width: width, Color: c})
}

func (f *Frame) line(x1, y1, x2, y2, width float64, c color.RGBA) {
	f.Prims = append(f.Prims, Primitive{Kind: KindLine, X: x1, Y: y1, X2: x2, Y2: y2, Width: width, Color: c})
}

func (f *Frame) text(x, y float64, s string, font Font, size float64, anchor Anchor, c color.RGBA) {
	f.Prims = append(f.Prims, Primitive{
		Kind:   KindText,
		X:      x,
		Y:      y,
		Text:   s,
		Font:   font,
		Size:   size,
		Anchor: anchor,
		Color:  c,
	})
}

// Texts returns the strings drawn in the frame, in paint order.
func (f *Frame) Texts() []string {
	var out []string
	for _, p := range f.Prims {
		if p.Kind == KindText {
			out = append(out, p.Text)
		}
	}
	return out
}

// FindText returns the first text primitive with the given content.
func (f *Frame) FindText(s string) (Primitive, bool) {
	for _, p := range f.Prims {
		if p.Kind == KindText && p.Text == s {
			return p, true
		}
	}
	return Primitive{}, false
}
