package overlay

import (
	"bytes"
	"image/color"

	"codeberg.org/mutker/wthud/internal/errors"
	"codeberg.org/mutker/wthud/internal/render"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/text/v2"
	"github.com/hajimehoshi/ebiten/v2/vector"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gomonobold"
)

// rasterizer paints render frames onto an ebiten surface. Key colored
// pixels come out fully transparent.
type rasterizer struct {
	sources map[render.Font]*text.GoTextFaceSource
}

func newRasterizer() (*rasterizer, error) {
	errFactory := errors.New()

	fonts := map[render.Font][]byte{
		render.FontDisplay: gobold.TTF,
		render.FontLabel:   gobold.TTF,
		render.FontMono:    gomonobold.TTF,
	}

	r := &rasterizer{sources: make(map[render.Font]*text.GoTextFaceSource, len(fonts))}
	for font, ttf := range fonts {
		src, err := text.NewGoTextFaceSource(bytes.NewReader(ttf))
		if err != nil {
			return nil, errFactory.Wrap(ErrFontLoad, err)
		}
		r.sources[font] = src
	}

	return r, nil
}

func (r *rasterizer) draw(dst *ebiten.Image, f *render.Frame) {
	if f == nil || f.Background == render.KeyColor {
		dst.Clear()
	} else {
		dst.Fill(f.Background)
	}
	if f == nil {
		return
	}

	for i := range f.Prims {
		p := &f.Prims[i]
		if p.Color == render.KeyColor {
			continue
		}

		switch p.Kind {
		case render.KindFill:
			vector.DrawFilledRect(dst, float32(p.X), float32(p.Y), float32(p.W), float32(p.H), p.Color, false)
		case render.KindStroke:
			vector.StrokeRect(dst, float32(p.X), float32(p.Y), float32(p.W), float32(p.H), float32(p.Width), p.Color, false)
		case render.KindLine:
			vector.StrokeLine(dst, float32(p.X), float32(p.Y), float32(p.X2), float32(p.Y2), float32(p.Width), p.Color, true)
		case render.KindText:
			r.text(dst, p)
		}
	}
}

func (r *rasterizer) text(dst *ebiten.Image, p *render.Primitive) {
	src, ok := r.sources[p.Font]
	if !ok || p.Size <= 0 {
		return
	}

	face := &text.GoTextFace{Source: src, Size: p.Size}

	opts := &text.DrawOptions{}
	opts.GeoM.Translate(p.X, p.Y)
	opts.ColorScale.ScaleWithColor(color.Color(p.Color))
	opts.PrimaryAlign = align(p.Anchor)
	opts.SecondaryAlign = text.AlignCenter

	text.Draw(dst, p.Text, face, opts)
}

func align(a render.Anchor) text.Align {
	switch a {
	case render.AnchorWest:
		return text.AlignStart
	case render.AnchorEast:
		return text.AlignEnd
	default:
		return text.AlignCenter
	}
}
