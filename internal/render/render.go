// Package render draws the network's weights and most recent activations as a
// PNG diagram.
package render

import (
	"bytes"
	"encoding/base64"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	colorful "github.com/lucasb-eyer/go-colorful"
	"github.com/pkg/errors"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/Brownie44l1/mlp-viz/internal/model"
)

// Canvas geometry: an 8x5 inch figure at 100 dpi.
const (
	Width  = 800
	Height = 500
	dpi    = 100

	marginX     = 10
	marginRight = 50 // room for the class captions
	marginY     = 10
)

var regular *truetype.Font

func init() {
	var err error
	regular, err = truetype.Parse(goregular.TTF)
	if err != nil {
		panic(err)
	}
}

// Source is anything that exposes a parameter set and a snapshot of its last
// forward pass. Both model engines satisfy it.
type Source interface {
	Snapshot() (model.Snapshot, error)
	Parameters() *model.Params
}

// Renderer rasterizes diagrams. It holds no per-render state and is safe for
// concurrent use.
type Renderer struct {
	font *truetype.Font
}

// New returns a renderer using the Go regular font.
func New() *Renderer {
	return &Renderer{font: regular}
}

// Render draws src's weights and current snapshot and returns PNG bytes. It
// fails with the source's *model.StateError when nothing has been evaluated.
func (r *Renderer) Render(src Source) ([]byte, error) {
	snap, err := src.Snapshot()
	if err != nil {
		return nil, errors.Wrap(err, "cannot render diagram")
	}
	dc := r.Draw(Build(src.Parameters(), snap))

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, errors.Wrap(err, "failed to encode diagram")
	}
	return buf.Bytes(), nil
}

// RenderBase64 is Render with the PNG encoded as standard base64 text.
func (r *Renderer) RenderBase64(src Source) (string, error) {
	png, err := r.Render(src)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(png), nil
}

// Draw paints d onto a fresh white canvas, edges below nodes.
func (r *Renderer) Draw(d *Diagram) *gg.Context {
	dc := gg.NewContext(Width, Height)
	dc.SetRGB(1, 1, 1)
	dc.Clear()

	for _, e := range d.Edges {
		if e.Width <= 0 {
			continue
		}
		x1, y1 := toPixel(e.From)
		x2, y2 := toPixel(e.To)
		dc.SetRGBA(0, 0, 0, e.Alpha)
		dc.SetLineWidth(points(e.Width))
		dc.DrawLine(x1, y1, x2, y2)
		dc.Stroke()
	}

	faces := make(map[float64]font.Face)
	face := func(size float64) font.Face {
		f, ok := faces[size]
		if !ok {
			f = truetype.NewFace(r.font, &truetype.Options{Size: size, DPI: dpi})
			faces[size] = f
		}
		return f
	}

	for _, n := range d.Nodes {
		x, y := toPixel(n.Pos)
		s := points(n.Size)
		switch n.Shape {
		case Square:
			dc.DrawRectangle(x-s/2, y-s/2, s, s)
		default:
			dc.DrawCircle(x, y, s/2)
		}
		dc.SetColor(gray(n.Fill))
		dc.FillPreserve()
		dc.SetRGB(0, 0, 0)
		dc.SetLineWidth(points(1))
		dc.Stroke()

		dc.SetFontFace(face(n.FontSize))
		dc.DrawStringAnchored(n.Text, x, y, 0.5, 0.5)
		if n.Caption != "" {
			cx, cy := toPixel(Point{n.Pos.X + 0.1, n.Pos.Y})
			dc.SetFontFace(face(labelFontSize))
			dc.DrawStringAnchored(n.Caption, cx, cy, 0, 0.5)
		}
	}
	return dc
}

// toPixel maps plot space onto the canvas inside the margin.
func toPixel(p Point) (float64, float64) {
	x := marginX + p.X/plotWidth*(Width-marginX-marginRight)
	y := marginY + p.Y/plotHeight*(Height-2*marginY)
	return x, y
}

func points(pt float64) float64 {
	return pt * dpi / 72
}

func gray(level float64) colorful.Color {
	return colorful.Color{R: level, G: level, B: level}.Clamped()
}
