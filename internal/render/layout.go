package render

import (
	"fmt"
	"math"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/mat"

	"github.com/Brownie44l1/mlp-viz/internal/model"
)

// Plot space. y grows downwards, matching image coordinates.
const (
	plotWidth  = 4.0
	plotHeight = 5.0
)

// Marker and font sizes, in points.
const (
	hiddenMarkerSize = 20
	squareMarkerSize = 22
	labelFontSize    = 8
)

var hiddenFontSizes = map[string]float64{
	model.Hidden1: 5,
	model.Hidden2: 5,
	model.Hidden3: 6,
}

var (
	inputPos   = Point{0.2, 2.5}
	outputPos  = [...]Point{{3.8, 1.45}, {3.8, 3.55}}
	columnXPos = map[string]float64{
		model.Hidden1: 1,
		model.Hidden2: 2,
		model.Hidden3: 3,
	}
)

// Point is a position in plot space.
type Point struct {
	X, Y float64
}

// Shape is a node marker shape.
type Shape int

// Marker shapes.
const (
	Circle Shape = iota
	Square
)

// Node is one drawn neuron.
type Node struct {
	Layer    string
	Index    int
	Pos      Point
	Shape    Shape
	Size     float64
	Fill     float64 // gray level, 0 is black and 1 is white
	Text     string
	FontSize float64
	Caption  string // drawn to the right of the marker
}

// Edge is one drawn connection.
type Edge struct {
	From, To Point
	Width    float64 // points
	Alpha    float64
}

// Diagram is the full visual content of one rendering.
type Diagram struct {
	Edges []Edge
	Nodes []Node
}

// Build lays out the network for params and the activations in snap. The
// result depends only on its arguments.
//
// Build panics if snap does not have the fixed layer sizes; engines always
// produce them, so a mismatch is a programming error.
func Build(params *model.Params, snap model.Snapshot) *Diagram {
	for _, name := range model.LayerNames {
		if got, want := len(snap[name]), model.LayerSize(name); got != want {
			panic(fmt.Sprintf("render: layer %s has %d activations, layout expects %d", name, got, want))
		}
	}

	d := &Diagram{}
	hidden := []string{model.Hidden1, model.Hidden2, model.Hidden3}

	// Input→hidden1: the 64 inputs are collapsed into one node, so each edge
	// shows the mean magnitude of the weights into that hidden unit.
	w1 := params.Weight(0)
	for j, to := range columnCoords(model.Hidden1) {
		d.Edges = append(d.Edges, newEdge(inputPos, to, meanAbs(mat.Row(nil, j, w1))))
	}
	for l := 1; l < model.NumLayers; l++ {
		w := params.Weight(l)
		from := nodeCoords(model.LayerNames[l-1])
		for j, to := range nodeCoords(model.LayerNames[l]) {
			for i, src := range from {
				d.Edges = append(d.Edges, newEdge(src, to, math.Abs(w.At(j, i))))
			}
		}
	}

	d.Nodes = append(d.Nodes, Node{
		Layer:    "input",
		Pos:      inputPos,
		Shape:    Square,
		Size:     squareMarkerSize,
		Fill:     1,
		Text:     "Input",
		FontSize: labelFontSize,
	})
	for _, name := range hidden {
		acts := snap[name]
		norm := normalize(acts)
		for i, pos := range columnCoords(name) {
			d.Nodes = append(d.Nodes, Node{
				Layer:    name,
				Index:    i,
				Pos:      pos,
				Shape:    Circle,
				Size:     hiddenMarkerSize,
				Fill:     1 - norm[i]/1.5,
				Text:     formatValue(acts[i]),
				FontSize: hiddenFontSizes[name],
			})
		}
	}
	out := snap[model.Output]
	norm := normalize(out)
	for i, pos := range outputPos {
		d.Nodes = append(d.Nodes, Node{
			Layer:    model.Output,
			Index:    i,
			Pos:      pos,
			Shape:    Square,
			Size:     squareMarkerSize,
			Fill:     1 - norm[i]/2,
			Text:     formatValue(out[i]),
			FontSize: labelFontSize,
			Caption:  model.ClassName(i),
		})
	}
	return d
}

// columnCoords spreads a hidden column over the band starting at y=0.3.
func columnCoords(name string) []Point {
	x := columnXPos[name]
	pts := make([]Point, model.LayerSize(name))
	for i := range pts {
		pts[i] = Point{x, 0.3 + 3.2*(float64(i)/11.0)}
	}
	return pts
}

func nodeCoords(name string) []Point {
	if name == model.Output {
		return outputPos[:]
	}
	return columnCoords(name)
}

// edgeStyle maps a weight magnitude to a stroke width in points and an
// opacity capped at 1.
func edgeStyle(mag float64) (width, alpha float64) {
	return mag * 5, math.Min(0.3+mag/2, 1)
}

func newEdge(from, to Point, mag float64) Edge {
	width, alpha := edgeStyle(mag)
	return Edge{From: from, To: to, Width: width, Alpha: alpha}
}

func meanAbs(row []float64) float64 {
	abs := make(stats.Float64Data, len(row))
	for i, v := range row {
		abs[i] = math.Abs(v)
	}
	m, err := abs.Mean()
	if err != nil {
		return 0
	}
	return m
}

// normalize scales acts into [0,1] using the layer's own min and max. A flat
// layer maps to the midpoint.
func normalize(acts []float64) []float64 {
	data := stats.Float64Data(acts)
	lo, errLo := data.Min()
	hi, errHi := data.Max()
	out := make([]float64, len(acts))
	if errLo != nil || errHi != nil || hi == lo {
		for i := range out {
			out[i] = 0.5
		}
		return out
	}
	for i, v := range acts {
		out[i] = (v - lo) / (hi - lo)
	}
	return out
}

func formatValue(v float64) string {
	return fmt.Sprintf("%.2f", v)
}
