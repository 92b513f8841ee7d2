// Package model holds the fixed 64→16→16→16→2 classifier, its parameters and
// the activation snapshot recorded by every forward pass.
package model

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// Engine evaluates the network and records the output of every layer.
//
// An Engine is not safe for concurrent use: Forward rewrites the snapshot that
// Snapshot reads. Callers serving overlapping requests either hold a lock
// across Forward and the subsequent render, or give each request its own
// Engine over the shared Params.
type Engine struct {
	params   *Params
	snapshot Snapshot
}

// NewEngine returns an engine over params.
func NewEngine(params *Params) (*Engine, error) {
	if params == nil {
		return nil, errors.New("engine requires parameters")
	}
	if !params.populated() {
		return nil, errors.New("engine requires parameters built by NewParams")
	}
	return &Engine{params: params}, nil
}

// Forward runs input through the network and returns the raw logits. The
// activations of every layer replace the previous snapshot.
func (e *Engine) Forward(input []float64) ([]float64, error) {
	if len(input) != InputSize {
		return nil, newShapeError("input", []int{InputSize}, []int{len(input)})
	}

	snap := make(Snapshot, NumLayers)
	x := mat.NewVecDense(InputSize, append([]float64(nil), input...))
	for i, layer := range e.params.layers {
		y := mat.NewVecDense(LayerSizes[i], nil)
		y.MulVec(layer.Weight, x)
		y.AddVec(y, layer.Bias)
		if i < NumLayers-1 {
			relu(y)
		}
		snap[LayerNames[i]] = mat.Col(nil, 0, y)
		x = y
	}
	e.snapshot = snap

	return mat.Col(nil, 0, x), nil
}

// Snapshot returns a copy of the activations captured by the last Forward.
func (e *Engine) Snapshot() (Snapshot, error) {
	if e.snapshot == nil {
		return nil, &StateError{Op: "snapshot"}
	}
	return e.snapshot.Clone(), nil
}

// Parameters returns the engine's parameter set. It must not be modified.
func (e *Engine) Parameters() *Params {
	return e.params
}

func relu(v *mat.VecDense) {
	for i := 0; i < v.Len(); i++ {
		if v.AtVec(i) < 0 {
			v.SetVec(i, 0)
		}
	}
}
