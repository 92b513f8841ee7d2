package model

import (
	"strconv"

	"gonum.org/v1/gonum/mat"
)

// Linear is one fully-connected transform. Weight is out×in so the layer
// computes Weight·x + Bias.
type Linear struct {
	Weight *mat.Dense
	Bias   *mat.VecDense
}

// NewLinear builds a Linear from row-major weights (one row per output unit)
// and a bias vector.
func NewLinear(weight [][]float64, bias []float64) (Linear, error) {
	if len(weight) == 0 || len(weight[0]) == 0 {
		got := []int{len(weight)}
		if len(weight) > 0 {
			got = append(got, 0)
		}
		return Linear{}, newShapeError("weight", nil, got)
	}
	cols := len(weight[0])
	data := make([]float64, 0, len(weight)*cols)
	for r, row := range weight {
		if len(row) != cols {
			return Linear{}, newShapeError("weight row "+strconv.Itoa(r), []int{cols}, []int{len(row)})
		}
		data = append(data, row...)
	}
	if len(bias) == 0 {
		return Linear{}, newShapeError("bias", []int{len(weight)}, []int{0})
	}
	return Linear{
		Weight: mat.NewDense(len(weight), cols, data),
		Bias:   mat.NewVecDense(len(bias), append([]float64(nil), bias...)),
	}, nil
}

// Params is the trained parameter set of the four linear layers. It is
// immutable after construction and safe to share between engines. Only
// NewParams, LoadParams and ParseParams produce a usable Params.
type Params struct {
	layers [NumLayers]Linear
}

// NewParams validates the given layers against the fixed topology and copies
// them into a new parameter set.
func NewParams(layers ...Linear) (*Params, error) {
	if len(layers) != NumLayers {
		return nil, newShapeError("layer count", []int{NumLayers}, []int{len(layers)})
	}
	var p Params
	for i, l := range layers {
		want := []int{LayerSizes[i], layerInputSize(i)}
		if l.Weight == nil {
			return nil, newShapeError(LayerNames[i]+" weight", want, nil)
		}
		if l.Bias == nil {
			return nil, newShapeError(LayerNames[i]+" bias", []int{LayerSizes[i]}, nil)
		}
		r, c := l.Weight.Dims()
		if r != want[0] || c != want[1] {
			return nil, newShapeError(LayerNames[i]+" weight", want, []int{r, c})
		}
		if l.Bias.Len() != LayerSizes[i] {
			return nil, newShapeError(LayerNames[i]+" bias", []int{LayerSizes[i]}, []int{l.Bias.Len()})
		}
		p.layers[i] = Linear{
			Weight: mat.DenseCopyOf(l.Weight),
			Bias:   mat.VecDenseCopyOf(l.Bias),
		}
	}
	return &p, nil
}

// populated reports whether every layer has been set.
func (p *Params) populated() bool {
	for _, l := range p.layers {
		if l.Weight == nil || l.Bias == nil {
			return false
		}
	}
	return true
}

// Weight returns the read-only weight matrix of layer i (out×in).
func (p *Params) Weight(i int) mat.Matrix {
	return p.layers[i].Weight
}

// Bias returns the read-only bias vector of layer i.
func (p *Params) Bias(i int) mat.Vector {
	return p.layers[i].Bias
}
