package model

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// stateDict mirrors the JSON export of a PyTorch state_dict: fc1.weight,
// fc1.bias, ... fc4.bias with weights stored out×in.
type stateDict map[string]json.RawMessage

func weightKey(i int) string { return fmt.Sprintf("fc%d.weight", i+1) }
func biasKey(i int) string   { return fmt.Sprintf("fc%d.bias", i+1) }

// LoadParams reads a JSON state dict from path and validates it against the
// fixed topology.
func LoadParams(path string) (*Params, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read parameters")
	}
	return ParseParams(raw)
}

// ParseParams decodes a JSON state dict.
func ParseParams(raw []byte) (*Params, error) {
	var sd stateDict
	if err := json.Unmarshal(raw, &sd); err != nil {
		return nil, errors.Wrap(err, "failed to parse parameters")
	}

	layers := make([]Linear, NumLayers)
	for i := range layers {
		var weight [][]float64
		var bias []float64
		if err := sd.decode(weightKey(i), []int{LayerSizes[i], layerInputSize(i)}, &weight); err != nil {
			return nil, err
		}
		if err := sd.decode(biasKey(i), []int{LayerSizes[i]}, &bias); err != nil {
			return nil, err
		}
		l, err := NewLinear(weight, bias)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid %s", weightKey(i))
		}
		layers[i] = l
	}
	p, err := NewParams(layers...)
	if err != nil {
		return nil, errors.Wrap(err, "parameters do not match topology")
	}
	return p, nil
}

// decode unmarshals key into dst. A missing key is a *ShapeError against
// want, the shape the topology expects for it.
func (sd stateDict) decode(key string, want []int, dst interface{}) error {
	v, ok := sd[key]
	if !ok {
		return errors.Wrapf(newShapeError(key, want, nil), "parameters are missing %q", key)
	}
	if err := json.Unmarshal(v, dst); err != nil {
		return errors.Wrapf(err, "failed to parse %q", key)
	}
	return nil
}

// SaveParams writes p to path in the format read by LoadParams.
func SaveParams(path string, p *Params) error {
	out := make(map[string]interface{}, 2*NumLayers)
	for i := 0; i < NumLayers; i++ {
		w := p.Weight(i)
		r, _ := w.Dims()
		rows := make([][]float64, r)
		for j := range rows {
			rows[j] = mat.Row(nil, j, w)
		}
		out[weightKey(i)] = rows
		out[biasKey(i)] = mat.Col(nil, 0, p.Bias(i))
	}
	raw, err := json.Marshal(out)
	if err != nil {
		return errors.Wrap(err, "failed to encode parameters")
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return errors.Wrap(err, "failed to write parameters")
	}
	return nil
}
