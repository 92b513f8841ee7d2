package model

import (
	"encoding/json"
	"os"

	"github.com/pkg/errors"
)

// Metadata describes the model to the serving layer.
type Metadata struct {
	InputShape  []int64  `json:"input_shape"`
	OutputShape []int64  `json:"output_shape"`
	Classes     []string `json:"classes"`
	ImageSize   int      `json:"image_size"`
}

// DefaultMetadata returns the metadata of the fixed 64→16→16→16→2 network.
func DefaultMetadata() Metadata {
	return Metadata{
		InputShape:  []int64{1, InputSize},
		OutputShape: []int64{1, int64(LayerSizes[NumLayers-1])},
		Classes:     []string{Label(0), Label(1)},
		ImageSize:   8,
	}
}

// LoadMetadata reads metadata from a JSON file and checks it agrees with the
// fixed topology.
func LoadMetadata(path string) (Metadata, error) {
	metaFile, err := os.ReadFile(path)
	if err != nil {
		return Metadata{}, errors.Wrap(err, "failed to read metadata")
	}

	var metadata Metadata
	if err := json.Unmarshal(metaFile, &metadata); err != nil {
		return Metadata{}, errors.Wrap(err, "failed to parse metadata")
	}
	if err := metadata.Validate(); err != nil {
		return Metadata{}, err
	}
	return metadata, nil
}

// InputSize returns the number of values in one request.
func (m Metadata) InputSize() int {
	return shapeSize(m.InputShape)
}

// Validate checks m against the fixed topology.
func (m Metadata) Validate() error {
	if got := m.InputSize(); got != InputSize {
		return newShapeError("metadata input_shape", []int{InputSize}, []int{got})
	}
	outputs := LayerSizes[NumLayers-1]
	if got := shapeSize(m.OutputShape); got != outputs {
		return newShapeError("metadata output_shape", []int{outputs}, []int{got})
	}
	if len(m.Classes) != outputs {
		return newShapeError("metadata classes", []int{outputs}, []int{len(m.Classes)})
	}
	if m.ImageSize*m.ImageSize != InputSize {
		return newShapeError("metadata image_size", []int{8}, []int{m.ImageSize})
	}
	return nil
}

func shapeSize(shape []int64) int {
	if len(shape) == 0 {
		return 0
	}
	size := 1
	for _, dim := range shape {
		size *= int(dim)
	}
	return size
}

// PredictionRequest is the JSON body of a prediction call.
type PredictionRequest struct {
	Pixels []float64 `json:"pixels"`
}

// PredictionResponse carries the predicted label and the base64 PNG diagram.
type PredictionResponse struct {
	Prediction string `json:"prediction"`
	ImgData    string `json:"img_data"`
}
