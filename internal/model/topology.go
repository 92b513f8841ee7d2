package model

// InputSize is the length of a flattened 8x8 pixel grid.
const InputSize = 64

// Layer names, in evaluation order.
const (
	Hidden1 = "hidden1"
	Hidden2 = "hidden2"
	Hidden3 = "hidden3"
	Output  = "output"
)

// LayerNames lists every captured layer in evaluation order.
var LayerNames = [...]string{Hidden1, Hidden2, Hidden3, Output}

// LayerSizes holds the output width of each layer in LayerNames.
var LayerSizes = [...]int{16, 16, 16, 2}

// NumLayers is the number of linear transforms in the network.
const NumLayers = len(LayerNames)

// layerInputSize returns the fan-in of layer i.
func layerInputSize(i int) int {
	if i == 0 {
		return InputSize
	}
	return LayerSizes[i-1]
}

// LayerSize returns the width of the named layer, or 0 when the name is unknown.
func LayerSize(name string) int {
	for i, n := range LayerNames {
		if n == name {
			return LayerSizes[i]
		}
	}
	return 0
}
