package model

import (
	"fmt"

	ort "github.com/yalue/onnxruntime_go"
)

// ONNXEngine runs the network through ONNX Runtime. The model must be exported
// with input "input" of shape [1,64] and the post-activation layer outputs as
// graph outputs named hidden1, hidden2, hidden3 and output.
//
// The parameter set is still needed because the renderer draws the weights.
type ONNXEngine struct {
	session       *ort.AdvancedSession
	params        *Params
	inputTensor   *ort.Tensor[float32]
	outputTensors []*ort.Tensor[float32]
	snapshot      Snapshot
}

// NewONNXEngine initializes the ONNX environment and opens a session on the
// model at modelPath.
func NewONNXEngine(modelPath string, params *Params) (*ONNXEngine, error) {
	if params == nil || !params.populated() {
		return nil, fmt.Errorf("onnx engine requires parameters")
	}
	if err := ort.InitializeEnvironment(); err != nil {
		return nil, fmt.Errorf("failed to initialize ONNX environment: %w", err)
	}

	e := &ONNXEngine{params: params}

	inputTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(1, InputSize))
	if err != nil {
		e.Close()
		return nil, fmt.Errorf("failed to create input tensor: %w", err)
	}
	e.inputTensor = inputTensor

	outputs := make([]ort.ArbitraryTensor, 0, NumLayers)
	for i := range LayerNames {
		t, err := ort.NewEmptyTensor[float32](ort.NewShape(1, int64(LayerSizes[i])))
		if err != nil {
			e.Close()
			return nil, fmt.Errorf("failed to create %s tensor: %w", LayerNames[i], err)
		}
		e.outputTensors = append(e.outputTensors, t)
		outputs = append(outputs, t)
	}

	session, err := ort.NewAdvancedSession(modelPath,
		[]string{"input"}, LayerNames[:],
		[]ort.ArbitraryTensor{inputTensor}, outputs,
		nil)
	if err != nil {
		e.Close()
		return nil, fmt.Errorf("failed to create ONNX session: %w", err)
	}
	e.session = session

	return e, nil
}

// Forward runs one sample through the session and captures every layer output.
func (e *ONNXEngine) Forward(input []float64) ([]float64, error) {
	if len(input) != InputSize {
		return nil, newShapeError("input", []int{InputSize}, []int{len(input)})
	}

	data := e.inputTensor.GetData()
	for i, v := range input {
		data[i] = float32(v)
	}

	if err := e.session.Run(); err != nil {
		return nil, fmt.Errorf("inference failed: %w", err)
	}

	snap := make(Snapshot, NumLayers)
	for i, t := range e.outputTensors {
		out := t.GetData()
		acts := make([]float64, len(out))
		for j, v := range out {
			acts[j] = float64(v)
		}
		snap[LayerNames[i]] = acts
	}
	e.snapshot = snap

	return append([]float64(nil), snap[Output]...), nil
}

// Snapshot returns a copy of the activations captured by the last Forward.
func (e *ONNXEngine) Snapshot() (Snapshot, error) {
	if e.snapshot == nil {
		return nil, &StateError{Op: "snapshot"}
	}
	return e.snapshot.Clone(), nil
}

// Parameters returns the parameter set used for rendering.
func (e *ONNXEngine) Parameters() *Params {
	return e.params
}

// Close releases the session, its tensors and the ONNX environment.
func (e *ONNXEngine) Close() {
	if e.inputTensor != nil {
		e.inputTensor.Destroy()
	}
	for _, t := range e.outputTensors {
		t.Destroy()
	}
	if e.session != nil {
		e.session.Destroy()
	}
	ort.DestroyEnvironment()
}
