// Package service turns a pixel vector into a prediction and an activation
// diagram.
package service

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/Brownie44l1/mlp-viz/internal/model"
	"github.com/Brownie44l1/mlp-viz/internal/render"
)

// Engine is an instrumented network: every Forward records the activations
// that the renderer later reads.
type Engine interface {
	render.Source
	Forward(input []float64) ([]float64, error)
}

// Server owns one engine and serializes requests against it.
type Server struct {
	Metadata model.Metadata

	mu       sync.Mutex
	engine   Engine
	renderer *render.Renderer
	logger   *zap.SugaredLogger
}

// Options configures NewServer.
type Options struct {
	ParamsPath    string
	MetadataPath  string
	ONNXModelPath string
}

// NewServer loads the parameters and builds the engine described by opts.
// Malformed parameters or metadata fail here rather than on the first request.
func NewServer(opts Options, logger *zap.SugaredLogger) (*Server, error) {
	params, err := model.LoadParams(opts.ParamsPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load parameters: %w", err)
	}

	metadata := model.DefaultMetadata()
	if opts.MetadataPath != "" {
		if metadata, err = model.LoadMetadata(opts.MetadataPath); err != nil {
			return nil, err
		}
	}

	var engine Engine
	if opts.ONNXModelPath != "" {
		logger.Infow("using ONNX Runtime", "model", opts.ONNXModelPath)
		engine, err = model.NewONNXEngine(opts.ONNXModelPath, params)
	} else {
		engine, err = model.NewEngine(params)
	}
	if err != nil {
		return nil, err
	}

	return NewServerWithEngine(engine, metadata, logger), nil
}

// NewServerWithEngine wraps an already constructed engine.
func NewServerWithEngine(engine Engine, metadata model.Metadata, logger *zap.SugaredLogger) *Server {
	return &Server{
		Metadata: metadata,
		engine:   engine,
		renderer: render.New(),
		logger:   logger,
	}
}

// Predict runs one forward pass and renders the resulting activations. The
// engine lock is held across both steps so the diagram always matches the
// prediction.
func (s *Server) Predict(pixels []float64) (*model.PredictionResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out, err := s.engine.Forward(pixels)
	if err != nil {
		return nil, err
	}
	idx := model.Argmax(out)

	img, err := s.renderer.RenderBase64(s.engine)
	if err != nil {
		return nil, fmt.Errorf("failed to render activations: %w", err)
	}

	s.logger.Debugw("prediction", "logits", out, "class", model.ClassName(idx))

	return &model.PredictionResponse{
		Prediction: model.Label(idx),
		ImgData:    img,
	}, nil
}

// Close releases engine resources, if the engine holds any.
func (s *Server) Close() {
	if c, ok := s.engine.(interface{ Close() }); ok {
		c.Close()
	}
}
