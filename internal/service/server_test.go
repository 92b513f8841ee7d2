package service

import (
	"bytes"
	"encoding/base64"
	"errors"
	"image/png"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"go.uber.org/zap"
	"go.viam.com/test"

	"github.com/Brownie44l1/mlp-viz/internal/logging"
	"github.com/Brownie44l1/mlp-viz/internal/model"
)

// favorParams builds a network whose output prefers class 2 when the first
// pixel is lit and class 1 otherwise.
func favorParams(t *testing.T) *model.Params {
	t.Helper()
	layer := func(out, in int, fill func(r, c int) float64, bias []float64) model.Linear {
		w := make([][]float64, out)
		for r := range w {
			w[r] = make([]float64, in)
			for c := range w[r] {
				w[r][c] = fill(r, c)
			}
		}
		if bias == nil {
			bias = make([]float64, out)
		}
		l, err := model.NewLinear(w, bias)
		test.That(t, err, test.ShouldBeNil)
		return l
	}
	diag := func(r, c int) float64 {
		if r == c {
			return 1
		}
		return 0
	}
	b4 := []float64{0.5, 0}
	p, err := model.NewParams(
		layer(16, model.InputSize, diag, nil),
		layer(16, 16, diag, nil),
		layer(16, 16, diag, nil),
		layer(2, 16, func(r, c int) float64 {
			if r == 1 && c == 0 {
				return 1
			}
			return 0
		}, b4),
	)
	test.That(t, err, test.ShouldBeNil)
	return p
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	e, err := model.NewEngine(favorParams(t))
	test.That(t, err, test.ShouldBeNil)
	logger, _ := logging.NewObservedTestLogger(t)
	return NewServerWithEngine(e, model.DefaultMetadata(), logger)
}

func TestPredict(t *testing.T) {
	s := newTestServer(t)

	resp, err := s.Predict(make([]float64, model.InputSize))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, resp.Prediction, test.ShouldEqual, "1")

	raw, err := base64.StdEncoding.DecodeString(resp.ImgData)
	test.That(t, err, test.ShouldBeNil)
	_, err = png.Decode(bytes.NewReader(raw))
	test.That(t, err, test.ShouldBeNil)

	lit := make([]float64, model.InputSize)
	lit[0] = 1
	resp2, err := s.Predict(lit)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, resp2.Prediction, test.ShouldEqual, "2")
	test.That(t, resp2.ImgData, test.ShouldNotEqual, resp.ImgData)
}

func TestPredictTieGoesToFirstClass(t *testing.T) {
	s := newTestServer(t)
	in := make([]float64, model.InputSize)
	in[0] = 0.5 // logits [0.5, 0.5]
	resp, err := s.Predict(in)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, resp.Prediction, test.ShouldEqual, "1")
}

func TestPredictShapeError(t *testing.T) {
	s := newTestServer(t)
	_, err := s.Predict(make([]float64, 63))
	var shapeErr *model.ShapeError
	test.That(t, errors.As(err, &shapeErr), test.ShouldBeTrue)
}

func TestPredictWithoutClassMetadata(t *testing.T) {
	e, err := model.NewEngine(favorParams(t))
	test.That(t, err, test.ShouldBeNil)
	logger, logs := logging.NewObservedTestLogger(t)
	s := NewServerWithEngine(e, model.Metadata{}, logger)

	lit := make([]float64, model.InputSize)
	lit[0] = 1
	resp, err := s.Predict(lit)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, resp.Prediction, test.ShouldEqual, "2")

	entries := logs.FilterMessage("prediction").All()
	test.That(t, entries, test.ShouldHaveLength, 1)
	test.That(t, entries[0].ContextMap()["class"], test.ShouldEqual, "Class 2")
}

type countingEngine struct {
	Engine
	forwards int
}

func (c *countingEngine) Forward(input []float64) ([]float64, error) {
	c.forwards++
	return c.Engine.Forward(input)
}

func TestPredictRunsForwardOnce(t *testing.T) {
	e, err := model.NewEngine(favorParams(t))
	test.That(t, err, test.ShouldBeNil)
	counting := &countingEngine{Engine: e}
	s := NewServerWithEngine(counting, model.DefaultMetadata(), zap.NewNop().Sugar())

	_, err = s.Predict(make([]float64, model.InputSize))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, counting.forwards, test.ShouldEqual, 1)
}

func TestPredictConcurrentRequestsMatchSerial(t *testing.T) {
	s := newTestServer(t)

	inputs := make([][]float64, 8)
	want := make([]*model.PredictionResponse, len(inputs))
	for i := range inputs {
		inputs[i] = make([]float64, model.InputSize)
		inputs[i][0] = float64(i) / 4
		inputs[i][1] = float64(i%3) / 2
		resp, err := s.Predict(inputs[i])
		test.That(t, err, test.ShouldBeNil)
		want[i] = resp
	}

	got := make([]*model.PredictionResponse, len(inputs))
	var wg sync.WaitGroup
	for i := range inputs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			resp, err := s.Predict(inputs[i])
			if err == nil {
				got[i] = resp
			}
		}(i)
	}
	wg.Wait()

	for i := range inputs {
		test.That(t, got[i], test.ShouldResemble, want[i])
	}
}

func TestNewServerFromFiles(t *testing.T) {
	dir := t.TempDir()
	paramsPath := filepath.Join(dir, "params.json")
	test.That(t, model.SaveParams(paramsPath, favorParams(t)), test.ShouldBeNil)

	s, err := NewServer(Options{ParamsPath: paramsPath}, zap.NewNop().Sugar())
	test.That(t, err, test.ShouldBeNil)
	defer s.Close()
	test.That(t, s.Metadata.Classes, test.ShouldResemble, []string{"1", "2"})

	resp, err := s.Predict(make([]float64, model.InputSize))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, resp.Prediction, test.ShouldEqual, "1")
}

func TestNewServerRejectsBadFiles(t *testing.T) {
	dir := t.TempDir()

	_, err := NewServer(Options{ParamsPath: filepath.Join(dir, "missing.json")}, zap.NewNop().Sugar())
	test.That(t, err, test.ShouldNotBeNil)

	paramsPath := filepath.Join(dir, "params.json")
	test.That(t, model.SaveParams(paramsPath, favorParams(t)), test.ShouldBeNil)
	metaPath := filepath.Join(dir, "meta.json")
	test.That(t, os.WriteFile(metaPath, []byte(`{"input_shape":[1,3,48,48],"output_shape":[1,7],"classes":["a"],"image_size":48}`), 0o600),
		test.ShouldBeNil)
	_, err = NewServer(Options{ParamsPath: paramsPath, MetadataPath: metaPath}, zap.NewNop().Sugar())
	var shapeErr *model.ShapeError
	test.That(t, errors.As(err, &shapeErr), test.ShouldBeTrue)
}
