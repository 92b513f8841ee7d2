// Package batch renders activation diagrams for many samples at once. Every
// sample is evaluated on its own engine; only the parameter set is shared.
package batch

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/pkg/errors"
	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"

	"github.com/Brownie44l1/mlp-viz/internal/model"
	"github.com/Brownie44l1/mlp-viz/internal/render"
)

// Sample is one named 8x8 grid.
type Sample struct {
	Name   string    `json:"name"`
	Pixels []float64 `json:"pixels"`
}

// Result describes one rendered sample.
type Result struct {
	Name       string    `json:"name"`
	Prediction string    `json:"prediction"`
	Logits     []float64 `json:"logits"`
	Path       string    `json:"path"`
}

// Options configures Run.
type Options struct {
	OutDir string
	// Parallel bounds the number of samples in flight; zero means GOMAXPROCS.
	Parallel int
}

// LoadSamples reads a JSON array of samples. Names must be unique since they
// become file names.
func LoadSamples(path string) ([]Sample, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read samples")
	}
	var samples []Sample
	if err := json.Unmarshal(raw, &samples); err != nil {
		return nil, errors.Wrap(err, "failed to parse samples")
	}
	seen := make(map[string]bool, len(samples))
	for i := range samples {
		if samples[i].Name == "" {
			samples[i].Name = fmt.Sprintf("sample-%03d", i)
		}
		name := fileName(samples[i].Name)
		if seen[name] {
			return nil, errors.Errorf("duplicate sample name %q", samples[i].Name)
		}
		seen[name] = true
	}
	return samples, nil
}

// Run evaluates and renders every sample, writing <name>.png into
// opts.OutDir. Results are returned in input order. The first failure cancels
// the remaining samples.
func Run(ctx context.Context, params *model.Params, samples []Sample, opts Options, logger *zap.SugaredLogger) ([]Result, error) {
	if opts.Parallel <= 0 {
		opts.Parallel = runtime.GOMAXPROCS(0)
	}
	if err := os.MkdirAll(opts.OutDir, 0o755); err != nil {
		return nil, errors.Wrap(err, "failed to create output directory")
	}

	renderer := render.New()
	results := make([]Result, len(samples))

	p := pool.New().
		WithContext(ctx).
		WithMaxGoroutines(opts.Parallel).
		WithCancelOnError().
		WithFirstError()
	for i, s := range samples {
		i, s := i, s
		p.Go(func(ctx context.Context) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			res, err := renderOne(params, renderer, s, opts.OutDir)
			if err != nil {
				return errors.Wrapf(err, "sample %q", s.Name)
			}
			logger.Debugw("rendered sample", "name", s.Name, "prediction", res.Prediction, "path", res.Path)
			results[i] = res
			return nil
		})
	}
	if err := p.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func renderOne(params *model.Params, renderer *render.Renderer, s Sample, outDir string) (Result, error) {
	engine, err := model.NewEngine(params)
	if err != nil {
		return Result{}, err
	}
	out, err := engine.Forward(s.Pixels)
	if err != nil {
		return Result{}, err
	}
	img, err := renderer.Render(engine)
	if err != nil {
		return Result{}, err
	}

	path := filepath.Join(outDir, fileName(s.Name)+".png")
	if err := os.WriteFile(path, img, 0o644); err != nil {
		return Result{}, errors.Wrap(err, "failed to write diagram")
	}
	return Result{
		Name:       s.Name,
		Prediction: model.Label(model.Argmax(out)),
		Logits:     out,
		Path:       path,
	}, nil
}

// fileName keeps letters, digits, '-', '_' and '.' and replaces the rest.
func fileName(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			return r
		default:
			return '_'
		}
	}, name)
}
