// Package main renders activation diagrams for a file of samples.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"

	"github.com/urfave/cli/v2"

	"github.com/Brownie44l1/mlp-viz/internal/batch"
	"github.com/Brownie44l1/mlp-viz/internal/logging"
	"github.com/Brownie44l1/mlp-viz/internal/model"
)

const (
	flagParams   = "params"
	flagSamples  = "samples"
	flagOut      = "out"
	flagParallel = "parallel"
	flagDebug    = "debug"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "mlp-viz-render",
		Usage: "write one activation diagram per sample",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     flagParams,
				EnvVars:  []string{"PARAMS_PATH"},
				Required: true,
				Usage:    "load trained parameters from `FILE`",
			},
			&cli.StringFlag{
				Name:     flagSamples,
				Required: true,
				Usage:    "JSON array of {\"name\", \"pixels\"} objects in `FILE`",
			},
			&cli.StringFlag{
				Name:  flagOut,
				Value: "diagrams",
				Usage: "write PNGs into `DIR`",
			},
			&cli.IntFlag{
				Name:  flagParallel,
				Usage: "samples rendered at once (0 = one per CPU)",
			},
			&cli.BoolFlag{
				Name:  flagDebug,
				Usage: "enable debug logging",
			},
		},
		Action: run,
	}
}

func run(c *cli.Context) error {
	// Results go to stdout, so logs use stderr.
	logger, err := logging.NewLogger("render", c.Bool(flagDebug), "stderr")
	if err != nil {
		return err
	}
	defer logger.Sync()

	params, err := model.LoadParams(c.String(flagParams))
	if err != nil {
		return err
	}
	samples, err := batch.LoadSamples(c.String(flagSamples))
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	results, err := batch.Run(ctx, params, samples, batch.Options{
		OutDir:   c.String(flagOut),
		Parallel: c.Int(flagParallel),
	}, logger)
	if err != nil {
		return err
	}
	logger.Infow("rendered samples", "count", len(results), "dir", c.String(flagOut))

	enc := json.NewEncoder(c.App.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(results)
}
