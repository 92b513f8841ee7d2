package main

import (
	"fmt"
	"net/http"
	"os"

	"github.com/rs/cors"
	"github.com/urfave/cli/v2"
	"goji.io"

	"github.com/Brownie44l1/mlp-viz/internal/config"
	"github.com/Brownie44l1/mlp-viz/internal/handlers"
	"github.com/Brownie44l1/mlp-viz/internal/logging"
	"github.com/Brownie44l1/mlp-viz/internal/service"
)

func main() {
	app := &cli.App{
		Name:   "mlp-viz",
		Usage:  "classify hand-drawn 1s and 2s and show how every neuron fired",
		Flags:  config.Flags(),
		Action: serve,
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func serve(c *cli.Context) error {
	cfg := config.FromContext(c)

	logger, err := logging.NewLogger("server", cfg.Debug)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if err := cfg.Validate(); err != nil {
		return err
	}

	logger.Infow("loading parameters", "path", cfg.ParamsPath)

	modelServer, err := service.NewServer(service.Options{
		ParamsPath:    cfg.ParamsPath,
		MetadataPath:  cfg.MetadataPath,
		ONNXModelPath: cfg.ONNXModelPath,
	}, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize model server: %w", err)
	}
	defer modelServer.Close()

	mux := goji.NewMux()
	handlers.NewHandler(modelServer, logger).Register(mux)

	logger.Infow("server starting", "addr", cfg.Addr(), "classes", modelServer.Metadata.Classes)
	logger.Info("endpoints: GET / (drawing page), GET /health, POST /predict, POST /predict/image")

	if err := http.ListenAndServe(cfg.Addr(), cors.AllowAll().Handler(mux)); err != nil {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}
