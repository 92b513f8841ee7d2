// Package config holds the server settings read from flags and the environment.
package config

import (
	"os"
	"strconv"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
)

// Flag names.
const (
	FlagPort      = "port"
	FlagParams    = "params"
	FlagMetadata  = "metadata"
	FlagONNXModel = "onnx-model"
	FlagDebug     = "debug"
)

// Config configures the prediction server.
type Config struct {
	Port          int
	ParamsPath    string
	MetadataPath  string
	ONNXModelPath string
	Debug         bool
}

// Flags returns the server's command line flags. Each one can also be set
// through its environment variable.
func Flags() []cli.Flag {
	return []cli.Flag{
		&cli.IntFlag{
			Name:    FlagPort,
			Aliases: []string{"p"},
			EnvVars: []string{"PORT"},
			Value:   8080,
			Usage:   "port to listen on",
		},
		&cli.StringFlag{
			Name:    FlagParams,
			EnvVars: []string{"PARAMS_PATH"},
			Value:   "models/params.json",
			Usage:   "load trained parameters from `FILE`",
		},
		&cli.StringFlag{
			Name:    FlagMetadata,
			EnvVars: []string{"METADATA_PATH"},
			Usage:   "optional model metadata `FILE`",
		},
		&cli.StringFlag{
			Name:    FlagONNXModel,
			EnvVars: []string{"ONNX_MODEL_PATH"},
			Usage:   "run inference through ONNX Runtime using `FILE`",
		},
		&cli.BoolFlag{
			Name:    FlagDebug,
			EnvVars: []string{"DEBUG"},
			Usage:   "enable debug logging",
		},
	}
}

// FromContext reads a Config from parsed flags.
func FromContext(c *cli.Context) Config {
	return Config{
		Port:          c.Int(FlagPort),
		ParamsPath:    c.String(FlagParams),
		MetadataPath:  c.String(FlagMetadata),
		ONNXModelPath: c.String(FlagONNXModel),
		Debug:         c.Bool(FlagDebug),
	}
}

// Validate checks that the port is usable and the referenced files exist.
func (c Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return errors.Errorf("invalid port %d", c.Port)
	}
	if c.ParamsPath == "" {
		return errors.New("a parameters file is required")
	}
	for _, path := range []string{c.ParamsPath, c.MetadataPath, c.ONNXModelPath} {
		if path == "" {
			continue
		}
		if _, err := os.Stat(path); err != nil {
			return errors.Wrapf(err, "cannot use %q", path)
		}
	}
	return nil
}

// Addr is the listen address for the configured port.
func (c Config) Addr() string {
	return ":" + strconv.Itoa(c.Port)
}
