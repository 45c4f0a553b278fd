// Package logging builds the structured diagnostics logger. User facing
// output goes through internal/ui; this logger is for tracing and is a
// no-op unless asked for.
package logging

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New returns a logger writing debug output to stderr when verbose is set
// and JSON records to logFile when it is not empty.
func New(verbose bool, logFile string) (*zap.Logger, error) {
	var cores []zapcore.Core

	if verbose {
		config := zap.NewDevelopmentConfig()
		config.OutputPaths = []string{"stderr"}
		config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		l, err := config.Build()
		if err != nil {
			return nil, fmt.Errorf("failed to initialize console logger: %w", err)
		}
		cores = append(cores, l.Core())
	}

	if logFile != "" {
		config := zap.NewProductionConfig()
		config.OutputPaths = []string{logFile}
		config.ErrorOutputPaths = []string{"stderr"}
		config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		config.Sampling = nil
		l, err := config.Build()
		if err != nil {
			return nil, fmt.Errorf("failed to initialize file logger: %w", err)
		}
		cores = append(cores, l.Core())
	}

	if len(cores) == 0 {
		return zap.NewNop(), nil
	}
	return zap.New(zapcore.NewTee(cores...)).Named("anchorpatch"), nil
}
