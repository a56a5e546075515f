package log

import (
	"os"

	"github.com/mattn/go-isatty"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

var defaultLogger = zap.NewNop()

func Get() *zap.Logger {
	return defaultLogger
}

// Set replaces the package logger.
func Set(logger *zap.Logger) {
	defaultLogger = logger
}

func Flush() {
	_ = defaultLogger.Sync()
}

type Options struct {
	Enabled bool
	Path    string
	Verbose bool
}

// New builds a logger. JSON is written unless the output is a terminal
// or verbose logging is requested.
func New(o Options) (*zap.Logger, error) {
	if !o.Enabled {
		return zap.NewNop(), nil
	}

	zapConfig := zap.Config{
		Level:       zap.NewAtomicLevelAt(zap.InfoLevel),
		Development: false,
		Sampling: &zap.SamplingConfig{
			Initial:    100,
			Thereafter: 100,
		},
		Encoding:         "json",
		EncoderConfig:    zap.NewProductionEncoderConfig(),
		OutputPaths:      []string{"stderr"},
		ErrorOutputPaths: []string{"stderr"},
	}

	if o.Verbose {
		zapConfig.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
		zapConfig.Development = true
		zapConfig.Sampling = nil
	}

	if o.Path != "" {
		zapConfig.OutputPaths = []string{o.Path}
		zapConfig.ErrorOutputPaths = []string{o.Path}
	}

	if o.Verbose || (o.Path == "" && isTerminal()) {
		zapConfig.Encoding = "console"
		zapConfig.EncoderConfig = zap.NewDevelopmentEncoderConfig()
	}

	l, err := zapConfig.Build()
	return l, errors.WithStack(err)
}

// Configure builds a logger with New and installs it as the package logger.
func Configure(o Options) (*zap.Logger, error) {
	l, err := New(o)
	if err != nil {
		return nil, err
	}
	Set(l)
	return l, nil
}

func isTerminal() bool {
	return isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd())
}
