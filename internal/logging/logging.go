// Package logging builds the process logger from the log section of
// typeval.yaml.
package logging

import (
	"fmt"
	"io"
	"os"

	"github.com/funvibe/structype/internal/config"
	"github.com/mattn/go-isatty"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// New returns a logger for cfg and a closer for its output. Logs go to a
// rotating file when cfg.File is set, else to stderr. Terminals get the
// coloured console encoding; everything else gets JSON.
func New(cfg config.LogConfig) (*zap.Logger, io.Closer, error) {
	level := zapcore.InfoLevel
	if cfg.Level != "" {
		l, err := zapcore.ParseLevel(cfg.Level)
		if err != nil {
			return nil, nil, fmt.Errorf("log level: %w", err)
		}
		level = l
	}

	if cfg.File != "" {
		w := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
		}
		core := zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig(false)), zapcore.AddSync(w), level)
		return zap.New(core), w, nil
	}
	return NewWriter(os.Stderr, level, isTerminal(os.Stderr)), nopCloser{}, nil
}

// NewWriter logs to w at level. console selects the human readable encoder.
func NewWriter(w io.Writer, level zapcore.Level, console bool) *zap.Logger {
	var enc zapcore.Encoder
	if console {
		enc = zapcore.NewConsoleEncoder(encoderConfig(true))
	} else {
		enc = zapcore.NewJSONEncoder(encoderConfig(false))
	}
	return zap.New(zapcore.NewCore(enc, zapcore.Lock(zapcore.AddSync(w)), level))
}

func encoderConfig(console bool) zapcore.EncoderConfig {
	ec := zap.NewProductionEncoderConfig()
	ec.EncodeTime = zapcore.ISO8601TimeEncoder
	if console {
		ec.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	return ec
}

func isTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
