// Package logging builds the zap logger shared by the engine and the CLI.
package logging

import (
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options selects level, encoding and an optional rotating file.
type Options struct {
	Level      string // debug, info, warn, error
	Format     string // console or json
	File       string
	MaxSizeMB  int
	MaxBackups int
}

// DefaultOptions logs warnings and up to stderr.
func DefaultOptions() Options {
	return Options{Level: "warn", Format: "console", MaxSizeMB: 10, MaxBackups: 3}
}

// New returns a logger writing to w, or os.Stderr when w is nil. When
// opts.File is set a JSON copy of every entry goes to that file, rotated by
// size.
func New(opts Options, w io.Writer) (*zap.Logger, error) {
	level := zap.NewAtomicLevel()
	if opts.Level != "" {
		if err := level.UnmarshalText([]byte(opts.Level)); err != nil {
			return nil, fmt.Errorf("log level %q: %w", opts.Level, err)
		}
	} else {
		level.SetLevel(zap.WarnLevel)
	}

	enc, err := encoder(opts.Format)
	if err != nil {
		return nil, err
	}
	if w == nil {
		w = os.Stderr
	}
	cores := []zapcore.Core{zapcore.NewCore(enc, zapcore.Lock(zapcore.AddSync(w)), level)}

	if opts.File != "" {
		file := zapcore.AddSync(&lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    opts.MaxSizeMB,
			MaxBackups: opts.MaxBackups,
		})
		fileEnc, _ := encoder("json")
		cores = append(cores, zapcore.NewCore(fileEnc, file, level))
	}

	return zap.New(zapcore.NewTee(cores...), zap.AddStacktrace(zap.ErrorLevel)).Named("canopy"), nil
}

func encoder(format string) (zapcore.Encoder, error) {
	cfg := zap.NewProductionEncoderConfig()
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	switch format {
	case "", "console":
		cfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		return zapcore.NewConsoleEncoder(cfg), nil
	case "json":
		cfg.EncodeLevel = zapcore.CapitalLevelEncoder
		return zapcore.NewJSONEncoder(cfg), nil
	default:
		return nil, fmt.Errorf("unknown log format %q", format)
	}
}
