package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	BackendSlog = "slog"
	BackendZap  = "zap"
)

// Options selects and tunes a logging backend.
type Options struct {
	Backend string // slog (default) or zap
	Level   string // debug, info, warn, error
	// File, when set, receives the log stream through a rotating writer
	// instead of stderr.
	File       string
	MaxSizeMB  int
	MaxBackups int
}

// New builds a Logger for the configured backend.
func New(opts Options) (Logger, error) {
	out := writer(opts)

	switch strings.ToLower(opts.Backend) {
	case "", BackendSlog:
		var level slog.Level
		if err := level.UnmarshalText([]byte(orDefault(opts.Level, "info"))); err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", opts.Level, err)
		}
		h := slog.NewJSONHandler(out, &slog.HandlerOptions{Level: level, AddSource: level <= slog.LevelDebug})
		return NewSlogLogger(slog.New(h)), nil

	case BackendZap:
		level, err := zapcore.ParseLevel(orDefault(opts.Level, "info"))
		if err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", opts.Level, err)
		}
		enc := zap.NewProductionEncoderConfig()
		enc.TimeKey = "time"
		enc.EncodeTime = zapcore.ISO8601TimeEncoder
		core := zapcore.NewCore(zapcore.NewJSONEncoder(enc), zapcore.AddSync(out), level)
		return NewZapLogger(zap.New(core, zap.AddCaller())), nil

	default:
		return nil, fmt.Errorf("unknown log backend %q", opts.Backend)
	}
}

func writer(opts Options) io.Writer {
	if opts.File == "" {
		return os.Stderr
	}
	return &lumberjack.Logger{
		Filename:   opts.File,
		MaxSize:    orDefaultInt(opts.MaxSizeMB, 10),
		MaxBackups: orDefaultInt(opts.MaxBackups, 3),
		LocalTime:  true,
	}
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

func orDefaultInt(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
