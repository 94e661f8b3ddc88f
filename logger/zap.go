package logger

import (
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config selects level, encoding and destination.
type Config struct {
	// Level is one of debug, info, warn, error, dpanic, panic, fatal.
	Level string `mapstructure:"level" yaml:"level"`
	// Format is json or console.
	Format string `mapstructure:"format" yaml:"format"`
	// Output is stdout, stderr or file.
	Output string `mapstructure:"output" yaml:"output"`
	// FilePath is used when Output is file.
	FilePath string `mapstructure:"file_path" yaml:"file_path"`
	// Development switches to the development encoder and adds callers.
	Development bool `mapstructure:"development" yaml:"development"`
}

// DefaultConfig logs info and above as JSON to stdout.
func DefaultConfig() Config {
	return Config{
		Level:  "info",
		Format: "json",
		Output: "stdout",
	}
}

// New creates a zap logger from cfg. Unknown levels fall back to info.
func New(cfg Config) (*zap.Logger, error) {
	var sink io.Writer
	switch cfg.Output {
	case "stderr":
		sink = os.Stderr
	case "file":
		if cfg.FilePath == "" {
			sink = os.Stdout
			break
		}
		f, err := os.OpenFile(cfg.FilePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		sink = f
	default:
		sink = os.Stdout
	}
	return NewWithWriter(cfg, sink), nil
}

// NewWithWriter is New with an explicit destination.
func NewWithWriter(cfg Config, w io.Writer) *zap.Logger {
	level := zap.NewAtomicLevelAt(ParseLevel(cfg.Level))

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "@timestamp"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.LevelKey = "log.level"
	encoderConfig.MessageKey = "message"
	encoderConfig.CallerKey = "caller"
	if cfg.Development {
		encoderConfig = zap.NewDevelopmentEncoderConfig()
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	var encoder zapcore.Encoder
	if cfg.Format == "console" {
		encoder = zapcore.NewConsoleEncoder(encoderConfig)
	} else {
		encoder = zapcore.NewJSONEncoder(encoderConfig)
	}

	opts := []zap.Option{zap.AddStacktrace(zapcore.ErrorLevel)}
	if cfg.Development {
		opts = append(opts, zap.AddCaller())
	}
	return zap.New(zapcore.NewCore(encoder, zapcore.AddSync(w), level), opts...)
}

// ParseLevel maps a level name to its zapcore level.
func ParseLevel(name string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	case "dpanic":
		return zapcore.DPanicLevel
	case "panic":
		return zapcore.PanicLevel
	case "fatal":
		return zapcore.FatalLevel
	default:
		return zapcore.InfoLevel
	}
}
