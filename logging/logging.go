// Package logging builds zap loggers and installs them into the bridge
// packages.
//
// Production loggers write JSON; development loggers write colored console
// output with stack traces.
package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/wippyai/wasm-bridge/bridge"
	"github.com/wippyai/wasm-bridge/child"
	"github.com/wippyai/wasm-bridge/hooks"
	"github.com/wippyai/wasm-bridge/host"
	"github.com/wippyai/wasm-bridge/lifecycle"
	"github.com/wippyai/wasm-bridge/loader"
	"github.com/wippyai/wasm-bridge/protocol"
)

// Config defines logger configuration.
type Config struct {
	Level       string // "debug", "info", "warn", "error"
	OutputPaths []string
	Development bool
}

// DefaultConfig returns production logger configuration.
func DefaultConfig() Config {
	return Config{
		Level:       "info",
		OutputPaths: []string{"stderr"},
	}
}

// New creates a logger from cfg.
func New(cfg Config) (*zap.Logger, error) {
	var level zapcore.Level
	if cfg.Level != "" {
		if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
			return nil, err
		}
	}
	outputs := cfg.OutputPaths
	if len(outputs) == 0 {
		outputs = []string{"stderr"}
	}

	zapCfg := zap.Config{
		Level:             zap.NewAtomicLevelAt(level),
		Development:       cfg.Development,
		Encoding:          encoding(cfg.Development),
		EncoderConfig:     encoderConfig(cfg.Development),
		OutputPaths:       outputs,
		ErrorOutputPaths:  []string{"stderr"},
		DisableStacktrace: !cfg.Development,
	}
	return zapCfg.Build()
}

// Install makes l the logger of every bridge package. Call it before
// creating any queue, manager or frame.
func Install(l *zap.Logger) {
	bridge.SetLogger(l.Named("bridge"))
	hooks.SetLogger(l.Named("hooks"))
	protocol.SetLogger(l.Named("protocol"))
	loader.SetLogger(l.Named("loader"))
	lifecycle.SetLogger(l.Named("lifecycle"))
	child.SetLogger(l.Named("child"))
	host.SetLogger(l.Named("host"))
}

func encoding(development bool) string {
	if development {
		return "console"
	}
	return "json"
}

func encoderConfig(development bool) zapcore.EncoderConfig {
	if development {
		cfg := zap.NewDevelopmentEncoderConfig()
		cfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		cfg.EncodeTime = zapcore.ISO8601TimeEncoder
		return cfg
	}
	cfg := zap.NewProductionEncoderConfig()
	cfg.TimeKey = "timestamp"
	cfg.MessageKey = "message"
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	return cfg
}
