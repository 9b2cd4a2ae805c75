// Package config loads shell configuration from a file and the environment.
//
// Values are layered: Default, then the file named by the caller (TOML,
// YAML or JSON by extension), then BRIDGE_* environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/kelseyhightower/envconfig"
	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/wippyai/wasm-bridge/errors"
	"github.com/wippyai/wasm-bridge/event"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "BRIDGE"

// Config holds the parameters of one shell window.
type Config struct {
	LoaderPath string `json:"loader" yaml:"loader" toml:"loader" envconfig:"LOADER"`
	ModulePath string `json:"module" yaml:"module" toml:"module" envconfig:"MODULE"`
	// Debug is the initial debug ray-march mode, empty for none.
	Debug string `json:"debug" yaml:"debug" toml:"debug" envconfig:"DEBUG"`
	// FrameInterval paces the module's frame export, e.g. "16ms". A
	// negative duration disables the frame loop.
	FrameInterval    string  `json:"frame_interval" yaml:"frame_interval" toml:"frame_interval" envconfig:"FRAME_INTERVAL"`
	MemoryLimitPages uint32  `json:"memory_limit_pages" yaml:"memory_limit_pages" toml:"memory_limit_pages" envconfig:"MEMORY_LIMIT_PAGES"`
	Width            int     `json:"width" yaml:"width" toml:"width" envconfig:"WIDTH"`
	Height           int     `json:"height" yaml:"height" toml:"height" envconfig:"HEIGHT"`
	MetricsAddr      string  `json:"metrics_addr" yaml:"metrics_addr" toml:"metrics_addr" envconfig:"METRICS_ADDR"`
	Log              Logging `json:"log" yaml:"log" toml:"log" envconfig:"LOG"`
}

// Logging selects the logger built by the logging package.
type Logging struct {
	Level       string `json:"level" yaml:"level" toml:"level" envconfig:"LEVEL"`
	Development bool   `json:"development" yaml:"development" toml:"development" envconfig:"DEV"`
}

// Default returns the configuration used when nothing overrides it.
func Default() Config {
	return Config{
		LoaderPath:    "/bridge/loader",
		FrameInterval: "16ms",
		Width:         800,
		Height:        600,
		Log: Logging{
			Level: "info",
		},
	}
}

// Load layers the file at path (optional) and the environment over Default.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		if err := decodeFile(path, &cfg); err != nil {
			return cfg, err
		}
	}
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return cfg, errors.Wrap(errors.PhaseConfig, errors.KindInvalidParam, err, "environment overrides")
	}
	return cfg, cfg.Validate()
}

func decodeFile(path string, cfg *Config) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrap(errors.PhaseConfig, errors.KindLoadFailed, err, "read "+path)
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(b, cfg)
	case ".toml":
		err = toml.Unmarshal(b, cfg)
	case ".json":
		err = sonic.Unmarshal(b, cfg)
	default:
		return errors.New(errors.PhaseConfig, errors.KindInvalidParam).
			Field("path").
			Value(path).
			Detail("unsupported config extension %q", ext).
			Build()
	}
	if err != nil {
		return errors.Wrap(errors.PhaseConfig, errors.KindInvalidParam, err, "decode "+path)
	}
	return nil
}

// Validate checks values that cannot be represented by their field types.
// Missing loader or module paths are not errors here: the bridge reports
// them per instance.
func (c Config) Validate() error {
	if _, err := c.Interval(); err != nil {
		return err
	}
	if _, err := c.DebugMode(); err != nil {
		return err
	}
	if c.Width < 0 || c.Height < 0 {
		return errors.InvalidParam("", "size", fmt.Sprintf("%dx%d", c.Width, c.Height))
	}
	return nil
}

// Interval parses FrameInterval. Empty means 0, the loader default.
func (c Config) Interval() (time.Duration, error) {
	if c.FrameInterval == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.FrameInterval)
	if err != nil {
		return 0, errors.New(errors.PhaseConfig, errors.KindInvalidParam).
			Field("frame_interval").
			Value(c.FrameInterval).
			Cause(err).
			Build()
	}
	return d, nil
}

// DebugMode parses Debug.
func (c Config) DebugMode() (event.DebugMode, error) {
	if c.Debug == "" {
		return "", nil
	}
	mode := event.DebugMode(c.Debug)
	if !mode.Valid() {
		return "", errors.InvalidEnum(errors.PhaseConfig, "debug", c.Debug, "DebugMode")
	}
	return mode, nil
}
