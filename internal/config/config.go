// Package config loads the worker's own settings: an optional TOML file overlaid
// on defaults, then DPRINT_CSHARPIER_* environment overrides.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/dustin/go-humanize"
	"github.com/kelseyhightower/envconfig"

	"github.com/danmuck/dprint-plugin-csharpier/internal/formatter"
	"github.com/danmuck/dprint-plugin-csharpier/internal/liveness"
	"github.com/danmuck/dprint-plugin-csharpier/internal/logging"
	"github.com/danmuck/dprint-plugin-csharpier/internal/protocol/frame"
)

const EnvPrefix = "DPRINT_CSHARPIER"

// ByteSize accepts plain integers or humanized sizes such as "64MiB".
type ByteSize uint64

func (b *ByteSize) UnmarshalText(text []byte) error {
	v, err := humanize.ParseBytes(strings.TrimSpace(string(text)))
	if err != nil {
		return err
	}
	*b = ByteSize(v)
	return nil
}

func (b ByteSize) String() string {
	return humanize.IBytes(uint64(b))
}

type WorkerConfig struct {
	LogLevel string         `envconfig:"LOG_LEVEL"`
	Engine   EngineConfig   `envconfig:"ENGINE"`
	Limits   LimitsConfig   `envconfig:"LIMITS"`
	Liveness LivenessConfig `envconfig:"LIVENESS"`
	Metrics  MetricsConfig  `envconfig:"METRICS"`
}

type EngineConfig struct {
	Command string   `envconfig:"COMMAND"`
	Args    []string `envconfig:"ARGS"`
	Dir     string   `envconfig:"DIR"`
}

type LimitsConfig struct {
	MaxVariableBytes     ByteSize `envconfig:"MAX_VARIABLE_BYTES"`
	MaxConcurrentFormats int      `envconfig:"MAX_CONCURRENT_FORMATS"`
	// DrainTimeout bounds the wait for cancelled formats on shutdown; 0 keeps
	// the dispatcher default.
	DrainTimeout time.Duration `envconfig:"DRAIN_TIMEOUT"`
}

type LivenessConfig struct {
	PollInterval time.Duration `envconfig:"POLL_INTERVAL"`
}

type MetricsConfig struct {
	ListenAddr string `envconfig:"LISTEN_ADDR"`
}

func DefaultWorkerConfig() WorkerConfig {
	return WorkerConfig{
		LogLevel: "info",
		Engine: EngineConfig{
			Command: formatter.DefaultCommand,
			Args:    append([]string(nil), formatter.DefaultArgs...),
		},
		Limits: LimitsConfig{
			MaxVariableBytes: ByteSize(frame.DefaultLimits().MaxVariableBytes),
		},
		Liveness: LivenessConfig{
			PollInterval: liveness.DefaultInterval,
		},
	}
}

type fileConfig struct {
	LogLevel string `toml:"log_level"`
	Engine   struct {
		Command string   `toml:"command"`
		Args    []string `toml:"args"`
		Dir     string   `toml:"dir"`
	} `toml:"engine"`
	Limits struct {
		MaxVariableBytes     ByteSize `toml:"max_variable_bytes"`
		MaxConcurrentFormats int      `toml:"max_concurrent_formats"`
		DrainTimeout         string   `toml:"drain_timeout"`
	} `toml:"limits"`
	Liveness struct {
		PollInterval string `toml:"poll_interval"`
	} `toml:"liveness"`
	Metrics struct {
		ListenAddr string `toml:"listen_addr"`
	} `toml:"metrics"`
}

// Load resolves defaults, then path (when non-empty), then the environment.
func Load(path string) (WorkerConfig, error) {
	cfg := DefaultWorkerConfig()
	if strings.TrimSpace(path) != "" {
		if err := applyFile(path, &cfg); err != nil {
			return WorkerConfig{}, err
		}
	}
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return WorkerConfig{}, fmt.Errorf("load worker env: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return WorkerConfig{}, err
	}
	return cfg, nil
}

func applyFile(path string, cfg *WorkerConfig) error {
	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return fmt.Errorf("load worker config: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return fmt.Errorf("load worker config: unknown key %q", undecoded[0].String())
	}

	if meta.IsDefined("log_level") {
		cfg.LogLevel = strings.TrimSpace(raw.LogLevel)
	}

	if meta.IsDefined("engine", "command") {
		cfg.Engine.Command = strings.TrimSpace(raw.Engine.Command)
	}

	if meta.IsDefined("engine", "args") {
		cfg.Engine.Args = raw.Engine.Args
	}

	if meta.IsDefined("engine", "dir") {
		cfg.Engine.Dir = strings.TrimSpace(raw.Engine.Dir)
	}

	if meta.IsDefined("limits", "max_variable_bytes") {
		cfg.Limits.MaxVariableBytes = raw.Limits.MaxVariableBytes
	}

	if meta.IsDefined("limits", "max_concurrent_formats") {
		cfg.Limits.MaxConcurrentFormats = raw.Limits.MaxConcurrentFormats
	}

	if meta.IsDefined("limits", "drain_timeout") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.Limits.DrainTimeout))
		if err != nil {
			return fmt.Errorf("parse limits.drain_timeout: %w", err)
		}
		cfg.Limits.DrainTimeout = d
	}

	if meta.IsDefined("liveness", "poll_interval") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.Liveness.PollInterval))
		if err != nil {
			return fmt.Errorf("parse liveness.poll_interval: %w", err)
		}
		cfg.Liveness.PollInterval = d
	}

	if meta.IsDefined("metrics", "listen_addr") {
		cfg.Metrics.ListenAddr = strings.TrimSpace(raw.Metrics.ListenAddr)
	}

	return nil
}

func Validate(cfg WorkerConfig) error {
	if _, ok := logging.ParseLevel(cfg.LogLevel); !ok {
		return fmt.Errorf("worker config invalid log_level %q", cfg.LogLevel)
	}
	if strings.TrimSpace(cfg.Engine.Command) == "" {
		return errors.New("worker config missing engine.command")
	}
	if cfg.Limits.MaxVariableBytes == 0 {
		return errors.New("worker config limits.max_variable_bytes must be positive")
	}
	if uint64(cfg.Limits.MaxVariableBytes) > uint64(^uint32(0)) {
		return fmt.Errorf("worker config limits.max_variable_bytes %s exceeds the u32 length prefix", cfg.Limits.MaxVariableBytes)
	}
	if cfg.Limits.MaxConcurrentFormats < 0 {
		return errors.New("worker config limits.max_concurrent_formats must not be negative")
	}
	if cfg.Limits.DrainTimeout < 0 {
		return errors.New("worker config limits.drain_timeout must not be negative")
	}
	if cfg.Liveness.PollInterval <= 0 {
		return errors.New("worker config liveness.poll_interval must be positive")
	}
	return nil
}

// FrameLimits converts the configured limits for the frame reader.
func (c WorkerConfig) FrameLimits() frame.Limits {
	return frame.Limits{MaxVariableBytes: uint32(c.Limits.MaxVariableBytes)}
}
