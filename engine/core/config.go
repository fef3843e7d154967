package core

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"
)

type LogConfig struct {
	Level string `toml:"level"`
}

type IoConfig struct {
	// Number of I/O worker goroutines.
	Workers int `toml:"workers"`
	// Capacity of the request and response mailboxes.
	QueueSize int `toml:"queue_size"`
}

type SimConfig struct {
	TickMS int `toml:"tick_ms"`
	SpinUS int `toml:"spin_us"`
}

type AssetsConfig struct {
	Root  string `toml:"root"`
	Watch bool   `toml:"watch"`
}

type StagingConfig struct {
	// A staged resource logs a warning every StaleAfterTicks ticks it waits.
	StaleAfterTicks int `toml:"stale_after_ticks"`
}

type RenderConfig struct {
	FrameMS int `toml:"frame_ms"`
	// Bytes of mesh and texture data uploaded per frame. Zero is unlimited.
	UploadBudget int `toml:"upload_budget"`
}

type Config struct {
	Log     LogConfig     `toml:"log"`
	Io      IoConfig      `toml:"io"`
	Sim     SimConfig     `toml:"sim"`
	Assets  AssetsConfig  `toml:"assets"`
	Staging StagingConfig `toml:"staging"`
	Render  RenderConfig  `toml:"render"`
}

func DefaultConfig() *Config {
	return &Config{
		Log: LogConfig{Level: "info"},
		Io: IoConfig{
			Workers:   2,
			QueueSize: 256,
		},
		Sim: SimConfig{
			TickMS: 100,
			SpinUS: 200,
		},
		Assets: AssetsConfig{
			Root:  "assets",
			Watch: true,
		},
		Staging: StagingConfig{StaleAfterTicks: 50},
		Render:  RenderConfig{FrameMS: 16, UploadBudget: 64 << 20},
	}
}

// LoadConfig overlays the TOML file at path on top of DefaultConfig.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	return ParseConfig(data)
}

func ParseConfig(data []byte) (*Config, error) {
	cfg := DefaultConfig()
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Io.Workers <= 0 {
		return fmt.Errorf("%w: io.workers must be positive, got %d", ErrInvalidConfig, c.Io.Workers)
	}
	if c.Io.QueueSize < 0 {
		return fmt.Errorf("%w: io.queue_size must not be negative, got %d", ErrInvalidConfig, c.Io.QueueSize)
	}
	if c.Sim.TickMS <= 0 {
		return fmt.Errorf("%w: sim.tick_ms must be positive, got %d", ErrInvalidConfig, c.Sim.TickMS)
	}
	if c.Sim.SpinUS < 0 {
		return fmt.Errorf("%w: sim.spin_us must not be negative, got %d", ErrInvalidConfig, c.Sim.SpinUS)
	}
	if c.Staging.StaleAfterTicks <= 0 {
		return fmt.Errorf("%w: staging.stale_after_ticks must be positive, got %d", ErrInvalidConfig, c.Staging.StaleAfterTicks)
	}
	if c.Render.FrameMS <= 0 {
		return fmt.Errorf("%w: render.frame_ms must be positive, got %d", ErrInvalidConfig, c.Render.FrameMS)
	}
	if c.Render.UploadBudget < 0 {
		return fmt.Errorf("%w: render.upload_budget must not be negative, got %d", ErrInvalidConfig, c.Render.UploadBudget)
	}
	return nil
}

func (c *Config) TickDuration() time.Duration {
	return time.Duration(c.Sim.TickMS) * time.Millisecond
}

func (c *Config) SpinDuration() time.Duration {
	return time.Duration(c.Sim.SpinUS) * time.Microsecond
}

func (c *Config) FrameDuration() time.Duration {
	return time.Duration(c.Render.FrameMS) * time.Millisecond
}

// Encode renders the configuration back to TOML.
func (c *Config) Encode() ([]byte, error) {
	return toml.Marshal(c)
}
