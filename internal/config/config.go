package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

type BackendType string

const (
	BackendGoCV   BackendType = "gocv"
	BackendFFmpeg BackendType = "ffmpeg"

	DefaultConfigPath string = "config.yaml"
)

type CaptureConfig struct {
	Backend     BackendType `yaml:"backend"`
	DeviceIndex int         `yaml:"device_index"`
	DeviceName  string      `yaml:"device_name,omitempty"` // ffmpeg only, overrides the index
	Width       int         `yaml:"width"`
	Height      int         `yaml:"height"`
	FPS         uint        `yaml:"fps"`
}

type PreviewConfig struct {
	IntervalMs int  `yaml:"interval_ms"`
	DisplayFPS uint `yaml:"display_fps"`
}

type SnapshotConfig struct {
	JPEGQuality int `yaml:"jpeg_quality"`
}

type RelayConfig struct {
	Host         string `yaml:"host"`
	RetrySeconds int    `yaml:"retry_seconds"`
}

type Config struct {
	mu sync.RWMutex

	Capture  CaptureConfig  `yaml:"capture"`
	Preview  PreviewConfig  `yaml:"preview"`
	Snapshot SnapshotConfig `yaml:"snapshot"`
	Relay    RelayConfig    `yaml:"relay"`
	LogLevel string         `yaml:"log_level"`
}

func (c *Config) GetCapture() CaptureConfig {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.Capture
}

func (c *Config) GetPreviewInterval() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return time.Duration(c.Preview.IntervalMs) * time.Millisecond
}

func (c *Config) GetDisplayFPS() uint {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.Preview.DisplayFPS
}

func (c *Config) GetJPEGQuality() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.Snapshot.JPEGQuality
}

func (c *Config) GetRelay() RelayConfig {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.Relay
}

func (c *Config) GetLogLevel() slog.Level {
	c.mu.RLock()
	defer c.mu.RUnlock()

	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Normalize replaces out-of-range values with defaults.
func (c *Config) Normalize() {
	c.mu.Lock()
	defer c.mu.Unlock()

	def := NewDefaultConfig()

	if c.Capture.Backend != BackendGoCV && c.Capture.Backend != BackendFFmpeg {
		c.Capture.Backend = def.Capture.Backend
	}
	if c.Capture.DeviceIndex < 0 {
		c.Capture.DeviceIndex = 0
	}
	if c.Capture.Width <= 0 || c.Capture.Height <= 0 {
		c.Capture.Width = def.Capture.Width
		c.Capture.Height = def.Capture.Height
	}
	if c.Capture.FPS == 0 {
		c.Capture.FPS = def.Capture.FPS
	}
	if c.Preview.IntervalMs <= 0 {
		c.Preview.IntervalMs = def.Preview.IntervalMs
	}
	if c.Preview.DisplayFPS == 0 {
		c.Preview.DisplayFPS = def.Preview.DisplayFPS
	}
	if c.Snapshot.JPEGQuality < 1 || c.Snapshot.JPEGQuality > 100 {
		c.Snapshot.JPEGQuality = def.Snapshot.JPEGQuality
	}
	if c.Relay.RetrySeconds <= 0 {
		c.Relay.RetrySeconds = def.Relay.RetrySeconds
	}
}

func (c *Config) Save(path string) error {
	c.mu.RLock()
	data, err := yaml.Marshal(c)
	c.mu.RUnlock()

	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}

	return nil
}

// LoadConfigFile never fails: a missing or broken file yields defaults.
func LoadConfigFile(path string) *Config {
	cfg, err := Load(path)
	if err != nil {
		return NewDefaultConfig()
	}
	return cfg
}

func Load(path string) (*Config, error) {
	cfg := NewDefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("unmarshal yaml: %w", err)
	}

	cfg.Normalize()

	return cfg, nil
}

func NewDefaultConfig() *Config {
	return &Config{
		Capture: CaptureConfig{
			Backend:     BackendGoCV,
			DeviceIndex: 0,
			Width:       640,
			Height:      480,
			FPS:         30,
		},
		Preview: PreviewConfig{
			IntervalMs: 10,
			DisplayFPS: 30,
		},
		Snapshot: SnapshotConfig{JPEGQuality: 95},
		Relay:    RelayConfig{RetrySeconds: 5},
		LogLevel: "info",
	}
}
