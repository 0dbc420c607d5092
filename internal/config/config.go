// Package config loads the rigolwave tool configuration.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the full tool configuration.
type Config struct {
	Device  DeviceConfig  `yaml:"device"`
	Capture CaptureConfig `yaml:"capture"`
	Log     LogConfig     `yaml:"log"`
}

// DeviceConfig selects which instrument to open.
type DeviceConfig struct {
	// Profile names the device family (DS1000Z, DS2000A).
	Profile string `yaml:"profile"`

	// Serial pins the tool to one instrument when several of the same
	// family are attached. Empty means first match.
	Serial string `yaml:"serial"`
}

// CaptureConfig sets waveform fetch defaults.
type CaptureConfig struct {
	// Mode is the default readout mode (norm, max, raw).
	Mode string `yaml:"mode"`

	// ReadTimeoutSeconds bounds each transport read.
	ReadTimeoutSeconds int `yaml:"read_timeout_seconds"`
}

// ReadTimeout returns the transport read timeout as a duration.
func (c CaptureConfig) ReadTimeout() time.Duration {
	return time.Duration(c.ReadTimeoutSeconds) * time.Second
}

// LogConfig controls logging output.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads and parses a YAML config file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Device: DeviceConfig{
			Profile: "DS1000Z",
		},
		Capture: CaptureConfig{
			Mode:               "norm",
			ReadTimeoutSeconds: 5,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}
