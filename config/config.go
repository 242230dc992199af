// Package config loads and validates the yaml engine configuration.
package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"pulse"
)

// ErrInvalidConfig is wrapped by every validation failure.
var ErrInvalidConfig = errors.New("invalid config")

type (
	// Config carries the engine parameters.
	Config struct {
		SampleRate  pulse.SampleRate  `yaml:"sample_rate"`
		BufferSize  pulse.BufferSize  `yaml:"buffer_size"`
		NumChannels pulse.NumChannels `yaml:"num_channels"`
		Debug       bool              `yaml:"debug"`
		Sinks       Sinks             `yaml:"sinks"`
	}

	// Sinks selects the output destinations of the engine.
	Sinks struct {
		PortAudio  bool   `yaml:"portaudio"`
		WavPath    string `yaml:"wav"`
		Mp3Path    string `yaml:"mp3"`
		Mp3BitRate int    `yaml:"mp3_bit_rate"`
		Mp3Quality int    `yaml:"mp3_quality"`
	}
)

// Default returns the stock configuration: CD-quality stereo with a
// 512-frame buffer.
func Default() Config {
	return Config{
		SampleRate:  44100,
		BufferSize:  512,
		NumChannels: 2,
		Sinks: Sinks{
			Mp3BitRate: 192,
			Mp3Quality: 5,
		},
	}
}

// Parse unmarshals yaml over the defaults and validates the result.
func Parse(data []byte) (Config, error) {
	c := Default()
	if err := yaml.Unmarshal(data, &c); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Load reads and parses the yaml file at path.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}
	return Parse(data)
}

// Validate checks the parameter ranges.
func (c Config) Validate() error {
	if c.SampleRate <= 0 {
		return fmt.Errorf("%w: sample rate %v", ErrInvalidConfig, c.SampleRate)
	}
	if c.BufferSize <= 0 {
		return fmt.Errorf("%w: buffer size %v", ErrInvalidConfig, c.BufferSize)
	}
	if c.NumChannels <= 0 || c.NumChannels > 32 {
		return fmt.Errorf("%w: num channels %v", ErrInvalidConfig, c.NumChannels)
	}
	if c.Sinks.Mp3BitRate < 0 {
		return fmt.Errorf("%w: mp3 bit rate %v", ErrInvalidConfig, c.Sinks.Mp3BitRate)
	}
	return nil
}
