// Package config defines the engine configuration applied uniformly to
// every node (spec §6 "Engine config").
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/Masterminds/semver/v3"
	"gopkg.in/yaml.v3"
)

// CurrentSchemaVersion is the config schema this build understands. A
// config file declaring a different major version is rejected outright;
// Load accepts any minor/patch within the same major.
const CurrentSchemaVersion = "1.0.0"

// EngineConfig is the uniform configuration every node receives through its
// node.EngineHandle (spec §6).
type EngineConfig struct {
	SchemaVersion     string `yaml:"schema_version"`
	AudioChannels     int    `yaml:"audio_channels"`
	AudioBitDepth     int    `yaml:"audio_bit_depth"` // one of 1, 8, 16, 24, 32
	AudioLittleEndian bool   `yaml:"audio_little_endian"`
	AudioSampleRate   int    `yaml:"audio_sample_rate"`
	TextEncoding      string `yaml:"text_encoding"`
	CacheDir          string `yaml:"cache_dir"`
}

// Default returns the engine's baseline configuration: 1-channel
// 16-bit little-endian PCM at 48 kHz, UTF-8 text.
func Default() *EngineConfig {
	return &EngineConfig{
		SchemaVersion:     CurrentSchemaVersion,
		AudioChannels:     1,
		AudioBitDepth:     16,
		AudioLittleEndian: true,
		AudioSampleRate:   48000,
		TextEncoding:      "utf-8",
		CacheDir:          os.TempDir(),
	}
}

// validBitDepths enumerates the only bit depths spec §6 allows.
var validBitDepths = map[int]bool{1: true, 8: true, 16: true, 24: true, 32: true}

// Validate checks that the configuration describes a coherent PCM format
// and that its schema version is compatible with this build.
func (c *EngineConfig) Validate() error {
	if err := c.validateSchemaVersion(); err != nil {
		return err
	}
	if c.AudioChannels <= 0 {
		return fmt.Errorf("config: audio_channels must be positive, got %d", c.AudioChannels)
	}
	if !validBitDepths[c.AudioBitDepth] {
		return fmt.Errorf("config: audio_bit_depth must be one of 1,8,16,24,32, got %d", c.AudioBitDepth)
	}
	if c.AudioSampleRate <= 0 {
		return fmt.Errorf("config: audio_sample_rate must be positive, got %d", c.AudioSampleRate)
	}
	return nil
}

// validateSchemaVersion rejects a config file built for a different major
// schema version, following semver's compatible-within-major convention.
func (c *EngineConfig) validateSchemaVersion() error {
	raw := c.SchemaVersion
	if raw == "" {
		raw = CurrentSchemaVersion
	}
	v, err := semver.StrictNewVersion(strings.TrimPrefix(raw, "v"))
	if err != nil {
		return fmt.Errorf("config: invalid schema_version %q: %w", raw, err)
	}
	current := semver.MustParse(CurrentSchemaVersion)
	if v.Major() != current.Major() {
		return fmt.Errorf("config: schema_version %s is incompatible with engine schema %s", raw, CurrentSchemaVersion)
	}
	return nil
}

// BytesPerSample returns the number of bytes a single sample of one channel
// occupies given the configured bit depth.
func (c *EngineConfig) BytesPerSample() int {
	return c.AudioBitDepth / 8
}

// Load reads an EngineConfig from a YAML file, filling in defaults for any
// field the file does not set.
func Load(path string) (*EngineConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
