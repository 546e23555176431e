// ABOUTME: YAML configuration for the player binary with per-section validation.
// ABOUTME: Maps the sync section onto timesync.Config for the clock controller.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Unison-Protocol/unison-go/pkg/timesync"
)

// Config is the top-level player configuration.
type Config struct {
	Player  PlayerConfig  `yaml:"player"`
	Sync    SyncConfig    `yaml:"sync"`
	Metrics MetricsConfig `yaml:"metrics"`
	Log     LogConfig     `yaml:"log"`
}

// PlayerConfig controls the player's identity and playback behavior.
type PlayerConfig struct {
	Name       string `yaml:"name"`
	Server     string `yaml:"server"`
	Volume     int    `yaml:"volume"`
	Artwork    bool   `yaml:"artwork"`
	Visualizer bool   `yaml:"visualizer"`
}

// SyncConfig tunes the clock synchronization controller.
type SyncConfig struct {
	BurstCount   int `yaml:"burst_count"`
	IntervalMs   int `yaml:"interval_ms"`
	ProbeDelayMs int `yaml:"probe_delay_ms"`
}

// MetricsConfig controls the Prometheus metrics endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Address string `yaml:"address"`
}

// LogConfig controls log output. An empty File logs to the default
// location next to the binary.
type LogConfig struct {
	File string `yaml:"file"`
}

// Default returns a configuration suitable for a player that discovers
// its server over mDNS. Load starts from these values, so fields absent
// from the file keep their defaults.
func Default() *Config {
	return &Config{
		Player: PlayerConfig{
			Volume:  100,
			Artwork: true,
		},
		Sync: SyncConfig{
			BurstCount:   timesync.DefaultBurstCount,
			IntervalMs:   int(timesync.DefaultInterval / time.Millisecond),
			ProbeDelayMs: int(timesync.DefaultProbeDelay / time.Millisecond),
		},
		Metrics: MetricsConfig{
			Address: ":9090",
		},
	}
}

// Load reads a YAML configuration file, merges it over the defaults,
// and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := Default()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// Validate checks all configuration sections.
func (c *Config) Validate() error {
	if err := c.Player.Validate(); err != nil {
		return fmt.Errorf("player config: %w", err)
	}
	if err := c.Sync.Validate(); err != nil {
		return fmt.Errorf("sync config: %w", err)
	}
	if err := c.Metrics.Validate(); err != nil {
		return fmt.Errorf("metrics config: %w", err)
	}
	return nil
}

// Validate checks player settings.
func (p *PlayerConfig) Validate() error {
	if p.Volume < 0 || p.Volume > 100 {
		return fmt.Errorf("volume must be between 0 and 100, got %d", p.Volume)
	}
	return nil
}

// Validate checks clock synchronization settings.
func (s *SyncConfig) Validate() error {
	if s.BurstCount < 1 {
		return fmt.Errorf("burst_count must be at least 1, got %d", s.BurstCount)
	}
	if s.IntervalMs < 1 {
		return fmt.Errorf("interval_ms must be at least 1, got %d", s.IntervalMs)
	}
	if s.ProbeDelayMs < 1 {
		return fmt.Errorf("probe_delay_ms must be at least 1, got %d", s.ProbeDelayMs)
	}
	return nil
}

// Validate checks metrics settings.
func (m *MetricsConfig) Validate() error {
	if m.Enabled && m.Address == "" {
		return fmt.Errorf("address is required when metrics are enabled")
	}
	return nil
}

// Interval returns the pause between probe bursts.
func (s *SyncConfig) Interval() time.Duration {
	return time.Duration(s.IntervalMs) * time.Millisecond
}

// ProbeDelay returns the spacing between probes within a burst.
func (s *SyncConfig) ProbeDelay() time.Duration {
	return time.Duration(s.ProbeDelayMs) * time.Millisecond
}

// Controller maps the sync section onto a controller configuration.
func (s *SyncConfig) Controller() timesync.Config {
	return timesync.Config{
		BurstCount: s.BurstCount,
		Interval:   s.Interval(),
		ProbeDelay: s.ProbeDelay(),
	}
}
