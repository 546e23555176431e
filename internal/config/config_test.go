// ABOUTME: Tests for configuration loading, default merging, and validation.
// ABOUTME: Uses temp files for Load and section mutations for Validate.
package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Unison-Protocol/unison-go/pkg/timesync"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}
	return path
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Errorf("Expected default config to validate, got %v", err)
	}
	if cfg.Player.Volume != 100 {
		t.Errorf("Expected default volume 100, got %d", cfg.Player.Volume)
	}
	if !cfg.Player.Artwork {
		t.Error("Expected artwork enabled by default")
	}
	if cfg.Sync.BurstCount != timesync.DefaultBurstCount {
		t.Errorf("Expected default burst count %d, got %d", timesync.DefaultBurstCount, cfg.Sync.BurstCount)
	}
	if cfg.Metrics.Enabled {
		t.Error("Expected metrics disabled by default")
	}
}

func TestLoadFullConfig(t *testing.T) {
	path := writeConfig(t, `
player:
  name: "Kitchen Speaker"
  server: "10.0.0.5:8930"
  volume: 60
  artwork: false
  visualizer: true
sync:
  burst_count: 15
  interval_ms: 200
  probe_delay_ms: 10
metrics:
  enabled: true
  address: ":9100"
log:
  file: "/var/log/unison.log"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Player.Name != "Kitchen Speaker" {
		t.Errorf("Expected name 'Kitchen Speaker', got %q", cfg.Player.Name)
	}
	if cfg.Player.Server != "10.0.0.5:8930" {
		t.Errorf("Expected server '10.0.0.5:8930', got %q", cfg.Player.Server)
	}
	if cfg.Player.Volume != 60 {
		t.Errorf("Expected volume 60, got %d", cfg.Player.Volume)
	}
	if cfg.Player.Artwork {
		t.Error("Expected artwork disabled")
	}
	if !cfg.Player.Visualizer {
		t.Error("Expected visualizer enabled")
	}
	if cfg.Sync.BurstCount != 15 {
		t.Errorf("Expected burst count 15, got %d", cfg.Sync.BurstCount)
	}
	if cfg.Sync.IntervalMs != 200 {
		t.Errorf("Expected interval 200ms, got %d", cfg.Sync.IntervalMs)
	}
	if !cfg.Metrics.Enabled {
		t.Error("Expected metrics enabled")
	}
	if cfg.Metrics.Address != ":9100" {
		t.Errorf("Expected metrics address ':9100', got %q", cfg.Metrics.Address)
	}
	if cfg.Log.File != "/var/log/unison.log" {
		t.Errorf("Expected log file '/var/log/unison.log', got %q", cfg.Log.File)
	}
}

func TestLoadPartialKeepsDefaults(t *testing.T) {
	path := writeConfig(t, `
player:
  name: "Bedroom"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Player.Name != "Bedroom" {
		t.Errorf("Expected name 'Bedroom', got %q", cfg.Player.Name)
	}
	if cfg.Player.Volume != 100 {
		t.Errorf("Expected default volume 100, got %d", cfg.Player.Volume)
	}
	if cfg.Sync.BurstCount != timesync.DefaultBurstCount {
		t.Errorf("Expected default burst count, got %d", cfg.Sync.BurstCount)
	}
	if cfg.Sync.ProbeDelayMs != int(timesync.DefaultProbeDelay/time.Millisecond) {
		t.Errorf("Expected default probe delay, got %d", cfg.Sync.ProbeDelayMs)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil {
		t.Fatal("Expected error for missing file, got nil")
	}
	if !strings.Contains(err.Error(), "failed to read config file") {
		t.Errorf("Expected read error, got %v", err)
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	path := writeConfig(t, "player: [not a mapping")
	_, err := Load(path)
	if err == nil {
		t.Fatal("Expected error for invalid YAML, got nil")
	}
	if !strings.Contains(err.Error(), "failed to parse config file") {
		t.Errorf("Expected parse error, got %v", err)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	path := writeConfig(t, `
sync:
  burst_count: 0
`)
	_, err := Load(path)
	if err == nil {
		t.Fatal("Expected validation error, got nil")
	}
	if !strings.Contains(err.Error(), "sync config") {
		t.Errorf("Expected sync config error, got %v", err)
	}
}

func TestValidateSections(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "volume too high",
			mutate:  func(c *Config) { c.Player.Volume = 150 },
			wantErr: "player config",
		},
		{
			name:    "volume negative",
			mutate:  func(c *Config) { c.Player.Volume = -1 },
			wantErr: "player config",
		},
		{
			name:    "zero burst count",
			mutate:  func(c *Config) { c.Sync.BurstCount = 0 },
			wantErr: "sync config",
		},
		{
			name:    "negative interval",
			mutate:  func(c *Config) { c.Sync.IntervalMs = -5 },
			wantErr: "sync config",
		},
		{
			name:    "zero probe delay",
			mutate:  func(c *Config) { c.Sync.ProbeDelayMs = 0 },
			wantErr: "sync config",
		},
		{
			name: "metrics enabled without address",
			mutate: func(c *Config) {
				c.Metrics.Enabled = true
				c.Metrics.Address = ""
			},
			wantErr: "metrics config",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("Expected validation error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestSyncDurations(t *testing.T) {
	s := SyncConfig{BurstCount: 5, IntervalMs: 500, ProbeDelayMs: 30}

	if s.Interval() != 500*time.Millisecond {
		t.Errorf("Expected interval 500ms, got %v", s.Interval())
	}
	if s.ProbeDelay() != 30*time.Millisecond {
		t.Errorf("Expected probe delay 30ms, got %v", s.ProbeDelay())
	}

	ctrl := s.Controller()
	if ctrl.BurstCount != 5 {
		t.Errorf("Expected controller burst count 5, got %d", ctrl.BurstCount)
	}
	if ctrl.Interval != 500*time.Millisecond {
		t.Errorf("Expected controller interval 500ms, got %v", ctrl.Interval)
	}
	if ctrl.ProbeDelay != 30*time.Millisecond {
		t.Errorf("Expected controller probe delay 30ms, got %v", ctrl.ProbeDelay)
	}
}
