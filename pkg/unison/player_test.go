// ABOUTME: Tests for the Player API
// ABOUTME: Covers creation, configuration, volume, artwork wiring and close
package unison

import (
	"testing"

	"github.com/Unison-Protocol/unison-go/pkg/artwork"
	"github.com/Unison-Protocol/unison-go/pkg/protocol"
	"github.com/Unison-Protocol/unison-go/pkg/timesync"
)

func TestNewPlayer(t *testing.T) {
	player, err := NewPlayer(PlayerConfig{
		ServerAddr: "localhost:8930",
		PlayerName: "Test Player",
		Volume:     80,
	})
	if err != nil {
		t.Fatalf("Failed to create player: %v", err)
	}
	defer player.Close()

	state := player.Status()
	if state.State != "idle" {
		t.Errorf("Expected initial state 'idle', got '%s'", state.State)
	}
	if state.Volume != 80 {
		t.Errorf("Expected volume 80, got %d", state.Volume)
	}
	if state.Connected {
		t.Error("Expected connected=false initially")
	}
}

func TestNewPlayerDefaults(t *testing.T) {
	player, err := NewPlayer(PlayerConfig{
		ServerAddr: "localhost:8930",
		PlayerName: "Test Player",
	})
	if err != nil {
		t.Fatalf("Failed to create player: %v", err)
	}
	defer player.Close()

	if player.config.Volume != 100 {
		t.Errorf("Expected default volume 100, got %d", player.config.Volume)
	}
	if player.config.DeviceInfo.ProductName == "" {
		t.Error("Expected default ProductName")
	}
	if player.config.DeviceInfo.Manufacturer == "" {
		t.Error("Expected default Manufacturer")
	}
	if player.config.DeviceInfo.SoftwareVersion == "" {
		t.Error("Expected default SoftwareVersion")
	}
}

func TestPlayerSetVolume(t *testing.T) {
	player, err := NewPlayer(PlayerConfig{
		ServerAddr: "localhost:8930",
		PlayerName: "Test Player",
	})
	if err != nil {
		t.Fatalf("Failed to create player: %v", err)
	}
	defer player.Close()

	if err := player.SetVolume(50); err != nil {
		t.Errorf("SetVolume failed: %v", err)
	}
	if v := player.Status().Volume; v != 50 {
		t.Errorf("Expected volume 50, got %d", v)
	}

	player.SetVolume(150)
	if v := player.Status().Volume; v != 100 {
		t.Errorf("Expected volume clamped to 100, got %d", v)
	}

	player.SetVolume(-10)
	if v := player.Status().Volume; v != 0 {
		t.Errorf("Expected volume clamped to 0, got %d", v)
	}
}

func TestPlayerMute(t *testing.T) {
	player, err := NewPlayer(PlayerConfig{
		ServerAddr: "localhost:8930",
		PlayerName: "Test Player",
	})
	if err != nil {
		t.Fatalf("Failed to create player: %v", err)
	}
	defer player.Close()

	if err := player.Mute(true); err != nil {
		t.Errorf("Mute failed: %v", err)
	}
	if !player.Status().Muted {
		t.Error("Expected muted=true")
	}

	player.Mute(false)
	if player.Status().Muted {
		t.Error("Expected muted=false")
	}
}

func TestPlayerStateCallback(t *testing.T) {
	var states []PlayerState

	player, err := NewPlayer(PlayerConfig{
		ServerAddr: "localhost:8930",
		PlayerName: "Test Player",
		OnStateChange: func(s PlayerState) {
			states = append(states, s)
		},
	})
	if err != nil {
		t.Fatalf("Failed to create player: %v", err)
	}
	defer player.Close()

	player.SetVolume(50)

	if len(states) == 0 {
		t.Fatal("Expected OnStateChange to be called")
	}
	if states[len(states)-1].Volume != 50 {
		t.Errorf("Expected callback volume 50, got %d", states[len(states)-1].Volume)
	}
}

func TestPlayerStatsBeforeConnect(t *testing.T) {
	player, err := NewPlayer(PlayerConfig{
		ServerAddr: "localhost:8930",
		PlayerName: "Test Player",
	})
	if err != nil {
		t.Fatalf("Failed to create player: %v", err)
	}
	defer player.Close()

	stats := player.Stats()
	if stats.Received != 0 || stats.Played != 0 || stats.Dropped != 0 {
		t.Errorf("Expected zero playback counters, got %+v", stats)
	}
	if stats.BufferDepth != 0 {
		t.Errorf("Expected BufferDepth 0, got %d", stats.BufferDepth)
	}
	if stats.SyncQuality != timesync.QualityLost {
		t.Errorf("Expected sync quality Lost before any sync, got %v", stats.SyncQuality)
	}
}

func TestPlayerConnectFailure(t *testing.T) {
	player, err := NewPlayer(PlayerConfig{
		ServerAddr: "127.0.0.1:1",
		PlayerName: "Test Player",
	})
	if err != nil {
		t.Fatalf("Failed to create player: %v", err)
	}
	defer player.Close()

	if err := player.Connect(); err == nil {
		t.Fatal("Expected Connect to fail against a closed port")
	}

	if player.Status().Connected {
		t.Error("Expected connected=false after failed Connect")
	}
}

func TestPlayerArtwork(t *testing.T) {
	var images []artwork.Image

	player, err := NewPlayer(PlayerConfig{
		ServerAddr:    "localhost:8930",
		PlayerName:    "Test Player",
		EnableArtwork: true,
		OnArtwork: func(img artwork.Image) {
			images = append(images, img)
		},
	})
	if err != nil {
		t.Fatalf("Failed to create player: %v", err)
	}
	defer player.Close()

	data := protocol.EncodeBinaryFrame(protocol.MsgTypeArtworkBase+1, 500, []byte{0xFF, 0xD8, 0x01})
	frame, ok := protocol.DecodeBinaryFrame(data)
	if !ok {
		t.Fatal("Failed to decode artwork frame")
	}

	if !player.artworkStore.Apply(frame) {
		t.Fatal("Expected artwork frame to apply")
	}

	img, ok := player.Artwork(1)
	if !ok {
		t.Fatal("Expected channel 1 artwork")
	}
	if img.Timestamp != 500 {
		t.Errorf("Expected timestamp 500, got %d", img.Timestamp)
	}

	if len(images) != 1 {
		t.Errorf("Expected one OnArtwork callback, got %d", len(images))
	}
}

func TestPlayerArtworkDisabled(t *testing.T) {
	player, err := NewPlayer(PlayerConfig{
		ServerAddr: "localhost:8930",
		PlayerName: "Test Player",
	})
	if err != nil {
		t.Fatalf("Failed to create player: %v", err)
	}
	defer player.Close()

	if _, ok := player.Artwork(0); ok {
		t.Error("Expected no artwork when the role is disabled")
	}
}

func TestPlayerClose(t *testing.T) {
	player, err := NewPlayer(PlayerConfig{
		ServerAddr: "localhost:8930",
		PlayerName: "Test Player",
	})
	if err != nil {
		t.Fatalf("Failed to create player: %v", err)
	}

	if err := player.Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}

	state := player.Status()
	if state.Connected {
		t.Error("Expected connected=false after close")
	}
	if state.State != "idle" {
		t.Errorf("Expected state 'idle' after close, got '%s'", state.State)
	}
}
