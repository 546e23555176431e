// ABOUTME: Entry point for Unison Protocol player
// ABOUTME: Parses CLI flags, loads config, and starts the player application
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Unison-Protocol/unison-go/internal/config"
	"github.com/Unison-Protocol/unison-go/internal/metrics"
	"github.com/Unison-Protocol/unison-go/internal/ui"
	"github.com/Unison-Protocol/unison-go/internal/version"
	"github.com/Unison-Protocol/unison-go/pkg/discovery"
	"github.com/Unison-Protocol/unison-go/pkg/protocol"
	"github.com/Unison-Protocol/unison-go/pkg/unison"
)

var (
	configPath  = flag.String("config", "", "Path to YAML config file")
	serverAddr  = flag.String("server", "", "Manual server address (skip mDNS)")
	port        = flag.Int("port", protocol.DefaultPort, "Port for mDNS advertisement")
	name        = flag.String("name", "", "Player friendly name (default: hostname-unison-player)")
	volume      = flag.Int("volume", 100, "Initial volume (0-100)")
	logFile     = flag.String("log-file", "", "Log file path (default: unison-player.log)")
	metricsAddr = flag.String("metrics", "", "Serve Prometheus metrics on this address")
	noTUI       = flag.Bool("no-tui", false, "Disable TUI, use streaming logs instead")
	streamLogs  = flag.Bool("stream-logs", false, "Alias for -no-tui")
)

func main() {
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
		cfg = loaded
	}

	// Flags set explicitly on the command line override the config file
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "server":
			cfg.Player.Server = *serverAddr
		case "name":
			cfg.Player.Name = *name
		case "volume":
			cfg.Player.Volume = *volume
		case "log-file":
			cfg.Log.File = *logFile
		case "metrics":
			cfg.Metrics.Enabled = true
			cfg.Metrics.Address = *metricsAddr
		}
	})
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	// Determine if we should use TUI or streaming logs
	useTUI := !(*noTUI || *streamLogs)

	// Set up logging
	logPath := cfg.Log.File
	if logPath == "" {
		logPath = "unison-player.log"
	}
	f, err := os.OpenFile(logPath, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		log.Fatalf("error opening log file: %v", err)
	}
	defer func() { _ = f.Close() }()

	if useTUI {
		// TUI mode: log only to file
		log.SetOutput(f)
	} else {
		// Streaming logs mode: log to both stdout and file
		multiWriter := io.MultiWriter(os.Stdout, f)
		log.SetOutput(multiWriter)
	}

	// Determine player name
	playerName := cfg.Player.Name
	if playerName == "" {
		hostname, err := os.Hostname()
		if err != nil {
			hostname = "unknown"
		}
		playerName = fmt.Sprintf("%s-unison-player", hostname)
	}

	if !useTUI {
		log.Printf("Starting Unison Player: %s", playerName)
		log.Printf("TUI disabled - logging to file for debugging")
	}

	// Metrics setup
	var collector *metrics.Metrics
	if cfg.Metrics.Enabled {
		collector = metrics.New()
		srv := metrics.Serve(cfg.Metrics.Address)
		defer func() { _ = srv.Close() }()
		log.Printf("Serving metrics on %s/metrics", cfg.Metrics.Address)
	}

	// TUI setup
	var tuiProg *tea.Program
	var volumeCtrl *ui.VolumeControl

	if useTUI {
		volumeCtrl = ui.NewVolumeControl()
		tuiProg, err = ui.Run(volumeCtrl)
		if err != nil {
			log.Fatalf("Failed to start TUI: %v", err)
		}
		go tuiProg.Run()
	}

	// Helper to update TUI
	updateTUI := func(msg ui.StatusMsg) {
		if tuiProg != nil {
			tuiProg.Send(msg)
		}
	}

	// Handle server discovery if no manual server specified. The player
	// keeps advertising itself while it runs.
	var disc *discovery.Manager
	serverAddress := cfg.Player.Server
	if serverAddress == "" {
		log.Printf("Starting server discovery...")
		disc = discovery.NewManager(discovery.Config{
			ServiceName: playerName,
			Port:        *port,
		})
		if err := disc.Advertise(); err != nil {
			log.Printf("mDNS advertisement failed: %v", err)
		}
		if err := disc.Browse(); err != nil {
			log.Fatalf("mDNS browse failed: %v", err)
		}

		// Wait for server discovery
		select {
		case server := <-disc.Servers():
			serverAddress = fmt.Sprintf("%s:%d", server.Host, server.Port)
			log.Printf("Discovered server %s at %s", server.Name, serverAddress)
		case <-time.After(10 * time.Second):
			log.Fatalf("No server found after 10 seconds")
		}
	}
	if disc != nil {
		defer disc.Stop()
	}

	// Create player with callbacks for TUI and metrics
	playerCfg := unison.PlayerConfig{
		ServerAddr:       serverAddress,
		PlayerName:       playerName,
		Volume:           cfg.Player.Volume,
		Sync:             cfg.Sync.Controller(),
		EnableArtwork:    cfg.Player.Artwork,
		EnableVisualizer: cfg.Player.Visualizer,
		DeviceInfo: unison.DeviceInfo{
			ProductName:     version.Product,
			Manufacturer:    version.Manufacturer,
			SoftwareVersion: version.Version,
		},
		OnStateChange: func(state unison.PlayerState) {
			connected := state.Connected
			muted := state.Muted
			updateTUI(ui.StatusMsg{
				Connected:  &connected,
				ServerName: serverAddress,
				State:      state.State,
				Codec:      state.Codec,
				SampleRate: state.SampleRate,
				Channels:   state.Channels,
				BitDepth:   state.BitDepth,
				Volume:     state.Volume,
				Muted:      &muted,
			})
			if collector != nil {
				collector.SetConnected(state.Connected)
				collector.SetVolume(state.Volume, state.Muted)
			}
		},
		OnMetadata: func(meta unison.Metadata) {
			updateTUI(ui.StatusMsg{
				Title:       meta.Title,
				Artist:      meta.Artist,
				Album:       meta.Album,
				ArtworkPath: meta.ArtworkPath,
			})
		},
		OnError: func(err error) {
			log.Printf("Player error: %v", err)
		},
	}

	player, err := unison.NewPlayer(playerCfg)
	if err != nil {
		log.Fatalf("Failed to create player: %v", err)
	}

	// Connect to server
	if err := player.Connect(); err != nil {
		log.Fatalf("Connection failed: %v", err)
	}

	log.Printf("Connected to server: %s", serverAddress)

	// Start volume control handler if TUI is enabled
	if volumeCtrl != nil {
		go handleVolumeControl(player, volumeCtrl)
	}

	// Start stats update loop for TUI and metrics
	if tuiProg != nil || collector != nil {
		go statsUpdateLoop(player, updateTUI, collector)
	}

	// Handle shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// Wait for quit signal from TUI or OS
	if volumeCtrl != nil {
		select {
		case <-volumeCtrl.Quit:
			log.Printf("Received quit signal from TUI")
		case <-sigChan:
			log.Printf("Shutdown signal received")
		}
	} else {
		<-sigChan
		log.Printf("Shutdown signal received")
	}

	// Close player
	if err := player.Close(); err != nil {
		log.Printf("Error closing player: %v", err)
	}

	log.Printf("Player stopped")
}

// handleVolumeControl processes volume changes from TUI
func handleVolumeControl(player *unison.Player, volumeCtrl *ui.VolumeControl) {
	for vol := range volumeCtrl.Changes {
		log.Printf("Volume change: %d%%, muted=%v", vol.Volume, vol.Muted)
		player.SetVolume(vol.Volume)
		player.Mute(vol.Muted)
	}
}

// statsUpdateLoop periodically pushes playback statistics to the TUI
// and the Prometheus collector
func statsUpdateLoop(player *unison.Player, updateTUI func(ui.StatusMsg), collector *metrics.Metrics) {
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	// Use a slower ticker for expensive runtime stats to avoid GC pauses
	runtimeStatsTicker := time.NewTicker(2 * time.Second)
	defer runtimeStatsTicker.Stop()

	var lastGoroutines int
	var lastMemAlloc, lastMemSys uint64

	for {
		select {
		case <-runtimeStatsTicker.C:
			// Collect runtime stats less frequently (every 2 seconds)
			var m runtime.MemStats
			runtime.ReadMemStats(&m)
			lastGoroutines = runtime.NumGoroutine()
			lastMemAlloc = m.Alloc
			lastMemSys = m.Sys

		case <-ticker.C:
			stats := player.Stats()

			updateTUI(ui.StatusMsg{
				Received:    stats.Received,
				Played:      stats.Played,
				Dropped:     stats.Dropped,
				BufferDepth: stats.BufferDepth,
				SyncOffset:  stats.SyncOffset,
				SyncError:   stats.SyncError,
				SyncRTT:     stats.SyncRTT,
				SyncJitter:  stats.JitterMicros,
				DriftPPM:    stats.DriftPPM,
				SyncQuality: stats.SyncQuality,
				BurstProbes: stats.Tuning.BurstCount,
				BurstEvery:  stats.Tuning.Interval,
				Goroutines:  lastGoroutines,
				MemAlloc:    lastMemAlloc,
				MemSys:      lastMemSys,
			})

			if collector != nil {
				collector.SetSyncState(stats.SyncOffset, stats.SyncError, stats.SyncRTT,
					stats.DriftPPM, stats.JitterMicros)
				collector.SetSyncQuality(stats.SyncQuality.String())
				collector.SetTuning(stats.Tuning.BurstCount, stats.Tuning.Interval)
				collector.SetPlayback(stats.Received, stats.Played, stats.Dropped,
					time.Duration(stats.BufferDepth)*time.Millisecond)
				collector.SetFrames(stats.Frames.Audio, stats.Frames.Artwork,
					stats.Frames.Visualizer, stats.Frames.Unknown, stats.Frames.Malformed)
			}
		}
	}
}
