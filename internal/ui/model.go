// ABOUTME: Bubbletea model for player TUI
// ABOUTME: Defines application state and update logic
package ui

import (
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Unison-Protocol/unison-go/pkg/timesync"
)

// Model represents the TUI state
type Model struct {
	// Connection
	connected  bool
	serverName string

	// Sync
	syncOffset  int64
	syncError   int64
	syncRTT     int64
	syncJitter  int64
	driftPPM    float64
	syncQuality timesync.Quality
	burstProbes int
	burstEvery  time.Duration

	// Stream
	codec      string
	sampleRate int
	channels   int
	bitDepth   int

	// Metadata
	title       string
	artist      string
	album       string
	artworkPath string

	// Playback
	state  string
	volume int
	muted  bool

	// Stats
	received    int64
	played      int64
	dropped     int64
	bufferDepth int

	// Runtime
	goroutines int
	memAlloc   uint64
	memSys     uint64

	// Debug
	showDebug bool

	// Control
	volumeCtrl *VolumeControl

	// Dimensions
	width  int
	height int
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	case StatusMsg:
		m.applyStatus(msg)
	}

	return m, nil
}

// View renders the TUI
func (m Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	s := ""
	s += m.renderHeader()
	s += m.renderStreamInfo()
	s += m.renderControls()
	s += m.renderStats()

	if m.showDebug {
		s += m.renderDebug()
	}

	s += m.renderHelp()

	return s
}

// renderHeader renders connection and sync status
func (m Model) renderHeader() string {
	connStatus := "Disconnected"
	if m.connected {
		connStatus = fmt.Sprintf("Connected to %s", m.serverName)
	}

	syncIcon := "✗"
	syncText := "Lost"
	switch m.syncQuality {
	case timesync.QualityGood:
		syncIcon = "✓"
		syncText = fmt.Sprintf("Synced (offset: %+.1fms, rtt: %.1fms)",
			float64(m.syncOffset)/1000.0, float64(m.syncRTT)/1000.0)
	case timesync.QualityDegraded:
		syncIcon = "⚠"
		syncText = "Degraded"
	}

	return fmt.Sprintf(`┌─ Unison Player ──────────────────────────────────────┐
│ Status: %-45s │
│ Sync:   %s %-42s │
├──────────────────────────────────────────────────────┤
`, connStatus, syncIcon, syncText)
}

// renderStreamInfo renders current stream and metadata
func (m Model) renderStreamInfo() string {
	if !m.connected || m.codec == "" {
		return "│ No stream                                            │\n"
	}

	s := "│ Now Playing:                                         │\n"
	if m.title != "" {
		s += fmt.Sprintf("│   Track:  %-42s │\n", truncate(m.title, 42))
		s += fmt.Sprintf("│   Artist: %-42s │\n", truncate(m.artist, 42))
		s += fmt.Sprintf("│   Album:  %-42s │\n", truncate(m.album, 42))
	} else {
		s += "│   (No metadata)                                      │\n"
	}

	s += "│                                                      │\n"
	s += fmt.Sprintf("│ Format: %s %dHz %s %d-bit%-17s │\n",
		m.codec, m.sampleRate, channelName(m.channels), m.bitDepth, "")

	return s
}

// renderControls renders playback state, volume, and buffer status
func (m Model) renderControls() string {
	muteIcon := ""
	if m.muted {
		muteIcon = " (muted)"
	}

	volumeBar := renderBar(m.volume, 100, 10)

	return fmt.Sprintf("│                                                      │\n"+
		"│ State:  %-45s│\n"+
		"│ Volume: [%s] %d%%%s%-17s │\n"+
		"│ Buffer: %dms (%d chunks)%-24s │\n",
		m.state,
		volumeBar, m.volume, muteIcon, "",
		m.bufferDepth, m.bufferDepth/10, "")
}

// renderStats renders playback statistics
func (m Model) renderStats() string {
	return fmt.Sprintf(`├──────────────────────────────────────────────────────┤
│ Stats:  RX: %d  Played: %d  Dropped: %d%-8s │
│                                                      │
`, m.received, m.played, m.dropped, "")
}

// renderHelp renders keyboard shortcuts
func (m Model) renderHelp() string {
	return `│ ↑/↓:Volume  m:Mute  d:Debug  q:Quit                │
└──────────────────────────────────────────────────────┘
`
}

// renderDebug renders clock and runtime internals
func (m Model) renderDebug() string {
	return fmt.Sprintf(`├──────────────────────────────────────────────────────┤
│ Debug:                                               │
│   Goroutines: %-38d │
│   Heap:       %-38s │
│   Offset:     %-38s │
│   Drift:      %-38s │
│   Burst:      %-38s │
`,
		m.goroutines,
		fmt.Sprintf("%.1f MB alloc / %.1f MB sys",
			float64(m.memAlloc)/(1024*1024), float64(m.memSys)/(1024*1024)),
		fmt.Sprintf("%+dμs ±%dμs", m.syncOffset, m.syncError),
		fmt.Sprintf("%+.1f ppm, jitter %dμs", m.driftPPM, m.syncJitter),
		fmt.Sprintf("%d probes every %s", m.burstProbes, m.burstEvery),
	)
}

// handleKey handles keyboard input
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		m.sendQuit()
		return m, tea.Quit
	case "up":
		if m.volume < 100 {
			m.volume += 5
			if m.volume > 100 {
				m.volume = 100
			}
			m.sendVolumeChange()
		}
	case "down":
		if m.volume > 0 {
			m.volume -= 5
			if m.volume < 0 {
				m.volume = 0
			}
			m.sendVolumeChange()
		}
	case "m":
		m.muted = !m.muted
		m.sendVolumeChange()
	case "d":
		m.showDebug = !m.showDebug
	}

	return m, nil
}

// sendVolumeChange pushes the current volume state to the app loop
// without blocking the render loop.
func (m Model) sendVolumeChange() {
	if m.volumeCtrl == nil {
		return
	}
	select {
	case m.volumeCtrl.Changes <- VolumeChangeMsg{Volume: m.volume, Muted: m.muted}:
	default:
	}
}

// sendQuit notifies the app loop that the user asked to exit.
func (m Model) sendQuit() {
	if m.volumeCtrl == nil {
		return
	}
	select {
	case m.volumeCtrl.Quit <- QuitMsg{}:
	default:
	}
}

// applyStatus updates model from status message
func (m *Model) applyStatus(msg StatusMsg) {
	if msg.Connected != nil {
		m.connected = *msg.Connected
	}
	if msg.ServerName != "" {
		m.serverName = msg.ServerName
	}
	if msg.SyncOffset != 0 || msg.SyncRTT != 0 {
		m.syncOffset = msg.SyncOffset
		m.syncError = msg.SyncError
		m.syncRTT = msg.SyncRTT
		m.syncJitter = msg.SyncJitter
		m.driftPPM = msg.DriftPPM
		m.syncQuality = msg.SyncQuality
		m.burstProbes = msg.BurstProbes
		m.burstEvery = msg.BurstEvery
	}
	if msg.Codec != "" {
		m.codec = msg.Codec
		m.sampleRate = msg.SampleRate
		m.channels = msg.Channels
		m.bitDepth = msg.BitDepth
	}
	if msg.Title != "" {
		m.title = msg.Title
		m.artist = msg.Artist
		m.album = msg.Album
	}
	if msg.ArtworkPath != "" {
		m.artworkPath = msg.ArtworkPath
	}
	if msg.State != "" {
		m.state = msg.State
	}
	if msg.Volume != 0 {
		m.volume = msg.Volume
	}
	if msg.Muted != nil {
		m.muted = *msg.Muted
	}
	m.received = msg.Received
	m.played = msg.Played
	m.dropped = msg.Dropped
	m.bufferDepth = msg.BufferDepth
	m.goroutines = msg.Goroutines
	m.memAlloc = msg.MemAlloc
	m.memSys = msg.MemSys
}

// StatusMsg updates TUI state. Zero-valued fields are skipped except
// the stats block, which the app loop always sends complete.
type StatusMsg struct {
	Connected   *bool
	ServerName  string
	SyncOffset  int64
	SyncError   int64
	SyncRTT     int64
	SyncJitter  int64
	DriftPPM    float64
	SyncQuality timesync.Quality
	BurstProbes int
	BurstEvery  time.Duration
	Codec       string
	SampleRate  int
	Channels    int
	BitDepth    int
	Title       string
	Artist      string
	Album       string
	ArtworkPath string
	State       string
	Volume      int
	Muted       *bool
	Received    int64
	Played      int64
	Dropped     int64
	BufferDepth int
	Goroutines  int
	MemAlloc    uint64
	MemSys      uint64
}

// Utility functions
func renderBar(value, max, width int) string {
	filled := (value * width) / max
	bar := ""
	for i := 0; i < width; i++ {
		if i < filled {
			bar += "█"
		} else {
			bar += "░"
		}
	}
	return bar
}

func truncate(s string, length int) string {
	if len(s) <= length {
		return s
	}
	return s[:length-3] + "..."
}

func channelName(channels int) string {
	if channels == 1 {
		return "Mono"
	}
	return "Stereo"
}
