// ABOUTME: High-level Player API for Unison streaming
// ABOUTME: Wires transport, clock sync, decoding, scheduling and output together
package unison

import (
	"context"
	"encoding/base64"
	"fmt"
	"log"
	"sync"

	"github.com/Unison-Protocol/unison-go/pkg/artwork"
	"github.com/Unison-Protocol/unison-go/pkg/audio"
	"github.com/Unison-Protocol/unison-go/pkg/audio/decode"
	"github.com/Unison-Protocol/unison-go/pkg/audio/output"
	"github.com/Unison-Protocol/unison-go/pkg/audio/resample"
	"github.com/Unison-Protocol/unison-go/pkg/protocol"
	"github.com/Unison-Protocol/unison-go/pkg/timesync"
	"github.com/google/uuid"
)

// PlayerConfig holds player configuration
type PlayerConfig struct {
	// ServerAddr is the server address (host:port)
	ServerAddr string

	// PlayerName is the display name for this player
	PlayerName string

	// Volume is the initial volume (0-100, 0 means default 100)
	Volume int

	// DeviceInfo provides device identification
	DeviceInfo DeviceInfo

	// Sync tunes the clock sync controller. Zero values use defaults.
	Sync timesync.Config

	// EnableArtwork negotiates the artwork role and tracks channel frames
	EnableArtwork bool

	// EnableVisualizer negotiates the visualizer role
	EnableVisualizer bool

	// OnMetadata is called when track metadata changes
	OnMetadata func(Metadata)

	// OnStateChange is called when playback state changes
	OnStateChange func(PlayerState)

	// OnArtwork is called when a channel's artwork changes
	OnArtwork func(artwork.Image)

	// OnVisualizer is called for each visualizer frame
	OnVisualizer func(VisualizerFrame)

	// OnError is called when errors occur
	OnError func(error)
}

// DeviceInfo describes the player device
type DeviceInfo struct {
	ProductName     string
	Manufacturer    string
	SoftwareVersion string
}

// Metadata contains track information. ArtworkPath points at a locally
// cached copy of ArtworkURL when the download succeeded.
type Metadata struct {
	Title       string
	Artist      string
	Album       string
	AlbumArtist string
	ArtworkURL  string
	ArtworkPath string
	Track       int
	Year        int
	Duration    int // seconds
}

// VisualizerFrame is raw visualizer data with its server timestamp
type VisualizerFrame struct {
	Timestamp int64
	Data      []byte
}

// PlayerState describes the current player state
type PlayerState struct {
	State      string // "idle", "playing", "paused"
	Volume     int
	Muted      bool
	Codec      string
	SampleRate int
	Channels   int
	BitDepth   int
	Connected  bool
}

// PlayerStats merges scheduler, transport, and clock sync statistics
type PlayerStats struct {
	Received     int64
	Played       int64
	Dropped      int64
	BufferDepth  int // milliseconds
	Frames       protocol.FrameStats
	SyncOffset   int64
	SyncError    int64
	SyncRTT      int64
	DriftPPM     float64
	JitterMicros int64
	SyncQuality  timesync.Quality
	Tuning       timesync.Tuning
}

// Player provides synchronized audio playback from Unison servers
type Player struct {
	config PlayerConfig

	filter       *timesync.Filter
	output       output.Output
	artworkStore *artwork.Store
	downloader   *artwork.Downloader

	mu         sync.RWMutex
	client     *protocol.Client
	controller *timesync.Controller
	scheduler  *Scheduler
	decoder    decode.Decoder
	resampler  *resample.Resampler
	state      PlayerState

	ctx    context.Context
	cancel context.CancelFunc
}

// NewPlayer creates a player with the given configuration
func NewPlayer(config PlayerConfig) (*Player, error) {
	if config.Volume == 0 {
		config.Volume = 100
	}
	if config.DeviceInfo.ProductName == "" {
		config.DeviceInfo.ProductName = "Unison Player"
	}
	if config.DeviceInfo.Manufacturer == "" {
		config.DeviceInfo.Manufacturer = "Unison"
	}
	if config.DeviceInfo.SoftwareVersion == "" {
		config.DeviceInfo.SoftwareVersion = "1.0.0"
	}

	ctx, cancel := context.WithCancel(context.Background())

	player := &Player{
		config: config,
		filter: timesync.NewFilter(),
		output: output.NewOto(),
		ctx:    ctx,
		cancel: cancel,
		state: PlayerState{
			State:  "idle",
			Volume: config.Volume,
		},
	}

	if oto, ok := player.output.(*output.Oto); ok {
		oto.SetVolume(config.Volume)
	}

	if config.EnableArtwork {
		store, err := artwork.NewStore(config.OnArtwork)
		if err != nil {
			cancel()
			return nil, fmt.Errorf("failed to create artwork store: %w", err)
		}
		player.artworkStore = store
	}

	if config.OnMetadata != nil {
		dl, err := artwork.NewDownloader()
		if err != nil {
			log.Printf("Artwork downloader unavailable: %v", err)
		} else {
			player.downloader = dl
		}
	}

	return player, nil
}

// Connect establishes the server connection and starts all player loops
func (p *Player) Connect() error {
	if p.Status().Connected {
		return fmt.Errorf("already connected")
	}

	clientConfig := protocol.Config{
		ServerAddr: p.config.ServerAddr,
		ClientID:   uuid.New().String(),
		Name:       p.config.PlayerName,
		Version:    1,
		DeviceInfo: protocol.DeviceInfo{
			ProductName:     p.config.DeviceInfo.ProductName,
			Manufacturer:    p.config.DeviceInfo.Manufacturer,
			SoftwareVersion: p.config.DeviceInfo.SoftwareVersion,
		},
		PlayerV1Support: protocol.PlayerV1Support{
			// Hi-res formats first, compressed fallbacks last
			SupportedFormats: []protocol.AudioFormat{
				{Codec: "pcm", Channels: 2, SampleRate: 192000, BitDepth: 24},
				{Codec: "pcm", Channels: 2, SampleRate: 176400, BitDepth: 24},
				{Codec: "pcm", Channels: 2, SampleRate: 96000, BitDepth: 24},
				{Codec: "pcm", Channels: 2, SampleRate: 88200, BitDepth: 24},
				{Codec: "pcm", Channels: 2, SampleRate: 48000, BitDepth: 16},
				{Codec: "pcm", Channels: 2, SampleRate: 44100, BitDepth: 16},
				{Codec: "opus", Channels: 2, SampleRate: 48000, BitDepth: 16},
				{Codec: "mp3", Channels: 2, SampleRate: 44100, BitDepth: 16},
			},
			BufferCapacity:    1048576,
			SupportedCommands: []string{"volume", "mute"},
		},
	}

	if p.config.EnableArtwork {
		clientConfig.ArtworkV1Support = &protocol.ArtworkV1Support{
			Channels: []protocol.ArtworkChannel{
				{Source: "album", Format: "jpeg", MediaWidth: 600, MediaHeight: 600},
				{Source: "artist", Format: "jpeg", MediaWidth: 600, MediaHeight: 600},
			},
		}
	}
	if p.config.EnableVisualizer {
		clientConfig.VisualizerV1Support = &protocol.VisualizerV1Support{
			BufferCapacity: 1048576,
		}
	}

	client := protocol.NewClient(clientConfig)
	if err := client.Connect(); err != nil {
		return fmt.Errorf("connection failed: %w", err)
	}

	controller := timesync.NewController(p.config.Sync, client.SendTimeProbe, p.filter)
	scheduler := NewScheduler(p.filter)

	p.mu.Lock()
	p.client = client
	p.controller = controller
	p.scheduler = scheduler
	p.state.Connected = true
	state := p.state
	p.mu.Unlock()

	log.Printf("Connected to server: %s", p.config.ServerAddr)
	p.notifyStateChange(state)

	controller.Start(p.ctx)

	go scheduler.Run()
	go p.syncLoop()
	go p.audioLoop()
	go p.playbackLoop()
	go p.streamLoop()
	go p.controlLoop()
	go p.stateLoop()
	go p.artworkLoop()

	return nil
}

// syncLoop feeds time measurements into the sync controller
func (p *Player) syncLoop() {
	for {
		select {
		case m := <-p.client.TimeMeasurements:
			p.controller.Feed(m)

		case <-p.ctx.Done():
			return
		}
	}
}

// audioLoop decodes audio frames and hands them to the scheduler
func (p *Player) audioLoop() {
	for {
		select {
		case frame := <-p.client.AudioFrames:
			p.mu.RLock()
			dec := p.decoder
			rs := p.resampler
			p.mu.RUnlock()

			if dec == nil {
				continue
			}

			pcm, err := dec.Decode(frame.Payload)
			if err != nil {
				p.notifyError(fmt.Errorf("decode error: %w", err))
				continue
			}

			if rs != nil {
				out := make([]int32, rs.OutputSamplesNeeded(len(pcm)))
				n := rs.Resample(pcm, out)
				pcm = out[:n]
			}

			p.scheduler.Schedule(audio.Buffer{
				Timestamp: frame.Timestamp,
				Samples:   pcm,
			})

		case <-p.ctx.Done():
			return
		}
	}
}

// playbackLoop writes released buffers to the output device
func (p *Player) playbackLoop() {
	for {
		select {
		case buf := <-p.scheduler.Output():
			if err := p.output.Write(buf.Samples); err != nil {
				p.notifyError(fmt.Errorf("playback error: %w", err))
			}

		case <-p.ctx.Done():
			return
		}
	}
}

// streamLoop reacts to stream lifecycle messages
func (p *Player) streamLoop() {
	for {
		select {
		case start := <-p.client.StreamStart:
			if start.Player == nil {
				log.Printf("Received stream/start with no player section")
				continue
			}
			p.startStream(start.Player)

		case <-p.client.StreamClear:
			log.Printf("Stream clear: flushing queued audio")
			p.scheduler.Flush()

		case <-p.client.StreamEnd:
			log.Printf("Stream ended")
			p.endStream()

		case <-p.ctx.Done():
			return
		}
	}
}

// controlLoop applies server commands and group updates
func (p *Player) controlLoop() {
	for {
		select {
		case cmd := <-p.client.ControlMsgs:
			switch cmd.Command {
			case "volume":
				p.SetVolume(cmd.Volume)
			case "mute":
				p.Mute(cmd.Mute)
			default:
				log.Printf("Ignoring unsupported command: %s", cmd.Command)
			}

		case upd := <-p.client.GroupUpdate:
			if upd.PlaybackState != nil {
				p.applyPlaybackState(*upd.PlaybackState)
			}

		case <-p.ctx.Done():
			return
		}
	}
}

// stateLoop processes server state updates
func (p *Player) stateLoop() {
	for {
		select {
		case st := <-p.client.ServerState:
			if st.Metadata != nil {
				p.handleMetadata(st.Metadata)
			}

		case <-p.ctx.Done():
			return
		}
	}
}

// artworkLoop routes artwork and visualizer frames
func (p *Player) artworkLoop() {
	for {
		select {
		case frame := <-p.client.ArtworkFrames:
			if p.artworkStore != nil {
				p.artworkStore.Apply(frame)
			}

		case frame := <-p.client.VisualizerFrames:
			if p.config.OnVisualizer != nil {
				p.config.OnVisualizer(VisualizerFrame{
					Timestamp: frame.Timestamp,
					Data:      frame.Payload,
				})
			}

		case <-p.ctx.Done():
			return
		}
	}
}

// startStream sets up the decoder and output for a new stream format
func (p *Player) startStream(sp *protocol.StreamStartPlayer) {
	log.Printf("Stream starting: %s %dHz %dch %dbit",
		sp.Codec, sp.SampleRate, sp.Channels, sp.BitDepth)

	var header []byte
	if sp.CodecHeader != "" {
		h, err := base64.StdEncoding.DecodeString(sp.CodecHeader)
		if err != nil {
			p.notifyError(fmt.Errorf("invalid codec header: %w", err))
			return
		}
		header = h
	}

	format := audio.Format{
		Codec:       sp.Codec,
		SampleRate:  sp.SampleRate,
		Channels:    sp.Channels,
		BitDepth:    sp.BitDepth,
		CodecHeader: header,
	}

	dec, err := newDecoder(format)
	if err != nil {
		p.notifyError(fmt.Errorf("failed to create decoder: %w", err))
		return
	}

	if err := p.output.Open(format.SampleRate, format.Channels, format.BitDepth); err != nil {
		dec.Close()
		p.notifyError(fmt.Errorf("failed to open audio output: %w", err))
		return
	}

	// The device context keeps the first stream's rate; resample later
	// streams that negotiate a different one.
	var rs *resample.Resampler
	if oto, ok := p.output.(*output.Oto); ok {
		if deviceRate := oto.SampleRate(); deviceRate != 0 && deviceRate != format.SampleRate {
			log.Printf("Resampling %dHz stream to %dHz device rate", format.SampleRate, deviceRate)
			rs = resample.New(format.SampleRate, deviceRate, format.Channels)
		}
	}

	p.scheduler.Flush()

	p.mu.Lock()
	if p.decoder != nil {
		p.decoder.Close()
	}
	p.decoder = dec
	p.resampler = rs
	p.state.Codec = format.Codec
	p.state.SampleRate = format.SampleRate
	p.state.Channels = format.Channels
	p.state.BitDepth = format.BitDepth
	p.state.State = "playing"
	state := p.state
	p.mu.Unlock()

	p.notifyStateChange(state)
}

// endStream tears down the current stream
func (p *Player) endStream() {
	p.scheduler.Flush()

	p.mu.Lock()
	if p.decoder != nil {
		p.decoder.Close()
		p.decoder = nil
	}
	p.resampler = nil
	p.state.State = "idle"
	state := p.state
	p.mu.Unlock()

	if p.artworkStore != nil {
		p.artworkStore.Clear()
	}

	p.notifyStateChange(state)
}

// newDecoder picks the decoder for a negotiated format
func newDecoder(format audio.Format) (decode.Decoder, error) {
	switch format.Codec {
	case "pcm":
		return decode.NewPCM(format)
	case "opus":
		return decode.NewOpus(format)
	case "mp3":
		return decode.NewMP3(format)
	default:
		return nil, fmt.Errorf("unsupported codec: %s", format.Codec)
	}
}

// handleMetadata converts server metadata and fires the callback
func (p *Player) handleMetadata(m *protocol.MetadataState) {
	if p.config.OnMetadata == nil {
		return
	}

	meta := Metadata{
		Title:       strVal(m.Title),
		Artist:      strVal(m.Artist),
		Album:       strVal(m.Album),
		AlbumArtist: strVal(m.AlbumArtist),
		ArtworkURL:  strVal(m.ArtworkURL),
		Track:       intVal(m.Track),
		Year:        intVal(m.Year),
	}
	if m.Progress != nil {
		meta.Duration = m.Progress.TrackDuration / 1000
	}

	if meta.ArtworkURL != "" && p.downloader != nil {
		path, err := p.downloader.Download(meta.ArtworkURL)
		if err != nil {
			log.Printf("Artwork download failed: %v", err)
		} else {
			meta.ArtworkPath = path
		}
	}

	p.config.OnMetadata(meta)
}

// applyPlaybackState maps a group playback state onto the player state
func (p *Player) applyPlaybackState(playback string) {
	p.mu.Lock()
	switch playback {
	case "playing":
		p.state.State = "playing"
	case "paused":
		p.state.State = "paused"
	case "stopped":
		p.state.State = "idle"
	}
	state := p.state
	p.mu.Unlock()

	p.notifyStateChange(state)
}

// SetVolume sets the volume (0-100)
func (p *Player) SetVolume(volume int) error {
	if volume < 0 {
		volume = 0
	}
	if volume > 100 {
		volume = 100
	}

	p.mu.Lock()
	p.state.Volume = volume
	state := p.state
	p.mu.Unlock()

	if oto, ok := p.output.(*output.Oto); ok {
		oto.SetVolume(volume)
	}

	p.sendPlayerState(state)
	p.notifyStateChange(state)
	return nil
}

// Mute sets the mute state
func (p *Player) Mute(muted bool) error {
	p.mu.Lock()
	p.state.Muted = muted
	state := p.state
	p.mu.Unlock()

	if oto, ok := p.output.(*output.Oto); ok {
		oto.SetMuted(muted)
	}

	p.sendPlayerState(state)
	p.notifyStateChange(state)
	return nil
}

// sendPlayerState reports volume and mute back to the server
func (p *Player) sendPlayerState(state PlayerState) {
	p.mu.RLock()
	client := p.client
	p.mu.RUnlock()

	if client == nil || !state.Connected {
		return
	}

	err := client.SendState(protocol.PlayerState{
		State:  "synchronized",
		Volume: state.Volume,
		Muted:  state.Muted,
	})
	if err != nil {
		log.Printf("Failed to send player state: %v", err)
	}
}

// Artwork returns the current image for an artwork channel
func (p *Player) Artwork(channel int) (artwork.Image, bool) {
	if p.artworkStore == nil {
		return artwork.Image{}, false
	}
	return p.artworkStore.Current(channel)
}

// Status returns the current player state
func (p *Player) Status() PlayerState {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.state
}

// Stats returns playback and clock sync statistics
func (p *Player) Stats() PlayerStats {
	p.mu.RLock()
	scheduler := p.scheduler
	controller := p.controller
	client := p.client
	p.mu.RUnlock()

	stats := PlayerStats{}

	if scheduler != nil {
		s := scheduler.Stats()
		stats.Received = s.Received
		stats.Played = s.Played
		stats.Dropped = s.Dropped
		stats.BufferDepth = scheduler.BufferDepth()
	}

	if client != nil {
		stats.Frames = client.FrameStats()
	}

	stats.SyncOffset = p.filter.OffsetMicros()
	stats.SyncError = p.filter.ErrorMicros()
	stats.SyncRTT = p.filter.LastRTTMicros()
	stats.DriftPPM = p.filter.DriftPPM()
	stats.SyncQuality = p.filter.CheckQuality()

	if controller != nil {
		stats.JitterMicros = controller.JitterMicros()
		stats.Tuning = controller.Tuning()
	}

	return stats
}

// Close shuts the player down and releases all resources
func (p *Player) Close() error {
	p.cancel()

	p.mu.Lock()
	client := p.client
	controller := p.controller
	scheduler := p.scheduler
	decoder := p.decoder
	p.decoder = nil
	p.mu.Unlock()

	if controller != nil {
		controller.Stop()
	}

	if client != nil {
		if client.IsConnected() {
			if err := client.SendGoodbye("shutdown"); err != nil {
				log.Printf("Failed to send goodbye: %v", err)
			}
		}
		client.Close()
	}

	if scheduler != nil {
		scheduler.Stop()
	}
	if decoder != nil {
		decoder.Close()
	}
	if p.output != nil {
		p.output.Close()
	}

	p.mu.Lock()
	p.state.Connected = false
	p.state.State = "idle"
	state := p.state
	p.mu.Unlock()

	p.notifyStateChange(state)
	return nil
}

// notifyStateChange calls the OnStateChange callback if set
func (p *Player) notifyStateChange(state PlayerState) {
	if p.config.OnStateChange != nil {
		p.config.OnStateChange(state)
	}
}

// notifyError calls the OnError callback if set
func (p *Player) notifyError(err error) {
	if p.config.OnError != nil {
		p.config.OnError(err)
	} else {
		log.Printf("Player error: %v", err)
	}
}

func strVal(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func intVal(i *int) int {
	if i == nil {
		return 0
	}
	return *i
}
