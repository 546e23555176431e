// ABOUTME: WebSocket client for Unison Protocol communication
// ABOUTME: Handles connection, handshake, time probes, and message routing
package protocol

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Unison-Protocol/unison-go/pkg/timesync"
)

const (
	// WSPath is the WebSocket endpoint path on Unison servers
	WSPath = "/unison"

	// DefaultPort is the default Unison server port
	DefaultPort = 8930
)

// Config holds client configuration
type Config struct {
	ServerAddr          string
	ClientID            string
	Name                string
	Version             int
	DeviceInfo          DeviceInfo
	PlayerV1Support     PlayerV1Support
	ArtworkV1Support    *ArtworkV1Support
	VisualizerV1Support *VisualizerV1Support
}

// FrameStats counts binary frames seen by the reader since Connect.
type FrameStats struct {
	Audio      int64
	Artwork    int64
	Visualizer int64
	Unknown    int64
	Malformed  int64
}

// Client is the WebSocket transport. A single reader goroutine decodes
// every incoming message and fans it out to the typed channels.
type Client struct {
	config  Config
	conn    *websocket.Conn
	mu      sync.RWMutex
	writeMu sync.Mutex

	// Binary frame channels, one per frame kind
	AudioFrames      chan BinaryFrame
	ArtworkFrames    chan BinaryFrame
	VisualizerFrames chan BinaryFrame

	// Completed time exchanges, stamped at receipt
	TimeMeasurements chan timesync.Measurement

	// Control plane channels
	ControlMsgs chan PlayerCommand
	StreamStart chan StreamStart
	StreamClear chan StreamClear
	StreamEnd   chan StreamEnd
	ServerState chan ServerStateMessage
	GroupUpdate chan GroupUpdate

	// Frame counters, written by the reader goroutine
	framesAudio      atomic.Int64
	framesArtwork    atomic.Int64
	framesVisualizer atomic.Int64
	framesUnknown    atomic.Int64
	framesMalformed  atomic.Int64

	// State
	connected bool
	ctx       context.Context
	cancel    context.CancelFunc
}

// NewClient creates a new WebSocket client
func NewClient(config Config) *Client {
	ctx, cancel := context.WithCancel(context.Background())

	return &Client{
		config:           config,
		AudioFrames:      make(chan BinaryFrame, 100),
		ArtworkFrames:    make(chan BinaryFrame, 8),
		VisualizerFrames: make(chan BinaryFrame, 32),
		TimeMeasurements: make(chan timesync.Measurement, 32),
		ControlMsgs:      make(chan PlayerCommand, 10),
		StreamStart:      make(chan StreamStart, 4),
		StreamClear:      make(chan StreamClear, 10),
		StreamEnd:        make(chan StreamEnd, 4),
		ServerState:      make(chan ServerStateMessage, 10),
		GroupUpdate:      make(chan GroupUpdate, 10),
		ctx:              ctx,
		cancel:           cancel,
	}
}

// Connect establishes the WebSocket connection and performs the handshake
func (c *Client) Connect() error {
	u := url.URL{Scheme: "ws", Host: c.config.ServerAddr, Path: WSPath}
	log.Printf("Connecting to %s", u.String())

	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		return fmt.Errorf("dial failed: %w", err)
	}

	c.mu.Lock()
	c.conn = conn
	c.connected = true
	c.mu.Unlock()

	if err := c.handshake(); err != nil {
		c.Close()
		return fmt.Errorf("handshake failed: %w", err)
	}

	go c.readMessages()

	return nil
}

// handshake sends client/hello, waits for server/hello, and reports
// the initial client state.
func (c *Client) handshake() error {
	roles := []string{"player@v1", "metadata@v1"}
	if c.config.ArtworkV1Support != nil {
		roles = append(roles, "artwork@v1")
	}
	if c.config.VisualizerV1Support != nil {
		roles = append(roles, "visualizer@v1")
	}

	hello := ClientHello{
		ClientID:            c.config.ClientID,
		Name:                c.config.Name,
		Version:             c.config.Version,
		SupportedRoles:      roles,
		DeviceInfo:          &c.config.DeviceInfo,
		PlayerV1Support:     &c.config.PlayerV1Support,
		ArtworkV1Support:    c.config.ArtworkV1Support,
		VisualizerV1Support: c.config.VisualizerV1Support,
	}

	if err := c.sendJSON(Message{Type: "client/hello", Payload: hello}); err != nil {
		return fmt.Errorf("failed to send client/hello: %w", err)
	}

	// Wait for server/hello (with timeout)
	c.conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, data, err := c.conn.ReadMessage()
	if err != nil {
		return fmt.Errorf("failed to read server/hello: %w", err)
	}
	c.conn.SetReadDeadline(time.Time{})

	var serverMsg Message
	if err := json.Unmarshal(data, &serverMsg); err != nil {
		return fmt.Errorf("failed to parse server/hello: %w", err)
	}
	if serverMsg.Type != "server/hello" {
		return fmt.Errorf("expected server/hello, got %s", serverMsg.Type)
	}

	log.Printf("Handshake complete with server")

	state := ClientStateMessage{
		Player: &PlayerState{
			State:  "synchronized",
			Volume: 100,
			Muted:  false,
		},
	}
	if err := c.sendJSON(Message{Type: "client/state", Payload: state}); err != nil {
		return fmt.Errorf("failed to send initial state: %w", err)
	}

	return nil
}

// sendJSON sends a JSON message. Writes are serialized; the websocket
// connection allows only one concurrent writer.
func (c *Client) sendJSON(msg Message) error {
	c.mu.RLock()
	conn, connected := c.conn, c.connected
	c.mu.RUnlock()

	if !connected {
		return fmt.Errorf("not connected")
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return conn.WriteJSON(msg)
}

// readMessages reads and routes incoming messages
func (c *Client) readMessages() {
	defer c.Close()

	for {
		select {
		case <-c.ctx.Done():
			return
		default:
		}

		messageType, data, err := c.conn.ReadMessage()
		if err != nil {
			log.Printf("Read error: %v", err)
			return
		}

		if messageType == websocket.BinaryMessage {
			c.handleBinaryMessage(data)
		} else if messageType == websocket.TextMessage {
			c.handleJSONMessage(data)
		} else {
			log.Printf("Unknown WebSocket message type: %d", messageType)
		}
	}
}

// handleBinaryMessage decodes a binary frame and routes it by kind.
// Short and unknown frames are dropped; the stream continues.
func (c *Client) handleBinaryMessage(data []byte) {
	frame, ok := DecodeBinaryFrame(data)
	if !ok {
		c.framesMalformed.Add(1)
		log.Printf("Dropping binary frame: %d bytes, shorter than header", len(data))
		return
	}

	var ch chan BinaryFrame
	switch frame.Kind {
	case FrameAudio:
		c.framesAudio.Add(1)
		ch = c.AudioFrames
	case FrameArtwork:
		c.framesArtwork.Add(1)
		ch = c.ArtworkFrames
	case FrameVisualizer:
		c.framesVisualizer.Add(1)
		ch = c.VisualizerFrames
	default:
		c.framesUnknown.Add(1)
		log.Printf("Ignoring unknown binary frame type %d (%d bytes)", frame.RawType, len(data))
		return
	}

	select {
	case ch <- frame:
	case <-c.ctx.Done():
	}
}

// handleJSONMessage routes control plane messages by type
func (c *Client) handleJSONMessage(data []byte) {
	// t4 for server/time responses, stamped before decoding
	receivedAt := time.Now().UnixMicro()

	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		log.Printf("Failed to parse JSON message: %v", err)
		return
	}

	payloadBytes, _ := json.Marshal(msg.Payload)

	switch msg.Type {
	case "server/command":
		var cmdMsg ServerCommandMessage
		if err := json.Unmarshal(payloadBytes, &cmdMsg); err != nil {
			log.Printf("Failed to parse server/command: %v", err)
			return
		}
		if cmdMsg.Player != nil {
			select {
			case c.ControlMsgs <- *cmdMsg.Player:
			case <-c.ctx.Done():
			}
		}

	case "server/time":
		var timeMsg ServerTime
		if err := json.Unmarshal(payloadBytes, &timeMsg); err != nil {
			log.Printf("Failed to parse server/time: %v", err)
			return
		}
		m := timesync.MeasurementFromExchange(
			timeMsg.ClientTransmitted,
			timeMsg.ServerReceived,
			timeMsg.ServerTransmitted,
			receivedAt,
		)
		select {
		case c.TimeMeasurements <- m:
		case <-c.ctx.Done():
		}

	case "stream/start":
		var start StreamStart
		if err := json.Unmarshal(payloadBytes, &start); err != nil {
			log.Printf("Failed to parse stream/start: %v", err)
			return
		}
		select {
		case c.StreamStart <- start:
		case <-c.ctx.Done():
		}

	case "stream/clear":
		var clear StreamClear
		if err := json.Unmarshal(payloadBytes, &clear); err != nil {
			log.Printf("Failed to parse stream/clear: %v", err)
			return
		}
		select {
		case c.StreamClear <- clear:
		case <-c.ctx.Done():
		}

	case "stream/end":
		var end StreamEnd
		if err := json.Unmarshal(payloadBytes, &end); err != nil {
			log.Printf("Failed to parse stream/end: %v", err)
			return
		}
		select {
		case c.StreamEnd <- end:
		case <-c.ctx.Done():
		}

	case "server/state":
		var state ServerStateMessage
		if err := json.Unmarshal(payloadBytes, &state); err != nil {
			log.Printf("Failed to parse server/state: %v", err)
			return
		}
		if state.Metadata != nil {
			log.Printf("Metadata: %v - %v (%v)",
				derefString(state.Metadata.Artist),
				derefString(state.Metadata.Title),
				derefString(state.Metadata.Album))
		}
		select {
		case c.ServerState <- state:
		case <-time.After(100 * time.Millisecond):
			log.Printf("Server state channel full, dropping message")
		}

	case "group/update":
		var update GroupUpdate
		if err := json.Unmarshal(payloadBytes, &update); err != nil {
			log.Printf("Failed to parse group/update: %v", err)
			return
		}
		log.Printf("Group update: id=%v, state=%v",
			derefString(update.GroupID),
			derefString(update.PlaybackState))
		select {
		case c.GroupUpdate <- update:
		case <-time.After(100 * time.Millisecond):
			log.Printf("Group update channel full, dropping message")
		}

	default:
		log.Printf("Unknown message type: %s", msg.Type)
	}
}

// derefString safely dereferences a string pointer
func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// SendTimeProbe sends one client/time probe, stamping the transmit
// time at the moment of the call. The matching measurement arrives on
// TimeMeasurements once the server responds.
func (c *Client) SendTimeProbe() error {
	msg := Message{
		Type: "client/time",
		Payload: ClientTime{
			ClientTransmitted: time.Now().UnixMicro(),
		},
	}
	return c.sendJSON(msg)
}

// SendState sends a client/state message
func (c *Client) SendState(state PlayerState) error {
	msg := Message{
		Type: "client/state",
		Payload: ClientStateMessage{
			Player: &state,
		},
	}
	return c.sendJSON(msg)
}

// SendGoodbye sends a client/goodbye message before disconnecting
func (c *Client) SendGoodbye(reason string) error {
	msg := Message{
		Type: "client/goodbye",
		Payload: ClientGoodbye{
			Reason: reason,
		},
	}
	return c.sendJSON(msg)
}

// Close closes the connection
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.connected {
		c.connected = false
		c.cancel()
		c.conn.Close()
		log.Printf("Connection closed")
	}
}

// IsConnected returns connection status
func (c *Client) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected
}

// FrameStats returns cumulative binary frame counts.
func (c *Client) FrameStats() FrameStats {
	return FrameStats{
		Audio:      c.framesAudio.Load(),
		Artwork:    c.framesArtwork.Load(),
		Visualizer: c.framesVisualizer.Load(),
		Unknown:    c.framesUnknown.Load(),
		Malformed:  c.framesMalformed.Load(),
	}
}
