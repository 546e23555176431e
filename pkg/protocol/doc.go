// ABOUTME: Unison wire protocol package
// ABOUTME: Binary frame codec, JSON messages, and WebSocket client
// Package protocol implements the Unison wire protocol.
//
// Servers multiplex timestamped binary frames (audio, artwork,
// visualizer) and JSON control messages over one WebSocket. The Client
// decodes both planes and fans them out to typed channels.
//
// Example:
//
//	client := protocol.NewClient(protocol.Config{ServerAddr: "localhost:8930"})
//	err := client.Connect()
//	frame := <-client.AudioFrames
package protocol
