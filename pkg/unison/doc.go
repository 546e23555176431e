// ABOUTME: High-level Unison client library API
// ABOUTME: Provides the Player type most applications should start from
// Package unison provides the high-level client API for Unison audio
// streaming.
//
// A Player connects to a server, keeps its clock synchronized, decodes the
// negotiated stream and plays each chunk at the server-scheduled time. For
// lower-level control see the protocol, timesync, audio and discovery
// packages.
//
// Example:
//
//	player, err := unison.NewPlayer(unison.PlayerConfig{
//	    ServerAddr: "localhost:8930",
//	    PlayerName: "Living Room",
//	    Volume:     80,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := player.Connect(); err != nil {
//	    log.Fatal(err)
//	}
//	defer player.Close()
package unison
