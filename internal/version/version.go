// ABOUTME: Build identity constants for the player
// ABOUTME: Reported to servers in the device info of client/hello
package version

const (
	// Product is the product name reported to servers
	Product = "Unison Player"

	// Manufacturer is the device manufacturer
	Manufacturer = "Unison Protocol"

	// Version is the software version
	Version = "0.3.0"
)
