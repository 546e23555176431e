// ABOUTME: Audio output package for playing decoded PCM
// ABOUTME: Provides the Output interface and the oto implementation
// Package output plays decoded PCM through the system audio device.
//
// The Oto implementation streams samples through a persistent player so
// chunk boundaries never produce gaps, and applies software volume and
// mute before narrowing to the device's 16-bit format.
//
// Example:
//
//	out := output.NewOto()
//	if err := out.Open(48000, 2, 16); err != nil {
//	    return err
//	}
//	err = out.Write(samples)
package output
