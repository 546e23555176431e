// ABOUTME: Clock synchronization package
// ABOUTME: Burst-based NTP-style sync with adaptive probe tuning
// Package timesync keeps a client clock aligned with a Unison server.
//
// A Controller periodically fires bursts of time probes, picks the
// lowest-RTT response from each burst, and feeds it to a TimeFilter
// that tracks offset and drift. Burst size and cadence adapt to the
// observed RTT jitter.
//
// Example:
//
//	filter := timesync.NewFilter()
//	ctrl := timesync.NewController(timesync.Config{}, client.SendTimeProbe, filter)
//	ctrl.Start(ctx)
//	for m := range client.TimeMeasurements {
//	    ctrl.Feed(m)
//	}
package timesync
