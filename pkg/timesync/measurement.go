// ABOUTME: Time measurement type and two-way exchange math
// ABOUTME: Derives offset and RTT from client/time round trips
package timesync

// Measurement is one completed time exchange with the server.
// All values are in microseconds on the client's Unix epoch clock.
type Measurement struct {
	Offset     int64 // estimated clock offset (server - client)
	RTT        int64 // round-trip time of the exchange
	ReceivedAt int64 // client clock when the response arrived
}

// MeasurementFromExchange derives a Measurement from the four timestamps
// of a time exchange: t1 client send, t2 server receive, t3 server send,
// t4 client receive.
func MeasurementFromExchange(t1, t2, t3, t4 int64) Measurement {
	// Round-trip time excluding server processing
	rtt := (t4 - t1) - (t3 - t2)

	// Estimated offset (positive = server ahead of client)
	offset := ((t2 - t1) + (t3 - t4)) / 2

	return Measurement{
		Offset:     offset,
		RTT:        rtt,
		ReceivedAt: t4,
	}
}
