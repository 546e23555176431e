// ABOUTME: Time filter with drift compensation
// ABOUTME: Tracks both offset AND drift to handle clock frequency differences
package timesync

import (
	"log"
	"sync"
	"time"
)

// TimeFilter consumes selected time measurements and maintains the
// clock model. AddMeasurement reports whether the sample was accepted.
type TimeFilter interface {
	AddMeasurement(offsetMicros, maxErrorMicros, receivedAtMicros, rttMicros int64) bool
	OffsetMicros() int64
	ErrorMicros() int64
	DriftPPM() float64
	IsReady() bool
	IsConverged() bool
}

// Quality represents sync quality
type Quality int

const (
	QualityGood Quality = iota
	QualityDegraded
	QualityLost
)

// String returns the quality as a short lowercase label.
func (q Quality) String() string {
	switch q {
	case QualityGood:
		return "good"
	case QualityDegraded:
		return "degraded"
	default:
		return "lost"
	}
}

const (
	filterGain         = 0.1   // weight given to new samples
	maxResidualMicros  = 50000 // residual beyond 50ms suggests network issue or clock jump
	maxDriftPPM        = 500.0
	convergedErrMicros = 2000
	convergedSamples   = 8
)

// Filter estimates clock offset and drift from accepted measurements.
// It predicts each new offset from the drift rate and corrects both
// estimates with a fixed gain, so a slowly diverging client clock stays
// aligned between measurements.
type Filter struct {
	mu          sync.RWMutex
	offset      int64   // current offset in microseconds (server - client)
	drift       float64 // clock drift rate (dimensionless: μs/μs)
	errEstimate float64 // smoothed residual magnitude in microseconds
	lastAt      int64   // client time (μs) when offset/drift were last updated
	lastRTT     int64
	lastSync    time.Time
	samples     int
	gain        float64
}

var _ TimeFilter = (*Filter)(nil)

// NewFilter creates a time filter with no drift assumed.
func NewFilter() *Filter {
	return &Filter{gain: filterGain}
}

// AddMeasurement folds one selected measurement into the clock model.
// Returns false when the sample is rejected (non-monotonic receive time
// or a residual too large to trust).
func (f *Filter) AddMeasurement(offset, maxErr, receivedAt, rtt int64) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.lastRTT = rtt
	f.lastSync = time.Now()

	// First measurement: initialize offset, no drift yet
	if f.samples == 0 {
		f.offset = offset
		f.errEstimate = float64(maxErr)
		f.lastAt = receivedAt
		f.samples++
		log.Printf("Initial time fix: offset=%dμs, maxError=%dμs, rtt=%dμs", offset, maxErr, rtt)
		return true
	}

	dt := float64(receivedAt - f.lastAt)
	if dt <= 0 {
		log.Printf("Discarding time sample: non-monotonic receive time")
		return false
	}

	// Second measurement: calculate initial drift
	if f.samples == 1 {
		f.drift = clampDrift(float64(offset-f.offset) / dt)
		f.offset = offset
		f.errEstimate = (1-f.gain)*f.errEstimate + f.gain*float64(maxErr)
		f.lastAt = receivedAt
		f.samples++
		log.Printf("Drift initialized: drift=%.9f μs/μs over Δt=%.0fμs", f.drift, dt)
		return true
	}

	// Predict what the offset should be based on drift
	predicted := f.offset + int64(f.drift*dt)
	residual := offset - predicted

	if residual > maxResidualMicros || residual < -maxResidualMicros {
		log.Printf("Discarding time sample: large residual %dμs (possible clock jump)", residual)
		return false
	}

	// Correct offset from the prediction plus gain * residual,
	// and nudge the drift rate by the residual slope
	f.offset = predicted + int64(f.gain*float64(residual))
	f.drift = clampDrift(f.drift + f.gain*(float64(residual)/dt))

	absResidual := float64(residual)
	if absResidual < 0 {
		absResidual = -absResidual
	}
	f.errEstimate = (1-f.gain)*f.errEstimate + f.gain*absResidual
	if f.errEstimate < 1 {
		f.errEstimate = 1
	}

	f.lastAt = receivedAt
	f.samples++

	if f.samples < 10 {
		log.Printf("Time sample #%d: offset=%dμs, drift=%.9f, residual=%dμs, rtt=%dμs",
			f.samples, f.offset, f.drift, residual, rtt)
	}
	return true
}

func clampDrift(d float64) float64 {
	limit := maxDriftPPM / 1e6
	if d > limit {
		return limit
	}
	if d < -limit {
		return -limit
	}
	return d
}

// OffsetMicros returns the current offset estimate.
func (f *Filter) OffsetMicros() int64 {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.offset
}

// ErrorMicros returns the current error estimate.
func (f *Filter) ErrorMicros() int64 {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.samples == 0 {
		return 0
	}
	if f.errEstimate < 1 {
		return 1
	}
	return int64(f.errEstimate)
}

// DriftPPM returns the drift estimate in parts per million.
func (f *Filter) DriftPPM() float64 {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.drift * 1e6
}

// IsReady reports whether the filter has a usable offset.
func (f *Filter) IsReady() bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.samples > 0
}

// IsConverged reports whether the clock model has settled. It can
// revert to false if later samples re-inflate the error estimate.
func (f *Filter) IsConverged() bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.samples >= convergedSamples && f.errEstimate < convergedErrMicros
}

// LastRTTMicros returns the RTT of the most recent measurement.
func (f *Filter) LastRTTMicros() int64 {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.lastRTT
}

// CheckQuality reports sync quality, degrading to lost when no
// measurement has arrived recently.
func (f *Filter) CheckQuality() Quality {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if f.samples == 0 || time.Since(f.lastSync) > 5*time.Second {
		return QualityLost
	}
	if f.lastRTT < 50000 { // <50ms
		return QualityGood
	}
	return QualityDegraded
}

// ServerToLocalTime converts a server timestamp to local wall clock time.
func (f *Filter) ServerToLocalTime(serverMicros int64) time.Time {
	f.mu.RLock()
	defer f.mu.RUnlock()

	// Before the first fix, assume server time = client time
	if f.samples == 0 {
		return time.Unix(0, serverMicros*1000)
	}

	// Inverse of the forward transform:
	// server_time = client_time + offset + drift * (client_time - last_update)
	// Solving: client_time = (server_time - offset + drift * last_update) / (1 + drift)
	numerator := float64(serverMicros) - float64(f.offset) + f.drift*float64(f.lastAt)
	denominator := 1.0 + f.drift
	clientMicros := int64(numerator / denominator)

	return time.Unix(0, clientMicros*1000)
}

// NowServerMicros returns the current time in the server's reference
// frame, accounting for both offset and drift.
func (f *Filter) NowServerMicros() int64 {
	f.mu.RLock()
	defer f.mu.RUnlock()

	clientNow := time.Now().UnixMicro()
	if f.samples == 0 {
		return clientNow
	}

	dt := clientNow - f.lastAt
	return clientNow + f.offset + int64(f.drift*float64(dt))
}
