// ABOUTME: Prometheus metrics for sync quality and playback health.
// ABOUTME: Fed from periodic player stats snapshots, served over /metrics.
package metrics

import (
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// knownQualities enumerates the sync quality states so the gauge vector
// always carries one series per state.
var knownQualities = []string{"good", "degraded", "lost"}

// Metrics contains all Prometheus metrics for the player.
type Metrics struct {
	// Clock synchronization metrics
	SyncOffset        prometheus.Gauge
	SyncMaxError      prometheus.Gauge
	SyncRTT           prometheus.Gauge
	SyncDrift         prometheus.Gauge
	SyncJitter        prometheus.Gauge
	SyncBurstProbes   prometheus.Gauge
	SyncBurstInterval prometheus.Gauge
	SyncQuality       *prometheus.GaugeVec

	// Playback metrics
	ChunksReceived prometheus.Counter
	ChunksPlayed   prometheus.Counter
	ChunksDropped  prometheus.Counter
	BufferDepth    prometheus.Gauge
	Volume         prometheus.Gauge
	Muted          prometheus.Gauge
	Connected      prometheus.Gauge

	// Transport frame metrics
	FramesReceived  *prometheus.CounterVec
	FramesMalformed prometheus.Counter

	// Counters are cumulative in player stats; track the last snapshot
	// so updates only add the delta.
	mu             sync.Mutex
	lastReceived   int64
	lastPlayed     int64
	lastDropped    int64
	lastAudio      int64
	lastArtwork    int64
	lastVisualizer int64
	lastUnknown    int64
	lastMalformed  int64
}

// New creates and registers all player metrics on the default registry.
func New() *Metrics {
	return newWith(promauto.With(prometheus.DefaultRegisterer))
}

func newWith(factory promauto.Factory) *Metrics {
	return &Metrics{
		// Clock synchronization metrics
		SyncOffset: factory.NewGauge(prometheus.GaugeOpts{
			Name: "unison_sync_offset_microseconds",
			Help: "Estimated server clock offset in microseconds",
		}),
		SyncMaxError: factory.NewGauge(prometheus.GaugeOpts{
			Name: "unison_sync_max_error_microseconds",
			Help: "Error bound of the current offset estimate in microseconds",
		}),
		SyncRTT: factory.NewGauge(prometheus.GaugeOpts{
			Name: "unison_sync_rtt_microseconds",
			Help: "Round-trip time of the last accepted probe in microseconds",
		}),
		SyncDrift: factory.NewGauge(prometheus.GaugeOpts{
			Name: "unison_sync_drift_ppm",
			Help: "Estimated clock drift rate in parts per million",
		}),
		SyncJitter: factory.NewGauge(prometheus.GaugeOpts{
			Name: "unison_sync_jitter_microseconds",
			Help: "Interquartile range of recent probe round-trip times",
		}),
		SyncBurstProbes: factory.NewGauge(prometheus.GaugeOpts{
			Name: "unison_sync_burst_probes",
			Help: "Probes per burst under the current tuning",
		}),
		SyncBurstInterval: factory.NewGauge(prometheus.GaugeOpts{
			Name: "unison_sync_burst_interval_seconds",
			Help: "Pause between probe bursts under the current tuning",
		}),
		SyncQuality: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "unison_sync_quality",
			Help: "Sync quality state (1 for the active state, 0 otherwise)",
		}, []string{"quality"}),

		// Playback metrics
		ChunksReceived: factory.NewCounter(prometheus.CounterOpts{
			Name: "unison_chunks_received_total",
			Help: "Total audio chunks received from the server",
		}),
		ChunksPlayed: factory.NewCounter(prometheus.CounterOpts{
			Name: "unison_chunks_played_total",
			Help: "Total audio chunks released to the output device",
		}),
		ChunksDropped: factory.NewCounter(prometheus.CounterOpts{
			Name: "unison_chunks_dropped_total",
			Help: "Total audio chunks dropped for arriving too late",
		}),
		BufferDepth: factory.NewGauge(prometheus.GaugeOpts{
			Name: "unison_buffer_depth_seconds",
			Help: "Audio queued ahead of the playback deadline in seconds",
		}),
		Volume: factory.NewGauge(prometheus.GaugeOpts{
			Name: "unison_volume_percent",
			Help: "Current playback volume from 0 to 100",
		}),
		Muted: factory.NewGauge(prometheus.GaugeOpts{
			Name: "unison_muted",
			Help: "Whether playback is muted (1 or 0)",
		}),
		Connected: factory.NewGauge(prometheus.GaugeOpts{
			Name: "unison_connected",
			Help: "Whether the player is connected to a server (1 or 0)",
		}),

		// Transport frame metrics
		FramesReceived: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "unison_frames_received_total",
			Help: "Total binary frames received from the server by kind",
		}, []string{"kind"}),
		FramesMalformed: factory.NewCounter(prometheus.CounterOpts{
			Name: "unison_frames_malformed_total",
			Help: "Total binary frames dropped for being shorter than the header",
		}),
	}
}

// SetSyncState updates the clock synchronization gauges.
func (m *Metrics) SetSyncState(offsetMicros, maxErrorMicros, rttMicros int64, driftPPM float64, jitterMicros int64) {
	m.SyncOffset.Set(float64(offsetMicros))
	m.SyncMaxError.Set(float64(maxErrorMicros))
	m.SyncRTT.Set(float64(rttMicros))
	m.SyncDrift.Set(driftPPM)
	m.SyncJitter.Set(float64(jitterMicros))
}

// SetSyncQuality marks the active quality state.
func (m *Metrics) SetSyncQuality(quality string) {
	for _, q := range knownQualities {
		val := 0.0
		if q == quality {
			val = 1.0
		}
		m.SyncQuality.WithLabelValues(q).Set(val)
	}
}

// SetTuning updates the burst tuning gauges.
func (m *Metrics) SetTuning(burstProbes int, interval time.Duration) {
	m.SyncBurstProbes.Set(float64(burstProbes))
	m.SyncBurstInterval.Set(interval.Seconds())
}

// SetPlayback feeds a cumulative stats snapshot into the playback
// counters and gauges. Counters that went backwards (a reconnect reset
// them) just rebase without adding.
func (m *Metrics) SetPlayback(received, played, dropped int64, bufferDepth time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if received >= m.lastReceived {
		m.ChunksReceived.Add(float64(received - m.lastReceived))
	}
	if played >= m.lastPlayed {
		m.ChunksPlayed.Add(float64(played - m.lastPlayed))
	}
	if dropped >= m.lastDropped {
		m.ChunksDropped.Add(float64(dropped - m.lastDropped))
	}
	m.lastReceived = received
	m.lastPlayed = played
	m.lastDropped = dropped

	m.BufferDepth.Set(bufferDepth.Seconds())
}

// SetFrames feeds cumulative transport frame counts into the frame
// counters, with the same delta-and-rebase handling as SetPlayback.
func (m *Metrics) SetFrames(audio, artwork, visualizer, unknown, malformed int64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if audio >= m.lastAudio {
		m.FramesReceived.WithLabelValues("audio").Add(float64(audio - m.lastAudio))
	}
	if artwork >= m.lastArtwork {
		m.FramesReceived.WithLabelValues("artwork").Add(float64(artwork - m.lastArtwork))
	}
	if visualizer >= m.lastVisualizer {
		m.FramesReceived.WithLabelValues("visualizer").Add(float64(visualizer - m.lastVisualizer))
	}
	if unknown >= m.lastUnknown {
		m.FramesReceived.WithLabelValues("unknown").Add(float64(unknown - m.lastUnknown))
	}
	if malformed >= m.lastMalformed {
		m.FramesMalformed.Add(float64(malformed - m.lastMalformed))
	}
	m.lastAudio = audio
	m.lastArtwork = artwork
	m.lastVisualizer = visualizer
	m.lastUnknown = unknown
	m.lastMalformed = malformed
}

// SetVolume updates the volume gauges.
func (m *Metrics) SetVolume(volume int, muted bool) {
	m.Volume.Set(float64(volume))
	if muted {
		m.Muted.Set(1)
	} else {
		m.Muted.Set(0)
	}
}

// SetConnected updates the connection gauge.
func (m *Metrics) SetConnected(connected bool) {
	if connected {
		m.Connected.Set(1)
	} else {
		m.Connected.Set(0)
	}
}

// Serve exposes the default registry on addr under /metrics and returns
// the server so the caller can shut it down.
func Serve(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("Metrics server error: %v", err)
		}
	}()

	return srv
}
