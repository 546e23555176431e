// ABOUTME: Burst-based clock sync controller
// ABOUTME: Sends probe bursts, selects best samples, adapts tuning to jitter
package timesync

import (
	"context"
	"log"
	"math"
	"sort"
	"sync"
	"time"
)

// Default probe tuning, used when Config fields are zero.
const (
	DefaultBurstCount = 10
	DefaultInterval   = time.Second
	DefaultProbeDelay = 30 * time.Millisecond
)

const (
	rttHistorySize   = 15
	minTuningSamples = 5
	maxRTTMicros     = 10000000 // 10s, beyond this a sample is stale
	baseVarianceUs2  = 1000000  // 1ms base standard deviation, squared

	highJitterMicros = 20000
	lowJitterMicros  = 5000
)

// Tuning tiers selected from the observed RTT jitter. A converged
// filter drops probing to a maintenance trickle regardless of jitter.
var (
	highJitterTuning = Tuning{BurstCount: 15, Interval: 200 * time.Millisecond}
	lowJitterTuning  = Tuning{BurstCount: 5, Interval: 500 * time.Millisecond}
	convergedTuning  = Tuning{BurstCount: 3, Interval: 3 * time.Second}
)

// Tuning is the active burst size and cadence.
type Tuning struct {
	BurstCount int
	Interval   time.Duration
}

// Config holds controller parameters. Zero fields fall back to the
// package defaults.
type Config struct {
	BurstCount int           // probes per burst
	Interval   time.Duration // pause between bursts
	ProbeDelay time.Duration // spacing between probes within a burst
}

// Controller drives the probe schedule. It fires bursts of probes via
// the send callback, collects the measurements fed back to it, selects
// the lowest-RTT sample per burst, and hands that to the TimeFilter.
type Controller struct {
	sendProbe  func() error
	filter     TimeFilter
	defaults   Tuning
	probeDelay time.Duration

	mu          sync.Mutex
	running     bool
	burstActive bool
	collected   []Measurement
	rttHistory  [rttHistorySize]int64
	rttCount    int
	rttNext     int
	jitter      int64
	tuning      Tuning

	cancel context.CancelFunc
	done   chan struct{}
}

// NewController creates a stopped controller. sendProbe is invoked once
// per probe and must not block on the reply; replies arrive via Feed.
func NewController(cfg Config, sendProbe func() error, filter TimeFilter) *Controller {
	if cfg.BurstCount <= 0 {
		cfg.BurstCount = DefaultBurstCount
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.ProbeDelay <= 0 {
		cfg.ProbeDelay = DefaultProbeDelay
	}

	defaults := Tuning{BurstCount: cfg.BurstCount, Interval: cfg.Interval}
	return &Controller{
		sendProbe:  sendProbe,
		filter:     filter,
		defaults:   defaults,
		probeDelay: cfg.ProbeDelay,
		tuning:     defaults,
	}
}

// Start launches the burst loop. No-op if already running. The loop
// runs until Stop is called or ctx is cancelled; either way the
// controller ends up stopped and can be started again.
func (c *Controller) Start(ctx context.Context) {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return
	}
	runCtx, cancel := context.WithCancel(ctx)
	c.running = true
	c.cancel = cancel
	c.done = make(chan struct{})
	done := c.done
	c.mu.Unlock()

	go c.run(runCtx, done)
}

// Stop halts the burst loop and waits for it to exit. Collected burst
// state, the RTT history, and the tuning all reset, so a later Start
// begins from a clean slate. No-op if already stopped.
func (c *Controller) Stop() {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return
	}
	cancel := c.cancel
	done := c.done
	c.resetLocked()
	c.mu.Unlock()

	cancel()
	<-done
}

// resetLocked clears run and burst state back to the stopped slate.
// Caller holds the mutex.
func (c *Controller) resetLocked() {
	c.running = false
	c.burstActive = false
	c.collected = nil
	c.rttCount = 0
	c.rttNext = 0
	c.jitter = 0
	c.tuning = c.defaults
	c.cancel = nil
	c.done = nil
}

// Feed delivers a completed measurement to the controller. During a
// burst the measurement joins the burst's candidate set. Outside a
// burst it is evaluated on its own: stale samples are dropped, fresh
// ones go straight to the filter without touching the RTT history or
// tuning. Ignored when the controller is stopped.
func (c *Controller) Feed(m Measurement) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running {
		return
	}
	if c.burstActive {
		c.collected = append(c.collected, m)
		return
	}

	if m.RTT > maxRTTMicros {
		log.Printf("Discarding time sample: stale rtt=%dμs", m.RTT)
		return
	}
	c.filter.AddMeasurement(m.Offset, maxErrorMicros(m.RTT), m.ReceivedAt, m.RTT)
}

// Tuning returns the active burst tuning.
func (c *Controller) Tuning() Tuning {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tuning
}

// JitterMicros returns the last interquartile RTT spread.
func (c *Controller) JitterMicros() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.jitter
}

// HistoryLen returns how many burst RTTs are recorded.
func (c *Controller) HistoryLen() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rttCount
}

// Running reports whether the burst loop is active.
func (c *Controller) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

// run is the single background loop: burst immediately, then wait the
// current tuning interval between bursts. When the context dies before
// Stop does, the exiting loop clears run state itself so a later Start
// works.
func (c *Controller) run(ctx context.Context, done chan struct{}) {
	defer func() {
		c.mu.Lock()
		// c.done still matching means the context died without Stop
		if c.done == done {
			c.resetLocked()
		}
		c.mu.Unlock()
		close(done)
	}()

	for {
		c.runBurst(ctx)

		c.mu.Lock()
		wait := c.tuning.Interval
		c.mu.Unlock()

		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
		}
	}
}

// runBurst sends one burst of probes, waits a grace period for
// stragglers, then evaluates what arrived. The mutex is never held
// across a send or a wait.
func (c *Controller) runBurst(ctx context.Context) {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return
	}
	c.burstActive = true
	c.collected = c.collected[:0]
	count := c.tuning.BurstCount
	c.mu.Unlock()

	for i := 0; i < count; i++ {
		if ctx.Err() != nil {
			c.abortBurst()
			return
		}
		if err := c.sendProbe(); err != nil {
			log.Printf("Time probe %d/%d failed: %v", i+1, count, err)
		}
		if i < count-1 {
			select {
			case <-ctx.Done():
				c.abortBurst()
				return
			case <-time.After(c.probeDelay):
			}
		}
	}

	// Grace period for responses still in flight
	select {
	case <-ctx.Done():
		c.abortBurst()
		return
	case <-time.After(2 * c.probeDelay):
	}

	c.finishBurst()
}

// abortBurst discards a burst cut short by cancellation.
func (c *Controller) abortBurst() {
	c.mu.Lock()
	c.burstActive = false
	c.collected = nil
	c.mu.Unlock()
}

// finishBurst evaluates the collected measurements: drop stale ones,
// pick the lowest-RTT survivor, record its RTT, retune, and feed the
// filter. An empty or all-stale burst changes nothing.
func (c *Controller) finishBurst() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running {
		c.burstActive = false
		c.collected = nil
		return
	}
	c.burstActive = false
	samples := c.collected
	c.collected = nil

	if len(samples) == 0 {
		log.Printf("Sync burst ended with no responses")
		return
	}

	var best Measurement
	fresh := 0
	for _, m := range samples {
		if m.RTT > maxRTTMicros {
			continue
		}
		if fresh == 0 || m.RTT < best.RTT {
			best = m
		}
		fresh++
	}

	if stale := len(samples) - fresh; stale > 0 {
		log.Printf("Dropped %d stale responses from burst (rtt > %dμs)", stale, maxRTTMicros)
	}
	if fresh == 0 {
		return
	}

	c.recordRTT(best.RTT)
	c.retune()

	if !c.filter.AddMeasurement(best.Offset, maxErrorMicros(best.RTT), best.ReceivedAt, best.RTT) {
		log.Printf("Filter rejected burst sample: offset=%dμs, rtt=%dμs", best.Offset, best.RTT)
	}
}

// recordRTT appends one selected RTT to the history ring.
func (c *Controller) recordRTT(rtt int64) {
	c.rttHistory[c.rttNext] = rtt
	c.rttNext = (c.rttNext + 1) % rttHistorySize
	if c.rttCount < rttHistorySize {
		c.rttCount++
	}
}

// retune picks the tuning tier. A converged filter wins outright, even
// with a short history; otherwise the interquartile spread of recorded
// RTTs classifies the network once enough samples exist.
func (c *Controller) retune() {
	if c.rttCount >= minTuningSamples {
		c.jitter = c.jitterLocked()
	}

	if c.filter.IsConverged() {
		c.setTuning(convergedTuning)
		return
	}
	if c.rttCount < minTuningSamples {
		return
	}

	switch {
	case c.jitter > highJitterMicros:
		c.setTuning(highJitterTuning)
	case c.jitter < lowJitterMicros:
		c.setTuning(lowJitterTuning)
	default:
		c.setTuning(c.defaults)
	}
}

// jitterLocked computes the interquartile spread of the recorded RTTs.
// Caller holds the mutex.
func (c *Controller) jitterLocked() int64 {
	n := c.rttCount
	sorted := make([]int64, n)
	copy(sorted, c.rttHistory[:n])
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	q1 := sorted[n/4]
	q3 := sorted[(3*n)/4]
	return q3 - q1
}

func (c *Controller) setTuning(t Tuning) {
	if c.tuning == t {
		return
	}
	c.tuning = t
	log.Printf("Sync tuning changed: burst=%d, interval=%s (jitter=%dμs)", t.BurstCount, t.Interval, c.jitter)
}

// maxErrorMicros bounds the worst-case error of a measurement: half the
// RTT on top of the base measurement variance.
func maxErrorMicros(rtt int64) int64 {
	half := float64(rtt) / 2
	err := int64(math.Sqrt(baseVarianceUs2 + half*half))
	if err < 1 {
		return 1
	}
	return err
}
