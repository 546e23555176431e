// ABOUTME: Timestamp-based playback scheduler
// ABOUTME: Releases decoded buffers at their converted local play times
package unison

import (
	"container/heap"
	"context"
	"log"
	"sync"
	"time"

	"github.com/Unison-Protocol/unison-go/pkg/audio"
)

// Clock converts server timestamps into local play times.
// *timesync.Filter satisfies this.
type Clock interface {
	ServerToLocalTime(serverMicros int64) time.Time
	NowServerMicros() int64
}

// Scheduler orders decoded buffers by play time and releases each one
// when the local clock reaches it, within a ±50ms window.
type Scheduler struct {
	clock  Clock
	output chan audio.Buffer
	ctx    context.Context
	cancel context.CancelFunc

	mu           sync.Mutex // guards bufferQ, buffering, stats
	bufferQ      *bufferQueue
	buffering    bool
	bufferTarget int
	stats        SchedulerStats
}

// SchedulerStats tracks scheduler counters
type SchedulerStats struct {
	Received int64
	Played   int64
	Dropped  int64
}

// NewScheduler creates a playback scheduler
func NewScheduler(clock Clock) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())

	return &Scheduler{
		clock:   clock,
		bufferQ: newBufferQueue(),
		output:  make(chan audio.Buffer, 10),
		ctx:     ctx,
		cancel:  cancel,
		// 25 chunks (500ms at 20ms/chunk) matches the server's lead time
		buffering:    true,
		bufferTarget: 25,
	}
}

// Schedule queues a buffer, stamping its local play time
func (s *Scheduler) Schedule(buf audio.Buffer) {
	buf.PlayAt = s.clock.ServerToLocalTime(buf.Timestamp)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stats.Received < 5 {
		serverNow := s.clock.NowServerMicros()
		diff := buf.Timestamp - serverNow
		log.Printf("Chunk #%d: timestamp=%dμs, serverNow=%dμs, diff=%dμs (%.1fms)",
			s.stats.Received, buf.Timestamp, serverNow, diff, float64(diff)/1000.0)
	}

	s.stats.Received++
	heap.Push(s.bufferQ, buf)
}

// Run drives the scheduler until Stop
func (s *Scheduler) Run() {
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.processQueue()
		}
	}
}

// processQueue releases every buffer whose play time has arrived
func (s *Scheduler) processQueue() {
	now := time.Now()
	var ready []audio.Buffer

	s.mu.Lock()
	if s.buffering {
		if s.bufferQ.Len() < s.bufferTarget {
			s.mu.Unlock()
			return
		}
		log.Printf("Startup buffering complete: %d chunks ready", s.bufferQ.Len())
		s.buffering = false
	}

	for s.bufferQ.Len() > 0 {
		buf := s.bufferQ.Peek()

		delay := buf.PlayAt.Sub(now)
		if delay > 50*time.Millisecond {
			// Earliest buffer is still in the future
			break
		}

		heap.Pop(s.bufferQ)

		if delay < -50*time.Millisecond {
			s.stats.Dropped++
			log.Printf("Dropped late buffer: %v late", -delay)
			continue
		}

		ready = append(ready, buf)
	}
	s.mu.Unlock()

	for _, buf := range ready {
		select {
		case s.output <- buf:
			s.mu.Lock()
			s.stats.Played++
			s.mu.Unlock()
		case <-s.ctx.Done():
			return
		}
	}
}

// Flush drops all queued buffers and re-enters startup buffering.
// Used on stream clear and stream restart.
func (s *Scheduler) Flush() {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := s.bufferQ.Len()
	s.bufferQ = newBufferQueue()
	s.buffering = true

	if n > 0 {
		log.Printf("Flushed %d queued buffers", n)
	}
}

// Output returns the channel of buffers ready to play
func (s *Scheduler) Output() <-chan audio.Buffer {
	return s.output
}

// Stats returns a snapshot of the scheduler counters
func (s *Scheduler) Stats() SchedulerStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

// BufferDepth returns the queued audio in milliseconds
func (s *Scheduler) BufferDepth() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Chunks are typically 10ms (480 samples at 48kHz)
	return s.bufferQ.Len() * 10
}

// Stop stops the scheduler loop
func (s *Scheduler) Stop() {
	s.cancel()
}

// bufferQueue is a play-time-ordered priority queue
type bufferQueue struct {
	items []audio.Buffer
}

func newBufferQueue() *bufferQueue {
	q := &bufferQueue{}
	heap.Init(q)
	return q
}

func (q *bufferQueue) Len() int { return len(q.items) }

func (q *bufferQueue) Less(i, j int) bool {
	return q.items[i].PlayAt.Before(q.items[j].PlayAt)
}

func (q *bufferQueue) Swap(i, j int) {
	q.items[i], q.items[j] = q.items[j], q.items[i]
}

func (q *bufferQueue) Push(x interface{}) {
	q.items = append(q.items, x.(audio.Buffer))
}

func (q *bufferQueue) Pop() interface{} {
	n := len(q.items)
	item := q.items[n-1]
	q.items = q.items[:n-1]
	return item
}

func (q *bufferQueue) Peek() audio.Buffer {
	if len(q.items) == 0 {
		return audio.Buffer{}
	}
	return q.items[0]
}
