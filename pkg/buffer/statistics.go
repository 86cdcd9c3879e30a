package buffer

import (
	"sync"
	"sync/atomic"
	"time"
)

// Statistics tracks buffer activity.
type Statistics struct {
	// Atomic counters for thread-safe updates
	writes    int64
	reads     int64
	peeks     int64
	ranges    int64
	overflows int64
	blocks    int64
	releases  int64
	missed    int64

	// Protected by mutex
	mu          sync.RWMutex
	startTime   time.Time
	currentSize int64
	maxSize     int64
}

// NewStatistics creates a new statistics tracker.
func NewStatistics() *Statistics {
	return &Statistics{
		startTime: time.Now(),
	}
}

// Write records a pushed reading.
func (s *Statistics) Write() {
	atomic.AddInt64(&s.writes, 1)
}

// Read records a reading handed to a consumer with release.
func (s *Statistics) Read() {
	atomic.AddInt64(&s.reads, 1)
}

// Peek records a reading observed without release.
func (s *Statistics) Peek() {
	atomic.AddInt64(&s.peeks, 1)
}

// Range records a timestamp range query.
func (s *Statistics) Range() {
	atomic.AddInt64(&s.ranges, 1)
}

// Overflow records a push into a full live buffer or a range whose history was overwritten.
func (s *Statistics) Overflow() {
	atomic.AddInt64(&s.overflows, 1)
}

// Block records an offline producer waiting for a freed slot.
func (s *Statistics) Block() {
	atomic.AddInt64(&s.blocks, 1)
}

// Release records a read position advance.
func (s *Statistics) Release() {
	atomic.AddInt64(&s.releases, 1)
}

// Missed records readings skipped by a latest-reading consumer.
func (s *Statistics) Missed(n int64) {
	if n > 0 {
		atomic.AddInt64(&s.missed, n)
	}
}

// UpdateSize updates the current number of occupied slots.
func (s *Statistics) UpdateSize(size int64) {
	s.mu.Lock()
	s.currentSize = size
	if size > s.maxSize {
		s.maxSize = size
	}
	s.mu.Unlock()
}

// Writes returns the total number of pushed readings.
func (s *Statistics) Writes() int64 {
	return atomic.LoadInt64(&s.writes)
}

// Reads returns the total number of readings handed out with release.
func (s *Statistics) Reads() int64 {
	return atomic.LoadInt64(&s.reads)
}

// Peeks returns the total number of observed readings.
func (s *Statistics) Peeks() int64 {
	return atomic.LoadInt64(&s.peeks)
}

// Ranges returns the total number of range queries.
func (s *Statistics) Ranges() int64 {
	return atomic.LoadInt64(&s.ranges)
}

// Overflows returns the total number of overflow events.
func (s *Statistics) Overflows() int64 {
	return atomic.LoadInt64(&s.overflows)
}

// Blocks returns how many times an offline producer had to wait.
func (s *Statistics) Blocks() int64 {
	return atomic.LoadInt64(&s.blocks)
}

// Releases returns the total number of read position advances.
func (s *Statistics) Releases() int64 {
	return atomic.LoadInt64(&s.releases)
}

// MissedReadings returns the total number of readings skipped by latest-reading consumers.
func (s *Statistics) MissedReadings() int64 {
	return atomic.LoadInt64(&s.missed)
}

// CurrentSize returns the current number of occupied slots.
func (s *Statistics) CurrentSize() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.currentSize
}

// MaxSize returns the maximum number of slots occupied at once.
func (s *Statistics) MaxSize() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.maxSize
}

// Throughput returns the average number of pushed readings per second.
func (s *Statistics) Throughput() float64 {
	s.mu.RLock()
	elapsed := time.Since(s.startTime)
	s.mu.RUnlock()

	if elapsed == 0 {
		return 0.0
	}

	return float64(s.Writes()) / elapsed.Seconds()
}

// OverflowRate returns the share of pushes that overflowed (0.0 to 1.0).
func (s *Statistics) OverflowRate() float64 {
	writes := s.Writes()
	overflows := s.Overflows()

	if writes+overflows == 0 {
		return 0.0
	}

	return float64(overflows) / float64(writes+overflows)
}

// Utilization returns the current buffer utilization (0.0 to 1.0).
func (s *Statistics) Utilization(capacity int64) float64 {
	if capacity == 0 {
		return 0.0
	}

	return float64(s.CurrentSize()) / float64(capacity)
}

// Uptime returns how long the buffer has been running.
func (s *Statistics) Uptime() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return time.Since(s.startTime)
}

// Reset resets all statistics to zero.
func (s *Statistics) Reset() {
	atomic.StoreInt64(&s.writes, 0)
	atomic.StoreInt64(&s.reads, 0)
	atomic.StoreInt64(&s.peeks, 0)
	atomic.StoreInt64(&s.ranges, 0)
	atomic.StoreInt64(&s.overflows, 0)
	atomic.StoreInt64(&s.blocks, 0)
	atomic.StoreInt64(&s.releases, 0)
	atomic.StoreInt64(&s.missed, 0)

	s.mu.Lock()
	s.startTime = time.Now()
	s.currentSize = 0
	s.maxSize = 0
	s.mu.Unlock()
}

// StatsSummary is a snapshot of all statistics.
type StatsSummary struct {
	Writes       int64         `json:"writes"`
	Reads        int64         `json:"reads"`
	Peeks        int64         `json:"peeks"`
	Ranges       int64         `json:"ranges"`
	Overflows    int64         `json:"overflows"`
	Blocks       int64         `json:"blocks"`
	Releases     int64         `json:"releases"`
	Missed       int64         `json:"missed"`
	CurrentSize  int64         `json:"current_size"`
	MaxSize      int64         `json:"max_size"`
	Throughput   float64       `json:"throughput"`
	OverflowRate float64       `json:"overflow_rate"`
	Uptime       time.Duration `json:"uptime"`
}

// Summary returns a snapshot of all statistics.
func (s *Statistics) Summary() StatsSummary {
	return StatsSummary{
		Writes:       s.Writes(),
		Reads:        s.Reads(),
		Peeks:        s.Peeks(),
		Ranges:       s.Ranges(),
		Overflows:    s.Overflows(),
		Blocks:       s.Blocks(),
		Releases:     s.Releases(),
		Missed:       s.MissedReadings(),
		CurrentSize:  s.CurrentSize(),
		MaxSize:      s.MaxSize(),
		Throughput:   s.Throughput(),
		OverflowRate: s.OverflowRate(),
		Uptime:       s.Uptime(),
	}
}
