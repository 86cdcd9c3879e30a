package buffer

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/c360/sensorstream/errors"
)

// SensorBuffer is the ring of timestamped readings shared by one producer and any
// number of consumers.
//
// Positions follow two rules: writePos is the next slot to write (and, once the buffer
// wrapped, the oldest reading), readPos is the oldest slot not released. When both
// coincide, full tells a full buffer from an empty one. readPosUsed marks readPos as
// claimed: handed to a consumer and kept for interpolation, so it is no longer unread
// but may not be overwritten either.
type SensorBuffer[T Reading] struct {
	mu       sync.Mutex
	slots    []T
	stamps   []float64 // timestamp of each slot, NoData until first written
	arrivals []float64
	capacity int

	writePos    int
	readPos     int
	full        bool
	readPosUsed bool
	dataCount   int // readings pushed since the last LastUnreadRaw
	lastSentPos int
	lastStamp   float64

	timestampCorrection float64
	dataPeriod          float64
	arrivalDelay        float64

	freed     *sync.Cond // a slot became writable
	available *sync.Cond // a reading arrived or the stream ended
	closed    bool

	noMoreData atomic.Bool

	notifier *Condition
	consumed *Condition

	opts    *bufferOptions[T]
	logger  *slog.Logger
	stats   *Statistics    // ALWAYS initialized for observability
	metrics *bufferMetrics // Optional Prometheus metrics
}

// New creates a sensor buffer holding capacity readings.
// Capacity must be at least 2. Returns an error if metrics registration fails.
func New[T Reading](capacity int, options ...Option[T]) (*SensorBuffer[T], error) {
	opts := applyOptions(options...)

	if capacity < 2 {
		return nil, errors.WrapInvalid(
			fmt.Errorf("%w: capacity %d, need at least 2", errors.ErrInvalidConfig, capacity),
			"SensorBuffer", "New", "capacity check")
	}

	var metrics *bufferMetrics
	if opts.metricsReg != nil && opts.metricsPrefix != "" {
		var err error
		metrics, err = newBufferMetrics(opts.metricsReg, opts.metricsPrefix)
		if err != nil {
			return nil, errors.WrapTransient(err, "SensorBuffer", "New", "metrics registration")
		}
	}

	b := &SensorBuffer[T]{
		slots:       make([]T, capacity),
		stamps:      make([]float64, capacity),
		arrivals:    make([]float64, capacity),
		capacity:    capacity,
		lastSentPos: -1,
		lastStamp:   NoData,
		notifier:    opts.notifier,
		consumed:    NewCondition(0),
		opts:        opts,
		logger:      opts.logger.With("component", "sensor-buffer", "sensor", opts.name),
		stats:       NewStatistics(),
		metrics:     metrics,
	}
	for i := range b.stamps {
		b.stamps[i] = NoData
	}
	b.freed = sync.NewCond(&b.mu)
	b.available = sync.NewCond(&b.mu)

	return b, nil
}

// Name returns the sensor name.
func (b *SensorBuffer[T]) Name() string {
	return b.opts.name
}

// Mode returns the overflow behavior fixed at construction.
func (b *SensorBuffer[T]) Mode() Mode {
	return b.opts.mode
}

// Capacity returns the number of slots.
func (b *SensorBuffer[T]) Capacity() int {
	return b.capacity // immutable, no lock needed
}

// Stats returns buffer statistics (always available for observability).
func (b *SensorBuffer[T]) Stats() *Statistics {
	return b.stats
}

// Consumed returns the condition counting readings handed out by Raw and LastUnreadRaw.
func (b *SensorBuffer[T]) Consumed() *Condition {
	return b.consumed
}

// ConsumedCount returns how many readings were handed out by Raw and LastUnreadRaw.
func (b *SensorBuffer[T]) ConsumedCount() int {
	return b.consumed.Value()
}

// --- Occupancy (callers hold mu) ---

func (b *SensorBuffer[T]) isFullLocked() bool {
	return b.readPos == b.writePos && b.full
}

func (b *SensorBuffer[T]) isEmptyLocked() bool {
	return b.firstUnreadLocked() == b.writePos && !b.full
}

// firstUnreadLocked is readPos unless it is claimed. Only meaningful on a non-empty buffer.
func (b *SensorBuffer[T]) firstUnreadLocked() int {
	if !b.readPosUsed {
		return b.readPos
	}
	return (b.readPos + 1) % b.capacity
}

// lastUnreadLocked is the newest reading. Only meaningful on a non-empty buffer.
func (b *SensorBuffer[T]) lastUnreadLocked() int {
	return (b.writePos - 1 + b.capacity) % b.capacity
}

// sizeLocked counts unreleased slots, the claimed one included.
func (b *SensorBuffer[T]) sizeLocked() int {
	if b.isFullLocked() {
		return b.capacity
	}
	return (b.writePos - b.readPos + b.capacity) % b.capacity
}

// unreadLocked counts unreleased slots that were not claimed.
func (b *SensorBuffer[T]) unreadLocked() int {
	n := b.sizeLocked()
	if b.readPosUsed && n > 0 {
		n--
	}
	return n
}

// inWindowLocked reports whether id is an unreleased slot.
func (b *SensorBuffer[T]) inWindowLocked(id int) bool {
	if id < 0 || id >= b.capacity {
		return false
	}
	return (id-b.readPos+b.capacity)%b.capacity < b.sizeLocked()
}

// IsFull reports whether every slot holds an unreleased reading.
func (b *SensorBuffer[T]) IsFull() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.isFullLocked()
}

// IsEmpty reports whether no unread reading is available.
func (b *SensorBuffer[T]) IsEmpty() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.isEmptyLocked()
}

// Size returns the number of unreleased slots, including a claimed one.
func (b *SensorBuffer[T]) Size() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.sizeLocked()
}

// Unread returns the number of readings not yet handed out.
func (b *SensorBuffer[T]) Unread() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.unreadLocked()
}

// --- Producer side ---

// Push copies r into the next slot.
//
// In Live mode a full buffer returns an error wrapping errors.ErrBufferOverflow.
// In Offline mode Push waits until a slot is released, ctx is done or the buffer is closed.
// A reading dated before the newest one is rejected with errors.ErrInvalidData.
func (b *SensorBuffer[T]) Push(ctx context.Context, r T) error {
	return b.write(ctx, "Push", func(slot *T) { b.opts.copier(slot, r) })
}

// WriteSlot lets the producer fill the next slot in place. fill runs under the buffer
// lock and must not call back into the buffer. The slot's timestamp and arrival are
// read from it once fill returns.
func (b *SensorBuffer[T]) WriteSlot(ctx context.Context, fill func(slot *T)) error {
	return b.write(ctx, "WriteSlot", fill)
}

func (b *SensorBuffer[T]) write(ctx context.Context, op string, fill func(slot *T)) error {
	b.mu.Lock()

	if err := b.waitWritableLocked(ctx, op); err != nil {
		b.mu.Unlock()
		return err
	}

	pos := b.writePos
	fill(&b.slots[pos])
	if stamp := b.slots[pos].Timestamp(); b.lastStamp >= 0 && stamp < b.lastStamp {
		// the slot is free and the oldest one, so NoData keeps the search order
		b.stamps[pos] = NoData
		b.arrivals[pos] = 0
		last := b.lastStamp
		b.mu.Unlock()
		b.logger.Warn("Out of order reading rejected", "timestamp", stamp, "last_timestamp", last)
		return errors.WrapInvalid(
			fmt.Errorf("%w: timestamp %g before newest %g", errors.ErrInvalidData, stamp, last),
			"SensorBuffer", op, "timestamp order check")
	}
	b.stamps[pos] = b.slots[pos].Timestamp()
	b.arrivals[pos] = b.slots[pos].Arrival()
	b.lastStamp = b.stamps[pos]

	b.writePos = (pos + 1) % b.capacity
	if b.writePos == b.readPos {
		b.full = true
	}
	b.dataCount++
	size := b.sizeLocked()
	b.mu.Unlock()

	b.available.Broadcast()

	b.stats.Write()
	b.stats.UpdateSize(int64(size))
	if b.metrics != nil {
		b.metrics.recordWrite(size, b.capacity)
	}

	if b.notifier != nil {
		b.notifier.ApplyAndNotify(increment)
	}

	return nil
}

// waitWritableLocked returns once the slot at writePos may be overwritten.
func (b *SensorBuffer[T]) waitWritableLocked(ctx context.Context, op string) error {
	if b.closed {
		return errors.WrapInvalid(errors.ErrAlreadyStopped, "SensorBuffer", op, "buffer closed")
	}
	if !b.isFullLocked() {
		return nil
	}

	if b.opts.mode == Live {
		b.stats.Overflow()
		if b.metrics != nil {
			b.metrics.recordOverflow()
		}
		b.logger.Warn("Live buffer full, reading rejected",
			"capacity", b.capacity, "write_pos", b.writePos)
		return errors.WrapFatal(
			fmt.Errorf("%w: %s buffer of %d slots is full", errors.ErrBufferOverflow, b.opts.name, b.capacity),
			"SensorBuffer", op, "write to full buffer")
	}

	b.stats.Block()
	if b.metrics != nil {
		b.metrics.recordBlock()
	}

	stop := context.AfterFunc(ctx, func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		b.freed.Broadcast()
	})
	defer stop()

	for b.isFullLocked() && !b.closed {
		if err := ctx.Err(); err != nil {
			return err
		}
		b.freed.Wait()
	}

	if b.closed {
		return errors.WrapInvalid(errors.ErrAlreadyStopped, "SensorBuffer", op,
			"buffer closed during blocking wait")
	}
	return nil
}

// MarkEndOfStream records that the producer will push no more readings. Empty-buffer
// queries then report StatusEndOfStream instead of StatusNoData.
func (b *SensorBuffer[T]) MarkEndOfStream() {
	if b.noMoreData.Swap(true) {
		return
	}
	b.mu.Lock()
	b.available.Broadcast()
	b.mu.Unlock()
	b.logger.Info("End of stream", "last_timestamp", b.LastTimestamp())
}

// EndOfStream reports whether MarkEndOfStream was called.
func (b *SensorBuffer[T]) EndOfStream() bool {
	return b.noMoreData.Load()
}

// SetSyncConfig sets the correction drivers add to hardware timestamps.
func (b *SensorBuffer[T]) SetSyncConfig(timestampCorrection float64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.timestampCorrection = timestampCorrection
}

// TimestampCorrection returns the value set by SetSyncConfig.
func (b *SensorBuffer[T]) TimestampCorrection() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.timestampCorrection
}

// SetTimingInfos declares the expected period between readings and the delay between
// a reading's date and its availability. The delay should be overestimated.
func (b *SensorBuffer[T]) SetTimingInfos(dataPeriod, arrivalDelay float64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.dataPeriod = dataPeriod
	b.arrivalDelay = arrivalDelay
}

// TimingInfos returns the values set by SetTimingInfos.
func (b *SensorBuffer[T]) TimingInfos() (dataPeriod, arrivalDelay float64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dataPeriod, b.arrivalDelay
}

// LastTimestamp returns the timestamp of the newest pushed reading, NoData before the first.
func (b *SensorBuffer[T]) LastTimestamp() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastStamp
}

// InitSlots applies init to every slot and marks all of them as holding no data.
// Payload owners use it to pre-size value slots; it must run before the producer starts.
func (b *SensorBuffer[T]) InitSlots(init func(slot *T)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.slots {
		init(&b.slots[i])
		b.stamps[i] = NoData
		b.arrivals[i] = 0
	}
}

// --- Release policy ---

// releaseUntilLocked frees the slots before id and claims id.
// A full buffer stays full when id is the oldest slot since nothing was freed.
func (b *SensorBuffer[T]) releaseUntilLocked(id int) {
	b.full = b.full && id == b.writePos
	b.readPos = id
	b.readPosUsed = true
}

// releaseThroughLocked frees every slot up to and including id.
func (b *SensorBuffer[T]) releaseThroughLocked(id int) {
	b.readPos = (id + 1) % b.capacity
	b.readPosUsed = false
	b.full = false
}

// afterRelease wakes blocked producers and records the new occupancy. mu must not be held.
func (b *SensorBuffer[T]) afterRelease(size int) {
	b.freed.Broadcast()
	b.stats.Release()
	b.stats.UpdateSize(int64(size))
	if b.metrics != nil {
		b.metrics.recordRelease(size, b.capacity)
	}
}

func (b *SensorBuffer[T]) releaseChecked(id int, inclusive bool, op string) error {
	b.mu.Lock()
	if !b.inWindowLocked(id) {
		b.mu.Unlock()
		return errors.WrapInvalid(
			fmt.Errorf("%w: %d is not an unreleased slot", errors.ErrInvalidSlot, id),
			"SensorBuffer", op, "release window check")
	}
	if inclusive {
		b.releaseThroughLocked(id)
	} else {
		b.releaseUntilLocked(id)
	}
	size := b.sizeLocked()
	b.mu.Unlock()

	b.afterRelease(size)
	return nil
}

// Release frees exactly the slot at the current read position. It does nothing when
// no slot is unreleased.
func (b *SensorBuffer[T]) Release() {
	b.mu.Lock()
	if b.sizeLocked() == 0 {
		b.mu.Unlock()
		return
	}
	b.releaseThroughLocked(b.readPos)
	size := b.sizeLocked()
	b.mu.Unlock()

	b.afterRelease(size)
}

// positions is the Releaser handed out by Positions.
type positions[T Reading] struct {
	b *SensorBuffer[T]
}

func (p positions[T]) ReleaseUntil(id int) error {
	return p.b.releaseChecked(id, false, "ReleaseUntil")
}

func (p positions[T]) ReleaseThrough(id int) error {
	return p.b.releaseChecked(id, true, "ReleaseThrough")
}

// Positions returns the privileged handle that moves the read position directly.
// Concurrent releasers must coordinate among themselves.
func (b *SensorBuffer[T]) Positions() Releaser {
	return positions[T]{b: b}
}

// --- Lifecycle ---

// WaitUnread blocks until an unread reading exists, the stream ended, the buffer is
// closed or ctx is done.
func (b *SensorBuffer[T]) WaitUnread(ctx context.Context) (Status, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	stop := context.AfterFunc(ctx, func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		b.available.Broadcast()
	})
	defer stop()

	for b.isEmptyLocked() && !b.noMoreData.Load() && !b.closed {
		if err := ctx.Err(); err != nil {
			return StatusNoData, err
		}
		b.available.Wait()
	}

	if !b.isEmptyLocked() {
		return StatusOK, nil
	}
	if b.noMoreData.Load() {
		return StatusEndOfStream, nil
	}
	return StatusNoData, errors.WrapInvalid(errors.ErrAlreadyStopped, "SensorBuffer", "WaitUnread", "buffer closed")
}

// Reset returns the buffer to its freshly constructed state. It is the only
// operation allowed to move the read position backwards.
func (b *SensorBuffer[T]) Reset() {
	b.mu.Lock()
	b.writePos = 0
	b.readPos = 0
	b.full = false
	b.readPosUsed = false
	b.dataCount = 0
	b.lastSentPos = -1
	b.lastStamp = NoData
	for i := range b.stamps {
		b.stamps[i] = NoData
		b.arrivals[i] = 0
	}
	b.noMoreData.Store(false)
	b.mu.Unlock()

	b.freed.Broadcast()
	b.stats.UpdateSize(0)
	if b.metrics != nil {
		b.metrics.updateSize(0, b.capacity)
	}
}

// Close wakes every blocked producer and consumer. Later pushes fail.
func (b *SensorBuffer[T]) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true

	b.freed.Broadcast()
	b.available.Broadcast()

	return nil
}
