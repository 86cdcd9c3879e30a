package buffer

import (
	"fmt"

	"github.com/c360/sensorstream/errors"
)

// searchLocked returns the first logical index in [from, writePos+capacity-1] whose
// slot timestamp is at least t, or the last logical index when none is.
// Logical index l maps to slot l % capacity. Walking logical indices from writePos
// visits slots oldest first, so timestamps are non-decreasing along the walk.
func (b *SensorBuffer[T]) searchLocked(from int, t float64) int {
	left, right := from, b.writePos+b.capacity-1
	for left != right {
		mid := (left + right) / 2
		if b.stamps[mid%b.capacity] >= t {
			right = mid
		} else {
			left = mid + 1
		}
	}
	return left
}

// Raws returns the readings dated in [t1, t2] as a chronological view.
//
// The view also holds the reading just before t1 for interpolation, unless t1 is at
// or below FromStart or that slot never received data, and the first reading at or
// after t2 (or the newest reading when none is that recent). When every reading is
// older than t1 the view holds only the newest one, unless that reading is alone in
// the buffer. An empty view means no data arrived yet.
//
// A t1 > t2 range is rejected as invalid. If the oldest retained reading is already at
// or after a positive t1, the history the caller needs was overwritten and Raws fails
// with an error wrapping errors.ErrBufferOverflow.
//
// With release set, the slots before the returned range are released and its first
// slot is claimed, provided that moves the read position forward.
func (b *SensorBuffer[T]) Raws(t1, t2 float64, release bool) (View[T], error) {
	if t1 > t2 {
		return View[T]{}, errors.WrapInvalid(
			fmt.Errorf("%w: t1 %g after t2 %g", errors.ErrInvalidRange, t1, t2),
			"SensorBuffer", "Raws", "range check")
	}

	// unfilled slots hold NoData, which any t1 at or below FromStart would match
	bound := t1
	if bound < FromStart {
		bound = FromStart
	}

	b.mu.Lock()

	first := b.searchLocked(b.writePos, bound)
	slot := first % b.capacity
	noLarger := b.stamps[slot] < bound
	noSmaller := slot == b.writePos

	var start, end int
	if noLarger {
		if b.stamps[(first-1)%b.capacity] < 0 {
			b.mu.Unlock()
			b.logger.Debug("Range query found no data", "t1", t1, "t2", t2)
			return View[T]{}, nil
		}
		start, end = first, first
	} else {
		if noSmaller && t1 > 0 {
			b.mu.Unlock()
			b.stats.Overflow()
			if b.metrics != nil {
				b.metrics.recordOverflow()
			}
			b.logger.Warn("Range start already overwritten",
				"t1", t1, "oldest", b.stamps[slot], "capacity", b.capacity)
			return View[T]{}, errors.WrapFatal(
				fmt.Errorf("%w: reading at %g no longer retained by %s", errors.ErrBufferOverflow, t1, b.opts.name),
				"SensorBuffer", "Raws", "range lookup")
		}

		start = first
		if t1 > FromStart && !noSmaller && b.stamps[(first-1)%b.capacity] >= 0 {
			start = first - 1
		}
		end = b.searchLocked(first, t2)
	}

	view := View[T]{
		IDs:  make([]int, 0, end-start+1),
		Raws: make([]T, end-start+1),
	}
	for l := start; l <= end; l++ {
		id := l % b.capacity
		view.IDs = append(view.IDs, id)
		b.opts.copier(&view.Raws[l-start], b.slots[id])
	}

	released := false
	size := 0
	if release {
		pivot := start % b.capacity
		if b.inWindowLocked(pivot) {
			b.releaseUntilLocked(pivot)
			released = true
			size = b.sizeLocked()
		}
	}
	b.mu.Unlock()

	if released {
		b.afterRelease(size)
	}
	b.stats.Range()
	if b.metrics != nil {
		b.metrics.recordRange()
	}

	return view, nil
}

// UnreadRawInfos fills infos with the unread readings, oldest first, and predicts the
// next reading from the last timestamp and the declared timing infos. ProcessTime is
// reset; IntegrateAll is left to the caller.
func (b *SensorBuffer[T]) UnreadRawInfos(infos *RawInfos) Status {
	b.mu.Lock()
	defer b.mu.Unlock()

	infos.Available = infos.Available[:0]
	if !b.isEmptyLocked() {
		first, last := b.firstUnreadLocked(), b.lastUnreadLocked()
		firstStop, secondStop := last, -1
		if first > last {
			firstStop, secondStop = b.capacity-1, last
		}
		for pos := first; pos <= firstStop; pos++ {
			infos.Available = append(infos.Available, b.infoLocked(pos))
		}
		for pos := 0; pos <= secondStop; pos++ {
			infos.Available = append(infos.Available, b.infoLocked(pos))
		}
	}

	next := b.lastStamp + b.dataPeriod
	infos.Next = RawInfo{ID: 0, Timestamp: next, Arrival: next + b.arrivalDelay}
	infos.ProcessTime = 0

	if len(infos.Available) == 0 {
		return b.emptyStatus()
	}
	return StatusOK
}

// NextRawInfo describes the oldest unread reading.
func (b *SensorBuffer[T]) NextRawInfo(info *RawInfo) Status {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.isEmptyLocked() {
		return b.emptyStatus()
	}
	*info = b.infoLocked(b.firstUnreadLocked())
	return StatusOK
}

func (b *SensorBuffer[T]) infoLocked(pos int) RawInfo {
	return RawInfo{ID: pos, Timestamp: b.stamps[pos], Arrival: b.arrivals[pos]}
}

func (b *SensorBuffer[T]) emptyStatus() Status {
	if b.noMoreData.Load() {
		return StatusEndOfStream
	}
	return StatusNoData
}

func (b *SensorBuffer[T]) checkSlot(id int, op string) error {
	if id < 0 || id >= b.capacity {
		return errors.WrapInvalid(
			fmt.Errorf("%w: %d outside [0, %d)", errors.ErrInvalidSlot, id, b.capacity),
			"SensorBuffer", op, "slot check")
	}
	return nil
}

// Raw copies slot id into out and releases every slot up to and including it. The
// slot must be unreleased.
func (b *SensorBuffer[T]) Raw(id int, out *T) error {
	if err := b.checkSlot(id, "Raw"); err != nil {
		return err
	}

	b.mu.Lock()
	if !b.inWindowLocked(id) {
		b.mu.Unlock()
		return errors.WrapInvalid(
			fmt.Errorf("%w: %d already released", errors.ErrInvalidSlot, id),
			"SensorBuffer", "Raw", "release window check")
	}
	b.releaseThroughLocked(id)
	b.opts.copier(out, b.slots[id])
	b.lastSentPos = id
	size := b.sizeLocked()
	b.mu.Unlock()

	b.afterRelease(size)
	b.consumed.ApplyAndNotify(increment)
	b.stats.Read()
	if b.metrics != nil {
		b.metrics.recordRead()
	}
	return nil
}

// Observe copies slot id into out without releasing anything. Any slot in
// [0, capacity) may be read, including released history still in place; a
// slot never written holds the zero value.
func (b *SensorBuffer[T]) Observe(id int, out *T) error {
	if err := b.checkSlot(id, "Observe"); err != nil {
		return err
	}

	b.mu.Lock()
	b.opts.copier(out, b.slots[id])
	b.mu.Unlock()

	b.stats.Peek()
	if b.metrics != nil {
		b.metrics.recordPeek()
	}
	return nil
}

// RawTimestamp returns the timestamp stored in slot id, NoData if it was never written.
func (b *SensorBuffer[T]) RawTimestamp(id int) (float64, error) {
	if err := b.checkSlot(id, "RawTimestamp"); err != nil {
		return NoData, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	return b.stamps[id], nil
}

// LastUnreadRaw copies the newest reading into out and releases every slot through
// it. It returns the number of readings pushed since the previous call that were
// skipped over, -1 when nothing new arrived, or -2 when nothing new arrived and the
// stream ended. out is untouched on a negative return.
func (b *SensorBuffer[T]) LastUnreadRaw(out *T) int {
	b.mu.Lock()
	missed := b.dataCount - 1
	if b.dataCount == 0 {
		b.mu.Unlock()
		if b.noMoreData.Load() {
			return int(StatusEndOfStream)
		}
		return int(StatusNoData)
	}

	// the newest slot may already be released by Raw or ReleaseThrough
	id := b.lastUnreadLocked()
	released := false
	if b.inWindowLocked(id) {
		b.releaseThroughLocked(id)
		released = true
	}
	b.opts.copier(out, b.slots[id])
	b.lastSentPos = id
	b.dataCount = 0
	size := b.sizeLocked()
	b.mu.Unlock()

	if released {
		b.afterRelease(size)
	}
	b.consumed.ApplyAndNotify(increment)
	b.stats.Read()
	if b.metrics != nil {
		b.metrics.recordRead()
	}
	if missed > 0 {
		b.stats.Missed(int64(missed))
		if b.metrics != nil {
			b.metrics.recordMissed(missed)
		}
		b.logger.Debug("Readings skipped by latest-reading consumer", "missed", missed)
	}
	return missed
}

// LastProcessedRaw copies the slot most recently handed out by Raw or LastUnreadRaw.
// It changes no state and returns false when nothing was handed out yet.
func (b *SensorBuffer[T]) LastProcessedRaw(out *T) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.lastSentPos < 0 {
		return false
	}
	b.opts.copier(out, b.slots[b.lastSentPos])
	return true
}
