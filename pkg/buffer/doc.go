// Package buffer provides the timestamp-indexed ring buffer between a sensor
// acquisition goroutine and the consumers reading it by date, with built-in
// statistics and optional Prometheus metrics.
//
// # Overview
//
// A SensorBuffer holds a fixed number of readings written by exactly one producer.
// Consumers query it by timestamp range (Raws), ask for the newest reading
// (LastUnreadRaw), list what they have not read yet (UnreadRawInfos) or peek at a
// slot (Observe). Range queries and peeks do not free slots: history needed for
// interpolation survives until the consumer releases it or consumes it with Raw.
//
// # Quick Start
//
//	buf, err := buffer.New[hardware.RawVec](64,
//		buffer.WithName[hardware.RawVec]("imu"),
//		buffer.WithMode[hardware.RawVec](buffer.Offline),
//		buffer.WithMetrics[hardware.RawVec](registry, "imu"),
//	)
//	if err != nil {
//		return err
//	}
//
//	// producer goroutine
//	err = buf.Push(ctx, reading)
//
//	// consumer
//	view, err := buf.Raws(t1, t2, true)
//
// # Positions
//
// The write position is the next slot to fill. The read position is the oldest
// slot not released; when it has been handed out for interpolation it is "claimed"
// and no longer counts as unread, but it still may not be overwritten. When both
// positions coincide an explicit full flag tells a full buffer from an empty one.
//
// Two release disciplines exist:
//
//   - ReleaseUntil(id): frees the slots before id and claims id
//   - ReleaseThrough(id): frees every slot up to and including id
//
// Both are reachable only through the Releaser returned by Positions, and both
// reject ids outside the unreleased window, so release never moves backwards.
// Raws with release set uses ReleaseUntil on the interpolation predecessor.
// Raw and LastUnreadRaw release through the slot they hand out.
// Reset is the only way to rewind a buffer.
//
// # Overflow
//
// In Live mode a push into a full buffer fails with an error wrapping
// errors.ErrBufferOverflow: a live sensor cannot wait on its consumer. In Offline
// mode (replayed logs) the producer blocks until a slot is released, its context is
// done or the buffer is closed. There is no drop-oldest policy.
//
// A range query whose lower bound was already overwritten also fails with
// ErrBufferOverflow rather than silently returning a gap.
//
// # Status values
//
// Finding nothing is not an error. UnreadRawInfos and NextRawInfo return
// StatusNoData while the producer runs and StatusEndOfStream once it called
// MarkEndOfStream.
//
// # Statistics
//
// Statistics are always collected:
//
//	stats := buf.Stats()
//	fmt.Printf("Overflows: %d, missed: %d\n", stats.Overflows(), stats.MissedReadings())
//
// With WithMetrics the same counters are exported under the sensorstream_buffer
// namespace with a "sensor" label.
package buffer
