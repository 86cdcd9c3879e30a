package buffer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/sensorstream/errors"
)

func stampsOf(view View[sample]) []float64 {
	out := make([]float64, 0, view.Len())
	for _, r := range view.Raws {
		out = append(out, r.ts)
	}
	return out
}

func TestRaws_Range(t *testing.T) {
	buf := newTestBuffer(t, 8)
	pushAll(t, buf, 1, 2, 3, 4, 5)

	tests := []struct {
		name   string
		t1, t2 float64
		ids    []int
		stamps []float64
	}{
		{"middle with predecessor", 2, 4, []int{0, 1, 2, 3}, []float64{1, 2, 3, 4}},
		{"between readings", 2.5, 3.5, []int{1, 2, 3}, []float64{2, 3, 4}},
		{"single instant", 3, 3, []int{1, 2}, []float64{2, 3}},
		{"first reading has no predecessor", 1, 3, []int{0, 1, 2}, []float64{1, 2, 3}},
		{"from start", FromStart, 3, []int{0, 1, 2}, []float64{1, 2, 3}},
		{"upper bound past newest", 4, 100, []int{2, 3, 4}, []float64{3, 4, 5}},
		{"all older than t1", 10, 20, []int{4}, []float64{5}},
		{"far below the sentinel", -200, 2, []int{0, 1}, []float64{1, 2}},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			view, err := buf.Raws(test.t1, test.t2, false)
			require.NoError(t, err)
			assert.Equal(t, test.ids, view.IDs)
			assert.Equal(t, test.stamps, stampsOf(view))
		})
	}

	// plain range queries release nothing
	assert.Equal(t, 5, buf.Size())
	assert.Equal(t, 5, buf.Unread())
}

func TestRaws_Wraparound(t *testing.T) {
	buf := newTestBuffer(t, 5)
	pushAll(t, buf, 1, 2, 3, 4, 5)
	require.NoError(t, buf.Positions().ReleaseThrough(2))
	pushAll(t, buf, 6, 7)

	tests := []struct {
		name   string
		t1, t2 float64
		ids    []int
		stamps []float64
	}{
		{"crosses slot zero", 5, 6, []int{3, 4, 0}, []float64{4, 5, 6}},
		{"after slot zero", 6, 7, []int{4, 0, 1}, []float64{5, 6, 7}},
		{"reaches released history", 3.5, 4, []int{2, 3}, []float64{3, 4}},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			view, err := buf.Raws(test.t1, test.t2, false)
			require.NoError(t, err)
			assert.Equal(t, test.ids, view.IDs)
			assert.Equal(t, test.stamps, stampsOf(view))
		})
	}
}

func TestRaws_NoData(t *testing.T) {
	buf := newTestBuffer(t, 4)

	view, err := buf.Raws(1, 2, true)
	require.NoError(t, err)
	assert.True(t, view.Empty())

	view, err = buf.Raws(FromStart, 2, false)
	require.NoError(t, err)
	assert.True(t, view.Empty())

	view, err = buf.Raws(-200, 2, false)
	require.NoError(t, err)
	assert.True(t, view.Empty())
}

func TestRaws_SingleReadingOlderThanRange(t *testing.T) {
	buf := newTestBuffer(t, 4)
	pushAll(t, buf, 1)

	// the newest reading has no filled predecessor to interpolate from
	view, err := buf.Raws(2, 10, false)
	require.NoError(t, err)
	assert.True(t, view.Empty())

	pushAll(t, buf, 1.5)
	view, err = buf.Raws(2, 10, false)
	require.NoError(t, err)
	assert.Equal(t, []int{1}, view.IDs)
	assert.Equal(t, []float64{1.5}, stampsOf(view))
}

func TestRaws_SkipsUnfilledSlots(t *testing.T) {
	buf := newTestBuffer(t, 4)
	pushAll(t, buf, 1, 2)

	for _, t1 := range []float64{FromStart, NoData, -200} {
		view, err := buf.Raws(t1, 10, false)
		require.NoError(t, err)
		assert.Equal(t, []int{0, 1}, view.IDs, "t1 %g", t1)
		assert.Equal(t, []float64{1, 2}, stampsOf(view), "t1 %g", t1)
	}
}

func TestRaws_InvertedRange(t *testing.T) {
	buf := newTestBuffer(t, 4)
	pushAll(t, buf, 1, 2)

	_, err := buf.Raws(3, 2, false)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrInvalidRange))
	assert.True(t, errors.IsInvalid(err))
}

func TestRaws_OverwrittenHistory(t *testing.T) {
	buf := newTestBuffer(t, 4)
	pushAll(t, buf, 1, 2, 3, 4)
	buf.Release()
	buf.Release()
	pushAll(t, buf, 5, 6)

	_, err := buf.Raws(2.5, 10, false)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrBufferOverflow))
	assert.True(t, errors.IsFatal(err))
	assert.Equal(t, int64(1), buf.Stats().Overflows())

	// asking from the start is never an overflow
	view, err := buf.Raws(FromStart, 10, false)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 3, 0, 1}, view.IDs)
	assert.Equal(t, []float64{3, 4, 5, 6}, stampsOf(view))
}

func TestRaws_Release(t *testing.T) {
	buf := newTestBuffer(t, 4)
	pushAll(t, buf, 1, 2, 3, 4)

	view, err := buf.Raws(2.5, 10, true)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, view.IDs)

	// slot 0 is free, slot 1 is kept for interpolation
	assert.False(t, buf.IsFull())
	assert.Equal(t, 3, buf.Size())
	assert.Equal(t, 2, buf.Unread())

	var info RawInfo
	require.Equal(t, StatusOK, buf.NextRawInfo(&info))
	assert.Equal(t, 2, info.ID)

	pushAll(t, buf, 5)

	// a query starting before the read position does not move it back
	_, err = buf.Raws(FromStart, 10, true)
	require.NoError(t, err)
	assert.Equal(t, 4, buf.Size())
	require.Equal(t, StatusOK, buf.NextRawInfo(&info))
	assert.Equal(t, 2, info.ID)
}

func TestRaws_ViewIsCopy(t *testing.T) {
	buf := newTestBuffer(t, 2)
	pushAll(t, buf, 1, 2)

	view, err := buf.Raws(FromStart, 10, false)
	require.NoError(t, err)
	require.Equal(t, 2, view.Len())

	buf.Release()
	pushAll(t, buf, 3)

	assert.Equal(t, []float64{1, 2}, stampsOf(view))
}

func TestUnreadRawInfos(t *testing.T) {
	buf := newTestBuffer(t, 4)
	buf.SetTimingInfos(0.5, 0.1)

	var infos RawInfos
	assert.Equal(t, StatusNoData, buf.UnreadRawInfos(&infos))
	assert.Empty(t, infos.Available)

	pushAll(t, buf, 1, 2, 3, 4)

	var out sample
	require.NoError(t, buf.Raw(1, &out))
	pushAll(t, buf, 5, 6)
	require.True(t, buf.IsFull())

	infos.IntegrateAll = true
	infos.ProcessTime = 3
	require.Equal(t, StatusOK, buf.UnreadRawInfos(&infos))

	ids := make([]int, 0, len(infos.Available))
	stamps := make([]float64, 0, len(infos.Available))
	for _, info := range infos.Available {
		ids = append(ids, info.ID)
		stamps = append(stamps, info.Timestamp)
		assert.InDelta(t, info.Timestamp+0.01, info.Arrival, 1e-9)
	}
	assert.Equal(t, []int{2, 3, 0, 1}, ids)
	assert.Equal(t, []float64{3, 4, 5, 6}, stamps)

	assert.InDelta(t, 6.5, infos.Next.Timestamp, 1e-9)
	assert.InDelta(t, 6.6, infos.Next.Arrival, 1e-9)
	assert.Equal(t, 0.0, infos.ProcessTime)
	assert.True(t, infos.IntegrateAll)
}

func TestEndOfStreamSignalling(t *testing.T) {
	buf := newTestBuffer(t, 4)

	var infos RawInfos
	var info RawInfo
	assert.Equal(t, StatusNoData, buf.UnreadRawInfos(&infos))
	assert.Equal(t, StatusNoData, buf.NextRawInfo(&info))

	buf.MarkEndOfStream()
	buf.MarkEndOfStream()
	assert.True(t, buf.EndOfStream())

	for i := 0; i < 3; i++ {
		assert.Equal(t, StatusEndOfStream, buf.UnreadRawInfos(&infos))
		assert.Equal(t, StatusEndOfStream, buf.NextRawInfo(&info))
		var out sample
		assert.Equal(t, int(StatusEndOfStream), buf.LastUnreadRaw(&out))
	}
}

func TestEndOfStream_PendingDataStillServed(t *testing.T) {
	buf := newTestBuffer(t, 4)
	pushAll(t, buf, 1, 2)
	buf.MarkEndOfStream()

	var infos RawInfos
	require.Equal(t, StatusOK, buf.UnreadRawInfos(&infos))
	assert.Len(t, infos.Available, 2)

	var out sample
	assert.Equal(t, 1, buf.LastUnreadRaw(&out))
	assert.Equal(t, 2.0, out.ts)

	assert.Equal(t, StatusEndOfStream, buf.UnreadRawInfos(&infos))
}

func TestObserve_Idempotent(t *testing.T) {
	buf := newTestBuffer(t, 4)
	pushAll(t, buf, 1, 2, 3)

	var before RawInfos
	require.Equal(t, StatusOK, buf.UnreadRawInfos(&before))
	beforeIDs := append([]RawInfo(nil), before.Available...)

	var first, second sample
	require.NoError(t, buf.Observe(1, &first))
	require.NoError(t, buf.Observe(1, &second))
	assert.Equal(t, first, second)
	assert.Equal(t, at(2), first)

	var after RawInfos
	require.Equal(t, StatusOK, buf.UnreadRawInfos(&after))
	assert.Equal(t, beforeIDs, after.Available)
	assert.Equal(t, 3, buf.Size())
	assert.Equal(t, int64(2), buf.Stats().Peeks())
	assert.Equal(t, 0, buf.ConsumedCount())
}

func TestObserve_RetainedHistory(t *testing.T) {
	buf := newTestBuffer(t, 4)
	pushAll(t, buf, 1, 2)
	require.NoError(t, buf.Positions().ReleaseThrough(0))

	// released slots stay readable until overwritten, like the history Raws returns
	var out sample
	require.NoError(t, buf.Observe(0, &out))
	assert.Equal(t, at(1), out)

	// never written slots hold the zero reading dated NoData
	require.NoError(t, buf.Observe(3, &out))
	assert.Equal(t, sample{}, out)
	ts, err := buf.RawTimestamp(3)
	require.NoError(t, err)
	assert.Equal(t, NoData, ts)
	assert.Equal(t, 1, buf.Size())
}

func TestSlotIDValidation(t *testing.T) {
	buf := newTestBuffer(t, 4)
	var out sample

	for _, id := range []int{-1, 4} {
		assert.True(t, errors.Is(buf.Observe(id, &out), errors.ErrInvalidSlot))
		assert.True(t, errors.Is(buf.Raw(id, &out), errors.ErrInvalidSlot))
		_, err := buf.RawTimestamp(id)
		assert.True(t, errors.Is(err, errors.ErrInvalidSlot))
	}
}

func TestRaw_ClaimsAndCounts(t *testing.T) {
	buf := newTestBuffer(t, 4)
	pushAll(t, buf, 1, 2, 3)

	var out sample
	require.NoError(t, buf.Raw(1, &out))
	assert.Equal(t, at(2), out)
	assert.Equal(t, 1, buf.ConsumedCount())
	assert.Equal(t, 1, buf.Consumed().Value())

	// slots 0 and 1 released
	assert.Equal(t, 1, buf.Size())
	assert.Equal(t, 1, buf.Unread())

	err := buf.Raw(1, &out)
	assert.True(t, errors.Is(err, errors.ErrInvalidSlot), "slot 1 already released")
	assert.Equal(t, 1, buf.ConsumedCount())

	require.NoError(t, buf.Raw(2, &out))
	assert.Equal(t, 2, buf.ConsumedCount())
	assert.Equal(t, 0, buf.Size())
	assert.True(t, buf.IsEmpty())

	var last sample
	require.True(t, buf.LastProcessedRaw(&last))
	assert.Equal(t, at(3), last)
	assert.Equal(t, 0, buf.Size(), "diagnostic copy changes nothing")
}

func TestRaw_FreesCapacity(t *testing.T) {
	buf := newTestBuffer(t, 4)
	pushAll(t, buf, 1, 2, 3, 4)

	var out sample
	require.NoError(t, buf.Raw(0, &out))
	assert.False(t, buf.IsFull())
	assert.Equal(t, 3, buf.Size())
	require.NoError(t, buf.Push(context.Background(), at(5)))

	// five pushes since the last call, four of them skipped
	assert.Equal(t, 4, buf.LastUnreadRaw(&out))
	assert.Equal(t, 5.0, out.ts)
	assert.Equal(t, 0, buf.Size())
	require.NoError(t, buf.Push(context.Background(), at(6)))
}

func TestLastUnreadRaw(t *testing.T) {
	buf := newTestBuffer(t, 8)
	var out sample

	assert.Equal(t, int(StatusNoData), buf.LastUnreadRaw(&out))

	pushAll(t, buf, 1, 2, 3)
	assert.Equal(t, 2, buf.LastUnreadRaw(&out))
	assert.Equal(t, 3.0, out.ts)
	assert.True(t, buf.IsEmpty())
	assert.Equal(t, 0, buf.Size())

	assert.Equal(t, int(StatusNoData), buf.LastUnreadRaw(&out))

	pushAll(t, buf, 4)
	assert.Equal(t, 0, buf.LastUnreadRaw(&out))
	assert.Equal(t, 4.0, out.ts)

	buf.MarkEndOfStream()
	assert.Equal(t, int(StatusEndOfStream), buf.LastUnreadRaw(&out))

	assert.Equal(t, int64(2), buf.Stats().MissedReadings())
	assert.Equal(t, 2, buf.ConsumedCount())

	var last sample
	require.True(t, buf.LastProcessedRaw(&last))
	assert.Equal(t, 4.0, last.ts)
}
