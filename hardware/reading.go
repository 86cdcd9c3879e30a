package hardware

import (
	"github.com/c360/sensorstream/pkg/buffer"
)

// RawVec is a proprioceptive reading: a flat vector whose element 0 is the timestamp,
// followed by the registered quantities and their covariance.
type RawVec struct {
	Data        []float64 `json:"data"`
	ArrivalTime float64   `json:"arrival"`
}

// NewRawVec returns a reading of n elements marked as holding no data.
func NewRawVec(n int) RawVec {
	r := RawVec{Data: make([]float64, n)}
	if n > 0 {
		r.Data[0] = buffer.NoData
	}
	return r
}

// Timestamp returns element 0, or NoData for an empty vector.
func (r RawVec) Timestamp() float64 {
	if len(r.Data) == 0 {
		return buffer.NoData
	}
	return r.Data[0]
}

// Arrival returns the date the reading became available.
func (r RawVec) Arrival() float64 {
	return r.ArrivalTime
}

// CopyRawVec copies src into dst reusing dst's backing array when it is large enough.
func CopyRawVec(dst *RawVec, src RawVec) {
	dst.Data = append(dst.Data[:0], src.Data...)
	dst.ArrivalTime = src.ArrivalTime
}

// Raw is an exteroceptive reading (an image, a scan) shared by handle. The buffer
// slot and every consumer holding the pointer keep it alive.
type Raw struct {
	Stamp       float64 `json:"timestamp"`
	ArrivalTime float64 `json:"arrival"`
	Kind        string  `json:"kind"`
	Payload     []byte  `json:"payload"`
}

// Timestamp returns the acquisition date, NoData for a nil handle.
func (r *Raw) Timestamp() float64 {
	if r == nil {
		return buffer.NoData
	}
	return r.Stamp
}

// Arrival returns the date the reading became available, 0 for a nil handle.
func (r *Raw) Arrival() float64 {
	if r == nil {
		return 0
	}
	return r.ArrivalTime
}
