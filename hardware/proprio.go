package hardware

import (
	"context"
	"fmt"
	"sync"

	"github.com/c360/sensorstream/errors"
	"github.com/c360/sensorstream/pkg/buffer"
)

// ProprioOption configures a Proprio sensor at construction.
type ProprioOption func(*proprioOptions)

type proprioOptions struct {
	bufferOpts []buffer.Option[RawVec]
	quantities []Quantity
	instant    []int
	increment  []int
}

// BufferOptions forwards options to the underlying sensor buffer.
func BufferOptions(opts ...buffer.Option[RawVec]) ProprioOption {
	return func(o *proprioOptions) {
		o.bufferOpts = append(o.bufferOpts, opts...)
	}
}

// Quantities registers quantities, in order, at construction.
func Quantities(qs ...Quantity) ProprioOption {
	return func(o *proprioOptions) {
		o.quantities = append(o.quantities, qs...)
	}
}

// ValueIndices declares which reading elements are instant values of a physical
// quantity (integrated by the estimator) and which are increments since the
// previous reading (odometry). Indices exclude element 0, the timestamp.
func ValueIndices(instant, increment []int) ProprioOption {
	return func(o *proprioOptions) {
		o.instant = append([]int(nil), instant...)
		o.increment = append([]int(nil), increment...)
	}
}

// Proprio is a proprioceptive sensor buffer: readings are flat vectors laid out by a
// registry of named quantities.
//
// Quantities are registered first, then InitData sizes every slot. The layout is
// frozen from then on.
type Proprio struct {
	*buffer.SensorBuffer[RawVec]

	mu          sync.RWMutex
	cov         CovType
	offsets     [quantityCount]int
	dataSize    int
	obsSize     int
	initialized bool
	instant     []int
	increment   []int
}

// NewProprio creates a proprioceptive sensor holding capacity readings with the given
// covariance representation.
func NewProprio(capacity int, cov CovType, opts ...ProprioOption) (*Proprio, error) {
	if cov < CovNone || cov > CovFull {
		return nil, errors.WrapInvalid(
			fmt.Errorf("%w: covariance type %d", errors.ErrInvalidConfig, int(cov)),
			"Proprio", "NewProprio", "covariance check")
	}

	o := &proprioOptions{}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}

	// slots own their vectors, so copies reuse the destination storage
	bufOpts := append([]buffer.Option[RawVec]{buffer.WithCopier[RawVec](CopyRawVec)}, o.bufferOpts...)
	buf, err := buffer.New[RawVec](capacity, bufOpts...)
	if err != nil {
		return nil, err
	}

	p := &Proprio{
		SensorBuffer: buf,
		cov:          cov,
		instant:      o.instant,
		increment:    o.increment,
	}
	p.clearLocked()

	for _, q := range o.quantities {
		if err := p.AddQuantity(q); err != nil {
			return nil, err
		}
	}

	return p, nil
}

func (p *Proprio) clearLocked() {
	for i := range p.offsets {
		p.offsets[i] = -1
	}
	p.dataSize = 0
	p.obsSize = 0
}

// AddQuantity appends q to the reading layout. Its values start right after the
// values already registered (element 0 being the timestamp).
func (p *Proprio) AddQuantity(q Quantity) error {
	if !q.Valid() {
		return errors.WrapInvalid(
			fmt.Errorf("%w: %s", errors.ErrInvalidConfig, q),
			"Proprio", "AddQuantity", "quantity check")
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.initialized {
		return errors.WrapInvalid(errors.ErrRegistryFrozen, "Proprio", "AddQuantity", "register "+q.String())
	}
	if p.offsets[q] >= 0 {
		return errors.WrapInvalid(
			fmt.Errorf("%w: %s registered twice", errors.ErrInvalidConfig, q),
			"Proprio", "AddQuantity", "duplicate check")
	}

	p.offsets[q] = p.dataSize + 1
	p.dataSize += QuantityDataSizes[q]
	p.obsSize += QuantityObsSizes[q]
	return nil
}

// ClearQuantities empties the layout.
func (p *Proprio) ClearQuantities() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.initialized {
		return errors.WrapInvalid(errors.ErrRegistryFrozen, "Proprio", "ClearQuantities", "clear layout")
	}
	p.clearLocked()
	return nil
}

// Quantity returns the offset of q in a reading, -1 if it is not measured.
func (p *Proprio) Quantity(q Quantity) int {
	if !q.Valid() {
		return -1
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.offsets[q]
}

// DataSize returns the number of measured values, timestamp and uncertainty excluded.
func (p *Proprio) DataSize() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.dataSize
}

// ObsSize returns how many of the measured values can be predicted from the state.
func (p *Proprio) ObsSize() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.obsSize
}

// CovType returns the covariance representation fixed at construction.
func (p *Proprio) CovType() CovType {
	return p.cov
}

// ReadingSize returns the length of a reading vector holding the timestamp, the
// values and their uncertainty.
func (p *Proprio) ReadingSize() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.cov.readingSize(p.dataSize)
}

// InstantValues returns the indices of values that are instant measures of a quantity.
func (p *Proprio) InstantValues() []int {
	return append([]int(nil), p.instant...)
}

// IncrementValues returns the indices of values that are increments since the previous reading.
func (p *Proprio) IncrementValues() []int {
	return append([]int(nil), p.increment...)
}

// InitData sizes every slot to ReadingSize and marks it as holding no data. It must
// run once the layout is complete and before the producer starts; registration is
// rejected afterwards.
func (p *Proprio) InitData() {
	p.mu.Lock()
	p.initialized = true
	size := p.cov.readingSize(p.dataSize)
	p.mu.Unlock()

	p.InitSlots(func(slot *RawVec) {
		if cap(slot.Data) >= size {
			slot.Data = slot.Data[:size]
			clear(slot.Data)
		} else {
			slot.Data = make([]float64, size)
		}
		slot.Data[0] = buffer.NoData
		slot.ArrivalTime = 0
	})
}

// Initialized reports whether InitData ran.
func (p *Proprio) Initialized() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.initialized
}

// NewReading returns a scratch reading of ReadingSize elements for the producer to fill.
func (p *Proprio) NewReading() RawVec {
	return NewRawVec(p.ReadingSize())
}

// Push checks r against the layout and stores it.
func (p *Proprio) Push(ctx context.Context, r RawVec) error {
	p.mu.RLock()
	initialized := p.initialized
	size := p.cov.readingSize(p.dataSize)
	p.mu.RUnlock()

	if !initialized {
		return errors.WrapInvalid(errors.ErrNotStarted, "Proprio", "Push", "InitData not called")
	}
	if len(r.Data) != size {
		return errors.WrapInvalid(
			fmt.Errorf("%w: reading has %d elements, layout needs %d", errors.ErrInvalidData, len(r.Data), size),
			"Proprio", "Push", "reading size check")
	}
	return p.SensorBuffer.Push(ctx, r)
}
