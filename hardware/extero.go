package hardware

import (
	"github.com/c360/sensorstream/pkg/buffer"
)

// Extero is an exteroceptive sensor buffer. Slots hold shared handles: pushing a
// new handle drops the slot's reference to the previous one, which lives on as long
// as a consumer still holds it.
type Extero struct {
	*buffer.SensorBuffer[*Raw]
}

// NewExtero creates an exteroceptive sensor holding capacity readings.
func NewExtero(capacity int, opts ...buffer.Option[*Raw]) (*Extero, error) {
	buf, err := buffer.New[*Raw](capacity, opts...)
	if err != nil {
		return nil, err
	}
	return &Extero{SensorBuffer: buf}, nil
}
