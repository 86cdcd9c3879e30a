// Package hardware provides the sensor-side types built on the generic buffer.
//
// Two payloads instantiate buffer.SensorBuffer:
//
//   - RawVec: a proprioceptive value reading, a flat vector whose element 0 is the
//     timestamp. Slots own their vectors and are overwritten in place.
//   - *Raw: an exteroceptive reading shared by handle. A nil handle reports NoData.
//
// Proprio adds the quantity registry. A driver declares what it measures, in order,
// then calls InitData:
//
//	imu, err := hardware.NewProprio(256, hardware.CovVar,
//		hardware.Quantities(hardware.QAcc, hardware.QAngVel))
//	if err != nil {
//		return err
//	}
//	imu.InitData()
//
//	r := imu.NewReading()
//	r.Data[0] = t
//	copy(r.Data[imu.Quantity(hardware.QAcc):], acc)
//	err = imu.Push(ctx, r)
//
// Extero adds nothing to the buffer beyond the handle payload.
//
// Drivers implement Driver and usually run their acquisition loop under a Lifecycle,
// which provides the started and stopping flags and waits for the goroutine on Stop.
package hardware
