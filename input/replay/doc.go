// Package replay feeds a proprioceptive sensor from a recorded log.
//
// A log holds one JSON object per line; blank lines and lines starting with '#'
// are ignored:
//
//	# imu, acc + ang_vel, no covariance
//	{"t": 12.00, "values": [0.01, 0.02, 9.81, 0.0, 0.0, 0.1]}
//	{"t": 12.01, "arrival": 12.013, "values": [0.01, 0.03, 9.80, 0.0, 0.0, 0.1]}
//
// The driver adds the sensor's timestamp correction to every date. A sensor
// buffer in offline mode makes the replay wait for the consumer, so no reading
// is lost; in live mode readings refused by a full buffer are counted as dropped.
//
//	imu, _ := hardware.NewProprio(64, hardware.CovNone,
//		hardware.Quantities(hardware.QAcc, hardware.QAngVel),
//		hardware.BufferOptions(buffer.WithMode[hardware.RawVec](buffer.Offline)))
//	drv, _ := replay.New(imu, "imu.jsonl")
//	if err := drv.Start(ctx); err != nil {
//		return err
//	}
//	defer drv.Stop()
package replay
