// Package synthetic drives a proprioceptive sensor with generated readings.
//
// The driver paces production with a token-bucket limiter, one reading per
// period, and dates each reading with the wall clock plus the sensor's timestamp
// correction. Readings are reproducible for a given seed and clock:
//
//	imu, _ := hardware.NewProprio(256, hardware.CovVar,
//		hardware.Quantities(hardware.QAcc, hardware.QAngVel))
//	drv, _ := synthetic.New(imu, synthetic.Config{Period: 0.005, Seed: 1, Noise: 0.02})
//	_ = drv.Start(ctx)
//	defer drv.Stop()
//
// The sensor is normally in live mode: a consumer that falls behind makes the
// buffer overflow, and the lost readings show in Dropped and in the buffer's
// overflow statistics.
package synthetic
