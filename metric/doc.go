// Package metric wraps a Prometheus registry for the sensor pipeline.
//
// MetricsRegistry owns a private prometheus.Registry pre-loaded with the Go and
// process collectors plus the pipeline-level Metrics (sensor status, consumed
// readings, consume latency, errors, health). Buffers and drivers register their
// own collectors under a "sensor.metric" key so a duplicate registration is
// reported as an invalid error instead of a panic.
//
//	registry := metric.NewMetricsRegistry()
//	imu, err := buffer.New[hardware.RawVec](256,
//		buffer.WithMetrics[hardware.RawVec](registry, "imu"),
//	)
//
// Server exposes the registry over HTTP with promhttp:
//
//	srv := metric.NewServer(9090, "/metrics", registry)
//	go srv.Start()
//	defer srv.Stop(ctx)
package metric
