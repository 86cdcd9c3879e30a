// Package health reports the state of acquired sensors.
//
// Three states are tracked:
//   - Healthy: readings flow and the consumer keeps up
//   - Degraded: readings were lost to overflow, or the buffer is nearly full
//   - Unhealthy: the overflow rate is past the threshold, or the driver failed
//
// FromBuffer derives a Status from the statistics of any Source, which every
// sensor buffer satisfies. Monitor keeps the latest status of each sensor and,
// when given the pipeline metrics, mirrors it into the health status gauge:
//
//	monitor := health.NewMonitor(registry.CoreMetrics())
//	go monitor.Watch(ctx, time.Second, health.DefaultThresholds(), imu, odometry)
//
//	status := monitor.AggregateHealth("pipeline")
//
// Driver errors go through FromDriverError, which removes paths, URLs and
// credentials from the message.
package health
