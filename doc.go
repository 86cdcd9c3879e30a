// Package sensorstream is the sensor acquisition layer of a localization and
// mapping pipeline. It decouples hardware acquisition goroutines from a
// synchronous estimation loop that consumes readings by timestamp.
//
// # Architecture
//
// Each sensor owns a bounded ring buffer of timestamped readings:
//
//	driver goroutine --Push--> SensorBuffer --Raws/Raw/LastUnreadRaw--> estimator
//	                               |
//	                     Statistics, Prometheus metrics, health
//
// In live mode a full buffer refuses the reading and reports an overflow; in
// offline mode, when replaying a log, the producer waits for the consumer.
//
// # Packages
//
//   - pkg/buffer: the generic SensorBuffer, the Condition notifier and statistics
//   - hardware: reading payloads, the proprioceptive quantity registry, driver lifecycle
//   - input/replay, input/synthetic: offline and live drivers
//   - config: YAML configuration of a run
//   - health: sensor health derived from buffer statistics
//   - metric: Prometheus registry and the metrics endpoint
//   - errors: classified errors shared by every package
//   - pkg/retry, pkg/timestamp: backoff and date helpers
//
// The sensorbuf command wires them together:
//
//	sensorbuf run --config configs/sensors.yaml
//	SENSORBUF_LOG_LEVEL=debug sensorbuf validate -c base.yaml,lab.yaml
package sensorstream
