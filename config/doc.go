// Package config loads the YAML configuration of a sensor acquisition run.
//
// A file lists the sensors to acquire and the driver feeding each one:
//
//	log:
//	  level: info
//	  format: json
//	metrics:
//	  enabled: true
//	  port: 9090
//	sensors:
//	  - name: imu
//	    kind: synthetic
//	    capacity: 256
//	    quantities: [acc, ang_vel]
//	    period: 0.01
//	    arrival_delay: 0.002
//	  - name: odometry
//	    kind: replay
//	    source: logs/odo.jsonl
//	    covariance: var
//	    quantities: [pos, ori_quat]
//
// Validate fills defaults in place: capacity 64, covariance none, mode offline
// for replay sensors and live otherwise. Errors wrap errors.ErrInvalidConfig.
//
// Loader reads several files in order, later layers overriding earlier ones, and
// SafeConfig guards a configuration shared between goroutines.
package config
