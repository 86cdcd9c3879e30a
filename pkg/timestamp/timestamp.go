// Package timestamp converts between sensor dates and wall-clock time.
//
// Sensor dates are float64 seconds since the Unix epoch, the unit every buffer
// and driver uses. Sub-second precision is kept down to the microsecond.
//
// Usage Examples:
//
//	// Current date, e.g. the arrival of a reading
//	now := timestamp.Now()
//
//	// Dates read from a log may be numbers or RFC3339 strings
//	t, err := timestamp.Parse("2023-01-01T12:00:00.25Z")
//	t, err = timestamp.Parse(1672574400.25)
//
//	// Format for display
//	display := timestamp.Format(t)
package timestamp

import (
	"fmt"
	"math"
	"strconv"
	"time"
)

// msThreshold separates dates written in milliseconds from dates in seconds:
// 1e12 seconds is far in the future, 1e12 milliseconds is 2001.
const msThreshold = 1e12

// Now returns the current date in seconds.
func Now() float64 {
	return FromTime(time.Now())
}

// FromTime converts a time.Time to seconds. The zero time converts to 0.
func FromTime(t time.Time) float64 {
	if t.IsZero() {
		return 0
	}
	return float64(t.UnixMicro()) / 1e6
}

// ToTime converts seconds to a time.Time. 0 converts to the zero time.
func ToTime(s float64) time.Time {
	if s == 0 {
		return time.Time{}
	}
	return time.UnixMicro(int64(math.Round(s * 1e6)))
}

// Format converts seconds to an RFC3339 string with sub-second digits.
// Returns an empty string for 0.
func Format(s float64) string {
	if s == 0 {
		return ""
	}
	return ToTime(s).UTC().Format(time.RFC3339Nano)
}

// Parse converts a logged date to seconds.
// Supports:
//   - float64, int64, int (seconds, or milliseconds when larger than 1e12)
//   - string (RFC3339, or a number as above)
//   - time.Time
func Parse(input any) (float64, error) {
	switch v := input.(type) {
	case float64:
		return fromNumber(v)
	case int64:
		return fromNumber(float64(v))
	case int:
		return fromNumber(float64(v))
	case string:
		if v == "" {
			return 0, fmt.Errorf("empty timestamp")
		}
		if t, err := time.Parse(time.RFC3339Nano, v); err == nil {
			return FromTime(t), nil
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0, fmt.Errorf("unparseable timestamp %q", v)
		}
		return fromNumber(f)
	case time.Time:
		return FromTime(v), nil
	default:
		return 0, fmt.Errorf("unsupported timestamp type %T", input)
	}
}

func fromNumber(v float64) (float64, error) {
	if err := Validate(v); err != nil {
		return 0, err
	}
	if v > msThreshold {
		return v / 1000, nil
	}
	return v, nil
}

// Since returns the wall-clock duration elapsed since the date s.
func Since(s float64) time.Duration {
	return time.Since(ToTime(s))
}

// Duration converts a period in seconds to a time.Duration.
func Duration(s float64) time.Duration {
	return time.Duration(math.Round(s * float64(time.Second)))
}

// Validate checks that s is a usable date: finite and not negative.
func Validate(s float64) error {
	if math.IsNaN(s) || math.IsInf(s, 0) {
		return fmt.Errorf("timestamp is not finite: %v", s)
	}
	if s < 0 {
		return fmt.Errorf("timestamp cannot be negative: %v", s)
	}
	return nil
}
