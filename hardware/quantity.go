package hardware

import "fmt"

// Quantity is a physical quantity a proprioceptive sensor can measure.
type Quantity int

const (
	// QPos is the position (x y z).
	QPos Quantity = iota
	// QOriQuat is the orientation as a quaternion (qx qy qz qw).
	QOriQuat
	// QOriEuler is the orientation as Euler angles (ex ey ez).
	QOriEuler
	// QVel is the linear velocity in the sensor frame.
	QVel
	// QAbsVel is the linear velocity in the world frame.
	QAbsVel
	// QAngVel is the angular velocity in the sensor frame.
	QAngVel
	// QAbsAngVel is the angular velocity in the world frame.
	QAbsAngVel
	// QAcc is the acceleration in the sensor frame.
	QAcc
	// QAbsAcc is the acceleration in the world frame.
	QAbsAcc
	// QBundleObs is a bearing towards a known position (x y z ux uy uz), the
	// direction always oriented from the robot.
	QBundleObs
	// QMag is the magnetic field.
	QMag

	quantityCount
)

// QuantityDataSizes is the width of each quantity in the measurement vector.
var QuantityDataSizes = [quantityCount]int{3, 4, 3, 3, 3, 3, 3, 3, 3, 6, 3}

// QuantityObsSizes is the width of each quantity when used as a predicted observation.
var QuantityObsSizes = [quantityCount]int{3, 4, 3, 3, 3, 3, 3, 3, 3, 6, 3}

var quantityNames = [quantityCount]string{
	"pos", "ori_quat", "ori_euler", "vel", "abs_vel", "ang_vel", "abs_ang_vel",
	"acc", "abs_acc", "bundle_obs", "mag",
}

// String returns the configuration name of the quantity.
func (q Quantity) String() string {
	if q < 0 || q >= quantityCount {
		return fmt.Sprintf("Quantity(%d)", int(q))
	}
	return quantityNames[q]
}

// Valid reports whether q is one of the known quantities.
func (q Quantity) Valid() bool {
	return q >= 0 && q < quantityCount
}

// ParseQuantity converts a configuration name such as "ori_quat" into a Quantity.
func ParseQuantity(name string) (Quantity, error) {
	for i, n := range quantityNames {
		if n == name {
			return Quantity(i), nil
		}
	}
	return -1, fmt.Errorf("unknown quantity %q", name)
}

// CovType selects how much uncertainty a reading carries after its values.
type CovType int

const (
	// CovNone stores values only.
	CovNone CovType = iota
	// CovVar stores one variance per value.
	CovVar
	// CovFull stores the packed upper triangle of the covariance matrix.
	CovFull
)

// String returns the configuration name of the covariance type.
func (c CovType) String() string {
	switch c {
	case CovNone:
		return "none"
	case CovVar:
		return "var"
	case CovFull:
		return "full"
	default:
		return "unknown"
	}
}

// ParseCovType converts "none", "var" or "full" into a CovType. Empty means none.
func ParseCovType(s string) (CovType, error) {
	switch s {
	case "none", "":
		return CovNone, nil
	case "var":
		return CovVar, nil
	case "full":
		return CovFull, nil
	default:
		return CovNone, fmt.Errorf("unknown covariance type %q", s)
	}
}

// readingSize is the vector length holding the timestamp, n values and their uncertainty.
func (c CovType) readingSize(n int) int {
	switch c {
	case CovNone:
		return 1 + n
	case CovVar:
		return 1 + 2*n
	case CovFull:
		return 1 + n*(n+3)/2
	default:
		return 0
	}
}
