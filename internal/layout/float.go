package layout

import "math"

// Epsilon is the tolerance used for every fraction-of-day comparison. One
// nanosecond of a day is ~1.2e-14, so 1e-9 (about 86µs) absorbs rounding drift
// from repeated additions without merging distinct minutes.
const Epsilon = 1e-9

// IsZero reports whether v is zero within Epsilon.
func IsZero(v float64) bool {
	return math.Abs(v) < Epsilon
}

// IsEqual reports whether a and b are equal within Epsilon.
func IsEqual(a, b float64) bool {
	return IsZero(a - b)
}

// IsGreater reports whether a exceeds b by more than Epsilon.
func IsGreater(a, b float64) bool {
	return a-b > Epsilon
}

// IsGreaterOrEqual reports whether a is greater than or equal to b within
// Epsilon.
func IsGreaterOrEqual(a, b float64) bool {
	return IsGreater(a, b) || IsEqual(a, b)
}

// IsLess reports whether a is below b by more than Epsilon.
func IsLess(a, b float64) bool {
	return a-b < -Epsilon
}
