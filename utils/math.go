package utils

import (
	"math"
)

// AlmostEqual compares with a tolerance relative to the larger magnitude,
// falling back to absolute for values near zero.
func AlmostEqual(a, b, tol float64) bool {
	var scale = math.Max(1, math.Max(math.Abs(a), math.Abs(b)))
	return math.Abs(a-b) <= tol*scale
}
