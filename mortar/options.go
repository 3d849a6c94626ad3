package mortar

import "github.com/notargets/parmortar/geometry2D"

// Options tunes the mass matrix solve and the clipping tolerances.
type Options struct {
	// Tolerance is the relative residual at which the mass matrix solve stops.
	Tolerance     float64
	MaxIterations int
	Geometry      geometry2D.Tolerance
	// Verbose logs per-phase counts and every skipped pair.
	Verbose bool
}

// DefaultOptions solves to a 1e-12 relative residual in at most 1000
// iterations with geometry2D.DefaultTolerance.
func DefaultOptions() Options {
	return Options{
		Tolerance:     1.e-12,
		MaxIterations: 1000,
		Geometry:      geometry2D.DefaultTolerance,
	}
}
