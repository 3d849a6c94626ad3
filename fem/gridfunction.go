package fem

import (
	"context"
	"fmt"

	"github.com/notargets/parmortar/FE2D"
	"github.com/notargets/parmortar/parallel"
	"github.com/paulmach/orb"
)

// GridFunction holds the owned coefficients of a field in a Space. Data has
// NumOwnedScalar*VDim entries laid out according to Ordering.
type GridFunction struct {
	Space    *Space
	Ordering Ordering
	Data     []float64
}

func NewGridFunction(s *Space, ord Ordering) *GridFunction {
	return &GridFunction{
		Space:    s,
		Ordering: ord,
		Data:     make([]float64, s.NumOwnedScalar()*s.VDim),
	}
}

func (gf *GridFunction) index(i, c int) int {
	if gf.Ordering == ByVDim {
		return i*gf.Space.VDim + c
	}
	return c*gf.Space.NumOwnedScalar() + i
}

// At returns component c of owned scalar dof i.
func (gf *GridFunction) At(i, c int) float64 { return gf.Data[gf.index(i, c)] }

func (gf *GridFunction) Set(i, c int, val float64) { gf.Data[gf.index(i, c)] = val }

// Component copies out component c of the owned dofs.
func (gf *GridFunction) Component(c int) (vals []float64) {
	vals = make([]float64, gf.Space.NumOwnedScalar())
	for i := range vals {
		vals[i] = gf.At(i, c)
	}
	return
}

func (gf *GridFunction) SetComponent(c int, vals []float64) {
	for i, val := range vals {
		gf.Set(i, c, val)
	}
}

// Interleaved copies the field into global vector dof order (ByVDim),
// which is the column and row order of vector operators.
func (gf *GridFunction) Interleaved() (vals []float64) {
	vals = make([]float64, len(gf.Data))
	for i := 0; i < gf.Space.NumOwnedScalar(); i++ {
		for c := 0; c < gf.Space.VDim; c++ {
			vals[i*gf.Space.VDim+c] = gf.At(i, c)
		}
	}
	return
}

func (gf *GridFunction) SetInterleaved(vals []float64) {
	for i := 0; i < gf.Space.NumOwnedScalar(); i++ {
		for c := 0; c < gf.Space.VDim; c++ {
			gf.Set(i, c, vals[i*gf.Space.VDim+c])
		}
	}
}

// Coefficient evaluates component c of an analytic field at p.
type Coefficient func(p orb.Point, c int) float64

// ProjectCoefficient interpolates fn at the vertices of an H1 space, and
// takes exact-to-quadrature cell averages for an L2 space.
func (gf *GridFunction) ProjectCoefficient(fn Coefficient) (err error) {
	var (
		s = gf.Space
	)
	if s.Order == 1 {
		for i, p := range s.OwnedCoordinates() {
			for c := 0; c < s.VDim; c++ {
				gf.Set(i, c, fn(p, c))
			}
		}
		return
	}
	for k := 0; k < s.NumElements(); k++ {
		shape, err := s.Shape(k)
		if err != nil {
			return fmt.Errorf("element %d: %w", s.Mesh.ElemGlobal[k], err)
		}
		var (
			sums = make([]float64, s.VDim)
			area float64
		)
		for _, piece := range shape.ConvexParts() {
			pts, w := FE2D.PolygonCubature(piece, 4)
			for q, p := range pts {
				area += w[q]
				for c := range sums {
					sums[c] += w[q] * fn(p, c)
				}
			}
		}
		if area == 0 {
			// degenerate cell, take the point value
			cen := elementCentroid(s.Mesh, k)
			for c := range sums {
				gf.Set(k, c, fn(cen, c))
			}
			continue
		}
		for c, sum := range sums {
			gf.Set(k, c, sum/area)
		}
	}
	return
}

// Integral returns ∫ u_c over the local domain summed over all ranks, one
// value per component. Collective.
func (gf *GridFunction) Integral(ctx context.Context, comm *parallel.Comm) (totals []float64, err error) {
	var (
		s  = gf.Space
		mi []float64
	)
	if mi, err = s.BasisIntegrals(ctx, comm); err != nil {
		return
	}
	totals = make([]float64, s.VDim)
	for c := range totals {
		for i, m := range mi {
			totals[c] += m * gf.At(i, c)
		}
	}
	if err = parallel.AllReduceSum(ctx, comm, totals); err != nil {
		return nil, err
	}
	return
}

// MaxDifference returns max |a-b| over owned dofs, reduced over ranks.
func MaxDifference(ctx context.Context, comm *parallel.Comm, a, b *GridFunction) (float64, error) {
	if len(a.Data) != len(b.Data) {
		return 0, fmt.Errorf("field sizes differ: %d and %d", len(a.Data), len(b.Data))
	}
	var diff float64
	for i := 0; i < a.Space.NumOwnedScalar(); i++ {
		for c := 0; c < a.Space.VDim; c++ {
			d := a.At(i, c) - b.At(i, c)
			if d < 0 {
				d = -d
			}
			diff = max(diff, d)
		}
	}
	return parallel.AllReduceMax(ctx, comm, diff)
}
