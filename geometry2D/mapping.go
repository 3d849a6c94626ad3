package geometry2D

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"
)

/*
	Reference cells are biunit:
		Triangle:      (-1,-1), (1,-1), (-1,1)
		Quadrilateral: (-1,-1), (1,-1), (1,1), (-1,1)
*/

// Map sends reference coordinates (r,s) to physical space.
func (s Shape) Map(r, ss float64) orb.Point {
	var (
		v = s.Verts
	)
	switch s.Kind {
	case Triangle:
		l1, l2, l3 := -0.5*(r+ss), 0.5*(1+r), 0.5*(1+ss)
		return orb.Point{
			l1*v[0][0] + l2*v[1][0] + l3*v[2][0],
			l1*v[0][1] + l2*v[1][1] + l3*v[2][1],
		}
	default:
		var (
			n = bilinear(r, ss)
			p orb.Point
		)
		for i := 0; i < 4; i++ {
			p[0] += n[i] * v[i][0]
			p[1] += n[i] * v[i][1]
		}
		return p
	}
}

func bilinear(r, s float64) [4]float64 {
	return [4]float64{
		0.25 * (1 - r) * (1 - s),
		0.25 * (1 + r) * (1 - s),
		0.25 * (1 + r) * (1 + s),
		0.25 * (1 - r) * (1 + s),
	}
}

// Jacobian returns d(x,y)/d(r,s) as [xr, xs, yr, ys].
func (s Shape) Jacobian(r, ss float64) (J [4]float64) {
	var (
		v = s.Verts
	)
	switch s.Kind {
	case Triangle:
		J[0] = 0.5 * (v[1][0] - v[0][0])
		J[1] = 0.5 * (v[2][0] - v[0][0])
		J[2] = 0.5 * (v[1][1] - v[0][1])
		J[3] = 0.5 * (v[2][1] - v[0][1])
	default:
		dr := [4]float64{-0.25 * (1 - ss), 0.25 * (1 - ss), 0.25 * (1 + ss), -0.25 * (1 + ss)}
		ds := [4]float64{-0.25 * (1 - r), -0.25 * (1 + r), 0.25 * (1 + r), 0.25 * (1 - r)}
		for i := 0; i < 4; i++ {
			J[0] += dr[i] * v[i][0]
			J[1] += ds[i] * v[i][0]
			J[2] += dr[i] * v[i][1]
			J[3] += ds[i] * v[i][1]
		}
	}
	return
}

// InverseMap finds the reference coordinates of a physical point. The point
// need not be inside the cell, but a quadrilateral whose bilinear map does
// not converge at p is a GeometryError.
func (s Shape) InverseMap(p orb.Point) (r, ss float64, err error) {
	const (
		maxIter = 50
	)
	var (
		J      = s.Jacobian(0, 0)
		scale  = math.Sqrt(s.area)
		tol    = 1.e-13
		dx, dy float64
	)
	if s.Kind == Triangle {
		dx, dy = p[0]-s.Verts[0][0], p[1]-s.Verts[0][1]
		det := J[0]*J[3] - J[1]*J[2]
		// x - v0 = J (r+1, s+1)
		r = (J[3]*dx-J[1]*dy)/det - 1
		ss = (-J[2]*dx+J[0]*dy)/det - 1
		return
	}
	for it := 0; it < maxIter; it++ {
		x := s.Map(r, ss)
		dx, dy = p[0]-x[0], p[1]-x[1]
		if math.Hypot(dx, dy) <= tol*scale {
			return
		}
		J = s.Jacobian(r, ss)
		det := J[0]*J[3] - J[1]*J[2]
		if math.Abs(det) < 1.e-14*s.area {
			break
		}
		r += (J[3]*dx - J[1]*dy) / det
		ss += (-J[2]*dx + J[0]*dy) / det
	}
	err = &GeometryError{Op: "inverse map",
		Msg: fmt.Sprintf("no convergence for point %v in quadrilateral %v", p, s.Verts)}
	return
}
