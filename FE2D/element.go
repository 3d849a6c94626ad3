package FE2D

import (
	"fmt"

	"github.com/notargets/parmortar/geometry2D"
)

// FiniteElement is a scalar basis on a biunit reference cell.
type FiniteElement interface {
	Name() string
	Kind() geometry2D.Kind
	// Degree is the total polynomial degree of the basis, used to size
	// quadrature rules.
	Degree() int
	NumDofs() int
	// Basis writes the NumDofs basis values at (r,s) into phi.
	Basis(r, s float64, phi []float64)
	// VertexDofs reports whether dofs sit on cell vertices (H1) or are
	// interior to the cell (L2).
	VertexDofs() bool
}

// NewElement picks the lowest order element family for a space of the
// given order: 0 is piecewise constant, 1 is continuous linear (P1 on
// triangles, Q1 on quadrilaterals).
func NewElement(kind geometry2D.Kind, order int) (fe FiniteElement, err error) {
	switch order {
	case 0:
		return P0{kind: kind}, nil
	case 1:
		switch kind {
		case geometry2D.Triangle:
			return P1{}, nil
		case geometry2D.Quadrilateral:
			return Q1{}, nil
		}
	}
	err = fmt.Errorf("no finite element of order %d on %v", order, kind)
	return
}

type P0 struct {
	kind geometry2D.Kind
}

func (e P0) Name() string                      { return "P0" }
func (e P0) Kind() geometry2D.Kind             { return e.kind }
func (e P0) Degree() int                       { return 0 }
func (e P0) NumDofs() int                      { return 1 }
func (e P0) VertexDofs() bool                  { return false }
func (e P0) Basis(r, s float64, phi []float64) { phi[0] = 1 }

// P1 is the linear triangle with dofs at (-1,-1), (1,-1), (-1,1).
type P1 struct{}

func (P1) Name() string          { return "P1" }
func (P1) Kind() geometry2D.Kind { return geometry2D.Triangle }
func (P1) Degree() int           { return 1 }
func (P1) NumDofs() int          { return 3 }
func (P1) VertexDofs() bool      { return true }
func (P1) Basis(r, s float64, phi []float64) {
	phi[0] = -0.5 * (r + s)
	phi[1] = 0.5 * (1 + r)
	phi[2] = 0.5 * (1 + s)
}

// Q1 is the bilinear quadrilateral with counter-clockwise vertex dofs
// starting at (-1,-1).
type Q1 struct{}

func (Q1) Name() string          { return "Q1" }
func (Q1) Kind() geometry2D.Kind { return geometry2D.Quadrilateral }
func (Q1) Degree() int           { return 2 }
func (Q1) NumDofs() int          { return 4 }
func (Q1) VertexDofs() bool      { return true }
func (Q1) Basis(r, s float64, phi []float64) {
	phi[0] = 0.25 * (1 - r) * (1 - s)
	phi[1] = 0.25 * (1 + r) * (1 - s)
	phi[2] = 0.25 * (1 + r) * (1 + s)
	phi[3] = 0.25 * (1 - r) * (1 + s)
}
