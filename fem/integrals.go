package fem

import (
	"context"
	"fmt"

	"github.com/notargets/parmortar/FE2D"
	"github.com/notargets/parmortar/parallel"
)

type dofValue struct {
	Dof int
	Val float64
}

// BasisIntegrals returns ∫ φ_i for every owned scalar dof i. Contributions
// from elements on other ranks are routed to the owner. Collective; the
// result is cached on the space.
func (s *Space) BasisIntegrals(ctx context.Context, comm *parallel.Comm) (mi []float64, err error) {
	if s.basisInt != nil {
		return s.basisInt, nil
	}
	var (
		out    = make(map[int][]dofValue)
		lo, hi = s.OwnedScalarRange()
		in     map[int][]dofValue
	)
	for k := 0; k < s.NumElements(); k++ {
		var (
			fe   = s.FE(k)
			dofs = s.ElementDofs(k)
			phi  = make([]float64, fe.NumDofs())
			loc  = make([]float64, fe.NumDofs())
		)
		shape, err := s.Shape(k)
		if err != nil {
			return nil, fmt.Errorf("element %d: %w", s.Mesh.ElemGlobal[k], err)
		}
		for _, piece := range shape.ConvexParts() {
			pts, w := FE2D.PolygonCubature(piece, fe.Degree()+1)
			for q, p := range pts {
				r, ss, err := shape.InverseMap(p)
				if err != nil {
					return nil, fmt.Errorf("element %d: %w", s.Mesh.ElemGlobal[k], err)
				}
				fe.Basis(r, ss, phi)
				for i := range loc {
					loc[i] += w[q] * phi[i]
				}
			}
		}
		for i, g := range dofs {
			owner := s.ScalarOwner(g)
			out[owner] = append(out[owner], dofValue{g, loc[i]})
		}
	}
	if in, err = parallel.Exchange(ctx, comm, out); err != nil {
		return
	}
	mi = make([]float64, hi-lo)
	// sum in rank order so the result does not depend on arrival order
	for src := 0; src < comm.Size(); src++ {
		for _, dv := range in[src] {
			mi[dv.Dof-lo] += dv.Val
		}
	}
	s.basisInt = mi
	return
}
