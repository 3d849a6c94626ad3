package fem

import (
	"fmt"

	"github.com/notargets/parmortar/FE2D"
	"github.com/notargets/parmortar/geometry2D"
	"github.com/notargets/parmortar/mesh"
	"github.com/notargets/parmortar/utils"
	"github.com/paulmach/orb"
)

type Ordering uint8

const (
	ByNodes Ordering = iota // all values of component 0, then component 1, ...
	ByVDim                  // values of all components of dof 0, then dof 1, ...
)

func (o Ordering) String() string {
	if o == ByVDim {
		return "byVDIM"
	}
	return "byNODES"
}

// Space is one rank's view of a distributed finite element space on a
// local mesh. Order 0 is the discontinuous piecewise constant (L2) space
// with one dof per element; order 1 is the continuous (H1) space with one
// dof per vertex. Scalar dofs are numbered globally with the element or
// vertex numbering of the mesh, so every rank owns a contiguous range.
//
// With VDim > 1, global vector dof numbers interleave components:
// scalar*VDim + c.
type Space struct {
	Mesh  *mesh.Local
	Order int
	VDim  int

	fes      map[geometry2D.Kind]FE2D.FiniteElement
	elemDofs [][]int
	offsets  *utils.PartitionMap

	ownedCoords   []orb.Point
	ownedOriginal []int
	basisInt      []float64
}

func NewSpace(l *mesh.Local, order, vdim int) (s *Space, err error) {
	if vdim < 1 {
		return nil, fmt.Errorf("vector dimension must be >= 1, have %d", vdim)
	}
	s = &Space{
		Mesh:     l,
		Order:    order,
		VDim:     vdim,
		fes:      make(map[geometry2D.Kind]FE2D.FiniteElement),
		elemDofs: make([][]int, l.NumElements()),
	}
	for _, kind := range []geometry2D.Kind{geometry2D.Triangle, geometry2D.Quadrilateral} {
		var fe FE2D.FiniteElement
		if fe, err = FE2D.NewElement(kind, order); err != nil {
			return nil, err
		}
		s.fes[kind] = fe
	}
	switch order {
	case 0:
		s.offsets = l.ElemOffsets
		for k := range l.Elems {
			s.elemDofs[k] = []int{l.ElemGlobal[k]}
			s.ownedCoords = append(s.ownedCoords, elementCentroid(l, k))
			s.ownedOriginal = append(s.ownedOriginal, l.ElemOriginal[k])
		}
	case 1:
		s.offsets = l.VertOffsets
		for k, el := range l.Elems {
			s.elemDofs[k] = make([]int, len(el.Verts))
			for i, v := range el.Verts {
				s.elemDofs[k][i] = l.VertGlobal[v]
			}
		}
		// local vertices are sorted by global number, owned ones are contiguous
		for v, owner := range l.VertOwner {
			if owner == l.Rank {
				s.ownedCoords = append(s.ownedCoords, l.Verts[v])
				s.ownedOriginal = append(s.ownedOriginal, l.VertOriginal[v])
			}
		}
	}
	if len(s.ownedCoords) != s.NumOwnedScalar() {
		return nil, fmt.Errorf("rank %d owns %d dofs but the offsets give %d",
			l.Rank, len(s.ownedCoords), s.NumOwnedScalar())
	}
	return
}

func elementCentroid(l *mesh.Local, k int) (c orb.Point) {
	for _, v := range l.Elems[k].Verts {
		c[0] += l.Verts[v][0]
		c[1] += l.Verts[v][1]
	}
	n := float64(len(l.Elems[k].Verts))
	c[0] /= n
	c[1] /= n
	return
}

func (s *Space) Rank() int { return s.Mesh.Rank }

// ScalarOffsets gives the global scalar dof range owned by each rank.
func (s *Space) ScalarOffsets() *utils.PartitionMap { return s.offsets }

func (s *Space) NumOwnedScalar() int { return s.offsets.GetBucketDimension(s.Mesh.Rank) }
func (s *Space) GlobalScalarSize() int { return s.offsets.MaxIndex }

// OwnedScalarRange is the half open global range of scalar dofs owned here.
func (s *Space) OwnedScalarRange() (lo, hi int) { return s.offsets.GetBucketRange(s.Mesh.Rank) }

// ScalarOwner returns the rank owning global scalar dof g.
func (s *Space) ScalarOwner(g int) int {
	bn, _, _ := s.offsets.GetBucket(g)
	return bn
}

func (s *Space) NumElements() int { return s.Mesh.NumElements() }

func (s *Space) FE(k int) FE2D.FiniteElement { return s.fes[s.Mesh.Elems[k].Kind] }

// KindFE is the basis used on cells of the given kind, local or not.
func (s *Space) KindFE(kind geometry2D.Kind) FE2D.FiniteElement { return s.fes[kind] }

func (s *Space) Shape(k int) (geometry2D.Shape, error) { return s.Mesh.Shape(k) }

// ElementDofs returns the global scalar dofs of local element k in basis
// order.
func (s *Space) ElementDofs(k int) []int { return s.elemDofs[k] }

// OwnedCoordinates are the physical locations of the owned scalar dofs:
// vertices for H1, element centroids for L2.
func (s *Space) OwnedCoordinates() []orb.Point { return s.ownedCoords }

// OwnedOriginal maps owned scalar dofs to vertex or element ids of the
// serial mesh, which do not depend on the partitioning.
func (s *Space) OwnedOriginal() []int { return s.ownedOriginal }
