package mesh

import (
	"fmt"

	"github.com/notargets/parmortar/geometry2D"
	"github.com/paulmach/orb"
)

// NewRectangle builds an nx by ny structured mesh of the box. Triangle meshes
// split every cell along its lower-left to upper-right diagonal.
func NewRectangle(nx, ny int, box orb.Bound, kind geometry2D.Kind) (m *Mesh, err error) {
	if nx < 1 || ny < 1 {
		return nil, fmt.Errorf("rectangle needs nx, ny >= 1, have %d, %d", nx, ny)
	}
	var (
		verts = make([]orb.Point, 0, (nx+1)*(ny+1))
		elems []Element
		dx    = (box.Max[0] - box.Min[0]) / float64(nx)
		dy    = (box.Max[1] - box.Min[1]) / float64(ny)
		vid   = func(i, j int) int { return i + j*(nx+1) }
	)
	for j := 0; j <= ny; j++ {
		for i := 0; i <= nx; i++ {
			verts = append(verts, orb.Point{box.Min[0] + float64(i)*dx, box.Min[1] + float64(j)*dy})
		}
	}
	for j := 0; j < ny; j++ {
		for i := 0; i < nx; i++ {
			v00, v10, v11, v01 := vid(i, j), vid(i+1, j), vid(i+1, j+1), vid(i, j+1)
			switch kind {
			case geometry2D.Quadrilateral:
				elems = append(elems, Element{Kind: kind, Verts: []int{v00, v10, v11, v01}})
			default:
				elems = append(elems,
					Element{Kind: geometry2D.Triangle, Verts: []int{v00, v10, v11}},
					Element{Kind: geometry2D.Triangle, Verts: []int{v00, v11, v01}})
			}
		}
	}
	return NewMesh(verts, elems)
}

// NewTrapezoid is the unit square with its upper-left corner pulled right by
// offset, refined uniformly nref times.
func NewTrapezoid(offset float64, kind geometry2D.Kind, nref int) (m *Mesh, err error) {
	if offset >= 0.9 {
		return nil, fmt.Errorf("trapezoid offset %g is too large, must be < 0.9", offset)
	}
	verts := []orb.Point{{0, 0}, {1, 0}, {1, 1}, {offset, 1}}
	var elems []Element
	if kind == geometry2D.Quadrilateral {
		elems = []Element{{Kind: kind, Verts: []int{0, 1, 2, 3}}}
	} else {
		elems = []Element{
			{Kind: geometry2D.Triangle, Verts: []int{0, 1, 2}},
			{Kind: geometry2D.Triangle, Verts: []int{0, 2, 3}},
		}
	}
	if m, err = NewMesh(verts, elems); err != nil {
		return
	}
	for i := 0; i < nref; i++ {
		if m, err = m.Refine(); err != nil {
			return
		}
	}
	return
}

// Refine splits every element into four. Edge midpoints are shared between
// neighbours; quadrilaterals also get a center vertex.
func (m *Mesh) Refine() (*Mesh, error) {
	var (
		verts = append([]orb.Point(nil), m.Verts...)
		mids  = make(map[EdgeKey]int)
		elems = make([]Element, 0, 4*len(m.Elems))
	)
	mid := func(a, b int) int {
		ek := NewEdgeKey([2]int{a, b})
		if v, ok := mids[ek]; ok {
			return v
		}
		pa, pb := m.Verts[a], m.Verts[b]
		verts = append(verts, orb.Point{0.5 * (pa[0] + pb[0]), 0.5 * (pa[1] + pb[1])})
		mids[ek] = len(verts) - 1
		return mids[ek]
	}
	for k, el := range m.Elems {
		v := el.Verts
		switch el.Kind {
		case geometry2D.Triangle:
			ab, bc, ca := mid(v[0], v[1]), mid(v[1], v[2]), mid(v[2], v[0])
			elems = append(elems,
				Element{Kind: el.Kind, Verts: []int{v[0], ab, ca}},
				Element{Kind: el.Kind, Verts: []int{ab, v[1], bc}},
				Element{Kind: el.Kind, Verts: []int{ca, bc, v[2]}},
				Element{Kind: el.Kind, Verts: []int{ab, bc, ca}})
		case geometry2D.Quadrilateral:
			ab, bc, cd, da := mid(v[0], v[1]), mid(v[1], v[2]), mid(v[2], v[3]), mid(v[3], v[0])
			verts = append(verts, m.Centroid(k))
			o := len(verts) - 1
			elems = append(elems,
				Element{Kind: el.Kind, Verts: []int{v[0], ab, o, da}},
				Element{Kind: el.Kind, Verts: []int{ab, v[1], bc, o}},
				Element{Kind: el.Kind, Verts: []int{o, bc, v[2], cd}},
				Element{Kind: el.Kind, Verts: []int{da, o, cd, v[3]}})
		}
	}
	return NewMesh(verts, elems)
}
