package mesh

import (
	"fmt"

	"github.com/notargets/parmortar/geometry2D"
	"github.com/paulmach/orb"
)

// Element is one cell of a serial mesh, vertices counter-clockwise.
type Element struct {
	Kind  geometry2D.Kind
	Verts []int
}

// Mesh is a serial 2D mesh of triangles and quadrilaterals. It is the input
// to partitioning and Distribute; no rank ever holds it during a transfer.
type Mesh struct {
	Verts []orb.Point
	Elems []Element
}

// NewMesh validates the connectivity and flips clockwise elements so that
// every element has positive signed area.
func NewMesh(verts []orb.Point, elems []Element) (m *Mesh, err error) {
	m = &Mesh{Verts: verts, Elems: elems}
	for k := range m.Elems {
		el := &m.Elems[k]
		if len(el.Verts) != el.Kind.NumVertices() {
			return nil, fmt.Errorf("element %d: %v has %d vertices", k, el.Kind, len(el.Verts))
		}
		for _, v := range el.Verts {
			if v < 0 || v >= len(verts) {
				return nil, fmt.Errorf("element %d: vertex %d out of range [0,%d)", k, v, len(verts))
			}
		}
		if geometry2D.SignedArea(m.elementPoints(k)) < 0 {
			el.reverse()
		}
		if _, err = m.Shape(k); err != nil {
			return nil, fmt.Errorf("element %d: %w", k, err)
		}
	}
	return
}

// reverse flips orientation while keeping the first vertex in place.
func (el *Element) reverse() {
	v := el.Verts
	for i, j := 1, len(v)-1; i < j; i, j = i+1, j-1 {
		v[i], v[j] = v[j], v[i]
	}
}

func (m *Mesh) NumElements() int { return len(m.Elems) }
func (m *Mesh) NumVertices() int { return len(m.Verts) }

func (m *Mesh) elementPoints(k int) (pts []orb.Point) {
	pts = make([]orb.Point, len(m.Elems[k].Verts))
	for i, v := range m.Elems[k].Verts {
		pts[i] = m.Verts[v]
	}
	return
}

func (m *Mesh) Shape(k int) (geometry2D.Shape, error) {
	return geometry2D.NewShape(m.Elems[k].Kind, m.elementPoints(k))
}

func (m *Mesh) Centroid(k int) (c orb.Point) {
	pts := m.elementPoints(k)
	for _, p := range pts {
		c[0] += p[0]
		c[1] += p[1]
	}
	c[0] /= float64(len(pts))
	c[1] /= float64(len(pts))
	return
}

func (m *Mesh) Bound() orb.Bound {
	return orb.MultiPoint(m.Verts).Bound()
}

// Area sums element areas.
func (m *Mesh) Area() (area float64) {
	for k := range m.Elems {
		area += geometry2D.SignedArea(m.elementPoints(k))
	}
	return
}

// Transform returns a copy of the mesh with every vertex moved by fn.
func (m *Mesh) Transform(fn func(orb.Point) orb.Point) (*Mesh, error) {
	verts := make([]orb.Point, len(m.Verts))
	for i, p := range m.Verts {
		verts[i] = fn(p)
	}
	elems := make([]Element, len(m.Elems))
	for k, el := range m.Elems {
		elems[k] = Element{Kind: el.Kind, Verts: append([]int(nil), el.Verts...)}
	}
	return NewMesh(verts, elems)
}

func (m *Mesh) Translate(dx, dy float64) (*Mesh, error) {
	return m.Transform(func(p orb.Point) orb.Point {
		return orb.Point{p[0] + dx, p[1] + dy}
	})
}
