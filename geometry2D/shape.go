package geometry2D

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

type Kind uint8

const (
	Triangle Kind = iota
	Quadrilateral
)

func (k Kind) NumVertices() int {
	switch k {
	case Triangle:
		return 3
	case Quadrilateral:
		return 4
	}
	panic(fmt.Errorf("unknown element kind %d", k))
}

func (k Kind) String() string {
	switch k {
	case Triangle:
		return "Triangle"
	case Quadrilateral:
		return "Quadrilateral"
	}
	return fmt.Sprintf("Kind(%d)", k)
}

// Shape is the physical geometry of one cell: a triangle or quadrilateral
// with counter-clockwise vertices.
type Shape struct {
	Kind  Kind
	Verts []orb.Point
	area  float64
	parts []orb.Ring
}

// NewShape validates the vertex loop and precomputes the convex
// decomposition used by clipping. A clockwise loop or a self-intersecting
// quadrilateral is a GeometryError. A zero-area loop is a valid degenerate
// shape with no convex parts, so it intersects nothing.
func NewShape(kind Kind, verts []orb.Point) (s Shape, err error) {
	if len(verts) != kind.NumVertices() {
		err = &GeometryError{Op: "shape",
			Msg: fmt.Sprintf("%v needs %d vertices, have %d", kind, kind.NumVertices(), len(verts))}
		return
	}
	s = Shape{Kind: kind, Verts: verts}
	s.area = SignedArea(verts)
	var (
		b      = orb.MultiPoint(verts).Bound()
		extent = math.Max(b.Right()-b.Left(), b.Top()-b.Bottom())
		zero   = degenerateArea * extent * extent
	)
	if s.area < -zero {
		err = &GeometryError{Op: "shape",
			Msg: fmt.Sprintf("%v with negative signed area %g", kind, s.area)}
		return
	}
	if kind == Quadrilateral && selfIntersecting(verts) {
		err = &GeometryError{Op: "shape", Msg: fmt.Sprintf("self-intersecting quadrilateral %v", verts)}
		return
	}
	if s.area <= zero {
		s.area = 0
		return
	}
	s.parts = convexParts(verts)
	return
}

// degenerateArea is the zero-area cut-off relative to the squared extent.
const degenerateArea = 1.e-14

func (s Shape) Degenerate() bool { return len(s.parts) == 0 }

func (s Shape) Area() float64 { return s.area }

func (s Shape) Bound() orb.Bound {
	return orb.MultiPoint(s.Verts).Bound()
}

// ConvexParts returns the shape as one or two convex counter-clockwise
// rings whose union is the shape.
func (s Shape) ConvexParts() []orb.Ring { return s.parts }

func (s Shape) Ring() orb.Ring {
	r := make(orb.Ring, 0, len(s.Verts)+1)
	r = append(r, s.Verts...)
	return append(r, s.Verts[0])
}

// Contains reports whether p lies in the closed shape.
func (s Shape) Contains(p orb.Point) bool {
	if !s.Bound().Contains(p) {
		return false
	}
	if planar.RingContains(s.Ring(), p) {
		return true
	}
	// RingContains is not reliable on the boundary
	for i := range s.Verts {
		a, b := s.Verts[i], s.Verts[(i+1)%len(s.Verts)]
		if distToSegment(p, a, b) < 1.e-12*math.Sqrt(s.area) {
			return true
		}
	}
	return false
}

// SignedArea of an open vertex loop via Green's theorem, positive for
// counter-clockwise.
func SignedArea(verts []orb.Point) (area float64) {
	n := len(verts)
	for i := 0; i < n; i++ {
		p0, p1 := verts[i], verts[(i+1)%n]
		area += p0[0]*p1[1] - p1[0]*p0[1]
	}
	return 0.5 * area
}

func cross(o, a, b orb.Point) float64 {
	return (a[0]-o[0])*(b[1]-o[1]) - (a[1]-o[1])*(b[0]-o[0])
}

func distToSegment(p, a, b orb.Point) float64 {
	var (
		dx, dy = b[0] - a[0], b[1] - a[1]
		l2     = dx*dx + dy*dy
		t      float64
	)
	if l2 > 0 {
		t = ((p[0]-a[0])*dx + (p[1]-a[1])*dy) / l2
		t = math.Max(0, math.Min(1, t))
	}
	return math.Hypot(p[0]-(a[0]+t*dx), p[1]-(a[1]+t*dy))
}

// segmentsCross reports a proper crossing of segments ab and cd.
func segmentsCross(a, b, c, d orb.Point) bool {
	d1, d2 := cross(a, b, c), cross(a, b, d)
	d3, d4 := cross(c, d, a), cross(c, d, b)
	return ((d1 > 0 && d2 < 0) || (d1 < 0 && d2 > 0)) &&
		((d3 > 0 && d4 < 0) || (d3 < 0 && d4 > 0))
}

func selfIntersecting(verts []orb.Point) bool {
	return segmentsCross(verts[0], verts[1], verts[2], verts[3]) ||
		segmentsCross(verts[1], verts[2], verts[3], verts[0])
}

func convexParts(verts []orb.Point) (parts []orb.Ring) {
	if len(verts) == 3 {
		return []orb.Ring{{verts[0], verts[1], verts[2]}}
	}
	reflex := -1
	for i := 0; i < 4; i++ {
		if cross(verts[(i+3)%4], verts[i], verts[(i+1)%4]) < 0 {
			reflex = i
			break
		}
	}
	if reflex < 0 {
		return []orb.Ring{{verts[0], verts[1], verts[2], verts[3]}}
	}
	// the diagonal from a reflex vertex always lies inside a simple quad
	var (
		i0, i1, i2, i3 = reflex, (reflex + 1) % 4, (reflex + 2) % 4, (reflex + 3) % 4
	)
	parts = []orb.Ring{
		{verts[i0], verts[i1], verts[i2]},
		{verts[i2], verts[i3], verts[i0]},
	}
	return
}
