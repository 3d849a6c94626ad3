//go:build cgo

package mesh

import (
	"fmt"

	"github.com/notargets/parmortar/geometry2D"
	"github.com/paulmach/orb"
	"github.com/pradeep-pyro/triangle"
)

// NewDelaunay triangulates a point cloud with Shewchuk's Triangle.
func NewDelaunay(pts []orb.Point) (m *Mesh, err error) {
	if len(pts) < 3 {
		return nil, fmt.Errorf("delaunay needs at least 3 points, have %d", len(pts))
	}
	in := make([][2]float64, len(pts))
	for i, p := range pts {
		in[i] = [2]float64{p[0], p[1]}
	}
	tris := triangle.Delaunay(in)
	elems := make([]Element, 0, len(tris))
	for _, tri := range tris {
		elems = append(elems, Element{Kind: geometry2D.Triangle,
			Verts: []int{int(tri[0]), int(tri[1]), int(tri[2])}})
	}
	return NewMesh(append([]orb.Point(nil), pts...), elems)
}
