package geometry2D

import (
	"math"

	"github.com/paulmach/orb"
)

// Tolerance controls the robustness of clipping. Eps is an absolute
// distance; RelArea discards intersections whose area falls below
// RelArea times the smaller of the two cell areas.
type Tolerance struct {
	Eps     float64
	RelArea float64
}

var DefaultTolerance = Tolerance{Eps: 1.e-12, RelArea: 1.e-10}

// Intersection is the overlap of two cells as a set of disjoint convex
// counter-clockwise polygons.
type Intersection struct {
	Pieces []orb.Ring
	Area   float64
}

func (in Intersection) Empty() bool { return len(in.Pieces) == 0 }

// Intersect clips every convex part of a against every convex part of b.
// A degenerate cell has no parts and gives an empty result.
func Intersect(a, b Shape, tol Tolerance) (in Intersection) {
	if a.Degenerate() || b.Degenerate() || !a.Bound().Intersects(b.Bound()) {
		return
	}
	for _, pa := range a.parts {
		for _, pb := range b.parts {
			piece := ClipConvex(pa, pb, tol.Eps)
			if len(piece) < 3 {
				continue
			}
			area := SignedArea(piece)
			if area <= 0 {
				continue
			}
			in.Pieces = append(in.Pieces, piece)
			in.Area += area
		}
	}
	if in.Area < tol.RelArea*math.Min(a.area, b.area) {
		return Intersection{}
	}
	return
}

// ClipConvex returns subject ∩ clip for convex counter-clockwise open rings
// using Sutherland-Hodgman. Points within eps of a clip edge count as inside.
func ClipConvex(subject, clip orb.Ring, eps float64) (out orb.Ring) {
	out = append(orb.Ring(nil), subject...)
	nc := len(clip)
	for i := 0; i < nc && len(out) > 0; i++ {
		var (
			e0, e1 = clip[i], clip[(i+1)%nc]
			elen   = math.Hypot(e1[0]-e0[0], e1[1]-e0[1])
			in     = out
		)
		if elen == 0 {
			continue
		}
		side := func(p orb.Point) float64 { return cross(e0, e1, p) / elen }
		out = make(orb.Ring, 0, len(in)+2)
		for j := range in {
			var (
				cur, next = in[j], in[(j+1)%len(in)]
				dc, dn    = side(cur), side(next)
			)
			if dc >= -eps {
				out = appendDistinct(out, cur, eps)
			}
			if (dc >= -eps) != (dn >= -eps) {
				t := dc / (dc - dn)
				out = appendDistinct(out, orb.Point{
					cur[0] + t*(next[0]-cur[0]),
					cur[1] + t*(next[1]-cur[1]),
				}, eps)
			}
		}
		if len(out) > 1 && closeTo(out[0], out[len(out)-1], eps) {
			out = out[:len(out)-1]
		}
	}
	if len(out) < 3 {
		return nil
	}
	return
}

func closeTo(a, b orb.Point, eps float64) bool {
	return math.Abs(a[0]-b[0]) <= eps && math.Abs(a[1]-b[1]) <= eps
}

func appendDistinct(r orb.Ring, p orb.Point, eps float64) orb.Ring {
	if len(r) != 0 && closeTo(r[len(r)-1], p, eps) {
		return r
	}
	return append(r, p)
}
