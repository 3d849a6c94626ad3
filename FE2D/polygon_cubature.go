package FE2D

import (
	"github.com/notargets/parmortar/geometry2D"
	"github.com/paulmach/orb"
)

// PolygonCubature integrates over a convex polygon by fanning it into
// triangles from its first vertex and mapping the reference triangle rule
// onto each. Points are returned in physical coordinates; weights include
// the area Jacobian.
func PolygonCubature(piece orb.Ring, degree int) (pts []orb.Point, w []float64) {
	var (
		cub = NewCubature(geometry2D.Triangle, degree)
		a   = piece[0]
	)
	for i := 1; i+1 < len(piece); i++ {
		var (
			b, c = piece[i], piece[i+1]
			tri  = []orb.Point{a, b, c}
			area = geometry2D.SignedArea(tri)
		)
		if area <= 0 {
			continue
		}
		for q := 0; q < cub.Nq; q++ {
			r, s := cub.R[q], cub.S[q]
			l1, l2, l3 := -0.5*(r+s), 0.5*(1+r), 0.5*(1+s)
			pts = append(pts, orb.Point{
				l1*a[0] + l2*b[0] + l3*c[0],
				l1*a[1] + l2*b[1] + l3*c[1],
			})
			// reference triangle has area 2
			w = append(w, 0.5*area*cub.W[q])
		}
	}
	return
}
