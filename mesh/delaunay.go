package mesh

import (
	"math/rand"

	"github.com/paulmach/orb"
)

// NewDelaunayRect scatters about n points in the box, jittered off an
// n-point lattice with the given seed, keeps the box corners and boundary
// lattice points fixed, and triangulates them.
func NewDelaunayRect(n int, box orb.Bound, seed int64) (*Mesh, error) {
	var (
		rng  = rand.New(rand.NewSource(seed))
		side = 2
		pts  []orb.Point
	)
	for side*side < n {
		side++
	}
	var (
		hx = (box.Max[0] - box.Min[0]) / float64(side-1)
		hy = (box.Max[1] - box.Min[1]) / float64(side-1)
	)
	for j := 0; j < side; j++ {
		for i := 0; i < side; i++ {
			p := orb.Point{box.Min[0] + float64(i)*hx, box.Min[1] + float64(j)*hy}
			if i > 0 && i < side-1 && j > 0 && j < side-1 {
				p[0] += 0.3 * hx * (rng.Float64() - 0.5)
				p[1] += 0.3 * hy * (rng.Float64() - 0.5)
			}
			pts = append(pts, p)
		}
	}
	return NewDelaunay(pts)
}
