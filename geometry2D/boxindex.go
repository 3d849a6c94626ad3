package geometry2D

import (
	"math"
	"sort"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/quadtree"
)

type indexedBox struct {
	id     int
	bound  orb.Bound
	center orb.Point
}

func (ib *indexedBox) Point() orb.Point { return ib.center }

// BoxIndex answers "which boxes overlap this box" queries. Boxes are stored
// in a quadtree by center; a query is widened by the largest half extent and
// then filtered exactly.
type BoxIndex struct {
	qt      *quadtree.Quadtree
	boxes   []*indexedBox
	maxHalf float64
}

func NewBoxIndex(bounds []orb.Bound) (bi *BoxIndex) {
	bi = &BoxIndex{boxes: make([]*indexedBox, len(bounds))}
	if len(bounds) == 0 {
		return
	}
	total := bounds[0]
	for i, b := range bounds {
		total = total.Union(b)
		bi.boxes[i] = &indexedBox{id: i, bound: b, center: b.Center()}
		bi.maxHalf = math.Max(bi.maxHalf, 0.5*math.Max(b.Right()-b.Left(), b.Top()-b.Bottom()))
	}
	bi.qt = quadtree.New(total)
	for _, ib := range bi.boxes {
		// centers are inside the union, Add cannot fail
		_ = bi.qt.Add(ib)
	}
	return
}

func (bi *BoxIndex) Len() int { return len(bi.boxes) }

// Query returns the ids of all boxes intersecting b, ascending.
func (bi *BoxIndex) Query(b orb.Bound) (ids []int) {
	if bi.qt == nil {
		return
	}
	for _, p := range bi.qt.InBound(nil, b.Pad(bi.maxHalf)) {
		ib := p.(*indexedBox)
		if ib.bound.Intersects(b) {
			ids = append(ids, ib.id)
		}
	}
	sort.Ints(ids)
	return
}
