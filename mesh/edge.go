package mesh

import (
	"fmt"
	"math"
)

/*
EdgeKey stores an edge's two vertex indices packed into one comparable
value, lower index first, so that an edge has the same key from both of its
elements.
*/
type EdgeKey uint64

func NewEdgeKey(verts [2]int) (packed EdgeKey) {
	var (
		limit = math.MaxUint32
	)
	for _, vert := range verts {
		if vert < 0 || vert > limit {
			panic(fmt.Errorf("unable to pack two ints into a uint64, have %d and %d as inputs",
				verts[0], verts[1]))
		}
	}
	var i1, i2 int
	if verts[0] <= verts[1] {
		i1, i2 = verts[0], verts[1]
	} else {
		i1, i2 = verts[1], verts[0]
	}
	packed = EdgeKey(i1 + i2<<32)
	return
}

func (ek EdgeKey) GetVertices() (verts [2]int) {
	verts[1] = int(ek >> 32)
	verts[0] = int(ek & math.MaxUint32)
	return
}

// edgesOf lists the element's edges in vertex order.
func edgesOf(el Element) (keys []EdgeKey) {
	n := len(el.Verts)
	keys = make([]EdgeKey, n)
	for i := 0; i < n; i++ {
		keys[i] = NewEdgeKey([2]int{el.Verts[i], el.Verts[(i+1)%n]})
	}
	return
}

// ElementNeighbors returns, per element, the elements sharing an edge with it.
func (m *Mesh) ElementNeighbors() (nbrs [][]int) {
	var (
		edgeElems = make(map[EdgeKey][]int)
	)
	for k, el := range m.Elems {
		for _, ek := range edgesOf(el) {
			edgeElems[ek] = append(edgeElems[ek], k)
		}
	}
	nbrs = make([][]int, len(m.Elems))
	for k, el := range m.Elems {
		for _, ek := range edgesOf(el) {
			for _, kk := range edgeElems[ek] {
				if kk != k {
					nbrs[k] = append(nbrs[k], kk)
				}
			}
		}
	}
	return
}
