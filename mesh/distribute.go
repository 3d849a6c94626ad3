package mesh

import (
	"fmt"
	"sort"

	"github.com/notargets/parmortar/geometry2D"
	"github.com/notargets/parmortar/utils"
	"github.com/paulmach/orb"
)

// Local is one rank's share of a distributed mesh. Elements and vertices
// carry partition-contiguous global numbers: rank r owns global elements
// ElemOffsets.Partitions[r] and global vertices VertOffsets.Partitions[r].
// A vertex shared by several parts is owned by the lowest part touching it.
type Local struct {
	Rank, Size int

	Elems        []Element // Verts index into Verts
	ElemGlobal   []int
	ElemOriginal []int

	Verts        []orb.Point // every vertex touched by a local element
	VertGlobal   []int
	VertOwner    []int
	VertOriginal []int

	ElemOffsets *utils.PartitionMap
	VertOffsets *utils.PartitionMap
}

func (l *Local) NumElements() int { return len(l.Elems) }

func (l *Local) Shape(k int) (geometry2D.Shape, error) {
	pts := make([]orb.Point, len(l.Elems[k].Verts))
	for i, v := range l.Elems[k].Verts {
		pts[i] = l.Verts[v]
	}
	return geometry2D.NewShape(l.Elems[k].Kind, pts)
}

// Distribute splits m into nparts local meshes according to part.
func Distribute(m *Mesh, part []int, nparts int) (locals []*Local, err error) {
	if len(part) != m.NumElements() {
		return nil, fmt.Errorf("partition has %d entries for %d elements", len(part), m.NumElements())
	}
	var (
		elemOrder  = make([]int, m.NumElements())
		owner      = make([]int, m.NumVertices())
		vertOrder  []int
		vertGlobal = make([]int, m.NumVertices())
		elemCounts = make([]int, nparts)
		vertCounts = make([]int, nparts)
	)
	for v := range owner {
		owner[v] = -1
	}
	for k, p := range part {
		if p < 0 || p >= nparts {
			return nil, fmt.Errorf("element %d assigned to part %d, want [0,%d)", k, p, nparts)
		}
		elemOrder[k] = k
		elemCounts[p]++
		for _, v := range m.Elems[k].Verts {
			if owner[v] < 0 || p < owner[v] {
				owner[v] = p
			}
		}
	}
	sort.SliceStable(elemOrder, func(i, j int) bool { return part[elemOrder[i]] < part[elemOrder[j]] })
	for v, o := range owner {
		if o >= 0 {
			vertOrder = append(vertOrder, v)
			vertCounts[o]++
		}
	}
	sort.SliceStable(vertOrder, func(i, j int) bool { return owner[vertOrder[i]] < owner[vertOrder[j]] })
	for v := range vertGlobal {
		vertGlobal[v] = -1
	}
	for g, v := range vertOrder {
		vertGlobal[v] = g
	}

	elemOffsets, err := utils.NewPartitionMapFromCounts(elemCounts)
	if err != nil {
		return
	}
	vertOffsets, err := utils.NewPartitionMapFromCounts(vertCounts)
	if err != nil {
		return
	}

	locals = make([]*Local, nparts)
	for r := range locals {
		locals[r] = &Local{Rank: r, Size: nparts, ElemOffsets: elemOffsets, VertOffsets: vertOffsets}
	}
	localVert := make([]map[int]int, nparts)
	for r := range localVert {
		localVert[r] = make(map[int]int)
	}
	// touched vertices per rank, in global order so local numbering is deterministic
	touched := make([][]int, nparts)
	for _, k := range elemOrder {
		r := part[k]
		for _, v := range m.Elems[k].Verts {
			if _, ok := localVert[r][v]; !ok {
				localVert[r][v] = -1
				touched[r] = append(touched[r], v)
			}
		}
	}
	for r, l := range locals {
		sort.Slice(touched[r], func(i, j int) bool { return vertGlobal[touched[r][i]] < vertGlobal[touched[r][j]] })
		for lv, v := range touched[r] {
			localVert[r][v] = lv
			l.Verts = append(l.Verts, m.Verts[v])
			l.VertGlobal = append(l.VertGlobal, vertGlobal[v])
			l.VertOwner = append(l.VertOwner, owner[v])
			l.VertOriginal = append(l.VertOriginal, v)
		}
	}
	for g, k := range elemOrder {
		var (
			r  = part[k]
			l  = locals[r]
			el = Element{Kind: m.Elems[k].Kind, Verts: make([]int, len(m.Elems[k].Verts))}
		)
		for i, v := range m.Elems[k].Verts {
			el.Verts[i] = localVert[r][v]
		}
		l.Elems = append(l.Elems, el)
		l.ElemGlobal = append(l.ElemGlobal, g)
		l.ElemOriginal = append(l.ElemOriginal, k)
	}
	return
}

// DistributeWith partitions and distributes in one step.
func DistributeWith(m *Mesh, p Partitioner, nparts int) (locals []*Local, err error) {
	var part []int
	if part, err = p.Partition(m, nparts); err != nil {
		return
	}
	return Distribute(m, part, nparts)
}
