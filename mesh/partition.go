package mesh

import (
	"fmt"
	"sort"

	"github.com/notargets/parmortar/utils"
)

// Partitioner assigns every element of a serial mesh to one of nparts parts.
type Partitioner interface {
	Partition(m *Mesh, nparts int) (part []int, err error)
}

func NewPartitioner(name string) (Partitioner, error) {
	switch name {
	case "", "block":
		return BlockPartitioner{}, nil
	case "rcb":
		return RCBPartitioner{}, nil
	case "metis":
		return NewMetisPartitioner(DefaultPartitionConfig()), nil
	}
	return nil, fmt.Errorf("unknown partitioner %q, want block, rcb or metis", name)
}

// BlockPartitioner splits the element list into contiguous chunks of equal
// size, imbalance at most one element.
type BlockPartitioner struct{}

func (BlockPartitioner) Partition(m *Mesh, nparts int) (part []int, err error) {
	if nparts < 1 {
		return nil, fmt.Errorf("nparts must be >= 1, have %d", nparts)
	}
	var (
		pm = utils.NewPartitionMap(nparts, m.NumElements())
	)
	part = make([]int, m.NumElements())
	for k := range part {
		part[k], _, _ = pm.GetBucket(k)
	}
	return
}

// RCBPartitioner is recursive coordinate bisection on element centroids,
// cutting the longer extent each time. nparts need not be a power of two.
type RCBPartitioner struct{}

func (RCBPartitioner) Partition(m *Mesh, nparts int) (part []int, err error) {
	if nparts < 1 {
		return nil, fmt.Errorf("nparts must be >= 1, have %d", nparts)
	}
	var (
		ids = make([]int, m.NumElements())
	)
	part = make([]int, m.NumElements())
	for k := range ids {
		ids[k] = k
	}
	rcb(m, ids, 0, nparts, part)
	return
}

func rcb(m *Mesh, ids []int, first, nparts int, part []int) {
	if nparts == 1 || len(ids) == 0 {
		for _, k := range ids {
			part[k] = first
		}
		return
	}
	var (
		lo, hi = m.Centroid(ids[0]), m.Centroid(ids[0])
	)
	for _, k := range ids {
		c := m.Centroid(k)
		for d := 0; d < 2; d++ {
			lo[d], hi[d] = min(lo[d], c[d]), max(hi[d], c[d])
		}
	}
	dim := 0
	if hi[1]-lo[1] > hi[0]-lo[0] {
		dim = 1
	}
	sort.SliceStable(ids, func(i, j int) bool {
		ci, cj := m.Centroid(ids[i]), m.Centroid(ids[j])
		if ci[dim] != cj[dim] {
			return ci[dim] < cj[dim]
		}
		return ids[i] < ids[j]
	})
	var (
		nleft = nparts / 2
		split = len(ids) * nleft / nparts
	)
	rcb(m, ids[:split], first, nleft, part)
	rcb(m, ids[split:], first+nleft, nparts-nleft, part)
}

// PartitionConfig holds configuration for graph partitioning
type PartitionConfig struct {
	ImbalanceFactor float32 // e.g., 1.05 for 5% imbalance
	Objective       string  // "cut" or "vol"
}

func DefaultPartitionConfig() *PartitionConfig {
	return &PartitionConfig{
		ImbalanceFactor: 1.05,
		Objective:       "vol", // minimize communication volume
	}
}

// dualGraph is the element adjacency across shared edges in METIS CSR form.
func (m *Mesh) dualGraph() (xadj, adjncy []int32) {
	var (
		nbrs = m.ElementNeighbors()
	)
	xadj = make([]int32, m.NumElements()+1)
	for k, nb := range nbrs {
		for _, kk := range nb {
			adjncy = append(adjncy, int32(kk))
		}
		xadj[k+1] = int32(len(adjncy))
	}
	return
}

// PartitionSizes counts elements per part.
func PartitionSizes(part []int, nparts int) (counts []int) {
	counts = make([]int, nparts)
	for _, p := range part {
		counts[p]++
	}
	return
}
