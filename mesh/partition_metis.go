//go:build metis

package mesh

import (
	"fmt"
	"log"

	metis "github.com/notargets/go-metis"
)

type MetisPartitioner struct {
	config *PartitionConfig
}

func NewMetisPartitioner(config *PartitionConfig) *MetisPartitioner {
	return &MetisPartitioner{config: config}
}

func (mp *MetisPartitioner) Partition(m *Mesh, nparts int) (part []int, err error) {
	if nparts < 1 {
		return nil, fmt.Errorf("nparts must be >= 1, have %d", nparts)
	}
	part = make([]int, m.NumElements())
	if nparts == 1 {
		return
	}
	log.Printf("Partitioning mesh with %d elements into %d parts", m.NumElements(), nparts)

	xadj, adjncy := m.dualGraph()

	opts := make([]int32, metis.NoOptions)
	if err = metis.SetDefaultOptions(opts); err != nil {
		return nil, fmt.Errorf("failed to set METIS options: %w", err)
	}
	if mp.config.Objective == "vol" {
		opts[metis.OptionObjType] = metis.ObjTypeVol
	} else {
		opts[metis.OptionObjType] = metis.ObjTypeCut
	}
	ubvec := []float32{mp.config.ImbalanceFactor}

	p32, objval, err := metis.PartGraphKwayWeighted(
		xadj, adjncy, nil, nil,
		int32(nparts), nil, ubvec, opts,
	)
	if err != nil {
		return nil, fmt.Errorf("METIS partitioning failed: %w", err)
	}
	for k := range part {
		part[k] = int(p32[k])
	}
	log.Printf("METIS objective value: %d", objval)
	return
}
