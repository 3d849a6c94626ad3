//go:build !metis

package mesh

import "errors"

// MetisPartitioner needs the METIS C library; build with -tags metis.
type MetisPartitioner struct {
	config *PartitionConfig
}

func NewMetisPartitioner(config *PartitionConfig) *MetisPartitioner {
	return &MetisPartitioner{config: config}
}

func (mp *MetisPartitioner) Partition(m *Mesh, nparts int) (part []int, err error) {
	return nil, errors.New("metis partitioner not available, rebuild with -tags metis")
}
