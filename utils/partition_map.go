package utils

import (
	"fmt"
	"sort"
)

// PartitionMap describes a contiguous split of [0, MaxIndex) into
// ParallelDegree buckets. Bucket n owns [Partitions[n][0], Partitions[n][1]).
type PartitionMap struct {
	MaxIndex       int // MaxIndex is partitioned into ParallelDegree partitions
	ParallelDegree int
	Partitions     [][2]int // Beginning and end index of partitions
}

// NewPartitionMap splits maxIndex evenly, with a maximum imbalance of one item.
func NewPartitionMap(ParallelDegree, maxIndex int) (pm *PartitionMap) {
	pm = &PartitionMap{
		MaxIndex:       maxIndex,
		ParallelDegree: ParallelDegree,
		Partitions:     make([][2]int, ParallelDegree),
	}
	for n := 0; n < ParallelDegree; n++ {
		pm.Partitions[n] = pm.Split1D(n)
	}
	return
}

// NewPartitionMapFromCounts builds a map where bucket n holds counts[n] items.
// Empty buckets are allowed.
func NewPartitionMapFromCounts(counts []int) (pm *PartitionMap, err error) {
	pm = &PartitionMap{
		ParallelDegree: len(counts),
		Partitions:     make([][2]int, len(counts)),
	}
	for n, cnt := range counts {
		if cnt < 0 {
			return nil, fmt.Errorf("negative count %d for partition %d", cnt, n)
		}
		pm.Partitions[n] = [2]int{pm.MaxIndex, pm.MaxIndex + cnt}
		pm.MaxIndex += cnt
	}
	return
}

// GetBucket returns the bucket holding index k and its range, or bucketNum
// -1 if k is outside [0, MaxIndex).
func (pm *PartitionMap) GetBucket(k int) (bucketNum, min, max int) {
	if k < 0 || k >= pm.MaxIndex {
		return -1, 0, 0
	}
	// first bucket whose end is past k; empty buckets are skipped naturally
	bucketNum = sort.Search(pm.ParallelDegree, func(n int) bool {
		return pm.Partitions[n][1] > k
	})
	min, max = pm.Partitions[bucketNum][0], pm.Partitions[bucketNum][1]
	return
}

func (pm *PartitionMap) GetBucketRange(bucketNum int) (kMin, kMax int) {
	kMin, kMax = pm.Partitions[bucketNum][0], pm.Partitions[bucketNum][1]
	return
}

func (pm *PartitionMap) GetBucketDimension(bn int) (kMax int) {
	if bn == -1 {
		kMax = pm.MaxIndex
		return
	}
	var (
		k1, k2 = pm.GetBucketRange(bn)
	)
	kMax = k2 - k1
	return
}

// Counts returns the bucket sizes.
func (pm *PartitionMap) Counts() (counts []int) {
	counts = make([]int, pm.ParallelDegree)
	for n := range counts {
		counts[n] = pm.GetBucketDimension(n)
	}
	return
}

func (pm *PartitionMap) Split1D(threadNum int) (bucket [2]int) {
	// This routine splits one dimension into c.ParallelDegree pieces, with a maximum imbalance of one item
	var (
		Npart            = pm.MaxIndex / (pm.ParallelDegree)
		startAdd, endAdd int
		remainder        int
	)
	remainder = pm.MaxIndex % pm.ParallelDegree
	if remainder != 0 { // spread the remainder over the first chunks evenly
		if threadNum+1 > remainder {
			startAdd = remainder
			endAdd = 0
		} else {
			startAdd = threadNum
			endAdd = 1
		}
	}
	bucket[0] = threadNum*Npart + startAdd
	bucket[1] = bucket[0] + Npart + endAdd
	return
}
