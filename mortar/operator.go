package mortar

import (
	"context"
	"fmt"
	"sort"

	"github.com/notargets/parmortar/parallel"
	"github.com/notargets/parmortar/utils"
)

// Triplet is one (row, column, value) contribution in global dof numbers.
type Triplet struct {
	Row, Col int
	Val      float64
}

// Operator is a row-distributed sparse matrix. Each rank stores its owned
// rows with the columns compacted to the global columns they reference; the
// halo plan gathers those column values from their owners for MulVec.
type Operator struct {
	Rows, Cols *utils.PartitionMap
	Components int

	comm      *parallel.Comm
	local     utils.CSR
	hasLocal  bool
	colGlobal []int
	halo      haloPlan
}

type haloPlan struct {
	// recv[q] lists the compact columns whose values rank q sends, in the
	// order it sends them
	recv map[int][]int
	// send[q] lists owned column offsets rank q needs from here
	send map[int][]int
	// self lists (compact column, owned offset) pairs served locally
	self [][2]int
}

// vectorOffsets scales a scalar dof partition to comp components per dof.
func vectorOffsets(pm *utils.PartitionMap, comp int) *utils.PartitionMap {
	counts := pm.Counts()
	for i := range counts {
		counts[i] *= comp
	}
	// counts come from a valid map and cannot be negative
	vm, _ := utils.NewPartitionMapFromCounts(counts)
	return vm
}

// newOperator finalizes the owned rows from the contributions each rank
// routed here, summing in source rank order. Collective: the halo plan is
// negotiated with the column owners.
func newOperator(ctx context.Context, comm *parallel.Comm, rows, cols *utils.PartitionMap, comp int,
	in map[int][]Triplet, name string) (op *Operator, err error) {
	var (
		lo, hi = rows.GetBucketRange(comm.Rank())
		colSet = make(map[int]int)
	)
	op = &Operator{
		Rows:       rows,
		Cols:       cols,
		Components: comp,
		comm:       comm,
	}
	for src := 0; src < comm.Size(); src++ {
		for _, t := range in[src] {
			if t.Row < lo || t.Row >= hi {
				return nil, &parallel.CommunicationError{Rank: comm.Rank(), Peer: src, Op: "assemble",
					Err: fmt.Errorf("%w: row %d is not owned here [%d,%d)", parallel.ErrProtocol, t.Row, lo, hi)}
			}
			colSet[t.Col] = 0
		}
	}
	op.colGlobal = make([]int, 0, len(colSet))
	for g := range colSet {
		op.colGlobal = append(op.colGlobal, g)
	}
	sort.Ints(op.colGlobal)
	for j, g := range op.colGlobal {
		colSet[g] = j
	}
	if hi > lo && len(op.colGlobal) > 0 {
		dok := utils.NewDOK(hi-lo, len(op.colGlobal))
		for src := 0; src < comm.Size(); src++ {
			for _, t := range in[src] {
				dok.Accumulate(t.Row-lo, colSet[t.Col], t.Val)
			}
		}
		dok.SetReadOnly(name)
		op.local = dok.ToCSR()
		op.hasLocal = true
	}
	if err = op.planHalo(ctx); err != nil {
		return nil, err
	}
	return
}

func (op *Operator) planHalo(ctx context.Context) (err error) {
	var (
		me    = op.comm.Rank()
		lo, _ = op.Cols.GetBucketRange(me)
		need  = make(map[int][]int)
		plan  = haloPlan{recv: make(map[int][]int), send: make(map[int][]int)}
		asked map[int][]int
	)
	for j, g := range op.colGlobal {
		owner, _, _ := op.Cols.GetBucket(g)
		if owner < 0 {
			return fmt.Errorf("column %d outside [0,%d)", g, op.Cols.MaxIndex)
		}
		if owner == me {
			plan.self = append(plan.self, [2]int{j, g - lo})
			continue
		}
		need[owner] = append(need[owner], g)
		plan.recv[owner] = append(plan.recv[owner], j)
	}
	if asked, err = parallel.Exchange(ctx, op.comm, need); err != nil {
		return
	}
	for q, globals := range asked {
		offsets := make([]int, len(globals))
		for i, g := range globals {
			offsets[i] = g - lo
		}
		plan.send[q] = offsets
	}
	op.halo = plan
	return
}

// Dims returns the global size.
func (op *Operator) Dims() (r, c int) { return op.Rows.MaxIndex, op.Cols.MaxIndex }

// NNZ counts the stored entries of the owned rows.
func (op *Operator) NNZ() int {
	if !op.hasLocal {
		return 0
	}
	return op.local.NNZ()
}

func (op *Operator) NumOwnedRows() int { return op.Rows.GetBucketDimension(op.comm.Rank()) }
func (op *Operator) NumOwnedCols() int { return op.Cols.GetBucketDimension(op.comm.Rank()) }

// OwnedRowRange is the half open global row range stored on this rank.
func (op *Operator) OwnedRowRange() (lo, hi int) { return op.Rows.GetBucketRange(op.comm.Rank()) }

// gather fills the compact column vector from owned x and the halo.
func (op *Operator) gather(ctx context.Context, x []float64) (xc []float64, err error) {
	var (
		out = make(map[int][]float64, len(op.halo.send))
		in  map[int][]float64
	)
	for q, offsets := range op.halo.send {
		vals := make([]float64, len(offsets))
		for i, o := range offsets {
			vals[i] = x[o]
		}
		out[q] = vals
	}
	if in, err = parallel.Exchange(ctx, op.comm, out); err != nil {
		return
	}
	xc = make([]float64, len(op.colGlobal))
	for _, p := range op.halo.self {
		xc[p[0]] = x[p[1]]
	}
	for q, cols := range op.halo.recv {
		vals := in[q]
		if len(vals) != len(cols) {
			return nil, &parallel.CommunicationError{Rank: op.comm.Rank(), Peer: q, Op: "halo",
				Err: fmt.Errorf("%w: expected %d values, received %d", parallel.ErrProtocol, len(cols), len(vals))}
		}
		for i, j := range cols {
			xc[j] = vals[i]
		}
	}
	return
}

// MulVec computes y = A x where x holds the owned columns and y the owned
// rows. Collective.
func (op *Operator) MulVec(ctx context.Context, x, y []float64) (err error) {
	if len(x) != op.NumOwnedCols() || len(y) != op.NumOwnedRows() {
		return fmt.Errorf("dimension mismatch: operator owns %d x %d, have len(x) = %d, len(y) = %d",
			op.NumOwnedRows(), op.NumOwnedCols(), len(x), len(y))
	}
	var xc []float64
	if xc, err = op.gather(ctx, x); err != nil {
		return
	}
	if !op.hasLocal {
		for i := range y {
			y[i] = 0
		}
		return
	}
	op.local.MulVecTo(y, xc)
	return
}

// Diagonal returns A(i,i) for the owned rows of a square operator.
func (op *Operator) Diagonal() (d []float64) {
	var lo, _ = op.OwnedRowRange()
	d = make([]float64, op.NumOwnedRows())
	if !op.hasLocal {
		return
	}
	for i := range d {
		j := sort.SearchInts(op.colGlobal, lo+i)
		if j < len(op.colGlobal) && op.colGlobal[j] == lo+i {
			d[i] = op.local.At(i, j)
		}
	}
	return
}

// RowSums returns the sum of every owned row.
func (op *Operator) RowSums() (sums []float64) {
	sums = make([]float64, op.NumOwnedRows())
	if !op.hasLocal {
		return
	}
	op.local.DoNonZero(func(i, _ int, v float64) { sums[i] += v })
	return
}

// ColSums returns the sum of every owned column. Partial sums are routed to
// the column owners. Collective.
func (op *Operator) ColSums(ctx context.Context) (sums []float64, err error) {
	var (
		me      = op.comm.Rank()
		partial = make([]float64, len(op.colGlobal))
		out     = make(map[int][]float64, len(op.halo.recv))
		in      map[int][]float64
	)
	if op.hasLocal {
		op.local.DoNonZero(func(_, j int, v float64) { partial[j] += v })
	}
	for q, cols := range op.halo.recv {
		vals := make([]float64, len(cols))
		for i, j := range cols {
			vals[i] = partial[j]
		}
		out[q] = vals
	}
	if in, err = parallel.Exchange(ctx, op.comm, out); err != nil {
		return
	}
	sums = make([]float64, op.NumOwnedCols())
	for _, p := range op.halo.self {
		sums[p[1]] += partial[p[0]]
	}
	for q := 0; q < op.comm.Size(); q++ {
		if q == me {
			continue
		}
		offsets := op.halo.send[q]
		for i, val := range in[q] {
			sums[offsets[i]] += val
		}
	}
	return
}

// Triplets lists the owned entries in global numbering, row major.
func (op *Operator) Triplets() (ts []Triplet) {
	if !op.hasLocal {
		return
	}
	var lo, _ = op.OwnedRowRange()
	ts = make([]Triplet, 0, op.NNZ())
	op.local.DoNonZero(func(i, j int, v float64) {
		ts = append(ts, Triplet{Row: lo + i, Col: op.colGlobal[j], Val: v})
	})
	return
}

// GatherTriplets collects the whole operator on root, sorted by row then
// column. Other ranks get nil. Collective.
func (op *Operator) GatherTriplets(ctx context.Context, root int) (ts []Triplet, err error) {
	var all [][]Triplet
	if all, err = parallel.Gather(ctx, op.comm, root, op.Triplets()); err != nil || all == nil {
		return
	}
	// owned row ranges ascend with rank
	for _, part := range all {
		ts = append(ts, part...)
	}
	return
}
