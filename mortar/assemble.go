package mortar

import (
	"context"
	"errors"
	"fmt"

	"github.com/notargets/parmortar/fem"
	"github.com/notargets/parmortar/geometry2D"
	"github.com/notargets/parmortar/parallel"
	"github.com/notargets/parmortar/utils"
)

// ParMortarAssembler couples a master space to a non-matching slave space.
// It builds the coupling operator B, rows indexed by slave dofs and columns
// by master dofs, and the slave mass matrix M, then transfers fields as
// v = M^-1 B u. One assembler per (master, slave) pair; rebuild it when
// either mesh changes.
type ParMortarAssembler struct {
	comm          *parallel.Comm
	master, slave *fem.Space
	integrators   []Integrator
	opts          Options

	B, M      *Operator
	found     bool
	assembled bool
	skipped   int
	arena     *contributionArena
}

// NewParMortarAssembler couples master to slave on this rank. Both spaces
// must be distributed over the ranks of comm and share its vector dimension
// when vector transfer is used. Nothing is communicated until Assemble.
func NewParMortarAssembler(comm *parallel.Comm, master, slave *fem.Space) *ParMortarAssembler {
	return &ParMortarAssembler{
		comm:   comm,
		master: master,
		slave:  slave,
		opts:   DefaultOptions(),
		arena:  newContributionArena(comm.Size()),
	}
}

// SetOptions replaces the options. Changing the geometry tolerance after
// assembly has no effect until the next Assemble.
func (a *ParMortarAssembler) SetOptions(opts Options) { a.opts = opts }

func (a *ParMortarAssembler) Options() Options { return a.opts }

// AddCouplingIntegrator registers a kernel. Kernels are summed, so the order
// of registration does not matter. Without any, plain L2 coupling is used.
func (a *ParMortarAssembler) AddCouplingIntegrator(it Integrator) {
	a.integrators = append(a.integrators, it)
	a.assembled = false
}

// Skipped is the number of candidate pairs, master and slave boxes
// overlapping, dropped because either cell or their integral had malformed
// geometry. Summed over all ranks by the last Assemble. Degenerate
// zero-area cells are not malformed and never counted.
func (a *ParMortarAssembler) Skipped() int { return a.skipped }

func (a *ParMortarAssembler) kernels() []Integrator {
	if len(a.integrators) == 0 {
		return []Integrator{L2Integrator{}}
	}
	return a.integrators
}

// components checks that every kernel couples the same number of field
// components.
func (a *ParMortarAssembler) components() (comp int, err error) {
	var its = a.kernels()
	comp = its[0].Components()
	for _, it := range its[1:] {
		if it.Components() != comp {
			return 0, fmt.Errorf("integrator %s has %d components, %s has %d",
				it.Name(), it.Components(), its[0].Name(), comp)
		}
	}
	if comp < 1 {
		return 0, fmt.Errorf("integrator %s has %d components", its[0].Name(), comp)
	}
	return
}

// Assemble builds B and M. found is false, with a nil operator, when no
// master element intersects any slave element on any rank. Collective: every
// rank gets the same found and the same error class. No partial operator is
// ever returned.
func (a *ParMortarAssembler) Assemble(ctx context.Context) (B *Operator, found bool, err error) {
	var (
		comp    int
		logger  = a.comm.Logger()
		pf      = newPairFinder(a.comm, a.master, a.slave)
		cands   []candidate
		pairs   int
		skipped int
	)
	a.B, a.M, a.found, a.assembled = nil, nil, false, false
	if comp, err = a.components(); err != nil {
		return nil, false, fail("setup", err)
	}
	if cands, err = pf.find(ctx); err != nil {
		return nil, false, fail("pair search", err)
	}
	if n := pf.slaves.numMalformed() + pf.masters.numMalformed(); n > 0 && a.opts.Verbose {
		logger.Printf("%d local elements with invalid geometry", n)
	}
	a.arena.reset()
	for _, cand := range cands {
		n, s, err := a.couple(cand, pf.slaves, comp)
		if err != nil {
			return nil, false, fail("integrate", err)
		}
		pairs += n
		skipped += s
	}
	if a.opts.Verbose {
		logger.Printf("%d candidates, %d intersecting pairs, %d contributions", len(cands), pairs, a.arena.count())
	}
	if found, err = parallel.AllReduceOr(ctx, a.comm, pairs > 0); err != nil {
		return nil, false, fail("reduce", err)
	}
	total := []float64{float64(skipped)}
	if err = parallel.AllReduceSum(ctx, a.comm, total); err != nil {
		return nil, false, fail("reduce", err)
	}
	a.skipped = int(total[0])
	if a.skipped > 0 && a.comm.Rank() == 0 {
		logger.Printf("skipped %d element pairs with invalid geometry", a.skipped)
	}
	if !found {
		a.assembled = true
		return nil, false, nil
	}
	if B, err = a.finalize(ctx, a.slave, a.master, comp, "B"); err != nil {
		return nil, false, fail("assemble", err)
	}
	if err = a.assembleMass(ctx, comp); err != nil {
		return nil, false, err
	}
	a.B, a.found, a.assembled = B, true, true
	return
}

// couple intersects one received master cell with its slave candidates and
// buffers the integrated blocks for the row owners.
func (a *ParMortarAssembler) couple(cand candidate, slaves *cellSet, comp int) (pairs, skipped int, err error) {
	var (
		logger = a.comm.Logger()
		tol    = a.opts.Geometry
	)
	mshape, err := geometry2D.NewShape(cand.Cell.Kind, cand.Cell.Verts)
	if err != nil {
		if a.opts.Verbose {
			logger.Printf("master element %d from rank %d: %v", cand.Cell.Global, cand.Source, err)
		}
		return 0, len(cand.Slaves), nil
	}
	mctx := &ElementContext{Shape: mshape, FE: a.master.KindFE(cand.Cell.Kind), Global: cand.Cell.Global}
	for _, entry := range cand.Slaves {
		if !slaves.valid[entry] {
			skipped++
			continue
		}
		var (
			k      = slaves.elems[entry]
			sshape = slaves.shapes[entry]
			in     = geometry2D.Intersect(mshape, sshape, tol)
		)
		if in.Empty() {
			continue
		}
		sctx := &ElementContext{Shape: sshape, FE: a.slave.FE(k), Global: a.slave.Mesh.ElemGlobal[k]}
		blk, err := a.integrate(in, mctx, sctx)
		if err != nil {
			var gerr *GeometryError
			if errors.As(err, &gerr) {
				if a.opts.Verbose {
					logger.Printf("pair (%d,%d) skipped: %v", mctx.Global, sctx.Global, err)
				}
				skipped++
				continue
			}
			return pairs, skipped, fmt.Errorf("pair (%d,%d): %w", mctx.Global, sctx.Global, err)
		}
		a.arena.addBlock(blk, a.slave.ElementDofs(k), cand.Cell.Dofs, comp, a.slave.ScalarOwner)
		pairs++
	}
	return
}

// integrate sums the blocks of every registered kernel.
func (a *ParMortarAssembler) integrate(in geometry2D.Intersection, master, slave *ElementContext) (sum utils.Matrix, err error) {
	for i, it := range a.kernels() {
		var blk utils.Matrix
		if blk, err = it.Integrate(in, master, slave); err != nil {
			return
		}
		if i == 0 {
			sum = blk
			continue
		}
		r0, c0 := sum.Dims()
		if r1, c1 := blk.Dims(); r0 != r1 || c0 != c1 {
			return sum, fmt.Errorf("integrator %s block is %dx%d, expected %dx%d", it.Name(), r1, c1, r0, c0)
		}
		sum.Add(blk)
	}
	return
}

// assembleMass builds M from the slave cells paired with themselves, routed
// through the same owner-computes path as B.
func (a *ParMortarAssembler) assembleMass(ctx context.Context, comp int) (err error) {
	var (
		kernel Integrator = L2Integrator{}
		slaves            = newCellSet(a.slave)
	)
	if comp > 1 {
		kernel = VectorL2Integrator{VDim: comp}
	}
	a.arena.reset()
	for i, k := range slaves.elems {
		if !slaves.valid[i] {
			continue
		}
		var (
			shape = slaves.shapes[i]
			ec    = &ElementContext{Shape: shape, FE: a.slave.FE(k), Global: a.slave.Mesh.ElemGlobal[k]}
			in    = geometry2D.Intersection{Pieces: shape.ConvexParts(), Area: shape.Area()}
			blk   utils.Matrix
		)
		if blk, err = kernel.Integrate(in, ec, ec); err != nil {
			return fail("mass matrix", fmt.Errorf("slave element %d: %w", ec.Global, err))
		}
		dofs := a.slave.ElementDofs(k)
		a.arena.addBlock(blk, dofs, dofs, comp, a.slave.ScalarOwner)
	}
	if a.M, err = a.finalize(ctx, a.slave, a.slave, comp, "M"); err != nil {
		return fail("mass matrix", err)
	}
	return
}

// finalize routes the arena to the row owners and builds the owned rows.
func (a *ParMortarAssembler) finalize(ctx context.Context, rows, cols *fem.Space, comp int, name string) (op *Operator, err error) {
	var in map[int][]Triplet
	if in, err = parallel.Exchange(ctx, a.comm, a.arena.outbox()); err != nil {
		return
	}
	op, err = newOperator(ctx, a.comm,
		vectorOffsets(rows.ScalarOffsets(), comp), vectorOffsets(cols.ScalarOffsets(), comp),
		comp, in, name)
	a.arena.reset()
	return
}
