package mortar

import (
	"context"
	"errors"
	"io"
	"math"
	"sync"
	"testing"

	"github.com/notargets/parmortar/fem"
	"github.com/notargets/parmortar/geometry2D"
	"github.com/notargets/parmortar/mesh"
	"github.com/notargets/parmortar/parallel"
	"github.com/notargets/parmortar/utils"
	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"
)

var unitBox = orb.Bound{Max: orb.Point{1, 1}}

func quietWorld(np int) *parallel.World {
	w := parallel.NewWorld(np)
	w.SetLogOutput(io.Discard)
	return w
}

func runRanks(t *testing.T, np int, fn func(ctx context.Context, c *parallel.Comm) error) {
	t.Helper()
	require.NoError(t, quietWorld(np).Run(context.Background(), fn))
}

func rectangle(t *testing.T, nx, ny int, box orb.Bound, kind geometry2D.Kind) *mesh.Mesh {
	t.Helper()
	m, err := mesh.NewRectangle(nx, ny, box, kind)
	require.NoError(t, err)
	return m
}

func split(t *testing.T, m *mesh.Mesh, np int) []*mesh.Local {
	t.Helper()
	locals, err := mesh.DistributeWith(m, mesh.RCBPartitioner{}, np)
	require.NoError(t, err)
	return locals
}

// pair builds the master and slave spaces of one rank.
func pair(c *parallel.Comm, master, slave []*mesh.Local, mOrder, sOrder, vdim int) (ms, ss *fem.Space, err error) {
	if ms, err = fem.NewSpace(master[c.Rank()], mOrder, vdim); err != nil {
		return
	}
	ss, err = fem.NewSpace(slave[c.Rank()], sOrder, vdim)
	return
}

func linear(p orb.Point, c int) float64 { return 1 + p[0] + 2*p[1] + float64(c)*(p[0]-p[1]) }

func TestL2IntegratorBlocks(t *testing.T) {
	shape, err := geometry2D.NewShape(geometry2D.Triangle, []orb.Point{{0, 0}, {2, 0}, {0, 1}})
	require.NoError(t, err)
	in := geometry2D.Intersection{Pieces: shape.ConvexParts(), Area: shape.Area()}
	for _, order := range []int{0, 1} {
		var (
			s, _ = fem.NewSpace(split(t, rectangle(t, 1, 1, unitBox, geometry2D.Triangle), 1)[0], order, 1)
			ec   = &ElementContext{Shape: shape, FE: s.KindFE(geometry2D.Triangle)}
		)
		B, err := L2Integrator{}.Integrate(in, ec, ec)
		require.NoError(t, err)
		assert.InDelta(t, 1., floats.Sum(B.Data()), 1.e-13)
		if order == 1 {
			// P1 mass matrix: area/6 on the diagonal, area/12 off it
			assert.InDelta(t, 1./6, B.At(0, 0), 1.e-13)
			assert.InDelta(t, 1./12, B.At(0, 1), 1.e-13)
			V, err := VectorL2Integrator{VDim: 2}.Integrate(in, ec, ec)
			require.NoError(t, err)
			nr, nc := V.Dims()
			assert.Equal(t, 6, nr)
			assert.Equal(t, 6, nc)
			assert.InDelta(t, B.At(0, 1), V.At(1, 3), 1.e-15)
			assert.Equal(t, 0., V.At(0, 3))
			W, err := WeightedL2Integrator{Coef: func(p orb.Point) float64 { return p[0] }, CoefDegree: 1}.Integrate(in, ec, ec)
			require.NoError(t, err)
			// ∫ x over the triangle is area times the centroid x
			assert.InDelta(t, 2./3, floats.Sum(W.Data()), 1.e-13)
		}
	}
}

func TestContributionArena(t *testing.T) {
	var (
		a     = newContributionArena(2)
		blk   = utils.NewMatrix(4, 2, []float64{1, 0, 2, 3, 0, 4, 5, 0})
		owner = func(g int) int { return g % 2 }
	)
	a.addBlock(blk, []int{7, 4}, []int{3}, 2, owner)
	assert.Equal(t, 5, a.count())
	out := a.outbox()
	require.Len(t, out, 2)
	assert.Equal(t, []Triplet{{14, 6, 1}, {15, 6, 2}, {15, 7, 3}}, out[1])
	assert.Equal(t, []Triplet{{8, 7, 4}, {9, 6, 5}}, out[0])
	a.reset()
	assert.Equal(t, 0, a.count())
	a.add(0, Triplet{0, 0, 9})
	// messages already handed out are unaffected
	assert.Equal(t, 4., out[0][0].Val)
}

func TestIdentityTransfer(t *testing.T) {
	for _, np := range []int{1, 2, 3} {
		var (
			m      = rectangle(t, 4, 4, unitBox, geometry2D.Triangle)
			locals = split(t, m, np)
		)
		runRanks(t, np, func(ctx context.Context, c *parallel.Comm) error {
			ms, ss, err := pair(c, locals, locals, 1, 1, 1)
			if err != nil {
				return err
			}
			var (
				pma  = NewParMortarAssembler(c, ms, ss)
				src  = fem.NewGridFunction(ms, fem.ByNodes)
				dst  = fem.NewGridFunction(ss, fem.ByNodes)
				want = fem.NewGridFunction(ss, fem.ByNodes)
			)
			// arbitrary nodal values, not only ones the space reproduces
			for i := range src.Data {
				src.Data[i] = math.Sin(float64(ms.OwnedOriginal()[i]))
			}
			for i := range want.Data {
				want.Data[i] = math.Sin(float64(ss.OwnedOriginal()[i]))
			}
			rep, err := pma.Transfer(ctx, src, dst, false)
			if err != nil {
				return err
			}
			assert.True(t, rep.Found)
			assert.True(t, rep.Converged())
			assert.Equal(t, 0, rep.Skipped)
			diff, err := fem.MaxDifference(ctx, c, dst, want)
			if err != nil {
				return err
			}
			assert.Less(t, diff, 1.e-9)
			return nil
		})
	}
}

func TestConstantTransfer(t *testing.T) {
	var (
		slave = rectangle(t, 1, 1, unitBox, geometry2D.Triangle)
	)
	for _, mOrder := range []int{0, 1} {
		for _, np := range []int{1, 2} {
			var (
				mLocals = split(t, rectangle(t, 1, 1, unitBox, geometry2D.Quadrilateral), np)
				sLocals = split(t, slave, np)
			)
			runRanks(t, np, func(ctx context.Context, c *parallel.Comm) error {
				ms, ss, err := pair(c, mLocals, sLocals, mOrder, 1, 1)
				if err != nil {
					return err
				}
				var (
					pma = NewParMortarAssembler(c, ms, ss)
					src = fem.NewGridFunction(ms, fem.ByNodes)
					dst = fem.NewGridFunction(ss, fem.ByNodes)
				)
				for i := range src.Data {
					src.Data[i] = 1
				}
				rep, err := pma.Transfer(ctx, src, dst, false)
				if err != nil {
					return err
				}
				assert.True(t, rep.Found)
				for _, v := range dst.Data {
					assert.InDelta(t, 1., v, 1.e-10)
				}
				return nil
			})
		}
	}
}

func TestConservation(t *testing.T) {
	var (
		np      = 3
		mLocals = split(t, rectangle(t, 3, 3, unitBox, geometry2D.Quadrilateral), np)
		inner   = orb.Bound{Min: orb.Point{0.25, 0.25}, Max: orb.Point{0.75, 0.75}}
		sLocals = split(t, rectangle(t, 4, 4, inner, geometry2D.Triangle), np)
	)
	runRanks(t, np, func(ctx context.Context, c *parallel.Comm) error {
		ms, ss, err := pair(c, mLocals, sLocals, 1, 1, 1)
		if err != nil {
			return err
		}
		var (
			pma = NewParMortarAssembler(c, ms, ss)
			src = fem.NewGridFunction(ms, fem.ByNodes)
			dst = fem.NewGridFunction(ss, fem.ByNodes)
		)
		if err = src.ProjectCoefficient(linear); err != nil {
			return err
		}
		if _, err = pma.Transfer(ctx, src, dst, false); err != nil {
			return err
		}
		total, err := dst.Integral(ctx, c)
		if err != nil {
			return err
		}
		// ∫ 1 + x + 2y over [1/4,3/4]^2
		assert.InDelta(t, 0.625, total[0], 1.e-9)
		// a linear field is reproduced exactly on the slave mesh
		want := fem.NewGridFunction(ss, fem.ByNodes)
		if err = want.ProjectCoefficient(linear); err != nil {
			return err
		}
		diff, err := fem.MaxDifference(ctx, c, dst, want)
		if err != nil {
			return err
		}
		assert.Less(t, diff, 1.e-9)
		return nil
	})
}

// sums assembles B on np ranks and returns its row and column sums keyed by
// the serial mesh numbering of the slave and master dofs.
func sums(t *testing.T, master, slave *mesh.Mesh, np int) (rows, cols map[int]float64) {
	var (
		mu      sync.Mutex
		mLocals = split(t, master, np)
		sLocals = split(t, slave, np)
	)
	rows, cols = make(map[int]float64), make(map[int]float64)
	runRanks(t, np, func(ctx context.Context, c *parallel.Comm) error {
		ms, ss, err := pair(c, mLocals, sLocals, 0, 1, 1)
		if err != nil {
			return err
		}
		B, found, err := NewParMortarAssembler(c, ms, ss).Assemble(ctx)
		if err != nil {
			return err
		}
		assert.True(t, found)
		cs, err := B.ColSums(ctx)
		if err != nil {
			return err
		}
		mu.Lock()
		defer mu.Unlock()
		for i, s := range B.RowSums() {
			rows[ss.OwnedOriginal()[i]] = s
		}
		for j, s := range cs {
			cols[ms.OwnedOriginal()[j]] = s
		}
		return nil
	})
	return
}

func TestPartitionInvariance(t *testing.T) {
	var (
		master = rectangle(t, 4, 4, unitBox, geometry2D.Triangle)
		slave  = rectangle(t, 5, 3, orb.Bound{Min: orb.Point{0.05, 0.1}, Max: orb.Point{0.95, 0.8}},
			geometry2D.Quadrilateral)
	)
	rows1, cols1 := sums(t, master, slave, 1)
	for _, np := range []int{2, 3, 4} {
		rowsN, colsN := sums(t, master, slave, np)
		require.Equal(t, len(rows1), len(rowsN))
		require.Equal(t, len(cols1), len(colsN))
		for k, v := range rows1 {
			assert.InDelta(t, v, rowsN[k], 1.e-13)
		}
		for k, v := range cols1 {
			assert.InDelta(t, v, colsN[k], 1.e-13)
		}
	}
	// every slave point lies in the master, so B^T 1 sums to the slave area
	var total float64
	for _, v := range cols1 {
		total += v
	}
	assert.InDelta(t, 0.9*0.7, total, 1.e-12)
}

func TestQuadrantOverlap(t *testing.T) {
	var (
		master = rectangle(t, 2, 2, unitBox, geometry2D.Quadrilateral)
		slave  = rectangle(t, 1, 1, orb.Bound{Min: orb.Point{0.5, 0.5}, Max: orb.Point{1.5, 1.5}},
			geometry2D.Quadrilateral)
	)
	for _, np := range []int{1, 2, 4} {
		var (
			mu       sync.Mutex
			nonzeros int
			mLocals  = split(t, master, np)
			sLocals  = split(t, slave, np)
		)
		runRanks(t, np, func(ctx context.Context, c *parallel.Comm) error {
			ms, ss, err := pair(c, mLocals, sLocals, 0, 0, 1)
			if err != nil {
				return err
			}
			B, found, err := NewParMortarAssembler(c, ms, ss).Assemble(ctx)
			if err != nil {
				return err
			}
			assert.True(t, found)
			cs, err := B.ColSums(ctx)
			if err != nil {
				return err
			}
			for j, s := range cs {
				if s == 0 {
					continue
				}
				// upper right cell of the 2x2 master
				assert.Equal(t, 3, ms.OwnedOriginal()[j])
				assert.InDelta(t, 0.25, s, 1.e-14)
				mu.Lock()
				nonzeros++
				mu.Unlock()
			}
			ts, err := B.GatherTriplets(ctx, 0)
			if err != nil {
				return err
			}
			if c.Rank() == 0 {
				if assert.Len(t, ts, 1) {
					assert.InDelta(t, 0.25, ts[0].Val, 1.e-14)
				}
			} else {
				assert.Nil(t, ts)
			}
			return nil
		})
		assert.Equal(t, 1, nonzeros)
	}
}

func TestDisjointMeshes(t *testing.T) {
	var (
		np      = 2
		mLocals = split(t, rectangle(t, 2, 2, unitBox, geometry2D.Triangle), np)
		far     = orb.Bound{Min: orb.Point{2, 2}, Max: orb.Point{3, 3}}
		sLocals = split(t, rectangle(t, 2, 2, far, geometry2D.Triangle), np)
	)
	runRanks(t, np, func(ctx context.Context, c *parallel.Comm) error {
		ms, ss, err := pair(c, mLocals, sLocals, 1, 1, 1)
		if err != nil {
			return err
		}
		pma := NewParMortarAssembler(c, ms, ss)
		B, found, err := pma.Assemble(ctx)
		if err != nil {
			return err
		}
		assert.False(t, found)
		assert.Nil(t, B)
		var (
			src = fem.NewGridFunction(ms, fem.ByNodes)
			dst = fem.NewGridFunction(ss, fem.ByNodes)
		)
		for i := range dst.Data {
			dst.Data[i] = 7
		}
		rep, err := pma.Transfer(ctx, src, dst, false)
		if err != nil {
			return err
		}
		assert.False(t, rep.Found)
		for _, v := range dst.Data {
			assert.Equal(t, 7., v)
		}
		return nil
	})
}

func gather(ctx context.Context, c *parallel.Comm, master, slave *fem.Space) (entries map[[2]int]float64, err error) {
	var (
		B     *Operator
		found bool
		ts    []Triplet
	)
	if B, found, err = NewParMortarAssembler(c, master, slave).Assemble(ctx); err != nil {
		return
	}
	if !found {
		return nil, errors.New("meshes do not overlap")
	}
	if ts, err = B.GatherTriplets(ctx, 0); err != nil {
		return
	}
	entries = make(map[[2]int]float64, len(ts))
	for _, tr := range ts {
		entries[[2]int{tr.Row, tr.Col}] = tr.Val
	}
	return
}

func TestSymmetry(t *testing.T) {
	var (
		np = 2
		aL = split(t, rectangle(t, 3, 3, unitBox, geometry2D.Triangle), np)
		bL = split(t, rectangle(t, 2, 2, orb.Bound{Min: orb.Point{0.2, 0}, Max: orb.Point{1.2, 1}},
			geometry2D.Quadrilateral), np)
	)
	runRanks(t, np, func(ctx context.Context, c *parallel.Comm) error {
		as, bs, err := pair(c, aL, bL, 1, 1, 1)
		if err != nil {
			return err
		}
		ab, err := gather(ctx, c, as, bs)
		if err != nil {
			return err
		}
		ba, err := gather(ctx, c, bs, as)
		if err != nil {
			return err
		}
		if c.Rank() != 0 {
			return nil
		}
		assert.NotEmpty(t, ab)
		for k, v := range ab {
			assert.InDelta(t, v, ba[[2]int{k[1], k[0]}], 1.e-13)
		}
		for k, v := range ba {
			assert.InDelta(t, v, ab[[2]int{k[1], k[0]}], 1.e-13)
		}
		return nil
	})
}

func TestDisconnectedPeer(t *testing.T) {
	var (
		np     = 2
		locals = split(t, rectangle(t, 2, 2, unitBox, geometry2D.Triangle), np)
		w      = quietWorld(np)
	)
	w.Disconnect(1)
	err := w.Run(context.Background(), func(ctx context.Context, c *parallel.Comm) error {
		ms, ss, err := pair(c, locals, locals, 1, 1, 1)
		if err != nil {
			return err
		}
		_, _, err = NewParMortarAssembler(c, ms, ss).Assemble(ctx)
		return err
	})
	require.Error(t, err)
	var (
		te *TransferError
		ce *parallel.CommunicationError
	)
	require.True(t, errors.As(err, &te))
	assert.Equal(t, "pair search", te.Phase)
	require.True(t, errors.As(err, &ce))
	assert.ErrorIs(t, err, parallel.ErrUnreachable)
}

// faulty fails for every pair involving one master element.
type faulty struct {
	bad   int
	fatal bool
}

func (f faulty) Name() string    { return "faulty" }
func (f faulty) Degree() int     { return 0 }
func (f faulty) Components() int { return 1 }

func (f faulty) Integrate(in geometry2D.Intersection, master, slave *ElementContext) (utils.Matrix, error) {
	if master.Global == f.bad {
		if f.fatal {
			return utils.Matrix{}, errors.New("kernel exploded")
		}
		return utils.Matrix{}, &geometry2D.GeometryError{Op: "integrate", Msg: "bad master cell"}
	}
	return L2Integrator{}.Integrate(in, master, slave)
}

func TestGeometryErrorSkipsPair(t *testing.T) {
	var (
		np     = 2
		locals = split(t, rectangle(t, 2, 2, unitBox, geometry2D.Triangle), np)
	)
	runRanks(t, np, func(ctx context.Context, c *parallel.Comm) error {
		ms, ss, err := pair(c, locals, locals, 0, 0, 1)
		if err != nil {
			return err
		}
		pma := NewParMortarAssembler(c, ms, ss)
		pma.AddCouplingIntegrator(faulty{bad: 0})
		B, found, err := pma.Assemble(ctx)
		if err != nil {
			return err
		}
		assert.True(t, found)
		// only the coincident slave cell intersects master cell 0 with area
		assert.Equal(t, 1, pma.Skipped())
		ts, err := B.GatherTriplets(ctx, 0)
		if err != nil {
			return err
		}
		if c.Rank() == 0 {
			assert.Len(t, ts, 7)
			for _, tr := range ts {
				assert.NotEqual(t, 0, tr.Col)
			}
		}
		return nil
	})
	err := quietWorld(np).Run(context.Background(), func(ctx context.Context, c *parallel.Comm) error {
		ms, ss, err := pair(c, locals, locals, 0, 0, 1)
		if err != nil {
			return err
		}
		pma := NewParMortarAssembler(c, ms, ss)
		pma.AddCouplingIntegrator(faulty{bad: 0, fatal: true})
		_, _, err = pma.Assemble(ctx)
		return err
	})
	require.Error(t, err)
	var te *TransferError
	require.True(t, errors.As(err, &te))
}

// leftCell is the local element whose box lies left of x = 0.5.
func leftCell(l *mesh.Local) int {
	for k, el := range l.Elems {
		var cx float64
		for _, v := range el.Verts {
			cx += l.Verts[v][0]
		}
		if cx/float64(len(el.Verts)) < 0.5 {
			return k
		}
	}
	return -1
}

func bottomCell(l *mesh.Local) int {
	for k, el := range l.Elems {
		var cy float64
		for _, v := range el.Verts {
			cy += l.Verts[v][1]
		}
		if cy/float64(len(el.Verts)) < 0.5 {
			return k
		}
	}
	return -1
}

func TestMalformedCellsCountPairs(t *testing.T) {
	bowtie := func(v []int) []int { return []int{v[0], v[2], v[1], v[3]} }
	collapse := func(v []int) []int { return []int{v[0], v[1], v[1], v[0]} }
	tests := []struct {
		name          string
		master, slave func([]int) []int
		skipped       int
	}{
		// the bad slave overlaps both master rows
		{"bowtie slave", nil, bowtie, 2},
		// bottom master pairs with both slaves, top master with the bad slave
		{"bowtie master and slave", bowtie, bowtie, 3},
		{"zero-area slave", nil, collapse, 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var (
				master = split(t, rectangle(t, 1, 2, unitBox, geometry2D.Quadrilateral), 1)
				slave  = split(t, rectangle(t, 2, 1, unitBox, geometry2D.Quadrilateral), 1)
			)
			if tc.master != nil {
				k := bottomCell(master[0])
				require.GreaterOrEqual(t, k, 0)
				master[0].Elems[k].Verts = tc.master(master[0].Elems[k].Verts)
			}
			k := leftCell(slave[0])
			require.GreaterOrEqual(t, k, 0)
			slave[0].Elems[k].Verts = tc.slave(slave[0].Elems[k].Verts)
			runRanks(t, 1, func(ctx context.Context, c *parallel.Comm) error {
				ms, ss, err := pair(c, master, slave, 0, 0, 1)
				if err != nil {
					return err
				}
				pma := NewParMortarAssembler(c, ms, ss)
				_, found, err := pma.Assemble(ctx)
				if err != nil {
					return err
				}
				assert.True(t, found)
				assert.Equal(t, tc.skipped, pma.Skipped())
				return nil
			})
		})
	}
}

func TestVectorTransfer(t *testing.T) {
	var (
		np     = 2
		locals = split(t, rectangle(t, 3, 2, unitBox, geometry2D.Quadrilateral), np)
	)
	for _, vector := range []bool{false, true} {
		runRanks(t, np, func(ctx context.Context, c *parallel.Comm) error {
			ms, ss, err := pair(c, locals, locals, 1, 1, 2)
			if err != nil {
				return err
			}
			pma := NewParMortarAssembler(c, ms, ss)
			if vector {
				pma.AddCouplingIntegrator(VectorL2Integrator{VDim: 2})
			}
			var (
				src  = fem.NewGridFunction(ms, fem.ByVDim)
				dst  = fem.NewGridFunction(ss, fem.ByNodes)
				want = fem.NewGridFunction(ss, fem.ByNodes)
			)
			if err = src.ProjectCoefficient(linear); err != nil {
				return err
			}
			if err = want.ProjectCoefficient(linear); err != nil {
				return err
			}
			rep, err := pma.Transfer(ctx, src, dst, true)
			if err != nil {
				return err
			}
			if vector {
				assert.Len(t, rep.Components, 1)
			} else {
				assert.Len(t, rep.Components, 2)
			}
			diff, err := fem.MaxDifference(ctx, c, dst, want)
			if err != nil {
				return err
			}
			assert.Less(t, diff, 1.e-9)
			if !vector {
				// a scalar operator cannot be applied to a vector field as a whole
				_, err = pma.Transfer(ctx, src, dst, false)
				var te *TransferError
				assert.True(t, errors.As(err, &te))
			}
			return nil
		})
	}
}

func TestWeightedTransfer(t *testing.T) {
	locals := split(t, rectangle(t, 3, 3, unitBox, geometry2D.Triangle), 2)
	runRanks(t, 2, func(ctx context.Context, c *parallel.Comm) error {
		ms, ss, err := pair(c, locals, locals, 1, 1, 1)
		if err != nil {
			return err
		}
		var (
			pma  = NewParMortarAssembler(c, ms, ss)
			src  = fem.NewGridFunction(ms, fem.ByNodes)
			dst  = fem.NewGridFunction(ss, fem.ByNodes)
			want = fem.NewGridFunction(ss, fem.ByNodes)
		)
		// two kernels sum to 3 ∫ ψ φ
		pma.AddCouplingIntegrator(WeightedL2Integrator{Coef: func(orb.Point) float64 { return 2 }})
		pma.AddCouplingIntegrator(L2Integrator{})
		if err = src.ProjectCoefficient(linear); err != nil {
			return err
		}
		if err = want.ProjectCoefficient(func(p orb.Point, c int) float64 { return 3 * linear(p, c) }); err != nil {
			return err
		}
		if _, err = pma.Transfer(ctx, src, dst, false); err != nil {
			return err
		}
		diff, err := fem.MaxDifference(ctx, c, dst, want)
		if err != nil {
			return err
		}
		assert.Less(t, diff, 1.e-9)
		return nil
	})
}

func TestConvergenceWarning(t *testing.T) {
	locals := split(t, rectangle(t, 4, 4, unitBox, geometry2D.Triangle), 2)
	runRanks(t, 2, func(ctx context.Context, c *parallel.Comm) error {
		ms, ss, err := pair(c, locals, locals, 1, 1, 1)
		if err != nil {
			return err
		}
		var (
			pma  = NewParMortarAssembler(c, ms, ss)
			opts = DefaultOptions()
			src  = fem.NewGridFunction(ms, fem.ByNodes)
			dst  = fem.NewGridFunction(ss, fem.ByNodes)
		)
		opts.MaxIterations = 1
		pma.SetOptions(opts)
		if err = src.ProjectCoefficient(linear); err != nil {
			return err
		}
		rep, err := pma.Transfer(ctx, src, dst, false)
		if err != nil {
			return err
		}
		assert.True(t, rep.Found)
		assert.False(t, rep.Converged())
		if assert.Len(t, rep.Warnings, 1) {
			assert.Equal(t, 1, rep.Warnings[0].Iterations)
			assert.Greater(t, rep.Warnings[0].Residual, opts.Tolerance)
			assert.Contains(t, rep.Warnings[0].Error(), "stopped after 1 iterations")
		}
		return nil
	})
}

func TestMismatchedIntegrators(t *testing.T) {
	locals := split(t, rectangle(t, 1, 1, unitBox, geometry2D.Triangle), 1)
	runRanks(t, 1, func(ctx context.Context, c *parallel.Comm) error {
		ms, ss, err := pair(c, locals, locals, 1, 1, 1)
		if err != nil {
			return err
		}
		pma := NewParMortarAssembler(c, ms, ss)
		pma.AddCouplingIntegrator(L2Integrator{})
		pma.AddCouplingIntegrator(VectorL2Integrator{VDim: 2})
		_, _, err = pma.Assemble(ctx)
		var te *TransferError
		if assert.True(t, errors.As(err, &te)) {
			assert.Equal(t, "setup", te.Phase)
		}
		// fields from other spaces are rejected
		other, _ := fem.NewSpace(locals[0], 0, 1)
		_, err = pma.Transfer(ctx, fem.NewGridFunction(other, fem.ByNodes), fem.NewGridFunction(ss, fem.ByNodes), false)
		assert.Error(t, err)
		return nil
	})
}

func TestOperatorMulVecAcrossRanks(t *testing.T) {
	var (
		master  = rectangle(t, 3, 3, unitBox, geometry2D.Quadrilateral)
		slave   = rectangle(t, 2, 4, orb.Bound{Min: orb.Point{0.1, 0.1}, Max: orb.Point{0.9, 0.9}}, geometry2D.Triangle)
		bySlave = make(map[int]float64)
		mu      sync.Mutex
	)
	for _, np := range []int{1, 3} {
		var (
			mLocals = split(t, master, np)
			sLocals = split(t, slave, np)
		)
		runRanks(t, np, func(ctx context.Context, c *parallel.Comm) error {
			ms, ss, err := pair(c, mLocals, sLocals, 1, 1, 1)
			if err != nil {
				return err
			}
			B, _, err := NewParMortarAssembler(c, ms, ss).Assemble(ctx)
			if err != nil {
				return err
			}
			r, cc := B.Dims()
			assert.Equal(t, slave.NumVertices(), r)
			assert.Equal(t, master.NumVertices(), cc)
			x := make([]float64, B.NumOwnedCols())
			for j, o := range ms.OwnedOriginal() {
				x[j] = float64(o)
			}
			y := make([]float64, B.NumOwnedRows())
			if err = B.MulVec(ctx, x, y); err != nil {
				return err
			}
			mu.Lock()
			defer mu.Unlock()
			for i, o := range ss.OwnedOriginal() {
				if np == 1 {
					bySlave[o] = y[i]
				} else {
					assert.InDelta(t, bySlave[o], y[i], 1.e-13)
				}
			}
			return nil
		})
	}
}
