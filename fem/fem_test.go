package fem

import (
	"context"
	"io"
	"sync"
	"testing"

	"github.com/notargets/parmortar/geometry2D"
	"github.com/notargets/parmortar/mesh"
	"github.com/notargets/parmortar/parallel"
	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runRanks(t *testing.T, np int, fn func(ctx context.Context, c *parallel.Comm) error) {
	t.Helper()
	w := parallel.NewWorld(np)
	w.SetLogOutput(io.Discard)
	require.NoError(t, w.Run(context.Background(), fn))
}

func distributed(t *testing.T, m *mesh.Mesh, np int) []*mesh.Local {
	t.Helper()
	locals, err := mesh.DistributeWith(m, mesh.RCBPartitioner{}, np)
	require.NoError(t, err)
	return locals
}

func TestSpaceOwnership(t *testing.T) {
	m, err := mesh.NewRectangle(3, 3, orb.Bound{Max: orb.Point{1, 1}}, geometry2D.Triangle)
	require.NoError(t, err)
	for _, order := range []int{0, 1} {
		locals := distributed(t, m, 3)
		var (
			owned  int
			origin = make(map[int]bool)
		)
		for _, l := range locals {
			s, err := NewSpace(l, order, 1)
			require.NoError(t, err)
			owned += s.NumOwnedScalar()
			for _, o := range s.OwnedOriginal() {
				assert.False(t, origin[o], "dof owned twice")
				origin[o] = true
			}
			lo, hi := s.OwnedScalarRange()
			for k := 0; k < s.NumElements(); k++ {
				for _, g := range s.ElementDofs(k) {
					owner := s.ScalarOwner(g)
					if owner == l.Rank {
						assert.True(t, g >= lo && g < hi)
					}
				}
			}
		}
		if order == 0 {
			assert.Equal(t, m.NumElements(), owned)
		} else {
			assert.Equal(t, m.NumVertices(), owned)
		}
	}
	_, err = NewSpace(distributed(t, m, 1)[0], 2, 1)
	assert.Error(t, err)
	_, err = NewSpace(distributed(t, m, 1)[0], 1, 0)
	assert.Error(t, err)
}

func TestGridFunctionLayouts(t *testing.T) {
	m, _ := mesh.NewRectangle(2, 1, orb.Bound{Max: orb.Point{2, 1}}, geometry2D.Quadrilateral)
	l := distributed(t, m, 1)[0]
	s, err := NewSpace(l, 1, 2)
	require.NoError(t, err)
	for _, ord := range []Ordering{ByNodes, ByVDim} {
		gf := NewGridFunction(s, ord)
		require.Len(t, gf.Data, 12)
		gf.SetComponent(0, []float64{0, 1, 2, 3, 4, 5})
		gf.SetComponent(1, []float64{10, 11, 12, 13, 14, 15})
		assert.Equal(t, 13., gf.At(3, 1))
		assert.Equal(t, []float64{0, 10, 1, 11, 2, 12, 3, 13, 4, 14, 5, 15}, gf.Interleaved())
		if ord == ByVDim {
			assert.Equal(t, gf.Interleaved(), gf.Data)
		} else {
			assert.Equal(t, 10., gf.Data[6])
		}
		other := NewGridFunction(s, ByNodes)
		other.SetInterleaved(gf.Interleaved())
		assert.Equal(t, gf.Component(1), other.Component(1))
	}
}

func TestIntegrals(t *testing.T) {
	var (
		box = orb.Bound{Min: orb.Point{0, 0}, Max: orb.Point{2, 1}}
		// ∫ (1 + x + 2y) over [0,2]x[0,1] = 2 + 2 + 2
		exact  = 6.
		linear = func(p orb.Point, c int) float64 { return float64(c+1) * (1 + p[0] + 2*p[1]) }
	)
	for _, kind := range []geometry2D.Kind{geometry2D.Triangle, geometry2D.Quadrilateral} {
		m, err := mesh.NewRectangle(4, 3, box, kind)
		require.NoError(t, err)
		for _, order := range []int{0, 1} {
			for _, np := range []int{1, 2, 4} {
				locals := distributed(t, m, np)
				var mu sync.Mutex
				runRanks(t, np, func(ctx context.Context, c *parallel.Comm) error {
					s, err := NewSpace(locals[c.Rank()], order, 2)
					if err != nil {
						return err
					}
					mi, err := s.BasisIntegrals(ctx, c)
					if err != nil {
						return err
					}
					area := []float64{0}
					for _, v := range mi {
						area[0] += v
					}
					if err = parallel.AllReduceSum(ctx, c, area); err != nil {
						return err
					}
					gf := NewGridFunction(s, ByVDim)
					if err = gf.ProjectCoefficient(linear); err != nil {
						return err
					}
					totals, err := gf.Integral(ctx, c)
					if err != nil {
						return err
					}
					mu.Lock()
					defer mu.Unlock()
					assert.InDelta(t, 2, area[0], 1e-13)
					// linear fields are reproduced by P1/Q1 and averaged exactly by P0
					assert.InDelta(t, exact, totals[0], 1e-12)
					assert.InDelta(t, 2*exact, totals[1], 1e-12)
					return nil
				})
			}
		}
	}
}
