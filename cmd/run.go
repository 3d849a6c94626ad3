package cmd

import (
	"context"
	"fmt"
	"io"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/notargets/parmortar/InputParameters"
	"github.com/notargets/parmortar/fem"
	"github.com/notargets/parmortar/geometry2D"
	"github.com/notargets/parmortar/mesh"
	"github.com/notargets/parmortar/mortar"
	"github.com/notargets/parmortar/parallel"
	"github.com/notargets/parmortar/readfiles"
	"github.com/notargets/parmortar/utils"
	"github.com/paulmach/orb"
)

const conservationTol = 1.e-10

// TransferSummary is what rank 0 learned from one run.
type TransferSummary struct {
	MasterElements, SlaveElements int
	Processes                     int
	Found                         bool
	Skipped                       int
	Iterations                    []int
	Converged                     bool
	MaxError                      float64
	MasterIntegral, SlaveIntegral []float64
	Conservative                  bool // integrals agree for every component
	Elapsed                       time.Duration
	MemUsage                      string
}

func (ts *TransferSummary) Print(w io.Writer) {
	fmt.Fprintf(w, "master %d elements, slave %d elements on %d ranks\n",
		ts.MasterElements, ts.SlaveElements, ts.Processes)
	if !ts.Found {
		fmt.Fprintf(w, "meshes do not overlap, nothing transferred\n")
		return
	}
	fmt.Fprintf(w, "skipped pairs = %d, solver iterations = %v, converged = %v\n",
		ts.Skipped, ts.Iterations, ts.Converged)
	fmt.Fprintf(w, "max nodal error = %8.5e\n", ts.MaxError)
	for c := range ts.SlaveIntegral {
		fmt.Fprintf(w, "component %d: integral over master = %12.8f, over slave = %12.8f\n",
			c, ts.MasterIntegral[c], ts.SlaveIntegral[c])
	}
	fmt.Fprintf(w, "conservative = %v\n", ts.Conservative)
	fmt.Fprintf(w, "elapsed %v, %s\n", ts.Elapsed, ts.MemUsage)
}

func parseKind(name string) geometry2D.Kind {
	if strings.HasPrefix(strings.ToLower(name), "quad") {
		return geometry2D.Quadrilateral
	}
	return geometry2D.Triangle
}

// BuildMesh constructs the serial mesh for one side.
func BuildMesh(mp *InputParameters.MeshParameters) (m *mesh.Mesh, err error) {
	var (
		box = orb.Bound{Min: orb.Point{mp.Box[0], mp.Box[1]}, Max: orb.Point{mp.Box[2], mp.Box[3]}}
	)
	switch strings.ToLower(mp.Generator) {
	case "rectangle":
		m, err = mesh.NewRectangle(mp.NX, mp.NY, box, parseKind(mp.Kind))
	case "trapezoid":
		// refinement is applied below
		m, err = mesh.NewTrapezoid(mp.Offset, parseKind(mp.Kind), 0)
	case "delaunay":
		if box.Max == box.Min {
			box.Max = orb.Point{1, 1}
		}
		m, err = mesh.NewDelaunayRect(mp.Points, box, mp.Seed)
	case "su2":
		var grid *readfiles.SU2Grid
		if grid, err = readfiles.ReadSU2(mp.File, false); err == nil {
			m = grid.Mesh
		}
	default:
		err = fmt.Errorf("unknown mesh generator %q", mp.Generator)
	}
	if err != nil {
		return nil, err
	}
	for i := 0; i < mp.Refine; i++ {
		if m, err = m.Refine(); err != nil {
			return nil, err
		}
	}
	return
}

// AnalyticField returns the test field by name. Component c is shifted so
// the components of a vector field differ.
func AnalyticField(name string) fem.Coefficient {
	switch name {
	case "constant":
		return func(p orb.Point, c int) float64 { return 1 + float64(c) }
	case "quadratic":
		return func(p orb.Point, c int) float64 { return p[0]*p[0] + p[0]*p[1] - float64(c)*p[1]*p[1] }
	case "sine":
		return func(p orb.Point, c int) float64 {
			return math.Sin(math.Pi*p[0]) * math.Cos(math.Pi*(p[1]+0.5*float64(c)))
		}
	}
	return func(p orb.Point, c int) float64 { return 1 + p[0] + 2*p[1] + float64(c)*(p[0]-p[1]) }
}

func parseOrdering(name string) fem.Ordering {
	if name == "byVDIM" {
		return fem.ByVDim
	}
	return fem.ByNodes
}

// RunTransfer executes one transfer on tp.Processes in-process ranks. Rank
// logs go to logOut.
func RunTransfer(ctx context.Context, tp *InputParameters.TransferParameters, logOut io.Writer) (sum *TransferSummary, err error) {
	var (
		master, slave    *mesh.Mesh
		mLocals, sLocals []*mesh.Local
		part             mesh.Partitioner
		np               = tp.Processes
		fn               = AnalyticField(tp.Field)
		ord              = parseOrdering(tp.Ordering)
		mu               sync.Mutex
		start            = time.Now()
	)
	if master, err = BuildMesh(&tp.Master); err != nil {
		return nil, fmt.Errorf("master mesh: %w", err)
	}
	if slave, err = BuildMesh(&tp.Slave); err != nil {
		return nil, fmt.Errorf("slave mesh: %w", err)
	}
	if part, err = mesh.NewPartitioner(tp.Partitioner); err != nil {
		return
	}
	if mLocals, err = mesh.DistributeWith(master, part, np); err != nil {
		return nil, fmt.Errorf("master mesh: %w", err)
	}
	if sLocals, err = mesh.DistributeWith(slave, part, np); err != nil {
		return nil, fmt.Errorf("slave mesh: %w", err)
	}
	sum = &TransferSummary{
		MasterElements: master.NumElements(),
		SlaveElements:  slave.NumElements(),
		Processes:      np,
	}
	world := parallel.NewWorld(np)
	world.SetLogOutput(logOut)
	err = world.Run(ctx, func(ctx context.Context, c *parallel.Comm) (err error) {
		var (
			ms, ss *fem.Space
			rep    *mortar.TransferReport
		)
		if ms, err = fem.NewSpace(mLocals[c.Rank()], tp.Master.Order, tp.VDim); err != nil {
			return
		}
		if ss, err = fem.NewSpace(sLocals[c.Rank()], tp.Slave.Order, tp.VDim); err != nil {
			return
		}
		var (
			pma   = mortar.NewParMortarAssembler(c, ms, ss)
			opts  = pma.Options()
			src   = fem.NewGridFunction(ms, ord)
			dst   = fem.NewGridFunction(ss, ord)
			exact = fem.NewGridFunction(ss, ord)
		)
		opts.Tolerance, opts.MaxIterations, opts.Verbose = tp.Tolerance, tp.MaxIterations, tp.Verbose
		pma.SetOptions(opts)
		if tp.VectorKernel && tp.VDim > 1 {
			pma.AddCouplingIntegrator(mortar.VectorL2Integrator{VDim: tp.VDim})
		}
		if err = src.ProjectCoefficient(fn); err != nil {
			return
		}
		if err = exact.ProjectCoefficient(fn); err != nil {
			return
		}
		if rep, err = pma.Transfer(ctx, src, dst, tp.VDim > 1); err != nil {
			return
		}
		if !rep.Found {
			return
		}
		var nan bool
		if nan, err = parallel.AllReduceOr(ctx, c, utils.IsNan(dst.Data)); err != nil {
			return
		}
		if nan {
			return fmt.Errorf("transferred field contains NaN")
		}
		var (
			maxErr     float64
			mInt, sInt []float64
		)
		if maxErr, err = fem.MaxDifference(ctx, c, dst, exact); err != nil {
			return
		}
		if mInt, err = src.Integral(ctx, c); err != nil {
			return
		}
		if sInt, err = dst.Integral(ctx, c); err != nil {
			return
		}
		if c.Rank() != 0 {
			return
		}
		mu.Lock()
		defer mu.Unlock()
		sum.Found, sum.Skipped, sum.Converged = true, rep.Skipped, rep.Converged()
		for _, st := range rep.Components {
			sum.Iterations = append(sum.Iterations, st.Iterations)
		}
		sum.MaxError, sum.MasterIntegral, sum.SlaveIntegral = maxErr, mInt, sInt
		sum.Conservative = true
		for i := range mInt {
			sum.Conservative = sum.Conservative && utils.AlmostEqual(mInt[i], sInt[i], conservationTol)
		}
		return
	})
	if err != nil {
		return nil, err
	}
	sum.Elapsed = time.Since(start)
	sum.MemUsage = utils.GetMemUsage()
	return
}
