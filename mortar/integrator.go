package mortar

import (
	"fmt"

	"github.com/notargets/parmortar/FE2D"
	"github.com/notargets/parmortar/geometry2D"
	"github.com/notargets/parmortar/utils"
	"github.com/paulmach/orb"
)

// ElementContext is one side of a candidate pair: the cell geometry and its
// basis.
type ElementContext struct {
	Shape  geometry2D.Shape
	FE     FE2D.FiniteElement
	Global int
}

// EvalBasis maps p back to the reference cell and evaluates the basis there.
func (ec *ElementContext) EvalBasis(p orb.Point, phi []float64) error {
	r, s, err := ec.Shape.InverseMap(p)
	if err != nil {
		return err
	}
	ec.FE.Basis(r, s, phi)
	return nil
}

// Integrator computes the local coupling block for one intersecting pair.
// The block has NumDofs(slave)*Components rows and NumDofs(master)*Components
// columns, component index fastest. Implementations must not keep state
// between calls.
type Integrator interface {
	Name() string
	// Degree is the polynomial degree of the kernel, added to the two basis
	// degrees to size the quadrature.
	Degree() int
	Components() int
	Integrate(in geometry2D.Intersection, master, slave *ElementContext) (utils.Matrix, error)
}

// quadrature walks the cubature points of every intersection piece with the
// master and slave basis values at each point.
func quadrature(in geometry2D.Intersection, master, slave *ElementContext, degree int,
	fn func(p orb.Point, w float64, phiM, phiS []float64)) error {
	var (
		phiM = make([]float64, master.FE.NumDofs())
		phiS = make([]float64, slave.FE.NumDofs())
	)
	degree += master.FE.Degree() + slave.FE.Degree()
	for _, piece := range in.Pieces {
		pts, w := FE2D.PolygonCubature(piece, degree)
		for q, p := range pts {
			if err := master.EvalBasis(p, phiM); err != nil {
				return fmt.Errorf("master element %d: %w", master.Global, err)
			}
			if err := slave.EvalBasis(p, phiS); err != nil {
				return fmt.Errorf("slave element %d: %w", slave.Global, err)
			}
			fn(p, w[q], phiM, phiS)
		}
	}
	return nil
}

// L2Integrator is the plain mortar kernel ∫ ψ_i φ_j.
type L2Integrator struct{}

func (L2Integrator) Name() string    { return "L2" }
func (L2Integrator) Degree() int     { return 0 }
func (L2Integrator) Components() int { return 1 }

func (L2Integrator) Integrate(in geometry2D.Intersection, master, slave *ElementContext) (B utils.Matrix, err error) {
	B = utils.NewMatrix(slave.FE.NumDofs(), master.FE.NumDofs())
	data := B.Data()
	nc := master.FE.NumDofs()
	err = quadrature(in, master, slave, 0, func(_ orb.Point, w float64, phiM, phiS []float64) {
		for i, ps := range phiS {
			for j, pm := range phiM {
				data[i*nc+j] += w * ps * pm
			}
		}
	})
	return
}

// WeightedL2Integrator is ∫ c(x) ψ_i φ_j with a coefficient whose polynomial
// degree is declared by CoefDegree.
type WeightedL2Integrator struct {
	Coef       func(p orb.Point) float64
	CoefDegree int
}

func (wi WeightedL2Integrator) Name() string    { return "WeightedL2" }
func (wi WeightedL2Integrator) Degree() int     { return wi.CoefDegree }
func (wi WeightedL2Integrator) Components() int { return 1 }

func (wi WeightedL2Integrator) Integrate(in geometry2D.Intersection, master, slave *ElementContext) (B utils.Matrix, err error) {
	B = utils.NewMatrix(slave.FE.NumDofs(), master.FE.NumDofs())
	data := B.Data()
	nc := master.FE.NumDofs()
	err = quadrature(in, master, slave, wi.CoefDegree, func(p orb.Point, w float64, phiM, phiS []float64) {
		cw := w * wi.Coef(p)
		for i, ps := range phiS {
			for j, pm := range phiM {
				data[i*nc+j] += cw * ps * pm
			}
		}
	})
	return
}

// VectorL2Integrator couples each of VDim components with itself.
type VectorL2Integrator struct {
	VDim int
}

func (vi VectorL2Integrator) Name() string    { return fmt.Sprintf("VectorL2(%d)", vi.VDim) }
func (vi VectorL2Integrator) Degree() int     { return 0 }
func (vi VectorL2Integrator) Components() int { return vi.VDim }

func (vi VectorL2Integrator) Integrate(in geometry2D.Intersection, master, slave *ElementContext) (B utils.Matrix, err error) {
	var (
		nd  = vi.VDim
		nr  = slave.FE.NumDofs() * nd
		nc  = master.FE.NumDofs() * nd
		blk utils.Matrix
	)
	if blk, err = (L2Integrator{}).Integrate(in, master, slave); err != nil {
		return
	}
	B = utils.NewMatrix(nr, nc)
	for i := 0; i < slave.FE.NumDofs(); i++ {
		for j := 0; j < master.FE.NumDofs(); j++ {
			for c := 0; c < nd; c++ {
				B.Set(i*nd+c, j*nd+c, blk.At(i, j))
			}
		}
	}
	return
}
