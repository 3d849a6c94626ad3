package mortar

import (
	"context"
	"math"

	"github.com/notargets/parmortar/parallel"
	"gonum.org/v1/gonum/floats"
)

// SolveStats describes one mass matrix solve.
type SolveStats struct {
	Component  int
	Iterations int
	Residual   float64 // relative to ||b||
	Converged  bool
}

func dot(ctx context.Context, comm *parallel.Comm, x, y []float64) (float64, error) {
	sum := []float64{floats.Dot(x, y)}
	if err := parallel.AllReduceSum(ctx, comm, sum); err != nil {
		return 0, err
	}
	return sum[0], nil
}

// pcg solves A x = b with Jacobi preconditioned conjugate gradients starting
// from x = 0. Only owned rows are stored here; every inner product is
// reduced over all ranks, so all ranks take the same number of iterations.
func pcg(ctx context.Context, A *Operator, b, x []float64, tol float64, maxIter int) (st SolveStats, err error) {
	var (
		comm  = A.comm
		n     = len(b)
		r     = make([]float64, n)
		z     = make([]float64, n)
		p     = make([]float64, n)
		Ap    = make([]float64, n)
		dinv  = A.Diagonal()
		bnorm float64
		rz    float64
	)
	for i, d := range dinv {
		if d == 0 {
			dinv[i] = 1
		} else {
			dinv[i] = 1 / d
		}
	}
	for i := range x {
		x[i] = 0
	}
	copy(r, b)
	if bnorm, err = dot(ctx, comm, b, b); err != nil {
		return
	}
	bnorm = math.Sqrt(bnorm)
	if bnorm == 0 {
		st.Converged = true
		return
	}
	floats.MulTo(z, dinv, r)
	copy(p, z)
	if rz, err = dot(ctx, comm, r, z); err != nil {
		return
	}
	st.Residual = 1
	for st.Iterations < maxIter {
		var pAp, rr, rzNew float64
		if err = A.MulVec(ctx, p, Ap); err != nil {
			return
		}
		if pAp, err = dot(ctx, comm, p, Ap); err != nil {
			return
		}
		if pAp <= 0 {
			// A is not positive definite on p; keep the current iterate
			break
		}
		alpha := rz / pAp
		floats.AddScaled(x, alpha, p)
		floats.AddScaled(r, -alpha, Ap)
		st.Iterations++
		if rr, err = dot(ctx, comm, r, r); err != nil {
			return
		}
		st.Residual = math.Sqrt(rr) / bnorm
		if st.Residual < tol {
			st.Converged = true
			return
		}
		floats.MulTo(z, dinv, r)
		if rzNew, err = dot(ctx, comm, r, z); err != nil {
			return
		}
		// p = z + beta p
		floats.Scale(rzNew/rz, p)
		floats.Add(p, z)
		rz = rzNew
	}
	return
}
