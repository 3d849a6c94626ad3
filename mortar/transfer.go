package mortar

import (
	"context"
	"fmt"

	"github.com/notargets/parmortar/fem"
)

// TransferReport is the outcome of one Transfer. Found is false when the
// meshes do not overlap, in which case the destination is left unchanged.
type TransferReport struct {
	Found      bool
	Skipped    int
	Components []SolveStats
	Warnings   []*ConvergenceWarning
}

// Converged reports whether every mass matrix solve reached the tolerance.
func (tr *TransferReport) Converged() bool { return len(tr.Warnings) == 0 }

// Transfer computes dst = M^-1 B src. B and M are assembled on the first
// call and reused afterwards. With isVector and a scalar operator, every
// component of the field is transferred with the same operator; a vector
// operator is applied to all components at once. src is never modified.
// Collective.
func (a *ParMortarAssembler) Transfer(ctx context.Context, src, dst *fem.GridFunction, isVector bool) (rep *TransferReport, err error) {
	if src.Space != a.master || dst.Space != a.slave {
		return nil, fail("transfer", fmt.Errorf("fields are not defined on the assembler's master and slave spaces"))
	}
	if !a.assembled {
		if _, _, err = a.Assemble(ctx); err != nil {
			return
		}
	}
	rep = &TransferReport{Found: a.found, Skipped: a.skipped}
	if !a.found {
		return
	}
	var (
		comp = a.B.Components
		sdim = src.Space.VDim
		ddim = dst.Space.VDim
	)
	apply := func(c int, x []float64) (v []float64, err error) {
		var (
			rhs = make([]float64, a.B.NumOwnedRows())
			st  SolveStats
		)
		if err = a.B.MulVec(ctx, x, rhs); err != nil {
			return nil, fail("apply", err)
		}
		v = make([]float64, len(rhs))
		if st, err = pcg(ctx, a.M, rhs, v, a.opts.Tolerance, a.opts.MaxIterations); err != nil {
			return nil, fail("solve", err)
		}
		st.Component = c
		rep.Components = append(rep.Components, st)
		if !st.Converged {
			w := &ConvergenceWarning{Component: c, Iterations: st.Iterations,
				Residual: st.Residual, Tolerance: a.opts.Tolerance}
			rep.Warnings = append(rep.Warnings, w)
			if a.comm.Rank() == 0 {
				a.comm.Logger().Printf("warning: %v", w)
			}
		}
		return
	}
	switch {
	case isVector && comp == 1:
		if sdim != ddim {
			return nil, fail("transfer", fmt.Errorf("vector dimensions differ: master %d, slave %d", sdim, ddim))
		}
		for c := 0; c < sdim; c++ {
			var v []float64
			if v, err = apply(c, src.Component(c)); err != nil {
				return nil, err
			}
			dst.SetComponent(c, v)
		}
	case sdim == comp && ddim == comp:
		var v []float64
		if v, err = apply(0, src.Interleaved()); err != nil {
			return nil, err
		}
		dst.SetInterleaved(v)
	default:
		return nil, fail("transfer", fmt.Errorf("operator has %d components, fields have %d and %d (vector: %v)",
			comp, sdim, ddim, isVector))
	}
	return
}
