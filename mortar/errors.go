package mortar

import (
	"fmt"

	"github.com/notargets/parmortar/geometry2D"
)

// GeometryError is scoped to one candidate pair; the pair is skipped.
type GeometryError = geometry2D.GeometryError

// TransferError is fatal for the whole Assemble or Transfer call and is
// returned on every rank. Phase names the step that failed.
type TransferError struct {
	Phase string
	Err   error
}

func (e *TransferError) Error() string {
	return fmt.Sprintf("mortar %s failed: %v", e.Phase, e.Err)
}

func (e *TransferError) Unwrap() error { return e.Err }

func fail(phase string, err error) error {
	if err == nil {
		return nil
	}
	return &TransferError{Phase: phase, Err: err}
}

// ConvergenceWarning reports a mass matrix solve that hit the iteration cap.
// The best iterate is still written to the destination field.
type ConvergenceWarning struct {
	Component  int
	Iterations int
	Residual   float64
	Tolerance  float64
}

func (w *ConvergenceWarning) Error() string {
	return fmt.Sprintf("component %d: solve stopped after %d iterations at relative residual %.3e (tolerance %.3e)",
		w.Component, w.Iterations, w.Residual, w.Tolerance)
}
