package cmd

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/notargets/parmortar/InputParameters"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func smallParameters() *InputParameters.TransferParameters {
	tp := InputParameters.NewTransferParameters()
	tp.Master.NX, tp.Master.NY = 2, 2
	tp.Slave.Refine = 1
	return tp
}

func TestRunTransferLinear(t *testing.T) {
	tp := smallParameters()
	require.NoError(t, tp.Validate())
	sum, err := RunTransfer(context.Background(), tp, io.Discard)
	require.NoError(t, err)
	assert.True(t, sum.Found)
	assert.True(t, sum.Converged)
	assert.Equal(t, 4, sum.MasterElements)
	assert.Equal(t, 8, sum.SlaveElements)
	assert.Less(t, sum.MaxError, 1.e-9)
	// ∫ 1 + x + 2y over the unit square and over the trapezoid
	assert.InDelta(t, 2.5, sum.MasterIntegral[0], 1.e-12)
	assert.InDelta(t, 211./96, sum.SlaveIntegral[0], 1.e-9)

	// the trapezoid covers only part of the master
	assert.False(t, sum.Conservative)

	var buf bytes.Buffer
	sum.Print(&buf)
	assert.Contains(t, buf.String(), "max nodal error")
	assert.Contains(t, buf.String(), "conservative = false")
}

func TestRunTransferConservative(t *testing.T) {
	tp := smallParameters()
	// zero offset makes the slave the unit square
	tp.Slave.Offset = 0
	require.NoError(t, tp.Validate())
	sum, err := RunTransfer(context.Background(), tp, io.Discard)
	require.NoError(t, err)
	assert.True(t, sum.Found)
	assert.InDelta(t, 2.5, sum.SlaveIntegral[0], 1.e-9)
	assert.True(t, sum.Conservative)
}

func TestRunTransferVector(t *testing.T) {
	for _, kernel := range []bool{false, true} {
		tp := smallParameters()
		tp.VDim, tp.VectorKernel, tp.Ordering, tp.Processes = 2, kernel, "byVDIM", 3
		sum, err := RunTransfer(context.Background(), tp, io.Discard)
		require.NoError(t, err)
		assert.True(t, sum.Found)
		assert.Less(t, sum.MaxError, 1.e-9)
		assert.Len(t, sum.SlaveIntegral, 2)
		if kernel {
			assert.Len(t, sum.Iterations, 1)
		} else {
			assert.Len(t, sum.Iterations, 2)
		}
	}
}

func TestRunTransferDisjoint(t *testing.T) {
	tp := smallParameters()
	tp.Master.Box = [4]float64{3, 3, 4, 4}
	sum, err := RunTransfer(context.Background(), tp, io.Discard)
	require.NoError(t, err)
	assert.False(t, sum.Found)
	var buf bytes.Buffer
	sum.Print(&buf)
	assert.Contains(t, buf.String(), "do not overlap")
}

func TestBuildMesh(t *testing.T) {
	var (
		dir   = t.TempDir()
		fname = filepath.Join(dir, "two.su2")
		su2   = "NDIME= 2\nNELEM= 2\n5 0 1 2 0\n5 0 2 3 1\nNPOIN= 4\n0 0 0\n1 0 1\n1 1 2\n0 1 3\n"
	)
	require.NoError(t, os.WriteFile(fname, []byte(su2), 0o644))
	m, err := BuildMesh(&InputParameters.MeshParameters{Generator: "su2", File: fname, Refine: 1})
	require.NoError(t, err)
	assert.Equal(t, 8, m.NumElements())
	assert.InDelta(t, 1., m.Area(), 1.e-14)

	m, err = BuildMesh(&InputParameters.MeshParameters{Generator: "trapezoid", Kind: "quadrilateral", Offset: 0.5, Refine: 2})
	require.NoError(t, err)
	assert.Equal(t, 16, m.NumElements())
	assert.InDelta(t, 0.75, m.Area(), 1.e-14)

	_, err = BuildMesh(&InputParameters.MeshParameters{Generator: "gambit"})
	assert.Error(t, err)
}

func TestLoadParameters(t *testing.T) {
	tp, err := loadParameters("")
	require.NoError(t, err)
	assert.Equal(t, "linear", tp.Field)

	fname := filepath.Join(t.TempDir(), "input.yaml")
	require.NoError(t, os.WriteFile(fname, []byte("Field: sine\nProcesses: 5\n"), 0o644))
	tp, err = loadParameters(fname)
	require.NoError(t, err)
	assert.Equal(t, "sine", tp.Field)
	assert.Equal(t, 5, tp.Processes)

	_, err = loadParameters(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
