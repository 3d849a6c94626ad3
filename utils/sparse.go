package utils

import (
	"fmt"
	"sort"

	"github.com/james-bowman/sparse"
	"github.com/james-bowman/sparse/blas"
	"gonum.org/v1/gonum/mat"
)

// DOK is a write-mostly accumulator for sparse rows. Entries are summed on
// insertion, then frozen into a CSR for arithmetic.
type DOK struct {
	M        *sparse.DOK
	readOnly bool
	name     string
}

// NewDOK returns an empty writable nr x nc accumulator.
func NewDOK(nr, nc int) (R DOK) {
	R = DOK{
		sparse.NewDOK(nr, nc),
		false,
		"unnamed - hint: pass a variable name to SetReadOnly()",
	}
	return
}

// Dims, At and T minimally satisfy the mat.Matrix interface.
func (m DOK) Dims() (r, c int)    { return m.M.Dims() }
func (m DOK) At(i, j int) float64 { return m.M.At(i, j) }
func (m DOK) T() mat.Matrix       { return m.M.T() }

func (m *DOK) SetReadOnly(name ...string) DOK {
	if len(name) != 0 {
		m.name = name[0]
	}
	m.readOnly = true
	return *m
}

// Accumulate adds val into (i,j).
func (m DOK) Accumulate(i, j int, val float64) {
	m.checkWritable()
	m.M.Set(i, j, m.M.At(i, j)+val)
}

func (m DOK) NNZ() int { return m.M.NNZ() }

func (m DOK) checkWritable() {
	if m.readOnly {
		err := fmt.Errorf("attempt to write to a read only matrix named: \"%v\"", m.name)
		panic(err)
	}
}

// ToCSR freezes the accumulator. Column indices within each row of the
// result are ascending, so row products are evaluated in a fixed order.
func (m DOK) ToCSR() CSR {
	R := CSR{
		M:        m.M.ToCSR(),
		readOnly: true,
		name:     m.name,
	}
	R.sortRows()
	return R
}

type CSR struct {
	M        *sparse.CSR
	readOnly bool
	name     string
}

// Dims, At and T minimally satisfy the mat.Matrix interface.
func (m CSR) Dims() (r, c int)              { return m.M.Dims() }
func (m CSR) At(i, j int) float64           { return m.M.At(i, j) }
func (m CSR) T() mat.Matrix                 { return m.M.T() }
func (m CSR) RawMatrix() *blas.SparseMatrix { return m.M.RawMatrix() }
func (m CSR) NNZ() int                      { return m.M.NNZ() }

// Row returns views of the column indices and values stored in row i.
func (m CSR) Row(i int) (cols []int, vals []float64) {
	var (
		raw    = m.RawMatrix()
		p0, p1 = raw.Indptr[i], raw.Indptr[i+1]
	)
	return raw.Ind[p0:p1], raw.Data[p0:p1]
}

// DoNonZero calls fn for every stored entry in row-major order.
func (m CSR) DoNonZero(fn func(i, j int, v float64)) {
	var nr, _ = m.Dims()
	for i := 0; i < nr; i++ {
		cols, vals := m.Row(i)
		for jj, j := range cols {
			fn(i, j, vals[jj])
		}
	}
}

// MulVecTo computes y = A x, where x is indexed by column number.
func (m CSR) MulVecTo(y, x []float64) {
	var nr, _ = m.Dims()
	if len(y) != nr {
		panic(fmt.Errorf("dimension mismatch: %d rows, len(y) = %d", nr, len(y)))
	}
	for i := 0; i < nr; i++ {
		var (
			cols, vals = m.Row(i)
			sum        float64
		)
		for jj, j := range cols {
			sum += vals[jj] * x[j]
		}
		y[i] = sum
	}
}

func (m CSR) sortRows() {
	var (
		raw   = m.RawMatrix()
		nr, _ = m.Dims()
	)
	for i := 0; i < nr; i++ {
		p0, p1 := raw.Indptr[i], raw.Indptr[i+1]
		sort.Sort(rowSorter{raw.Ind[p0:p1], raw.Data[p0:p1]})
	}
}

type rowSorter struct {
	ind  []int
	data []float64
}

func (r rowSorter) Len() int           { return len(r.ind) }
func (r rowSorter) Less(i, j int) bool { return r.ind[i] < r.ind[j] }
func (r rowSorter) Swap(i, j int) {
	r.ind[i], r.ind[j] = r.ind[j], r.ind[i]
	r.data[i], r.data[j] = r.data[j], r.data[i]
}
