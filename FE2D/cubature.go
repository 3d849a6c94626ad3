package FE2D

import (
	"fmt"
	"math"
	"sync"

	"github.com/notargets/parmortar/geometry2D"
)

// Cubature is a rule on a biunit reference cell. Weights sum to the
// reference area: 2 for the triangle, 4 for the square.
type Cubature struct {
	R, S, W []float64
	Nq      int
	Degree  int
}

var (
	cubMu    sync.Mutex
	cubCache = map[[2]int]*Cubature{}
)

// NewCubature returns a rule on the reference cell of the given kind that is
// exact for polynomials of total degree <= degree. Rules are shared and must
// not be modified.
func NewCubature(kind geometry2D.Kind, degree int) (cb *Cubature) {
	if degree < 0 {
		panic(fmt.Errorf("cubature degree must be >= 0, have %d", degree))
	}
	key := [2]int{int(kind), degree}
	cubMu.Lock()
	defer cubMu.Unlock()
	if cb = cubCache[key]; cb != nil {
		return
	}
	switch kind {
	case geometry2D.Triangle:
		cb = collapsedCubature(degree)
	case geometry2D.Quadrilateral:
		cb = tensorCubature(degree)
	default:
		panic(fmt.Errorf("no cubature for %v", kind))
	}
	cubCache[key] = cb
	return
}

func pointsFor(degree int) int {
	return int(math.Ceil(float64(degree+1) / 2.))
}

// collapsedCubature is the Stroud conical product rule: Gauss-Legendre in a,
// Gauss-Jacobi(1,0) in b, mapped by r = (1+a)(1-b)/2 - 1, s = b.
func collapsedCubature(degree int) (cb *Cubature) {
	var (
		N       = pointsFor(degree)
		a, wa   = JacobiGQ(0, 0, N-1)
		b, wb   = JacobiGQ(1, 0, N-1)
		Nq      = N * N
		R, S, W = make([]float64, Nq), make([]float64, Nq), make([]float64, Nq)
	)
	for j := 0; j < N; j++ {
		for i := 0; i < N; i++ {
			ind := i + j*N
			R[ind] = 0.5*(1+a[i])*(1-b[j]) - 1
			S[ind] = b[j]
			W[ind] = 0.5 * wa[i] * wb[j]
		}
	}
	return &Cubature{R: R, S: S, W: W, Nq: Nq, Degree: degree}
}

func tensorCubature(degree int) (cb *Cubature) {
	var (
		N       = pointsFor(degree)
		a, wa   = JacobiGQ(0, 0, N-1)
		Nq      = N * N
		R, S, W = make([]float64, Nq), make([]float64, Nq), make([]float64, Nq)
	)
	for j := 0; j < N; j++ {
		for i := 0; i < N; i++ {
			ind := i + j*N
			R[ind], S[ind], W[ind] = a[i], a[j], wa[i]*wa[j]
		}
	}
	return &Cubature{R: R, S: S, W: W, Nq: Nq, Degree: degree}
}
