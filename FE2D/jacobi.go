package FE2D

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// JacobiGQ returns the N+1 point Gauss quadrature for the weight
// (1-x)^alpha (1+x)^beta on [-1,1], via the Golub-Welsch eigenvalue problem.
func JacobiGQ(alpha, beta float64, N int) (X, W []float64) {
	var (
		fac        float64
		h1, d0, d1 []float64
		VVr        *mat.Dense
	)
	if N == 0 {
		X = []float64{-(alpha - beta) / (alpha + beta + 2.)}
		W = []float64{gamma0(alpha, beta)}
		return
	}

	h1 = make([]float64, N+1)
	for i := 0; i < N+1; i++ {
		h1[i] = 2*float64(i) + alpha + beta
	}

	// main diagonal: diag(-(alpha^2-beta^2)./(h1+2)./h1), set once in the
	// SymDense rather than halved and doubled by J+J'
	d0 = make([]float64, N+1)
	fac = -(alpha*alpha - beta*beta)
	for i := 0; i < N+1; i++ {
		val := h1[i]
		d0[i] = fac / (val * (val + 2.))
	}
	// Handle division by zero
	eps := 1.e-16
	if alpha+beta < 10*eps {
		d0[0] = 0.
	}

	// 1st upper diagonal
	var ip1 float64
	d1 = make([]float64, N)
	for i := 0; i < N; i++ {
		ip1 = float64(i + 1)
		val := h1[i]
		d1[i] = 2. / (val + 2.)
		d1[i] *= math.Sqrt(ip1 * (ip1 + alpha + beta) * (ip1 + alpha) * (ip1 + beta) / ((val + 1.) * (val + 3.)))
	}

	JJ := mat.NewSymDense(N+1, nil)
	for i := 0; i < N+1; i++ {
		JJ.SetSym(i, i, d0[i])
		if i < N {
			JJ.SetSym(i, i+1, d1[i])
		}
	}

	var eig mat.EigenSym
	if ok := eig.Factorize(JJ, true); !ok {
		panic("eigenvalue decomposition failed")
	}
	X = eig.Values(nil)

	VVr = mat.NewDense(N+1, N+1, nil)
	eig.VectorsTo(VVr)
	W = make([]float64, N+1)
	g0 := gamma0(alpha, beta)
	for i, v := range VVr.RawRowView(0) {
		W[i] = v * v * g0
	}
	return
}

// JacobiP evaluates the normalized Jacobi polynomial of order N at x.
func JacobiP(x, alpha, beta float64, N int) float64 {
	var (
		aold, anew, bnew, h1 float64
		g0                   = gamma0(alpha, beta)
		p0                   = 1. / math.Sqrt(g0)
	)
	if N == 0 {
		return p0
	}
	gamma1 := (alpha + 1.) * (beta + 1.) / (alpha + beta + 3.) * g0
	p1 := ((alpha+beta+2.)*x/2. + (alpha-beta)/2.) / math.Sqrt(gamma1)
	if N == 1 {
		return p1
	}
	aold = 2. / (2. + alpha + beta) * math.Sqrt((alpha+1.)*(beta+1.)/(alpha+beta+3.))
	pm1, p := p0, p1
	for i := 1; i < N; i++ {
		fi := float64(i)
		h1 = 2.*fi + alpha + beta
		anew = 2. / (h1 + 2.) * math.Sqrt((fi+1.)*(fi+1.+alpha+beta)*(fi+1.+alpha)*(fi+1.+beta)/((h1+1.)*(h1+3.)))
		bnew = -(alpha*alpha - beta*beta) / (h1 * (h1 + 2.))
		pm1, p = p, 1./anew*(-aold*pm1+(x-bnew)*p)
		aold = anew
	}
	return p
}

func gamma0(alpha, beta float64) float64 {
	ab1 := alpha + beta + 1.
	a1 := alpha + 1.
	b1 := beta + 1.
	return math.Gamma(a1) * math.Gamma(b1) * math.Pow(2, ab1) / ab1 / math.Gamma(ab1)
}
