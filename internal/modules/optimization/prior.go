package optimization

import (
	"gonum.org/v1/gonum/mat"
)

// EqualWeights returns the 1/n reference weighting, used as a proxy for
// market-cap weights when capitalization data is unavailable.
func EqualWeights(n int) []float64 {
	if n == 0 {
		return nil
	}
	w := make([]float64, n)
	for i := range w {
		w[i] = 1.0 / float64(n)
	}
	return w
}

// ImpliedEquilibriumReturns derives the prior return vector via reverse
// mean-variance optimization: the returns consistent with the reference
// portfolio being efficient.
//
// Formula: Π = λ * Σ * w
// Where: λ = risk aversion, Σ = covariance matrix, w = reference weights
func ImpliedEquilibriumReturns(cov *mat.SymDense, refWeights []float64, riskAversion float64) []float64 {
	n := cov.SymmetricDim()
	w := mat.NewVecDense(n, refWeights)

	var sigmaW mat.VecDense
	sigmaW.MulVec(cov, w)

	prior := make([]float64, n)
	for i := 0; i < n; i++ {
		prior[i] = riskAversion * sigmaW.AtVec(i)
	}
	return prior
}
