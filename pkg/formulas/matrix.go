package formulas

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// RegularizedCholesky factorizes a symmetric matrix, applying escalating
// diagonal loading when the matrix is not numerically positive-definite
// (e.g. a constant-price asset contributes a zero variance row).
//
// Returns the factorization, the diagonal loading that was applied (0 when
// the matrix factorized cleanly), and an error if loading up to maxLoading
// still does not produce a positive-definite matrix.
func RegularizedCholesky(sigma *mat.SymDense) (*mat.Cholesky, float64, error) {
	var chol mat.Cholesky
	if chol.Factorize(sigma) {
		return &chol, 0, nil
	}

	n := sigma.SymmetricDim()

	// Scale the jitter to the matrix magnitude so tiny daily covariances
	// and large annualized ones get proportionate treatment.
	trace := 0.0
	for i := 0; i < n; i++ {
		trace += sigma.At(i, i)
	}
	base := trace / float64(n)
	if base <= 0 {
		base = 1.0
	}

	const maxAttempts = 8
	loading := base * 1e-10
	for attempt := 0; attempt < maxAttempts; attempt++ {
		jittered := mat.NewSymDense(n, nil)
		jittered.CopySym(sigma)
		for i := 0; i < n; i++ {
			jittered.SetSym(i, i, sigma.At(i, i)+loading)
		}
		if chol.Factorize(jittered) {
			return &chol, loading, nil
		}
		loading *= 10
	}

	return nil, 0, fmt.Errorf("matrix is not positive-definite after diagonal loading up to %g", loading)
}

// RegularizedInverse inverts a symmetric matrix with the same diagonal-loading
// fallback as RegularizedCholesky. Returns the inverse as a dense matrix and
// the loading applied.
func RegularizedInverse(sigma *mat.SymDense) (*mat.Dense, float64, error) {
	chol, loading, err := RegularizedCholesky(sigma)
	if err != nil {
		return nil, 0, err
	}
	n := sigma.SymmetricDim()
	var inv mat.SymDense
	if err := chol.InverseTo(&inv); err != nil {
		return nil, 0, fmt.Errorf("failed to invert matrix: %w", err)
	}
	out := mat.NewDense(n, n, nil)
	out.Copy(&inv)
	return out, loading, nil
}

// SymFromRows builds a SymDense from a square row-major [][]float64, averaging
// (i,j) and (j,i) to absorb floating-point asymmetry.
func SymFromRows(rows [][]float64) *mat.SymDense {
	n := len(rows)
	out := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			out.SetSym(i, j, 0.5*(rows[i][j]+rows[j][i]))
		}
	}
	return out
}

// RowsFromSym converts a SymDense into a row-major [][]float64, used when a
// matrix has to cross a serialization boundary (msgpack cache, JSON).
func RowsFromSym(sigma *mat.SymDense) [][]float64 {
	n := sigma.SymmetricDim()
	rows := make([][]float64, n)
	for i := 0; i < n; i++ {
		rows[i] = make([]float64, n)
		for j := 0; j < n; j++ {
			rows[i][j] = sigma.At(i, j)
		}
	}
	return rows
}
