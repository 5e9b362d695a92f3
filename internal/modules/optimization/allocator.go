package optimization

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/rs/zerolog"

	"github.com/invexis/invexis/pkg/formulas"
)

const (
	// weightSumTolerance is the guarantee on the returned vector: weights
	// sum to 1 within this bound.
	weightSumTolerance = 1e-6

	// equivalenceTolerance groups assets whose posterior return and variance
	// are numerically indistinguishable for the deterministic tie-break.
	equivalenceTolerance = 1e-12
)

// Allocator solves for the maximum-Sharpe (tangency) portfolio on the
// non-negative simplex: maximize (w'μ - r_f) / sqrt(w'Σw) with w ≥ 0 and
// Σw = 1.
type Allocator struct {
	riskFreeRate float64
	log          zerolog.Logger
}

// NewAllocator creates an allocator with the given annualized risk-free rate.
func NewAllocator(riskFreeRate float64, log zerolog.Logger) *Allocator {
	return &Allocator{
		riskFreeRate: riskFreeRate,
		log:          log.With().Str("component", "allocator").Logger(),
	}
}

// MaxSharpe computes tangency weights for the given annualized posterior
// returns and covariance. refWeights (the prior reference weighting) break
// ties between numerically equivalent assets deterministically.
//
// The unconstrained tangency solution is w* ∝ Σ⁻¹(μ - r_f·1). Non-negativity
// is enforced critical-line style: solve on the active set, drop any asset
// whose solved weight is negative, and re-solve on the remainder. The
// iteration is bounded by the asset count; exhausting it or producing a
// non-positive weight sum yields OptimizationFailedError — never a
// partially-solved or NaN-containing vector.
//
// When no asset offers a positive excess return over r_f the Sharpe objective
// has no long-only maximizer; a low-volatility universe is still valid input,
// so the allocation falls back to the normalized reference weights. Σ⁻¹Π is
// proportional to the reference weights, making them the natural allocation
// for the view-free posterior once the rate constraint is inactive.
func (a *Allocator) MaxSharpe(mu []float64, cov *mat.SymDense, refWeights []float64) ([]float64, error) {
	n := len(mu)
	if n == 0 || cov.SymmetricDim() != n {
		return nil, &OptimizationFailedError{Reason: "empty or mismatched inputs"}
	}

	maxExcess := math.Inf(-1)
	for _, m := range mu {
		if e := m - a.riskFreeRate; e > maxExcess {
			maxExcess = e
		}
	}
	if maxExcess <= 0 {
		return a.referenceFallback(refWeights, n), nil
	}

	active := make([]int, n)
	for i := range active {
		active[i] = i
	}

	var solved []float64
	converged := false
	for iter := 0; iter < n; iter++ {
		z, err := a.solveTangency(mu, cov, active)
		if err != nil {
			return nil, err
		}

		next := active[:0:0]
		for k, idx := range active {
			if z[k] >= -equivalenceTolerance {
				next = append(next, idx)
			}
		}

		if len(next) == len(active) {
			solved = z
			converged = true
			break
		}
		if len(next) == 0 {
			return a.referenceFallback(refWeights, n), nil
		}
		active = next
	}
	if !converged {
		return nil, &OptimizationFailedError{Reason: "active-set iteration did not converge within bounded iterations"}
	}

	sum := 0.0
	for k := range solved {
		if solved[k] < 0 {
			solved[k] = 0
		}
		sum += solved[k]
	}
	if sum <= equivalenceTolerance {
		return nil, &OptimizationFailedError{Reason: "tangency solution has non-positive weight mass"}
	}

	weights := make([]float64, n)
	for k, idx := range active {
		weights[idx] = solved[k] / sum
	}

	a.redistributeTies(weights, mu, cov, refWeights)
	normalize(weights)

	for _, w := range weights {
		if math.IsNaN(w) || math.IsInf(w, 0) || w < 0 {
			return nil, &OptimizationFailedError{Reason: "solver produced an invalid weight"}
		}
	}
	return weights, nil
}

// referenceFallback normalizes the reference weights, substituting equal
// weights when the reference is missing or has no positive mass.
func (a *Allocator) referenceFallback(refWeights []float64, n int) []float64 {
	a.log.Warn().
		Float64("risk_free_rate", a.riskFreeRate).
		Msg("No positive excess-return allocation exists; using reference weights")

	out := make([]float64, n)
	sum := 0.0
	for i := 0; i < n && i < len(refWeights); i++ {
		if refWeights[i] > 0 {
			out[i] = refWeights[i]
			sum += refWeights[i]
		}
	}
	if sum <= 0 {
		for i := range out {
			out[i] = 1.0 / float64(n)
		}
		return out
	}
	for i := range out {
		out[i] /= sum
	}
	return out
}

// solveTangency solves Σ_act · z = (μ_act - r_f) for the active subset.
func (a *Allocator) solveTangency(mu []float64, cov *mat.SymDense, active []int) ([]float64, error) {
	k := len(active)
	subCov := mat.NewSymDense(k, nil)
	excess := make([]float64, k)
	for i, ai := range active {
		excess[i] = mu[ai] - a.riskFreeRate
		for j := i; j < k; j++ {
			subCov.SetSym(i, j, cov.At(ai, active[j]))
		}
	}

	chol, loading, err := formulas.RegularizedCholesky(subCov)
	if err != nil {
		return nil, &OptimizationFailedError{Reason: "covariance matrix is not positive-definite: " + err.Error()}
	}
	if loading > 0 {
		a.log.Warn().Float64("diagonal_loading", loading).Msg("Regularized covariance for tangency solve")
	}

	var z mat.VecDense
	if err := chol.SolveVecTo(&z, mat.NewVecDense(k, excess)); err != nil {
		return nil, &OptimizationFailedError{Reason: "linear solve failed: " + err.Error()}
	}

	out := make([]float64, k)
	for i := 0; i < k; i++ {
		out[i] = z.AtVec(i)
	}
	return out, nil
}

// redistributeTies makes the allocation deterministic when several assets are
// numerically equivalent (same posterior return and variance): their combined
// weight is re-split proportionally to the reference weights.
func (a *Allocator) redistributeTies(weights, mu []float64, cov *mat.SymDense, refWeights []float64) {
	n := len(weights)
	assigned := make([]bool, n)
	for i := 0; i < n; i++ {
		if assigned[i] {
			continue
		}
		group := []int{i}
		for j := i + 1; j < n; j++ {
			if assigned[j] {
				continue
			}
			if math.Abs(mu[i]-mu[j]) < equivalenceTolerance &&
				math.Abs(cov.At(i, i)-cov.At(j, j)) < equivalenceTolerance {
				group = append(group, j)
			}
		}
		if len(group) < 2 {
			continue
		}

		total, refTotal := 0.0, 0.0
		for _, g := range group {
			total += weights[g]
			refTotal += refWeights[g]
			assigned[g] = true
		}
		if refTotal <= 0 {
			continue
		}
		for _, g := range group {
			weights[g] = total * refWeights[g] / refTotal
		}
	}
}

func normalize(weights []float64) {
	sum := 0.0
	for _, w := range weights {
		sum += w
	}
	if sum == 0 {
		return
	}
	for i := range weights {
		weights[i] /= sum
	}
}
