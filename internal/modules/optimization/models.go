// Package optimization implements the statistical core of the portfolio
// engine: returns and covariance estimation, the Black-Litterman blend of
// market-implied and investor views, and tangency-portfolio allocation.
package optimization

import (
	"gonum.org/v1/gonum/mat"
)

// PriceSeries is an ordered-by-date close series for one symbol. Dates use
// YYYY-MM-DD. Series from different symbols are aligned by date intersection
// before estimation.
type PriceSeries struct {
	Symbol string
	Dates  []string
	Closes []float64
}

// ReturnsEstimate holds per-symbol daily log-return statistics and their
// annualized forms. Matrices are ordered to match Symbols.
type ReturnsEstimate struct {
	Symbols     []string
	MeanDaily   []float64
	MeanAnnual  []float64
	CovDaily    *mat.SymDense
	CovAnnual   *mat.SymDense
	AlignedDays int

	// Degraded is set when fewer aligned days than the recommended minimum
	// were available. The estimate is still usable, just noisy.
	Degraded bool
}

// ViewType distinguishes absolute views on one symbol from relative
// outperformance views between two symbols.
type ViewType string

const (
	ViewAbsolute ViewType = "absolute"
	ViewRelative ViewType = "relative"
)

// View represents a single investor assertion for the Black-Litterman blend.
type View struct {
	Type       ViewType
	Symbol     string  // absolute views
	Symbol1    string  // relative views (outperformer)
	Symbol2    string  // relative views (underperformer)
	Return     float64 // expected annualized excess return or outperformance
	Confidence float64 // (0, 1]
}

// ViewSet is the possibly-empty collection of investor views. With no views
// the posterior collapses exactly to the equilibrium prior.
type ViewSet []View

// Posterior holds the Black-Litterman posterior estimates (annualized).
type Posterior struct {
	Returns []float64
	Cov     *mat.SymDense

	// Degraded is set when diagonal regularization had to be applied to
	// invert a numerically singular matrix.
	Degraded bool
}

// Result is the immutable outcome of one optimization run over a symbol set.
type Result struct {
	Symbols          []string
	PosteriorReturns []float64     // annualized
	PosteriorCov     *mat.SymDense // annualized
	OptimalWeights   map[string]float64
	AlignedDays      int
	Degraded         bool
}
