// Package simulation implements correlated Monte Carlo forecasting of
// portfolio value paths and the risk statistics derived from them.
package simulation

import "fmt"

// Request describes one Monte Carlo run. Weights are keyed by symbol and must
// sum to 1 within the engine tolerance (validated by the caller that owns the
// tolerance configuration). A nil Seed means "use the engine default".
type Request struct {
	Symbols      []string
	Weights      map[string]float64
	InitialValue float64
	HorizonDays  int
	PathCount    int
	Seed         *int64
}

// Stats holds the risk/performance statistics of a simulated portfolio.
// ExpectedReturn and StandardDeviation are annualized fractions; field names
// match the wire format consumed by the UI layer.
type Stats struct {
	ExpectedReturn    float64 `json:"expectedReturn"`
	StandardDeviation float64 `json:"standardDeviation"`
	SharpeRatio       float64 `json:"sharpeRatio"`
	MaxDrawdown       float64 `json:"maxDrawdown"`
	RiskCategory      string  `json:"riskCategory"`
}

// Result is published only after every path has completed: an aborted run
// returns an error, never a partially filled Result.
type Result struct {
	MeanPath    []float64 // length HorizonDays+1, MeanPath[0] == InitialValue
	FinalValues []float64 // length PathCount, terminal value per path
	Stats       Stats

	// Degraded is set when the covariance matrix needed diagonal loading
	// before Cholesky factorization. Non-fatal; surfaced to the caller.
	Degraded bool
}

// InvalidWeightsError indicates caller-supplied weights that do not sum to 1
// within tolerance.
type InvalidWeightsError struct {
	Sum       float64
	Tolerance float64
}

func (e *InvalidWeightsError) Error() string {
	return fmt.Sprintf("weights sum to %.6f, must be within %.4g of 1.0", e.Sum, e.Tolerance)
}

// InvalidSimulationParametersError indicates a non-positive horizon, path
// count or initial value.
type InvalidSimulationParametersError struct {
	Field string
	Value float64
}

func (e *InvalidSimulationParametersError) Error() string {
	return fmt.Sprintf("invalid simulation parameter %s=%g: must be positive", e.Field, e.Value)
}
