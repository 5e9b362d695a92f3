package simulation

import (
	"math"

	"github.com/invexis/invexis/pkg/formulas"
)

// sharpeZeroTolerance bounds the annualized spread below which the Sharpe
// ratio is defined as 0. Identical terminal values can leave a residue on the
// order of 1e-17 through the mean subtraction; any real portfolio spread is
// many orders of magnitude above this.
const sharpeZeroTolerance = 1e-9

// RiskThresholds classify a portfolio by annualized standard deviation.
type RiskThresholds struct {
	ConservativeBelow float64
	ModerateBelow     float64
}

// Classify returns the category label for an annualized standard deviation.
// Boundaries belong to the next category up: sd exactly at ConservativeBelow
// is Moderate, sd exactly at ModerateBelow is Aggressive.
func (t RiskThresholds) Classify(stdDev float64) string {
	switch {
	case stdDev < t.ConservativeBelow:
		return "Conservative"
	case stdDev < t.ModerateBelow:
		return "Moderate"
	default:
		return "Aggressive"
	}
}

// ComputeStats derives the risk statistics from a finished simulation.
//
// Per-path total returns final/initial − 1 are annualized linearly by
// 252/horizon; their sample standard deviation is scaled by sqrt(252/horizon).
// Max drawdown is measured on the mean path. A vanishing standard deviation
// (single path, identical finals, zero-variance input) yields a Sharpe ratio
// of 0 rather than a division blowup.
func ComputeStats(finalValues, meanPath []float64, initialValue float64, horizonDays int, riskFreeRate float64, thresholds RiskThresholds) Stats {
	annualFactor := formulas.TradingDaysPerYear / float64(horizonDays)

	totals := make([]float64, len(finalValues))
	for i, v := range finalValues {
		totals[i] = v/initialValue - 1
	}

	expected := formulas.Mean(totals) * annualFactor
	stdDev := formulas.StdDev(totals) * math.Sqrt(annualFactor)

	sharpe := 0.0
	if stdDev > sharpeZeroTolerance {
		sharpe = (expected - riskFreeRate) / stdDev
	}

	return Stats{
		ExpectedReturn:    expected,
		StandardDeviation: stdDev,
		SharpeRatio:       sharpe,
		MaxDrawdown:       formulas.MaxDrawdown(meanPath),
		RiskCategory:      thresholds.Classify(stdDev),
	}
}
