package optimization

import (
	"sort"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/rs/zerolog"

	"github.com/invexis/invexis/pkg/formulas"
)

// MinAlignedDays is the hard floor: one return needs two prices.
const MinAlignedDays = 2

// ReturnsEstimator converts raw price series into daily log returns, a mean
// return vector and a covariance matrix, annualized by the 252-day convention.
type ReturnsEstimator struct {
	minStableDays int
	log           zerolog.Logger
}

// NewReturnsEstimator creates a returns estimator. minStableDays is the
// aligned-day count below which the estimate is flagged degraded (a noisy
// covariance, not an error: small inputs are a valid pedagogical use case).
func NewReturnsEstimator(minStableDays int, log zerolog.Logger) *ReturnsEstimator {
	return &ReturnsEstimator{
		minStableDays: minStableDays,
		log:           log.With().Str("component", "returns_estimator").Logger(),
	}
}

// Estimate aligns the series on their common trading dates and computes
// per-symbol mean daily log returns and the daily covariance matrix, plus
// the annualized forms (mean × 252, covariance × 252).
func (re *ReturnsEstimator) Estimate(series []PriceSeries) (*ReturnsEstimate, error) {
	if len(series) == 0 {
		return nil, &InsufficientDataError{AlignedDays: 0, Required: MinAlignedDays}
	}

	symbols := make([]string, len(series))
	for i, s := range series {
		symbols[i] = s.Symbol
		for j, price := range s.Closes {
			if price <= 0 {
				date := ""
				if j < len(s.Dates) {
					date = s.Dates[j]
				}
				return nil, &InvalidPriceError{Symbol: s.Symbol, Date: date, Price: price}
			}
		}
	}

	aligned, dates := alignByDateIntersection(series)
	days := len(dates)
	if days < MinAlignedDays {
		return nil, &InsufficientDataError{Symbols: symbols, AlignedDays: days, Required: MinAlignedDays}
	}

	n := len(series)
	returnDays := days - 1

	// Log returns per symbol on the aligned dates.
	logReturns := make([][]float64, n)
	meanDaily := make([]float64, n)
	meanAnnual := make([]float64, n)
	for i := 0; i < n; i++ {
		logReturns[i] = formulas.LogReturns(aligned[i])
		meanDaily[i] = formulas.Mean(logReturns[i])
		meanAnnual[i] = meanDaily[i] * formulas.TradingDaysPerYear
	}

	// Observation matrix: rows are trading days, columns are symbols.
	obs := mat.NewDense(returnDays, n, nil)
	for t := 0; t < returnDays; t++ {
		for i := 0; i < n; i++ {
			obs.Set(t, i, logReturns[i][t])
		}
	}

	covDaily := mat.NewSymDense(n, nil)
	stat.CovarianceMatrix(covDaily, obs, nil)

	covAnnual := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			covAnnual.SetSym(i, j, covDaily.At(i, j)*formulas.TradingDaysPerYear)
		}
	}

	degraded := days < re.minStableDays
	if degraded {
		re.log.Warn().
			Int("aligned_days", days).
			Int("recommended", re.minStableDays).
			Strs("symbols", symbols).
			Msg("Covariance estimated from fewer days than recommended")
	}

	return &ReturnsEstimate{
		Symbols:     symbols,
		MeanDaily:   meanDaily,
		MeanAnnual:  meanAnnual,
		CovDaily:    covDaily,
		CovAnnual:   covAnnual,
		AlignedDays: days,
		Degraded:    degraded,
	}, nil
}

// alignByDateIntersection restricts every series to the dates present in all
// of them, preserving chronological order. Returns the aligned close slices
// (same order as the input series) and the sorted common dates.
func alignByDateIntersection(series []PriceSeries) ([][]float64, []string) {
	counts := make(map[string]int)
	for _, s := range series {
		seen := make(map[string]bool, len(s.Dates))
		for _, d := range s.Dates {
			if !seen[d] {
				seen[d] = true
				counts[d]++
			}
		}
	}

	common := make([]string, 0, len(counts))
	for d, c := range counts {
		if c == len(series) {
			common = append(common, d)
		}
	}
	sort.Strings(common)

	aligned := make([][]float64, len(series))
	for i, s := range series {
		byDate := make(map[string]float64, len(s.Dates))
		for j, d := range s.Dates {
			byDate[d] = s.Closes[j]
		}
		closes := make([]float64, len(common))
		for j, d := range common {
			closes[j] = byDate[d]
		}
		aligned[i] = closes
	}

	return aligned, common
}
