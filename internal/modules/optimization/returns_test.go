package optimization

import (
	"math"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/invexis/invexis/pkg/formulas"
)

func makeSeries(symbol string, dates []string, closes []float64) PriceSeries {
	return PriceSeries{Symbol: symbol, Dates: dates, Closes: closes}
}

func TestEstimateRejectsNonPositivePrices(t *testing.T) {
	est := NewReturnsEstimator(20, zerolog.Nop())

	_, err := est.Estimate([]PriceSeries{
		makeSeries("AAPL", []string{"2026-01-02", "2026-01-03"}, []float64{100, 0}),
	})

	var priceErr *InvalidPriceError
	require.ErrorAs(t, err, &priceErr)
	assert.Equal(t, "AAPL", priceErr.Symbol)
	assert.Equal(t, "2026-01-03", priceErr.Date)
}

func TestEstimateRequiresTwoAlignedDays(t *testing.T) {
	est := NewReturnsEstimator(20, zerolog.Nop())

	// Disjoint dates: zero common days.
	_, err := est.Estimate([]PriceSeries{
		makeSeries("AAA", []string{"2026-01-02", "2026-01-03"}, []float64{100, 101}),
		makeSeries("BBB", []string{"2026-01-04", "2026-01-05"}, []float64{50, 51}),
	})

	var dataErr *InsufficientDataError
	require.ErrorAs(t, err, &dataErr)
	assert.Equal(t, 0, dataErr.AlignedDays)
	assert.Equal(t, MinAlignedDays, dataErr.Required)
}

func TestEstimateAlignsByDateIntersection(t *testing.T) {
	est := NewReturnsEstimator(2, zerolog.Nop())

	// BBB is missing 2026-01-03, so only two common days remain and each
	// series contributes exactly one return over 01-02 -> 01-06.
	result, err := est.Estimate([]PriceSeries{
		makeSeries("AAA", []string{"2026-01-02", "2026-01-03", "2026-01-06"}, []float64{100, 102, 110}),
		makeSeries("BBB", []string{"2026-01-02", "2026-01-06"}, []float64{50, 55}),
	})
	require.NoError(t, err)

	assert.Equal(t, 2, result.AlignedDays)
	assert.InDelta(t, math.Log(110.0/100.0), result.MeanDaily[0], 1e-12)
	assert.InDelta(t, math.Log(55.0/50.0), result.MeanDaily[1], 1e-12)
}

func TestEstimateAnnualizes(t *testing.T) {
	est := NewReturnsEstimator(2, zerolog.Nop())

	dates := []string{"2026-01-02", "2026-01-03", "2026-01-04", "2026-01-05"}
	result, err := est.Estimate([]PriceSeries{
		makeSeries("AAA", dates, []float64{100, 101, 103, 102}),
		makeSeries("BBB", dates, []float64{50, 49, 51, 52}),
	})
	require.NoError(t, err)

	assert.InDelta(t, result.MeanDaily[0]*formulas.TradingDaysPerYear, result.MeanAnnual[0], 1e-12)
	assert.InDelta(t, result.CovDaily.At(0, 1)*formulas.TradingDaysPerYear, result.CovAnnual.At(0, 1), 1e-12)
	assert.InDelta(t, result.CovDaily.At(1, 1)*formulas.TradingDaysPerYear, result.CovAnnual.At(1, 1), 1e-12)
}

func TestEstimateFlagsShortHistoryDegraded(t *testing.T) {
	est := NewReturnsEstimator(20, zerolog.Nop())

	dates := []string{"2026-01-02", "2026-01-03", "2026-01-04"}
	result, err := est.Estimate([]PriceSeries{
		makeSeries("AAA", dates, []float64{100, 101, 99}),
	})
	require.NoError(t, err)
	assert.True(t, result.Degraded, "3 aligned days is below the 20-day recommendation")

	longDates, longCloses := syntheticSeries(30, 100.0)
	result, err = est.Estimate([]PriceSeries{makeSeries("AAA", longDates, longCloses)})
	require.NoError(t, err)
	assert.False(t, result.Degraded)
}

// syntheticSeries generates n consecutive dates with alternating up/down moves.
func syntheticSeries(n int, start float64) ([]string, []float64) {
	dates := make([]string, n)
	closes := make([]float64, n)
	day := time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)
	price := start
	for i := 0; i < n; i++ {
		dates[i] = day.Format("2006-01-02")
		if i%2 == 0 {
			price *= 1.01
		} else {
			price *= 0.995
		}
		closes[i] = price
		day = day.AddDate(0, 0, 1)
	}
	return dates, closes
}
