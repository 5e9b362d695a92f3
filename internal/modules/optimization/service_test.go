package optimization

import (
	"math"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/invexis/invexis/internal/config"
	"github.com/invexis/invexis/internal/database"
)

func testEngineParams() config.EngineParams {
	params := config.DefaultEngineParams()
	params.MinStableDays = 2
	return params
}

func testSeries(t *testing.T) []PriceSeries {
	t.Helper()
	datesA, closesA := syntheticSeries(60, 100.0)
	datesB, closesB := syntheticSeriesDown(60, 80.0)
	return []PriceSeries{
		{Symbol: "AAA", Dates: datesA, Closes: closesA},
		{Symbol: "BBB", Dates: datesB, Closes: closesB},
	}
}

// syntheticSeriesDown mirrors syntheticSeries with a weaker drift so the two
// assets are never numerically equivalent.
func syntheticSeriesDown(n int, start float64) ([]string, []float64) {
	dates := make([]string, n)
	closes := make([]float64, n)
	day := time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)
	price := start
	for i := 0; i < n; i++ {
		dates[i] = day.Format("2006-01-02")
		if i%3 == 0 {
			price *= 1.008
		} else {
			price *= 0.999
		}
		closes[i] = price
		day = day.AddDate(0, 0, 1)
	}
	return dates, closes
}

func TestOptimizeIsDeterministic(t *testing.T) {
	svc := NewService(testEngineParams(), nil, zerolog.Nop())
	series := testSeries(t)

	first, err := svc.Optimize(series, nil)
	require.NoError(t, err)

	sum := 0.0
	for _, w := range first.OptimalWeights {
		assert.GreaterOrEqual(t, w, 0.0)
		sum += w
	}
	assert.InDelta(t, 1.0, sum, 1e-6)

	for i := 0; i < 5; i++ {
		again, err := svc.Optimize(series, nil)
		require.NoError(t, err)
		assert.Equal(t, first.OptimalWeights, again.OptimalWeights)
		assert.Equal(t, first.PosteriorReturns, again.PosteriorReturns)
	}
}

func TestOptimizeLowVolatilityUniverse(t *testing.T) {
	svc := NewService(testEngineParams(), nil, zerolog.Nop())

	// Daily log returns cycling through ±0.1%/0.2% keep the implied
	// equilibrium returns far below the risk-free rate.
	cycle := []float64{0.001, -0.001, 0.002}
	symbols := []string{"AAA", "BBB"}
	series := make([]PriceSeries, len(symbols))
	for s := range series {
		dates := make([]string, 60)
		closes := make([]float64, 60)
		day := time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)
		price := 100.0 * float64(s+1)
		for i := 0; i < 60; i++ {
			price *= math.Exp(cycle[(i+s)%len(cycle)])
			dates[i] = day.Format("2006-01-02")
			closes[i] = price
			day = day.AddDate(0, 0, 1)
		}
		series[s] = PriceSeries{Symbol: symbols[s], Dates: dates, Closes: closes}
	}

	result, err := svc.Optimize(series, nil)
	require.NoError(t, err)

	sum := 0.0
	for _, w := range result.OptimalWeights {
		assert.GreaterOrEqual(t, w, 0.0)
		sum += w
	}
	assert.InDelta(t, 1.0, sum, 1e-6)
}

func TestOptimizeWithViewsChangesAllocation(t *testing.T) {
	svc := NewService(testEngineParams(), nil, zerolog.Nop())
	series := testSeries(t)

	base, err := svc.Optimize(series, nil)
	require.NoError(t, err)

	bullishBBB := ViewSet{{Type: ViewAbsolute, Symbol: "BBB", Return: 0.5, Confidence: 0.9}}
	viewed, err := svc.Optimize(series, bullishBBB)
	require.NoError(t, err)

	assert.Greater(t, viewed.OptimalWeights["BBB"], base.OptimalWeights["BBB"],
		"a strongly bullish view should tilt the allocation toward BBB")
}

func TestOptimizeUsesCache(t *testing.T) {
	db, err := database.New(database.Config{
		Path:    "file:optimize_cache_test?mode=memory&cache=shared",
		Profile: database.ProfileCache,
		Name:    "cache",
	})
	require.NoError(t, err)
	defer db.Close()

	cache, err := NewCache(db.Conn(), time.Hour, zerolog.Nop())
	require.NoError(t, err)

	svc := NewService(testEngineParams(), cache, zerolog.Nop())
	series := testSeries(t)

	first, err := svc.Optimize(series, nil)
	require.NoError(t, err)

	// Second run must be served from the cache and carry identical numbers.
	cached, err := svc.Optimize(series, nil)
	require.NoError(t, err)
	assert.Equal(t, first.OptimalWeights, cached.OptimalWeights)
	assert.Equal(t, first.AlignedDays, cached.AlignedDays)

	// Direct probe: the entry exists under the derived key.
	key := HashKey([]string{"AAA", "BBB"}, svc.fingerprint(nil))
	assert.NotNil(t, cache.Get(key))
}

func TestCacheExpiryEvicts(t *testing.T) {
	db, err := database.New(database.Config{
		Path:    "file:cache_expiry_test?mode=memory&cache=shared",
		Profile: database.ProfileCache,
		Name:    "cache",
	})
	require.NoError(t, err)
	defer db.Close()

	cache, err := NewCache(db.Conn(), -time.Second, zerolog.Nop())
	require.NoError(t, err)

	result := &Result{
		Symbols:          []string{"AAA"},
		PosteriorReturns: []float64{0.1},
		PosteriorCov:     testCov(),
		OptimalWeights:   map[string]float64{"AAA": 1},
		AlignedDays:      10,
	}
	require.NoError(t, cache.Put("k", result))

	// Negative TTL: everything is already expired.
	assert.Nil(t, cache.Get("k"))
}

func TestHashKeyIsOrderIndependent(t *testing.T) {
	a := HashKey([]string{"AAA", "BBB"}, "fp")
	b := HashKey([]string{"BBB", "AAA"}, "fp")
	assert.Equal(t, a, b)

	c := HashKey([]string{"AAA", "BBB"}, "other")
	assert.NotEqual(t, a, c)
}
