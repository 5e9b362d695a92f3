package history

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/invexis/invexis/internal/clients/yahoo"
)

// fakeProvider serves canned bars and records requested ranges.
type fakeProvider struct {
	bars   map[string][]yahoo.Bar
	ranges []string
}

func (f *fakeProvider) DailyHistory(_ context.Context, symbol, chartRange string) ([]yahoo.Bar, error) {
	f.ranges = append(f.ranges, chartRange)
	return f.bars[symbol], nil
}

func freshBars(n int, start float64) []yahoo.Bar {
	bars := make([]yahoo.Bar, n)
	// End the series today so the cache reads as fresh.
	day := time.Now().UTC().AddDate(0, 0, -n+1)
	price := start
	for i := 0; i < n; i++ {
		price *= 1.001
		bars[i] = yahoo.Bar{
			Date:  day.Format("2006-01-02"),
			Open:  price * 0.99,
			High:  price * 1.01,
			Low:   price * 0.98,
			Close: price,
		}
		day = day.AddDate(0, 0, 1)
	}
	return bars
}

func newTestService(t *testing.T, name string) (*Service, *fakeProvider) {
	t.Helper()
	repo := newTestRepo(t, name)
	provider := &fakeProvider{bars: map[string][]yahoo.Bar{
		"AAPL": freshBars(30, 100),
		"MSFT": freshBars(30, 300),
	}}
	return NewService(repo, provider, zerolog.Nop()), provider
}

func TestHistoryFetchesOnCacheMiss(t *testing.T) {
	svc, provider := newTestService(t, "service_miss_test")

	prices, err := svc.History(context.Background(), "AAPL", 20)
	require.NoError(t, err)
	assert.Len(t, prices, 20)
	require.Len(t, provider.ranges, 1)
	assert.Equal(t, "2y", provider.ranges[0], "empty cache pulls the full range")

	// Second call is served from the cache.
	_, err = svc.History(context.Background(), "AAPL", 20)
	require.NoError(t, err)
	assert.Len(t, provider.ranges, 1, "fresh cache must not hit the provider again")
}

func TestHistoryComputesChangePercent(t *testing.T) {
	svc, _ := newTestService(t, "service_change_test")

	prices, err := svc.History(context.Background(), "AAPL", 5)
	require.NoError(t, err)
	require.Len(t, prices, 5)

	assert.Nil(t, prices[0].ChangePercent, "first bar has no previous close")
	for _, p := range prices[1:] {
		require.NotNil(t, p.ChangePercent)
		assert.InDelta(t, 0.1, *p.ChangePercent, 1e-6, "synthetic series moves 0.1% daily")
	}
}

func TestAlignedSeriesFeedsTheEngine(t *testing.T) {
	svc, _ := newTestService(t, "service_aligned_test")

	series, err := svc.AlignedSeries(context.Background(), []string{"AAPL", "MSFT"}, 25)
	require.NoError(t, err)
	require.Len(t, series, 2)

	assert.Equal(t, "AAPL", series[0].Symbol)
	assert.Len(t, series[0].Closes, 25)
	assert.Len(t, series[0].Dates, 25)
	assert.Equal(t, len(series[1].Closes), len(series[1].Dates))
}
