package history

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/invexis/invexis/internal/database"
)

func newTestRepo(t *testing.T, name string) *Repository {
	t.Helper()
	db, err := database.New(database.Config{
		Path:    "file:" + name + "?mode=memory&cache=shared",
		Profile: database.ProfileStandard,
		Name:    "history",
	})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, db.InitSchema(Schema))
	return NewRepository(db.Conn(), zerolog.Nop())
}

func somePrices() []DailyPrice {
	vol := int64(1000)
	return []DailyPrice{
		{Date: "2026-01-02", Open: 99, High: 102, Low: 98, Close: 100, Volume: &vol},
		{Date: "2026-01-03", Open: 100, High: 104, Low: 100, Close: 103},
		{Date: "2026-01-06", Open: 103, High: 103, Low: 101, Close: 102},
	}
}

func TestUpsertAndGetDailyPrices(t *testing.T) {
	repo := newTestRepo(t, "history_upsert_test")

	require.NoError(t, repo.UpsertPrices("AAPL", somePrices()))

	prices, err := repo.GetDailyPrices("AAPL", 10)
	require.NoError(t, err)
	require.Len(t, prices, 3)

	// Ascending date order.
	assert.Equal(t, "2026-01-02", prices[0].Date)
	assert.Equal(t, "2026-01-06", prices[2].Date)
	require.NotNil(t, prices[0].Volume)
	assert.Equal(t, int64(1000), *prices[0].Volume)
	assert.Nil(t, prices[1].Volume)
}

func TestUpsertReplacesSameDate(t *testing.T) {
	repo := newTestRepo(t, "history_replace_test")

	require.NoError(t, repo.UpsertPrices("AAPL", somePrices()))
	require.NoError(t, repo.UpsertPrices("AAPL", []DailyPrice{
		{Date: "2026-01-06", Open: 103, High: 105, Low: 101, Close: 104.5},
	}))

	prices, err := repo.GetDailyPrices("AAPL", 10)
	require.NoError(t, err)
	require.Len(t, prices, 3, "same date must replace, not duplicate")
	assert.Equal(t, 104.5, prices[2].Close)
}

func TestGetDailyPricesLimitKeepsMostRecent(t *testing.T) {
	repo := newTestRepo(t, "history_limit_test")
	require.NoError(t, repo.UpsertPrices("AAPL", somePrices()))

	prices, err := repo.GetDailyPrices("AAPL", 2)
	require.NoError(t, err)
	require.Len(t, prices, 2)
	assert.Equal(t, "2026-01-03", prices[0].Date, "limit drops the oldest bars")
	assert.Equal(t, "2026-01-06", prices[1].Date)
}

func TestLatestDateAndSymbols(t *testing.T) {
	repo := newTestRepo(t, "history_latest_test")

	latest, err := repo.LatestDate("AAPL")
	require.NoError(t, err)
	assert.Equal(t, "", latest, "unknown symbol has no latest date")

	require.NoError(t, repo.UpsertPrices("AAPL", somePrices()))
	require.NoError(t, repo.UpsertPrices("MSFT", somePrices()[:1]))

	latest, err = repo.LatestDate("AAPL")
	require.NoError(t, err)
	assert.Equal(t, "2026-01-06", latest)

	symbols, err := repo.Symbols()
	require.NoError(t, err)
	assert.Equal(t, []string{"AAPL", "MSFT"}, symbols)
}

func TestDeleteSymbol(t *testing.T) {
	repo := newTestRepo(t, "history_delete_test")
	require.NoError(t, repo.UpsertPrices("AAPL", somePrices()))

	require.NoError(t, repo.DeleteSymbol("AAPL"))
	prices, err := repo.GetDailyPrices("AAPL", 10)
	require.NoError(t, err)
	assert.Empty(t, prices)
}
