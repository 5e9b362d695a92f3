package yahoo

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const chartPayload = `{
	"chart": {
		"result": [{
			"meta": {
				"symbol": "AAPL",
				"currency": "USD",
				"longName": "Apple Inc.",
				"regularMarketPrice": 195.5,
				"chartPreviousClose": 190.0
			},
			"timestamp": [1767340800, 1767427200, 1767513600],
			"indicators": {
				"quote": [{
					"open":   [100.0, 101.0, null],
					"high":   [102.0, 103.0, null],
					"low":    [99.0, 100.0, null],
					"close":  [101.0, 102.5, null],
					"volume": [1000, 2000, null]
				}]
			}
		}],
		"error": null
	}
}`

func TestDailyHistorySkipsMissingCloses(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, "/v8/finance/chart/AAPL")
		w.Write([]byte(chartPayload))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, zerolog.Nop())
	bars, err := client.DailyHistory(context.Background(), "AAPL", "1y")
	require.NoError(t, err)

	// Third timestamp has a null close and is dropped, not zero-filled.
	require.Len(t, bars, 2)
	assert.Equal(t, 101.0, bars[0].Close)
	assert.Equal(t, 102.5, bars[1].Close)
	assert.Equal(t, int64(1000), bars[0].Volume)
	assert.Regexp(t, `^\d{4}-\d{2}-\d{2}$`, bars[0].Date)
}

func TestDailyHistoryProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found"}}}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, zerolog.Nop())
	_, err := client.DailyHistory(context.Background(), "NOPE", "1y")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "No data found")
}

func TestGetQuoteComputesChange(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(chartPayload))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, zerolog.Nop())
	quote, err := client.GetQuote(context.Background(), "AAPL")
	require.NoError(t, err)

	require.NotNil(t, quote.Price)
	assert.Equal(t, 195.5, *quote.Price)
	require.NotNil(t, quote.Change)
	assert.InDelta(t, 5.5, *quote.Change, 1e-9)
	require.NotNil(t, quote.ChangePercent)
	assert.InDelta(t, 5.5/190.0*100, *quote.ChangePercent, 1e-9)
}

func TestQuoteMarshalsMissingFieldsAsNA(t *testing.T) {
	quote := Quote{Symbol: "THIN", Name: "Thin Corp"}

	data, err := json.Marshal(quote)
	require.NoError(t, err)

	var wire map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &wire))

	assert.Equal(t, "N/A", wire["price"])
	assert.Equal(t, "N/A", wire["change"])
	assert.Equal(t, "N/A", wire["changesPercentage"])
	assert.Equal(t, "THIN", wire["symbol"])

	ratios, ok := wire["keyRatios"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "N/A", ratios["peRatio"])

	price := 10.5
	quote.Price = &price
	data, err = json.Marshal(quote)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &wire))
	assert.Equal(t, 10.5, wire["price"])
}

func TestGetJSONRetriesOnceOnServerError(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(chartPayload))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, zerolog.Nop())
	bars, err := client.DailyHistory(context.Background(), "AAPL", "1y")
	require.NoError(t, err)
	assert.Len(t, bars, 2)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestGetJSONDoesNotRetryClientErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, zerolog.Nop())
	_, err := client.DailyHistory(context.Background(), "AAPL", "1y")
	require.Error(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls), "4xx must not be retried")
}

func TestSearch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "apple", r.URL.Query().Get("q"))
		w.Write([]byte(`{"quotes":[
			{"symbol":"AAPL","shortname":"Apple","longname":"Apple Inc.","exchange":"NMS","quoteType":"EQUITY"},
			{"symbol":"APLE","shortname":"Apple Hospitality","longname":"","exchange":"NYQ","quoteType":"EQUITY"}
		]}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, zerolog.Nop())
	results, err := client.Search(context.Background(), "apple")
	require.NoError(t, err)

	require.Len(t, results, 2)
	assert.Equal(t, "Apple Inc.", results[0].Name)
	assert.Equal(t, "Apple Hospitality", results[1].Name, "short name fallback when long name is empty")
}
