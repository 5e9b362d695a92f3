// Package history stores and serves daily price bars: the provider client
// fills a local sqlite cache, handlers serve it to the UI, and the engine
// reads aligned close series from it.
package history

// DailyPrice represents a daily OHLCV price point
type DailyPrice struct {
	Date          string   `json:"date"`
	Open          float64  `json:"open"`
	High          float64  `json:"high"`
	Low           float64  `json:"low"`
	Close         float64  `json:"close"`
	Volume        *int64   `json:"volume,omitempty"`
	ChangePercent *float64 `json:"changePercent,omitempty"`
}

// Indicators holds optional overlay series aligned to the price dates.
// Entries inside an indicator's warm-up window are nil, serialized as null.
type Indicators struct {
	SMA20 []*float64 `json:"sma20,omitempty"`
	SMA50 []*float64 `json:"sma50,omitempty"`
	RSI14 []*float64 `json:"rsi14,omitempty"`
}
