package yahoo

import "encoding/json"

// Bar is one daily OHLCV observation. Date is YYYY-MM-DD.
type Bar struct {
	Date   string  `json:"date"`
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume int64   `json:"volume"`
}

// Quote is a point-in-time snapshot for a symbol. Numeric fields are pointers
// because the provider omits them outside trading hours or for thin symbols;
// nil means "not available", never zero.
type Quote struct {
	Symbol        string
	Name          string
	Currency      string
	Price         *float64
	PreviousClose *float64
	Change        *float64
	ChangePercent *float64
	KeyRatios     KeyRatios
}

// KeyRatios carries the handful of fundamentals the UI shows next to a quote.
// The chart endpoint does not provide them, so they stay nil unless a richer
// provider fills them in.
type KeyRatios struct {
	MarketCap     *float64
	PERatio       *float64
	DividendYield *float64
}

// MarshalJSON renders missing numeric fields as the literal "N/A" the UI
// expects. The placeholder exists only on the wire; internally absence is nil.
func (q Quote) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]interface{}{
		"symbol":            q.Symbol,
		"name":              q.Name,
		"currency":          q.Currency,
		"price":             numberOrNA(q.Price),
		"previousClose":     numberOrNA(q.PreviousClose),
		"change":            numberOrNA(q.Change),
		"changesPercentage": numberOrNA(q.ChangePercent),
		"keyRatios": map[string]interface{}{
			"marketCap":     numberOrNA(q.KeyRatios.MarketCap),
			"peRatio":       numberOrNA(q.KeyRatios.PERatio),
			"dividendYield": numberOrNA(q.KeyRatios.DividendYield),
		},
	})
}

func numberOrNA(v *float64) interface{} {
	if v == nil {
		return "N/A"
	}
	return *v
}

// SearchResult is one match from the symbol search endpoint.
type SearchResult struct {
	Symbol   string `json:"symbol"`
	Name     string `json:"name"`
	Exchange string `json:"exchange"`
	Type     string `json:"type"`
}
