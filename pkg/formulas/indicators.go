package formulas

import (
	"github.com/markcheno/go-talib"
)

// SMASeries calculates a simple moving average over closing prices.
// Entries before the window has filled are zero, matching talib semantics.
func SMASeries(closes []float64, length int) []float64 {
	if len(closes) < length || length <= 0 {
		return nil
	}
	return talib.Sma(closes, length)
}

// RSISeries calculates the Relative Strength Index series.
//
// RSI Formula:
//
//	RSI = 100 - (100 / (1 + RS))
//	where RS = Average Gain / Average Loss over N periods
func RSISeries(closes []float64, length int) []float64 {
	if len(closes) < length+1 || length <= 0 {
		return nil
	}
	return talib.Rsi(closes, length)
}

// CurrentRSI returns the latest RSI value, or nil if there is not enough data.
func CurrentRSI(closes []float64, length int) *float64 {
	rsi := RSISeries(closes, length)
	if len(rsi) == 0 {
		return nil
	}
	last := rsi[len(rsi)-1]
	if isNaN(last) {
		return nil
	}
	return &last
}

func isNaN(f float64) bool {
	return f != f
}
