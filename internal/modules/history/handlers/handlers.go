// Package handlers provides HTTP handlers for market data operations:
// price history with indicator overlays, quotes and symbol search.
package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/invexis/invexis/internal/clients/yahoo"
	"github.com/invexis/invexis/internal/modules/history"
	"github.com/invexis/invexis/pkg/formulas"
)

// periodDays maps the UI period selector onto a bar count.
var periodDays = map[string]int{
	"1mo": 21,
	"3mo": 63,
	"6mo": 126,
	"1y":  252,
	"2y":  504,
}

// popularSymbols is the search fallback when the provider returns nothing.
var popularSymbols = []yahoo.SearchResult{
	{Symbol: "AAPL", Name: "Apple Inc.", Exchange: "NMS", Type: "EQUITY"},
	{Symbol: "MSFT", Name: "Microsoft Corporation", Exchange: "NMS", Type: "EQUITY"},
	{Symbol: "GOOGL", Name: "Alphabet Inc.", Exchange: "NMS", Type: "EQUITY"},
	{Symbol: "AMZN", Name: "Amazon.com, Inc.", Exchange: "NMS", Type: "EQUITY"},
	{Symbol: "NVDA", Name: "NVIDIA Corporation", Exchange: "NMS", Type: "EQUITY"},
	{Symbol: "SPY", Name: "SPDR S&P 500 ETF Trust", Exchange: "PCX", Type: "ETF"},
}

// Handler handles market data HTTP requests
type Handler struct {
	service *history.Service
	client  *yahoo.Client
	log     zerolog.Logger
}

// NewHandler creates a new market data handler
func NewHandler(service *history.Service, client *yahoo.Client, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		client:  client,
		log:     log.With().Str("handler", "market_data").Logger(),
	}
}

// HandleHistory handles GET /api/stock/{symbol}/history?period=
func (h *Handler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	symbol := strings.ToUpper(chi.URLParam(r, "symbol"))

	period := r.URL.Query().Get("period")
	if period == "" {
		period = "1y"
	}
	days, ok := periodDays[period]
	if !ok {
		h.writeError(w, http.StatusBadRequest, "unknown period: "+period)
		return
	}

	prices, err := h.service.History(r.Context(), symbol, days)
	if err != nil {
		h.log.Error().Err(err).Str("symbol", symbol).Msg("Failed to load history")
		h.writeError(w, http.StatusBadGateway, "failed to load history for "+symbol)
		return
	}
	if len(prices) == 0 {
		h.writeError(w, http.StatusNotFound, "no history for "+symbol)
		return
	}

	closes := make([]float64, len(prices))
	for i, p := range prices {
		closes[i] = p.Close
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"symbol":     symbol,
		"period":     period,
		"prices":     prices,
		"indicators": buildIndicators(closes),
	})
}

// HandleQuote handles GET /api/stock/{symbol}/quote
func (h *Handler) HandleQuote(w http.ResponseWriter, r *http.Request) {
	symbol := strings.ToUpper(chi.URLParam(r, "symbol"))

	quote, err := h.client.GetQuote(r.Context(), symbol)
	if err != nil {
		h.log.Error().Err(err).Str("symbol", symbol).Msg("Failed to fetch quote")
		h.writeError(w, http.StatusBadGateway, "failed to fetch quote for "+symbol)
		return
	}
	h.writeJSON(w, http.StatusOK, quote)
}

// HandleSearch handles GET /api/search_stocks?query=
func (h *Handler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("query"))
	if query == "" {
		h.writeJSON(w, http.StatusOK, map[string]interface{}{"results": popularSymbols})
		return
	}

	results, err := h.client.Search(r.Context(), query)
	if err != nil || len(results) == 0 {
		if err != nil {
			h.log.Warn().Err(err).Str("query", query).Msg("Search failed, serving fallback")
		}
		h.writeJSON(w, http.StatusOK, map[string]interface{}{"results": popularSymbols})
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"results": results})
}

// buildIndicators computes the overlay series when enough bars exist for the
// longest warm-up. go-talib zero-fills warm-up entries; those become nulls.
func buildIndicators(closes []float64) history.Indicators {
	var ind history.Indicators
	if len(closes) >= 20 {
		ind.SMA20 = nullifyWarmup(formulas.SMASeries(closes, 20), 19)
	}
	if len(closes) >= 50 {
		ind.SMA50 = nullifyWarmup(formulas.SMASeries(closes, 50), 49)
	}
	if len(closes) >= 15 {
		ind.RSI14 = nullifyWarmup(formulas.RSISeries(closes, 14), 14)
	}
	return ind
}

func nullifyWarmup(values []float64, warmup int) []*float64 {
	out := make([]*float64, len(values))
	for i := range values {
		if i < warmup {
			continue
		}
		v := values[i]
		out[i] = &v
	}
	return out
}

// writeJSON writes a JSON response
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, msg string) {
	h.writeJSON(w, status, map[string]string{"error": msg})
}
