// Package portfolio is the engine facade: it joins market data, posterior
// estimation, allocation and Monte Carlo simulation behind the two operations
// the UI calls, and owns their wire format.
package portfolio

import (
	"github.com/invexis/invexis/internal/modules/optimization"
	"github.com/invexis/invexis/internal/modules/simulation"
)

// ViewInput is a caller-supplied Black-Litterman view.
type ViewInput struct {
	Type       string  `json:"type"` // "absolute" or "relative"
	Symbol     string  `json:"symbol,omitempty"`
	Symbol1    string  `json:"symbol1,omitempty"`
	Symbol2    string  `json:"symbol2,omitempty"`
	Return     float64 `json:"return"`
	Confidence float64 `json:"confidence"`
}

// InitializeRequest selects the asset universe and optional views.
type InitializeRequest struct {
	Symbols []string    `json:"symbols"`
	Views   []ViewInput `json:"views,omitempty"`
}

// InitializeResponse carries the optimal allocation plus per-symbol context
// for the UI: latest prices and one illustrative simulated path per symbol.
type InitializeResponse struct {
	Symbols               []string             `json:"symbols"`
	OptimalWeights        map[string]float64   `json:"optimalWeights"`
	SampleIndividualPaths map[string][]float64 `json:"sampleIndividualPaths"`
	CurrentPrices         map[string]float64   `json:"currentPrices"`
	Degraded              bool                 `json:"degraded,omitempty"`
}

// SimulateRequest describes one forecast run. Zero-valued numeric fields fall
// back to engine defaults; weights must sum to 1 within the engine tolerance.
type SimulateRequest struct {
	Weights      map[string]float64 `json:"weights"`
	InitialValue float64            `json:"initialValue,omitempty"`
	HorizonDays  int                `json:"horizonDays,omitempty"`
	PathCount    int                `json:"pathCount,omitempty"`
	Seed         *int64             `json:"seed,omitempty"`
	Views        []ViewInput        `json:"views,omitempty"`
}

// PortfolioStats is the simulation statistics block, extended with the
// optimal weights the engine would pick for the same universe.
type PortfolioStats struct {
	simulation.Stats
	OptimalWeights map[string]float64 `json:"optimalWeights"`
}

// SimulateResponse carries the mean path, the terminal value distribution and
// the derived statistics.
type SimulateResponse struct {
	SimulatedPortfolioValues      []float64      `json:"simulatedPortfolioValues"`
	SimulatedPortfolioFinalValues []float64      `json:"simulatedPortfolioFinalValues"`
	PortfolioStats                PortfolioStats `json:"portfolioStats"`
	Degraded                      bool           `json:"degraded,omitempty"`
}

func toViewSet(inputs []ViewInput) optimization.ViewSet {
	if len(inputs) == 0 {
		return nil
	}
	views := make(optimization.ViewSet, 0, len(inputs))
	for _, in := range inputs {
		views = append(views, optimization.View{
			Type:       optimization.ViewType(in.Type),
			Symbol:     in.Symbol,
			Symbol1:    in.Symbol1,
			Symbol2:    in.Symbol2,
			Return:     in.Return,
			Confidence: in.Confidence,
		})
	}
	return views
}
