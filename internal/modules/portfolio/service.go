package portfolio

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/rs/zerolog"

	"github.com/invexis/invexis/internal/config"
	"github.com/invexis/invexis/internal/modules/optimization"
	"github.com/invexis/invexis/internal/modules/simulation"
)

// MarketData supplies aligned historical close series for the engine. The
// history module implements it; tests substitute fixtures.
type MarketData interface {
	AlignedSeries(ctx context.Context, symbols []string, lookbackDays int) ([]optimization.PriceSeries, error)
}

// Service implements the two engine operations. It holds no per-request
// state: every outcome is derived from the request and the price history, so
// concurrent calls never interfere.
type Service struct {
	optimizer *optimization.Service
	simulator *simulation.Simulator
	market    MarketData
	params    config.EngineParams
	log       zerolog.Logger
}

// NewService wires the engine facade.
func NewService(optimizer *optimization.Service, simulator *simulation.Simulator, market MarketData, params config.EngineParams, log zerolog.Logger) *Service {
	return &Service{
		optimizer: optimizer,
		simulator: simulator,
		market:    market,
		params:    params,
		log:       log.With().Str("component", "portfolio_service").Logger(),
	}
}

// Initialize runs the optimization pipeline for a symbol universe and returns
// the optimal weights with latest prices and an illustrative path per symbol.
func (s *Service) Initialize(ctx context.Context, req InitializeRequest) (*InitializeResponse, error) {
	if len(req.Symbols) == 0 {
		return nil, fmt.Errorf("no symbols provided")
	}
	symbols := normalizeSymbols(req.Symbols)

	series, err := s.market.AlignedSeries(ctx, symbols, s.params.LookbackDays)
	if err != nil {
		return nil, err
	}

	result, err := s.optimizer.Optimize(series, toViewSet(req.Views))
	if err != nil {
		return nil, err
	}

	estimate, err := s.optimizer.Estimate(series)
	if err != nil {
		return nil, err
	}

	prices := make(map[string]float64, len(series))
	paths := make(map[string][]float64, len(series))
	for i, ps := range series {
		last := ps.Closes[len(ps.Closes)-1]
		prices[ps.Symbol] = last
		paths[ps.Symbol] = s.simulator.SamplePath(
			last,
			estimate.MeanAnnual[i],
			estimate.CovAnnual.At(i, i),
			s.params.HorizonDays,
			s.params.DefaultSeed+int64(i),
		)
	}

	return &InitializeResponse{
		Symbols:               symbols,
		OptimalWeights:        result.OptimalWeights,
		SampleIndividualPaths: paths,
		CurrentPrices:         prices,
		Degraded:              result.Degraded,
	}, nil
}

// Simulate forecasts the portfolio described by req. Weights are validated
// here, then the universe is re-estimated so the simulation uses the same
// posterior statistics the allocator saw.
func (s *Service) Simulate(ctx context.Context, req SimulateRequest) (*SimulateResponse, error) {
	symbols, err := s.validateWeights(req.Weights)
	if err != nil {
		return nil, err
	}
	s.applyDefaults(&req)

	series, err := s.market.AlignedSeries(ctx, symbols, s.params.LookbackDays)
	if err != nil {
		return nil, err
	}

	result, err := s.optimizer.Optimize(series, toViewSet(req.Views))
	if err != nil {
		return nil, err
	}

	simResult, err := s.simulator.Run(ctx, simulation.Request{
		Symbols:      result.Symbols,
		Weights:      req.Weights,
		InitialValue: req.InitialValue,
		HorizonDays:  req.HorizonDays,
		PathCount:    req.PathCount,
		Seed:         req.Seed,
	}, result.PosteriorReturns, result.PosteriorCov)
	if err != nil {
		return nil, err
	}

	stats := simulation.ComputeStats(
		simResult.FinalValues,
		simResult.MeanPath,
		req.InitialValue,
		req.HorizonDays,
		s.params.RiskFreeRate,
		simulation.RiskThresholds{
			ConservativeBelow: s.params.ConservativeBelow,
			ModerateBelow:     s.params.ModerateBelow,
		},
	)

	s.log.Info().
		Strs("symbols", symbols).
		Int("paths", req.PathCount).
		Int("horizon_days", req.HorizonDays).
		Str("risk_category", stats.RiskCategory).
		Msg("Simulation complete")

	return &SimulateResponse{
		SimulatedPortfolioValues:      simResult.MeanPath,
		SimulatedPortfolioFinalValues: simResult.FinalValues,
		PortfolioStats: PortfolioStats{
			Stats:          stats,
			OptimalWeights: result.OptimalWeights,
		},
		Degraded: result.Degraded || simResult.Degraded,
	}, nil
}

// validateWeights checks the sum-to-one constraint and returns the symbol
// universe in deterministic order. A deviation of exactly the tolerance is
// rejected; anything strictly inside it is accepted.
func (s *Service) validateWeights(weights map[string]float64) ([]string, error) {
	if len(weights) == 0 {
		return nil, &simulation.InvalidWeightsError{Sum: 0, Tolerance: s.params.WeightTolerance}
	}
	sum := 0.0
	symbols := make([]string, 0, len(weights))
	for sym, w := range weights {
		sum += w
		symbols = append(symbols, sym)
	}
	if math.Abs(sum-1.0) >= s.params.WeightTolerance {
		return nil, &simulation.InvalidWeightsError{Sum: sum, Tolerance: s.params.WeightTolerance}
	}
	sort.Strings(symbols)
	return symbols, nil
}

func (s *Service) applyDefaults(req *SimulateRequest) {
	if req.InitialValue == 0 {
		req.InitialValue = 100000
	}
	if req.HorizonDays == 0 {
		req.HorizonDays = s.params.HorizonDays
	}
	if req.PathCount == 0 {
		req.PathCount = s.params.PathCount
	}
}

func normalizeSymbols(symbols []string) []string {
	out := make([]string, 0, len(symbols))
	seen := make(map[string]bool, len(symbols))
	for _, sym := range symbols {
		if sym == "" || seen[sym] {
			continue
		}
		seen[sym] = true
		out = append(out, sym)
	}
	sort.Strings(out)
	return out
}
