package optimization

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/invexis/invexis/internal/config"
)

// Service runs the full optimization pipeline for a symbol set: returns
// estimation, equilibrium prior, Black-Litterman blend, tangency allocation.
// The pipeline is a pure computation over its inputs — identical series and
// parameters always produce an identical Result.
type Service struct {
	estimator *ReturnsEstimator
	blender   *BlackLitterman
	allocator *Allocator
	params    config.EngineParams
	cache     *Cache // optional
	log       zerolog.Logger
}

// NewService wires the pipeline from engine parameters. cache may be nil.
func NewService(params config.EngineParams, cache *Cache, log zerolog.Logger) *Service {
	return &Service{
		estimator: NewReturnsEstimator(params.MinStableDays, log),
		blender:   NewBlackLitterman(params.Tau, log),
		allocator: NewAllocator(params.RiskFreeRate, log),
		params:    params,
		cache:     cache,
		log:       log.With().Str("component", "optimization_service").Logger(),
	}
}

// Optimize runs the pipeline over aligned price series and optional views.
func (s *Service) Optimize(series []PriceSeries, views ViewSet) (*Result, error) {
	symbols := make([]string, len(series))
	for i, ps := range series {
		symbols[i] = ps.Symbol
	}
	key := HashKey(symbols, s.fingerprint(views))

	if s.cache != nil {
		if cached := s.cache.Get(key); cached != nil && matchesSymbols(cached, symbols) {
			s.log.Debug().Strs("symbols", symbols).Msg("Optimization cache hit")
			return cached, nil
		}
	}

	result, err := s.optimize(series, symbols, views)
	if err != nil {
		// A failed run must not leave stale derived state behind.
		if s.cache != nil {
			_ = s.cache.Evict(key)
		}
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Put(key, result); err != nil {
			s.log.Warn().Err(err).Msg("Failed to cache optimization result")
		}
	}
	return result, nil
}

// Estimate exposes the returns estimator for callers that need raw
// return/covariance statistics without the allocation step (the simulator).
func (s *Service) Estimate(series []PriceSeries) (*ReturnsEstimate, error) {
	return s.estimator.Estimate(series)
}

func (s *Service) optimize(series []PriceSeries, symbols []string, views ViewSet) (*Result, error) {
	estimate, err := s.estimator.Estimate(series)
	if err != nil {
		return nil, err
	}

	refWeights := EqualWeights(len(symbols))
	prior := ImpliedEquilibriumReturns(estimate.CovAnnual, refWeights, s.params.RiskAversion)

	posterior, err := s.blender.Blend(prior, estimate.CovAnnual, views, symbols)
	if err != nil {
		return nil, err
	}

	weights, err := s.allocator.MaxSharpe(posterior.Returns, posterior.Cov, refWeights)
	if err != nil {
		return nil, err
	}

	optimalWeights := make(map[string]float64, len(symbols))
	for i, sym := range symbols {
		optimalWeights[sym] = weights[i]
	}

	result := &Result{
		Symbols:          symbols,
		PosteriorReturns: posterior.Returns,
		PosteriorCov:     posterior.Cov,
		OptimalWeights:   optimalWeights,
		AlignedDays:      estimate.AlignedDays,
		Degraded:         estimate.Degraded || posterior.Degraded,
	}

	s.log.Info().
		Strs("symbols", symbols).
		Int("aligned_days", estimate.AlignedDays).
		Int("views", len(views)).
		Bool("degraded", result.Degraded).
		Msg("Optimization complete")

	return result, nil
}

// fingerprint captures every parameter that changes the numeric outcome, so
// the cache key is fully request-derived.
func (s *Service) fingerprint(views ViewSet) string {
	fp := fmt.Sprintf("tau=%g|ra=%g|rf=%g|min=%d",
		s.params.Tau, s.params.RiskAversion, s.params.RiskFreeRate, s.params.MinStableDays)
	for _, v := range views {
		fp += fmt.Sprintf("|%s:%s:%s:%s:%g:%g", v.Type, v.Symbol, v.Symbol1, v.Symbol2, v.Return, v.Confidence)
	}
	return fp
}

func matchesSymbols(result *Result, symbols []string) bool {
	if len(result.Symbols) != len(symbols) {
		return false
	}
	for i, s := range symbols {
		if result.Symbols[i] != s {
			return false
		}
	}
	return true
}
