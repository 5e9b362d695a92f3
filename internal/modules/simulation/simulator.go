package simulation

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"runtime"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"

	"github.com/rs/zerolog"

	"github.com/invexis/invexis/pkg/formulas"
)

// Simulator draws correlated geometric-Brownian-motion price paths and
// reduces them to a mean portfolio path plus the terminal value distribution.
//
// Paths are independent given the Cholesky factor, so they are distributed
// across workers with no shared mutable state inside the parallel region:
// each path writes its own terminal value slot and each worker accumulates
// its own partial sum vector, merged after all workers finish. Each path owns
// an RNG seeded from the base seed plus the path index, so results are
// bit-identical for a given seed regardless of worker scheduling.
type Simulator struct {
	defaultSeed int64
	workers     int
	log         zerolog.Logger
}

// NewSimulator creates a simulator. defaultSeed is used for requests that
// carry no explicit seed.
func NewSimulator(defaultSeed int64, log zerolog.Logger) *Simulator {
	return &Simulator{
		defaultSeed: defaultSeed,
		workers:     runtime.NumCPU(),
		log:         log.With().Str("component", "simulator").Logger(),
	}
}

// Run simulates the portfolio described by req using annualized expected
// returns and covariance (both divided by 252 internally to daily scale).
//
// The GBM step per asset is
//
//	price(t+1) = price(t) × exp[(μ_daily − 0.5σ²_daily) + (Lz)_asset]
//
// with z a vector of independent standard normals and L the Cholesky factor
// of the daily covariance. Portfolio value at each step is
// Σ_asset w_asset × price(t)/price(0) × initialValue.
func (s *Simulator) Run(ctx context.Context, req Request, meanAnnual []float64, covAnnual *mat.SymDense) (*Result, error) {
	if req.HorizonDays <= 0 {
		return nil, &InvalidSimulationParametersError{Field: "horizonDays", Value: float64(req.HorizonDays)}
	}
	if req.PathCount <= 0 {
		return nil, &InvalidSimulationParametersError{Field: "pathCount", Value: float64(req.PathCount)}
	}
	if req.InitialValue <= 0 {
		return nil, &InvalidSimulationParametersError{Field: "initialValue", Value: req.InitialValue}
	}

	n := len(req.Symbols)
	if n == 0 || len(meanAnnual) != n || covAnnual.SymmetricDim() != n {
		return nil, fmt.Errorf("dimension mismatch: %d symbols, %d returns, %dx%d covariance",
			n, len(meanAnnual), covAnnual.SymmetricDim(), covAnnual.SymmetricDim())
	}

	weights := make([]float64, n)
	for i, sym := range req.Symbols {
		weights[i] = req.Weights[sym]
	}

	// Daily-scale drift and diffusion.
	covDaily := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			covDaily.SetSym(i, j, covAnnual.At(i, j)/formulas.TradingDaysPerYear)
		}
	}
	factor := make([][]float64, n)
	for i := range factor {
		factor[i] = make([]float64, i+1)
	}

	// An all-zero covariance (constant prices) is valid positive-semidefinite
	// input: its factor is zero and every path follows the drift exactly.
	// Jitter here would manufacture volatility out of nothing.
	loading := 0.0
	if !allZero(covDaily) {
		chol, l, err := formulas.RegularizedCholesky(covDaily)
		if err != nil {
			return nil, fmt.Errorf("covariance factorization failed: %w", err)
		}
		loading = l
		if loading > 0 {
			s.log.Warn().Float64("diagonal_loading", loading).Msg("Regularized covariance before Cholesky factorization")
		}

		var lower mat.TriDense
		chol.LTo(&lower)
		for i := 0; i < n; i++ {
			for j := 0; j <= i; j++ {
				factor[i][j] = lower.At(i, j)
			}
		}
	}

	drift := make([]float64, n)
	for i := 0; i < n; i++ {
		drift[i] = meanAnnual[i]/formulas.TradingDaysPerYear - 0.5*covDaily.At(i, i)
	}

	seed := s.defaultSeed
	if req.Seed != nil {
		seed = *req.Seed
	}

	horizon := req.HorizonDays
	paths := req.PathCount
	finals := make([]float64, paths)

	workers := s.workers
	if workers > paths {
		workers = paths
	}
	partialSums := make([][]float64, workers)

	g, ctx := errgroup.WithContext(ctx)
	for w := 0; w < workers; w++ {
		w := w
		start := w * paths / workers
		end := (w + 1) * paths / workers
		sums := make([]float64, horizon+1)
		partialSums[w] = sums

		g.Go(func() error {
			normals := make([]float64, n)
			relative := make([]float64, n)
			for p := start; p < end; p++ {
				if err := ctx.Err(); err != nil {
					return err
				}

				rng := rand.New(rand.NewSource(seed + int64(p)))
				for i := range relative {
					relative[i] = 1.0
				}
				sums[0] += req.InitialValue

				for t := 1; t <= horizon; t++ {
					for i := range normals {
						normals[i] = rng.NormFloat64()
					}
					value := 0.0
					for i := 0; i < n; i++ {
						shock := 0.0
						for j := 0; j <= i; j++ {
							shock += factor[i][j] * normals[j]
						}
						relative[i] *= math.Exp(drift[i] + shock)
						value += weights[i] * relative[i]
					}
					value *= req.InitialValue
					sums[t] += value
					if t == horizon {
						finals[p] = value
					}
				}
			}
			return nil
		})
	}

	// Publish nothing unless every path completed.
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("simulation aborted: %w", err)
	}

	meanPath := make([]float64, horizon+1)
	for _, sums := range partialSums {
		for t := range sums {
			meanPath[t] += sums[t]
		}
	}
	for t := range meanPath {
		meanPath[t] /= float64(paths)
	}
	meanPath[0] = req.InitialValue

	return &Result{
		MeanPath:    meanPath,
		FinalValues: finals,
		Degraded:    loading > 0,
	}, nil
}

func allZero(sigma *mat.SymDense) bool {
	n := sigma.SymmetricDim()
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			if sigma.At(i, j) != 0 {
				return false
			}
		}
	}
	return true
}

// SamplePath draws a single GBM price path for one asset, used for the
// illustrative per-symbol charts returned by initialization.
func (s *Simulator) SamplePath(startPrice, meanAnnual, varianceAnnual float64, horizonDays int, seed int64) []float64 {
	if horizonDays <= 0 || startPrice <= 0 {
		return nil
	}
	varDaily := varianceAnnual / formulas.TradingDaysPerYear
	if varDaily < 0 {
		varDaily = 0
	}
	drift := meanAnnual/formulas.TradingDaysPerYear - 0.5*varDaily
	vol := math.Sqrt(varDaily)

	rng := rand.New(rand.NewSource(seed))
	path := make([]float64, horizonDays+1)
	path[0] = startPrice
	for t := 1; t <= horizonDays; t++ {
		path[t] = path[t-1] * math.Exp(drift+vol*rng.NormFloat64())
	}
	return path
}
