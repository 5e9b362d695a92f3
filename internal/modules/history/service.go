package history

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/invexis/invexis/internal/clients/yahoo"
	"github.com/invexis/invexis/internal/modules/optimization"
)

// Provider is the slice of the market-data client the service needs.
type Provider interface {
	DailyHistory(ctx context.Context, symbol, chartRange string) ([]yahoo.Bar, error)
}

// Service keeps the local price cache fresh and adapts it to the shapes its
// consumers need: aligned close series for the engine, bar slices for the
// HTTP layer.
type Service struct {
	repo     *Repository
	provider Provider
	log      zerolog.Logger
}

// NewService creates a history service
func NewService(repo *Repository, provider Provider, log zerolog.Logger) *Service {
	return &Service{
		repo:     repo,
		provider: provider,
		log:      log.With().Str("component", "history_service").Logger(),
	}
}

// Refresh fetches the provider history for a symbol and upserts it into the
// cache. A symbol with no cached bars gets the full two-year range; an
// already-cached symbol only needs the recent window.
func (s *Service) Refresh(ctx context.Context, symbol string) error {
	latest, err := s.repo.LatestDate(symbol)
	if err != nil {
		return err
	}
	chartRange := "3mo"
	if latest == "" {
		chartRange = "2y"
	}

	bars, err := s.provider.DailyHistory(ctx, symbol, chartRange)
	if err != nil {
		return fmt.Errorf("refresh failed for %s: %w", symbol, err)
	}

	prices := make([]DailyPrice, len(bars))
	for i, b := range bars {
		prices[i] = DailyPrice{
			Date:   b.Date,
			Open:   b.Open,
			High:   b.High,
			Low:    b.Low,
			Close:  b.Close,
			Volume: &bars[i].Volume,
		}
	}
	return s.repo.UpsertPrices(symbol, prices)
}

// RefreshAll refreshes every cached symbol. Per-symbol failures are logged
// and skipped so one delisted symbol cannot starve the rest.
func (s *Service) RefreshAll(ctx context.Context) {
	symbols, err := s.repo.Symbols()
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to list symbols for refresh")
		return
	}
	for _, sym := range symbols {
		if err := s.Refresh(ctx, sym); err != nil {
			s.log.Warn().Err(err).Str("symbol", sym).Msg("Symbol refresh failed")
		}
	}
	s.log.Info().Int("symbols", len(symbols)).Msg("History refresh complete")
}

// History returns up to limit recent bars for a symbol, fetching from the
// provider on a cache miss. Daily change percent is derived between
// consecutive closes.
func (s *Service) History(ctx context.Context, symbol string, limit int) ([]DailyPrice, error) {
	if err := s.ensureCached(ctx, symbol); err != nil {
		return nil, err
	}
	prices, err := s.repo.GetDailyPrices(symbol, limit)
	if err != nil {
		return nil, err
	}
	for i := 1; i < len(prices); i++ {
		prev := prices[i-1].Close
		if prev != 0 {
			pct := (prices[i].Close - prev) / prev * 100
			prices[i].ChangePercent = &pct
		}
	}
	return prices, nil
}

// AlignedSeries loads close series for the engine. Each symbol contributes up
// to lookbackDays bars; alignment by date intersection happens downstream in
// the returns estimator.
func (s *Service) AlignedSeries(ctx context.Context, symbols []string, lookbackDays int) ([]optimization.PriceSeries, error) {
	series := make([]optimization.PriceSeries, 0, len(symbols))
	for _, sym := range symbols {
		if err := s.ensureCached(ctx, sym); err != nil {
			return nil, err
		}
		prices, err := s.repo.GetDailyPrices(sym, lookbackDays)
		if err != nil {
			return nil, err
		}
		ps := optimization.PriceSeries{
			Symbol: sym,
			Dates:  make([]string, len(prices)),
			Closes: make([]float64, len(prices)),
		}
		for i, p := range prices {
			ps.Dates[i] = p.Date
			ps.Closes[i] = p.Close
		}
		series = append(series, ps)
	}
	return series, nil
}

// ensureCached refreshes a symbol whose cache is empty or more than a week
// stale. Weekday gaps (weekends, holidays) are not staleness.
func (s *Service) ensureCached(ctx context.Context, symbol string) error {
	latest, err := s.repo.LatestDate(symbol)
	if err != nil {
		return err
	}
	if latest != "" {
		if t, err := time.Parse("2006-01-02", latest); err == nil && time.Since(t) < 7*24*time.Hour {
			return nil
		}
	}
	return s.Refresh(ctx, symbol)
}
