package optimization

import "fmt"

// InvalidPriceError indicates a zero or negative price in the input series.
type InvalidPriceError struct {
	Symbol string
	Date   string
	Price  float64
}

func (e *InvalidPriceError) Error() string {
	return fmt.Sprintf("invalid price %.6f for %s on %s: prices must be strictly positive", e.Price, e.Symbol, e.Date)
}

// InsufficientDataError indicates too few aligned trading days across the
// requested symbols to compute returns and covariance.
type InsufficientDataError struct {
	Symbols     []string
	AlignedDays int
	Required    int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("insufficient aligned history for %v: %d common trading days, need at least %d",
		e.Symbols, e.AlignedDays, e.Required)
}

// OptimizationFailedError indicates the allocator could not produce a valid
// weight vector. Callers receive this instead of a partial or NaN result.
type OptimizationFailedError struct {
	Reason string
}

func (e *OptimizationFailedError) Error() string {
	return fmt.Sprintf("optimization failed: %s", e.Reason)
}
