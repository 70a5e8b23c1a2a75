package models

import (
	"fmt"
	"time"

	apperrors "heston-greeks/internal/errors"
)

// Workflow names what varies from one trial to the next.
type Workflow string

const (
	WorkflowTrials Workflow = "trials" // repeated trials at a fixed spot
	WorkflowSweep  Workflow = "sweep"  // one trial per point of a spot grid
)

// SchemeName identifies a Greek estimation scheme.
type SchemeName string

const (
	SchemeFiniteDifference SchemeName = "fd"
	SchemeMalliavin        SchemeName = "malliavin"
)

// ParseSchemeName parses a scheme name.
func ParseSchemeName(s string) (SchemeName, error) {
	switch SchemeName(s) {
	case SchemeFiniteDifference, "finite-difference":
		return SchemeFiniteDifference, nil
	case SchemeMalliavin:
		return SchemeMalliavin, nil
	}
	return "", fmt.Errorf("unknown scheme %q (must be fd or malliavin)", s)
}

// TrialResult is the outcome of one trial of a Greek scheme.
type TrialResult struct {
	Spot       float64 `json:"spot"`
	Price      float64 `json:"price"`
	StdError   float64 `json:"std_error"`
	Delta      float64 `json:"delta"`
	Gamma      float64 `json:"gamma"`
	AssetPrice float64 `json:"asset_price"`
}

// ResultSeries holds the five persisted series, index-aligned by trial number.
// Each index is written exactly once.
type ResultSeries struct {
	Spots       []float64 `json:"spots"`
	Prices      []float64 `json:"prices"`
	StdErrors   []float64 `json:"std_errors"`
	Deltas      []float64 `json:"deltas"`
	Gammas      []float64 `json:"gammas"`
	AssetPrices []float64 `json:"asset_prices"`

	recorded []bool
}

// NewResultSeries allocates series for n trials.
func NewResultSeries(n int) *ResultSeries {
	return &ResultSeries{
		Spots:       make([]float64, n),
		Prices:      make([]float64, n),
		StdErrors:   make([]float64, n),
		Deltas:      make([]float64, n),
		Gammas:      make([]float64, n),
		AssetPrices: make([]float64, n),
		recorded:    make([]bool, n),
	}
}

// Len returns the number of trials the series were sized for.
func (s *ResultSeries) Len() int { return len(s.Prices) }

// Record writes trial i into all series at once.
func (s *ResultSeries) Record(i int, r TrialResult) error {
	if i < 0 || i >= s.Len() {
		return fmt.Errorf("%w: %d of %d", apperrors.ErrTrialOutOfRange, i, s.Len())
	}
	if s.recorded[i] {
		return fmt.Errorf("%w: index %d", apperrors.ErrTrialAlreadyRecorded, i)
	}
	s.Spots[i] = r.Spot
	s.Prices[i] = r.Price
	s.StdErrors[i] = r.StdError
	s.Deltas[i] = r.Delta
	s.Gammas[i] = r.Gamma
	s.AssetPrices[i] = r.AssetPrice
	s.recorded[i] = true
	return nil
}

// At reads trial i back from all series.
func (s *ResultSeries) At(i int) TrialResult {
	return TrialResult{
		Spot:       s.Spots[i],
		Price:      s.Prices[i],
		StdError:   s.StdErrors[i],
		Delta:      s.Deltas[i],
		Gamma:      s.Gammas[i],
		AssetPrice: s.AssetPrices[i],
	}
}

// Complete reports whether every trial has been recorded.
func (s *ResultSeries) Complete() bool {
	for _, ok := range s.recorded {
		if !ok {
			return false
		}
	}
	return true
}

// Run describes one completed batch of trials.
type Run struct {
	ID        string        `json:"id"`
	Workflow  Workflow      `json:"workflow"`
	Scheme    SchemeName    `json:"scheme"`
	Seed      uint64        `json:"seed"`
	Paths     int           `json:"paths"`
	Steps     int           `json:"steps"`
	Bump      float64       `json:"bump"`
	Sampling  SamplingMode  `json:"sampling"`
	Trials    int           `json:"trials"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
	OutputDir string        `json:"output_dir"`
}
