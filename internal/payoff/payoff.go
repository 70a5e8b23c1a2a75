// Package payoff evaluates European option payoffs over simulated path batches.
package payoff

import (
	"fmt"
	"math"

	"github.com/montanaflynn/stats"

	apperrors "heston-greeks/internal/errors"
	"heston-greeks/internal/models"
)

// Estimate is a Monte Carlo mean and its standard error.
type Estimate struct {
	Value    float64 `json:"value"`
	StdError float64 `json:"std_error"`
}

// Evaluator prices one option contract. Rates are zero, so no discounting applies.
type Evaluator struct {
	contract models.OptionContract
}

// NewEvaluator creates an evaluator for contract.
func NewEvaluator(contract models.OptionContract) *Evaluator {
	return &Evaluator{contract: contract}
}

// Contract returns the contract being evaluated.
func (e *Evaluator) Contract() models.OptionContract {
	return e.contract
}

// Price returns the mean payoff over the batch's terminal values.
func (e *Evaluator) Price(batch *models.PathBatch) (Estimate, error) {
	if batch == nil || batch.Count() == 0 {
		return Estimate{}, apperrors.ErrEmptyBatch
	}
	samples := make([]float64, batch.Count())
	for i := range samples {
		samples[i] = e.contract.Payoff(batch.Terminal(i))
	}
	return estimate(samples)
}

// WeightedDelta returns mean(payoff_i * w_i), the Malliavin delta estimator.
func (e *Evaluator) WeightedDelta(batch *models.PathBatch, weights models.SensitivityWeights) (Estimate, error) {
	return e.weighted(batch, weights)
}

// WeightedGamma returns mean(payoff_i * w_i) for the gamma weights.
func (e *Evaluator) WeightedGamma(batch *models.PathBatch, weights models.SensitivityWeights) (Estimate, error) {
	return e.weighted(batch, weights)
}

func (e *Evaluator) weighted(batch *models.PathBatch, weights models.SensitivityWeights) (Estimate, error) {
	if batch == nil || batch.Count() == 0 {
		return Estimate{}, apperrors.ErrEmptyBatch
	}
	if weights.Len() != batch.Count() {
		return Estimate{}, fmt.Errorf("%w: %d weights for %d paths", apperrors.ErrWeightMismatch, weights.Len(), batch.Count())
	}
	samples := make([]float64, batch.Count())
	for i := range samples {
		samples[i] = e.contract.Payoff(batch.Terminal(i)) * weights[i]
	}
	return estimate(samples)
}

// MeanTerminal returns the average terminal asset value of the batch.
func MeanTerminal(batch *models.PathBatch) (float64, error) {
	if batch == nil || batch.Count() == 0 {
		return 0, apperrors.ErrEmptyBatch
	}
	return stats.Mean(batch.Terminals())
}

func estimate(samples []float64) (Estimate, error) {
	mean, err := stats.Mean(samples)
	if err != nil {
		return Estimate{}, err
	}
	if len(samples) < 2 {
		return Estimate{Value: mean}, nil
	}
	sd, err := stats.StandardDeviationSample(samples)
	if err != nil {
		return Estimate{}, err
	}
	return Estimate{Value: mean, StdError: sd / math.Sqrt(float64(len(samples)))}, nil
}
