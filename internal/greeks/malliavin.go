package greeks

import (
	apperrors "heston-greeks/internal/errors"
	"heston-greeks/internal/models"
	"heston-greeks/internal/payoff"
	"heston-greeks/internal/rng"
)

const stageMalliavinSim = "MALLIAVIN_SIM"

// Malliavin simulates once per trial and reads delta and gamma off the
// per-path weights the engine returns with the batch.
type Malliavin struct {
	setup Setup
}

// NewMalliavin creates the scheme.
func NewMalliavin(setup Setup) *Malliavin {
	return &Malliavin{setup: setup}
}

// Name implements Scheme.
func (m *Malliavin) Name() models.SchemeName {
	return models.SchemeMalliavin
}

// Estimate implements Scheme.
func (m *Malliavin) Estimate(market models.MarketState, sampler *rng.Sampler) (models.TrialResult, error) {
	fail := func(err error) (models.TrialResult, error) {
		return models.TrialResult{}, apperrors.NewSimulationError(stageMalliavinSim, market.Spot, err)
	}

	res, err := m.setup.Engine.Simulate(m.setup.request(market, true), sampler)
	if err != nil {
		return fail(err)
	}
	if !res.HasWeights() {
		return fail(apperrors.ErrWeightsMissing)
	}

	ev := m.setup.Evaluator
	price, err := ev.Price(res.Paths)
	if err != nil {
		return fail(err)
	}
	delta, err := ev.WeightedDelta(res.Paths, *res.DeltaWeights)
	if err != nil {
		return fail(err)
	}
	gamma, err := ev.WeightedGamma(res.Paths, *res.GammaWeights)
	if err != nil {
		return fail(err)
	}
	asset, err := payoff.MeanTerminal(res.Paths)
	if err != nil {
		return fail(err)
	}

	m.setup.Logger.Debug().
		Float64("spot", market.Spot).
		Float64("price", price.Value).
		Float64("delta", delta.Value).
		Float64("delta_se", delta.StdError).
		Float64("gamma", gamma.Value).
		Float64("gamma_se", gamma.StdError).
		Msg("Malliavin estimate")

	return models.TrialResult{
		Spot:       market.Spot,
		Price:      price.Value,
		StdError:   price.StdError,
		Delta:      delta.Value,
		Gamma:      gamma.Value,
		AssetPrice: asset,
	}, nil
}
