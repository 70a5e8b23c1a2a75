package greeks

import (
	apperrors "heston-greeks/internal/errors"
	"heston-greeks/internal/models"
	"heston-greeks/internal/payoff"
	"heston-greeks/internal/rng"
)

// Stage is a step of the finite-difference trial.
type Stage string

const (
	StageBaseSim      Stage = "BASE_SIM"
	StageSeedReset1   Stage = "SEED_RESET_1"
	StageShiftUpSim   Stage = "SHIFT_UP_SIM"
	StageSeedReset2   Stage = "SEED_RESET_2"
	StageShiftDownSim Stage = "SHIFT_DOWN_SIM"
	StageCombine      Stage = "COMBINE"
)

// FiniteDifference reprices at S0, S0(1+h) and S0(1-h) from the same sampler
// checkpoint, so the three batches share one random path skeleton.
type FiniteDifference struct {
	setup Setup
	bump  float64
}

// NewFiniteDifference creates the scheme. bump is not validated; zero gives NaN Greeks.
func NewFiniteDifference(setup Setup, bump float64) *FiniteDifference {
	return &FiniteDifference{setup: setup, bump: bump}
}

// Name implements Scheme.
func (fd *FiniteDifference) Name() models.SchemeName {
	return models.SchemeFiniteDifference
}

// Bump returns the relative bump h.
func (fd *FiniteDifference) Bump() float64 {
	return fd.bump
}

// Estimate implements Scheme. The sampler is left after the down simulation, so
// the next trial draws a fresh block of the stream.
func (fd *FiniteDifference) Estimate(market models.MarketState, sampler *rng.Sampler) (models.TrialResult, error) {
	log := fd.setup.Logger.With().Float64("spot", market.Spot).Float64("bump", fd.bump).Logger()
	s0 := market.Spot
	checkpoint := sampler.Checkpoint()

	base, asset, err := fd.price(StageBaseSim, market, sampler, true)
	if err != nil {
		return models.TrialResult{}, err
	}
	log.Debug().Str("stage", string(StageBaseSim)).Float64("price", base.Value).Msg("Simulated")

	sampler.Restore(checkpoint)
	log.Debug().Str("stage", string(StageSeedReset1)).Msg("Sampler restored")

	up, _, err := fd.price(StageShiftUpSim, market.WithSpot(s0*(1+fd.bump)), sampler, false)
	if err != nil {
		return models.TrialResult{}, err
	}
	log.Debug().Str("stage", string(StageShiftUpSim)).Float64("price", up.Value).Msg("Simulated")

	sampler.Restore(checkpoint)
	log.Debug().Str("stage", string(StageSeedReset2)).Msg("Sampler restored")

	down, _, err := fd.price(StageShiftDownSim, market.WithSpot(s0*(1-fd.bump)), sampler, false)
	if err != nil {
		return models.TrialResult{}, err
	}
	log.Debug().Str("stage", string(StageShiftDownSim)).Float64("price", down.Value).Msg("Simulated")

	delta, gamma := FiniteDifferenceGreeks(base.Value, up.Value, down.Value, fd.bump, s0)
	log.Debug().Str("stage", string(StageCombine)).Float64("delta", delta).Float64("gamma", gamma).Msg("Combined")

	return models.TrialResult{
		Spot:       s0,
		Price:      base.Value,
		StdError:   base.StdError,
		Delta:      delta,
		Gamma:      gamma,
		AssetPrice: asset,
	}, nil
}

// price simulates at market and prices the option. The batch is dropped before
// returning; only the base simulation reports its mean terminal asset price.
func (fd *FiniteDifference) price(stage Stage, market models.MarketState, sampler *rng.Sampler, withAsset bool) (payoff.Estimate, float64, error) {
	res, err := fd.setup.Engine.Simulate(fd.setup.request(market, false), sampler)
	if err != nil {
		return payoff.Estimate{}, 0, apperrors.NewSimulationError(string(stage), market.Spot, err)
	}
	est, err := fd.setup.Evaluator.Price(res.Paths)
	if err != nil {
		return payoff.Estimate{}, 0, apperrors.NewSimulationError(string(stage), market.Spot, err)
	}
	var asset float64
	if withAsset {
		if asset, err = payoff.MeanTerminal(res.Paths); err != nil {
			return payoff.Estimate{}, 0, apperrors.NewSimulationError(string(stage), market.Spot, err)
		}
	}
	return est, asset, nil
}

// FiniteDifferenceGreeks combines the three prices.
//
// Delta is one-sided, (P+ - P0)/(h*S0), reusing the base price; gamma is the
// central second difference (P+ - 2*P0 + P-)/(h*S0)^2. The division is unguarded.
func FiniteDifferenceGreeks(p0, pUp, pDown, h, s0 float64) (delta, gamma float64) {
	hs := h * s0
	delta = (pUp - p0) / hs
	gamma = (pUp - 2*p0 + pDown) / (hs * hs)
	return delta, gamma
}
