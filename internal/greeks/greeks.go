// Package greeks estimates option delta and gamma under the Heston model, either by
// bump-and-reprice under common random numbers or from Malliavin path weights.
package greeks

import (
	"github.com/rs/zerolog"

	"heston-greeks/internal/engine"
	"heston-greeks/internal/models"
	"heston-greeks/internal/payoff"
	"heston-greeks/internal/rng"
)

// DefaultBump is the relative spot bump used by the finite-difference scheme.
const DefaultBump = 1e-4

// Scheme runs one trial: simulate, price, and estimate delta and gamma.
type Scheme interface {
	Name() models.SchemeName
	Estimate(market models.MarketState, sampler *rng.Sampler) (models.TrialResult, error)
}

// Setup holds what both schemes share for a run.
type Setup struct {
	Engine    engine.PathEngine
	Evaluator *payoff.Evaluator
	Params    models.SimulationParameters
	Paths     int
	Sampling  models.SamplingMode
	Logger    zerolog.Logger
}

func (s Setup) request(market models.MarketState, weights bool) engine.Request {
	return engine.NewRequest(s.Params, market, s.Paths, s.Sampling, weights)
}

// New returns the scheme called name. bump only applies to finite differences.
func New(name models.SchemeName, setup Setup, bump float64) Scheme {
	if name == models.SchemeMalliavin {
		return NewMalliavin(setup)
	}
	return NewFiniteDifference(setup, bump)
}
