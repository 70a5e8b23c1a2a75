// Package models provides domain models for the Heston Greek estimation workflows.
package models

import (
	"fmt"
	"strings"
)

// SamplingMode selects how standard normal draws are turned into paths.
type SamplingMode string

const (
	SamplingPlain      SamplingMode = "PLAIN"
	SamplingAntithetic SamplingMode = "ANTITHETIC"
)

// ParseSamplingMode parses a sampling mode, case-insensitively.
func ParseSamplingMode(s string) (SamplingMode, error) {
	switch SamplingMode(strings.ToUpper(strings.TrimSpace(s))) {
	case SamplingPlain:
		return SamplingPlain, nil
	case SamplingAntithetic:
		return SamplingAntithetic, nil
	}
	return "", fmt.Errorf("unknown sampling mode %q (must be plain or antithetic)", s)
}

// SimulationParameters holds the Heston variance process parameters.
// The value is shared by every trial of a run and never mutated.
type SimulationParameters struct {
	MeanReversion   float64 `json:"mean_reversion"`    // kappa
	LongRunVariance float64 `json:"long_run_variance"` // theta
	VolOfVol        float64 `json:"vol_of_vol"`        // epsilon
	Correlation     float64 `json:"correlation"`       // rho
}

// FellerSatisfied reports whether 2*kappa*theta > epsilon^2.
func (p SimulationParameters) FellerSatisfied() bool {
	return 2*p.MeanReversion*p.LongRunVariance > p.VolOfVol*p.VolOfVol
}

// MarketState holds the starting point of a simulation.
type MarketState struct {
	Spot     float64 `json:"spot"`
	Variance float64 `json:"variance"`
	Maturity float64 `json:"maturity"`
	Steps    int     `json:"steps"`
}

// WithSpot returns a copy of the state with a different starting price.
func (m MarketState) WithSpot(spot float64) MarketState {
	m.Spot = spot
	return m
}

// StepsFor returns the number of time steps of size stepSize that fit in maturity.
func StepsFor(maturity, stepSize float64) int {
	return int(maturity / stepSize)
}
