// Package engine simulates Heston asset-price paths together with the Malliavin
// weights used by the pathwise Greek estimators.
package engine

import (
	"fmt"
	"math"

	apperrors "heston-greeks/internal/errors"
	"heston-greeks/internal/models"
	"heston-greeks/internal/rng"
)

// VarianceFloor is the smallest variance the asset diffusion and the weights see.
// The variance process itself is full-truncation Euler and may touch zero.
const VarianceFloor = 1e-4

// Request describes one engine call.
type Request struct {
	Start    float64
	End      float64
	Params   models.SimulationParameters
	Spot     float64
	Variance float64
	Paths    int
	Steps    int
	Sampling models.SamplingMode
	Weights  bool // also compute delta and gamma weights
}

// NewRequest builds a request over [0, market.Maturity].
func NewRequest(params models.SimulationParameters, market models.MarketState, paths int, sampling models.SamplingMode, weights bool) Request {
	return Request{
		Start:    0,
		End:      market.Maturity,
		Params:   params,
		Spot:     market.Spot,
		Variance: market.Variance,
		Paths:    paths,
		Steps:    market.Steps,
		Sampling: sampling,
		Weights:  weights,
	}
}

// Validate checks the request shape.
func (r Request) Validate() error {
	switch {
	case r.Paths <= 0:
		return fmt.Errorf("%w: paths must be positive, got %d", apperrors.ErrInvalidRequest, r.Paths)
	case r.Steps <= 0:
		return fmt.Errorf("%w: steps must be positive, got %d", apperrors.ErrInvalidRequest, r.Steps)
	case r.End <= r.Start:
		return fmt.Errorf("%w: end %g must be after start %g", apperrors.ErrInvalidRequest, r.End, r.Start)
	case r.Spot <= 0:
		return fmt.Errorf("%w: spot must be positive, got %g", apperrors.ErrInvalidRequest, r.Spot)
	case r.Variance < 0:
		return fmt.Errorf("%w: variance must be non-negative, got %g", apperrors.ErrInvalidRequest, r.Variance)
	case r.Params.Correlation < -1 || r.Params.Correlation > 1:
		return fmt.Errorf("%w: correlation %g outside [-1, 1]", apperrors.ErrInvalidRequest, r.Params.Correlation)
	case r.Weights && math.Abs(r.Params.Correlation) == 1:
		return fmt.Errorf("%w: weights need |correlation| < 1", apperrors.ErrInvalidRequest)
	case r.Sampling == models.SamplingAntithetic && r.Paths%2 != 0:
		return fmt.Errorf("%w: antithetic sampling needs an even path count, got %d", apperrors.ErrInvalidRequest, r.Paths)
	case r.Sampling != models.SamplingAntithetic && r.Sampling != models.SamplingPlain:
		return fmt.Errorf("%w: unknown sampling mode %q", apperrors.ErrInvalidRequest, r.Sampling)
	}
	return nil
}

// BasePaths is the number of independent draw sets the request consumes.
func (r Request) BasePaths() int {
	if r.Sampling == models.SamplingAntithetic {
		return r.Paths / 2
	}
	return r.Paths
}

// Draws is the number of normal draws one call consumes. It depends only on
// the path and step counts.
func (r Request) Draws() int {
	return 2 * r.Steps * r.BasePaths()
}

// PathEngine produces simulated paths from the sampler's current state.
type PathEngine interface {
	Simulate(req Request, sampler *rng.Sampler) (*models.EngineResult, error)
}

// HestonEngine is a log-Euler Heston simulator with full truncation on the variance.
type HestonEngine struct{}

// NewHestonEngine creates a new HestonEngine.
func NewHestonEngine() *HestonEngine {
	return &HestonEngine{}
}

// Simulate draws the paths. For each base path it consumes Steps pairs of normals
// (variance shock, independent asset shock) in step order; under antithetic
// sampling path j+N/2 replays path j with negated shocks.
func (e *HestonEngine) Simulate(req Request, sampler *rng.Sampler) (*models.EngineResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	batch := models.NewPathBatch(req.Paths, req.Steps)
	result := &models.EngineResult{Paths: batch}

	var deltaW, gammaW models.SensitivityWeights
	if req.Weights {
		deltaW = make(models.SensitivityWeights, req.Paths)
		gammaW = make(models.SensitivityWeights, req.Paths)
		result.DeltaWeights = &deltaW
		result.GammaWeights = &gammaW
	}

	w := newWalker(req)
	base := req.BasePaths()
	zv := make([]float64, req.Steps)
	zs := make([]float64, req.Steps)

	for j := 0; j < base; j++ {
		for k := 0; k < req.Steps; k++ {
			zv[k] = sampler.NormFloat64()
			zs[k] = sampler.NormFloat64()
		}

		y, q := w.walk(batch.Path(j), zv, zs, 1)
		if req.Weights {
			deltaW[j], gammaW[j] = w.weights(y, q)
		}

		if req.Sampling == models.SamplingAntithetic {
			y, q = w.walk(batch.Path(j+base), zv, zs, -1)
			if req.Weights {
				deltaW[j+base], gammaW[j+base] = w.weights(y, q)
			}
		}
	}

	return result, nil
}

// walker holds the per-request constants of the discretization.
type walker struct {
	spot, variance      float64
	kappa, theta, eps   float64
	rho, rhoBar         float64
	dt, sqrtDt, horizon float64
}

func newWalker(req Request) walker {
	dt := (req.End - req.Start) / float64(req.Steps)
	return walker{
		spot:     req.Spot,
		variance: req.Variance,
		kappa:    req.Params.MeanReversion,
		theta:    req.Params.LongRunVariance,
		eps:      req.Params.VolOfVol,
		rho:      req.Params.Correlation,
		rhoBar:   math.Sqrt(1 - req.Params.Correlation*req.Params.Correlation),
		dt:       dt,
		sqrtDt:   math.Sqrt(dt),
		horizon:  req.End - req.Start,
	}
}

// walk fills out with one asset path and returns the raw weight integrals
// y = sum dW_perp / sqrt(v) and q = sum dt / v.
func (w walker) walk(out, zv, zs []float64, sign float64) (y, q float64) {
	logS := math.Log(w.spot)
	v := w.variance
	out[0] = w.spot

	for k := range zv {
		vPos := math.Max(v, 0)
		vEff := math.Max(vPos, VarianceFloor)
		volEff := math.Sqrt(vEff)

		dWv := sign * zv[k] * w.sqrtDt
		dWp := sign * zs[k] * w.sqrtDt

		logS += -0.5*vEff*w.dt + volEff*(w.rho*dWv+w.rhoBar*dWp)
		out[k+1] = math.Exp(logS)

		v += w.kappa*(w.theta-vPos)*w.dt + w.eps*math.Sqrt(vPos)*dWv

		y += dWp / volEff
		q += w.dt / vEff
	}
	return y, q
}

// weights turns the raw integrals into the delta and gamma weights:
//
//	Y = y / (rhoBar*T),  Q = q / (rhoBar*T)^2
//	delta weight = Y / S0,  gamma weight = (Y^2 - Y - Q) / S0^2
func (w walker) weights(y, q float64) (delta, gamma float64) {
	scale := w.rhoBar * w.horizon
	Y := y / scale
	Q := q / (scale * scale)
	delta = Y / w.spot
	gamma = (Y*Y - Y - Q) / (w.spot * w.spot)
	return delta, gamma
}
