// Package collector runs a Greek scheme over a batch of trials and gathers the
// results into index-aligned series.
package collector

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"heston-greeks/internal/greeks"
	"heston-greeks/internal/models"
	"heston-greeks/internal/performance"
	"heston-greeks/internal/rng"
)

// ProgressFunc is called after each completed trial.
type ProgressFunc func(done, total int)

// Collector owns the run's sampler and drives one scheme trial by trial, in index order.
type Collector struct {
	scheme   greeks.Scheme
	market   models.MarketState
	seed     uint64
	sampler  *rng.Sampler
	logger   zerolog.Logger
	progress ProgressFunc
}

// Option configures a Collector.
type Option func(*Collector)

// WithLogger sets the logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Collector) { c.logger = logger }
}

// WithProgress sets a progress callback.
func WithProgress(fn ProgressFunc) Option {
	return func(c *Collector) { c.progress = fn }
}

// New creates a Collector for scheme at the nominal market state.
func New(scheme greeks.Scheme, market models.MarketState, seed uint64, opts ...Option) *Collector {
	c := &Collector{
		scheme:  scheme,
		market:  market,
		seed:    seed,
		sampler: rng.New(seed),
		logger:  zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Batch is the outcome of a workflow: the series plus run metadata.
type Batch struct {
	Run    models.Run           `json:"run"`
	Series *models.ResultSeries `json:"series"`
	Laps   []performance.Lap    `json:"laps"`
}

// RunTrials repeats the scheme n times at the nominal spot. The sampler is seeded
// once, so successive trials consume successive blocks of one stream.
func (c *Collector) RunTrials(n int) (*Batch, error) {
	if n <= 0 {
		return nil, fmt.Errorf("trial count must be positive, got %d", n)
	}
	spots := make([]float64, n)
	for i := range spots {
		spots[i] = c.market.Spot
	}
	c.sampler.Reseed(c.seed)
	return c.run(models.WorkflowTrials, spots, false)
}

// RunSweep runs one trial per point of linspace(lower, upper, points), reseeding
// the sampler before every point so all points share the same random numbers.
func (c *Collector) RunSweep(lower, upper float64, points int) (*Batch, error) {
	if points <= 0 {
		return nil, fmt.Errorf("sweep needs at least one point, got %d", points)
	}
	return c.run(models.WorkflowSweep, Linspace(lower, upper, points), true)
}

func (c *Collector) run(workflow models.Workflow, spots []float64, reseedEach bool) (*Batch, error) {
	runID := uuid.NewString()
	log := c.logger.With().
		Str("run_id", runID).
		Str("workflow", string(workflow)).
		Str("scheme", string(c.scheme.Name())).
		Logger()

	series := models.NewResultSeries(len(spots))
	sw := performance.NewStopwatch()

	log.Info().Int("trials", len(spots)).Uint64("seed", c.seed).Msg("Starting batch")

	for i, spot := range spots {
		if reseedEach {
			c.sampler.Reseed(c.seed)
		}

		result, err := c.scheme.Estimate(c.market.WithSpot(spot), c.sampler)
		if err != nil {
			log.Error().Err(err).Int("trial", i).Msg("Trial failed")
			return nil, fmt.Errorf("trial %d: %w", i, err)
		}
		if err := series.Record(i, result); err != nil {
			return nil, err
		}

		elapsed := sw.Lap("trial")
		log.Debug().
			Int("trial", i).
			Float64("spot", spot).
			Float64("price", result.Price).
			Float64("delta", result.Delta).
			Float64("gamma", result.Gamma).
			Dur("elapsed", elapsed).
			Msg("Trial complete")

		if c.progress != nil {
			c.progress(i+1, len(spots))
		}
	}

	duration := sw.Elapsed()
	log.Info().Dur("duration", duration).Msg("Batch complete")

	return &Batch{
		Run: models.Run{
			ID:        runID,
			Workflow:  workflow,
			Scheme:    c.scheme.Name(),
			Seed:      c.seed,
			Trials:    len(spots),
			Steps:     c.market.Steps,
			StartedAt: sw.StartedAt(),
			Duration:  duration,
		},
		Series: series,
		Laps:   sw.Laps(),
	}, nil
}

// Linspace returns n evenly spaced values from lower to upper inclusive.
func Linspace(lower, upper float64, n int) []float64 {
	if n <= 0 {
		return nil
	}
	out := make([]float64, n)
	if n == 1 {
		out[0] = lower
		return out
	}
	step := (upper - lower) / float64(n-1)
	for i := range out {
		out[i] = lower + float64(i)*step
	}
	out[n-1] = upper
	return out
}
