package models

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "heston-greeks/internal/errors"
)

func TestResultSeries_RecordOnce(t *testing.T) {
	s := NewResultSeries(2)
	require.False(t, s.Complete())

	require.NoError(t, s.Record(1, TrialResult{Spot: 100, Price: 2, Delta: 0.3}))
	assert.False(t, s.Complete())
	assert.ErrorIs(t, s.Record(1, TrialResult{}), apperrors.ErrTrialAlreadyRecorded)
	assert.Equal(t, 2.0, s.At(1).Price, "rejected write must not overwrite")

	assert.ErrorIs(t, s.Record(2, TrialResult{}), apperrors.ErrTrialOutOfRange)
	assert.ErrorIs(t, s.Record(-1, TrialResult{}), apperrors.ErrTrialOutOfRange)

	require.NoError(t, s.Record(0, TrialResult{}))
	assert.True(t, s.Complete())
}

// Property: whatever order trials are recorded in, reading index i returns
// the result recorded for i in all five series.
func TestProperty_ResultSeriesAlignment(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("series stay index-aligned", prop.ForAll(
		func(n int, stride int) bool {
			s := NewResultSeries(n)
			// stride is odd and n a power of two, so i*stride visits every index once.
			for k := 0; k < n; k++ {
				i := (k * stride) % n
				f := float64(i)
				if err := s.Record(i, TrialResult{Spot: f, Price: f + 1, StdError: f + 2, Delta: f + 3, Gamma: f + 4, AssetPrice: f + 5}); err != nil {
					return false
				}
			}
			for i := 0; i < n; i++ {
				r := s.At(i)
				f := float64(i)
				if r.Spot != f || r.Price != f+1 || r.StdError != f+2 || r.Delta != f+3 || r.Gamma != f+4 || r.AssetPrice != f+5 {
					return false
				}
			}
			return s.Complete()
		},
		gen.IntRange(0, 7).Map(func(e int) int { return 1 << e }),
		gen.IntRange(0, 50).Map(func(k int) int { return 2*k + 1 }),
	))

	properties.TestingRun(t)
}

func TestOptionContract_Payoff(t *testing.T) {
	call := NewOptionContract(120, 2, SideBuy, OptionCall, 100, 2)
	assert.Equal(t, 0.0, call.Payoff(110))
	assert.Equal(t, 20.0, call.Payoff(130))

	shortPut := NewOptionContract(120, 1, SideSell, OptionPut, 100, 2)
	assert.Equal(t, -10.0, shortPut.Payoff(110))
	assert.Equal(t, 0.0, shortPut.Payoff(130))

	assert.Equal(t, "BUY CALL K=120 T=2 x2", call.String())
}

func TestParsers(t *testing.T) {
	side, err := ParseSide(" sell ")
	require.NoError(t, err)
	assert.Equal(t, SideSell, side)
	assert.Equal(t, -1.0, side.Sign())

	kind, err := ParseOptionKind("put")
	require.NoError(t, err)
	assert.Equal(t, OptionPut, kind)

	mode, err := ParseSamplingMode("antithetic")
	require.NoError(t, err)
	assert.Equal(t, SamplingAntithetic, mode)

	scheme, err := ParseSchemeName("finite-difference")
	require.NoError(t, err)
	assert.Equal(t, SchemeFiniteDifference, scheme)

	for _, bad := range []func() error{
		func() error { _, err := ParseSide("hold"); return err },
		func() error { _, err := ParseOptionKind("digital"); return err },
		func() error { _, err := ParseSamplingMode("sobol"); return err },
		func() error { _, err := ParseSchemeName("pathwise"); return err },
	} {
		assert.Error(t, bad())
	}
}

func TestStepsFor(t *testing.T) {
	assert.Equal(t, 64, StepsFor(2.0, 1.0/32))
	assert.Equal(t, 4, StepsFor(1.0, 0.25))
}

func TestFellerSatisfied(t *testing.T) {
	assert.False(t, SimulationParameters{MeanReversion: 0.5, LongRunVariance: 0.05, VolOfVol: 1.1}.FellerSatisfied())
	assert.True(t, SimulationParameters{MeanReversion: 2, LongRunVariance: 0.05, VolOfVol: 0.3}.FellerSatisfied())
}

func TestPathBatch(t *testing.T) {
	b := NewPathBatch(2, 3)
	copy(b.Path(1), []float64{100, 101, 102, 103})
	assert.Equal(t, 103.0, b.Terminal(1))
	assert.Equal(t, []float64{0, 103}, b.Terminals())

	other := NewPathBatch(2, 3)
	assert.False(t, b.Equal(other))
	copy(other.Path(1), b.Path(1))
	assert.True(t, b.Equal(other))
}
