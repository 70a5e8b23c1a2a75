package cli

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"

	"heston-greeks/internal/models"
)

// Property: finite values survive a JSON round trip exactly, and non-finite
// values are encoded as null instead of failing the whole document.
func TestProperty_JSONFloat(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("finite floats round-trip", prop.ForAll(
		func(v float64) bool {
			raw, err := json.Marshal(jsonFloat(v))
			if err != nil {
				return false
			}
			var back float64
			if err := json.Unmarshal(raw, &back); err != nil {
				return false
			}
			return back == v
		},
		gen.Float64(),
	))

	properties.TestingRun(t)

	for _, v := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		raw, err := json.Marshal([]jsonFloat{jsonFloat(v)})
		assert.NoError(t, err)
		assert.Equal(t, "[null]", string(raw))
	}
}

// Property: the summary of any non-empty series brackets its mean by its
// minimum and maximum.
func TestProperty_SummaryBounds(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("min <= mean <= max for every series", prop.ForAll(
		func(values []float64) bool {
			series := models.NewResultSeries(len(values))
			for i, v := range values {
				series.Record(i, models.TrialResult{Spot: 100, Price: v, StdError: v / 10, Delta: v / 100, Gamma: v * v, AssetPrice: v + 1})
			}
			for _, s := range Summarize(series) {
				lo, mean, hi := float64(s.Min), float64(s.Mean), float64(s.Max)
				tol := 1e-9 * math.Max(1, math.Abs(mean))
				if mean < lo-tol || mean > hi+tol {
					t.Logf("%s: min=%v mean=%v max=%v", s.Name, lo, mean, hi)
					return false
				}
				if s.StdDev < 0 {
					return false
				}
			}
			return true
		},
		gen.SliceOfN(10, gen.Float64Range(-1e3, 1e3)),
	))

	properties.TestingRun(t)
}

func TestSummarize_SingleValue(t *testing.T) {
	series := models.NewResultSeries(1)
	series.Record(0, models.TrialResult{Price: 2})

	summary := Summarize(series)
	assert.Len(t, summary, 5)
	assert.Equal(t, "option_prices", summary[0].Name)
	assert.Equal(t, jsonFloat(2), summary[0].Mean)
	assert.True(t, math.IsNaN(float64(summary[0].StdDev)))
}

func TestSeriesRows(t *testing.T) {
	series := models.NewResultSeries(2)
	series.Record(0, models.TrialResult{Spot: 80, Price: 1.5, Delta: 0.25, Gamma: 0.001})
	series.Record(1, models.TrialResult{Spot: 120, Price: math.NaN()})

	rows := seriesRows(series)
	assert.Equal(t, []string{"0", "80.00", "1.5000", "0.0000", "0.2500", "1.000e-03", "0.0000"}, rows[0])
	assert.Equal(t, "NaN", rows[1][2])
}
