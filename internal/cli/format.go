package cli

import (
	"math"
	"strconv"

	"github.com/montanaflynn/stats"

	"heston-greeks/internal/models"
	"heston-greeks/internal/store"
	"heston-greeks/pkg/utils"
)

// jsonFloat encodes NaN and infinities as null, which encoding/json rejects.
type jsonFloat float64

func (f jsonFloat) MarshalJSON() ([]byte, error) {
	v := float64(f)
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return []byte("null"), nil
	}
	return strconv.AppendFloat(nil, v, 'g', -1, 64), nil
}

func jsonFloats(values []float64) []jsonFloat {
	out := make([]jsonFloat, len(values))
	for i, v := range values {
		out[i] = jsonFloat(v)
	}
	return out
}

// SeriesSummary holds descriptive statistics of one result series.
type SeriesSummary struct {
	Name   string    `json:"name"`
	Mean   jsonFloat `json:"mean"`
	StdDev jsonFloat `json:"std_dev"`
	Min    jsonFloat `json:"min"`
	Max    jsonFloat `json:"max"`
}

// Summarize computes statistics for every persisted series, in file order.
func Summarize(series *models.ResultSeries) []SeriesSummary {
	out := make([]SeriesSummary, 0, len(store.Artifacts))
	for _, artifact := range store.Artifacts {
		out = append(out, summarize(artifact, store.Column(series, artifact)))
	}
	return out
}

func summarize(name string, values []float64) SeriesSummary {
	data := stats.Float64Data(values)
	s := SeriesSummary{Name: name}

	s.Mean = jsonFloat(orNaN(stats.Mean(data)))
	s.Min = jsonFloat(orNaN(stats.Min(data)))
	s.Max = jsonFloat(orNaN(stats.Max(data)))
	if len(values) > 1 {
		s.StdDev = jsonFloat(orNaN(stats.StandardDeviationSample(data)))
	} else {
		s.StdDev = jsonFloat(math.NaN())
	}
	return s
}

func orNaN(v float64, err error) float64 {
	if err != nil {
		return math.NaN()
	}
	return v
}

// seriesHeaders are the column titles of the per-trial table.
var seriesHeaders = []string{"#", "Spot", "Price", "Std Error", "Delta", "Gamma", "Asset Price"}

// seriesRows formats one table row per trial.
func seriesRows(series *models.ResultSeries) [][]string {
	rows := make([][]string, series.Len())
	for i := range rows {
		r := series.At(i)
		rows[i] = []string{
			strconv.Itoa(i),
			utils.FormatFloat(r.Spot, 2),
			utils.FormatFloat(r.Price, 4),
			utils.FormatFloat(r.StdError, 4),
			utils.FormatFloat(r.Delta, 4),
			utils.FormatSci(r.Gamma, 3),
			utils.FormatFloat(r.AssetPrice, 4),
		}
	}
	return rows
}

// summaryRows formats one table row per series.
func summaryRows(summaries []SeriesSummary) [][]string {
	rows := make([][]string, len(summaries))
	for i, s := range summaries {
		rows[i] = []string{
			s.Name,
			utils.FormatSci(float64(s.Mean), 4),
			utils.FormatSci(float64(s.StdDev), 4),
			utils.FormatSci(float64(s.Min), 4),
			utils.FormatSci(float64(s.Max), 4),
		}
	}
	return rows
}

// runLines describes a run for the header box.
func runLines(run models.Run) []string {
	lines := []string{
		"Run:      " + run.ID,
		"Workflow: " + string(run.Workflow),
		"Scheme:   " + string(run.Scheme),
		"Seed:     " + strconv.FormatUint(run.Seed, 10),
		"Paths:    " + utils.FormatCount(int64(run.Paths)) + " (" + string(run.Sampling) + ")",
		"Steps:    " + strconv.Itoa(run.Steps),
		"Trials:   " + strconv.Itoa(run.Trials),
	}
	if run.Scheme == models.SchemeFiniteDifference {
		lines = append(lines, "Bump:     "+utils.FormatSci(run.Bump, 1))
	}
	return lines
}
