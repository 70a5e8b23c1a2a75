package cli

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"heston-greeks/internal/config"
	apperrors "heston-greeks/internal/errors"
	"heston-greeks/internal/models"
	"heston-greeks/internal/store"
)

// reportJSON mirrors batchReport for decoding.
type reportJSON struct {
	Run     models.Run           `json:"run"`
	Files   []string             `json:"files"`
	Series  map[string][]float64 `json:"series"`
	Spots   []float64            `json:"spots"`
	Summary []struct {
		Name string   `json:"name"`
		Mean *float64 `json:"mean"`
	} `json:"summary"`
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default(dir)
	cfg.Simulation.Paths = 200
	cfg.Simulation.Trials = 3
	cfg.Sweep.Points = 5
	cfg.Output.Dir = filepath.Join(dir, "out")
	cfg.Logging.File = false
	cfg.Logging.Console = false
	return cfg
}

func execute(t *testing.T, cfg *config.Config, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd(cfg, zerolog.Nop())
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func decodeReport(t *testing.T, raw string) reportJSON {
	t.Helper()
	var r reportJSON
	require.NoError(t, json.Unmarshal([]byte(raw), &r), raw)
	return r
}

func TestRunTrials_WritesFilesAndLedger(t *testing.T) {
	cfg := testConfig(t)

	out, err := execute(t, cfg, "run", "trials", "--json")
	require.NoError(t, err)
	report := decodeReport(t, out)

	assert.Equal(t, models.WorkflowTrials, report.Run.Workflow)
	assert.Equal(t, models.SchemeFiniteDifference, report.Run.Scheme)
	assert.Equal(t, 200, report.Run.Paths)
	assert.Equal(t, 64, report.Run.Steps)
	assert.Len(t, report.Series[store.ArtifactPrices], 3)
	assert.Equal(t, []float64{100, 100, 100}, report.Spots)

	require.Len(t, report.Files, 5)
	assert.Equal(t, filepath.Join(cfg.Output.Dir, "option_prices.csv"), report.Files[0])
	deltas, err := store.ReadValues(filepath.Join(cfg.Output.Dir, "deltas.csv"))
	require.NoError(t, err)
	assert.Equal(t, report.Series[store.ArtifactDeltas], deltas)

	out, err = execute(t, cfg, "history", "list", "--json")
	require.NoError(t, err)
	var runs []models.Run
	require.NoError(t, json.Unmarshal([]byte(out), &runs))
	require.Len(t, runs, 1)
	assert.Equal(t, report.Run.ID, runs[0].ID)

	out, err = execute(t, cfg, "history", "show", report.Run.ID, "--json")
	require.NoError(t, err)
	shown := decodeReport(t, out)
	assert.Equal(t, report.Series, shown.Series)
}

func TestRunTrials_SameSeedSameSeries(t *testing.T) {
	cfg := testConfig(t)

	first, err := execute(t, cfg, "run", "trials", "--json", "--no-ledger", "--seed", "7")
	require.NoError(t, err)
	second, err := execute(t, cfg, "run", "trials", "--json", "--no-ledger", "--seed", "7")
	require.NoError(t, err)

	a, b := decodeReport(t, first), decodeReport(t, second)
	assert.Equal(t, a.Series, b.Series)
	assert.Equal(t, uint64(7), a.Run.Seed)
	// Trials consume successive blocks of the stream.
	assert.NotEqual(t, a.Series[store.ArtifactPrices][0], a.Series[store.ArtifactPrices][1])
}

func TestRunSweep_Malliavin(t *testing.T) {
	cfg := testConfig(t)

	out, err := execute(t, cfg, "run", "sweep", "--json", "--scheme", "malliavin",
		"--lower", "90", "--upper", "110", "--points", "3", "--no-ledger")
	require.NoError(t, err)
	report := decodeReport(t, out)

	assert.Equal(t, []float64{90, 100, 110}, report.Spots)
	assert.Equal(t, models.SchemeMalliavin, report.Run.Scheme)
	assert.Equal(t, filepath.Join(cfg.Output.Dir, "malliavin_gammas.csv"), report.Files[3])

	prices := report.Series[store.ArtifactPrices]
	assert.LessOrEqual(t, prices[0], prices[1])
	assert.LessOrEqual(t, prices[1], prices[2])

	out, err = execute(t, cfg, "history", "list", "--json")
	require.NoError(t, err)
	assert.Equal(t, "null\n", out)
}

func TestRun_InvalidOverrides(t *testing.T) {
	cfg := testConfig(t)

	_, err := execute(t, cfg, "run", "trials", "--bump", "0")
	assert.ErrorIs(t, err, apperrors.ErrConfigInvalid)

	_, err = execute(t, cfg, "run", "trials", "--paths", "201")
	assert.ErrorIs(t, err, apperrors.ErrConfigInvalid)

	_, err = execute(t, cfg, "run", "trials", "--scheme", "pathwise")
	assert.Error(t, err)
}

func TestRun_TableOutput(t *testing.T) {
	cfg := testConfig(t)

	out, err := execute(t, cfg, "run", "trials", "--no-ledger", "--trials", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "Heston Greeks")
	assert.Contains(t, out, "Std Error")
	assert.Contains(t, out, "standard_errors")
	assert.Contains(t, out, "Execution time")
}

func TestHistory_UnknownRun(t *testing.T) {
	_, err := execute(t, testConfig(t), "history", "show", "missing")
	assert.ErrorIs(t, err, apperrors.ErrDataNotFound)
}

func TestHistory_Export(t *testing.T) {
	cfg := testConfig(t)

	out, err := execute(t, cfg, "run", "trials", "--json")
	require.NoError(t, err)
	report := decodeReport(t, out)

	dir := filepath.Join(t.TempDir(), "export")
	_, err = execute(t, cfg, "history", "export", report.Run.ID, "--out", dir)
	require.NoError(t, err)

	prices, err := store.ReadValues(filepath.Join(dir, "option_prices.csv"))
	require.NoError(t, err)
	assert.Equal(t, report.Series[store.ArtifactPrices], prices)
}

func TestConfigAndVersionCommands(t *testing.T) {
	cfg := testConfig(t)

	out, err := execute(t, cfg, "config", "validate", "--json")
	require.NoError(t, err)
	assert.JSONEq(t, `{"valid": true}`, out)

	out, err = execute(t, cfg, "config", "path", "--config", "/tmp/hg")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/tmp/hg", "config.toml")+"\n", out)

	out, err = execute(t, cfg, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "Feller condition violated")

	out, err = execute(t, cfg, "version")
	require.NoError(t, err)
	assert.Contains(t, out, Version)
}
