package store

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "heston-greeks/internal/errors"
	"heston-greeks/internal/models"
)

func TestFileSeriesWriter_FileNames(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "out")

	paths, err := NewFileSeriesWriter(dir, DefaultPrefix(models.SchemeMalliavin)).Write(seriesFrom([]float64{1, 2}))
	require.NoError(t, err)

	var names []string
	for _, p := range paths {
		names = append(names, filepath.Base(p))
	}
	assert.Equal(t, []string{
		"malliavin_option_prices.csv",
		"malliavin_standard_errors.csv",
		"malliavin_deltas.csv",
		"malliavin_gammas.csv",
		"malliavin_asset_prices.csv",
	}, names)
	assert.Equal(t, "", DefaultPrefix(models.SchemeFiniteDifference))
}

func TestFileSeriesWriter_OneValuePerLineNoHeader(t *testing.T) {
	w := NewFileSeriesWriter(t.TempDir(), "")
	_, err := w.Write(seriesFrom([]float64{1.5, -2.25, 3}))
	require.NoError(t, err)

	raw, err := os.ReadFile(w.Path(ArtifactPrices))
	require.NoError(t, err)
	assert.Equal(t, "1.5\n-2.25\n3\n", string(raw))
}

func TestFileSeriesWriter_Overwrites(t *testing.T) {
	w := NewFileSeriesWriter(t.TempDir(), "")
	_, err := w.Write(seriesFrom([]float64{1, 2, 3, 4}))
	require.NoError(t, err)
	_, err = w.Write(seriesFrom([]float64{9}))
	require.NoError(t, err)

	got, err := ReadValues(w.Path(ArtifactDeltas))
	require.NoError(t, err)
	assert.Equal(t, []float64{9.0 / 1e6}, got)
}

func TestFileSeriesWriter_FailureIsPersistError(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0644))

	_, err := NewFileSeriesWriter(filepath.Join(blocker, "out"), "").Write(seriesFrom([]float64{1}))
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrPersistFailed))

	var pe *apperrors.PersistError
	require.True(t, apperrors.As(err, &pe))
	assert.Equal(t, "output dir", pe.Artifact)
}

func newTestLedger(t *testing.T) *SQLiteLedger {
	t.Helper()
	ledger, err := NewSQLiteLedger(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { ledger.Close() })
	return ledger
}

func TestSQLiteLedger_ListRunsNewestFirst(t *testing.T) {
	ctx := context.Background()
	ledger := newTestLedger(t)

	base := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	var ids []string
	for i := 0; i < 3; i++ {
		run := testRun(uint64(i), 2, i == 1)
		run.StartedAt = base.Add(time.Duration(i) * time.Hour)
		require.NoError(t, ledger.SaveRun(ctx, run, seriesFrom([]float64{1, 2})))
		ids = append(ids, run.ID)
	}

	runs, err := ledger.ListRuns(ctx, RunFilter{})
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.Equal(t, ids[2], runs[0].ID)
	assert.Equal(t, ids[0], runs[2].ID)

	sweeps, err := ledger.ListRuns(ctx, RunFilter{Workflow: models.WorkflowSweep})
	require.NoError(t, err)
	require.Len(t, sweeps, 1)
	assert.Equal(t, ids[1], sweeps[0].ID)

	limited, err := ledger.ListRuns(ctx, RunFilter{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func TestSQLiteLedger_NaNSurvives(t *testing.T) {
	ctx := context.Background()
	ledger := newTestLedger(t)

	series := models.NewResultSeries(1)
	require.NoError(t, series.Record(0, models.TrialResult{Spot: 100, Price: 3, Delta: math.NaN(), Gamma: math.Inf(1)}))
	run := testRun(1, 1, false)
	require.NoError(t, ledger.SaveRun(ctx, run, series))

	got, err := ledger.GetSeries(ctx, run.ID)
	require.NoError(t, err)
	assert.True(t, math.IsNaN(got.Deltas[0]))
	assert.True(t, math.IsInf(got.Gammas[0], 1))
	assert.Equal(t, 3.0, got.Prices[0])
}

func TestSQLiteLedger_MissingRun(t *testing.T) {
	ctx := context.Background()
	ledger := newTestLedger(t)

	_, err := ledger.GetRun(ctx, "nope")
	assert.ErrorIs(t, err, apperrors.ErrDataNotFound)
	_, err = ledger.GetSeries(ctx, "nope")
	assert.ErrorIs(t, err, apperrors.ErrDataNotFound)
}

func TestSQLiteLedger_DuplicateRunFails(t *testing.T) {
	ctx := context.Background()
	ledger := newTestLedger(t)

	run := testRun(7, 1, false)
	require.NoError(t, ledger.SaveRun(ctx, run, seriesFrom([]float64{1})))
	err := ledger.SaveRun(ctx, run, seriesFrom([]float64{1}))
	assert.ErrorIs(t, err, apperrors.ErrPersistFailed)
	assert.NotErrorIs(t, err, apperrors.ErrDatabaseError, "constraint failures are not transient")
}

func TestTransient(t *testing.T) {
	for _, code := range []sqlite3.ErrNo{sqlite3.ErrBusy, sqlite3.ErrLocked} {
		err := apperrors.NewPersistError("ledger", "r", transient(sqlite3.Error{Code: code}))
		assert.ErrorIs(t, err, apperrors.ErrDatabaseError, "code %d", int(code))
		assert.ErrorIs(t, err, apperrors.ErrPersistFailed, "code %d", int(code))
	}

	constraint := sqlite3.Error{Code: sqlite3.ErrConstraint}
	assert.NotErrorIs(t, transient(constraint), apperrors.ErrDatabaseError)
	assert.NotErrorIs(t, transient(errors.New("disk full")), apperrors.ErrDatabaseError)
}
