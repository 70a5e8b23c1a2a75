// Package store persists result series as flat numeric files and keeps a
// SQLite ledger of completed runs.
package store

import (
	"context"

	"heston-greeks/internal/models"
)

// Artifact names, one file per persisted series.
const (
	ArtifactPrices      = "option_prices"
	ArtifactStdErrors   = "standard_errors"
	ArtifactDeltas      = "deltas"
	ArtifactGammas      = "gammas"
	ArtifactAssetPrices = "asset_prices"
)

// Artifacts lists the persisted series in write order.
var Artifacts = []string{
	ArtifactPrices,
	ArtifactStdErrors,
	ArtifactDeltas,
	ArtifactGammas,
	ArtifactAssetPrices,
}

// SeriesWriter writes the five result series of a run.
type SeriesWriter interface {
	// Write persists every series and returns the paths written, in Artifacts order.
	Write(series *models.ResultSeries) ([]string, error)
}

// RunLedger records completed runs together with their trial rows.
type RunLedger interface {
	SaveRun(ctx context.Context, run models.Run, series *models.ResultSeries) error
	ListRuns(ctx context.Context, filter RunFilter) ([]models.Run, error)
	GetRun(ctx context.Context, id string) (*models.Run, error)
	GetSeries(ctx context.Context, id string) (*models.ResultSeries, error)
	Close() error
}

// RunFilter narrows a ledger listing. Zero values match everything.
type RunFilter struct {
	Workflow models.Workflow
	Scheme   models.SchemeName
	Limit    int
}

// DefaultPrefix returns the file name prefix used for a scheme's series.
func DefaultPrefix(scheme models.SchemeName) string {
	if scheme == models.SchemeMalliavin {
		return "malliavin_"
	}
	return ""
}

// Column returns the values backing an artifact, or nil for an unknown name.
func Column(series *models.ResultSeries, artifact string) []float64 {
	switch artifact {
	case ArtifactPrices:
		return series.Prices
	case ArtifactStdErrors:
		return series.StdErrors
	case ArtifactDeltas:
		return series.Deltas
	case ArtifactGammas:
		return series.Gammas
	case ArtifactAssetPrices:
		return series.AssetPrices
	}
	return nil
}
