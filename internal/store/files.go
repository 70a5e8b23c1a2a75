package store

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gocarina/gocsv"

	apperrors "heston-greeks/internal/errors"
	"heston-greeks/internal/models"
)

// valueRow is one line of a series file.
type valueRow struct {
	Value float64 `csv:"value"`
}

// FileSeriesWriter writes each series to <dir>/<prefix><artifact>.csv, one
// value per line with no header. Existing files are overwritten.
type FileSeriesWriter struct {
	dir    string
	prefix string
}

// NewFileSeriesWriter creates a writer rooted at dir.
func NewFileSeriesWriter(dir, prefix string) *FileSeriesWriter {
	return &FileSeriesWriter{dir: dir, prefix: prefix}
}

// Path returns the file an artifact is written to.
func (w *FileSeriesWriter) Path(artifact string) string {
	return filepath.Join(w.dir, w.prefix+artifact+".csv")
}

// Write persists all five series. The first failure aborts the write.
func (w *FileSeriesWriter) Write(series *models.ResultSeries) ([]string, error) {
	if series == nil {
		return nil, apperrors.NewPersistError("series", w.dir, apperrors.ErrEmptyBatch)
	}
	if err := os.MkdirAll(w.dir, 0755); err != nil {
		return nil, apperrors.NewPersistError("output dir", w.dir, err)
	}

	paths := make([]string, 0, len(Artifacts))
	for _, artifact := range Artifacts {
		path := w.Path(artifact)
		if err := writeValues(path, Column(series, artifact)); err != nil {
			return paths, apperrors.NewPersistError(artifact, path, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func writeValues(path string, values []float64) error {
	rows := make([]valueRow, len(values))
	for i, v := range values {
		rows[i].Value = v
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := gocsv.MarshalWithoutHeaders(&rows, f); err != nil {
		f.Close()
		return fmt.Errorf("failed to write values: %w", err)
	}
	return f.Close()
}

// ReadValues loads a series file written by FileSeriesWriter.
func ReadValues(path string) ([]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var rows []valueRow
	if err := gocsv.UnmarshalWithoutHeaders(f, &rows); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	values := make([]float64, len(rows))
	for i, r := range rows {
		values[i] = r.Value
	}
	return values, nil
}
