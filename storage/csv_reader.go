package storage

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	"basic-cleaning/models"
)

// ReadListings loads a listings CSV into memory. Every column is kept as text so
// passthrough columns are written back exactly as they were read. A file with a
// header and no data rows yields an empty table.
func ReadListings(path string) (dataframe.DataFrame, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return dataframe.DataFrame{}, &models.ParseError{Path: path, Err: err}
	}

	df := dataframe.ReadCSV(bytes.NewReader(data),
		dataframe.HasHeader(true),
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
		dataframe.NaNValues(nil),
	)
	if df.Err != nil {
		empty, ok := headerOnly(data)
		if !ok {
			return dataframe.DataFrame{}, &models.ParseError{Path: path, Err: df.Err}
		}
		df = empty
	}

	if err := requireColumns(df, models.RequiredColumns); err != nil {
		return dataframe.DataFrame{}, &models.ParseError{Path: path, Err: err}
	}
	return df, nil
}

// headerOnly builds a zero-row table when data holds exactly one well-formed
// record. gota refuses to load such files.
func headerOnly(data []byte) (dataframe.DataFrame, bool) {
	records, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	if err != nil || len(records) != 1 {
		return dataframe.DataFrame{}, false
	}

	cols := make([]series.Series, len(records[0]))
	for i, name := range records[0] {
		cols[i] = series.New([]string{}, series.String, name)
	}
	df := dataframe.New(cols...)
	if df.Err != nil {
		return dataframe.DataFrame{}, false
	}
	return df, true
}

func requireColumns(df dataframe.DataFrame, cols []string) error {
	have := make(map[string]struct{}, df.Ncol())
	for _, name := range df.Names() {
		have[name] = struct{}{}
	}
	for _, col := range cols {
		if _, ok := have[col]; !ok {
			return fmt.Errorf("missing required column %q", col)
		}
	}
	return nil
}
