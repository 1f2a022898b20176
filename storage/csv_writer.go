package storage

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-gota/gota/dataframe"
)

// WriteListings writes the table to path as CSV with a header row and no index
// column. Intermediate directories are created automatically. On a write error
// the partial file is left in place.
func WriteListings(path string, df dataframe.DataFrame) error {
	if df.Err != nil {
		return fmt.Errorf("csv: refusing to write failed table: %w", df.Err)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("csv: create output dir: %w", err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("csv: create file %q: %w", path, err)
	}

	if err := df.WriteCSV(f); err != nil {
		_ = f.Close()
		return fmt.Errorf("csv: write %q: %w", path, err)
	}
	return f.Close()
}
