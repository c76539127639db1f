package store

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/SaugatPaudel/Nepal-Landslide-Susceptibility-Mapping/internal/rainfall"
)

// WriteTable persists a rainfall sub-table as a CSV artifact, atomically.
func WriteTable(path string, t *rainfall.Table, schema rainfall.Schema) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating table directory: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp table file: %w", err)
	}
	defer func() {
		tmp.Close()
		os.Remove(tmp.Name())
	}()

	if err := t.WriteCSV(tmp, schema); err != nil {
		return fmt.Errorf("writing table %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing table %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("publishing table %s: %w", path, err)
	}
	return nil
}

// ReadTable loads a rainfall CSV from disk.
func ReadTable(path string, schema rainfall.Schema) (*rainfall.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening table %s: %w", path, err)
	}
	defer f.Close()
	return rainfall.ParseTable(f, schema)
}
