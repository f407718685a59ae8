package ingest

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/verte-zerg/simdash/internal/model"
)

// FileError attributes a read failure to one input file.
type FileError struct {
	Path string
	Err  error
}

func (e *FileError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

func (e *FileError) Unwrap() error {
	return e.Err
}

// LoadFiles reads every path in order. Files that fail are skipped and
// reported through the joined error; the returned tables are always the
// ones that could be read.
func LoadFiles(logger *slog.Logger, paths []string) ([]model.RawTable, error) {
	if logger == nil {
		logger = slog.Default()
	}
	tables := make([]model.RawTable, 0, len(paths))
	var errs []error
	for _, path := range paths {
		table, err := LoadFile(path)
		if err != nil {
			logger.Warn("skipping unreadable session log", slog.String("file", path), slog.Any("error", err))
			errs = append(errs, err)
			continue
		}
		logger.Debug("loaded session log",
			slog.String("file", path),
			slog.Int("columns", len(table.Columns)),
			slog.Int("rows", len(table.Rows)))
		tables = append(tables, table)
	}
	return tables, errors.Join(errs...)
}

// LoadFile reads a single CSV file.
func LoadFile(path string) (model.RawTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return model.RawTable{}, &FileError{Path: path, Err: err}
	}
	defer func() {
		if cerr := f.Close(); cerr != nil {
			// Best-effort close for read-only input.
			_ = cerr
		}
	}()
	table, err := ReadTable(filepath.Base(path), f)
	if err != nil {
		return model.RawTable{}, &FileError{Path: path, Err: err}
	}
	return table, nil
}

// ExpandPaths replaces directories with the CSV files they contain, sorted by name.
// Other paths are kept as given so read failures are reported per file.
func ExpandPaths(paths []string) ([]string, error) {
	var out []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil || !info.IsDir() {
			out = append(out, p)
			continue
		}
		matches, err := filepath.Glob(filepath.Join(p, "*.csv"))
		if err != nil {
			return nil, fmt.Errorf("failed to list %s: %w", p, err)
		}
		out = append(out, matches...)
	}
	return out, nil
}
