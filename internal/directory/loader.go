package directory

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/parquet-go/parquet-go"
)

// Loader reads barcode files into a Directory.
type Loader struct {
	path string
}

// NewLoader creates a loader for a barcode file (.csv, .txt or .parquet).
func NewLoader(path string) *Loader {
	return &Loader{
		path: path,
	}
}

// LoadInto adds every valid entry of the file to dir and returns how many
// were added. Invalid lines are logged and skipped.
func (l *Loader) LoadInto(dir *Directory) (int, error) {
	entries, err := l.Load()
	if err != nil {
		return 0, err
	}
	for _, e := range entries {
		dir.Set(e.Barcode, e.CustomerCode)
	}
	slog.Info("Barcodes loaded", "path", l.path, "entries", len(entries), "directory_size", dir.Len())
	return len(entries), nil
}

// Load returns the valid entries of the file in file order.
func (l *Loader) Load() ([]Entry, error) {
	ext := strings.ToLower(filepath.Ext(l.path))

	switch ext {
	case ".parquet":
		return l.loadParquet()
	case ".csv", ".txt", "":
		return l.loadCSV()
	default:
		return nil, fmt.Errorf("unsupported file format: %s (supported: .csv, .txt, .parquet)", ext)
	}
}

// loadCSV reads "barcode,CC" lines. Lines without both values are ignored.
func (l *Loader) loadCSV() ([]Entry, error) {
	slog.Debug("Opening barcode file", "path", l.path)

	file, err := os.Open(l.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open barcode file: %w", err)
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true
	r.ReuseRecord = true

	var entries []Entry
	lineNum := 0
	for {
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		lineNum++
		if err != nil {
			slog.Warn("Error loading barcode", "line", lineNum, "err", err)
			continue
		}
		if len(row) < 2 || row[0] == "" || row[1] == "" {
			continue
		}

		e := Entry{Barcode: strings.TrimSpace(row[0]), CustomerCode: strings.TrimSpace(row[1])}
		if err := e.Validate(); err != nil {
			slog.Warn("Error loading barcode", "line", lineNum, "err", err)
			continue
		}
		entries = append(entries, e)

		if lineNum%100000 == 0 {
			slog.Debug("Reading barcode file", "lines_read", lineNum)
		}
	}

	slog.Debug("Finished reading barcode file", "total_entries", len(entries), "total_lines", lineNum)

	return entries, nil
}

// loadParquet reads barcode and customer_code columns.
func (l *Loader) loadParquet() ([]Entry, error) {
	slog.Debug("Opening Parquet file", "path", l.path)

	file, err := os.Open(l.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	pf, err := parquet.OpenFile(file, info.Size())
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet: %w", err)
	}

	slog.Debug("Parquet file opened successfully", "num_rows", pf.NumRows(), "num_row_groups", len(pf.RowGroups()))

	reader := parquet.NewGenericReader[Entry](pf)
	defer reader.Close()

	var entries []Entry
	rows := make([]Entry, 1024)
	total := 0

	for {
		n, err := reader.Read(rows)
		for _, e := range rows[:n] {
			total++
			e.Barcode = strings.TrimSpace(e.Barcode)
			e.CustomerCode = strings.TrimSpace(e.CustomerCode)
			if verr := e.Validate(); verr != nil {
				slog.Warn("Error loading barcode", "row", total, "err", verr)
				continue
			}
			entries = append(entries, e)
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				return nil, fmt.Errorf("failed to read parquet rows: %w", err)
			}
			break
		}
	}

	slog.Debug("Finished reading Parquet file", "total_entries", len(entries), "total_rows", total)

	return entries, nil
}
