package ingest

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Supported dataset formats. FormatAuto sniffs from the file extension.
const (
	FormatAuto = "auto"
	FormatXLSX = "xlsx"
	FormatCSV  = "csv"
)

// table is a raw parsed spreadsheet: one header row plus data rows as
// strings. Type coercion happens later, per row, so a single bad cell never
// fails the batch.
type table struct {
	header []string
	rows   [][]string
}

func readTable(path, format string) (*table, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrSourceNotFound, path)
		}
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}

	if format == "" || format == FormatAuto {
		switch strings.ToLower(filepath.Ext(path)) {
		case ".xlsx", ".xlsm":
			format = FormatXLSX
		default:
			format = FormatCSV
		}
	}

	switch format {
	case FormatXLSX:
		return readXLSX(path)
	case FormatCSV:
		return readCSV(path)
	default:
		return nil, fmt.Errorf("unsupported dataset format %q for %s", format, path)
	}
}

func readCSV(path string) (*table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1 // ragged rows handled per cell
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv %s: %w", path, err)
	}
	if len(records) == 0 {
		return &table{}, nil
	}
	return &table{header: records[0], rows: records[1:]}, nil
}

func readXLSX(path string) (*table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open xlsx %s: %w", path, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return &table{}, nil
	}

	// Reports are single-sheet exports; the first sheet carries the data.
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %q of %s: %w", sheets[0], path, err)
	}
	if len(rows) == 0 {
		return &table{}, nil
	}
	return &table{header: rows[0], rows: rows[1:]}, nil
}

// cell returns the value at idx or "" when the row is shorter than the
// header (trailing empty cells are trimmed by both readers).
func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

func rowIsEmpty(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
