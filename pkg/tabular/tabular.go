// Package tabular reads header-keyed rows from CSV and XLSX uploads.
package tabular

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Format is a supported spreadsheet encoding.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// MaxRows bounds the data rows read from one file.
const MaxRows = 5000

var (
	ErrUnsupportedFormat = errors.New("unsupported file format, use .csv or .xlsx")
	ErrNoHeader          = errors.New("file has no header row")
	ErrTooManyRows       = fmt.Errorf("file has more than %d data rows", MaxRows)
)

// FormatOf picks the format from a file name's extension.
func FormatOf(filename string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), ".")) {
	case "csv":
		return FormatCSV, nil
	case "xlsx":
		return FormatXLSX, nil
	default:
		return "", ErrUnsupportedFormat
	}
}

// Row is one data row. Line is its 1-based position in the source, counting
// the header row.
type Row struct {
	Line   int
	values map[string]string
}

// Get returns the trimmed cell under header key. Keys match case-insensitively
// and ignore spaces, underscores and dashes, so "networkGroupCode" and
// "network_group_code" name the same column.
func (r Row) Get(key string) string {
	return r.values[normalizeKey(key)]
}

func normalizeKey(k string) string {
	k = strings.TrimPrefix(k, "\ufeff")
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '_', '-':
			return -1
		}
		return r
	}, strings.ToLower(strings.TrimSpace(k)))
}

// record is one source row and its 1-based line number.
type record struct {
	line  int
	cells []string
}

// Read parses every non-blank data row of the first sheet (XLSX) or the whole
// file (CSV). The first non-blank record is the header.
func Read(format Format, r io.Reader) ([]Row, error) {
	var records []record
	var err error
	switch format {
	case FormatCSV:
		records, err = readCSV(r)
	case FormatXLSX:
		records, err = readXLSX(r)
	default:
		return nil, ErrUnsupportedFormat
	}
	if err != nil {
		return nil, err
	}
	return toRows(records)
}

func readCSV(r io.Reader) ([]record, error) {
	rd := csv.NewReader(r)
	rd.FieldsPerRecord = -1
	rd.TrimLeadingSpace = true

	var records []record
	for {
		cells, err := rd.Read()
		if errors.Is(err, io.EOF) {
			return records, nil
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse csv: %w", err)
		}
		line, _ := rd.FieldPos(0)
		records = append(records, record{line: line, cells: cells})
	}
}

func readXLSX(r io.Reader) ([]record, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrNoHeader
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheets[0], err)
	}

	records := make([]record, len(rows))
	for i, cells := range rows {
		records[i] = record{line: i + 1, cells: cells}
	}
	return records, nil
}

func blank(cells []string) bool {
	for _, v := range cells {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

func toRows(records []record) ([]Row, error) {
	var header []string
	var rows []Row
	for _, rec := range records {
		if blank(rec.cells) {
			continue
		}
		if header == nil {
			header = make([]string, len(rec.cells))
			for j, h := range rec.cells {
				header[j] = normalizeKey(h)
			}
			continue
		}
		if len(rows) == MaxRows {
			return nil, ErrTooManyRows
		}

		values := make(map[string]string, len(header))
		for j, key := range header {
			if key == "" || j >= len(rec.cells) {
				continue
			}
			values[key] = strings.TrimSpace(rec.cells[j])
		}
		rows = append(rows, Row{Line: rec.line, values: values})
	}
	if header == nil {
		return nil, ErrNoHeader
	}
	return rows, nil
}
