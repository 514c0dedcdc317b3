package tabular

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/couchcryptid/deposition-etl/internal/domain"
	"github.com/xuri/excelize/v2"
)

// ErrUnsupportedFormat is returned for input files that are neither csv nor xlsx.
var ErrUnsupportedFormat = errors.New("unsupported file format")

var errEmptyTable = errors.New("table has no header row")

// utf8BOM is stripped from the first header cell of spreadsheet exports.
const utf8BOM = "\ufeff"

// Table is one input file split into a normalised header and data rows.
type Table struct {
	Granularity domain.Granularity
	Source      string
	Header      []string
	Records     []domain.RawRecord
}

// MissingColumns lists the required columns for the table's granularity that
// the header lacks.
func (t *Table) MissingColumns() []string {
	var missing []string
	for _, col := range domain.RequiredColumns(t.Granularity) {
		if !slices.Contains(t.Header, col) {
			missing = append(missing, col)
		}
	}
	return missing
}

// ReadFile reads a csv or xlsx file holding rows of granularity g. Header
// cells are trimmed and lower-cased; rows with no content are skipped.
func ReadFile(path string, g domain.Granularity) (*Table, error) {
	var (
		rows [][]string
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		rows, err = readCSV(path)
	case ".xlsx":
		rows, err = readXLSX(path, g)
	default:
		return nil, fmt.Errorf("read %s: %w", path, ErrUnsupportedFormat)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	t, err := newTable(path, g, rows)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return t, nil
}

func readCSV(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	var rows [][]string
	for {
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			return rows, nil
		}
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
}

// readXLSX reads the sheet named after the granularity when present, and the
// first sheet otherwise.
func readXLSX(path string, g domain.Granularity) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errEmptyTable
	}
	sheet := sheets[0]
	for _, name := range sheets {
		if strings.EqualFold(name, g.String()) {
			sheet = name
			break
		}
	}
	return f.GetRows(sheet)
}

func newTable(path string, g domain.Granularity, rows [][]string) (*Table, error) {
	if len(rows) == 0 {
		return nil, errEmptyTable
	}

	header := make([]string, len(rows[0]))
	for i, cell := range rows[0] {
		header[i] = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(cell, utf8BOM)))
	}

	t := &Table{
		Granularity: g,
		Source:      filepath.Base(path),
		Header:      header,
		Records:     make([]domain.RawRecord, 0, len(rows)-1),
	}
	for i, row := range rows[1:] {
		if blank(row) {
			continue
		}
		fields := make(map[string]string, len(header))
		for j, col := range header {
			if col == "" {
				continue
			}
			// Short rows leave trailing columns blank.
			if j < len(row) {
				fields[col] = row[j]
			} else {
				fields[col] = ""
			}
		}
		t.Records = append(t.Records, domain.RawRecord{
			Granularity: g,
			Source:      t.Source,
			Line:        i + 1,
			Fields:      fields,
		})
	}
	return t, nil
}

func blank(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
