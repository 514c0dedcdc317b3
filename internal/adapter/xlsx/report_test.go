package xlsx

import (
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/couchcryptid/deposition-etl/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func ptr(v float64) *float64 { return &v }

func testReport() Report {
	weekly := []domain.Reading{
		{
			ID: "weekly-a", Station: "NY99", Granularity: domain.Weekly, Year: 2018, Month: 3,
			DateOn:     time.Date(2018, 3, 6, 14, 0, 0, 0, time.UTC),
			Precip:     ptr(10),
			NH4:        ptr(0.5),
			NO3:        ptr(0.3),
			Deposition: ptr(0.0456),
		},
		{
			ID: "weekly-b", Station: "NY99", Granularity: domain.Weekly, Year: 2018, Month: 3,
			Precip: ptr(22.1),
		},
	}
	monthly := []domain.Reading{
		{ID: "monthly-a", Station: "NY99", Granularity: domain.Monthly, Year: 2018, Month: 3, Precip: ptr(3.21), Deposition: ptr(0.18)},
	}
	annual := []domain.Reading{
		{
			ID: "annual-a", Station: "NY99", Granularity: domain.Annual, Year: 2018,
			Deposition:  ptr(4.48),
			Criteria:    &domain.Criteria{C1: ptr(82), C2: ptr(96), C3: nil},
			CriteriaMet: false,
		},
	}
	cmp := domain.Compare(weekly, monthly, annual)
	return Report{Weekly: weekly, Monthly: monthly, Annual: annual, Comparison: cmp}
}

func writeTestReport(t *testing.T) *excelize.File {
	t.Helper()
	path := filepath.Join(t.TempDir(), "report.xlsx")
	require.NoError(t, Write(path, testReport()))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	t.Cleanup(func() { f.Close() })
	return f
}

func rawRows(t *testing.T, f *excelize.File, sheet string) [][]string {
	t.Helper()
	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	require.NoError(t, err)
	return rows
}

// column finds a header cell and returns its index.
func column(t *testing.T, header []string, name string) int {
	t.Helper()
	for i, h := range header {
		if h == name {
			return i
		}
	}
	t.Fatalf("column %q not in header %v", name, header)
	return -1
}

func cell(row []string, i int) string {
	if i < len(row) {
		return row[i]
	}
	return ""
}

func TestWrite_Sheets(t *testing.T) {
	f := writeTestReport(t)
	assert.Equal(t, []string{SheetWeekly, SheetMonthly, SheetAnnual, SheetByMonth, SheetByYear}, f.GetSheetList())
}

func TestWrite_WeeklySheet(t *testing.T) {
	rows := rawRows(t, writeTestReport(t), SheetWeekly)
	require.Len(t, rows, 3)

	header := rows[0]
	assert.Equal(t, "id", header[0])

	first := rows[1]
	assert.Equal(t, "weekly-a", first[0])
	assert.Equal(t, "2018-03-06 14:00:00", cell(first, column(t, header, "date_on")))
	assert.Empty(t, cell(first, column(t, header, "date_off")))
	dep, err := strconv.ParseFloat(cell(first, column(t, header, "deposition_kg_ha")), 64)
	require.NoError(t, err)
	assert.InDelta(t, 0.0456, dep, 1e-12)
	assert.Equal(t, "uncensored", cell(first, column(t, header, "flag_nh4")))

	second := rows[2]
	assert.Empty(t, cell(second, column(t, header, "deposition_kg_ha")), "missing deposition is a blank cell")
}

func TestWrite_AnnualSheet(t *testing.T) {
	rows := rawRows(t, writeTestReport(t), SheetAnnual)
	require.Len(t, rows, 2)

	header := rows[0]
	assert.Empty(t, cell(rows[1], column(t, header, "month")))
	assert.Equal(t, "82", cell(rows[1], column(t, header, "criteria1")))
	assert.Empty(t, cell(rows[1], column(t, header, "criteria3")))
	assert.NotContains(t, header, "date_on")
}

func TestWrite_ComparisonSheets(t *testing.T) {
	f := writeTestReport(t)

	byMonth := rawRows(t, f, SheetByMonth)
	require.Len(t, byMonth, 2)
	header := byMonth[0]
	assert.Equal(t, "NY99", byMonth[1][0])
	assert.Equal(t, "1", cell(byMonth[1], column(t, header, "weeks_valid")))
	assert.Equal(t, "2", cell(byMonth[1], column(t, header, "weeks_total")))

	byYear := rawRows(t, f, SheetByYear)
	require.Len(t, byYear, 2)
	header = byYear[0]
	naive, err := strconv.ParseFloat(cell(byYear[1], column(t, header, "naive_annualized_kg_ha")), 64)
	require.NoError(t, err)
	assert.InDelta(t, 0.0456*52, naive, 1e-9)
	met, err := excelize.CoordinatesToCellName(column(t, header, "criteria_met")+1, 2)
	require.NoError(t, err)
	shown, err := f.GetCellValue(SheetByYear, met)
	require.NoError(t, err)
	assert.Equal(t, "FALSE", shown)
}

func TestWrite_BadPath(t *testing.T) {
	err := Write(filepath.Join(t.TempDir(), "missing", "report.xlsx"), testReport())
	assert.Error(t, err)
}
