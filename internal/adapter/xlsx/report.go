// Package xlsx writes the derived readings and the roll-up comparison of a run
// to a spreadsheet workbook.
package xlsx

import (
	"fmt"
	"time"

	"github.com/couchcryptid/deposition-etl/internal/domain"
	"github.com/xuri/excelize/v2"
)

// Sheet names, in workbook order.
const (
	SheetWeekly  = "weekly"
	SheetMonthly = "monthly"
	SheetAnnual  = "annual"
	SheetByMonth = "by_month"
	SheetByYear  = "by_year"
)

const dateLayout = "2006-01-02 15:04:05"

// Report is everything the workbook shows for one run.
type Report struct {
	Weekly     []domain.Reading
	Monthly    []domain.Reading
	Annual     []domain.Reading
	Comparison domain.Comparison
}

var (
	readingHeader = []any{
		"id", "station", "year", "month",
	}
	weeklyHeader = append(append([]any{}, readingHeader...),
		"date_on", "date_off", "precip_mm", "trace_precip")
	monthlyHeader = append(append([]any{}, readingHeader...), "precip_cm")
	annualHeader  = append(append([]any{}, readingHeader...), "precip_cm")

	derivedHeader = []any{
		"nh4_mg_l", "no3_mg_l", "flag_nh4", "flag_no3",
		"nh4_n_kg_m3", "no3_n_kg_m3", "total_n_kg_m3",
		"deposition_kg_ha", "censored", "log1p_deposition",
	}
	criteriaHeader = []any{"criteria1", "criteria2", "criteria3", "criteria_met"}

	byMonthHeader = []any{
		"station", "year", "month",
		"weekly_sum_kg_ha", "weeks_valid", "weeks_total", "weeks_censored", "weekly_precip_cm",
		"monthly_kg_ha", "monthly_precip_cm", "diff_kg_ha",
	}
	byYearHeader = []any{
		"station", "year",
		"weekly_sum_kg_ha", "weeks_valid", "naive_annualized_kg_ha",
		"monthly_sum_kg_ha", "months_valid",
		"annual_kg_ha", "criteria_met",
		"weekly_diff_kg_ha", "monthly_diff_kg_ha",
	}
)

// Write saves the report as an xlsx workbook at path.
func Write(path string, rep Report) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetWeekly); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	for _, name := range []string{SheetMonthly, SheetAnnual, SheetByMonth, SheetByYear} {
		if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("write report: %w", err)
		}
	}

	sheets := []struct {
		name string
		rows [][]any
	}{
		{SheetWeekly, readingRows(domain.Weekly, rep.Weekly)},
		{SheetMonthly, readingRows(domain.Monthly, rep.Monthly)},
		{SheetAnnual, readingRows(domain.Annual, rep.Annual)},
		{SheetByMonth, byMonthRows(rep.Comparison.Months)},
		{SheetByYear, byYearRows(rep.Comparison.Years)},
	}
	for _, s := range sheets {
		if err := writeRows(f, s.name, s.rows); err != nil {
			return fmt.Errorf("write report sheet %s: %w", s.name, err)
		}
	}

	if err := f.SetDocProps(&excelize.DocProperties{
		Title:   "Nitrogen deposition comparison",
		Created: rep.Comparison.GeneratedAt.Format(time.RFC3339),
	}); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save report %s: %w", path, err)
	}
	return nil
}

func writeRows(f *excelize.File, sheet string, rows [][]any) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}
	return nil
}

func readingRows(g domain.Granularity, readings []domain.Reading) [][]any {
	var header []any
	switch g {
	case domain.Weekly:
		header = weeklyHeader
	case domain.Monthly:
		header = monthlyHeader
	default:
		header = annualHeader
	}
	header = append(append([]any{}, header...), derivedHeader...)
	if g == domain.Annual {
		header = append(header, criteriaHeader...)
	}

	rows := make([][]any, 0, len(readings)+1)
	rows = append(rows, header)
	for _, r := range readings {
		row := []any{r.ID, r.Station, r.Year, month(r.Month)}
		if g == domain.Weekly {
			row = append(row, date(r.DateOn), date(r.DateOff), value(r.Precip), r.TracePrecip)
		} else {
			row = append(row, value(r.Precip))
		}
		row = append(row,
			value(r.NH4), value(r.NO3), r.FlagNH4.String(), r.FlagNO3.String(),
			value(r.NH4N), value(r.NO3N), value(r.TotalN),
			value(r.Deposition), r.Censored, value(r.Log1pDeposition),
		)
		if g == domain.Annual {
			var c domain.Criteria
			if r.Criteria != nil {
				c = *r.Criteria
			}
			row = append(row, value(c.C1), value(c.C2), value(c.C3), r.CriteriaMet)
		}
		rows = append(rows, row)
	}
	return rows
}

func byMonthRows(months []domain.MonthComparison) [][]any {
	rows := make([][]any, 0, len(months)+1)
	rows = append(rows, byMonthHeader)
	for _, m := range months {
		rows = append(rows, []any{
			m.Key.Station, m.Key.Year, m.Key.Month,
			value(m.Weekly.Value()), m.Weekly.Valid, m.Weekly.Total, m.Weekly.Censored, m.Weekly.PrecipCM,
			value(m.Monthly.Value()), m.Monthly.PrecipCM, value(m.Diff),
		})
	}
	return rows
}

func byYearRows(years []domain.YearComparison) [][]any {
	rows := make([][]any, 0, len(years)+1)
	rows = append(rows, byYearHeader)
	for _, y := range years {
		rows = append(rows, []any{
			y.Key.Station, y.Key.Year,
			value(y.Weekly.Value()), y.Weekly.Valid, value(y.NaiveAnnualized),
			value(y.Monthly.Value()), y.Monthly.Valid,
			value(y.Annual.Value()), y.CriteriaMet,
			value(y.WeeklyDiff), value(y.MonthlyDiff),
		})
	}
	return rows
}

// value leaves missing numbers as blank cells.
func value(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}

func month(m int) any {
	if m == 0 {
		return nil
	}
	return m
}

func date(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.Format(dateLayout)
}
