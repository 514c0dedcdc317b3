package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/couchcryptid/deposition-etl/internal/adapter/tabular"
	"github.com/couchcryptid/deposition-etl/internal/config"
	"github.com/couchcryptid/deposition-etl/internal/domain"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var errValidationFailed = errors.New("validation failed")

// calendarColumns hold the period key of a row.
var calendarColumns = map[string]bool{
	domain.ColYrMonth: true,
	domain.ColYear:    true,
	domain.ColDateOn:  true,
	domain.ColDateOff: true,
}

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
	notes  []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) notef(format string, args ...any) {
	p.notes = append(p.notes, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func getValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check the input files without converting them",
		Long: `Run integrity checks over the configured input files.

Phases:
  1. Headers:         every required column is present
  2. Numeric values:  values parse and negatives are documented sentinels
  3. Calendar keys:   yrmonth, yr and sample dates are well formed
  4. Annual criteria: completeness percentages lie within 0-100

Each phase prints PASS or FAIL; the command exits 1 when any phase fails.

Examples:
  deposition validate --weekly data/NY99_weekly.csv --annual data/NY99_annual.xlsx`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(cmd.OutOrStdout(), getConfig())
		},
	}
}

func runValidate(out io.Writer, cfg *config.Config) error {
	fmt.Fprintln(out, "=== Deposition Input Validation ===")
	fmt.Fprintln(out)

	paths := tabular.Paths{Weekly: cfg.WeeklyPath, Monthly: cfg.MonthlyPath, Annual: cfg.AnnualPath}
	var tables []*tabular.Table
	for _, g := range domain.Granularities {
		path := paths.For(g)
		if path == "" {
			continue
		}
		t, err := tabular.ReadFile(path, g)
		if err != nil {
			fmt.Fprintf(out, "FATAL: %v\n", err)
			return err
		}
		tables = append(tables, t)
	}
	if len(tables) == 0 {
		return tabular.ErrNoInput
	}

	headers := validateHeaders(tables)
	numeric, calendar := validateRows(tables)
	phases := []*phase{
		headers,
		numeric,
		calendar,
		validateCriteria(tables, cfg.Thresholds()),
	}

	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Fprintf(out, "  %-42s %s\n", p.name, status)
	}

	fmt.Fprintln(out)
	counts := make([]string, 0, len(tables))
	for _, t := range tables {
		counts = append(counts, fmt.Sprintf("%s %s", humanize.Comma(int64(len(t.Records))), t.Granularity))
	}
	fmt.Fprintf(out, "Records: %s\n", strings.Join(counts, ", "))

	for _, p := range phases {
		for _, n := range p.notes {
			fmt.Fprintf(out, "  Note: %s\n", n)
		}
	}

	// Print detailed errors.
	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Fprintf(out, "\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Fprintf(out, "  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Fprintln(out, "\nAll validations passed.")
		return nil
	}
	fmt.Fprintln(out, "\nValidation FAILED.")
	return errValidationFailed
}

func validateHeaders(tables []*tabular.Table) *phase {
	p := &phase{name: "Headers"}
	for _, t := range tables {
		if missing := t.MissingColumns(); len(missing) > 0 {
			p.errorf("%s: missing %s columns: %s", t.Source, t.Granularity, strings.Join(missing, ", "))
		}
	}
	return p
}

// validateRows parses every row and files each failure under the numeric or
// calendar phase by column. Tables with missing columns are left to the
// header phase.
func validateRows(tables []*tabular.Table) (*phase, *phase) {
	numeric := &phase{name: "Numeric values and sentinels"}
	calendar := &phase{name: "Calendar keys"}

	for _, t := range tables {
		if len(t.MissingColumns()) > 0 {
			continue
		}
		trace := 0
		for _, rec := range t.Records {
			r, err := domain.ParseRawRecord(rec)
			if err == nil {
				if r.TracePrecip {
					trace++
				}
				continue
			}
			var perr *domain.ParseError
			if !errors.As(err, &perr) {
				numeric.errorf("%s line %d: %v", rec.Source, rec.Line, err)
				continue
			}
			if calendarColumns[perr.Column] {
				calendar.errorf("%v", perr)
			} else {
				numeric.errorf("%v", perr)
			}
		}
		if trace > 0 {
			numeric.notef("%s: %d trace precipitation rows recorded as %g mm", t.Source, trace, domain.TracePrecipitationMM)
		}
	}
	return numeric, calendar
}

func validateCriteria(tables []*tabular.Table, th domain.CriteriaThresholds) *phase {
	p := &phase{name: "Annual completeness criteria"}
	for _, t := range tables {
		if t.Granularity != domain.Annual || len(t.MissingColumns()) > 0 {
			continue
		}
		met, total := 0, 0
		for _, rec := range t.Records {
			r, err := domain.ParseRawRecord(rec)
			if err != nil || r.Criteria == nil {
				continue
			}
			total++
			for i, v := range []*float64{r.Criteria.C1, r.Criteria.C2, r.Criteria.C3} {
				if v != nil && (*v < 0 || *v > 100) {
					p.errorf("%s line %d: criteria%d = %g outside 0-100", rec.Source, rec.Line, i+1, *v)
				}
			}
			if r.Criteria.Met(th) {
				met++
			}
		}
		p.notef("%s: %d of %d annual records meet the completeness criteria", t.Source, met, total)
	}
	return p
}
