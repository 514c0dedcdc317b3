package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/couchcryptid/deposition-etl/internal/adapter/tabular"
	"github.com/couchcryptid/deposition-etl/internal/domain"
	"github.com/dustin/go-humanize"
)

// printSummary writes the row counts and the year and month comparison tables.
func printSummary(out io.Writer, src *tabular.Source, cmp domain.Comparison) {
	fmt.Fprintf(out, "Rows: %s weekly, %s monthly, %s annual",
		humanize.Comma(int64(src.Count(domain.Weekly))),
		humanize.Comma(int64(src.Count(domain.Monthly))),
		humanize.Comma(int64(src.Count(domain.Annual))),
	)
	if n := src.Filtered(); n > 0 {
		fmt.Fprintf(out, " (%s filtered by station)", humanize.Comma(int64(n)))
	}
	fmt.Fprintln(out)

	fmt.Fprintln(out)
	fmt.Fprintln(out, "By year (kg N/ha)")
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "station\tyear\tweekly\tweeks\tnaive_x52\tmonthly\tmonths\tannual\tcriteria\tweekly-annual\tmonthly-annual\t")
	for _, y := range cmp.Years {
		fmt.Fprintf(tw, "%s\t%d\t%s\t%d\t%s\t%s\t%d\t%s\t%s\t%s\t%s\t\n",
			y.Key.Station, y.Key.Year,
			kgha(y.Weekly.Value()), y.Weekly.Valid, kgha(y.NaiveAnnualized),
			kgha(y.Monthly.Value()), y.Monthly.Valid,
			kgha(y.Annual.Value()), met(y),
			kgha(y.WeeklyDiff), kgha(y.MonthlyDiff),
		)
	}
	tw.Flush()

	fmt.Fprintln(out)
	fmt.Fprintln(out, "By month (kg N/ha)")
	tw = tabwriter.NewWriter(out, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "station\tmonth\tweekly\tweeks\tcensored\tmonthly\tweekly-monthly\t")
	for _, m := range cmp.Months {
		fmt.Fprintf(tw, "%s\t%04d-%02d\t%s\t%d/%d\t%d\t%s\t%s\t\n",
			m.Key.Station, m.Key.Year, m.Key.Month,
			kgha(m.Weekly.Value()), m.Weekly.Valid, m.Weekly.Total, m.Weekly.Censored,
			kgha(m.Monthly.Value()), kgha(m.Diff),
		)
	}
	tw.Flush()
}

func kgha(v *float64) string {
	if v == nil {
		return "-"
	}
	return humanize.FtoaWithDigits(*v, 4)
}

func met(y domain.YearComparison) string {
	if y.Annual.Total == 0 {
		return "-"
	}
	if y.CriteriaMet {
		return "met"
	}
	return "not met"
}
