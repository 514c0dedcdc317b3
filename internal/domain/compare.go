package domain

import (
	"slices"
	"time"
)

// WeeksPerYear is the scaling used by the naive annualisation of weekly sums.
const WeeksPerYear = 52

// MonthComparison sets the weekly roll-up of one month beside the monthly
// record for the same month.
type MonthComparison struct {
	Key     PeriodKey `json:"key"`
	Weekly  Aggregate `json:"weekly"`
	Monthly Aggregate `json:"monthly"`
	// Diff is weekly sum minus monthly total, nil when either side is missing.
	Diff *float64 `json:"diff_kg_ha"`
}

// YearComparison sets the weekly and monthly roll-ups of one year beside the
// published annual record.
type YearComparison struct {
	Key         PeriodKey `json:"key"`
	Weekly      Aggregate `json:"weekly"`
	Monthly     Aggregate `json:"monthly"`
	Annual      Aggregate `json:"annual"`
	CriteriaMet bool      `json:"criteria_met"`

	// NaiveAnnualized scales the weekly sum by 52 / valid weeks. It tends to
	// over-correct partial years relative to the published method and is kept
	// only as a diagnostic column.
	NaiveAnnualized *float64 `json:"naive_annualized_kg_ha"`

	WeeklyDiff  *float64 `json:"weekly_diff_kg_ha"`
	MonthlyDiff *float64 `json:"monthly_diff_kg_ha"`
}

// Comparison is the diagnostic output of a run. It carries no pass/fail
// outcome: roll-ups are expected to diverge from published totals when data
// coverage is partial.
type Comparison struct {
	GeneratedAt time.Time         `json:"generated_at"`
	Months      []MonthComparison `json:"months"`
	Years       []YearComparison  `json:"years"`
}

// Compare rolls weekly readings up to months and years, monthly readings up
// to years, and lines them up against the coarser published values.
func Compare(weekly, monthly, annual []Reading) Comparison {
	weeksByMonth := indexAggregates(RollUp(weekly, true))
	monthsByMonth := indexAggregates(RollUp(monthly, true))
	weeksByYear := indexAggregates(RollUp(weekly, false))
	monthsByYear := indexAggregates(RollUp(monthly, false))
	annualByYear := indexAggregates(RollUp(annual, false))

	criteria := make(map[PeriodKey]bool)
	for _, r := range annual {
		if r.CriteriaMet {
			criteria[r.Key().YearKey()] = true
		}
	}

	c := Comparison{GeneratedAt: clock.Now().UTC()}

	for _, key := range unionKeys(weeksByMonth, monthsByMonth) {
		w := aggregateOrEmpty(weeksByMonth, key)
		m := aggregateOrEmpty(monthsByMonth, key)
		c.Months = append(c.Months, MonthComparison{
			Key:     key,
			Weekly:  w,
			Monthly: m,
			Diff:    diff(w.Value(), m.Value()),
		})
	}

	for _, key := range unionKeys(weeksByYear, monthsByYear, annualByYear) {
		w := aggregateOrEmpty(weeksByYear, key)
		m := aggregateOrEmpty(monthsByYear, key)
		a := aggregateOrEmpty(annualByYear, key)
		c.Years = append(c.Years, YearComparison{
			Key:             key,
			Weekly:          w,
			Monthly:         m,
			Annual:          a,
			CriteriaMet:     criteria[key],
			NaiveAnnualized: NaiveAnnualize(w),
			WeeklyDiff:      diff(w.Value(), a.Value()),
			MonthlyDiff:     diff(m.Value(), a.Value()),
		})
	}

	return c
}

// NaiveAnnualize scales a weekly roll-up to a full year by 52 / valid weeks.
func NaiveAnnualize(weeks Aggregate) *float64 {
	if weeks.Valid == 0 {
		return nil
	}
	v := weeks.Sum * WeeksPerYear / float64(weeks.Valid)
	return &v
}

func indexAggregates(aggs []Aggregate) map[PeriodKey]Aggregate {
	m := make(map[PeriodKey]Aggregate, len(aggs))
	for _, a := range aggs {
		m[a.Key] = a
	}
	return m
}

func aggregateOrEmpty(m map[PeriodKey]Aggregate, key PeriodKey) Aggregate {
	if a, ok := m[key]; ok {
		return a
	}
	return Aggregate{Key: key}
}

func unionKeys(maps ...map[PeriodKey]Aggregate) []PeriodKey {
	seen := make(map[PeriodKey]struct{})
	var keys []PeriodKey
	for _, m := range maps {
		for k := range m {
			if _, ok := seen[k]; ok {
				continue
			}
			seen[k] = struct{}{}
			keys = append(keys, k)
		}
	}
	slices.SortFunc(keys, PeriodKey.Compare)
	return keys
}

func diff(a, b *float64) *float64 {
	if a == nil || b == nil {
		return nil
	}
	v := *a - *b
	return &v
}
