package domain

import (
	"cmp"
	"slices"
)

// PeriodKey identifies a roll-up bucket. Month is 0 for a whole year.
type PeriodKey struct {
	Station string `json:"station"`
	Year    int    `json:"year"`
	Month   int    `json:"month,omitempty"`
}

// Compare orders keys by station, year, then month.
func (k PeriodKey) Compare(o PeriodKey) int {
	return cmp.Or(
		cmp.Compare(k.Station, o.Station),
		cmp.Compare(k.Year, o.Year),
		cmp.Compare(k.Month, o.Month),
	)
}

// YearKey drops the month from k.
func (k PeriodKey) YearKey() PeriodKey {
	return PeriodKey{Station: k.Station, Year: k.Year}
}

// Aggregate is the roll-up of finer readings into one period.
type Aggregate struct {
	Key PeriodKey `json:"key"`
	// Sum of the non-missing deposition totals, kg/ha.
	Sum float64 `json:"sum_kg_ha"`
	// Valid counts readings with a non-missing deposition total.
	Valid int `json:"valid"`
	// Total counts every reading in the period.
	Total int `json:"total"`
	// Censored counts valid readings flagged below detection.
	Censored int `json:"censored"`
	// PrecipCM sums non-missing precipitation normalised to centimetres.
	PrecipCM float64 `json:"precip_cm"`
}

// Value returns the sum, or nil when no reading contributed.
func (a Aggregate) Value() *float64 {
	if a.Valid == 0 {
		return nil
	}
	v := a.Sum
	return &v
}

// RollUp groups readings by station and year, and by month when byMonth is
// set, summing deposition totals and excluding missing ones. The result is
// sorted by key.
func RollUp(readings []Reading, byMonth bool) []Aggregate {
	index := make(map[PeriodKey]int)
	var out []Aggregate

	for _, r := range readings {
		key := r.Key()
		if !byMonth {
			key = key.YearKey()
		}
		i, ok := index[key]
		if !ok {
			i = len(out)
			index[key] = i
			out = append(out, Aggregate{Key: key})
		}

		a := &out[i]
		a.Total++
		if r.Precip != nil {
			a.PrecipCM += r.Granularity.PrecipUnit().ToCentimetres(*r.Precip)
		}
		if r.Deposition == nil {
			continue
		}
		a.Sum += *r.Deposition
		a.Valid++
		if r.Censored {
			a.Censored++
		}
	}

	slices.SortFunc(out, func(a, b Aggregate) int { return a.Key.Compare(b.Key) })
	return out
}
