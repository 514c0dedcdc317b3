package domain

import "math"

// Deposition converts a nitrogen concentration in kg/m³ and a precipitation
// depth into a deposition mass in kg/ha. Either operand missing yields a
// missing result.
func Deposition(totalN, precip *float64, unit PrecipUnit) *float64 {
	if totalN == nil || precip == nil {
		return nil
	}
	v := *totalN * *precip * unit.PeriodFactor()
	return &v
}

// Censored reports whether any contributing analyte was below detection.
// Flags are combined regardless of whether the analyte value is present.
func Censored(flags ...CensorFlag) bool {
	for _, f := range flags {
		if f == BelowDetection {
			return true
		}
	}
	return false
}

// Log is the natural log of v. Zero and negative deposition totals have no
// log; use Log1p for values that may legitimately be zero.
func Log(v float64) (float64, error) {
	if v <= 0 || math.IsNaN(v) {
		return 0, &DomainError{Op: "log", Value: v}
	}
	return math.Log(v), nil
}

// Log1p is ln(1+v), defined for v >= -1.
func Log1p(v float64) (float64, error) {
	if v < -1 || math.IsNaN(v) {
		return 0, &DomainError{Op: "log1p", Value: v}
	}
	return math.Log1p(v), nil
}

// AggregateReading derives the deposition total, the combined censoring flag
// and the log1p transform of r.
func AggregateReading(r Reading) Reading {
	r.Deposition = Deposition(r.TotalN, r.Precip, r.Granularity.PrecipUnit())
	r.Censored = Censored(r.FlagNH4, r.FlagNO3)
	r.Log1pDeposition = nil
	if r.Deposition != nil {
		if v, err := Log1p(*r.Deposition); err == nil {
			r.Log1pDeposition = &v
		}
	}
	return r
}

// EvaluateCriteria marks an annual reading as certified when every published
// completeness criterion meets th. Other granularities are returned unchanged.
func EvaluateCriteria(r Reading, th CriteriaThresholds) Reading {
	if r.Granularity != Annual || r.Criteria == nil {
		return r
	}
	r.CriteriaMet = r.Criteria.Met(th)
	return r
}
