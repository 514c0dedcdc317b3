package domain

import (
	"fmt"
	"strings"
)

// Standard atomic masses in g/mol.
const (
	MolarMassN = 14.007
	MolarMassH = 1.008
	MolarMassO = 15.999

	MolarMassNH4 = MolarMassN + 4*MolarMassH // 18.039
	MolarMassNO3 = MolarMassN + 3*MolarMassO // 62.004

	// MgPerLitreToKgPerCubicMetre rescales mg/L: mg→kg is 1e-6, L→m³ is 1e3.
	MgPerLitreToKgPerCubicMetre = 1e-3
)

// Analyte is a nitrogen-bearing ion measured at the station.
type Analyte int

const (
	Ammonium Analyte = iota + 1
	Nitrate
)

func (a Analyte) String() string {
	switch a {
	case Ammonium:
		return "NH4"
	case Nitrate:
		return "NO3"
	default:
		return "unknown"
	}
}

// MolarMass returns the ion's molar mass in g/mol.
func (a Analyte) MolarMass() float64 {
	switch a {
	case Ammonium:
		return MolarMassNH4
	case Nitrate:
		return MolarMassNO3
	default:
		return 0
	}
}

// NitrogenRatio is the mass fraction of nitrogen in the ion.
func (a Analyte) NitrogenRatio() float64 {
	m := a.MolarMass()
	if m == 0 {
		return 0
	}
	return MolarMassN / m
}

// MissingPolicy decides how a missing analyte affects the nitrogen total.
type MissingPolicy int

const (
	// ExcludeMissing drops a missing term from the sum. The total is missing
	// only when both terms are missing.
	ExcludeMissing MissingPolicy = iota
	// PropagateMissing makes the total missing when either term is missing.
	PropagateMissing
)

func (p MissingPolicy) String() string {
	if p == PropagateMissing {
		return "propagate"
	}
	return "exclude"
}

// NitrogenEquivalent converts an ion concentration in mg/L into the nitrogen
// mass concentration in kg/m³. A missing input yields a missing output.
func NitrogenEquivalent(a Analyte, mgPerL *float64) *float64 {
	if mgPerL == nil {
		return nil
	}
	v := *mgPerL * a.NitrogenRatio() * MgPerLitreToKgPerCubicMetre
	return &v
}

// TotalNitrogen sums the ammonium- and nitrate-derived nitrogen
// concentrations under the given missing-value policy.
func TotalNitrogen(nh4N, no3N *float64, policy MissingPolicy) *float64 {
	if nh4N == nil && no3N == nil {
		return nil
	}
	if policy == PropagateMissing && (nh4N == nil || no3N == nil) {
		return nil
	}
	var sum float64
	if nh4N != nil {
		sum += *nh4N
	}
	if no3N != nil {
		sum += *no3N
	}
	return &sum
}

// ConvertReading fills the nitrogen-equivalent concentrations of r.
func ConvertReading(r Reading, policy MissingPolicy) Reading {
	r.NH4N = NitrogenEquivalent(Ammonium, r.NH4)
	r.NO3N = NitrogenEquivalent(Nitrate, r.NO3)
	r.TotalN = TotalNitrogen(r.NH4N, r.NO3N, policy)
	return r
}

// ParseMissingPolicy accepts "exclude" or "propagate" in any case.
func ParseMissingPolicy(s string) (MissingPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "exclude", "":
		return ExcludeMissing, nil
	case "propagate":
		return PropagateMissing, nil
	default:
		return 0, fmt.Errorf("unknown missing policy %q", s)
	}
}
