package domain

import (
	"fmt"
	"strings"
	"time"
)

// Granularity is the reporting period of a record. Each granularity fixes the
// precipitation unit and therefore the deposition period factor.
type Granularity int

const (
	Weekly Granularity = iota + 1
	Monthly
	Annual
)

// Granularities lists every granularity in roll-up order, finest first.
var Granularities = []Granularity{Weekly, Monthly, Annual}

var granularityNames = map[Granularity]string{
	Weekly:  "weekly",
	Monthly: "monthly",
	Annual:  "annual",
}

func (g Granularity) String() string {
	if n, ok := granularityNames[g]; ok {
		return n
	}
	return "unknown"
}

// PrecipUnit returns the unit precipitation depth is reported in.
func (g Granularity) PrecipUnit() PrecipUnit {
	if g == Weekly {
		return Millimetre
	}
	return Centimetre
}

// PeriodFactor is shorthand for g.PrecipUnit().PeriodFactor().
func (g Granularity) PeriodFactor() float64 {
	return g.PrecipUnit().PeriodFactor()
}

// MarshalText encodes the granularity by name.
func (g Granularity) MarshalText() ([]byte, error) {
	if _, ok := granularityNames[g]; !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownGranularity, int(g))
	}
	return []byte(g.String()), nil
}

// UnmarshalText decodes a granularity name.
func (g *Granularity) UnmarshalText(b []byte) error {
	parsed, err := ParseGranularity(string(b))
	if err != nil {
		return err
	}
	*g = parsed
	return nil
}

// ParseGranularity accepts "weekly", "monthly" or "annual" in any case.
func ParseGranularity(s string) (Granularity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "weekly":
		return Weekly, nil
	case "monthly":
		return Monthly, nil
	case "annual":
		return Annual, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownGranularity, s)
	}
}

// PrecipUnit is the depth unit of a precipitation column.
type PrecipUnit int

const (
	Millimetre PrecipUnit = iota + 1
	Centimetre
)

func (u PrecipUnit) String() string {
	switch u {
	case Millimetre:
		return "mm"
	case Centimetre:
		return "cm"
	default:
		return "unknown"
	}
}

// PeriodFactor converts kg/m³ × depth into kg/ha.
//
//	mm: kg/m³ × (P × 1e-3 m) × 1e4 m²/ha = P × 10
//	cm: kg/m³ × (P × 1e-2 m) × 1e4 m²/ha = P × 100
func (u PrecipUnit) PeriodFactor() float64 {
	switch u {
	case Millimetre:
		return 10
	case Centimetre:
		return 100
	default:
		return 0
	}
}

// ToCentimetres normalises a depth in u to centimetres.
func (u PrecipUnit) ToCentimetres(depth float64) float64 {
	if u == Millimetre {
		return depth / 10
	}
	return depth
}

// CensorFlag marks whether an analyte value is a real measurement or only
// known to be below the detection limit.
type CensorFlag int

const (
	Uncensored CensorFlag = iota
	BelowDetection
)

// belowDetectionCode is the flag column value for a censored measurement.
const belowDetectionCode = "<"

// ParseCensorFlag maps a flag column value to a CensorFlag.
func ParseCensorFlag(code string) CensorFlag {
	if strings.TrimSpace(code) == belowDetectionCode {
		return BelowDetection
	}
	return Uncensored
}

func (f CensorFlag) String() string {
	if f == BelowDetection {
		return "below_detection"
	}
	return "uncensored"
}

// MarshalText encodes the flag by name.
func (f CensorFlag) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}

// UnmarshalText decodes a flag name written by MarshalText.
func (f *CensorFlag) UnmarshalText(b []byte) error {
	switch string(b) {
	case "below_detection":
		*f = BelowDetection
	case "uncensored":
		*f = Uncensored
	default:
		return fmt.Errorf("unknown censor flag %q", b)
	}
	return nil
}

// RawRecord is one row of an input table with lower-cased header keys.
type RawRecord struct {
	Granularity Granularity
	Source      string // file the row came from
	Line        int    // 1-based data row number, header excluded
	Fields      map[string]string
}

// Criteria holds the annual completeness percentages published with each
// annual record. Any of them may be missing.
type Criteria struct {
	C1 *float64 `json:"criteria1"`
	C2 *float64 `json:"criteria2"`
	C3 *float64 `json:"criteria3"`
}

// CriteriaThresholds are the minimum percentages an annual record needs to be
// certified by the data provider.
type CriteriaThresholds struct {
	C1 float64
	C2 float64
	C3 float64
}

// DefaultCriteriaThresholds are the network's published completeness limits.
var DefaultCriteriaThresholds = CriteriaThresholds{C1: 75, C2: 90, C3: 75}

// Met reports whether every criterion is present and at or above its threshold.
func (c Criteria) Met(th CriteriaThresholds) bool {
	return atLeast(c.C1, th.C1) && atLeast(c.C2, th.C2) && atLeast(c.C3, th.C3)
}

func atLeast(v *float64, min float64) bool {
	return v != nil && *v >= min
}

// Reading is a single station record at one granularity. Parse fills the
// measured fields, ConvertReading the nitrogen concentrations and
// AggregateReading the deposition fields. A Reading is not modified after
// aggregation.
type Reading struct {
	ID          string      `json:"id"`
	Station     string      `json:"station"`
	Granularity Granularity `json:"granularity"`
	Year        int         `json:"year"`
	Month       int         `json:"month,omitempty"`
	DateOn      time.Time   `json:"date_on,omitzero"`
	DateOff     time.Time   `json:"date_off,omitzero"`
	SourceLine  int         `json:"source_line,omitempty"`

	// Precip is in the granularity's native unit (mm weekly, cm otherwise).
	Precip      *float64   `json:"precip"`
	TracePrecip bool       `json:"trace_precip,omitempty"`
	NH4         *float64   `json:"nh4_mg_l"`
	NO3         *float64   `json:"no3_mg_l"`
	FlagNH4     CensorFlag `json:"flag_nh4"`
	FlagNO3     CensorFlag `json:"flag_no3"`

	Criteria    *Criteria `json:"criteria,omitempty"`
	CriteriaMet bool      `json:"criteria_met,omitempty"`

	NH4N            *float64 `json:"nh4_n_kg_m3"`
	NO3N            *float64 `json:"no3_n_kg_m3"`
	TotalN          *float64 `json:"total_n_kg_m3"`
	Deposition      *float64 `json:"total_n_deposition_kg_ha"`
	Censored        bool     `json:"censored"`
	Log1pDeposition *float64 `json:"log1p_deposition,omitempty"`
}

// Key returns the roll-up key the reading belongs to.
func (r Reading) Key() PeriodKey {
	return PeriodKey{Station: r.Station, Year: r.Year, Month: r.Month}
}

// PeriodStart is the first instant of the reading's period in UTC. Weekly
// readings use the sample start time when it is known; otherwise the month
// start is offset by the source line in seconds so rows stay distinct.
func (r Reading) PeriodStart() time.Time {
	if r.Granularity == Weekly && !r.DateOn.IsZero() {
		return r.DateOn
	}
	month := time.January
	if r.Month > 0 {
		month = time.Month(r.Month)
	}
	start := time.Date(r.Year, month, 1, 0, 0, 0, 0, time.UTC)
	if r.Granularity == Weekly {
		start = start.Add(time.Duration(r.SourceLine) * time.Second)
	}
	return start
}
