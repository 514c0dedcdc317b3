package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Sentinel codes used by the network in numeric columns.
const (
	SentinelMissing       = -9.0
	SentinelMissingPrecip = -9.99
	SentinelTracePrecip   = -7.0

	// TracePrecipitationMM is the depth recorded for trace precipitation,
	// i.e. below the gauge's minimum detectable amount.
	TracePrecipitationMM = 0.051
)

// Column names as they appear, lower-cased, in the input headers.
const (
	ColSite      = "siteid"
	ColYrMonth   = "yrmonth"
	ColYear      = "yr"
	ColDateOn    = "dateon"
	ColDateOff   = "dateoff"
	ColPrecip    = "ppt"
	ColNH4       = "nh4"
	ColNO3       = "no3"
	ColFlagNH4   = "flagnh4"
	ColFlagNO3   = "flagno3"
	ColCriteria1 = "criteria1"
	ColCriteria2 = "criteria2"
	ColCriteria3 = "criteria3"
)

// requiredColumns are the columns every row of a granularity must carry.
var requiredColumns = map[Granularity][]string{
	Weekly:  {ColSite, ColYrMonth, ColPrecip, ColNH4, ColNO3},
	Monthly: {ColSite, ColYrMonth, ColPrecip, ColNH4, ColNO3},
	Annual:  {ColSite, ColYear, ColPrecip, ColNH4, ColNO3, ColCriteria1, ColCriteria2, ColCriteria3},
}

// RequiredColumns returns the header contract for g.
func RequiredColumns(g Granularity) []string {
	return append([]string(nil), requiredColumns[g]...)
}

// dateLayouts are the sample timestamp formats seen in weekly tables.
var dateLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02",
	"1/2/2006 15:04",
	"1/2/2006",
}

type columnKind int

const (
	valueColumn columnKind = iota
	precipColumn
)

// ParseRawRecord converts a table row into a Reading. Sentinel codes become
// nil values, trace precipitation becomes TracePrecipitationMM and the year
// and month are derived from the row's calendar key. Any malformed cell is
// returned as a *ParseError.
func ParseRawRecord(raw RawRecord) (Reading, error) {
	if _, ok := granularityNames[raw.Granularity]; !ok {
		return Reading{}, fmt.Errorf("parse raw record: %w: %d", ErrUnknownGranularity, int(raw.Granularity))
	}
	for _, col := range requiredColumns[raw.Granularity] {
		if _, ok := raw.Fields[col]; !ok {
			return Reading{}, newParseError(raw, col, "", ErrMissingColumn)
		}
	}

	r := Reading{
		Station:     strings.TrimSpace(raw.Fields[ColSite]),
		Granularity: raw.Granularity,
		FlagNH4:     ParseCensorFlag(raw.Fields[ColFlagNH4]),
		FlagNO3:     ParseCensorFlag(raw.Fields[ColFlagNO3]),
	}

	var err error
	if r.Year, r.Month, err = parseCalendar(raw); err != nil {
		return Reading{}, err
	}
	if raw.Granularity == Weekly {
		if r.DateOn, err = parseDate(raw, ColDateOn); err != nil {
			return Reading{}, err
		}
		if r.DateOff, err = parseDate(raw, ColDateOff); err != nil {
			return Reading{}, err
		}
	}

	if r.Precip, r.TracePrecip, err = parseValue(raw, ColPrecip, precipColumn); err != nil {
		return Reading{}, err
	}
	if r.NH4, _, err = parseValue(raw, ColNH4, valueColumn); err != nil {
		return Reading{}, err
	}
	if r.NO3, _, err = parseValue(raw, ColNO3, valueColumn); err != nil {
		return Reading{}, err
	}

	if raw.Granularity == Annual {
		var c Criteria
		if c.C1, _, err = parseValue(raw, ColCriteria1, valueColumn); err != nil {
			return Reading{}, err
		}
		if c.C2, _, err = parseValue(raw, ColCriteria2, valueColumn); err != nil {
			return Reading{}, err
		}
		if c.C3, _, err = parseValue(raw, ColCriteria3, valueColumn); err != nil {
			return Reading{}, err
		}
		r.Criteria = &c
	}

	r.SourceLine = raw.Line
	r.ID = generateID(r.Granularity, r.Station, r.Year, r.Month, rowKey(raw))
	return r, nil
}

// parseValue reads a numeric cell and maps sentinel codes. The second return
// value reports trace precipitation.
func parseValue(raw RawRecord, col string, kind columnKind) (*float64, bool, error) {
	s := strings.TrimSpace(raw.Fields[col])
	if s == "" {
		return nil, false, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, false, newParseError(raw, col, s, err)
	}
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return nil, false, newParseError(raw, col, s, errNotFinite)
	}
	if v >= 0 {
		return &v, false, nil
	}

	switch {
	case v == SentinelMissing:
		return nil, false, nil
	case kind == precipColumn && v == SentinelMissingPrecip:
		return nil, false, nil
	case kind == precipColumn && v == SentinelTracePrecip && raw.Granularity == Weekly:
		trace := TracePrecipitationMM
		return &trace, true, nil
	default:
		return nil, false, newParseError(raw, col, s, ErrUnexpectedSentinel)
	}
}

// parseCalendar derives year and month from the granularity's calendar key.
// Combined keys are YYYYMM integers, e.g. 201803 -> (2018, 3).
func parseCalendar(raw RawRecord) (int, int, error) {
	if raw.Granularity == Annual {
		s := strings.TrimSpace(raw.Fields[ColYear])
		year, err := strconv.Atoi(s)
		if err != nil || year < 1000 || year > 9999 {
			return 0, 0, newParseError(raw, ColYear, s, errInvalidYear)
		}
		return year, 0, nil
	}

	s := strings.TrimSpace(raw.Fields[ColYrMonth])
	key, err := strconv.Atoi(s)
	if err != nil {
		return 0, 0, newParseError(raw, ColYrMonth, s, err)
	}
	year, month := key/100, key%100
	if year < 1000 || year > 9999 || month < 1 || month > 12 {
		return 0, 0, newParseError(raw, ColYrMonth, s, errInvalidYearMonth)
	}
	return year, month, nil
}

// parseDate reads an optional timestamp column. Blank and absent cells yield
// the zero time.
func parseDate(raw RawRecord, col string) (time.Time, error) {
	s := strings.TrimSpace(raw.Fields[col])
	if s == "" {
		return time.Time{}, nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, newParseError(raw, col, s, errInvalidDate)
}

func newParseError(raw RawRecord, col, value string, err error) *ParseError {
	return &ParseError{Source: raw.Source, Line: raw.Line, Column: col, Value: value, Err: err}
}

// rowKey distinguishes readings that share a station and period. Weekly rows
// without a sample start fall back to their position in the source file.
func rowKey(raw RawRecord) string {
	dateOn := strings.TrimSpace(raw.Fields[ColDateOn])
	if raw.Granularity != Weekly || dateOn != "" {
		return dateOn
	}
	return fmt.Sprintf("%s:%d", raw.Source, raw.Line)
}

// generateID produces a deterministic ID from the reading's key fields.
func generateID(g Granularity, station string, year, month int, key string) string {
	input := fmt.Sprintf("%s|%s|%d|%d|%s", g, station, year, month, key)
	hash := sha256.Sum256([]byte(input))
	return g.String() + "-" + hex.EncodeToString(hash[:8])
}
