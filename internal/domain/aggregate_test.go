package domain

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPeriodFactor(t *testing.T) {
	assert.Equal(t, 10.0, Millimetre.PeriodFactor())
	assert.Equal(t, 100.0, Centimetre.PeriodFactor())
	assert.Equal(t, 10.0, Weekly.PeriodFactor())
	assert.Equal(t, 100.0, Monthly.PeriodFactor())
	assert.Equal(t, 100.0, Annual.PeriodFactor())
	assert.Equal(t, Millimetre, Weekly.PrecipUnit())
	assert.Equal(t, Centimetre, Annual.PrecipUnit())
	assert.Zero(t, PrecipUnit(0).PeriodFactor())
}

func TestDeposition(t *testing.T) {
	totalN := ptr(1e-3)

	t.Run("millimetres", func(t *testing.T) {
		got := Deposition(totalN, ptr(10), Millimetre)
		require.NotNil(t, got)
		assert.InEpsilon(t, 1e-3*10*10, *got, 1e-12)
	})

	t.Run("centimetres", func(t *testing.T) {
		got := Deposition(totalN, ptr(1), Centimetre)
		require.NotNil(t, got)
		assert.InEpsilon(t, 1e-3*1*100, *got, 1e-12)
	})

	t.Run("same depth in both units gives the same deposition", func(t *testing.T) {
		mm := Deposition(totalN, ptr(25), Millimetre)
		cm := Deposition(totalN, ptr(2.5), Centimetre)
		require.NotNil(t, mm)
		require.NotNil(t, cm)
		assert.InEpsilon(t, *mm, *cm, 1e-12)
	})

	t.Run("proportional to precipitation", func(t *testing.T) {
		one := Deposition(totalN, ptr(10), Millimetre)
		two := Deposition(totalN, ptr(20), Millimetre)
		assert.InEpsilon(t, 2*(*one), *two, 1e-12)
	})

	t.Run("unit change without factor change is proportional", func(t *testing.T) {
		// A centimetre value read as millimetres is ten times too small.
		asCM := Deposition(totalN, ptr(3), Centimetre)
		asMM := Deposition(totalN, ptr(3), Millimetre)
		assert.InEpsilon(t, *asCM/10, *asMM, 1e-12)
	})

	t.Run("missing operands", func(t *testing.T) {
		assert.Nil(t, Deposition(nil, ptr(10), Millimetre))
		assert.Nil(t, Deposition(totalN, nil, Millimetre))
	})
}

func TestCensored(t *testing.T) {
	tests := []struct {
		name  string
		flags []CensorFlag
		want  bool
	}{
		{"both uncensored", []CensorFlag{Uncensored, Uncensored}, false},
		{"ammonium below detection", []CensorFlag{BelowDetection, Uncensored}, true},
		{"nitrate below detection", []CensorFlag{Uncensored, BelowDetection}, true},
		{"both below detection", []CensorFlag{BelowDetection, BelowDetection}, true},
		{"no flags", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Censored(tt.flags...))
		})
	}
}

func TestLogTransforms(t *testing.T) {
	v, err := Log(math.E)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, v, 1e-12)

	for _, bad := range []float64{0, -1, math.NaN()} {
		_, err := Log(bad)
		var de *DomainError
		require.True(t, errors.As(err, &de), "value %g", bad)
		assert.Equal(t, "log", de.Op)
	}

	v, err = Log1p(0)
	require.NoError(t, err)
	assert.Zero(t, v)

	v, err = Log1p(-1)
	require.NoError(t, err)
	assert.True(t, math.IsInf(v, -1))

	_, err = Log1p(-1.5)
	var de *DomainError
	require.ErrorAs(t, err, &de)
	assert.Contains(t, err.Error(), "log1p")
}

func TestAggregateReading_EndToEndWeekly(t *testing.T) {
	r := Reading{
		Granularity: Weekly,
		Precip:      ptr(10),
		NH4:         ptr(0.5),
		NO3:         ptr(0.3),
	}
	r = AggregateReading(ConvertReading(r, ExcludeMissing))

	want := ((0.5 * 14.007 / 18.039 * 1e-3) + (0.3 * 14.007 / 62.004 * 1e-3)) * 10 * 10
	require.NotNil(t, r.Deposition)
	assert.InEpsilon(t, want, *r.Deposition, 1e-9)
	assert.InDelta(t, 0.04560, *r.Deposition, 5e-6)
	assert.False(t, r.Censored)
	require.NotNil(t, r.Log1pDeposition)
	assert.InDelta(t, math.Log1p(want), *r.Log1pDeposition, 1e-12)
}

func TestAggregateReading_MissingAndCensored(t *testing.T) {
	t.Run("missing precipitation leaves deposition missing", func(t *testing.T) {
		r := AggregateReading(ConvertReading(Reading{Granularity: Monthly, NH4: ptr(0.2), NO3: ptr(0.4)}, ExcludeMissing))
		assert.Nil(t, r.Deposition)
		assert.Nil(t, r.Log1pDeposition)
	})

	t.Run("missing and uncensored analyte does not censor", func(t *testing.T) {
		r := Reading{Granularity: Weekly, Precip: ptr(5), NH4: nil, NO3: ptr(0.4), FlagNO3: Uncensored}
		r = AggregateReading(ConvertReading(r, ExcludeMissing))
		require.NotNil(t, r.Deposition)
		assert.False(t, r.Censored)
	})

	t.Run("one censored analyte censors the total", func(t *testing.T) {
		r := Reading{Granularity: Weekly, Precip: ptr(5), NH4: ptr(0.02), NO3: ptr(0.4), FlagNH4: BelowDetection}
		r = AggregateReading(ConvertReading(r, ExcludeMissing))
		assert.True(t, r.Censored)
	})

	t.Run("zero deposition has a log1p", func(t *testing.T) {
		r := AggregateReading(ConvertReading(Reading{Granularity: Weekly, Precip: ptr(0), NH4: ptr(0.1), NO3: ptr(0.1)}, ExcludeMissing))
		require.NotNil(t, r.Log1pDeposition)
		assert.Zero(t, *r.Log1pDeposition)
	})
}

func TestEvaluateCriteria(t *testing.T) {
	annual := Reading{
		Granularity: Annual,
		Criteria:    &Criteria{C1: ptr(80), C2: ptr(95), C3: ptr(75)},
	}
	assert.True(t, EvaluateCriteria(annual, DefaultCriteriaThresholds).CriteriaMet)

	annual.Criteria = &Criteria{C1: ptr(80), C2: ptr(89.9), C3: ptr(75)}
	assert.False(t, EvaluateCriteria(annual, DefaultCriteriaThresholds).CriteriaMet)

	annual.Criteria = &Criteria{C1: ptr(80), C2: nil, C3: ptr(75)}
	assert.False(t, EvaluateCriteria(annual, DefaultCriteriaThresholds).CriteriaMet)

	weekly := Reading{Granularity: Weekly}
	assert.False(t, EvaluateCriteria(weekly, DefaultCriteriaThresholds).CriteriaMet)
}
