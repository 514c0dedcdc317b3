package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr(v float64) *float64 { return &v }

func TestMolarMasses(t *testing.T) {
	assert.InDelta(t, 18.039, MolarMassNH4, 1e-12)
	assert.InDelta(t, 62.004, MolarMassNO3, 1e-12)
	assert.Equal(t, MolarMassNH4, Ammonium.MolarMass())
	assert.Equal(t, MolarMassNO3, Nitrate.MolarMass())
	assert.Zero(t, Analyte(0).MolarMass())
	assert.Zero(t, Analyte(0).NitrogenRatio())
}

func TestNitrogenEquivalent(t *testing.T) {
	t.Run("ammonium reference value", func(t *testing.T) {
		got := NitrogenEquivalent(Ammonium, ptr(1.0))
		require.NotNil(t, got)
		assert.InDelta(t, 7.7652e-4, *got, 1e-6)
		assert.InEpsilon(t, 1.0*(14.007/18.039)*1e-3, *got, 1e-9)
	})

	t.Run("nitrate reference value", func(t *testing.T) {
		got := NitrogenEquivalent(Nitrate, ptr(1.0))
		require.NotNil(t, got)
		assert.InEpsilon(t, 1.0*(14.007/62.004)*1e-3, *got, 1e-9)
	})

	t.Run("zero stays zero", func(t *testing.T) {
		got := NitrogenEquivalent(Nitrate, ptr(0))
		require.NotNil(t, got)
		assert.Zero(t, *got)
	})

	t.Run("missing stays missing", func(t *testing.T) {
		assert.Nil(t, NitrogenEquivalent(Ammonium, nil))
	})
}

func TestTotalNitrogen(t *testing.T) {
	nh4N := NitrogenEquivalent(Ammonium, ptr(0.5))
	no3N := NitrogenEquivalent(Nitrate, ptr(0.3))
	weighted := 0.5*MolarMassN/MolarMassNH4*1e-3 + 0.3*MolarMassN/MolarMassNO3*1e-3

	tests := []struct {
		name   string
		nh4N   *float64
		no3N   *float64
		policy MissingPolicy
		want   *float64
	}{
		{"both present exclude", nh4N, no3N, ExcludeMissing, ptr(weighted)},
		{"both present propagate", nh4N, no3N, PropagateMissing, ptr(weighted)},
		{"nitrate missing exclude", nh4N, nil, ExcludeMissing, nh4N},
		{"ammonium missing exclude", nil, no3N, ExcludeMissing, no3N},
		{"nitrate missing propagate", nh4N, nil, PropagateMissing, nil},
		{"ammonium missing propagate", nil, no3N, PropagateMissing, nil},
		{"both missing exclude", nil, nil, ExcludeMissing, nil},
		{"both missing propagate", nil, nil, PropagateMissing, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := TotalNitrogen(tt.nh4N, tt.no3N, tt.policy)
			if tt.want == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.InEpsilon(t, *tt.want, *got, 1e-9)
		})
	}
}

func TestTotalNitrogen_WeightedSumProperty(t *testing.T) {
	concentrations := []float64{0, 0.01, 0.12, 0.5, 1, 2.75, 10}
	for _, nh4 := range concentrations {
		for _, no3 := range concentrations {
			got := TotalNitrogen(
				NitrogenEquivalent(Ammonium, ptr(nh4)),
				NitrogenEquivalent(Nitrate, ptr(no3)),
				ExcludeMissing,
			)
			require.NotNil(t, got)
			want := (nh4*MolarMassN/MolarMassNH4 + no3*MolarMassN/MolarMassNO3) * 1e-3
			if want == 0 {
				assert.Zero(t, *got)
				continue
			}
			assert.InEpsilon(t, want, *got, 1e-9, "nh4=%g no3=%g", nh4, no3)
		}
	}
}

func TestConvertReading(t *testing.T) {
	r := ConvertReading(Reading{NH4: ptr(0.5), NO3: nil}, ExcludeMissing)

	require.NotNil(t, r.NH4N)
	assert.Nil(t, r.NO3N)
	require.NotNil(t, r.TotalN)
	assert.Equal(t, *r.NH4N, *r.TotalN)

	r = ConvertReading(Reading{NH4: ptr(0.5), NO3: nil}, PropagateMissing)
	assert.Nil(t, r.TotalN)
}

func TestMissingPolicyString(t *testing.T) {
	assert.Equal(t, "exclude", ExcludeMissing.String())
	assert.Equal(t, "propagate", PropagateMissing.String())
}

func TestParseMissingPolicy(t *testing.T) {
	p, err := ParseMissingPolicy("Propagate")
	require.NoError(t, err)
	assert.Equal(t, PropagateMissing, p)

	p, err = ParseMissingPolicy("")
	require.NoError(t, err)
	assert.Equal(t, ExcludeMissing, p)

	_, err = ParseMissingPolicy("zero")
	require.Error(t, err)
}
