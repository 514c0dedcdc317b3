package pipeline_test

import (
	"context"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/couchcryptid/deposition-etl/internal/adapter/tabular"
	"github.com/couchcryptid/deposition-etl/internal/domain"
	"github.com/couchcryptid/deposition-etl/internal/pipeline"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func weeklyRecord(fields map[string]string) domain.RawRecord {
	base := map[string]string{
		domain.ColSite:    "NY99",
		domain.ColYrMonth: "201803",
		domain.ColDateOn:  "2018-03-06 14:00:00",
		domain.ColDateOff: "2018-03-13 13:30:00",
		domain.ColPrecip:  "10",
		domain.ColNH4:     "0.5",
		domain.ColNO3:     "0.3",
	}
	for k, v := range fields {
		base[k] = v
	}
	return domain.RawRecord{Granularity: domain.Weekly, Source: "weekly.csv", Line: 1, Fields: base}
}

func TestDepositionTransformer_Transform(t *testing.T) {
	tfm := pipeline.NewTransformer(domain.ExcludeMissing, domain.DefaultCriteriaThresholds, slog.Default())

	r, err := tfm.Transform(context.Background(), weeklyRecord(nil))
	require.NoError(t, err)

	want := ((0.5*14.007/18.039e3)+(0.3*14.007/62.004e3))*10*10
	require.NotNil(t, r.Deposition)
	assert.InDelta(t, want, *r.Deposition, 1e-12)
	assert.False(t, r.Censored)
	require.NotNil(t, r.Log1pDeposition)
	assert.Greater(t, *r.Log1pDeposition, 0.0)
}

func TestDepositionTransformer_MissingPolicy(t *testing.T) {
	raw := weeklyRecord(map[string]string{domain.ColNO3: "-9"})

	exclude := pipeline.NewTransformer(domain.ExcludeMissing, domain.DefaultCriteriaThresholds, slog.Default())
	r, err := exclude.Transform(context.Background(), raw)
	require.NoError(t, err)
	assert.NotNil(t, r.Deposition)

	propagate := pipeline.NewTransformer(domain.PropagateMissing, domain.DefaultCriteriaThresholds, slog.Default())
	r, err = propagate.Transform(context.Background(), raw)
	require.NoError(t, err)
	assert.Nil(t, r.Deposition)
}

func TestDepositionTransformer_MalformedRow(t *testing.T) {
	tfm := pipeline.NewTransformer(domain.ExcludeMissing, domain.DefaultCriteriaThresholds, slog.Default())

	_, err := tfm.Transform(context.Background(), weeklyRecord(map[string]string{domain.ColNH4: "-4"}))
	require.Error(t, err)

	var perr *domain.ParseError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, domain.ColNH4, perr.Column)
	assert.ErrorIs(t, err, domain.ErrUnexpectedSentinel)
}

func TestDepositionTransformer_CriteriaThresholds(t *testing.T) {
	annual := domain.RawRecord{
		Granularity: domain.Annual,
		Source:      "annual.csv",
		Line:        1,
		Fields: map[string]string{
			domain.ColSite:      "NY99",
			domain.ColYear:      "2018",
			domain.ColPrecip:    "98.4",
			domain.ColNH4:       "0.31",
			domain.ColNO3:       "0.95",
			domain.ColCriteria1: "70",
			domain.ColCriteria2: "96",
			domain.ColCriteria3: "88",
		},
	}

	strict := pipeline.NewTransformer(domain.ExcludeMissing, domain.DefaultCriteriaThresholds, slog.Default())
	r, err := strict.Transform(context.Background(), annual)
	require.NoError(t, err)
	assert.False(t, r.CriteriaMet)

	lenient := pipeline.NewTransformer(domain.ExcludeMissing, domain.CriteriaThresholds{C1: 70, C2: 90, C3: 75}, slog.Default())
	r, err = lenient.Transform(context.Background(), annual)
	require.NoError(t, err)
	assert.True(t, r.CriteriaMet)
}

func TestPipeline_EndToEnd(t *testing.T) {
	fake := clockwork.NewFakeClockAt(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	domain.SetClock(fake)
	t.Cleanup(func() { domain.SetClock(clockwork.NewRealClock()) })

	paths := tabular.Paths{
		Weekly:  filepath.Join("..", "adapter", "tabular", "testdata", "weekly.csv"),
		Monthly: filepath.Join("..", "adapter", "tabular", "testdata", "monthly.csv"),
		Annual:  filepath.Join("..", "adapter", "tabular", "testdata", "annual.csv"),
	}
	src, err := tabular.Load(context.Background(), paths, "")
	require.NoError(t, err)

	collector := pipeline.NewCollector()
	tfm := pipeline.NewTransformer(domain.ExcludeMissing, domain.DefaultCriteriaThresholds, slog.Default())
	p := pipeline.New(src, tfm, collector, slog.Default(), newTestMetrics(), 4)

	require.NoError(t, p.Run(context.Background()))
	assert.Equal(t, 10, collector.Len())
	assert.Len(t, collector.Readings(domain.Weekly), 5)

	weekly := collector.Readings(domain.Weekly)
	require.NotNil(t, weekly[1].Precip)
	assert.Equal(t, domain.TracePrecipitationMM, *weekly[1].Precip)
	assert.True(t, weekly[1].Censored)
	assert.Nil(t, weekly[2].Deposition, "both analytes missing")
	assert.Nil(t, weekly[3].Deposition, "precipitation missing")

	cmp := collector.Comparison()
	assert.Equal(t, fake.Now(), cmp.GeneratedAt)
	require.Len(t, cmp.Months, 3)
	require.Len(t, cmp.Years, 2)

	march := cmp.Months[1]
	assert.Equal(t, domain.PeriodKey{Station: "NY99", Year: 2018, Month: 3}, march.Key)
	assert.Equal(t, 3, march.Weekly.Total)
	assert.Equal(t, 2, march.Weekly.Valid)
	assert.Equal(t, 1, march.Weekly.Censored)
	assert.InDelta(t, 0.0458944131, march.Weekly.Sum, 1e-9)
	assert.InDelta(t, 0.1836363835, march.Monthly.Sum, 1e-9)
	require.NotNil(t, march.Diff)

	co98, ny99 := cmp.Years[0], cmp.Years[1]
	assert.Equal(t, "CO98", co98.Key.Station)
	assert.False(t, co98.CriteriaMet)
	assert.True(t, ny99.CriteriaMet)
	assert.InDelta(t, 4.4803455467, ny99.Annual.Sum, 1e-9)
	require.NotNil(t, ny99.NaiveAnnualized)
	assert.InDelta(t, 0.0458944131*52/2, *ny99.NaiveAnnualized, 1e-9)
}

func TestCollector_ComparisonInvalidatedOnLoad(t *testing.T) {
	c := pipeline.NewCollector()
	dep := 1.5
	reading := domain.Reading{Station: "NY99", Granularity: domain.Monthly, Year: 2018, Month: 3, Deposition: &dep}

	require.NoError(t, c.LoadBatch(context.Background(), []domain.Reading{reading}))
	first := c.Comparison()
	require.Len(t, first.Months, 1)
	assert.Equal(t, 1.5, first.Months[0].Monthly.Sum)

	reading.Month = 4
	require.NoError(t, c.LoadBatch(context.Background(), []domain.Reading{reading}))
	assert.Len(t, c.Comparison().Months, 2)

	rs := c.Readings(domain.Monthly)
	rs[0].Station = "changed"
	assert.Equal(t, "NY99", c.Readings(domain.Monthly)[0].Station)
}
