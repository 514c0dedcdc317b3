package pipeline

import (
	"context"
	"log/slog"

	"github.com/couchcryptid/deposition-etl/internal/domain"
)

// DepositionTransformer implements Transformer using the domain parse, convert
// and aggregate steps.
type DepositionTransformer struct {
	policy     domain.MissingPolicy
	thresholds domain.CriteriaThresholds
	logger     *slog.Logger
}

// NewTransformer creates a DepositionTransformer applying policy to nitrogen
// totals and thresholds to annual completeness criteria.
func NewTransformer(policy domain.MissingPolicy, thresholds domain.CriteriaThresholds, logger *slog.Logger) *DepositionTransformer {
	return &DepositionTransformer{
		policy:     policy,
		thresholds: thresholds,
		logger:     logger,
	}
}

func (t *DepositionTransformer) Transform(_ context.Context, raw domain.RawRecord) (domain.Reading, error) {
	r, err := domain.ParseRawRecord(raw)
	if err != nil {
		return domain.Reading{}, err
	}

	r = domain.ConvertReading(r, t.policy)
	r = domain.AggregateReading(r)
	r = domain.EvaluateCriteria(r, t.thresholds)

	if r.Deposition == nil {
		t.logger.Debug("deposition missing",
			"id", r.ID,
			"station", r.Station,
			"source", raw.Source,
			"line", raw.Line,
		)
	}
	return r, nil
}
