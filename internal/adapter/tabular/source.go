package tabular

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/couchcryptid/deposition-etl/internal/domain"
	"golang.org/x/sync/errgroup"
)

// ErrNoInput is returned by Load when no input path is set.
var ErrNoInput = errors.New("no input files configured")

// Paths names the input file for each granularity. An empty path skips that
// granularity.
type Paths struct {
	Weekly  string
	Monthly string
	Annual  string
}

// For returns the path configured for g.
func (p Paths) For(g domain.Granularity) string {
	switch g {
	case domain.Weekly:
		return p.Weekly
	case domain.Monthly:
		return p.Monthly
	case domain.Annual:
		return p.Annual
	default:
		return ""
	}
}

// Source serves the rows of the loaded tables in batches, weekly rows first,
// then monthly, then annual. It implements pipeline.BatchExtractor.
type Source struct {
	records  []domain.RawRecord
	pos      int
	counts   map[domain.Granularity]int
	filtered int
}

// Load reads every configured file concurrently. When station is non-empty,
// rows for other stations are dropped and counted in Filtered.
func Load(ctx context.Context, paths Paths, station string) (*Source, error) {
	tables := make([]*Table, len(domain.Granularities))

	g, ctx := errgroup.WithContext(ctx)
	for i, gran := range domain.Granularities {
		path := paths.For(gran)
		if path == "" {
			continue
		}
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			t, err := ReadFile(path, gran)
			if err != nil {
				return err
			}
			if missing := t.MissingColumns(); len(missing) > 0 {
				return fmt.Errorf("load %s: %w: %s", path, domain.ErrMissingColumn, strings.Join(missing, ", "))
			}
			tables[i] = t
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	s := &Source{counts: make(map[domain.Granularity]int)}
	loaded := false
	for _, t := range tables {
		if t == nil {
			continue
		}
		loaded = true
		for _, rec := range t.Records {
			if station != "" && !strings.EqualFold(strings.TrimSpace(rec.Fields[domain.ColSite]), station) {
				s.filtered++
				continue
			}
			s.records = append(s.records, rec)
			s.counts[t.Granularity]++
		}
	}
	if !loaded {
		return nil, ErrNoInput
	}
	return s, nil
}

// NewSource serves records as given, without reading any file.
func NewSource(records []domain.RawRecord) *Source {
	s := &Source{records: records, counts: make(map[domain.Granularity]int)}
	for _, r := range records {
		s.counts[r.Granularity]++
	}
	return s
}

// ExtractBatch returns up to batchSize rows, or io.EOF once every row has been
// served.
func (s *Source) ExtractBatch(ctx context.Context, batchSize int) ([]domain.RawRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.pos >= len(s.records) {
		return nil, io.EOF
	}
	end := min(s.pos+max(batchSize, 1), len(s.records))
	batch := s.records[s.pos:end]
	s.pos = end
	return batch, nil
}

// Len is the number of rows the source serves.
func (s *Source) Len() int { return len(s.records) }

// Count is the number of rows loaded for g.
func (s *Source) Count(g domain.Granularity) int { return s.counts[g] }

// Filtered is the number of rows dropped by the station filter.
func (s *Source) Filtered() int { return s.filtered }
