package pipeline

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/couchcryptid/deposition-etl/internal/domain"
)

// Collector keeps every loaded reading in memory, grouped by granularity, and
// builds the run's Comparison from them. It implements BatchLoader.
type Collector struct {
	mu         sync.RWMutex
	readings   map[domain.Granularity][]domain.Reading
	comparison *domain.Comparison
}

// NewCollector creates an empty Collector.
func NewCollector() *Collector {
	return &Collector{readings: make(map[domain.Granularity][]domain.Reading)}
}

// LoadBatch appends readings and invalidates any cached comparison.
func (c *Collector) LoadBatch(_ context.Context, readings []domain.Reading) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, r := range readings {
		c.readings[r.Granularity] = append(c.readings[r.Granularity], r)
	}
	c.comparison = nil
	return nil
}

// Readings returns a copy of the readings loaded for g, in load order.
func (c *Collector) Readings(g domain.Granularity) []domain.Reading {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.readings[g])
}

// Len is the number of readings loaded across all granularities.
func (c *Collector) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	n := 0
	for _, rs := range c.readings {
		n += len(rs)
	}
	return n
}

// Comparison rolls the loaded readings up and compares them. The result is
// cached until the next LoadBatch.
func (c *Collector) Comparison() domain.Comparison {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.comparison == nil {
		comp := domain.Compare(
			c.readings[domain.Weekly],
			c.readings[domain.Monthly],
			c.readings[domain.Annual],
		)
		c.comparison = &comp
	}
	return *c.comparison
}

// MultiLoader fans a batch out to several loaders in order. The first failure
// stops the fan-out.
type MultiLoader []BatchLoader

func (m MultiLoader) LoadBatch(ctx context.Context, readings []domain.Reading) error {
	for i, l := range m {
		if err := l.LoadBatch(ctx, readings); err != nil {
			return fmt.Errorf("loader %d: %w", i, err)
		}
	}
	return nil
}

// Close closes every loader that holds resources and joins their errors.
func (m MultiLoader) Close() error {
	var errs []error
	for _, l := range m {
		if c, ok := l.(interface{ Close() error }); ok {
			errs = append(errs, c.Close())
		}
	}
	return errors.Join(errs...)
}
