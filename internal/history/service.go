package history

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound marks drill-down keys with no matching queries.
var ErrNotFound = errors.New("history: not found")

// Source feeds raw records to the aggregator.
type Source interface {
	// Records returns every raw record passing the filter.
	Records(ctx context.Context, filter Filter) ([]Record, error)
	// CountExact counts queries for the exact model name inside the
	// half-open [start, end) interval.
	CountExact(ctx context.Context, model string, start, end time.Time) (int, error)
}

// Page is a 0-based page over aggregated rows.
type Page struct {
	Number int
	Size   int
}

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

func (p Page) normalize() Page {
	if p.Number < 0 {
		p.Number = 0
	}
	if p.Size <= 0 {
		p.Size = defaultPageSize
	}
	if p.Size > maxPageSize {
		p.Size = maxPageSize
	}
	return p
}

// Service answers the consultation history queries.
type Service struct {
	source Source
}

// NewService wires the service over its record source.
func NewService(source Source) *Service {
	return &Service{source: source}
}

// List aggregates the full filtered record set, then returns the requested
// page of rows plus the total aggregated row count. Totals therefore count
// day-and-model groups, not raw records.
func (s *Service) List(ctx context.Context, filter Filter, page Page) ([]Row, int, error) {
	records, err := s.source.Records(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	rows := Aggregate(records)
	total := len(rows)

	page = page.normalize()
	start := page.Number * page.Size
	if start >= total {
		return []Row{}, total, nil
	}
	end := start + page.Size
	if end > total {
		end = total
	}
	return rows[start:end], total, nil
}

// Chart returns the per-day totals for the filtered set, oldest first.
func (s *Service) Chart(ctx context.Context, filter Filter) ([]Point, error) {
	records, err := s.source.Records(ctx, filter)
	if err != nil {
		return nil, err
	}
	return TimeSeries(records), nil
}

// GetByKey recounts one aggregated row from the raw records. The key is
// "YYYY-MM-DD|model" as produced by Row.Key; a day with no queries for the
// model reports ErrNotFound.
func (s *Service) GetByKey(ctx context.Context, key string) (Row, error) {
	start, end, model, err := ParseKey(key)
	if err != nil {
		return Row{}, err
	}
	count, err := s.source.CountExact(ctx, model, start, end)
	if err != nil {
		return Row{}, err
	}
	if count == 0 {
		return Row{}, ErrNotFound
	}
	return Row{Date: dayOf(start), Model: model, Count: count}, nil
}
