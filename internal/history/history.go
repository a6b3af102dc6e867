// Package history aggregates raw model query records into per-day counters
// for the consultation history screens. Aggregation happens in memory over
// the filtered set; pagination applies to the aggregated rows, never to the
// raw records.
package history

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

const dayLayout = "2006-01-02"

// Record is one raw model query event.
type Record struct {
	ModelName string
	QueriedAt time.Time
}

// Filter narrows the raw record set. Model matches as a case-insensitive
// substring; Start and End bound QueriedAt as a half-open [Start, End)
// interval, either side optional.
type Filter struct {
	Model string
	Start *time.Time
	End   *time.Time
}

// Matches reports whether the record passes the filter.
func (f Filter) Matches(record Record) bool {
	if f.Model != "" && !strings.Contains(strings.ToLower(record.ModelName), strings.ToLower(f.Model)) {
		return false
	}
	if f.Start != nil && record.QueriedAt.Before(*f.Start) {
		return false
	}
	if f.End != nil && !record.QueriedAt.Before(*f.End) {
		return false
	}
	return true
}

// Row is one aggregated counter: queries for one model on one UTC day.
type Row struct {
	Date  string `json:"dataConsulta"`
	Model string `json:"modelo"`
	Count int    `json:"quantidadeConsultas"`
}

// Key identifies the row for drill-down lookups.
func (r Row) Key() string {
	return r.Date + "|" + r.Model
}

// Point is one time-series sample, queries across all models on one day.
type Point struct {
	Date  string `json:"data"`
	Count int    `json:"quantidadeConsultas"`
}

// dayOf buckets a timestamp into its UTC calendar day.
func dayOf(t time.Time) string {
	return t.UTC().Format(dayLayout)
}

// Aggregate groups records by UTC day and model name, ordered by date
// descending then model name ascending. The same input always yields the
// same output regardless of record order.
func Aggregate(records []Record) []Row {
	type key struct{ date, model string }
	counts := make(map[key]int)
	for _, record := range records {
		counts[key{dayOf(record.QueriedAt), record.ModelName}]++
	}
	rows := make([]Row, 0, len(counts))
	for k, count := range counts {
		rows = append(rows, Row{Date: k.date, Model: k.model, Count: count})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Date != rows[j].Date {
			return rows[i].Date > rows[j].Date
		}
		return rows[i].Model < rows[j].Model
	})
	return rows
}

// TimeSeries sums records per UTC day across all models, ordered by date
// ascending for charting.
func TimeSeries(records []Record) []Point {
	counts := make(map[string]int)
	for _, record := range records {
		counts[dayOf(record.QueriedAt)]++
	}
	points := make([]Point, 0, len(counts))
	for date, count := range counts {
		points = append(points, Point{Date: date, Count: count})
	}
	sort.Slice(points, func(i, j int) bool { return points[i].Date < points[j].Date })
	return points
}

// ParseKey splits a "YYYY-MM-DD|model" drill-down key into the day's
// half-open interval and the exact model name.
func ParseKey(key string) (start, end time.Time, model string, err error) {
	date, model, ok := strings.Cut(key, "|")
	if !ok || model == "" {
		return time.Time{}, time.Time{}, "", fmt.Errorf("malformed history key %q", key)
	}
	start, err = time.ParseInLocation(dayLayout, date, time.UTC)
	if err != nil {
		return time.Time{}, time.Time{}, "", fmt.Errorf("malformed history key %q: %w", key, err)
	}
	return start, start.AddDate(0, 0, 1), model, nil
}
