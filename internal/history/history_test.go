package history

import (
	"context"
	"errors"
	"testing"
	"time"
)

func at(day string, hour int) time.Time {
	t, err := time.ParseInLocation(dayLayout, day, time.UTC)
	if err != nil {
		panic(err)
	}
	return t.Add(time.Duration(hour) * time.Hour)
}

func sampleRecords() []Record {
	return []Record{
		{ModelName: "A", QueriedAt: at("2024-01-01", 9)},
		{ModelName: "A", QueriedAt: at("2024-01-01", 15)},
		{ModelName: "B", QueriedAt: at("2024-01-01", 12)},
		{ModelName: "A", QueriedAt: at("2024-01-02", 8)},
	}
}

func TestAggregateGroupsAndOrders(t *testing.T) {
	rows := Aggregate(sampleRecords())
	want := []Row{
		{Date: "2024-01-02", Model: "A", Count: 1},
		{Date: "2024-01-01", Model: "A", Count: 2},
		{Date: "2024-01-01", Model: "B", Count: 1},
	}
	if len(rows) != len(want) {
		t.Fatalf("expected %d rows, got %d: %v", len(want), len(rows), rows)
	}
	for i := range want {
		if rows[i] != want[i] {
			t.Fatalf("row %d: expected %+v, got %+v", i, want[i], rows[i])
		}
	}
}

func TestAggregateIsOrderIndependent(t *testing.T) {
	records := sampleRecords()
	reversed := make([]Record, len(records))
	for i, record := range records {
		reversed[len(records)-1-i] = record
	}
	a, b := Aggregate(records), Aggregate(reversed)
	if len(a) != len(b) {
		t.Fatalf("row counts differ: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("row %d differs: %+v vs %+v", i, a[i], b[i])
		}
	}
}

func TestAggregateBucketsByUTCDay(t *testing.T) {
	// 23:30 UTC-3 is 02:30 UTC the next day; the bucket follows UTC.
	saoPaulo := time.FixedZone("-03", -3*3600)
	local := time.Date(2024, 1, 1, 23, 30, 0, 0, saoPaulo)
	rows := Aggregate([]Record{{ModelName: "A", QueriedAt: local}})
	if rows[0].Date != "2024-01-02" {
		t.Fatalf("expected UTC bucket 2024-01-02, got %s", rows[0].Date)
	}
}

func TestTimeSeriesSumsAcrossModels(t *testing.T) {
	points := TimeSeries(sampleRecords())
	want := []Point{
		{Date: "2024-01-01", Count: 3},
		{Date: "2024-01-02", Count: 1},
	}
	if len(points) != len(want) {
		t.Fatalf("expected %d points, got %d: %v", len(want), len(points), points)
	}
	for i := range want {
		if points[i] != want[i] {
			t.Fatalf("point %d: expected %+v, got %+v", i, want[i], points[i])
		}
	}
}

func TestFilterMatchesSubstringCaseInsensitive(t *testing.T) {
	record := Record{ModelName: "Credit Score Plus", QueriedAt: at("2024-01-01", 9)}
	if !(Filter{Model: "score"}).Matches(record) {
		t.Fatal("substring filter should match regardless of case")
	}
	if (Filter{Model: "fraud"}).Matches(record) {
		t.Fatal("non-substring must not match")
	}
}

func TestFilterIntervalIsHalfOpen(t *testing.T) {
	start, end := at("2024-01-01", 0), at("2024-01-02", 0)
	f := Filter{Start: &start, End: &end}
	if !f.Matches(Record{ModelName: "A", QueriedAt: start}) {
		t.Fatal("start boundary is inclusive")
	}
	if f.Matches(Record{ModelName: "A", QueriedAt: end}) {
		t.Fatal("end boundary is exclusive")
	}
}

func TestParseKey(t *testing.T) {
	start, end, model, err := ParseKey("2024-01-01|Credit Score")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if model != "Credit Score" {
		t.Fatalf("unexpected model %q", model)
	}
	if !start.Equal(at("2024-01-01", 0)) || !end.Equal(at("2024-01-02", 0)) {
		t.Fatalf("unexpected interval %v..%v", start, end)
	}

	for _, bad := range []string{"", "2024-01-01", "not-a-date|A", "2024-01-01|"} {
		if _, _, _, err := ParseKey(bad); err == nil {
			t.Fatalf("key %q should be rejected", bad)
		}
	}
}

type stubSource struct {
	records []Record
	count   int
	err     error
}

func (s *stubSource) Records(_ context.Context, filter Filter) ([]Record, error) {
	if s.err != nil {
		return nil, s.err
	}
	var out []Record
	for _, record := range s.records {
		if filter.Matches(record) {
			out = append(out, record)
		}
	}
	return out, nil
}

func (s *stubSource) CountExact(context.Context, string, time.Time, time.Time) (int, error) {
	return s.count, s.err
}

func TestListPaginatesAggregatedRows(t *testing.T) {
	svc := NewService(&stubSource{records: sampleRecords()})

	rows, total, err := svc.List(context.Background(), Filter{}, Page{Number: 0, Size: 2})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 3 {
		t.Fatalf("total counts aggregated rows, expected 3, got %d", total)
	}
	if len(rows) != 2 || rows[0].Date != "2024-01-02" {
		t.Fatalf("unexpected first page: %v", rows)
	}

	rows, _, err = svc.List(context.Background(), Filter{}, Page{Number: 1, Size: 2})
	if err != nil {
		t.Fatalf("list page 1: %v", err)
	}
	if len(rows) != 1 || rows[0].Model != "B" {
		t.Fatalf("unexpected second page: %v", rows)
	}

	rows, total, err = svc.List(context.Background(), Filter{}, Page{Number: 9, Size: 2})
	if err != nil {
		t.Fatalf("list past end: %v", err)
	}
	if len(rows) != 0 || total != 3 {
		t.Fatalf("past-the-end page should be empty with the real total, got %v/%d", rows, total)
	}
}

func TestGetByKeyRecounts(t *testing.T) {
	svc := NewService(&stubSource{count: 2})
	row, err := svc.GetByKey(context.Background(), "2024-01-01|A")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if row.Count != 2 || row.Date != "2024-01-01" || row.Model != "A" {
		t.Fatalf("unexpected row %+v", row)
	}

	svc = NewService(&stubSource{count: 0})
	if _, err := svc.GetByKey(context.Background(), "2024-01-01|A"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("zero count should be ErrNotFound, got %v", err)
	}
}
