package httpapi

import "testing"

func TestEnvelopeFloorsTotalPagesAtOne(t *testing.T) {
	env := envelope([]string{}, 0, 0, 20, 0)
	if env.TotalPages != 1 {
		t.Fatalf("empty result must still report one page, got %d", env.TotalPages)
	}
	if !env.First || !env.Last || !env.Empty {
		t.Fatalf("unexpected flags on empty envelope %+v", env)
	}
}

func TestEnvelopeRoundsPagesUp(t *testing.T) {
	env := envelope([]string{"a"}, 41, 2, 20, 1)
	if env.TotalPages != 3 {
		t.Fatalf("expected 3 pages for 41 rows of 20, got %d", env.TotalPages)
	}
	if env.First || !env.Last {
		t.Fatalf("unexpected flags on last page %+v", env)
	}
}
