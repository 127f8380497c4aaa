package clock

import (
	"testing"
	"time"
)

func TestManualClock(t *testing.T) {
	start := time.Date(2026, 5, 1, 23, 59, 0, 0, time.UTC)
	c := NewManualClock(start)

	if !c.Now().Equal(start) {
		t.Fatalf("Expected %s, got %s", start, c.Now())
	}
	c.Advance(2 * time.Minute)
	if want := start.Add(2 * time.Minute); !c.Now().Equal(want) {
		t.Errorf("Expected %s, got %s", want, c.Now())
	}
}

func TestStartOfDay(t *testing.T) {
	ist := time.FixedZone("IST", 5*3600+1800)
	tests := []struct {
		in   time.Time
		want time.Time
	}{
		{time.Date(2026, 5, 1, 13, 45, 10, 5, time.UTC), time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)},
		{time.Date(2026, 5, 2, 3, 0, 0, 0, ist), time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		if got := StartOfDay(tt.in); !got.Equal(tt.want) {
			t.Errorf("StartOfDay(%s) = %s, want %s", tt.in, got, tt.want)
		}
	}
}
