package schedule

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func datesEqual(t *testing.T, got []Date, want ...Date) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("expected %d dates %v, got %d: %v", len(want), want, len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("date[%d]: expected %s, got %s", i, want[i], got[i])
		}
	}
}

func TestExpandDates_Daily(t *testing.T) {
	end := NewDate(2024, time.February, 18)
	got, err := ExpandDates(NewDate(2024, time.February, 15), PatternDaily, &end)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	datesEqual(t, got,
		NewDate(2024, time.February, 15),
		NewDate(2024, time.February, 16),
		NewDate(2024, time.February, 17),
		NewDate(2024, time.February, 18),
	)
}

func TestExpandDates_Weekly(t *testing.T) {
	end := NewDate(2024, time.March, 1)
	got, err := ExpandDates(NewDate(2024, time.February, 15), PatternWeekly, &end)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	datesEqual(t, got,
		NewDate(2024, time.February, 15),
		NewDate(2024, time.February, 22),
		NewDate(2024, time.February, 29),
	)
}

func TestExpandDates_MonthlyClampsToDay28(t *testing.T) {
	end := NewDate(2024, time.April, 1)
	got, err := ExpandDates(NewDate(2024, time.January, 31), PatternMonthly, &end)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	datesEqual(t, got,
		NewDate(2024, time.January, 31),
		NewDate(2024, time.February, 28),
		NewDate(2024, time.March, 28),
	)
}

func TestExpandDates_MonthlyDecemberRollover(t *testing.T) {
	end := NewDate(2025, time.March, 31)
	got, err := ExpandDates(NewDate(2024, time.December, 31), PatternMonthly, &end)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	datesEqual(t, got,
		NewDate(2024, time.December, 31),
		NewDate(2025, time.January, 31),
		NewDate(2025, time.February, 28),
		NewDate(2025, time.March, 28),
	)
}

func TestExpandDates_None(t *testing.T) {
	start := NewDate(2024, time.May, 2)
	got, err := ExpandDates(start, PatternNone, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	datesEqual(t, got, start)
}

func TestExpandDates_Invalid(t *testing.T) {
	start := NewDate(2024, time.May, 2)
	same := start
	earlier := start.AddDays(-1)

	tests := []struct {
		name    string
		pattern Pattern
		end     *Date
	}{
		{"missing end", PatternDaily, nil},
		{"end equals start", PatternWeekly, &same},
		{"end before start", PatternMonthly, &earlier},
		{"unknown pattern", Pattern("yearly"), &same},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ExpandDates(start, tt.pattern, tt.end)
			if !errors.Is(err, ErrInvalidRecurrence) {
				t.Errorf("expected ErrInvalidRecurrence, got %v", err)
			}
		})
	}
}

func TestDate_JSONRoundTrip(t *testing.T) {
	d, err := ParseDate("2024-02-29")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, err := d.MarshalJSON()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(b) != `"2024-02-29"` {
		t.Errorf("expected \"2024-02-29\", got %s", b)
	}
}

func TestDate_ZeroIsNull(t *testing.T) {
	b, err := json.Marshal(struct {
		Start Date `json:"start"`
	}{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(b) != `{"start":null}` {
		t.Errorf("expected null for zero date, got %s", b)
	}

	d := NewDate(2024, time.March, 1)
	if err := json.Unmarshal([]byte("null"), &d); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !d.IsZero() {
		t.Errorf("expected zero date after null, got %s", d)
	}

	var back struct {
		Start Date `json:"start"`
	}
	if err := json.Unmarshal(b, &back); err != nil {
		t.Fatalf("zero date did not round trip: %v", err)
	}
}
