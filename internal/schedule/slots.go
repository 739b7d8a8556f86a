package schedule

import (
	"fmt"
	"time"
)

const (
	MinSlotMinutes  = 15
	MaxSlotMinutes  = 240
	MaxBreakMinutes = 120
)

// Window holds the parts of an availability window that drive slot generation.
type Window struct {
	Date          Date
	Start         Clock
	End           Clock
	Timezone      string
	SlotMinutes   int
	BreakMinutes  int
	Pattern       Pattern
	RecurrenceEnd *Date
}

// Candidate is a slot proposed by the generator before conflict detection.
type Candidate struct {
	Date       Date
	LocalStart Clock
	Start      time.Time
	End        time.Time
	Resolution Resolution
}

func (c Candidate) Interval() Interval {
	return Interval{Start: c.Start, End: c.End}
}

// WindowMinutes is the local length of the window.
func (w Window) WindowMinutes() int {
	return w.End.Minutes() - w.Start.Minutes()
}

// Validate checks everything that can be checked before any date is expanded.
func (w Window) Validate() error {
	if !w.Start.Before(w.End) {
		return fmt.Errorf("%w: start %s must be before end %s", ErrInvalidTimeRange, w.Start, w.End)
	}
	if _, err := LoadLocation(w.Timezone); err != nil {
		return err
	}
	if w.SlotMinutes < MinSlotMinutes || w.SlotMinutes > MaxSlotMinutes {
		return fmt.Errorf("%w: slot duration must be between %d and %d minutes, got %d",
			ErrInvalidDuration, MinSlotMinutes, MaxSlotMinutes, w.SlotMinutes)
	}
	if w.BreakMinutes < 0 || w.BreakMinutes > MaxBreakMinutes {
		return fmt.Errorf("%w: break duration must be between 0 and %d minutes, got %d",
			ErrInvalidDuration, MaxBreakMinutes, w.BreakMinutes)
	}
	if total := w.WindowMinutes(); w.SlotMinutes > total {
		return fmt.Errorf("%w: slot duration (%d minutes) cannot exceed total availability time (%d minutes)",
			ErrSlotDurationExceedsWindow, w.SlotMinutes, total)
	}
	return ValidateRecurrence(w.Date, w.Pattern, w.RecurrenceEnd)
}

// Dates expands the window's recurrence.
func (w Window) Dates() ([]Date, error) {
	return ExpandDates(w.Date, w.Pattern, w.RecurrenceEnd)
}

// LocalStarts returns the local start times carved from one day of the window.
// A slot is kept only if it ends at or before the window end; the last slot needs no
// trailing break.
func (w Window) LocalStarts() []Clock {
	var starts []Clock
	step := w.SlotMinutes + w.BreakMinutes
	end := w.End.Minutes()
	for m := w.Start.Minutes(); m+w.SlotMinutes <= end; m += step {
		starts = append(starts, clockFromMinutes(m))
	}
	return starts
}

// CountPerDay is the number of slots carved from each expanded date.
func (w Window) CountPerDay() int {
	return len(w.LocalStarts())
}

// GenerateCandidates validates the window and produces the UTC candidates for every
// expanded date, in chronological order. The UTC end is always start plus the slot
// duration so the duration holds across DST transitions.
func GenerateCandidates(w Window) ([]Candidate, error) {
	if err := w.Validate(); err != nil {
		return nil, err
	}
	loc, err := LoadLocation(w.Timezone)
	if err != nil {
		return nil, err
	}
	dates, err := w.Dates()
	if err != nil {
		return nil, err
	}

	starts := w.LocalStarts()
	duration := time.Duration(w.SlotMinutes) * time.Minute
	candidates := make([]Candidate, 0, len(dates)*len(starts))
	for _, d := range dates {
		for _, c := range starts {
			start, res := Resolve(d, c, loc)
			candidates = append(candidates, Candidate{
				Date:       d,
				LocalStart: c,
				Start:      start,
				End:        start.Add(duration),
				Resolution: res,
			})
		}
	}
	return candidates, nil
}
