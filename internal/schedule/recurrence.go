package schedule

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrInvalidRecurrence         = errors.New("invalid recurrence")
	ErrInvalidTimezone           = errors.New("invalid timezone")
	ErrInvalidTimeRange          = errors.New("invalid time range")
	ErrInvalidDuration           = errors.New("invalid slot or break duration")
	ErrSlotDurationExceedsWindow = errors.New("slot duration exceeds availability window")
)

type Pattern string

const (
	PatternNone    Pattern = "none"
	PatternDaily   Pattern = "daily"
	PatternWeekly  Pattern = "weekly"
	PatternMonthly Pattern = "monthly"
)

func (p Pattern) Valid() bool {
	switch p {
	case PatternNone, PatternDaily, PatternWeekly, PatternMonthly:
		return true
	}
	return false
}

// clampDay is the day-of-month used when a monthly step lands past the end of the target month.
const clampDay = 28

// ValidateRecurrence checks a pattern against its end date without expanding it.
func ValidateRecurrence(start Date, pattern Pattern, end *Date) error {
	if pattern == "" || pattern == PatternNone {
		return nil
	}
	if !pattern.Valid() {
		return fmt.Errorf("%w: unknown pattern %q", ErrInvalidRecurrence, pattern)
	}
	if end == nil || end.IsZero() {
		return fmt.Errorf("%w: %s recurrence requires an end date", ErrInvalidRecurrence, pattern)
	}
	if !end.After(start) {
		return fmt.Errorf("%w: end date %s must be after start date %s", ErrInvalidRecurrence, end, start)
	}
	return nil
}

// ExpandDates returns the dates produced by pattern from start through end inclusive.
// The start date is always the first element.
func ExpandDates(start Date, pattern Pattern, end *Date) ([]Date, error) {
	if err := ValidateRecurrence(start, pattern, end); err != nil {
		return nil, err
	}
	if pattern == "" || pattern == PatternNone {
		return []Date{start}, nil
	}

	dates := []Date{start}
	current := start
	for current.Before(*end) {
		current = step(current, pattern)
		if current.After(*end) {
			break
		}
		dates = append(dates, current)
	}
	return dates, nil
}

func step(d Date, pattern Pattern) Date {
	switch pattern {
	case PatternDaily:
		return d.AddDays(1)
	case PatternWeekly:
		return d.AddDays(7)
	default:
		return addMonth(d)
	}
}

func addMonth(d Date) Date {
	year, month := d.Year, d.Month+1
	if month > time.December {
		year, month = year+1, time.January
	}
	if d.Day > daysIn(year, month) {
		return Date{Year: year, Month: month, Day: clampDay}
	}
	return Date{Year: year, Month: month, Day: d.Day}
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
