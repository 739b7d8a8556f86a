package schedule

import (
	"fmt"
	"time"
)

// Resolution records how a local wall-clock time was mapped onto the UTC timeline.
type Resolution int

const (
	// Exact means the local time occurs exactly once.
	Exact Resolution = iota
	// Gap means the local time was skipped by a forward transition and was moved forward
	// by the size of the gap.
	Gap
	// Ambiguous means the local time occurs twice and the standard-time occurrence was used.
	Ambiguous
)

func (r Resolution) String() string {
	switch r {
	case Gap:
		return "gap"
	case Ambiguous:
		return "ambiguous"
	default:
		return "exact"
	}
}

// LoadLocation wraps time.LoadLocation with ErrInvalidTimezone.
func LoadLocation(tz string) (*time.Location, error) {
	if tz == "" {
		return nil, fmt.Errorf("%w: empty timezone", ErrInvalidTimezone)
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTimezone, tz)
	}
	return loc, nil
}

// ToUTC converts a local date and time of day in tz to a UTC instant.
func ToUTC(d Date, c Clock, tz string) (time.Time, error) {
	loc, err := LoadLocation(tz)
	if err != nil {
		return time.Time{}, err
	}
	t, _ := Resolve(d, c, loc)
	return t, nil
}

// Resolve maps a wall-clock time in loc to a UTC instant.
//
// Local times inside a forward transition are shifted forward by the gap and expressed in
// the offset that follows it. Local times that occur twice resolve to the standard-time
// occurrence.
func Resolve(d Date, c Clock, loc *time.Location) (time.Time, Resolution) {
	// wall holds the local reading as if it were UTC.
	wall := time.Date(d.Year, d.Month, d.Day, c.Hour, c.Minute, 0, 0, time.UTC)

	before := offsetAt(wall.Add(-24*time.Hour), loc)
	after := offsetAt(wall.Add(24*time.Hour), loc)

	var matches []time.Time
	for _, off := range uniqueOffsets(before, after) {
		u := wall.Add(-time.Duration(off) * time.Second)
		if offsetAt(u, loc) == off {
			matches = append(matches, u.UTC())
		}
	}

	switch len(matches) {
	case 0:
		// Reading the wall time with the pre-transition offset lands the same distance
		// past the transition as the wall time was inside the gap.
		return wall.Add(-time.Duration(before) * time.Second).UTC(), Gap
	case 1:
		return matches[0], Exact
	default:
		return standardOf(matches, loc), Ambiguous
	}
}

func offsetAt(t time.Time, loc *time.Location) int {
	_, off := t.In(loc).Zone()
	return off
}

func uniqueOffsets(a, b int) []int {
	if a == b {
		return []int{a}
	}
	return []int{a, b}
}

// standardOf picks the occurrence that is not daylight saving time, falling back to the
// one with the smaller UTC offset.
func standardOf(matches []time.Time, loc *time.Location) time.Time {
	for _, m := range matches {
		if !m.In(loc).IsDST() {
			return m
		}
	}
	best := matches[0]
	for _, m := range matches[1:] {
		if offsetAt(m, loc) < offsetAt(best, loc) {
			best = m
		}
	}
	return best
}
