package schedule

import (
	"sort"
	"time"
)

// Interval is a half-open [Start, End) range of UTC time.
type Interval struct {
	Start time.Time
	End   time.Time
}

// Overlaps reports whether a and b share any instant.
func Overlaps(a, b Interval) bool {
	return a.Start.Before(b.End) && a.End.After(b.Start)
}

// DetectConflicts splits candidates into those that overlap neither an existing interval
// nor an earlier accepted candidate, and those that do. Callers pass only intervals that
// still occupy time (cancelled slots excluded).
func DetectConflicts(existing []Interval, candidates []Candidate) (accepted, rejected []Candidate) {
	taken := make([]Interval, len(existing))
	copy(taken, existing)
	sort.Slice(taken, func(i, j int) bool { return taken[i].Start.Before(taken[j].Start) })

	for _, c := range candidates {
		iv := c.Interval()
		if overlapsAny(taken, iv) {
			rejected = append(rejected, c)
			continue
		}
		accepted = append(accepted, c)
		taken = insertSorted(taken, iv)
	}
	return accepted, rejected
}

func overlapsAny(sorted []Interval, iv Interval) bool {
	// First interval that starts at or after iv.End cannot overlap, nor can anything after it.
	n := sort.Search(len(sorted), func(i int) bool { return !sorted[i].Start.Before(iv.End) })
	for i := n - 1; i >= 0; i-- {
		if Overlaps(sorted[i], iv) {
			return true
		}
	}
	return false
}

func insertSorted(sorted []Interval, iv Interval) []Interval {
	i := sort.Search(len(sorted), func(i int) bool { return sorted[i].Start.After(iv.Start) })
	sorted = append(sorted, Interval{})
	copy(sorted[i+1:], sorted[i:])
	sorted[i] = iv
	return sorted
}

// Span returns the smallest interval covering all candidates.
func Span(candidates []Candidate) (Interval, bool) {
	if len(candidates) == 0 {
		return Interval{}, false
	}
	span := candidates[0].Interval()
	for _, c := range candidates[1:] {
		if c.Start.Before(span.Start) {
			span.Start = c.Start
		}
		if c.End.After(span.End) {
			span.End = c.End
		}
	}
	return span, true
}
