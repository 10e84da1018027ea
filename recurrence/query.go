package recurrence

import (
	"time"

	"github.com/samber/mo"
)

// NextOccurrenceAfter returns the first occurrence of the series anchored at
// anchor that starts strictly after after. The search looks ten years ahead;
// None means the series has ended or has nothing in that horizon.
func NextOccurrenceAfter(r Rule, anchor, after time.Time) mo.Option[time.Time] {
	start := after.Add(time.Nanosecond)
	if start.Before(anchor) {
		start = anchor
	}
	w := NewWindow(start, start.AddDate(lookaheadYears, 0, 0))
	got := Generate(r, anchor, w, 1)
	if len(got) == 0 {
		return mo.None[time.Time]()
	}
	return mo.Some(got[0])
}

// IsOccurrenceOn reports whether the series anchored at anchor has an
// occurrence on the calendar day of date, evaluated in anchor's location.
//
// Daily and weekly rules without a count end are answered in constant time.
// Everything else walks the same candidates Generate would, bounded by
// MaxSteps.
func IsOccurrenceOn(r Rule, date, anchor time.Time) bool {
	if r.Interval == 0 {
		return false
	}
	date = date.In(anchor.Location())
	diff := civilDay(date) - civilDay(anchor)
	if diff < 0 {
		return false
	}

	y, m, d := date.Date()
	if r.End.Kind != EndCount {
		if r.End.Kind == EndUntil && atDay(anchor, y, m, d).After(r.End.Until) {
			return false
		}
		interval := int64(r.Interval)
		switch r.Frequency {
		case FreqDaily:
			return diff%interval == 0
		case FreqWeekly:
			days, ok := r.weekdays()
			if !ok {
				return diff%(7*interval) == 0
			}
			week := (civilDay(date) - civilDay(mondayOnOrBefore(anchor))) / 7
			return week%interval == 0 && days.Has(date.Weekday())
		}
	}

	dayStart := time.Date(y, m, d, 0, 0, 0, 0, anchor.Location())
	w := NewWindow(dayStart, dayStart.AddDate(0, 0, 1).Add(-time.Nanosecond))
	return len(generate(r, anchor, w, newLimits(1, MaxSteps))) > 0
}
