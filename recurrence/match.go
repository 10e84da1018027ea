package recurrence

import "time"

// Matches reports whether t satisfies the rule's weekly or monthly pattern.
//
// Daily and yearly rules always match; their frequency stepping alone decides
// the occurrences. A weekly rule without a weekly pattern, or a monthly rule
// without a monthly pattern, also always matches. An empty weekly pattern
// counts as absent.
func (r Rule) Matches(t time.Time) bool {
	switch r.Frequency {
	case FreqWeekly:
		days, ok := r.weekdays()
		if !ok {
			return true
		}
		return days.Has(t.Weekday())
	case FreqMonthly:
		p, ok := r.Monthly.Get()
		if !ok {
			return true
		}
		switch p.Kind {
		case MonthlyByDay:
			return t.Day() == p.Day
		case MonthlyByWeekday:
			return matchesWeekdayOccurrence(t, p.Weekday, p.Occurrence)
		default:
			return false
		}
	default:
		return true
	}
}

// weekdays returns the weekly pattern, treating an empty set like an absent
// one. The packed form cannot tell the two apart.
func (r Rule) weekdays() (WeekdaySet, bool) {
	days, ok := r.Weekly.Get()
	if !ok || days.IsEmpty() {
		return 0, false
	}
	return days, true
}

func matchesWeekdayOccurrence(t time.Time, wd time.Weekday, occurrence int) bool {
	if t.Weekday() != wd {
		return false
	}
	d, ok := nthWeekdayOfMonth(t.Year(), t.Month(), wd, occurrence)
	return ok && d == t.Day()
}
