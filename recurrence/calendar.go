package recurrence

import "time"

func isLeapYear(year int) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}

func daysInMonth(year int, month time.Month) int {
	switch month {
	case time.April, time.June, time.September, time.November:
		return 30
	case time.February:
		if isLeapYear(year) {
			return 29
		}
		return 28
	default:
		return 31
	}
}

// atDay returns t moved to year/month/day, keeping its clock time and location.
func atDay(t time.Time, year int, month time.Month, d int) time.Time {
	return time.Date(year, month, d, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

// normalizeMonth carries month overflow into the year.
func normalizeMonth(year int, month int) (int, time.Month) {
	year += (month - 1) / 12
	month = (month-1)%12 + 1
	if month < 1 {
		month += 12
		year--
	}
	return year, time.Month(month)
}

// addMonths moves t forward n months, clamping the day to the target
// month's length: Jan 31 + 1 month is Feb 28 (Feb 29 in leap years).
func addMonths(t time.Time, n int) time.Time {
	year, month := normalizeMonth(t.Year(), int(t.Month())+n)
	d := min(t.Day(), daysInMonth(year, month))
	return atDay(t, year, month, d)
}

// addYears moves t forward n years; Feb 29 lands on Feb 28 in common years.
func addYears(t time.Time, n int) time.Time {
	year := t.Year() + n
	d := min(t.Day(), daysInMonth(year, t.Month()))
	return atDay(t, year, t.Month(), d)
}

// mondayOnOrBefore returns the Monday of t's week at t's clock time.
func mondayOnOrBefore(t time.Time) time.Time {
	return t.AddDate(0, 0, -int(mondayIndex(t.Weekday())))
}

// civilDay numbers calendar days so that consecutive dates differ by one,
// independent of clock time and DST.
func civilDay(t time.Time) int64 {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC).Unix() / int64(day/time.Second)
}

// nthWeekdayOfMonth resolves the occurrence-th wd of the month to a day
// number. Positive occurrences count from the first of the month, negative
// ones from the last day. ok is false when the month has no such weekday
// (a fifth Friday in a four-Friday month).
func nthWeekdayOfMonth(year int, month time.Month, wd time.Weekday, occurrence int) (int, bool) {
	if occurrence == 0 || occurrence < -7 || occurrence > 7 {
		return 0, false
	}
	length := daysInMonth(year, month)
	if occurrence > 0 {
		first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC).Weekday()
		offset := (int(wd) - int(first) + 7) % 7
		d := 1 + offset + (occurrence-1)*7
		return d, d <= length
	}
	last := time.Date(year, month, length, 0, 0, 0, 0, time.UTC).Weekday()
	offset := (int(last) - int(wd) + 7) % 7
	d := length - offset - (-occurrence-1)*7
	return d, d >= 1
}

// resolveMonthly places a monthly pattern inside the month of t. ok is false
// when the month has no matching day.
func resolveMonthly(t time.Time, p MonthlyPattern) (time.Time, bool) {
	year, month := t.Year(), t.Month()
	switch p.Kind {
	case MonthlyByDay:
		if p.Day < 1 || p.Day > daysInMonth(year, month) {
			return t, false
		}
		return atDay(t, year, month, p.Day), true
	case MonthlyByWeekday:
		d, ok := nthWeekdayOfMonth(year, month, p.Weekday, p.Occurrence)
		if !ok {
			return t, false
		}
		return atDay(t, year, month, d), true
	default:
		return t, false
	}
}

// stepFrom is the stepping primitive shared by the generator and
// IsOccurrenceOn. It returns the k-th candidate of r counted from anchor.
// Candidates are computed from the anchor rather than from the previous
// candidate, so month-end clamping never drifts (Jan 31, Feb 28, Mar 31).
//
// For monthly rules with a pattern the candidate is resolved inside the
// stepped month; ok is false when that month has no matching day. When ok is
// false the returned time is still a usable lower bound for the candidate's
// month.
func (r Rule) stepFrom(anchor time.Time, k int) (time.Time, bool) {
	n := k * int(r.Interval)
	switch r.Frequency {
	case FreqDaily:
		return anchor.AddDate(0, 0, n), true
	case FreqWeekly:
		return anchor.AddDate(0, 0, 7*n), true
	case FreqMonthly:
		if p, ok := r.Monthly.Get(); ok {
			year, month := normalizeMonth(anchor.Year(), int(anchor.Month())+n)
			first := atDay(anchor, year, month, 1)
			return resolveMonthly(first, p)
		}
		return addMonths(anchor, n), true
	case FreqYearly:
		return addYears(anchor, n), true
	default:
		return anchor, false
	}
}
