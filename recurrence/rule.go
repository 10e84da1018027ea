package recurrence

import (
	"time"

	"github.com/samber/mo"
)

// Frequency is the base stepping unit of a rule.
type Frequency uint8

const (
	FreqDaily Frequency = iota
	FreqWeekly
	FreqMonthly
	FreqYearly
)

// String provides a human-readable representation of the Frequency.
func (f Frequency) String() string {
	switch f {
	case FreqDaily:
		return "daily"
	case FreqWeekly:
		return "weekly"
	case FreqMonthly:
		return "monthly"
	case FreqYearly:
		return "yearly"
	default:
		return "unknown"
	}
}

// EndKind tells which end condition of a rule is active.
type EndKind uint8

const (
	EndNever EndKind = iota
	EndCount
	EndUntil
)

func (k EndKind) String() string {
	switch k {
	case EndNever:
		return "never"
	case EndCount:
		return "count"
	case EndUntil:
		return "until"
	default:
		return "unknown"
	}
}

// End is the end condition of a rule. Only the field matching Kind is meaningful.
type End struct {
	Kind  EndKind
	Count uint32    // number of occurrences, EndCount only
	Until time.Time // last instant an occurrence may start at, EndUntil only
}

// NeverEnds returns the open-ended condition.
func NeverEnds() End { return End{Kind: EndNever} }

// AfterCount ends a series after n occurrences.
func AfterCount(n uint32) End { return End{Kind: EndCount, Count: n} }

// UntilTime ends a series at t (inclusive).
func UntilTime(t time.Time) End { return End{Kind: EndUntil, Until: t} }

// MonthlyKind selects the variant of a MonthlyPattern.
type MonthlyKind uint8

const (
	MonthlyByDay MonthlyKind = iota
	MonthlyByWeekday
)

// MonthlyPattern pins a monthly rule to either a fixed day of the month or the
// nth weekday of the month. A negative Occurrence counts from the end of the
// month, so -1 is the last such weekday.
type MonthlyPattern struct {
	Kind       MonthlyKind
	Day        int          // 1..31, MonthlyByDay only
	Weekday    time.Weekday // MonthlyByWeekday only
	Occurrence int          // -7..7 excluding 0, MonthlyByWeekday only
}

// DayOfMonth returns a pattern matching day d of every month.
func DayOfMonth(d int) MonthlyPattern {
	return MonthlyPattern{Kind: MonthlyByDay, Day: d}
}

// WeekdayOccurrence returns a pattern matching the nth wd of every month.
func WeekdayOccurrence(wd time.Weekday, occurrence int) MonthlyPattern {
	return MonthlyPattern{Kind: MonthlyByWeekday, Weekday: wd, Occurrence: occurrence}
}

// Rule describes a recurring schedule relative to an anchor start time.
//
// A Rule is a value: builders return modified copies and nothing in this
// package mutates a Rule it was handed. Construction does not validate; range
// checks happen in Encode and the generator bounds its own work.
//
// A weekly rule without a weekly pattern, and a monthly rule without a monthly
// pattern, match every candidate date. They degrade to plain interval stepping
// from the anchor (every Nth week on the anchor's weekday, every Nth month on
// the anchor's day).
type Rule struct {
	Frequency Frequency                 `json:"frequency"`
	Interval  uint32                    `json:"interval"`
	End       End                       `json:"end"`
	Weekly    mo.Option[WeekdaySet]     `json:"weekly_pattern"`
	Monthly   mo.Option[MonthlyPattern] `json:"monthly_pattern"`
}

// Daily recurs every interval days.
func Daily(interval uint32) Rule {
	return Rule{
		Frequency: FreqDaily,
		Interval:  interval,
		End:       NeverEnds(),
		Weekly:    mo.None[WeekdaySet](),
		Monthly:   mo.None[MonthlyPattern](),
	}
}

// Weekly recurs on the given weekdays of every interval-th week. Without
// days it recurs on the anchor's weekday.
func Weekly(interval uint32, days ...time.Weekday) Rule {
	weekly := mo.None[WeekdaySet]()
	if len(days) > 0 {
		weekly = mo.Some(NewWeekdaySet(days...))
	}
	return Rule{
		Frequency: FreqWeekly,
		Interval:  interval,
		End:       NeverEnds(),
		Weekly:    weekly,
		Monthly:   mo.None[MonthlyPattern](),
	}
}

// MonthlyDay recurs on day d of every interval-th month.
func MonthlyDay(interval uint32, d int) Rule {
	return Rule{
		Frequency: FreqMonthly,
		Interval:  interval,
		End:       NeverEnds(),
		Weekly:    mo.None[WeekdaySet](),
		Monthly:   mo.Some(DayOfMonth(d)),
	}
}

// MonthlyWeekday recurs on the nth wd of every interval-th month.
func MonthlyWeekday(interval uint32, wd time.Weekday, occurrence int) Rule {
	return Rule{
		Frequency: FreqMonthly,
		Interval:  interval,
		End:       NeverEnds(),
		Weekly:    mo.None[WeekdaySet](),
		Monthly:   mo.Some(WeekdayOccurrence(wd, occurrence)),
	}
}

// Yearly recurs every interval years on the anchor's month and day.
func Yearly(interval uint32) Rule {
	return Rule{
		Frequency: FreqYearly,
		Interval:  interval,
		End:       NeverEnds(),
		Weekly:    mo.None[WeekdaySet](),
		Monthly:   mo.None[MonthlyPattern](),
	}
}

// WithCount returns a copy of r that ends after n occurrences.
func (r Rule) WithCount(n uint32) Rule {
	r.End = AfterCount(n)
	return r
}

// WithEndDate returns a copy of r that ends at t.
func (r Rule) WithEndDate(t time.Time) Rule {
	r.End = UntilTime(t)
	return r
}

// String renders r in RRULE notation, e.g. "FREQ=WEEKLY;INTERVAL=2;BYDAY=MO,WE".
func (r Rule) String() string {
	return r.RRuleString()
}
