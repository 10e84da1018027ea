package recurrence

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/samber/mo"
	"github.com/teambition/rrule-go"
)

// ErrUnsupportedRRule is returned by ParseRRule for RRULE parts a Rule cannot
// express, such as BYSETPOS, BYHOUR or sub-daily frequencies.
var ErrUnsupportedRRule = errors.New("unsupported RRULE")

const rruleUntilLayout = "20060102T150405Z"

var rruleWeekdays = [...]rrule.Weekday{rrule.SU, rrule.MO, rrule.TU, rrule.WE, rrule.TH, rrule.FR, rrule.SA}

// rruleDayCodes is indexed by time.Weekday.
var rruleDayCodes = [...]string{"SU", "MO", "TU", "WE", "TH", "FR", "SA"}

// RRuleString renders r as the value of an RFC 5545 RRULE property, without
// the "RRULE:" prefix.
func (r Rule) RRuleString() string {
	parts := []string{"FREQ=" + strings.ToUpper(r.Frequency.String())}
	if r.Interval > 1 {
		parts = append(parts, "INTERVAL="+strconv.FormatUint(uint64(r.Interval), 10))
	}

	switch r.End.Kind {
	case EndCount:
		parts = append(parts, "COUNT="+strconv.FormatUint(uint64(r.End.Count), 10))
	case EndUntil:
		parts = append(parts, "UNTIL="+r.End.Until.UTC().Format(rruleUntilLayout))
	}

	if r.Frequency == FreqWeekly {
		if days, ok := r.weekdays(); ok {
			codes := make([]string, 0, days.Len())
			for _, d := range days.Days() {
				codes = append(codes, rruleDayCodes[d])
			}
			parts = append(parts, "BYDAY="+strings.Join(codes, ","))
		}
	}

	if r.Frequency == FreqMonthly {
		if p, ok := r.Monthly.Get(); ok {
			switch p.Kind {
			case MonthlyByDay:
				parts = append(parts, "BYMONTHDAY="+strconv.Itoa(p.Day))
			case MonthlyByWeekday:
				parts = append(parts, "BYDAY="+strconv.Itoa(p.Occurrence)+rruleDayCodes[p.Weekday])
			}
		}
	}

	return strings.Join(parts, ";")
}

// ToROption converts r into an rrule-go option anchored at anchor.
func (r Rule) ToROption(anchor time.Time) (rrule.ROption, error) {
	opt := rrule.ROption{
		Dtstart:  anchor,
		Interval: int(r.Interval),
		Wkst:     rrule.MO,
	}

	switch r.Frequency {
	case FreqDaily:
		opt.Freq = rrule.DAILY
	case FreqWeekly:
		opt.Freq = rrule.WEEKLY
		if days, ok := r.weekdays(); ok {
			for _, d := range days.Days() {
				opt.Byweekday = append(opt.Byweekday, rruleWeekdays[d])
			}
		}
	case FreqMonthly:
		opt.Freq = rrule.MONTHLY
		if p, ok := r.Monthly.Get(); ok {
			switch p.Kind {
			case MonthlyByDay:
				opt.Bymonthday = []int{p.Day}
			case MonthlyByWeekday:
				opt.Byweekday = []rrule.Weekday{rruleWeekdays[p.Weekday].Nth(p.Occurrence)}
			}
		}
	case FreqYearly:
		opt.Freq = rrule.YEARLY
	default:
		return rrule.ROption{}, ErrInvalidFrequency
	}

	switch r.End.Kind {
	case EndCount:
		opt.Count = int(r.End.Count)
	case EndUntil:
		opt.Until = r.End.Until
	}
	return opt, nil
}

// ParseRRule parses an RFC 5545 recurrence rule, with or without the
// "RRULE:" prefix. Parts that have no equivalent in Rule are rejected with
// ErrUnsupportedRRule rather than silently dropped.
func ParseRRule(s string) (Rule, error) {
	s = strings.TrimSpace(s)
	if len(s) >= 6 && strings.EqualFold(s[:6], "RRULE:") {
		s = s[6:]
	}

	opt, err := rrule.StrToROption(s)
	if err != nil {
		return Rule{}, fmt.Errorf("parse RRULE %q: %w", s, err)
	}

	unsupported := func(part string) (Rule, error) {
		return Rule{}, fmt.Errorf("%w: %s in %q", ErrUnsupportedRRule, part, s)
	}

	switch {
	case len(opt.Bysetpos) > 0:
		return unsupported("BYSETPOS")
	case len(opt.Bymonth) > 0:
		return unsupported("BYMONTH")
	case len(opt.Byyearday) > 0:
		return unsupported("BYYEARDAY")
	case len(opt.Byweekno) > 0:
		return unsupported("BYWEEKNO")
	case len(opt.Byhour) > 0 || len(opt.Byminute) > 0 || len(opt.Bysecond) > 0:
		return unsupported("BYHOUR/BYMINUTE/BYSECOND")
	case len(opt.Byeaster) > 0:
		return unsupported("BYEASTER")
	case opt.Count > 0 && !opt.Until.IsZero():
		return unsupported("COUNT with UNTIL")
	}

	if opt.Interval < 0 || opt.Interval > int(fieldInterval.max) {
		return unsupported("INTERVAL=" + strconv.Itoa(opt.Interval))
	}

	r := Rule{
		Interval: uint32(max(opt.Interval, 1)),
		End:      NeverEnds(),
		Weekly:   mo.None[WeekdaySet](),
		Monthly:  mo.None[MonthlyPattern](),
	}

	switch {
	case opt.Count > 0:
		r.End = AfterCount(uint32(opt.Count))
	case !opt.Until.IsZero():
		r.End = UntilTime(opt.Until.UTC())
	}

	switch opt.Freq {
	case rrule.DAILY:
		r.Frequency = FreqDaily
		if len(opt.Byweekday) > 0 || len(opt.Bymonthday) > 0 {
			return unsupported("BYDAY/BYMONTHDAY on DAILY")
		}
	case rrule.WEEKLY:
		r.Frequency = FreqWeekly
		if len(opt.Bymonthday) > 0 {
			return unsupported("BYMONTHDAY on WEEKLY")
		}
		if len(opt.Byweekday) > 0 {
			var days WeekdaySet
			for _, wd := range opt.Byweekday {
				if wd.N() != 0 {
					return unsupported("ordinal BYDAY on WEEKLY")
				}
				days = days.Add(weekdayFromIndex(uint(wd.Day())))
			}
			r.Weekly = mo.Some(days)
		}
	case rrule.MONTHLY:
		r.Frequency = FreqMonthly
		switch {
		case len(opt.Bymonthday) > 0 && len(opt.Byweekday) > 0:
			return unsupported("BYMONTHDAY with BYDAY")
		case len(opt.Bymonthday) == 1:
			if opt.Bymonthday[0] < 1 {
				return unsupported("negative BYMONTHDAY")
			}
			r.Monthly = mo.Some(DayOfMonth(opt.Bymonthday[0]))
		case len(opt.Bymonthday) > 1:
			return unsupported("multiple BYMONTHDAY")
		case len(opt.Byweekday) == 1:
			wd := opt.Byweekday[0]
			if wd.N() == 0 {
				return unsupported("BYDAY without ordinal on MONTHLY")
			}
			r.Monthly = mo.Some(WeekdayOccurrence(weekdayFromIndex(uint(wd.Day())), wd.N()))
		case len(opt.Byweekday) > 1:
			return unsupported("multiple BYDAY on MONTHLY")
		}
	case rrule.YEARLY:
		r.Frequency = FreqYearly
		if len(opt.Byweekday) > 0 || len(opt.Bymonthday) > 0 {
			return unsupported("BYDAY/BYMONTHDAY on YEARLY")
		}
	default:
		return unsupported(fmt.Sprintf("FREQ=%v", opt.Freq))
	}

	return r, nil
}
