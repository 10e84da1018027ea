package recurrence

import (
	"time"

	"github.com/samber/mo"
)

const day = 24 * time.Hour

// Encode packs r into a single uint64 for storage.
//
// The until-date is stored at day granularity: Decode returns midnight UTC of
// the encoded day.
func Encode(r Rule) (uint64, error) {
	var (
		packed uint64
		err    error
	)

	if r.Frequency > FreqYearly {
		return 0, &EncodeError{Field: fieldFrequency.name, Value: int64(r.Frequency), Err: ErrInvalidFrequency}
	}
	packed, _ = fieldFrequency.put(packed, uint64(r.Frequency))

	if r.Interval == 0 {
		return 0, &EncodeError{Field: fieldInterval.name, Value: 0, Err: ErrZeroInterval}
	}
	if packed, err = fieldInterval.put(packed, uint64(r.Interval)); err != nil {
		return 0, err
	}

	if packed, err = encodeEnd(packed, r.End); err != nil {
		return 0, err
	}

	if days, ok := r.Weekly.Get(); ok {
		packed, _ = fieldWeekly.put(packed, uint64(days&allWeekdays))
	}

	if packed, err = encodeMonthly(packed, r.Monthly); err != nil {
		return 0, err
	}
	return packed, nil
}

func encodeEnd(packed uint64, end End) (uint64, error) {
	var err error
	switch end.Kind {
	case EndNever:
		return fieldEndType.put(packed, uint64(EndNever))
	case EndCount:
		if packed, err = fieldEndCount.put(packed, uint64(end.Count)); err != nil {
			return 0, err
		}
		return fieldEndType.put(packed, uint64(EndCount))
	case EndUntil:
		if end.Until.Before(untilEpoch) {
			return 0, &EncodeError{Field: fieldEndUntil.name, Value: end.Until.Unix(), Err: ErrDateOutOfRange}
		}
		days := uint64(end.Until.Sub(untilEpoch) / day)
		if packed, err = fieldEndUntil.put(packed, days); err != nil {
			return 0, err
		}
		return fieldEndType.put(packed, uint64(EndUntil))
	default:
		return 0, &EncodeError{Field: fieldEndType.name, Value: int64(end.Kind), Err: ErrInvalidEndType}
	}
}

func encodeMonthly(packed uint64, pattern mo.Option[MonthlyPattern]) (uint64, error) {
	p, ok := pattern.Get()
	if !ok {
		return fieldMonthWday.put(packed, weekdayAbsent)
	}

	var err error
	switch p.Kind {
	case MonthlyByDay:
		if p.Day < 1 {
			return 0, &EncodeError{Field: fieldMonthDay.name, Value: int64(p.Day), Err: ErrInvalidDayOfMonth}
		}
		if packed, err = fieldMonthDay.put(packed, uint64(p.Day)); err != nil {
			return 0, err
		}
		return fieldMonthWday.put(packed, weekdayAbsent)
	case MonthlyByWeekday:
		if p.Occurrence == 0 || p.Occurrence < -7 || p.Occurrence > 7 {
			return 0, &EncodeError{Field: fieldMonthOcc.name, Value: int64(p.Occurrence), Err: ErrInvalidOccurrence}
		}
		if p.Weekday < time.Sunday || p.Weekday > time.Saturday {
			return 0, &EncodeError{Field: fieldMonthWday.name, Value: int64(p.Weekday), Err: ErrInvalidWeekday}
		}
		if packed, err = fieldMonthWday.put(packed, uint64(mondayIndex(p.Weekday))); err != nil {
			return 0, err
		}
		return fieldMonthOcc.put(packed, uint64(p.Occurrence+occurrenceOffset))
	default:
		return packed, nil
	}
}

// Decode unpacks a value produced by Encode. It never panics; malformed input
// yields a *DecodeError so the read path can fall back to treating the event
// as non-recurring.
func Decode(packed uint64) (Rule, error) {
	r := Rule{
		Frequency: Frequency(fieldFrequency.get(packed)),
		Interval:  uint32(fieldInterval.get(packed)),
	}
	if r.Interval == 0 {
		return Rule{}, &DecodeError{Field: fieldInterval.name, Raw: packed, Err: ErrZeroInterval}
	}

	value := fieldEndCount.get(packed)
	switch EndKind(fieldEndType.get(packed)) {
	case EndNever:
		r.End = NeverEnds()
	case EndCount:
		r.End = AfterCount(uint32(value))
	case EndUntil:
		r.End = UntilTime(untilEpoch.AddDate(0, 0, int(value)))
	default:
		return Rule{}, &DecodeError{Field: fieldEndType.name, Raw: packed, Err: ErrInvalidEndType}
	}

	if days := WeekdaySet(fieldWeekly.get(packed)); !days.IsEmpty() {
		r.Weekly = mo.Some(days)
	} else {
		r.Weekly = mo.None[WeekdaySet]()
	}

	monthDay := fieldMonthDay.get(packed)
	monthWday := fieldMonthWday.get(packed)
	monthOcc := fieldMonthOcc.get(packed)
	switch {
	case monthDay != 0:
		r.Monthly = mo.Some(DayOfMonth(int(monthDay)))
	case monthWday != weekdayAbsent && monthOcc != 0:
		occurrence := int(monthOcc) - occurrenceOffset
		if occurrence == 0 {
			return Rule{}, &DecodeError{Field: fieldMonthOcc.name, Raw: packed, Err: ErrInvalidOccurrence}
		}
		r.Monthly = mo.Some(WeekdayOccurrence(weekdayFromIndex(uint(monthWday)), occurrence))
	default:
		r.Monthly = mo.None[MonthlyPattern]()
	}

	return r, nil
}

// DecodeOption decodes packed and drops the error. It is the read-path helper:
// a value that fails to decode is treated as "no recurrence".
func DecodeOption(packed uint64) mo.Option[Rule] {
	r, err := Decode(packed)
	if err != nil {
		return mo.None[Rule]()
	}
	return mo.Some(r)
}
