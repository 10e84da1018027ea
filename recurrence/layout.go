package recurrence

import "time"

// bitField describes one field of the packed rule encoding. Encode and Decode
// both go through this table so widths, shifts and value ranges live in one
// place.
type bitField struct {
	name  string
	width uint
	shift uint
	min   uint64
	max   uint64
	err   error // reported when a value falls outside [min, max]
}

func (f bitField) mask() uint64 {
	return 1<<f.width - 1
}

// get extracts the raw field value from packed.
func (f bitField) get(packed uint64) uint64 {
	return (packed >> f.shift) & f.mask()
}

// put range-checks v and stores it into packed.
func (f bitField) put(packed, v uint64) (uint64, error) {
	if v < f.min || v > f.max {
		return packed, &EncodeError{Field: f.name, Value: int64(v), Err: f.err}
	}
	return packed | (v&f.mask())<<f.shift, nil
}

const (
	occurrenceOffset = 8
	weekdayAbsent    = 7
	maxEndValue      = 1<<12 - 1
)

var (
	fieldFrequency = bitField{name: "frequency", width: 2, shift: 0, min: 0, max: 3}
	fieldInterval  = bitField{name: "interval", width: 16, shift: 2, min: 1, max: 1<<16 - 1, err: ErrIntervalTooLarge}
	fieldEndType   = bitField{name: "end_type", width: 2, shift: 18, min: 0, max: 2, err: ErrInvalidEndType}
	fieldEndCount  = bitField{name: "end_value", width: 12, shift: 20, min: 0, max: maxEndValue, err: ErrCountTooLarge}
	fieldEndUntil  = bitField{name: "end_value", width: 12, shift: 20, min: 0, max: maxEndValue, err: ErrDateOutOfRange}
	fieldWeekly    = bitField{name: "weekly_days", width: 7, shift: 32, min: 0, max: uint64(allWeekdays)}
	fieldMonthDay  = bitField{name: "monthly_day", width: 6, shift: 39, min: 1, max: 31, err: ErrDayOfMonthTooLarge}
	fieldMonthWday = bitField{name: "monthly_weekday", width: 3, shift: 45, min: 0, max: weekdayAbsent}
	fieldMonthOcc  = bitField{name: "monthly_occurrence", width: 4, shift: 48, min: occurrenceOffset - 7, max: occurrenceOffset + 7, err: ErrInvalidOccurrence}
)

// layout lists every field in bit order. Tests use it to prove the fields
// never overlap and fit in 64 bits.
var layout = []bitField{
	fieldFrequency,
	fieldInterval,
	fieldEndType,
	fieldEndCount,
	fieldWeekly,
	fieldMonthDay,
	fieldMonthWday,
	fieldMonthOcc,
}

// untilEpoch is day zero of the until-date end value. With 12 bits the
// encodable horizon runs to 2031-03-19.
var untilEpoch = time.Date(2020, time.January, 1, 0, 0, 0, 0, time.UTC)

// MaxUntil is the latest until-date Encode accepts.
var MaxUntil = untilEpoch.AddDate(0, 0, maxEndValue)
