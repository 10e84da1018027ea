package recurrence

import (
	"errors"
	"fmt"
)

var (
	// ErrIntervalTooLarge is returned when the interval does not fit in 16 bits.
	ErrIntervalTooLarge = errors.New("interval exceeds maximum allowed value")
	// ErrZeroInterval is returned for a zero interval, which would never advance.
	ErrZeroInterval = errors.New("interval cannot be zero")
	// ErrCountTooLarge is returned when an occurrence count does not fit in 12 bits.
	ErrCountTooLarge = errors.New("count exceeds maximum allowed value")
	// ErrDateOutOfRange is returned when an until-date falls outside 2020-01-01 .. 2031-03-19.
	ErrDateOutOfRange = errors.New("end date is out of range")
	// ErrDayOfMonthTooLarge is returned for a day of month above 31.
	ErrDayOfMonthTooLarge = errors.New("day of month exceeds maximum allowed value")
	// ErrInvalidDayOfMonth is returned for a day of month of zero or below.
	ErrInvalidDayOfMonth = errors.New("day of month must be at least 1")
	// ErrInvalidOccurrence is returned for a weekday occurrence of 0 or outside [-7, 7].
	ErrInvalidOccurrence = errors.New("occurrence must be between -7 and 7, excluding 0")
	// ErrInvalidEndType is returned when the packed end type holds the reserved tag.
	ErrInvalidEndType = errors.New("invalid end type")
	// ErrInvalidFrequency is returned for a frequency outside the four supported values.
	ErrInvalidFrequency = errors.New("invalid frequency")
	// ErrInvalidWeekday is returned for a weekday outside Sunday..Saturday.
	ErrInvalidWeekday = errors.New("invalid weekday")
)

// EncodeError reports a rule field that cannot be represented in the packed form.
type EncodeError struct {
	Field string
	Value int64
	Err   error
}

func (e *EncodeError) Error() string {
	return fmt.Sprintf("encode %s=%d: %v", e.Field, e.Value, e.Err)
}

func (e *EncodeError) Unwrap() error { return e.Err }

// DecodeError reports a packed value that does not describe a rule.
type DecodeError struct {
	Field string
	Raw   uint64
	Err   error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s (packed %#x): %v", e.Field, e.Raw, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }
