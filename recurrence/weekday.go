package recurrence

import (
	"fmt"
	"strings"
	"time"
)

// WeekdaySet is a set of weekdays stored as a bitmask with Monday at bit 0
// and Sunday at bit 6, the same order the packed encoding uses.
type WeekdaySet uint8

const allWeekdays WeekdaySet = 1<<7 - 1

// NewWeekdaySet builds a set from the given days. Duplicates are ignored.
func NewWeekdaySet(days ...time.Weekday) WeekdaySet {
	var s WeekdaySet
	for _, d := range days {
		s = s.Add(d)
	}
	return s
}

// mondayIndex maps time.Weekday (Sunday = 0) to a Monday-based index.
func mondayIndex(d time.Weekday) uint {
	return uint((d + 6) % 7)
}

// weekdayFromIndex is the inverse of mondayIndex.
func weekdayFromIndex(i uint) time.Weekday {
	return time.Weekday((i + 1) % 7)
}

func (s WeekdaySet) Add(d time.Weekday) WeekdaySet {
	return s | 1<<mondayIndex(d)
}

func (s WeekdaySet) Has(d time.Weekday) bool {
	return s&(1<<mondayIndex(d)) != 0
}

func (s WeekdaySet) IsEmpty() bool {
	return s&allWeekdays == 0
}

func (s WeekdaySet) Len() int {
	n := 0
	for i := uint(0); i < 7; i++ {
		if s&(1<<i) != 0 {
			n++
		}
	}
	return n
}

// Days lists the members Monday first.
func (s WeekdaySet) Days() []time.Weekday {
	days := make([]time.Weekday, 0, s.Len())
	for i := uint(0); i < 7; i++ {
		if s&(1<<i) != 0 {
			days = append(days, weekdayFromIndex(i))
		}
	}
	return days
}

func (s WeekdaySet) String() string {
	names := make([]string, 0, 7)
	for _, d := range s.Days() {
		names = append(names, weekdayName(d))
	}
	return "{" + strings.Join(names, ",") + "}"
}

var weekdayNames = [...]string{"sun", "mon", "tue", "wed", "thu", "fri", "sat"}

func weekdayName(d time.Weekday) string {
	if d < 0 || int(d) >= len(weekdayNames) {
		return fmt.Sprintf("weekday(%d)", int(d))
	}
	return weekdayNames[d]
}

// parseWeekday accepts short ("fri") and long ("friday") English names in any case.
func parseWeekday(s string) (time.Weekday, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if len(s) >= 3 {
		for i, name := range weekdayNames {
			if strings.HasPrefix(s, name) && (len(s) == 3 || s == strings.ToLower(time.Weekday(i).String())) {
				return time.Weekday(i), nil
			}
		}
	}
	return 0, fmt.Errorf("unknown weekday %q", s)
}
